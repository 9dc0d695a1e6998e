package comm

// This header is almost the same as the one used by
// github.com/marcusthierfelder/mpi, by way of guppy's lib/mpi, with
// changes to the way compilation is done. I'd import that package
// like normal, but the changes to the type system and build
// instructions make that impossible, so the relevant parts are
// reproduced here. License for the original:
//
// Copyright (c) 2017 Marcus Thierfelder
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// NOTE: use
// $ mpicc --showme:compile
// $ mpicc --showme:link
// to figure out CFLAGS and LDFLAGS, respectively, for the local MPI
// installation.

/*
#cgo LDFLAGS: -pthread -L/usr/lib/x86_64-linux-gnu/openmpi/lib -lmpi
#cgo CFLAGS: -std=gnu99 -Wall -I/usr/lib/x86_64-linux-gnu/openmpi/include/openmpi -I/usr/lib/x86_64-linux-gnu/openmpi/include -pthread
#include <mpi.h>
#include <stdlib.h>

MPI_Comm get_MPI_COMM_WORLD() {
    return (MPI_Comm)(MPI_COMM_WORLD);
}
*/
import "C"

import (
	"unsafe"
)

var (
	worldComm C.MPI_Comm = get_world()
)

func get_world() C.MPI_Comm { return C.get_MPI_COMM_WORLD() }

// InitMPI initializes the MPI runtime and returns a Comm bound to
// MPI_COMM_WORLD. FinalizeMPI must be called before the process
// exits.
func InitMPI() Comm {
	processError(C.MPI_Init(nil, nil))
	return mpiComm{}
}

// FinalizeMPI shuts down the MPI runtime.
func FinalizeMPI() {
	processError(C.MPI_Finalize())
}

func processError(err C.int) {
	if err == 0 {
		return
	}
	buf := make([]C.char, C.MPI_MAX_ERROR_STRING)
	n := C.int(0)
	C.MPI_Error_string(err, &buf[0], &n)
	panic(C.GoString(&buf[0]))
}

// mpiComm is the cgo-backed Comm. It carries no state of its own
// beyond the package-level MPI_COMM_WORLD handle: rank and size are
// cheap MPI calls, not cached, since a Comm is expected to be created
// once and threaded through the whole program's lifetime.
type mpiComm struct{}

func (mpiComm) Rank() int {
	n := C.int(-1)
	processError(C.MPI_Comm_rank(worldComm, &n))
	return int(n)
}

func (mpiComm) Size() int {
	n := C.int(-1)
	processError(C.MPI_Comm_size(worldComm, &n))
	return int(n)
}

func (mpiComm) Barrier() {
	processError(C.MPI_Barrier(worldComm))
}

func (mpiComm) Abort(code int) {
	C.MPI_Abort(worldComm, C.int(code))
}

func (c mpiComm) SendRecvFloat64(send []float64, dest int, recv []float64, src int) {
	if len(send) == 0 {
		send = []float64{0}
	}
	if len(recv) == 0 {
		recv = []float64{0}
	}
	var status C.MPI_Status
	err := C.MPI_Sendrecv(
		unsafe.Pointer(&send[0]), C.int(len(send)), C.MPI_DOUBLE, C.int(dest), 0,
		unsafe.Pointer(&recv[0]), C.int(len(recv)), C.MPI_DOUBLE, C.int(src), 0,
		worldComm, &status,
	)
	processError(err)
}

func (c mpiComm) SendRecvComplex128(send []complex128, dest int, recv []complex128, src int) {
	c.SendRecvFloat64(complexAsFloat64(send), dest, complexAsFloat64(recv), src)
}

func (c mpiComm) AllreduceSumFloat64(buf []float64) {
	if len(buf) == 0 {
		return
	}
	// Gather every rank's buffer and add them in rank order 0, 1, 2, ...
	// so every rank computes the same bitwise result.
	all := c.AllgathervFloat64(buf)
	out := make([]float64, len(buf))
	for start := 0; start < len(all); start += len(buf) {
		for i := range out {
			out[i] += all[start+i]
		}
	}
	copy(buf, out)
}

func (mpiComm) AllreduceSumInt(buf []int) {
	if len(buf) == 0 {
		return
	}
	in := make([]C.long, len(buf))
	out := make([]C.long, len(buf))
	for i, v := range buf {
		in[i] = C.long(v)
	}
	err := C.MPI_Allreduce(
		unsafe.Pointer(&in[0]), unsafe.Pointer(&out[0]), C.int(len(buf)),
		C.MPI_LONG, C.MPI_SUM, worldComm,
	)
	processError(err)
	for i, v := range out {
		buf[i] = int(v)
	}
}

func (c mpiComm) AllgathervFloat64(local []float64) []float64 {
	counts := gatherCounts(len(local))
	total := 0
	disp := make([]C.int, len(counts))
	for i, n := range counts {
		disp[i] = C.int(total)
		total += n
	}

	out := make([]float64, total)
	cCounts := make([]C.int, len(counts))
	for i, n := range counts {
		cCounts[i] = C.int(n)
	}

	sendPtr := unsafe.Pointer(nil)
	if len(local) > 0 {
		sendPtr = unsafe.Pointer(&local[0])
	} else {
		sendPtr = unsafe.Pointer(&[]float64{0}[0])
	}
	recvPtr := unsafe.Pointer(nil)
	if total > 0 {
		recvPtr = unsafe.Pointer(&out[0])
	} else {
		recvPtr = unsafe.Pointer(&[]float64{0}[0])
	}

	err := C.MPI_Allgatherv(
		sendPtr, C.int(len(local)), C.MPI_DOUBLE,
		recvPtr, &cCounts[0], &disp[0], C.MPI_DOUBLE, worldComm,
	)
	processError(err)
	return out
}

func (c mpiComm) AllgathervComplex128(local []complex128) []complex128 {
	flat := c.AllgathervFloat64(complexAsFloat64(local))
	return float64AsComplex(flat)
}

// gatherCounts all-gathers every rank's local element count, the
// prerequisite for building the displacement array an Allgatherv
// needs.
func gatherCounts(n int) []int {
	size := mpiComm{}.Size()
	send := []C.long{C.long(n)}
	recv := make([]C.long, size)
	err := C.MPI_Allgather(
		unsafe.Pointer(&send[0]), 1, C.MPI_LONG,
		unsafe.Pointer(&recv[0]), 1, C.MPI_LONG, worldComm,
	)
	processError(err)
	out := make([]int, size)
	for i, v := range recv {
		out[i] = int(v)
	}
	return out
}

// complexAsFloat64 reinterprets a []complex128 as a []float64 of
// twice the length ({re0, im0, re1, im1, ...}), relying on
// complex128's guaranteed memory layout as two adjacent float64s.
// MPI has no portable complex datatype binding here, so every
// complex collective is just a double-width float64 collective.
func complexAsFloat64(z []complex128) []float64 {
	if len(z) == 0 {
		return nil
	}
	return unsafe.Slice((*float64)(unsafe.Pointer(&z[0])), len(z)*2)
}

func float64AsComplex(f []float64) []complex128 {
	if len(f) == 0 {
		return nil
	}
	return unsafe.Slice((*complex128)(unsafe.Pointer(&f[0])), len(f)/2)
}
