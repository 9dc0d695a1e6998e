// Package snapio implements the Gadget-2 particle source adapter
// named in SPEC_FULL.md section 6: a reader that turns a single
// Gadget-2 snapshot file's header, position block, and velocity block
// into a particle.Stream. Adapted from the teacher's
// lib/snapio/gadget2.go, which supports an arbitrary caller-specified
// set of blocks via a generic Buffer; this package only ever needs
// position and velocity, so it reads exactly those two blocks
// directly instead of carrying that generality forward.
package snapio

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/phil-mansfield/polyspectra/internal/werr"
	"github.com/phil-mansfield/polyspectra/particle"
)

const gadget2HeaderSize = 256

// rawGadget2Header mirrors the on-disk layout of a standard
// cosmological Gadget-2 header block, unchanged from the teacher's
// rawGadget2Header.
type rawGadget2Header struct {
	NPart                           [6]uint32
	Mass                            [6]float64
	Time, Redshift                  float64
	FlagSFR, FlagFeedback           uint32
	Nall                            [6]uint32
	FlagCooling, NumFiles           uint32
	BoxSize, Omega0, OmegaLambda, HubbleParam float64
	FlagStellarAge, FlagMetals      uint32
	NallHW                          [6]uint32
	FlagEntropyICs                  uint32
	Empty                           [60]byte
}

// ReadGadget2 reads a single Gadget-2 snapshot file's header, "x"
// (position) and "v" (velocity) blocks, in that order, assuming the
// standard layout: dark-matter particle type (NPart[1]), 32-bit
// float 3-vectors, little-endian byte order. Positions are divided
// by BoxSize to land in [0,1)^3, matching Stream's convention.
func ReadGadget2(path string) (*particle.Stream, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("snapio.ReadGadget2: %w", err)
	}
	defer file.Close()

	order := binary.LittleEndian
	hd, err := readGadget2Header(file, order)
	if err != nil {
		return nil, fmt.Errorf("snapio.ReadGadget2: %s: %w", path, err)
	}
	n := int(hd.NPart[1])

	pos, err := readVec32Block(file, order, n)
	if err != nil {
		return nil, fmt.Errorf("snapio.ReadGadget2: reading position block: %w", err)
	}
	vel, err := readVec32Block(file, order, n)
	if err != nil {
		return nil, fmt.Errorf("snapio.ReadGadget2: reading velocity block: %w", err)
	}

	box := hd.BoxSize
	if box <= 0 {
		return nil, fmt.Errorf("snapio.ReadGadget2: %s has non-positive box size %v: %w", path, box, werr.ErrPrecondition)
	}

	s := particle.New(3, n)
	for i := 0; i < n; i++ {
		p := []float64{
			float64(pos[i][0]) / box,
			float64(pos[i][1]) / box,
			float64(pos[i][2]) / box,
		}
		v := []float64{float64(vel[i][0]), float64(vel[i][1]), float64(vel[i][2])}
		if err := s.Add(p, v); err != nil {
			return nil, fmt.Errorf("snapio.ReadGadget2: %w", err)
		}
	}
	return s, nil
}

// readGadget2Header reads and validates the Fortran-bracketed header
// block (an unsigned 32-bit record marker before and after the raw
// struct, both equal to gadget2HeaderSize), the file-format detail
// the original source's readRawGadgetHeader exists to handle.
func readGadget2Header(file *os.File, order binary.ByteOrder) (*rawGadget2Header, error) {
	var nHeader, nFooter uint32
	if err := binary.Read(file, order, &nHeader); err != nil {
		return nil, err
	}
	if nHeader != gadget2HeaderSize {
		return nil, fmt.Errorf("not a valid Gadget-2 file: header record marker is %d bytes, want %d", nHeader, gadget2HeaderSize)
	}

	hd := &rawGadget2Header{}
	if err := binary.Read(file, order, hd); err != nil {
		return nil, err
	}
	if err := binary.Read(file, order, &nFooter); err != nil {
		return nil, err
	}
	if nHeader != nFooter {
		return nil, fmt.Errorf("not a valid Gadget-2 file: header record markers disagree, %d vs %d", nHeader, nFooter)
	}
	return hd, nil
}

// readVec32Block reads one Fortran-bracketed block of n 32-bit-float
// 3-vectors, validating that the record markers match the block's
// expected size.
func readVec32Block(file *os.File, order binary.ByteOrder, n int) ([][3]float32, error) {
	wantSize := uint32(12 * n)
	var nHeader, nFooter uint32
	if err := binary.Read(file, order, &nHeader); err != nil {
		return nil, err
	}
	if nHeader != wantSize {
		return nil, fmt.Errorf("block record marker is %d bytes, want %d for %d particles", nHeader, wantSize, n)
	}

	block := make([][3]float32, n)
	if err := binary.Read(file, order, block); err != nil {
		return nil, err
	}

	if err := binary.Read(file, order, &nFooter); err != nil {
		return nil, err
	}
	if nFooter != nHeader {
		return nil, fmt.Errorf("block record markers disagree, %d vs %d", nHeader, nFooter)
	}
	return block, nil
}
