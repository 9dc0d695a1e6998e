package snapio

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

func writeFakeGadget2(t *testing.T, n int, box float64) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "snap.dat")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	order := binary.LittleEndian

	hd := &rawGadget2Header{}
	hd.NPart[1] = uint32(n)
	hd.Nall[1] = uint32(n)
	hd.BoxSize = box

	write(t, f, order, uint32(gadget2HeaderSize))
	write(t, f, order, hd)
	write(t, f, order, uint32(gadget2HeaderSize))

	pos := make([][3]float32, n)
	for i := range pos {
		pos[i] = [3]float32{float32(i), float32(i) * 2, float32(i) * 3}
	}
	write(t, f, order, uint32(12*n))
	write(t, f, order, pos)
	write(t, f, order, uint32(12*n))

	vel := make([][3]float32, n)
	for i := range vel {
		vel[i] = [3]float32{0, 0, float32(i)}
	}
	write(t, f, order, uint32(12*n))
	write(t, f, order, vel)
	write(t, f, order, uint32(12*n))

	return path
}

func write(t *testing.T, f *os.File, order binary.ByteOrder, v interface{}) {
	t.Helper()
	if err := binary.Write(f, order, v); err != nil {
		t.Fatal(err)
	}
}

func TestReadGadget2NormalizesPositionsByBoxSize(t *testing.T) {
	n := 4
	box := 10.0
	path := writeFakeGadget2(t, n, box)

	s, err := ReadGadget2(path)
	if err != nil {
		t.Fatal(err)
	}
	if s.Len() != n {
		t.Fatalf("got %d particles, want %d", s.Len(), n)
	}
	for i := 0; i < n; i++ {
		want := float64(i) / box
		if s.Pos[i][0] != want {
			t.Fatalf("particle %d x = %v, want %v", i, s.Pos[i][0], want)
		}
		if s.Vel[i][2] != float64(i) {
			t.Fatalf("particle %d vz = %v, want %v", i, s.Vel[i][2], float64(i))
		}
	}
}

func TestReadGadget2RejectsBadHeaderMarker(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.dat")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	write(t, f, binary.LittleEndian, uint32(13))
	f.Close()

	if _, err := ReadGadget2(path); err == nil {
		t.Fatal("want error for a bad header record marker")
	}
}
