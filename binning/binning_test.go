package binning

import (
	"math"
	"testing"

	"github.com/phil-mansfield/polyspectra/comm"
)

func TestPowerAddAndNormalize(t *testing.T) {
	p, err := NewPower(4, 0, 4, Linear)
	if err != nil {
		t.Fatal(err)
	}
	p.Add(0.5, 2.0, 1.0)
	p.Add(0.6, 4.0, 1.0)
	p.Add(3.9, 10.0, 2.0)
	p.Normalize(comm.Local())

	if math.Abs(p.Pofk[0]-3.0) > 1e-12 {
		t.Fatalf("bin 0 Pofk = %v, want 3.0", p.Pofk[0])
	}
	if math.Abs(p.Kbin[0]-0.55) > 1e-12 {
		t.Fatalf("bin 0 Kbin = %v, want 0.55", p.Kbin[0])
	}
	if math.Abs(p.Pofk[3]-10.0) > 1e-12 {
		t.Fatalf("bin 3 Pofk = %v, want 10.0", p.Pofk[3])
	}
	// Empty bins fall back to their midpoint.
	if math.Abs(p.Kbin[1]-1.5) > 1e-12 {
		t.Fatalf("bin 1 (empty) Kbin = %v, want midpoint 1.5", p.Kbin[1])
	}
	if p.Pofk[1] != 0 {
		t.Fatalf("bin 1 (empty) Pofk = %v, want 0", p.Pofk[1])
	}
}

func TestPowerOutOfRangeDropped(t *testing.T) {
	p, err := NewPower(2, 0, 1, Linear)
	if err != nil {
		t.Fatal(err)
	}
	p.Add(5.0, 100.0, 1.0)
	p.Normalize(comm.Local())
	for i, v := range p.Pofk {
		if v != 0 {
			t.Fatalf("bin %d Pofk = %v, want 0 (value out of range)", i, v)
		}
	}
}

func TestNewPowerRejectsBadParams(t *testing.T) {
	if _, err := NewPower(0, 0, 1, Linear); err == nil {
		t.Fatal("want error for nb=0")
	}
	if _, err := NewPower(4, 1, 0, Linear); err == nil {
		t.Fatal("want error for kmin >= kmax")
	}
	if _, err := NewPower(4, 0, 1, Log); err == nil {
		t.Fatal("want error for log scale with kmin=0")
	}
}

func TestPolyIndexDecodeRoundTrip(t *testing.T) {
	poly, err := NewBispectrum(5, 0, 10, Linear)
	if err != nil {
		t.Fatal(err)
	}
	ik := []int{1, 3, 4}
	flat := poly.Index(ik)
	got := poly.Decode(flat)
	for a := range ik {
		if got[a] != ik[a] {
			t.Fatalf("Decode(Index(%v)) = %v", ik, got)
		}
	}
}

func TestPolyComputedBitmapDistinguishesZero(t *testing.T) {
	poly, err := NewBispectrum(3, 0, 10, Linear)
	if err != nil {
		t.Fatal(err)
	}
	flat := poly.Index([]int{0, 1, 2})
	if poly.IsComputed(flat) {
		t.Fatal("fresh entry should not be computed")
	}
	poly.SetEntry(flat, 0.0, 5.0)
	if !poly.IsComputed(flat) {
		t.Fatal("entry should be computed after SetEntry, even with a zero value")
	}
	if poly.P123[flat] != 0 {
		t.Fatalf("P123 = %v, want 0", poly.P123[flat])
	}
}
