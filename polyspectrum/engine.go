// Package polyspectrum implements C7: the general-order n-point
// polyspectrum estimator built on top of a Fourier-space SlabGrid.
// The algorithm mirrors the original source's compute_polyspectrum,
// which is already generic over an ORDER template parameter rather
// than hard-coded to the bispectrum — this package keeps that
// generality with a runtime n.
package polyspectrum

import (
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/phil-mansfield/polyspectra/binning"
	"github.com/phil-mansfield/polyspectra/comm"
	"github.com/phil-mansfield/polyspectra/fft"
	"github.com/phil-mansfield/polyspectra/grid"
	"github.com/phil-mansfield/polyspectra/internal/parallel"
	"github.com/phil-mansfield/polyspectra/internal/werr"
)

// shell holds the real-space inverse transforms of the masked
// amplitude field and indicator field for one k-shell, plus the
// shell's weighted mean wavenumber and in-shell power (SPEC_FULL.md
// section 4.7, step 1).
type shell struct {
	f, ind []float64 // owned-range real-space values, RestSize()*LocalNx() long
	kmean  float64
	pk     float64
}

// Engine computes the n-point polyspectrum of a Fourier-space field
// by building per-shell real-space masks once and summing products
// of those masks over admissible tuples.
type Engine struct {
	g      *grid.SlabGrid
	c      comm.Comm
	poly   *binning.Poly
	shells []shell
}

// NewEngine builds an Engine for the field currently held by g (which
// must be in status Fourier) with an order-n, nb-shell binning.
func NewEngine(g *grid.SlabGrid, c comm.Comm, n, nb int, kmin, kmax float64, scale binning.Scale) (*Engine, error) {
	if g.Status() != grid.Fourier {
		return nil, fmt.Errorf("polyspectrum.NewEngine: %w", werr.ErrStateMismatch)
	}
	poly, err := binning.NewPoly(n, nb, kmin, kmax, scale)
	if err != nil {
		return nil, err
	}

	e := &Engine{g: g, c: c, poly: poly, shells: make([]shell, nb)}
	d := fft.NewDriver(c)
	for i := 0; i < nb; i++ {
		sh, err := e.buildShell(d, i)
		if err != nil {
			return nil, err
		}
		e.shells[i] = sh
	}
	return e, nil
}

// buildShell implements step 1: mask the field to shell i, inverse
// transform both the masked amplitude and its indicator to real
// space, and accumulate the shell's weighted mean k and in-shell
// P(k) using the same Hermitian-pair weighting BinUp uses.
func (e *Engine) buildShell(d *fft.Driver, i int) (shell, error) {
	fi := e.g.Clone()
	ni := e.g.Clone()

	var kSum, weightSum, pofkSum float64
	e.g.ForEachFourier(func(idx int) {
		_, kmag := e.g.GetFourierWavevectorAndNorm(idx)
		bin, ok := e.poly.Locate(kmag)
		if !ok || bin != i {
			fi.FourierRaw()[idx] = 0
			ni.FourierRaw()[idx] = 0
			return
		}
		v := e.g.FourierRaw()[idx]
		ni.FourierRaw()[idx] = complex(1, 0)
		w := hermitianWeight(e.g, idx)
		kSum += w * kmag
		weightSum += w
		pofkSum += w * (real(v)*real(v) + imag(v)*imag(v))
	})

	sums := []float64{kSum, weightSum, pofkSum}
	e.c.AllreduceSumFloat64(sums)
	kSum, weightSum, pofkSum = sums[0], sums[1], sums[2]

	var kmean, pk float64
	if weightSum > 0 {
		kmean = kSum / weightSum
		pk = pofkSum / weightSum
	} else {
		kmean = e.poly.Midpoint(i)
		pk = 0
	}

	if err := d.Inverse(fi); err != nil {
		return shell{}, err
	}
	if err := d.Inverse(ni); err != nil {
		return shell{}, err
	}

	rest := fi.RestSize()
	lo := fi.NLeft() * rest
	hi := lo + fi.LocalNx()*rest
	f := make([]float64, hi-lo)
	copy(f, fi.RealRaw()[lo:hi])
	ind := make([]float64, hi-lo)
	copy(ind, ni.RealRaw()[lo:hi])

	return shell{f: f, ind: ind, kmean: kmean, pk: pk}, nil
}

// hermitianWeight is BinUp's Hermitian-pair weighting, reused here so
// a shell's in-shell P(k) and mean k agree with what BinUp would
// report for the same bin.
func hermitianWeight(g *grid.SlabGrid, idx int) float64 {
	c := g.LastAxisCoord(idx)
	if c == 0 || c == g.N()/2 {
		return 1
	}
	return 2
}

// PowerAt returns the in-shell power of shell i, the quantity
// Bispectrum's reduced form divides by.
func (e *Engine) PowerAt(i int) float64 { return e.shells[i].pk }

// Poly exposes the binning this Engine was built with, useful for a
// caller that wants Decode/Index without re-deriving its own Poly.
func (e *Engine) Poly() *binning.Poly { return e.poly }

// Compute implements steps 2 and 4: sum the shell-mask products over
// every admissible ordered tuple, normalize, divide, mark computed,
// then fill every non-canonical permutation of each computed tuple by
// symmetry.
func (e *Engine) Compute() (*binning.Poly, error) {
	nb := e.poly.NumBins()
	n := e.poly.Order()
	dim := e.g.Dim()
	boxN := e.g.N()
	scale := math.Pow(1/(2*math.Pi*float64(boxN)), float64(dim))

	tuples := nondecreasingTuples(nb, n)
	for _, ik := range tuples {
		if !e.admissible(ik) {
			continue
		}
		fSum, nSum := e.tupleSum(ik)
		totals := []float64{fSum, nSum}
		e.c.AllreduceSumFloat64(totals)
		fSum, nSum = totals[0]*scale, totals[1]*scale
		if nSum < 0 {
			nSum = 0
		}
		pValue := 0.0
		if nSum > 0 {
			pValue = fSum / nSum
		}

		flat := e.poly.Index(ik)
		e.poly.SetEntry(flat, pValue, nSum)
		for _, perm := range permutations(ik) {
			e.poly.SetEntry(e.poly.Index(perm), pValue, nSum)
		}
	}
	return e.poly, nil
}

// admissible implements the closable-polygon generalization of the
// triangle inequality: the n-1 smallest shells must be able to sum to
// at least the largest shell's mean wavenumber minus a slack of n/2
// times that shell's bin width (SPEC_FULL.md section 4.7, step 2). ik must
// already be sorted non-decreasing, so ik[n-1] is the largest shell.
func (e *Engine) admissible(ik []int) bool {
	n := len(ik)
	last := ik[n-1]
	_, hi := e.poly.BinEdges(last)
	lo, _ := e.poly.BinEdges(last)
	deltaK := hi - lo

	sum := 0.0
	for a := 0; a < n-1; a++ {
		sum += e.shells[ik[a]].kmean
	}
	return sum >= e.shells[last].kmean-float64(n)*deltaK/2
}

// tupleSum computes the local (this rank's owned cells only) raw
// sums F = sum_x prod_a F_{ik[a]}(x) and N = sum_x prod_a N_{ik[a]}(x)
// for the tuple ik. The cell range is split into parallel.Ranges,
// each summed on its own goroutine into a private (fSum, nSum) pair,
// added together in range order once every goroutine has returned.
func (e *Engine) tupleSum(ik []int) (fSum, nSum float64) {
	size := len(e.shells[ik[0]].f)
	ranges := parallel.Ranges(size)
	if len(ranges) == 1 {
		return tupleSumRange(e.shells, ik, ranges[0][0], ranges[0][1])
	}

	type partial struct{ f, n float64 }
	partials := make([]partial, len(ranges))
	var eg errgroup.Group
	for i, r := range ranges {
		i, r := i, r
		eg.Go(func() error {
			f, n := tupleSumRange(e.shells, ik, r[0], r[1])
			partials[i] = partial{f, n}
			return nil
		})
	}
	_ = eg.Wait()
	for _, p := range partials {
		fSum += p.f
		nSum += p.n
	}
	return fSum, nSum
}

// tupleSumRange runs tupleSum's per-cell product-and-accumulate over
// cell indices [start, end) of every shell in ik.
func tupleSumRange(shells []shell, ik []int, start, end int) (fSum, nSum float64) {
	for x := start; x < end; x++ {
		fProd, nProd := 1.0, 1.0
		for _, i := range ik {
			fProd *= shells[i].f[x]
			nProd *= shells[i].ind[x]
		}
		fSum += fProd
		nSum += nProd
	}
	return fSum, nSum
}

// nondecreasingTuples enumerates every length-n tuple over [0, nb)
// with non-decreasing entries.
func nondecreasingTuples(nb, n int) [][]int {
	var out [][]int
	cur := make([]int, n)
	var rec func(pos, min int)
	rec = func(pos, min int) {
		if pos == n {
			out = append(out, append([]int(nil), cur...))
			return
		}
		for v := min; v < nb; v++ {
			cur[pos] = v
			rec(pos+1, v)
		}
	}
	rec(0, 0)
	return out
}

// permutations returns every distinct reordering of ik other than ik
// itself (ik is already in canonical non-decreasing order), so the
// caller can symmetry-fill every non-canonical flat index that maps
// to the same tuple of shells.
func permutations(ik []int) [][]int {
	var out [][]int
	n := len(ik)
	used := make([]bool, n)
	cur := make([]int, 0, n)
	var rec func()
	rec = func() {
		if len(cur) == n {
			if !equalInts(cur, ik) {
				out = append(out, append([]int(nil), cur...))
			}
			return
		}
		for i := 0; i < n; i++ {
			if used[i] {
				continue
			}
			used[i] = true
			cur = append(cur, ik[i])
			rec()
			cur = cur[:len(cur)-1]
			used[i] = false
		}
	}
	rec()
	return dedupeTuples(out)
}

func equalInts(a, b []int) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func dedupeTuples(tuples [][]int) [][]int {
	seen := make(map[string]bool)
	var out [][]int
	for _, t := range tuples {
		key := fmt.Sprint(t)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t)
	}
	return out
}
