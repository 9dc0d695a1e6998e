// Package diagnostics implements the shell-covariance diagnostic
// named in the grounding ledger: given many independent estimates of
// a binned spectrum (from bootstrap resamples, jackknife subvolumes,
// or repeated mock realizations), compute the bin-to-bin covariance
// matrix and its principal noise modes.
//
// Repurposed from the teacher's go/sim_stats.go, a one-off analysis
// script for a specific simulation's halo catalog. Its axisRatios
// function built a 3x3 reduced inertia tensor out of one halo's
// particles with mat.NewDense, then eigen-decomposed it with
// mat.Eigen to get an axis ratio; this package keeps exactly that
// shape — assemble a small matrix from simulation output, then
// eigendecompose it for interpretation — generalized from a 3x3
// shape tensor to an nb x nb covariance matrix over polyspectrum
// shells, and from gonum.org/v1/gonum/mat.Eigen (general matrices)
// to mat.EigenSym (real symmetric matrices), the correct gonum
// decomposition for a covariance matrix rather than the teacher's
// general-eigenvalue routine.
package diagnostics

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// ShellCovariance builds the nb x nb sample covariance matrix of a
// binned spectrum estimator across samples, where samples[i] is one
// realization's nb-length vector of per-shell values (e.g. a
// binning.Power.Pofk snapshot, or one row per bootstrap resample).
// Every sample must have the same length, and there must be at least
// two samples.
func ShellCovariance(samples [][]float64) (*mat.SymDense, error) {
	if len(samples) < 2 {
		return nil, fmt.Errorf("diagnostics.ShellCovariance: need at least 2 samples, got %d", len(samples))
	}
	nb := len(samples[0])
	if nb == 0 {
		return nil, fmt.Errorf("diagnostics.ShellCovariance: samples have zero bins")
	}
	data := make([]float64, len(samples)*nb)
	for i, s := range samples {
		if len(s) != nb {
			return nil, fmt.Errorf("diagnostics.ShellCovariance: sample %d has %d bins, want %d", i, len(s), nb)
		}
		copy(data[i*nb:(i+1)*nb], s)
	}
	x := mat.NewDense(len(samples), nb, data)

	cov := mat.NewSymDense(nb, nil)
	stat.CovarianceMatrix(cov, x, nil)
	return cov, nil
}

// PrincipalModes eigendecomposes a covariance matrix built by
// ShellCovariance and returns its eigenvalues (descending, the
// convention axisRatios' sort3 used for its own three eigenvalues)
// alongside the matching eigenvectors, one per column of the
// returned matrix. The leading eigenvector is the linear combination
// of shells carrying the most correlated noise.
func PrincipalModes(cov *mat.SymDense) (eigenvalues []float64, eigenvectors *mat.Dense, err error) {
	var eig mat.EigenSym
	ok := eig.Factorize(cov, true)
	if !ok {
		return nil, nil, fmt.Errorf("diagnostics.PrincipalModes: eigendecomposition failed for a %dx%d matrix", cov.SymmetricDim(), cov.SymmetricDim())
	}

	vals := eig.Values(nil)
	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	n := len(vals)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool { return vals[order[i]] > vals[order[j]] })

	sortedVals := make([]float64, n)
	sortedVecs := mat.NewDense(n, n, nil)
	for newCol, oldCol := range order {
		sortedVals[newCol] = vals[oldCol]
		for row := 0; row < n; row++ {
			sortedVecs.Set(row, newCol, vecs.At(row, oldCol))
		}
	}
	return sortedVals, sortedVecs, nil
}

// CorrelationMatrix normalizes a covariance matrix into a correlation
// matrix (every diagonal entry 1), the form most diagnostic plots of
// bin-to-bin covariance actually display.
func CorrelationMatrix(cov *mat.SymDense) *mat.SymDense {
	n := cov.SymmetricDim()
	corr := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			denom := math.Sqrt(cov.At(i, i) * cov.At(j, j))
			v := 0.0
			if denom > 0 {
				v = cov.At(i, j) / denom
			}
			corr.SetSym(i, j, v)
		}
	}
	return corr
}
