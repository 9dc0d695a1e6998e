// Package fixtures builds deterministic synthetic inputs — particle
// sets and Gaussian random fields — for the test suites in spectrum,
// polyspectrum, and smoothing. The xorshift generator is adapted
// directly from the teacher's lib/compress/rng.go.
package fixtures

import (
	"math"

	"github.com/phil-mansfield/polyspectra/grid"
	"github.com/phil-mansfield/polyspectra/particle"
)

// RNG is an xorshift generator, unchanged in algorithm from the
// teacher's lib/compress/rng.go (not thread safe).
type RNG struct {
	w, x, y, z uint32
}

// NewRNG seeds a generator.
func NewRNG(seed uint64) *RNG {
	return &RNG{uint32(seed), 123456789, 362436069, 521288629}
}

// Uniform returns a pseudo-random value in [0, 1).
func (gen *RNG) Uniform() float64 {
	t := gen.x ^ (gen.x << 11)
	gen.x, gen.y, gen.z = gen.y, gen.z, gen.w
	gen.w = gen.w ^ (gen.w >> 19) ^ (t ^ (t >> 8))
	res := float64(math.MaxUint32-gen.w) / float64(math.MaxUint32)
	if res == 1.0 {
		return gen.Uniform()
	}
	return res
}

// UniformVector fills target with independent Uniform() draws.
func (gen *RNG) UniformVector(target []float64) {
	for i := range target {
		target[i] = gen.Uniform()
	}
}

// Normal draws one standard-normal-scaled sample via a Box-Muller
// transform of two Uniform() draws.
func (gen *RNG) Normal(sigma float64) float64 {
	u1, u2 := gen.Uniform(), gen.Uniform()
	if u1 < 1e-300 {
		u1 = 1e-300
	}
	r := math.Sqrt(-2 * math.Log(u1))
	return sigma * r * math.Cos(2*math.Pi*u2)
}

// RandomParticles builds a Stream of n particles uniformly scattered
// in [0,1)^dim with zero velocity, all held on a single worker
// (NTotal == n, len(Pos) == n): the shape PowerDirectSum's
// precondition expects.
func RandomParticles(seed uint64, dim, n int) *particle.Stream {
	gen := NewRNG(seed)
	s := particle.New(dim, n)
	pos := make([]float64, dim)
	vel := make([]float64, dim)
	for i := 0; i < n; i++ {
		gen.UniformVector(pos)
		s.Add(pos, vel)
	}
	return s
}

// GaussianField fills g's real-view owned cells with i.i.d. draws
// from a mean-zero Normal of the given standard deviation. g must be
// in status Real.
func GaussianField(seed uint64, g *grid.SlabGrid, sigma float64) error {
	gen := NewRNG(seed)
	var outerErr error
	g.ForEachOwnedReal(func(coord []int, idx int) {
		if outerErr != nil {
			return
		}
		outerErr = g.SetReal(coord, gen.Normal(sigma))
	})
	return outerErr
}
