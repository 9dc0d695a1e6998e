// Package particle defines the particle stream this module's
// estimators consume. The teacher's lib/particles package models a
// particle set as a generic Particles map[string]Field so that an
// arbitrary set of typed columns can ride along; this spec only ever
// needs two fixed fields (position and velocity), so Stream is the
// concrete 2-field shape that generality would have been overkill
// for — see DESIGN.md.
package particle

import "fmt"

// Stream is a worker's local share of a particle set living in a
// Dim-dimensional periodic box normalized to [0,1)^Dim.
type Stream struct {
	Dim int
	// Pos[i] and Vel[i] each have length Dim.
	Pos [][]float64
	Vel [][]float64
	// NTotal is the globally known particle count across every
	// worker. The caller is responsible for keeping it consistent;
	// spectrum.PowerDirectSum's precondition check reads it.
	NTotal int
}

// New builds an empty Stream of the given dimension.
func New(dim, nTotal int) *Stream {
	return &Stream{Dim: dim, NTotal: nTotal}
}

// Len returns the number of particles this worker holds locally.
func (s *Stream) Len() int { return len(s.Pos) }

// Add appends a particle. pos and vel must have length s.Dim.
func (s *Stream) Add(pos, vel []float64) error {
	if len(pos) != s.Dim || len(vel) != s.Dim {
		return fmt.Errorf("particle.Add: position/velocity must have length %d, got %d/%d",
			s.Dim, len(pos), len(vel))
	}
	p := make([]float64, s.Dim)
	copy(p, pos)
	v := make([]float64, s.Dim)
	copy(v, vel)
	s.Pos = append(s.Pos, p)
	s.Vel = append(s.Vel, v)
	return nil
}

// Clone deep-copies the stream.
func (s *Stream) Clone() *Stream {
	out := &Stream{Dim: s.Dim, NTotal: s.NTotal}
	out.Pos = make([][]float64, len(s.Pos))
	out.Vel = make([][]float64, len(s.Vel))
	for i := range s.Pos {
		out.Pos[i] = append([]float64(nil), s.Pos[i]...)
		out.Vel[i] = append([]float64(nil), s.Vel[i]...)
	}
	return out
}

// ShiftPeriodic adds delta to every particle's position along axis,
// wrapping into [0,1). Used by the interlaced scatter (a uniform
// half-cell shift).
func (s *Stream) ShiftPeriodic(axis int, delta float64) {
	for i := range s.Pos {
		x := s.Pos[i][axis] + delta
		x -= floor(x)
		s.Pos[i][axis] = x
	}
}

// ShiftByVelocity displaces every particle along axis by kappa times
// its velocity component on that axis, wrapping periodically. It
// performs the same axis-aligned displacement as the line-of-sight
// shift in spectrum.ParticleMultipoles, which does not call it and
// uses its own shift along an arbitrary direction.
func (s *Stream) ShiftByVelocity(axis int, kappa float64) {
	for i := range s.Pos {
		x := s.Pos[i][axis] + kappa*s.Vel[i][axis]
		x -= floor(x)
		s.Pos[i][axis] = x
	}
}

func floor(x float64) float64 {
	f := float64(int64(x))
	if x < 0 && f != x {
		f--
	}
	return f
}
