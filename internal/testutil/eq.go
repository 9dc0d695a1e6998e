/*Package testutil is a simple package for telling whether two arrays of
floating point numbers are close to one another. It is the polyspectra
analogue of guppy's lib/eq package, trimmed to the types the test suite
actually compares.*/
package testutil

import "math"

// Float64sEps returns true if the two []float64 arrays are within eps of
// one another, elementwise, and false otherwise.
func Float64sEps(x, y []float64, eps float64) bool {
	if len(x) != len(y) {
		return false
	}
	for i := range x {
		if math.Abs(x[i]-y[i]) > eps {
			return false
		}
	}
	return true
}

// Complex128sEps returns true if the two []complex128 arrays are within
// eps of one another in modulus, elementwise, and false otherwise.
func Complex128sEps(x, y []complex128, eps float64) bool {
	if len(x) != len(y) {
		return false
	}
	for i := range x {
		if cmplx_abs(x[i]-y[i]) > eps {
			return false
		}
	}
	return true
}

func cmplx_abs(z complex128) float64 {
	return math.Hypot(real(z), imag(z))
}

// BoolsAllTrue returns true if every element of x is true.
func BoolsAllTrue(x []bool) bool {
	for _, v := range x {
		if !v {
			return false
		}
	}
	return true
}
