// Package werr defines the sentinel error values shared by every
// polyspectra package. Callers compare against these with errors.Is;
// call sites wrap them with fmt.Errorf("...: %w", ...) to add context.
package werr

import "errors"

var (
	// ErrStateMismatch is returned when a grid is in the wrong
	// Real/Fourier state for the requested operation.
	ErrStateMismatch = errors.New("polyspectra: grid in wrong state for this operation")

	// ErrUnknownKernel is returned for an unrecognized assignment-kernel
	// or smoothing-filter selector string.
	ErrUnknownKernel = errors.New("polyspectra: unrecognized kernel or filter name")

	// ErrUnsupportedDim is returned when a filter or estimator is
	// invoked at a dimension it isn't defined for.
	ErrUnsupportedDim = errors.New("polyspectra: operation not defined at this dimension")

	// ErrBadBinning is returned for malformed binning or grid-sizing
	// parameters: non-positive bin count, inverted range, negative
	// k_min, non-power-of-two grid size.
	ErrBadBinning = errors.New("polyspectra: inconsistent binning parameters")

	// ErrBadLineOfSight is returned for a zero-length or
	// wrong-dimensionality line-of-sight vector.
	ErrBadLineOfSight = errors.New("polyspectra: invalid line-of-sight direction")

	// ErrPrecondition is returned when a method is invoked with a
	// precondition violated, e.g. direct summation without every rank
	// holding the full particle set.
	ErrPrecondition = errors.New("polyspectra: precondition violated")
)
