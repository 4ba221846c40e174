package svgf

import "errors"

var (
	ErrInvalidResolution  = errors.New("svgf: invalid resolution")
	ErrAllocation         = errors.New("svgf: buffer allocation failed")
	ErrResolutionMismatch = errors.New("svgf: input resolution does not match pipeline")
	ErrChannelMismatch    = errors.New("svgf: input has too few channels")
	ErrMissingInput       = errors.New("svgf: missing input")
	ErrClosed             = errors.New("svgf: pipeline closed")
)
