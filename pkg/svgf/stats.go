package svgf

import "time"

// Stats describes the most recent Execute call
type Stats struct {
	Frame  uint64 // Number of completed Execute calls since construction
	Width  int
	Height int

	Reprojection       time.Duration
	VarianceEstimation time.Duration
	Atrous             []time.Duration // One entry per pass
	Feedback           time.Duration   // Tap copy and depth caching
	Total              time.Duration
}

// AtrousTotal sums the durations of all à-trous passes
func (s Stats) AtrousTotal() time.Duration {
	var total time.Duration
	for _, d := range s.Atrous {
		total += d
	}
	return total
}

func (s Stats) clone() Stats {
	s.Atrous = append([]time.Duration(nil), s.Atrous...)
	return s
}
