package calculator

import (
	"errors"
	"math"
	"sort"
)

// ErrNoSamples is returned when a statistic is requested over an empty sequence.
var ErrNoSamples = errors.New("no samples provided")

// Percentile returns the p-th percentile (0..100) of sorted values using linear
// interpolation between the two nearest order statistics.
func Percentile(sorted []float64, p float64) (float64, error) {
	if len(sorted) == 0 {
		return 0, ErrNoSamples
	}
	if p < 0 || p > 100 || math.IsNaN(p) {
		return 0, errors.New("percentile must be within [0, 100]")
	}
	pos := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo], nil
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac, nil
}

// SortedFinite returns an ascending copy of values with NaN and Inf removed.
func SortedFinite(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out = append(out, v)
	}
	sort.Float64s(out)
	return out
}
