package costing

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Summary describes an empirical cost distribution.
type Summary struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	P50    float64 `json:"p50"`
	P80    float64 `json:"p80"`
	P95    float64 `json:"p95"`
}

// Summarize computes moments and interpolated percentiles of samples. The input
// is not modified. An empty input yields the zero Summary.
func Summarize(samples []float64) Summary {
	if len(samples) == 0 {
		return Summary{}
	}

	sorted := make([]float64, len(samples))
	copy(sorted, samples)
	sort.Float64s(sorted)

	s := Summary{
		Count: len(sorted),
		Mean:  stat.Mean(sorted, nil),
		Min:   sorted[0],
		Max:   sorted[len(sorted)-1],
		P50:   Percentile(sorted, 0.50),
		P80:   Percentile(sorted, 0.80),
		P95:   Percentile(sorted, 0.95),
	}
	if len(sorted) > 1 {
		s.StdDev = stat.StdDev(sorted, nil)
	}
	return s
}

// Percentile returns the p-quantile of sorted, which must be in ascending
// order, interpolating linearly between the ranks around (n-1)*p. This is the
// same estimator as numpy's default percentile. An empty input yields NaN.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	h := float64(n-1) * math.Min(math.Max(p, 0), 1)
	lo := int(math.Floor(h))
	if lo >= n-1 {
		return sorted[n-1]
	}
	return sorted[lo] + (h-float64(lo))*(sorted[lo+1]-sorted[lo])
}
