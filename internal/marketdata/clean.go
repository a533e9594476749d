package marketdata

import (
	"sort"
	"time"
)

// cleanCloses drops bad provider prints from a raw close series: negative
// prices and far outliers under the IQR rule. Any point outside
// [Q1 - k*IQR, Q3 + k*IQR] is removed. Short series (< minPoints) and
// series where the filter would eat more than half the points pass
// through untouched.
func cleanCloses(closes map[time.Time]float64, k float64, minPoints int) map[time.Time]float64 {
	out := make(map[time.Time]float64, len(closes))
	for d, v := range closes {
		if v < 0 {
			continue
		}
		out[d] = v
	}
	if len(out) < minPoints {
		return out
	}

	vals := make([]float64, 0, len(out))
	for _, v := range out {
		vals = append(vals, v)
	}
	sort.Float64s(vals)
	q1 := percentile(vals, 0.25)
	q3 := percentile(vals, 0.75)
	iqr := q3 - q1
	if iqr <= 0 {
		return out
	}
	lower := q1 - k*iqr
	upper := q3 + k*iqr

	filtered := make(map[time.Time]float64, len(out))
	for d, v := range out {
		if v < lower || v > upper {
			continue
		}
		filtered[d] = v
	}
	if len(filtered) < minPoints/2 {
		return out
	}
	return filtered
}

func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := p * float64(len(sorted)-1)
	lo := int(pos)
	hi := lo + 1
	if hi >= len(sorted) {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
