package marketdata

import (
	"math"
	"time"
)

// AlignAndDropEmpty removes columns that are entirely null and reports
// them, so the caller can warn the user which requested tickers came back
// without data. Requested tickers missing from the table altogether are
// reported too. Columns with partial nulls are kept as-is; gap filling is
// the caller's concern.
func AlignAndDropEmpty(t *PriceTable, requested []string) (*PriceTable, []string) {
	var dropped []string
	kept := make([]string, 0, len(t.Tickers))

	present := map[string]struct{}{}
	for _, tk := range t.Tickers {
		present[tk] = struct{}{}
		if columnAllNull(t.Values[tk]) {
			dropped = append(dropped, tk)
			continue
		}
		kept = append(kept, tk)
	}
	for _, tk := range normalizeTickers(requested) {
		if _, ok := present[tk]; !ok {
			dropped = append(dropped, tk)
		}
	}

	out := NewPriceTable(append([]time.Time(nil), t.Dates...), kept)
	for _, tk := range kept {
		copy(out.Values[tk], t.Values[tk])
	}
	return out, dropped
}

func columnAllNull(col []float64) bool {
	for _, v := range col {
		if !math.IsNaN(v) {
			return false
		}
	}
	return true
}

// SliceByWindow returns the rows with start <= date <= end (inclusive on
// both sides). Callers must check NumRows() >= 2 before feeding the result
// to a chart or gain computation.
func SliceByWindow(t *PriceTable, start, end time.Time) *PriceTable {
	lo, hi := 0, len(t.Dates)
	for lo < hi && t.Dates[lo].Before(start) {
		lo++
	}
	for hi > lo && t.Dates[hi-1].After(end) {
		hi--
	}

	out := NewPriceTable(append([]time.Time(nil), t.Dates[lo:hi]...), t.Tickers)
	for _, tk := range t.Tickers {
		copy(out.Values[tk], t.Values[tk][lo:hi])
	}
	return out
}

// ForwardFill carries each column's last observed value over null prints.
// Nulls before a column's first observation remain null.
func ForwardFill(t *PriceTable) *PriceTable {
	out := t.Clone()
	for _, tk := range out.Tickers {
		col := out.Values[tk]
		last := math.NaN()
		for i, v := range col {
			if math.IsNaN(v) {
				col[i] = last
			} else {
				last = v
			}
		}
	}
	return out
}

// Normalize rescales every column so its first non-null value becomes
// exactly 1.0, the basis for "percent change from period start" charting
// (display value is (v-1)*100). Gaps are forward-filled first so a null
// print repeats the prior normalized value. Columns with no valid value at
// all cannot be normalized and are returned in the second value.
func Normalize(t *PriceTable) (*PriceTable, []string) {
	filled := ForwardFill(t)

	firstValid := func(col []float64) float64 {
		for _, v := range col {
			if !math.IsNaN(v) {
				return v
			}
		}
		return math.NaN()
	}

	var excluded []string
	kept := make([]string, 0, len(filled.Tickers))
	for _, tk := range filled.Tickers {
		base := firstValid(filled.Values[tk])
		// A zero base would make the whole column undefined, same as no
		// data at all.
		if math.IsNaN(base) || base == 0 {
			excluded = append(excluded, tk)
			continue
		}
		kept = append(kept, tk)
	}

	out := NewPriceTable(append([]time.Time(nil), filled.Dates...), kept)
	for _, tk := range kept {
		src := filled.Values[tk]
		dst := out.Values[tk]
		base := firstValid(src)
		for i, v := range src {
			if math.IsNaN(v) {
				continue
			}
			dst[i] = v / base
		}
	}
	return out, excluded
}
