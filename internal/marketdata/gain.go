package marketdata

import (
	"math"
	"time"
)

// pctChange computes (last-base)/base*100 as a nullable percentage. A zero
// or null baseline (and a null last value) resolve to nil, never to an
// error, Inf, or NaN, so downstream formatting can uniformly render "-".
func pctChange(base, last float64) *float64 {
	if math.IsNaN(base) || math.IsNaN(last) || base == 0 {
		return nil
	}
	v := (last - base) / base * 100
	return &v
}

// GainOverNPeriods computes the percentage change between the latest row
// and the row n trading periods earlier. A table shorter than n+1 rows
// degrades to the earliest available row as the baseline ("gain since
// inception of the window") instead of failing. An empty table yields an
// empty result. Columns are forward-filled first so an isolated missing
// print on a boundary row does not spuriously null out the result.
func GainOverNPeriods(t *PriceTable, n int) GainResult {
	out := GainResult{}
	if t.IsEmpty() || n < 0 {
		return out
	}
	filled := ForwardFill(t)
	last := filled.NumRows() - 1
	baseRow := last - n
	if baseRow < 0 {
		baseRow = 0
	}
	for _, tk := range filled.Tickers {
		col := filled.Values[tk]
		base := col[baseRow]
		if math.IsNaN(base) {
			// Leading nulls: fall forward to the column's first print
			// inside the window.
			for i := baseRow + 1; i <= last; i++ {
				if !math.IsNaN(col[i]) {
					base = col[i]
					break
				}
			}
		}
		out[tk] = pctChange(base, col[last])
	}
	return out
}

// GainOverFullWindow computes the gain between the first and last row of
// whatever table is passed, the "gain over selected calendar window"
// semantics. Equivalent to GainOverNPeriods with n = row count - 1.
func GainOverFullWindow(t *PriceTable) GainResult {
	if t.IsEmpty() {
		return GainResult{}
	}
	return GainOverNPeriods(t, t.NumRows()-1)
}

// GainBetweenDates computes the gain between the last known price at or
// before start and at or before end ("as of" semantics: a non-trading day
// falls back to the most recent prior trading day). A ticker with no
// trading day at or before either date yields nil, not zero.
func GainBetweenDates(t *PriceTable, start, end time.Time) GainResult {
	out := GainResult{}
	if t.IsEmpty() {
		return out
	}
	startRow := asOfRow(t.Dates, start)
	endRow := asOfRow(t.Dates, end)
	if startRow < 0 || endRow < 0 {
		for _, tk := range t.Tickers {
			out[tk] = nil
		}
		return out
	}
	filled := ForwardFill(t)
	for _, tk := range filled.Tickers {
		col := filled.Values[tk]
		out[tk] = pctChange(col[startRow], col[endRow])
	}
	return out
}

// asOfRow returns the index of the last date at or before target, -1 when
// every date is after it.
func asOfRow(dates []time.Time, target time.Time) int {
	row := -1
	for i, d := range dates {
		if d.After(target) {
			break
		}
		row = i
	}
	return row
}

// DailyChangeTable derives the row-over-row percent change of the series,
// trimmed to the most recent lastN rows. This feeds the per-day gain bar
// charts and is distinct from the windowed gain calculations. A cell is
// null when its baseline is null or zero.
func DailyChangeTable(t *PriceTable, lastN int) *PriceTable {
	if t.NumRows() < 2 {
		return EmptyPriceTable(t.Tickers)
	}
	filled := ForwardFill(t)
	out := NewPriceTable(append([]time.Time(nil), filled.Dates[1:]...), filled.Tickers)
	for _, tk := range filled.Tickers {
		src := filled.Values[tk]
		dst := out.Values[tk]
		for i := 1; i < len(src); i++ {
			if p := pctChange(src[i-1], src[i]); p != nil {
				dst[i-1] = *p
			}
		}
	}
	if lastN > 0 && out.NumRows() > lastN {
		start := out.NumRows() - lastN
		trimmed := NewPriceTable(append([]time.Time(nil), out.Dates[start:]...), out.Tickers)
		for _, tk := range out.Tickers {
			copy(trimmed.Values[tk], out.Values[tk][start:])
		}
		return trimmed
	}
	return out
}
