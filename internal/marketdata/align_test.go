package marketdata

import (
	"math"
	"testing"
	"time"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// tableOf builds a test table; use NaN for missing prints.
func tableOf(dates []time.Time, cols map[string][]float64) *PriceTable {
	tickers := make([]string, 0, len(cols))
	for tk := range cols {
		tickers = append(tickers, tk)
	}
	// deterministic column order
	for i := 0; i < len(tickers); i++ {
		for j := i + 1; j < len(tickers); j++ {
			if tickers[j] < tickers[i] {
				tickers[i], tickers[j] = tickers[j], tickers[i]
			}
		}
	}
	t := NewPriceTable(dates, tickers)
	for tk, vals := range cols {
		copy(t.Values[tk], vals)
	}
	return t
}

var nan = math.NaN()

func TestAlignAndDropEmpty(t *testing.T) {
	dates := []time.Time{day(2025, 6, 2), day(2025, 6, 3)}
	table := tableOf(dates, map[string][]float64{
		"9531.T": {100, 101},
		"9532.T": {nan, nan},
	})

	aligned, dropped := AlignAndDropEmpty(table, []string{"9531.T", "9532.T", "9999.T"})

	if len(aligned.Tickers) != 1 || aligned.Tickers[0] != "9531.T" {
		t.Fatalf("kept = %v, want only 9531.T", aligned.Tickers)
	}
	if aligned.NumRows() != 2 {
		t.Fatalf("rows = %d, want date index preserved", aligned.NumRows())
	}
	want := map[string]bool{"9532.T": true, "9999.T": true}
	if len(dropped) != 2 || !want[dropped[0]] || !want[dropped[1]] {
		t.Fatalf("dropped = %v, want all-null column and absent ticker", dropped)
	}
}

func TestAlignKeepsPartialColumns(t *testing.T) {
	dates := []time.Time{day(2025, 6, 2), day(2025, 6, 3)}
	table := tableOf(dates, map[string][]float64{
		"9531.T": {nan, 101},
	})
	aligned, dropped := AlignAndDropEmpty(table, []string{"9531.T"})
	if len(dropped) != 0 {
		t.Fatalf("dropped = %v, partial column must survive", dropped)
	}
	if !math.IsNaN(aligned.Value("9531.T", 0)) || aligned.Value("9531.T", 1) != 101 {
		t.Fatalf("partial column altered: %v", aligned.Values["9531.T"])
	}
}

func TestSliceByWindowInclusive(t *testing.T) {
	dates := []time.Time{day(2025, 6, 2), day(2025, 6, 3), day(2025, 6, 4), day(2025, 6, 5)}
	table := tableOf(dates, map[string][]float64{"X": {1, 2, 3, 4}})

	win := SliceByWindow(table, day(2025, 6, 3), day(2025, 6, 4))
	if win.NumRows() != 2 {
		t.Fatalf("rows = %d, want 2 (both endpoints inclusive)", win.NumRows())
	}
	if win.Value("X", 0) != 2 || win.Value("X", 1) != 3 {
		t.Fatalf("values = %v", win.Values["X"])
	}
}

func TestSliceByWindowOutsideRange(t *testing.T) {
	dates := []time.Time{day(2025, 6, 2), day(2025, 6, 3)}
	table := tableOf(dates, map[string][]float64{"X": {1, 2}})
	win := SliceByWindow(table, day(2026, 1, 1), day(2026, 2, 1))
	if win.NumRows() != 0 {
		t.Fatalf("rows = %d, want empty slice", win.NumRows())
	}
	if len(win.Tickers) != 1 {
		t.Fatalf("columns must survive an empty slice")
	}
}

func TestForwardFill(t *testing.T) {
	dates := []time.Time{day(2025, 6, 2), day(2025, 6, 3), day(2025, 6, 4)}
	table := tableOf(dates, map[string][]float64{"X": {nan, 100, nan}})

	filled := ForwardFill(table)
	if !math.IsNaN(filled.Value("X", 0)) {
		t.Fatal("leading null must stay null")
	}
	if filled.Value("X", 2) != 100 {
		t.Fatalf("gap not carried forward: %v", filled.Values["X"])
	}
	// input untouched
	if !math.IsNaN(table.Value("X", 2)) {
		t.Fatal("ForwardFill mutated its input")
	}
}

func TestNormalizeFillsGapsBeforeDividing(t *testing.T) {
	dates := []time.Time{day(2025, 6, 2), day(2025, 6, 3), day(2025, 6, 4)}
	table := tableOf(dates, map[string][]float64{"X": {100, nan, 102}})

	norm, excluded := Normalize(table)
	if len(excluded) != 0 {
		t.Fatalf("excluded = %v", excluded)
	}
	want := []float64{1.0, 1.0, 1.02}
	for i, w := range want {
		if got := norm.Value("X", i); math.Abs(got-w) > 1e-9 {
			t.Fatalf("row %d = %v, want %v", i, got, w)
		}
	}
}

func TestNormalizeExcludesUndefinedColumns(t *testing.T) {
	dates := []time.Time{day(2025, 6, 2), day(2025, 6, 3)}
	table := tableOf(dates, map[string][]float64{
		"ZERO": {0, 5},
		"NONE": {nan, nan},
		"OK":   {200, 210},
	})

	norm, excluded := Normalize(table)
	if len(norm.Tickers) != 1 || norm.Tickers[0] != "OK" {
		t.Fatalf("kept = %v, want only OK", norm.Tickers)
	}
	if len(excluded) != 2 {
		t.Fatalf("excluded = %v, want zero-base and all-null columns", excluded)
	}
	if got := norm.Value("OK", 1); math.Abs(got-1.05) > 1e-9 {
		t.Fatalf("OK row 1 = %v, want 1.05", got)
	}
}

func TestNormalizeLeadingNullBaseline(t *testing.T) {
	dates := []time.Time{day(2025, 6, 2), day(2025, 6, 3), day(2025, 6, 4)}
	table := tableOf(dates, map[string][]float64{"X": {nan, 50, 55}})

	norm, _ := Normalize(table)
	// First valid value becomes exactly 1.0 regardless of position.
	if got := norm.Value("X", 1); got != 1.0 {
		t.Fatalf("baseline row = %v, want 1.0", got)
	}
	if got := norm.Value("X", 2); math.Abs(got-1.1) > 1e-9 {
		t.Fatalf("row 2 = %v, want 1.1", got)
	}
}
