package render

import (
	"math"
	"testing"
	"time"
)

func TestPercentSeries(t *testing.T) {
	nan := math.NaN()
	got := percentSeries([]float64{nan, 1.0, 1.05, nan, 1.10})
	want := []float64{0, 0, 5, 5, 10}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Fatalf("index %d = %v, want %v", i, got[i], want[i])
		}
	}
	for _, v := range got {
		if math.IsNaN(v) {
			t.Fatal("renderer input must never contain NaN")
		}
	}
}

func TestPadRange(t *testing.T) {
	lo, hi := padRange([][]float64{{-2, 8}, {0, 4}})
	if lo == nil || hi == nil {
		t.Fatal("nil range for non-empty input")
	}
	if *lo >= -2 || *hi <= 8 {
		t.Fatalf("range [%v, %v] must pad beyond the data", *lo, *hi)
	}

	lo, hi = padRange(nil)
	if lo != nil || hi != nil {
		t.Fatal("empty input must yield nil bounds")
	}

	// Flat series still gets a non-zero pad so the axis has height.
	lo, hi = padRange([][]float64{{3, 3, 3}})
	if *hi-*lo <= 0 {
		t.Fatalf("flat range [%v, %v]", *lo, *hi)
	}
}

func TestXLabels(t *testing.T) {
	dates := []time.Time{time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)}
	if got := xLabels(dates, "1mo")[0]; got != "06/02" {
		t.Fatalf("1mo label = %q", got)
	}
	if got := xLabels(dates, "3y")[0]; got != "2025/06" {
		t.Fatalf("3y label = %q", got)
	}
}
