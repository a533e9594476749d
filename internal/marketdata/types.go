package marketdata

import (
	"math"
	"sort"
	"strings"
	"time"
)

// Interval selects the sampling granularity of a price series.
type Interval string

const (
	Daily  Interval = "1d"
	Weekly Interval = "1wk"
)

// PriceTable is a date-indexed table of closing prices, one column per
// ticker. Dates are ascending, unique calendar days (midnight UTC); a
// missing print is stored as NaN. Tables are treated as immutable once
// returned by the cache; every transformation produces a new table.
type PriceTable struct {
	Dates   []time.Time
	Tickers []string
	Values  map[string][]float64
}

// NewPriceTable allocates a table with the given date index and columns,
// every cell initialised to NaN.
func NewPriceTable(dates []time.Time, tickers []string) *PriceTable {
	t := &PriceTable{
		Dates:   dates,
		Tickers: append([]string(nil), tickers...),
		Values:  make(map[string][]float64, len(tickers)),
	}
	for _, tk := range t.Tickers {
		col := make([]float64, len(dates))
		for i := range col {
			col[i] = math.NaN()
		}
		t.Values[tk] = col
	}
	return t
}

// EmptyPriceTable returns a table with no rows but the requested columns,
// the "temporarily no data" shape callers must tolerate.
func EmptyPriceTable(tickers []string) *PriceTable {
	return NewPriceTable(nil, tickers)
}

// NumRows returns the number of trading dates in the table.
func (t *PriceTable) NumRows() int { return len(t.Dates) }

// IsEmpty reports whether the table has no rows or no columns.
func (t *PriceTable) IsEmpty() bool { return len(t.Dates) == 0 || len(t.Tickers) == 0 }

// Value returns the cell for ticker at row i, NaN if the column is absent.
func (t *PriceTable) Value(ticker string, i int) float64 {
	col, ok := t.Values[ticker]
	if !ok || i < 0 || i >= len(col) {
		return math.NaN()
	}
	return col[i]
}

// Clone returns a deep copy of the table.
func (t *PriceTable) Clone() *PriceTable {
	out := &PriceTable{
		Dates:   append([]time.Time(nil), t.Dates...),
		Tickers: append([]string(nil), t.Tickers...),
		Values:  make(map[string][]float64, len(t.Tickers)),
	}
	for tk, col := range t.Values {
		out.Values[tk] = append([]float64(nil), col...)
	}
	return out
}

// LastDate returns the most recent trading date, zero time if empty.
func (t *PriceTable) LastDate() time.Time {
	if len(t.Dates) == 0 {
		return time.Time{}
	}
	return t.Dates[len(t.Dates)-1]
}

// Bar is one OHLCV print. The five fields are nullable together: a missing
// bar has every field NaN (Volume included).
type Bar struct {
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

func nullBar() Bar {
	n := math.NaN()
	return Bar{Open: n, High: n, Low: n, Close: n, Volume: n}
}

// IsNull reports whether the bar carries no data.
func (b Bar) IsNull() bool { return math.IsNaN(b.Close) }

// OHLCVTable is the candlestick analogue of PriceTable: same date index
// invariants, one Bar per (date, ticker) cell.
type OHLCVTable struct {
	Dates   []time.Time
	Tickers []string
	Bars    map[string][]Bar
}

// NewOHLCVTable allocates a bar table with every cell set to the null bar.
func NewOHLCVTable(dates []time.Time, tickers []string) *OHLCVTable {
	t := &OHLCVTable{
		Dates:   dates,
		Tickers: append([]string(nil), tickers...),
		Bars:    make(map[string][]Bar, len(tickers)),
	}
	for _, tk := range t.Tickers {
		col := make([]Bar, len(dates))
		for i := range col {
			col[i] = nullBar()
		}
		t.Bars[tk] = col
	}
	return t
}

// NumRows returns the number of trading dates in the table.
func (t *OHLCVTable) NumRows() int { return len(t.Dates) }

// IsEmpty reports whether the table has no rows or no columns.
func (t *OHLCVTable) IsEmpty() bool { return len(t.Dates) == 0 || len(t.Tickers) == 0 }

// CloseTable projects the closing prices into a PriceTable so the
// alignment and gain code paths apply to candlestick data too.
func (t *OHLCVTable) CloseTable() *PriceTable {
	out := NewPriceTable(append([]time.Time(nil), t.Dates...), t.Tickers)
	for tk, col := range t.Bars {
		dst := out.Values[tk]
		for i, b := range col {
			dst[i] = b.Close
		}
	}
	return out
}

// Fundamentals is a per-instrument snapshot of valuation ratios. Every
// field is nullable; a failed fetch yields the zero value (all nil).
type Fundamentals struct {
	ForwardPE        *float64 `json:"forward_pe"`
	PriceToBook      *float64 `json:"price_to_book"`
	TrailingEPS      *float64 `json:"trailing_eps"`
	ReturnOnEquity   *float64 `json:"return_on_equity_pct"`
	ReturnOnAssets   *float64 `json:"return_on_assets_pct"`
	PriceToSales     *float64 `json:"price_to_sales"`
	Beta             *float64 `json:"beta"`
	DividendYieldPct *float64 `json:"dividend_yield_pct"`
}

// GainResult maps ticker to a nullable percentage. nil means the gain is
// undefined for that ticker (no baseline, zero baseline, or no data) and
// renders as "-" downstream.
type GainResult map[string]*float64

// CacheKey builds a cache key from a ticker set plus any qualifiers. The
// ticker set is sorted and deduplicated so key identity does not depend on
// selection order; qualifiers (interval, lookback) keep requests with the
// same tickers but different windows on independent entries.
func CacheKey(tickers []string, qualifiers ...string) string {
	set := make([]string, 0, len(tickers))
	seen := map[string]struct{}{}
	for _, tk := range tickers {
		tk = strings.ToUpper(strings.TrimSpace(tk))
		if tk == "" {
			continue
		}
		if _, ok := seen[tk]; ok {
			continue
		}
		seen[tk] = struct{}{}
		set = append(set, tk)
	}
	sort.Strings(set)
	parts := append([]string{strings.Join(set, ",")}, qualifiers...)
	return strings.Join(parts, "|")
}
