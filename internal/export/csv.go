// Package export serializes prepared tables into UTF-8 CSV with a stable
// column order, plain decimal numbers, and two-decimal percentages.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"

	"github.com/shopspring/decimal"

	"energydash/internal/marketdata"
)

const dateLayout = "2006-01-02"

// formatPrice prints a price as a plain decimal (no exponent, no thousands
// separators). Null prints as an empty cell.
func formatPrice(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return decimal.NewFromFloat(v).String()
}

// formatPct prints a nullable percentage to two decimal places.
func formatPct(v *float64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%.2f", *v)
}

// WritePriceTable writes one row per trading date, one column per ticker.
func WritePriceTable(w io.Writer, t *marketdata.PriceTable) error {
	cw := csv.NewWriter(w)
	header := append([]string{"Date"}, t.Tickers...)
	if err := cw.Write(header); err != nil {
		return err
	}
	row := make([]string, len(header))
	for i, d := range t.Dates {
		row[0] = d.Format(dateLayout)
		for j, tk := range t.Tickers {
			row[j+1] = formatPrice(t.Value(tk, i))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteOHLCVTable writes candlestick data in long form, one row per
// (date, ticker) bar. Null bars are skipped entirely.
func WriteOHLCVTable(w io.Writer, t *marketdata.OHLCVTable) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Date", "Ticker", "Open", "High", "Low", "Close", "Volume"}); err != nil {
		return err
	}
	for i, d := range t.Dates {
		for _, tk := range t.Tickers {
			b := t.Bars[tk][i]
			if b.IsNull() {
				continue
			}
			row := []string{
				d.Format(dateLayout),
				tk,
				formatPrice(b.Open),
				formatPrice(b.High),
				formatPrice(b.Low),
				formatPrice(b.Close),
				formatPrice(b.Volume),
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteGainSummary writes one row per ticker with a column per metric, in
// the given orders. Null gains print as empty cells.
func WriteGainSummary(w io.Writer, tickers []string, metrics []string, gains map[string]marketdata.GainResult) error {
	cw := csv.NewWriter(w)
	header := append([]string{"Ticker"}, metrics...)
	if err := cw.Write(header); err != nil {
		return err
	}
	row := make([]string, len(header))
	for _, tk := range tickers {
		row[0] = tk
		for j, m := range metrics {
			var cell string
			if g, ok := gains[m]; ok {
				cell = formatPct(g[tk])
			}
			row[j+1] = cell
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFundamentals writes one row per ticker with the ratio columns in a
// fixed order.
func WriteFundamentals(w io.Writer, tickers []string, recs map[string]marketdata.Fundamentals) error {
	cw := csv.NewWriter(w)
	header := []string{
		"Ticker", "ForwardPE", "PriceToBook", "TrailingEPS",
		"ReturnOnEquityPct", "ReturnOnAssetsPct", "PriceToSales", "Beta", "DividendYieldPct",
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	fmtRatio := func(v *float64) string {
		if v == nil {
			return ""
		}
		return decimal.NewFromFloat(*v).String()
	}
	for _, tk := range tickers {
		r := recs[tk]
		row := []string{
			tk,
			fmtRatio(r.ForwardPE),
			fmtRatio(r.PriceToBook),
			fmtRatio(r.TrailingEPS),
			formatPct(r.ReturnOnEquity),
			formatPct(r.ReturnOnAssets),
			fmtRatio(r.PriceToSales),
			fmtRatio(r.Beta),
			formatPct(r.DividendYieldPct),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
