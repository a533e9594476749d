// Package render turns prepared price tables into PNG charts. It is
// presentation glue: all numeric work happens in marketdata and tables
// arrive here already aligned and normalized.
package render

import (
	"errors"
	"math"
	"time"

	"github.com/vicanso/go-charts/v2"

	"energydash/internal/marketdata"
)

// NameFunc resolves a ticker to its display name.
type NameFunc func(ticker string) string

// xLabels formats the date axis for a named dashboard window: month/day
// for 1mo, year-month for anything longer.
func xLabels(dates []time.Time, window string) []string {
	var layout string
	switch window {
	case "1mo":
		layout = "01/02"
	case "1y":
		layout = "2006/01"
	case "3y", "5y":
		layout = "2006/01"
	default:
		layout = "2006/01/02"
	}
	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = d.Format(layout)
	}
	return out
}

func splitFor(window string) int {
	switch window {
	case "1mo":
		return 8
	case "1y":
		return 12
	default:
		return 10
	}
}

// percentSeries converts a normalized column (first valid value 1.0) to
// display percent, (v-1)*100. Leading nulls repeat the first valid value
// so the renderer never sees NaN.
func percentSeries(col []float64) []float64 {
	out := make([]float64, len(col))
	first := math.NaN()
	for _, v := range col {
		if !math.IsNaN(v) {
			first = v
			break
		}
	}
	last := first
	for i, v := range col {
		if math.IsNaN(v) {
			v = last
		} else {
			last = v
		}
		if math.IsNaN(v) {
			out[i] = 0
			continue
		}
		out[i] = (v - 1.0) * 100.0
	}
	return out
}

func padRange(values [][]float64) (*float64, *float64) {
	var mn, mx *float64
	for _, series := range values {
		for _, v := range series {
			if mn == nil || v < *mn {
				vv := v
				mn = &vv
			}
			if mx == nil || v > *mx {
				vv := v
				mx = &vv
			}
		}
	}
	if mn == nil || mx == nil {
		return nil, nil
	}
	pad := (*mx - *mn) * 0.05
	if pad == 0 {
		pad = 1
	}
	lo := *mn - pad
	hi := *mx + pad
	return &lo, &hi
}

// TrendChart renders one ticker's normalized trend with the benchmark as
// a grey underlay, the small-multiple cell of the dashboard grid.
func TrendChart(norm *marketdata.PriceTable, ticker, benchmark string, nameOf NameFunc, window string) ([]byte, error) {
	col, ok := norm.Values[ticker]
	if !ok || norm.NumRows() < 2 {
		return nil, marketdata.ErrInsufficientRows
	}
	values := [][]float64{percentSeries(col)}
	names := []string{nameOf(ticker)}
	if bench, ok := norm.Values[benchmark]; ok && benchmark != ticker {
		values = append(values, percentSeries(bench))
		names = append(names, nameOf(benchmark))
	}
	yMin, yMax := padRange(values)

	seriesList := charts.NewSeriesListDataFromValues(values, charts.ChartTypeLine)
	for i := range seriesList {
		seriesList[i].Name = names[i]
	}
	painter, err := charts.Render(charts.ChartOption{SeriesList: seriesList},
		charts.TitleTextOptionFunc(nameOf(ticker), "% change from period start"),
		charts.XAxisOptionFunc(charts.XAxisOption{Data: xLabels(norm.Dates, window), BoundaryGap: charts.FalseFlag(), SplitNumber: splitFor(window)}),
		charts.YAxisOptionFunc(charts.YAxisOption{Min: yMin, Max: yMax, DivideCount: 5}),
		charts.LegendOptionFunc(charts.LegendOption{Data: names}),
		charts.ThemeOptionFunc(charts.ThemeLight),
	)
	if err != nil {
		return nil, err
	}
	return painter.Bytes()
}

// CompareChart renders every column of a normalized table on one axis in
// display percent, benchmark included if present.
func CompareChart(norm *marketdata.PriceTable, nameOf NameFunc, window, title string) ([]byte, error) {
	if norm.IsEmpty() || norm.NumRows() < 2 {
		return nil, marketdata.ErrInsufficientRows
	}
	values := make([][]float64, 0, len(norm.Tickers))
	names := make([]string, 0, len(norm.Tickers))
	for _, tk := range norm.Tickers {
		values = append(values, percentSeries(norm.Values[tk]))
		names = append(names, nameOf(tk))
	}
	yMin, yMax := padRange(values)

	seriesList := charts.NewSeriesListDataFromValues(values, charts.ChartTypeLine)
	for i := range seriesList {
		seriesList[i].Name = names[i]
	}
	painter, err := charts.Render(charts.ChartOption{SeriesList: seriesList},
		charts.TitleTextOptionFunc(title, "% change from period start"),
		charts.XAxisOptionFunc(charts.XAxisOption{Data: xLabels(norm.Dates, window), BoundaryGap: charts.FalseFlag(), SplitNumber: splitFor(window)}),
		charts.YAxisOptionFunc(charts.YAxisOption{Min: yMin, Max: yMax, DivideCount: 5}),
		charts.LegendOptionFunc(charts.LegendOption{Data: names}),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(1000),
		charts.HeightOptionFunc(500),
	)
	if err != nil {
		return nil, err
	}
	return painter.Bytes()
}

// AbsoluteChart renders raw closing prices for a sub-selection of tickers
// on one axis, the "price in yen" comparison view.
func AbsoluteChart(t *marketdata.PriceTable, tickers []string, nameOf NameFunc, window string) ([]byte, error) {
	if t.IsEmpty() || t.NumRows() < 2 {
		return nil, marketdata.ErrInsufficientRows
	}
	filled := marketdata.ForwardFill(t)
	values := make([][]float64, 0, len(tickers))
	names := make([]string, 0, len(tickers))
	for _, tk := range tickers {
		col, ok := filled.Values[tk]
		if !ok {
			continue
		}
		series := make([]float64, len(col))
		last := firstValid(col)
		for i, v := range col {
			if math.IsNaN(v) {
				v = last
			} else {
				last = v
			}
			series[i] = v
		}
		values = append(values, series)
		names = append(names, nameOf(tk))
	}
	if len(values) == 0 {
		return nil, errors.New("no series to plot")
	}
	yMin, yMax := padRange(values)

	seriesList := charts.NewSeriesListDataFromValues(values, charts.ChartTypeLine)
	for i := range seriesList {
		seriesList[i].Name = names[i]
	}
	painter, err := charts.Render(charts.ChartOption{SeriesList: seriesList},
		charts.TitleTextOptionFunc("株価推移"),
		charts.XAxisOptionFunc(charts.XAxisOption{Data: xLabels(t.Dates, window), BoundaryGap: charts.FalseFlag(), SplitNumber: splitFor(window)}),
		charts.YAxisOptionFunc(charts.YAxisOption{Min: yMin, Max: yMax, DivideCount: 5}),
		charts.LegendOptionFunc(charts.LegendOption{Data: names}),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(1000),
		charts.HeightOptionFunc(500),
	)
	if err != nil {
		return nil, err
	}
	return painter.Bytes()
}

// DailyGainBars renders one ticker's per-day percent change as a bar
// chart, fed by marketdata.DailyChangeTable.
func DailyGainBars(change *marketdata.PriceTable, ticker string, nameOf NameFunc) ([]byte, error) {
	col, ok := change.Values[ticker]
	if !ok || change.NumRows() == 0 {
		return nil, marketdata.ErrInsufficientRows
	}
	series := make([]float64, len(col))
	for i, v := range col {
		if math.IsNaN(v) {
			v = 0
		}
		series[i] = v
	}
	painter, err := charts.BarRender([][]float64{series},
		charts.TitleTextOptionFunc(nameOf(ticker), "daily % change"),
		charts.XAxisDataOptionFunc(xLabels(change.Dates, "1mo")),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(1000),
		charts.HeightOptionFunc(400),
	)
	if err != nil {
		return nil, err
	}
	return painter.Bytes()
}

func firstValid(col []float64) float64 {
	for _, v := range col {
		if !math.IsNaN(v) {
			return v
		}
	}
	return math.NaN()
}
