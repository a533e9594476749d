package render

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/vicanso/go-charts/v2"

	"energydash/internal/storage"
)

// UsagePie renders the request distribution across dashboard sections.
func UsagePie(stats []storage.SectionStats, days int) ([]byte, error) {
	if len(stats) == 0 {
		return nil, errors.New("no usage data available")
	}
	total := 0
	for _, st := range stats {
		total += st.Count
	}
	values := make([]float64, 0, len(stats))
	labels := make([]string, 0, len(stats))
	for _, st := range stats {
		values = append(values, float64(st.Count))
		pct := float64(st.Count) / float64(total) * 100
		labels = append(labels, fmt.Sprintf("%s (%.1f%%)", st.Section, pct))
	}

	p, err := charts.PieRender(
		values,
		charts.TitleTextOptionFunc(fmt.Sprintf("Request Distribution (%d days)", days)),
		charts.LegendOptionFunc(charts.LegendOption{
			Data: labels,
			Top:  charts.PositionTop,
		}),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(800),
		charts.HeightOptionFunc(600),
	)
	if err != nil {
		return nil, err
	}
	return p.Bytes()
}

// UsageTimeSeries renders per-day request counts per section as lines.
func UsageTimeSeries(series map[string][]storage.TimeSeriesPoint, days int) ([]byte, error) {
	if len(series) == 0 {
		return nil, errors.New("no time series data available")
	}

	daySet := map[time.Time]struct{}{}
	for _, points := range series {
		for _, pt := range points {
			daySet[pt.Day] = struct{}{}
		}
	}
	allDays := make([]time.Time, 0, len(daySet))
	for d := range daySet {
		allDays = append(allDays, d)
	}
	sort.Slice(allDays, func(i, j int) bool { return allDays[i].Before(allDays[j]) })

	xAxisData := make([]string, len(allDays))
	for i, d := range allDays {
		xAxisData[i] = d.Format("01/02")
	}

	sections := make([]string, 0, len(series))
	for s := range series {
		sections = append(sections, s)
	}
	sort.Strings(sections)

	allSeries := make([][]float64, 0, len(sections))
	for _, section := range sections {
		byDay := map[time.Time]int{}
		for _, pt := range series[section] {
			byDay[pt.Day] = pt.Count
		}
		data := make([]float64, len(allDays))
		for i, d := range allDays {
			data[i] = float64(byDay[d])
		}
		allSeries = append(allSeries, data)
	}

	p, err := charts.LineRender(
		allSeries,
		charts.XAxisOptionFunc(charts.XAxisOption{Data: xAxisData}),
		charts.TitleTextOptionFunc(fmt.Sprintf("Requests Over Time (%d days)", days)),
		charts.LegendOptionFunc(charts.LegendOption{
			Data: sections,
			Top:  charts.PositionTop,
		}),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(1000),
		charts.HeightOptionFunc(600),
	)
	if err != nil {
		return nil, err
	}
	return p.Bytes()
}
