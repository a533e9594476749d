// Package server exposes the dashboard over HTTP: JSON for tables, PNG
// for charts, CSV for downloads. Every handler resolves its selection
// from query parameters; the server keeps no per-client state.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"energydash/internal/ai"
	"energydash/internal/export"
	"energydash/internal/marketdata"
	"energydash/internal/render"
	"energydash/internal/storage"
	"energydash/internal/universe"
)

const historyLookback = "3y"

type Server struct {
	svc         *marketdata.Service
	store       *storage.Store
	commentator *ai.Commentator
	log         *zap.Logger
}

func New(svc *marketdata.Service, store *storage.Store, commentator *ai.Commentator, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{svc: svc, store: store, commentator: commentator, log: log}
}

// NewHTTPMux registers every dashboard route. The webhook handler is
// optional; pass nil when the Telegram bot is not configured.
func (s *Server) NewHTTPMux(webhook http.HandlerFunc) *http.ServeMux {
	mux := http.NewServeMux()
	if webhook != nil {
		mux.HandleFunc("/telegram/webhook", webhook)
	}
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(200) })

	mux.HandleFunc("/api/sectors", s.instrument("sectors", s.handleSectors))
	mux.HandleFunc("/api/trend.png", s.instrument("trend", s.handleTrendPNG))
	mux.HandleFunc("/api/compare.png", s.instrument("compare", s.handleComparePNG))
	mux.HandleFunc("/api/absolute.png", s.instrument("absolute", s.handleAbsolutePNG))
	mux.HandleFunc("/api/daily.png", s.instrument("daily", s.handleDailyPNG))
	mux.HandleFunc("/api/gains", s.instrument("gains", s.handleGains))
	mux.HandleFunc("/api/gains.csv", s.instrument("gains_csv", s.handleGainsCSV))
	mux.HandleFunc("/api/custom-gain", s.instrument("custom_gain", s.handleCustomGain))
	mux.HandleFunc("/api/prices.csv", s.instrument("prices_csv", s.handlePricesCSV))
	mux.HandleFunc("/api/ohlcv.csv", s.instrument("ohlcv_csv", s.handleOHLCVCSV))
	mux.HandleFunc("/api/fundamentals", s.instrument("fundamentals", s.handleFundamentals))
	mux.HandleFunc("/api/fundamentals.csv", s.instrument("fundamentals_csv", s.handleFundamentalsCSV))
	mux.HandleFunc("/api/commentary", s.instrument("commentary", s.handleCommentary))
	mux.HandleFunc("/api/usage", s.instrument("usage", s.handleUsage))
	mux.HandleFunc("/api/usage.png", s.instrument("usage_png", s.handleUsagePNG))
	return mux
}

func ListenAndServe(addr string, mux *http.ServeMux) error {
	return http.ListenAndServe(addr, mux)
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// instrument logs each request with a fresh id and records it for usage
// analytics.
func (s *Server) instrument(section string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := uuid.NewString()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next(sw, r)
		dur := time.Since(start)
		s.log.Info("request",
			zap.String("id", id),
			zap.String("section", section),
			zap.String("path", r.URL.Path),
			zap.Int("status", sw.status),
			zap.Duration("duration", dur))
		if s.store != nil {
			rec := storage.RequestRecord{
				ID:       id,
				Section:  section,
				Sector:   r.URL.Query().Get("sector"),
				Tickers:  splitTickers(r.URL.Query().Get("tickers")),
				Status:   sw.status,
				Duration: dur,
				At:       start,
			}
			if err := s.store.RecordRequest(rec); err != nil {
				s.log.Warn("usage record failed", zap.Error(err))
			}
		}
	}
}

func splitTickers(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, strings.ToUpper(p))
		}
	}
	return out
}

// writeErr maps service failures to HTTP. Throttling becomes 503 with a
// retry hint so the client backs off instead of hammering the provider.
func (s *Server) writeErr(w http.ResponseWriter, err error) {
	if errors.Is(err, marketdata.ErrRateLimited) {
		w.Header().Set("Retry-After", "60")
		http.Error(w, "data provider rate limited, retry later", http.StatusServiceUnavailable)
		return
	}
	if errors.Is(err, marketdata.ErrInsufficientRows) {
		http.Error(w, "insufficient data for this window", http.StatusUnprocessableEntity)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(v)
}

func writePNG(w http.ResponseWriter, img []byte) {
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(img)
}

func csvHeaders(w http.ResponseWriter, filename string) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
}

// selection resolves sector/tickers query params. An explicit tickers
// list narrows the sector; with neither, the default sector applies.
func (s *Server) selection(r *http.Request, withBenchmark bool) (marketdata.Selection, error) {
	q := r.URL.Query()
	sector := q.Get("sector")
	tickers := splitTickers(q.Get("tickers"))
	if sector == "" && len(tickers) == 0 {
		sector = universe.DefaultSector()
	}
	if sector != "" && len(tickers) == 0 {
		tickers = universe.Tickers(sector)
		if tickers == nil {
			return marketdata.Selection{}, fmt.Errorf("unknown sector %q", sector)
		}
	}
	sel := marketdata.Selection{Sector: sector, Tickers: tickers}
	if withBenchmark {
		sel.Benchmark = universe.Benchmark
	}
	return sel, nil
}

func windowParam(r *http.Request) string {
	switch w := r.URL.Query().Get("window"); w {
	case "1mo", "1y", "3y":
		return w
	default:
		return "1y"
	}
}

func intervalParam(r *http.Request) marketdata.Interval {
	if r.URL.Query().Get("interval") == "1wk" {
		return marketdata.Weekly
	}
	return marketdata.Daily
}

func windowStart(end time.Time, window string) time.Time {
	switch window {
	case "1mo":
		return end.AddDate(0, -1, 0)
	case "3y":
		return end.AddDate(-3, 0, 0)
	default:
		return end.AddDate(-1, 0, 0)
	}
}

// loadWindow fetches the selection's full history and slices the display
// window off the end.
func (s *Server) loadWindow(r *http.Request, sel marketdata.Selection, window string) (*marketdata.PriceTable, []string, error) {
	table, dropped, err := s.svc.LoadHistory(r.Context(), sel, intervalParam(r), historyLookback)
	if err != nil {
		return nil, nil, err
	}
	end := table.LastDate()
	return marketdata.SliceByWindow(table, windowStart(end, window), end), dropped, nil
}

func (s *Server) handleSectors(w http.ResponseWriter, _ *http.Request) {
	type stockJSON struct {
		Ticker string `json:"ticker"`
		Name   string `json:"name"`
	}
	type sectorJSON struct {
		Name   string      `json:"name"`
		Stocks []stockJSON `json:"stocks"`
	}
	out := struct {
		Default   string       `json:"default"`
		Benchmark string       `json:"benchmark"`
		Sectors   []sectorJSON `json:"sectors"`
	}{Default: universe.DefaultSector(), Benchmark: universe.Benchmark}
	for _, name := range universe.Sectors() {
		sj := sectorJSON{Name: name}
		for _, st := range universe.Stocks(name) {
			sj.Stocks = append(sj.Stocks, stockJSON{Ticker: st.Ticker, Name: st.Name})
		}
		out.Sectors = append(out.Sectors, sj)
	}
	writeJSON(w, out)
}

func (s *Server) handleTrendPNG(w http.ResponseWriter, r *http.Request) {
	ticker := strings.ToUpper(r.URL.Query().Get("ticker"))
	if ticker == "" {
		http.Error(w, "ticker parameter required", http.StatusBadRequest)
		return
	}
	window := windowParam(r)
	sel := marketdata.Selection{Tickers: []string{ticker}, Benchmark: universe.Benchmark}
	win, _, err := s.loadWindow(r, sel, window)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	norm, _ := marketdata.Normalize(win)
	img, err := render.TrendChart(norm, ticker, universe.Benchmark, universe.DisplayName, window)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writePNG(w, img)
}

func (s *Server) handleComparePNG(w http.ResponseWriter, r *http.Request) {
	sel, err := s.selection(r, true)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	window := windowParam(r)
	win, _, err := s.loadWindow(r, sel, window)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	norm, _ := marketdata.Normalize(win)
	title := sel.Sector
	if title == "" {
		title = strings.Join(sel.Tickers, ", ")
	}
	img, err := render.CompareChart(norm, universe.DisplayName, window, title)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writePNG(w, img)
}

func (s *Server) handleAbsolutePNG(w http.ResponseWriter, r *http.Request) {
	sel, err := s.selection(r, false)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	window := windowParam(r)
	win, _, err := s.loadWindow(r, sel, window)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	img, err := render.AbsoluteChart(win, sel.Tickers, universe.DisplayName, window)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writePNG(w, img)
}

func (s *Server) handleDailyPNG(w http.ResponseWriter, r *http.Request) {
	ticker := strings.ToUpper(r.URL.Query().Get("ticker"))
	if ticker == "" {
		http.Error(w, "ticker parameter required", http.StatusBadRequest)
		return
	}
	rows := marketdata.DailyChangeRowsShort
	if r.URL.Query().Get("rows") == strconv.Itoa(marketdata.DailyChangeRowsLong) {
		rows = marketdata.DailyChangeRowsLong
	}
	sel := marketdata.Selection{Tickers: []string{ticker}}
	table, _, err := s.svc.LoadDailyTable(r.Context(), sel, "1y")
	if err != nil {
		s.writeErr(w, err)
		return
	}
	change := marketdata.DailyChangeTable(table, rows)
	img, err := render.DailyGainBars(change, ticker, universe.DisplayName)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writePNG(w, img)
}

func (s *Server) loadGains(r *http.Request) (marketdata.Selection, *marketdata.PriceTable, []string, map[string]marketdata.GainResult, error) {
	sel, err := s.selection(r, false)
	if err != nil {
		return sel, nil, nil, nil, err
	}
	table, dropped, err := s.svc.LoadHistory(r.Context(), sel, marketdata.Daily, historyLookback)
	if err != nil {
		return sel, nil, nil, nil, err
	}
	return sel, table, dropped, s.svc.GainSummary(table, marketdata.GainMetrics), nil
}

func (s *Server) handleGains(w http.ResponseWriter, r *http.Request) {
	_, table, dropped, gains, err := s.loadGains(r)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, struct {
		Tickers []string                         `json:"tickers"`
		Metrics []string                         `json:"metrics"`
		Gains   map[string]marketdata.GainResult `json:"gains"`
		Dropped []string                         `json:"dropped,omitempty"`
	}{Tickers: table.Tickers, Metrics: marketdata.GainMetrics, Gains: gains, Dropped: dropped})
}

func (s *Server) handleGainsCSV(w http.ResponseWriter, r *http.Request) {
	_, table, _, gains, err := s.loadGains(r)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	csvHeaders(w, "gains.csv")
	if err := export.WriteGainSummary(w, table.Tickers, marketdata.GainMetrics, gains); err != nil {
		s.log.Warn("csv write failed", zap.Error(err))
	}
}

func (s *Server) handleCustomGain(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start, err := time.Parse("2006-01-02", q.Get("start"))
	if err != nil {
		http.Error(w, "start parameter must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	end, err := time.Parse("2006-01-02", q.Get("end"))
	if err != nil {
		http.Error(w, "end parameter must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	sel, err := s.selection(r, false)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	table, dropped, err := s.svc.LoadHistory(r.Context(), sel, marketdata.Daily, historyLookback)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, struct {
		Start   string                `json:"start"`
		End     string                `json:"end"`
		Gain    marketdata.GainResult `json:"gain_pct"`
		Dropped []string              `json:"dropped,omitempty"`
	}{Start: q.Get("start"), End: q.Get("end"), Gain: s.svc.CustomGain(table, start, end), Dropped: dropped})
}

func (s *Server) handlePricesCSV(w http.ResponseWriter, r *http.Request) {
	sel, err := s.selection(r, false)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	win, _, err := s.loadWindow(r, sel, windowParam(r))
	if err != nil {
		s.writeErr(w, err)
		return
	}
	csvHeaders(w, "prices.csv")
	if err := export.WritePriceTable(w, win); err != nil {
		s.log.Warn("csv write failed", zap.Error(err))
	}
}

func (s *Server) handleOHLCVCSV(w http.ResponseWriter, r *http.Request) {
	sel, err := s.selection(r, false)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	table, err := s.svc.LoadOHLCV(r.Context(), sel, intervalParam(r), windowParam(r))
	if err != nil {
		s.writeErr(w, err)
		return
	}
	csvHeaders(w, "ohlcv.csv")
	if err := export.WriteOHLCVTable(w, table); err != nil {
		s.log.Warn("csv write failed", zap.Error(err))
	}
}

func (s *Server) handleFundamentals(w http.ResponseWriter, r *http.Request) {
	sel, err := s.selection(r, false)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	recs, err := s.svc.LoadFundamentals(r.Context(), sel.Tickers)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, recs)
}

func (s *Server) handleFundamentalsCSV(w http.ResponseWriter, r *http.Request) {
	sel, err := s.selection(r, false)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	recs, err := s.svc.LoadFundamentals(r.Context(), sel.Tickers)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	csvHeaders(w, "fundamentals.csv")
	if err := export.WriteFundamentals(w, sel.Tickers, recs); err != nil {
		s.log.Warn("csv write failed", zap.Error(err))
	}
}

func (s *Server) handleCommentary(w http.ResponseWriter, r *http.Request) {
	if s.commentator == nil {
		http.Error(w, "commentary is not configured", http.StatusNotImplemented)
		return
	}
	sel, table, _, gains, err := s.loadGains(r)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	lines := ai.FormatGainLines(table.Tickers, marketdata.GainMetrics, gains, universe.DisplayName)
	text, err := s.commentator.Comment(r.Context(), sel.Sector, lines)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, struct {
		Sector     string `json:"sector"`
		Commentary string `json:"commentary"`
	}{Sector: sel.Sector, Commentary: text})
}

func usageDays(r *http.Request) int {
	days := 7
	if v := r.URL.Query().Get("days"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 365 {
			days = n
		}
	}
	return days
}

func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.Error(w, "usage store not configured", http.StatusNotImplemented)
		return
	}
	days := usageDays(r)
	stats, err := s.store.UsageBySection(time.Now().AddDate(0, 0, -days))
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, struct {
		Days     int                    `json:"days"`
		Sections []storage.SectionStats `json:"sections"`
	}{Days: days, Sections: stats})
}

func (s *Server) handleUsagePNG(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.Error(w, "usage store not configured", http.StatusNotImplemented)
		return
	}
	days := usageDays(r)
	since := time.Now().AddDate(0, 0, -days)
	var img []byte
	var err error
	if r.URL.Query().Get("kind") == "timeseries" {
		var series map[string][]storage.TimeSeriesPoint
		if series, err = s.store.UsageTimeSeries(since); err == nil {
			img, err = render.UsageTimeSeries(series, days)
		}
	} else {
		var stats []storage.SectionStats
		if stats, err = s.store.UsageBySection(since); err == nil {
			img, err = render.UsagePie(stats, days)
		}
	}
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writePNG(w, img)
}
