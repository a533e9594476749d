package marketdata

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// GainMetrics is the set of named gain windows the dashboard presents, in
// display order.
var GainMetrics = []string{"1d", "5d", "1mo", "3mo", "6mo", "1y", "3y", "5y"}

// Default trimming windows for the per-day gain bar charts.
const (
	DailyChangeRowsShort = 90
	DailyChangeRowsLong  = 180
)

// TTLConfig carries the time-to-live per cache key family.
type TTLConfig struct {
	History      time.Duration
	Daily        time.Duration
	Fundamentals time.Duration
}

// DefaultTTLs returns the documented defaults: 6h for price history and
// fundamentals, 30m for the short-horizon daily table.
func DefaultTTLs() TTLConfig {
	return TTLConfig{
		History:      6 * time.Hour,
		Daily:        30 * time.Minute,
		Fundamentals: 6 * time.Hour,
	}
}

// Selection is the explicit selection state the presentation layer passes
// into every entry point. The service itself is stateless between calls.
type Selection struct {
	Sector    string
	Tickers   []string
	Benchmark string // overlay index symbol, "" to disable
}

// tickerSet returns the deduplicated tickers plus the benchmark.
func (s Selection) tickerSet() []string {
	all := s.Tickers
	if s.Benchmark != "" {
		all = append(append([]string(nil), s.Tickers...), s.Benchmark)
	}
	return normalizeTickers(all)
}

// Service runs the synchronous dashboard pipeline: cache lookup, possible
// provider fetch, alignment, gain computation. One request at a time; there
// is no background refresh and no concurrent fetch for the same session.
type Service struct {
	provider Provider
	ttl      TTLConfig
	history  *Cache[*PriceTable]
	daily    *Cache[*PriceTable]
	ohlcv    *Cache[*OHLCVTable]
	funds    *Cache[map[string]Fundamentals]
	log      *zap.Logger
}

// NewService wires a provider with fresh caches.
func NewService(p Provider, ttl TTLConfig, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		provider: p,
		ttl:      ttl,
		history:  NewCache[*PriceTable](),
		daily:    NewCache[*PriceTable](),
		ohlcv:    NewCache[*OHLCVTable](),
		funds:    NewCache[map[string]Fundamentals](),
		log:      log,
	}
}

// LoadHistory returns the aligned close-price table for the selection plus
// the tickers that came back without any data. A rate-limit error
// propagates (the implicated cache entry is already purged); any other
// fetch failure degrades to an empty table with every ticker reported
// dropped.
func (s *Service) LoadHistory(ctx context.Context, sel Selection, interval Interval, lookback string) (*PriceTable, []string, error) {
	return s.loadInto(ctx, s.history, s.ttl.History, sel, interval, lookback)
}

// LoadDailyTable is LoadHistory for the short-horizon daily series behind
// the per-day gain charts. It lives in its own key family with a much
// shorter TTL.
func (s *Service) LoadDailyTable(ctx context.Context, sel Selection, lookback string) (*PriceTable, []string, error) {
	return s.loadInto(ctx, s.daily, s.ttl.Daily, sel, Daily, lookback)
}

func (s *Service) loadInto(ctx context.Context, cache *Cache[*PriceTable], ttl time.Duration, sel Selection, interval Interval, lookback string) (*PriceTable, []string, error) {
	tickers := sel.tickerSet()
	if len(tickers) == 0 {
		return EmptyPriceTable(nil), nil, nil
	}
	key := CacheKey(tickers, string(interval), lookback)
	table, err := cache.GetOrFetch(key, ttl, func() (*PriceTable, error) {
		return s.provider.FetchPriceHistory(ctx, tickers, interval, lookback)
	})
	if err != nil {
		if errors.Is(err, ErrRateLimited) || errors.Is(err, context.Canceled) {
			return nil, nil, err
		}
		s.log.Warn("price history fetch failed", zap.Strings("tickers", tickers), zap.Error(err))
		return EmptyPriceTable(tickers), tickers, nil
	}
	aligned, dropped := AlignAndDropEmpty(table, tickers)
	return aligned, dropped, nil
}

// LoadOHLCV returns the candlestick table for the selection under the
// history TTL family.
func (s *Service) LoadOHLCV(ctx context.Context, sel Selection, interval Interval, lookback string) (*OHLCVTable, error) {
	tickers := sel.tickerSet()
	if len(tickers) == 0 {
		return NewOHLCVTable(nil, nil), nil
	}
	key := CacheKey(tickers, "ohlcv", string(interval), lookback)
	table, err := s.ohlcv.GetOrFetch(key, s.ttl.History, func() (*OHLCVTable, error) {
		return s.provider.FetchOHLCV(ctx, tickers, interval, lookback)
	})
	if err != nil {
		if errors.Is(err, ErrRateLimited) || errors.Is(err, context.Canceled) {
			return nil, err
		}
		s.log.Warn("ohlcv fetch failed", zap.Strings("tickers", tickers), zap.Error(err))
		return NewOHLCVTable(nil, tickers), nil
	}
	return table, nil
}

// LoadFundamentals returns one record per requested ticker. Instruments
// whose individual fetch failed carry all-null fields; only rate limiting
// aborts the whole call.
func (s *Service) LoadFundamentals(ctx context.Context, tickers []string) (map[string]Fundamentals, error) {
	tickers = normalizeTickers(tickers)
	if len(tickers) == 0 {
		return map[string]Fundamentals{}, nil
	}
	key := CacheKey(tickers, "fundamentals")
	return s.funds.GetOrFetch(key, s.ttl.Fundamentals, func() (map[string]Fundamentals, error) {
		return s.provider.FetchFundamentals(ctx, tickers)
	})
}

// GainSummary computes every requested named metric over the given daily
// table. Unknown metric names are skipped. A window too short to hold two
// rows yields all-null results for that metric rather than an error.
func (s *Service) GainSummary(t *PriceTable, metrics []string) map[string]GainResult {
	out := make(map[string]GainResult, len(metrics))
	for _, m := range metrics {
		if g, ok := metricGain(t, m); ok {
			out[m] = g
		}
	}
	return out
}

// CustomGain computes the gain between two explicit dates with "as of"
// lookup semantics.
func (s *Service) CustomGain(t *PriceTable, start, end time.Time) GainResult {
	return GainBetweenDates(t, start, end)
}

// metricGain resolves one named metric. Trading-period metrics (1d, 5d)
// count rows; calendar metrics slice an anchored window off the end of the
// table and take its full-window gain, which degrades gracefully when the
// table is shorter than the window.
func metricGain(t *PriceTable, metric string) (GainResult, bool) {
	switch metric {
	case "1d":
		return GainOverNPeriods(t, 1), true
	case "5d":
		return GainOverNPeriods(t, 5), true
	}

	end := t.LastDate()
	var start time.Time
	switch metric {
	case "1mo":
		start = end.AddDate(0, -1, 0)
	case "3mo":
		start = end.AddDate(0, -3, 0)
	case "6mo":
		start = end.AddDate(0, -6, 0)
	case "1y":
		start = end.AddDate(-1, 0, 0)
	case "3y":
		start = end.AddDate(-3, 0, 0)
	case "5y":
		start = end.AddDate(-5, 0, 0)
	default:
		return nil, false
	}

	win := SliceByWindow(t, start, end)
	if win.NumRows() < 2 {
		g := GainResult{}
		for _, tk := range t.Tickers {
			g[tk] = nil
		}
		return g, true
	}
	return GainOverFullWindow(win), true
}
