package marketdata

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"go.uber.org/zap"
)

// AlpacaProvider implements Provider against the Alpaca market-data API
// for US listings. Unlike Yahoo, Alpaca batches symbols natively, so one
// GetMultiBars call covers the whole ticker set. Alpaca has no
// fundamentals endpoint; FetchFundamentals yields all-null records.
type AlpacaProvider struct {
	client *marketdata.Client
	feed   string
	log    *zap.Logger
}

// NewAlpacaProvider creates an Alpaca provider with the given credentials.
// dataURL overrides the default data endpoint when non-empty.
func NewAlpacaProvider(apiKey, apiSecret, dataURL string, log *zap.Logger) *AlpacaProvider {
	opts := marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if dataURL != "" {
		opts.BaseURL = dataURL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &AlpacaProvider{
		client: marketdata.NewClient(opts),
		feed:   "iex",
		log:    log,
	}
}

func alpacaTimeFrame(interval Interval) marketdata.TimeFrame {
	if interval == Weekly {
		return marketdata.NewTimeFrame(1, marketdata.Week)
	}
	return marketdata.OneDay
}

// classifyAlpacaErr maps throttling responses onto the rate-limit kind.
func classifyAlpacaErr(err error) error {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "429") || strings.Contains(msg, "too many requests") {
		return fmt.Errorf("alpaca throttled: %w", ErrRateLimited)
	}
	return err
}

func (p *AlpacaProvider) fetchBars(ctx context.Context, tickers []string, interval Interval, lookback string) (map[string][]marketdata.Bar, []time.Time, error) {
	_, targetDays, err := parseLookback(lookback)
	if err != nil {
		return nil, nil, err
	}
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -targetDays)

	multiBars, err := p.client.GetMultiBars(tickers, marketdata.GetBarsRequest{
		TimeFrame: alpacaTimeFrame(interval),
		Start:     start,
		End:       end,
		Feed:      marketdata.Feed(p.feed),
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		return nil, nil, classifyAlpacaErr(fmt.Errorf("GetMultiBars: %w", err))
	}

	set := map[time.Time]struct{}{}
	for _, bars := range multiBars {
		for _, b := range bars {
			set[b.Timestamp.UTC().Truncate(24*time.Hour)] = struct{}{}
		}
	}
	dates := make([]time.Time, 0, len(set))
	for d := range set {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return multiBars, dates, nil
}

// FetchPriceHistory implements Provider.
func (p *AlpacaProvider) FetchPriceHistory(ctx context.Context, tickers []string, interval Interval, lookback string) (*PriceTable, error) {
	tickers = normalizeTickers(tickers)
	if len(tickers) == 0 {
		return EmptyPriceTable(nil), nil
	}
	multiBars, dates, err := p.fetchBars(ctx, tickers, interval, lookback)
	if err != nil {
		return nil, err
	}

	rowOf := make(map[time.Time]int, len(dates))
	for i, d := range dates {
		rowOf[d] = i
	}
	table := NewPriceTable(dates, tickers)
	for sym, bars := range multiBars {
		col, ok := table.Values[strings.ToUpper(sym)]
		if !ok {
			continue
		}
		for _, b := range bars {
			if i, ok := rowOf[b.Timestamp.UTC().Truncate(24*time.Hour)]; ok {
				col[i] = b.Close
			}
		}
	}
	return table, nil
}

// FetchOHLCV implements Provider.
func (p *AlpacaProvider) FetchOHLCV(ctx context.Context, tickers []string, interval Interval, lookback string) (*OHLCVTable, error) {
	tickers = normalizeTickers(tickers)
	if len(tickers) == 0 {
		return NewOHLCVTable(nil, nil), nil
	}
	multiBars, dates, err := p.fetchBars(ctx, tickers, interval, lookback)
	if err != nil {
		return nil, err
	}

	rowOf := make(map[time.Time]int, len(dates))
	for i, d := range dates {
		rowOf[d] = i
	}
	table := NewOHLCVTable(dates, tickers)
	for sym, bars := range multiBars {
		col, ok := table.Bars[strings.ToUpper(sym)]
		if !ok {
			continue
		}
		for _, b := range bars {
			if i, ok := rowOf[b.Timestamp.UTC().Truncate(24*time.Hour)]; ok {
				col[i] = Bar{
					Open:   b.Open,
					High:   b.High,
					Low:    b.Low,
					Close:  b.Close,
					Volume: float64(b.Volume),
				}
			}
		}
	}
	return table, nil
}

// FetchFundamentals implements Provider. Alpaca exposes no fundamentals;
// every requested instrument gets an all-null record, which the dashboard
// renders as "-" across the ratio table.
func (p *AlpacaProvider) FetchFundamentals(_ context.Context, tickers []string) (map[string]Fundamentals, error) {
	tickers = normalizeTickers(tickers)
	out := make(map[string]Fundamentals, len(tickers))
	for _, tk := range tickers {
		out[tk] = Fundamentals{}
	}
	return out, nil
}
