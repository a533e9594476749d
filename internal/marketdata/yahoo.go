package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

// yahooChartResp mirrors the Yahoo v8 chart response, trimmed to the fields
// we need. Quote arrays use *float64 because Yahoo emits JSON null for
// non-trading prints.
type yahooChartResp struct {
	Chart struct {
		Result []struct {
			Meta struct {
				GmtOffset int    `json:"gmtoffset"`
				Timezone  string `json:"timezone"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// yahooNum is Yahoo's {"raw": 12.3, "fmt": "12.30"} number wrapper.
type yahooNum struct {
	Raw *float64 `json:"raw"`
}

type yahooQuoteSummaryResp struct {
	QuoteSummary struct {
		Result []struct {
			SummaryDetail struct {
				ForwardPE     yahooNum `json:"forwardPE"`
				PriceToSales  yahooNum `json:"priceToSalesTrailing12Months"`
				Beta          yahooNum `json:"beta"`
				DividendYield yahooNum `json:"dividendYield"`
			} `json:"summaryDetail"`
			DefaultKeyStatistics struct {
				PriceToBook yahooNum `json:"priceToBook"`
				TrailingEps yahooNum `json:"trailingEps"`
			} `json:"defaultKeyStatistics"`
			FinancialData struct {
				ReturnOnEquity yahooNum `json:"returnOnEquity"`
				ReturnOnAssets yahooNum `json:"returnOnAssets"`
			} `json:"financialData"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"quoteSummary"`
}

// YahooProvider implements Provider against the public Yahoo Finance API.
// The chart endpoint is per-symbol, so a batched request is a loop that
// joins single-symbol series into one canonical table; downstream code
// never sees the cardinality difference.
type YahooProvider struct {
	client   *http.Client
	baseURLs []string
	pause    time.Duration
	log      *zap.Logger
}

// NewYahooProvider creates a Yahoo Finance provider. proxyURL is optional.
func NewYahooProvider(proxyURL string, log *zap.Logger) *YahooProvider {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &YahooProvider{
		client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		baseURLs: []string{
			"https://query1.finance.yahoo.com",
			"https://query2.finance.yahoo.com",
		},
		pause: 120 * time.Millisecond,
		log:   log,
	}
}

func (p *YahooProvider) get(ctx context.Context, path string) ([]byte, error) {
	var lastErr error
	for _, base := range p.baseURLs {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+path, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15")
		req.Header.Set("Accept", "application/json, text/javascript, */*; q=0.01")

		resp, err := p.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = fmt.Errorf("read yahoo response: %w", readErr)
			continue
		}
		if resp.StatusCode == http.StatusTooManyRequests || strings.HasPrefix(string(body), "Edge: Too Many Requests") {
			// Distinct error kind; never retried here or anywhere upstream.
			return nil, fmt.Errorf("yahoo returned 429: %w", ErrRateLimited)
		}
		if resp.StatusCode != http.StatusOK {
			preview := string(body)
			if len(preview) > 120 {
				preview = preview[:120]
			}
			lastErr = fmt.Errorf("yahoo returned %d: %s", resp.StatusCode, preview)
			continue
		}
		if strings.HasPrefix(string(body), "<") {
			lastErr = fmt.Errorf("yahoo returned non-json body")
			continue
		}
		return body, nil
	}
	return nil, lastErr
}

// chartSeries is one symbol's daily/weekly series keyed by calendar date.
type chartSeries struct {
	closes map[time.Time]float64
	bars   map[time.Time]Bar
}

// fetchChart fetches and decodes one symbol's chart. A response without a
// usable close array is returned as an empty series, not an error.
func (p *YahooProvider) fetchChart(ctx context.Context, symbol string, interval Interval, rangeParam string) (*chartSeries, error) {
	path := fmt.Sprintf("/v8/finance/chart/%s?range=%s&interval=%s&events=div,splits",
		url.PathEscape(symbol), rangeParam, interval)
	body, err := p.get(ctx, path)
	if err != nil {
		return nil, err
	}

	var yc yahooChartResp
	if err := json.Unmarshal(body, &yc); err != nil {
		return nil, fmt.Errorf("parse yahoo json: %w", err)
	}
	if yc.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo api error: %s", yc.Chart.Error.Description)
	}

	series := &chartSeries{
		closes: map[time.Time]float64{},
		bars:   map[time.Time]Bar{},
	}
	if len(yc.Chart.Result) == 0 || len(yc.Chart.Result[0].Indicators.Quote) == 0 {
		return series, nil
	}
	result := yc.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	if len(quote.Close) == 0 {
		return series, nil
	}

	offset := time.Duration(result.Meta.GmtOffset) * time.Second
	for i, ts := range result.Timestamp {
		if i >= len(quote.Close) || quote.Close[i] == nil {
			continue
		}
		// Shift into exchange-local time before truncating so a Tokyo
		// session does not land on the previous UTC day.
		day := time.Unix(ts, 0).UTC().Add(offset).Truncate(24 * time.Hour)
		series.closes[day] = *quote.Close[i]
		series.bars[day] = Bar{
			Open:   deref(quote.Open, i),
			High:   deref(quote.High, i),
			Low:    deref(quote.Low, i),
			Close:  *quote.Close[i],
			Volume: deref(quote.Volume, i),
		}
	}

	// Drop bad prints (negative prices, far outliers) before joining. k is
	// wide enough that a genuine multi-year trend survives.
	series.closes = cleanCloses(series.closes, 5, 30)
	for d := range series.bars {
		if _, ok := series.closes[d]; !ok {
			delete(series.bars, d)
		}
	}
	return series, nil
}

func deref(arr []*float64, i int) float64 {
	if i >= len(arr) || arr[i] == nil {
		return math.NaN()
	}
	return *arr[i]
}

// fetchAll loops the symbols, joining per-symbol series. A rate-limit error
// aborts the whole batch (it is one logical provider call); any other
// per-symbol failure leaves that column empty and is reported downstream as
// a dropped ticker.
func (p *YahooProvider) fetchAll(ctx context.Context, tickers []string, interval Interval, rangeParam string) (map[string]*chartSeries, error) {
	series := make(map[string]*chartSeries, len(tickers))
	for i, tk := range tickers {
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(p.pause):
			}
		}
		s, err := p.fetchChart(ctx, tk, interval, rangeParam)
		if err != nil {
			if isRateLimited(err) {
				return nil, err
			}
			p.log.Warn("price fetch failed", zap.Error(&FetchError{Symbol: tk, Err: err}))
			series[tk] = &chartSeries{closes: map[time.Time]float64{}, bars: map[time.Time]Bar{}}
			continue
		}
		series[tk] = s
	}
	return series, nil
}

// unionDates outer-joins the date sets of all series into one ascending
// unique index.
func unionDates(series map[string]*chartSeries) []time.Time {
	set := map[time.Time]struct{}{}
	for _, s := range series {
		for d := range s.closes {
			set[d] = struct{}{}
		}
	}
	dates := make([]time.Time, 0, len(set))
	for d := range set {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

// trimDates keeps only dates within targetDays of the newest date.
func trimDates(dates []time.Time, targetDays int) []time.Time {
	if len(dates) == 0 || targetDays <= 0 {
		return dates
	}
	cutoff := dates[len(dates)-1].AddDate(0, 0, -targetDays)
	start := 0
	for i, d := range dates {
		if !d.Before(cutoff) {
			start = i
			break
		}
	}
	return dates[start:]
}

// FetchPriceHistory implements Provider.
func (p *YahooProvider) FetchPriceHistory(ctx context.Context, tickers []string, interval Interval, lookback string) (*PriceTable, error) {
	tickers = normalizeTickers(tickers)
	if len(tickers) == 0 {
		return EmptyPriceTable(nil), nil
	}
	rangeParam, targetDays, err := parseLookback(lookback)
	if err != nil {
		return nil, err
	}
	series, err := p.fetchAll(ctx, tickers, interval, rangeParam)
	if err != nil {
		return nil, err
	}

	dates := trimDates(unionDates(series), targetDays)
	table := NewPriceTable(dates, tickers)
	for tk, s := range series {
		col := table.Values[tk]
		for i, d := range dates {
			if v, ok := s.closes[d]; ok {
				col[i] = v
			}
		}
	}
	return table, nil
}

// FetchOHLCV implements Provider.
func (p *YahooProvider) FetchOHLCV(ctx context.Context, tickers []string, interval Interval, lookback string) (*OHLCVTable, error) {
	tickers = normalizeTickers(tickers)
	if len(tickers) == 0 {
		return NewOHLCVTable(nil, nil), nil
	}
	rangeParam, targetDays, err := parseLookback(lookback)
	if err != nil {
		return nil, err
	}
	series, err := p.fetchAll(ctx, tickers, interval, rangeParam)
	if err != nil {
		return nil, err
	}

	dates := trimDates(unionDates(series), targetDays)
	table := NewOHLCVTable(dates, tickers)
	for tk, s := range series {
		col := table.Bars[tk]
		for i, d := range dates {
			if b, ok := s.bars[d]; ok {
				col[i] = b
			}
		}
	}
	return table, nil
}

// FetchFundamentals implements Provider. The quoteSummary endpoint is
// per-instrument; a failure for one ticker yields an all-null record for it
// and the loop continues, except for rate limiting which aborts.
func (p *YahooProvider) FetchFundamentals(ctx context.Context, tickers []string) (map[string]Fundamentals, error) {
	tickers = normalizeTickers(tickers)
	out := make(map[string]Fundamentals, len(tickers))
	for i, tk := range tickers {
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(p.pause):
			}
		}
		rec, err := p.fetchQuoteSummary(ctx, tk)
		if err != nil {
			if isRateLimited(err) {
				return nil, err
			}
			p.log.Warn("fundamentals fetch failed", zap.Error(&FetchError{Symbol: tk, Err: err}))
			out[tk] = Fundamentals{}
			continue
		}
		out[tk] = rec
	}
	return out, nil
}

func (p *YahooProvider) fetchQuoteSummary(ctx context.Context, symbol string) (Fundamentals, error) {
	path := fmt.Sprintf("/v10/finance/quoteSummary/%s?modules=summaryDetail,defaultKeyStatistics,financialData",
		url.PathEscape(symbol))
	body, err := p.get(ctx, path)
	if err != nil {
		return Fundamentals{}, err
	}
	var qs yahooQuoteSummaryResp
	if err := json.Unmarshal(body, &qs); err != nil {
		return Fundamentals{}, fmt.Errorf("parse quoteSummary json: %w", err)
	}
	if qs.QuoteSummary.Error != nil {
		return Fundamentals{}, fmt.Errorf("yahoo api error: %s", qs.QuoteSummary.Error.Description)
	}
	if len(qs.QuoteSummary.Result) == 0 {
		return Fundamentals{}, nil
	}
	r := qs.QuoteSummary.Result[0]
	return Fundamentals{
		ForwardPE:        r.SummaryDetail.ForwardPE.Raw,
		PriceToBook:      r.DefaultKeyStatistics.PriceToBook.Raw,
		TrailingEPS:      r.DefaultKeyStatistics.TrailingEps.Raw,
		ReturnOnEquity:   asPercent(r.FinancialData.ReturnOnEquity.Raw),
		ReturnOnAssets:   asPercent(r.FinancialData.ReturnOnAssets.Raw),
		PriceToSales:     r.SummaryDetail.PriceToSales.Raw,
		Beta:             r.SummaryDetail.Beta.Raw,
		DividendYieldPct: asPercent(r.SummaryDetail.DividendYield.Raw),
	}, nil
}

// asPercent converts a Yahoo fraction (0.153) to a percentage (15.3).
func asPercent(v *float64) *float64 {
	if v == nil {
		return nil
	}
	pct := *v * 100
	return &pct
}

func isRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}
