package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"energydash/internal/marketdata"
	"energydash/internal/universe"
)

type stubProvider struct {
	err error
}

func (p *stubProvider) FetchPriceHistory(_ context.Context, tickers []string, _ marketdata.Interval, _ string) (*marketdata.PriceTable, error) {
	if p.err != nil {
		return nil, p.err
	}
	dates := []time.Time{
		time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC),
	}
	t := marketdata.NewPriceTable(dates, tickers)
	for _, tk := range tickers {
		t.Values[tk][0] = 100
		t.Values[tk][1] = 102
	}
	return t, nil
}

func (p *stubProvider) FetchOHLCV(_ context.Context, tickers []string, _ marketdata.Interval, _ string) (*marketdata.OHLCVTable, error) {
	return marketdata.NewOHLCVTable(nil, tickers), nil
}

func (p *stubProvider) FetchFundamentals(_ context.Context, tickers []string) (map[string]marketdata.Fundamentals, error) {
	out := map[string]marketdata.Fundamentals{}
	for _, tk := range tickers {
		out[tk] = marketdata.Fundamentals{}
	}
	return out, nil
}

func testServer(t *testing.T, p marketdata.Provider) *httptest.Server {
	t.Helper()
	svc := marketdata.NewService(p, marketdata.DefaultTTLs(), nil)
	srv := New(svc, nil, nil, nil)
	ts := httptest.NewServer(srv.NewHTTPMux(nil))
	t.Cleanup(ts.Close)
	return ts
}

func TestHealthz(t *testing.T) {
	ts := testServer(t, &stubProvider{})
	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestSectorsEndpoint(t *testing.T) {
	ts := testServer(t, &stubProvider{})
	resp, err := http.Get(ts.URL + "/api/sectors")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var body struct {
		Default   string `json:"default"`
		Benchmark string `json:"benchmark"`
		Sectors   []struct {
			Name   string `json:"name"`
			Stocks []struct {
				Ticker string `json:"ticker"`
			} `json:"stocks"`
		} `json:"sectors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Benchmark != universe.Benchmark {
		t.Fatalf("benchmark = %q", body.Benchmark)
	}
	if len(body.Sectors) != 5 {
		t.Fatalf("sectors = %d", len(body.Sectors))
	}
	if body.Default != body.Sectors[0].Name {
		t.Fatal("default sector mismatch")
	}
}

func TestGainsEndpoint(t *testing.T) {
	ts := testServer(t, &stubProvider{})
	resp, err := http.Get(ts.URL + "/api/gains?tickers=9531.T")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var body struct {
		Tickers []string                       `json:"tickers"`
		Metrics []string                       `json:"metrics"`
		Gains   map[string]map[string]*float64 `json:"gains"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if len(body.Tickers) != 1 || body.Tickers[0] != "9531.T" {
		t.Fatalf("tickers = %v", body.Tickers)
	}
	g, ok := body.Gains["1d"]
	if !ok {
		t.Fatal("1d metric missing")
	}
	if g["9531.T"] == nil || *g["9531.T"] != 2.0 {
		t.Fatalf("1d gain = %v, want 2", g["9531.T"])
	}
}

func TestUnknownSectorIs400(t *testing.T) {
	ts := testServer(t, &stubProvider{})
	resp, err := http.Get(ts.URL + "/api/prices.csv?sector=nope")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestRateLimitBecomes503(t *testing.T) {
	p := &stubProvider{err: fmt.Errorf("throttled: %w", marketdata.ErrRateLimited)}
	ts := testServer(t, p)
	resp, err := http.Get(ts.URL + "/api/gains?tickers=9531.T")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", resp.StatusCode)
	}
	if resp.Header.Get("Retry-After") == "" {
		t.Fatal("Retry-After header missing")
	}
}

func TestCustomGainValidation(t *testing.T) {
	ts := testServer(t, &stubProvider{})
	resp, err := http.Get(ts.URL + "/api/custom-gain?tickers=9531.T&start=junk&end=2025-06-03")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for bad date", resp.StatusCode)
	}
}

func TestCustomGainEndpoint(t *testing.T) {
	ts := testServer(t, &stubProvider{})
	resp, err := http.Get(ts.URL + "/api/custom-gain?tickers=9531.T&start=2025-06-02&end=2025-06-03")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var body struct {
		Gain map[string]*float64 `json:"gain_pct"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Gain["9531.T"] == nil || *body.Gain["9531.T"] != 2.0 {
		t.Fatalf("gain = %v", body.Gain["9531.T"])
	}
}

func TestPricesCSVEndpoint(t *testing.T) {
	ts := testServer(t, &stubProvider{})
	resp, err := http.Get(ts.URL + "/api/prices.csv?tickers=9531.T&window=1mo")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("content type = %q", ct)
	}
}

func TestUsageWithoutStoreIs501(t *testing.T) {
	ts := testServer(t, &stubProvider{})
	resp, err := http.Get(ts.URL + "/api/usage")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotImplemented {
		t.Fatalf("status = %d, want 501", resp.StatusCode)
	}
}
