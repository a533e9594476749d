package marketdata

import (
	"context"
	"fmt"
	"strings"
)

// Provider fetches historical market data for a set of equity tickers.
// Implementations must honour the empty-set fast path (return an empty
// table without touching the network), classify throttling as
// ErrRateLimited, and keep per-instrument fundamentals failures isolated.
type Provider interface {
	FetchPriceHistory(ctx context.Context, tickers []string, interval Interval, lookback string) (*PriceTable, error)
	FetchOHLCV(ctx context.Context, tickers []string, interval Interval, lookback string) (*OHLCVTable, error)
	FetchFundamentals(ctx context.Context, tickers []string) (map[string]Fundamentals, error)
}

// parseLookback maps a named lookback window ("90d", "6mo", "1y", "3y", ...)
// to the provider range parameter that covers it and the number of calendar
// days to keep after fetching. Providers over-fetch to the next supported
// range and trim, so "3y" works even though the wire protocol only knows
// "2y" and "5y".
func parseLookback(lookback string) (rangeParam string, targetDays int, err error) {
	w := strings.ToLower(strings.TrimSpace(lookback))
	if w == "" {
		return "1y", 365, nil
	}

	var n int
	switch {
	case strings.HasSuffix(w, "mo"):
		if _, err := fmt.Sscanf(strings.TrimSuffix(w, "mo"), "%d", &n); err != nil {
			return "", 0, fmt.Errorf("invalid lookback %q", lookback)
		}
		targetDays = n * 30
		switch {
		case n <= 1:
			rangeParam = "1mo"
		case n <= 3:
			rangeParam = "3mo"
		case n <= 6:
			rangeParam = "6mo"
		case n <= 12:
			rangeParam = "1y"
		case n <= 24:
			rangeParam = "2y"
		default:
			rangeParam = "5y"
		}
		return rangeParam, targetDays, nil

	case strings.HasSuffix(w, "y"):
		if _, err := fmt.Sscanf(strings.TrimSuffix(w, "y"), "%d", &n); err != nil {
			return "", 0, fmt.Errorf("invalid lookback %q", lookback)
		}
		targetDays = n * 365
		switch {
		case n <= 1:
			rangeParam = "1y"
		case n <= 2:
			rangeParam = "2y"
		case n <= 5:
			rangeParam = "5y"
		case n <= 10:
			rangeParam = "10y"
		default:
			rangeParam = "max"
		}
		return rangeParam, targetDays, nil

	case strings.HasSuffix(w, "d"):
		if _, err := fmt.Sscanf(strings.TrimSuffix(w, "d"), "%d", &n); err != nil {
			return "", 0, fmt.Errorf("invalid lookback %q", lookback)
		}
		targetDays = n
		switch {
		case n <= 5:
			rangeParam = "5d"
		case n <= 30:
			rangeParam = "1mo"
		case n <= 90:
			rangeParam = "3mo"
		case n <= 180:
			rangeParam = "6mo"
		case n <= 365:
			rangeParam = "1y"
		default:
			rangeParam = "2y"
		}
		return rangeParam, targetDays, nil
	}
	return "", 0, fmt.Errorf("invalid lookback %q (use formats like 90d, 6mo, 3y)", lookback)
}

// normalizeTickers trims, uppercases where sensible, and deduplicates while
// preserving first-seen order. Index symbols like ^N225 pass through as-is.
func normalizeTickers(tickers []string) []string {
	out := make([]string, 0, len(tickers))
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
		out = append(out, tk)
	}
	return out
}
