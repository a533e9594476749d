package marketdata

import (
	"errors"
	"fmt"
)

// ErrRateLimited is the distinct error kind for provider throttling. It is
// never swallowed: the cache purges the implicated entry and the caller is
// expected to tell the user to retry later. It is never auto-retried, to
// avoid amplifying load against an already throttled provider.
var ErrRateLimited = errors.New("provider rate limited")

// ErrInsufficientRows marks a table with fewer than two rows after window
// slicing, too short for any chart or gain computation.
var ErrInsufficientRows = errors.New("insufficient rows for window")

// FetchError wraps any non-rate-limit provider failure. It is non-fatal:
// the adapter degrades to an empty table or an all-null record and the
// failure surfaces to the user as a warning, not an abort.
type FetchError struct {
	Symbol string
	Err    error
}

func (e *FetchError) Error() string {
	if e.Symbol == "" {
		return fmt.Sprintf("data fetch failed: %v", e.Err)
	}
	return fmt.Sprintf("data fetch failed for %s: %v", e.Symbol, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
