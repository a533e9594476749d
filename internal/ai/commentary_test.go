package ai

import (
	"testing"

	"energydash/internal/marketdata"
)

func TestFormatGainLines(t *testing.T) {
	up := 2.5
	down := -1.0
	gains := map[string]marketdata.GainResult{
		"1d": {"A": &up, "B": nil},
		"1y": {"A": &down},
	}
	nameOf := func(tk string) string { return "name-" + tk }

	lines := FormatGainLines([]string{"A", "B"}, []string{"1d", "1y"}, gains, nameOf)
	if len(lines) != 2 {
		t.Fatalf("lines = %d", len(lines))
	}
	if lines[0] != "name-A: 1d +2.50%, 1y -1.00%" {
		t.Fatalf("line A = %q", lines[0])
	}
	if lines[1] != "name-B: 1d -, 1y -" {
		t.Fatalf("line B = %q, null gains must render as -", lines[1])
	}
}
