package universe

import "testing"

func TestSectorsOrder(t *testing.T) {
	got := Sectors()
	if len(got) != 5 {
		t.Fatalf("sectors = %d, want 5", len(got))
	}
	if got[0] != "11資源" || got[4] != "15燃料専門商社" {
		t.Fatalf("order changed: %v", got)
	}
	if DefaultSector() != got[0] {
		t.Fatal("default sector must be the first one")
	}
}

func TestTickers(t *testing.T) {
	power := Tickers("12電力")
	if len(power) != 11 {
		t.Fatalf("12電力 tickers = %d, want 11", len(power))
	}
	if power[0] != "9503.T" {
		t.Fatalf("display order changed: %v", power[0])
	}
	if Tickers("no-such-sector") != nil {
		t.Fatal("unknown sector must return nil")
	}
}

func TestDisplayName(t *testing.T) {
	if got := DisplayName("5020.T"); got != "5020 ＥＮＥＯＳホールディングス" {
		t.Fatalf("got %q", got)
	}
	if got := DisplayName(Benchmark); got != BenchmarkName {
		t.Fatalf("benchmark name = %q", got)
	}
	if got := DisplayName("0000.T"); got != "0000.T" {
		t.Fatalf("unknown ticker must fall back to the code, got %q", got)
	}
}

func TestStocksCopy(t *testing.T) {
	a := Stocks("13ガス")
	if len(a) == 0 {
		t.Fatal("no stocks")
	}
	a[0].Name = "mutated"
	b := Stocks("13ガス")
	if b[0].Name == "mutated" {
		t.Fatal("Stocks must return a copy")
	}
}
