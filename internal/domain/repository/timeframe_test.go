package repository

import (
	"testing"
	"time"
)

func TestNormalizeTimeframe(t *testing.T) {
	if got := NormalizeTimeframe(""); got != TF1m {
		t.Fatalf("empty input = %q, want 1m", got)
	}
	if got := NormalizeTimeframe("5m"); got != TF5m {
		t.Fatalf("5m = %q", got)
	}
	if got := NormalizeTimeframe("3m"); got != TF1m {
		t.Fatalf("unsupported input = %q, want default", got)
	}
}

func TestTimeframeAlign(t *testing.T) {
	ts := time.Date(2025, 8, 5, 14, 37, 42, 123, time.UTC)

	if got := TF1m.Align(ts); !got.Equal(time.Date(2025, 8, 5, 14, 37, 0, 0, time.UTC)) {
		t.Fatalf("1m align = %v", got)
	}
	if got := TF5m.Align(ts); !got.Equal(time.Date(2025, 8, 5, 14, 35, 0, 0, time.UTC)) {
		t.Fatalf("5m align = %v", got)
	}
	if got := TF1d.Align(ts); !got.Equal(time.Date(2025, 8, 5, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("1d align = %v", got)
	}
}

func TestTimeframeAlignNonUTC(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*3600)
	ts := time.Date(2025, 8, 5, 1, 15, 0, 0, loc) // 23:15 previous day UTC

	got := TF1d.Align(ts)
	want := time.Date(2025, 8, 4, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("1d align of zoned time = %v, want %v", got, want)
	}
}

func TestMarketTypeOf(t *testing.T) {
	for _, sym := range []string{"NQ", "ES", "YM", "GC"} {
		if MarketTypeOf(sym) != MarketFutures {
			t.Fatalf("%s should be futures", sym)
		}
	}
	if MarketTypeOf("AAPL") != MarketEquities {
		t.Fatalf("unknown product should fall back to equities")
	}
}
