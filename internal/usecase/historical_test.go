package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"HistPull/internal/domain/models"
	domrepo "HistPull/internal/domain/repository"
	"HistPull/pkg/cache"
)

func newHistoricalUC(t *testing.T, loc domrepo.PartitionLocator, dec domrepo.PartitionDecoder, c cache.Service) *HistoricalDataUseCase {
	t.Helper()
	engine, _ := newEngine(t, loc, dec, false)
	return NewHistoricalDataUseCase(engine, nil, c, time.Minute, newTestLogger(t))
}

func TestGetHistoricalDataCaches(t *testing.T) {
	d1 := day(2025, 8, 4)
	loc := &fakeLocator{paths: map[string]string{"2025-08-04": "p1"}}
	dec := &fakeDecoder{records: map[string][]models.RawRecord{
		"p1": {bar(d1.Add(time.Hour), "ESZ4", 5000, 10)},
	}}
	mc := cache.NewMemoryCache()
	defer mc.Close()

	uc := newHistoricalUC(t, loc, dec, mc)
	params := GetHistoricalDataParams{Start: d1, End: d1, Symbols: []string{"ES"}, Timeframe: domrepo.TF1m}

	first, err := uc.GetHistoricalData(context.Background(), params)
	if err != nil {
		t.Fatalf("first call: %v", err)
	}

	// Remove the partition; a cache hit must still answer.
	delete(loc.paths, "2025-08-04")

	second, err := uc.GetHistoricalData(context.Background(), params)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if len(second.Candles["ES"]) != len(first.Candles["ES"]) {
		t.Fatalf("cached result differs: %d vs %d", len(second.Candles["ES"]), len(first.Candles["ES"]))
	}
}

func TestGetHistoricalDataSkipsCacheOnWarnings(t *testing.T) {
	d1 := day(2025, 8, 4)
	loc := &fakeLocator{paths: map[string]string{"2025-08-04": "p1"}}
	dec := &fakeDecoder{fail: map[string]error{"p1": errors.New("corrupt frame")}}
	mc := cache.NewMemoryCache()
	defer mc.Close()

	uc := newHistoricalUC(t, loc, dec, mc)
	params := GetHistoricalDataParams{Start: d1, End: d1, Symbols: []string{"ES"}, Timeframe: domrepo.TF1m}

	res, err := uc.GetHistoricalData(context.Background(), params)
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if len(res.Warnings) == 0 {
		t.Fatalf("expected warnings")
	}

	// Repair the partition; the next call must not be served a degraded
	// cached copy.
	dec.fail = nil
	dec.records = map[string][]models.RawRecord{
		"p1": {bar(d1.Add(time.Hour), "ESZ4", 5000, 10)},
	}

	res, err = uc.GetHistoricalData(context.Background(), params)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if len(res.Warnings) != 0 {
		t.Fatalf("degraded result was cached: %v", res.Warnings)
	}
	if len(res.Candles["ES"]) != 1 {
		t.Fatalf("expected repaired data, got %d candles", len(res.Candles["ES"]))
	}
}

func TestGetHistoricalDataValidation(t *testing.T) {
	uc := newHistoricalUC(t, &fakeLocator{}, &fakeDecoder{}, nil)

	_, err := uc.GetHistoricalData(context.Background(), GetHistoricalDataParams{
		Start: day(2025, 8, 4), End: day(2025, 8, 5),
	})
	if !errors.Is(err, domrepo.ErrInvalidRequest) {
		t.Fatalf("empty symbols: got %v", err)
	}

	_, err = uc.GetHistoricalData(context.Background(), GetHistoricalDataParams{
		Start: day(2025, 8, 5), End: day(2025, 8, 4), Symbols: []string{"ES"},
	})
	if !errors.Is(err, domrepo.ErrInvalidRequest) {
		t.Fatalf("inverted range: got %v", err)
	}
}

func TestCacheKeyStableUnderSymbolOrder(t *testing.T) {
	a := cacheKey(GetHistoricalDataParams{
		Start: day(2025, 8, 4), End: day(2025, 8, 5),
		Symbols: []string{"NQ", "ES"}, Timeframe: domrepo.TF1m,
	})
	b := cacheKey(GetHistoricalDataParams{
		Start: day(2025, 8, 4), End: day(2025, 8, 5),
		Symbols: []string{"ES", "NQ"}, Timeframe: domrepo.TF1m,
	})
	if a != b {
		t.Fatalf("cache key depends on symbol order: %q vs %q", a, b)
	}
}
