package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"HistPull/internal/domain/models"
	domrepo "HistPull/internal/domain/repository"
	"HistPull/internal/symbols"
	xlogger "HistPull/pkg/logger"
)

func newTestClassifier() symbols.Classifier {
	return symbols.NewPrefixClassifier()
}

func newTestLogger(t *testing.T) *xlogger.Logger {
	t.Helper()
	l, err := xlogger.New(&xlogger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

type fakeMetrics struct {
	mu         sync.Mutex
	partitions map[string]int
	errors     map[string]int
	decoded    int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{partitions: make(map[string]int), errors: make(map[string]int)}
}

func (m *fakeMetrics) RecordPartition(outcome string) {
	m.mu.Lock()
	m.partitions[outcome]++
	m.mu.Unlock()
}

func (m *fakeMetrics) RecordRecordsDecoded(n int) {
	m.mu.Lock()
	m.decoded += n
	m.mu.Unlock()
}

func (m *fakeMetrics) RecordCandles(string, int) {}

func (m *fakeMetrics) RecordError(kind string) {
	m.mu.Lock()
	m.errors[kind]++
	m.mu.Unlock()
}

func (m *fakeMetrics) RecordLatency(string, float64) {}

// fakeLocator maps YYYY-MM-DD to a partition path.
type fakeLocator struct {
	paths map[string]string
}

func (l *fakeLocator) Locate(date time.Time) (models.Partition, error) {
	day := date.UTC().Format("2006-01-02")
	path, ok := l.paths[day]
	if !ok {
		return models.Partition{}, fmt.Errorf("%w: %s", domrepo.ErrPartitionNotFound, day)
	}
	return models.Partition{Path: path}, nil
}

// fakeDecoder maps a partition path to its records, or an open error, and
// counts opens per path.
type fakeDecoder struct {
	mu      sync.Mutex
	opens   map[string]int
	records map[string][]models.RawRecord
	fail    map[string]error
}

func (d *fakeDecoder) Open(path string) (domrepo.RecordReader, error) {
	d.mu.Lock()
	if d.opens == nil {
		d.opens = make(map[string]int)
	}
	d.opens[path]++
	d.mu.Unlock()

	if err, ok := d.fail[path]; ok {
		return nil, err
	}
	return &sliceReader{records: d.records[path]}, nil
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newEngine(t *testing.T, loc domrepo.PartitionLocator, dec domrepo.PartitionDecoder, strict bool) (*AggregationEngine, *fakeMetrics) {
	t.Helper()
	m := newFakeMetrics()
	e := NewAggregationEngine(loc, dec, newTestClassifier(), m, newTestLogger(t), 2, strict)
	return e, m
}

func TestAggregateMultiDay(t *testing.T) {
	d1 := day(2025, 8, 4)
	d2 := day(2025, 8, 5)
	loc := &fakeLocator{paths: map[string]string{
		"2025-08-04": "p1",
		"2025-08-05": "p2",
	}}
	dec := &fakeDecoder{records: map[string][]models.RawRecord{
		"p1": {
			bar(d1.Add(14*time.Hour), "ESZ4", 5000, 100),
			bar(d1.Add(14*time.Hour+time.Minute), "ESZ4", 5001, 90),
		},
		"p2": {
			bar(d2.Add(15*time.Hour), "ESZ4", 5010, 70),
			bar(d2.Add(15*time.Hour), "NQU5", 20000, 30),
		},
	}}

	e, m := newEngine(t, loc, dec, false)
	res, err := e.Aggregate(context.Background(), models.AggregationRequest{
		Start:   d1,
		End:     d2,
		Symbols: []string{"ES", "NQ"},
	})
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}

	if len(res.Warnings) != 0 {
		t.Fatalf("unexpected warnings %v", res.Warnings)
	}
	if got := len(res.Candles["ES"]); got != 3 {
		t.Fatalf("ES candles = %d, want 3", got)
	}
	if got := len(res.Candles["NQ"]); got != 1 {
		t.Fatalf("NQ candles = %d, want 1", got)
	}

	// Ascending start time per symbol.
	es := res.Candles["ES"]
	for i := 1; i < len(es); i++ {
		if !es[i-1].StartTime.Before(es[i].StartTime) {
			t.Fatalf("candles out of order at %d", i)
		}
	}

	if m.partitions["located"] != 2 {
		t.Fatalf("located = %d, want 2", m.partitions["located"])
	}
	if m.decoded != 4 {
		t.Fatalf("decoded = %d, want 4", m.decoded)
	}
}

func TestAggregateSharedPartitionDecodesOnce(t *testing.T) {
	d1 := day(2025, 8, 4)
	d2 := day(2025, 8, 5)
	// One month-wide file covers both requested days, the vendor's usual
	// layout. It also holds a bar weeks past the request.
	loc := &fakeLocator{paths: map[string]string{
		"2025-08-04": "wide",
		"2025-08-05": "wide",
	}}
	dec := &fakeDecoder{records: map[string][]models.RawRecord{
		"wide": {
			bar(d1.Add(14*time.Hour), "ESZ4", 5000, 100),
			bar(d2.Add(15*time.Hour), "ESZ4", 5005, 80),
			bar(day(2025, 8, 20).Add(14*time.Hour), "ESZ4", 5100, 60),
		},
	}}

	e, m := newEngine(t, loc, dec, false)
	res, err := e.Aggregate(context.Background(), models.AggregationRequest{
		Start:   d1,
		End:     d2,
		Symbols: []string{"ES"},
	})
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}

	if dec.opens["wide"] != 1 {
		t.Fatalf("shared partition opened %d times, want 1", dec.opens["wide"])
	}
	if m.decoded != 3 {
		t.Fatalf("decoded = %d, want one pass over the file", m.decoded)
	}

	es := res.Candles["ES"]
	if len(es) != 2 {
		t.Fatalf("ES candles = %d, want only the requested days", len(es))
	}
	limit := d2.AddDate(0, 0, 1)
	for _, c := range es {
		if !c.StartTime.Before(limit) {
			t.Fatalf("candle at %v falls outside the requested range", c.StartTime)
		}
	}
}

func TestAggregateMissingPartitionDay(t *testing.T) {
	d1 := day(2025, 8, 4)
	d3 := day(2025, 8, 6)
	loc := &fakeLocator{paths: map[string]string{
		"2025-08-04": "p1",
		"2025-08-06": "p3",
	}}
	dec := &fakeDecoder{records: map[string][]models.RawRecord{
		"p1": {bar(d1.Add(time.Hour), "ESZ4", 5000, 10)},
		"p3": {bar(d3.Add(time.Hour), "ESZ4", 5002, 20)},
	}}

	e, m := newEngine(t, loc, dec, false)
	res, err := e.Aggregate(context.Background(), models.AggregationRequest{
		Start:   d1,
		End:     d3,
		Symbols: []string{"ES"},
	})
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}

	// Missing day contributes nothing and raises no warning.
	if len(res.Warnings) != 0 {
		t.Fatalf("missing partition must not warn, got %v", res.Warnings)
	}
	if got := len(res.Candles["ES"]); got != 2 {
		t.Fatalf("ES candles = %d, want 2", got)
	}
	if m.partitions["missing"] != 1 {
		t.Fatalf("missing = %d, want 1", m.partitions["missing"])
	}
}

func TestAggregateDecodeFailureWarns(t *testing.T) {
	d1 := day(2025, 8, 4)
	d2 := day(2025, 8, 5)
	decodeErr := errors.New("corrupt frame")
	loc := &fakeLocator{paths: map[string]string{
		"2025-08-04": "p1",
		"2025-08-05": "p2",
	}}
	dec := &fakeDecoder{
		records: map[string][]models.RawRecord{
			"p1": {bar(d1.Add(time.Hour), "ESZ4", 5000, 10)},
		},
		fail: map[string]error{"p2": decodeErr},
	}

	e, _ := newEngine(t, loc, dec, false)
	res, err := e.Aggregate(context.Background(), models.AggregationRequest{
		Start:   d1,
		End:     d2,
		Symbols: []string{"ES"},
	})
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}

	if len(res.Warnings) != 1 {
		t.Fatalf("warnings = %v, want one entry", res.Warnings)
	}
	if !strings.Contains(res.Warnings[0], "2025-08-05") {
		t.Fatalf("warning must name the day: %q", res.Warnings[0])
	}
	if got := len(res.Candles["ES"]); got != 1 {
		t.Fatalf("healthy day must still contribute, got %d candles", got)
	}
}

func TestAggregateStrictAborts(t *testing.T) {
	d1 := day(2025, 8, 4)
	decodeErr := errors.New("corrupt frame")
	loc := &fakeLocator{paths: map[string]string{"2025-08-04": "p1"}}
	dec := &fakeDecoder{fail: map[string]error{"p1": decodeErr}}

	e, _ := newEngine(t, loc, dec, true)
	_, err := e.Aggregate(context.Background(), models.AggregationRequest{
		Start:   d1,
		End:     d1,
		Symbols: []string{"ES"},
	})
	if !errors.Is(err, decodeErr) {
		t.Fatalf("strict mode must surface the decode error, got %v", err)
	}
}

func TestAggregateEmptySymbolForRequestedButAbsent(t *testing.T) {
	d1 := day(2025, 8, 4)
	loc := &fakeLocator{paths: map[string]string{"2025-08-04": "p1"}}
	dec := &fakeDecoder{records: map[string][]models.RawRecord{
		"p1": {bar(d1.Add(time.Hour), "ESZ4", 5000, 10)},
	}}

	e, _ := newEngine(t, loc, dec, false)
	res, err := e.Aggregate(context.Background(), models.AggregationRequest{
		Start:   d1,
		End:     d1,
		Symbols: []string{"ES", "GC"},
	})
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}

	gc, ok := res.Candles["GC"]
	if !ok {
		t.Fatalf("requested symbol must be present in the result")
	}
	if len(gc) != 0 {
		t.Fatalf("absent symbol must map to an empty slice")
	}
}

func TestAggregateInvalidRequest(t *testing.T) {
	e, _ := newEngine(t, &fakeLocator{}, &fakeDecoder{}, false)

	_, err := e.Aggregate(context.Background(), models.AggregationRequest{
		Start: day(2025, 8, 4), End: day(2025, 8, 5),
	})
	if !errors.Is(err, domrepo.ErrInvalidRequest) {
		t.Fatalf("empty symbols: got %v", err)
	}

	_, err = e.Aggregate(context.Background(), models.AggregationRequest{
		Start: day(2025, 8, 5), End: day(2025, 8, 4), Symbols: []string{"ES"},
	})
	if !errors.Is(err, domrepo.ErrInvalidRequest) {
		t.Fatalf("inverted range: got %v", err)
	}
}

func TestAggregateCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	loc := &fakeLocator{paths: map[string]string{"2025-08-04": "p1"}}
	dec := &fakeDecoder{}
	e, _ := newEngine(t, loc, dec, false)

	_, err := e.Aggregate(ctx, models.AggregationRequest{
		Start: day(2025, 8, 4), End: day(2025, 8, 10), Symbols: []string{"ES"},
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestAggregateIdempotent(t *testing.T) {
	d1 := day(2025, 8, 4)
	loc := &fakeLocator{paths: map[string]string{"2025-08-04": "p1"}}
	dec := &fakeDecoder{records: map[string][]models.RawRecord{
		"p1": {
			bar(d1.Add(time.Hour), "ESZ4", 5000, 10),
			bar(d1.Add(time.Hour+time.Second), "ESZ4", 5001, 90),
			bar(d1.Add(2*time.Hour), "ESZ4", 5005, 40),
		},
	}}

	e, _ := newEngine(t, loc, dec, false)
	req := models.AggregationRequest{Start: d1, End: d1, Symbols: []string{"ES"}}

	first, err := e.Aggregate(context.Background(), req)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := e.Aggregate(context.Background(), req)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	a, b := first.Candles["ES"], second.Candles["ES"]
	if len(a) != len(b) {
		t.Fatalf("runs disagree on candle count: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("runs disagree at %d: %+v vs %+v", i, a[i], b[i])
		}
	}
}
