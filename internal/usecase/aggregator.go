package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"HistPull/internal/domain/models"
	domrepo "HistPull/internal/domain/repository"
	"HistPull/internal/symbols"
	xlogger "HistPull/pkg/logger"
)

// AggregationEngine walks a requested date range one UTC calendar day at a
// time, locates the partition covering each day, and groups days by partition
// file so a file spanning several requested days is decoded exactly once. Each
// partition's records are resolved into candles bounded to the requested day
// range, then the per-partition maps merge into one result.
//
// Per-partition work runs on a bounded worker pool; merging stays sequential
// in first-covered-day order so the volume-priority rule applies
// deterministically regardless of worker completion order. Nothing is
// returned until the whole range has been processed.
type AggregationEngine struct {
	locator    domrepo.PartitionLocator
	decoder    domrepo.PartitionDecoder
	classifier symbols.Classifier
	metrics    domrepo.Metrics
	logger     *xlogger.Logger
	workers    int
	strict     bool
}

func NewAggregationEngine(
	locator domrepo.PartitionLocator,
	decoder domrepo.PartitionDecoder,
	classifier symbols.Classifier,
	metrics domrepo.Metrics,
	logger *xlogger.Logger,
	workers int,
	strict bool,
) *AggregationEngine {
	if workers <= 0 {
		workers = 4
	}
	return &AggregationEngine{
		locator:    locator,
		decoder:    decoder,
		classifier: classifier,
		metrics:    metrics,
		logger:     logger,
		workers:    workers,
		strict:     strict,
	}
}

// partitionTask is one partition file together with the requested days it
// covers. Built in day order, so task order follows the first covered day.
type partitionTask struct {
	path string
	days []time.Time
}

// taskResult is one worker's isolated contribution. Workers never touch the
// shared accumulator.
type taskResult struct {
	candles map[string]map[time.Time]models.Candle
	warning string
	err     error // set only in strict mode
}

// Aggregate runs one request end to end.
func (e *AggregationEngine) Aggregate(ctx context.Context, req models.AggregationRequest) (*models.AggregationResult, error) {
	if len(req.Symbols) == 0 {
		return nil, fmt.Errorf("%w: symbols must not be empty", domrepo.ErrInvalidRequest)
	}
	if req.Start.After(req.End) {
		return nil, fmt.Errorf("%w: start_time after end_time", domrepo.ErrInvalidRequest)
	}

	start := time.Now()
	tf := domrepo.NormalizeTimeframe(req.Timeframe)
	requested := symbols.NewSet(req.Symbols)
	days := enumerateDays(req.Start, req.End)

	e.logger.Info("aggregation started",
		xlogger.Strings("symbols", req.Symbols),
		xlogger.String("timeframe", string(tf)),
		xlogger.Int("days", len(days)))

	// Map each requested day to its partition and group days sharing a file,
	// so one wide partition is never decoded more than once per request.
	var (
		tasks    []partitionTask
		taskIdx  = make(map[string]int)
		warnings []string
	)
	for _, day := range days {
		if ctx.Err() != nil {
			break
		}

		p, err := e.locator.Locate(day)
		if err != nil {
			if errors.Is(err, domrepo.ErrPartitionNotFound) {
				e.metrics.RecordPartition("missing")
				e.logger.Debug("no partition for day", xlogger.String("day", day.Format("2006-01-02")))
				continue
			}
			e.metrics.RecordError("locate")
			err = fmt.Errorf("locate partition: %w", err)
			e.logger.Warn("day contribution dropped",
				xlogger.String("day", day.Format("2006-01-02")),
				xlogger.Error(err))
			if e.strict {
				return nil, fmt.Errorf("strict mode: %w", err)
			}
			warnings = append(warnings, fmt.Sprintf("%s: %v", day.Format("2006-01-02"), err))
			continue
		}
		e.metrics.RecordPartition("located")

		if i, ok := taskIdx[p.Path]; ok {
			tasks[i].days = append(tasks[i].days, day)
			continue
		}
		taskIdx[p.Path] = len(tasks)
		tasks = append(tasks, partitionTask{path: p.Path, days: []time.Time{day}})
	}

	// Candles resolve only inside the requested day range, whatever else the
	// partition files hold.
	windowStart := days[0]
	windowEnd := days[len(days)-1].AddDate(0, 0, 1)

	results := make([]taskResult, len(tasks))
	sem := make(chan struct{}, e.workers)
	var wg sync.WaitGroup

loop:
	for i, task := range tasks {
		select {
		case <-ctx.Done():
			break loop
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(i int, task partitionTask) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = e.decodePartition(ctx, task, requested, tf, windowStart, windowEnd)
		}(i, task)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("aggregation cancelled: %w", err)
	}

	// Per-symbol ownership established once here; never aliased.
	merged := make(map[string]map[time.Time]models.Candle, len(requested))
	for sym := range requested {
		merged[sym] = make(map[time.Time]models.Candle)
	}

	for _, r := range results {
		if r.err != nil {
			return nil, r.err
		}
		if r.warning != "" {
			warnings = append(warnings, r.warning)
		}
		mergeCandles(merged, r.candles)
	}

	out := &models.AggregationResult{
		Candles:  make(map[string][]models.Candle, len(merged)),
		Warnings: warnings,
	}
	for sym, slot := range merged {
		candles := make([]models.Candle, 0, len(slot))
		for _, c := range slot {
			candles = append(candles, c)
		}
		sort.Slice(candles, func(i, j int) bool { return candles[i].StartTime.Before(candles[j].StartTime) })
		out.Candles[sym] = candles
		e.metrics.RecordCandles(sym, len(candles))
	}

	e.metrics.RecordLatency("aggregate", time.Since(start).Seconds())
	e.logger.Info("aggregation finished",
		xlogger.Int("days", len(days)),
		xlogger.Int("warnings", len(warnings)),
		xlogger.Duration("elapsed", time.Since(start)))
	return out, nil
}

// decodePartition handles one partition file: decode once, resolve bounded to
// the requested day range. A decode failure discards every day the file
// covers and surfaces as a warning (or aborts the request in strict mode).
func (e *AggregationEngine) decodePartition(ctx context.Context, t partitionTask, requested symbols.Set, tf domrepo.Timeframe, from, to time.Time) taskResult {
	if ctx.Err() != nil {
		return taskResult{}
	}

	reader, err := e.decoder.Open(t.path)
	if err != nil {
		e.metrics.RecordError("decode")
		return e.taskFailure(t, err)
	}
	defer reader.Close()

	resolver := NewCandleResolver(e.classifier, tf)
	candles, err := resolver.Resolve(countingReader{reader, e.metrics}, requested, from, to)
	if err != nil {
		e.metrics.RecordError("decode")
		return e.taskFailure(t, err)
	}

	return taskResult{candles: candles}
}

func (e *AggregationEngine) taskFailure(t partitionTask, err error) taskResult {
	days := t.days[0].Format("2006-01-02")
	if len(t.days) > 1 {
		days += ".." + t.days[len(t.days)-1].Format("2006-01-02")
	}
	e.logger.Warn("partition contribution dropped",
		xlogger.String("days", days),
		xlogger.Error(err))
	if e.strict {
		return taskResult{err: fmt.Errorf("strict mode: %w", err)}
	}
	return taskResult{warning: fmt.Sprintf("%s: %v", days, err)}
}

// enumerateDays lists UTC-normalized calendar days from start to end inclusive.
func enumerateDays(start, end time.Time) []time.Time {
	first := truncateToDay(start)
	last := truncateToDay(end)

	var days []time.Time
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

func truncateToDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// countingReader feeds decode throughput into metrics without the resolver
// knowing about them.
type countingReader struct {
	domrepo.RecordReader
	metrics domrepo.Metrics
}

func (c countingReader) Next() (models.RawRecord, error) {
	rec, err := c.RecordReader.Next()
	if err == nil {
		c.metrics.RecordRecordsDecoded(1)
	}
	return rec, err
}
