package usecase

import (
	"context"
	"fmt"
	"time"

	"HistPull/internal/domain/models"
	drepo "HistPull/internal/domain/repository"
)

// CandleProcessor routes aggregated candles to the configured durable backend.
type CandleProcessor struct {
	store   drepo.CandleStore
	pub     drepo.CandlePublisher
	metrics drepo.Metrics
	backend string
}

// NewCandleProcessor creates a new CandleProcessor instance.
func NewCandleProcessor(
	store drepo.CandleStore,
	pub drepo.CandlePublisher,
	metrics drepo.Metrics,
	backend string,
) *CandleProcessor {
	return &CandleProcessor{
		store:   store,
		pub:     pub,
		metrics: metrics,
		backend: backend,
	}
}

// ProcessBatch writes candles to the configured backend.
func (p *CandleProcessor) ProcessBatch(ctx context.Context, candles []models.Candle) error {
	if len(candles) == 0 {
		return nil
	}

	start := time.Now()
	var err error

	switch p.backend {
	case "clickhouse":
		err = p.store.StoreBatch(ctx, candles)
	case "kafka":
		err = p.pub.PublishBatch(ctx, candles)
	case "none":
		return nil
	default:
		err = fmt.Errorf("unknown backend: %s", p.backend)
	}

	if err != nil {
		p.metrics.RecordError("persist_batch")
		return fmt.Errorf("persist batch: %w", err)
	}

	p.metrics.RecordLatency("persist_batch", time.Since(start).Seconds())
	return nil
}

// Close closes underlying resources if available.
func (p *CandleProcessor) Close() {
	if p.store != nil {
		_ = p.store.Close()
	}
	if p.pub != nil {
		_ = p.pub.Close()
	}
}
