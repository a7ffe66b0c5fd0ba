package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"HistPull/internal/domain/models"
	domrepo "HistPull/internal/domain/repository"
	"HistPull/pkg/cache"
	xlogger "HistPull/pkg/logger"
)

// HistoricalDataUseCase provides business logic for serving historical candle
// requests: run the aggregation engine, cache the result, and hand the
// candles to the persistence backend.
type HistoricalDataUseCase struct {
	engine    *AggregationEngine
	processor *CandleProcessor
	cache     cache.Service
	cacheTTL  time.Duration
	logger    *xlogger.Logger
}

func NewHistoricalDataUseCase(
	engine *AggregationEngine,
	processor *CandleProcessor,
	c cache.Service,
	cacheTTL time.Duration,
	logger *xlogger.Logger,
) *HistoricalDataUseCase {
	return &HistoricalDataUseCase{
		engine:    engine,
		processor: processor,
		cache:     c,
		cacheTTL:  cacheTTL,
		logger:    logger,
	}
}

type GetHistoricalDataParams struct {
	Start     time.Time
	End       time.Time
	Symbols   []string
	Timeframe domrepo.Timeframe
}

func (uc *HistoricalDataUseCase) GetHistoricalData(ctx context.Context, p GetHistoricalDataParams) (*models.AggregationResult, error) {
	if len(p.Symbols) == 0 {
		return nil, fmt.Errorf("%w: at least one symbol required", domrepo.ErrInvalidRequest)
	}
	if p.Start.After(p.End) {
		return nil, fmt.Errorf("%w: start must be <= end", domrepo.ErrInvalidRequest)
	}

	key := cacheKey(p)
	if uc.cache != nil {
		var cached models.AggregationResult
		if err := uc.cache.Get(ctx, key, &cached); err == nil {
			uc.logger.Debug("historical data served from cache", xlogger.String("key", key))
			return &cached, nil
		}
	}

	res, err := uc.engine.Aggregate(ctx, models.AggregationRequest{
		Start:     p.Start,
		End:       p.End,
		Symbols:   p.Symbols,
		Timeframe: string(p.Timeframe),
	})
	if err != nil {
		return nil, fmt.Errorf("aggregate: %w", err)
	}

	if uc.processor != nil {
		if err := uc.persist(ctx, res); err != nil {
			// Persistence is a side channel; the caller still gets the data.
			uc.logger.Warn("candle persistence failed", xlogger.Error(err))
		}
	}

	if uc.cache != nil && len(res.Warnings) == 0 {
		if err := uc.cache.Set(ctx, key, res, uc.cacheTTL); err != nil {
			uc.logger.Debug("cache set failed", xlogger.Error(err))
		}
	}

	return res, nil
}

func (uc *HistoricalDataUseCase) persist(ctx context.Context, res *models.AggregationResult) error {
	var batch []models.Candle
	for _, candles := range res.Candles {
		batch = append(batch, candles...)
	}
	return uc.processor.ProcessBatch(ctx, batch)
}

// Close releases the persistence backend.
func (uc *HistoricalDataUseCase) Close() {
	if uc.processor != nil {
		uc.processor.Close()
	}
}

func cacheKey(p GetHistoricalDataParams) string {
	syms := make([]string, len(p.Symbols))
	copy(syms, p.Symbols)
	sort.Strings(syms)
	return fmt.Sprintf("histdata:%s:%d:%d:%s",
		p.Timeframe, p.Start.UTC().Unix(), p.End.UTC().Unix(), strings.Join(syms, ","))
}
