package repository

import (
	"context"
	"errors"
	"time"

	"HistPull/internal/domain/models"
)

// ErrPartitionNotFound is returned by PartitionLocator when no on-disk file
// covers the requested date. Recoverable: the engine skips the day.
var ErrPartitionNotFound = errors.New("no partition covers date")

// ErrInvalidRequest marks a malformed aggregation request (empty symbol set,
// inverted date range). Rejected before any I/O.
var ErrInvalidRequest = errors.New("invalid aggregation request")

// PartitionLocator resolves a calendar day to the partition file covering it.
type PartitionLocator interface {
	Locate(date time.Time) (models.Partition, error)
}

// RecordReader is a forward-only, single-pass stream of raw records from one
// opened partition. Next returns io.EOF after the last record. A reader is not
// restartable; re-open the partition for a fresh pass.
type RecordReader interface {
	Next() (models.RawRecord, error)
	Close() error
}

// PartitionDecoder opens a partition file and streams its records.
type PartitionDecoder interface {
	Open(path string) (RecordReader, error)
}

// CandleStore persists aggregated candles. Implementations must enforce
// uniqueness on (symbol, timeframe, start_time).
type CandleStore interface {
	Init(ctx context.Context) error
	StoreBatch(ctx context.Context, candles []models.Candle) error
	Query(ctx context.Context, symbol string, from, to time.Time, tf Timeframe, limit int) ([]models.Candle, error)
	Health(ctx context.Context) error
	Close() error
}

// CandlePublisher fans aggregated candles out to downstream consumers.
type CandlePublisher interface {
	PublishBatch(ctx context.Context, candles []models.Candle) error
	Close() error
}

type Metrics interface {
	RecordPartition(outcome string) // "located" or "missing"
	RecordRecordsDecoded(n int)
	RecordCandles(symbol string, n int)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
