package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"HistPull/internal/domain/models"
	domrepo "HistPull/internal/domain/repository"
	pkgkafka "HistPull/pkg/kafka"
)

// ClickHouseCandleStore implements CandleStore on ClickHouse. Uniqueness on
// (symbol, timeframe, start_time) is enforced by the table's
// ReplacingMergeTree ordering key (schema created in the DI layer).
type ClickHouseCandleStore struct {
	db    *sql.DB
	table string
}

// NewClickHouseCandleStore creates ClickHouse candle storage.
func NewClickHouseCandleStore(db *sql.DB, table string) domrepo.CandleStore {
	return &ClickHouseCandleStore{db: db, table: table}
}

func (s *ClickHouseCandleStore) Init(ctx context.Context) error {
	return nil // Schema init in pkg
}

func (s *ClickHouseCandleStore) StoreBatch(ctx context.Context, candles []models.Candle) error {
	if len(candles) == 0 {
		return nil
	}
	// Multi-row VALUES insert to reduce round-trips, 2000 rows per chunk.
	const chunkSize = 2000
	for start := 0; start < len(candles); start += chunkSize {
		end := start + chunkSize
		if end > len(candles) {
			end = len(candles)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*8)
		for _, c := range candles[start:end] {
			if c.Symbol == "" || c.StartTime.IsZero() {
				continue
			}
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args,
				c.Symbol,
				c.Timeframe,
				c.StartTime.UTC(),
				c.Open,
				c.High,
				c.Low,
				c.Close,
				c.Volume,
			)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s (symbol, timeframe, start_time, open, high, low, close, volume) VALUES %s",
			s.table, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return err
		}
	}
	return nil
}

func (s *ClickHouseCandleStore) Query(ctx context.Context, symbol string, from, to time.Time, tf domrepo.Timeframe, limit int) ([]models.Candle, error) {
	q := fmt.Sprintf("SELECT symbol, timeframe, start_time, open, high, low, close, volume FROM %s FINAL WHERE symbol = ? AND timeframe = ? AND start_time >= ? AND start_time <= ? ORDER BY start_time ASC LIMIT ?", s.table)
	rows, err := s.db.QueryContext(ctx, q, symbol, string(tf), from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var candles []models.Candle
	for rows.Next() {
		var c models.Candle
		var ts time.Time
		if err := rows.Scan(&c.Symbol, &c.Timeframe, &ts, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, err
		}
		c.StartTime = ts.UTC()
		candles = append(candles, c)
	}
	return candles, rows.Err()
}

func (s *ClickHouseCandleStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseCandleStore) Close() error {
	return nil // Managed by pkg
}

// KafkaCandlePublisher implements CandlePublisher for Kafka.
type KafkaCandlePublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaCandlePublisher creates Kafka candle publisher.
func NewKafkaCandlePublisher(producer *pkgkafka.Producer, topic string) domrepo.CandlePublisher {
	return &KafkaCandlePublisher{producer: producer, topic: topic}
}

func (p *KafkaCandlePublisher) PublishBatch(ctx context.Context, candles []models.Candle) error {
	if len(candles) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, 0, len(candles))
	for _, c := range candles {
		msgs = append(msgs, pkgkafka.Message{
			Key: []byte(c.Symbol),
			Value: map[string]interface{}{
				"symbol":      c.Symbol,
				"market_type": string(domrepo.MarketTypeOf(c.Symbol)),
				"timeframe":   c.Timeframe,
				"start_time":  c.StartTime.UTC().Format(time.RFC3339),
				"open":        c.Open,
				"high":        c.High,
				"low":         c.Low,
				"close":       c.Close,
				"volume":      c.Volume,
			},
		})
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaCandlePublisher) Close() error {
	return p.producer.Close()
}
