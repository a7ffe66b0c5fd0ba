package models

import "time"

// Candle is one OHLCV bar for a base symbol, aligned to a timeframe boundary.
// Built only by the candle resolver once a winning raw record is selected;
// immutable afterwards.
type Candle struct {
	Symbol    string
	Timeframe string
	StartTime time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    int64
}

// RawRecord is a single vendor bar as decoded from a partition file.
// Transient: consumed by the resolver, never persisted directly.
type RawRecord struct {
	Timestamp  time.Time
	Instrument string
	Open       float64
	High       float64
	Low        float64
	Close      float64
	Volume     int64
}

// Partition describes one on-disk partition file and the date range it covers
// (inclusive both ends). Derived from the file name, never mutated.
type Partition struct {
	Path  string
	Start time.Time
	End   time.Time
}

// Covers reports whether day falls inside the partition's covered range.
func (p Partition) Covers(day time.Time) bool {
	return !day.Before(p.Start) && !day.After(p.End)
}
