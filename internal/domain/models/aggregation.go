package models

import "time"

// AggregationRequest describes one historical-data aggregation run.
type AggregationRequest struct {
	Start     time.Time
	End       time.Time
	Symbols   []string
	Timeframe string
}

// AggregationResult maps each requested symbol to its candles ordered by
// start time ascending. Symbols with no data map to an empty slice, never a
// missing key. Warnings carry per-day decode failures so consumers know
// coverage is incomplete.
type AggregationResult struct {
	Candles  map[string][]Candle
	Warnings []string
}

// HistoricalDataRequest is the HTTP query surface for the aggregation endpoint.
type HistoricalDataRequest struct {
	StartTime string   `query:"start_time" json:"start_time" validate:"required"`
	EndTime   string   `query:"end_time" json:"end_time" validate:"required"`
	Symbols   []string `query:"symbols" json:"symbols" validate:"required,min=1,dive,min=1"`
	TF        string   `query:"timeframe" json:"timeframe"`
}

// CandlePoint is the JSON shape of a single candle in API responses.
type CandlePoint struct {
	StartTime time.Time `json:"start_time"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    int64     `json:"volume"`
}

// HistoricalDataResponse is the serialized AggregationResult.
type HistoricalDataResponse struct {
	Symbols   map[string][]CandlePoint `json:"symbols"`
	Timeframe string                   `json:"timeframe"`
	Warnings  []string                 `json:"warnings,omitempty"`
}
