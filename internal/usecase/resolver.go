package usecase

import (
	"errors"
	"io"
	"time"

	"HistPull/internal/domain/models"
	domrepo "HistPull/internal/domain/repository"
	"HistPull/internal/symbols"
)

// CandleResolver folds raw partition records into at most one candle per
// (base symbol, interval start). Conflicting records for the same slot are
// reconciled with volume priority: the record reporting the highest traded
// volume wins, smaller readings are assumed to be partial snapshots. Equal
// volumes keep the first-seen record.
type CandleResolver struct {
	classifier symbols.Classifier
	timeframe  domrepo.Timeframe
}

func NewCandleResolver(classifier symbols.Classifier, tf domrepo.Timeframe) *CandleResolver {
	return &CandleResolver{classifier: classifier, timeframe: tf}
}

// Resolve drains r and returns per-symbol candle maps keyed by interval start.
// Records timestamped outside [from, to) are skipped; a zero bound disables
// that side of the check. A mid-stream decode failure returns the error with
// no partial results.
func (cr *CandleResolver) Resolve(r domrepo.RecordReader, requested symbols.Set, from, to time.Time) (map[string]map[time.Time]models.Candle, error) {
	out := make(map[string]map[time.Time]models.Candle, len(requested))

	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		if !from.IsZero() && rec.Timestamp.Before(from) {
			continue
		}
		if !to.IsZero() && !rec.Timestamp.Before(to) {
			continue
		}

		base, ok := cr.classifier.Classify(rec.Instrument, requested)
		if !ok {
			continue
		}

		ts := cr.timeframe.Align(rec.Timestamp)
		slot := out[base]
		if slot == nil {
			slot = make(map[time.Time]models.Candle)
			out[base] = slot
		}
		if cur, exists := slot[ts]; exists && cur.Volume >= rec.Volume {
			continue
		}
		slot[ts] = models.Candle{
			Symbol:    base,
			Timeframe: string(cr.timeframe),
			StartTime: ts,
			Open:      rec.Open,
			High:      rec.High,
			Low:       rec.Low,
			Close:     rec.Close,
			Volume:    rec.Volume,
		}
	}
	return out, nil
}

// mergeCandles folds src into dst under the same volume-priority rule, so a
// day boundary can never silently overwrite a higher-volume candle resolved
// from an earlier partition.
func mergeCandles(dst, src map[string]map[time.Time]models.Candle) {
	for sym, candles := range src {
		slot := dst[sym]
		if slot == nil {
			slot = make(map[time.Time]models.Candle, len(candles))
			dst[sym] = slot
		}
		for ts, c := range candles {
			if cur, exists := slot[ts]; exists && cur.Volume >= c.Volume {
				continue
			}
			slot[ts] = c
		}
	}
}
