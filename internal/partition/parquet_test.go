package partition

import (
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/parquet-go/parquet-go"
)

func TestParquetRoundTrip(t *testing.T) {
	ts := time.Date(2025, 8, 5, 14, 30, 0, 0, time.UTC)
	rows := []parquetBar{
		{Timestamp: ts.UnixMilli(), Symbol: "NQU5", Open: 20000, High: 20010, Low: 19990, Close: 20005, Volume: 850},
		{Timestamp: ts.Add(time.Minute).UnixMilli(), Symbol: "NQU5", Open: 20005, High: 20020, Low: 20000, Close: 20015, Volume: 430},
	}

	path := filepath.Join(t.TempDir(), "backfill-nq-20250801-20250810.ohlcv-1m.parquet")
	if err := parquet.WriteFile(path, rows); err != nil {
		t.Fatalf("write parquet: %v", err)
	}

	r, err := openParquet(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer r.Close()

	rec, err := r.Next()
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if rec.Instrument != "NQU5" {
		t.Fatalf("instrument %q", rec.Instrument)
	}
	if !rec.Timestamp.Equal(ts) {
		t.Fatalf("timestamp %v, want %v", rec.Timestamp, ts)
	}
	if rec.Open != 20000 || rec.Volume != 850 {
		t.Fatalf("unexpected record %+v", rec)
	}

	if _, err := r.Next(); err != nil {
		t.Fatalf("second record: %v", err)
	}
	if _, err := r.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF, got %v", err)
	}
}

func TestParquetStreamsAcrossBatches(t *testing.T) {
	ts := time.Date(2025, 8, 5, 0, 0, 0, 0, time.UTC)
	total := parquetBatchSize*2 + 17
	rows := make([]parquetBar, total)
	for i := range rows {
		rows[i] = parquetBar{
			Timestamp: ts.Add(time.Duration(i) * time.Second).UnixMilli(),
			Symbol:    "ESU5",
			Open:      5000,
			High:      5001,
			Low:       4999,
			Close:     5000,
			Volume:    int64(i + 1),
		}
	}

	path := filepath.Join(t.TempDir(), "backfill-es-20250805-20250805.ohlcv-1s.parquet")
	if err := parquet.WriteFile(path, rows); err != nil {
		t.Fatalf("write parquet: %v", err)
	}

	r, err := openParquet(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer r.Close()

	for i := 0; i < total; i++ {
		rec, err := r.Next()
		if err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
		if rec.Volume != int64(i+1) {
			t.Fatalf("record %d out of order: volume %d", i, rec.Volume)
		}
	}
	if _, err := r.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF, got %v", err)
	}
}

func TestParquetMissingFile(t *testing.T) {
	_, err := openParquet(filepath.Join(t.TempDir(), "missing.parquet"))
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
}
