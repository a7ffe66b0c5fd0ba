package partition

import (
	"errors"
	"io"
	"os"
	"time"

	"github.com/parquet-go/parquet-go"

	"HistPull/internal/domain/models"
)

// parquetBar mirrors the backfill crawler's row convention: short tags,
// millisecond timestamps.
type parquetBar struct {
	Timestamp int64   `parquet:"t"`
	Symbol    string  `parquet:"s"`
	Open      float64 `parquet:"o"`
	High      float64 `parquet:"h"`
	Low       float64 `parquet:"l"`
	Close     float64 `parquet:"c"`
	Volume    int64   `parquet:"v"`
}

const parquetBatchSize = 256

// parquetReader streams rows in fixed-size batches so a large partition
// never has to fit in memory at once.
type parquetReader struct {
	path string
	file *os.File
	rows *parquet.GenericReader[parquetBar]
	buf  []parquetBar
	n    int
	next int
	eof  bool
}

func openParquet(path string) (*parquetReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	rows := parquet.NewGenericReader[parquetBar](f)
	return &parquetReader{
		path: path,
		file: f,
		rows: rows,
		buf:  make([]parquetBar, parquetBatchSize),
	}, nil
}

func (r *parquetReader) fill() error {
	n, err := r.rows.Read(r.buf)
	r.n = n
	r.next = 0
	if err != nil {
		if errors.Is(err, io.EOF) {
			r.eof = true
			if n == 0 {
				return io.EOF
			}
			return nil
		}
		return &DecodeError{Path: r.path, Err: err}
	}
	if n == 0 {
		r.eof = true
		return io.EOF
	}
	return nil
}

func (r *parquetReader) Next() (models.RawRecord, error) {
	if r.next >= r.n {
		if r.eof {
			return models.RawRecord{}, io.EOF
		}
		if err := r.fill(); err != nil {
			return models.RawRecord{}, err
		}
	}
	row := r.buf[r.next]
	r.next++
	return models.RawRecord{
		Timestamp:  time.UnixMilli(row.Timestamp).UTC(),
		Instrument: row.Symbol,
		Open:       row.Open,
		High:       row.High,
		Low:        row.Low,
		Close:      row.Close,
		Volume:     row.Volume,
	}, nil
}

func (r *parquetReader) Close() error {
	err := r.rows.Close()
	if cerr := r.file.Close(); err == nil {
		err = cerr
	}
	return err
}
