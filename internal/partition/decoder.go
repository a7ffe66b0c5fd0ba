package partition

import (
	"fmt"
	"strings"

	domrepo "HistPull/internal/domain/repository"
)

// DecodeError marks a partition file that could not be fully decoded: missing,
// truncated, or not in the expected encoding. A half-decoded partition cannot
// be trusted, so the error carries no partial results.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode partition %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Decoder dispatches to the codec registered for the file suffix. The vendor
// feed ships zstd-compressed binary partitions; parquet partitions come from
// the in-house backfill crawler.
type Decoder struct{}

func NewDecoder() *Decoder { return &Decoder{} }

func (d *Decoder) Open(path string) (domrepo.RecordReader, error) {
	switch {
	case strings.HasSuffix(path, ".dbn.zst"):
		return openDBN(path)
	case strings.HasSuffix(path, ".parquet"):
		return openParquet(path)
	default:
		return nil, &DecodeError{Path: path, Err: fmt.Errorf("unsupported partition encoding")}
	}
}
