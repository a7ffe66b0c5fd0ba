package partition

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/klauspost/compress/zstd"

	"HistPull/internal/domain/models"
)

// The vendor binary layout: a zstd stream of fixed 64-byte little-endian
// records.
//
//	offset  size  field
//	0       8     event timestamp, unix nanoseconds
//	8       16    instrument code, NUL-padded ASCII
//	24      8     open,  fixed-point 1e-9
//	32      8     high,  fixed-point 1e-9
//	40      8     low,   fixed-point 1e-9
//	48      8     close, fixed-point 1e-9
//	56      8     volume, unsigned
const (
	dbnRecordSize = 64
	priceScale    = 1e-9
)

type dbnReader struct {
	path string
	f    *os.File
	zr   *zstd.Decoder
	buf  [dbnRecordSize]byte
}

func openDBN(path string) (*dbnReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}

	zr, err := zstd.NewReader(f)
	if err != nil {
		_ = f.Close()
		return nil, &DecodeError{Path: path, Err: err}
	}

	return &dbnReader{path: path, f: f, zr: zr}, nil
}

func (r *dbnReader) Next() (models.RawRecord, error) {
	_, err := io.ReadFull(r.zr, r.buf[:])
	if errors.Is(err, io.EOF) {
		return models.RawRecord{}, io.EOF
	}
	if err != nil {
		// Short read mid-record or a corrupt zstd frame.
		if errors.Is(err, io.ErrUnexpectedEOF) {
			err = fmt.Errorf("truncated record: %w", err)
		}
		return models.RawRecord{}, &DecodeError{Path: r.path, Err: err}
	}

	code := string(bytes.TrimRight(r.buf[8:24], "\x00"))
	if code == "" {
		return models.RawRecord{}, &DecodeError{Path: r.path, Err: fmt.Errorf("record with empty instrument code")}
	}

	ts := int64(binary.LittleEndian.Uint64(r.buf[0:8]))
	return models.RawRecord{
		Timestamp:  time.Unix(0, ts).UTC(),
		Instrument: code,
		Open:       fixedPrice(r.buf[24:32]),
		High:       fixedPrice(r.buf[32:40]),
		Low:        fixedPrice(r.buf[40:48]),
		Close:      fixedPrice(r.buf[48:56]),
		Volume:     int64(binary.LittleEndian.Uint64(r.buf[56:64])),
	}, nil
}

func (r *dbnReader) Close() error {
	r.zr.Close()
	return r.f.Close()
}

func fixedPrice(b []byte) float64 {
	return float64(int64(binary.LittleEndian.Uint64(b))) * priceScale
}
