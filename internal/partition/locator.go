package partition

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"HistPull/internal/domain/models"
	domrepo "HistPull/internal/domain/repository"
	xlogger "HistPull/pkg/logger"
)

// File name contract, preserved bit-for-bit from the vendor layout:
//
//	<prefix>-<venue>-<YYYYMMDD:start>-<YYYYMMDD:end>.<content-type>.<ext>
//
// e.g. glbx-mdp3-20250801-20250828.ohlcv-1m.dbn.zst
//
// Only files whose name contains "ohlc" are eligible. The two embedded dates
// are the 3rd and 4th hyphen-delimited tokens of the base name.
const (
	contentMarker = "ohlc"
	dateLayout    = "20060102"
)

// Locator scans a data directory for partition files and answers which file
// covers a given date. The directory listing is memoized and refreshed when
// the directory's modification time changes; descriptors themselves are
// read-only.
type Locator struct {
	dir    string
	logger *xlogger.Logger

	mu      sync.Mutex
	index   []models.Partition
	scanned bool
	modTime time.Time
}

func NewLocator(dir string, logger *xlogger.Logger) *Locator {
	return &Locator{dir: dir, logger: logger}
}

// Locate returns the first partition, in directory-listing order, whose
// covered range contains date. Overlapping partitions are an invariant the
// data layout must uphold; the first match wins deterministically.
func (l *Locator) Locate(date time.Time) (models.Partition, error) {
	idx, err := l.snapshot()
	if err != nil {
		return models.Partition{}, err
	}

	day := truncateToDay(date)
	for _, p := range idx {
		if p.Covers(day) {
			return p, nil
		}
	}
	return models.Partition{}, fmt.Errorf("%w: %s", domrepo.ErrPartitionNotFound, day.Format("2006-01-02"))
}

// snapshot returns the memoized index, rescanning when the directory changed.
func (l *Locator) snapshot() ([]models.Partition, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	info, err := os.Stat(l.dir)
	if err != nil {
		return nil, fmt.Errorf("stat data dir: %w", err)
	}
	if l.scanned && info.ModTime().Equal(l.modTime) {
		return l.index, nil
	}

	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("read data dir: %w", err)
	}

	// os.ReadDir sorts by file name, so listing order is stable across calls.
	index := make([]models.Partition, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		p, ok := ParseDescriptor(l.dir, e.Name())
		if !ok {
			continue
		}
		index = append(index, p)
	}

	l.index = index
	l.scanned = true
	l.modTime = info.ModTime()
	if l.logger != nil {
		l.logger.Debug("partition index refreshed",
			xlogger.String("dir", l.dir),
			xlogger.Int("partitions", len(index)))
	}
	return l.index, nil
}

// ParseDescriptor parses a candidate file name into a partition descriptor.
// Names that do not match the contract are skipped, not errors: data
// directories routinely hold unrelated files.
func ParseDescriptor(dir, name string) (models.Partition, bool) {
	if !strings.Contains(name, contentMarker) {
		return models.Partition{}, false
	}

	base := name
	if i := strings.IndexByte(name, '.'); i >= 0 {
		base = name[:i]
	}

	tokens := strings.Split(base, "-")
	if len(tokens) < 4 {
		return models.Partition{}, false
	}

	start, err := time.ParseInLocation(dateLayout, tokens[2], time.UTC)
	if err != nil {
		return models.Partition{}, false
	}
	end, err := time.ParseInLocation(dateLayout, tokens[3], time.UTC)
	if err != nil {
		return models.Partition{}, false
	}
	if end.Before(start) {
		return models.Partition{}, false
	}

	return models.Partition{
		Path:  filepath.Join(dir, name),
		Start: start,
		End:   end,
	}, true
}

func truncateToDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
