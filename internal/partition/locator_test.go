package partition

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	domrepo "HistPull/internal/domain/repository"
)

func touch(t *testing.T, dir, name string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
}

func TestParseDescriptor(t *testing.T) {
	p, ok := ParseDescriptor("/data", "glbx-mdp3-20250801-20250828.ohlcv-1m.dbn.zst")
	if !ok {
		t.Fatalf("expected descriptor to parse")
	}
	if p.Path != filepath.Join("/data", "glbx-mdp3-20250801-20250828.ohlcv-1m.dbn.zst") {
		t.Fatalf("unexpected path %q", p.Path)
	}
	if !p.Start.Equal(time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected start %v", p.Start)
	}
	if !p.End.Equal(time.Date(2025, 8, 28, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected end %v", p.End)
	}
}

func TestParseDescriptorRejects(t *testing.T) {
	cases := []string{
		"glbx-mdp3-20250801-20250828.trades.dbn.zst", // wrong content type
		"readme.txt",
		"glbx-20250801.ohlcv-1m.dbn.zst",             // too few tokens
		"glbx-mdp3-2025080x-20250828.ohlcv-1m.zst",   // bad start date
		"glbx-mdp3-20250828-20250801.ohlcv-1m.zst",   // inverted range
	}
	for _, name := range cases {
		if _, ok := ParseDescriptor("/data", name); ok {
			t.Fatalf("%s should not parse", name)
		}
	}
}

func TestLocate(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "glbx-mdp3-20250801-20250810.ohlcv-1m.dbn.zst")
	touch(t, dir, "glbx-mdp3-20250811-20250820.ohlcv-1m.dbn.zst")
	touch(t, dir, "notes.txt")

	l := NewLocator(dir, nil)

	p, err := l.Locate(time.Date(2025, 8, 5, 14, 30, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("locate: %v", err)
	}
	if filepath.Base(p.Path) != "glbx-mdp3-20250801-20250810.ohlcv-1m.dbn.zst" {
		t.Fatalf("wrong partition %s", p.Path)
	}

	p, err = l.Locate(time.Date(2025, 8, 11, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("locate boundary: %v", err)
	}
	if filepath.Base(p.Path) != "glbx-mdp3-20250811-20250820.ohlcv-1m.dbn.zst" {
		t.Fatalf("wrong partition %s", p.Path)
	}
}

func TestLocateNotFound(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "glbx-mdp3-20250801-20250810.ohlcv-1m.dbn.zst")

	l := NewLocator(dir, nil)
	_, err := l.Locate(time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC))
	if !errors.Is(err, domrepo.ErrPartitionNotFound) {
		t.Fatalf("expected ErrPartitionNotFound, got %v", err)
	}
}

func TestLocateFirstMatchWins(t *testing.T) {
	dir := t.TempDir()
	// Overlapping ranges: a-* sorts before b-*, so it must win.
	touch(t, dir, "a-mdp3-20250801-20250831.ohlcv-1m.dbn.zst")
	touch(t, dir, "b-mdp3-20250801-20250831.ohlcv-1m.dbn.zst")

	l := NewLocator(dir, nil)
	p, err := l.Locate(time.Date(2025, 8, 15, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("locate: %v", err)
	}
	if filepath.Base(p.Path) != "a-mdp3-20250801-20250831.ohlcv-1m.dbn.zst" {
		t.Fatalf("expected first match in listing order, got %s", p.Path)
	}
}
