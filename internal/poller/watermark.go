package poller

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

// Watermark persists the since_id between polls.
type Watermark interface {
	Load() (int64, error)
	Save(sinceID int64) error
}

// FileWatermark stores the watermark as a decimal number in a file.
// A missing file reads as 0.
type FileWatermark struct {
	path string
	mu   sync.Mutex
}

// NewFileWatermark creates a watermark backed by path.
func NewFileWatermark(path string) *FileWatermark {
	return &FileWatermark{path: path}
}

// Load reads the stored watermark.
func (w *FileWatermark) Load() (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	data, err := os.ReadFile(w.path)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read watermark: %w", err)
	}

	v, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("parse watermark %q: invalid value", w.path)
	}
	return v, nil
}

// Save replaces the stored watermark atomically.
func (w *FileWatermark) Save(sinceID int64) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	tmp, err := os.CreateTemp(filepath.Dir(w.path), ".watermark-*")
	if err != nil {
		return fmt.Errorf("create temp watermark: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := fmt.Fprintf(tmp, "%d\n", sinceID); err != nil {
		tmp.Close()
		return fmt.Errorf("write watermark: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close watermark: %w", err)
	}
	if err := os.Rename(tmp.Name(), w.path); err != nil {
		return fmt.Errorf("replace watermark: %w", err)
	}
	return nil
}

// MemoryWatermark keeps the watermark in memory.
type MemoryWatermark struct {
	mu    sync.Mutex
	value int64
}

func (w *MemoryWatermark) Load() (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.value, nil
}

func (w *MemoryWatermark) Save(sinceID int64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.value = sinceID
	return nil
}
