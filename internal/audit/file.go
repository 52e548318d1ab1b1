package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/outstaff/outstaff/internal/config"
)

// defaultMaxSizeMB applies when the file section sets no size limit
const defaultMaxSizeMB = 100

// FileShipper appends one JSON record per line to a size-rotated file
type FileShipper struct {
	mu  sync.Mutex
	out *lumberjack.Logger
}

// NewFileShipper checks that cfg.Path can be opened for appending. The
// directory must already exist. New files get mode 0600.
func NewFileShipper(cfg *config.AuditFileConfig) (*FileShipper, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("file path is required")
	}
	f, err := os.OpenFile(cfg.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log file: %w", err)
	}
	f.Close()

	maxSize := cfg.MaxSizeMB
	if maxSize <= 0 {
		maxSize = defaultMaxSizeMB
	}
	return &FileShipper{out: &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    maxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}}, nil
}

// Ship writes rec as a single line
func (fs *FileShipper) Ship(_ context.Context, rec *Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal audit record: %w", err)
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if _, err := fs.out.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write audit record: %w", err)
	}
	return nil
}

// Rotate closes the current file and starts a new one
func (fs *FileShipper) Rotate() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.out.Rotate()
}

// Close closes the underlying file
func (fs *FileShipper) Close() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.out.Close()
}
