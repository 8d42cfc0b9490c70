// Package reports serves the electricity-sources spreadsheet and renders summary exports.
package reports

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	energy "campus-energy/internal/energy/domain"
)

// SourcesFileName is the fixed name the uploaded spreadsheet is stored under.
const SourcesFileName = "sources-of-electricity_edit.xlsx"

// ErrInvalidWorkbook is returned when an upload is not a readable XLSX file.
var ErrInvalidWorkbook = errors.New("reports: invalid workbook")

// SourcesStore keeps the most recent sources-of-electricity workbook on disk.
type SourcesStore struct {
	dir    string
	mu     sync.RWMutex
	logger *zap.Logger
}

// NewSourcesStore constructs a store rooted at dir, creating it if needed.
func NewSourcesStore(dir string, logger *zap.Logger) (*SourcesStore, error) {
	if dir == "" {
		return nil, errors.New("reports: sources dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("reports: create sources dir: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SourcesStore{dir: dir, logger: logger}, nil
}

// Path returns the location of the stored workbook.
func (s *SourcesStore) Path() string {
	return filepath.Join(s.dir, SourcesFileName)
}

// Save validates buf as a workbook and overwrites the stored copy.
func (s *SourcesStore) Save(buf []byte) error {
	if err := validateWorkbook(buf); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	tmp, err := os.CreateTemp(s.dir, ".sources-*.xlsx")
	if err != nil {
		return fmt.Errorf("reports: stage upload: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(buf); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("reports: stage upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("reports: stage upload: %w", err)
	}
	if err := os.Rename(tmpName, s.Path()); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("reports: store upload: %w", err)
	}
	s.logger.Info("sources workbook stored", zap.Int("bytes", len(buf)))
	return nil
}

// Load returns the stored workbook bytes. A missing file returns energy.ErrNoData.
func (s *SourcesStore) Load() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	buf, err := os.ReadFile(s.Path())
	if errors.Is(err, os.ErrNotExist) {
		return nil, energy.ErrNoData
	}
	if err != nil {
		return nil, fmt.Errorf("reports: read sources: %w", err)
	}
	return buf, nil
}

func validateWorkbook(buf []byte) error {
	if len(buf) == 0 {
		return fmt.Errorf("%w: empty upload", ErrInvalidWorkbook)
	}
	f, err := excelize.OpenReader(bytes.NewReader(buf))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidWorkbook, err)
	}
	defer f.Close()
	if len(f.GetSheetList()) == 0 {
		return fmt.Errorf("%w: no sheets", ErrInvalidWorkbook)
	}
	return nil
}
