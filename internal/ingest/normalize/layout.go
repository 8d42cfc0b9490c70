package normalize

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	energy "campus-energy/internal/energy/domain"
)

// Layout locates the header and data rows of a source file by physical row index.
type Layout struct {
	HeaderRowIndex  int `yaml:"header_row_index"`
	DataStartOffset int `yaml:"data_start_offset"`
	// MinRows > 0 rejects shorter files with InsufficientRowsError; 0 yields no rows instead.
	MinRows int `yaml:"min_rows"`
}

// DataStart is the physical index of the first data row.
func (l Layout) DataStart() int { return l.HeaderRowIndex + l.DataStartOffset }

func (l Layout) validate() error {
	if l.HeaderRowIndex < 0 {
		return errors.New("normalize: header_row_index must be >= 0")
	}
	if l.DataStartOffset < 1 {
		return errors.New("normalize: data_start_offset must be >= 1")
	}
	if l.MinRows < 0 {
		return errors.New("normalize: min_rows must be >= 0")
	}
	return nil
}

// Layouts maps each source kind to its layout.
type Layouts map[energy.SourceKind]Layout

// DefaultLayouts matches the vendor exports: the daily workbook has its header on
// row 11 with data from row 13; the hourly CSV has its header on row 5 with data from row 8.
func DefaultLayouts() Layouts {
	return Layouts{
		energy.SourceDailyXLSX: {HeaderRowIndex: 10, DataStartOffset: 2, MinRows: 0},
		energy.SourceHourlyCSV: {HeaderRowIndex: 4, DataStartOffset: 3, MinRows: 8},
	}
}

// LoadLayouts reads layout overrides from a YAML file keyed by source kind.
// Kinds absent from the file keep their defaults. An empty path returns the defaults.
func LoadLayouts(path string) (Layouts, error) {
	layouts := DefaultLayouts()
	if path == "" {
		return layouts, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read layouts: %w", err)
	}

	var overrides map[string]Layout
	if err := yaml.Unmarshal(raw, &overrides); err != nil {
		return nil, fmt.Errorf("parse layouts: %w", err)
	}
	for name, layout := range overrides {
		kind, err := energy.ParseSourceKind(name)
		if err != nil {
			return nil, err
		}
		if err := layout.validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", kind, err)
		}
		layouts[kind] = layout
	}
	return layouts, nil
}
