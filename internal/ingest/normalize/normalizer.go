// Package normalize turns vendor spreadsheet and CSV exports into canonical rows.
package normalize

import (
	"fmt"

	"go.uber.org/zap"

	energy "campus-energy/internal/energy/domain"
)

// Normalizer is stateless apart from its layouts and safe for concurrent use.
type Normalizer struct {
	layouts Layouts
	logger  *zap.Logger
}

// NewNormalizer builds a normalizer. Nil layouts use DefaultLayouts.
func NewNormalizer(layouts Layouts, logger *zap.Logger) *Normalizer {
	merged := DefaultLayouts()
	for kind, layout := range layouts {
		merged[kind] = layout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Normalizer{layouts: merged, logger: logger}
}

// Normalize parses buf according to kind and returns its canonical rows.
func (n *Normalizer) Normalize(buf []byte, kind energy.SourceKind) ([]energy.CanonicalRow, error) {
	layout, ok := n.layouts[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", energy.ErrUnknownSourceKind, kind)
	}

	var (
		rows []energy.CanonicalRow
		err  error
	)
	switch kind {
	case energy.SourceDailyXLSX:
		rows, err = n.normalizeDaily(buf, layout)
	case energy.SourceHourlyCSV:
		rows, err = n.normalizeHourly(buf, layout)
	default:
		return nil, fmt.Errorf("%w: %q", energy.ErrUnknownSourceKind, kind)
	}
	if err != nil {
		return nil, err
	}

	n.logger.Debug("normalized source",
		zap.String("kind", string(kind)),
		zap.Int("rows", len(rows)),
	)
	return rows, nil
}

func (n *Normalizer) lineField(line int) zap.Field {
	return zap.Int("line", line+1)
}
