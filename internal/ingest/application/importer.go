package application

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	energy "campus-energy/internal/energy/domain"
	"campus-energy/internal/ingest/normalize"
	"campus-energy/internal/observability/metrics"
)

// ImportResult summarises one imported file.
type ImportResult struct {
	BatchID string            `json:"batch_id"`
	Kind    energy.SourceKind `json:"kind"`
	Parsed  int               `json:"parsed"`
	Written int               `json:"written"`
}

// Importer runs a buffer through the normalizer and the reconciler.
type Importer struct {
	normalizer *normalize.Normalizer
	reconciler *Reconciler
	logger     *zap.Logger
}

// NewImporter constructs an importer.
func NewImporter(normalizer *normalize.Normalizer, reconciler *Reconciler, logger *zap.Logger) (*Importer, error) {
	if normalizer == nil {
		return nil, errors.New("importer: nil normalizer")
	}
	if reconciler == nil {
		return nil, errors.New("importer: nil reconciler")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Importer{normalizer: normalizer, reconciler: reconciler, logger: logger}, nil
}

// Import normalizes buf as kind and reconciles the rows into storage.
func (i *Importer) Import(ctx context.Context, buf []byte, kind energy.SourceKind) (result ImportResult, err error) {
	start := time.Now()
	result = ImportResult{BatchID: uuid.NewString(), Kind: kind}
	logger := i.logger.With(zap.String("batch_id", result.BatchID), zap.String("kind", string(kind)))

	defer func() {
		metrics.ObserveImport(string(kind), metrics.Result(err), time.Since(start))
		written, skipped, failed := rowOutcomes(result, err)
		metrics.AddIngestRows(string(kind), metrics.ResultSuccess, written)
		metrics.AddIngestRows(string(kind), metrics.ResultSkipped, skipped)
		metrics.AddIngestRows(string(kind), metrics.ResultError, failed)
		if err != nil {
			logger.Error("import failed", zap.Int("parsed", result.Parsed), zap.Int("written", result.Written), zap.Error(err))
			return
		}
		logger.Info("import completed", zap.Int("parsed", result.Parsed), zap.Int("written", result.Written))
	}()

	rows, err := i.normalizer.Normalize(buf, kind)
	if err != nil {
		return result, err
	}
	result.Parsed = len(rows)

	switch kind {
	case energy.SourceDailyXLSX:
		result.Written, err = i.reconciler.UpsertDaily(ctx, rows)
	case energy.SourceHourlyCSV:
		result.Written, err = i.reconciler.InsertHourly(ctx, rows)
	default:
		err = energy.ErrUnknownSourceKind
	}
	return result, err
}

// rowOutcomes splits parsed rows into written, skipped and failed counts.
// Rows left unwritten by a failed batch count as failed, not skipped.
func rowOutcomes(result ImportResult, err error) (written, skipped, failed int) {
	rest := result.Parsed - result.Written
	if rest < 0 {
		rest = 0
	}
	if err != nil {
		return result.Written, 0, rest
	}
	return result.Written, rest, 0
}
