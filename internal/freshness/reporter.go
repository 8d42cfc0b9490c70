// Package freshness reports when each table last received data.
package freshness

import (
	"context"
	"errors"
	"fmt"
	"time"

	energy "campus-energy/internal/energy/domain"
)

// Freshness is the created_at of a table's newest row; Timestamp is nil for an empty table.
type Freshness struct {
	Timestamp *time.Time `json:"timestamp"`
}

// LatestSource returns the created_at of the most recently inserted row.
type LatestSource interface {
	LatestCreatedAt(ctx context.Context) (*time.Time, error)
}

// Reporter reads freshness from the daily and hourly tables.
type Reporter struct {
	sources map[energy.Table]LatestSource
}

// NewReporter constructs a reporter over both tables.
func NewReporter(daily, hourly LatestSource) (*Reporter, error) {
	if daily == nil || hourly == nil {
		return nil, errors.New("freshness: nil source")
	}
	return &Reporter{sources: map[energy.Table]LatestSource{
		energy.TableDaily:  daily,
		energy.TableHourly: hourly,
	}}, nil
}

// Latest reports the newest created_at of table. Storage errors propagate.
func (r *Reporter) Latest(ctx context.Context, table energy.Table) (Freshness, error) {
	src, ok := r.sources[table]
	if !ok {
		return Freshness{}, fmt.Errorf("%w: %q", energy.ErrUnknownTable, table)
	}
	ts, err := src.LatestCreatedAt(ctx)
	if err != nil {
		return Freshness{}, fmt.Errorf("freshness %s: %w", table, err)
	}
	return Freshness{Timestamp: ts}, nil
}
