package freshness

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	energy "campus-energy/internal/energy/domain"
	"campus-energy/internal/energy/infrastructure/memory"
)

type brokenSource struct{}

func (brokenSource) LatestCreatedAt(context.Context) (*time.Time, error) {
	return nil, errors.New("database is locked")
}

func TestLatest(t *testing.T) {
	ctx := context.Background()
	daily := memory.NewDailyRepository()
	hourly := memory.NewHourlyRepository()
	r, err := NewReporter(daily, hourly)
	require.NoError(t, err)

	got, err := r.Latest(ctx, energy.TableDaily)
	require.NoError(t, err)
	assert.Nil(t, got.Timestamp)

	first := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	second := time.Date(2025, 2, 1, 8, 0, 0, 0, time.UTC)
	for i, created := range []time.Time{first, second} {
		rec := energy.NewHourlyBuildingRecord(first.Add(time.Duration(i)*time.Hour), map[energy.Building]*float64{})
		v := 1.0
		rec.Readings[energy.Kroc] = &v
		rec.CreatedAt = created
		require.NoError(t, hourly.Insert(ctx, &rec))
	}

	got, err = r.Latest(ctx, energy.TableHourly)
	require.NoError(t, err)
	require.NotNil(t, got.Timestamp)
	// highest id wins, not the greatest timestamp
	assert.Equal(t, second, *got.Timestamp)

	_, err = r.Latest(ctx, energy.Table("weekly"))
	assert.ErrorIs(t, err, energy.ErrUnknownTable)
}

func TestLatestPropagatesStorageErrors(t *testing.T) {
	r, err := NewReporter(brokenSource{}, brokenSource{})
	require.NoError(t, err)

	_, err = r.Latest(context.Background(), energy.TableDaily)
	assert.ErrorContains(t, err, "database is locked")
}
