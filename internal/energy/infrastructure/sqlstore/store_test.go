package sqlstore

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	energy "campus-energy/internal/energy/domain"
)

func newSQLiteStore(t *testing.T) *Store {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?_time_format=sqlite", filepath.Join(t.TempDir(), "energy.db"))
	store, err := Open(context.Background(), DriverSQLite, dsn, Options{Logger: zap.NewNop()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func fptr(v float64) *float64 { return &v }

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "mysql", "x", Options{})
	assert.Error(t, err)
}

func TestMigrateIsIdempotent(t *testing.T) {
	store := newSQLiteStore(t)
	require.NoError(t, store.Migrate(context.Background()))
	require.NoError(t, store.Ping(context.Background()))
}

func TestDailyUpsertOverwritesMetrics(t *testing.T) {
	ctx := context.Background()
	repo := NewDailyRepository(newSQLiteStore(t))
	created := time.Date(2025, 3, 2, 8, 0, 0, 0, time.UTC)

	first := &energy.DailyEnergyRecord{
		Date:      day(2025, 3, 1),
		UserID:    energy.DefaultUserID,
		CreatedAt: created,
		Metrics: energy.DailyMetrics{
			ElectricityOutKWh:    400,
			GasFlowInTherms:      30,
			HeatRateHHVBtuPerKWh: fptr(9000),
		},
	}
	require.NoError(t, repo.Upsert(ctx, first))

	second := &energy.DailyEnergyRecord{
		Date:      day(2025, 3, 1),
		UserID:    energy.DefaultUserID,
		CreatedAt: created.Add(time.Hour),
		Metrics: energy.DailyMetrics{
			ElectricityOutKWh: 500,
			CO2ReductionLbs:   120,
		},
	}
	require.NoError(t, repo.Upsert(ctx, second))

	got, err := repo.FindByDate(ctx, day(2025, 3, 1), energy.DefaultUserID)
	require.NoError(t, err)
	assert.Equal(t, 500.0, got.Metrics.ElectricityOutKWh)
	assert.Equal(t, 0.0, got.Metrics.GasFlowInTherms)
	assert.Equal(t, 120.0, got.Metrics.CO2ReductionLbs)
	assert.Nil(t, got.Metrics.HeatRateHHVBtuPerKWh)
	assert.Equal(t, created, got.CreatedAt)

	points, err := repo.ListFuelEfficiency(ctx)
	require.NoError(t, err)
	assert.Len(t, points, 1)

	_, err = repo.FindByDate(ctx, day(2025, 3, 2), energy.DefaultUserID)
	assert.ErrorIs(t, err, energy.ErrNoData)
}

func TestDailyAveragesAndSums(t *testing.T) {
	ctx := context.Background()
	repo := NewDailyRepository(newSQLiteStore(t))
	now := time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC)

	avg, err := repo.AverageMetricsSince(ctx, now.AddDate(0, 0, -30))
	require.NoError(t, err)
	assert.False(t, avg.HasData())

	rows := []struct {
		date    time.Time
		created time.Time
		out     float64
	}{
		{day(2025, 3, 30), now.Add(-time.Hour), 100},
		{day(2025, 3, 31), now.Add(-2 * time.Hour), 300},
		{day(2025, 1, 1), now.AddDate(0, 0, -60), 1000},
	}
	for _, r := range rows {
		require.NoError(t, repo.Upsert(ctx, &energy.DailyEnergyRecord{
			Date: r.date, UserID: 1, CreatedAt: r.created,
			Metrics: energy.DailyMetrics{ElectricityOutKWh: r.out},
		}))
	}

	avg, err = repo.AverageMetricsSince(ctx, now.AddDate(0, 0, -30))
	require.NoError(t, err)
	assert.InDelta(t, 200.0, avg.ElectricityOutKWh, 1e-9)
	assert.Equal(t, 0.0, avg.HeatRateHHVBtuPerKWh)

	total, err := repo.SumOutputSince(ctx, nil)
	require.NoError(t, err)
	assert.InDelta(t, 1400.0, total, 1e-9)

	since := day(2025, 3, 1)
	recent, err := repo.SumOutputSince(ctx, &since)
	require.NoError(t, err)
	assert.InDelta(t, 400.0, recent, 1e-9)

	to := day(2025, 3, 31)
	outputs, err := repo.ListOutputs(ctx, &since, &to)
	require.NoError(t, err)
	require.Len(t, outputs, 1)
	assert.Equal(t, day(2025, 3, 30), outputs[0].Date)

	latest, err := repo.LatestCreatedAt(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, now.AddDate(0, 0, -60), *latest)
}

func TestHourlyInsertIsAppendOnly(t *testing.T) {
	ctx := context.Background()
	repo := NewHourlyRepository(newSQLiteStore(t))
	ts := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	latest, err := repo.LatestCreatedAt(ctx)
	require.NoError(t, err)
	assert.Nil(t, latest)

	rec := energy.NewHourlyBuildingRecord(ts, map[energy.Building]*float64{
		energy.AlcalaBorrego: fptr(10.5),
		energy.Kroc:          fptr(20.3),
	})
	rec.CreatedAt = ts.Add(time.Minute)
	require.NoError(t, repo.Insert(ctx, &rec))
	require.NoError(t, repo.Insert(ctx, &rec))

	stored, err := repo.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "30.8", energy.FormatKWh(stored.TotalKWh))
	second, err := repo.Get(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, ts, second.Timestamp)
	assert.Nil(t, stored.Readings[energy.Soles])
	require.NotNil(t, stored.Readings[energy.Kroc])
	assert.Equal(t, 20.3, *stored.Readings[energy.Kroc])

	sum, err := repo.SumTotalSince(ctx, nil)
	require.NoError(t, err)
	assert.InDelta(t, 61.6, sum, 1e-9)

	byBuilding, err := repo.SumByBuilding(ctx)
	require.NoError(t, err)
	assert.Len(t, byBuilding, len(energy.Buildings))
	assert.InDelta(t, 21.0, byBuilding[energy.AlcalaBorrego], 1e-9)
	assert.Equal(t, 0.0, byBuilding[energy.WestParking])
}

func TestHourlySumTotalsBy(t *testing.T) {
	ctx := context.Background()
	repo := NewHourlyRepository(newSQLiteStore(t))

	empty, err := repo.SumTotalsBy(ctx, energy.BucketDay, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)

	for _, ts := range []time.Time{
		time.Date(2025, 3, 2, 22, 0, 0, 0, time.UTC), // Sunday
		time.Date(2025, 3, 2, 23, 0, 0, 0, time.UTC),
		time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC), // Monday
		time.Date(2025, 3, 9, 23, 0, 0, 0, time.UTC), // Sunday
	} {
		rec := energy.NewHourlyBuildingRecord(ts, map[energy.Building]*float64{
			energy.Kroc:  fptr(1.25),
			energy.Soles: fptr(2),
		})
		require.NoError(t, repo.Insert(ctx, &rec))
	}

	days, err := repo.SumTotalsBy(ctx, energy.BucketDay, nil, nil)
	require.NoError(t, err)
	require.Len(t, days, 3)
	assert.Equal(t, time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC), days[0].Start)
	assert.InDelta(t, 6.5, days[0].TotalKWh.InexactFloat64(), 1e-9)
	assert.Equal(t, time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC), days[1].Start)
	assert.InDelta(t, 3.25, days[1].TotalKWh.InexactFloat64(), 1e-9)

	weeks, err := repo.SumTotalsBy(ctx, energy.BucketWeek, nil, nil)
	require.NoError(t, err)
	require.Len(t, weeks, 2)
	assert.Equal(t, time.Date(2025, 2, 24, 0, 0, 0, 0, time.UTC), weeks[0].Start)
	assert.InDelta(t, 6.5, weeks[0].TotalKWh.InexactFloat64(), 1e-9)
	assert.Equal(t, time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC), weeks[1].Start)
	assert.InDelta(t, 6.5, weeks[1].TotalKWh.InexactFloat64(), 1e-9)

	from := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 7)
	days, err = repo.SumTotalsBy(ctx, energy.BucketDay, &from, &to)
	require.NoError(t, err)
	require.Len(t, days, 2)
	assert.Equal(t, time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC), days[1].Start)

	_, err = repo.SumTotalsBy(ctx, energy.Bucket("month"), nil, nil)
	assert.Error(t, err)
}

func TestHourlyLatestReadings(t *testing.T) {
	ctx := context.Background()
	repo := NewHourlyRepository(newSQLiteStore(t))
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 30; i++ {
		readings := map[energy.Building]*float64{energy.Soles: fptr(float64(i))}
		if i%2 == 0 {
			readings[energy.CaminoHall] = fptr(1)
		}
		rec := energy.NewHourlyBuildingRecord(base.Add(time.Duration(i)*time.Hour), readings)
		require.NoError(t, repo.Insert(ctx, &rec))
	}

	soles, err := repo.LatestReadings(ctx, energy.Soles, 24)
	require.NoError(t, err)
	require.Len(t, soles, 24)
	assert.Equal(t, 29.0, soles[0].Value)
	assert.True(t, soles[0].Timestamp.After(soles[1].Timestamp))

	camino, err := repo.LatestReadings(ctx, energy.CaminoHall, 24)
	require.NoError(t, err)
	assert.Len(t, camino, 15)

	_, err = repo.LatestReadings(ctx, energy.Building("library"), 24)
	assert.ErrorIs(t, err, energy.ErrInvalidBuilding)
}

func TestWrapDriverError(t *testing.T) {
	assert.NoError(t, wrapDriverError("op", nil))

	pgErr := &pgconn.PgError{Code: "23505", Message: "duplicate key"}
	err := wrapDriverError("upsert daily", pgErr)
	assert.Contains(t, err.Error(), "sqlstate 23505")
	assert.ErrorIs(t, err, pgErr)
}
