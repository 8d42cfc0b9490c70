package sqlstore

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	energy "campus-energy/internal/energy/domain"
)

var (
	sharedPostgresDSN  string
	sharedPostgresOnce sync.Once
	sharedPostgresErr  error
)

func postgresDSN(t *testing.T) string {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	sharedPostgresOnce.Do(func() {
		sharedPostgresDSN, sharedPostgresErr = startPostgres()
	})
	if sharedPostgresErr != nil {
		t.Fatalf("Failed to start postgres container: %v", sharedPostgresErr)
	}
	return sharedPostgresDSN
}

func startPostgres() (string, error) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       "energy",
			"POSTGRES_USER":     "energy",
			"POSTGRES_PASSWORD": "test_password",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return "", fmt.Errorf("failed to start test container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get container host: %w", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		return "", fmt.Errorf("failed to get container port: %w", err)
	}

	return fmt.Sprintf("postgres://energy:test_password@%s:%s/energy?sslmode=disable", host, port.Port()), nil
}

func TestPostgresRepositories(t *testing.T) {
	dsn := postgresDSN(t)
	ctx := context.Background()

	store, err := Open(ctx, DriverPostgres, dsn, Options{MaxOpenConns: 4, Logger: zap.NewNop()})
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.Migrate(ctx))
	require.NoError(t, store.Migrate(ctx))

	daily := NewDailyRepository(store)
	hourly := NewHourlyRepository(store)
	now := time.Now().UTC().Truncate(time.Second)

	for _, out := range []float64{500, 700} {
		require.NoError(t, daily.Upsert(ctx, &energy.DailyEnergyRecord{
			Date:      day(2025, 3, 1),
			UserID:    energy.DefaultUserID,
			CreatedAt: now,
			Metrics:   energy.DailyMetrics{ElectricityOutKWh: out, CO2ReductionLbs: 120},
		}))
	}
	got, err := daily.FindByDate(ctx, day(2025, 3, 1), energy.DefaultUserID)
	require.NoError(t, err)
	assert.Equal(t, 700.0, got.Metrics.ElectricityOutKWh)
	assert.Equal(t, day(2025, 3, 1), got.Date)

	avg, err := daily.AverageMetricsSince(ctx, now.AddDate(0, 0, -30))
	require.NoError(t, err)
	assert.Equal(t, 700.0, avg.ElectricityOutKWh)
	assert.Equal(t, 120.0, avg.CO2ReductionLbs)

	rec := energy.NewHourlyBuildingRecord(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC), map[energy.Building]*float64{
		energy.Kroc:        fptr(11.1),
		energy.WestParking: fptr(7.6),
	})
	rec.CreatedAt = now
	require.NoError(t, hourly.Insert(ctx, &rec))

	stored, err := hourly.Get(ctx, 1)
	require.NoError(t, err)
	assert.True(t, stored.TotalKWh.Equal(rec.TotalKWh))

	series, err := hourly.LatestReadings(ctx, energy.Kroc, 24)
	require.NoError(t, err)
	require.Len(t, series, 1)
	assert.Equal(t, 11.1, series[0].Value)

	latest, err := hourly.LatestCreatedAt(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.True(t, latest.Equal(now))

	// totals keep every decimal place the readings carry
	fine := energy.NewHourlyBuildingRecord(time.Date(2025, 3, 1, 13, 0, 0, 0, time.UTC), map[energy.Building]*float64{
		energy.Kroc:  fptr(0.123456),
		energy.Soles: fptr(1.0000001),
	})
	fine.CreatedAt = now
	require.NoError(t, hourly.Insert(ctx, &fine))

	stored, err = hourly.Get(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "1.1234561", energy.FormatKWh(stored.TotalKWh))

	days, err := hourly.SumTotalsBy(ctx, energy.BucketDay, nil, nil)
	require.NoError(t, err)
	require.Len(t, days, 1)
	assert.Equal(t, day(2025, 3, 1), days[0].Start)
	assert.Equal(t, rec.TotalKWh.Add(fine.TotalKWh).String(), energy.FormatKWh(days[0].TotalKWh))

	weeks, err := hourly.SumTotalsBy(ctx, energy.BucketWeek, nil, nil)
	require.NoError(t, err)
	require.Len(t, weeks, 1)
	assert.Equal(t, day(2025, 2, 24), weeks[0].Start)
}
