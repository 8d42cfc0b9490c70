package energy

import (
	"context"
	"time"
)

// DailyRepository stores daily fuel-cell records, unique on (date, user).
type DailyRepository interface {
	Upsert(ctx context.Context, rec *DailyEnergyRecord) error
	AverageMetricsSince(ctx context.Context, since time.Time) (DailyMetricAverages, error)
	ListFuelEfficiency(ctx context.Context) ([]FuelEfficiencyPoint, error)
	ListOutputs(ctx context.Context, from, to *time.Time) ([]DailyOutput, error)
	SumOutputSince(ctx context.Context, since *time.Time) (float64, error)
	LatestCreatedAt(ctx context.Context) (*time.Time, error)
}

// HourlyRepository stores hourly per-building records. It is append-only.
type HourlyRepository interface {
	Insert(ctx context.Context, rec *HourlyBuildingRecord) error
	LatestReadings(ctx context.Context, b Building, limit int) ([]BuildingValue, error)
	// SumTotalsBy groups total_kwh into buckets with from <= timestamp < to, oldest first.
	SumTotalsBy(ctx context.Context, bucket Bucket, from, to *time.Time) ([]BucketTotal, error)
	SumTotalSince(ctx context.Context, since *time.Time) (float64, error)
	SumByBuilding(ctx context.Context) (map[Building]float64, error)
	LatestCreatedAt(ctx context.Context) (*time.Time, error)
}
