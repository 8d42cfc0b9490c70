package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	energy "campus-energy/internal/energy/domain"
)

type dailyKey struct {
	date   time.Time
	userID int64
}

// DailyRepository is an in-memory daily store for demo/testing.
// It upserts on (date, user) like the SQL store.
type DailyRepository struct {
	mu     sync.RWMutex
	nextID int64
	rows   map[dailyKey]*energy.DailyEnergyRecord
}

// NewDailyRepository constructs a repository.
func NewDailyRepository() *DailyRepository {
	return &DailyRepository{rows: make(map[dailyKey]*energy.DailyEnergyRecord)}
}

// Upsert inserts rec or replaces the metrics of the existing (date, user) row.
func (r *DailyRepository) Upsert(ctx context.Context, rec *energy.DailyEnergyRecord) error {
	_ = ctx
	if rec == nil {
		return errors.New("memory daily repo: nil record")
	}
	if rec.Date.IsZero() {
		return energy.ErrInvalidDate
	}

	key := dailyKey{date: energy.DayStart(rec.Date), userID: rec.UserID}
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.rows[key]; ok {
		existing.Metrics = copyMetrics(rec.Metrics)
		return nil
	}
	r.nextID++
	stored := &energy.DailyEnergyRecord{
		ID:        r.nextID,
		Date:      key.date,
		UserID:    rec.UserID,
		Metrics:   copyMetrics(rec.Metrics),
		CreatedAt: createdAt(rec.CreatedAt),
	}
	r.rows[key] = stored
	return nil
}

// FindByDate loads the record for (date, userID).
func (r *DailyRepository) FindByDate(ctx context.Context, date time.Time, userID int64) (*energy.DailyEnergyRecord, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.rows[dailyKey{date: energy.DayStart(date), userID: userID}]
	if !ok {
		return nil, energy.ErrNoData
	}
	copied := *rec
	copied.Metrics = copyMetrics(rec.Metrics)
	return &copied, nil
}

// AverageMetricsSince averages metrics over rows created at or after since.
func (r *DailyRepository) AverageMetricsSince(ctx context.Context, since time.Time) (energy.DailyMetricAverages, error) {
	_ = ctx
	rows := lo.Filter(r.snapshot(), func(rec energy.DailyEnergyRecord, _ int) bool {
		return !rec.CreatedAt.Before(since)
	})
	if len(rows) == 0 {
		return energy.DailyMetricAverages{}, nil
	}

	mean := func(pick func(energy.DailyMetrics) float64) float64 {
		return lo.SumBy(rows, func(rec energy.DailyEnergyRecord) float64 { return pick(rec.Metrics) }) / float64(len(rows))
	}
	var heatRate float64
	if rated := lo.Filter(rows, func(rec energy.DailyEnergyRecord, _ int) bool {
		return rec.Metrics.HeatRateHHVBtuPerKWh != nil
	}); len(rated) > 0 {
		heatRate = lo.SumBy(rated, func(rec energy.DailyEnergyRecord) float64 {
			return *rec.Metrics.HeatRateHHVBtuPerKWh
		}) / float64(len(rated))
	}

	return energy.DailyMetricAverages{
		TotalOutputFactorPercent: mean(func(m energy.DailyMetrics) float64 { return m.TotalOutputFactorPercent }),
		ACEfficiencyLHVPercent:   mean(func(m energy.DailyMetrics) float64 { return m.ACEfficiencyLHVPercent }),
		HeatRateHHVBtuPerKWh:     heatRate,
		ElectricityOutKWh:        mean(func(m energy.DailyMetrics) float64 { return m.ElectricityOutKWh }),
		GasFlowInTherms:          mean(func(m energy.DailyMetrics) float64 { return m.GasFlowInTherms }),
		CO2ReductionLbs:          mean(func(m energy.DailyMetrics) float64 { return m.CO2ReductionLbs }),
		CO2ProductionLbs:         mean(func(m energy.DailyMetrics) float64 { return m.CO2ProductionLbs }),
		NOxReductionLbs:          mean(func(m energy.DailyMetrics) float64 { return m.NOxReductionLbs }),
		NOxProductionLbs:         mean(func(m energy.DailyMetrics) float64 { return m.NOxProductionLbs }),
		SO2ReductionLbs:          mean(func(m energy.DailyMetrics) float64 { return m.SO2ReductionLbs }),
		SO2ProductionLbs:         mean(func(m energy.DailyMetrics) float64 { return m.SO2ProductionLbs }),
	}, nil
}

// ListFuelEfficiency returns every row's gas and output by date ascending.
func (r *DailyRepository) ListFuelEfficiency(ctx context.Context) ([]energy.FuelEfficiencyPoint, error) {
	_ = ctx
	return lo.Map(r.snapshot(), func(rec energy.DailyEnergyRecord, _ int) energy.FuelEfficiencyPoint {
		return energy.FuelEfficiencyPoint{
			Date:              rec.Date,
			GasFlowInTherms:   rec.Metrics.GasFlowInTherms,
			ElectricityOutKWh: rec.Metrics.ElectricityOutKWh,
		}
	}), nil
}

// ListOutputs returns outputs with from <= date < to; nil bounds are open.
func (r *DailyRepository) ListOutputs(ctx context.Context, from, to *time.Time) ([]energy.DailyOutput, error) {
	_ = ctx
	var result []energy.DailyOutput
	for _, rec := range r.snapshot() {
		if inRange(rec.Date, from, to) {
			result = append(result, energy.DailyOutput{Date: rec.Date, ElectricityOutKWh: rec.Metrics.ElectricityOutKWh})
		}
	}
	return result, nil
}

// SumOutputSince sums output for date >= since, or all rows when since is nil.
func (r *DailyRepository) SumOutputSince(ctx context.Context, since *time.Time) (float64, error) {
	outputs, _ := r.ListOutputs(ctx, since, nil)
	return lo.SumBy(outputs, func(o energy.DailyOutput) float64 { return o.ElectricityOutKWh }), nil
}

// LatestCreatedAt returns created_at of the highest id, or nil when empty.
func (r *DailyRepository) LatestCreatedAt(ctx context.Context) (*time.Time, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	var latest *energy.DailyEnergyRecord
	for _, rec := range r.rows {
		if latest == nil || rec.ID > latest.ID {
			latest = rec
		}
	}
	if latest == nil {
		return nil, nil
	}
	ts := latest.CreatedAt
	return &ts, nil
}

// snapshot copies rows ordered by date, then id.
func (r *DailyRepository) snapshot() []energy.DailyEnergyRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]energy.DailyEnergyRecord, 0, len(r.rows))
	for _, rec := range r.rows {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// HourlyRepository is an append-only in-memory hourly store.
type HourlyRepository struct {
	mu   sync.RWMutex
	rows []energy.HourlyBuildingRecord
}

// NewHourlyRepository constructs a repository.
func NewHourlyRepository() *HourlyRepository {
	return &HourlyRepository{}
}

// Insert appends rec with a total recomputed from its readings.
func (r *HourlyRepository) Insert(ctx context.Context, rec *energy.HourlyBuildingRecord) error {
	_ = ctx
	if rec == nil {
		return errors.New("memory hourly repo: nil record")
	}
	if rec.Timestamp.IsZero() {
		return energy.ErrInvalidDate
	}

	stored := energy.NewHourlyBuildingRecord(rec.Timestamp.UTC(), rec.Readings)
	stored.CreatedAt = createdAt(rec.CreatedAt)

	r.mu.Lock()
	defer r.mu.Unlock()
	stored.ID = int64(len(r.rows) + 1)
	r.rows = append(r.rows, stored)
	return nil
}

// LatestReadings returns up to limit non-nil readings for b, newest first.
func (r *HourlyRepository) LatestReadings(ctx context.Context, b energy.Building, limit int) ([]energy.BuildingValue, error) {
	_ = ctx
	if _, err := energy.ParseBuilding(string(b)); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 24
	}

	rows := r.snapshot()
	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].Timestamp.Equal(rows[j].Timestamp) {
			return rows[i].Timestamp.After(rows[j].Timestamp)
		}
		return rows[i].ID > rows[j].ID
	})

	var result []energy.BuildingValue
	for _, rec := range rows {
		if v := rec.Readings[b]; v != nil {
			result = append(result, energy.BuildingValue{Timestamp: rec.Timestamp, Value: *v})
			if len(result) == limit {
				break
			}
		}
	}
	return result, nil
}

// ListTotals returns totals with from <= timestamp < to, oldest first.
func (r *HourlyRepository) ListTotals(ctx context.Context, from, to *time.Time) ([]energy.HourlyTotal, error) {
	_ = ctx
	rows := r.snapshot()
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Timestamp.Before(rows[j].Timestamp) })

	var result []energy.HourlyTotal
	for _, rec := range rows {
		if inRange(rec.Timestamp, from, to) {
			result = append(result, energy.HourlyTotal{Timestamp: rec.Timestamp, TotalKWh: rec.TotalKWh})
		}
	}
	return result, nil
}

// SumTotalsBy groups totals into calendar buckets, oldest first.
func (r *HourlyRepository) SumTotalsBy(ctx context.Context, bucket energy.Bucket, from, to *time.Time) ([]energy.BucketTotal, error) {
	totals, _ := r.ListTotals(ctx, from, to)
	sums := make(map[time.Time]decimal.Decimal)
	for _, t := range totals {
		start, err := bucket.Start(t.Timestamp)
		if err != nil {
			return nil, err
		}
		sums[start] = sums[start].Add(t.TotalKWh)
	}

	result := lo.MapToSlice(sums, func(start time.Time, total decimal.Decimal) energy.BucketTotal {
		return energy.BucketTotal{Start: start, TotalKWh: total}
	})
	sort.Slice(result, func(i, j int) bool { return result[i].Start.Before(result[j].Start) })
	return result, nil
}

// SumTotalSince sums total_kwh for timestamp >= since, or all rows when since is nil.
func (r *HourlyRepository) SumTotalSince(ctx context.Context, since *time.Time) (float64, error) {
	totals, _ := r.ListTotals(ctx, since, nil)
	sum := decimal.Zero
	for _, t := range totals {
		sum = sum.Add(t.TotalKWh)
	}
	return sum.InexactFloat64(), nil
}

// SumByBuilding returns the all-time sum per building.
func (r *HourlyRepository) SumByBuilding(ctx context.Context) (map[energy.Building]float64, error) {
	_ = ctx
	result := make(map[energy.Building]float64, len(energy.Buildings))
	for _, b := range energy.Buildings {
		result[b] = 0
	}
	for _, rec := range r.snapshot() {
		for b, v := range rec.Readings {
			if v != nil {
				result[b] += *v
			}
		}
	}
	return result, nil
}

// LatestCreatedAt returns created_at of the last inserted row, or nil when empty.
func (r *HourlyRepository) LatestCreatedAt(ctx context.Context) (*time.Time, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.rows) == 0 {
		return nil, nil
	}
	ts := r.rows[len(r.rows)-1].CreatedAt
	return &ts, nil
}

// Len reports how many rows were inserted.
func (r *HourlyRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rows)
}

func (r *HourlyRepository) snapshot() []energy.HourlyBuildingRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]energy.HourlyBuildingRecord, len(r.rows))
	copy(out, r.rows)
	return out
}

func inRange(t time.Time, from, to *time.Time) bool {
	if from != nil && t.Before(*from) {
		return false
	}
	if to != nil && !t.Before(*to) {
		return false
	}
	return true
}

func createdAt(t time.Time) time.Time {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Truncate(time.Second)
}

func copyMetrics(m energy.DailyMetrics) energy.DailyMetrics {
	if m.HeatRateHHVBtuPerKWh != nil {
		v := *m.HeatRateHHVBtuPerKWh
		m.HeatRateHHVBtuPerKWh = &v
	}
	return m
}
