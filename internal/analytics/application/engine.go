package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	energy "campus-energy/internal/energy/domain"
	"campus-energy/internal/observability/metrics"
)

const (
	thirtyDayWindow      = 30 * 24 * time.Hour
	buildingSeriesLength = 24
)

// FuelEfficiencyPoint is one point of the gas-in versus output scatter series.
type FuelEfficiencyPoint struct {
	DateLocal         time.Time `json:"date_local"`
	GasFlowInTherms   float64   `json:"gas_flow_in_therms"`
	ElectricityOutKWh float64   `json:"electricity_out_kwh"`
}

// BuildingReading is one hourly reading rendered with five decimals.
type BuildingReading struct {
	Timestamp    time.Time `json:"timestamp"`
	EnergyOutput string    `json:"energy_output"`
}

// WeeklyTotal holds both sources' sums for one Monday-start week.
// WeekStart is nil only on the placeholder returned when there is no data.
type WeeklyTotal struct {
	WeekStart        *time.Time `json:"week_start"`
	TotalFuelcellKWh float64    `json:"total_fuelcell_kwh"`
	TotalSolarKWh    float64    `json:"total_solar_kwh"`
}

// DailyTotal holds both sources' sums for one day of a week, fixed at two decimals.
type DailyTotal struct {
	DayName     string `json:"day_name"`
	DayNumber   int    `json:"day_number"`
	SolarKWh    string `json:"solar_kwh"`
	FuelcellKWh string `json:"fuelcell_kwh"`
}

// TreeTotals compares all-time output with output inside a trailing period.
type TreeTotals struct {
	Period         string  `json:"period"`
	LifetimeEnergy float64 `json:"lifetime_energy"`
	PeriodEnergy   float64 `json:"period_energy"`
}

// SiteTotal is one building's all-time solar output.
type SiteTotal struct {
	Site     energy.Building `json:"site"`
	TotalKWh float64         `json:"total_kwh"`
}

// Engine computes read-only aggregates over the daily and hourly tables.
// Every call recomputes from storage.
type Engine struct {
	daily  energy.DailyRepository
	hourly energy.HourlyRepository
	clock  energy.Clock
	logger *zap.Logger
}

// NewEngine constructs the aggregation engine.
func NewEngine(daily energy.DailyRepository, hourly energy.HourlyRepository, clock energy.Clock, logger *zap.Logger) (*Engine, error) {
	if daily == nil {
		return nil, errors.New("aggregation engine: nil daily repository")
	}
	if hourly == nil {
		return nil, errors.New("aggregation engine: nil hourly repository")
	}
	if clock == nil {
		clock = energy.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{daily: daily, hourly: hourly, clock: clock, logger: logger}, nil
}

func (e *Engine) observe(op string, start time.Time, err error) {
	metrics.ObserveAggregation(op, metrics.Result(err), time.Since(start))
	if err != nil && !errors.Is(err, energy.ErrNoData) && !errors.Is(err, energy.ErrInvalidBuilding) {
		e.logger.Error("aggregation failed", zap.String("operation", op), zap.Error(err))
	}
}

// ThirtyDayTotals averages every daily metric over rows created in the trailing 30 days.
// An empty window yields an all-zero result.
func (e *Engine) ThirtyDayTotals(ctx context.Context) (avg energy.DailyMetricAverages, err error) {
	defer func(start time.Time) { e.observe("thirty_day_totals", start, err) }(time.Now())

	since := e.clock.Now().Add(-thirtyDayWindow)
	avg, err = e.daily.AverageMetricsSince(ctx, since)
	if err != nil {
		return energy.DailyMetricAverages{}, fmt.Errorf("thirty day totals: %w", err)
	}
	return avg, nil
}

// FuelEfficiencySeries returns every day's gas input and output by date ascending.
// An empty table is ErrNoData.
func (e *Engine) FuelEfficiencySeries(ctx context.Context) (points []FuelEfficiencyPoint, err error) {
	defer func(start time.Time) { e.observe("fuel_efficiency", start, err) }(time.Now())

	rows, err := e.daily.ListFuelEfficiency(ctx)
	if err != nil {
		return nil, fmt.Errorf("fuel efficiency: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("fuel efficiency: %w", energy.ErrNoData)
	}
	return lo.Map(rows, func(p energy.FuelEfficiencyPoint, _ int) FuelEfficiencyPoint {
		return FuelEfficiencyPoint{
			DateLocal:         p.Date,
			GasFlowInTherms:   p.GasFlowInTherms,
			ElectricityOutKWh: p.ElectricityOutKWh,
		}
	}), nil
}

// BuildingSeries returns the latest non-null readings of one building, newest first.
// The name is validated before any query is issued.
func (e *Engine) BuildingSeries(ctx context.Context, name string) (series []BuildingReading, err error) {
	defer func(start time.Time) { e.observe("building_series", start, err) }(time.Now())

	b, err := energy.ParseBuilding(name)
	if err != nil {
		return nil, err
	}
	values, err := e.hourly.LatestReadings(ctx, b, buildingSeriesLength)
	if err != nil {
		return nil, fmt.Errorf("building series %s: %w", b, err)
	}
	series = make([]BuildingReading, 0, len(values))
	for _, v := range values {
		series = append(series, BuildingReading{
			Timestamp:    v.Timestamp,
			EnergyOutput: fmt.Sprintf("%.5f", v.Value),
		})
	}
	return series, nil
}

// WeeklyCombined sums both tables per Monday-start week and joins the weeks so that a
// week present in only one table still appears. No data at all yields one placeholder.
func (e *Engine) WeeklyCombined(ctx context.Context) (weeks []WeeklyTotal, err error) {
	defer func(start time.Time) { e.observe("weekly_combined", start, err) }(time.Now())

	outputs, err := e.daily.ListOutputs(ctx, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("weekly combined: %w", err)
	}
	totals, err := e.hourly.SumTotalsBy(ctx, energy.BucketWeek, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("weekly combined: %w", err)
	}

	fuel := bucketOutputs(outputs, energy.WeekStart)
	solar := totalsByStart(totals)

	keys := lo.Union(lo.Keys(fuel), lo.Keys(solar))
	if len(keys) == 0 {
		return []WeeklyTotal{{WeekStart: nil}}, nil
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Before(keys[j]) })

	weeks = make([]WeeklyTotal, 0, len(keys))
	for _, week := range keys {
		ws := week
		weeks = append(weeks, WeeklyTotal{
			WeekStart:        &ws,
			TotalFuelcellKWh: fuel[week].InexactFloat64(),
			TotalSolarKWh:    solar[week].InexactFloat64(),
		})
	}
	return weeks, nil
}

// DailyWithinWeek returns exactly seven days starting at weekStart with both
// sources' same-day sums. Days without data report "0.00".
func (e *Engine) DailyWithinWeek(ctx context.Context, weekStart time.Time) (days []DailyTotal, err error) {
	defer func(start time.Time) { e.observe("daily_within_week", start, err) }(time.Now())

	from := energy.DayStart(weekStart)
	to := from.AddDate(0, 0, 7)

	outputs, err := e.daily.ListOutputs(ctx, &from, &to)
	if err != nil {
		return nil, fmt.Errorf("daily within week: %w", err)
	}
	totals, err := e.hourly.SumTotalsBy(ctx, energy.BucketDay, &from, &to)
	if err != nil {
		return nil, fmt.Errorf("daily within week: %w", err)
	}

	fuel := bucketOutputs(outputs, energy.DayStart)
	solar := totalsByStart(totals)

	days = make([]DailyTotal, 0, 7)
	for i := 0; i < 7; i++ {
		d := from.AddDate(0, 0, i)
		days = append(days, DailyTotal{
			DayName:     d.Format("Mon"),
			DayNumber:   i + 1,
			SolarKWh:    solar[d].StringFixed(2),
			FuelcellKWh: fuel[d].StringFixed(2),
		})
	}
	return days, nil
}

// LifetimeVsPeriod sums both tables all-time and inside the named trailing period.
// Unknown period names use 30 days; "lifetime" makes both values equal.
func (e *Engine) LifetimeVsPeriod(ctx context.Context, period string) (totals TreeTotals, err error) {
	defer func(start time.Time) { e.observe("lifetime_vs_period", start, err) }(time.Now())

	p := energy.ResolvePeriod(period)
	lifetime, err := e.combinedSince(ctx, nil)
	if err != nil {
		return TreeTotals{}, fmt.Errorf("lifetime energy: %w", err)
	}

	totals = TreeTotals{Period: p.Name, LifetimeEnergy: lifetime, PeriodEnergy: lifetime}
	if p.Lifetime {
		return totals, nil
	}

	totals.PeriodEnergy, err = e.combinedSince(ctx, p.Since(e.clock.Now()))
	if err != nil {
		return TreeTotals{}, fmt.Errorf("period energy: %w", err)
	}
	return totals, nil
}

func (e *Engine) combinedSince(ctx context.Context, since *time.Time) (float64, error) {
	solar, err := e.hourly.SumTotalSince(ctx, since)
	if err != nil {
		return 0, err
	}
	fuel, err := e.daily.SumOutputSince(ctx, since)
	if err != nil {
		return 0, err
	}
	return decimal.NewFromFloat(solar).Add(decimal.NewFromFloat(fuel)).InexactFloat64(), nil
}

// SolarSiteTotals returns each building's all-time output in building order.
func (e *Engine) SolarSiteTotals(ctx context.Context) (sites []SiteTotal, err error) {
	defer func(start time.Time) { e.observe("solar_site_totals", start, err) }(time.Now())

	sums, err := e.hourly.SumByBuilding(ctx)
	if err != nil {
		return nil, fmt.Errorf("solar site totals: %w", err)
	}
	return lo.Map(energy.Buildings, func(b energy.Building, _ int) SiteTotal {
		return SiteTotal{Site: b, TotalKWh: sums[b]}
	}), nil
}

func bucketOutputs(outputs []energy.DailyOutput, bucket func(time.Time) time.Time) map[time.Time]decimal.Decimal {
	sums := make(map[time.Time]decimal.Decimal)
	for _, o := range outputs {
		key := bucket(o.Date)
		sums[key] = sums[key].Add(decimal.NewFromFloat(o.ElectricityOutKWh))
	}
	return sums
}

func totalsByStart(totals []energy.BucketTotal) map[time.Time]decimal.Decimal {
	return lo.SliceToMap(totals, func(t energy.BucketTotal) (time.Time, decimal.Decimal) {
		return t.Start.UTC(), t.TotalKWh
	})
}
