package application

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	energy "campus-energy/internal/energy/domain"
)

var rowDateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"1/2/2006",
	"01/02/2006",
}

var rowTimestampLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"1/2/2006 15:04",
	"1/2/2006 15:04:05",
}

// Reconciler writes canonical rows: daily rows upsert on (date, user), hourly rows append.
type Reconciler struct {
	daily  energy.DailyRepository
	hourly energy.HourlyRepository
	clock  energy.Clock
	userID int64
	logger *zap.Logger
}

// ReconcilerOption configures the reconciler.
type ReconcilerOption func(*Reconciler)

// WithUserID sets the owner of reconciled daily rows.
func WithUserID(id int64) ReconcilerOption {
	return func(r *Reconciler) {
		if id > 0 {
			r.userID = id
		}
	}
}

// WithClock overrides the clock used for created_at.
func WithClock(clock energy.Clock) ReconcilerOption {
	return func(r *Reconciler) {
		if clock != nil {
			r.clock = clock
		}
	}
}

// NewReconciler constructs the reconciler.
func NewReconciler(daily energy.DailyRepository, hourly energy.HourlyRepository, logger *zap.Logger, opts ...ReconcilerOption) (*Reconciler, error) {
	if daily == nil {
		return nil, errors.New("reconciler: nil daily repository")
	}
	if hourly == nil {
		return nil, errors.New("reconciler: nil hourly repository")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Reconciler{
		daily:  daily,
		hourly: hourly,
		clock:  energy.SystemClock{},
		userID: energy.DefaultUserID,
		logger: logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// UpsertDaily writes each row as its own statement and returns how many were written.
// Rows are validated before any write: a present but unparseable date rejects the
// whole batch with ErrInvalidDate. The first storage failure stops the batch;
// earlier rows stay committed.
func (r *Reconciler) UpsertDaily(ctx context.Context, rows []energy.CanonicalRow) (int, error) {
	type pending struct {
		index int
		rec   *energy.DailyEnergyRecord
	}
	now := r.clock.Now()
	batch := make([]pending, 0, len(rows))
	for i, row := range rows {
		rec, err := r.dailyRecord(i, row)
		if err != nil {
			return 0, err
		}
		if rec == nil {
			continue
		}
		rec.CreatedAt = now
		batch = append(batch, pending{index: i, rec: rec})
	}

	written := 0
	for _, p := range batch {
		if err := r.daily.Upsert(ctx, p.rec); err != nil {
			return written, &energy.PersistenceError{Table: energy.TableDaily, Row: p.index, Err: err}
		}
		written++
	}
	return written, nil
}

// InsertHourly appends each row and returns how many were written.
// The stored total is recomputed from the readings. A present but unparseable
// timestamp rejects the whole batch before anything is inserted.
func (r *Reconciler) InsertHourly(ctx context.Context, rows []energy.CanonicalRow) (int, error) {
	type pending struct {
		index int
		rec   *energy.HourlyBuildingRecord
	}
	now := r.clock.Now()
	batch := make([]pending, 0, len(rows))
	for i, row := range rows {
		rec, err := r.hourlyRecord(i, row)
		if err != nil {
			return 0, err
		}
		if rec == nil {
			continue
		}
		rec.CreatedAt = now
		batch = append(batch, pending{index: i, rec: rec})
	}

	written := 0
	for _, p := range batch {
		if err := r.hourly.Insert(ctx, p.rec); err != nil {
			return written, &energy.PersistenceError{Table: energy.TableHourly, Row: p.index, Err: err}
		}
		written++
	}
	return written, nil
}

// dailyRecord returns nil without error for a row with no date.
func (r *Reconciler) dailyRecord(index int, row energy.CanonicalRow) (*energy.DailyEnergyRecord, error) {
	raw := row[energy.FieldDateLocal]
	if isBlank(raw) {
		r.logger.Warn("daily row skipped: missing date", zap.Int("row", index))
		return nil, nil
	}
	date, ok := coerceTime(raw, rowDateLayouts)
	if !ok {
		return nil, fmt.Errorf("%w: daily row %d: %v", energy.ErrInvalidDate, index, raw)
	}

	num := func(field string) float64 {
		v, ok := coerceFloat(row[field])
		if !ok {
			r.logger.Debug("daily value defaulted to 0", zap.Int("row", index), zap.String("field", field))
		}
		return v
	}

	var heatRate *float64
	if v, ok := coerceFloat(row[energy.FieldHeatRateHHVBtuPerKWh]); ok {
		heatRate = &v
	}

	return &energy.DailyEnergyRecord{
		Date:   energy.DayStart(date),
		UserID: r.userID,
		Metrics: energy.DailyMetrics{
			TotalOutputFactorPercent: num(energy.FieldTotalOutputFactorPercent),
			ACEfficiencyLHVPercent:   num(energy.FieldACEfficiencyLHVPercent),
			HeatRateHHVBtuPerKWh:     heatRate,
			ElectricityOutKWh:        num(energy.FieldElectricityOutKWh),
			GasFlowInTherms:          num(energy.FieldGasFlowInTherms),
			CO2ReductionLbs:          num(energy.FieldCO2ReductionLbs),
			CO2ProductionLbs:         num(energy.FieldCO2ProductionLbs),
			NOxReductionLbs:          num(energy.FieldNOxReductionLbs),
			NOxProductionLbs:         num(energy.FieldNOxProductionLbs),
			SO2ReductionLbs:          num(energy.FieldSO2ReductionLbs),
			SO2ProductionLbs:         num(energy.FieldSO2ProductionLbs),
		},
	}, nil
}

// hourlyRecord returns nil without error for a row with no timestamp or no readings.
func (r *Reconciler) hourlyRecord(index int, row energy.CanonicalRow) (*energy.HourlyBuildingRecord, error) {
	raw := row[energy.FieldTimestamp]
	if isBlank(raw) {
		r.logger.Warn("hourly row skipped: missing timestamp", zap.Int("row", index))
		return nil, nil
	}
	ts, ok := coerceTime(raw, rowTimestampLayouts)
	if !ok {
		return nil, fmt.Errorf("%w: hourly row %d: %v", energy.ErrInvalidDate, index, raw)
	}

	readings := make(map[energy.Building]*float64, len(energy.Buildings))
	for _, b := range energy.Buildings {
		if v, ok := coerceFloat(row[string(b)]); ok {
			readings[b] = &v
		}
	}
	rec := energy.NewHourlyBuildingRecord(ts, readings)
	if !rec.HasReadings() {
		r.logger.Debug("hourly row skipped: no readings", zap.Int("row", index))
		return nil, nil
	}
	return &rec, nil
}

func isBlank(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	case time.Time:
		return val.IsZero()
	}
	return false
}

func coerceFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func coerceTime(v any, layouts []string) (time.Time, bool) {
	switch val := v.(type) {
	case time.Time:
		if val.IsZero() {
			return time.Time{}, false
		}
		return val.UTC(), true
	case string:
		s := strings.TrimSpace(val)
		for _, layout := range layouts {
			if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
				return t.UTC(), true
			}
		}
	}
	return time.Time{}, false
}
