package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	energy "campus-energy/internal/energy/domain"
)

const dailyTableName = "energy_daily_data"

// DailyRepository persists daily fuel-cell records.
type DailyRepository struct {
	db    *sqlx.DB
	table string
}

// NewDailyRepository creates a repository over the store's handle.
func NewDailyRepository(store *Store) *DailyRepository {
	return &DailyRepository{db: store.DB(), table: dailyTableName}
}

// Upsert inserts rec or overwrites every metric of the existing (date_local, user_id) row.
// created_at keeps the first insertion time.
func (r *DailyRepository) Upsert(ctx context.Context, rec *energy.DailyEnergyRecord) error {
	if rec == nil {
		return errors.New("daily repo: nil record")
	}
	if rec.Date.IsZero() {
		return energy.ErrInvalidDate
	}

	query := fmt.Sprintf(`
INSERT INTO %s (
	date_local,
	user_id,
	total_output_factor_percent,
	ac_efficiency_lhv_percent,
	heat_rate_hhv_btu_per_kwh,
	electricity_out_kwh,
	gas_flow_in_therms,
	co2_reduction_lbs,
	co2_production_lbs,
	nox_reduction_lbs,
	nox_production_lbs,
	so2_reduction_lbs,
	so2_production_lbs,
	created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (date_local, user_id) DO UPDATE SET
	total_output_factor_percent = excluded.total_output_factor_percent,
	ac_efficiency_lhv_percent = excluded.ac_efficiency_lhv_percent,
	heat_rate_hhv_btu_per_kwh = excluded.heat_rate_hhv_btu_per_kwh,
	electricity_out_kwh = excluded.electricity_out_kwh,
	gas_flow_in_therms = excluded.gas_flow_in_therms,
	co2_reduction_lbs = excluded.co2_reduction_lbs,
	co2_production_lbs = excluded.co2_production_lbs,
	nox_reduction_lbs = excluded.nox_reduction_lbs,
	nox_production_lbs = excluded.nox_production_lbs,
	so2_reduction_lbs = excluded.so2_reduction_lbs,
	so2_production_lbs = excluded.so2_production_lbs`, r.table)

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	m := rec.Metrics
	_, err := r.db.ExecContext(ctx, r.db.Rebind(query),
		energy.DayStart(rec.Date),
		rec.UserID,
		m.TotalOutputFactorPercent,
		m.ACEfficiencyLHVPercent,
		floatOrNil(m.HeatRateHHVBtuPerKWh),
		m.ElectricityOutKWh,
		m.GasFlowInTherms,
		m.CO2ReductionLbs,
		m.CO2ProductionLbs,
		m.NOxReductionLbs,
		m.NOxProductionLbs,
		m.SO2ReductionLbs,
		m.SO2ProductionLbs,
		createdAt.UTC().Truncate(time.Second),
	)
	return wrapDriverError("upsert daily", err)
}

type dailyAverageRow struct {
	TotalOutputFactorPercent sql.NullFloat64 `db:"total_output_factor_percent"`
	ACEfficiencyLHVPercent   sql.NullFloat64 `db:"ac_efficiency_lhv_percent"`
	HeatRateHHVBtuPerKWh     sql.NullFloat64 `db:"heat_rate_hhv_btu_per_kwh"`
	ElectricityOutKWh        sql.NullFloat64 `db:"electricity_out_kwh"`
	GasFlowInTherms          sql.NullFloat64 `db:"gas_flow_in_therms"`
	CO2ReductionLbs          sql.NullFloat64 `db:"co2_reduction_lbs"`
	CO2ProductionLbs         sql.NullFloat64 `db:"co2_production_lbs"`
	NOxReductionLbs          sql.NullFloat64 `db:"nox_reduction_lbs"`
	NOxProductionLbs         sql.NullFloat64 `db:"nox_production_lbs"`
	SO2ReductionLbs          sql.NullFloat64 `db:"so2_reduction_lbs"`
	SO2ProductionLbs         sql.NullFloat64 `db:"so2_production_lbs"`
}

// AverageMetricsSince averages every metric over rows created at or after since.
// NULL averages come back as zero.
func (r *DailyRepository) AverageMetricsSince(ctx context.Context, since time.Time) (energy.DailyMetricAverages, error) {
	query := fmt.Sprintf(`
SELECT
	AVG(total_output_factor_percent) AS total_output_factor_percent,
	AVG(ac_efficiency_lhv_percent) AS ac_efficiency_lhv_percent,
	AVG(heat_rate_hhv_btu_per_kwh) AS heat_rate_hhv_btu_per_kwh,
	AVG(electricity_out_kwh) AS electricity_out_kwh,
	AVG(gas_flow_in_therms) AS gas_flow_in_therms,
	AVG(co2_reduction_lbs) AS co2_reduction_lbs,
	AVG(co2_production_lbs) AS co2_production_lbs,
	AVG(nox_reduction_lbs) AS nox_reduction_lbs,
	AVG(nox_production_lbs) AS nox_production_lbs,
	AVG(so2_reduction_lbs) AS so2_reduction_lbs,
	AVG(so2_production_lbs) AS so2_production_lbs
FROM %s
WHERE created_at >= ?`, r.table)

	var row dailyAverageRow
	if err := r.db.GetContext(ctx, &row, r.db.Rebind(query), since.UTC()); err != nil {
		return energy.DailyMetricAverages{}, err
	}
	return energy.DailyMetricAverages{
		TotalOutputFactorPercent: row.TotalOutputFactorPercent.Float64,
		ACEfficiencyLHVPercent:   row.ACEfficiencyLHVPercent.Float64,
		HeatRateHHVBtuPerKWh:     row.HeatRateHHVBtuPerKWh.Float64,
		ElectricityOutKWh:        row.ElectricityOutKWh.Float64,
		GasFlowInTherms:          row.GasFlowInTherms.Float64,
		CO2ReductionLbs:          row.CO2ReductionLbs.Float64,
		CO2ProductionLbs:         row.CO2ProductionLbs.Float64,
		NOxReductionLbs:          row.NOxReductionLbs.Float64,
		NOxProductionLbs:         row.NOxProductionLbs.Float64,
		SO2ReductionLbs:          row.SO2ReductionLbs.Float64,
		SO2ProductionLbs:         row.SO2ProductionLbs.Float64,
	}, nil
}

// ListFuelEfficiency returns every day's gas input and electrical output by date ascending.
func (r *DailyRepository) ListFuelEfficiency(ctx context.Context) ([]energy.FuelEfficiencyPoint, error) {
	query := fmt.Sprintf(`
SELECT date_local, gas_flow_in_therms, electricity_out_kwh
FROM %s
ORDER BY date_local ASC, id ASC`, r.table)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []energy.FuelEfficiencyPoint
	for rows.Next() {
		var p energy.FuelEfficiencyPoint
		if err := rows.Scan(&p.Date, &p.GasFlowInTherms, &p.ElectricityOutKWh); err != nil {
			return nil, err
		}
		p.Date = p.Date.UTC()
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// ListOutputs returns (date, electricity_out_kwh) pairs with from <= date < to.
// A nil bound is open.
func (r *DailyRepository) ListOutputs(ctx context.Context, from, to *time.Time) ([]energy.DailyOutput, error) {
	where, args := rangeClause("date_local", from, to)
	query := fmt.Sprintf(`
SELECT date_local, electricity_out_kwh
FROM %s%s
ORDER BY date_local ASC, id ASC`, r.table, where)

	rows, err := r.db.QueryContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []energy.DailyOutput
	for rows.Next() {
		var o energy.DailyOutput
		if err := rows.Scan(&o.Date, &o.ElectricityOutKWh); err != nil {
			return nil, err
		}
		o.Date = o.Date.UTC()
		result = append(result, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// SumOutputSince sums electricity_out_kwh for date_local >= since, or over all rows when since is nil.
func (r *DailyRepository) SumOutputSince(ctx context.Context, since *time.Time) (float64, error) {
	where, args := rangeClause("date_local", since, nil)
	query := fmt.Sprintf(`SELECT SUM(electricity_out_kwh) FROM %s%s`, r.table, where)

	var sum sql.NullFloat64
	if err := r.db.QueryRowContext(ctx, r.db.Rebind(query), args...).Scan(&sum); err != nil {
		return 0, err
	}
	return sum.Float64, nil
}

// LatestCreatedAt returns created_at of the most recently inserted row, or nil when empty.
func (r *DailyRepository) LatestCreatedAt(ctx context.Context) (*time.Time, error) {
	return latestCreatedAt(ctx, r.db, r.table)
}

func latestCreatedAt(ctx context.Context, db *sqlx.DB, table string) (*time.Time, error) {
	query := fmt.Sprintf(`SELECT created_at FROM %s ORDER BY id DESC LIMIT 1`, table)

	var ts time.Time
	err := db.QueryRowContext(ctx, query).Scan(&ts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	ts = ts.UTC()
	return &ts, nil
}

// FindByDate loads the record for (date, userID); a missing row is ErrNoData.
func (r *DailyRepository) FindByDate(ctx context.Context, date time.Time, userID int64) (*energy.DailyEnergyRecord, error) {
	query := fmt.Sprintf(`
SELECT
	id,
	date_local,
	user_id,
	total_output_factor_percent,
	ac_efficiency_lhv_percent,
	heat_rate_hhv_btu_per_kwh,
	electricity_out_kwh,
	gas_flow_in_therms,
	co2_reduction_lbs,
	co2_production_lbs,
	nox_reduction_lbs,
	nox_production_lbs,
	so2_reduction_lbs,
	so2_production_lbs,
	created_at
FROM %s
WHERE date_local = ?
	AND user_id = ?
LIMIT 1`, r.table)

	rec, err := scanDaily(r.db.QueryRowContext(ctx, r.db.Rebind(query), energy.DayStart(date), userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, energy.ErrNoData
	}
	return rec, err
}

func scanDaily(row scanner) (*energy.DailyEnergyRecord, error) {
	var (
		rec      energy.DailyEnergyRecord
		heatRate sql.NullFloat64
	)
	m := &rec.Metrics
	if err := row.Scan(
		&rec.ID,
		&rec.Date,
		&rec.UserID,
		&m.TotalOutputFactorPercent,
		&m.ACEfficiencyLHVPercent,
		&heatRate,
		&m.ElectricityOutKWh,
		&m.GasFlowInTherms,
		&m.CO2ReductionLbs,
		&m.CO2ProductionLbs,
		&m.NOxReductionLbs,
		&m.NOxProductionLbs,
		&m.SO2ReductionLbs,
		&m.SO2ProductionLbs,
		&rec.CreatedAt,
	); err != nil {
		return nil, err
	}
	m.HeatRateHHVBtuPerKWh = nullFloatPtr(heatRate)
	rec.Date = rec.Date.UTC()
	rec.CreatedAt = rec.CreatedAt.UTC()
	return &rec, nil
}
