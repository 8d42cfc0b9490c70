package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	energy "campus-energy/internal/energy/domain"
)

const hourlyTableName = "athena_hourly_output"

// HourlyRepository persists hourly per-building solar records. It never updates rows.
type HourlyRepository struct {
	db     *sqlx.DB
	driver string
	table  string
}

// NewHourlyRepository creates a repository over the store's handle.
func NewHourlyRepository(store *Store) *HourlyRepository {
	return &HourlyRepository{db: store.DB(), driver: store.Driver(), table: hourlyTableName}
}

var buildingColumnList = strings.Join(lo.Map(energy.Buildings, func(b energy.Building, _ int) string {
	return b.Column()
}), ", ")

// Insert appends rec. The stored total is always recomputed from the readings.
func (r *HourlyRepository) Insert(ctx context.Context, rec *energy.HourlyBuildingRecord) error {
	if rec == nil {
		return errors.New("hourly repo: nil record")
	}
	if rec.Timestamp.IsZero() {
		return energy.ErrInvalidDate
	}

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(energy.Buildings)+3), ", ")
	query := fmt.Sprintf(`
INSERT INTO %s (timestamp, %s, total_kwh, created_at)
VALUES (%s)`, r.table, buildingColumnList, placeholders)

	args := make([]any, 0, len(energy.Buildings)+3)
	args = append(args, rec.Timestamp.UTC().Truncate(time.Second))
	for _, b := range energy.Buildings {
		args = append(args, floatOrNil(rec.Readings[b]))
	}
	args = append(args, energy.SumReadings(rec.Readings), createdAt.UTC().Truncate(time.Second))

	_, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...)
	return wrapDriverError("insert hourly", err)
}

// LatestReadings returns up to limit non-null readings for b, newest first.
func (r *HourlyRepository) LatestReadings(ctx context.Context, b energy.Building, limit int) ([]energy.BuildingValue, error) {
	if _, err := energy.ParseBuilding(string(b)); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 24
	}

	col := b.Column()
	query := fmt.Sprintf(`
SELECT timestamp, %s
FROM %s
WHERE %s IS NOT NULL
ORDER BY timestamp DESC, id DESC
LIMIT ?`, col, r.table, col)

	rows, err := r.db.QueryContext(ctx, r.db.Rebind(query), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []energy.BuildingValue
	for rows.Next() {
		var v energy.BuildingValue
		if err := rows.Scan(&v.Timestamp, &v.Value); err != nil {
			return nil, err
		}
		v.Timestamp = v.Timestamp.UTC()
		result = append(result, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// bucketKeyFormat is the layout of the bucket key the queries below render.
const bucketKeyFormat = "2006-01-02"

// bucketExpr renders the UTC bucket start of timestamp as YYYY-MM-DD.
func (r *HourlyRepository) bucketExpr(bucket energy.Bucket) (string, error) {
	switch {
	case r.driver == DriverPostgres && bucket == energy.BucketDay:
		return `to_char(timestamp AT TIME ZONE 'UTC', 'YYYY-MM-DD')`, nil
	case r.driver == DriverPostgres && bucket == energy.BucketWeek:
		return `to_char(date_trunc('week', timestamp AT TIME ZONE 'UTC'), 'YYYY-MM-DD')`, nil
	case bucket == energy.BucketDay:
		return `date(timestamp)`, nil
	case bucket == energy.BucketWeek:
		// next Sunday (or today), then back to its Monday
		return `date(timestamp, 'weekday 0', '-6 days')`, nil
	default:
		return "", fmt.Errorf("hourly repo: unknown bucket %q", string(bucket))
	}
}

// SumTotalsBy sums total_kwh per calendar bucket with from <= timestamp < to, oldest first.
func (r *HourlyRepository) SumTotalsBy(ctx context.Context, bucket energy.Bucket, from, to *time.Time) ([]energy.BucketTotal, error) {
	expr, err := r.bucketExpr(bucket)
	if err != nil {
		return nil, err
	}
	where, args := rangeClause("timestamp", from, to)
	query := fmt.Sprintf(`
SELECT %s AS bucket_start, CAST(SUM(total_kwh) AS TEXT)
FROM %s%s
GROUP BY bucket_start
ORDER BY bucket_start ASC`, expr, r.table, where)

	rows, err := r.db.QueryContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []energy.BucketTotal
	for rows.Next() {
		var key, raw string
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, err
		}
		start, err := time.ParseInLocation(bucketKeyFormat, key, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("hourly repo: parse bucket %q: %w", key, err)
		}
		total, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("hourly repo: parse sum %q: %w", raw, err)
		}
		result = append(result, energy.BucketTotal{Start: start, TotalKWh: total})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// SumTotalSince sums total_kwh for timestamp >= since, or over all rows when since is nil.
func (r *HourlyRepository) SumTotalSince(ctx context.Context, since *time.Time) (float64, error) {
	where, args := rangeClause("timestamp", since, nil)
	query := fmt.Sprintf(`SELECT CAST(SUM(total_kwh) AS DOUBLE PRECISION) FROM %s%s`, r.table, where)

	var sum sql.NullFloat64
	if err := r.db.QueryRowContext(ctx, r.db.Rebind(query), args...).Scan(&sum); err != nil {
		return 0, err
	}
	return sum.Float64, nil
}

// SumByBuilding returns the all-time sum of each building column; empty columns sum to zero.
func (r *HourlyRepository) SumByBuilding(ctx context.Context) (map[energy.Building]float64, error) {
	sums := lo.Map(energy.Buildings, func(b energy.Building, _ int) string {
		return fmt.Sprintf("SUM(%s)", b.Column())
	})
	query := fmt.Sprintf(`SELECT %s FROM %s`, strings.Join(sums, ", "), r.table)

	values := make([]sql.NullFloat64, len(energy.Buildings))
	dest := make([]any, len(values))
	for i := range values {
		dest[i] = &values[i]
	}
	if err := r.db.QueryRowContext(ctx, query).Scan(dest...); err != nil {
		return nil, err
	}

	result := make(map[energy.Building]float64, len(energy.Buildings))
	for i, b := range energy.Buildings {
		result[b] = values[i].Float64
	}
	return result, nil
}

// LatestCreatedAt returns created_at of the most recently inserted row, or nil when empty.
func (r *HourlyRepository) LatestCreatedAt(ctx context.Context) (*time.Time, error) {
	return latestCreatedAt(ctx, r.db, r.table)
}

// Get loads one row by id; used by tests and diagnostics.
func (r *HourlyRepository) Get(ctx context.Context, id int64) (*energy.HourlyBuildingRecord, error) {
	query := fmt.Sprintf(`
SELECT id, timestamp, %s, CAST(total_kwh AS TEXT), created_at
FROM %s
WHERE id = ?`, buildingColumnList, r.table)

	rec, err := scanHourly(r.db.QueryRowContext(ctx, r.db.Rebind(query), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, energy.ErrNoData
	}
	return rec, err
}

func scanHourly(row scanner) (*energy.HourlyBuildingRecord, error) {
	var (
		id        int64
		ts        time.Time
		raw       string
		createdAt time.Time
	)
	readings := make([]sql.NullFloat64, len(energy.Buildings))
	dest := []any{&id, &ts}
	for i := range readings {
		dest = append(dest, &readings[i])
	}
	dest = append(dest, &raw, &createdAt)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	total, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, fmt.Errorf("hourly repo: parse total_kwh %q: %w", raw, err)
	}
	rec := &energy.HourlyBuildingRecord{
		ID:        id,
		Timestamp: ts.UTC(),
		Readings:  make(map[energy.Building]*float64, len(energy.Buildings)),
		TotalKWh:  total,
		CreatedAt: createdAt.UTC(),
	}
	for i, b := range energy.Buildings {
		rec.Readings[b] = nullFloatPtr(readings[i])
	}
	return rec, nil
}
