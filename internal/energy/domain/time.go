package energy

import (
	"fmt"
	"time"
)

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// FixedClock always returns T. Useful in tests and one-off runs.
type FixedClock struct{ T time.Time }

// Now returns the fixed instant.
func (c FixedClock) Now() time.Time { return c.T }

// DayStart truncates t to 00:00 UTC of its calendar day.
func DayStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// WeekStart truncates t to Monday 00:00 UTC of its ISO week.
func WeekStart(t time.Time) time.Time {
	day := DayStart(t)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

// Bucket is a calendar grouping for summed hourly totals.
type Bucket string

const (
	BucketDay  Bucket = "day"
	BucketWeek Bucket = "week"
)

// Start truncates t to the start of its bucket.
func (b Bucket) Start(t time.Time) (time.Time, error) {
	switch b {
	case BucketDay:
		return DayStart(t), nil
	case BucketWeek:
		return WeekStart(t), nil
	default:
		return time.Time{}, fmt.Errorf("energy: unknown bucket %q", string(b))
	}
}
