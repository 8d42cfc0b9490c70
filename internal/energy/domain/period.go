package energy

import (
	"strings"
	"time"
)

// Period is a trailing window used by the lifetime-versus-period totals.
type Period struct {
	Name     string
	Days     int
	Lifetime bool
}

const defaultPeriodDays = 30

var periods = map[string]Period{
	"1 week":   {Name: "1 week", Days: 7},
	"1 month":  {Name: "1 month", Days: 30},
	"3 months": {Name: "3 months", Days: 90},
	"6 months": {Name: "6 months", Days: 180},
	"1 year":   {Name: "1 year", Days: 365},
	"lifetime": {Name: "lifetime", Lifetime: true},
}

// ResolvePeriod maps a period name to its window. Unknown names fall back to 30 days.
func ResolvePeriod(name string) Period {
	key := strings.ToLower(strings.TrimSpace(name))
	if p, ok := periods[key]; ok {
		return p
	}
	return Period{Name: "1 month", Days: defaultPeriodDays}
}

// Since returns the inclusive lower bound of the window relative to today, or nil for lifetime.
func (p Period) Since(now time.Time) *time.Time {
	if p.Lifetime {
		return nil
	}
	since := DayStart(now).AddDate(0, 0, -p.Days)
	return &since
}
