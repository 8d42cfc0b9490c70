package energy

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultUserID owns rows ingested without an explicit owner.
const DefaultUserID int64 = 1

// DailyMetrics holds the eleven numeric fields of a daily fuel-cell record.
type DailyMetrics struct {
	TotalOutputFactorPercent float64
	ACEfficiencyLHVPercent   float64
	HeatRateHHVBtuPerKWh     *float64
	ElectricityOutKWh        float64
	GasFlowInTherms          float64
	CO2ReductionLbs          float64
	CO2ProductionLbs         float64
	NOxReductionLbs          float64
	NOxProductionLbs         float64
	SO2ReductionLbs          float64
	SO2ProductionLbs         float64
}

// DailyEnergyRecord is one day of fuel-cell output, unique on (Date, UserID).
type DailyEnergyRecord struct {
	ID        int64
	Date      time.Time
	UserID    int64
	Metrics   DailyMetrics
	CreatedAt time.Time
}

// HourlyBuildingRecord is one hour of per-building solar output.
type HourlyBuildingRecord struct {
	ID        int64
	Timestamp time.Time
	Readings  map[Building]*float64
	TotalKWh  decimal.Decimal
	CreatedAt time.Time
}

// NewHourlyBuildingRecord builds a record and derives its total from the readings.
func NewHourlyBuildingRecord(ts time.Time, readings map[Building]*float64) HourlyBuildingRecord {
	copied := make(map[Building]*float64, len(Buildings))
	for _, b := range Buildings {
		if v, ok := readings[b]; ok && v != nil {
			val := *v
			copied[b] = &val
		} else {
			copied[b] = nil
		}
	}
	return HourlyBuildingRecord{
		Timestamp: ts,
		Readings:  copied,
		TotalKWh:  SumReadings(copied),
	}
}

// HasReadings reports whether at least one building has a value.
func (r HourlyBuildingRecord) HasReadings() bool {
	for _, v := range r.Readings {
		if v != nil {
			return true
		}
	}
	return false
}

// SumReadings adds the non-nil readings with exact decimal arithmetic.
func SumReadings(readings map[Building]*float64) decimal.Decimal {
	total := decimal.Zero
	for _, b := range Buildings {
		if v := readings[b]; v != nil {
			total = total.Add(decimal.NewFromFloat(*v))
		}
	}
	return total
}

// FormatKWh renders a total with trailing zeros trimmed, e.g. "132.3".
func FormatKWh(d decimal.Decimal) string {
	return d.String()
}
