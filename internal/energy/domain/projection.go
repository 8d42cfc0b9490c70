package energy

import (
	"time"

	"github.com/shopspring/decimal"
)

// DailyMetricAverages holds the mean of each daily metric over a window.
// Metrics without contributing rows are zero.
type DailyMetricAverages struct {
	TotalOutputFactorPercent float64 `json:"total_output_factor_percent"`
	ACEfficiencyLHVPercent   float64 `json:"ac_efficiency_lhv_percent"`
	HeatRateHHVBtuPerKWh     float64 `json:"heat_rate_hhv_btu_per_kwh"`
	ElectricityOutKWh        float64 `json:"electricity_out_kwh"`
	GasFlowInTherms          float64 `json:"gas_flow_in_therms"`
	CO2ReductionLbs          float64 `json:"co2_reduction_lbs"`
	CO2ProductionLbs         float64 `json:"co2_production_lbs"`
	NOxReductionLbs          float64 `json:"nox_reduction_lbs"`
	NOxProductionLbs         float64 `json:"nox_production_lbs"`
	SO2ReductionLbs          float64 `json:"so2_reduction_lbs"`
	SO2ProductionLbs         float64 `json:"so2_production_lbs"`
}

// Values returns the averages keyed by canonical field name.
func (a DailyMetricAverages) Values() map[string]float64 {
	return map[string]float64{
		FieldTotalOutputFactorPercent: a.TotalOutputFactorPercent,
		FieldACEfficiencyLHVPercent:   a.ACEfficiencyLHVPercent,
		FieldHeatRateHHVBtuPerKWh:     a.HeatRateHHVBtuPerKWh,
		FieldElectricityOutKWh:        a.ElectricityOutKWh,
		FieldGasFlowInTherms:          a.GasFlowInTherms,
		FieldCO2ReductionLbs:          a.CO2ReductionLbs,
		FieldCO2ProductionLbs:         a.CO2ProductionLbs,
		FieldNOxReductionLbs:          a.NOxReductionLbs,
		FieldNOxProductionLbs:         a.NOxProductionLbs,
		FieldSO2ReductionLbs:          a.SO2ReductionLbs,
		FieldSO2ProductionLbs:         a.SO2ProductionLbs,
	}
}

// HasData reports whether any average is non-zero.
func (a DailyMetricAverages) HasData() bool {
	for _, v := range a.Values() {
		if v != 0 {
			return true
		}
	}
	return false
}

// FuelEfficiencyPoint is one day of gas input against electrical output.
type FuelEfficiencyPoint struct {
	Date              time.Time
	GasFlowInTherms   float64
	ElectricityOutKWh float64
}

// DailyOutput is the electrical output of one daily record.
type DailyOutput struct {
	Date              time.Time
	ElectricityOutKWh float64
}

// HourlyTotal is the derived total of one hourly record.
type HourlyTotal struct {
	Timestamp time.Time
	TotalKWh  decimal.Decimal
}

// BucketTotal is the sum of hourly totals inside one calendar bucket.
type BucketTotal struct {
	Start    time.Time
	TotalKWh decimal.Decimal
}

// BuildingValue is a single non-null building reading.
type BuildingValue struct {
	Timestamp time.Time
	Value     float64
}
