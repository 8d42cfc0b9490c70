package energy

import "fmt"

// SourceKind identifies the layout of an uploaded tabular file.
type SourceKind string

const (
	SourceDailyXLSX SourceKind = "daily-xlsx"
	SourceHourlyCSV SourceKind = "hourly-csv"
)

// ParseSourceKind validates a source kind string.
func ParseSourceKind(value string) (SourceKind, error) {
	switch SourceKind(value) {
	case SourceDailyXLSX, SourceHourlyCSV:
		return SourceKind(value), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSourceKind, value)
	}
}

// Table identifies one of the two time-series tables.
type Table string

const (
	TableDaily  Table = "daily"
	TableHourly Table = "hourly"
)

// ParseTable validates a table identity.
func ParseTable(value string) (Table, error) {
	switch Table(value) {
	case TableDaily, TableHourly:
		return Table(value), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownTable, value)
	}
}

// Canonical field names shared by the normalizer, reconciler and storage columns.
const (
	FieldDateLocal                = "date_local"
	FieldTotalOutputFactorPercent = "total_output_factor_percent"
	FieldACEfficiencyLHVPercent   = "ac_efficiency_lhv_percent"
	FieldHeatRateHHVBtuPerKWh     = "heat_rate_hhv_btu_per_kwh"
	FieldElectricityOutKWh        = "electricity_out_kwh"
	FieldGasFlowInTherms          = "gas_flow_in_therms"
	FieldCO2ReductionLbs          = "co2_reduction_lbs"
	FieldCO2ProductionLbs         = "co2_production_lbs"
	FieldNOxReductionLbs          = "nox_reduction_lbs"
	FieldNOxProductionLbs         = "nox_production_lbs"
	FieldSO2ReductionLbs          = "so2_reduction_lbs"
	FieldSO2ProductionLbs         = "so2_production_lbs"

	FieldTimestamp = "timestamp"
	FieldTotalKWh  = "total_kwh"
)

// DailyMetricFields lists the eleven numeric daily metrics in storage order.
var DailyMetricFields = []string{
	FieldTotalOutputFactorPercent,
	FieldACEfficiencyLHVPercent,
	FieldHeatRateHHVBtuPerKWh,
	FieldElectricityOutKWh,
	FieldGasFlowInTherms,
	FieldCO2ReductionLbs,
	FieldCO2ProductionLbs,
	FieldNOxReductionLbs,
	FieldNOxProductionLbs,
	FieldSO2ReductionLbs,
	FieldSO2ProductionLbs,
}

// CanonicalRow maps canonical field names to raw values.
// Values are nil, string, float64 or time.Time.
type CanonicalRow map[string]any
