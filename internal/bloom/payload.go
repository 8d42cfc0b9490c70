package bloom

import (
	"encoding/json"
	"strings"

	energy "campus-energy/internal/energy/domain"
)

// SiteData is one day of metrics from the data-extract endpoint.
// Metric values arrive as numbers or numeric strings.
type SiteData struct {
	RecordedAt        string `json:"recordedat"`
	TotalOutputFactor any    `json:"total_output_factor"`
	Efficiency        any    `json:"efficiency"`
	Energy            any    `json:"energy"`
	Fuel              any    `json:"fuel"`
	CO2Reduction      any    `json:"co2_reduction"`
	CO2Production     any    `json:"co2_production"`
	NOxReduction      any    `json:"nox_reduction"`
	NOxProduction     any    `json:"nox_production"`
	SO2Reduction      any    `json:"so2_reduction"`
	SO2Production     any    `json:"so2_production"`
}

// CanonicalRow maps the payload onto the daily canonical fields. Heat rate is not
// reported by the API and stays nil.
func (d SiteData) CanonicalRow() energy.CanonicalRow {
	date := d.RecordedAt
	if i := strings.IndexByte(date, 'T'); i >= 0 {
		date = date[:i]
	}
	return energy.CanonicalRow{
		energy.FieldDateLocal:                date,
		energy.FieldTotalOutputFactorPercent: metricValue(d.TotalOutputFactor),
		energy.FieldACEfficiencyLHVPercent:   metricValue(d.Efficiency),
		energy.FieldHeatRateHHVBtuPerKWh:     nil,
		energy.FieldElectricityOutKWh:        metricValue(d.Energy),
		energy.FieldGasFlowInTherms:          metricValue(d.Fuel),
		energy.FieldCO2ReductionLbs:          metricValue(d.CO2Reduction),
		energy.FieldCO2ProductionLbs:         metricValue(d.CO2Production),
		energy.FieldNOxReductionLbs:          metricValue(d.NOxReduction),
		energy.FieldNOxProductionLbs:         metricValue(d.NOxProduction),
		energy.FieldSO2ReductionLbs:          metricValue(d.SO2Reduction),
		energy.FieldSO2ProductionLbs:         metricValue(d.SO2Production),
	}
}

func metricValue(v any) any {
	switch val := v.(type) {
	case json.Number:
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	case float64, string:
		return val
	default:
		return nil
	}
}
