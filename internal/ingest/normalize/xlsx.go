package normalize

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	energy "campus-energy/internal/energy/domain"
)

var dailyHeaders = map[string]string{
	"Date (Local)":        energy.FieldDateLocal,
	"Total Output Factor": energy.FieldTotalOutputFactorPercent,
	"AC Efficiency (LHV)": energy.FieldACEfficiencyLHVPercent,
	"Heat Rate (HHV)":     energy.FieldHeatRateHHVBtuPerKWh,
	"Electricity Out":     energy.FieldElectricityOutKWh,
	"Gas Flow In":         energy.FieldGasFlowInTherms,
	"CO₂ Reduction":       energy.FieldCO2ReductionLbs,
	"CO₂ Production":      energy.FieldCO2ProductionLbs,
	"NOₓ Reduction":       energy.FieldNOxReductionLbs,
	"NOₓ Production":      energy.FieldNOxProductionLbs,
	"SO₂ Reduction":       energy.FieldSO2ReductionLbs,
	"SO₂ Production":      energy.FieldSO2ProductionLbs,
}

// readSheetRows returns the raw cell values of the first sheet, one slice per physical row.
func readSheetRows(buf []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(buf))
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("normalize: workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read rows from xlsx: %w", err)
	}
	return rows, nil
}

func (n *Normalizer) normalizeDaily(buf []byte, layout Layout) ([]energy.CanonicalRow, error) {
	rows, err := readSheetRows(buf)
	if err != nil {
		return nil, err
	}
	if layout.MinRows > 0 && len(rows) < layout.MinRows {
		return nil, &energy.InsufficientRowsError{Kind: energy.SourceDailyXLSX, Got: len(rows), Need: layout.MinRows}
	}
	if len(rows) <= layout.DataStart() {
		return []energy.CanonicalRow{}, nil
	}

	header := rows[layout.HeaderRowIndex]
	fields := make([]string, len(header))
	for i, h := range header {
		fields[i] = dailyHeaders[h]
	}

	out := make([]energy.CanonicalRow, 0, len(rows)-layout.DataStart())
	for _, raw := range rows[layout.DataStart():] {
		if isBlankRow(raw) {
			continue
		}
		row := energy.CanonicalRow{}
		// later duplicate headers overwrite earlier ones
		for i, field := range fields {
			if field == "" {
				continue
			}
			row[field] = dailyValue(field, cell(raw, i))
		}
		out = append(out, row)
	}
	return out, nil
}

func dailyValue(field, raw string) any {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	if field == energy.FieldDateLocal {
		if serial, ok := parseNumber(s); ok {
			if t, ok := excelSerialToDate(serial); ok {
				return t
			}
			return s
		}
		if t, ok := parseTime(s, dateLayouts); ok {
			return energy.DayStart(t)
		}
		return s
	}
	if v, ok := parseNumber(s); ok {
		return v
	}
	return s
}
