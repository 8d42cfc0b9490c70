package normalize

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	energy "campus-energy/internal/energy/domain"
)

var dailyHeaderRow = []any{
	"Date (Local)", "Total Output Factor", "AC Efficiency (LHV)", "Heat Rate (HHV)",
	"Electricity Out", "Gas Flow In", "CO₂ Reduction", "CO₂ Production",
	"NOₓ Reduction", "NOₓ Production", "SO₂ Reduction", "SO₂ Production", "Unmapped Column",
}

// buildWorkbook writes header at physical row 11 and data rows from physical row 13.
func buildWorkbook(t *testing.T, header []any, data [][]any) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	sheet := f.GetSheetName(0)

	require.NoError(t, f.SetCellValue(sheet, "A1", "Site Performance Export"))
	if header != nil {
		require.NoError(t, f.SetSheetRow(sheet, "A11", &header))
	}
	for i, row := range data {
		r := row
		require.NoError(t, f.SetSheetRow(sheet, fmt.Sprintf("A%d", 13+i), &r))
	}

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return buf.Bytes()
}

func hourlyCSV(data ...string) []byte {
	lines := []string{
		"Report: Hourly Output",
		"Site: University of San Diego",
		"",
		"Units: kWh",
		"Timestamp,University of San Diego - Alcala Borrego,University of San Diego - Alcala Laguna,University of San Diego - Camino Hall,University of San Diego - Copley Library,University of San Diego - Founders Hall,University of San Diego - Jenny Craig Pavillion,University of San Diego - Kroc,University of San Diego - Manchester A,University of San Diego - Manchester B,University of San Diego - Soles,University of San Diego - West Parking",
		"kWh,kWh,kWh,kWh,kWh,kWh,kWh,kWh,kWh,kWh,kWh,kWh",
		"",
	}
	return []byte(strings.Join(append(lines, data...), "\n"))
}

func TestNormalizeDailyWorkbook(t *testing.T) {
	buf := buildWorkbook(t, dailyHeaderRow, [][]any{
		{45717, 95.5, 52.1, nil, 500, 42, 120, 300, 1.5, 0.2, 0.01, 0.001, "ignored"},
		{},
		{"2025-03-02", "", "n/a", 9100, 450.25},
	})

	n := NewNormalizer(nil, zap.NewNop())
	rows, err := n.Normalize(buf, energy.SourceDailyXLSX)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	first := rows[0]
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), first[energy.FieldDateLocal])
	assert.Equal(t, 500.0, first[energy.FieldElectricityOutKWh])
	assert.Equal(t, 120.0, first[energy.FieldCO2ReductionLbs])
	assert.Nil(t, first[energy.FieldHeatRateHHVBtuPerKWh])
	assert.NotContains(t, first, "Unmapped Column")
	assert.Len(t, first, 12)

	second := rows[1]
	assert.Equal(t, time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC), second[energy.FieldDateLocal])
	assert.Nil(t, second[energy.FieldTotalOutputFactorPercent])
	assert.Equal(t, "n/a", second[energy.FieldACEfficiencyLHVPercent])
	assert.Equal(t, 9100.0, second[energy.FieldHeatRateHHVBtuPerKWh])
	assert.Equal(t, 450.25, second[energy.FieldElectricityOutKWh])
}

func TestNormalizeDailyShortWorkbookIsEmpty(t *testing.T) {
	buf := buildWorkbook(t, dailyHeaderRow, nil)

	rows, err := NewNormalizer(nil, nil).Normalize(buf, energy.SourceDailyXLSX)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestNormalizeDailyRejectsGarbage(t *testing.T) {
	_, err := NewNormalizer(nil, nil).Normalize([]byte("not a workbook"), energy.SourceDailyXLSX)
	assert.Error(t, err)
}

func TestExcelSerialToDate(t *testing.T) {
	cases := []struct {
		serial float64
		want   time.Time
		ok     bool
	}{
		{25569, time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC), true},
		{45717, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), true},
		{45717.75, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), true},
		{2958465, time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC), true},
		{2958466, time.Time{}, false},
		{1e300, time.Time{}, false},
		{-1, time.Time{}, false},
	}
	for _, tc := range cases {
		got, ok := excelSerialToDate(tc.serial)
		assert.Equal(t, tc.ok, ok, "serial %v", tc.serial)
		assert.Equal(t, tc.want, got, "serial %v", tc.serial)
	}
}

func TestDailyValueKeepsOutOfRangeSerial(t *testing.T) {
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), dailyValue(energy.FieldDateLocal, "45717"))
	assert.Equal(t, "1e300", dailyValue(energy.FieldDateLocal, "1e300"))
	assert.Equal(t, "3000000", dailyValue(energy.FieldDateLocal, " 3000000 "))
}

func TestNormalizeHourlyCSV(t *testing.T) {
	buf := hourlyCSV(
		"2025-03-01 12:00:00,10.5,20.3,15.0,12.2,13.3,9.8,11.1,10.0,8.5,14.0,7.6",
		"2025-03-01 13:00:00,11.0,19.8,15.5,12.0,13.8,10.0,11.2,10.1,8.6,14.2,7.7",
	)

	rows, err := NewNormalizer(nil, zap.NewNop()).Normalize(buf, energy.SourceHourlyCSV)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	first := rows[0]
	assert.Equal(t, time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC), first[energy.FieldTimestamp])
	assert.Equal(t, 10.5, first[string(energy.AlcalaBorrego)])
	assert.Equal(t, 9.8, first[string(energy.JennyCraigPavilion)])
	assert.Equal(t, 7.6, first[string(energy.WestParking)])
	assert.Equal(t, "132.3", first[energy.FieldTotalKWh])
	assert.Equal(t, "133.9", rows[1][energy.FieldTotalKWh])
}

func TestNormalizeHourlyDropsAndDefaults(t *testing.T) {
	buf := hourlyCSV(
		",1,2,3,4,5,6,7,8,9,10,11",
		"2025-03-01 14:00:00,,,,,,,,,,,",
		"2025-03-01 15:00:00,x,y,,,,,,,,,",
		"2025-03-01 16:00:00,1.25,abc,,,,,,,,,2",
	)

	rows, err := NewNormalizer(nil, nil).Normalize(buf, energy.SourceHourlyCSV)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	row := rows[0]
	assert.Equal(t, 1.25, row[string(energy.AlcalaBorrego)])
	assert.Nil(t, row[string(energy.AlcalaLaguna)])
	assert.Nil(t, row[string(energy.CaminoHall)])
	assert.Equal(t, 2.0, row[string(energy.WestParking)])
	assert.Equal(t, "3.25", row[energy.FieldTotalKWh])
}

func TestNormalizeHourlyInsufficientRows(t *testing.T) {
	buf := []byte("a\nb\nc\nd\nTimestamp,Kroc\nx\ny")

	_, err := NewNormalizer(nil, nil).Normalize(buf, energy.SourceHourlyCSV)
	require.Error(t, err)
	assert.ErrorIs(t, err, energy.ErrInsufficientRows)

	var ire *energy.InsufficientRowsError
	require.ErrorAs(t, err, &ire)
	assert.Equal(t, 7, ire.Got)
	assert.Equal(t, 8, ire.Need)
}

func TestNormalizeUnknownKind(t *testing.T) {
	_, err := NewNormalizer(nil, nil).Normalize([]byte("x"), energy.SourceKind("pdf"))
	assert.ErrorIs(t, err, energy.ErrUnknownSourceKind)
}

func TestLoadLayouts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layouts.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
hourly-csv:
  header_row_index: 0
  data_start_offset: 1
  min_rows: 2
`), 0o600))

	layouts, err := LoadLayouts(path)
	require.NoError(t, err)
	assert.Equal(t, Layout{HeaderRowIndex: 0, DataStartOffset: 1, MinRows: 2}, layouts[energy.SourceHourlyCSV])
	assert.Equal(t, DefaultLayouts()[energy.SourceDailyXLSX], layouts[energy.SourceDailyXLSX])

	n := NewNormalizer(layouts, nil)
	rows, err := n.Normalize([]byte("Timestamp,Kroc\n2025-03-01 10:00:00,4.5\n"), energy.SourceHourlyCSV)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "4.5", rows[0][energy.FieldTotalKWh])

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("weekly-pdf:\n  data_start_offset: 1\n"), 0o600))
	_, err = LoadLayouts(bad)
	assert.ErrorIs(t, err, energy.ErrUnknownSourceKind)
}
