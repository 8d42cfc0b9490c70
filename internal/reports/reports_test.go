package reports

import (
	"bytes"
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	analytics "campus-energy/internal/analytics/application"
	energy "campus-energy/internal/energy/domain"
)

func workbookBytes(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "Source"))
	require.NoError(t, f.SetCellValue("Sheet1", "B1", "Share"))
	require.NoError(t, f.SetCellValue("Sheet1", "A2", "Solar"))
	require.NoError(t, f.SetCellValue("Sheet1", "B2", 0.21))
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return buf.Bytes()
}

func TestSourcesStoreRoundTrip(t *testing.T) {
	store, err := NewSourcesStore(t.TempDir(), nil)
	require.NoError(t, err)

	_, err = store.Load()
	require.ErrorIs(t, err, energy.ErrNoData)

	first := workbookBytes(t)
	require.NoError(t, store.Save(first))
	got, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, first, got)

	second := workbookBytes(t)
	require.NoError(t, store.Save(second))
	got, err = store.Load()
	require.NoError(t, err)
	assert.Equal(t, second, got)

	entries, err := os.ReadDir(store.dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, SourcesFileName, entries[0].Name())
}

func TestSourcesStoreRejectsNonWorkbook(t *testing.T) {
	store, err := NewSourcesStore(t.TempDir(), nil)
	require.NoError(t, err)

	require.ErrorIs(t, store.Save([]byte("Source,Share\nSolar,0.21\n")), ErrInvalidWorkbook)
	require.ErrorIs(t, store.Save(nil), ErrInvalidWorkbook)

	_, err = store.Load()
	require.ErrorIs(t, err, energy.ErrNoData)
}

type stubSource struct{}

func (stubSource) ThirtyDayTotals(context.Context) (energy.DailyMetricAverages, error) {
	return energy.DailyMetricAverages{ElectricityOutKWh: 4400, ACEfficiencyLHVPercent: 51.5}, nil
}

func (stubSource) LifetimeVsPeriod(_ context.Context, period string) (analytics.TreeTotals, error) {
	return analytics.TreeTotals{Period: period, LifetimeEnergy: 1_250_000, PeriodEnergy: 98_000}, nil
}

func (stubSource) WeeklyCombined(context.Context) ([]analytics.WeeklyTotal, error) {
	week := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	return []analytics.WeeklyTotal{{WeekStart: &week, TotalFuelcellKWh: 30000, TotalSolarKWh: 1200.5}}, nil
}

func TestSummaryExports(t *testing.T) {
	now := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	s, err := CollectSummary(context.Background(), stubSource{}, "1 month", now)
	require.NoError(t, err)
	assert.Equal(t, "1 month", s.Totals.Period)

	xlsx, err := BuildSummaryXLSX(s)
	require.NoError(t, err)
	f, err := excelize.OpenReader(bytes.NewReader(xlsx))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"summary", "weekly"}, f.GetSheetList())
	week, err := f.GetCellValue("weekly", "A2")
	require.NoError(t, err)
	assert.Equal(t, "2025-03-03", week)
	label, err := f.GetCellValue("summary", "A10")
	require.NoError(t, err)
	assert.Equal(t, "Electricity Out (kWh)", label)

	pdf, err := BuildSummaryPDF(s)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))
}
