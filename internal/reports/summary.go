package reports

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	analytics "campus-energy/internal/analytics/application"
	energy "campus-energy/internal/energy/domain"
)

// SummarySource is the subset of the aggregation engine a summary needs.
type SummarySource interface {
	ThirtyDayTotals(ctx context.Context) (energy.DailyMetricAverages, error)
	LifetimeVsPeriod(ctx context.Context, period string) (analytics.TreeTotals, error)
	WeeklyCombined(ctx context.Context) ([]analytics.WeeklyTotal, error)
}

// Summary is the data behind a downloadable energy report.
type Summary struct {
	GeneratedAt time.Time
	Averages    energy.DailyMetricAverages
	Totals      analytics.TreeTotals
	Weekly      []analytics.WeeklyTotal
}

// CollectSummary gathers the report inputs for period.
func CollectSummary(ctx context.Context, src SummarySource, period string, now time.Time) (Summary, error) {
	avg, err := src.ThirtyDayTotals(ctx)
	if err != nil {
		return Summary{}, err
	}
	totals, err := src.LifetimeVsPeriod(ctx, period)
	if err != nil {
		return Summary{}, err
	}
	weekly, err := src.WeeklyCombined(ctx)
	if err != nil {
		return Summary{}, err
	}
	return Summary{
		GeneratedAt: now.UTC(),
		Averages:    avg,
		Totals:      totals,
		Weekly:      weekly,
	}, nil
}

var metricLabels = map[string]string{
	energy.FieldTotalOutputFactorPercent: "Total Output Factor (%)",
	energy.FieldACEfficiencyLHVPercent:   "AC Efficiency LHV (%)",
	energy.FieldHeatRateHHVBtuPerKWh:     "Heat Rate HHV (Btu/kWh)",
	energy.FieldElectricityOutKWh:        "Electricity Out (kWh)",
	energy.FieldGasFlowInTherms:          "Gas Flow In (therms)",
	energy.FieldCO2ReductionLbs:          "CO2 Reduction (lbs)",
	energy.FieldCO2ProductionLbs:         "CO2 Production (lbs)",
	energy.FieldNOxReductionLbs:          "NOx Reduction (lbs)",
	energy.FieldNOxProductionLbs:         "NOx Production (lbs)",
	energy.FieldSO2ReductionLbs:          "SO2 Reduction (lbs)",
	energy.FieldSO2ProductionLbs:         "SO2 Production (lbs)",
}

func weekLabel(w analytics.WeeklyTotal) string {
	if w.WeekStart == nil {
		return "-"
	}
	return w.WeekStart.Format("2006-01-02")
}

// BuildSummaryPDF renders the summary as a single-page PDF.
func BuildSummaryPDF(s Summary) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Campus Energy Summary")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", s.GeneratedAt.Format(time.RFC3339)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Lifetime Energy (kWh): %.2f", s.Totals.LifetimeEnergy))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Energy over %s (kWh): %.2f", s.Totals.Period, s.Totals.PeriodEnergy))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(80, 6, "30-day average", "1", 0, "C", false, 0, "")
	pdf.CellFormat(50, 6, "Value", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	values := s.Averages.Values()
	for _, field := range energy.DailyMetricFields {
		pdf.CellFormat(80, 6, metricLabels[field], "1", 0, "L", false, 0, "")
		pdf.CellFormat(50, 6, fmt.Sprintf("%.2f", values[field]), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}
	pdf.Ln(6)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(40, 6, "Week", "1", 0, "C", false, 0, "")
	pdf.CellFormat(50, 6, "Fuel cell (kWh)", "1", 0, "C", false, 0, "")
	pdf.CellFormat(50, 6, "Solar (kWh)", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, w := range s.Weekly {
		pdf.CellFormat(40, 6, weekLabel(w), "1", 0, "C", false, 0, "")
		pdf.CellFormat(50, 6, fmt.Sprintf("%.2f", w.TotalFuelcellKWh), "1", 0, "R", false, 0, "")
		pdf.CellFormat(50, 6, fmt.Sprintf("%.2f", w.TotalSolarKWh), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildSummaryXLSX renders the summary as a workbook with "summary" and "weekly" sheets.
func BuildSummaryXLSX(s Summary) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()
	summarySheet := "summary"
	weeklySheet := "weekly"
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(weeklySheet); err != nil {
		return nil, err
	}

	_ = f.SetCellValue(summarySheet, "A1", "Campus Energy Summary")
	_ = f.SetCellValue(summarySheet, "A2", "Generated")
	_ = f.SetCellValue(summarySheet, "B2", s.GeneratedAt.Format(time.RFC3339))
	_ = f.SetCellValue(summarySheet, "A3", "Lifetime Energy (kWh)")
	_ = f.SetCellValue(summarySheet, "B3", s.Totals.LifetimeEnergy)
	_ = f.SetCellValue(summarySheet, "A4", fmt.Sprintf("Energy over %s (kWh)", s.Totals.Period))
	_ = f.SetCellValue(summarySheet, "B4", s.Totals.PeriodEnergy)

	_ = f.SetCellValue(summarySheet, "A6", "30-day average")
	_ = f.SetCellValue(summarySheet, "B6", "Value")
	values := s.Averages.Values()
	for i, field := range energy.DailyMetricFields {
		row := i + 7
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), metricLabels[field])
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), values[field])
	}

	_ = f.SetCellValue(weeklySheet, "A1", "Week")
	_ = f.SetCellValue(weeklySheet, "B1", "Fuel cell (kWh)")
	_ = f.SetCellValue(weeklySheet, "C1", "Solar (kWh)")
	for i, w := range s.Weekly {
		row := i + 2
		_ = f.SetCellValue(weeklySheet, fmt.Sprintf("A%d", row), weekLabel(w))
		_ = f.SetCellValue(weeklySheet, fmt.Sprintf("B%d", row), w.TotalFuelcellKWh)
		_ = f.SetCellValue(weeklySheet, fmt.Sprintf("C%d", row), w.TotalSolarKWh)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
