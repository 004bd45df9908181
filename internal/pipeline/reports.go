package pipeline

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/xuri/excelize/v2"
)

// Per-order completion statuses in the overview report.
const (
	OrderFullySuccess   = "FULLY SUCCESS"
	OrderPartialSuccess = "PARTIAL SUCCESS"
	OrderTotalFailed    = "TOTAL FAILED"
)

const (
	DetailReportName   = "detailed_report.xlsx"
	OverviewReportName = "order_overview.xlsx"
	SummaryReportName  = "processing_summary.pdf"
)

// RunStats summarizes a completed run for the narrative report.
type RunStats struct {
	SourceFile string

	TotalRows    int
	ValidRows    int
	RejectedRows int
	OrderCount   int
	Documents    int

	ReasonCounts map[string]int
}

// CollectStats derives run statistics from the final verdicts.
func CollectStats(sourceFile string, verdicts []*Verdict, documents int) RunStats {
	stats := RunStats{
		SourceFile:   sourceFile,
		TotalRows:    len(verdicts),
		Documents:    documents,
		ReasonCounts: make(map[string]int),
	}

	orders := make(map[string]struct{})
	for _, v := range verdicts {
		orders[v.Order] = struct{}{}
		if v.Valid {
			stats.ValidRows++
		} else {
			stats.RejectedRows++
			stats.ReasonCounts[v.Reason]++
		}
	}
	stats.OrderCount = len(orders)

	return stats
}

// WriteDetailReport writes one spreadsheet row per input row, carrying every
// input column plus the execution status and the rejection reason.
func WriteDetailReport(path string, table *Table, verdicts []*Verdict) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Detailed Report"
	f.SetSheetName("Sheet1", sheet)

	successStyle, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"C6EFCE"}},
	})
	if err != nil {
		return fmt.Errorf("error creating report style: %w", err)
	}
	failedStyle, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"FFC7CE"}},
	})
	if err != nil {
		return fmt.Errorf("error creating report style: %w", err)
	}

	header := append(append([]string{}, table.Columns...), "Execution Status", "Error Message")
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("error writing report header: %w", err)
	}

	for i, v := range verdicts {
		record := make([]interface{}, 0, len(header))
		for _, col := range table.Columns {
			record = append(record, v.Row.Values[col])
		}

		status, reason, style := StatusSuccess, "", successStyle
		if !v.Valid {
			status, reason, style = StatusFailed, v.Reason, failedStyle
		}
		record = append(record, status, reason)

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("error writing report row: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &record); err != nil {
			return fmt.Errorf("error writing report row: %w", err)
		}

		statusCell, _ := excelize.CoordinatesToCellName(len(table.Columns)+1, i+2)
		messageCell, _ := excelize.CoordinatesToCellName(len(table.Columns)+2, i+2)
		if err := f.SetCellStyle(sheet, statusCell, messageCell, style); err != nil {
			return fmt.Errorf("error styling report row: %w", err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("error saving detail report: %w", err)
	}
	return nil
}

type orderSummary struct {
	Order     string
	Total     int
	Succeeded int
	Failed    int
}

func (o orderSummary) status() string {
	switch {
	case o.Failed == 0:
		return OrderFullySuccess
	case o.Succeeded == 0:
		return OrderTotalFailed
	default:
		return OrderPartialSuccess
	}
}

// WriteOverviewReport writes one spreadsheet row per sales order with its
// completion status.
func WriteOverviewReport(path string, verdicts []*Verdict) error {
	var orders []*orderSummary
	index := make(map[string]*orderSummary)

	for _, v := range verdicts {
		summary, ok := index[v.Order]
		if !ok {
			summary = &orderSummary{Order: v.Order}
			index[v.Order] = summary
			orders = append(orders, summary)
		}
		summary.Total++
		if v.Valid {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Order Overview"
	f.SetSheetName("Sheet1", sheet)

	header := []string{"Document Number", "Total Rows", "Successful", "Failed", "Completion Status"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("error writing overview header: %w", err)
	}

	for i, summary := range orders {
		record := []interface{}{summary.Order, summary.Total, summary.Succeeded, summary.Failed, summary.status()}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("error writing overview row: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &record); err != nil {
			return fmt.Errorf("error writing overview row: %w", err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("error saving overview report: %w", err)
	}
	return nil
}

// WriteSummaryReport writes the narrative PDF: run totals followed by the
// rejection counts per reason, most frequent first.
func WriteSummaryReport(path string, stats RunStats) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, "Processing Summary", "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Generated: %s", time.Now().Format("2006-01-02 15:04:05")), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Source file: %s", stats.SourceFile), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	line := func(label string, value int) {
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(80, 6, label, "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(0, 6, strconv.Itoa(value), "", 1, "L", false, 0, "")
	}

	line("Total rows processed:", stats.TotalRows)
	line("Rows rendered successfully:", stats.ValidRows)
	line("Rows rejected:", stats.RejectedRows)
	line("Sales orders seen:", stats.OrderCount)
	line("Documents generated:", stats.Documents)
	pdf.Ln(6)

	if len(stats.ReasonCounts) > 0 {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(0, 8, "Rejections by reason", "", 1, "L", false, 0, "")

		type reasonCount struct {
			Reason string
			Count  int
		}
		reasons := make([]reasonCount, 0, len(stats.ReasonCounts))
		for reason, count := range stats.ReasonCounts {
			reasons = append(reasons, reasonCount{Reason: reason, Count: count})
		}
		sort.Slice(reasons, func(i, j int) bool {
			if reasons[i].Count != reasons[j].Count {
				return reasons[i].Count > reasons[j].Count
			}
			return reasons[i].Reason < reasons[j].Reason
		})

		pdf.SetFont("Helvetica", "", 10)
		for _, rc := range reasons {
			pdf.CellFormat(0, 6, fmt.Sprintf("%d x %s", rc.Count, rc.Reason), "", 1, "L", false, 0, "")
		}
	}

	if err := pdf.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("error saving summary report: %w", err)
	}
	return nil
}
