package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func reportVerdicts(t *testing.T) (*Table, []*Verdict) {
	table := &Table{Columns: []string{ColDocumentNumber, ColLogo, ColOperationalCode}}

	addRow := func(order, sku, code string) Row {
		row := Row{Index: len(table.Rows), Values: map[string]string{
			ColDocumentNumber:  order,
			ColLogo:            sku,
			ColOperationalCode: code,
		}}
		table.Rows = append(table.Rows, row)
		return row
	}

	verdicts := []*Verdict{
		{Row: addRow("SO100", "0950", "11"), Order: "SO100", Sku: "0950", Valid: true},
		{Row: addRow("SO100", "1200", "11"), Order: "SO100", Sku: "1200", Valid: true},
		{Row: addRow("SO200", "0950", "11"), Order: "SO200", Sku: "0950", Valid: true},
		{Row: addRow("SO200", "", "11"), Order: "SO200", Valid: false, Reason: ReasonInvalidSku},
		{Row: addRow("SO300", "9999", "11"), Order: "SO300", Sku: "9999", Valid: false, Reason: ReasonLogoNotFound},
	}
	return table, verdicts
}

func TestWriteDetailReport(t *testing.T) {
	table, verdicts := reportVerdicts(t)
	path := filepath.Join(t.TempDir(), DetailReportName)

	require.NoError(t, WriteDetailReport(path, table, verdicts))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Detailed Report")
	require.NoError(t, err)
	require.Len(t, rows, 6)

	assert.Equal(t, []string{ColDocumentNumber, ColLogo, ColOperationalCode, "Execution Status", "Error Message"}, rows[0])
	assert.Equal(t, StatusSuccess, rows[1][3])
	assert.Equal(t, StatusFailed, rows[4][3])
	assert.Equal(t, ReasonInvalidSku, rows[4][4])
	assert.Equal(t, ReasonLogoNotFound, rows[5][4])
}

func TestWriteOverviewReport(t *testing.T) {
	_, verdicts := reportVerdicts(t)
	path := filepath.Join(t.TempDir(), OverviewReportName)

	require.NoError(t, WriteOverviewReport(path, verdicts))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Order Overview")
	require.NoError(t, err)
	require.Len(t, rows, 4)

	assert.Equal(t, []string{"SO100", "2", "2", "0", OrderFullySuccess}, rows[1])
	assert.Equal(t, []string{"SO200", "2", "1", "1", OrderPartialSuccess}, rows[2])
	assert.Equal(t, []string{"SO300", "1", "0", "1", OrderTotalFailed}, rows[3])
}

func TestWriteSummaryReport(t *testing.T) {
	_, verdicts := reportVerdicts(t)
	stats := CollectStats("orders.xlsx", verdicts, 3)

	path := filepath.Join(t.TempDir(), SummaryReportName)
	require.NoError(t, WriteSummaryReport(path, stats))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(data[:4]))
}

func TestCollectStats(t *testing.T) {
	_, verdicts := reportVerdicts(t)
	stats := CollectStats("orders.xlsx", verdicts, 3)

	assert.Equal(t, "orders.xlsx", stats.SourceFile)
	assert.Equal(t, 5, stats.TotalRows)
	assert.Equal(t, 3, stats.ValidRows)
	assert.Equal(t, 2, stats.RejectedRows)
	assert.Equal(t, 3, stats.OrderCount)
	assert.Equal(t, 3, stats.Documents)
	assert.Equal(t, map[string]int{ReasonInvalidSku: 1, ReasonLogoNotFound: 1}, stats.ReasonCounts)
}
