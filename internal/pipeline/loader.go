package pipeline

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Canonical column names, matching the headers used by the order export.
const (
	ColDocumentNumber  = "Document Number"
	ColLogo            = "LOGO"
	ColOperationalCode = "OPERATIONAL CODE"
	ColOperationCodes  = "List of Operation Codes"
	ColDueDateStatus   = "DueDateStatus"
	ColDueDate         = "Due Date"
	ColColor           = "COLOR"
	ColSubcategory     = "SUBCATEGORY"
	ColQuantity        = "Quantity"
	ColCustomer        = "Customer/Vendor Name"
	ColVendorStyle     = "VENDOR STYLE"
	ColSize            = "SIZE"
	ColLogoPosition    = "LOGO POSITION"
	ColStitchCount     = "STITCH COUNT"
	ColNotes           = "NOTES"
	ColFileName        = "FILE NAME"
)

// Headers are matched case-insensitively against these synonyms so that
// exports from different systems canonicalize to the same column set.
var columnSynonyms = map[string]string{
	"document number":         ColDocumentNumber,
	"doc number":              ColDocumentNumber,
	"sales order":             ColDocumentNumber,
	"so number":               ColDocumentNumber,
	"logo":                    ColLogo,
	"logo sku":                ColLogo,
	"operational code":        ColOperationalCode,
	"operation code":          ColOperationalCode,
	"op code":                 ColOperationalCode,
	"op. code":                ColOperationalCode,
	"list of operation codes": ColOperationCodes,
	"operation codes":         ColOperationCodes,
	"duedatestatus":           ColDueDateStatus,
	"due date status":         ColDueDateStatus,
	"due date":                ColDueDate,
	"color":                   ColColor,
	"subcategory":             ColSubcategory,
	"description":             ColSubcategory,
	"quantity":                ColQuantity,
	"qty":                     ColQuantity,
	"customer/vendor name":    ColCustomer,
	"customer":                ColCustomer,
	"vendor style":            ColVendorStyle,
	"size":                    ColSize,
	"logo position":           ColLogoPosition,
	"stitch count":            ColStitchCount,
	"notes":                   ColNotes,
	"file name":               ColFileName,
}

var requiredColumns = []string{ColDocumentNumber, ColLogo, ColOperationalCode}

type Row struct {
	// Zero-based index of the data row in the source file, excluding the header.
	Index int

	Values map[string]string
}

func (r Row) Get(col string) string {
	return strings.TrimSpace(r.Values[col])
}

type Table struct {
	Columns []string
	Rows    []Row
}

// MissingColumnsError is a fatal input error: the file was readable but does
// not contain the columns the pipeline needs.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("input file is missing required columns: %s", strings.Join(e.Columns, ", "))
}

func CanonicalColumn(header string) string {
	h := strings.TrimSpace(header)
	if canonical, ok := columnSynonyms[strings.ToLower(strings.Join(strings.Fields(h), " "))]; ok {
		return canonical
	}
	return h
}

// LoadTable reads a spreadsheet or delimited text file into a Table with
// canonicalized headers. A read failure or a missing required column is
// fatal to the run.
func LoadTable(path string) (*Table, error) {
	var records [][]string
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		records, err = readWorkbook(path)
	case ".csv":
		records, err = readDelimited(path, ',')
	case ".tsv", ".txt":
		records, err = readDelimited(path, '\t')
	default:
		return nil, fmt.Errorf("unsupported file format: %s", filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("unable to read input file %s: %w", filepath.Base(path), err)
	}

	return buildTable(records)
}

func readWorkbook(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook contains no sheets")
	}

	return f.GetRows(sheets[0])
}

func readDelimited(path string, comma rune) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.Comma = comma
	reader.FieldsPerRecord = -1 // ragged rows are padded below

	return reader.ReadAll()
}

func buildTable(records [][]string) (*Table, error) {
	// Skip leading blank rows before the header.
	start := 0
	for start < len(records) && isEmptyRecord(records[start]) {
		start++
	}
	if start == len(records) {
		return nil, fmt.Errorf("input file contains no data")
	}

	columns := make([]string, len(records[start]))
	for i, header := range records[start] {
		columns[i] = CanonicalColumn(header)
	}

	var missing []string
	for _, required := range requiredColumns {
		found := false
		for _, col := range columns {
			if col == required {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingColumnsError{Columns: missing}
	}

	table := &Table{Columns: columns}
	for _, record := range records[start+1:] {
		if isEmptyRecord(record) {
			continue
		}

		values := make(map[string]string, len(columns))
		for i, col := range columns {
			if i < len(record) {
				values[col] = record[i]
			} else {
				values[col] = ""
			}
		}
		table.Rows = append(table.Rows, Row{Index: len(table.Rows), Values: values})
	}

	return table, nil
}

func isEmptyRecord(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// CleanSku normalizes a logo SKU: trims a spreadsheet float suffix and left
// pads short numeric SKUs so "950" and "0950" refer to the same logo.
func CleanSku(value string) string {
	s := strings.TrimSpace(value)
	if s == "" || strings.EqualFold(s, "nan") {
		return ""
	}

	s = strings.TrimSuffix(s, ".0")

	if s != "" && isDigits(s) && len(s) < 4 {
		s = strings.Repeat("0", 4-len(s)) + s
	}

	return s
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
