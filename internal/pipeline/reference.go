package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"
)

// LogoInfo is one entry of the logo reference database.
type LogoInfo struct {
	Sku           string
	Client        string
	Position      string
	OperationType string
	StitchCount   string
	FileName      string
	Notes         string
	Size          string
}

type ReferenceDB struct {
	logos map[string]LogoInfo
}

// LoadReferenceDB loads the logo reference workbook into memory. The first
// sheet must carry a "Logo SKU" column; the remaining columns are optional.
func LoadReferenceDB(path string) (*ReferenceDB, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read logo database %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("logo database %s contains no sheets", filepath.Base(path))
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("unable to read logo database %s: %w", filepath.Base(path), err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("logo database %s is empty", filepath.Base(path))
	}

	columns := map[string]int{}
	for i, header := range rows[0] {
		columns[strings.ToLower(strings.TrimSpace(header))] = i
	}
	skuCol, ok := columns["logo sku"]
	if !ok {
		return nil, fmt.Errorf("logo database %s is missing the 'Logo SKU' column", filepath.Base(path))
	}

	cell := func(record []string, name string) string {
		i, ok := columns[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	db := &ReferenceDB{logos: make(map[string]LogoInfo)}
	for _, record := range rows[1:] {
		if skuCol >= len(record) {
			continue
		}
		sku := CleanSku(record[skuCol])
		if sku == "" {
			continue
		}

		db.logos[sku] = LogoInfo{
			Sku:           sku,
			Client:        cell(record, "client"),
			Position:      cell(record, "logo position"),
			OperationType: cell(record, "operation type"),
			StitchCount:   cell(record, "stitch count"),
			FileName:      cell(record, "file name"),
			Notes:         cell(record, "notes"),
			Size:          cell(record, "size"),
		}
	}

	return db, nil
}

func (db *ReferenceDB) Lookup(sku string) (LogoInfo, bool) {
	info, ok := db.logos[sku]
	if !ok && isDigits(sku) {
		// Fall back to the unpadded form for databases that store "950"
		// rather than "0950".
		info, ok = db.logos[strings.TrimLeft(sku, "0")]
	}
	return info, ok
}

func (db *ReferenceDB) Len() int {
	return len(db.logos)
}

var imageExtensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".gif":  {},
	".bmp":  {},
	".tiff": {},
}

// ImageIndex is a cached listing of the logo image directory. Lookups are
// case-insensitive prefix matches on the cleaned SKU, so "0950A.png" and
// "0950_back.jpg" both match SKU 0950.
type ImageIndex struct {
	dir   string
	files []string
}

func NewImageIndex(dir string) (*ImageIndex, error) {
	idx := &ImageIndex{dir: dir}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return idx, nil
		}
		return nil, fmt.Errorf("unable to read logo image directory %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if _, ok := imageExtensions[strings.ToLower(filepath.Ext(entry.Name()))]; !ok {
			continue
		}
		idx.files = append(idx.files, entry.Name())
	}
	sort.Strings(idx.files)

	return idx, nil
}

// Find returns the full paths of all images for the given SKU in
// lexicographic filename order.
func (idx *ImageIndex) Find(sku string) []string {
	if sku == "" {
		return nil
	}

	prefix := strings.ToLower(sku)

	var matches []string
	for _, name := range idx.files {
		if strings.HasPrefix(strings.ToLower(name), prefix) {
			matches = append(matches, filepath.Join(idx.dir, name))
		}
	}
	return matches
}
