package pipeline

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeWorkbook(t *testing.T, path string, rows [][]interface{}) {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}

	require.NoError(t, f.SaveAs(path))
}

func writeLogoDatabase(t *testing.T, dir string, skus ...string) string {
	t.Helper()

	rows := [][]interface{}{
		{"Logo SKU", "CLIENT", "Logo Position", "Operation Type", "Stitch Count", "File Name", "Notes", "Size"},
	}
	for _, sku := range skus {
		rows = append(rows, []interface{}{sku, "ACME CORP", "LEFT CHEST", "EMB", "5400", sku + ".emb", "use navy thread", "3.5in"})
	}

	path := filepath.Join(dir, "logo_db.xlsx")
	writeWorkbook(t, path, rows)
	return path
}

func writeTestImage(t *testing.T, path string, width, height int) {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}

	require.NoError(t, os.MkdirAll(filepath.Dir(path), os.ModePerm))
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func makeRow(t *testing.T, values map[string]string) Row {
	t.Helper()
	return Row{Values: values}
}
