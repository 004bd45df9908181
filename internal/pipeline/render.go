package pipeline

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-pdf/fpdf"

	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// Page geometry in millimeters, matching the production instruction sheet.
const (
	pageWidth  = 190.5
	pageHeight = 254.0
	pageMargin = 0.8

	// Logo previews are placed at their physical size assuming 300 dpi
	// artwork, capped to this box.
	maxImageWidth  = 91.9
	maxImageHeight = 58.1
	imageDPI       = 300.0
)

// Document is one rendered artwork instruction PDF.
type Document struct {
	Order string
	Sku   string
	Path  string

	// Names of image files that could not be decoded and were replaced
	// with a placeholder.
	Degraded []string
}

// DocumentFileName returns the canonical PDF name for an (order, SKU) group.
func DocumentFileName(order, sku string) string {
	return fmt.Sprintf("SO_%s_AI_%s.pdf", sanitizeFileName(order), sanitizeFileName(sku))
}

var unsafeFileChars = regexp.MustCompile(`[^\w-]`)

func sanitizeFileName(s string) string {
	s = unsafeFileChars.ReplaceAllString(strings.TrimSpace(s), "_")
	if s == "" {
		return "unknown"
	}
	return s
}

// rowOrReference prefers the order detail value and falls back to the logo
// reference entry when the row leaves the field blank.
func rowOrReference(row Row, col, fallback string) string {
	if v := row.Get(col); v != "" {
		return v
	}
	return fallback
}

type itemLine struct {
	Color       string
	Description string
	Quantity    int
}

// aggregateItems collapses the group's rows into one line per
// (color, description) pair with summed quantities, preserving first
// appearance order.
func aggregateItems(group *Group) ([]itemLine, int) {
	var lines []itemLine
	index := make(map[[2]string]int)
	total := 0

	for _, v := range group.Verdicts {
		color := strings.ToUpper(v.Row.Get(ColColor))
		desc := strings.ToUpper(v.Row.Get(ColSubcategory))
		qty := parseQuantity(v.Row.Get(ColQuantity))
		total += qty

		key := [2]string{color, desc}
		if i, ok := index[key]; ok {
			lines[i].Quantity += qty
			continue
		}
		index[key] = len(lines)
		lines = append(lines, itemLine{Color: color, Description: desc, Quantity: qty})
	}

	return lines, total
}

func parseQuantity(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int(f)
	}
	return 0
}

// RenderDocument writes the artwork instruction PDF for one group. Rows
// supply the order detail, info supplies the logo reference data, and images
// are the matched logo files. An undecodable image degrades to a placeholder
// without failing the document.
func RenderDocument(group *Group, info LogoInfo, images []string, outPath string) (*Document, error) {
	doc := &Document{Order: group.Key.Order, Sku: group.Key.Sku, Path: outPath}

	pdf := fpdf.NewCustom(&fpdf.InitType{
		UnitStr: "mm",
		Size:    fpdf.SizeType{Wd: pageWidth, Ht: pageHeight},
	})
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)
	pdf.AddPage()

	usable := pageWidth - 2*pageMargin

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(usable, 10, "ARTWORK INSTRUCTION SHEET", "1", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(usable*0.2, 7, "CLIENT:", "1", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(usable*0.8, 7, info.Client, "1", 1, "L", false, 0, "")

	firstRow := group.Verdicts[0].Row
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(usable*0.2, 7, "SO #:", "1", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(usable*0.4, 7, group.Key.Order, "1", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(usable*0.15, 7, "DUE DATE:", "1", 0, "L", false, 0, "")
	pdf.CellFormat(usable*0.25, 7, firstRow.Get(ColDueDate), "1", 1, "L", false, 0, "")

	// Items table.
	colorW, descW, qtyW := usable*0.3, usable*0.5, usable*0.2
	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(colorW, 6, "COLOR", "1", 0, "C", false, 0, "")
	pdf.CellFormat(descW, 6, "DESCRIPTION", "1", 0, "C", false, 0, "")
	pdf.CellFormat(qtyW, 6, "QTY", "1", 1, "C", false, 0, "")

	lines, total := aggregateItems(group)
	pdf.SetFont("Helvetica", "", 9)
	for _, line := range lines {
		pdf.CellFormat(colorW, 6, line.Color, "1", 0, "L", false, 0, "")
		pdf.CellFormat(descW, 6, line.Description, "1", 0, "L", false, 0, "")
		pdf.CellFormat(qtyW, 6, strconv.Itoa(line.Quantity), "1", 1, "C", false, 0, "")
	}
	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(colorW+descW, 6, "TOTAL", "1", 0, "R", false, 0, "")
	pdf.CellFormat(qtyW, 6, strconv.Itoa(total), "1", 1, "C", false, 0, "")

	// Logo block. Order detail wins over the reference entry when both
	// carry a value.
	position := rowOrReference(firstRow, ColLogoPosition, info.Position)
	stitches := rowOrReference(firstRow, ColStitchCount, info.StitchCount)

	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(usable*0.15, 7, "LOGO SKU:", "1", 0, "C", false, 0, "")
	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(usable*0.2, 7, group.Key.Sku, "1", 0, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(usable*0.2, 7, "LOGO POSITION:", "1", 0, "C", false, 0, "")
	pdf.CellFormat(usable*0.2, 7, position, "1", 0, "C", false, 0, "")
	pdf.CellFormat(usable*0.13, 7, "STITCHES:", "1", 0, "C", false, 0, "")
	pdf.CellFormat(usable*0.12, 7, stitches, "1", 1, "C", false, 0, "")

	size := rowOrReference(firstRow, ColSize, info.Size)
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(usable*0.15, 7, "SIZE:", "1", 0, "C", false, 0, "")
	pdf.CellFormat(usable*0.35, 7, size, "1", 0, "C", false, 0, "")
	pdf.CellFormat(usable*0.2, 7, "OPERATION:", "1", 0, "C", false, 0, "")
	pdf.CellFormat(usable*0.3, 7, info.OperationType, "1", 1, "C", false, 0, "")

	notes := rowOrReference(firstRow, ColNotes, info.Notes)
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(usable*0.15, 7, "NOTES:", "1", 0, "L", false, 0, "")
	pdf.MultiCell(usable*0.85, 7, notes, "1", "L", false)

	fileName := rowOrReference(firstRow, ColFileName, info.FileName)
	pdf.CellFormat(usable*0.15, 7, "FILE NAME:", "1", 0, "L", false, 0, "")
	pdf.CellFormat(usable*0.85, 7, fileName, "1", 1, "L", false, 0, "")

	pdf.Ln(4)

	for i, imagePath := range images {
		if err := placeImage(pdf, imagePath, i); err != nil {
			slog.Warn("could not place logo image, using placeholder", "image", imagePath, "error", err)
			doc.Degraded = append(doc.Degraded, imagePath)
			placePlaceholder(pdf, imagePath)
		}
		pdf.Ln(4)
	}

	if err := pdf.OutputFileAndClose(outPath); err != nil {
		return nil, fmt.Errorf("error writing document %s: %w", outPath, err)
	}

	return doc, nil
}

// placeImage decodes the image, re-encodes it as PNG, and places it at its
// physical 300 dpi size capped to the preview box.
func placeImage(pdf *fpdf.Fpdf, path string, index int) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("error reading image: %w", err)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("error decoding image: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("error encoding image: %w", err)
	}

	bounds := img.Bounds()
	w, h := fitImage(bounds.Dx(), bounds.Dy())

	name := fmt.Sprintf("%s#%d", path, index)
	pdf.RegisterImageOptionsReader(name, fpdf.ImageOptions{ImageType: "PNG"}, &buf)
	if pdf.Err() {
		return fmt.Errorf("error registering image: %v", pdf.Error())
	}

	pdf.ImageOptions(name, pdf.GetX(), pdf.GetY(), w, h, true, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")
	if pdf.Err() {
		return fmt.Errorf("error placing image: %v", pdf.Error())
	}

	return nil
}

// fitImage converts pixel dimensions to millimeters at 300 dpi and scales
// down, preserving aspect ratio, to fit the preview box. Images are never
// scaled up.
func fitImage(pxWidth, pxHeight int) (float64, float64) {
	w := float64(pxWidth) * 25.4 / imageDPI
	h := float64(pxHeight) * 25.4 / imageDPI

	scale := 1.0
	if w > maxImageWidth {
		scale = maxImageWidth / w
	}
	if h*scale > maxImageHeight {
		scale = maxImageHeight / h
	}
	if scale < 1.0 {
		w *= scale
		h *= scale
	}

	return w, h
}

func placePlaceholder(pdf *fpdf.Fpdf, path string) {
	x, y := pdf.GetX(), pdf.GetY()
	pdf.SetFillColor(220, 220, 220)
	pdf.Rect(x, y, maxImageWidth, maxImageHeight/2, "FD")
	pdf.SetFont("Helvetica", "I", 8)
	pdf.Text(x+2, y+maxImageHeight/4, fmt.Sprintf("image unavailable: %s", filepath.Base(path)))
	pdf.SetFillColor(255, 255, 255)
	pdf.SetXY(x, y+maxImageHeight/2)
}
