package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"artwork-backend/internal/pipeline"
	"artwork-backend/pkg/api"

	"github.com/schollz/progressbar/v3"
)

// Headless one-shot mode: runs the full pipeline against local paths and
// leaves the archive next to the input file.
func main() {
	logoDB := flag.String("logo-db", "./logo_database/ArtDBSample.xlsx", "path to the logo reference workbook")
	imageDir := flag.String("logo-images", "./logo_images", "directory of logo image files")
	orderFilter := flag.String("order", "", "process only this Document Number")
	approvalFilter := flag.String("approval", api.ApprovalFilterBoth, "approval filter: approved_only, not_approved_only, or both")
	outDir := flag.String("out", "", "output directory (defaults to the input file's directory)")
	workers := flag.Int("workers", 4, "parallel document renders")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <input file>\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
		os.Exit(2)
	}
	inputPath := flag.Arg(0)

	switch *approvalFilter {
	case api.ApprovalFilterApprovedOnly, api.ApprovalFilterNotApprovedOnly, api.ApprovalFilterBoth:
	default:
		log.Fatalf("invalid approval filter: %s", *approvalFilter)
	}

	workDir := *outDir
	if workDir == "" {
		workDir = filepath.Dir(inputPath)
	}
	if err := os.MkdirAll(workDir, os.ModePerm); err != nil {
		log.Fatalf("could not create output directory: %v", err)
	}

	p := &pipeline.Pipeline{
		ReferencePath: *logoDB,
		ImageDir:      *imageDir,
		Workers:       *workers,
	}

	bar := progressbar.NewOptions(100,
		progressbar.OptionSetDescription("processing"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	hooks := pipeline.Hooks{
		Progress: func(stage string, percent int, message string) {
			bar.Describe(fmt.Sprintf("%s: %s", stage, message))
			if err := bar.Set(percent); err != nil {
				log.Printf("could not update progress bar: %v", err)
			}
		},
	}

	result, err := p.Execute(context.Background(), inputPath, workDir, pipeline.RunOptions{
		OrderFilter:    *orderFilter,
		ApprovalFilter: *approvalFilter,
	}, hooks)
	if err != nil {
		log.Fatalf("processing failed: %v", err)
	}

	if err := bar.Finish(); err != nil {
		log.Printf("could not finish progress bar: %v", err)
	}

	stats := result.Stats
	fmt.Printf("Processed %d rows: %d rendered, %d rejected, %d documents across %d orders\n",
		stats.TotalRows, stats.ValidRows, stats.RejectedRows, stats.Documents, stats.OrderCount)
	for reason, count := range stats.ReasonCounts {
		fmt.Printf("  %d x %s\n", count, reason)
	}
	fmt.Printf("Archive: %s\n", result.ArchivePath)
}
