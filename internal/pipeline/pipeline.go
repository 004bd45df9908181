package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"artwork-backend/internal/pipeline/utils"
)

const ArchiveName = "artwork_documents.zip"

// ProgressFunc receives stage checkpoints as the pipeline advances.
// Percentages are non-decreasing over the life of a run.
type ProgressFunc func(stage string, percent int, message string)

// Hooks are the per-run callbacks the caller can observe the pipeline
// through. Any of the fields may be nil.
type Hooks struct {
	Progress ProgressFunc

	// DocumentRendered fires once per successfully rendered document, before
	// the run completes.
	DocumentRendered func(*Document)
}

const (
	StageLoading    = "loading"
	StageValidating = "validating"
	StageResolving  = "resolving"
	StageGrouping   = "grouping"
	StageRendering  = "rendering"
	StageReporting  = "reporting"
	StagePackaging  = "packaging"
)

type Pipeline struct {
	// Path to the logo reference workbook. Missing or unreadable is fatal
	// to every run.
	ReferencePath string

	// Directory of logo image files. A missing directory just means no row
	// resolves any images.
	ImageDir string

	// Parallelism for document rendering.
	Workers int
}

type Result struct {
	Table     *Table
	Verdicts  []*Verdict
	Documents []*Document

	ArchivePath string
	Stats       RunStats
}

type renderJob struct {
	group  *Group
	info   LogoInfo
	images []string
	out    string
}

// Execute runs the full pipeline for one input file, writing documents,
// reports, and the final archive under workDir. Row failures are recorded in
// the verdicts; only input, reference database, report, and archive errors
// are fatal.
func (p *Pipeline) Execute(ctx context.Context, inputPath, workDir string, opts RunOptions, hooks Hooks) (*Result, error) {
	progress := hooks.Progress
	if progress == nil {
		progress = func(string, int, string) {}
	}
	onDocument := hooks.DocumentRendered
	if onDocument == nil {
		onDocument = func(*Document) {}
	}

	progress(StageLoading, 5, "Reading input file")
	table, err := LoadTable(inputPath)
	if err != nil {
		return nil, err
	}
	progress(StageLoading, 10, fmt.Sprintf("Loaded %d rows", len(table.Rows)))

	refDB, err := LoadReferenceDB(p.ReferencePath)
	if err != nil {
		return nil, err
	}

	imageIndex, err := NewImageIndex(p.ImageDir)
	if err != nil {
		return nil, err
	}

	progress(StageValidating, 15, "Validating rows")
	verdicts := make([]*Verdict, len(table.Rows))
	for i, row := range table.Rows {
		verdicts[i] = ValidateRow(row, opts)
	}
	progress(StageValidating, 25, "Validation complete")

	progress(StageResolving, 30, "Resolving logo references")
	logoInfo := make(map[string]LogoInfo)
	logoImages := make(map[string][]string)
	for _, v := range verdicts {
		if !v.Valid {
			continue
		}

		info, ok := refDB.Lookup(v.Sku)
		if !ok {
			v.reject(ReasonLogoNotFound)
			continue
		}
		logoInfo[v.Sku] = info

		images := imageIndex.Find(v.Sku)
		if len(images) == 0 {
			v.reject(ReasonImagesNotFound)
			continue
		}
		logoImages[v.Sku] = images

		if ok, reason := CheckOperation(v.OpCode, v.Row.Get(ColOperationCodes)); !ok {
			v.reject(reason)
		}
	}
	progress(StageResolving, 40, "Reference resolution complete")

	groups := GroupRows(verdicts)
	progress(StageGrouping, 50, fmt.Sprintf("Grouped into %d documents", len(groups)))

	documentDir := filepath.Join(workDir, "documents")
	if err := os.MkdirAll(documentDir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("error creating document directory: %w", err)
	}

	documents := p.renderGroups(ctx, groups, logoInfo, logoImages, documentDir, progress, onDocument)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	progress(StageReporting, 88, "Writing reports")
	stats := CollectStats(filepath.Base(inputPath), verdicts, len(documents))

	detailPath := filepath.Join(workDir, DetailReportName)
	if err := WriteDetailReport(detailPath, table, verdicts); err != nil {
		return nil, err
	}
	overviewPath := filepath.Join(workDir, OverviewReportName)
	if err := WriteOverviewReport(overviewPath, verdicts); err != nil {
		return nil, err
	}
	summaryPath := filepath.Join(workDir, SummaryReportName)
	if err := WriteSummaryReport(summaryPath, stats); err != nil {
		return nil, err
	}
	progress(StageReporting, 92, "Reports complete")

	progress(StagePackaging, 95, "Packaging archive")
	archivePath := filepath.Join(workDir, ArchiveName)
	if err := WriteArchive(archivePath, documents, []string{detailPath, overviewPath, summaryPath}); err != nil {
		return nil, err
	}
	progress(StagePackaging, 97, "Archive complete")

	return &Result{
		Table:       table,
		Verdicts:    verdicts,
		Documents:   documents,
		ArchivePath: archivePath,
		Stats:       stats,
	}, nil
}

// renderGroups renders the documents in parallel. A failed group rejects all
// of its rows and is dropped from the output; it never fails the run.
func (p *Pipeline) renderGroups(ctx context.Context, groups []*Group, logoInfo map[string]LogoInfo, logoImages map[string][]string, documentDir string, progress ProgressFunc, onDocument func(*Document)) []*Document {
	if len(groups) == 0 {
		progress(StageRendering, 85, "No documents to render")
		return nil
	}

	workers := p.Workers
	if workers <= 0 {
		workers = 1
	}

	queue := make(chan renderJob, len(groups))
	for _, group := range groups {
		queue <- renderJob{
			group:  group,
			info:   logoInfo[group.Key.Sku],
			images: logoImages[group.Key.Sku],
			out:    filepath.Join(documentDir, DocumentFileName(group.Key.Order, group.Key.Sku)),
		}
	}
	close(queue)

	var mu sync.Mutex
	done := 0

	completed := make(chan utils.CompletedTask[*Document], len(groups))
	utils.RunInPool(ctx, func(_ context.Context, job renderJob) (*Document, error) {
		doc, err := RenderDocument(job.group, job.info, job.images, job.out)
		if err != nil {
			slog.Error("error rendering document", "order", job.group.Key.Order, "sku", job.group.Key.Sku, "error", err)
			for _, v := range job.group.Verdicts {
				v.reject(ReasonRenderFailed)
			}
			return nil, err
		}

		mu.Lock()
		done++
		progress(StageRendering, 50+35*done/len(groups), fmt.Sprintf("Rendered %d of %d documents", done, len(groups)))
		onDocument(doc)
		mu.Unlock()

		return doc, nil
	}, queue, completed, workers)

	var documents []*Document
	for result := range completed {
		if result.Error == nil {
			documents = append(documents, result.Result)
		}
	}

	// Completion order depends on worker scheduling, so restore a stable
	// ordering for the archive listing.
	sort.Slice(documents, func(i, j int) bool {
		if documents[i].Order != documents[j].Order {
			return documents[i].Order < documents[j].Order
		}
		return documents[i].Sku < documents[j].Sku
	})

	return documents
}
