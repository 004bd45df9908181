package api

import (
	"bytes"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"artwork-backend/internal/database"
	"artwork-backend/internal/messaging"
	"artwork-backend/internal/pipeline"
	"artwork-backend/internal/storage"
	"artwork-backend/pkg/api"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const maxUploadSize = 100 << 20 // 100MB

var supportedUploadExtensions = map[string]struct{}{
	".xlsx": {},
	".xlsm": {},
	".csv":  {},
	".tsv":  {},
	".txt":  {},
}

type BackendService struct {
	db        *gorm.DB
	storage   storage.ObjectStore
	publisher messaging.Publisher
}

func NewBackendService(db *gorm.DB, store storage.ObjectStore, publisher messaging.Publisher) *BackendService {
	return &BackendService{db: db, storage: store, publisher: publisher}
}

func (s *BackendService) AddRoutes(r chi.Router) {
	r.Get("/health", RestHandler(func(r *http.Request) (any, error) { return nil, nil }))
	r.Route("/uploads", func(r chi.Router) {
		r.Post("/", RestHandler(s.UploadFile))
	})
	r.Route("/runs", func(r chi.Router) {
		r.Post("/", RestHandler(s.CreateRun))
		r.Get("/", RestHandler(s.ListRuns))
		r.Get("/{run_id}", RestHandler(s.GetRun))
		r.Get("/{run_id}/progress", RestHandler(s.GetRunProgress))
		r.Get("/{run_id}/download", s.DownloadRunArchive)
	})
}

func (s *BackendService) UploadFile(r *http.Request) (any, error) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		return nil, CodedErrorf(http.StatusBadRequest, "unable to parse multipart form: %v", err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, CodedErrorf(http.StatusBadRequest, "request is missing 'file' field")
	}
	defer file.Close()

	filename := filepath.Base(header.Filename)
	if _, ok := supportedUploadExtensions[strings.ToLower(filepath.Ext(filename))]; !ok {
		return nil, CodedErrorf(http.StatusBadRequest, "unsupported file format: %s", filepath.Ext(filename))
	}

	uploadId := uuid.New()
	key := fmt.Sprintf("%s/%s", uploadId, filename)

	if err := s.storage.PutObject(r.Context(), pipeline.UploadBucket, key, file); err != nil {
		slog.Error("error storing uploaded file", "upload_id", uploadId, "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "failed to store uploaded file")
	}

	slog.Info("stored upload", "upload_id", uploadId, "filename", filename)
	return api.UploadResponse{Id: uploadId}, nil
}

func (s *BackendService) CreateRun(r *http.Request) (any, error) {
	req, err := ParseRequest[api.CreateRunRequest](r)
	if err != nil {
		return nil, err
	}

	if req.UploadId == uuid.Nil {
		return nil, CodedErrorf(http.StatusUnprocessableEntity, "missing required field: UploadId")
	}

	approvalFilter := req.ApprovalFilter
	switch approvalFilter {
	case "":
		approvalFilter = api.ApprovalFilterBoth
	case api.ApprovalFilterApprovedOnly, api.ApprovalFilterNotApprovedOnly, api.ApprovalFilterBoth:
	default:
		return nil, CodedErrorf(http.StatusUnprocessableEntity,
			"invalid ApprovalFilter %q: must be one of %s, %s, %s",
			req.ApprovalFilter, api.ApprovalFilterApprovedOnly, api.ApprovalFilterNotApprovedOnly, api.ApprovalFilterBoth)
	}

	ctx := r.Context()

	objects, err := s.storage.ListObjects(ctx, pipeline.UploadBucket, req.UploadId.String()+"/")
	if err != nil {
		slog.Error("error looking up upload", "upload_id", req.UploadId, "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "failed to look up upload")
	}
	if len(objects) == 0 {
		return nil, CodedErrorf(http.StatusNotFound, "upload %s not found", req.UploadId)
	}

	sourceFile := strings.TrimPrefix(objects[0].Name, req.UploadId.String()+"/")

	run := database.Run{
		Id:             uuid.New(),
		UploadId:       req.UploadId,
		SourceFile:     sourceFile,
		OrderFilter:    sql.NullString{String: strings.TrimSpace(req.OrderFilter), Valid: strings.TrimSpace(req.OrderFilter) != ""},
		ApprovalFilter: approvalFilter,
		Status:         database.JobQueued,
		CreationTime:   time.Now().UTC(),
	}

	if err := s.db.WithContext(ctx).Create(&run).Error; err != nil {
		slog.Error("error creating run", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "failed to create run entry")
	}

	if err := s.publisher.PublishRunTask(ctx, messaging.RunTaskPayload{RunId: run.Id}); err != nil {
		slog.Error("error publishing run task", "run_id", run.Id, "error", err)
		database.SaveRunError(ctx, s.db, run.Id, "failed to queue run task")
		if err := database.UpdateRunStatus(ctx, s.db, run.Id, database.JobFailed); err != nil {
			slog.Error("error marking run as failed", "run_id", run.Id, "error", err)
		}
		return nil, CodedErrorf(http.StatusInternalServerError, "failed to queue run task")
	}

	slog.Info("submitted run", "run_id", run.Id, "upload_id", req.UploadId, "source_file", sourceFile)
	return api.CreateRunResponse{RunId: run.Id}, nil
}

func (s *BackendService) ListRuns(r *http.Request) (any, error) {
	params, err := ParseRequestQueryParams[api.ListRunsRequest](r)
	if err != nil {
		return nil, err
	}
	if params.Limit < 0 {
		return nil, CodedErrorf(http.StatusUnprocessableEntity, "limit must not be negative")
	}

	query := s.db.WithContext(r.Context()).Order("creation_time DESC")
	if params.Status != "" {
		query = query.Where("status = ?", strings.ToUpper(params.Status))
	}
	if params.Limit > 0 {
		query = query.Limit(params.Limit)
	}

	var runs []database.Run
	if err := query.Find(&runs).Error; err != nil {
		slog.Error("error listing runs", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error retrieving runs")
	}

	res := api.RunList{Runs: make([]api.Run, 0, len(runs))}
	for _, run := range runs {
		res.Runs = append(res.Runs, toApiRun(run))
	}
	return res, nil
}

func (s *BackendService) getRun(r *http.Request) (database.Run, error) {
	runId, err := URLParamUUID(r, "run_id")
	if err != nil {
		return database.Run{}, err
	}

	var run database.Run
	if err := s.db.WithContext(r.Context()).First(&run, "id = ?", runId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return database.Run{}, CodedErrorf(http.StatusNotFound, "run not found")
		}
		slog.Error("error getting run", "run_id", runId, "error", err)
		return database.Run{}, CodedErrorf(http.StatusInternalServerError, "error retrieving run record")
	}
	return run, nil
}

func (s *BackendService) GetRun(r *http.Request) (any, error) {
	run, err := s.getRun(r)
	if err != nil {
		return nil, err
	}
	return toApiRun(run), nil
}

func (s *BackendService) GetRunProgress(r *http.Request) (any, error) {
	run, err := s.getRun(r)
	if err != nil {
		return nil, err
	}

	return api.RunProgress{
		Status:      run.Status,
		Progress:    run.Progress,
		Message:     run.Message,
		CurrentStep: run.Stage,
	}, nil
}

func (s *BackendService) DownloadRunArchive(w http.ResponseWriter, r *http.Request) {
	run, err := s.getRun(r)
	if err != nil {
		var cerr *codedError
		if errors.As(err, &cerr) {
			http.Error(w, err.Error(), cerr.code)
		} else {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	if run.Status != database.JobCompleted || !run.ArchivePath.Valid {
		http.Error(w, fmt.Sprintf("run is not completed: run has status %s", run.Status), http.StatusConflict)
		return
	}

	data, err := s.storage.GetObject(r.Context(), pipeline.OutputBucket, run.ArchivePath.String)
	if err != nil {
		slog.Error("error reading run archive", "run_id", run.Id, "error", err)
		http.Error(w, "error retrieving run archive", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", pipeline.ArchiveName))
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		slog.Error("error writing archive response", "run_id", run.Id, "error", err)
	}
}
