package pipeline

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"artwork-backend/internal/database"
	"artwork-backend/internal/messaging"
	"artwork-backend/internal/storage"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	UploadBucket = "uploads"
	OutputBucket = "outputs"
)

type TaskProcessor struct {
	db        *gorm.DB
	storage   storage.ObjectStore
	publisher messaging.Publisher
	reciever  messaging.Reciever

	pipeline *Pipeline
	workDir  string
}

func NewTaskProcessor(db *gorm.DB, store storage.ObjectStore, publisher messaging.Publisher, reciever messaging.Reciever, pipeline *Pipeline, workDir string) *TaskProcessor {
	return &TaskProcessor{
		db:        db,
		storage:   store,
		publisher: publisher,
		reciever:  reciever,
		pipeline:  pipeline,
		workDir:   workDir,
	}
}

func (proc *TaskProcessor) Start() {
	slog.Info("starting task processor")

	for task := range proc.reciever.Tasks() {
		proc.ProcessTask(task)
	}
}

func (proc *TaskProcessor) Stop() {
	slog.Info("stopping task processor")

	proc.publisher.Close()
	proc.reciever.Close()
}

func (proc *TaskProcessor) ProcessTask(task messaging.Task) {
	ctx := context.Background()

	var err error
	switch task.Type() {

	case messaging.RunQueue:
		var payload messaging.RunTaskPayload
		if err = json.Unmarshal(task.Payload(), &payload); err != nil {
			slog.Error("error unmarshalling run task", "error", err)
			if err := task.Reject(); err != nil { // Discard malformed message
				slog.Error("error rejecting message from queue", "error", err)
			}
			return
		}
		err = proc.processRunTask(ctx, payload)

	default:
		slog.Error("received unknown task type", "queue", task.Type())
		if err := task.Reject(); err != nil { // reject unknown message type
			slog.Error("error rejecting message from queue", "error", err)
		}
		return
	}

	if err != nil {
		slog.Error("error processing task", "queue", task.Type(), "error", err)
		if err := task.Nack(); err != nil {
			slog.Error("error reporting processing failure on message from queue", "error", err)
		}
	} else {
		slog.Info("successfully processed task", "queue", task.Type())
		if err := task.Ack(); err != nil {
			slog.Error("error acknowledging message from queue", "error", err)
		}
	}
}

func (proc *TaskProcessor) processRunTask(ctx context.Context, payload messaging.RunTaskPayload) error {
	runId := payload.RunId

	slog.Info("processing run task", "run_id", runId)

	var run database.Run
	if err := proc.db.WithContext(ctx).First(&run, "id = ?", runId).Error; err != nil {
		slog.Error("error fetching run", "run_id", runId, "error", err)
		return fmt.Errorf("error getting run: %w", err)
	}

	if run.Status != database.JobQueued {
		slog.Info("run is not queued, skipping", "run_id", runId, "status", run.Status)
		return nil
	}

	if err := database.UpdateRunStatus(ctx, proc.db, runId, database.JobRunning); err != nil {
		return err
	}

	runDir := filepath.Join(proc.workDir, runId.String())
	defer func() {
		if err := os.RemoveAll(runDir); err != nil {
			slog.Error("error cleaning up run directory", "run_id", runId, "error", err)
		}
	}()

	inputPath := filepath.Join(runDir, "input", run.SourceFile)
	uploadKey := fmt.Sprintf("%s/%s", run.UploadId, run.SourceFile)
	if err := proc.storage.DownloadObject(ctx, UploadBucket, uploadKey, inputPath); err != nil {
		proc.failRun(ctx, runId, fmt.Sprintf("unable to retrieve uploaded file: %v", err))
		return err
	}

	opts := RunOptions{
		OrderFilter:    run.OrderFilter.String,
		ApprovalFilter: run.ApprovalFilter,
	}

	hooks := Hooks{
		Progress: func(stage string, percent int, message string) {
			if err := database.UpdateRunProgress(ctx, proc.db, runId, stage, percent, message); err != nil {
				slog.Error("error recording run progress", "run_id", runId, "stage", stage, "error", err)
			}
		},
		// Keeps the document count live for pollers while rendering is still
		// in flight.
		DocumentRendered: func(*Document) {
			if err := database.IncrementRunDocumentCount(ctx, proc.db, runId); err != nil {
				slog.Error("error incrementing run document count", "run_id", runId, "error", err)
			}
		},
	}

	result, err := proc.pipeline.Execute(ctx, inputPath, runDir, opts, hooks)
	if err != nil {
		proc.failRun(ctx, runId, err.Error())
		return err
	}

	archiveKey := fmt.Sprintf("%s/%s", runId, ArchiveName)
	archive, err := os.Open(result.ArchivePath)
	if err != nil {
		proc.failRun(ctx, runId, fmt.Sprintf("unable to read archive: %v", err))
		return err
	}
	defer archive.Close()

	if err := proc.storage.PutObject(ctx, OutputBucket, archiveKey, archive); err != nil {
		proc.failRun(ctx, runId, fmt.Sprintf("unable to store archive: %v", err))
		return err
	}

	stats := result.Stats
	if err := database.SetRunCounts(ctx, proc.db, runId, stats.TotalRows, stats.ValidRows, stats.RejectedRows, stats.Documents); err != nil {
		return err
	}
	if err := database.SetRunReasonCounts(ctx, proc.db, runId, stats.ReasonCounts); err != nil {
		return err
	}
	if err := database.SetRunArchive(ctx, proc.db, runId, archiveKey); err != nil {
		return err
	}

	return database.UpdateRunStatus(ctx, proc.db, runId, database.JobCompleted)
}

func (proc *TaskProcessor) failRun(ctx context.Context, runId uuid.UUID, message string) {
	database.SaveRunError(ctx, proc.db, runId, message)

	if err := proc.db.WithContext(ctx).Model(&database.Run{Id: runId}).Updates(map[string]any{
		"message":         message,
		"completion_time": sql.NullTime{Time: time.Now().UTC(), Valid: true},
		"status":          database.JobFailed,
	}).Error; err != nil {
		slog.Error("error marking run as failed", "run_id", runId, "error", err)
	}
}
