package database

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

func UpdateRunStatus(ctx context.Context, txn *gorm.DB, runId uuid.UUID, status string) error {
	updates := map[string]any{"status": status}
	if status == JobCompleted || status == JobFailed {
		updates["completion_time"] = time.Now().UTC()
	}
	if status == JobCompleted {
		updates["stage"] = StageDone
		updates["progress"] = 100
	}

	if err := txn.WithContext(ctx).Model(&Run{Id: runId}).Updates(updates).Error; err != nil {
		slog.Error("error updating run status", "run_id", runId, "status", status, "error", err)
		return err
	}
	return nil
}

// UpdateRunProgress never moves the progress bar backwards, even if stage
// updates arrive out of order from parallel workers.
func UpdateRunProgress(ctx context.Context, txn *gorm.DB, runId uuid.UUID, stage string, progress int, message string) error {
	updates := map[string]any{
		"stage":    stage,
		"message":  message,
		"progress": gorm.Expr("MAX(progress, ?)", progress),
	}

	if err := txn.WithContext(ctx).Model(&Run{Id: runId}).Updates(updates).Error; err != nil {
		slog.Error("error updating run progress", "run_id", runId, "stage", stage, "error", err)
		return err
	}
	return nil
}

func SetRunCounts(ctx context.Context, txn *gorm.DB, runId uuid.UUID, total, valid, rejected, documents int) error {
	updates := map[string]any{
		"total_row_count":    total,
		"valid_row_count":    valid,
		"rejected_row_count": rejected,
		"document_count":     documents,
	}

	if err := txn.WithContext(ctx).Model(&Run{Id: runId}).Updates(updates).Error; err != nil {
		slog.Error("error updating run counts", "run_id", runId, "error", err)
		return err
	}
	return nil
}

func IncrementRunDocumentCount(ctx context.Context, txn *gorm.DB, runId uuid.UUID) error {
	if err := txn.WithContext(ctx).
		Model(&Run{}).
		Where("id = ?", runId).
		UpdateColumn("document_count", gorm.Expr("document_count + ?", 1)).
		Error; err != nil {
		slog.Error("could not increment document count", "run_id", runId, "error", err)
		return err
	}
	return nil
}

func SetRunReasonCounts(ctx context.Context, txn *gorm.DB, runId uuid.UUID, counts map[string]int) error {
	data, err := json.Marshal(counts)
	if err != nil {
		return err
	}

	if err := txn.WithContext(ctx).Model(&Run{Id: runId}).Update("reason_counts", data).Error; err != nil {
		slog.Error("error updating run reason counts", "run_id", runId, "error", err)
		return err
	}
	return nil
}

func SetRunArchive(ctx context.Context, txn *gorm.DB, runId uuid.UUID, archivePath string) error {
	if err := txn.WithContext(ctx).Model(&Run{Id: runId}).Update("archive_path", archivePath).Error; err != nil {
		slog.Error("error updating run archive path", "run_id", runId, "error", err)
		return err
	}
	return nil
}

func SaveRunError(ctx context.Context, txn *gorm.DB, runId uuid.UUID, errorMessage string) {
	runError := RunError{
		RunId:     runId,
		ErrorId:   uuid.New(),
		Error:     errorMessage,
		Timestamp: time.Now().UTC(),
	}

	if err := txn.WithContext(ctx).Create(&runError).Error; err != nil {
		slog.Error("error saving run error", "run_id", runId, "error", err)
	}
}
