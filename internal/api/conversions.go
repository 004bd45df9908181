package api

import (
	"encoding/json"
	"log/slog"
	"path"

	"artwork-backend/internal/database"
	"artwork-backend/pkg/api"
)

func toApiRun(run database.Run) api.Run {
	res := api.Run{
		Id:               run.Id,
		SourceFile:       run.SourceFile,
		OrderFilter:      run.OrderFilter.String,
		ApprovalFilter:   run.ApprovalFilter,
		Status:           run.Status,
		Stage:            run.Stage,
		Progress:         run.Progress,
		Message:          run.Message,
		TotalRowCount:    run.TotalRowCount,
		ValidRowCount:    run.ValidRowCount,
		RejectedRowCount: run.RejectedRowCount,
		DocumentCount:    run.DocumentCount,
		CreationTime:     run.CreationTime,
	}

	if run.CompletionTime.Valid {
		t := run.CompletionTime.Time
		res.CompletionTime = &t
	}

	if run.ArchivePath.Valid {
		res.ArchiveName = path.Base(run.ArchivePath.String)
	}

	if len(run.ReasonCounts) > 0 {
		if err := json.Unmarshal(run.ReasonCounts, &res.ReasonCounts); err != nil {
			slog.Error("error unmarshalling run reason counts", "run_id", run.Id, "error", err)
		}
	}

	return res
}
