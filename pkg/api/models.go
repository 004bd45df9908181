package api

import (
	"time"

	"github.com/google/uuid"
)

const (
	ApprovalFilterApprovedOnly    = "approved_only"
	ApprovalFilterNotApprovedOnly = "not_approved_only"
	ApprovalFilterBoth            = "both"
)

type UploadResponse struct {
	Id uuid.UUID
}

type CreateRunRequest struct {
	UploadId uuid.UUID

	// Exact Document Number to process, empty processes all orders.
	OrderFilter string

	// One of approved_only, not_approved_only, both. Empty defaults to both.
	ApprovalFilter string
}

type CreateRunResponse struct {
	RunId uuid.UUID
}

type ListRunsRequest struct {
	// Optional job status to filter on, e.g. COMPLETED.
	Status string `schema:"status"`

	// Maximum number of runs to return, newest first. Zero returns all.
	Limit int `schema:"limit"`
}

type Run struct {
	Id uuid.UUID

	SourceFile     string
	OrderFilter    string `json:"OrderFilter,omitempty"`
	ApprovalFilter string

	Status   string
	Stage    string `json:"Stage,omitempty"`
	Progress int
	Message  string `json:"Message,omitempty"`

	TotalRowCount    int
	ValidRowCount    int
	RejectedRowCount int
	DocumentCount    int

	ReasonCounts map[string]int `json:"ReasonCounts,omitempty"`

	CreationTime   time.Time
	CompletionTime *time.Time `json:"CompletionTime,omitempty"`

	ArchiveName string `json:"ArchiveName,omitempty"`
}

type RunProgress struct {
	Status      string
	Progress    int
	Message     string
	CurrentStep string
}

type RunList struct {
	Runs []Run
}
