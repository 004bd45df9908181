package database

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	JobQueued    string = "QUEUED"
	JobRunning   string = "RUNNING"
	JobCompleted string = "COMPLETED"
	JobFailed    string = "FAILED"
)

// Stage labels are supplied by the pipeline as it advances; the registry only
// names the terminal one it writes itself.
const StageDone string = "done"

type Run struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	UploadId   uuid.UUID `gorm:"type:uuid"`
	SourceFile string    `gorm:"not null"`

	OrderFilter    sql.NullString
	ApprovalFilter string `gorm:"size:20;not null"`

	Status   string `gorm:"size:20;not null"`
	Stage    string `gorm:"size:20"`
	Progress int    `gorm:"default:0"`
	Message  string

	CreationTime   time.Time
	CompletionTime sql.NullTime

	TotalRowCount    int `gorm:"default:0"`
	ValidRowCount    int `gorm:"default:0"`
	RejectedRowCount int `gorm:"default:0"`
	DocumentCount    int `gorm:"default:0"`

	ReasonCounts datatypes.JSON

	ArchivePath sql.NullString

	Errors []RunError `gorm:"foreignKey:RunId;constraint:OnDelete:CASCADE"`
}

type RunError struct {
	RunId     uuid.UUID `gorm:"type:uuid;primaryKey"`
	ErrorId   uuid.UUID `gorm:"type:uuid;primaryKey"`
	Error     string
	Timestamp time.Time
}
