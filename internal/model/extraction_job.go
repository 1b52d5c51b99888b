package model

import (
	"time"

	"gorm.io/gorm"
)

// extraction job statuses
const (
	JobStatusQueued     = "queued"
	JobStatusExtracting = "extracting"
	JobStatusSucceeded  = "succeeded"
	JobStatusFailed     = "failed"
)

// extraction job kinds
const (
	JobKindFileParse = "file_parse"
	JobKindURLParse  = "url_parse"
)

// ExtractionJob is one unit of work dispatched to the external
// extraction worker. A job transitions queued -> extracting ->
// {succeeded, failed} and is immutable once terminal. A file retry is
// a brand new job, the old one is never resumed.
type ExtractionJob struct {
	gorm.Model
	ID          string `gorm:"primaryKey;uuid;not null;"`
	FileID      string `gorm:"uuid;not null;index:job_file_index"`
	ProjectID   string `gorm:"uuid;not null;index:job_project_index"`
	RequesterID string `gorm:"uuid;not null"`
	Kind        string `gorm:"not null"` // file_parse, url_parse
	Status      string `gorm:"not null"` // queued, extracting, succeeded, failed
	StartedAt   *time.Time
	FinishedAt  *time.Time
	Error       *string
	RawResponse string
}

func (ExtractionJob) TableName() string {
	return "extraction_jobs"
}

// Terminal reports whether the job reached a terminal state.
func (j *ExtractionJob) Terminal() bool {
	return j.Status == JobStatusSucceeded || j.Status == JobStatusFailed
}

// TerminalJobStatus reports whether status is a valid terminal job status.
func TerminalJobStatus(status string) bool {
	return status == JobStatusSucceeded || status == JobStatusFailed
}
