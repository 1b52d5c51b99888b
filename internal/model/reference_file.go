package model

import (
	"encoding/json"

	"gorm.io/gorm"
)

// reference file statuses
const (
	FileStatusQueued     = "queued"
	FileStatusExtracting = "extracting"
	FileStatusDone       = "done"
	FileStatusFailed     = "failed"
)

// reference file source kinds
const (
	SourceKindFile = "file"
	SourceKindURL  = "url"
)

// ReferenceFile is one user-supplied ingestion source (document or url)
// queued for text extraction. The row is created by the registrar and
// mutated only by the extraction callback handler. Files are never hard
// deleted, their lifecycle is tied to the project.
type ReferenceFile struct {
	gorm.Model
	ID         string `gorm:"primaryKey;uuid;not null;"`
	ProjectID  string `gorm:"uuid;not null;index:ref_file_project_index"`
	UploaderID string `gorm:"uuid;not null"`
	Source     string `gorm:"not null"` // path or url
	Name       string `gorm:"not null"`
	Kind       string `gorm:"not null"` // file, url
	Status     string `gorm:"not null"` // queued, extracting, done, failed
	Text       *string
	Chunks     *string // JSON encoded []string
	Error      *string
	Meta       string // JSON encoded map[string]string
}

func (ReferenceFile) TableName() string {
	return "reference_files"
}

func (f *ReferenceFile) MarshalBinary() ([]byte, error) {
	return json.Marshal(f)
}

// Terminal reports whether the file reached a terminal extraction state.
func (f *ReferenceFile) Terminal() bool {
	return f.Status == FileStatusDone || f.Status == FileStatusFailed
}
