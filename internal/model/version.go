package model

import (
	"encoding/json"

	"gorm.io/gorm"
)

// Version is an immutable numbered snapshot of document content.
// Numbers are strictly increasing per project, gaps are allowed. The
// lowest numbered version of a project is the aggregate target that
// accumulates extracted intake content, the only row whose content is
// ever updated in place.
type Version struct {
	gorm.Model
	ID          string `gorm:"primaryKey;uuid;not null;"`
	ProjectID   string `gorm:"uuid;not null;uniqueIndex:version_project_number_index"`
	Number      int64  `gorm:"not null;uniqueIndex:version_project_number_index"`
	Title       string
	Description string
	Content     string `gorm:"not null"`
	Compression string // codec used to encode the content
	CreatedBy   string `gorm:"uuid;not null"`
}

func (Version) TableName() string {
	return "versions"
}

func (v *Version) MarshalBinary() ([]byte, error) {
	return json.Marshal(v)
}
