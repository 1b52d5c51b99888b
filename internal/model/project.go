package model

import "gorm.io/gorm"

// Project carries the per-project intake state. IntakeCompleted is read
// by the extraction callback handler to decide whether extracted text is
// folded into the aggregate version automatically or held for a manual
// augmentation call.
type Project struct {
	gorm.Model
	ID              string `gorm:"primaryKey;uuid;not null;"`
	Title           string
	IntakeCompleted bool `gorm:"not null;default:false"`
}

func (Project) TableName() string {
	return "projects"
}
