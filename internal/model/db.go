package model

import "gorm.io/gorm"

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&Project{}); err != nil {
		return err
	}

	if err := db.AutoMigrate(&ReferenceFile{}); err != nil {
		return err
	}

	if err := db.AutoMigrate(&ExtractionJob{}); err != nil {
		return err
	}

	if err := db.AutoMigrate(&Version{}); err != nil {
		return err
	}

	return nil
}
