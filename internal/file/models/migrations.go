package models

import "gorm.io/gorm"

// AutoMigrate runs database migrations for the file domain.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&FileRecord{},
		&DownloadHistory{},
		&StorageStats{},
	)
}
