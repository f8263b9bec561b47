package models

import "time"

// User is the messaging-platform principal that uploads and downloads
// files. Created lazily on first successful upload; hard-deleted only by
// an explicit erasure request, which cascades to files and history.
type User struct {
	ID             uint   `gorm:"primaryKey;autoIncrement"`
	PlatformUserID int64  `gorm:"not null;uniqueIndex"`
	Username       string `gorm:"type:varchar(255)"`
	FirstName      string `gorm:"type:varchar(255)"`
	LastName       string `gorm:"type:varchar(255)"`
	IsActive       bool   `gorm:"not null;default:true"`

	CreatedAt    time.Time `gorm:"not null"`
	LastActivity time.Time `gorm:"not null"`

	Files     []FileRecord      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Downloads []DownloadHistory `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

func (User) TableName() string {
	return "users"
}

// FileRecord tracks one stored artifact. A row is created only after the
// full byte stream is durably written and checksummed.
type FileRecord struct {
	ID               string `gorm:"type:varchar(36);primaryKey"` // UUID, used in download links
	SourceFileID     string `gorm:"type:varchar(255);not null;uniqueIndex"`
	OriginalFilename string `gorm:"type:varchar(255);not null"`
	MimeType         string `gorm:"type:varchar(127);not null"`
	FileSize         int64  `gorm:"not null"`
	FilePath         string `gorm:"type:varchar(512);not null"`
	Checksum         string `gorm:"type:varchar(64);not null"` // SHA-256, hex

	UserID uint       `gorm:"not null;index"`
	Status FileStatus `gorm:"type:varchar(16);not null;default:'active';index"`

	IsPublic bool `gorm:"not null;default:true"`

	CreatedAt    time.Time `gorm:"not null"`
	LastAccessed time.Time `gorm:"not null"`
	ExpiresAt    time.Time `gorm:"not null;index"`

	DownloadCount    int64 `gorm:"not null;default:0"`
	TotalServedBytes int64 `gorm:"not null;default:0"`

	User      *User             `gorm:"foreignKey:UserID"`
	Downloads []DownloadHistory `gorm:"foreignKey:FileID;constraint:OnDelete:CASCADE"`
}

func (FileRecord) TableName() string {
	return "files"
}

// IsExpired reports whether the record's expiry time has passed.
func (f *FileRecord) IsExpired(now time.Time) bool {
	return now.After(f.ExpiresAt)
}

// DownloadHistory is one append-only row per successful retrieval.
type DownloadHistory struct {
	ID              uint      `gorm:"primaryKey;autoIncrement"`
	FileID          string    `gorm:"type:varchar(36);not null;index"`
	UserID          *uint     `gorm:"index"` // nil for anonymous downloads
	DownloadedBytes int64     `gorm:"not null"`
	DownloadedAt    time.Time `gorm:"not null"`
	IPAddress       string    `gorm:"type:varchar(45)"`
	UserAgent       string    `gorm:"type:varchar(255)"`
}

func (DownloadHistory) TableName() string {
	return "download_history"
}

// StorageStats is the single cached summary row. Every update is a full
// recomputation from files and download_history; it is advisory, never a
// source of truth.
type StorageStats struct {
	ID               uint      `gorm:"primaryKey"`
	TotalFiles       int64     `gorm:"not null;default:0"`
	ActiveFiles      int64     `gorm:"not null;default:0"`
	TotalSizeBytes   int64     `gorm:"not null;default:0"`
	TotalDownloads   int64     `gorm:"not null;default:0"`
	TotalServedBytes int64     `gorm:"not null;default:0"`
	UniqueUsers      int64     `gorm:"not null;default:0"`
	UpdatedAt        time.Time `gorm:"not null"`
}

func (StorageStats) TableName() string {
	return "storage_stats"
}
