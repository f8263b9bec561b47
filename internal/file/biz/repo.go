package biz

import (
	"context"
	"io"
	"time"

	"github.com/telefiles/filedepot/internal/file/models"
)

// FileRepo defines metadata operations for stored files.
type FileRepo interface {
	Create(ctx context.Context, file *models.FileRecord) error
	GetByID(ctx context.Context, id string) (*models.FileRecord, error)
	// UpdateStatus performs the from -> to transition, validating it
	// against the status state machine.
	UpdateStatus(ctx context.Context, id string, from, to models.FileStatus) error
	// RecordAccess atomically increments download_count, adds bytes to
	// total_served_bytes and stamps last_accessed.
	RecordAccess(ctx context.Context, id string, bytes int64, at time.Time) error
	ListExpired(ctx context.Context, now time.Time, limit int) ([]*models.FileRecord, error)
	ListByUser(ctx context.Context, userID uint) ([]*models.FileRecord, error)
	Recent(ctx context.Context, limit int) ([]*models.FileRecord, error)
	TopDownloaded(ctx context.Context, limit int) ([]*models.FileRecord, error)
	DeleteHard(ctx context.Context, id string) error
}

// UserRepo defines operations on messaging-platform users.
type UserRepo interface {
	// GetOrCreate resolves the user with the given platform id, creating
	// the row lazily on first upload.
	GetOrCreate(ctx context.Context, platformUserID int64) (*models.User, error)
	GetByPlatformID(ctx context.Context, platformUserID int64) (*models.User, error)
	TouchActivity(ctx context.Context, id uint, at time.Time) error
	TopActive(ctx context.Context, limit int) ([]*models.User, error)
	// Delete removes the user row together with owned files and history
	// rows.
	Delete(ctx context.Context, id uint) error
}

// HistoryRepo records download events. Rows are append-only.
type HistoryRepo interface {
	Create(ctx context.Context, entry *models.DownloadHistory) error
	ListByUser(ctx context.Context, userID uint) ([]*models.DownloadHistory, error)
}

// StatsRepo maintains the single aggregate statistics row.
type StatsRepo interface {
	// Recompute derives all aggregates from files and download_history
	// and persists them. Last writer wins.
	Recompute(ctx context.Context) (*models.StorageStats, error)
	// TableCounts reports raw row counts per table for admin reporting.
	TableCounts(ctx context.Context) (map[string]int64, error)
}

// BlobStore owns the on-disk layout of file content.
type BlobStore interface {
	// WriteStream streams r to the file named by id, enforcing the size
	// cap and computing the checksum in a single pass. On any failure
	// the partial file is removed before the error is returned.
	WriteStream(ctx context.Context, id string, r io.Reader) (path string, size int64, checksum string, err error)
	Path(id string) string
	Exists(path string) bool
	// Remove deletes the file at path. Missing files are not an error.
	Remove(path string) error
	FreeSpace() (uint64, error)
}

// TxManager runs a function inside one database transaction.
type TxManager interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
}
