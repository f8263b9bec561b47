package data

import (
	"context"
	"fmt"
	"time"

	"github.com/telefiles/filedepot/internal/file/biz"
	"github.com/telefiles/filedepot/internal/file/models"
	"github.com/telefiles/filedepot/internal/pkg/database"
	"gorm.io/gorm"
)

// FileRepo implements biz.FileRepo on gorm.
type FileRepo struct {
	db *database.DB
}

func NewFileRepo(db *database.DB) biz.FileRepo {
	return &FileRepo{db: db}
}

func (r *FileRepo) Create(ctx context.Context, file *models.FileRecord) error {
	if err := r.db.FromContext(ctx).Create(file).Error; err != nil {
		if database.IsDuplicateKey(err) {
			return fmt.Errorf("%w: source file id %q", biz.ErrDuplicateFile, file.SourceFileID)
		}
		return err
	}
	return nil
}

func (r *FileRepo) GetByID(ctx context.Context, id string) (*models.FileRecord, error) {
	var record models.FileRecord
	if err := r.db.FromContext(ctx).Where("id = ?", id).First(&record).Error; err != nil {
		if database.IsRecordNotFound(err) {
			return nil, biz.ErrFileNotFound
		}
		return nil, err
	}
	return &record, nil
}

// UpdateStatus applies the from -> to transition. The guard on the
// current status makes the transition atomic under concurrent updates:
// only one caller wins, and terminal states never change.
func (r *FileRepo) UpdateStatus(ctx context.Context, id string, from, to models.FileStatus) error {
	if !from.CanTransitionTo(to) {
		return fmt.Errorf("%w: %s -> %s", biz.ErrInvalidTransition, from, to)
	}

	res := r.db.FromContext(ctx).
		Model(&models.FileRecord{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := r.db.FromContext(ctx).
			Model(&models.FileRecord{}).
			Where("id = ?", id).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return biz.ErrFileNotFound
		}
		// The record moved away from the expected status concurrently.
		return fmt.Errorf("%w: %s -> %s", biz.ErrInvalidTransition, from, to)
	}
	return nil
}

// RecordAccess bumps the download counters with database-side increments
// so concurrent retrievals never lose updates.
func (r *FileRepo) RecordAccess(ctx context.Context, id string, bytes int64, at time.Time) error {
	return r.db.FromContext(ctx).
		Model(&models.FileRecord{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"download_count":     gorm.Expr("download_count + 1"),
			"total_served_bytes": gorm.Expr("total_served_bytes + ?", bytes),
			"last_accessed":      at,
		}).Error
}

func (r *FileRepo) ListExpired(ctx context.Context, now time.Time, limit int) ([]*models.FileRecord, error) {
	var records []*models.FileRecord
	err := r.db.FromContext(ctx).
		Where("status = ? AND expires_at <= ?", models.StatusActive, now).
		Limit(limit).
		Find(&records).Error
	return records, err
}

func (r *FileRepo) ListByUser(ctx context.Context, userID uint) ([]*models.FileRecord, error) {
	var records []*models.FileRecord
	err := r.db.FromContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&records).Error
	return records, err
}

func (r *FileRepo) Recent(ctx context.Context, limit int) ([]*models.FileRecord, error) {
	var records []*models.FileRecord
	err := r.db.FromContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	return records, err
}

func (r *FileRepo) TopDownloaded(ctx context.Context, limit int) ([]*models.FileRecord, error) {
	var records []*models.FileRecord
	err := r.db.FromContext(ctx).
		Order("download_count DESC").
		Limit(limit).
		Find(&records).Error
	return records, err
}

// DeleteHard removes the metadata row and its history. History rows are
// deleted explicitly so the behavior does not depend on driver-level
// foreign key enforcement.
func (r *FileRepo) DeleteHard(ctx context.Context, id string) error {
	tx := r.db.FromContext(ctx)
	if err := tx.Where("file_id = ?", id).Delete(&models.DownloadHistory{}).Error; err != nil {
		return err
	}
	res := tx.Where("id = ?", id).Delete(&models.FileRecord{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return biz.ErrFileNotFound
	}
	return nil
}
