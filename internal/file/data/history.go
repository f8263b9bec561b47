package data

import (
	"context"

	"github.com/telefiles/filedepot/internal/file/biz"
	"github.com/telefiles/filedepot/internal/file/models"
	"github.com/telefiles/filedepot/internal/pkg/database"
)

// HistoryRepo implements biz.HistoryRepo on gorm.
type HistoryRepo struct {
	db *database.DB
}

func NewHistoryRepo(db *database.DB) biz.HistoryRepo {
	return &HistoryRepo{db: db}
}

func (r *HistoryRepo) Create(ctx context.Context, entry *models.DownloadHistory) error {
	return r.db.FromContext(ctx).Create(entry).Error
}

func (r *HistoryRepo) ListByUser(ctx context.Context, userID uint) ([]*models.DownloadHistory, error) {
	var entries []*models.DownloadHistory
	err := r.db.FromContext(ctx).
		Where("user_id = ?", userID).
		Order("downloaded_at DESC").
		Find(&entries).Error
	return entries, err
}
