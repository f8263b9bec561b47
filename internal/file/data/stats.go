package data

import (
	"context"
	"time"

	"github.com/telefiles/filedepot/internal/file/biz"
	"github.com/telefiles/filedepot/internal/file/models"
	"github.com/telefiles/filedepot/internal/pkg/database"
	"gorm.io/gorm/clause"
)

// StatsRepo implements biz.StatsRepo on gorm. The summary lives in a
// single row; every recomputation overwrites it wholesale, so concurrent
// writers converge on the latest full snapshot.
type StatsRepo struct {
	db *database.DB
}

func NewStatsRepo(db *database.DB) biz.StatsRepo {
	return &StatsRepo{db: db}
}

func (r *StatsRepo) Recompute(ctx context.Context) (*models.StorageStats, error) {
	tx := r.db.FromContext(ctx)

	var totalFiles, activeFiles int64
	if err := tx.Model(&models.FileRecord{}).Count(&totalFiles).Error; err != nil {
		return nil, err
	}
	if err := tx.Model(&models.FileRecord{}).
		Where("status = ?", models.StatusActive).
		Count(&activeFiles).Error; err != nil {
		return nil, err
	}

	var totalSize int64
	if err := tx.Model(&models.FileRecord{}).
		Where("status = ?", models.StatusActive).
		Select("COALESCE(SUM(file_size), 0)").
		Scan(&totalSize).Error; err != nil {
		return nil, err
	}

	var totalDownloads, totalServed int64
	if err := tx.Model(&models.FileRecord{}).
		Select("COALESCE(SUM(download_count), 0)").
		Scan(&totalDownloads).Error; err != nil {
		return nil, err
	}
	if err := tx.Model(&models.FileRecord{}).
		Select("COALESCE(SUM(total_served_bytes), 0)").
		Scan(&totalServed).Error; err != nil {
		return nil, err
	}

	var uniqueUsers int64
	if err := tx.Model(&models.FileRecord{}).
		Distinct("user_id").
		Count(&uniqueUsers).Error; err != nil {
		return nil, err
	}

	stats := &models.StorageStats{
		ID:               1,
		TotalFiles:       totalFiles,
		ActiveFiles:      activeFiles,
		TotalSizeBytes:   totalSize,
		TotalDownloads:   totalDownloads,
		TotalServedBytes: totalServed,
		UniqueUsers:      uniqueUsers,
		UpdatedAt:        time.Now().UTC(),
	}

	if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(stats).Error; err != nil {
		return nil, err
	}
	return stats, nil
}

func (r *StatsRepo) TableCounts(ctx context.Context) (map[string]int64, error) {
	tx := r.db.FromContext(ctx)
	counts := make(map[string]int64, 3)

	var n int64
	if err := tx.Model(&models.User{}).Count(&n).Error; err != nil {
		return nil, err
	}
	counts["users"] = n

	if err := tx.Model(&models.FileRecord{}).Count(&n).Error; err != nil {
		return nil, err
	}
	counts["files"] = n

	if err := tx.Model(&models.DownloadHistory{}).Count(&n).Error; err != nil {
		return nil, err
	}
	counts["download_history"] = n

	return counts, nil
}
