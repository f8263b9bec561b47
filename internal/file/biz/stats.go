package biz

import (
	"context"

	"github.com/telefiles/filedepot/internal/file/models"
	"github.com/telefiles/filedepot/internal/pkg/logger"
	"go.uber.org/zap"
)

// StatsUseCase derives aggregate statistics and admin summaries from the
// metadata store. Recomputation is advisory: concurrent callers may
// race, last writer wins.
type StatsUseCase struct {
	files  FileRepo
	users  UserRepo
	stats  StatsRepo
	logger *logger.Logger
}

func NewStatsUseCase(files FileRepo, users UserRepo, stats StatsRepo, log *logger.Logger) *StatsUseCase {
	return &StatsUseCase{files: files, users: users, stats: stats, logger: log}
}

// Recompute refreshes the cached aggregate row from scratch.
func (uc *StatsUseCase) Recompute(ctx context.Context) (*models.StorageStats, error) {
	stats, err := uc.stats.Recompute(ctx)
	if err != nil {
		uc.logger.Error("statistics recomputation failed", zap.Error(err))
		return nil, err
	}
	return stats, nil
}

// AdminSummary carries the detailed view behind the admin endpoint.
type AdminSummary struct {
	Stats       *models.StorageStats
	RecentFiles []*models.FileRecord
	TopFiles    []*models.FileRecord
	TopUsers    []*models.User
	TableCounts map[string]int64
}

// AdminStats assembles recent files, most-downloaded files and the most
// recently active users alongside the recomputed aggregates.
func (uc *StatsUseCase) AdminStats(ctx context.Context, limit int) (*AdminSummary, error) {
	if limit <= 0 {
		limit = 10
	}

	stats, err := uc.stats.Recompute(ctx)
	if err != nil {
		return nil, err
	}

	recent, err := uc.files.Recent(ctx, limit)
	if err != nil {
		return nil, err
	}

	top, err := uc.files.TopDownloaded(ctx, limit)
	if err != nil {
		return nil, err
	}

	topUsers, err := uc.users.TopActive(ctx, limit)
	if err != nil {
		return nil, err
	}

	counts, err := uc.stats.TableCounts(ctx)
	if err != nil {
		return nil, err
	}

	return &AdminSummary{
		Stats:       stats,
		RecentFiles: recent,
		TopFiles:    top,
		TopUsers:    topUsers,
		TableCounts: counts,
	}, nil
}
