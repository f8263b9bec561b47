package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
	"github.com/telefiles/filedepot/internal/file/biz"
	"github.com/telefiles/filedepot/internal/file/models"
	"github.com/telefiles/filedepot/internal/pkg/database"
	apperrors "github.com/telefiles/filedepot/internal/pkg/errors"
	"github.com/telefiles/filedepot/internal/pkg/logger"
	"github.com/telefiles/filedepot/internal/pkg/response"
	"github.com/telefiles/filedepot/internal/pkg/validator"
	"github.com/telefiles/filedepot/internal/pkg/workerpool"
	"go.uber.org/zap"
)

// FileService exposes the retrieval, statistics and maintenance
// endpoints over HTTP.
type FileService struct {
	storage  *biz.StorageUseCase
	stats    *biz.StatsUseCase
	userData *biz.UserDataUseCase
	pool     *workerpool.Pool
	db       *database.DB
	logger   *logger.Logger
}

func NewFileService(
	storage *biz.StorageUseCase,
	stats *biz.StatsUseCase,
	userData *biz.UserDataUseCase,
	pool *workerpool.Pool,
	db *database.DB,
	log *logger.Logger,
) *FileService {
	return &FileService{
		storage:  storage,
		stats:    stats,
		userData: userData,
		pool:     pool,
		db:       db,
		logger:   log,
	}
}

// RegisterRoutes attaches all endpoints to the router.
func (s *FileService) RegisterRoutes(r *gin.Engine) {
	r.GET("/", s.Root)
	r.GET("/download/:file_id", s.Download)
	r.GET("/health", s.Health)
	r.GET("/statistics", s.Statistics)
	r.POST("/cleanup", s.Cleanup)

	admin := r.Group("/admin")
	admin.GET("/stats", s.AdminStats)
	admin.DELETE("/files/:file_id", s.DeleteFile)
	admin.GET("/users/:user_id/export", s.ExportUser)
	admin.DELETE("/users/:user_id", s.EraseUser)
}

// Root reports service metadata and the available endpoints.
func (s *FileService) Root(c *gin.Context) {
	response.Success(c, gin.H{
		"service": "filedepot",
		"status":  "running",
		"endpoints": gin.H{
			"download":   "/download/{file_id}",
			"health":     "/health",
			"statistics": "/statistics",
			"cleanup":    "/cleanup",
			"admin":      "/admin/stats",
		},
	})
}

// Download streams a stored file back to the client. The identifier is
// validated before any storage lookup; the filename always comes from
// metadata, never from the path.
func (s *FileService) Download(c *gin.Context) {
	fileID := c.Param("file_id")
	if !validator.IsValidFileID(fileID) {
		s.logger.Warn("invalid file id format",
			zap.String("file_id", fileID),
			zap.String("ip", c.ClientIP()),
		)
		response.ErrorWithCode(c, apperrors.ErrFileInvalidID)
		return
	}

	access := biz.AccessInfo{
		IPAddress: validator.IPOrDefault(c.ClientIP(), "unknown"),
		UserAgent: c.Request.UserAgent(),
	}

	handle, err := s.storage.GetFile(c.Request.Context(), fileID, access)
	if err != nil {
		response.HandleError(c, toAppError(err))
		return
	}

	c.FileAttachment(handle.Path, handle.Filename)
}

// Health reports database and storage health.
func (s *FileService) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := s.db.HealthCheck(ctx); err != nil {
		s.logger.Error("health check failed", zap.Error(err))
		response.ErrorWithCode(c, apperrors.ErrServiceUnavail)
		return
	}

	info, err := s.storage.StorageInfo(ctx)
	if err != nil {
		s.logger.Error("health check failed", zap.Error(err))
		response.ErrorWithCode(c, apperrors.ErrServiceUnavail)
		return
	}

	response.Success(c, gin.H{
		"status": "healthy",
		"storage": gin.H{
			"total_files":     info.Stats.TotalFiles,
			"active_files":    info.Stats.ActiveFiles,
			"total_size":      humanize.Bytes(uint64(info.Stats.TotalSizeBytes)),
			"available_space": humanize.Bytes(info.FreeSpaceBytes),
		},
	})
}

// Statistics reports the recomputed aggregate summary.
func (s *FileService) Statistics(c *gin.Context) {
	info, err := s.storage.StorageInfo(c.Request.Context())
	if err != nil {
		response.HandleError(c, toAppError(err))
		return
	}

	response.Success(c, gin.H{
		"storage": gin.H{
			"total_files":           info.Stats.TotalFiles,
			"active_files":          info.Stats.ActiveFiles,
			"total_size_bytes":      info.Stats.TotalSizeBytes,
			"total_size":            humanize.Bytes(uint64(info.Stats.TotalSizeBytes)),
			"available_space_bytes": info.FreeSpaceBytes,
			"available_space":       humanize.Bytes(info.FreeSpaceBytes),
		},
		"downloads": gin.H{
			"total_downloads":    info.Stats.TotalDownloads,
			"total_served_bytes": info.Stats.TotalServedBytes,
			"total_served":       humanize.Bytes(uint64(info.Stats.TotalServedBytes)),
		},
		"users": gin.H{
			"unique_users": info.Stats.UniqueUsers,
		},
		"updated_at": info.Stats.UpdatedAt,
	})
}

// AdminStats reports the detailed admin summary.
func (s *FileService) AdminStats(c *gin.Context) {
	summary, err := s.stats.AdminStats(c.Request.Context(), 10)
	if err != nil {
		response.HandleError(c, toAppError(err))
		return
	}

	recent := make([]gin.H, len(summary.RecentFiles))
	for i, f := range summary.RecentFiles {
		recent[i] = fileSummary(f)
	}
	top := make([]gin.H, len(summary.TopFiles))
	for i, f := range summary.TopFiles {
		top[i] = fileSummary(f)
	}
	topUsers := make([]gin.H, len(summary.TopUsers))
	for i, u := range summary.TopUsers {
		topUsers[i] = gin.H{
			"platform_user_id": u.PlatformUserID,
			"username":         u.Username,
			"last_activity":    u.LastActivity,
		}
	}

	response.Success(c, gin.H{
		"stats":        summary.Stats,
		"recent_files": recent,
		"top_files":    top,
		"top_users":    topUsers,
		"tables":       summary.TableCounts,
		"db_pool":      s.db.PoolStats(),
	})
}

// Cleanup triggers an expired-file sweep in the background and returns
// immediately.
func (s *FileService) Cleanup(c *gin.Context) {
	err := s.pool.Submit("sweep-expired", func() error {
		_, err := s.storage.SweepExpired(context.Background())
		return err
	})
	if err != nil {
		s.logger.Error("failed to schedule cleanup", zap.Error(err))
		response.ErrorWithCode(c, apperrors.ErrInternalServer)
		return
	}

	response.Accepted(c, "expired files cleanup in progress")
}

// DeleteFile removes a file. `?hard=true` purges the metadata row too.
func (s *FileService) DeleteFile(c *gin.Context) {
	fileID := c.Param("file_id")
	if !validator.IsValidFileID(fileID) {
		response.ErrorWithCode(c, apperrors.ErrFileInvalidID)
		return
	}

	hard := c.Query("hard") == "true"
	deleted, err := s.storage.DeleteFile(c.Request.Context(), fileID, !hard)
	if err != nil {
		response.HandleError(c, toAppError(err))
		return
	}
	if !deleted {
		response.ErrorWithCode(c, apperrors.ErrFileNotFound)
		return
	}

	response.Success(c, gin.H{"deleted": fileID, "hard": hard})
}

// ExportUser returns everything stored about a platform user.
func (s *FileService) ExportUser(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil {
		response.ErrorWithCode(c, apperrors.ErrInvalidParams, "user_id must be an integer")
		return
	}

	export, err := s.userData.Export(c.Request.Context(), userID)
	if err != nil {
		response.HandleError(c, toAppError(err))
		return
	}

	response.Success(c, export)
}

// EraseUser removes all data owned by a platform user.
func (s *FileService) EraseUser(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil {
		response.ErrorWithCode(c, apperrors.ErrInvalidParams, "user_id must be an integer")
		return
	}

	if err := s.userData.Erase(c.Request.Context(), userID); err != nil {
		response.HandleError(c, toAppError(err))
		return
	}

	response.Success(c, gin.H{"erased": userID})
}

func fileSummary(f *models.FileRecord) gin.H {
	return gin.H{
		"id":         f.ID,
		"filename":   f.OriginalFilename,
		"size":       f.FileSize,
		"status":     f.Status,
		"downloads":  f.DownloadCount,
		"created_at": f.CreatedAt,
		"expires_at": f.ExpiresAt,
	}
}

// toAppError maps pipeline sentinels to business error codes.
func toAppError(err error) error {
	switch {
	case errors.Is(err, biz.ErrFileNotFound):
		return apperrors.Wrap(err, apperrors.ErrFileNotFound)
	case errors.Is(err, biz.ErrFileExpired):
		return apperrors.Wrap(err, apperrors.ErrFileExpired)
	case errors.Is(err, biz.ErrFileTooLarge):
		return apperrors.Wrap(err, apperrors.ErrFileTooLarge)
	case errors.Is(err, biz.ErrDuplicateFile):
		return apperrors.Wrap(err, apperrors.ErrFileDuplicate)
	case errors.Is(err, biz.ErrRateLimited):
		return apperrors.Wrap(err, apperrors.ErrUserRateLimited)
	case errors.Is(err, biz.ErrUserNotFound):
		return apperrors.Wrap(err, apperrors.ErrUserNotFound)
	default:
		return apperrors.Wrap(err, apperrors.ErrInternalServer)
	}
}
