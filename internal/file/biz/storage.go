package biz

import (
	"context"
	"errors"
	"io"
	"mime"
	"path/filepath"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/telefiles/filedepot/internal/file/models"
	"github.com/telefiles/filedepot/internal/pkg/logger"
	"go.uber.org/zap"
)

const fallbackMimeType = "application/octet-stream"

// StorageConfig carries the retention policy for stored files.
type StorageConfig struct {
	RetentionDays int
}

// SaveRequest describes one inbound upload stream.
type SaveRequest struct {
	SourceFileID string
	Filename     string
	OwnerID      int64 // messaging-platform user id
	MimeType     string
	Content      io.Reader
}

// SaveResult is returned for a successfully stored file.
type SaveResult struct {
	FileID   string
	Size     int64
	Checksum string
}

// AccessInfo carries request-scoped context for download accounting.
type AccessInfo struct {
	IPAddress string
	UserAgent string
}

// FileHandle points at a servable file on disk.
type FileHandle struct {
	Path     string
	Filename string
	MimeType string
	Size     int64
}

// StorageInfo summarizes the depot for health and statistics endpoints.
type StorageInfo struct {
	Stats          *models.StorageStats
	FreeSpaceBytes uint64
}

// StorageUseCase implements the file intake and retrieval pipeline.
type StorageUseCase struct {
	files   FileRepo
	users   UserRepo
	history HistoryRepo
	stats   StatsRepo
	blob    BlobStore
	tx      TxManager
	cfg     StorageConfig
	logger  *logger.Logger
}

func NewStorageUseCase(
	files FileRepo,
	users UserRepo,
	history HistoryRepo,
	stats StatsRepo,
	blob BlobStore,
	tx TxManager,
	cfg StorageConfig,
	log *logger.Logger,
) *StorageUseCase {
	return &StorageUseCase{
		files:   files,
		users:   users,
		history: history,
		stats:   stats,
		blob:    blob,
		tx:      tx,
		cfg:     cfg,
		logger:  log,
	}
}

// SaveStream writes the upload to disk and registers its metadata.
//
// The disk write enforces the size cap and computes the checksum in a
// single pass; the metadata commit is one transaction covering user
// resolution, record insertion and the user's activity stamp. Any error
// after bytes hit the disk removes them before returning, so no orphan
// file ever outlives a failed save.
func (uc *StorageUseCase) SaveStream(ctx context.Context, req SaveRequest) (*SaveResult, error) {
	fileID := uuid.NewString()

	path, size, sum, err := uc.blob.WriteStream(ctx, fileID, req.Content)
	if err != nil {
		uc.logger.Error("failed to write upload stream",
			zap.String("file_id", fileID),
			zap.String("filename", req.Filename),
			zap.Error(err),
		)
		return nil, err
	}

	now := time.Now().UTC()
	record := &models.FileRecord{
		ID:               fileID,
		SourceFileID:     req.SourceFileID,
		OriginalFilename: req.Filename,
		MimeType:         uc.resolveMimeType(req.MimeType, req.Filename, path),
		FileSize:         size,
		FilePath:         path,
		Checksum:         sum,
		Status:           models.StatusActive,
		IsPublic:         true,
		CreatedAt:        now,
		LastAccessed:     now,
		ExpiresAt:        now.AddDate(0, 0, uc.cfg.RetentionDays),
	}

	err = uc.tx.Transaction(ctx, func(ctx context.Context) error {
		owner, err := uc.users.GetOrCreate(ctx, req.OwnerID)
		if err != nil {
			return err
		}
		record.UserID = owner.ID
		if err := uc.files.Create(ctx, record); err != nil {
			return err
		}
		return uc.users.TouchActivity(ctx, owner.ID, now)
	})
	if err != nil {
		// The bytes are already on disk; a record that failed to commit
		// must not leave them behind.
		if rmErr := uc.blob.Remove(path); rmErr != nil {
			uc.logger.Warn("failed to remove file after aborted save",
				zap.String("file_id", fileID),
				zap.Error(rmErr),
			)
		}
		uc.logger.Error("failed to register file metadata",
			zap.String("file_id", fileID),
			zap.String("source_file_id", req.SourceFileID),
			zap.Error(err),
		)
		return nil, err
	}

	uc.logger.Info("file saved",
		zap.String("file_id", fileID),
		zap.String("filename", req.Filename),
		zap.Int64("size", size),
		zap.Int64("owner_id", req.OwnerID),
	)

	return &SaveResult{FileID: fileID, Size: size, Checksum: sum}, nil
}

// GetFile looks up a servable file and records the download.
//
// Expiry is checked lazily: a record past its expires_at flips to
// expired as a side effect and is reported unavailable. A record whose
// bytes are missing from disk flips to deleted. Counter updates and the
// history row commit in one transaction.
func (uc *StorageUseCase) GetFile(ctx context.Context, fileID string, access AccessInfo) (*FileHandle, error) {
	record, err := uc.files.GetByID(ctx, fileID)
	if err != nil {
		return nil, err
	}

	switch record.Status {
	case models.StatusActive:
	case models.StatusExpired:
		return nil, ErrFileExpired
	default:
		return nil, ErrFileNotFound
	}

	now := time.Now().UTC()
	if record.IsExpired(now) {
		if err := uc.files.UpdateStatus(ctx, record.ID, models.StatusActive, models.StatusExpired); err != nil {
			uc.logger.Warn("failed to mark file expired", zap.String("file_id", record.ID), zap.Error(err))
		}
		return nil, ErrFileExpired
	}

	if !uc.blob.Exists(record.FilePath) {
		uc.logger.Warn("file missing from disk, marking deleted", zap.String("file_id", record.ID))
		if err := uc.files.UpdateStatus(ctx, record.ID, models.StatusActive, models.StatusDeleted); err != nil {
			uc.logger.Warn("failed to mark file deleted", zap.String("file_id", record.ID), zap.Error(err))
		}
		return nil, ErrFileNotFound
	}

	ownerID := record.UserID
	err = uc.tx.Transaction(ctx, func(ctx context.Context) error {
		if err := uc.files.RecordAccess(ctx, record.ID, record.FileSize, now); err != nil {
			return err
		}
		return uc.history.Create(ctx, &models.DownloadHistory{
			FileID:          record.ID,
			UserID:          &ownerID,
			DownloadedBytes: record.FileSize,
			DownloadedAt:    now,
			IPAddress:       access.IPAddress,
			UserAgent:       access.UserAgent,
		})
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("file downloaded",
		zap.String("file_id", record.ID),
		zap.String("filename", record.OriginalFilename),
		zap.String("ip", access.IPAddress),
	)

	return &FileHandle{
		Path:     record.FilePath,
		Filename: record.OriginalFilename,
		MimeType: record.MimeType,
		Size:     record.FileSize,
	}, nil
}

// DeleteFile removes the file's bytes and marks or removes its metadata.
// Disk removal is best-effort; a missing file does not fail the
// operation. Returns false when no such record exists.
func (uc *StorageUseCase) DeleteFile(ctx context.Context, fileID string, soft bool) (bool, error) {
	record, err := uc.files.GetByID(ctx, fileID)
	if err != nil {
		if errors.Is(err, ErrFileNotFound) {
			return false, nil
		}
		return false, err
	}

	if err := uc.blob.Remove(record.FilePath); err != nil {
		uc.logger.Warn("could not delete file from disk",
			zap.String("file_id", fileID),
			zap.Error(err),
		)
	}

	if !soft {
		err := uc.tx.Transaction(ctx, func(ctx context.Context) error {
			return uc.files.DeleteHard(ctx, fileID)
		})
		if err != nil {
			return false, err
		}
		uc.logger.Info("file hard-deleted", zap.String("file_id", fileID))
		return true, nil
	}

	// Expired and deleted are terminal; the bytes are gone either way,
	// so deleting an already-terminal record succeeds without a status
	// change.
	if !record.Status.Terminal() {
		if err := uc.files.UpdateStatus(ctx, fileID, record.Status, models.StatusDeleted); err != nil {
			return false, err
		}
	}
	uc.logger.Info("file deleted", zap.String("file_id", fileID))
	return true, nil
}

// sweepBatchSize bounds how many expired records one sweep pass loads.
const sweepBatchSize = 500

// SweepExpired frees disk bytes for active records past their expiry and
// marks them expired. Failures are isolated per record; one bad record
// never aborts the batch.
func (uc *StorageUseCase) SweepExpired(ctx context.Context) (int, error) {
	expired, err := uc.files.ListExpired(ctx, time.Now().UTC(), sweepBatchSize)
	if err != nil {
		return 0, err
	}

	swept := 0
	for _, record := range expired {
		if err := uc.blob.Remove(record.FilePath); err != nil {
			uc.logger.Warn("sweep: could not remove file from disk",
				zap.String("file_id", record.ID),
				zap.Error(err),
			)
		}
		if err := uc.files.UpdateStatus(ctx, record.ID, models.StatusActive, models.StatusExpired); err != nil {
			uc.logger.Warn("sweep: failed to expire record",
				zap.String("file_id", record.ID),
				zap.Error(err),
			)
			continue
		}
		swept++
	}

	if swept > 0 {
		uc.logger.Info("expired files swept", zap.Int("count", swept))
	}
	return swept, nil
}

// StorageInfo recomputes aggregate statistics and reports free disk
// space on the storage volume.
func (uc *StorageUseCase) StorageInfo(ctx context.Context) (*StorageInfo, error) {
	stats, err := uc.stats.Recompute(ctx)
	if err != nil {
		return nil, err
	}

	free, err := uc.blob.FreeSpace()
	if err != nil {
		uc.logger.Warn("could not determine free disk space", zap.Error(err))
		free = 0
	}

	return &StorageInfo{Stats: stats, FreeSpaceBytes: free}, nil
}

// resolveMimeType picks the stored MIME type: the caller's hint, then an
// extension-based guess, then a content sniff of the written bytes, then
// the generic fallback.
func (uc *StorageUseCase) resolveMimeType(hint, filename, path string) string {
	if hint != "" {
		return hint
	}
	if byExt := mime.TypeByExtension(filepath.Ext(filename)); byExt != "" {
		return byExt
	}
	if detected, err := mimetype.DetectFile(path); err == nil {
		return detected.String()
	}
	return fallbackMimeType
}
