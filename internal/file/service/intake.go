package service

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/telefiles/filedepot/internal/file/biz"
	apperrors "github.com/telefiles/filedepot/internal/pkg/errors"
	"github.com/telefiles/filedepot/internal/pkg/logger"
	"github.com/telefiles/filedepot/internal/pkg/ratelimit"
	"github.com/telefiles/filedepot/internal/pkg/response"
	"go.uber.org/zap"
)

// UploadEvent is the inbound event the chat-client collaborator hands
// to the pipeline for each file a user sends.
type UploadEvent struct {
	SourceFileID string
	Filename     string
	DeclaredSize int64 // size hint from the platform, 0 when unknown
	OwnerID      int64
	MimeType     string
	Content      io.Reader
}

// UploadResult is relayed back to the end user by the chat client.
type UploadResult struct {
	FileID      string
	Size        int64
	Checksum    string
	DownloadURL string
}

// IntakeConfig carries the admission policy for uploads.
type IntakeConfig struct {
	MaxFileSize     int64
	DownloadURLBase string
}

// IntakeService gates uploads through the rate limiter and forwards
// admitted streams to the storage engine.
type IntakeService struct {
	storage *biz.StorageUseCase
	limiter *ratelimit.Limiter
	cfg     IntakeConfig
	logger  *logger.Logger
}

func NewIntakeService(storage *biz.StorageUseCase, limiter *ratelimit.Limiter, cfg IntakeConfig, log *logger.Logger) *IntakeService {
	return &IntakeService{
		storage: storage,
		limiter: limiter,
		cfg:     cfg,
		logger:  log,
	}
}

// HandleUpload admits, stores and registers one upload. Rejections are
// reported as typed errors for the chat client to translate into user
// messages.
func (s *IntakeService) HandleUpload(ctx context.Context, event UploadEvent) (*UploadResult, error) {
	key := strconv.FormatInt(event.OwnerID, 10)
	if !s.limiter.Allow(key) {
		s.logger.Warn("upload rejected by rate limiter",
			zap.Int64("owner_id", event.OwnerID),
			zap.String("filename", event.Filename),
		)
		return nil, biz.ErrRateLimited
	}

	// A declared size above the cap fails fast; the streaming write
	// still enforces the cap when the hint is absent or wrong.
	if s.cfg.MaxFileSize > 0 && event.DeclaredSize > s.cfg.MaxFileSize {
		return nil, biz.ErrFileTooLarge
	}

	result, err := s.storage.SaveStream(ctx, biz.SaveRequest{
		SourceFileID: event.SourceFileID,
		Filename:     event.Filename,
		OwnerID:      event.OwnerID,
		MimeType:     event.MimeType,
		Content:      event.Content,
	})
	if err != nil {
		return nil, err
	}

	return &UploadResult{
		FileID:      result.FileID,
		Size:        result.Size,
		Checksum:    result.Checksum,
		DownloadURL: fmt.Sprintf("%s/download/%s", s.cfg.DownloadURLBase, result.FileID),
	}, nil
}

// Remaining reports the upload headroom for a user without consuming it.
func (s *IntakeService) Remaining(ownerID int64) int {
	return s.limiter.Remaining(strconv.FormatInt(ownerID, 10))
}

// RegisterRoutes attaches the intake endpoint to the router.
func (s *IntakeService) RegisterRoutes(r *gin.Engine) {
	r.POST("/upload", s.Upload)
}

// Upload accepts one multipart upload from the chat-client glue. The
// file part streams through the same admission and storage pipeline as
// any other intake.
func (s *IntakeService) Upload(c *gin.Context) {
	ownerID, err := strconv.ParseInt(c.PostForm("owner_id"), 10, 64)
	if err != nil {
		response.ErrorWithCode(c, apperrors.ErrInvalidParams, "owner_id must be an integer")
		return
	}

	sourceFileID := c.PostForm("source_file_id")
	if sourceFileID == "" {
		response.ErrorWithCode(c, apperrors.ErrInvalidParams, "source_file_id is required")
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.ErrorWithCode(c, apperrors.ErrInvalidParams, "file part is required")
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		response.HandleError(c, toAppError(err))
		return
	}
	defer f.Close()

	result, err := s.HandleUpload(c.Request.Context(), UploadEvent{
		SourceFileID: sourceFileID,
		Filename:     fileHeader.Filename,
		DeclaredSize: fileHeader.Size,
		OwnerID:      ownerID,
		MimeType:     fileHeader.Header.Get("Content-Type"),
		Content:      f,
	})
	if err != nil {
		response.HandleError(c, toAppError(err))
		return
	}

	response.Success(c, gin.H{
		"file_id":      result.FileID,
		"size":         result.Size,
		"checksum":     result.Checksum,
		"download_url": result.DownloadURL,
	})
}
