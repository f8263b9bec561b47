package biz

import (
	"context"
	"time"

	"github.com/telefiles/filedepot/internal/file/models"
	"github.com/telefiles/filedepot/internal/pkg/logger"
	"go.uber.org/zap"
)

// UserDataUseCase implements per-user data export and erasure.
type UserDataUseCase struct {
	files   FileRepo
	users   UserRepo
	history HistoryRepo
	blob    BlobStore
	tx      TxManager
	logger  *logger.Logger
}

func NewUserDataUseCase(
	files FileRepo,
	users UserRepo,
	history HistoryRepo,
	blob BlobStore,
	tx TxManager,
	log *logger.Logger,
) *UserDataUseCase {
	return &UserDataUseCase{
		files:   files,
		users:   users,
		history: history,
		blob:    blob,
		tx:      tx,
		logger:  log,
	}
}

// UserExport bundles everything stored about one user.
type UserExport struct {
	User       *models.User
	Files      []*models.FileRecord
	Downloads  []*models.DownloadHistory
	ExportedAt time.Time
}

// Export collects the user's row, owned files and download history.
func (uc *UserDataUseCase) Export(ctx context.Context, platformUserID int64) (*UserExport, error) {
	user, err := uc.users.GetByPlatformID(ctx, platformUserID)
	if err != nil {
		return nil, err
	}

	files, err := uc.files.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	downloads, err := uc.history.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	return &UserExport{
		User:       user,
		Files:      files,
		Downloads:  downloads,
		ExportedAt: time.Now().UTC(),
	}, nil
}

// Erase removes all data for the user: file bytes on disk (best-effort),
// then the user row with its files and history in one transaction.
func (uc *UserDataUseCase) Erase(ctx context.Context, platformUserID int64) error {
	user, err := uc.users.GetByPlatformID(ctx, platformUserID)
	if err != nil {
		return err
	}

	files, err := uc.files.ListByUser(ctx, user.ID)
	if err != nil {
		return err
	}

	for _, f := range files {
		if err := uc.blob.Remove(f.FilePath); err != nil {
			uc.logger.Warn("erasure: could not remove file from disk",
				zap.String("file_id", f.ID),
				zap.Error(err),
			)
		}
	}

	if err := uc.tx.Transaction(ctx, func(ctx context.Context) error {
		return uc.users.Delete(ctx, user.ID)
	}); err != nil {
		return err
	}

	uc.logger.Info("user data erased",
		zap.Int64("platform_user_id", platformUserID),
		zap.Int("files", len(files)),
	)
	return nil
}
