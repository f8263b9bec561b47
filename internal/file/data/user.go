package data

import (
	"context"
	"time"

	"github.com/telefiles/filedepot/internal/file/biz"
	"github.com/telefiles/filedepot/internal/file/models"
	"github.com/telefiles/filedepot/internal/pkg/database"
)

// UserRepo implements biz.UserRepo on gorm.
type UserRepo struct {
	db *database.DB
}

func NewUserRepo(db *database.DB) biz.UserRepo {
	return &UserRepo{db: db}
}

// GetOrCreate resolves the user row for a platform id, creating it on
// first contact. A concurrent create losing the unique-constraint race
// falls back to fetching the winner's row.
func (r *UserRepo) GetOrCreate(ctx context.Context, platformUserID int64) (*models.User, error) {
	tx := r.db.FromContext(ctx)

	var user models.User
	err := tx.Where("platform_user_id = ?", platformUserID).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !database.IsRecordNotFound(err) {
		return nil, err
	}

	now := time.Now().UTC()
	user = models.User{
		PlatformUserID: platformUserID,
		IsActive:       true,
		CreatedAt:      now,
		LastActivity:   now,
	}
	if err := tx.Create(&user).Error; err != nil {
		if database.IsDuplicateKey(err) {
			var existing models.User
			if err := tx.Where("platform_user_id = ?", platformUserID).First(&existing).Error; err != nil {
				return nil, err
			}
			return &existing, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *UserRepo) GetByPlatformID(ctx context.Context, platformUserID int64) (*models.User, error) {
	var user models.User
	err := r.db.FromContext(ctx).Where("platform_user_id = ?", platformUserID).First(&user).Error
	if err != nil {
		if database.IsRecordNotFound(err) {
			return nil, biz.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *UserRepo) TouchActivity(ctx context.Context, id uint, at time.Time) error {
	return r.db.FromContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Update("last_activity", at).Error
}

func (r *UserRepo) TopActive(ctx context.Context, limit int) ([]*models.User, error) {
	var users []*models.User
	err := r.db.FromContext(ctx).
		Order("last_activity DESC").
		Limit(limit).
		Find(&users).Error
	return users, err
}

// Delete removes the user and everything owned by it. Cascades run
// explicitly so erasure does not depend on driver-level foreign key
// enforcement.
func (r *UserRepo) Delete(ctx context.Context, id uint) error {
	tx := r.db.FromContext(ctx)

	if err := tx.Where("user_id = ?", id).Delete(&models.DownloadHistory{}).Error; err != nil {
		return err
	}
	if err := tx.Where("user_id = ?", id).Delete(&models.FileRecord{}).Error; err != nil {
		return err
	}
	res := tx.Where("id = ?", id).Delete(&models.User{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return biz.ErrUserNotFound
	}
	return nil
}
