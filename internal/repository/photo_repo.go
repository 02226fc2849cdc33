package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/snapfeed/snapfeed-backend/internal/domain"
	"gorm.io/gorm"
)

// TargetFinder resolves a reaction target and its owning photo
type TargetFinder interface {
	FindTarget(ctx context.Context, targetType domain.TargetType, id uint64) (domain.TargetRef, error)
}

// PhotoRepository handles photos and their comments
type PhotoRepository interface {
	TargetFinder

	FindByID(ctx context.Context, id uint64, withComments bool) (*domain.Photo, error)
	ListRecent(ctx context.Context, cursor *domain.FeedCursor, limit int) ([]*domain.Photo, error)
	ListByUser(ctx context.Context, userID uint64) ([]*domain.Photo, error)
	Create(ctx context.Context, photo *domain.Photo) error
	UpdateDescription(ctx context.Context, id uint64, description string) error
	UpdateImage(ctx context.Context, photo *domain.Photo) error
	// Delete removes the photo, its comments and every reaction on either
	Delete(ctx context.Context, id uint64) error

	FindComment(ctx context.Context, photoID, commentID uint64) (*domain.Comment, error)
	AddComment(ctx context.Context, comment *domain.Comment) error
	UpdateComment(ctx context.Context, photoID, commentID uint64, text string) error
	DeleteComment(ctx context.Context, photoID, commentID uint64) error
}

type photoRepository struct {
	db *gorm.DB
}

// NewPhotoRepository creates a new PhotoRepository
func NewPhotoRepository(db *gorm.DB) PhotoRepository {
	return &photoRepository{db: db}
}

func preloadComments(db *gorm.DB) *gorm.DB {
	return db.Order("date_time ASC, id ASC")
}

// FindTarget checks that the target exists. Missing targets yield gorm.ErrRecordNotFound.
func (r *photoRepository) FindTarget(ctx context.Context, targetType domain.TargetType, id uint64) (domain.TargetRef, error) {
	switch targetType {
	case domain.TargetPhoto:
		var photo domain.Photo
		if err := r.db.WithContext(ctx).Select("id").Where("id = ?", id).Take(&photo).Error; err != nil {
			return domain.TargetRef{}, err
		}
		return domain.TargetRef{Type: domain.TargetPhoto, ID: photo.ID, PhotoID: photo.ID}, nil
	case domain.TargetComment:
		var comment domain.Comment
		if err := r.db.WithContext(ctx).Select("id", "photo_id").Where("id = ?", id).Take(&comment).Error; err != nil {
			return domain.TargetRef{}, err
		}
		return domain.TargetRef{Type: domain.TargetComment, ID: comment.ID, PhotoID: comment.PhotoID}, nil
	default:
		return domain.TargetRef{}, fmt.Errorf("find target: unknown target type %q", targetType)
	}
}

// FindByID retrieves a photo with its author, optionally with ordered comments
func (r *photoRepository) FindByID(ctx context.Context, id uint64, withComments bool) (*domain.Photo, error) {
	query := r.db.WithContext(ctx).Preload("Author")
	if withComments {
		query = query.Preload("Comments", preloadComments).Preload("Comments.Author")
	}

	var photo domain.Photo
	if err := query.Where("id = ?", id).Take(&photo).Error; err != nil {
		return nil, err
	}
	return &photo, nil
}

// ListRecent returns up to limit photos strictly after the cursor, newest first
func (r *photoRepository) ListRecent(ctx context.Context, cursor *domain.FeedCursor, limit int) ([]*domain.Photo, error) {
	query := r.db.WithContext(ctx).Preload("Author")
	if cursor != nil {
		query = query.Where("date_time < ? OR (date_time = ? AND id < ?)", cursor.DateTime, cursor.DateTime, cursor.ID)
	}

	var photos []*domain.Photo
	err := query.Order("date_time DESC, id DESC").Limit(limit).Find(&photos).Error
	return photos, err
}

// ListByUser returns every photo of a user with comments, newest first
func (r *photoRepository) ListByUser(ctx context.Context, userID uint64) ([]*domain.Photo, error) {
	var photos []*domain.Photo
	err := r.db.WithContext(ctx).
		Preload("Author").
		Preload("Comments", preloadComments).
		Preload("Comments.Author").
		Where("user_id = ?", userID).
		Order("date_time DESC, id DESC").
		Find(&photos).Error
	return photos, err
}

// Create inserts a new photo
func (r *photoRepository) Create(ctx context.Context, photo *domain.Photo) error {
	return r.db.WithContext(ctx).Omit("Author", "Comments").Create(photo).Error
}

// UpdateDescription replaces the caption
func (r *photoRepository) UpdateDescription(ctx context.Context, id uint64, description string) error {
	return r.db.WithContext(ctx).Model(&domain.Photo{}).Where("id = ?", id).Update("description", description).Error
}

// UpdateImage replaces the stored image metadata; counters are untouched
func (r *photoRepository) UpdateImage(ctx context.Context, photo *domain.Photo) error {
	return r.db.WithContext(ctx).Model(&domain.Photo{}).Where("id = ?", photo.ID).UpdateColumns(map[string]interface{}{
		"image_url": photo.ImageURL,
		"public_id": photo.PublicID,
		"width":     photo.Width,
		"height":    photo.Height,
		"format":    photo.Format,
		"bytes":     photo.Bytes,
	}).Error
}

// Delete removes a photo with its comments and reactions in one transaction
func (r *photoRepository) Delete(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var commentIDs []uint64
		if err := tx.Model(&domain.Comment{}).Where("photo_id = ?", id).Pluck("id", &commentIDs).Error; err != nil {
			return err
		}

		if len(commentIDs) > 0 {
			if err := tx.Where("target_type = ? AND target_id IN ?", domain.TargetComment, commentIDs).
				Delete(&domain.Reaction{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("target_type = ? AND target_id = ?", domain.TargetPhoto, id).
			Delete(&domain.Reaction{}).Error; err != nil {
			return err
		}
		if err := tx.Where("photo_id = ?", id).Delete(&domain.Comment{}).Error; err != nil {
			return err
		}

		result := tx.Where("id = ?", id).Delete(&domain.Photo{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// FindComment retrieves a comment scoped to its photo
func (r *photoRepository) FindComment(ctx context.Context, photoID, commentID uint64) (*domain.Comment, error) {
	var comment domain.Comment
	err := r.db.WithContext(ctx).
		Preload("Author").
		Where("id = ? AND photo_id = ?", commentID, photoID).
		Take(&comment).Error
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

// AddComment inserts a comment
func (r *photoRepository) AddComment(ctx context.Context, comment *domain.Comment) error {
	return r.db.WithContext(ctx).Omit("Author").Create(comment).Error
}

// UpdateComment replaces the text of a comment
func (r *photoRepository) UpdateComment(ctx context.Context, photoID, commentID uint64, text string) error {
	return r.db.WithContext(ctx).
		Model(&domain.Comment{}).
		Where("id = ? AND photo_id = ?", commentID, photoID).
		Update("comment", text).Error
}

// DeleteComment removes a comment and the reactions on it
func (r *photoRepository) DeleteComment(ctx context.Context, photoID, commentID uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("id = ? AND photo_id = ?", commentID, photoID).Delete(&domain.Comment{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Where("target_type = ? AND target_id = ?", domain.TargetComment, commentID).
			Delete(&domain.Reaction{}).Error
	})
}

// IsNotFound reports whether err is a missing-row error from this package
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
