package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/jonboulle/clockwork"
	"github.com/snapfeed/snapfeed-backend/internal/common"
	"github.com/snapfeed/snapfeed-backend/internal/domain"
	"github.com/snapfeed/snapfeed-backend/internal/repository"
	pkglogger "github.com/snapfeed/snapfeed-backend/pkg/logger"
	"github.com/snapfeed/snapfeed-backend/pkg/storage"
)

const (
	MaxDescriptionLength = 200
	DefaultMaxUploadSize = 10 << 20
)

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
	"image/heic": true,
	"image/heif": true,
}

// ImageUpload is an uploaded image as received from a multipart form
type ImageUpload struct {
	Body        io.Reader
	Filename    string
	ContentType string
	Size        int64
}

// PhotoService handles photo and comment writes
type PhotoService interface {
	CreatePhoto(ctx context.Context, actor domain.Actor, upload *ImageUpload, description string) (*domain.PhotoView, error)
	UpdateDescription(ctx context.Context, actor domain.Actor, photoID uint64, description string) (*domain.PhotoView, error)
	ReplaceImage(ctx context.Context, actor domain.Actor, photoID uint64, upload *ImageUpload) (*domain.PhotoView, error)
	DeletePhoto(ctx context.Context, actor domain.Actor, photoID uint64) error

	AddComment(ctx context.Context, actor domain.Actor, photoID uint64, text string) (*domain.PhotoView, error)
	UpdateComment(ctx context.Context, actor domain.Actor, photoID, commentID uint64, text string) (*domain.PhotoView, error)
	DeleteComment(ctx context.Context, actor domain.Actor, photoID, commentID uint64) (*domain.PhotoView, error)
}

type photoService struct {
	photos        repository.PhotoRepository
	feed          FeedService
	uploader      storage.Uploader
	clock         clockwork.Clock
	maxUploadSize int64
}

// NewPhotoService creates a new PhotoService
func NewPhotoService(photos repository.PhotoRepository, feed FeedService, uploader storage.Uploader, clock clockwork.Clock, maxUploadSize int64) PhotoService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if maxUploadSize <= 0 {
		maxUploadSize = DefaultMaxUploadSize
	}
	return &photoService{
		photos:        photos,
		feed:          feed,
		uploader:      uploader,
		clock:         clock,
		maxUploadSize: maxUploadSize,
	}
}

func normalizeDescription(raw string) (string, error) {
	description := strings.TrimSpace(raw)
	if utf8.RuneCountInString(description) > MaxDescriptionLength {
		return "", common.ErrDescriptionTooLong
	}
	return description, nil
}

func (s *photoService) validateUpload(upload *ImageUpload) error {
	if upload == nil || upload.Body == nil || upload.Size <= 0 {
		return fmt.Errorf("%w: no file uploaded", common.ErrInvalidUpload)
	}
	if !allowedImageTypes[strings.ToLower(upload.ContentType)] {
		return fmt.Errorf("%w: only image files are allowed", common.ErrInvalidUpload)
	}
	if upload.Size > s.maxUploadSize {
		return fmt.Errorf("%w: file exceeds %d bytes", common.ErrInvalidUpload, s.maxUploadSize)
	}
	return nil
}

func (s *photoService) store(ctx context.Context, upload *ImageUpload) (*storage.UploadResult, error) {
	key := storage.GenerateKey("photos", upload.Filename, s.clock.Now())
	res, err := s.uploader.Upload(ctx, key, upload.Body, upload.ContentType, upload.Size)
	if err != nil {
		return nil, fmt.Errorf("store image: %w", err)
	}
	return res, nil
}

// removeAsset deletes a replaced image; failures are logged, the write already succeeded
func (s *photoService) removeAsset(ctx context.Context, publicID string) {
	if publicID == "" {
		return
	}
	if err := s.uploader.Delete(ctx, publicID); err != nil {
		pkglogger.GetLogger().Warn().Err(err).Str("public_id", publicID).Msg("failed to delete old image")
	}
}

func (s *photoService) loadPhoto(ctx context.Context, photoID uint64) (*domain.Photo, error) {
	if photoID == 0 {
		return nil, common.ErrInvalidID
	}
	photo, err := s.photos.FindByID(ctx, photoID, false)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, common.ErrPhotoNotFound
		}
		return nil, fmt.Errorf("find photo: %w", err)
	}
	return photo, nil
}

func (s *photoService) loadComment(ctx context.Context, photoID, commentID uint64) (*domain.Comment, error) {
	if _, err := s.loadPhoto(ctx, photoID); err != nil {
		return nil, err
	}
	if commentID == 0 {
		return nil, common.ErrInvalidID
	}
	comment, err := s.photos.FindComment(ctx, photoID, commentID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, common.ErrCommentNotFound
		}
		return nil, fmt.Errorf("find comment: %w", err)
	}
	return comment, nil
}

// CreatePhoto uploads the image and records a new photo owned by the actor
func (s *photoService) CreatePhoto(ctx context.Context, actor domain.Actor, upload *ImageUpload, description string) (*domain.PhotoView, error) {
	if err := s.validateUpload(upload); err != nil {
		return nil, err
	}
	if actor.UserID == 0 {
		return nil, common.ErrUnauthorized
	}
	description, err := normalizeDescription(description)
	if err != nil {
		return nil, err
	}

	stored, err := s.store(ctx, upload)
	if err != nil {
		return nil, err
	}

	photo := &domain.Photo{
		UserID:      actor.UserID,
		ImageURL:    stored.URL,
		PublicID:    stored.PublicID,
		Width:       stored.Width,
		Height:      stored.Height,
		Format:      stored.Format,
		Bytes:       stored.Size,
		Description: description,
		DateTime:    s.clock.Now().UTC(),
	}
	if err := s.photos.Create(ctx, photo); err != nil {
		s.removeAsset(ctx, stored.PublicID)
		return nil, fmt.Errorf("create photo: %w", err)
	}

	views, err := s.feed.AttachReactions(ctx, []*domain.Photo{photo}, 0)
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// UpdateDescription changes the caption; only the owner may do this
func (s *photoService) UpdateDescription(ctx context.Context, actor domain.Actor, photoID uint64, description string) (*domain.PhotoView, error) {
	if photoID == 0 {
		return nil, common.ErrInvalidID
	}
	description, err := normalizeDescription(description)
	if err != nil {
		return nil, err
	}

	photo, err := s.loadPhoto(ctx, photoID)
	if err != nil {
		return nil, err
	}
	if actor.UserID == 0 || photo.UserID != actor.UserID {
		return nil, common.ErrForbidden
	}

	if err := s.photos.UpdateDescription(ctx, photoID, description); err != nil {
		return nil, fmt.Errorf("update description: %w", err)
	}
	return s.feed.PhotoDetail(ctx, actor.UserID, photoID)
}

// ReplaceImage swaps the stored image and removes the previous object
func (s *photoService) ReplaceImage(ctx context.Context, actor domain.Actor, photoID uint64, upload *ImageUpload) (*domain.PhotoView, error) {
	if photoID == 0 {
		return nil, common.ErrInvalidID
	}
	if err := s.validateUpload(upload); err != nil {
		return nil, err
	}

	photo, err := s.loadPhoto(ctx, photoID)
	if err != nil {
		return nil, err
	}
	if !actor.IsOwnerOrAdmin(photo.UserID) {
		return nil, common.ErrForbidden
	}

	oldPublicID := photo.PublicID
	stored, err := s.store(ctx, upload)
	if err != nil {
		return nil, err
	}

	photo.ImageURL = stored.URL
	photo.PublicID = stored.PublicID
	photo.Width = stored.Width
	photo.Height = stored.Height
	photo.Format = stored.Format
	photo.Bytes = stored.Size
	if err := s.photos.UpdateImage(ctx, photo); err != nil {
		s.removeAsset(ctx, stored.PublicID)
		return nil, fmt.Errorf("update image: %w", err)
	}
	s.removeAsset(ctx, oldPublicID)

	return s.feed.PhotoDetail(ctx, actor.UserID, photoID)
}

// DeletePhoto removes the photo, its comments and reactions, then its image
func (s *photoService) DeletePhoto(ctx context.Context, actor domain.Actor, photoID uint64) error {
	photo, err := s.loadPhoto(ctx, photoID)
	if err != nil {
		return err
	}
	if !actor.IsOwnerOrAdmin(photo.UserID) {
		return common.ErrForbidden
	}

	if err := s.photos.Delete(ctx, photoID); err != nil {
		if repository.IsNotFound(err) {
			return common.ErrPhotoNotFound
		}
		return fmt.Errorf("delete photo: %w", err)
	}
	s.removeAsset(ctx, photo.PublicID)
	return nil
}

func normalizeComment(raw string) (string, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return "", common.ErrEmptyComment
	}
	return text, nil
}

// AddComment appends a comment by the actor to a photo
func (s *photoService) AddComment(ctx context.Context, actor domain.Actor, photoID uint64, text string) (*domain.PhotoView, error) {
	if photoID == 0 {
		return nil, common.ErrInvalidID
	}
	text, err := normalizeComment(text)
	if err != nil {
		return nil, err
	}
	if _, err := s.loadPhoto(ctx, photoID); err != nil {
		return nil, err
	}
	if actor.UserID == 0 {
		return nil, common.ErrUnauthorized
	}

	comment := &domain.Comment{
		PhotoID:  photoID,
		UserID:   actor.UserID,
		Comment:  text,
		DateTime: s.clock.Now().UTC(),
	}
	if err := s.photos.AddComment(ctx, comment); err != nil {
		return nil, fmt.Errorf("add comment: %w", err)
	}
	return s.feed.PhotoDetail(ctx, actor.UserID, photoID)
}

// UpdateComment edits a comment; owner or admin only
func (s *photoService) UpdateComment(ctx context.Context, actor domain.Actor, photoID, commentID uint64, text string) (*domain.PhotoView, error) {
	if photoID == 0 || commentID == 0 {
		return nil, common.ErrInvalidID
	}
	text, err := normalizeComment(text)
	if err != nil {
		return nil, err
	}

	comment, err := s.loadComment(ctx, photoID, commentID)
	if err != nil {
		return nil, err
	}
	if !actor.IsOwnerOrAdmin(comment.UserID) {
		return nil, common.ErrForbidden
	}

	if err := s.photos.UpdateComment(ctx, photoID, commentID, text); err != nil {
		return nil, fmt.Errorf("update comment: %w", err)
	}
	return s.feed.PhotoDetail(ctx, actor.UserID, photoID)
}

// DeleteComment removes a comment and the reactions on it; owner or admin only
func (s *photoService) DeleteComment(ctx context.Context, actor domain.Actor, photoID, commentID uint64) (*domain.PhotoView, error) {
	if photoID == 0 || commentID == 0 {
		return nil, common.ErrInvalidID
	}

	comment, err := s.loadComment(ctx, photoID, commentID)
	if err != nil {
		return nil, err
	}
	if !actor.IsOwnerOrAdmin(comment.UserID) {
		return nil, common.ErrForbidden
	}

	if err := s.photos.DeleteComment(ctx, photoID, commentID); err != nil {
		if repository.IsNotFound(err) {
			return nil, common.ErrCommentNotFound
		}
		return nil, fmt.Errorf("delete comment: %w", err)
	}
	return s.feed.PhotoDetail(ctx, actor.UserID, photoID)
}
