package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/snapfeed/snapfeed-backend/internal/common"
	"github.com/snapfeed/snapfeed-backend/internal/domain"
	"github.com/snapfeed/snapfeed-backend/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var fixedNow = time.Date(2026, 5, 2, 14, 0, 0, 0, time.UTC)

type photoDeps struct {
	repo     *mockPhotoRepo
	feed     *mockFeed
	uploader *mockUploader
	svc      PhotoService
}

func newPhotoDeps() photoDeps {
	d := photoDeps{repo: new(mockPhotoRepo), feed: new(mockFeed), uploader: new(mockUploader)}
	d.svc = NewPhotoService(d.repo, d.feed, d.uploader, clockwork.NewFakeClockAt(fixedNow), 1024)
	return d
}

func jpegUpload(size int64) *ImageUpload {
	return &ImageUpload{Body: strings.NewReader("jpeg"), Filename: "cat.jpg", ContentType: "image/jpeg", Size: size}
}

func TestCreatePhoto_Success(t *testing.T) {
	d := newPhotoDeps()
	owner := domain.Actor{UserID: 7}

	d.uploader.On("Upload", mock.Anything, mock.MatchedBy(func(key string) bool {
		return strings.HasPrefix(key, "photos/2026/05/02/") && strings.HasSuffix(key, ".jpg")
	}), mock.Anything, "image/jpeg", int64(100)).
		Return(&storage.UploadResult{PublicID: "photos/abc", URL: "https://cdn/abc.jpg", Width: 640, Height: 480, Format: "jpg", Size: 100}, nil)

	d.repo.On("Create", mock.Anything, mock.MatchedBy(func(p *domain.Photo) bool {
		return p.UserID == 7 && p.Description == "sunset" && p.PublicID == "photos/abc" &&
			p.DateTime.Equal(fixedNow) && p.LikeCount == 0
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*domain.Photo).ID = 5
	}).Return(nil)

	d.feed.On("AttachReactions", mock.Anything, mock.Anything, uint64(0)).
		Return([]domain.PhotoView{{ID: 5, Description: "sunset"}}, nil)

	view, err := d.svc.CreatePhoto(context.Background(), owner, jpegUpload(100), "  sunset  ")
	require.NoError(t, err)
	assert.Equal(t, uint64(5), view.ID)
	d.repo.AssertExpectations(t)
	d.uploader.AssertExpectations(t)
}

func TestCreatePhoto_RejectsBadUploads(t *testing.T) {
	d := newPhotoDeps()
	ctx := context.Background()
	owner := domain.Actor{UserID: 7}

	_, err := d.svc.CreatePhoto(ctx, owner, nil, "")
	assert.ErrorIs(t, err, common.ErrInvalidUpload)

	_, err = d.svc.CreatePhoto(ctx, owner, &ImageUpload{Body: strings.NewReader("x"), ContentType: "application/pdf", Size: 1}, "")
	assert.ErrorIs(t, err, common.ErrInvalidUpload)

	_, err = d.svc.CreatePhoto(ctx, owner, jpegUpload(4096), "")
	assert.ErrorIs(t, err, common.ErrInvalidUpload)

	_, err = d.svc.CreatePhoto(ctx, owner, jpegUpload(10), strings.Repeat("a", 201))
	assert.ErrorIs(t, err, common.ErrDescriptionTooLong)

	_, err = d.svc.CreatePhoto(ctx, domain.Actor{}, jpegUpload(10), "")
	assert.ErrorIs(t, err, common.ErrUnauthorized)

	d.uploader.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCreatePhoto_RemovesAssetWhenInsertFails(t *testing.T) {
	d := newPhotoDeps()
	d.uploader.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&storage.UploadResult{PublicID: "photos/orphan", URL: "u", Size: 10}, nil)
	d.repo.On("Create", mock.Anything, mock.Anything).Return(errors.New("insert failed"))
	d.uploader.On("Delete", mock.Anything, "photos/orphan").Return(nil).Once()

	_, err := d.svc.CreatePhoto(context.Background(), domain.Actor{UserID: 7}, jpegUpload(10), "")
	assert.Error(t, err)
	d.uploader.AssertExpectations(t)
}

func TestUpdateDescription_OwnerOnly(t *testing.T) {
	d := newPhotoDeps()
	ctx := context.Background()
	d.repo.On("FindByID", mock.Anything, uint64(3), false).Return(&domain.Photo{ID: 3, UserID: 7}, nil)

	// admins may delete and replace, but the caption belongs to the owner
	_, err := d.svc.UpdateDescription(ctx, domain.Actor{UserID: 1, Role: "admin"}, 3, "new")
	assert.ErrorIs(t, err, common.ErrForbidden)

	d.repo.On("UpdateDescription", mock.Anything, uint64(3), "new").Return(nil).Once()
	d.feed.On("PhotoDetail", mock.Anything, uint64(7), uint64(3)).Return(&domain.PhotoView{ID: 3, Description: "new"}, nil)

	view, err := d.svc.UpdateDescription(ctx, domain.Actor{UserID: 7}, 3, " new ")
	require.NoError(t, err)
	assert.Equal(t, "new", view.Description)
	d.repo.AssertExpectations(t)
}

func TestUpdateDescription_NotFound(t *testing.T) {
	d := newPhotoDeps()
	d.repo.On("FindByID", mock.Anything, uint64(3), false).Return(nil, gorm.ErrRecordNotFound)

	_, err := d.svc.UpdateDescription(context.Background(), domain.Actor{UserID: 7}, 3, "x")
	assert.ErrorIs(t, err, common.ErrPhotoNotFound)
}

func TestReplaceImage_DeletesOldAsset(t *testing.T) {
	d := newPhotoDeps()
	ctx := context.Background()
	admin := domain.Actor{UserID: 1, Role: "admin"}

	d.repo.On("FindByID", mock.Anything, uint64(3), false).
		Return(&domain.Photo{ID: 3, UserID: 7, PublicID: "photos/old", LikeCount: 9}, nil)
	d.uploader.On("Upload", mock.Anything, mock.Anything, mock.Anything, "image/jpeg", int64(10)).
		Return(&storage.UploadResult{PublicID: "photos/new", URL: "https://cdn/new.jpg", Size: 10}, nil)
	d.repo.On("UpdateImage", mock.Anything, mock.MatchedBy(func(p *domain.Photo) bool {
		return p.PublicID == "photos/new" && p.LikeCount == 9
	})).Return(nil)
	d.uploader.On("Delete", mock.Anything, "photos/old").Return(nil).Once()
	d.feed.On("PhotoDetail", mock.Anything, uint64(1), uint64(3)).Return(&domain.PhotoView{ID: 3}, nil)

	_, err := d.svc.ReplaceImage(ctx, admin, 3, jpegUpload(10))
	require.NoError(t, err)
	d.uploader.AssertExpectations(t)
	d.repo.AssertExpectations(t)
}

func TestDeletePhoto(t *testing.T) {
	d := newPhotoDeps()
	ctx := context.Background()
	d.repo.On("FindByID", mock.Anything, uint64(3), false).Return(&domain.Photo{ID: 3, UserID: 7, PublicID: "photos/p3"}, nil)

	err := d.svc.DeletePhoto(ctx, domain.Actor{UserID: 8}, 3)
	assert.ErrorIs(t, err, common.ErrForbidden)

	d.repo.On("Delete", mock.Anything, uint64(3)).Return(nil).Once()
	d.uploader.On("Delete", mock.Anything, "photos/p3").Return(errors.New("cdn down")).Once()

	// storage cleanup failure does not fail the request
	require.NoError(t, d.svc.DeletePhoto(ctx, domain.Actor{UserID: 7}, 3))
	d.repo.AssertExpectations(t)
}

func TestAddComment(t *testing.T) {
	d := newPhotoDeps()
	ctx := context.Background()

	_, err := d.svc.AddComment(ctx, domain.Actor{UserID: 7}, 3, "   ")
	assert.ErrorIs(t, err, common.ErrEmptyComment)

	d.repo.On("FindByID", mock.Anything, uint64(4), false).Return(nil, gorm.ErrRecordNotFound)
	_, err = d.svc.AddComment(ctx, domain.Actor{UserID: 7}, 4, "hi")
	assert.ErrorIs(t, err, common.ErrPhotoNotFound)

	d.repo.On("FindByID", mock.Anything, uint64(3), false).Return(&domain.Photo{ID: 3, UserID: 2}, nil)
	d.repo.On("AddComment", mock.Anything, mock.MatchedBy(func(c *domain.Comment) bool {
		return c.PhotoID == 3 && c.UserID == 7 && c.Comment == "hi" && c.DateTime.Equal(fixedNow)
	})).Return(nil).Once()
	d.feed.On("PhotoDetail", mock.Anything, uint64(7), uint64(3)).Return(&domain.PhotoView{ID: 3}, nil)

	_, err = d.svc.AddComment(ctx, domain.Actor{UserID: 7}, 3, " hi ")
	require.NoError(t, err)
	d.repo.AssertExpectations(t)
}

func TestUpdateAndDeleteComment_Permissions(t *testing.T) {
	d := newPhotoDeps()
	ctx := context.Background()

	d.repo.On("FindByID", mock.Anything, uint64(3), false).Return(&domain.Photo{ID: 3, UserID: 2}, nil)
	d.repo.On("FindComment", mock.Anything, uint64(3), uint64(30)).Return(&domain.Comment{ID: 30, PhotoID: 3, UserID: 7}, nil)
	d.repo.On("FindComment", mock.Anything, uint64(3), uint64(31)).Return(nil, gorm.ErrRecordNotFound)

	_, err := d.svc.UpdateComment(ctx, domain.Actor{UserID: 2}, 3, 30, "edit")
	assert.ErrorIs(t, err, common.ErrForbidden, "photo owner cannot edit someone else's comment")

	_, err = d.svc.DeleteComment(ctx, domain.Actor{UserID: 7}, 3, 31)
	assert.ErrorIs(t, err, common.ErrCommentNotFound)

	d.repo.On("DeleteComment", mock.Anything, uint64(3), uint64(30)).Return(nil).Once()
	d.feed.On("PhotoDetail", mock.Anything, uint64(1), uint64(3)).Return(&domain.PhotoView{ID: 3}, nil)

	_, err = d.svc.DeleteComment(ctx, domain.Actor{UserID: 1, Role: "admin"}, 3, 30)
	require.NoError(t, err)
	d.repo.AssertExpectations(t)
}
