package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/snapfeed/snapfeed-backend/internal/common"
	"github.com/snapfeed/snapfeed-backend/internal/domain"
	"github.com/snapfeed/snapfeed-backend/internal/repository"
)

const (
	DefaultFeedLimit = 12
	MaxFeedLimit     = 30

	optimizedTransform = "f_auto,q_auto,w_1080"
	uploadMarker       = "/upload/"
)

// FeedService serves photo reads with the viewer's own reactions attached
type FeedService interface {
	AttachReactions(ctx context.Context, photos []*domain.Photo, viewerID uint64) ([]domain.PhotoView, error)
	RecentPhotos(ctx context.Context, viewerID uint64, rawLimit, rawCursor string) (*domain.FeedPage, error)
	PhotoDetail(ctx context.Context, viewerID, photoID uint64) (*domain.PhotoView, error)
	PhotosOfUser(ctx context.Context, viewerID, userID uint64) ([]domain.PhotoView, error)
}

type feedService struct {
	photos       repository.PhotoRepository
	ledger       repository.ReactionLedger
	defaultLimit int
	maxLimit     int
}

// NewFeedService creates a new FeedService. Non-positive limits fall back to 12 and 30.
func NewFeedService(photos repository.PhotoRepository, ledger repository.ReactionLedger, defaultLimit, maxLimit int) FeedService {
	if maxLimit <= 0 {
		maxLimit = MaxFeedLimit
	}
	if defaultLimit <= 0 || defaultLimit > maxLimit {
		defaultLimit = min(DefaultFeedLimit, maxLimit)
	}
	return &feedService{photos: photos, ledger: ledger, defaultLimit: defaultLimit, maxLimit: maxLimit}
}

// BuildOptimizedURL inserts the CDN auto-format transform right after "/upload/"
func BuildOptimizedURL(url string) string {
	if url == "" {
		return ""
	}
	idx := strings.Index(url, uploadMarker)
	if idx == -1 {
		return url
	}
	cut := idx + len(uploadMarker)
	return url[:cut] + optimizedTransform + "/" + url[cut:]
}

// AttachReactions shapes photos for clients. The viewer's votes over every
// photo and nested comment are loaded with one ledger query; anonymous
// viewers cause no query at all.
func (s *feedService) AttachReactions(ctx context.Context, photos []*domain.Photo, viewerID uint64) ([]domain.PhotoView, error) {
	views := make([]domain.PhotoView, 0, len(photos))
	if len(photos) == 0 {
		return views, nil
	}

	photoReactions := map[uint64]domain.ReactionValue{}
	commentReactions := map[uint64]domain.ReactionValue{}

	if viewerID != 0 {
		photoIDs := make([]uint64, 0, len(photos))
		var commentIDs []uint64
		for _, p := range photos {
			photoIDs = append(photoIDs, p.ID)
			for _, c := range p.Comments {
				commentIDs = append(commentIDs, c.ID)
			}
		}

		reactions, err := s.ledger.FindMany(ctx, viewerID, photoIDs, commentIDs)
		if err != nil {
			return nil, fmt.Errorf("load viewer reactions: %w", err)
		}
		for _, r := range reactions {
			switch r.TargetType {
			case domain.TargetPhoto:
				photoReactions[r.TargetID] = r.Value
			case domain.TargetComment:
				commentReactions[r.TargetID] = r.Value
			}
		}
	}

	for _, p := range photos {
		views = append(views, toPhotoView(p, photoReactions, commentReactions))
	}
	return views, nil
}

func toPhotoView(p *domain.Photo, photoReactions, commentReactions map[uint64]domain.ReactionValue) domain.PhotoView {
	view := domain.PhotoView{
		ID:                p.ID,
		ImageURL:          p.ImageURL,
		ImageURLOptimized: BuildOptimizedURL(p.ImageURL),
		PublicID:          p.PublicID,
		Width:             p.Width,
		Height:            p.Height,
		Format:            p.Format,
		Bytes:             p.Bytes,
		Description:       p.Description,
		DateTime:          p.DateTime,
		UserID:            authorOf(p.Author, p.UserID),
		LikeCount:         p.LikeCount,
		DislikeCount:      p.DislikeCount,
		MyReaction:        photoReactions[p.ID],
		Comments:          make([]domain.CommentView, 0, len(p.Comments)),
	}
	for _, c := range p.Comments {
		view.Comments = append(view.Comments, domain.CommentView{
			ID:           c.ID,
			Comment:      c.Comment,
			DateTime:     c.DateTime,
			User:         authorOf(c.Author, c.UserID),
			LikeCount:    c.LikeCount,
			DislikeCount: c.DislikeCount,
			MyReaction:   commentReactions[c.ID],
		})
	}
	return view
}

// authorOf returns the populated author block, or the bare id when it was not loaded
func authorOf(u *domain.User, id uint64) interface{} {
	if u == nil {
		return id
	}
	return domain.UserSummary{ID: u.ID, FirstName: u.FirstName, LastName: u.LastName, LoginName: u.LoginName}
}

func (s *feedService) parseLimit(raw string) int {
	limit, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return s.defaultLimit
	}
	return max(1, min(s.maxLimit, limit))
}

// RecentPhotos returns one page of the global feed, newest first
func (s *feedService) RecentPhotos(ctx context.Context, viewerID uint64, rawLimit, rawCursor string) (*domain.FeedPage, error) {
	limit := s.parseLimit(rawLimit)
	cursor, err := domain.ParseFeedCursor(rawCursor)
	if err != nil {
		return nil, common.ErrInvalidCursor
	}

	photos, err := s.photos.ListRecent(ctx, cursor, limit+1)
	if err != nil {
		return nil, fmt.Errorf("list recent photos: %w", err)
	}

	hasMore := len(photos) > limit
	if hasMore {
		photos = photos[:limit]
	}

	items, err := s.AttachReactions(ctx, photos, viewerID)
	if err != nil {
		return nil, err
	}

	page := &domain.FeedPage{Items: items, HasMore: hasMore}
	if hasMore && len(photos) > 0 {
		last := photos[len(photos)-1]
		next := domain.FeedCursor{DateTime: last.DateTime, ID: last.ID}.String()
		page.NextCursor = &next
	}
	return page, nil
}

// PhotoDetail returns a single photo with its comments
func (s *feedService) PhotoDetail(ctx context.Context, viewerID, photoID uint64) (*domain.PhotoView, error) {
	if photoID == 0 {
		return nil, common.ErrInvalidID
	}
	photo, err := s.photos.FindByID(ctx, photoID, true)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, common.ErrPhotoNotFound
		}
		return nil, fmt.Errorf("find photo: %w", err)
	}

	views, err := s.AttachReactions(ctx, []*domain.Photo{photo}, viewerID)
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// PhotosOfUser returns every photo posted by a user
func (s *feedService) PhotosOfUser(ctx context.Context, viewerID, userID uint64) ([]domain.PhotoView, error) {
	if userID == 0 {
		return nil, common.ErrInvalidID
	}
	photos, err := s.photos.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list user photos: %w", err)
	}
	return s.AttachReactions(ctx, photos, viewerID)
}
