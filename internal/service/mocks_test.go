package service

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/snapfeed/snapfeed-backend/internal/domain"
	"github.com/snapfeed/snapfeed-backend/internal/repository"
	"github.com/snapfeed/snapfeed-backend/pkg/storage"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"
)

// --- Mock ReactionLedger ---

type mockLedger struct {
	mock.Mock
}

func (m *mockLedger) Find(ctx context.Context, userID uint64, targetType domain.TargetType, targetID uint64) (*domain.Reaction, error) {
	args := m.Called(ctx, userID, targetType, targetID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Reaction), args.Error(1)
}

func (m *mockLedger) Insert(ctx context.Context, reaction *domain.Reaction) error {
	return m.Called(ctx, reaction).Error(0)
}

func (m *mockLedger) UpdateValue(ctx context.Context, id uint64, value domain.ReactionValue) error {
	return m.Called(ctx, id, value).Error(0)
}

func (m *mockLedger) Delete(ctx context.Context, id uint64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockLedger) FindMany(ctx context.Context, userID uint64, photoIDs, commentIDs []uint64) ([]domain.Reaction, error) {
	args := m.Called(ctx, userID, photoIDs, commentIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Reaction), args.Error(1)
}

// --- Mock PhotoRepository ---

type mockPhotoRepo struct {
	mock.Mock
}

func (m *mockPhotoRepo) FindTarget(ctx context.Context, targetType domain.TargetType, id uint64) (domain.TargetRef, error) {
	args := m.Called(ctx, targetType, id)
	return args.Get(0).(domain.TargetRef), args.Error(1)
}

func (m *mockPhotoRepo) FindByID(ctx context.Context, id uint64, withComments bool) (*domain.Photo, error) {
	args := m.Called(ctx, id, withComments)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Photo), args.Error(1)
}

func (m *mockPhotoRepo) ListRecent(ctx context.Context, cursor *domain.FeedCursor, limit int) ([]*domain.Photo, error) {
	args := m.Called(ctx, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Photo), args.Error(1)
}

func (m *mockPhotoRepo) ListByUser(ctx context.Context, userID uint64) ([]*domain.Photo, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Photo), args.Error(1)
}

func (m *mockPhotoRepo) Create(ctx context.Context, photo *domain.Photo) error {
	return m.Called(ctx, photo).Error(0)
}

func (m *mockPhotoRepo) UpdateDescription(ctx context.Context, id uint64, description string) error {
	return m.Called(ctx, id, description).Error(0)
}

func (m *mockPhotoRepo) UpdateImage(ctx context.Context, photo *domain.Photo) error {
	return m.Called(ctx, photo).Error(0)
}

func (m *mockPhotoRepo) Delete(ctx context.Context, id uint64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockPhotoRepo) FindComment(ctx context.Context, photoID, commentID uint64) (*domain.Comment, error) {
	args := m.Called(ctx, photoID, commentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Comment), args.Error(1)
}

func (m *mockPhotoRepo) AddComment(ctx context.Context, comment *domain.Comment) error {
	return m.Called(ctx, comment).Error(0)
}

func (m *mockPhotoRepo) UpdateComment(ctx context.Context, photoID, commentID uint64, text string) error {
	return m.Called(ctx, photoID, commentID, text).Error(0)
}

func (m *mockPhotoRepo) DeleteComment(ctx context.Context, photoID, commentID uint64) error {
	return m.Called(ctx, photoID, commentID).Error(0)
}

// --- Mock FeedService ---

type mockFeed struct {
	mock.Mock
}

func (m *mockFeed) AttachReactions(ctx context.Context, photos []*domain.Photo, viewerID uint64) ([]domain.PhotoView, error) {
	args := m.Called(ctx, photos, viewerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PhotoView), args.Error(1)
}

func (m *mockFeed) RecentPhotos(ctx context.Context, viewerID uint64, rawLimit, rawCursor string) (*domain.FeedPage, error) {
	args := m.Called(ctx, viewerID, rawLimit, rawCursor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FeedPage), args.Error(1)
}

func (m *mockFeed) PhotoDetail(ctx context.Context, viewerID, photoID uint64) (*domain.PhotoView, error) {
	args := m.Called(ctx, viewerID, photoID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PhotoView), args.Error(1)
}

func (m *mockFeed) PhotosOfUser(ctx context.Context, viewerID, userID uint64) ([]domain.PhotoView, error) {
	args := m.Called(ctx, viewerID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PhotoView), args.Error(1)
}

// --- Mock Uploader ---

type mockUploader struct {
	mock.Mock
}

func (m *mockUploader) Upload(ctx context.Context, key string, body io.Reader, contentType string, size int64) (*storage.UploadResult, error) {
	args := m.Called(ctx, key, body, contentType, size)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.UploadResult), args.Error(1)
}

func (m *mockUploader) Delete(ctx context.Context, publicID string) error {
	return m.Called(ctx, publicID).Error(0)
}

// --- In-memory reaction store ---

type targetKey struct {
	typ domain.TargetType
	id  uint64
}

type memStore struct {
	mu        sync.Mutex
	targets   map[targetKey]*memTarget
	rows      map[string]*domain.Reaction
	nextID    uint64
	failDelta error
}

type memTarget struct {
	photoID uint64
	counts  domain.Counts
}

func newMemStore() *memStore {
	return &memStore{targets: map[targetKey]*memTarget{}, rows: map[string]*domain.Reaction{}}
}

func (s *memStore) addPhoto(id uint64) {
	s.targets[targetKey{domain.TargetPhoto, id}] = &memTarget{photoID: id}
}

func (s *memStore) addComment(id, photoID uint64) {
	s.targets[targetKey{domain.TargetComment, id}] = &memTarget{photoID: photoID}
}

func (s *memStore) counts(t domain.TargetType, id uint64) domain.Counts {
	return s.targets[targetKey{t, id}].counts
}

func rowKey(userID uint64, t domain.TargetType, id uint64) string {
	return fmt.Sprintf("%s:%d:%d", t, userID, id)
}

func (s *memStore) FindTarget(_ context.Context, targetType domain.TargetType, id uint64) (domain.TargetRef, error) {
	t, ok := s.targets[targetKey{targetType, id}]
	if !ok {
		return domain.TargetRef{}, gorm.ErrRecordNotFound
	}
	return domain.TargetRef{Type: targetType, ID: id, PhotoID: t.photoID}, nil
}

// WithinTransaction serializes writers and restores the snapshot when fn fails
func (s *memStore) WithinTransaction(_ context.Context, fn func(ledger repository.ReactionLedger, counters repository.CounterStore) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := make(map[string]*domain.Reaction, len(s.rows))
	for k, v := range s.rows {
		cp := *v
		rows[k] = &cp
	}
	counts := make(map[targetKey]domain.Counts, len(s.targets))
	for k, v := range s.targets {
		counts[k] = v.counts
	}

	if err := fn(s, s); err != nil {
		s.rows = rows
		for k, v := range counts {
			s.targets[k].counts = v
		}
		return err
	}
	return nil
}

func (s *memStore) Find(_ context.Context, userID uint64, targetType domain.TargetType, targetID uint64) (*domain.Reaction, error) {
	row, ok := s.rows[rowKey(userID, targetType, targetID)]
	if !ok {
		return nil, nil
	}
	cp := *row
	return &cp, nil
}

func (s *memStore) Insert(_ context.Context, reaction *domain.Reaction) error {
	key := rowKey(reaction.UserID, reaction.TargetType, reaction.TargetID)
	if _, exists := s.rows[key]; exists {
		return gorm.ErrDuplicatedKey
	}
	s.nextID++
	reaction.ID = s.nextID
	cp := *reaction
	s.rows[key] = &cp
	return nil
}

func (s *memStore) UpdateValue(_ context.Context, id uint64, value domain.ReactionValue) error {
	for _, row := range s.rows {
		if row.ID == id {
			row.Value = value
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (s *memStore) Delete(_ context.Context, id uint64) error {
	for k, row := range s.rows {
		if row.ID == id {
			delete(s.rows, k)
		}
	}
	return nil
}

func (s *memStore) FindMany(_ context.Context, userID uint64, photoIDs, commentIDs []uint64) ([]domain.Reaction, error) {
	var out []domain.Reaction
	for _, id := range photoIDs {
		if row, ok := s.rows[rowKey(userID, domain.TargetPhoto, id)]; ok {
			out = append(out, *row)
		}
	}
	for _, id := range commentIDs {
		if row, ok := s.rows[rowKey(userID, domain.TargetComment, id)]; ok {
			out = append(out, *row)
		}
	}
	return out, nil
}

func (s *memStore) ApplyDelta(_ context.Context, target domain.TargetRef, delta domain.CounterDelta) (domain.Counts, error) {
	if s.failDelta != nil {
		return domain.Counts{}, s.failDelta
	}
	t, ok := s.targets[targetKey{target.Type, target.ID}]
	if !ok || t.photoID != target.PhotoID {
		return domain.Counts{}, gorm.ErrRecordNotFound
	}
	t.counts.LikeCount += delta.Like
	t.counts.DislikeCount += delta.Dislike
	return t.counts, nil
}

func (s *memStore) ClampNonNegative(_ context.Context, target domain.TargetRef) (domain.Counts, domain.CounterDelta, error) {
	t, ok := s.targets[targetKey{target.Type, target.ID}]
	if !ok {
		return domain.Counts{}, domain.CounterDelta{}, gorm.ErrRecordNotFound
	}
	var corrected domain.CounterDelta
	if t.counts.LikeCount < 0 {
		corrected.Like = -t.counts.LikeCount
		t.counts.LikeCount = 0
	}
	if t.counts.DislikeCount < 0 {
		corrected.Dislike = -t.counts.DislikeCount
		t.counts.DislikeCount = 0
	}
	return t.counts, corrected, nil
}

// --- Recording observer ---

type recordingObserver struct {
	mu      sync.Mutex
	applied []domain.ReactionEvent
	clamped []domain.ClampEvent
}

func (o *recordingObserver) ReactionApplied(_ context.Context, e domain.ReactionEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.applied = append(o.applied, e)
}

func (o *recordingObserver) CountersClamped(_ context.Context, e domain.ClampEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.clamped = append(o.clamped, e)
}
