package repository

import (
	"context"
	"fmt"

	"github.com/snapfeed/snapfeed-backend/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CounterStore maintains the aggregate like/dislike counters of photos and comments
type CounterStore interface {
	// ApplyDelta adds delta to the target's counters and returns the post-update counts
	ApplyDelta(ctx context.Context, target domain.TargetRef, delta domain.CounterDelta) (domain.Counts, error)

	// ClampNonNegative resets any negative counter to zero. It returns the
	// resulting counts and how much was added to each field.
	ClampNonNegative(ctx context.Context, target domain.TargetRef) (domain.Counts, domain.CounterDelta, error)
}

// counterScope addresses the counter row of one target
type counterScope struct {
	table string
	where string
	args  []interface{}
}

func scopeFor(target domain.TargetRef) (counterScope, error) {
	switch target.Type {
	case domain.TargetPhoto:
		return counterScope{table: "photos", where: "id = ?", args: []interface{}{target.ID}}, nil
	case domain.TargetComment:
		// a comment is only ever touched together with its owning photo
		return counterScope{table: "comments", where: "id = ? AND photo_id = ?", args: []interface{}{target.ID, target.PhotoID}}, nil
	default:
		return counterScope{}, fmt.Errorf("counter scope: unknown target type %q", target.Type)
	}
}

// CounterRepository is the gorm implementation of CounterStore
type CounterRepository struct {
	db *gorm.DB
}

// NewCounterRepository creates a new CounterRepository
func NewCounterRepository(db *gorm.DB) *CounterRepository {
	return &CounterRepository{db: db}
}

// ApplyDelta increments both counters relatively and reads them back
func (r *CounterRepository) ApplyDelta(ctx context.Context, target domain.TargetRef, delta domain.CounterDelta) (domain.Counts, error) {
	scope, err := scopeFor(target)
	if err != nil {
		return domain.Counts{}, err
	}

	result := r.db.WithContext(ctx).
		Table(scope.table).
		Where(scope.where, scope.args...).
		UpdateColumns(map[string]interface{}{
			"like_count":    gorm.Expr("like_count + ?", delta.Like),
			"dislike_count": gorm.Expr("dislike_count + ?", delta.Dislike),
		})
	if result.Error != nil {
		return domain.Counts{}, result.Error
	}
	if result.RowsAffected == 0 {
		return domain.Counts{}, gorm.ErrRecordNotFound
	}

	return r.readCounts(ctx, scope)
}

// ClampNonNegative zeroes negative counters with a conditional update
func (r *CounterRepository) ClampNonNegative(ctx context.Context, target domain.TargetRef) (domain.Counts, domain.CounterDelta, error) {
	scope, err := scopeFor(target)
	if err != nil {
		return domain.Counts{}, domain.CounterDelta{}, err
	}

	counts, err := r.readCounts(ctx, scope)
	if err != nil {
		return domain.Counts{}, domain.CounterDelta{}, err
	}
	if !counts.HasNegative() {
		return counts, domain.CounterDelta{}, nil
	}

	updates := make(map[string]interface{}, 2)
	var corrected domain.CounterDelta
	if counts.LikeCount < 0 {
		updates["like_count"] = gorm.Expr("CASE WHEN like_count < 0 THEN 0 ELSE like_count END")
		corrected.Like = -counts.LikeCount
	}
	if counts.DislikeCount < 0 {
		updates["dislike_count"] = gorm.Expr("CASE WHEN dislike_count < 0 THEN 0 ELSE dislike_count END")
		corrected.Dislike = -counts.DislikeCount
	}

	if err := r.db.WithContext(ctx).
		Table(scope.table).
		Where(scope.where, scope.args...).
		UpdateColumns(updates).Error; err != nil {
		return domain.Counts{}, domain.CounterDelta{}, err
	}

	clamped, err := r.readCounts(ctx, scope)
	if err != nil {
		return domain.Counts{}, domain.CounterDelta{}, err
	}
	return clamped, corrected, nil
}

func (r *CounterRepository) readCounts(ctx context.Context, scope counterScope) (domain.Counts, error) {
	var counts domain.Counts
	err := r.db.WithContext(ctx).
		Table(scope.table).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("like_count, dislike_count").
		Where(scope.where, scope.args...).
		Take(&counts).Error
	return counts, err
}
