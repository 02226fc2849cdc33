package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/snapfeed/snapfeed-backend/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReactionLedger stores the current vote of each user on each target.
// A neutral vote is represented by the absence of a row.
type ReactionLedger interface {
	// Find returns the user's row for the target, or nil when none exists.
	// Inside a transaction the row is locked until commit.
	Find(ctx context.Context, userID uint64, targetType domain.TargetType, targetID uint64) (*domain.Reaction, error)

	// Insert creates a new row; the unique index rejects duplicates
	Insert(ctx context.Context, reaction *domain.Reaction) error

	// UpdateValue flips an existing row in place
	UpdateValue(ctx context.Context, id uint64, value domain.ReactionValue) error

	// Delete removes a row when the vote returns to neutral
	Delete(ctx context.Context, id uint64) error

	// FindMany loads every row of one user over a set of photos and comments in a single query
	FindMany(ctx context.Context, userID uint64, photoIDs, commentIDs []uint64) ([]domain.Reaction, error)
}

// ReactionRepository is the gorm implementation of ReactionLedger
type ReactionRepository struct {
	db *gorm.DB
}

// NewReactionRepository creates a new ReactionRepository
func NewReactionRepository(db *gorm.DB) *ReactionRepository {
	return &ReactionRepository{db: db}
}

// Find loads the row for (user, target) with a row lock
func (r *ReactionRepository) Find(ctx context.Context, userID uint64, targetType domain.TargetType, targetID uint64) (*domain.Reaction, error) {
	var reaction domain.Reaction
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND target_type = ? AND target_id = ?", userID, targetType, targetID).
		Take(&reaction).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &reaction, nil
}

// Insert creates a ledger row
func (r *ReactionRepository) Insert(ctx context.Context, reaction *domain.Reaction) error {
	return r.db.WithContext(ctx).Create(reaction).Error
}

// UpdateValue sets the stored vote of an existing row
func (r *ReactionRepository) UpdateValue(ctx context.Context, id uint64, value domain.ReactionValue) error {
	result := r.db.WithContext(ctx).
		Model(&domain.Reaction{}).
		Where("id = ?", id).
		Update("value", value)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete hard-deletes a ledger row
func (r *ReactionRepository) Delete(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Reaction{}).Error
}

// FindMany returns the user's rows over the given photos and comments
func (r *ReactionRepository) FindMany(ctx context.Context, userID uint64, photoIDs, commentIDs []uint64) ([]domain.Reaction, error) {
	var (
		conds []string
		args  []interface{}
	)
	if len(photoIDs) > 0 {
		conds = append(conds, "(target_type = ? AND target_id IN ?)")
		args = append(args, domain.TargetPhoto, photoIDs)
	}
	if len(commentIDs) > 0 {
		conds = append(conds, "(target_type = ? AND target_id IN ?)")
		args = append(args, domain.TargetComment, commentIDs)
	}
	if len(conds) == 0 {
		return nil, nil
	}

	var reactions []domain.Reaction
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Where(strings.Join(conds, " OR "), args...).
		Find(&reactions).Error
	return reactions, err
}
