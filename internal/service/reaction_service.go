package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/snapfeed/snapfeed-backend/internal/common"
	"github.com/snapfeed/snapfeed-backend/internal/domain"
	"github.com/snapfeed/snapfeed-backend/internal/repository"
	pkglogger "github.com/snapfeed/snapfeed-backend/pkg/logger"
	"gorm.io/gorm"
)

// NextReaction applies toggle semantics: repeating a vote clears it,
// an explicit 0 always clears, anything else replaces the prior vote.
func NextReaction(prev, requested domain.ReactionValue) domain.ReactionValue {
	switch {
	case requested == domain.ReactionNone:
		return domain.ReactionNone
	case prev == domain.ReactionNone:
		return requested
	case prev == requested:
		return domain.ReactionNone
	default:
		return requested
	}
}

// DeltaFor returns the counter change of moving a vote from prev to next
func DeltaFor(prev, next domain.ReactionValue) domain.CounterDelta {
	return domain.CounterDelta{
		Like:    indicator(next == domain.ReactionLike) - indicator(prev == domain.ReactionLike),
		Dislike: indicator(next == domain.ReactionDislike) - indicator(prev == domain.ReactionDislike),
	}
}

func indicator(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// ReactionService applies like/dislike votes to photos and comments
type ReactionService interface {
	ApplyReaction(ctx context.Context, userID uint64, targetType domain.TargetType, targetID uint64, requested domain.ReactionValue) (*domain.ReactionResult, error)
}

type reactionService struct {
	targets  repository.TargetFinder
	tx       repository.Transactor
	observer ReactionObserver
}

// NewReactionService creates a new ReactionService
func NewReactionService(targets repository.TargetFinder, tx repository.Transactor, observer ReactionObserver) ReactionService {
	if observer == nil {
		observer = ReactionObservers{}
	}
	return &reactionService{targets: targets, tx: tx, observer: observer}
}

func notFoundFor(targetType domain.TargetType) error {
	if targetType == domain.TargetComment {
		return common.ErrCommentNotFound
	}
	return common.ErrPhotoNotFound
}

// ApplyReaction records the user's vote and returns the resulting counters.
// The ledger write and the counter update commit together or not at all.
func (s *reactionService) ApplyReaction(ctx context.Context, userID uint64, targetType domain.TargetType, targetID uint64, requested domain.ReactionValue) (*domain.ReactionResult, error) {
	if userID == 0 {
		return nil, common.ErrUnauthorized
	}
	if targetID == 0 {
		return nil, common.ErrInvalidID
	}
	if !targetType.Valid() {
		return nil, common.ErrInvalidTargetType
	}
	if !requested.Valid() {
		return nil, common.ErrInvalidReactionValue
	}

	target, err := s.targets.FindTarget(ctx, targetType, targetID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, notFoundFor(targetType)
		}
		return nil, fmt.Errorf("find reaction target: %w", err)
	}

	var (
		event  domain.ReactionEvent
		clamp  *domain.ClampEvent
		counts domain.Counts
	)
	err = s.tx.WithinTransaction(ctx, func(ledger repository.ReactionLedger, counters repository.CounterStore) error {
		existing, err := ledger.Find(ctx, userID, targetType, targetID)
		if err != nil {
			return fmt.Errorf("load reaction: %w", err)
		}
		prev := domain.ReactionNone
		if existing != nil {
			prev = existing.Value
		}
		next := NextReaction(prev, requested)

		switch {
		case prev == next:
		case next == domain.ReactionNone:
			err = ledger.Delete(ctx, existing.ID)
		case prev == domain.ReactionNone:
			err = ledger.Insert(ctx, &domain.Reaction{
				UserID:     userID,
				TargetType: targetType,
				TargetID:   targetID,
				Value:      next,
			})
		default:
			err = ledger.UpdateValue(ctx, existing.ID, next)
		}
		if err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				pkglogger.GetLogger().Warn().
					Str("target_type", string(targetType)).
					Uint64("target_id", targetID).
					Uint64("user_id", userID).
					Msg("concurrent duplicate reaction rejected")
			}
			return fmt.Errorf("write reaction: %w", err)
		}

		delta := DeltaFor(prev, next)
		if !delta.IsZero() {
			counts, err = counters.ApplyDelta(ctx, target, delta)
			if err != nil {
				if repository.IsNotFound(err) {
					return notFoundFor(targetType)
				}
				return fmt.Errorf("apply counter delta: %w", err)
			}
		}

		// a zero delta still needs a fresh read, which the clamp provides
		if delta.IsZero() || counts.HasNegative() {
			var corrected domain.CounterDelta
			counts, corrected, err = counters.ClampNonNegative(ctx, target)
			if err != nil {
				if repository.IsNotFound(err) {
					return notFoundFor(targetType)
				}
				return fmt.Errorf("clamp counters: %w", err)
			}
			if !corrected.IsZero() {
				clamp = &domain.ClampEvent{
					TargetType: targetType,
					TargetID:   targetID,
					Observed: domain.Counts{
						LikeCount:    counts.LikeCount - corrected.Like,
						DislikeCount: counts.DislikeCount - corrected.Dislike,
					},
					Corrected: corrected,
				}
			}
		}

		event = domain.ReactionEvent{
			TargetType: targetType,
			TargetID:   targetID,
			UserID:     userID,
			PrevValue:  prev,
			NextValue:  next,
			Delta:      delta,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.observer.ReactionApplied(ctx, event)
	if clamp != nil {
		s.observer.CountersClamped(ctx, *clamp)
	}

	return &domain.ReactionResult{
		MyReaction:   event.NextValue,
		LikeCount:    counts.LikeCount,
		DislikeCount: counts.DislikeCount,
	}, nil
}
