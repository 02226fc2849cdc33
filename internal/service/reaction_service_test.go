package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/snapfeed/snapfeed-backend/internal/common"
	"github.com/snapfeed/snapfeed-backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	like    = domain.ReactionLike
	dislike = domain.ReactionDislike
	none    = domain.ReactionNone
)

func TestNextReaction(t *testing.T) {
	tests := []struct {
		prev, requested, want domain.ReactionValue
	}{
		{none, none, none},
		{none, like, like},
		{none, dislike, dislike},
		{like, none, none},
		{like, like, none},
		{like, dislike, dislike},
		{dislike, none, none},
		{dislike, like, like},
		{dislike, dislike, none},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d_then_%d", tt.prev, tt.requested), func(t *testing.T) {
			assert.Equal(t, tt.want, NextReaction(tt.prev, tt.requested))
		})
	}
}

func TestDeltaFor(t *testing.T) {
	assert.Equal(t, domain.CounterDelta{Like: 1}, DeltaFor(none, like))
	assert.Equal(t, domain.CounterDelta{Like: -1, Dislike: 1}, DeltaFor(like, dislike))
	assert.Equal(t, domain.CounterDelta{Dislike: -1}, DeltaFor(dislike, none))
	assert.True(t, DeltaFor(like, like).IsZero())
	assert.True(t, DeltaFor(none, none).IsZero())
}

func newReactionFixture() (*memStore, *recordingObserver, ReactionService) {
	store := newMemStore()
	store.addPhoto(1)
	store.addComment(10, 1)
	observer := &recordingObserver{}
	return store, observer, NewReactionService(store, store, observer)
}

func TestApplyReaction_Scenario(t *testing.T) {
	store, observer, svc := newReactionFixture()
	ctx := context.Background()

	steps := []struct {
		requested domain.ReactionValue
		want      domain.ReactionResult
	}{
		{like, domain.ReactionResult{MyReaction: like, LikeCount: 1, DislikeCount: 0}},
		{dislike, domain.ReactionResult{MyReaction: dislike, LikeCount: 0, DislikeCount: 1}},
		{dislike, domain.ReactionResult{MyReaction: none, LikeCount: 0, DislikeCount: 0}},
		{like, domain.ReactionResult{MyReaction: like, LikeCount: 1, DislikeCount: 0}},
	}

	for i, step := range steps {
		got, err := svc.ApplyReaction(ctx, 7, domain.TargetPhoto, 1, step.requested)
		require.NoError(t, err, "step %d", i)
		assert.Equal(t, step.want, *got, "step %d", i)

		if i == 2 {
			row, _ := store.Find(ctx, 7, domain.TargetPhoto, 1)
			assert.Nil(t, row, "neutral vote must delete the ledger row")
		}
	}

	assert.Equal(t, domain.Counts{LikeCount: 1}, store.counts(domain.TargetPhoto, 1))
	require.Len(t, observer.applied, 4)
	assert.Equal(t, domain.ReactionEvent{
		TargetType: domain.TargetPhoto,
		TargetID:   1,
		UserID:     7,
		PrevValue:  like,
		NextValue:  dislike,
		Delta:      domain.CounterDelta{Like: -1, Dislike: 1},
	}, observer.applied[1])
	assert.Empty(t, observer.clamped, "clamp must not fire under correct operation")
}

func TestApplyReaction_Idempotence(t *testing.T) {
	_, _, svc := newReactionFixture()
	ctx := context.Background()

	want := []domain.ReactionValue{like, none, like}
	for i, w := range want {
		got, err := svc.ApplyReaction(ctx, 3, domain.TargetComment, 10, like)
		require.NoError(t, err)
		assert.Equal(t, w, got.MyReaction, "application %d", i+1)
	}
}

func TestApplyReaction_NeutralOnNeutralIsNoop(t *testing.T) {
	store, observer, svc := newReactionFixture()

	got, err := svc.ApplyReaction(context.Background(), 3, domain.TargetPhoto, 1, none)
	require.NoError(t, err)
	assert.Equal(t, domain.ReactionResult{}, *got)
	assert.Empty(t, store.rows)
	require.Len(t, observer.applied, 1)
	assert.True(t, observer.applied[0].Delta.IsZero())
}

func TestApplyReaction_CommentDoesNotTouchPhoto(t *testing.T) {
	store, _, svc := newReactionFixture()

	got, err := svc.ApplyReaction(context.Background(), 3, domain.TargetComment, 10, dislike)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.DislikeCount)
	assert.Equal(t, domain.Counts{}, store.counts(domain.TargetPhoto, 1))
}

func TestApplyReaction_CounterConservation(t *testing.T) {
	store, _, svc := newReactionFixture()
	ctx := context.Background()

	// each user toggles through a fixed sequence; only the last vote counts
	sequences := map[uint64][]domain.ReactionValue{
		1: {like},
		2: {like, like},
		3: {dislike},
		4: {like, dislike},
		5: {dislike, like, like, dislike},
		6: {like, none, like},
		7: {dislike, dislike, dislike},
		8: {like, dislike, like},
	}

	var wg sync.WaitGroup
	for userID, seq := range sequences {
		wg.Add(1)
		go func(userID uint64, seq []domain.ReactionValue) {
			defer wg.Done()
			for _, v := range seq {
				_, err := svc.ApplyReaction(ctx, userID, domain.TargetPhoto, 1, v)
				assert.NoError(t, err)
			}
		}(userID, seq)
	}
	wg.Wait()

	var likes, dislikes int64
	for userID := range sequences {
		row, err := store.Find(ctx, userID, domain.TargetPhoto, 1)
		require.NoError(t, err)
		if row == nil {
			continue
		}
		switch row.Value {
		case like:
			likes++
		case dislike:
			dislikes++
		}
	}

	// users 1, 6, 8 like; users 3, 4, 5, 7 dislike
	assert.Equal(t, int64(3), likes)
	assert.Equal(t, int64(4), dislikes)
	assert.Equal(t, domain.Counts{LikeCount: likes, DislikeCount: dislikes}, store.counts(domain.TargetPhoto, 1))
}

func TestApplyReaction_ClampIsObserved(t *testing.T) {
	store, observer, svc := newReactionFixture()
	ctx := context.Background()

	// drifted state: a dislike row exists but the counter was already zero
	require.NoError(t, store.Insert(ctx, &domain.Reaction{UserID: 9, TargetType: domain.TargetPhoto, TargetID: 1, Value: dislike}))

	got, err := svc.ApplyReaction(ctx, 9, domain.TargetPhoto, 1, dislike)
	require.NoError(t, err)
	assert.Equal(t, domain.ReactionResult{MyReaction: none}, *got)
	assert.Equal(t, domain.Counts{}, store.counts(domain.TargetPhoto, 1))

	require.Len(t, observer.clamped, 1)
	assert.Equal(t, domain.ClampEvent{
		TargetType: domain.TargetPhoto,
		TargetID:   1,
		Observed:   domain.Counts{DislikeCount: -1},
		Corrected:  domain.CounterDelta{Dislike: 1},
	}, observer.clamped[0])
}

func TestApplyReaction_Validation(t *testing.T) {
	_, observer, svc := newReactionFixture()
	ctx := context.Background()

	tests := []struct {
		name       string
		userID     uint64
		targetType domain.TargetType
		targetID   uint64
		value      domain.ReactionValue
		wantErr    error
	}{
		{"anonymous", 0, domain.TargetPhoto, 1, like, common.ErrUnauthorized},
		{"zero id", 1, domain.TargetPhoto, 0, like, common.ErrInvalidID},
		{"unknown type", 1, domain.TargetType("Album"), 1, like, common.ErrInvalidTargetType},
		{"bad value", 1, domain.TargetPhoto, 1, domain.ReactionValue(2), common.ErrInvalidReactionValue},
		{"missing photo", 1, domain.TargetPhoto, 99, like, common.ErrPhotoNotFound},
		{"missing comment", 1, domain.TargetComment, 99, like, common.ErrCommentNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ApplyReaction(ctx, tt.userID, tt.targetType, tt.targetID, tt.value)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
	assert.Empty(t, observer.applied)
}

func TestApplyReaction_StorageFailureRollsBack(t *testing.T) {
	store, observer, svc := newReactionFixture()
	store.failDelta = errors.New("connection reset")

	_, err := svc.ApplyReaction(context.Background(), 5, domain.TargetPhoto, 1, like)
	require.Error(t, err)
	assert.False(t, common.IsBadRequest(err))
	assert.False(t, common.IsNotFound(err))

	assert.Empty(t, store.rows, "ledger write must be rolled back with the failed counter update")
	assert.Empty(t, observer.applied)
}
