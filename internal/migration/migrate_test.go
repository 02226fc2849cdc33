package migration

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/snapfeed/snapfeed-backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, Run(db))
	require.NoError(t, Run(db), "migration must be idempotent")
	return db
}

func TestVerifyAndRepairCounters(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	at := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	healthy := domain.Photo{UserID: 1, DateTime: at, LikeCount: 1}
	drifted := domain.Photo{UserID: 1, DateTime: at, LikeCount: 5, DislikeCount: -1}
	require.NoError(t, db.Omit("Author", "Comments").Create(&healthy).Error)
	require.NoError(t, db.Omit("Author", "Comments").Create(&drifted).Error)

	comment := domain.Comment{PhotoID: healthy.ID, UserID: 2, Comment: "hi", DateTime: at}
	require.NoError(t, db.Omit("Author").Create(&comment).Error)

	require.NoError(t, db.Create(&[]domain.Reaction{
		{UserID: 10, TargetType: domain.TargetPhoto, TargetID: healthy.ID, Value: domain.ReactionLike},
		{UserID: 10, TargetType: domain.TargetPhoto, TargetID: drifted.ID, Value: domain.ReactionLike},
		{UserID: 11, TargetType: domain.TargetPhoto, TargetID: drifted.ID, Value: domain.ReactionDislike},
		// comment id equals a photo id on purpose: target_type keeps them apart
		{UserID: 10, TargetType: domain.TargetComment, TargetID: comment.ID, Value: domain.ReactionDislike},
	}).Error)

	drifts, err := VerifyCounters(ctx, db)
	require.NoError(t, err)
	require.Len(t, drifts, 2)

	assert.Equal(t, CounterDrift{
		TargetType: domain.TargetPhoto, ID: drifted.ID,
		LikeCount: 5, DislikeCount: -1, LedgerLikes: 1, LedgerDislikes: 1,
	}, drifts[0])
	assert.Equal(t, CounterDrift{
		TargetType: domain.TargetComment, ID: comment.ID,
		LikeCount: 0, DislikeCount: 0, LedgerLikes: 0, LedgerDislikes: 1,
	}, drifts[1])

	repaired, err := RepairCounters(ctx, db)
	require.NoError(t, err)
	assert.Len(t, repaired, 2)

	var p domain.Photo
	require.NoError(t, db.First(&p, drifted.ID).Error)
	assert.Equal(t, int64(1), p.LikeCount)
	assert.Equal(t, int64(1), p.DislikeCount)

	var c domain.Comment
	require.NoError(t, db.First(&c, comment.ID).Error)
	assert.Equal(t, int64(1), c.DislikeCount)

	drifts, err = VerifyCounters(ctx, db)
	require.NoError(t, err)
	assert.Empty(t, drifts)
}
