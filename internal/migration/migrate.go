package migration

import (
	"context"
	"fmt"

	"github.com/snapfeed/snapfeed-backend/internal/domain"
	"gorm.io/gorm"
)

// Run executes AutoMigrate for every table the API reads or writes.
// Safe to run repeatedly.
func Run(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.User{},
		&domain.Photo{},
		&domain.Comment{},
		&domain.Reaction{},
	)
}

// CounterDrift is a target whose stored counters disagree with the reaction ledger
type CounterDrift struct {
	TargetType     domain.TargetType `gorm:"-"`
	ID             uint64            `gorm:"column:id"`
	LikeCount      int64             `gorm:"column:like_count"`
	DislikeCount   int64             `gorm:"column:dislike_count"`
	LedgerLikes    int64             `gorm:"column:ledger_likes"`
	LedgerDislikes int64             `gorm:"column:ledger_dislikes"`
}

type counterTable struct {
	targetType domain.TargetType
	table      string
}

var counterTables = []counterTable{
	{domain.TargetPhoto, "photos"},
	{domain.TargetComment, "comments"},
}

// ledgerCount is a correlated subquery counting ledger rows with the given value
// for the row of table currently being read or updated
func ledgerCount(table string) string {
	return fmt.Sprintf(
		"(SELECT COUNT(*) FROM reactions r WHERE r.target_type = ? AND r.value = ? AND r.target_id = %s.id)",
		table)
}

// VerifyCounters lists photos and comments whose like/dislike counters differ
// from the number of matching ledger rows
func VerifyCounters(ctx context.Context, db *gorm.DB) ([]CounterDrift, error) {
	var drifts []CounterDrift
	for _, ct := range counterTables {
		sub := ledgerCount(ct.table)
		query := fmt.Sprintf(
			"SELECT * FROM (SELECT %[1]s.id, %[1]s.like_count, %[1]s.dislike_count, %[2]s AS ledger_likes, %[2]s AS ledger_dislikes FROM %[1]s) t "+
				"WHERE t.like_count <> t.ledger_likes OR t.dislike_count <> t.ledger_dislikes ORDER BY t.id",
			ct.table, sub)

		var rows []CounterDrift
		err := db.WithContext(ctx).Raw(query,
			ct.targetType, domain.ReactionLike,
			ct.targetType, domain.ReactionDislike,
		).Scan(&rows).Error
		if err != nil {
			return nil, fmt.Errorf("verify %s counters: %w", ct.table, err)
		}
		for i := range rows {
			rows[i].TargetType = ct.targetType
		}
		drifts = append(drifts, rows...)
	}
	return drifts, nil
}

// RepairCounters recomputes drifted counters from the ledger. Each counter is
// rewritten by a single statement so a concurrent vote is either counted by
// the subquery or applied on top of it.
func RepairCounters(ctx context.Context, db *gorm.DB) ([]CounterDrift, error) {
	drifts, err := VerifyCounters(ctx, db)
	if err != nil {
		return nil, err
	}

	ids := make(map[domain.TargetType][]uint64)
	for _, d := range drifts {
		ids[d.TargetType] = append(ids[d.TargetType], d.ID)
	}

	for _, ct := range counterTables {
		if len(ids[ct.targetType]) == 0 {
			continue
		}
		sub := ledgerCount(ct.table)
		err := db.WithContext(ctx).Table(ct.table).
			Where("id IN ?", ids[ct.targetType]).
			UpdateColumns(map[string]interface{}{
				"like_count":    gorm.Expr(sub, ct.targetType, domain.ReactionLike),
				"dislike_count": gorm.Expr(sub, ct.targetType, domain.ReactionDislike),
			}).Error
		if err != nil {
			return nil, fmt.Errorf("repair %s counters: %w", ct.table, err)
		}
	}
	return drifts, nil
}
