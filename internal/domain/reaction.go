package domain

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidReactionValue is returned when a requested vote is not -1, 0 or 1
var ErrInvalidReactionValue = errors.New("invalid reaction value")

// TargetType selects which kind of entity a reaction points at
type TargetType string

const (
	TargetPhoto   TargetType = "Photo"
	TargetComment TargetType = "Comment"
)

// Valid reports whether t is a known target type
func (t TargetType) Valid() bool {
	return t == TargetPhoto || t == TargetComment
}

// ReactionValue is a user's vote on a target. Zero means neutral and is never stored.
type ReactionValue int8

const (
	ReactionDislike ReactionValue = -1
	ReactionNone    ReactionValue = 0
	ReactionLike    ReactionValue = 1
)

// Valid reports whether v is one of -1, 0, 1
func (v ReactionValue) Valid() bool {
	return v == ReactionDislike || v == ReactionNone || v == ReactionLike
}

// ParseReactionValue converts a decoded JSON value into a ReactionValue.
// Numbers and numeric strings are accepted; anything else is invalid.
func ParseReactionValue(raw interface{}) (ReactionValue, error) {
	var f float64
	switch v := raw.(type) {
	case float64:
		f = v
	case int:
		f = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return ReactionNone, ErrInvalidReactionValue
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return ReactionNone, ErrInvalidReactionValue
		}
		f = parsed
	default:
		return ReactionNone, ErrInvalidReactionValue
	}

	if f != math.Trunc(f) {
		return ReactionNone, ErrInvalidReactionValue
	}
	value := ReactionValue(f)
	if float64(value) != f || !value.Valid() {
		return ReactionNone, ErrInvalidReactionValue
	}
	return value, nil
}

// Reaction is one row of the reaction ledger: the current vote of a user on a target
type Reaction struct {
	ID         uint64        `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	UserID     uint64        `gorm:"column:user_id;not null;uniqueIndex:uq_reactions_user_target,priority:1" json:"user_id"`
	TargetType TargetType    `gorm:"column:target_type;type:varchar(16);not null;uniqueIndex:uq_reactions_user_target,priority:2;index:idx_reactions_target,priority:1" json:"target_type"`
	TargetID   uint64        `gorm:"column:target_id;not null;uniqueIndex:uq_reactions_user_target,priority:3;index:idx_reactions_target,priority:2" json:"target_id"`
	Value      ReactionValue `gorm:"column:value;type:smallint;not null" json:"value"`
	CreatedAt  time.Time     `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time     `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName returns the table name for GORM
func (Reaction) TableName() string {
	return "reactions"
}

// TargetRef identifies a reactable entity. PhotoID is the owning photo
// (equal to ID for photo targets).
type TargetRef struct {
	Type    TargetType
	ID      uint64
	PhotoID uint64
}

// Counts holds the aggregate counters of a target
type Counts struct {
	LikeCount    int64 `gorm:"column:like_count" json:"likeCount"`
	DislikeCount int64 `gorm:"column:dislike_count" json:"dislikeCount"`
}

// HasNegative reports whether either counter drifted below zero
func (c Counts) HasNegative() bool {
	return c.LikeCount < 0 || c.DislikeCount < 0
}

// CounterDelta is a relative change applied to a target's counters
type CounterDelta struct {
	Like    int64 `json:"likeCount"`
	Dislike int64 `json:"dislikeCount"`
}

// IsZero reports whether the delta changes nothing
func (d CounterDelta) IsZero() bool {
	return d.Like == 0 && d.Dislike == 0
}

// ReactionResult is returned to the client after a reaction request
type ReactionResult struct {
	MyReaction   ReactionValue `json:"myReaction"`
	LikeCount    int64         `json:"likeCount"`
	DislikeCount int64         `json:"dislikeCount"`
}

// ReactionEvent describes one applied transition
type ReactionEvent struct {
	TargetType TargetType
	TargetID   uint64
	UserID     uint64
	PrevValue  ReactionValue
	NextValue  ReactionValue
	Delta      CounterDelta
}

// ClampEvent describes a counter repair: Corrected holds how much was added
// to each counter to bring it back to zero
type ClampEvent struct {
	TargetType TargetType
	TargetID   uint64
	Observed   Counts
	Corrected  CounterDelta
}
