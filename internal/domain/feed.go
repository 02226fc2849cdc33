package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidCursor is returned for a feed cursor that cannot be decoded
var ErrInvalidCursor = errors.New("invalid cursor")

// FeedCursor points at the last photo of a feed page. Pages are ordered by
// (date_time DESC, id DESC) so the pair is a strict position.
type FeedCursor struct {
	DateTime time.Time
	ID       uint64
}

// String encodes the cursor as "<RFC3339Nano>|<id>"
func (c FeedCursor) String() string {
	return fmt.Sprintf("%s|%d", c.DateTime.UTC().Format(time.RFC3339Nano), c.ID)
}

// ParseFeedCursor decodes a cursor produced by FeedCursor.String.
// An empty string means "first page" and yields nil.
func ParseFeedCursor(raw string) (*FeedCursor, error) {
	if raw == "" {
		return nil, nil
	}
	rawDate, rawID, ok := strings.Cut(raw, "|")
	if !ok || rawDate == "" || rawID == "" {
		return nil, ErrInvalidCursor
	}
	date, err := time.Parse(time.RFC3339Nano, rawDate)
	if err != nil {
		return nil, ErrInvalidCursor
	}
	id, err := strconv.ParseUint(rawID, 10, 64)
	if err != nil || id == 0 {
		return nil, ErrInvalidCursor
	}
	return &FeedCursor{DateTime: date, ID: id}, nil
}
