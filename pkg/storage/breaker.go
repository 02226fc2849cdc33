package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	pkglogger "github.com/snapfeed/snapfeed-backend/pkg/logger"
	"github.com/sony/gobreaker"
)

// BreakerUploader stops calling a failing storage backend for a while so
// uploads fail fast instead of piling up on timeouts.
type BreakerUploader struct {
	next Uploader
	cb   *gobreaker.CircuitBreaker
}

// NewBreakerUploader wraps next. The breaker opens after 5 consecutive failures
// and probes again after 30s.
func NewBreakerUploader(name string, next Uploader) *BreakerUploader {
	return newBreakerUploader(next, gobreaker.Settings{
		Name:        "storage-" + name,
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
}

func newBreakerUploader(next Uploader, settings gobreaker.Settings) *BreakerUploader {
	settings.OnStateChange = func(name string, from, to gobreaker.State) {
		pkglogger.GetLogger().Warn().
			Str("breaker", name).
			Str("from", from.String()).
			Str("to", to.String()).
			Msg("storage circuit breaker state changed")
	}
	return &BreakerUploader{next: next, cb: gobreaker.NewCircuitBreaker(settings)}
}

func (b *BreakerUploader) Upload(ctx context.Context, key string, body io.Reader, contentType string, size int64) (*UploadResult, error) {
	res, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.Upload(ctx, key, body, contentType, size)
	})
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", key, err)
	}
	return res.(*UploadResult), nil
}

func (b *BreakerUploader) Delete(ctx context.Context, publicID string) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.next.Delete(ctx, publicID)
	})
	return err
}

// State reports the breaker state for health output
func (b *BreakerUploader) State() string {
	return b.cb.State().String()
}
