package service

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/snapfeed/snapfeed-backend/internal/domain"
	pkglogger "github.com/snapfeed/snapfeed-backend/pkg/logger"
)

// ReactionObserver receives a notification for every committed reaction request
type ReactionObserver interface {
	ReactionApplied(ctx context.Context, event domain.ReactionEvent)
	CountersClamped(ctx context.Context, event domain.ClampEvent)
}

// ReactionObservers fans a notification out to several observers
type ReactionObservers []ReactionObserver

func (o ReactionObservers) ReactionApplied(ctx context.Context, event domain.ReactionEvent) {
	for _, obs := range o {
		obs.ReactionApplied(ctx, event)
	}
}

func (o ReactionObservers) CountersClamped(ctx context.Context, event domain.ClampEvent) {
	for _, obs := range o {
		obs.CountersClamped(ctx, event)
	}
}

// LogObserver writes reaction transitions to the structured log
type LogObserver struct {
	logger *zerolog.Logger
}

// NewLogObserver creates a LogObserver on the global logger
func NewLogObserver() *LogObserver {
	return &LogObserver{logger: pkglogger.GetLogger()}
}

func (o *LogObserver) ReactionApplied(_ context.Context, e domain.ReactionEvent) {
	o.logger.Info().
		Str("event", "reaction").
		Str("target_type", string(e.TargetType)).
		Uint64("target_id", e.TargetID).
		Uint64("user_id", e.UserID).
		Int8("prev", int8(e.PrevValue)).
		Int8("next", int8(e.NextValue)).
		Int64("like_delta", e.Delta.Like).
		Int64("dislike_delta", e.Delta.Dislike).
		Msg("reaction applied")
}

func (o *LogObserver) CountersClamped(_ context.Context, e domain.ClampEvent) {
	o.logger.Warn().
		Str("event", "counter_clamp").
		Str("target_type", string(e.TargetType)).
		Uint64("target_id", e.TargetID).
		Int64("like_count", e.Observed.LikeCount).
		Int64("dislike_count", e.Observed.DislikeCount).
		Int64("like_corrected", e.Corrected.Like).
		Int64("dislike_corrected", e.Corrected.Dislike).
		Msg("negative counters clamped to zero")
}

var (
	reactionTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reaction_transitions_total",
			Help: "Reaction requests by target type and prev->next transition",
		},
		[]string{"target_type", "transition"},
	)

	counterClampsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reaction_counter_clamps_total",
			Help: "Negative counters reset to zero",
		},
		[]string{"target_type", "field"},
	)
)

// MetricsObserver counts transitions and clamps in Prometheus
type MetricsObserver struct {
	transitions *prometheus.CounterVec
	clamps      *prometheus.CounterVec
}

// NewMetricsObserver creates a MetricsObserver on the default registry
func NewMetricsObserver() *MetricsObserver {
	return &MetricsObserver{transitions: reactionTransitionsTotal, clamps: counterClampsTotal}
}

func (o *MetricsObserver) ReactionApplied(_ context.Context, e domain.ReactionEvent) {
	transition := fmt.Sprintf("%d->%d", e.PrevValue, e.NextValue)
	o.transitions.WithLabelValues(string(e.TargetType), transition).Inc()
}

func (o *MetricsObserver) CountersClamped(_ context.Context, e domain.ClampEvent) {
	if e.Corrected.Like != 0 {
		o.clamps.WithLabelValues(string(e.TargetType), "like_count").Inc()
	}
	if e.Corrected.Dislike != 0 {
		o.clamps.WithLabelValues(string(e.TargetType), "dislike_count").Inc()
	}
}
