// Package worker consumes bus events asynchronously.
package worker

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog/log"

	"github.com/opensource-finance/propvest/internal/bus"
	"github.com/opensource-finance/propvest/internal/domain"
	"github.com/opensource-finance/propvest/internal/observability"
)

// Worker records published recommendation runs in the repository.
type Worker struct {
	bus  domain.EventBus
	repo domain.Repository

	mu            sync.Mutex
	subscriptions []domain.Subscription
	ctx           context.Context
	cancel        context.CancelFunc

	recorded atomic.Int64
	failed   atomic.Int64
}

// NewWorker creates a history worker.
func NewWorker(bus domain.EventBus, repo domain.Repository) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:    bus,
		repo:   repo,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start subscribes to recommendation events.
func (w *Worker) Start() error {
	sub, err := w.bus.Subscribe(w.ctx, domain.TopicRecommendationGenerated, w.handleRun)
	if err != nil {
		return eris.Wrap(err, "subscribe to recommendation runs")
	}

	w.mu.Lock()
	w.subscriptions = append(w.subscriptions, sub)
	w.mu.Unlock()

	log.Info().Str("topic", domain.TopicRecommendationGenerated).Msg("history worker started")
	return nil
}

func (w *Worker) handleRun(ctx context.Context, msg *domain.Message) error {
	start := time.Now()

	var run domain.RecommendationRun
	if err := json.Unmarshal(msg.Payload, &run); err != nil {
		log.Error().Err(err).Str("message_id", msg.ID).Msg("failed to parse recommendation run")
		w.failed.Add(1)
		observability.ObserveHistoryWrite(err)
		return err
	}
	if run.TraceID == "" {
		run.TraceID = msg.Metadata[bus.MetadataTraceID]
	}

	err := w.repo.SaveRecommendationRun(ctx, &run)
	observability.ObserveHistoryWrite(err)
	if err != nil {
		w.failed.Add(1)
		log.Error().Err(err).Str("run_id", run.ID).Msg("failed to record recommendation run")
		return err
	}
	w.recorded.Add(1)

	log.Debug().
		Str("run_id", run.ID).
		Str("profile", run.Profile.Name).
		Int("recommendations", len(run.Recommendations)).
		Int64("duration_ms", time.Since(start).Milliseconds()).
		Msg("recommendation run recorded")
	return nil
}

// Stop unsubscribes. Runs already being written finish on their own.
func (w *Worker) Stop() error {
	w.cancel()

	w.mu.Lock()
	defer w.mu.Unlock()

	for _, sub := range w.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			log.Error().Err(err).Str("topic", sub.Topic()).Msg("failed to unsubscribe")
		}
	}
	w.subscriptions = nil

	log.Info().Msg("history worker stopped")
	return nil
}

// Stats describes the worker's subscriptions and write counts.
type Stats struct {
	SubscriptionCount int      `json:"subscriptionCount"`
	Topics            []string `json:"topics"`
	Recorded          int64    `json:"recorded"`
	Failed            int64    `json:"failed"`
}

// GetStats returns current worker statistics.
func (w *Worker) GetStats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()

	topics := make([]string, len(w.subscriptions))
	for i, sub := range w.subscriptions {
		topics[i] = sub.Topic()
	}
	return Stats{
		SubscriptionCount: len(w.subscriptions),
		Topics:            topics,
		Recorded:          w.recorded.Load(),
		Failed:            w.failed.Load(),
	}
}
