// Package worker provides async ingest processing for ScamShield.
// It consumes crawler-discovered numbers into the confirmed-scam list and
// invalidates cached verdicts when community reports get confirmed.
package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/MaFiMoi/Computing-Research-Project-Group5/internal/assessor"
	"github.com/MaFiMoi/Computing-Research-Project-Group5/internal/cache"
	"github.com/MaFiMoi/Computing-Research-Project-Group5/internal/domain"
)

// Worker processes ingest events from the EventBus.
type Worker struct {
	bus   domain.EventBus
	repo  domain.Repository
	cache domain.Cache

	subscriptions []domain.Subscription
	wg            sync.WaitGroup
	ctx           context.Context
	cancel        context.CancelFunc
}

// NewWorker creates a new async worker.
func NewWorker(bus domain.EventBus, repo domain.Repository, verdictCache domain.Cache) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:    bus,
		repo:   repo,
		cache:  verdictCache,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start subscribes to the ingest topics.
func (w *Worker) Start() error {
	sub, err := w.bus.Subscribe(w.ctx, domain.TopicNumberDiscovered, w.handleNumberDiscovered)
	if err != nil {
		return err
	}
	w.subscriptions = append(w.subscriptions, sub)

	sub, err = w.bus.Subscribe(w.ctx, domain.TopicReportConfirmed, w.handleReportConfirmed)
	if err != nil {
		return err
	}
	w.subscriptions = append(w.subscriptions, sub)

	slog.Info("worker started",
		"topics", []string{domain.TopicNumberDiscovered, domain.TopicReportConfirmed},
	)

	return nil
}

// DiscoveredNumber is the payload published for crawler-discovered entries.
type DiscoveredNumber struct {
	Content     string `json:"content"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Source      string `json:"source"`
}

// handleNumberDiscovered upserts a discovered entry into the confirmed-scam
// list and drops any cached verdict so the next lookup reflects it.
func (w *Worker) handleNumberDiscovered(ctx context.Context, msg *domain.Message) error {
	start := time.Now()

	var num DiscoveredNumber
	if err := json.Unmarshal(msg.Payload, &num); err != nil {
		slog.Error("failed to parse discovered number message",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}

	key := assessor.Normalize(num.Content)
	if key == "" {
		slog.Warn("discarding discovered number with empty content",
			"message_id", msg.ID,
		)
		return nil
	}

	source := num.Source
	if source == "" {
		source = domain.ScamSourceCrawler
	}

	rec := &domain.ScamRecord{
		Content:     key,
		Category:    num.Category,
		Description: num.Description,
		Source:      source,
		CreatedAt:   time.Now().UTC(),
	}

	if err := w.repo.SaveScamRecord(ctx, rec); err != nil {
		slog.Error("failed to save scam record",
			"content", key,
			"error", err,
		)
		return err
	}

	w.invalidateVerdict(ctx, key)

	slog.Info("discovered number ingested",
		"content", key,
		"source", source,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return nil
}

// ConfirmedReport is the payload published when a report gets confirmed.
type ConfirmedReport struct {
	ReportID string `json:"reportId"`
	Target   string `json:"target"`
}

// handleReportConfirmed drops the cached verdict for the report's target.
// The next assessment recomputes with the confirmed report folded in.
func (w *Worker) handleReportConfirmed(ctx context.Context, msg *domain.Message) error {
	var rep ConfirmedReport
	if err := json.Unmarshal(msg.Payload, &rep); err != nil {
		slog.Error("failed to parse confirmed report message",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}

	key := assessor.Normalize(rep.Target)
	if key == "" {
		return nil
	}

	w.invalidateVerdict(ctx, key)

	slog.Info("verdict invalidated after report confirmation",
		"report_id", rep.ReportID,
		"target", key,
	)

	return nil
}

// invalidateVerdict removes the cached verdict for a key. Invalidation
// failures are logged only; the stale entry ages out or gets overwritten.
func (w *Worker) invalidateVerdict(ctx context.Context, key string) {
	if w.cache == nil {
		return
	}
	if err := w.cache.Delete(ctx, cache.VerdictKey(key)); err != nil {
		slog.Warn("verdict invalidation failed",
			"target", key,
			"error", err,
		)
	}
}

// Stop gracefully stops the worker.
func (w *Worker) Stop() error {
	w.cancel()

	for _, sub := range w.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}
	w.subscriptions = nil

	w.wg.Wait()

	slog.Info("worker stopped")
	return nil
}

// Stats returns worker statistics.
type Stats struct {
	SubscriptionCount int      `json:"subscriptionCount"`
	Topics            []string `json:"topics"`
}

// GetStats returns current worker statistics.
func (w *Worker) GetStats() Stats {
	topics := make([]string, len(w.subscriptions))
	for i, sub := range w.subscriptions {
		topics[i] = sub.Topic()
	}
	return Stats{
		SubscriptionCount: len(w.subscriptions),
		Topics:            topics,
	}
}
