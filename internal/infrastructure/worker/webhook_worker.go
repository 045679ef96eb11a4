package worker

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/wayfarerhq/impact/internal/domain"
	"github.com/wayfarerhq/impact/internal/infrastructure/logging"
)

// WebhookWorkerConfig holds configuration for the webhook dispatcher.
type WebhookWorkerConfig struct {
	// BufferSize is the size of the notification channel buffer.
	BufferSize int

	// WorkerCount is the number of concurrent workers dispatching webhooks.
	WorkerCount int

	// RequestTimeout is the max time to wait for each outgoing HTTP request.
	RequestTimeout time.Duration

	// Thresholds define the overall-score levels that trigger notifications.
	Thresholds domain.MilestoneThresholds
}

// DefaultWebhookWorkerConfig returns sensible defaults.
func DefaultWebhookWorkerConfig() WebhookWorkerConfig {
	return WebhookWorkerConfig{
		BufferSize:     1000,
		WorkerCount:    2,
		RequestTimeout: 5 * time.Second,
		Thresholds:     domain.DefaultMilestoneThresholds(),
	}
}

// WebhookWorker dispatches webhook notifications for score milestones.
// implements domain.MilestoneNotifier.
type WebhookWorker struct {
	milestoneChan chan domain.ScoreMilestone
	subRepo       domain.WebhookSubscriptionRepository
	httpClient    *http.Client
	config        WebhookWorkerConfig
	logger        *logging.Logger

	wg       sync.WaitGroup
	stopOnce sync.Once
	stopped  chan struct{}
}

// NewWebhookWorker creates a new webhook worker.
func NewWebhookWorker(
	subRepo domain.WebhookSubscriptionRepository,
	config WebhookWorkerConfig,
	logger *logging.Logger,
) *WebhookWorker {
	return &WebhookWorker{
		milestoneChan: make(chan domain.ScoreMilestone, config.BufferSize),
		subRepo:       subRepo,
		httpClient: &http.Client{
			Timeout: config.RequestTimeout,
		},
		config:  config,
		logger:  logger.WithComponent("webhook_worker"),
		stopped: make(chan struct{}),
	}
}

// Start begins the worker goroutines.
func (w *WebhookWorker) Start(ctx context.Context) {
	w.logger.Info("webhook worker starting",
		"buffer_size", w.config.BufferSize,
		"worker_count", w.config.WorkerCount,
		"request_timeout", w.config.RequestTimeout.String(),
	)

	for i := 0; i < w.config.WorkerCount; i++ {
		w.wg.Add(1)
		go w.runWorker(ctx, i)
	}
}

// Stop gracefully shuts down the worker.
func (w *WebhookWorker) Stop() {
	w.stopOnce.Do(func() {
		w.logger.Info("webhook worker stopping, draining buffer...")
		close(w.milestoneChan)
		w.wg.Wait()
		close(w.stopped)
		w.logger.Info("webhook worker stopped")
	})
}

// Stopped returns a channel that closes when the worker has fully stopped.
func (w *WebhookWorker) Stopped() <-chan struct{} {
	return w.stopped
}

// NotifyMilestone queues a milestone for delivery.
// implements domain.MilestoneNotifier.
func (w *WebhookWorker) NotifyMilestone(ctx context.Context, milestone domain.ScoreMilestone) error {
	select {
	case w.milestoneChan <- milestone:
		w.logger.Debug("milestone queued for notification",
			"user_id", milestone.UserID.String(),
			"level", milestone.Level,
		)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		// buffer full, log and drop
		w.logger.Warn("webhook buffer full, milestone dropped",
			"user_id", milestone.UserID.String(),
		)
		return nil
	}
}

// Thresholds returns the configured milestone levels.
func (w *WebhookWorker) Thresholds() domain.MilestoneThresholds {
	return w.config.Thresholds
}

// runWorker is the main worker loop.
func (w *WebhookWorker) runWorker(ctx context.Context, workerID int) {
	defer w.wg.Done()

	for {
		select {
		case milestone, ok := <-w.milestoneChan:
			if !ok {
				w.logger.Debug("worker exiting after drain", "worker_id", workerID)
				return
			}
			w.dispatchMilestone(ctx, milestone, workerID)

		case <-ctx.Done():
			w.logger.Debug("worker exiting on context cancel", "worker_id", workerID)
			return
		}
	}
}

// dispatchMilestone sends webhook notifications for one milestone.
func (w *WebhookWorker) dispatchMilestone(ctx context.Context, milestone domain.ScoreMilestone, workerID int) {
	subs, err := w.subRepo.FindActiveByUser(ctx, milestone.UserID)
	if err != nil {
		w.logger.Error("failed to fetch subscriptions",
			"worker_id", workerID,
			"user_id", milestone.UserID.String(),
			"error", err.Error(),
		)
		return
	}

	if len(subs) == 0 {
		w.logger.Debug("no subscriptions for user",
			"user_id", milestone.UserID.String(),
		)
		return
	}

	// prepare payload
	payload := WebhookPayload{
		Event:      "score_milestone",
		UserID:     milestone.UserID.String(),
		Level:      milestone.Level,
		OldOverall: milestone.OldOverall,
		NewOverall: milestone.NewOverall,
		Timestamp:  milestone.Timestamp.Format(time.RFC3339),
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		w.logger.Error("failed to marshal payload",
			"worker_id", workerID,
			"error", err.Error(),
		)
		return
	}

	// dispatch to each subscriber
	var sent, failed int
	for _, sub := range subs {
		if w.sendWebhook(ctx, sub, payloadBytes, workerID) {
			sent++
		} else {
			failed++
		}
	}

	w.logger.Info("milestone notifications dispatched",
		"worker_id", workerID,
		"user_id", milestone.UserID.String(),
		"level", milestone.Level,
		"sent", sent,
		"failed", failed,
	)
}

// sendWebhook sends a single webhook notification.
func (w *WebhookWorker) sendWebhook(ctx context.Context, sub *domain.WebhookSubscription, payload []byte, workerID int) bool {
	// compute HMAC signature
	signature := w.computeSignature(payload, sub.Secret())

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sub.TargetURL(), bytes.NewReader(payload))
	if err != nil {
		w.logger.Error("failed to create request",
			"worker_id", workerID,
			"target_url", sub.TargetURL(),
			"error", err.Error(),
		)
		return false
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Impact-Signature", signature)
	req.Header.Set("X-Impact-Event", "score_milestone")
	req.Header.Set("User-Agent", "Impact-Webhook/1.0")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		w.logger.Warn("webhook request failed",
			"worker_id", workerID,
			"target_url", sub.TargetURL(),
			"error", err.Error(),
		)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		w.logger.Debug("webhook delivered",
			"target_url", sub.TargetURL(),
			"status", resp.StatusCode,
		)
		return true
	}

	w.logger.Warn("webhook returned non-success status",
		"worker_id", workerID,
		"target_url", sub.TargetURL(),
		"status", resp.StatusCode,
	)
	return false
}

// computeSignature generates HMAC-SHA256 signature.
func (w *WebhookWorker) computeSignature(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return fmt.Sprintf("sha256=%s", hex.EncodeToString(mac.Sum(nil)))
}

// WebhookPayload is the JSON structure sent to webhook endpoints.
type WebhookPayload struct {
	Event      string  `json:"event"`
	UserID     string  `json:"user_id"`
	Level      float64 `json:"level"`
	OldOverall float64 `json:"old_overall"`
	NewOverall float64 `json:"new_overall"`
	Timestamp  string  `json:"timestamp"`
}
