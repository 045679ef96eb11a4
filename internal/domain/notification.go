package domain

import (
	"context"
	"time"
)

// ScoreMilestone represents an overall score crossing a notable level.
type ScoreMilestone struct {
	UserID     UserID
	Level      float64
	OldOverall float64
	NewOverall float64
	Timestamp  time.Time
}

// MilestoneThresholds defines the overall-score levels that trigger
// notifications when crossed upward.
type MilestoneThresholds struct {
	Levels []float64
}

// DefaultMilestoneThresholds returns the production levels.
func DefaultMilestoneThresholds() MilestoneThresholds {
	return MilestoneThresholds{
		Levels: []float64{2.5, 5.0, 7.5, 9.0},
	}
}

// Crossed returns the highest level passed upward between the old and new
// overall score, and whether any level was crossed at all. downward moves
// never trigger.
func (t MilestoneThresholds) Crossed(oldOverall, newOverall float64) (float64, bool) {
	if newOverall <= oldOverall {
		return 0, false
	}

	var crossed float64
	var found bool
	for _, level := range t.Levels {
		if oldOverall < level && newOverall >= level && level > crossed {
			crossed = level
			found = true
		}
	}
	return crossed, found
}

// MilestoneNotifier defines the interface for delivering milestone
// notifications. implementations handle the actual delivery mechanism
// (webhooks, etc).
type MilestoneNotifier interface {
	// NotifyMilestone queues a milestone for delivery. best-effort:
	// delivery failures never fail the score update.
	NotifyMilestone(ctx context.Context, milestone ScoreMilestone) error

	// Thresholds returns the configured milestone levels.
	Thresholds() MilestoneThresholds
}

// WebhookSubscription represents a user's subscription to milestone
// notifications for their own impact score.
type WebhookSubscription struct {
	id        SubscriptionID
	userID    UserID
	targetURL string
	secret    string
	isActive  bool
	createdAt time.Time
	updatedAt time.Time
}

// NewWebhookSubscription creates a new webhook subscription.
func NewWebhookSubscription(userID UserID, targetURL, secret string) (*WebhookSubscription, error) {
	if targetURL == "" || secret == "" {
		return nil, ErrInvalidInput
	}

	now := time.Now().UTC()
	return &WebhookSubscription{
		id:        NewSubscriptionID(),
		userID:    userID,
		targetURL: targetURL,
		secret:    secret,
		isActive:  true,
		createdAt: now,
		updatedAt: now,
	}, nil
}

// ReconstructWebhookSubscription rebuilds a subscription from persistence.
func ReconstructWebhookSubscription(
	id SubscriptionID,
	userID UserID,
	targetURL string,
	secret string,
	isActive bool,
	createdAt time.Time,
	updatedAt time.Time,
) *WebhookSubscription {
	return &WebhookSubscription{
		id:        id,
		userID:    userID,
		targetURL: targetURL,
		secret:    secret,
		isActive:  isActive,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}
}

func (s *WebhookSubscription) ID() SubscriptionID   { return s.id }
func (s *WebhookSubscription) UserID() UserID       { return s.userID }
func (s *WebhookSubscription) TargetURL() string    { return s.targetURL }
func (s *WebhookSubscription) Secret() string       { return s.secret }
func (s *WebhookSubscription) IsActive() bool       { return s.isActive }
func (s *WebhookSubscription) CreatedAt() time.Time { return s.createdAt }
func (s *WebhookSubscription) UpdatedAt() time.Time { return s.updatedAt }

// Deactivate disables the subscription without deleting it.
func (s *WebhookSubscription) Deactivate() {
	s.isActive = false
	s.updatedAt = time.Now().UTC()
}

// WebhookSubscriptionRepository defines persistence for webhook
// subscriptions.
type WebhookSubscriptionRepository interface {
	// Save persists a subscription (insert or update).
	Save(ctx context.Context, sub *WebhookSubscription) error

	// FindActiveByUser retrieves all active subscriptions for a user.
	FindActiveByUser(ctx context.Context, userID UserID) ([]*WebhookSubscription, error)

	// FindByUser retrieves all subscriptions for a user.
	FindByUser(ctx context.Context, userID UserID) ([]*WebhookSubscription, error)

	// Delete removes a subscription.
	Delete(ctx context.Context, id SubscriptionID) error
}
