package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wayfarerhq/impact/internal/domain"
)

// WebhookSubscriptionRepository implements domain.WebhookSubscriptionRepository using Postgres.
type WebhookSubscriptionRepository struct {
	pool *pgxpool.Pool
}

// NewWebhookSubscriptionRepository creates a new WebhookSubscriptionRepository.
func NewWebhookSubscriptionRepository(pool *pgxpool.Pool) *WebhookSubscriptionRepository {
	return &WebhookSubscriptionRepository{pool: pool}
}

// Save persists a webhook subscription (insert or update).
func (r *WebhookSubscriptionRepository) Save(ctx context.Context, sub *domain.WebhookSubscription) error {
	const query = `
		INSERT INTO impact.webhook_subscriptions (id, user_id, target_url, secret, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, target_url) DO UPDATE SET
			secret = EXCLUDED.secret,
			is_active = EXCLUDED.is_active,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.pool.Exec(ctx, query,
		sub.ID().String(),
		sub.UserID().UUID(),
		sub.TargetURL(),
		sub.Secret(),
		sub.IsActive(),
		sub.CreatedAt(),
		sub.UpdatedAt(),
	)
	return err
}

// FindActiveByUser retrieves all active subscriptions for a user.
func (r *WebhookSubscriptionRepository) FindActiveByUser(ctx context.Context, userID domain.UserID) ([]*domain.WebhookSubscription, error) {
	const query = `
		SELECT id, user_id, target_url, secret, is_active, created_at, updated_at
		FROM impact.webhook_subscriptions
		WHERE user_id = $1 AND is_active = true
	`

	rows, err := r.pool.Query(ctx, query, userID.UUID())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanSubscriptions(rows)
}

// FindByUser retrieves all subscriptions for a user.
func (r *WebhookSubscriptionRepository) FindByUser(ctx context.Context, userID domain.UserID) ([]*domain.WebhookSubscription, error) {
	const query = `
		SELECT id, user_id, target_url, secret, is_active, created_at, updated_at
		FROM impact.webhook_subscriptions
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, userID.UUID())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanSubscriptions(rows)
}

// Delete removes a subscription.
func (r *WebhookSubscriptionRepository) Delete(ctx context.Context, id domain.SubscriptionID) error {
	const query = `DELETE FROM impact.webhook_subscriptions WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id.String())
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}

	return nil
}

// scanSubscriptions scans multiple rows into subscription slice.
func (r *WebhookSubscriptionRepository) scanSubscriptions(rows pgx.Rows) ([]*domain.WebhookSubscription, error) {
	var subs []*domain.WebhookSubscription

	for rows.Next() {
		var (
			id        string
			userID    string
			targetURL string
			secret    string
			isActive  bool
			createdAt time.Time
			updatedAt time.Time
		)

		err := rows.Scan(&id, &userID, &targetURL, &secret, &isActive, &createdAt, &updatedAt)
		if err != nil {
			return nil, err
		}

		subID, err := domain.ParseSubscriptionID(id)
		if err != nil {
			return nil, err
		}

		domainUserID, err := domain.ParseUserID(userID)
		if err != nil {
			return nil, err
		}

		subs = append(subs, domain.ReconstructWebhookSubscription(
			subID,
			domainUserID,
			targetURL,
			secret,
			isActive,
			createdAt,
			updatedAt,
		))
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return subs, nil
}
