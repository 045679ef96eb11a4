package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wayfarerhq/impact/internal/domain"
)

// uniqueViolationCode is the postgres error code for a unique
// constraint violation.
const uniqueViolationCode = "23505"

// isUniqueViolation reports whether the error is a unique constraint
// violation. two registrations racing past the application-level
// duplicate check both reach the INSERT; the loser must surface as
// ErrAlreadyExists, not as a plain database failure.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}

// UserRepository implements domain.UserRepository using Postgres.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// FindByID retrieves a user by their internal ID.
func (r *UserRepository) FindByID(ctx context.Context, id domain.UserID) (*domain.User, error) {
	const query = `
		SELECT id, external_id, username, created_at, updated_at
		FROM impact.users
		WHERE id = $1
	`

	return r.scanUser(ctx, query, id.UUID())
}

// FindByExternalID retrieves a user by their external auth provider ID.
func (r *UserRepository) FindByExternalID(ctx context.Context, externalID string) (*domain.User, error) {
	const query = `
		SELECT id, external_id, username, created_at, updated_at
		FROM impact.users
		WHERE external_id = $1
	`

	return r.scanUser(ctx, query, externalID)
}

// Save persists a user (insert or update).
// participates in the surrounding transaction when the context carries one.
func (r *UserRepository) Save(ctx context.Context, user *domain.User) error {
	const query = `
		INSERT INTO impact.users (id, external_id, username, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			username = EXCLUDED.username,
			updated_at = EXCLUDED.updated_at
	`

	q := GetQuerier(ctx, r.pool)
	_, err := q.Exec(ctx, query,
		user.ID().UUID(),
		user.ExternalID(),
		user.Username().String(),
		user.CreatedAt(),
		user.UpdatedAt(),
	)

	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: external id or username taken", domain.ErrAlreadyExists)
		}
		return fmt.Errorf("saving user: %w", err)
	}
	return nil
}

// Exists checks if a user with the given ID exists.
func (r *UserRepository) Exists(ctx context.Context, id domain.UserID) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM impact.users WHERE id = $1)`

	var exists bool
	err := r.pool.QueryRow(ctx, query, id.UUID()).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking user existence: %w", err)
	}
	return exists, nil
}

func (r *UserRepository) scanUser(ctx context.Context, query string, args ...any) (*domain.User, error) {
	var (
		id         string
		externalID string
		username   string
		createdAt  time.Time
		updatedAt  time.Time
	)

	q := GetQuerier(ctx, r.pool)
	err := q.QueryRow(ctx, query, args...).Scan(
		&id, &externalID, &username, &createdAt, &updatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning user: %w", err)
	}

	// database stores trusted data, but we still validate for safety
	userID, err := domain.ParseUserID(id)
	if err != nil {
		return nil, fmt.Errorf("corrupted user id in database: %w", err)
	}

	return domain.ReconstructUser(
		userID,
		externalID,
		domain.UsernameFromTrusted(username),
		createdAt,
		updatedAt,
	), nil
}
