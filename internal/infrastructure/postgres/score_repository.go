package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wayfarerhq/impact/internal/domain"
)

// ScoreRecordRepository implements domain.ScoreRecordRepository using
// Postgres. score maps and histories live in jsonb columns so the shape
// can evolve without migrations; the version column guards concurrent
// writers.
type ScoreRecordRepository struct {
	pool *pgxpool.Pool
}

// NewScoreRecordRepository creates a new ScoreRecordRepository.
func NewScoreRecordRepository(pool *pgxpool.Pool) *ScoreRecordRepository {
	return &ScoreRecordRepository{pool: pool}
}

// Find retrieves the score record for a user.
// participates in the surrounding transaction when the context carries one.
func (r *ScoreRecordRepository) Find(ctx context.Context, userID domain.UserID) (*domain.ScoreRecord, error) {
	const query = `
		SELECT user_id, scores, score_history, overall_score, version, updated_at
		FROM impact.user_scores
		WHERE user_id = $1
	`

	q := GetQuerier(ctx, r.pool)

	var (
		id        string
		scoresRaw []byte
		histRaw   []byte
		overall   float64
		version   int64
		updatedAt time.Time
	)

	err := q.QueryRow(ctx, query, userID.UUID()).Scan(
		&id, &scoresRaw, &histRaw, &overall, &version, &updatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning score record: %w", err)
	}

	// database stores trusted data, but we still validate for safety
	parsedID, err := domain.ParseUserID(id)
	if err != nil {
		return nil, fmt.Errorf("corrupted user id in database: %w", err)
	}

	scores, err := decodeScores(scoresRaw)
	if err != nil {
		return nil, fmt.Errorf("corrupted scores json in database: %w", err)
	}

	history, err := decodeHistory(histRaw)
	if err != nil {
		return nil, fmt.Errorf("corrupted history json in database: %w", err)
	}

	return domain.ReconstructScoreRecord(parsedID, scores, history, overall, version, updatedAt), nil
}

// Create inserts the empty record provisioned at user creation.
func (r *ScoreRecordRepository) Create(ctx context.Context, record *domain.ScoreRecord) error {
	const query = `
		INSERT INTO impact.user_scores (user_id, scores, score_history, overall_score, version, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	scoresJSON, histJSON, err := encodeRecord(record)
	if err != nil {
		return err
	}

	q := GetQuerier(ctx, r.pool)
	_, err = q.Exec(ctx, query,
		record.UserID().UUID(),
		scoresJSON,
		histJSON,
		record.OverallScore(),
		record.Version(),
		record.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("creating score record: %w", err)
	}
	return nil
}

// Update writes the record back guarded by its version. a concurrent
// writer that committed first makes the guard miss, which surfaces as
// ErrConflict so the caller can retry the whole transaction body.
func (r *ScoreRecordRepository) Update(ctx context.Context, record *domain.ScoreRecord) error {
	const query = `
		UPDATE impact.user_scores
		SET scores = $3, score_history = $4, overall_score = $5, version = version + 1, updated_at = $6
		WHERE user_id = $1 AND version = $2
	`

	scoresJSON, histJSON, err := encodeRecord(record)
	if err != nil {
		return err
	}

	q := GetQuerier(ctx, r.pool)
	result, err := q.Exec(ctx, query,
		record.UserID().UUID(),
		record.Version(),
		scoresJSON,
		histJSON,
		record.OverallScore(),
		record.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("updating score record: %w", err)
	}

	if result.RowsAffected() == 0 {
		// either the row vanished or another writer bumped the version;
		// both cases mean our read is stale
		return domain.ErrConflict
	}
	return nil
}

// TopByOverallScore lists records ordered by overall score descending.
// used by the leaderboard fallback path and the refresh worker.
func (r *ScoreRecordRepository) TopByOverallScore(ctx context.Context, limit, offset int) ([]domain.RankedScore, error) {
	const query = `
		SELECT s.user_id, u.username, s.overall_score
		FROM impact.user_scores s
		JOIN impact.users u ON u.id = s.user_id
		ORDER BY s.overall_score DESC, u.username ASC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("querying top scores: %w", err)
	}
	defer rows.Close()

	var ranked []domain.RankedScore
	for rows.Next() {
		var (
			id       string
			username string
			overall  float64
		)
		if err := rows.Scan(&id, &username, &overall); err != nil {
			return nil, fmt.Errorf("scanning ranked score: %w", err)
		}

		parsedID, err := domain.ParseUserID(id)
		if err != nil {
			return nil, fmt.Errorf("corrupted user id in database: %w", err)
		}

		ranked = append(ranked, domain.RankedScore{
			UserID:       parsedID,
			Username:     username,
			OverallScore: overall,
		})
	}

	return ranked, rows.Err()
}

// encodeRecord serializes the jsonb columns. dimension keys serialize as
// plain strings.
func encodeRecord(record *domain.ScoreRecord) ([]byte, []byte, error) {
	scores := make(map[string]float64)
	for dim, value := range record.Scores() {
		scores[dim.String()] = value
	}
	history := make(map[string][]float64)
	for dim, values := range record.History() {
		history[dim.String()] = values
	}

	scoresJSON, err := json.Marshal(scores)
	if err != nil {
		return nil, nil, fmt.Errorf("serializing scores: %w", err)
	}
	histJSON, err := json.Marshal(history)
	if err != nil {
		return nil, nil, fmt.Errorf("serializing history: %w", err)
	}
	return scoresJSON, histJSON, nil
}

func decodeScores(raw []byte) (map[domain.Dimension]float64, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var plain map[string]float64
	if err := json.Unmarshal(raw, &plain); err != nil {
		return nil, err
	}
	scores := make(map[domain.Dimension]float64, len(plain))
	for name, value := range plain {
		scores[domain.Dimension(name)] = value
	}
	return scores, nil
}

func decodeHistory(raw []byte) (map[domain.Dimension][]float64, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var plain map[string][]float64
	if err := json.Unmarshal(raw, &plain); err != nil {
		return nil, err
	}
	history := make(map[domain.Dimension][]float64, len(plain))
	for name, values := range plain {
		history[domain.Dimension(name)] = values
	}
	return history, nil
}
