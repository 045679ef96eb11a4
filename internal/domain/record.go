package domain

import (
	"context"
	"time"
)

// Submission is one ephemeral score submission: validated dimension keys
// mapped to raw values. it is never persisted, only its effect on the
// record is.
type Submission map[Dimension]float64

// UpdateResult reports the outcome of applying a submission.
type UpdateResult struct {
	// Updated is false when the submission carried no recognized
	// dimension values; the record is then left untouched.
	Updated bool

	// Scores are the post-update per-dimension moving averages.
	Scores map[Dimension]float64

	// OverallScore is the post-update blended overall score.
	OverallScore float64
}

// ScoreRecord is the per-user score state owned exclusively by the
// engine. it is only ever read and mutated inside a transaction.
type ScoreRecord struct {
	userID    UserID
	scores    map[Dimension]float64
	history   map[Dimension][]float64
	overall   float64
	version   int64
	updatedAt time.Time
}

// NewScoreRecord creates the empty record provisioned at user creation.
func NewScoreRecord(userID UserID) *ScoreRecord {
	return &ScoreRecord{
		userID:  userID,
		scores:  make(map[Dimension]float64),
		history: make(map[Dimension][]float64),
	}
}

// ReconstructScoreRecord rebuilds a record from persistence.
// bypasses validation for trusted data from database.
func ReconstructScoreRecord(
	userID UserID,
	scores map[Dimension]float64,
	history map[Dimension][]float64,
	overall float64,
	version int64,
	updatedAt time.Time,
) *ScoreRecord {
	if scores == nil {
		scores = make(map[Dimension]float64)
	}
	if history == nil {
		history = make(map[Dimension][]float64)
	}
	return &ScoreRecord{
		userID:    userID,
		scores:    scores,
		history:   history,
		overall:   overall,
		version:   version,
		updatedAt: updatedAt,
	}
}

// UserID returns the owning user's id.
func (r *ScoreRecord) UserID() UserID { return r.userID }

// OverallScore returns the blended overall score.
func (r *ScoreRecord) OverallScore() float64 { return r.overall }

// Version returns the optimistic concurrency token.
func (r *ScoreRecord) Version() int64 { return r.version }

// UpdatedAt returns the time of the last applied submission.
func (r *ScoreRecord) UpdatedAt() time.Time { return r.updatedAt }

// Score returns the stored moving average for one dimension.
// the second return is false when the dimension has no data yet.
func (r *ScoreRecord) Score(d Dimension) (float64, bool) {
	s, ok := r.scores[d]
	return s, ok
}

// Scores returns a copy of the per-dimension moving averages.
func (r *ScoreRecord) Scores() map[Dimension]float64 {
	out := make(map[Dimension]float64, len(r.scores))
	for d, s := range r.scores {
		out[d] = s
	}
	return out
}

// History returns a copy of the per-dimension histories,
// most-recent-first.
func (r *ScoreRecord) History() map[Dimension][]float64 {
	out := make(map[Dimension][]float64, len(r.history))
	for d, h := range r.history {
		out[d] = append([]float64(nil), h...)
	}
	return out
}

// HistoryFor returns a copy of one dimension's history.
func (r *ScoreRecord) HistoryFor(d Dimension) []float64 {
	return append([]float64(nil), r.history[d]...)
}

// ApplySubmission runs the full score pipeline against the record:
// validate every submitted value, push histories, recompute the decayed
// averages, recombine across all dimensions with data, and blend the
// overall score. validation happens for the whole submission before any
// mutation, so an invalid value leaves the record exactly as it was.
//
// an empty submission (no recognized dimension values) is a true no-op:
// Updated is false, nothing changes, and no re-blend happens.
func (r *ScoreRecord) ApplySubmission(sub Submission, p EngineParams, now time.Time) (UpdateResult, error) {
	validated := make(map[Dimension]float64, len(sub))
	for dim, raw := range sub {
		if !p.Recognized(dim) {
			return UpdateResult{}, &UnknownDimensionError{Name: dim.String()}
		}
		value, err := ValidateScore(raw, dim, p)
		if err != nil {
			return UpdateResult{}, err
		}
		validated[dim] = value
	}

	if len(validated) == 0 {
		return UpdateResult{Updated: false, Scores: r.Scores(), OverallScore: r.overall}, nil
	}

	for dim, value := range validated {
		r.history[dim] = PushHistory(r.history[dim], value, p)
		r.scores[dim] = WeightedMovingAverage(r.history[dim], p)
	}

	fresh := CombineOverall(r.scores, p)
	r.overall = Blend(r.overall, fresh, p)
	r.updatedAt = now

	return UpdateResult{Updated: true, Scores: r.Scores(), OverallScore: r.overall}, nil
}

// RankedScore is a leaderboard projection of a record.
type RankedScore struct {
	UserID       UserID
	Username     string
	OverallScore float64
}

// ScoreRecordRepository defines persistence for score records.
// Find and Update participate in the surrounding transaction when the
// context carries one.
type ScoreRecordRepository interface {
	// Find retrieves the record for a user, ErrNotFound if absent.
	Find(ctx context.Context, userID UserID) (*ScoreRecord, error)

	// Create inserts the empty record provisioned at user creation.
	Create(ctx context.Context, record *ScoreRecord) error

	// Update writes the record back guarded by its version; a lost race
	// returns ErrConflict and the caller re-runs the whole body.
	Update(ctx context.Context, record *ScoreRecord) error

	// TopByOverallScore lists records ordered by overall score descending.
	TopByOverallScore(ctx context.Context, limit, offset int) ([]RankedScore, error)
}
