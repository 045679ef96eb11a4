package application

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/wayfarerhq/impact/internal/domain"
	"github.com/wayfarerhq/impact/internal/infrastructure/logging"
)

// fakeUnitOfWork satisfies UnitOfWork without a real database; the fake
// store below does its own locking and version checks.
type fakeUnitOfWork struct{}

func (f *fakeUnitOfWork) Begin(ctx context.Context) (context.Context, error) { return ctx, nil }
func (f *fakeUnitOfWork) Commit(ctx context.Context) error                   { return nil }
func (f *fakeUnitOfWork) Rollback(ctx context.Context) error                 { return nil }

// storedRecord is the fake store's persisted snapshot of a record.
type storedRecord struct {
	scores    map[domain.Dimension]float64
	history   map[domain.Dimension][]float64
	overall   float64
	version   int64
	updatedAt time.Time
}

// fakeRecordStore is an in-memory ScoreRecordRepository with the same
// version-guarded update semantics as the postgres implementation.
type fakeRecordStore struct {
	mu      sync.Mutex
	records map[string]*storedRecord
}

func newFakeRecordStore() *fakeRecordStore {
	return &fakeRecordStore{records: make(map[string]*storedRecord)}
}

func (s *fakeRecordStore) seed(userID domain.UserID, record *domain.ScoreRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[userID.String()] = &storedRecord{
		scores:    record.Scores(),
		history:   record.History(),
		overall:   record.OverallScore(),
		version:   record.Version(),
		updatedAt: record.UpdatedAt(),
	}
}

func (s *fakeRecordStore) Find(ctx context.Context, userID domain.UserID) (*domain.ScoreRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.records[userID.String()]
	if !ok {
		return nil, domain.ErrNotFound
	}

	scores := make(map[domain.Dimension]float64, len(stored.scores))
	for d, v := range stored.scores {
		scores[d] = v
	}
	history := make(map[domain.Dimension][]float64, len(stored.history))
	for d, h := range stored.history {
		history[d] = append([]float64(nil), h...)
	}

	return domain.ReconstructScoreRecord(userID, scores, history, stored.overall, stored.version, stored.updatedAt), nil
}

func (s *fakeRecordStore) Create(ctx context.Context, record *domain.ScoreRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := record.UserID().String()
	if _, ok := s.records[key]; ok {
		return domain.ErrAlreadyExists
	}
	s.records[key] = &storedRecord{
		scores:    record.Scores(),
		history:   record.History(),
		overall:   record.OverallScore(),
		version:   record.Version(),
		updatedAt: record.UpdatedAt(),
	}
	return nil
}

func (s *fakeRecordStore) Update(ctx context.Context, record *domain.ScoreRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := record.UserID().String()
	stored, ok := s.records[key]
	if !ok {
		return domain.ErrNotFound
	}
	if stored.version != record.Version() {
		return domain.ErrConflict
	}
	s.records[key] = &storedRecord{
		scores:    record.Scores(),
		history:   record.History(),
		overall:   record.OverallScore(),
		version:   record.Version() + 1,
		updatedAt: record.UpdatedAt(),
	}
	return nil
}

func (s *fakeRecordStore) TopByOverallScore(ctx context.Context, limit, offset int) ([]domain.RankedScore, error) {
	return nil, nil
}

func (s *fakeRecordStore) snapshot(userID domain.UserID) storedRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.records[userID.String()]
}

// conflictingStore wraps fakeRecordStore and forces the first n updates
// to lose the optimistic race.
type conflictingStore struct {
	*fakeRecordStore
	mu        sync.Mutex
	conflicts int
}

func (s *conflictingStore) Update(ctx context.Context, record *domain.ScoreRecord) error {
	s.mu.Lock()
	if s.conflicts > 0 {
		s.conflicts--
		s.mu.Unlock()
		return domain.ErrConflict
	}
	s.mu.Unlock()
	return s.fakeRecordStore.Update(ctx, record)
}

type fakeNotifier struct {
	mu         sync.Mutex
	milestones []domain.ScoreMilestone
}

func (f *fakeNotifier) NotifyMilestone(ctx context.Context, m domain.ScoreMilestone) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.milestones = append(f.milestones, m)
	return nil
}

func (f *fakeNotifier) Thresholds() domain.MilestoneThresholds {
	return domain.DefaultMilestoneThresholds()
}

func newUseCase(store domain.ScoreRecordRepository) *UpdateScoresUseCase {
	return NewUpdateScoresUseCase(store, &fakeUnitOfWork{}, domain.DefaultEngineParams(), logging.NewNop())
}

func TestUpdateScores_NewUserScenario(t *testing.T) {
	store := newFakeRecordStore()
	userID := domain.NewUserID()
	store.seed(userID, domain.NewScoreRecord(userID))

	uc := newUseCase(store)
	out, err := uc.Execute(context.Background(), UpdateScoresInput{
		UserID: userID.String(),
		Scores: map[string]float64{"cultural": 8},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !out.Updated {
		t.Fatal("expected an update")
	}
	if out.NewScores["cultural"] != 8 {
		t.Errorf("expected cultural average 8, got %v", out.NewScores["cultural"])
	}
	if math.Abs(out.NewOverallScore-0.844) > 1e-9 {
		t.Errorf("expected overall 0.844, got %v", out.NewOverallScore)
	}
	if out.OldOverallScore != 0 {
		t.Errorf("expected old overall 0, got %v", out.OldOverallScore)
	}

	persisted := store.snapshot(userID)
	if persisted.version != 1 {
		t.Errorf("expected version bump to 1, got %d", persisted.version)
	}
	if len(persisted.history[domain.DimensionCultural]) != 1 {
		t.Errorf("expected one history entry, got %v", persisted.history)
	}
}

func TestUpdateScores_UserNotFound(t *testing.T) {
	uc := newUseCase(newFakeRecordStore())

	_, err := uc.Execute(context.Background(), UpdateScoresInput{
		UserID: domain.NewUserID().String(),
		Scores: map[string]float64{"social": 5},
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateScores_InvalidScoreNoWrite(t *testing.T) {
	store := newFakeRecordStore()
	userID := domain.NewUserID()
	record := domain.NewScoreRecord(userID)
	if _, err := record.ApplySubmission(domain.Submission{domain.DimensionSocial: 4}, domain.DefaultEngineParams(), time.Now().UTC()); err != nil {
		t.Fatal(err)
	}
	store.seed(userID, record)
	before := store.snapshot(userID)

	uc := newUseCase(store)
	for _, scores := range []map[string]float64{
		{"social": 10.5},
		{"cultural": -1},
		{"cultural": 3, "environmental": 99}, // one valid, one invalid: whole call fails
		{"wellness": 5},                      // unrecognized dimension
		{},                                   // nothing supplied
	} {
		_, err := uc.Execute(context.Background(), UpdateScoresInput{
			UserID: userID.String(),
			Scores: scores,
		})
		if !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput for %v, got %v", scores, err)
		}
	}

	after := store.snapshot(userID)
	if after.version != before.version || after.overall != before.overall {
		t.Error("rejected submissions must leave the stored record unchanged")
	}
}

func TestUpdateScores_RetriesOnConflict(t *testing.T) {
	inner := newFakeRecordStore()
	userID := domain.NewUserID()
	inner.seed(userID, domain.NewScoreRecord(userID))
	store := &conflictingStore{fakeRecordStore: inner, conflicts: 2}

	uc := newUseCase(store)
	out, err := uc.Execute(context.Background(), UpdateScoresInput{
		UserID: userID.String(),
		Scores: map[string]float64{"environmental": 7},
	})
	if err != nil {
		t.Fatalf("expected retries to absorb conflicts, got %v", err)
	}
	if !out.Updated {
		t.Error("expected a successful update after retries")
	}
}

func TestUpdateScores_RetriesExhausted(t *testing.T) {
	inner := newFakeRecordStore()
	userID := domain.NewUserID()
	inner.seed(userID, domain.NewScoreRecord(userID))
	store := &conflictingStore{fakeRecordStore: inner, conflicts: 1000}

	uc := newUseCase(store).WithMaxAttempts(3)
	_, err := uc.Execute(context.Background(), UpdateScoresInput{
		UserID: userID.String(),
		Scores: map[string]float64{"cultural": 5},
	})
	if !errors.Is(err, ErrRetriesExhausted) {
		t.Fatalf("expected ErrRetriesExhausted, got %v", err)
	}
}

func TestUpdateScores_ConcurrentSubmissionsBothLand(t *testing.T) {
	store := newFakeRecordStore()
	userID := domain.NewUserID()
	store.seed(userID, domain.NewScoreRecord(userID))

	uc := newUseCase(store).WithMaxAttempts(10)

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for _, scores := range []map[string]float64{
		{"cultural": 6},
		{"cultural": 9},
	} {
		wg.Add(1)
		go func(scores map[string]float64) {
			defer wg.Done()
			_, err := uc.Execute(context.Background(), UpdateScoresInput{
				UserID: userID.String(),
				Scores: scores,
			})
			errs <- err
		}(scores)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent update failed: %v", err)
		}
	}

	// neither submission may be silently lost, regardless of interleaving
	persisted := store.snapshot(userID)
	if got := len(persisted.history[domain.DimensionCultural]); got != 2 {
		t.Errorf("expected both submissions in history, got %d entries", got)
	}
	if persisted.version != 2 {
		t.Errorf("expected two version bumps, got %d", persisted.version)
	}
}

func TestUpdateScores_MilestoneNotified(t *testing.T) {
	store := newFakeRecordStore()
	userID := domain.NewUserID()
	record := domain.ReconstructScoreRecord(
		userID,
		map[domain.Dimension]float64{domain.DimensionEnvironmental: 9},
		map[domain.Dimension][]float64{domain.DimensionEnvironmental: {9}},
		2.4,
		5,
		time.Now().UTC(),
	)
	store.seed(userID, record)

	notifier := &fakeNotifier{}
	uc := newUseCase(store).WithNotifier(notifier)

	out, err := uc.Execute(context.Background(), UpdateScoresInput{
		UserID: userID.String(),
		Scores: map[string]float64{"environmental": 10},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.NewOverallScore <= 2.5 {
		t.Fatalf("test setup expected overall to cross 2.5, got %v", out.NewOverallScore)
	}

	if len(notifier.milestones) != 1 {
		t.Fatalf("expected one milestone notification, got %d", len(notifier.milestones))
	}
	m := notifier.milestones[0]
	if m.Level != 2.5 || m.UserID != userID {
		t.Errorf("unexpected milestone %+v", m)
	}
}
