package worker

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/wayfarerhq/impact/internal/domain"
	"github.com/wayfarerhq/impact/internal/infrastructure/logging"
)

// fakeSubscriptionStore is an in-memory WebhookSubscriptionRepository.
type fakeSubscriptionStore struct {
	mu   sync.Mutex
	subs []*domain.WebhookSubscription
}

func (s *fakeSubscriptionStore) Save(ctx context.Context, sub *domain.WebhookSubscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, sub)
	return nil
}

func (s *fakeSubscriptionStore) FindActiveByUser(ctx context.Context, userID domain.UserID) ([]*domain.WebhookSubscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var active []*domain.WebhookSubscription
	for _, sub := range s.subs {
		if sub.UserID() == userID && sub.IsActive() {
			active = append(active, sub)
		}
	}
	return active, nil
}

func (s *fakeSubscriptionStore) FindByUser(ctx context.Context, userID domain.UserID) ([]*domain.WebhookSubscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []*domain.WebhookSubscription
	for _, sub := range s.subs {
		if sub.UserID() == userID {
			all = append(all, sub)
		}
	}
	return all, nil
}

func (s *fakeSubscriptionStore) Delete(ctx context.Context, id domain.SubscriptionID) error {
	return nil
}

type capturedDelivery struct {
	body      []byte
	signature string
	event     string
}

func TestWebhookWorker_DeliversQueuedMilestonesOnStop(t *testing.T) {
	deliveries := make(chan capturedDelivery, 4)
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		deliveries <- capturedDelivery{
			body:      body,
			signature: r.Header.Get("X-Impact-Signature"),
			event:     r.Header.Get("X-Impact-Event"),
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer target.Close()

	userID := domain.NewUserID()
	sub, err := domain.NewWebhookSubscription(userID, target.URL, "sub-secret")
	if err != nil {
		t.Fatalf("creating subscription: %v", err)
	}

	store := &fakeSubscriptionStore{}
	if err := store.Save(context.Background(), sub); err != nil {
		t.Fatalf("saving subscription: %v", err)
	}

	config := DefaultWebhookWorkerConfig()
	config.BufferSize = 8
	config.WorkerCount = 1

	w := NewWebhookWorker(store, config, logging.NewNop())
	w.Start(context.Background())

	milestone := domain.ScoreMilestone{
		UserID:     userID,
		Level:      5.0,
		OldOverall: 4.9,
		NewOverall: 5.2,
		Timestamp:  time.Now().UTC(),
	}

	// a request that is still in flight while the process shuts down may
	// queue right up until the server drains, so queuing must stay safe
	// and everything queued must still go out
	if err := w.NotifyMilestone(context.Background(), milestone); err != nil {
		t.Fatalf("queuing milestone: %v", err)
	}

	w.Stop()

	select {
	case got := <-deliveries:
		var payload WebhookPayload
		if err := json.Unmarshal(got.body, &payload); err != nil {
			t.Fatalf("decoding payload: %v", err)
		}
		if payload.Event != "score_milestone" {
			t.Errorf("expected event score_milestone, got %q", payload.Event)
		}
		if payload.UserID != userID.String() || payload.Level != 5.0 {
			t.Errorf("unexpected payload: %+v", payload)
		}
		if got.event != "score_milestone" {
			t.Errorf("expected event header score_milestone, got %q", got.event)
		}

		mac := hmac.New(sha256.New, []byte("sub-secret"))
		mac.Write(got.body)
		want := "sha256=" + hex.EncodeToString(mac.Sum(nil))
		if got.signature != want {
			t.Errorf("signature mismatch: got %q want %q", got.signature, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("milestone was not delivered before Stop returned")
	}
}

func TestWebhookWorker_FullBufferDropsWithoutError(t *testing.T) {
	store := &fakeSubscriptionStore{}
	config := DefaultWebhookWorkerConfig()
	config.BufferSize = 1
	config.WorkerCount = 1

	// never started: the buffer fills and stays full
	w := NewWebhookWorker(store, config, logging.NewNop())

	milestone := domain.ScoreMilestone{UserID: domain.NewUserID(), Level: 2.5}
	if err := w.NotifyMilestone(context.Background(), milestone); err != nil {
		t.Fatalf("first enqueue should succeed: %v", err)
	}
	// best-effort contract: a full buffer drops instead of failing the caller
	if err := w.NotifyMilestone(context.Background(), milestone); err != nil {
		t.Fatalf("overflow should drop silently, got %v", err)
	}
}
