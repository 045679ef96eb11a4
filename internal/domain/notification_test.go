package domain

import "testing"

func TestMilestoneThresholds_CrossedUpward(t *testing.T) {
	thresholds := DefaultMilestoneThresholds()

	level, ok := thresholds.Crossed(2.4, 2.6)
	if !ok || level != 2.5 {
		t.Errorf("expected crossing of 2.5, got %v (ok=%v)", level, ok)
	}

	// jump over several levels reports the highest
	level, ok = thresholds.Crossed(1.0, 8.0)
	if !ok || level != 7.5 {
		t.Errorf("expected highest crossed level 7.5, got %v (ok=%v)", level, ok)
	}
}

func TestMilestoneThresholds_NoCrossing(t *testing.T) {
	thresholds := DefaultMilestoneThresholds()

	if _, ok := thresholds.Crossed(2.6, 2.4); ok {
		t.Error("downward move must not trigger")
	}
	if _, ok := thresholds.Crossed(2.5, 2.5); ok {
		t.Error("unchanged score must not trigger")
	}
	if _, ok := thresholds.Crossed(2.6, 4.9); ok {
		t.Error("move between levels must not trigger")
	}
	// landing exactly on a level counts, starting on one does not
	if _, ok := thresholds.Crossed(5.0, 6.0); ok {
		t.Error("starting on a level must not re-trigger it")
	}
	if level, ok := thresholds.Crossed(4.9, 5.0); !ok || level != 5.0 {
		t.Errorf("landing exactly on 5.0 should trigger, got %v (ok=%v)", level, ok)
	}
}

func TestWebhookSubscription_Lifecycle(t *testing.T) {
	sub, err := NewWebhookSubscription(NewUserID(), "https://example.com/hook", "s3cret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !sub.IsActive() {
		t.Error("expected new subscription to be active")
	}

	sub.Deactivate()
	if sub.IsActive() {
		t.Error("expected subscription inactive after Deactivate")
	}

	if _, err := NewWebhookSubscription(NewUserID(), "", "s3cret"); err == nil {
		t.Error("expected error for empty target url")
	}
	if _, err := NewWebhookSubscription(NewUserID(), "https://example.com", ""); err == nil {
		t.Error("expected error for empty secret")
	}
}
