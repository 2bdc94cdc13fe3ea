package domain

import (
	"testing"
	"time"
)

func TestExpiredBoundary(t *testing.T) {
	expiry := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	link := &SignupLink{ExpiresAt: expiry}

	if link.Expired(expiry.Add(-time.Second)) {
		t.Error("link should be valid before expiry")
	}
	// The exact expiry instant counts as expired, same as the consume query.
	if !link.Expired(expiry) {
		t.Error("link should be expired at the exact expiry instant")
	}
	if !link.Expired(expiry.Add(time.Second)) {
		t.Error("link should be expired after expiry")
	}
}

func TestExhausted(t *testing.T) {
	link := &SignupLink{UsageLimit: 2, UsageCount: 1}
	if link.Exhausted() {
		t.Error("one remaining use should not be exhausted")
	}
	link.UsageCount = 2
	if !link.Exhausted() {
		t.Error("usage at limit should be exhausted")
	}
}
