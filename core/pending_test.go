package core

import (
	"testing"

	"github.com/google/uuid"
)

// TestPendingStore_ParkAndTake verifies the single-use token contract
// Given: A parked work item
// When: Its token is taken
// Then: The entry comes back once and the token is dead afterwards
func TestPendingStore_ParkAndTake(t *testing.T) {
	s := newPendingStore()
	token := uuid.New()

	s.park(token, &pendingWork{args: "job"})
	if got := s.count(); got != 1 {
		t.Fatalf("count() = %d, want 1", got)
	}

	w, ok := s.take(token)
	if !ok {
		t.Fatal("take() missed a parked token")
	}
	if w.args != "job" {
		t.Errorf("args = %v, want %q", w.args, "job")
	}
	if got := s.count(); got != 0 {
		t.Errorf("count() after take = %d, want 0", got)
	}

	// A token is consumed by its first take; replays must miss
	if _, ok := s.take(token); ok {
		t.Error("take() succeeded twice for the same token")
	}
}

// TestPendingStore_TakeUnknownToken verifies forged-token behavior
func TestPendingStore_TakeUnknownToken(t *testing.T) {
	s := newPendingStore()
	if w, ok := s.take(uuid.New()); ok || w != nil {
		t.Errorf("take(unknown) = %v, %v, want nil, false", w, ok)
	}
}

// TestPendingStore_Remove verifies the failed-submit cleanup path
func TestPendingStore_Remove(t *testing.T) {
	s := newPendingStore()
	token := uuid.New()
	s.park(token, &pendingWork{})

	s.remove(token)
	if _, ok := s.take(token); ok {
		t.Error("take() found an entry after remove")
	}

	// Removing twice is harmless
	s.remove(token)
}

// TestPendingStore_Drain verifies shutdown accounting
func TestPendingStore_Drain(t *testing.T) {
	s := newPendingStore()
	for i := 0; i < 5; i++ {
		s.park(uuid.New(), &pendingWork{})
	}

	if got := s.drain(); got != 5 {
		t.Errorf("drain() = %d, want 5", got)
	}
	if got := s.count(); got != 0 {
		t.Errorf("count() after drain = %d, want 0", got)
	}
	if got := s.drain(); got != 0 {
		t.Errorf("second drain() = %d, want 0", got)
	}
}
