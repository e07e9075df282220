package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Doerkidoerk/entgeltrechnerigmby/internal/core/port"
)

// RateLimitStore keeps attempt timestamps per identifier in process memory.
// It is the default backend when no Redis address is configured; limits then
// apply per instance rather than across a fleet.
type RateLimitStore struct {
	mu       sync.Mutex
	attempts map[string][]time.Time
}

// NewRateLimitStore constructs an empty in-memory store.
func NewRateLimitStore() *RateLimitStore {
	return &RateLimitStore{attempts: make(map[string][]time.Time)}
}

// RecordAttempt appends the timestamp for the identifier.
func (s *RateLimitStore) RecordAttempt(_ context.Context, identifier string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts[identifier] = append(s.attempts[identifier], at)
	return nil
}

// CountAttempts returns how many attempts fall within the window ending at reference time.
func (s *RateLimitStore) CountAttempts(_ context.Context, identifier string, window time.Duration, reference time.Time) (int, error) {
	if window <= 0 {
		return 0, errors.New("window must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := reference.Add(-window)
	count := 0
	for _, at := range s.attempts[identifier] {
		if !at.Before(cutoff) && !at.After(reference) {
			count++
		}
	}
	return count, nil
}

// OldestAttempt returns the earliest attempt inside the active window.
func (s *RateLimitStore) OldestAttempt(_ context.Context, identifier string, window time.Duration, reference time.Time) (time.Time, bool, error) {
	if window <= 0 {
		return time.Time{}, false, errors.New("window must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := reference.Add(-window)
	var oldest time.Time
	found := false
	for _, at := range s.attempts[identifier] {
		if at.Before(cutoff) || at.After(reference) {
			continue
		}
		if !found || at.Before(oldest) {
			oldest = at
			found = true
		}
	}
	return oldest, found, nil
}

// TrimWindow drops attempts older than the window, deleting empty buckets.
func (s *RateLimitStore) TrimWindow(_ context.Context, identifier string, window time.Duration, reference time.Time) error {
	if window <= 0 {
		return errors.New("window must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := reference.Add(-window)
	kept := s.attempts[identifier][:0]
	for _, at := range s.attempts[identifier] {
		if !at.Before(cutoff) {
			kept = append(kept, at)
		}
	}
	if len(kept) == 0 {
		delete(s.attempts, identifier)
		return nil
	}
	s.attempts[identifier] = kept
	return nil
}

var _ port.RateLimitStore = (*RateLimitStore)(nil)
