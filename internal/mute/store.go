package mute

import (
	"sync"
	"time"
)

// Store tracks which users are currently gagged and until when. It is the
// single source of truth for "is this user gagged": expiry is checked lazily
// on every read, so no background sweep is needed. Safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	records map[int64]time.Time

	now func() time.Time
}

func NewStore() *Store {
	return &Store{
		records: make(map[int64]time.Time),
		now:     time.Now,
	}
}

// IsMuted reports whether the user has an unexpired record. Expired records
// are evicted on the way out.
func (s *Store) IsMuted(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	expiresAt, ok := s.records[userID]
	if !ok {
		return false
	}
	if !expiresAt.After(s.now()) {
		delete(s.records, userID)
		return false
	}
	return true
}

// Mute records the user as gagged for the given duration and returns the
// expiry. An existing record is overwritten; callers that must not shorten
// an active gag check IsMuted first.
func (s *Store) Mute(userID int64, d time.Duration) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	expiresAt := s.now().Add(d)
	s.records[userID] = expiresAt
	return expiresAt
}

// Unmute removes the user's record and reports whether an active gag was
// lifted. Records that already lapsed are evicted but report false.
func (s *Store) Unmute(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	expiresAt, ok := s.records[userID]
	if !ok {
		return false
	}
	delete(s.records, userID)
	return expiresAt.After(s.now())
}

// Len reports the number of records currently held, expired ones included.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
