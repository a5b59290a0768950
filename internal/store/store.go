// Package store holds the in-process, ephemeral log of webhook deliveries.
//
// The log is a fixed-capacity ring of records ordered newest-first. It lives
// for the process lifetime only; nothing is persisted. When the ring is full
// the oldest record is evicted on every insert, so memory stays bounded under
// sustained load.
package store

import (
	"sync"
	"time"
)

// DefaultCapacity is the number of records retained when no capacity is
// configured.
const DefaultCapacity = 200

// Record is one authenticated, decoded webhook delivery.
//
// A Record is immutable once stored. ID is taken from the delivery header
// when present and is not guaranteed unique; ReceivedAt is the ingestion
// time, not any timestamp embedded in the payload.
type Record struct {
	ID         string    `json:"id"`
	Event      string    `json:"event"`
	ReceivedAt time.Time `json:"received_at"`
	Payload    any       `json:"payload"`
}

// Store is a capacity-bounded, insertion-ordered delivery log, safe for
// concurrent writers and readers.
type Store struct {
	mu   sync.RWMutex
	buf  []Record
	head int // index of the newest record, valid when n > 0
	n    int
}

// New creates an empty store. Non-positive capacities fall back to
// DefaultCapacity.
func New(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{buf: make([]Record, capacity)}
}

// Push stamps rec with the current time and inserts it at the front,
// evicting the oldest record if the store is full. Stamping happens under
// the write lock, so ReceivedAt is non-decreasing in insertion order even
// across concurrent pushes. Returns the stored record.
func (s *Store) Push(rec Record) Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec.ReceivedAt = time.Now().UTC()
	s.head = (s.head - 1 + len(s.buf)) % len(s.buf)
	s.buf[s.head] = rec
	if s.n < len(s.buf) {
		s.n++
	}
	return rec
}

// Peek returns up to limit records, newest first, and the current total
// length. The returned slice is a copy; it never aliases internal storage.
func (s *Store) Peek(limit int) ([]Record, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit > s.n {
		limit = s.n
	}
	if limit < 0 {
		limit = 0
	}
	out := make([]Record, limit)
	for i := 0; i < limit; i++ {
		out[i] = s.buf[(s.head+i)%len(s.buf)]
	}
	return out, s.n
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.n
}

// Cap returns the fixed capacity.
func (s *Store) Cap() int {
	return len(s.buf)
}
