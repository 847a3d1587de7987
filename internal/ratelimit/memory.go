package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps records in process memory. The check and the increment
// happen under one lock, so concurrent requests from the same identity can
// never both observe the last free slot.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*Record
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*Record),
	}
}

// CheckAndConsume implements Store.
func (m *MemoryStore) CheckAndConsume(ctx context.Context, key string, policy Policy, now time.Time) (Decision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var current Record
	if rec, ok := m.records[key]; ok {
		current = *rec
	}

	decision, next := evaluate(current, policy, now)
	if decision.Allowed {
		m.records[key] = &next
	}
	return decision, nil
}

// Sweep removes records whose hour window has passed.
func (m *MemoryStore) Sweep(ctx context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	deleted := 0
	for key, rec := range m.records {
		if now.After(rec.HourWindowEnd) {
			delete(m.records, key)
			deleted++
		}
	}
	return deleted, nil
}

// Get returns a copy of the record stored under key.
func (m *MemoryStore) Get(key string) (Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[key]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

// Len returns the number of tracked identities
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}
