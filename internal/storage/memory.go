package storage

import (
	"sync"
	"time"
)

// MemoryStore is an in-memory implementation of ShareStore
type MemoryStore struct {
	mu              sync.RWMutex
	shares          map[string]*Share // keyed by id
	textIndex       map[string]string // text -> id reverse lookup
	ttl             time.Duration
	cleanupInterval time.Duration
	stopCleanup     chan struct{}
	closeOnce       sync.Once
}

// NewMemoryStore creates a new in-memory share store
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	store := &MemoryStore{
		shares:          make(map[string]*Share),
		textIndex:       make(map[string]string),
		ttl:             ttl,
		cleanupInterval: time.Minute,
		stopCleanup:     make(chan struct{}),
	}

	// Start background cleanup goroutine
	go store.cleanupLoop()

	return store
}

// Put saves text under id
func (m *MemoryStore) Put(id, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	m.shares[id] = &Share{
		ID:        id,
		Text:      text,
		LastUsed:  now,
		CreatedAt: now,
	}
	m.textIndex[text] = id

	return nil
}

// Get retrieves the text stored under id. Expired shares are not returned
// even if cleanup has not run yet.
func (m *MemoryStore) Get(id string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	share, ok := m.shares[id]
	if !ok {
		return "", false
	}

	now := time.Now()
	if expired(share.LastUsed, now, m.ttl) {
		m.remove(share)
		return "", false
	}

	share.LastUsed = now
	return share.Text, true
}

// LookupByText retrieves the id of an already stored text
func (m *MemoryStore) LookupByText(text string) (string, bool) {
	m.mu.RLock()
	id, ok := m.textIndex[text]
	m.mu.RUnlock()

	if !ok {
		return "", false
	}

	// Get refreshes LastUsed and drops the share if it has expired
	if _, ok := m.Get(id); !ok {
		return "", false
	}

	return id, true
}

// Touch updates the LastUsed timestamp
func (m *MemoryStore) Touch(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if share, ok := m.shares[id]; ok {
		share.LastUsed = time.Now()
	}

	return nil
}

// Cleanup removes expired shares
func (m *MemoryStore) Cleanup() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for _, share := range m.shares {
		if expired(share.LastUsed, now, m.ttl) {
			m.remove(share)
		}
	}

	return nil
}

// remove deletes share from both indexes. Callers hold m.mu.
func (m *MemoryStore) remove(share *Share) {
	delete(m.shares, share.ID)
	if m.textIndex[share.Text] == share.ID {
		delete(m.textIndex, share.Text)
	}
}

// Size returns the number of stored shares
func (m *MemoryStore) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.shares)
}

// Ping always succeeds for the in-memory store
func (m *MemoryStore) Ping() error {
	return nil
}

// Close stops the cleanup goroutine and releases resources
func (m *MemoryStore) Close() error {
	m.closeOnce.Do(func() {
		close(m.stopCleanup)
	})
	return nil
}

// cleanupLoop periodically cleans up expired shares
func (m *MemoryStore) cleanupLoop() {
	ticker := time.NewTicker(m.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = m.Cleanup()
		case <-m.stopCleanup:
			return
		}
	}
}
