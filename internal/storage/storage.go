// Package storage keeps shared ciphertexts addressable by ID for a limited time.
package storage

import (
	"errors"
	"fmt"
	"time"

	"github.com/hfi/betabet/internal/config"
)

// ErrUnknownType is returned by New for an unsupported storage type
var ErrUnknownType = errors.New("unknown storage type")

// Share represents a stored ciphertext with metadata
type Share struct {
	ID        string    `msgpack:"id"`
	Text      string    `msgpack:"text"`
	LastUsed  time.Time `msgpack:"last_used"`
	CreatedAt time.Time `msgpack:"created_at"`
}

// ShareStore defines the interface for storing shared ciphertexts
type ShareStore interface {
	// Put saves text under id
	Put(id, text string) error

	// Get retrieves the text stored under id
	Get(id string) (string, bool)

	// LookupByText retrieves the id of an already stored text
	LookupByText(text string) (string, bool)

	// Touch extends the lifetime of a share
	Touch(id string) error

	// Cleanup removes expired shares
	Cleanup() error

	// Size returns the number of stored shares
	Size() int

	// Ping reports whether the backend is reachable
	Ping() error

	// Close releases any resources
	Close() error
}

// New creates the store selected by cfg.Type
func New(cfg config.StorageConfig) (ShareStore, error) {
	switch cfg.Type {
	case "", "memory":
		return NewMemoryStore(cfg.TTL), nil
	case "redis":
		return NewRedisStore(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB, cfg.TTL)
	case "leveldb":
		return NewLevelDBStore(cfg.LevelDB.Path, cfg.TTL)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, cfg.Type)
	}
}

// expired reports whether a share last used at lastUsed is past ttl. A
// zero ttl never expires.
func expired(lastUsed, now time.Time, ttl time.Duration) bool {
	return ttl > 0 && now.Sub(lastUsed) > ttl
}
