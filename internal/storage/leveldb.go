package storage

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
	"github.com/vmihailenco/msgpack/v4"
)

const (
	levelDBIDPrefix   = "id:"
	levelDBTextPrefix = "text:"
)

// LevelDBStore is a LevelDB-based implementation of ShareStore. Shares are
// encoded with msgpack; expiry is checked on read and by Cleanup.
type LevelDBStore struct {
	mu  sync.Mutex
	db  *leveldb.DB
	ttl time.Duration
}

// NewLevelDBStore opens (or creates) a LevelDB database at path
func NewLevelDBStore(path string, ttl time.Duration) (*LevelDBStore, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open LevelDB at %s: %w", path, err)
	}

	return &LevelDBStore{
		db:  db,
		ttl: ttl,
	}, nil
}

// Put saves text under id
func (l *LevelDBStore) Put(id, text string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	return l.write(&Share{
		ID:        id,
		Text:      text,
		LastUsed:  now,
		CreatedAt: now,
	})
}

func (l *LevelDBStore) write(share *Share) error {
	value, err := msgpack.Marshal(share)
	if err != nil {
		return fmt.Errorf("failed to encode share %s: %w", share.ID, err)
	}

	batch := new(leveldb.Batch)
	batch.Put([]byte(levelDBIDPrefix+share.ID), value)
	batch.Put([]byte(levelDBTextPrefix+share.Text), []byte(share.ID))

	if err := l.db.Write(batch, nil); err != nil {
		return fmt.Errorf("failed to store share %s: %w", share.ID, err)
	}
	return nil
}

func (l *LevelDBStore) read(id string) (*Share, error) {
	value, err := l.db.Get([]byte(levelDBIDPrefix+id), nil)
	if err != nil {
		return nil, err
	}

	var share Share
	if err := msgpack.Unmarshal(value, &share); err != nil {
		return nil, fmt.Errorf("failed to decode share %s: %w", id, err)
	}
	return &share, nil
}

func (l *LevelDBStore) delete(share *Share) error {
	batch := new(leveldb.Batch)
	batch.Delete([]byte(levelDBIDPrefix + share.ID))
	batch.Delete([]byte(levelDBTextPrefix + share.Text))
	return l.db.Write(batch, nil)
}

// Get retrieves the text stored under id
func (l *LevelDBStore) Get(id string) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	share, ok := l.live(id)
	if !ok {
		return "", false
	}
	return share.Text, true
}

// live reads a share, drops it when expired and refreshes LastUsed
// otherwise. Callers hold l.mu.
func (l *LevelDBStore) live(id string) (*Share, bool) {
	share, err := l.read(id)
	if err != nil {
		return nil, false
	}

	now := time.Now()
	if expired(share.LastUsed, now, l.ttl) {
		_ = l.delete(share)
		return nil, false
	}

	share.LastUsed = now
	if err := l.write(share); err != nil {
		return nil, false
	}
	return share, true
}

// LookupByText retrieves the id of an already stored text
func (l *LevelDBStore) LookupByText(text string) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	id, err := l.db.Get([]byte(levelDBTextPrefix+text), nil)
	if err != nil {
		return "", false
	}
	if _, ok := l.live(string(id)); !ok {
		return "", false
	}
	return string(id), true
}

// Touch updates the LastUsed timestamp
func (l *LevelDBStore) Touch(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	share, err := l.read(id)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	share.LastUsed = time.Now()
	return l.write(share)
}

// Cleanup removes expired shares
func (l *LevelDBStore) Cleanup() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	batch := new(leveldb.Batch)

	iter := l.db.NewIterator(util.BytesPrefix([]byte(levelDBIDPrefix)), nil)
	for iter.Next() {
		var share Share
		if err := msgpack.Unmarshal(iter.Value(), &share); err != nil {
			// Unreadable records can never be served again
			batch.Delete(append([]byte(nil), iter.Key()...))
			continue
		}
		if expired(share.LastUsed, now, l.ttl) {
			batch.Delete([]byte(levelDBIDPrefix + share.ID))
			batch.Delete([]byte(levelDBTextPrefix + share.Text))
		}
	}
	iter.Release()
	if err := iter.Error(); err != nil {
		return fmt.Errorf("failed to scan shares: %w", err)
	}

	return l.db.Write(batch, nil)
}

// Size returns the number of stored shares
func (l *LevelDBStore) Size() int {
	count := 0
	iter := l.db.NewIterator(util.BytesPrefix([]byte(levelDBIDPrefix)), nil)
	for iter.Next() {
		count++
	}
	iter.Release()
	return count
}

// Ping fails once the database has been closed
func (l *LevelDBStore) Ping() error {
	_, err := l.db.GetProperty("leveldb.num-files-at-level0")
	return err
}

// Close closes the database
func (l *LevelDBStore) Close() error {
	return l.db.Close()
}
