package storage

import (
	"testing"
	"time"
)

func TestMemoryStore_PutAndGet(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	defer store.Close()

	id := "bb_a1b2c3d4e5f6"
	text := "MEVVI ZIKVD"

	if err := store.Put(id, text); err != nil {
		t.Fatalf("Put() error: %v", err)
	}

	got, found := store.Get(id)
	if !found {
		t.Error("Get() returned not found")
	}
	if got != text {
		t.Errorf("Get() = %q, want %q", got, text)
	}
}

func TestMemoryStore_LookupByText(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	defer store.Close()

	id := "bb_a1b2c3d4e5f6"
	text := "MEVVI"

	if err := store.Put(id, text); err != nil {
		t.Fatalf("Put() error: %v", err)
	}

	got, found := store.LookupByText(text)
	if !found {
		t.Error("LookupByText() returned not found")
	}
	if got != id {
		t.Errorf("LookupByText() = %q, want %q", got, id)
	}
}

func TestMemoryStore_GetNotFound(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	defer store.Close()

	if _, found := store.Get("nonexistent"); found {
		t.Error("Get() should return not found for nonexistent key")
	}
	if _, found := store.LookupByText("nonexistent"); found {
		t.Error("LookupByText() should return not found for nonexistent text")
	}
}

func TestMemoryStore_Size(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	defer store.Close()

	if store.Size() != 0 {
		t.Errorf("Size() = %d, want 0", store.Size())
	}

	store.Put("bb_1", "one")
	store.Put("bb_2", "two")
	store.Put("bb_3", "three")

	if store.Size() != 3 {
		t.Errorf("Size() = %d, want 3", store.Size())
	}
}

func TestMemoryStore_Cleanup(t *testing.T) {
	// Use very short TTL for testing
	store := NewMemoryStore(50 * time.Millisecond)
	defer store.Close()

	store.Put("bb_1", "one")

	if _, found := store.Get("bb_1"); !found {
		t.Fatal("Share should be found immediately after storing")
	}

	// Wait for TTL to expire
	time.Sleep(100 * time.Millisecond)

	store.Cleanup()

	if store.Size() != 0 {
		t.Errorf("Size() = %d after cleanup, want 0", store.Size())
	}
	if _, found := store.LookupByText("one"); found {
		t.Error("Reverse index should be cleaned up after TTL")
	}
}

func TestMemoryStore_GetExpiredBeforeCleanup(t *testing.T) {
	store := NewMemoryStore(30 * time.Millisecond)
	defer store.Close()

	store.Put("bb_1", "one")
	time.Sleep(60 * time.Millisecond)

	if _, found := store.Get("bb_1"); found {
		t.Error("Get() should not return an expired share")
	}
	if store.Size() != 0 {
		t.Errorf("Size() = %d, want expired share dropped", store.Size())
	}
}

func TestMemoryStore_ZeroTTLNeverExpires(t *testing.T) {
	store := NewMemoryStore(0)
	defer store.Close()

	store.Put("bb_1", "one")
	time.Sleep(10 * time.Millisecond)
	store.Cleanup()

	if _, found := store.Get("bb_1"); !found {
		t.Error("Share with zero TTL should not expire")
	}
}

func TestMemoryStore_Touch(t *testing.T) {
	store := NewMemoryStore(100 * time.Millisecond)
	defer store.Close()

	id := "bb_1"
	store.Put(id, "one")

	// Wait half the TTL
	time.Sleep(60 * time.Millisecond)

	store.Touch(id)

	// Wait another half TTL (would have expired without touch)
	time.Sleep(60 * time.Millisecond)

	// Should still be there because we touched it
	store.Cleanup()
	if _, found := store.Get(id); !found {
		t.Error("Share should still exist after touch")
	}
}

func TestMemoryStore_CloseTwice(t *testing.T) {
	store := NewMemoryStore(time.Hour)

	if err := store.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Errorf("second Close() error: %v", err)
	}
}

func TestMemoryStore_Concurrency(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	defer store.Close()

	done := make(chan bool)

	for i := 0; i < 100; i++ {
		go func(n int) {
			id := "bb_" + string(rune('0'+n%10))
			text := "text" + string(rune('0'+n%10))

			store.Put(id, text)
			store.Get(id)
			store.LookupByText(text)
			store.Touch(id)
			store.Size()

			done <- true
		}(i)
	}

	for i := 0; i < 100; i++ {
		<-done
	}
}
