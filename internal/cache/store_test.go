package cache

import (
	"bytes"
	"fmt"
	"testing"
	"time"
)

func TestLRUStorePutGet(t *testing.T) {
	store := NewLRUStore(10, time.Minute)

	if _, ok := store.Get("missing"); ok {
		t.Error("Get on empty store returned a value")
	}
	if store.Has("missing") {
		t.Error("Has on empty store returned true")
	}

	store.Put("k", []byte("value"))
	got, ok := store.Get("k")
	if !ok {
		t.Fatal("Get after Put missed")
	}
	if !bytes.Equal(got, []byte("value")) {
		t.Errorf("Get = %q, want %q", got, "value")
	}
	if !store.Has("k") {
		t.Error("Has after Put returned false")
	}
	if store.Len() != 1 {
		t.Errorf("Len = %d, want 1", store.Len())
	}
}

func TestLRUStoreOverwrite(t *testing.T) {
	store := NewLRUStore(10, time.Minute)
	store.Put("k", []byte("old"))
	store.Put("k", []byte("new"))

	got, ok := store.Get("k")
	if !ok || !bytes.Equal(got, []byte("new")) {
		t.Errorf("Get = %q, %v, want %q", got, ok, "new")
	}
	if store.Len() != 1 {
		t.Errorf("Len = %d, want 1", store.Len())
	}
}

func TestLRUStoreDelete(t *testing.T) {
	store := NewLRUStore(10, time.Minute)
	store.Put("k", []byte("value"))
	store.Delete("k")

	if _, ok := store.Get("k"); ok {
		t.Error("Get after Delete returned a value")
	}
	if store.Len() != 0 {
		t.Errorf("Len = %d, want 0", store.Len())
	}

	// deleting a missing key is a no-op
	store.Delete("k")
}

func TestLRUStoreTTLExpiry(t *testing.T) {
	store := NewLRUStore(10, 10*time.Millisecond)
	store.Put("k", []byte("value"))

	time.Sleep(25 * time.Millisecond)

	if _, ok := store.Get("k"); ok {
		t.Error("Get returned an expired entry")
	}
	if store.Len() != 0 {
		t.Errorf("Len = %d after lazy expiry, want 0", store.Len())
	}
}

func TestLRUStoreEvictsOldest(t *testing.T) {
	store := NewLRUStore(3, time.Minute)
	for i := 0; i < 3; i++ {
		store.Put(fmt.Sprintf("k%d", i), []byte{byte(i)})
	}

	// touch k0 so k1 becomes the least recently used
	if _, ok := store.Get("k0"); !ok {
		t.Fatal("Get(k0) missed")
	}

	store.Put("k3", []byte{3})

	if store.Len() != 3 {
		t.Fatalf("Len = %d, want 3", store.Len())
	}
	if _, ok := store.Get("k1"); ok {
		t.Error("least recently used entry survived eviction")
	}
	for _, key := range []string{"k0", "k2", "k3"} {
		if _, ok := store.Get(key); !ok {
			t.Errorf("entry %q was evicted unexpectedly", key)
		}
	}
}

func TestLRUStoreCleanExpired(t *testing.T) {
	store := NewLRUStore(10, 10*time.Millisecond)
	store.Put("a", []byte("1"))
	store.Put("b", []byte("2"))

	time.Sleep(25 * time.Millisecond)
	store.Put("c", []byte("3"))

	if removed := store.CleanExpired(); removed != 2 {
		t.Errorf("CleanExpired = %d, want 2", removed)
	}
	if store.Len() != 1 {
		t.Errorf("Len = %d, want 1", store.Len())
	}
	if _, ok := store.Get("c"); !ok {
		t.Error("fresh entry removed by CleanExpired")
	}
}

func TestLRUStoreJanitor(t *testing.T) {
	store := NewLRUStore(10, 10*time.Millisecond)
	store.StartJanitor(5 * time.Millisecond)
	defer store.StopJanitor()

	store.Put("k", []byte("value"))
	time.Sleep(50 * time.Millisecond)

	if store.Len() != 0 {
		t.Errorf("Len = %d after janitor run, want 0", store.Len())
	}
}

func TestLRUStoreConcurrentAccess(t *testing.T) {
	store := NewLRUStore(100, time.Minute)
	done := make(chan struct{})

	for i := 0; i < 8; i++ {
		go func(n int) {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("k%d-%d", n, j%10)
				store.Put(key, []byte{byte(j)})
				store.Get(key)
				if j%7 == 0 {
					store.Delete(key)
				}
			}
		}(i)
	}
	for i := 0; i < 8; i++ {
		<-done
	}
}
