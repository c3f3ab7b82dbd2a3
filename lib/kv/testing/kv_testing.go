package testing

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/birch-kv/birch/lib/kv"
)

// RunStoreTests runs a comprehensive test suite for a kv.IStore
// implementation. The factory is invoked with a fresh directory per test;
// tests that exercise durability reopen the same directory through the same
// factory.
func RunStoreTests(t *testing.T, name string, factory kv.StoreFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Set&Get", func(t *testing.T) {
			testSetGet(t, factory)
		})

		t.Run("Overwrite", func(t *testing.T) {
			testOverwrite(t, factory)
		})

		t.Run("Tombstone", func(t *testing.T) {
			testTombstone(t, factory)
		})

		t.Run("MissingKey", func(t *testing.T) {
			testMissingKey(t, factory)
		})

		t.Run("EmptyStrings", func(t *testing.T) {
			testEmptyStrings(t, factory)
		})

		t.Run("UnflushedRead", func(t *testing.T) {
			testUnflushedRead(t, factory)
		})

		t.Run("Durability", func(t *testing.T) {
			testDurability(t, factory)
		})

		t.Run("Compaction", func(t *testing.T) {
			testCompaction(t, factory)
		})

		t.Run("GetInfo", func(t *testing.T) {
			testGetInfo(t, factory)
		})

		t.Run("Scenario", func(t *testing.T) {
			testScenario(t, factory)
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// mustOpen opens a store through the factory and fails the test on error.
func mustOpen(t *testing.T, factory kv.StoreFactory, dir string) kv.IStore {
	t.Helper()
	store, err := factory(dir)
	if err != nil {
		t.Fatalf("failed to open store in %s: %v", dir, err)
	}
	return store
}

// expectValue asserts that Get returns exactly the given value.
func expectValue(t *testing.T, store kv.IStore, key string, want []byte) {
	t.Helper()
	got, loaded, err := store.Get(key)
	if err != nil {
		t.Fatalf("Get(%q) failed: %v", key, err)
	}
	if !loaded {
		t.Fatalf("Get(%q) = not found, want %q", key, want)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("Get(%q) = %q, want %q", key, got, want)
	}
}

// expectMissing asserts that Get reports the key as absent without error.
func expectMissing(t *testing.T, store kv.IStore, key string) {
	t.Helper()
	got, loaded, err := store.Get(key)
	if err != nil {
		t.Fatalf("Get(%q) failed: %v", key, err)
	}
	if loaded {
		t.Fatalf("Get(%q) = %q, want not found", key, got)
	}
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testSetGet(t *testing.T, factory kv.StoreFactory) {
	store := mustOpen(t, factory, t.TempDir())
	defer store.Close()

	if err := store.Set("key1", []byte("42")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := store.Set("key2", []byte("43")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	expectValue(t, store, "key1", []byte("42"))
	expectValue(t, store, "key2", []byte("43"))
}

func testOverwrite(t *testing.T, factory kv.StoreFactory) {
	store := mustOpen(t, factory, t.TempDir())
	defer store.Close()

	if err := store.Set("key", []byte("v1")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := store.Set("key", []byte("v2")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	expectValue(t, store, "key", []byte("v2"))
}

func testTombstone(t *testing.T, factory kv.StoreFactory) {
	store := mustOpen(t, factory, t.TempDir())
	defer store.Close()

	if err := store.Set("key", []byte("value")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := store.Remove("key"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	expectMissing(t, store, "key")

	err := store.Remove("key")
	if err == nil {
		t.Fatal("second Remove succeeded, want KeyNotFound")
	}
	if !kv.IsKind(err, kv.ErrKindKeyNotFound) {
		t.Fatalf("second Remove failed with %v, want kind KeyNotFound", err)
	}
}

func testMissingKey(t *testing.T, factory kv.StoreFactory) {
	store := mustOpen(t, factory, t.TempDir())
	defer store.Close()

	expectMissing(t, store, "never-set")

	err := store.Remove("never-set")
	if !kv.IsKind(err, kv.ErrKindKeyNotFound) {
		t.Fatalf("Remove of never-set key failed with %v, want kind KeyNotFound", err)
	}
}

func testEmptyStrings(t *testing.T, factory kv.StoreFactory) {
	store := mustOpen(t, factory, t.TempDir())
	defer store.Close()

	if err := store.Set("empty-value", nil); err != nil {
		t.Fatalf("Set with empty value failed: %v", err)
	}
	if err := store.Set("", []byte("empty-key")); err != nil {
		t.Fatalf("Set with empty key failed: %v", err)
	}

	got, loaded, err := store.Get("empty-value")
	if err != nil || !loaded {
		t.Fatalf("Get(empty-value) = %v, loaded=%v", err, loaded)
	}
	if len(got) != 0 {
		t.Fatalf("Get(empty-value) = %q, want empty", got)
	}

	expectValue(t, store, "", []byte("empty-key"))
}

func testUnflushedRead(t *testing.T, factory kv.StoreFactory) {
	store := mustOpen(t, factory, t.TempDir())
	defer store.Close()

	// No flush between Set and Get: the value may still sit in the write
	// buffer and must be readable from there.
	if err := store.Set("buffered", []byte("still-in-memory")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	expectValue(t, store, "buffered", []byte("still-in-memory"))
}

func testDurability(t *testing.T, factory kv.StoreFactory) {
	dir := t.TempDir()

	store := mustOpen(t, factory, dir)
	for i := 0; i < 50; i++ {
		key := fmt.Sprintf("key-%d", i)
		if err := store.Set(key, []byte(fmt.Sprintf("value-%d", i))); err != nil {
			t.Fatalf("Set(%q) failed: %v", key, err)
		}
	}
	// Overwrite some, remove others, so the final state differs from the
	// first write of every key.
	for i := 0; i < 50; i += 2 {
		key := fmt.Sprintf("key-%d", i)
		if err := store.Set(key, []byte(fmt.Sprintf("value-%d-updated", i))); err != nil {
			t.Fatalf("Set(%q) failed: %v", key, err)
		}
	}
	for i := 1; i < 50; i += 4 {
		key := fmt.Sprintf("key-%d", i)
		if err := store.Remove(key); err != nil {
			t.Fatalf("Remove(%q) failed: %v", key, err)
		}
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened := mustOpen(t, factory, dir)
	defer reopened.Close()

	for i := 0; i < 50; i++ {
		key := fmt.Sprintf("key-%d", i)
		switch {
		case i%4 == 1:
			expectMissing(t, reopened, key)
		case i%2 == 0:
			expectValue(t, reopened, key, []byte(fmt.Sprintf("value-%d-updated", i)))
		default:
			expectValue(t, reopened, key, []byte(fmt.Sprintf("value-%d", i)))
		}
	}
}

func testCompaction(t *testing.T, factory kv.StoreFactory) {
	dir := t.TempDir()

	store := mustOpen(t, factory, dir)
	// Pile up dead records: every key is overwritten many times and a few
	// are removed.
	for round := 0; round < 10; round++ {
		for i := 0; i < 20; i++ {
			key := fmt.Sprintf("key-%d", i)
			value := []byte(fmt.Sprintf("round-%d-value-%d", round, i))
			if err := store.Set(key, value); err != nil {
				t.Fatalf("Set(%q) failed: %v", key, err)
			}
		}
	}
	for i := 15; i < 20; i++ {
		if err := store.Remove(fmt.Sprintf("key-%d", i)); err != nil {
			t.Fatalf("Remove failed: %v", err)
		}
	}

	before, err := store.GetInfo()
	if err != nil {
		t.Fatalf("GetInfo failed: %v", err)
	}

	if err := store.Compact(); err != nil {
		t.Fatalf("Compact failed: %v", err)
	}

	after, err := store.GetInfo()
	if err != nil {
		t.Fatalf("GetInfo failed: %v", err)
	}
	if after.SizeBytes > before.SizeBytes {
		t.Errorf("compaction grew the store: %d -> %d bytes", before.SizeBytes, after.SizeBytes)
	}
	if after.DeadRecords != 0 {
		t.Errorf("dead record count after compaction = %d, want 0", after.DeadRecords)
	}

	// Live state is unchanged by compaction.
	for i := 0; i < 15; i++ {
		expectValue(t, store, fmt.Sprintf("key-%d", i), []byte(fmt.Sprintf("round-9-value-%d", i)))
	}
	for i := 15; i < 20; i++ {
		expectMissing(t, store, fmt.Sprintf("key-%d", i))
	}

	// And it survives a reopen.
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	reopened := mustOpen(t, factory, dir)
	defer reopened.Close()
	for i := 0; i < 15; i++ {
		expectValue(t, reopened, fmt.Sprintf("key-%d", i), []byte(fmt.Sprintf("round-9-value-%d", i)))
	}
	for i := 15; i < 20; i++ {
		expectMissing(t, reopened, fmt.Sprintf("key-%d", i))
	}
}

func testGetInfo(t *testing.T, factory kv.StoreFactory) {
	store := mustOpen(t, factory, t.TempDir())
	defer store.Close()

	if err := store.Set("a", []byte("1")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := store.Set("b", []byte("2")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	info, err := store.GetInfo()
	if err != nil {
		t.Fatalf("GetInfo failed: %v", err)
	}
	if info.Keys != 2 {
		t.Errorf("info.Keys = %d, want 2", info.Keys)
	}
	if info.SizeBytes <= 0 {
		t.Errorf("info.SizeBytes = %d, want > 0", info.SizeBytes)
	}
	if info.Engine == "" {
		t.Error("info.Engine is empty")
	}
}

// testScenario drives one fixed call sequence end to end.
func testScenario(t *testing.T, factory kv.StoreFactory) {
	store := mustOpen(t, factory, t.TempDir())
	defer store.Close()

	expectMissing(t, store, "a")

	if err := store.Set("a", []byte("1")); err != nil {
		t.Fatalf("Set(a) failed: %v", err)
	}
	if err := store.Set("b", []byte("2")); err != nil {
		t.Fatalf("Set(b) failed: %v", err)
	}

	expectValue(t, store, "a", []byte("1"))

	if err := store.Remove("a"); err != nil {
		t.Fatalf("Remove(a) failed: %v", err)
	}
	expectMissing(t, store, "a")

	if err := store.Remove("a"); !kv.IsKind(err, kv.ErrKindKeyNotFound) {
		t.Fatalf("second Remove(a) failed with %v, want kind KeyNotFound", err)
	}

	expectValue(t, store, "b", []byte("2"))
}
