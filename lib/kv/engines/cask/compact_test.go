package cask

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/birch-kv/birch/lib/codec"
	"github.com/birch-kv/birch/lib/kv"
)

func TestAutoCompactionAtThreshold(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir, &Options{CompactThreshold: 8})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer store.Close()

	// 20 overwrites of one key cross the threshold of 8 dead records at
	// least once.
	for i := 0; i < 20; i++ {
		if err := store.Set("key", []byte(fmt.Sprintf("value-%d", i))); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}

	info, err := store.GetInfo()
	if err != nil {
		t.Fatalf("GetInfo failed: %v", err)
	}
	if info.DeadRecords >= 8 {
		t.Errorf("dead records = %d, compaction never triggered", info.DeadRecords)
	}

	value, loaded, err := store.Get("key")
	if err != nil || !loaded {
		t.Fatalf("Get after compaction = %v, loaded=%v", err, loaded)
	}
	if !bytes.Equal(value, []byte("value-19")) {
		t.Errorf("Get after compaction = %q, want value-19", value)
	}
}

func TestCompactionShrinksLogFile(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir, nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer store.Close()

	for i := 0; i < 100; i++ {
		if err := store.Set("hot-key", []byte(fmt.Sprintf("value-%d", i))); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}
	if err := store.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	logPath := filepath.Join(dir, logFileName)
	before, err := os.Stat(logPath)
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}

	if err := store.Compact(); err != nil {
		t.Fatalf("Compact failed: %v", err)
	}

	after, err := os.Stat(logPath)
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if after.Size() >= before.Size() {
		t.Errorf("log file did not shrink: %d -> %d bytes", before.Size(), after.Size())
	}
	if _, err := os.Stat(filepath.Join(dir, compactFileName)); !os.IsNotExist(err) {
		t.Errorf("compaction temp file left behind (err=%v)", err)
	}
}

// The compacted log must contain exactly the live records, in their original
// relative order.
func TestCompactionKeepsOriginalRecordOrder(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir, nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer store.Close()

	// Writes interleaved so the live records are b, then a, then c.
	for _, op := range []struct{ key, value string }{
		{"a", "a1"}, {"b", "b1"}, {"c", "c1"},
		{"a", "a2"}, {"c", "c2"},
	} {
		if err := store.Set(op.key, []byte(op.value)); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}

	if err := store.Compact(); err != nil {
		t.Fatalf("Compact failed: %v", err)
	}
	if err := store.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	file, err := os.Open(filepath.Join(dir, logFileName))
	if err != nil {
		t.Fatalf("open compacted log failed: %v", err)
	}
	defer file.Close()

	c := codec.NewBinaryCodec()
	r := bufio.NewReader(file)
	var keys []string
	for {
		rec, _, err := c.Decode(r)
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("decoding compacted log failed: %v", err)
		}
		if rec.Type != codec.RecordSet {
			t.Errorf("compacted log contains %s record for %q", rec.Type, rec.Key)
		}
		keys = append(keys, rec.Key)
	}

	want := []string{"b", "a", "c"}
	if len(keys) != len(want) {
		t.Fatalf("compacted log holds %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("compacted log holds %v, want %v", keys, want)
		}
	}
}

// A compaction that cannot even create its temp file must leave the store
// fully functional on the old log.
func TestCompactionFailureLeavesStoreIntact(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir, &Options{CompactThreshold: 4})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer store.Close()

	for i := 0; i < 3; i++ {
		key := fmt.Sprintf("key-%d", i)
		if err := store.Set(key, []byte(key+"-value")); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}

	// Block the temp filename with a non-empty directory: neither removable
	// nor creatable as a file.
	tmpPath := filepath.Join(dir, compactFileName)
	if err := os.Mkdir(tmpPath, 0755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(tmpPath, "blocker"), []byte("x"), 0644); err != nil {
		t.Fatalf("write blocker failed: %v", err)
	}

	if err := store.Compact(); !kv.IsKind(err, kv.ErrKindIO) {
		t.Fatalf("Compact with blocked temp file failed with %v, want kind IO", err)
	}

	// Writes that auto-trigger the (still failing) compaction must succeed.
	for i := 0; i < 10; i++ {
		if err := store.Set("key-0", []byte(fmt.Sprintf("updated-%d", i))); err != nil {
			t.Fatalf("Set after failed compaction: %v", err)
		}
	}

	for i := 1; i < 3; i++ {
		key := fmt.Sprintf("key-%d", i)
		value, loaded, err := store.Get(key)
		if err != nil || !loaded {
			t.Fatalf("Get(%q) after failed compaction = %v, loaded=%v", key, err, loaded)
		}
		if !bytes.Equal(value, []byte(key+"-value")) {
			t.Errorf("Get(%q) = %q, want %q", key, value, key+"-value")
		}
	}
	value, loaded, err := store.Get("key-0")
	if err != nil || !loaded || !bytes.Equal(value, []byte("updated-9")) {
		t.Errorf("Get(key-0) = %q, %v, %v; want updated-9", value, loaded, err)
	}

	// Unblock and retry: the store recovers on its own.
	if err := os.RemoveAll(tmpPath); err != nil {
		t.Fatalf("removing blocker failed: %v", err)
	}
	if err := store.Compact(); err != nil {
		t.Fatalf("Compact after unblocking failed: %v", err)
	}
	value, loaded, err = store.Get("key-0")
	if err != nil || !loaded || !bytes.Equal(value, []byte("updated-9")) {
		t.Errorf("Get(key-0) after recovery = %q, %v, %v; want updated-9", value, loaded, err)
	}
}

// A stale temp file from a crashed compaction attempt is removed, not
// appended to.
func TestCompactionRemovesStaleTempFile(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir, nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer store.Close()

	if err := store.Set("key", []byte("value")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	tmpPath := filepath.Join(dir, compactFileName)
	if err := os.WriteFile(tmpPath, []byte("garbage from a crashed attempt"), 0644); err != nil {
		t.Fatalf("writing stale temp file failed: %v", err)
	}

	if err := store.Compact(); err != nil {
		t.Fatalf("Compact failed: %v", err)
	}

	value, loaded, err := store.Get("key")
	if err != nil || !loaded || !bytes.Equal(value, []byte("value")) {
		t.Errorf("Get after compaction = %q, %v, %v; want value", value, loaded, err)
	}
}
