// Package testing provides a shared, interface-driven test suite for
// kv.IStore implementations. An engine package runs the suite against its
// own factory, so every engine is held to the same behavioral contract:
// overwrite and tombstone semantics, missing-key handling, reads of
// not-yet-flushed writes, durability across reopen, and compaction that
// preserves the live state while reclaiming space.
//
// Usage:
//
//	func Test(t *testing.T) {
//		kvtesting.RunStoreTests(t, "cask", func(dir string) (kv.IStore, error) {
//			return cask.Open(dir, nil)
//		})
//	}
package testing
