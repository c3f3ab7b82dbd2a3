// Package cask implements a persistent, log-structured key-value engine
// behind the kv.IStore interface. Every write is appended to a single
// on-disk command log; an in-memory index maps each live key to the byte
// offset of its most recent Set record. The log is the source of truth, the
// index is a cache derived from it.
//
// Key Features:
//   - Durable, crash-tolerant storage in a single log file per directory
//   - In-memory offset index rebuilt by one linear log replay at open
//   - Reads that transparently span the flushed file and the unflushed
//     write buffer, so an acknowledged write is immediately readable
//   - Automatic compaction that reclaims space from superseded records
//     without ever leaving the store in an inconsistent state
//   - Pluggable record codec (see the codec package)
//
// Implementation Details:
//
//   - Two-Region Append Log: the log is modeled as one logical byte stream
//     made of a flushed region (bytes physically in the file) and a buffered
//     region (the writer's in-memory tail). An offset below the flushed
//     length is read from the file, anything above from the tail. Flushing
//     moves bytes between regions at the same absolute position, so offsets
//     handed out by appends stay valid across flushes. Only replacing the
//     file (compaction) invalidates offsets, and that replacement swaps the
//     index in the same step.
//
//   - Index Rebuild: opening a store replays the log front to back, applying
//     each record to an empty index. A Set inserts or overwrites the key's
//     offset, a Remove deletes the key. Overwrites and deletes of present
//     keys also count dead records, so the redundancy counter is restored to
//     the same value the live operations would have produced.
//
//   - Compaction: once the number of dead records crosses a threshold, the
//     live records are rewritten, in original relative order, into a
//     temporary file that is then atomically renamed over the log. Every
//     failure before the rename aborts the attempt with the old log, index
//     and counters untouched; after the rename only in-memory bookkeeping
//     remains. An automatically triggered compaction reports failure as a
//     logged warning rather than an error, because it is not part of the
//     triggering write's contract.
//
// Thread Safety:
//
//	The engine does no internal locking. A store instance assumes a single
//	logical caller and exclusive ownership of its directory for the process
//	lifetime; opening the same directory from two instances concurrently is
//	unsupported. Callers that share an instance across goroutines must
//	serialize access themselves.
//
// Usage Example:
//
//	store, err := cask.Open("data/", nil)
//	if err != nil { ... }
//	defer store.Close()
//
//	err = store.Set("session:123", sessionData)
//	value, loaded, err := store.Get("session:123")
//	err = store.Remove("session:123")
package cask
