package cask

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/birch-kv/birch/lib/codec"
	"github.com/birch-kv/birch/lib/kv"
)

// maybeCompact triggers a compaction once enough dead records have
// accumulated. Compaction is maintenance, not part of the write contract: a
// failure here is logged and the store keeps serving from the old log, which
// is still fully valid, just less space-efficient.
func (e *engineImpl) maybeCompact() {
	if e.redundant < e.threshold {
		return
	}
	if err := e.compact(); err != nil {
		compactionFailures.Inc()
		caskLogger.Warningf("compaction of store at %s failed, continuing on the old log: %v", e.dir, err)
	}
}

// Compact rewrites the log so it contains only live records (docu see
// kv/interface.go).
func (e *engineImpl) Compact() error {
	return e.compact()
}

// compact rewrites the log into a temporary file containing only the live
// records, in their original relative order, then atomically installs it
// over the old log. Up to the rename the operation is transactional: any
// failure leaves the original log, index and counters untouched. The rename
// itself is the point of no return; everything after it is purely in-memory
// bookkeeping and cannot fail.
func (e *engineImpl) compact() error {
	tmpPath := filepath.Join(e.dir, compactFileName)

	// A stale temp file from an earlier failed attempt must not contribute
	// leading bytes to the new log.
	if err := os.Remove(tmpPath); err != nil && !os.IsNotExist(err) {
		return kv.WrapError(kv.ErrKindIO, fmt.Sprintf("removing stale compaction file %s", tmpPath), err)
	}

	newLog, err := openAppendLog(tmpPath, e.log.flushAt, e.log.codec)
	if err != nil {
		return err
	}

	// Snapshot the live entries sorted by offset ascending. Lookups would
	// work in any order; the original relative order is preserved for
	// determinism and easier debugging of a compacted file.
	type liveEntry struct {
		key string
		off int64
	}
	entries := make([]liveEntry, 0, len(e.index))
	for key, off := range e.index {
		entries = append(entries, liveEntry{key: key, off: off})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].off < entries[j].off })

	newIndex := make(map[string]int64, len(entries))
	for _, ent := range entries {
		rec, err := e.log.readRecordAt(ent.off)
		if err != nil {
			newLog.discard()
			return err
		}
		if rec.Type != codec.RecordSet || rec.Key != ent.key {
			newLog.discard()
			return kv.NewError(kv.ErrKindCorruption,
				fmt.Sprintf("index for key %q points at %s record for key %q at offset %d", ent.key, rec.Type, rec.Key, ent.off))
		}

		newOff, err := newLog.appendRecord(rec)
		if err != nil {
			newLog.discard()
			return err
		}
		newIndex[ent.key] = newOff
	}

	if err := newLog.sync(); err != nil {
		newLog.discard()
		return err
	}

	// Probe the finished file with a fresh read handle so an open failure
	// surfaces before the commit instead of after it.
	probe, err := os.Open(tmpPath)
	if err != nil {
		newLog.discard()
		return kv.WrapError(kv.ErrKindIO, fmt.Sprintf("verifying compacted log %s", tmpPath), err)
	}
	_ = probe.Close()

	// Point of no return: atomically replace the old log file.
	if err := os.Rename(tmpPath, e.log.path); err != nil {
		newLog.discard()
		return kv.WrapError(kv.ErrKindIO, fmt.Sprintf("installing compacted log over %s", e.log.path), err)
	}

	// From here on only in-memory bookkeeping. The open handles of the new
	// log follow the renamed file; the old log's handles point at the
	// unlinked inode and are released without flushing.
	oldSize := e.log.size()
	newLog.path = e.log.path
	e.log.closeQuietly()
	e.log = newLog
	e.index = newIndex
	e.redundant = 0

	compactionsTotal.Inc()
	if reclaimed := oldSize - newLog.size(); reclaimed > 0 {
		reclaimedBytes.Add(int(reclaimed))
	}
	return nil
}
