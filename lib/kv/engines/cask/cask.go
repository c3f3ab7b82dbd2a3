package cask

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/VictoriaMetrics/metrics"
	"github.com/birch-kv/birch/lib/codec"
	"github.com/birch-kv/birch/lib/kv"
	"github.com/birch-kv/birch/lib/logger"
)

// EngineName is the name this engine registers itself under.
const EngineName = "cask"

// Defaults for tunable engine behavior.
const (
	defaultCompactThreshold = 1024      // dead records before auto compaction
	defaultFlushBuffer      = 64 * 1024 // buffered bytes before an automatic flush
)

var caskLogger = logger.GetLogger("engines/cask")

// Operation and compaction counters, exported in Prometheus text format via
// metrics.WritePrometheus.
var (
	setsTotal    = metrics.GetOrCreateCounter(`birch_engine_ops_total{engine="cask",op="set"}`)
	getsTotal    = metrics.GetOrCreateCounter(`birch_engine_ops_total{engine="cask",op="get"}`)
	removesTotal = metrics.GetOrCreateCounter(`birch_engine_ops_total{engine="cask",op="remove"}`)

	compactionsTotal   = metrics.GetOrCreateCounter(`birch_engine_compactions_total{engine="cask"}`)
	compactionFailures = metrics.GetOrCreateCounter(`birch_engine_compaction_failures_total{engine="cask"}`)
	reclaimedBytes     = metrics.GetOrCreateCounter(`birch_engine_compaction_reclaimed_bytes_total{engine="cask"}`)
)

func init() {
	kv.RegisterEngine(EngineName, func(dir string) (kv.IStore, error) {
		return Open(dir, nil)
	})
}

// --------------------------------------------------------------------------
// Options
// --------------------------------------------------------------------------

// Options configures the engine during Open.
type Options struct {
	Codec            codec.ICodec // record codec (nil = binary)
	CompactThreshold uint64       // dead records before auto compaction (0 = 1024)
	FlushBuffer      int          // buffered bytes before an automatic flush (0 = 64KB)
}

// DefaultOptions returns the default engine options.
func DefaultOptions() *Options {
	return &Options{
		Codec:            codec.NewBinaryCodec(),
		CompactThreshold: defaultCompactThreshold,
		FlushBuffer:      defaultFlushBuffer,
	}
}

// --------------------------------------------------------------------------
// Engine
// --------------------------------------------------------------------------

// engineImpl is a log-structured key-value engine. All state is owned by a
// single instance: the append log, the in-memory offset index and the
// redundancy counter. The log is the source of truth; the index is a cache
// rebuilt from it at open time.
type engineImpl struct {
	dir       string
	log       *appendLog
	index     map[string]int64 // key -> offset of its most recent live Set record
	redundant uint64           // dead records accumulated since the last compaction
	threshold uint64
}

// Open opens (or creates) a store rooted at dir and rebuilds the in-memory
// index by replaying the log once.
func Open(dir string, opts *Options) (kv.IStore, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	c := opts.Codec
	if c == nil {
		c = codec.NewBinaryCodec()
	}
	threshold := opts.CompactThreshold
	if threshold == 0 {
		threshold = defaultCompactThreshold
	}
	flushBuffer := opts.FlushBuffer
	if flushBuffer <= 0 {
		flushBuffer = defaultFlushBuffer
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, kv.WrapError(kv.ErrKindIO, fmt.Sprintf("creating store directory %s", dir), err)
	}

	log, err := openAppendLog(filepath.Join(dir, logFileName), flushBuffer, c)
	if err != nil {
		return nil, err
	}

	e := &engineImpl{
		dir:       dir,
		log:       log,
		index:     make(map[string]int64),
		threshold: threshold,
	}

	if err := e.rebuildIndex(); err != nil {
		log.closeQuietly()
		return nil, err
	}

	return e, nil
}

// rebuildIndex replays the flushed log once, in order, reconstructing
// exactly the index state the live operations would have produced. Unlike a
// live Remove, a replayed tombstone for an absent key is a no-op: the
// record's existence already proves it was valid when appended.
func (e *engineImpl) rebuildIndex() error {
	r := bufio.NewReader(io.NewSectionReader(e.log.reader, 0, e.log.flushed))

	var pos int64
	for {
		rec, n, err := e.log.codec.Decode(r)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			if errors.Is(err, codec.ErrMalformed) {
				return kv.WrapError(kv.ErrKindSerialization, fmt.Sprintf("replaying log at offset %d", pos), err)
			}
			return kv.WrapError(kv.ErrKindIO, fmt.Sprintf("replaying log at offset %d", pos), err)
		}

		switch rec.Type {
		case codec.RecordSet:
			if _, ok := e.index[rec.Key]; ok {
				e.redundant++
			}
			e.index[rec.Key] = pos
		case codec.RecordRemove:
			if _, ok := e.index[rec.Key]; ok {
				delete(e.index, rec.Key)
				e.redundant++
			}
		}
		pos += int64(n)
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see kv/interface.go)
// --------------------------------------------------------------------------

func (e *engineImpl) Set(key string, value []byte) error {
	off, err := e.log.appendRecord(codec.NewSetRecord(key, value))
	if err != nil {
		return err
	}

	if _, ok := e.index[key]; ok {
		e.redundant++
	}
	e.index[key] = off
	setsTotal.Inc()

	e.maybeCompact()
	return nil
}

func (e *engineImpl) Get(key string) ([]byte, bool, error) {
	getsTotal.Inc()

	off, ok := e.index[key]
	if !ok {
		return nil, false, nil
	}

	rec, err := e.log.readRecordAt(off)
	if err != nil {
		return nil, false, err
	}
	// The index promised a live Set record for exactly this key. Anything
	// else means index and log have diverged.
	if rec.Type != codec.RecordSet || rec.Key != key {
		return nil, false, kv.NewError(kv.ErrKindCorruption,
			fmt.Sprintf("index for key %q points at %s record for key %q at offset %d", key, rec.Type, rec.Key, off))
	}
	return rec.Value, true, nil
}

func (e *engineImpl) Remove(key string) error {
	if _, ok := e.index[key]; !ok {
		return kv.NewError(kv.ErrKindKeyNotFound, fmt.Sprintf("key %q not found", key))
	}

	if _, err := e.log.appendRecord(codec.NewRemoveRecord(key)); err != nil {
		return err
	}

	delete(e.index, key)
	e.redundant++
	removesTotal.Inc()

	e.maybeCompact()
	return nil
}

func (e *engineImpl) Flush() error {
	return e.log.sync()
}

func (e *engineImpl) GetInfo() (kv.StoreInfo, error) {
	return kv.StoreInfo{
		Engine:      EngineName,
		Path:        e.dir,
		Keys:        len(e.index),
		SizeBytes:   e.log.size(),
		DeadRecords: e.redundant,
	}, nil
}

// Close flushes the log and releases all file handles. A flush failure at
// teardown time is logged; the remaining handles are still closed and the
// error is returned for callers that care.
func (e *engineImpl) Close() error {
	err := e.log.close()
	if err != nil {
		caskLogger.Warningf("teardown of store at %s: %v", e.dir, err)
	}
	return err
}
