package cask

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/birch-kv/birch/lib/codec"
	"github.com/birch-kv/birch/lib/kv"
)

// Constants for the on-disk layout of a store directory. The engine owns a
// single live log file plus one fixed temporary filename used during
// compaction; keeping them as named constants contains a future move to
// multiple segments.
const (
	logFileName     = "0.bin"
	compactFileName = "compact.tmp"
)

// appendLog is the durable, monotonically growing byte stream the engine
// writes records to. Logically it is one contiguous sequence of bytes split
// into two regions:
//
//	flushed  region: bytes [0, flushed) physically present in the file
//	buffered region: bytes [flushed, flushed+len(buf)) held only in memory
//
// An absolute offset is resolved against the flushed region first and the
// buffered tail second, so offsets handed out by appendRecord stay readable
// whether or not the bytes behind them have reached the file yet. A flush
// moves bytes between regions at the same absolute position and therefore
// never invalidates an offset.
//
// The tail is kept as a plain byte slice rather than a bufio.Writer because
// reads must be able to see the unflushed bytes; bufio does not expose its
// buffer.
type appendLog struct {
	path    string
	file    *os.File // write handle, receives flushes
	reader  *os.File // independent read handle, never moved by writes
	flushed int64    // bytes physically in the file
	buf     []byte   // unflushed tail following the flushed region
	flushAt int      // buffered bytes that trigger an automatic flush
	codec   codec.ICodec
}

// openAppendLog opens or creates the log file at path and positions the log
// for appending. The flushed length is taken from the current file size.
func openAppendLog(path string, flushAt int, c codec.ICodec) (*appendLog, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, kv.WrapError(kv.ErrKindIO, fmt.Sprintf("opening log file %s", path), err)
	}

	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, kv.WrapError(kv.ErrKindIO, fmt.Sprintf("stating log file %s", path), err)
	}

	reader, err := os.Open(path)
	if err != nil {
		_ = file.Close()
		return nil, kv.WrapError(kv.ErrKindIO, fmt.Sprintf("opening log reader %s", path), err)
	}

	return &appendLog{
		path:    path,
		file:    file,
		reader:  reader,
		flushed: info.Size(),
		buf:     make([]byte, 0, flushAt),
		flushAt: flushAt,
		codec:   c,
	}, nil
}

// size returns the logical length of the stream: flushed region plus
// unflushed tail. This is also the offset of the next appended record.
func (l *appendLog) size() int64 {
	return l.flushed + int64(len(l.buf))
}

// appendRecord encodes rec and appends it to the stream, returning the
// absolute offset at which the record begins. The bytes land in the buffered
// tail; once the tail crosses the flush threshold it is written through to
// the file. A flush failure is returned to the caller, but the record stays
// in the tail and its offset remains valid.
func (l *appendLog) appendRecord(rec codec.Record) (int64, error) {
	data, err := l.codec.Encode(rec)
	if err != nil {
		return 0, kv.WrapError(kv.ErrKindSerialization, fmt.Sprintf("encoding %s record for key %q", rec.Type, rec.Key), err)
	}

	off := l.size()
	l.buf = append(l.buf, data...)
	if len(l.buf) >= l.flushAt {
		if err := l.flush(); err != nil {
			return off, err
		}
	}
	return off, nil
}

// flush writes the buffered tail through to the file. On a short write the
// consumed prefix is dropped from the tail and the flushed length grows by
// exactly the bytes written, so offset resolution stays correct either way.
func (l *appendLog) flush() error {
	if len(l.buf) == 0 {
		return nil
	}
	n, err := l.file.Write(l.buf)
	l.flushed += int64(n)
	l.buf = append(l.buf[:0], l.buf[n:]...)
	if err != nil {
		return kv.WrapError(kv.ErrKindIO, fmt.Sprintf("flushing log buffer to %s", l.path), err)
	}
	return nil
}

// sync flushes the tail and forces the file contents to stable storage.
func (l *appendLog) sync() error {
	if err := l.flush(); err != nil {
		return err
	}
	if err := l.file.Sync(); err != nil {
		return kv.WrapError(kv.ErrKindIO, fmt.Sprintf("syncing log file %s", l.path), err)
	}
	return nil
}

// readerAt returns a reader over the logical stream starting at the given
// absolute offset. The two regions are re-resolved on every call; nothing is
// cached across calls.
func (l *appendLog) readerAt(off int64) (io.Reader, error) {
	switch {
	case off < 0 || off >= l.size():
		return nil, kv.NewError(kv.ErrKindIO, fmt.Sprintf("offset %d out of range [0, %d)", off, l.size()))
	case off < l.flushed:
		return io.MultiReader(
			io.NewSectionReader(l.reader, off, l.flushed-off),
			bytes.NewReader(l.buf),
		), nil
	default:
		return bytes.NewReader(l.buf[off-l.flushed:]), nil
	}
}

// readRecordAt decodes one record starting at the given absolute offset.
func (l *appendLog) readRecordAt(off int64) (codec.Record, error) {
	r, err := l.readerAt(off)
	if err != nil {
		return codec.Record{}, err
	}

	rec, _, err := l.codec.Decode(r)
	if err != nil {
		if errors.Is(err, codec.ErrMalformed) || errors.Is(err, io.EOF) {
			return codec.Record{}, kv.WrapError(kv.ErrKindSerialization, fmt.Sprintf("decoding record at offset %d", off), err)
		}
		return codec.Record{}, kv.WrapError(kv.ErrKindIO, fmt.Sprintf("reading record at offset %d", off), err)
	}
	return rec, nil
}

// close flushes, syncs and releases both file handles. All steps run even if
// an earlier one fails; the first error is returned.
func (l *appendLog) close() error {
	firstErr := l.sync()
	if err := l.file.Close(); err != nil && firstErr == nil {
		firstErr = kv.WrapError(kv.ErrKindIO, fmt.Sprintf("closing log file %s", l.path), err)
	}
	if err := l.reader.Close(); err != nil && firstErr == nil {
		firstErr = kv.WrapError(kv.ErrKindIO, fmt.Sprintf("closing log reader %s", l.path), err)
	}
	return firstErr
}

// closeQuietly releases both handles without flushing. Used for a log whose
// backing file has already been replaced or is about to be deleted.
func (l *appendLog) closeQuietly() {
	_ = l.file.Close()
	_ = l.reader.Close()
}

// discard closes a partially written log and removes its backing file.
func (l *appendLog) discard() {
	l.closeQuietly()
	_ = os.Remove(l.path)
}
