package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// --------------------------------------------------------------------------
// Record Definition
// --------------------------------------------------------------------------

// RecordType identifies the variant of a log record.
type RecordType byte

const (
	// RecordSet is a record that assigns a value to a key.
	RecordSet RecordType = iota + 1
	// RecordRemove is a tombstone record that marks a key as deleted.
	RecordRemove
)

func (t RecordType) String() string {
	switch t {
	case RecordSet:
		return "Set"
	case RecordRemove:
		return "Remove"
	default:
		return "Unknown"
	}
}

// Record is a single entry of the append-only command log. It is a tagged
// union: a RecordSet carries both Key and Value, a RecordRemove carries only
// Key (Value must be nil).
type Record struct {
	Type  RecordType `json:"type"`
	Key   string     `json:"key"`
	Value []byte     `json:"value,omitempty"`
}

// NewSetRecord creates a Set record for the given key-value pair.
func NewSetRecord(key string, value []byte) Record {
	return Record{Type: RecordSet, Key: key, Value: value}
}

// NewRemoveRecord creates a tombstone record for the given key.
func NewRemoveRecord(key string) Record {
	return Record{Type: RecordRemove, Key: key}
}

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// ErrMalformed is wrapped by all decode errors that are caused by the byte
// stream itself (truncation, unknown record type, oversized length field)
// rather than by a failing reader. Callers use errors.Is to separate
// serialization failures from I/O failures.
var ErrMalformed = errors.New("malformed record")

// ICodec is the interface for all log record codecs.
//
// Every implementation must produce a self-delimiting encoding: a decoder
// must be able to tell where one record ends and the next begins with no
// external length metadata. The encoding must be lossless for arbitrary
// key/value strings, including empty ones.
type ICodec interface {
	// Encode serializes a Record into a byte array.
	Encode(rec Record) ([]byte, error)
	// Decode reads exactly one record from r and returns it together with
	// the number of bytes consumed. If r is exhausted at a record boundary,
	// Decode returns io.EOF. A truncated or corrupt record yields an error
	// wrapping ErrMalformed; errors of the underlying reader are returned
	// unchanged. Decode never panics and never reads past the record.
	Decode(r io.Reader) (Record, int, error)
}

// --------------------------------------------------------------------------
// Shared Helpers
// --------------------------------------------------------------------------

// maxFieldLen bounds decoded length fields so a corrupt stream cannot force
// an arbitrarily large allocation.
const maxFieldLen = 1 << 30

// countingReader wraps an io.Reader and tracks how many bytes have been
// consumed. It also translates an end-of-stream in the middle of a record
// into an ErrMalformed-wrapped error, so only the very first byte of a
// record may report io.EOF.
type countingReader struct {
	r   io.Reader
	n   int
	one [1]byte
}

// readByte reads a single byte. If atStart is true, a clean end of stream is
// reported as io.EOF, otherwise as a malformed record.
func (c *countingReader) readByte(atStart bool) (byte, error) {
	if _, err := io.ReadFull(c.r, c.one[:]); err != nil {
		if err == io.EOF {
			if atStart {
				return 0, io.EOF
			}
			return 0, errTruncated()
		}
		return 0, err
	}
	c.n++
	return c.one[0], nil
}

// readFull reads exactly len(p) bytes.
func (c *countingReader) readFull(p []byte) error {
	n, err := io.ReadFull(c.r, p)
	c.n += n
	if err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return errTruncated()
		}
		return err
	}
	return nil
}

// readUvarint decodes an unsigned varint byte by byte.
func (c *countingReader) readUvarint(atStart bool) (uint64, error) {
	var x uint64
	var s uint
	for i := 0; ; i++ {
		b, err := c.readByte(atStart && i == 0)
		if err != nil {
			return 0, err
		}
		if i == 10 {
			return 0, errMalformedf("varint overflows uint64")
		}
		if b < 0x80 {
			return x | uint64(b)<<s, nil
		}
		x |= uint64(b&0x7f) << s
		s += 7
	}
}

// checkFieldLen validates a decoded length field.
func checkFieldLen(n uint64) error {
	if n > maxFieldLen {
		return errMalformedf("field length %d exceeds limit", n)
	}
	return nil
}

// frame prefixes a serialized payload with its length as an unsigned varint.
// Codecs whose wire format is not self-delimiting on its own (gob, json) use
// this to satisfy the ICodec contract.
func frame(payload []byte) []byte {
	buf := binary.AppendUvarint(make([]byte, 0, len(payload)+binary.MaxVarintLen64), uint64(len(payload)))
	return append(buf, payload...)
}

// unframe reads one length-prefixed payload from cr.
func unframe(cr *countingReader) ([]byte, error) {
	n, err := cr.readUvarint(true)
	if err != nil {
		return nil, err
	}
	if err := checkFieldLen(n); err != nil {
		return nil, err
	}
	payload := make([]byte, n)
	if err := cr.readFull(payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func errTruncated() error {
	return errMalformedf("unexpected end of record")
}

func errMalformedf(format string, args ...interface{}) error {
	return fmt.Errorf(format+": %w", append(args, ErrMalformed)...)
}
