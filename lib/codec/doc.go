// Package codec defines the on-disk record format of the append-only command
// log and provides multiple interchangeable implementations for encoding and
// decoding log records.
//
// The package focuses on:
//   - Providing a consistent interface for different serialization formats
//   - Guaranteeing self-delimiting encodings that can be replayed from a
//     flat byte stream with no external framing metadata
//   - Lossless round-trips for arbitrary keys and values, including empty
//     strings
//   - Strict decoding that fails cleanly on truncated or corrupt input
//     instead of panicking or reading out of bounds
//
// Key Components:
//
//   - Record: the tagged union written to the log. A Set record assigns a
//     value to a key, a Remove record is a tombstone marking the key as
//     deleted.
//
//   - ICodec: core interface all codec implementations must satisfy. Decode
//     reads exactly one record from a reader and reports the number of bytes
//     consumed, which the storage engine uses to advance log offsets during
//     replay. A clean end of stream is reported as io.EOF; anything else
//     that cuts a record short wraps ErrMalformed.
//
//   - binaryCodecImpl: custom binary format (type byte plus varint
//     length-prefixed fields). Smallest output and fastest, recommended for
//     production use.
//
//   - gobCodecImpl: Go gob encoding with a varint length frame. Compatible
//     with Go's type system but noticeably larger on disk.
//
//   - jsonCodecImpl: JSON encoding with a varint length frame. Useful for
//     debugging a log file by hand, at the cost of size and speed.
//
// A log file must always be read with the codec that wrote it; switching the
// codec of an existing store directory is not supported.
//
// Thread Safety:
//
//	All codec implementations are stateless and safe for concurrent use
//	across multiple goroutines without additional synchronization.
//
// Usage:
//
//	Codecs are typically created once and reused throughout the application:
//
//	  c := codec.NewBinaryCodec()
//	  data, err := c.Encode(codec.NewSetRecord("key", []byte("value")))
//	  // ... append data to the log ...
//	  rec, n, err := c.Decode(reader)
package codec
