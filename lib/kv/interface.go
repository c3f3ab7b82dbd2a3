package kv

import (
	"errors"
	"fmt"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// IStore is the generic interface for interacting with a persistent
// key-value store. All write operations return only an error (nil on
// success), while read operations return the requested data along with an
// error (nil on success).
//
// A store instance assumes exclusive ownership of its storage directory for
// the lifetime of the process. Opening the same directory from two instances
// concurrently is unsupported.
type IStore interface {
	// Set inserts or updates a key-value pair.
	Set(key string, value []byte) (err error)
	// Get returns the value for a key. The boolean return value indicates
	// whether a value for the key was found; a missing key is not an error.
	Get(key string) (value []byte, loaded bool, err error)
	// Remove deletes a key-value pair. Removing a key that does not exist
	// fails with ErrKindKeyNotFound.
	Remove(key string) (err error)
	// Flush forces all buffered writes to durable storage.
	Flush() (err error)
	// Compact rewrites the underlying storage so it contains only live
	// records, reclaiming space from superseded and removed entries.
	Compact() (err error)
	// GetInfo returns metadata about the store.
	// It is not guaranteed that all fields are filled in.
	GetInfo() (info StoreInfo, err error)
	// Close flushes and releases all resources held by the store.
	Close() (err error)
}

// StoreFactory is a function type that opens a store rooted at the given
// directory. This is used to abstract engine construction from the callers,
// e.g. the CLI and the shared test suite.
type StoreFactory func(dir string) (IStore, error)

// StoreInfo holds metadata about a store instance.
type StoreInfo struct {
	Engine      string `json:"engine"`
	Path        string `json:"path"`
	Keys        int    `json:"keys"`
	SizeBytes   int64  `json:"size_bytes"`
	DeadRecords uint64 `json:"dead_records"`
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// ErrKind classifies store errors into the four failure classes callers can
// act on.
type ErrKind uint64

const (
	// ErrKindIO covers filesystem and file-handle failures.
	ErrKindIO ErrKind = iota + 1
	// ErrKindSerialization covers encode/decode failures of a log record.
	ErrKindSerialization
	// ErrKindKeyNotFound is returned by Remove for an absent key. This is an
	// expected, user-facing condition and never leaves a partial write.
	ErrKindKeyNotFound
	// ErrKindCorruption indicates that the in-memory index and the on-disk
	// log disagree about a key's live state. It points at a logic bug or a
	// damaged file, not a normal user error.
	ErrKindCorruption
)

func (k ErrKind) String() string {
	switch k {
	case ErrKindIO:
		return "IO"
	case ErrKindSerialization:
		return "Serialization"
	case ErrKindKeyNotFound:
		return "KeyNotFound"
	case ErrKindCorruption:
		return "Corruption"
	default:
		return "Unknown"
	}
}

// Error is a custom error type that wraps an error kind, a message and an
// optional underlying cause.
type Error struct {
	Kind  ErrKind // The failure class
	Msg   string  // The error message
	Cause error   // The underlying error, if any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("KVStoreError (%s): %s: %v", e.Kind, e.Msg, e.Cause)
	}
	return fmt.Sprintf("KVStoreError (%s): %s", e.Kind, e.Msg)
}

// Unwrap exposes the underlying cause to errors.Is and errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new store error with the given kind and message.
func NewError(kind ErrKind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// WrapError creates a new store error with the given kind and message,
// wrapping the underlying cause.
func WrapError(kind ErrKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Msg: msg, Cause: cause}
}

// IsKind reports whether err is a store error of the given kind.
func IsKind(err error, kind ErrKind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
