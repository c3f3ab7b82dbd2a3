// Package kv defines the public surface of the birch key-value store: the
// IStore interface every engine implements, the error taxonomy shared by all
// components, and the engine registry used to resolve engines by name.
//
// The store model is durable single-node key-value storage: keys map to
// byte-string values, writes are acknowledged once appended to the engine's
// log, and the full state survives process restarts. Reads of missing keys
// are a normal outcome (loaded=false), while removing a missing key is an
// error (ErrKindKeyNotFound) so callers can surface it to users.
//
// Errors fall into four kinds. ErrKindIO and ErrKindSerialization bubble up
// unchanged from the storage layer and are never retried internally, since
// retrying a local file operation rarely helps and masks real failures.
// ErrKindKeyNotFound reflects index state only and never causes a partial
// write. ErrKindCorruption is raised when the engine's index and its log
// disagree, and is never silently swallowed.
//
// Engines register themselves under a name via RegisterEngine (typically
// from an init function) and are resolved with GetEngine, so callers like
// the CLI can select an engine through configuration alone.
package kv
