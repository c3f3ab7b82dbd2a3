// Package cmd implements the command-line interface for the birch key-value
// store. It provides a hierarchical command structure for operating on a
// store directory.
//
// The package is organized into several subpackages:
//
//   - kv: Commands for key-value store operations (get, set, rm, compact,
//     stats, perf)
//   - util: Shared utilities for command-line processing and configuration
//     (internal use)
//
// Configuration is read from flags, BIRCH_-prefixed environment variables
// and optional .env files, in that order of precedence.
//
// See birch -help for a list of all commands.
package cmd
