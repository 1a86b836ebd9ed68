// Package storage defines the archive interfaces for finished game sessions.
//
// Archives are an export sink: a session ends, its ledger is written out for
// offline analysis, and nothing is ever loaded back into a live session.
// Implementations live in subpackages (sqlite).
//
// # Error Types
//
//   - ErrNotFound: Indicates a requested archive is missing.
//   - ErrAlreadyExists: Indicates a session id was archived before.
package storage
