// Package store provides durable storage for the dashboard.
//
// # Architecture
//
// Data lives in four collections, each stored as one JSON document:
//
//   - messages: ordered array, oldest first, capped at MaxMessages
//   - contacts: ordered array, one entry per phone number
//   - configuration: object holding provider Settings
//   - users: object mapping username to User
//
// A Backend persists documents. Three are provided:
//
//   - FileBackend: <data_dir>/<collection>.json, replaced via temp file + rename
//   - SQLiteBackend: one row per collection in a modernc.org/sqlite database
//   - MemoryBackend: process memory, for tests and throwaway runs
//
// Store sits on top of a Backend and implements the repositories (messages,
// contacts, settings, users). Every read-modify-write holds the collection's
// mutex, so concurrent appends or upserts never lose an update. Reads take
// no lock; backends guarantee a reader sees a whole document.
//
// # Error Handling
//
// Reads never fail: a missing or undecodable document yields the
// collection's default (empty array or object) and a warning is logged.
// Writes return errors wrapping the backend failure.
//
// Common errors:
//
//   - ErrNotFound: requested entity does not exist
//   - ErrValidation: required input missing, nothing written
//   - ErrDuplicate: key already taken
//
// # Testing
//
// Use NewMemoryBackend() for unit tests:
//
//	s, err := store.Open(ctx, store.NewMemoryBackend(), store.Options{})
//
// Use NewFileBackend(t.TempDir()) or NewSQLiteBackend(path) to exercise the
// on-disk formats.
package store
