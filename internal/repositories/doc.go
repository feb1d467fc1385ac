// package repositories provides the SQLite persistence layer.
//
// SyncStateRepository stores per-playlist maker bookkeeping (merged artist
// ids and the last-synchronized timestamp) and satisfies tasks.StateStore.
// RunRepository records run history for inspection.
package repositories
