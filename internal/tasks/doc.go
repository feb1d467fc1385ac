// package tasks implements the playlist maker: the engine that aggregates
// every track by a set of artists into target playlists.
//
// The core abstraction is MakerEngine, which crawls the remote catalog
// (artist -> releases -> tracks, paginated), deduplicates tracks with a
// fuzzy name+duration match, and applies idempotent incremental updates to
// playlists in capped batches. All remote calls pass through a per-run
// request gate that enforces a call budget with a cooldown. Operations emit
// progress updates via channels for non-blocking status reporting to the
// CLI/TUI layers.
package tasks
