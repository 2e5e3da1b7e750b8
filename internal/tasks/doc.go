// Package tasks reconciles liked Spotify tracks into the normalized library with real-time progress reporting.
//
// # Core Operations
//
//  1. [Resolve] : Natural-key deduplication
//     - Looks the key up in an [models.EntityStore]
//     - Creates the entity from a constructor only when the lookup reports not found
//     - Folds a duplicate-key rejection from a concurrent writer into the found branch
//
//  2. [Linker.Link] : Best-effort join rows
//     - Returns a [models.LinkResult] and never an error
//     - Existing relations are logged at debug, failures at warn
//
//  3. [LibraryEngine.ReconcileBatch] : One pass over a batch of source records
//     - Artists, then album (album-artist links on first creation), then track and track-artist links
//     - A failing record is logged, reported in [ReconcileResult.Failures] and skipped
//     - A started batch always runs to completion
//
//  4. [LibraryEngine.SyncLiked] : Fetch pages from a [LikedSource] and reconcile each page in order
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking.
package tasks
