// Package ledger tracks when each mirrored repository was last synchronized successfully.
//
// The Ledger decides staleness (IsOutdated), folds a run's outcomes into new
// watermarks (Apply), and Store reads and atomically rewrites the JSON file on
// an afero file system. The watermark stored for a repository is the time its
// successful attempt started, never the remote update time.
package ledger
