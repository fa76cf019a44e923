package store

import "errors"

// ErrStoreCorrupt reports that the database file failed its integrity
// check on open. Stash does not attempt repair; callers should surface
// this to the user and let them decide whether to delete the file.
// Callers should use errors.Is(err, ErrStoreCorrupt).
var ErrStoreCorrupt = errors.New("store corrupt")

// ErrStoreFull reports that a write failed because the underlying
// filesystem has no space left. No partial row is left behind: the
// failing transaction is rolled back.
// Callers should use errors.Is(err, ErrStoreFull).
var ErrStoreFull = errors.New("store full")

// ErrStoreBusy reports that a write could not acquire the store's
// "<db path>.lock" write lock within its timeout, or SQLite's writer
// lock before its busy_timeout expired. The watch loop retries this a
// bounded number of times; CLI commands surface it directly.
// Callers should use errors.Is(err, ErrStoreBusy).
var ErrStoreBusy = errors.New("store busy")

// ErrNotFound reports that Get or a targeted delete found no matching
// row. Callers should use errors.Is(err, ErrNotFound).
var ErrNotFound = errors.New("not found")
