package cli

import (
	"errors"

	"github.com/NotAShelf/stash/internal/filter"
	"github.com/NotAShelf/stash/internal/store"
)

// ErrUsage reports a malformed invocation: bad flag value, missing
// required argument, conflicting flags. Exit code 2 (spec §6).
var ErrUsage = errors.New("usage error")

// Exit codes, per spec §6.
const (
	ExitSuccess      = 0
	ExitGenericError = 1
	ExitUsageError   = 2
	ExitStoreError   = 3
	ExitNotFound     = 4
)

// exitCodeFor maps a command error to stash's exit code. Declined
// --ask wipes/deletes are not errors — those commands return nil, which
// maps to ExitSuccess (spec §7).
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	switch {
	case errors.Is(err, ErrUsage):
		return ExitUsageError
	case errors.Is(err, store.ErrNotFound):
		return ExitNotFound
	case errors.Is(err, store.ErrStoreCorrupt),
		errors.Is(err, store.ErrStoreFull),
		errors.Is(err, store.ErrStoreBusy):
		return ExitStoreError
	case errors.Is(err, filter.ErrInvalidRegex):
		return ExitGenericError
	default:
		return ExitGenericError
	}
}
