// Package fs provides the filesystem seam [Locker] is built on.
//
// The surface is deliberately narrow: exactly what [Locker] needs to
// open/create a lock file, ensure its parent directory exists, and
// stat a path to detect inode replacement — nothing more. The main
// types are:
//   - [FS]: interface for the filesystem operations Locker performs
//   - [File]: interface for an open lock file (satisfied by [os.File])
//   - [Real]: production implementation using the [os] package
package fs

import (
	"os"
)

// File represents an open lock file: just enough to flock it, stat
// it, and close it. Satisfied by [os.File].
type File interface {
	// Fd returns the file descriptor. Used for [syscall.Flock].
	Fd() uintptr

	// Stat returns the [os.FileInfo] for this file, used to verify the
	// locked inode still matches the path on disk.
	Stat() (os.FileInfo, error)

	// Close closes the file.
	Close() error
}

// FS defines the filesystem operations [Locker] performs.
//
// [Real] wraps the [os] package directly; tests that need a
// byte-for-byte substitute can satisfy this interface themselves.
type FS interface {
	// OpenFile opens a file with the given flags and permissions. See
	// [os.OpenFile].
	OpenFile(path string, flag int, perm os.FileMode) (File, error)

	// MkdirAll creates a directory and all parents. See [os.MkdirAll].
	// No error if the directory already exists.
	MkdirAll(path string, perm os.FileMode) error

	// Stat returns file info. See [os.Stat]. Returns
	// [os.ErrNotExist] if the file doesn't exist.
	Stat(path string) (os.FileInfo, error)
}

// Compile-time interface check.
var _ File = (*os.File)(nil)
