// Package errors provides static error definitions and error-building
// utilities shared across cachekeep packages.
//
// All user-visible failures wrap one of the sentinel errors below via
// Build().WithCause(...), so callers can classify failures with errors.Is
// while still surfacing the underlying OS error.
package errors

import "github.com/cockroachdb/errors"

// Lock errors.
var (
	// ErrLockModeConflict indicates this process already holds the lock in a
	// mode incompatible with the requested one (e.g. exclusive requested while
	// shared is held, or any re-acquisition of an exclusive lock).
	ErrLockModeConflict = errors.New("lock already held by this process in an incompatible mode")

	// ErrLockTimeout indicates a lock could not be acquired within the
	// configured wait budget.
	ErrLockTimeout = errors.New("timed out waiting for lock")

	// ErrLockAcquire indicates the underlying flock syscall failed.
	ErrLockAcquire = errors.New("failed to acquire lock")

	// ErrLockRelease indicates the underlying funlock syscall failed.
	ErrLockRelease = errors.New("failed to release lock")

	// ErrLockReleased indicates a lock handle was used after it was released.
	ErrLockReleased = errors.New("lock handle already released")
)

// Access stub errors.
var (
	// ErrStubRead indicates an access stub file could not be read.
	ErrStubRead = errors.New("failed to read access stub")

	// ErrStubWrite indicates an access stub file could not be written.
	ErrStubWrite = errors.New("failed to write access stub")

	// ErrStubMarshal indicates an access record could not be serialized.
	ErrStubMarshal = errors.New("failed to marshal access stub")

	// ErrStubUnmarshal indicates an access stub file held malformed content.
	ErrStubUnmarshal = errors.New("failed to unmarshal access stub")
)

// Version and directory errors.
var (
	// ErrInvalidVersion indicates a directory name is not a parseable version.
	ErrInvalidVersion = errors.New("invalid version")

	// ErrBaseDirCreate indicates the cache base directory could not be created.
	ErrBaseDirCreate = errors.New("failed to create cache directory")

	// ErrDirRemove indicates an expired version directory could not be removed.
	ErrDirRemove = errors.New("failed to remove version directory")

	// ErrDirList indicates the cache base directory could not be enumerated.
	ErrDirList = errors.New("failed to list cache directory")
)

// Configuration errors.
var (
	// ErrInvalidExpiryLimit indicates the expiry limit setting is not a
	// positive integer number of days.
	ErrInvalidExpiryLimit = errors.New("invalid expiry limit")

	// ErrInvalidDate indicates a date argument could not be parsed.
	ErrInvalidDate = errors.New("invalid date")

	// ErrInvalidTimeout indicates a timeout setting could not be parsed.
	ErrInvalidTimeout = errors.New("invalid timeout")

	// ErrLogFileOpen indicates the configured log file could not be opened.
	ErrLogFileOpen = errors.New("failed to open log file")
)

// Command errors.
var (
	// ErrCommandRun indicates the wrapped command could not be started or
	// exited unsuccessfully.
	ErrCommandRun = errors.New("command failed")
)
