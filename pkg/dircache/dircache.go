// Package dircache coordinates shared access to versioned cache directories
// across cooperating processes.
//
// A base directory holds one subdirectory per version (for example
// <base>/1.2.3) plus, per version, a small YAML access stub recording the
// last day the version was used and a set of advisory lock files:
//
//	<base>/central.lock             serializes lock-file lifecycle
//	<base>/<version>.lock           guards the version directory
//	<base>/<version>_dir.expiry     access stub (last-access day)
//	<base>/<version>_dir.expiry.lock  guards stub writes
//
// Locks are advisory flock(2) locks: they order cooperating processes and do
// nothing against processes that bypass this package. Acquisition follows a
// fixed order (central, then version, then stub) and version lock files are
// only created or removed while the central lock is held, so a waiter can
// never be left blocked on an unlinked lock-file inode.
//
// Versions whose stub is older than the configured expiry limit are removed
// by ClearExpired, which every Release triggers by default with the released
// version protected as the reference.
package dircache

import (
	"strconv"
	"time"

	"github.com/gofrs/flock"

	errUtils "github.com/cachekeep/cachekeep/errors"
	"github.com/cachekeep/cachekeep/pkg/config"
	"github.com/cachekeep/cachekeep/pkg/filesystem"
	"github.com/cachekeep/cachekeep/pkg/perf"
)

const (
	// DefaultDirPerm is the permission for created cache directories.
	DefaultDirPerm = 0o755
	// DefaultFilePerm is the permission for access stubs.
	DefaultFilePerm = 0o644

	// maxLockRetries is the number of times to retry a non-blocking lock.
	maxLockRetries = 50
	// lockRetryDelay is the delay between lock retry attempts.
	lockRetryDelay = 10 * time.Millisecond
)

// Flocker is the capability dircache needs from a file lock. *flock.Flock
// satisfies it; tests substitute an in-memory implementation.
type Flocker interface {
	Lock() error
	RLock() error
	TryLock() (bool, error)
	TryRLock() (bool, error)
	Unlock() error
	Path() string
}

// LockFactory creates the lock for a given lock file path.
type LockFactory func(path string) Flocker

// Manager coordinates lock acquisition, access stamping, and expiry scans.
// A Manager plays the role of one cooperating process: its internal
// registries track what this process holds and what it already touched
// today. Methods are safe for concurrent use.
type Manager struct {
	fs          filesystem.FileSystem
	locks       LockFactory
	limitDays   int
	lockTimeout time.Duration

	reg *registry
}

// Option configures a Manager.
type Option func(*Manager)

// WithFileSystem sets a custom filesystem implementation.
// This is primarily useful for testing.
func WithFileSystem(fs filesystem.FileSystem) Option {
	defer perf.Track(nil, "dircache.WithFileSystem")()

	return func(m *Manager) {
		m.fs = fs
	}
}

// WithLockFactory sets a custom lock implementation.
// This is primarily useful for testing.
func WithLockFactory(factory LockFactory) Option {
	defer perf.Track(nil, "dircache.WithLockFactory")()

	return func(m *Manager) {
		m.locks = factory
	}
}

// WithExpiryDays sets the default expiry limit, overriding the environment.
func WithExpiryDays(days int) Option {
	defer perf.Track(nil, "dircache.WithExpiryDays")()

	return func(m *Manager) {
		m.limitDays = days
	}
}

// WithLockTimeout sets the default wait budget for lock acquisition,
// overriding the environment. Zero waits indefinitely; Acquire's
// WithTimeout overrides it per call.
func WithLockTimeout(d time.Duration) Option {
	defer perf.Track(nil, "dircache.WithLockTimeout")()

	return func(m *Manager) {
		m.lockTimeout = d
	}
}

// New creates a Manager. The default expiry limit comes from
// CACHEKEEP_EXPIRY_DAYS when set (strictly parsed), otherwise 30 days, and
// the default lock wait budget from CACHEKEEP_LOCK_TIMEOUT (seconds, zero
// waits indefinitely); WithExpiryDays and WithLockTimeout override both.
func New(opts ...Option) (*Manager, error) {
	defer perf.Track(nil, "dircache.New")()

	limit, err := config.ExpiryDaysFromEnv(config.DefaultExpiryDays)
	if err != nil {
		return nil, err
	}

	timeoutSec, err := config.LockTimeoutFromEnv(0)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		fs:          filesystem.NewOSFileSystem(),
		locks:       defaultLockFactory,
		limitDays:   limit,
		lockTimeout: time.Duration(timeoutSec) * time.Second,
		reg:         newRegistry(),
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.limitDays <= 0 {
		return nil, errUtils.Build(errUtils.ErrInvalidExpiryLimit).
			WithContext("days", strconv.Itoa(m.limitDays)).
			WithHint("the expiry limit must be a positive number of days").
			Err()
	}

	if m.lockTimeout < 0 {
		return nil, errUtils.Build(errUtils.ErrInvalidTimeout).
			WithContext("timeout", m.lockTimeout.String()).
			WithHint("the lock timeout must be zero or positive").
			Err()
	}

	return m, nil
}

// defaultLockFactory backs locks with flock(2).
func defaultLockFactory(path string) Flocker {
	return flock.New(path)
}
