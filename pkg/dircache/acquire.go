package dircache

import (
	"path/filepath"
	"time"

	errUtils "github.com/cachekeep/cachekeep/errors"
	log "github.com/cachekeep/cachekeep/pkg/logger"
	"github.com/cachekeep/cachekeep/pkg/perf"
)

// Handle represents one granted lock on a versioned directory. A Handle is
// single-use: it is created by Acquire and consumed by Release.
type Handle struct {
	dir       string
	base      string
	version   Version
	exclusive bool
	lock      Flocker
	released  bool // guarded by the registry mutex
}

// Dir returns the absolute versioned directory the handle guards.
func (h *Handle) Dir() string {
	return h.dir
}

// Version returns the parsed version of the guarded directory.
func (h *Handle) Version() Version {
	return h.version
}

// Exclusive reports whether the handle holds an exclusive lock.
func (h *Handle) Exclusive() bool {
	return h.exclusive
}

// AcquireOption configures one Acquire call.
type AcquireOption func(*acquireOptions)

type acquireOptions struct {
	exclusive bool
	timeout   time.Duration
}

// WithExclusive requests an exclusive lock instead of the default shared
// lock. Writers populating or mutating a version directory must be
// exclusive; readers share.
func WithExclusive() AcquireOption {
	return func(o *acquireOptions) {
		o.exclusive = true
	}
}

// WithTimeout bounds the whole acquisition, covering both the central and
// the per-version lock, overriding the Manager's default wait budget.
// Expiry surfaces as ErrLockTimeout. Zero falls back to the Manager
// default.
func WithTimeout(d time.Duration) AcquireOption {
	return func(o *acquireOptions) {
		o.timeout = d
	}
}

// Acquire locks the versioned directory at path, creating it (and the base
// directory) if needed, and returns a Handle for later Release.
//
// The directory name must parse as a version. An acquisition this process
// would deadlock itself on fails fast with ErrLockModeConflict: exclusive
// on anything already held, or shared on an exclusively held path. Shared
// re-acquisition of a shared hold is allowed and yields an independent
// Handle.
//
// The per-version lock file is opened and locked while the central lock is
// held, and the central lock is only dropped once the version lock is
// granted. Scans remove version lock files under the same central lock, so
// no acquirer can be left waiting on an unlinked lock file.
func (m *Manager) Acquire(path string, opts ...AcquireOption) (*Handle, error) {
	defer perf.Track(nil, "dircache.Manager.Acquire")()

	var o acquireOptions
	for _, opt := range opts {
		opt(&o)
	}

	dir, base, name, err := splitVersionDir(path)
	if err != nil {
		return nil, err
	}

	version, err := ParseVersion(name)
	if err != nil {
		return nil, err
	}

	if err := m.reg.checkConflict(dir, o.exclusive); err != nil {
		return nil, err
	}

	timeout := o.timeout
	if timeout == 0 {
		timeout = m.lockTimeout
	}
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}

	// The central lock file lives in base, so base must exist first.
	if err := m.fs.MkdirAll(base, DefaultDirPerm); err != nil {
		return nil, errUtils.Build(errUtils.ErrBaseDirCreate).
			WithCause(err).
			WithContext("path", base).
			Err()
	}

	vlock := m.locks(versionLockPath(base, name))
	err = m.withCentralLock(base, deadline, func() error {
		// Created under central: a scan cannot delete the directory
		// between creation and the version lock grant.
		if err := m.fs.MkdirAll(dir, DefaultDirPerm); err != nil {
			return errUtils.Build(errUtils.ErrBaseDirCreate).
				WithCause(err).
				WithContext("path", dir).
				Err()
		}
		return lockUntil(vlock, o.exclusive, deadline)
	})
	if err != nil {
		return nil, err
	}

	m.reg.register(dir, o.exclusive)
	log.Debug("Acquired version lock", "dir", dir, "mode", modeString(o.exclusive))

	return &Handle{
		dir:       dir,
		base:      base,
		version:   version,
		exclusive: o.exclusive,
		lock:      vlock,
	}, nil
}

// ReleaseOption configures one Release call.
type ReleaseOption func(*releaseOptions)

type releaseOptions struct {
	skipScan bool
}

// WithoutScan suppresses the expiry scan that Release runs by default.
func WithoutScan() ReleaseOption {
	return func(o *releaseOptions) {
		o.skipScan = true
	}
}

// Release unlocks the handle. Releasing an already-released handle fails
// with ErrLockReleased.
//
// By default Release then scans the base directory for expired versions,
// protecting the just-released version as the reference; scan failures are
// logged, never returned.
func (m *Manager) Release(h *Handle, opts ...ReleaseOption) error {
	defer perf.Track(nil, "dircache.Manager.Release")()

	var o releaseOptions
	for _, opt := range opts {
		opt(&o)
	}

	if h == nil {
		return errUtils.Build(errUtils.ErrLockReleased).Err()
	}
	if err := m.reg.markReleased(h); err != nil {
		return err
	}
	m.reg.unregister(h.dir)

	var relErr error
	if err := h.lock.Unlock(); err != nil {
		relErr = errUtils.Build(errUtils.ErrLockRelease).
			WithCause(err).
			WithContext("path", h.dir).
			Err()
	}
	log.Debug("Released version lock", "dir", h.dir)

	if !o.skipScan {
		removed, err := m.ClearExpired(h.base, WithReference(h.version))
		if err != nil {
			log.Warn("Expiry scan after release failed", "base", h.base, "error", err)
		} else if len(removed) > 0 {
			log.Debug("Expiry scan removed versions", "base", h.base, "removed", removed)
		}
	}

	return relErr
}

// WithVersion runs body with the versioned directory <base>/<version>
// locked, recording the access first. The lock is released on every exit
// path; a body error takes precedence over a release error. Release options
// apply to the final Release, so WithoutScan suppresses the trailing expiry
// scan.
func (m *Manager) WithVersion(base, version string, exclusive bool, body func(dir string) error, opts ...ReleaseOption) error {
	defer perf.Track(nil, "dircache.Manager.WithVersion")()

	var acqOpts []AcquireOption
	if exclusive {
		acqOpts = append(acqOpts, WithExclusive())
	}

	h, err := m.Acquire(filepath.Join(base, version), acqOpts...)
	if err != nil {
		return err
	}

	if err := m.Touch(h.Dir()); err != nil {
		// The stub write failed, so scanning now would act on stale data.
		if relErr := m.Release(h, WithoutScan()); relErr != nil {
			log.Trace("Release after failed touch also failed", "dir", h.Dir(), "error", relErr)
		}
		return err
	}

	bodyErr := body(h.Dir())

	relErr := m.Release(h, opts...)
	if bodyErr != nil {
		return bodyErr
	}
	return relErr
}
