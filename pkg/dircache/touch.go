package dircache

import (
	"time"

	errUtils "github.com/cachekeep/cachekeep/errors"
	log "github.com/cachekeep/cachekeep/pkg/logger"
	"github.com/cachekeep/cachekeep/pkg/perf"
)

// TouchOption configures one Touch call.
type TouchOption func(*touchOptions)

type touchOptions struct {
	date  time.Time
	force bool
}

// WithDate stamps the stub with the given time's day instead of today.
func WithDate(t time.Time) TouchOption {
	return func(o *touchOptions) {
		o.date = t
	}
}

// WithForce writes the stub even if this process already stamped the same
// day.
func WithForce() TouchOption {
	return func(o *touchOptions) {
		o.force = true
	}
}

// Touch records that the versioned directory at path was accessed,
// rewriting its stub with the access day.
//
// Writes are avoided when this process already stamped the same day for the
// same path and the stub still exists; existence is re-verified on every
// call because a concurrent expiry scan may have removed the stub since.
// The stub itself is written atomically under its own exclusive lock, so
// shared holders of the version lock can stamp without escalating.
func (m *Manager) Touch(path string, opts ...TouchOption) error {
	defer perf.Track(nil, "dircache.Manager.Touch")()

	o := touchOptions{date: time.Now()}
	for _, opt := range opts {
		opt(&o)
	}

	dir, base, name, err := splitVersionDir(path)
	if err != nil {
		return err
	}
	if _, err := ParseVersion(name); err != nil {
		return err
	}

	day := dayOf(o.date)
	stub := stubPath(base, name)

	if !o.force && m.reg.touchedOn(dir, day) && m.stubExists(stub) {
		log.Trace("Skipping touch, day already recorded", "path", stub)
		return nil
	}

	if err := m.fs.MkdirAll(base, DefaultDirPerm); err != nil {
		return errUtils.Build(errUtils.ErrBaseDirCreate).
			WithCause(err).
			WithContext("path", base).
			Err()
	}

	slock := m.locks(stubLockPath(base, name))
	if err := lockBounded(slock, true); err != nil {
		return err
	}
	defer unlockQuiet(slock)

	if err := m.writeStub(stub, accessRecord{
		FormatVersion: stubFormatVersion,
		AccessDay:     day,
	}); err != nil {
		return err
	}

	m.reg.recordTouched(dir, day)
	log.Debug("Recorded access", "version", name, "day", day)
	return nil
}

// FlushTouched clears the write-avoidance cache, forcing the next Touch of
// every path to write.
func (m *Manager) FlushTouched() {
	defer perf.Track(nil, "dircache.Manager.FlushTouched")()

	m.reg.flushTouched()
}
