package dircache

import (
	"time"

	errUtils "github.com/cachekeep/cachekeep/errors"
	log "github.com/cachekeep/cachekeep/pkg/logger"
)

// tryOnce makes one non-blocking attempt on l in the requested mode.
func tryOnce(l Flocker, exclusive bool) (bool, error) {
	if exclusive {
		return l.TryLock()
	}
	return l.TryRLock()
}

// lockBlocking acquires l in the requested mode, waiting indefinitely.
func lockBlocking(l Flocker, exclusive bool) error {
	var err error
	if exclusive {
		err = l.Lock()
	} else {
		err = l.RLock()
	}
	if err != nil {
		return errUtils.Build(errUtils.ErrLockAcquire).
			WithCause(err).
			WithContext("path", l.Path()).
			Err()
	}
	return nil
}

// lockUntil acquires l in the requested mode before deadline, polling with
// short sleeps. A zero deadline waits indefinitely.
func lockUntil(l Flocker, exclusive bool, deadline time.Time) error {
	if deadline.IsZero() {
		return lockBlocking(l, exclusive)
	}

	for {
		locked, err := tryOnce(l, exclusive)
		if err != nil {
			return errUtils.Build(errUtils.ErrLockAcquire).
				WithCause(err).
				WithContext("path", l.Path()).
				Err()
		}
		if locked {
			return nil
		}
		if !time.Now().Before(deadline) {
			return errUtils.Build(errUtils.ErrLockTimeout).
				WithContext("path", l.Path()).
				Err()
		}
		time.Sleep(lockRetryDelay)
	}
}

// lockBounded tries l for a short bounded window so writers contending on a
// hot path fail fast instead of queueing up.
func lockBounded(l Flocker, exclusive bool) error {
	for i := 0; i < maxLockRetries; i++ {
		locked, err := tryOnce(l, exclusive)
		if err != nil {
			return errUtils.Build(errUtils.ErrLockAcquire).
				WithCause(err).
				WithContext("path", l.Path()).
				Err()
		}
		if locked {
			return nil
		}
		time.Sleep(lockRetryDelay)
	}

	return errUtils.Build(errUtils.ErrLockTimeout).
		WithContext("path", l.Path()).
		WithHint("another process is holding the lock; retry shortly").
		Err()
}

// unlockQuiet releases l, logging failures instead of returning them;
// callers run it during cleanup where nothing can be done about an error.
func unlockQuiet(l Flocker) {
	if err := l.Unlock(); err != nil {
		log.Trace("Failed to release lock", "error", err, "path", l.Path())
	}
}

// withCentralLock runs fn while holding the base directory's central lock
// exclusively. The central lock serializes creation and removal of version
// lock files under base. A zero deadline waits indefinitely.
func (m *Manager) withCentralLock(base string, deadline time.Time, fn func() error) error {
	central := m.locks(centralLockPath(base))

	if err := lockUntil(central, true, deadline); err != nil {
		return err
	}
	defer unlockQuiet(central)

	return fn()
}
