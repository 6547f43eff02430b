package dircache

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	errUtils "github.com/cachekeep/cachekeep/errors"
	log "github.com/cachekeep/cachekeep/pkg/logger"
	"github.com/cachekeep/cachekeep/pkg/perf"
)

// ClearOption configures one ClearExpired call.
type ClearOption func(*clearOptions)

type clearOptions struct {
	reference Version
	limitDays int
	dryRun    bool
}

// WithReference protects the given version and everything semantically
// newer from removal, regardless of staleness.
func WithReference(v Version) ClearOption {
	return func(o *clearOptions) {
		o.reference = v
	}
}

// WithLimitDays overrides the Manager's expiry limit for this scan.
func WithLimitDays(days int) ClearOption {
	return func(o *clearOptions) {
		o.limitDays = days
	}
}

// WithDryRun reports the versions a scan would remove without taking locks
// or deleting anything.
func WithDryRun() ClearOption {
	return func(o *clearOptions) {
		o.dryRun = true
	}
}

// ClearExpired scans base for versions whose stub is older than the expiry
// limit and removes their directory, stub, and lock files. It returns the
// removed versions.
//
// The scan is best effort: a candidate that is protected by the reference,
// locked by another process, held by this process, or freshened between
// enumeration and deletion is skipped, and one candidate's failure never
// stops the others. Only enumeration failures and a non-positive limit fail
// the call.
func (m *Manager) ClearExpired(base string, opts ...ClearOption) ([]string, error) {
	defer perf.Track(nil, "dircache.Manager.ClearExpired")()

	var o clearOptions
	for _, opt := range opts {
		opt(&o)
	}

	limit := int64(o.limitDays)
	if limit == 0 {
		limit = int64(m.limitDays)
	}
	if limit <= 0 {
		return nil, errUtils.Build(errUtils.ErrInvalidExpiryLimit).
			WithContext("days", strconv.FormatInt(limit, 10)).
			Err()
	}

	baseAbs, err := filepath.Abs(base)
	if err != nil {
		return nil, err
	}

	entries, err := m.fs.ReadDir(baseAbs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errUtils.Build(errUtils.ErrDirList).
			WithCause(err).
			WithContext("path", baseAbs).
			Err()
	}

	now := today()
	var removed []string

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), stubSuffix) {
			continue
		}

		name := strings.TrimSuffix(entry.Name(), stubSuffix)
		version, err := ParseVersion(name)
		if err != nil {
			log.Warn("Skipping stub with unparseable version", "stub", entry.Name(), "error", err)
			continue
		}

		if !o.reference.IsZero() && version.AtLeast(o.reference) {
			log.Trace("Skipping version protected by reference",
				"version", name, "reference", o.reference.String())
			continue
		}

		stub := stubPath(baseAbs, name)
		rec, err := m.readStub(stub)
		if err != nil {
			log.Warn("Skipping unreadable stub", "stub", stub, "error", err)
			continue
		}

		if now-rec.AccessDay <= limit {
			continue
		}

		dir := filepath.Join(baseAbs, name)
		if m.reg.isHeld(dir) {
			log.Debug("Skipping version held by this process", "dir", dir)
			continue
		}

		if o.dryRun {
			removed = append(removed, name)
			continue
		}

		if m.removeExpired(baseAbs, name, limit, now) {
			removed = append(removed, name)
		}
	}

	return removed, nil
}

// removeExpired deletes one expired version under the central and
// per-version locks, re-verifying staleness first. It reports whether the
// version was removed; failures are logged and contained to this candidate.
func (m *Manager) removeExpired(base, name string, limit, now int64) bool {
	dir := filepath.Join(base, name)
	stub := stubPath(base, name)
	deleted := false

	err := m.withCentralLock(base, time.Time{}, func() error {
		vlock := m.locks(versionLockPath(base, name))

		locked, err := vlock.TryLock()
		if err != nil {
			return errUtils.Build(errUtils.ErrLockAcquire).
				WithCause(err).
				WithContext("path", vlock.Path()).
				Err()
		}
		if !locked {
			log.Debug("Skipping version locked by another process", "dir", dir)
			return nil
		}

		// Re-read under the lock: the stub may have been freshened or
		// removed since enumeration.
		rec, err := m.readStub(stub)
		if err != nil || now-rec.AccessDay <= limit {
			log.Debug("Skipping version freshened or removed since enumeration", "dir", dir)
			unlockQuiet(vlock)
			return nil
		}

		if err := m.fs.RemoveAll(dir); err != nil {
			unlockQuiet(vlock)
			return errUtils.Build(errUtils.ErrDirRemove).
				WithCause(err).
				WithContext("dir", dir).
				Err()
		}
		if err := m.fs.Remove(stub); err != nil && !os.IsNotExist(err) {
			// The directory is gone, so a later scan will find this stub
			// stale again and retry the removal.
			log.Warn("Failed to remove access stub", "stub", stub, "error", err)
		}
		if err := m.fs.Remove(stubLockPath(base, name)); err != nil && !os.IsNotExist(err) {
			log.Trace("Failed to remove stub lock file", "path", stubLockPath(base, name), "error", err)
		}

		m.reg.forgetTouched(dir)
		deleted = true

		// Unlock, then unlink the lock file while still holding central:
		// nobody can open it concurrently, so no waiter is stranded on the
		// dead inode.
		unlockQuiet(vlock)
		if err := m.fs.Remove(vlock.Path()); err != nil && !os.IsNotExist(err) {
			log.Trace("Failed to remove version lock file", "path", vlock.Path(), "error", err)
		}

		log.Debug("Removed expired version", "version", name, "ageDays", now-rec.AccessDay)
		return nil
	})
	if err != nil {
		log.Warn("Failed to remove expired version", "dir", dir, "error", err)
	}

	return deleted
}
