package dircache

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	errUtils "github.com/cachekeep/cachekeep/errors"
	log "github.com/cachekeep/cachekeep/pkg/logger"
	"github.com/cachekeep/cachekeep/pkg/perf"
)

// Entry describes one version recorded under a base directory.
type Entry struct {
	// Version is the parsed version directory name.
	Version Version

	// LastAccess is the UTC midnight of the last recorded access day.
	LastAccess time.Time

	// AgeDays is the whole days elapsed since the last recorded access.
	AgeDays int

	// DirExists reports whether the version directory itself is present.
	// A stub can outlive its directory when a removal was interrupted.
	DirExists bool
}

// List enumerates the versions recorded under base, oldest access first.
// Stubs with unparseable versions or unreadable content are skipped with a
// warning, mirroring the expiry scan's view of the directory.
func (m *Manager) List(base string) ([]Entry, error) {
	defer perf.Track(nil, "dircache.Manager.List")()

	baseAbs, err := filepath.Abs(base)
	if err != nil {
		return nil, err
	}

	dirEntries, err := m.fs.ReadDir(baseAbs)
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
	var out []Entry

	for _, entry := range dirEntries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), stubSuffix) {
			continue
		}

		name := strings.TrimSuffix(entry.Name(), stubSuffix)
		version, err := ParseVersion(name)
		if err != nil {
			log.Warn("Skipping stub with unparseable version", "stub", entry.Name(), "error", err)
			continue
		}

		rec, err := m.readStub(stubPath(baseAbs, name))
		if err != nil {
			log.Warn("Skipping unreadable stub", "stub", entry.Name(), "error", err)
			continue
		}

		_, statErr := m.fs.Stat(filepath.Join(baseAbs, name))

		out = append(out, Entry{
			Version:    version,
			LastAccess: dayToTime(rec.AccessDay),
			AgeDays:    int(now - rec.AccessDay),
			DirExists:  statErr == nil,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastAccess.Equal(out[j].LastAccess) {
			return out[i].LastAccess.Before(out[j].LastAccess)
		}
		return out[i].Version.LessThan(out[j].Version)
	})

	return out, nil
}
