package dircache

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/cachekeep/cachekeep/pkg/filesystem"
)

// fakeLocks is an in-memory lock table shared by every Flocker a factory
// hands out, so lock semantics can be tested without flock(2).
type fakeLocks struct {
	mu    sync.Mutex
	state map[string]*fakeLockEntry
	hooks map[string]func()
}

type fakeLockEntry struct {
	readers int
	writer  bool
}

func newFakeLocks() *fakeLocks {
	return &fakeLocks{
		state: make(map[string]*fakeLockEntry),
		hooks: make(map[string]func()),
	}
}

// factory is a LockFactory backed by this table.
func (f *fakeLocks) factory(path string) Flocker {
	return &fakeLock{table: f, path: path}
}

// hookOnce runs fn the next time any lock attempt targets path, before the
// attempt is evaluated. Used to interleave filesystem activity into the
// middle of an acquisition.
func (f *fakeLocks) hookOnce(path string, fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hooks[path] = fn
}

// holdExclusive takes the writer slot directly, simulating another process.
func (f *fakeLocks) holdExclusive(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entry(path).writer = true
}

// releaseExclusive drops a writer slot taken via holdExclusive.
func (f *fakeLocks) releaseExclusive(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entry(path).writer = false
}

func (f *fakeLocks) entry(path string) *fakeLockEntry {
	e, ok := f.state[path]
	if !ok {
		e = &fakeLockEntry{}
		f.state[path] = e
	}
	return e
}

func (f *fakeLocks) popHook(path string) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn := f.hooks[path]
	delete(f.hooks, path)
	return fn
}

// fakeLock is one handle into the table. Like a real flock, independent
// instances on the same path conflict with each other.
type fakeLock struct {
	table *fakeLocks
	path  string

	mu   sync.Mutex
	mode int // 0 unlocked, 1 shared, 2 exclusive
}

func (l *fakeLock) TryLock() (bool, error) {
	if fn := l.table.popHook(l.path); fn != nil {
		fn()
	}

	l.table.mu.Lock()
	defer l.table.mu.Unlock()
	l.mu.Lock()
	defer l.mu.Unlock()

	e := l.table.entry(l.path)
	if e.writer || e.readers > 0 {
		return false, nil
	}
	e.writer = true
	l.mode = 2
	return true, nil
}

func (l *fakeLock) TryRLock() (bool, error) {
	if fn := l.table.popHook(l.path); fn != nil {
		fn()
	}

	l.table.mu.Lock()
	defer l.table.mu.Unlock()
	l.mu.Lock()
	defer l.mu.Unlock()

	e := l.table.entry(l.path)
	if e.writer {
		return false, nil
	}
	e.readers++
	l.mode = 1
	return true, nil
}

func (l *fakeLock) Lock() error {
	for {
		ok, err := l.TryLock()
		if err != nil || ok {
			return err
		}
		time.Sleep(100 * time.Microsecond)
	}
}

func (l *fakeLock) RLock() error {
	for {
		ok, err := l.TryRLock()
		if err != nil || ok {
			return err
		}
		time.Sleep(100 * time.Microsecond)
	}
}

func (l *fakeLock) Unlock() error {
	l.table.mu.Lock()
	defer l.table.mu.Unlock()
	l.mu.Lock()
	defer l.mu.Unlock()

	e := l.table.entry(l.path)
	switch l.mode {
	case 2:
		e.writer = false
	case 1:
		e.readers--
	}
	l.mode = 0
	return nil
}

func (l *fakeLock) Path() string {
	return l.path
}

// countingFS wraps a FileSystem and counts atomic writes per path.
type countingFS struct {
	filesystem.FileSystem

	mu           sync.Mutex
	atomicWrites map[string]int
}

func newCountingFS() *countingFS {
	return &countingFS{
		FileSystem:   filesystem.NewOSFileSystem(),
		atomicWrites: make(map[string]int),
	}
}

func (c *countingFS) WriteFileAtomic(name string, data []byte, perm os.FileMode) error {
	c.mu.Lock()
	c.atomicWrites[name]++
	c.mu.Unlock()
	return c.FileSystem.WriteFileAtomic(name, data, perm)
}

func (c *countingFS) writes(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.atomicWrites[name]
}

// newTestManager builds a Manager on fake locks rooted in a fresh temp base.
func newTestManager(t *testing.T, opts ...Option) (*Manager, string, *fakeLocks) {
	t.Helper()
	t.Setenv("CACHEKEEP_EXPIRY_DAYS", "")
	t.Setenv("CACHEKEEP_LOCK_TIMEOUT", "")

	locks := newFakeLocks()
	base := t.TempDir()

	all := append([]Option{WithLockFactory(locks.factory)}, opts...)
	m, err := New(all...)
	require.NoError(t, err)

	return m, base, locks
}

// newTestManagerPair builds two Managers on one shared lock table. Each has
// its own registry, so they contend like two separate processes.
func newTestManagerPair(t *testing.T) (*Manager, *Manager, string, *fakeLocks) {
	t.Helper()
	t.Setenv("CACHEKEEP_EXPIRY_DAYS", "")
	t.Setenv("CACHEKEEP_LOCK_TIMEOUT", "")

	locks := newFakeLocks()
	base := t.TempDir()

	m1, err := New(WithLockFactory(locks.factory))
	require.NoError(t, err)
	m2, err := New(WithLockFactory(locks.factory))
	require.NoError(t, err)

	return m1, m2, base, locks
}

// writeStubFile plants a stub dated day directly on disk.
func writeStubFile(t *testing.T, base, version string, day int64) string {
	t.Helper()

	data, err := yaml.Marshal(accessRecord{
		FormatVersion: stubFormatVersion,
		AccessDay:     day,
	})
	require.NoError(t, err)

	path := stubPath(base, version)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

// readStubDay reads the access day recorded in a stub.
func readStubDay(t *testing.T, path string) int64 {
	t.Helper()

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var rec accessRecord
	require.NoError(t, yaml.Unmarshal(data, &rec))
	return rec.AccessDay
}

// makeVersionDir creates <base>/<version> with a marker file inside.
func makeVersionDir(t *testing.T, base, version string) string {
	t.Helper()

	dir := filepath.Join(base, version)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "payload.bin"), []byte("data"), 0o644))
	return dir
}
