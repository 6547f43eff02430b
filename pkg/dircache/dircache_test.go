package dircache

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errUtils "github.com/cachekeep/cachekeep/errors"
)

// clearConfigEnv isolates a test from ambient CACHEKEEP_* variables.
func clearConfigEnv(t *testing.T) {
	t.Helper()
	t.Setenv("CACHEKEEP_EXPIRY_DAYS", "")
	t.Setenv("CACHEKEEP_LOCK_TIMEOUT", "")
}

func TestNewDefaults(t *testing.T) {
	clearConfigEnv(t)

	m, err := New()
	require.NoError(t, err)
	assert.Equal(t, 30, m.limitDays)
	assert.Equal(t, time.Duration(0), m.lockTimeout)
}

func TestNewLimitFromEnv(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("CACHEKEEP_EXPIRY_DAYS", "7")

	m, err := New()
	require.NoError(t, err)
	assert.Equal(t, 7, m.limitDays)
}

func TestNewLockTimeoutFromEnv(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("CACHEKEEP_LOCK_TIMEOUT", "5")

	m, err := New()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, m.lockTimeout)
}

func TestNewRejectsBadLockTimeout(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("CACHEKEEP_LOCK_TIMEOUT", "forever")

	_, err := New()
	require.Error(t, err)
	assert.ErrorIs(t, err, errUtils.ErrInvalidTimeout)
}

func TestNewRejectsNegativeLockTimeout(t *testing.T) {
	clearConfigEnv(t)

	_, err := New(WithLockTimeout(-time.Second))
	require.Error(t, err)
	assert.ErrorIs(t, err, errUtils.ErrInvalidTimeout)
}

func TestNewRejectsBadEnv(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{name: "not a number", value: "soon"},
		{name: "zero", value: "0"},
		{name: "negative", value: "-2"},
		{name: "float", value: "2.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearConfigEnv(t)
			t.Setenv("CACHEKEEP_EXPIRY_DAYS", tt.value)

			_, err := New()
			require.Error(t, err)
			assert.ErrorIs(t, err, errUtils.ErrInvalidExpiryLimit)
		})
	}
}

func TestNewWithExpiryDaysOverridesEnv(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("CACHEKEEP_EXPIRY_DAYS", "7")

	m, err := New(WithExpiryDays(90))
	require.NoError(t, err)
	assert.Equal(t, 90, m.limitDays)
}

func TestNewRejectsNonPositiveOption(t *testing.T) {
	clearConfigEnv(t)

	_, err := New(WithExpiryDays(0))
	require.Error(t, err)
	assert.ErrorIs(t, err, errUtils.ErrInvalidExpiryLimit)
}

func TestWithVersionRunsBody(t *testing.T) {
	m, base, _ := newTestManager(t)

	var bodyDir string
	err := m.WithVersion(base, "1.2.3", false, func(dir string) error {
		bodyDir = dir
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "1.2.3"), bodyDir)

	// The access was recorded before the body ran.
	assert.Equal(t, today(), readStubDay(t, stubPath(base, "1.2.3")))

	// And the lock is gone: an exclusive acquisition succeeds immediately.
	h, err := m.Acquire(bodyDir, WithExclusive(), WithTimeout(time.Second))
	require.NoError(t, err)
	require.NoError(t, m.Release(h, WithoutScan()))
}

func TestWithVersionScansOnRelease(t *testing.T) {
	m, base, _ := newTestManager(t)

	stale := makeVersionDir(t, base, "0.9.0")
	writeStubFile(t, base, "0.9.0", today()-100)

	err := m.WithVersion(base, "1.0.0", false, func(dir string) error { return nil })
	require.NoError(t, err)

	assert.NoDirExists(t, stale, "release must trigger an expiry scan")
	assert.NoFileExists(t, stubPath(base, "0.9.0"))
	assert.DirExists(t, filepath.Join(base, "1.0.0"))
}

func TestWithVersionProtectsNewerThanReference(t *testing.T) {
	m, base, _ := newTestManager(t)

	newer := makeVersionDir(t, base, "2.0.0")
	writeStubFile(t, base, "2.0.0", today()-100)

	err := m.WithVersion(base, "1.0.0", false, func(dir string) error { return nil })
	require.NoError(t, err)

	assert.DirExists(t, newer, "the release scan must protect versions newer than the released one")
}

func TestWithVersionWithoutScan(t *testing.T) {
	m, base, _ := newTestManager(t)

	stale := makeVersionDir(t, base, "0.9.0")
	writeStubFile(t, base, "0.9.0", today()-100)

	err := m.WithVersion(base, "1.0.0", false, func(dir string) error { return nil }, WithoutScan())
	require.NoError(t, err)

	assert.DirExists(t, stale)
}

func TestWithVersionBodyError(t *testing.T) {
	m, base, _ := newTestManager(t)
	errBoom := errors.New("boom")

	err := m.WithVersion(base, "1.2.3", false, func(dir string) error { return errBoom })
	assert.ErrorIs(t, err, errBoom)

	// The lock was still released.
	h, acqErr := m.Acquire(filepath.Join(base, "1.2.3"), WithExclusive(), WithTimeout(time.Second))
	require.NoError(t, acqErr)
	require.NoError(t, m.Release(h, WithoutScan()))
}

func TestWithVersionExclusiveBlocksOthers(t *testing.T) {
	m1, m2, base, _ := newTestManagerPair(t)

	err := m1.WithVersion(base, "1.2.3", true, func(dir string) error {
		_, err := m2.Acquire(dir, WithTimeout(60*time.Millisecond))
		require.Error(t, err)
		assert.ErrorIs(t, err, errUtils.ErrLockTimeout)
		return nil
	})
	require.NoError(t, err)
}

func TestWithVersionSharedNests(t *testing.T) {
	m1, m2, base, _ := newTestManagerPair(t)

	var nested bool
	err := m1.WithVersion(base, "1.2.3", false, func(dir string) error {
		return m2.WithVersion(base, "1.2.3", false, func(dir string) error {
			nested = true
			return nil
		})
	})
	require.NoError(t, err)
	assert.True(t, nested, "shared holders must be able to work concurrently")
}

func TestWithVersionInvalidVersion(t *testing.T) {
	m, base, _ := newTestManager(t)

	ran := false
	err := m.WithVersion(base, "not-a-version", false, func(dir string) error {
		ran = true
		return nil
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, errUtils.ErrInvalidVersion)
	assert.False(t, ran)
}

func TestWithVersionTouchFailureReleasesLock(t *testing.T) {
	m, base, locks := newTestManager(t)

	// A stuck stub lock makes the access recording fail after the version
	// lock is already held; the version lock must not leak.
	locks.holdExclusive(stubLockPath(base, "1.2.3"))

	ran := false
	err := m.WithVersion(base, "1.2.3", false, func(dir string) error {
		ran = true
		return nil
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, errUtils.ErrLockTimeout)
	assert.False(t, ran, "the body must not run when the access cannot be recorded")

	locks.releaseExclusive(stubLockPath(base, "1.2.3"))

	h, err := m.Acquire(filepath.Join(base, "1.2.3"), WithExclusive(), WithTimeout(time.Second))
	require.NoError(t, err)
	require.NoError(t, m.Release(h, WithoutScan()))
}
