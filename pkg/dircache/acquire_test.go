package dircache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errUtils "github.com/cachekeep/cachekeep/errors"
)

func TestAcquireCreatesDirectory(t *testing.T) {
	m, base, _ := newTestManager(t)
	dir := filepath.Join(base, "1.2.3")

	h, err := m.Acquire(dir)
	require.NoError(t, err)

	info, statErr := os.Stat(dir)
	require.NoError(t, statErr)
	assert.True(t, info.IsDir())

	assert.Equal(t, dir, h.Dir())
	assert.Equal(t, "1.2.3", h.Version().String())
	assert.False(t, h.Exclusive())

	require.NoError(t, m.Release(h, WithoutScan()))
}

func TestAcquireInvalidVersion(t *testing.T) {
	m, base, _ := newTestManager(t)

	_, err := m.Acquire(filepath.Join(base, "scratch"))
	require.Error(t, err)
	assert.ErrorIs(t, err, errUtils.ErrInvalidVersion)
}

func TestAcquireModeConflicts(t *testing.T) {
	tests := []struct {
		name  string
		first []AcquireOption
		then  []AcquireOption
	}{
		{name: "exclusive while shared", first: nil, then: []AcquireOption{WithExclusive()}},
		{name: "shared while exclusive", first: []AcquireOption{WithExclusive()}, then: nil},
		{name: "exclusive while exclusive", first: []AcquireOption{WithExclusive()}, then: []AcquireOption{WithExclusive()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, base, _ := newTestManager(t)
			dir := filepath.Join(base, "1.2.3")

			h, err := m.Acquire(dir, tt.first...)
			require.NoError(t, err)
			defer func() {
				require.NoError(t, m.Release(h, WithoutScan()))
			}()

			_, err = m.Acquire(dir, tt.then...)
			require.Error(t, err)
			assert.ErrorIs(t, err, errUtils.ErrLockModeConflict)
		})
	}
}

func TestAcquireSharedReentrant(t *testing.T) {
	m, base, _ := newTestManager(t)
	dir := filepath.Join(base, "1.2.3")

	h1, err := m.Acquire(dir)
	require.NoError(t, err)
	h2, err := m.Acquire(dir)
	require.NoError(t, err)

	require.NoError(t, m.Release(h1, WithoutScan()))

	// Still held through h2, so exclusive must keep failing.
	_, err = m.Acquire(dir, WithExclusive())
	assert.ErrorIs(t, err, errUtils.ErrLockModeConflict)

	require.NoError(t, m.Release(h2, WithoutScan()))

	h3, err := m.Acquire(dir, WithExclusive())
	require.NoError(t, err)
	require.NoError(t, m.Release(h3, WithoutScan()))
}

func TestReleaseTwice(t *testing.T) {
	m, base, _ := newTestManager(t)

	h, err := m.Acquire(filepath.Join(base, "1.2.3"))
	require.NoError(t, err)

	require.NoError(t, m.Release(h, WithoutScan()))

	err = m.Release(h, WithoutScan())
	require.Error(t, err)
	assert.ErrorIs(t, err, errUtils.ErrLockReleased)
}

func TestReleaseNilHandle(t *testing.T) {
	m, _, _ := newTestManager(t)

	err := m.Release(nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, errUtils.ErrLockReleased)
}

func TestAcquireTimeoutOnHeldVersion(t *testing.T) {
	m1, m2, base, _ := newTestManagerPair(t)
	dir := filepath.Join(base, "1.2.3")

	h, err := m1.Acquire(dir, WithExclusive())
	require.NoError(t, err)
	defer func() {
		require.NoError(t, m1.Release(h, WithoutScan()))
	}()

	start := time.Now()
	_, err = m2.Acquire(dir, WithTimeout(80*time.Millisecond))
	require.Error(t, err)
	assert.ErrorIs(t, err, errUtils.ErrLockTimeout)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestAcquireManagerDefaultTimeout(t *testing.T) {
	m, base, locks := newTestManager(t, WithLockTimeout(80*time.Millisecond))
	dir := filepath.Join(base, "1.2.3")

	locks.holdExclusive(versionLockPath(base, "1.2.3"))
	defer locks.releaseExclusive(versionLockPath(base, "1.2.3"))

	_, err := m.Acquire(dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, errUtils.ErrLockTimeout)
}

func TestAcquireTimeoutOnHeldCentral(t *testing.T) {
	m, base, locks := newTestManager(t)

	locks.holdExclusive(centralLockPath(base))
	defer locks.releaseExclusive(centralLockPath(base))

	_, err := m.Acquire(filepath.Join(base, "1.2.3"), WithTimeout(80*time.Millisecond))
	require.Error(t, err)
	assert.ErrorIs(t, err, errUtils.ErrLockTimeout)
}

func TestAcquireSharedAcrossManagers(t *testing.T) {
	m1, m2, base, locks := newTestManagerPair(t)
	dir := filepath.Join(base, "1.2.3")

	h1, err := m1.Acquire(dir)
	require.NoError(t, err)
	h2, err := m2.Acquire(dir)
	require.NoError(t, err)

	// A third party cannot write while readers hold the directory.
	m3, err := New(WithLockFactory(locks.factory))
	require.NoError(t, err)
	_, err = m3.Acquire(dir, WithExclusive(), WithTimeout(50*time.Millisecond))
	assert.ErrorIs(t, err, errUtils.ErrLockTimeout)

	require.NoError(t, m1.Release(h1, WithoutScan()))
	require.NoError(t, m2.Release(h2, WithoutScan()))

	h4, err := m3.Acquire(dir, WithExclusive())
	require.NoError(t, err)
	require.NoError(t, m3.Release(h4, WithoutScan()))
}

func TestAcquireWaitsForRelease(t *testing.T) {
	m1, m2, base, _ := newTestManagerPair(t)
	dir := filepath.Join(base, "1.2.3")

	h1, err := m1.Acquire(dir, WithExclusive())
	require.NoError(t, err)

	granted := make(chan *Handle, 1)
	go func() {
		h, err := m2.Acquire(dir, WithExclusive())
		if err == nil {
			granted <- h
		}
	}()

	select {
	case <-granted:
		t.Fatal("acquire must block while the lock is held elsewhere")
	case <-time.After(50 * time.Millisecond):
	}

	require.NoError(t, m1.Release(h1, WithoutScan()))

	select {
	case h2 := <-granted:
		require.NoError(t, m2.Release(h2, WithoutScan()))
	case <-time.After(5 * time.Second):
		t.Fatal("blocked acquire never resumed after release")
	}
}
