package dircache

import "path/filepath"

const (
	// stubSuffix terminates access stub file names: <version>_dir.expiry.
	stubSuffix = "_dir.expiry"

	// lockSuffix terminates lock file names. Locks live in dedicated files
	// so an atomic rename of the guarded file never drops the lock.
	lockSuffix = ".lock"

	// centralLockName is the per-base lock serializing lock-file lifecycle.
	// It cannot collide with a version lock: "central" is not a parseable
	// version, so no version directory can claim the name.
	centralLockName = "central" + lockSuffix
)

func centralLockPath(base string) string {
	return filepath.Join(base, centralLockName)
}

func versionLockPath(base, version string) string {
	return filepath.Join(base, version+lockSuffix)
}

func stubPath(base, version string) string {
	return filepath.Join(base, version+stubSuffix)
}

func stubLockPath(base, version string) string {
	return stubPath(base, version) + lockSuffix
}

// splitVersionDir resolves a versioned directory path into its absolute
// form, the base directory, and the version name.
func splitVersionDir(path string) (abs, base, name string, err error) {
	abs, err = filepath.Abs(path)
	if err != nil {
		return "", "", "", err
	}
	abs = filepath.Clean(abs)
	return abs, filepath.Dir(abs), filepath.Base(abs), nil
}
