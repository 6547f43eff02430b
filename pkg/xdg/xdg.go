// Package xdg resolves XDG base directories for cachekeep.
//
// Paths follow the XDG Base Directory Specification via github.com/adrg/xdg,
// with two extensions: every path gets a "cachekeep" application subdirectory,
// and each base can be overridden with a CACHEKEEP_XDG_* environment variable
// so containerized setups can relocate state without touching the global XDG
// variables.
package xdg

import (
	"os"
	"path/filepath"
	"runtime"

	adrg "github.com/adrg/xdg"
	"github.com/cockroachdb/errors"

	errUtils "github.com/cachekeep/cachekeep/errors"
)

// appSubdir is the application directory appended to every XDG base.
const appSubdir = "cachekeep"

// ErrDirCreate indicates an XDG directory could not be created.
var ErrDirCreate = errors.New("failed to create directory")

func init() {
	// adrg/xdg follows Apple conventions on macOS (~/Library/Caches and
	// friends). CLI tools conventionally use the Unix-style dotted paths, so
	// override the defaults unless the user set the XDG variables themselves.
	if runtime.GOOS != "darwin" {
		return
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return
	}

	if os.Getenv("XDG_CONFIG_HOME") == "" {
		adrg.ConfigHome = filepath.Join(home, ".config")
	}
	if os.Getenv("XDG_DATA_HOME") == "" {
		adrg.DataHome = filepath.Join(home, ".local", "share")
	}
	if os.Getenv("XDG_CACHE_HOME") == "" {
		adrg.CacheHome = filepath.Join(home, ".cache")
	}
}

// GetXDGCacheDir returns the cachekeep cache directory joined with subpath,
// creating it with the given permissions. CACHEKEEP_XDG_CACHE_HOME overrides
// the XDG cache root.
func GetXDGCacheDir(subpath string, perm os.FileMode) (string, error) {
	return makeDir("CACHEKEEP_XDG_CACHE_HOME", "XDG_CACHE_HOME", adrg.CacheHome, subpath, perm)
}

// GetXDGConfigDir returns the cachekeep config directory joined with subpath,
// creating it with the given permissions. CACHEKEEP_XDG_CONFIG_HOME overrides
// the XDG config root.
func GetXDGConfigDir(subpath string, perm os.FileMode) (string, error) {
	return makeDir("CACHEKEEP_XDG_CONFIG_HOME", "XDG_CONFIG_HOME", adrg.ConfigHome, subpath, perm)
}

// GetXDGDataDir returns the cachekeep data directory joined with subpath,
// creating it with the given permissions. CACHEKEEP_XDG_DATA_HOME overrides
// the XDG data root.
func GetXDGDataDir(subpath string, perm os.FileMode) (string, error) {
	return makeDir("CACHEKEEP_XDG_DATA_HOME", "XDG_DATA_HOME", adrg.DataHome, subpath, perm)
}

// makeDir resolves the base directory with precedence: cachekeep override
// env var, standard XDG env var, library default. The env vars are read on
// every call so tests and long-lived callers see updates.
func makeDir(overrideEnv, stdEnv, fallback, subpath string, perm os.FileMode) (string, error) {
	base := fallback
	if v := os.Getenv(stdEnv); v != "" {
		base = v
	}
	if v := os.Getenv(overrideEnv); v != "" {
		base = v
	}

	dir := filepath.Join(base, appSubdir, subpath)
	if err := os.MkdirAll(dir, perm); err != nil {
		return "", errUtils.Build(ErrDirCreate).
			WithCause(err).
			WithContext("path", dir).
			Err()
	}

	return dir, nil
}
