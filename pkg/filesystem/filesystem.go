// Package filesystem abstracts file I/O behind an interface so cache
// operations can be exercised against fakes in tests.
package filesystem

import (
	"os"
)

// FileSystem defines the filesystem operations used by cachekeep.
// This interface allows mocking of file I/O operations in tests.
type FileSystem interface {
	// Stat returns file info.
	Stat(name string) (os.FileInfo, error)

	// MkdirAll creates a directory and all parent directories.
	MkdirAll(path string, perm os.FileMode) error

	// ReadDir reads the named directory, returning its entries sorted by name.
	ReadDir(name string) ([]os.DirEntry, error)

	// ReadFile reads a file.
	ReadFile(name string) ([]byte, error)

	// WriteFile writes data to a file.
	WriteFile(name string, data []byte, perm os.FileMode) error

	// WriteFileAtomic writes data to a file so that readers either see the
	// previous content or the new content, never a partial write.
	WriteFileAtomic(name string, data []byte, perm os.FileMode) error

	// Remove removes a file or empty directory.
	Remove(name string) error

	// RemoveAll removes a path and any children.
	RemoveAll(path string) error
}

// OSFileSystem implements FileSystem using the os package.
type OSFileSystem struct{}

// NewOSFileSystem creates a new OS filesystem implementation.
func NewOSFileSystem() *OSFileSystem {
	return &OSFileSystem{}
}

// Stat returns file info.
func (OSFileSystem) Stat(name string) (os.FileInfo, error) {
	return os.Stat(name)
}

// MkdirAll creates a directory and all parent directories.
func (OSFileSystem) MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

// ReadDir reads the named directory.
func (OSFileSystem) ReadDir(name string) ([]os.DirEntry, error) {
	return os.ReadDir(name)
}

// ReadFile reads a file.
func (OSFileSystem) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(name)
}

// WriteFile writes data to a file.
func (OSFileSystem) WriteFile(name string, data []byte, perm os.FileMode) error {
	return os.WriteFile(name, data, perm)
}

// WriteFileAtomic writes data via a temp file in the same directory followed
// by a rename.
func (OSFileSystem) WriteFileAtomic(name string, data []byte, perm os.FileMode) error {
	return writeFileAtomicImpl(name, data, perm)
}

// Remove removes a file or empty directory.
func (OSFileSystem) Remove(name string) error {
	return os.Remove(name)
}

// RemoveAll removes a path and any children.
func (OSFileSystem) RemoveAll(path string) error {
	return os.RemoveAll(path)
}
