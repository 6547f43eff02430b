package dircache

import (
	"sort"

	"github.com/Masterminds/semver/v3"

	errUtils "github.com/cachekeep/cachekeep/errors"
)

// Version is a parsed version directory name. Comparisons follow semantic
// versioning (lenient: "1.2" and "v1.2.3" both parse); String returns the
// original token so directory and stub names round-trip byte for byte.
type Version struct {
	v *semver.Version
}

// ParseVersion parses a version directory name.
func ParseVersion(name string) (Version, error) {
	v, err := semver.NewVersion(name)
	if err != nil {
		return Version{}, errUtils.Build(errUtils.ErrInvalidVersion).
			WithCause(err).
			WithContext("version", name).
			Err()
	}
	return Version{v: v}, nil
}

// MustParseVersion parses a version directory name and panics on failure.
// Intended for tests and constants.
func MustParseVersion(name string) Version {
	v, err := ParseVersion(name)
	if err != nil {
		panic(err)
	}
	return v
}

// String returns the original version token.
func (v Version) String() string {
	if v.v == nil {
		return ""
	}
	return v.v.Original()
}

// IsZero reports whether v is the zero Version (nothing parsed).
func (v Version) IsZero() bool {
	return v.v == nil
}

// Compare returns -1, 0, or 1 when v is semantically less than, equal to,
// or greater than o.
func (v Version) Compare(o Version) int {
	return v.v.Compare(o.v)
}

// LessThan reports whether v is semantically older than o.
func (v Version) LessThan(o Version) bool {
	return v.v.LessThan(o.v)
}

// AtLeast reports whether v is semantically o or newer. This is the expiry
// protection predicate: a candidate AtLeast the reference is never removed.
func (v Version) AtLeast(o Version) bool {
	return v.v.Compare(o.v) >= 0
}

// SortVersions orders versions oldest first.
func SortVersions(versions []Version) {
	sort.Slice(versions, func(i, j int) bool {
		return versions[i].LessThan(versions[j])
	})
}
