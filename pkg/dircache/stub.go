package dircache

import (
	"time"

	"go.yaml.in/yaml/v3"

	errUtils "github.com/cachekeep/cachekeep/errors"
)

// stubFormatVersion is written into every stub. It is informational:
// readers accept any value and rely on the field names.
const stubFormatVersion = "1.0"

const secondsPerDay = 24 * 60 * 60

// accessRecord is the on-disk schema of an access stub.
type accessRecord struct {
	// FormatVersion identifies the stub schema.
	FormatVersion string `yaml:"expiry_format_version"`

	// AccessDay is the UTC day number (days since the Unix epoch) of the
	// last recorded access. Day granularity keeps stamping cheap: repeat
	// accesses within a day need no write at all.
	AccessDay int64 `yaml:"access_date"`
}

// dayOf converts a wall-clock time to its UTC day number.
func dayOf(t time.Time) int64 {
	return t.Unix() / secondsPerDay
}

// dayToTime converts a UTC day number to the midnight beginning it.
func dayToTime(day int64) time.Time {
	return time.Unix(day*secondsPerDay, 0).UTC()
}

// today returns the current UTC day number.
func today() int64 {
	return dayOf(time.Now())
}

// readStub reads and decodes the access stub at path.
func (m *Manager) readStub(path string) (accessRecord, error) {
	var rec accessRecord

	data, err := m.fs.ReadFile(path)
	if err != nil {
		return rec, errUtils.Build(errUtils.ErrStubRead).
			WithCause(err).
			WithContext("path", path).
			Err()
	}

	if err := yaml.Unmarshal(data, &rec); err != nil {
		return rec, errUtils.Build(errUtils.ErrStubUnmarshal).
			WithCause(err).
			WithContext("path", path).
			Err()
	}

	return rec, nil
}

// writeStub encodes and atomically writes the access stub at path. A failed
// write leaves any previous stub intact.
func (m *Manager) writeStub(path string, rec accessRecord) error {
	data, err := yaml.Marshal(rec)
	if err != nil {
		return errUtils.Build(errUtils.ErrStubMarshal).
			WithCause(err).
			WithContext("path", path).
			Err()
	}

	if err := m.fs.WriteFileAtomic(path, data, DefaultFilePerm); err != nil {
		return errUtils.Build(errUtils.ErrStubWrite).
			WithCause(err).
			WithContext("path", path).
			Err()
	}

	return nil
}

// stubExists reports whether a stub file is present at path.
func (m *Manager) stubExists(path string) bool {
	_, err := m.fs.Stat(path)
	return err == nil
}
