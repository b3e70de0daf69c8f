package primitives

import (
	"os"
	"path/filepath"

	"github.com/OneOfOne/xxhash"
)

// Filepath is a type-safe wrapper around file paths used for heap files.
//
// Example usage:
//
//	dataDir := primitives.Filepath("/data")
//	tablePath := dataDir.Join("users.dat")
//	id := tablePath.Hash()
type Filepath string

// Canonical returns the absolute, cleaned form of the path. If the absolute
// path cannot be resolved the cleaned relative path is returned instead.
func (f Filepath) Canonical() Filepath {
	abs, err := filepath.Abs(string(f))
	if err != nil {
		return Filepath(filepath.Clean(string(f)))
	}
	return Filepath(abs)
}

// Hash derives the FileID for this path with xxhash over the canonical path,
// so "./a.dat" and "/cwd/a.dat" identify the same file.
//
// Example:
//
//	path := primitives.Filepath("/data/users.dat")
//	fileID := path.Hash() // Returns consistent ID for this path
func (f Filepath) Hash() FileID {
	h := xxhash.New64()
	_, _ = h.Write([]byte(f.Canonical()))
	id := FileID(h.Sum64())
	if !id.IsValid() {
		id = 1
	}
	return id
}

// Dir returns the directory portion of the file path.
func (f Filepath) Dir() Filepath {
	return Filepath(filepath.Dir(string(f)))
}

// Base returns the last element of the file path.
func (f Filepath) Base() string {
	return filepath.Base(string(f))
}

// Join appends path elements to this path.
func (f Filepath) Join(elem ...string) Filepath {
	parts := append([]string{string(f)}, elem...)
	return Filepath(filepath.Join(parts...))
}

// Exists reports whether a file exists at this path.
func (f Filepath) Exists() bool {
	_, err := os.Stat(string(f))
	return err == nil
}

// MkdirAll creates the directory at this path along with any missing parents.
func (f Filepath) MkdirAll(perm os.FileMode) error {
	return os.MkdirAll(string(f), perm)
}

// String returns the path as a plain string.
func (f Filepath) String() string {
	return string(f)
}
