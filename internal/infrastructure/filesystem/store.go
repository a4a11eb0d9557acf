package filesystem

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Store manages the upload and output directory roots on local disk.
type Store struct {
	UploadsDir string
	OutputDir  string
}

// NewStore creates a filesystem adapter with configured roots.
func NewStore(uploadsDir, outputDir string) *Store {
	return &Store{UploadsDir: uploadsDir, OutputDir: outputDir}
}

// EnsureDirs creates the filesystem roots used by the service.
func (s *Store) EnsureDirs() error {
	if err := os.MkdirAll(s.UploadsDir, 0o755); err != nil {
		return err
	}
	if err := os.MkdirAll(s.OutputDir, 0o755); err != nil {
		return err
	}
	return nil
}

// SaveUpload writes an incoming file under a collision-resistant stored
// name and returns its path and byte count.
func (s *Store) SaveUpload(storedName string, r io.Reader) (string, int64, error) {
	full := filepath.Join(s.UploadsDir, SanitizeName(storedName))

	dst, err := os.Create(full)
	if err != nil {
		return "", 0, fmt.Errorf("create upload file: %w", err)
	}
	defer dst.Close()

	written, err := io.Copy(dst, r)
	if err != nil {
		_ = os.Remove(full)
		return "", 0, fmt.Errorf("write upload file: %w", err)
	}
	return full, written, nil
}

// OutputPath builds the on-disk location for a conversion result. The
// conversion id prefix keeps concurrent jobs from colliding on equal
// output names.
func (s *Store) OutputPath(conversionID, outputFilename string) string {
	return filepath.Join(s.OutputDir, conversionID+"-"+SanitizeName(outputFilename))
}

// Remove deletes a stored file. A missing file is not an error.
func (s *Store) Remove(path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// FileExists reports whether a regular file is present at path.
func (s *Store) FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// SanitizeName flattens a client-supplied name to a bare file name so it
// cannot escape the storage roots.
func SanitizeName(raw string) string {
	name := strings.ReplaceAll(raw, "\\", "/")
	name = filepath.Base(name)
	if name == "" || name == "." || name == "/" {
		return "file"
	}
	return name
}
