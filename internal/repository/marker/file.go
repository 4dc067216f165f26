package marker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/swipswaps/cursor-appimage-installer/internal/config"
)

// Repository defines persistence operations for the installed-version marker.
type Repository interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, version string) error
}

// FileRepository persists the installed version as a single-line file.
// Writes go through a temporary file in the same directory followed by a
// rename, so readers never observe a half-written marker.
type FileRepository struct {
	// path is the filesystem location of the marker file.
	path string
}

var (
	// ErrNotFound is returned when no marker exists yet (no prior install).
	ErrNotFound = errors.New("version marker not found")
	// errEmptyVersion is returned when saving a blank version string.
	errEmptyVersion = errors.New("version must not be empty")
)

// NewFileRepository creates a repository that reads/writes the marker at the provided path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// Load reads the recorded version from disk.
func (r *FileRepository) Load(_ context.Context) (string, error) {
	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNotFound
		}

		return "", fmt.Errorf("read version marker: %w", err)
	}

	return strings.TrimSpace(string(contents)), nil
}

// Save atomically writes the version marker. Callers must invoke this only
// after the executable it describes is finalized on disk.
func (r *FileRepository) Save(_ context.Context, version string) error {
	version = strings.TrimSpace(version)
	if version == "" {
		return errEmptyVersion
	}

	tempFile, err := os.CreateTemp(filepath.Dir(r.path), ".version-*")
	if err != nil {
		return fmt.Errorf("create marker temp file: %w", err)
	}

	tempPath := tempFile.Name()

	if _, err = tempFile.WriteString(version + "\n"); err != nil {
		_ = tempFile.Close()
		_ = os.Remove(tempPath)

		return fmt.Errorf("write version marker: %w", err)
	}

	if err = tempFile.Close(); err != nil {
		_ = os.Remove(tempPath)

		return fmt.Errorf("close version marker: %w", err)
	}

	if err = os.Chmod(tempPath, config.DefaultFilePermissions); err != nil {
		_ = os.Remove(tempPath)

		return fmt.Errorf("chmod version marker: %w", err)
	}

	if err = os.Rename(tempPath, r.path); err != nil {
		_ = os.Remove(tempPath)

		return fmt.Errorf("finalize version marker: %w", err)
	}

	return nil
}
