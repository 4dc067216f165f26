package shellprofile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/swipswaps/cursor-appimage-installer/internal/logger"
)

const (
	// GPUCompatLine forces software rendering for constrained display
	// environments. It takes effect in future shell sessions only.
	GPUCompatLine = "export LIBGL_ALWAYS_SOFTWARE=1"

	// gpuCompatComment precedes the export line so users know its origin.
	gpuCompatComment = "# Cursor IDE GPU compatibility fix"

	// profilePermissions is used only when the profile file does not exist yet.
	profilePermissions = 0o644
)

// EnsureLine appends the given line to the profile file unless an exact
// occurrence is already present. Existing content is never rewritten.
// It reports whether the line was appended.
func EnsureLine(ctx context.Context, path, line string) (bool, error) {
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("read profile: %w", err)
	}

	if strings.Contains(string(content), line) {
		logger.Infof(ctx, "Environment variable already present in %s", path)
		return false, nil
	}

	file, err := os.OpenFile(filepath.Clean(path),
		os.O_APPEND|os.O_CREATE|os.O_WRONLY, profilePermissions)
	if err != nil {
		return false, fmt.Errorf("open profile: %w", err)
	}

	defer func() {
		_ = file.Close()
	}()

	if _, err = fmt.Fprintf(file, "\n%s\n%s\n", gpuCompatComment, line); err != nil {
		return false, fmt.Errorf("append to profile: %w", err)
	}

	logger.Infof(ctx, "Added %s to %s", line, path)
	logger.Warn(ctx, "Log out or run `source "+path+"` for the change to take effect.")

	return true, nil
}

// EnsureGPUCompat appends the fixed GPU compatibility export to the profile.
func EnsureGPUCompat(ctx context.Context, path string) (bool, error) {
	return EnsureLine(ctx, path, GPUCompatLine)
}
