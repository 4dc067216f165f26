package install

import (
	"bytes"
	"context"
	"crypto"
	"encoding/hex"
	"fmt"
	"os"

	goupdate "github.com/doitdistributed/go-update"

	"github.com/swipswaps/cursor-appimage-installer/internal/logger"
	"github.com/swipswaps/cursor-appimage-installer/internal/repository/marker"

	// Ensure SHA256 is available for artifact verification.
	_ "crypto/sha256"
)

const (
	// DirPermissions keeps the install directory private to the user.
	DirPermissions os.FileMode = 0o700

	// ExecutableMode is applied to the installed AppImage.
	ExecutableMode os.FileMode = 0o755
)

// Apply moves a verified temporary artifact into its final place.
// The executable is applied atomically with the requested mode; the version
// marker is written strictly afterwards, so a marker on disk always
// describes a finalized executable. The consumed artifact is removed.
func Apply(ctx context.Context, layout Layout, artifactPath, releaseVersion, expectedSHA256 string) error {
	if err := os.MkdirAll(layout.Dir, DirPermissions); err != nil {
		return fmt.Errorf("create install directory: %w", err)
	}

	data, err := os.ReadFile(artifactPath)
	if err != nil {
		return fmt.Errorf("read downloaded artifact: %w", err)
	}

	options := goupdate.Options{
		TargetPath: layout.ExecutablePath,
		TargetMode: ExecutableMode,
		Hash:       crypto.SHA256,
	}

	if expectedSHA256 != "" {
		checksum, decodeErr := hex.DecodeString(expectedSHA256)
		if decodeErr != nil {
			return fmt.Errorf("decode reference digest: %w", decodeErr)
		}

		options.Checksum = checksum
	}

	if err = goupdate.Apply(bytes.NewReader(data), options); err != nil {
		return fmt.Errorf("apply artifact: %w", err)
	}

	_ = os.Remove(artifactPath)

	if oldPath := layout.ExecutablePath + ".old"; fileExists(oldPath) {
		_ = os.Remove(oldPath)
	}

	repo := marker.NewFileRepository(layout.VersionPath)
	if err = repo.Save(ctx, releaseVersion); err != nil {
		return fmt.Errorf("record installed version: %w", err)
	}

	logger.Infof(ctx, "AppImage installed to %s", layout.ExecutablePath)

	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)

	return err == nil
}
