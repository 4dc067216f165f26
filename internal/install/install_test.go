package install

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/swipswaps/cursor-appimage-installer/internal/config"
	"github.com/swipswaps/cursor-appimage-installer/internal/repository/marker"
)

// testLayout builds a layout rooted in a fresh temp directory.
func testLayout(t *testing.T) Layout {
	t.Helper()

	base := t.TempDir()

	return NewLayout(&config.Config{
		AppName:    "Cursor",
		InstallDir: filepath.Join(base, "Applications", "cursor"),
		DesktopDir: filepath.Join(base, "applications"),
	})
}

// writeArtifact stores payload as a fake downloaded artifact and returns its path and digest.
func writeArtifact(t *testing.T, payload []byte) (string, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "artifact.partial")
	require.NoError(t, os.WriteFile(path, payload, 0o600))

	sum := sha256.Sum256(payload)

	return path, hex.EncodeToString(sum[:])
}

// TestNewLayout derives every path from the configured directories.
func TestNewLayout(t *testing.T) {
	t.Parallel()

	layout := NewLayout(&config.Config{
		AppName:    "Cursor",
		InstallDir: "/home/u/Applications/cursor",
		DesktopDir: "/home/u/.local/share/applications",
	})

	require.Equal(t, "/home/u/Applications/cursor/cursor.AppImage", layout.ExecutablePath)
	require.Equal(t, "/home/u/Applications/cursor/cursor.png", layout.IconPath)
	require.Equal(t, "/home/u/Applications/cursor/.version", layout.VersionPath)
	require.Equal(t, "/home/u/.local/share/applications/cursor.desktop", layout.DesktopPath)
}

// TestApply installs the artifact, sets the executable bit, and records the version.
func TestApply(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	layout := testLayout(t)
	payload := []byte("fake appimage payload")
	artifact, digest := writeArtifact(t, payload)

	require.NoError(t, Apply(ctx, layout, artifact, "1.4.5", digest))

	// Executable is in place with owner-executable mode.
	info, err := os.Stat(layout.ExecutablePath)
	require.NoError(t, err)
	require.Equal(t, ExecutableMode, info.Mode().Perm())

	got, err := os.ReadFile(layout.ExecutablePath)
	require.NoError(t, err)
	require.Equal(t, payload, got)

	// Marker matches the release version.
	recorded, err := marker.NewFileRepository(layout.VersionPath).Load(ctx)
	require.NoError(t, err)
	require.Equal(t, "1.4.5", recorded)

	// Consumed artifact is gone.
	require.NoFileExists(t, artifact)
}

// TestApplyChecksumMismatch never produces an executable or a marker.
func TestApplyChecksumMismatch(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	layout := testLayout(t)
	artifact, _ := writeArtifact(t, []byte("tampered payload"))

	wrong := hex.EncodeToString(make([]byte, sha256.Size))
	require.Error(t, Apply(ctx, layout, artifact, "1.4.5", wrong))

	require.NoFileExists(t, layout.ExecutablePath)

	_, err := marker.NewFileRepository(layout.VersionPath).Load(ctx)
	require.ErrorIs(t, err, marker.ErrNotFound)
}

// TestApplyWithoutReferenceDigest installs when no checksum was supplied.
func TestApplyWithoutReferenceDigest(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	layout := testLayout(t)
	artifact, _ := writeArtifact(t, []byte("unverified payload"))

	require.NoError(t, Apply(ctx, layout, artifact, "1.4.5", ""))
	require.FileExists(t, layout.ExecutablePath)
}

// TestApplyOverwritesPrevious replaces an existing install and its marker.
func TestApplyOverwritesPrevious(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	layout := testLayout(t)

	first, firstDigest := writeArtifact(t, []byte("version one"))
	require.NoError(t, Apply(ctx, layout, first, "1.4.4", firstDigest))

	second, secondDigest := writeArtifact(t, []byte("version two"))
	require.NoError(t, Apply(ctx, layout, second, "1.4.5", secondDigest))

	got, err := os.ReadFile(layout.ExecutablePath)
	require.NoError(t, err)
	require.Equal(t, []byte("version two"), got)

	recorded, err := marker.NewFileRepository(layout.VersionPath).Load(ctx)
	require.NoError(t, err)
	require.Equal(t, "1.4.5", recorded)

	// go-update's backup of the previous executable is cleaned up.
	require.NoFileExists(t, layout.ExecutablePath+".old")
}
