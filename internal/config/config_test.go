package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestDefault checks that defaults are complete and rooted in the user's home.
func TestDefault(t *testing.T) {
	t.Parallel()

	cfg, err := Default()
	require.NoError(t, err)

	home, err := os.UserHomeDir()
	require.NoError(t, err)

	require.Equal(t, DefaultAppName, cfg.AppName)
	require.Equal(t, DefaultAPIEndpoint, cfg.APIEndpoint)
	require.Equal(t, DefaultPlatform, cfg.Platform)
	require.Equal(t, DefaultReleaseTrack, cfg.ReleaseTrack)
	require.True(t, strings.HasPrefix(cfg.InstallDir, home))
	require.True(t, strings.HasSuffix(cfg.ProfilePath, ".profile"))
	require.NotEmpty(t, cfg.IconURLs)
	require.NoError(t, Validate(cfg))
}

// TestValidate checks required fields and format validations.
func TestValidate(t *testing.T) {
	t.Parallel()

	// Missing application name.
	err := Validate(new(Config))
	require.Error(t, err)

	// Bad API endpoint.
	cfg := &Config{AppName: "Cursor", APIEndpoint: "not a url"}
	require.Error(t, Validate(cfg))

	// Bad reference digest.
	cfg = &Config{
		AppName:        "Cursor",
		APIEndpoint:    "https://example.com/api/download",
		ExpectedSHA256: "zzzz",
	}
	require.Error(t, Validate(cfg))

	// Valid config gets zero timeouts normalized.
	cfg = &Config{
		AppName:     "Cursor",
		APIEndpoint: "https://example.com/api/download",
	}
	require.NoError(t, Validate(cfg))
	require.Equal(t, DefaultRequestTimeout, cfg.RequestTimeout)
	require.Equal(t, DefaultDownloadRetries, cfg.DownloadRetries)
}

// TestSaveLoadRoundtrip ensures settings are persisted and loaded back correctly.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")

	cfg, err := Default()
	require.NoError(t, err)

	cfg.ReleaseTrack = "latest"
	cfg.DownloadRetries = 5
	cfg.RequestTimeout = 2 * time.Second

	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "latest", loaded.ReleaseTrack)
	require.Equal(t, 5, loaded.DownloadRetries)
	require.Equal(t, 2*time.Second, loaded.RequestTimeout)
}

// TestLoadEmptyPath ensures an empty path yields pure defaults.
func TestLoadEmptyPath(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, DefaultAPIEndpoint, cfg.APIEndpoint)
}

// TestLoadOverridesKeepDefaults ensures a partial file overrides only its keys.
func TestLoadOverridesKeepDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("release_track: nightly\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "nightly", cfg.ReleaseTrack)
	require.Equal(t, DefaultAPIEndpoint, cfg.APIEndpoint)
	require.NotEmpty(t, cfg.InstallDir)
}
