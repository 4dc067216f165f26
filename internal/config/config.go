package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

// Config holds every tunable of the install pipeline. All fields have
// working defaults; a settings file only needs the keys it overrides.
type Config struct {
	// AppName is the display name used in logs, the desktop entry and the icon.
	AppName string `yaml:"app_name"`
	// APIEndpoint is the release API queried for the latest download.
	APIEndpoint string `yaml:"api_endpoint"`
	// Platform identifies the artifact flavor in the API query.
	Platform string `yaml:"platform"`
	// ReleaseTrack selects the version line the API resolves (e.g. stable).
	ReleaseTrack string `yaml:"release_track"`
	// IconURLs are tried in order; the first non-empty 2xx body wins.
	IconURLs []string `yaml:"icon_urls"`
	// InstallDir is where the AppImage, icon and version marker live.
	InstallDir string `yaml:"install_dir"`
	// DesktopDir is where the .desktop entry is written.
	DesktopDir string `yaml:"desktop_dir"`
	// ProfilePath is the shell profile receiving the GPU compatibility export.
	ProfilePath string `yaml:"profile_path"`
	// RequestTimeout bounds the release API request.
	RequestTimeout time.Duration `yaml:"request_timeout"`
	// DownloadTimeout bounds a single artifact download attempt.
	DownloadTimeout time.Duration `yaml:"download_timeout"`
	// DownloadRetries is the number of attempts for network operations.
	DownloadRetries int `yaml:"download_retries"`
	// ExpectedSHA256 is an optional caller-supplied reference digest for the
	// artifact, hex-encoded. Empty means no integrity reference is available.
	ExpectedSHA256 string `yaml:"expected_sha256"`
}

const (
	// DefaultAppName is the application this installer manages.
	DefaultAppName = "Cursor"

	// DefaultAPIEndpoint is the release API queried for download info.
	DefaultAPIEndpoint = "https://www.cursor.com/api/download"

	// DefaultPlatform identifies the Linux x86-64 artifact.
	DefaultPlatform = "linux-x64"

	// DefaultReleaseTrack selects the stable version line.
	DefaultReleaseTrack = "stable"

	// DefaultRequestTimeout bounds the release API request.
	DefaultRequestTimeout = 15 * time.Second

	// DefaultDownloadTimeout bounds a single artifact download attempt.
	DefaultDownloadTimeout = 60 * time.Second

	// DefaultDownloadRetries is the bounded retry count for network operations.
	DefaultDownloadRetries = 3

	// DefaultFilePermissions is the permission for files written by the installer.
	DefaultFilePermissions = 0o600

	// sha256HexLength is the length of a hex-encoded SHA-256 digest.
	sha256HexLength = 64
)

var (
	// errAppNameRequired is returned when the application name is empty.
	errAppNameRequired = errors.New("application name must be provided")
	// errBadDigest is returned when the expected digest is not valid SHA-256 hex.
	errBadDigest = errors.New("expected_sha256 must be a hex-encoded SHA-256 digest")
)

// defaultIconURLs returns the ordered remote icon sources.
func defaultIconURLs() []string {
	return []string{
		"https://www.cursor.com/assets/images/logo.png",
		"https://www.cursor.com/favicon.png",
		"https://raw.githubusercontent.com/getcursor/cursor/main/resources/icon.png",
	}
}

// Default builds the configuration used when no settings file is provided.
// Paths are resolved against the current user's home and XDG data directory.
func Default() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}

	cfg := &Config{
		AppName:         DefaultAppName,
		APIEndpoint:     DefaultAPIEndpoint,
		Platform:        DefaultPlatform,
		ReleaseTrack:    DefaultReleaseTrack,
		IconURLs:        defaultIconURLs(),
		InstallDir:      filepath.Join(home, "Applications", "cursor"),
		DesktopDir:      filepath.Join(xdg.DataHome, "applications"),
		ProfilePath:     filepath.Join(home, ".profile"),
		RequestTimeout:  DefaultRequestTimeout,
		DownloadTimeout: DefaultDownloadTimeout,
		DownloadRetries: DefaultDownloadRetries,
	}

	return cfg, nil
}

// Load reads settings from the provided path, fills unset fields with
// defaults, and validates the result. An empty path yields pure defaults.
func Load(path string) (*Config, error) {
	defaults, err := Default()
	if err != nil {
		return nil, err
	}

	if path == "" {
		return defaults, nil
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	cfg := defaults
	if err = yaml.Unmarshal(contents, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err = Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the configuration to the provided path with restricted permissions.
func Save(path string, cfg *Config) error {
	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err = os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks required fields and normalizes zero values to defaults.
func Validate(cfg *Config) error {
	if cfg.AppName == "" {
		return errAppNameRequired
	}

	if _, err := url.ParseRequestURI(cfg.APIEndpoint); err != nil {
		return fmt.Errorf("invalid API endpoint: %w", err)
	}

	for _, iconURL := range cfg.IconURLs {
		if _, err := url.ParseRequestURI(iconURL); err != nil {
			return fmt.Errorf("invalid icon URL %q: %w", iconURL, err)
		}
	}

	if cfg.ExpectedSHA256 != "" {
		raw, err := hex.DecodeString(cfg.ExpectedSHA256)
		if err != nil || len(raw)*2 != sha256HexLength {
			return errBadDigest
		}
	}

	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}

	if cfg.DownloadTimeout <= 0 {
		cfg.DownloadTimeout = DefaultDownloadTimeout
	}

	if cfg.DownloadRetries <= 0 {
		cfg.DownloadRetries = DefaultDownloadRetries
	}

	return nil
}
