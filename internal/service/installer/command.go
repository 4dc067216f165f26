package installer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/swipswaps/cursor-appimage-installer/internal/config"
	"github.com/swipswaps/cursor-appimage-installer/internal/desktop"
	"github.com/swipswaps/cursor-appimage-installer/internal/download"
	"github.com/swipswaps/cursor-appimage-installer/internal/hostdeps"
	"github.com/swipswaps/cursor-appimage-installer/internal/install"
	"github.com/swipswaps/cursor-appimage-installer/internal/launcher"
	"github.com/swipswaps/cursor-appimage-installer/internal/logger"
	"github.com/swipswaps/cursor-appimage-installer/internal/release"
	"github.com/swipswaps/cursor-appimage-installer/internal/repository/marker"
	"github.com/swipswaps/cursor-appimage-installer/internal/shellprofile"
	"github.com/swipswaps/cursor-appimage-installer/internal/sysinfo"
)

// Options are inputs accepted by the installer entry point.
type Options struct {
	// ConfigPath is the optional path to a settings YAML file.
	ConfigPath string
	// Launch starts the application once the pipeline finishes.
	Launch bool
	// Force reinstalls even when the recorded version matches the remote one.
	Force bool
	// ExpectedSHA256 overrides the configured reference digest for the artifact.
	ExpectedSHA256 string
}

// Stage names tag fatal errors with the pipeline step that raised them.
const (
	stageEnvironment  = "environment check"
	stageDependencies = "dependency install"
	stageResolve      = "version resolve"
	stageDownload     = "download"
	stageInstall      = "install"
	stageDesktop      = "desktop entry"
)

// parentDirPermissions is used for the install directory's parent
// (~/Applications), which may be shared with other applications.
const parentDirPermissions os.FileMode = 0o755

// dependencyEnsurer abstracts the host dependency stage.
// Satisfied by hostdeps.Ensurer.
type dependencyEnsurer interface {
	Ensure(ctx context.Context) error
}

// runner holds the mutable state for a single install execution.
// It is intentionally unexported; call Run(ctx, Options) from callers.
type runner struct {
	cfg          *config.Config
	opts         *Options
	layout       install.Layout
	markers      marker.Repository
	deps         dependencyEnsurer
	release      *release.Release
	artifactPath string // In-flight download, removed by cleanup if still present.
	digest       string
}

// Run executes the install pipeline and is the public entry point for the CLI.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "cursor-installer")

	r, err := newRunner(opts)
	if err != nil {
		return err
	}

	defer r.cleanup(ctx)

	if err = r.Run(ctx); err != nil {
		logger.ErrorKV(ctx, "Install run failed", "error", err)
		return err
	}

	return nil
}

// newRunner loads configuration and derives the install layout.
func newRunner(opts *Options) (*runner, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	layout := install.NewLayout(cfg)

	return &runner{
		cfg:     cfg,
		opts:    opts,
		layout:  layout,
		markers: marker.NewFileRepository(layout.VersionPath),
		deps:    hostdeps.NewEnsurer(hostdeps.DefaultDependencies()),
	}, nil
}

// Run executes the pipeline top to bottom:
// 1) Check the host environment.
// 2) Ensure host dependencies.
// 3) Configure GPU compatibility in the shell profile (non-fatal).
// 4) Resolve the latest release and decide whether an update is needed.
// 5) Download and verify the artifact.
// 6) Install files and the icon, write the version marker.
// 7) Register the desktop entry.
// 8) Optionally restart the application.
func (r *runner) Run(ctx context.Context) error {
	if err := r.checkEnvironment(ctx); err != nil {
		return fmt.Errorf("%s: %w", stageEnvironment, err)
	}

	if err := r.ensureDependencies(ctx); err != nil {
		return fmt.Errorf("%s: %w", stageDependencies, err)
	}

	r.configureGPUCompat(ctx)

	updateNeeded, err := r.resolveAndDecide(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", stageResolve, err)
	}

	if !updateNeeded {
		r.launchIfRequested(ctx, false)
		return nil
	}

	if err = r.downloadArtifact(ctx); err != nil {
		return fmt.Errorf("%s: %w", stageDownload, err)
	}

	if err = r.installFiles(ctx); err != nil {
		return fmt.Errorf("%s: %w", stageInstall, err)
	}

	if err = r.registerDesktopEntry(ctx); err != nil {
		return fmt.Errorf("%s: %w", stageDesktop, err)
	}

	logger.Infof(ctx, "Installation of version %s complete!", r.release.Version)

	r.launchIfRequested(ctx, true)

	return nil
}

// checkEnvironment validates the host against minimum requirements.
func (r *runner) checkEnvironment(ctx context.Context) error {
	logger.Info(ctx, "Checking system requirements...")

	profile := sysinfo.Collect(ctx)
	logger.InfoKV(ctx, "Host profile",
		"os", profile.OSFamily,
		"platform", profile.Platform,
		"kernel", profile.KernelVersion,
		"arch", profile.Architecture)

	return sysinfo.Check(ctx, profile)
}

// ensureDependencies installs missing host tools in user scope.
func (r *runner) ensureDependencies(ctx context.Context) error {
	logger.Info(ctx, "Checking and installing required host dependencies...")

	return r.deps.Ensure(ctx)
}

// configureGPUCompat appends the software-rendering export to the shell
// profile. Failure here never blocks the install.
func (r *runner) configureGPUCompat(ctx context.Context) {
	logger.Info(ctx, "Configuring GPU compatibility settings...")

	if _, err := shellprofile.EnsureGPUCompat(ctx, r.cfg.ProfilePath); err != nil {
		logger.Warnf(ctx, "Failed to update %s: %v", r.cfg.ProfilePath, err)
	}
}

// resolveAndDecide queries the release API and compares against the
// recorded install. Returns whether the download stages should run.
func (r *runner) resolveAndDecide(ctx context.Context) (bool, error) {
	logger.Info(ctx, "Fetching latest AppImage info...")

	resolved, err := release.NewClient(r.cfg).Resolve(ctx)
	if err != nil {
		if r.layout.ExecutableExists() {
			logger.Warn(ctx, "The existing installation is untouched and remains usable.")
		}

		return false, err
	}

	r.release = resolved
	logger.InfoKV(ctx, "Found release",
		"version", resolved.Version, "commit", resolved.Commit)

	installedVersion, err := r.markers.Load(ctx)
	if err != nil && !errors.Is(err, marker.ErrNotFound) {
		return false, err
	}

	if r.opts.Force {
		logger.Info(ctx, "Forced reinstall requested")
		return true, nil
	}

	return release.NeedsUpdate(ctx, resolved, installedVersion, r.layout.ExecutableExists()), nil
}

// downloadArtifact streams the release into a temporary file next to the
// install directory and records its digest.
func (r *runner) downloadArtifact(ctx context.Context) error {
	logger.Infof(ctx, "Downloading version %s...", r.release.Version)

	stagingDir := filepath.Dir(r.layout.Dir)
	if err := os.MkdirAll(stagingDir, parentDirPermissions); err != nil {
		return fmt.Errorf("create staging directory: %w", err)
	}

	expected := r.opts.ExpectedSHA256
	if expected == "" {
		expected = r.cfg.ExpectedSHA256
	}

	artifactPath, digest, err := download.Fetch(ctx, r.release.DownloadURL, stagingDir, download.Options{
		ExpectedSHA256: expected,
		Retries:        r.cfg.DownloadRetries,
		Timeout:        r.cfg.DownloadTimeout,
		Label:          "Downloading AppImage",
	})
	if err != nil {
		return err
	}

	r.artifactPath = artifactPath
	r.digest = digest

	logger.InfoKV(ctx, "Download verified", "sha256", digest)

	return nil
}

// installFiles applies the artifact, records the version, and provisions the icon.
func (r *runner) installFiles(ctx context.Context) error {
	if err := install.Apply(ctx, r.layout, r.artifactPath, r.release.Version, r.digest); err != nil {
		return err
	}

	// The artifact was consumed by the apply.
	r.artifactPath = ""

	logger.Info(ctx, "Installing application icon...")

	if err := install.InstallIcon(ctx, r.layout, r.cfg.IconURLs, r.cfg.AppName); err != nil {
		logger.Warnf(ctx, "Icon installation failed: %v", err)
	}

	return nil
}

// registerDesktopEntry writes the launcher entry and refreshes the desktop database.
func (r *runner) registerDesktopEntry(ctx context.Context) error {
	logger.Info(ctx, "Creating desktop entry...")

	if err := desktop.Write(ctx, r.layout, desktop.DefaultMetadata(r.cfg.AppName)); err != nil {
		return err
	}

	desktop.RefreshDatabase(ctx, filepath.Dir(r.layout.DesktopPath))

	return nil
}

// launchIfRequested restarts the application after an install, or simply
// starts it when the install was skipped as up to date. Failures here are
// warnings; the completed install is never rolled back.
func (r *runner) launchIfRequested(ctx context.Context, installed bool) {
	if !r.opts.Launch {
		return
	}

	if installed {
		logger.Infof(ctx, "Closing running instances of %s...", r.cfg.AppName)

		if _, err := launcher.TerminateInstances(ctx, r.layout.ExecutablePath); err != nil {
			logger.Warnf(ctx, "Could not close running instances: %v", err)
		}
	}

	logger.Infof(ctx, "Launching %s...", r.cfg.AppName)

	if err := launcher.Spawn(ctx, r.layout.ExecutablePath); err != nil {
		logger.Warnf(ctx, "Launch failed: %v", err)
	}
}

// cleanup removes an in-flight artifact left behind by a failed run.
func (r *runner) cleanup(ctx context.Context) {
	if r.artifactPath == "" {
		return
	}

	if _, err := os.Stat(r.artifactPath); err == nil {
		_ = os.Remove(r.artifactPath)
	}

	logger.Debug(ctx, "Removed in-flight download")
}
