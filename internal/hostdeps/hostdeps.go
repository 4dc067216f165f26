package hostdeps

import (
	"context"
	"errors"
	"fmt"
	"os/exec"

	"github.com/swipswaps/cursor-appimage-installer/internal/logger"
)

// Dependency describes a host tool the pipeline relies on.
type Dependency struct {
	// Name is the human-readable dependency name used in messages.
	Name string
	// Probe is the command looked up in PATH to verify presence.
	Probe string
	// Package is the distribution package installed when the probe fails.
	Package string
	// Required marks dependencies whose absence aborts the install.
	Required bool
}

// packageManager is a detected host package manager and its install invocation.
type packageManager struct {
	command     string
	installArgs []string
}

var (
	// errDependencyMissing is returned when a required dependency cannot be installed.
	errDependencyMissing = errors.New("required dependency missing")
	// errNoPackageManager is returned when no known package manager is available.
	errNoPackageManager = errors.New("no supported package manager found")
)

// knownManagers lists the package managers probed in order of preference.
// Installs run non-interactively and without privilege elevation; on hosts
// where the manager needs root the subprocess fails and the error surfaces.
func knownManagers() []packageManager {
	return []packageManager{
		{command: "apt-get", installArgs: []string{"install", "-y"}},
		{command: "dnf", installArgs: []string{"install", "-y"}},
		{command: "pacman", installArgs: []string{"-S", "--noconfirm"}},
		{command: "zypper", installArgs: []string{"install", "-y"}},
	}
}

// DefaultDependencies returns the host tools the later pipeline stages invoke.
func DefaultDependencies() []Dependency {
	return []Dependency{
		{
			Name:     "FUSE",
			Probe:    "fusermount",
			Package:  "fuse",
			Required: true,
		},
		{
			Name:     "desktop-file-utils",
			Probe:    "update-desktop-database",
			Package:  "desktop-file-utils",
			Required: false,
		},
	}
}

// Ensurer probes and installs host dependencies. The lookup and run hooks
// exist so tests can substitute the PATH search and subprocess execution.
type Ensurer struct {
	deps     []Dependency
	lookPath func(string) (string, error)
	run      func(ctx context.Context, name string, args ...string) error
}

// NewEnsurer builds an Ensurer over the provided dependency list.
func NewEnsurer(deps []Dependency) *Ensurer {
	return &Ensurer{
		deps:     deps,
		lookPath: exec.LookPath,
		run: func(ctx context.Context, name string, args ...string) error {
			return exec.CommandContext(ctx, name, args...).Run()
		},
	}
}

// Ensure verifies each dependency, attempting a package-manager install and
// a re-probe on failure. A still-missing required dependency is fatal;
// optional ones degrade to a warning.
func (e *Ensurer) Ensure(ctx context.Context) error {
	for _, dep := range e.deps {
		if _, err := e.lookPath(dep.Probe); err == nil {
			logger.Infof(ctx, "%s is already installed.", dep.Name)
			continue
		}

		logger.Infof(ctx, "%s not found. Attempting package install...", dep.Name)

		if err := e.install(ctx, dep); err != nil {
			logger.Warnf(ctx, "Install of %s failed: %v", dep.Package, err)
		}

		if _, err := e.lookPath(dep.Probe); err == nil {
			logger.Infof(ctx, "%s installed successfully.", dep.Name)
			continue
		}

		if dep.Required {
			return fmt.Errorf("%w: %s (provides %s)", errDependencyMissing, dep.Name, dep.Probe)
		}

		logger.Warnf(ctx, "%s is unavailable; continuing without it.", dep.Name)
	}

	return nil
}

// install runs the first available package manager against the dependency's package.
func (e *Ensurer) install(ctx context.Context, dep Dependency) error {
	for _, manager := range knownManagers() {
		if _, err := e.lookPath(manager.command); err != nil {
			continue
		}

		args := append(append([]string{}, manager.installArgs...), dep.Package)
		logger.InfoKV(ctx, "Installing package",
			"manager", manager.command, "package", dep.Package)

		return e.run(ctx, manager.command, args...)
	}

	return errNoPackageManager
}
