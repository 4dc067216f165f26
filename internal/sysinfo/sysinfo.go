package sysinfo

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"

	goversion "github.com/hashicorp/go-version"
	"github.com/shirou/gopsutil/v3/host"

	"github.com/swipswaps/cursor-appimage-installer/internal/logger"
)

// Profile is a read-only snapshot of the host, computed once at startup.
type Profile struct {
	// OSFamily is the operating system family (runtime.GOOS).
	OSFamily string
	// Platform is the distribution name when detectable (e.g. "ubuntu").
	Platform string
	// KernelVersion is the running kernel release string.
	KernelVersion string
	// Architecture is the CPU architecture (runtime.GOARCH).
	Architecture string
}

const (
	// SupportedOSFamily is the only OS family the installer targets.
	SupportedOSFamily = "linux"

	// PrimaryArchitecture is the architecture the upstream artifact is built for.
	PrimaryArchitecture = "amd64"

	// MinKernelVersion is the oldest kernel the AppImage runtime supports.
	MinKernelVersion = "3.10"
)

// errKernelTooOld is returned when the running kernel predates the supported minimum.
var errKernelTooOld = errors.New("kernel version below supported minimum")

// Collect gathers the host profile. Collection failures degrade to empty
// fields rather than errors; Check decides what is fatal.
func Collect(ctx context.Context) Profile {
	profile := Profile{
		OSFamily:     runtime.GOOS,
		Architecture: runtime.GOARCH,
	}

	platform, _, _, err := host.PlatformInformationWithContext(ctx)
	if err != nil {
		logger.Warnf(ctx, "Could not detect platform information: %v", err)
	} else {
		profile.Platform = platform
	}

	kernel, err := host.KernelVersionWithContext(ctx)
	if err != nil {
		logger.Warnf(ctx, "Could not detect kernel version: %v", err)
	} else {
		profile.KernelVersion = kernel
	}

	return profile
}

// Check validates the profile against the installer's requirements.
// A kernel older than the minimum is fatal; an unexpected OS family or
// architecture only produces a warning since the install may still work.
func Check(ctx context.Context, profile Profile) error {
	if profile.OSFamily != SupportedOSFamily {
		logger.Warnf(ctx, "This installer targets %s systems, detected %s. Proceeding anyway...",
			SupportedOSFamily, profile.OSFamily)
	}

	if profile.Architecture != PrimaryArchitecture {
		logger.Warnf(ctx, "Architecture %s may not be supported. Proceeding anyway...",
			profile.Architecture)
	}

	if profile.KernelVersion == "" {
		return nil
	}

	current, err := goversion.NewVersion(numericPrefix(profile.KernelVersion))
	if err != nil {
		logger.Warnf(ctx, "Could not parse kernel version %q: %v", profile.KernelVersion, err)
		return nil
	}

	minimum := goversion.Must(goversion.NewVersion(MinKernelVersion))
	if current.LessThan(minimum) {
		return fmt.Errorf("%w: need %s+, running %s",
			errKernelTooOld, MinKernelVersion, profile.KernelVersion)
	}

	return nil
}

// numericPrefix strips distro suffixes from a kernel release string,
// e.g. "6.8.0-45-generic" becomes "6.8.0".
func numericPrefix(release string) string {
	if i := strings.IndexAny(release, "-_+~"); i >= 0 {
		release = release[:i]
	}

	return release
}
