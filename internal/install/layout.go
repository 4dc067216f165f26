package install

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/swipswaps/cursor-appimage-installer/internal/config"
)

// Layout is the fixed set of paths an install produces. Derived once from
// configuration; files under Dir are overwritten on each successful install.
type Layout struct {
	// Dir is the per-user install directory.
	Dir string
	// ExecutablePath is the final AppImage location.
	ExecutablePath string
	// IconPath is the application icon location.
	IconPath string
	// VersionPath is the single-line installed-version marker.
	VersionPath string
	// DesktopPath is the desktop entry location.
	DesktopPath string
}

// NewLayout derives the install layout from configuration.
func NewLayout(cfg *config.Config) Layout {
	name := strings.ToLower(cfg.AppName)

	return Layout{
		Dir:            cfg.InstallDir,
		ExecutablePath: filepath.Join(cfg.InstallDir, name+".AppImage"),
		IconPath:       filepath.Join(cfg.InstallDir, name+".png"),
		VersionPath:    filepath.Join(cfg.InstallDir, ".version"),
		DesktopPath:    filepath.Join(cfg.DesktopDir, name+".desktop"),
	}
}

// CompatFlags are passed to the AppImage at launch and embedded in the
// desktop entry's Exec line. Sandboxing and GPU acceleration are disabled
// for compatibility with constrained display environments.
func CompatFlags() []string {
	return []string{"--no-sandbox", "--disable-gpu"}
}

// ExecutableExists reports whether an installed AppImage is present.
func (l Layout) ExecutableExists() bool {
	info, err := os.Stat(l.ExecutablePath)

	return err == nil && info.Mode().IsRegular()
}
