package desktop

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"gopkg.in/ini.v1"

	"github.com/swipswaps/cursor-appimage-installer/internal/install"
	"github.com/swipswaps/cursor-appimage-installer/internal/logger"
)

// Metadata is the static portion of the desktop entry.
type Metadata struct {
	// Name is the launcher display name.
	Name string
	// Comment is the one-line description shown by launchers.
	Comment string
	// WMClass groups application windows under the entry.
	WMClass string
	// Categories is the semicolon-terminated category list.
	Categories string
	// Keywords is the semicolon-terminated search keyword list.
	Keywords string
	// MimeTypes is the semicolon-terminated MIME association list.
	MimeTypes string
}

const (
	// dirPermissions is used when the applications directory is missing.
	dirPermissions = 0o755

	// entryPermissions is the mode of the written desktop entry.
	entryPermissions = 0o644
)

// DefaultMetadata returns the fixed desktop metadata for the application.
func DefaultMetadata(appName string) Metadata {
	return Metadata{
		Name:       appName,
		Comment:    "AI-first code editor",
		WMClass:    strings.ToLower(appName),
		Categories: "Development;IDE;TextEditor;",
		Keywords:   "code;editor;IDE;AI;",
		MimeTypes:  "text/plain;inode/directory;application/x-code-workspace;",
	}
}

// Write renders the desktop entry for the installed layout and replaces any
// prior file in full. The entry is wholly owned by the installer; no merge
// with existing content is performed.
func Write(ctx context.Context, layout install.Layout, meta Metadata) error {
	if err := os.MkdirAll(filepath.Dir(layout.DesktopPath), dirPermissions); err != nil {
		return fmt.Errorf("create applications directory: %w", err)
	}

	// IgnoreInlineComment keeps semicolon-terminated value lists unquoted.
	cfg := ini.Empty(ini.LoadOptions{IgnoreInlineComment: true})
	ini.PrettyFormat = false

	execLine := layout.ExecutablePath + " " + strings.Join(install.CompatFlags(), " ")

	section := cfg.Section("Desktop Entry")
	section.Key("Name").SetValue(meta.Name)
	section.Key("Comment").SetValue(meta.Comment)
	section.Key("Exec").SetValue(execLine)
	section.Key("Icon").SetValue(layout.IconPath)
	section.Key("Type").SetValue("Application")
	section.Key("Categories").SetValue(meta.Categories)
	section.Key("Keywords").SetValue(meta.Keywords)
	section.Key("StartupWMClass").SetValue(meta.WMClass)
	section.Key("Terminal").SetValue("false")
	section.Key("MimeType").SetValue(meta.MimeTypes)

	tempFile, err := os.CreateTemp(filepath.Dir(layout.DesktopPath), ".desktop-*")
	if err != nil {
		return fmt.Errorf("create desktop entry temp file: %w", err)
	}

	tempPath := tempFile.Name()

	if _, err = cfg.WriteTo(tempFile); err != nil {
		_ = tempFile.Close()
		_ = os.Remove(tempPath)

		return fmt.Errorf("render desktop entry: %w", err)
	}

	if err = tempFile.Close(); err != nil {
		_ = os.Remove(tempPath)

		return fmt.Errorf("close desktop entry: %w", err)
	}

	if err = os.Chmod(tempPath, entryPermissions); err != nil {
		_ = os.Remove(tempPath)

		return fmt.Errorf("chmod desktop entry: %w", err)
	}

	if err = os.Rename(tempPath, layout.DesktopPath); err != nil {
		_ = os.Remove(tempPath)

		return fmt.Errorf("finalize desktop entry: %w", err)
	}

	logger.Infof(ctx, "Desktop entry created at %s", layout.DesktopPath)

	return nil
}

// RefreshDatabase asks the desktop environment to re-read the applications
// directory. Failure only delays menu refresh, so it is downgraded to a warning.
func RefreshDatabase(ctx context.Context, applicationsDir string) {
	cmd := exec.CommandContext(ctx, "update-desktop-database", applicationsDir)
	if err := cmd.Run(); err != nil {
		logger.Warnf(ctx, "Could not refresh desktop database: %v", err)
	}
}
