package install

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fogleman/gg"
	"golang.org/x/image/font/basicfont"

	"github.com/swipswaps/cursor-appimage-installer/internal/download"
	"github.com/swipswaps/cursor-appimage-installer/internal/logger"
)

const (
	// iconSize is the edge length of the placeholder icon in pixels.
	iconSize = 128

	// iconFetchTimeout bounds a single icon source attempt.
	iconFetchTimeout = 30 * time.Second
)

// InstallIcon tries each remote icon source in order; the first successful
// non-empty download wins. When every source fails, a placeholder icon is
// synthesized locally so the desktop entry always has something to point at.
func InstallIcon(ctx context.Context, layout Layout, iconURLs []string, appName string) error {
	if err := os.MkdirAll(layout.Dir, DirPermissions); err != nil {
		return fmt.Errorf("create install directory: %w", err)
	}

	for _, iconURL := range iconURLs {
		tempPath, _, err := download.Fetch(ctx, iconURL, layout.Dir, download.Options{
			Retries: 1,
			Timeout: iconFetchTimeout,
			Label:   "Downloading icon",
		})
		if err != nil {
			logger.Warnf(ctx, "Icon download from %s failed: %v", iconURL, err)
			continue
		}

		if err = os.Rename(tempPath, layout.IconPath); err != nil {
			_ = os.Remove(tempPath)

			return fmt.Errorf("move icon into place: %w", err)
		}

		logger.Infof(ctx, "Icon saved to %s", layout.IconPath)

		return nil
	}

	logger.Warn(ctx, "All icon downloads failed. Creating placeholder icon...")

	if err := writePlaceholderIcon(layout, appName); err != nil {
		return fmt.Errorf("create placeholder icon: %w", err)
	}

	logger.Infof(ctx, "Placeholder icon created at %s", layout.IconPath)

	return nil
}

// writePlaceholderIcon draws a simple disc with the application's initial
// and writes it atomically to the icon path.
func writePlaceholderIcon(layout Layout, appName string) error {
	initial := "?"
	if appName != "" {
		initial = string([]rune(appName)[0])
	}

	dc := gg.NewContext(iconSize, iconSize)

	// Transparent background.
	dc.SetRGBA(0, 0, 0, 0)
	dc.Clear()

	// Grey disc.
	dc.SetRGBA255(100, 100, 100, 200)
	dc.DrawCircle(iconSize/2, iconSize/2, iconSize/2-10)
	dc.Fill()

	// Application initial.
	dc.SetRGB255(255, 255, 255)
	dc.SetFontFace(basicfont.Face7x13)
	dc.DrawStringAnchored(initial, iconSize/2, iconSize/2, 0.5, 0.5)

	tempFile, err := os.CreateTemp(layout.Dir, ".icon-*")
	if err != nil {
		return err
	}

	tempPath := tempFile.Name()

	if err = dc.EncodePNG(tempFile); err != nil {
		_ = tempFile.Close()
		_ = os.Remove(tempPath)

		return err
	}

	if err = tempFile.Close(); err != nil {
		_ = os.Remove(tempPath)

		return err
	}

	if err = os.Rename(tempPath, layout.IconPath); err != nil {
		_ = os.Remove(tempPath)

		return err
	}

	return nil
}
