package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/swipswaps/cursor-appimage-installer/internal/logger"
	"github.com/swipswaps/cursor-appimage-installer/internal/service/installer"
	"github.com/swipswaps/cursor-appimage-installer/internal/version"
)

var (
	// configPath to the optional configuration YAML file.
	configPath string

	// logLevel sets the logging verbosity.
	logLevel string

	// launch starts the application after the pipeline finishes.
	launch bool

	// force reinstalls even when the recorded version is current.
	force bool

	// expectedSHA256 is an optional reference digest for the artifact.
	expectedSHA256 string

	// rootCmd represents the base command that runs the install pipeline.
	rootCmd = &cobra.Command{
		Use:   "cursor-installer",
		Short: "Download, verify, and install the Cursor AppImage",
		Long: "Install or update the Cursor IDE AppImage for the current user: " +
			"check the host environment, resolve the latest release, download and " +
			"verify the artifact, register it with the desktop environment, and " +
			"optionally launch it.",
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			if level, ok := logger.ParseLogLevel(logLevel); ok {
				logger.SetLevel(level)
			}

			options := &installer.Options{
				ConfigPath:     configPath,
				Launch:         launch,
				Force:          force,
				ExpectedSHA256: expectedSHA256,
			}

			return installer.Run(ctx, options)
		},
	}
)

// Execute runs the cursor-installer CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to configuration file (defaults apply without one)")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "logging level (debug, info, warn, error)")
	rootCmd.Flags().BoolVar(&launch, "launch", true, "launch the application after installing")
	rootCmd.Flags().BoolVar(&force, "force", false, "reinstall even if the installed version is current")
	rootCmd.Flags().StringVar(&expectedSHA256, "expected-sha256", "", "hex-encoded reference digest for the downloaded artifact")

	// Errors are silenced because RunE failures are already logged by the service.
	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
}
