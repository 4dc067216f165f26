// Package version exposes build metadata for the installer.
//
// Variables Version, Commit, and BuildTime are injected at build time via
// Go ldflags and default to sensible values for local builds. Helper
// functions Short, Full, and UserAgent render the version string for CLI
// output, logs, and outbound HTTP requests.
package version
