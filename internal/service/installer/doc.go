// Package installer orchestrates the install pipeline: environment checks,
// host dependencies, GPU compatibility configuration, release resolution,
// download with integrity verification, file installation, desktop
// registration, and an optional relaunch.
//
// Stages run strictly top to bottom. A fatal stage error aborts the run
// with a stage-tagged message; independent concerns (icon, shell profile,
// desktop database refresh, launch) degrade to warnings.
package installer
