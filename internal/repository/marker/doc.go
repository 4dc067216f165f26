// Package marker persists the installed version string as a single-line
// file inside the install directory. The marker is the source of truth for
// the update decision and is only written after a successful install.
package marker
