// Package release queries the remote version API for the latest
// downloadable artifact and decides whether the installed copy needs
// updating.
package release
