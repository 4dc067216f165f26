// Package install finalizes a verified artifact: it derives the on-disk
// layout, atomically applies the AppImage with its executable bit, records
// the installed version, and provisions an application icon with a locally
// generated fallback.
package install
