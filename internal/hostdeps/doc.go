// Package hostdeps ensures the host tools the installer shells out to are
// present, invoking the system package manager in user scope when they are
// not. Required tools abort the run when unavailable; optional ones only
// produce warnings.
package hostdeps
