// Package sysinfo inspects the host (OS family, kernel, architecture) and
// validates it against the installer's minimum requirements.
package sysinfo
