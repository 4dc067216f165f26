// Package config defines the installer settings and provides helpers to
// load, validate and save them in YAML format.
//
// Every field has a working default resolved against the current user's
// home directory and XDG data directory, so the settings file is entirely
// optional and only needs the keys it overrides.
package config
