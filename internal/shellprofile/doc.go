// Package shellprofile idempotently appends environment exports to the
// user's shell profile. Matching is by exact string, and existing lines
// are never modified or removed.
package shellprofile
