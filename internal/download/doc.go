// Package download streams remote artifacts to temporary files with
// progress reporting, bounded retries with exponential backoff, and
// single-pass SHA-256 digest computation. Failed attempts never leave
// partial files behind.
package download
