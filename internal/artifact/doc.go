// Package artifact models the single file modelserve publishes and the
// preflight check that gates server startup.
//
// The artifact is treated as immutable while the server runs. Its length is
// read from the file system on every request, so a file that disappears is
// reported as missing rather than served from stale metadata.
//
// Validate refuses to start the server when the file is absent, empty, or does
// not have the configured expected size.
package artifact
