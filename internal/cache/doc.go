// Package cache provides the response cache shared by every network-bound
// operation of a run.
//
// Payloads are raw files stored at <dir>/<name>/<file>. Entry metadata lives in
// a single versioned index file, <dir>/hs-tools-cache-info.json, which is
// loaded by Open and written back by Close only when something changed.
//
// # Expiry
//
// Entries do not expire at a hard deadline. Each read adds a uniform random
// jitter in [0, timeoutAt-createdAt) on top of timeoutAt, so entries written
// together expire over a spread window instead of all at once.
//
// # Disabled caching
//
// [Null] implements [Cache] and never stores anything, so call sites do not
// branch on whether caching is enabled.
package cache
