/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package admission bounds the number of in-flight outgoing requests.
//
// PermitPool is a counting permit pool: Acquire blocks until a permit is available
// (permits are granted in arrival order) and Release gives it back.
// A pool created with zero limit never blocks; it is backed by a very large permit count
// instead of a separate code path.
//
// Pacer implements the optional post-completion delay: when the number of
// requests that were submitted but not yet finished exceeds the limit,
// a completed request holds its permit for an extra delay before releasing it.
package admission
