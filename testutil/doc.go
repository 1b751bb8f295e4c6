/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package testutil contains helpers for tests: assertions on Prometheus metrics and error chains,
// and HTTP test servers that track how many requests they serve concurrently.
package testutil

type tHelper interface {
	Helper()
}
