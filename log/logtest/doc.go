/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package logtest provides log.FieldLogger implementations for tests:
// a recorder that keeps entries in memory and a simple JSON logger.
package logtest
