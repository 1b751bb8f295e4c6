/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package libinfo resolves the version of the go-asyncrest module linked into the running binary.
package libinfo
