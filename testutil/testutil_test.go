/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package testutil

import "fmt"

// recordingT collects assertion messages instead of failing the test.
type recordingT struct {
	failed   bool
	messages []string
}

func (t *recordingT) FailNow() {
	t.failed = true
}

func (t *recordingT) Errorf(format string, args ...interface{}) {
	t.messages = append(t.messages, fmt.Sprintf(format, args...))
}
