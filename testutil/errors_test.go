/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package testutil

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRequireErrorIsAny(t *testing.T) {
	targetErrs := []error{
		errors.New("error A"),
		errors.New("error B"),
		errors.New("error C"),
	}

	recT := &recordingT{}

	RequireErrorIsAny(recT, fmt.Errorf("do something: %w", targetErrs[1]), targetErrs)
	require.False(t, recT.failed)

	RequireErrorIsAny(recT, fmt.Errorf("do something: %w", errors.New("error D")), targetErrs)
	require.True(t, recT.failed)
	require.Len(t, recT.messages, 1)
	require.Contains(t, recT.messages[0], "error D")

	RequireErrorIsAny(recT, nil, targetErrs)
	require.True(t, recT.failed)
}

func TestRequireNoErrorInChannel(t *testing.T) {
	recT := &recordingT{}
	ch := make(chan error, 1)

	RequireNoErrorInChannel(recT, ch)
	require.False(t, recT.failed)

	ch <- nil
	RequireNoErrorInChannel(recT, ch)
	require.False(t, recT.failed)

	ch <- errors.New("some error")
	RequireNoErrorInChannel(recT, ch)
	require.True(t, recT.failed)
}

type codeError struct {
	code int
}

func (e *codeError) Error() string {
	return fmt.Sprintf("code %d", e.code)
}

func TestRequireErrorAsType(t *testing.T) {
	recT := &recordingT{}
	got := RequireErrorAsType[*codeError](recT, fmt.Errorf("request: %w", &codeError{code: 404}))
	require.False(t, recT.failed)
	require.Equal(t, 404, got.code)

	recT = &recordingT{}
	got = RequireErrorAsType[*codeError](recT, errors.New("plain"))
	require.True(t, recT.failed)
	require.Nil(t, got)
}
