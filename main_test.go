package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunSafelyRecoversPanics(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	exitCode := runSafely(nil, func([]string) int { panic("boom") }, &out)

	assert.Equal(t, 1, exitCode)
	assert.Contains(t, out.String(), "panic recovered: boom")
}

func TestRunSafelyPassesExitCode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 3, runSafely(nil, func([]string) int { return 3 }, &bytes.Buffer{}))
}

func TestRunWithArgsVersion(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, runWithArgs([]string{"--version"}))
}
