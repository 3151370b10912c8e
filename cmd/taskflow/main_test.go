package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kisii856/task-automation-platform/cmd"
)

func TestSplitArgs(t *testing.T) {
	tests := []struct {
		line string
		want []string
	}{
		{"version", []string{"version"}},
		{`run "search for golang" --output json`, []string{"run", "search for golang", "--output", "json"}},
		{"decompose  'go to https://example.com'  ", []string{"decompose", "go to https://example.com"}},
		{`run ""`, []string{"run", ""}},
		{"", nil},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.Equal(t, tt.want, splitArgs(tt.line))
		})
	}
}

func TestREPL(t *testing.T) {
	in := strings.NewReader("\nversion\nexit\nversion\n")
	var out bytes.Buffer

	require.NoError(t, repl(context.Background(), in, &out))

	got := out.String()
	assert.Equal(t, 1, strings.Count(got, "taskflow "+cmd.Version), "commands after exit must not run")
	assert.Contains(t, got, "taskflow > ")
	assert.True(t, strings.HasSuffix(got, "Exiting taskflow.\n"))
}

func TestREPL_EOF(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, repl(context.Background(), strings.NewReader("version"), &out))
	assert.Contains(t, out.String(), "taskflow "+cmd.Version)
}

func TestHandlePanic(t *testing.T) {
	origWrite, origExit := osWriteFile, osExit
	t.Cleanup(func() { osWriteFile, osExit = origWrite, origExit })

	t.Run("WritesLog", func(t *testing.T) {
		var written []byte
		var code int
		osWriteFile = func(name string, data []byte, _ os.FileMode) error {
			assert.Equal(t, panicLogFile, name)
			written = data
			return nil
		}
		osExit = func(c int) { code = c }

		func() {
			defer handlePanic()
			panic("boom")
		}()
		assert.Equal(t, 1, code)
		assert.Contains(t, string(written), "panic: boom")
	})

	t.Run("WriteFails", func(t *testing.T) {
		var code int
		osWriteFile = func(string, []byte, os.FileMode) error { return errors.New("read-only") }
		osExit = func(c int) { code = c }

		func() {
			defer handlePanic()
			panic("boom")
		}()
		assert.Equal(t, 1, code)
	})

	t.Run("NoPanic", func(t *testing.T) {
		called := false
		osExit = func(int) { called = true }
		func() { defer handlePanic() }()
		assert.False(t, called)
	})
}
