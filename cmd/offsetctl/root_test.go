package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommandWritesLogFile(t *testing.T) {
	resetFlags()
	defer resetFlags()

	logPath := filepath.Join(t.TempDir(), "offsetctl.log")
	trace := writeTrace(t,
		"create 1024 8",
		"alloc a 100",
		"free a",
		"free a",
	)

	rootCmd.SetArgs([]string{"replay", trace, "--quiet=false", "--log-json", "--log-file", logPath})
	defer rootCmd.SetArgs(nil)

	output, err := captureOutput(t, rootCmd.Execute)
	require.NoError(t, err, output)
	assertContains(t, output, []string{"Allocator Report"})

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"free rejected"`)
	assert.NotContains(t, string(data), `"msg":"allocator created"`, "info records need --verbose")
}

func TestNewAllocatorWithoutLogging(t *testing.T) {
	resetFlags()
	checkEachOp = true
	defer resetFlags()

	a, err := newAllocator(4096, 16)
	require.NoError(t, err)
	al, err := a.Allocate(100)
	require.NoError(t, err)
	require.NoError(t, a.Free(al))
}
