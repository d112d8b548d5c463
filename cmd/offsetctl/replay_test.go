package main

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTrace(t *testing.T) {
	in := strings.NewReader(`
# a comment
create 1KiB 16
alloc a 100   # trailing comment
ALLOC b 0x40
free a
reset
report
layout
`)
	ops, err := parseTrace(in)
	require.NoError(t, err)
	require.Len(t, ops, 7)

	assert.Equal(t, traceOp{Line: 3, Verb: "create", Size: 1024, Max: 16}, ops[0])
	assert.Equal(t, traceOp{Line: 4, Verb: "alloc", Name: "a", Size: 100}, ops[1])
	assert.Equal(t, traceOp{Line: 5, Verb: "alloc", Name: "b", Size: 64}, ops[2])
	assert.Equal(t, traceOp{Line: 6, Verb: "free", Name: "a"}, ops[3])
	assert.Equal(t, "layout", ops[6].Verb)
}

func TestParseTraceErrors(t *testing.T) {
	tests := []struct {
		name    string
		trace   string
		wantErr string
	}{
		{"unknown op", "create 10 1\nmalloc a 5", "line 2: unknown operation"},
		{"missing size", "alloc a", "line 1: alloc takes 2 argument(s), got 1"},
		{"extra arg", "reset now", "line 1: reset takes 0 argument(s)"},
		{"bad size", "alloc a lots", `line 1: invalid size "lots"`},
		{"size too large", "create 5GiB 1", "exceeds 32 bits"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseTrace(strings.NewReader(tt.trace))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		in   string
		want uint32
	}{
		{"100", 100},
		{"0x40", 64},
		{"0X10", 16},
		{"64KiB", 65536},
		{"1k", 1000},
	}
	for _, tt := range tests {
		got, err := parseSize(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := parseSize("0xZZ")
	require.Error(t, err)
}

func TestReplayCoalescing(t *testing.T) {
	resetFlags()
	path := writeTrace(t,
		"create 1024 128",
		"alloc a 100",
		"alloc b 200",
		"free a",
		"free b",
		"alloc c 300",
		"free a",
	)

	output, err := captureOutput(t, func() error {
		return runReplay([]string{path})
	})
	require.NoError(t, err, output)

	assertContains(t, output, []string{
		"Allocator Report",
		"Free: 724",
		"Live allocations: 1 (max 128)",
		fmt.Sprintf("%-16s [0, 300) size 300", "c"),
		"free a: offset: invalid allocation handle",
		"1 invalid handle",
	})
}

func TestReplayJSON(t *testing.T) {
	resetFlags()
	jsonOut = true
	defer resetFlags()

	path := writeTrace(t,
		"create 100 8",
		"alloc big 150",
		"alloc small 50",
		"report",
	)

	output, err := captureOutput(t, func() error {
		return runReplay([]string{path})
	})
	require.NoError(t, err)

	var res ReplayResult
	assertJSON(t, output, &res)
	require.Len(t, res.Steps, 4)
	assert.Equal(t, "offset: no free range large enough", res.Steps[1].Error)
	assert.Empty(t, res.Steps[2].Error)
	require.Len(t, res.Reports, 1)
	assert.Equal(t, uint32(50), res.Reports[0].TotalFreeSpace)

	require.NotNil(t, res.Final)
	require.Len(t, res.Final.Allocations, 1)
	assert.Equal(t, "small", res.Final.Allocations[0].Name)
	require.NotNil(t, res.Final.Stats)
	assert.Equal(t, uint64(1), res.Final.Stats.OutOfSpace)
}

func TestReplayLayout(t *testing.T) {
	resetFlags()
	replayLayout = true
	defer resetFlags()

	path := writeTrace(t,
		"create 1024 16",
		"alloc a 256",
		"alloc b 256",
		"free a",
	)
	output, err := captureOutput(t, func() error {
		return runReplay([]string{path})
	})
	require.NoError(t, err)
	assertContains(t, output, []string{
		"Layout:",
		"free [0, 256) size 256",
		"used [256, 512) size 256",
		"free [512, 1,024) size 512",
	})
}

func TestReplayStrict(t *testing.T) {
	resetFlags()
	replayStrict = true
	defer resetFlags()

	path := writeTrace(t,
		"create 1024 1",
		"alloc a 512",
		"alloc b 256",
		"alloc c 10",
		"alloc d 10",
	)
	_, err := captureOutput(t, func() error {
		return runReplay([]string{path})
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 4")
	assert.Contains(t, err.Error(), "node capacity exceeded")
}

func TestReplayVerifyAndReset(t *testing.T) {
	resetFlags()
	checkEachOp = true
	verbose = true
	defer resetFlags()

	path := writeTrace(t,
		"create 4096 32",
		"alloc a 100",
		"alloc b 1000",
		"reset",
		"free a",
		"alloc a 100",
	)
	output, err := captureOutput(t, func() error {
		return runReplay([]string{path})
	})
	require.NoError(t, err)
	assertContains(t, output, []string{
		"   2  alloc a size=100 -> offset 0",
		"   4  reset",
		"   5  free a: offset: invalid allocation handle",
		"   6  alloc a size=100 -> offset 0",
		"Resets: 1",
	})
}

func TestReplayTraceErrors(t *testing.T) {
	tests := []struct {
		name    string
		lines   []string
		wantErr string
	}{
		{"alloc before create", []string{"alloc a 10"}, "line 1: alloc before create"},
		{"unknown name", []string{"create 100 4", "free x"}, `line 2: free of unknown allocation "x"`},
		{"bad configuration", []string{"create 0 4"}, "invalid configuration"},
		{"empty trace", []string{"# nothing"}, "never creates an allocator"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetFlags()
			path := writeTrace(t, tt.lines...)
			_, err := captureOutput(t, func() error {
				return runReplay([]string{path})
			})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
