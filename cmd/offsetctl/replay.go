package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/joshuapare/offsetkit/offset"
)

var (
	replayStrict bool
	replayLayout bool
)

func init() {
	cmd := newReplayCmd()
	cmd.Flags().BoolVar(&replayStrict, "strict", false, "Stop at the first failed allocator call")
	cmd.Flags().BoolVar(&replayLayout, "layout", false, "Include the address-ordered layout in the final report")
	rootCmd.AddCommand(cmd)
}

func newReplayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay <trace>",
		Short: "Execute an allocation trace",
		Long: `The replay command executes a trace file line by line and prints a
final report. Use "-" to read the trace from stdin.

Trace format (one operation per line, # starts a comment):
  create SIZE MAXALLOCS   create a new allocator
  alloc NAME SIZE         allocate SIZE units and remember the handle as NAME
  free NAME               free the allocation remembered as NAME
  reset                   free everything at once
  report                  print a report
  layout                  print a report with the address-ordered layout

Sizes accept plain numbers, 0x hex or unit suffixes such as 64KiB.

Example:
  offsetctl replay trace.txt
  offsetctl replay trace.txt --verbose --verify
  offsetctl replay trace.txt --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(args)
		},
	}
	return cmd
}

// traceOp is one parsed trace line.
type traceOp struct {
	Line int
	Verb string
	Name string
	Size uint32
	Max  uint32
}

// StepResult is the outcome of one executed trace line.
type StepResult struct {
	Line   int    `json:"line"`
	Op     string `json:"op"`
	Name   string `json:"name,omitempty"`
	Size   uint32 `json:"size,omitempty"`
	Offset uint32 `json:"offset,omitempty"`
	Error  string `json:"error,omitempty"`
}

// ReplayResult is the JSON output of a replay.
type ReplayResult struct {
	Steps   []StepResult `json:"steps"`
	Reports []*Report    `json:"reports,omitempty"`
	Final   *Report      `json:"final"`
}

func runReplay(args []string) error {
	path := args[0]

	var in io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open trace: %w", err)
		}
		defer f.Close()
		in = f
	}

	if !jsonOut {
		printVerbose("Reading trace: %s\n", path)
	}
	ops, err := parseTrace(in)
	if err != nil {
		return err
	}

	r := newReplayer()
	for _, op := range ops {
		if err := r.step(op); err != nil {
			return err
		}
	}
	if r.a == nil {
		return errors.New("trace never creates an allocator")
	}

	final, err := buildReport(r.a, r.names, replayLayout, true)
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(ReplayResult{Steps: r.steps, Reports: r.reports, Final: final})
	}
	return printReport(final)
}

// parseTrace reads all operations, failing on the first malformed line.
func parseTrace(in io.Reader) ([]traceOp, error) {
	var ops []traceOp
	sc := bufio.NewScanner(in)
	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		if i := strings.IndexByte(text, '#'); i >= 0 {
			text = text[:i]
		}
		fields := strings.Fields(text)
		if len(fields) == 0 {
			continue
		}

		op, err := parseOp(fields)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		op.Line = line
		ops = append(ops, op)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read trace: %w", err)
	}
	return ops, nil
}

func parseOp(fields []string) (traceOp, error) {
	op := traceOp{Verb: strings.ToLower(fields[0])}
	want := map[string]int{"create": 3, "alloc": 3, "free": 2, "reset": 1, "report": 1, "layout": 1}

	n, ok := want[op.Verb]
	if !ok {
		return op, fmt.Errorf("unknown operation %q", fields[0])
	}
	if len(fields) != n {
		return op, fmt.Errorf("%s takes %d argument(s), got %d", op.Verb, n-1, len(fields)-1)
	}

	var err error
	switch op.Verb {
	case "create":
		if op.Size, err = parseSize(fields[1]); err != nil {
			return op, err
		}
		if op.Max, err = parseSize(fields[2]); err != nil {
			return op, err
		}
	case "alloc":
		op.Name = fields[1]
		if op.Size, err = parseSize(fields[2]); err != nil {
			return op, err
		}
	case "free":
		op.Name = fields[1]
	}
	return op, nil
}

// parseSize accepts decimal, 0x hex and humanized sizes such as 64KiB.
func parseSize(s string) (uint32, error) {
	var v uint64
	var err error
	if hex, ok := strings.CutPrefix(strings.ToLower(s), "0x"); ok {
		v, err = strconv.ParseUint(hex, 16, 64)
	} else {
		v, err = humanize.ParseBytes(s)
	}
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	if v > math.MaxUint32 {
		return 0, fmt.Errorf("size %q exceeds 32 bits", s)
	}
	return uint32(v), nil
}

// replayer executes trace operations against one allocator at a time.
type replayer struct {
	a       *offset.Allocator
	handles map[string]offset.Allocation
	names   map[offset.Allocation]string
	steps   []StepResult
	reports []*Report
}

func newReplayer() *replayer {
	return &replayer{
		handles: make(map[string]offset.Allocation),
		names:   make(map[offset.Allocation]string),
	}
}

// step executes one operation. Allocator failures are recorded as outcomes;
// only trace errors, or any failure with --strict, stop the replay.
func (r *replayer) step(op traceOp) error {
	if op.Verb != "create" && r.a == nil {
		return fmt.Errorf("line %d: %s before create", op.Line, op.Verb)
	}

	res := StepResult{Line: op.Line, Op: op.Verb, Name: op.Name}
	var opErr error

	switch op.Verb {
	case "create":
		a, err := newAllocator(op.Size, op.Max)
		if err != nil {
			return fmt.Errorf("line %d: %w", op.Line, err)
		}
		r.a = a
		clear(r.handles)
		clear(r.names)
		res.Size = op.Size
		r.note("%4d  create size=%d max=%d\n", op.Line, op.Size, op.Max)

	case "alloc":
		if old, ok := r.handles[op.Name]; ok {
			delete(r.names, old)
		}
		al, err := r.a.Allocate(op.Size)
		res.Size = op.Size
		if err != nil {
			opErr = err
			delete(r.handles, op.Name)
			break
		}
		r.handles[op.Name] = al
		r.names[al] = op.Name
		res.Offset = al.Offset
		r.note("%4d  alloc %s size=%d -> offset %d\n", op.Line, op.Name, op.Size, al.Offset)

	case "free":
		al, ok := r.handles[op.Name]
		if !ok {
			return fmt.Errorf("line %d: free of unknown allocation %q", op.Line, op.Name)
		}
		// The handle is kept so that freeing it again exercises the
		// allocator's stale handle detection.
		delete(r.names, al)
		res.Offset = al.Offset
		if opErr = r.a.Free(al); opErr == nil {
			r.note("%4d  free %s offset=%d\n", op.Line, op.Name, al.Offset)
		}

	case "reset":
		r.a.Reset()
		clear(r.names)
		r.note("%4d  reset\n", op.Line)

	case "report", "layout":
		rep, err := buildReport(r.a, r.names, op.Verb == "layout", false)
		if err != nil {
			return fmt.Errorf("line %d: %w", op.Line, err)
		}
		if jsonOut {
			r.reports = append(r.reports, rep)
		} else if err := printReport(rep); err != nil {
			return err
		}
	}

	if opErr != nil {
		res.Error = opErr.Error()
		if !jsonOut {
			printInfo("%4d  %s %s: %v\n", op.Line, op.Verb, op.Name, opErr)
		}
		if replayStrict {
			r.steps = append(r.steps, res)
			return fmt.Errorf("line %d: %w", op.Line, opErr)
		}
	}
	r.steps = append(r.steps, res)
	return nil
}

// note prints a per-step trace line in verbose text mode.
func (r *replayer) note(format string, args ...interface{}) {
	if !jsonOut {
		printVerbose(format, args...)
	}
}
