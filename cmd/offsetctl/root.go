package main

import (
	"fmt"
	"log/slog"
	"os"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/joshuapare/offsetkit/cmd/offsetctl/logger"
	"github.com/joshuapare/offsetkit/offset"
	"github.com/joshuapare/offsetkit/offset/verify"
)

var (
	// Global flags
	verbose     bool
	quiet       bool
	jsonOut     bool
	checkEachOp bool
	logJSON     bool
	logFile     string

	appLog   *slog.Logger
	closeLog func() error
)

var rootCmd = &cobra.Command{
	Use:   "offsetctl",
	Short: "Drive and inspect an offset-range allocator",
	Long: `offsetctl runs allocation workloads against a two-level segregated-fit
offset allocator. It replays trace files, generates seeded random workloads and
prints free-space reports, live allocations and the size-class table.`,
	Version:            "0.1.0",
	SilenceUsage:       true,
	SilenceErrors:      true,
	PersistentPreRunE:  setupLogging,
	PersistentPostRunE: teardownLogging,
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().
		BoolVar(&checkEachOp, "verify", false, "Validate all allocator invariants after every operation")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Write logs as JSON")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Append logs to this file instead of stderr")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		printError("%v\n", err)
		os.Exit(1)
	}
}

// Helper functions for output

// printer formats counts with digit grouping.
var printer = message.NewPrinter(language.English)

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...interface{}) {
	if !quiet {
		printer.Fprintf(os.Stdout, format, args...)
	}
}

// printError prints an error message
func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format, args...)
}

// printVerbose prints a verbose message if verbose mode is enabled
func printVerbose(format string, args ...interface{}) {
	if verbose && !quiet {
		printer.Fprintf(os.Stdout, format, args...)
	}
}

// printJSON outputs data as JSON
func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(os.Stdout, "%s\n", data)
	return err
}

// setupLogging builds the allocator logger from the global flags. Warnings
// are always shown; --verbose adds Info and Debug records.
func setupLogging(cmd *cobra.Command, args []string) error {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	if quiet {
		level = slog.LevelError
	}

	l, closeFn, err := logger.New(logger.Options{Level: level, JSON: logJSON, File: logFile})
	if err != nil {
		return fmt.Errorf("failed to open log: %w", err)
	}
	appLog = l
	closeLog = closeFn
	return nil
}

func teardownLogging(cmd *cobra.Command, args []string) error {
	if closeLog == nil {
		return nil
	}
	return closeLog()
}

// newAllocator creates an allocator configured from the global flags.
func newAllocator(size, maxAllocs uint32) (*offset.Allocator, error) {
	l := appLog
	if l == nil {
		l = logger.Discard()
	}
	opts := []offset.Option{offset.WithLogger(l)}
	if checkEachOp {
		opts = append(opts, offset.WithInvariantCheck(verify.Snapshot))
	}
	return offset.New(size, maxAllocs, opts...)
}
