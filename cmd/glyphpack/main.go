package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	gperrors "github.com/provide-io/glyphpack/pkg/errors"
	"github.com/provide-io/glyphpack/pkg/logging"
)

const version = "0.1.0"

func getBuildTimestamp() string {
	// Try to get vcs.time from build info
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			if setting.Key == "vcs.time" {
				if t, err := time.Parse(time.RFC3339, setting.Value); err == nil {
					return t.UTC().Format(time.RFC3339)
				}
			}
		}
	}
	// Fallback to binary modification time
	if exePath, err := os.Executable(); err == nil {
		if stat, err := os.Stat(exePath); err == nil {
			return stat.ModTime().UTC().Format(time.RFC3339)
		}
	}
	return time.Now().UTC().Format(time.RFC3339)
}

func versionString() string {
	return fmt.Sprintf("glyphpack %s\nBuilt: %s\n", version, getBuildTimestamp())
}

// newLogger builds the CLI logger. GLYPHPACK_LOG_PATH appends logs to a file
// instead of stderr.
func newLogger(cliLevel string, stderr io.Writer) (hclog.Logger, func()) {
	level, jsonFormat, source := logging.ResolveLevel(cliLevel)

	output := stderr
	logPath := os.Getenv("GLYPHPACK_LOG_PATH")
	var (
		file    *os.File
		openErr error
	)
	if logPath != "" {
		file, openErr = os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if openErr == nil {
			output = file
		}
	}

	logger, flush := logging.Open(logging.Options{
		Name:   "glyphpack",
		Level:  level,
		JSON:   jsonFormat,
		Output: output,
	})
	closer := func() {
		flush()
		if file != nil {
			file.Close()
		}
	}
	if openErr != nil {
		logger.Warn("⚠️ Could not open log file, logging to stderr", "path", logPath, "error", openErr)
	}
	logger.Debug("Log level", "level", level, "source", source)
	return logger, closer
}

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "PANIC: %v\n", r)
			debug.PrintStack()
			os.Exit(ExitPanic)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(os.Stdout, os.Stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(exitCode(err))
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var showVersion bool

	root := &cobra.Command{
		Use:   "glyphpack",
		Short: "Render font glyphs into a sprite archive",
		Long: `glyphpack renders every character of a set of fonts as a costume and packs
the results into a Scratch sprite archive, one costume per glyph.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				fmt.Fprint(stdout, versionString())
				return nil
			}
			return cmd.Help()
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return fmt.Errorf("%w: %v", gperrors.ErrInvalidConfig, err)
	})
	root.Flags().BoolVarP(&showVersion, "version", "V", false, "Show version information")

	root.AddCommand(newBuildCmd(stdout, stderr))
	root.AddCommand(newNamesCmd(stdout))
	root.AddCommand(newVerifyCmd(stdout, stderr))
	return root
}
