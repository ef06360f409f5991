package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/provide-io/glyphpack/pkg/archive"
)

func newVerifyCmd(stdout, stderr io.Writer) *cobra.Command {
	var logLevel string

	cmd := &cobra.Command{
		Use:   "verify ARCHIVE",
		Short: "Check that every costume's asset is present and intact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, closeLog := newLogger(logLevel, stderr)
			defer closeLog()

			report, err := archive.Verify(args[0], logger.Named("verify"))
			if report != nil {
				printReport(stdout, report)
			}
			return err
		},
	}
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	return cmd
}

func printReport(w io.Writer, r *archive.Report) {
	if r.OK() {
		ok := color.New(color.FgGreen, color.Bold).SprintFunc()
		fmt.Fprintf(w, "%s %s: %d costumes, %d assets\n", ok("✓"), r.Path, r.Costumes, r.Assets)
		return
	}
	bad := color.New(color.FgRed, color.Bold).SprintFunc()
	fmt.Fprintf(w, "%s %s: %d problem(s)\n", bad("✗"), r.Path, len(r.Problems))
	for _, p := range r.Problems {
		fmt.Fprintf(w, "  - %s\n", p)
	}
}
