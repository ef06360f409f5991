package main

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/provide-io/glyphpack/pkg/config"
	gperrors "github.com/provide-io/glyphpack/pkg/errors"
	"github.com/provide-io/glyphpack/pkg/pipeline"
)

// buildFlags are the command-line overrides for a build. Only flags the user
// set are applied on top of the loaded configuration.
type buildFlags struct {
	configPath     string
	mode           string
	input          string
	output         string
	characters     string
	renderer       string
	command        string
	stagingDir     string
	outputPerms    string
	workers        int
	retries        int
	timeout        time.Duration
	keepStaging    bool
	lowercaseNames bool
	verify         bool
	logLevel       string
}

func (f *buildFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVarP(&f.configPath, "config", "c", "", "Path to a JSON configuration file")
	fs.StringVarP(&f.mode, "mode", "m", "", "Output mode (raster, vector)")
	fs.StringVarP(&f.input, "input", "i", "", "Input sprite archive")
	fs.StringVarP(&f.output, "output", "o", "", "Output sprite archive")
	fs.StringVar(&f.characters, "characters", "", "Characters to render for every font")
	fs.StringVar(&f.renderer, "renderer", "", "Raster renderer (process, builtin)")
	fs.StringVar(&f.command, "command", "", "Raster render command (default convert)")
	fs.StringVar(&f.stagingDir, "staging-dir", "", "Stage assets in this directory instead of a temporary one")
	fs.StringVar(&f.outputPerms, "output-perms", "", "Octal permissions of the output archive (default 0644)")
	fs.IntVarP(&f.workers, "workers", "w", 0, "Number of concurrent renders")
	fs.IntVar(&f.retries, "retries", 0, "Extra attempts after a failed render")
	fs.DurationVar(&f.timeout, "timeout", 0, "Time limit for each render")
	fs.BoolVar(&f.keepStaging, "keep-staging", false, "Keep the staging directory after the build")
	fs.BoolVar(&f.lowercaseNames, "lowercase-names", false, "Fold uppercase glyph names to lowercase")
	fs.BoolVar(&f.verify, "verify", true, "Verify the archive before replacing the output")
	fs.StringVar(&f.logLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
}

// load reads the configuration and applies the flags that were set.
func (f *buildFlags) load(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Read(f.configPath, config.Mode(f.mode))
	if err != nil {
		return config.Config{}, err
	}

	changed := cmd.Flags().Changed
	if changed("input") {
		cfg.Input = f.input
	}
	if changed("output") {
		cfg.Output = f.output
	}
	if changed("characters") {
		cfg.Characters = f.characters
	}
	if changed("renderer") {
		cfg.Raster.Renderer = config.Renderer(f.renderer)
	}
	if changed("command") {
		cfg.Raster.Command = f.command
	}
	if changed("staging-dir") {
		cfg.StagingDir = f.stagingDir
	}
	if changed("output-perms") {
		perms, err := config.ParseFileMode(f.outputPerms)
		if err != nil {
			return config.Config{}, fmt.Errorf("%w: --output-perms: %v", gperrors.ErrInvalidConfig, err)
		}
		cfg.OutputPerms = perms
	}
	if changed("workers") {
		cfg.Render.Workers = f.workers
	}
	if changed("retries") {
		cfg.Render.Retries = f.retries
	}
	if changed("timeout") {
		cfg.Render.Timeout = config.Duration(f.timeout)
	}
	if changed("keep-staging") {
		cfg.KeepStaging = f.keepStaging
	}
	if changed("lowercase-names") {
		cfg.LowercaseNames = f.lowercaseNames
	}
	if changed("verify") {
		cfg.Verify = f.verify
	}
	return cfg, cfg.Validate()
}

func newBuildCmd(stdout, stderr io.Writer) *cobra.Command {
	flags := &buildFlags{}
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Render glyphs and write the output sprite",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, closeLog := newLogger(flags.logLevel, stderr)
			defer closeLog()

			cfg, err := flags.load(cmd)
			if err != nil {
				logger.Error("❌ Invalid configuration", "error", err)
				return err
			}

			logger.Info("🔤🔤🔤 glyphpack " + version + " 🔤🔤🔤")
			summary, err := pipeline.Run(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			printSummary(stdout, summary)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func printSummary(w io.Writer, s *pipeline.Summary) {
	ok := color.New(color.FgGreen, color.Bold).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()

	fmt.Fprintf(w, "%s %s\n", ok("✔ Built"), s.Output)
	fmt.Fprintf(w, "  %d glyphs from %d fonts (%s)\n", s.Glyphs, s.Fonts, s.Mode)
	fmt.Fprintf(w, "  %d assets stored, %d shared\n", s.Stored, s.Deduplicated)
	fmt.Fprintf(w, "  %s in %s\n", humanize.Bytes(uint64(s.Size)), s.Elapsed.Round(time.Millisecond))
	if s.StagingDir != "" {
		fmt.Fprintf(w, "  %s %s\n", dim("staging:"), s.StagingDir)
	}
}
