package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/provide-io/glyphpack/pkg/config"
	"github.com/provide-io/glyphpack/pkg/glyph"
)

type nameEntry struct {
	Font      string `json:"font"`
	Character string `json:"character"`
	Codepoint string `json:"codepoint"`
	Name      string `json:"name"`
}

func newNamesCmd(stdout io.Writer) *cobra.Command {
	var (
		configPath string
		mode       string
		characters string
		lowercase  bool
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "names",
		Short: "List the costume name of every glyph without rendering",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Read(configPath, config.Mode(mode))
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("characters") {
				cfg.Characters = characters
			}
			if cmd.Flags().Changed("lowercase-names") {
				cfg.LowercaseNames = lowercase
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			entries := planNames(cfg)
			if asJSON {
				enc := json.NewEncoder(stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}

			tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "FONT\tCODEPOINT\tCHAR\tNAME")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%q\t%s\n", e.Font, e.Codepoint, e.Character, e.Name)
			}
			return tw.Flush()
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&configPath, "config", "c", "", "Path to a JSON configuration file")
	fs.StringVarP(&mode, "mode", "m", "", "Output mode (raster, vector)")
	fs.StringVar(&characters, "characters", "", "Characters to list for every font")
	fs.BoolVar(&lowercase, "lowercase-names", false, "Fold uppercase glyph names to lowercase")
	fs.BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}

func planNames(cfg config.Config) []nameEntry {
	jobs := glyph.Plan(cfg)
	entries := make([]nameEntry, 0, len(jobs))
	for _, job := range jobs {
		entries = append(entries, nameEntry{
			Font:      job.Font.ID,
			Character: string(job.Character),
			Codepoint: fmt.Sprintf("U+%04X", job.Character),
			Name:      job.Name,
		})
	}
	return entries
}
