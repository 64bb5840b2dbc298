package main

import (
	"os"

	"github.com/danmuck/g2ctl/internal/report"
	"github.com/spf13/cobra"
)

func newExportCmd(a *app) *cobra.Command {
	var (
		format string
		output string
	)
	cmd := &cobra.Command{
		Use:   "export <file>",
		Short: "Export a patch or performance summary as JSON, YAML or TOML",
		Long: `The export command decodes a file and writes its summary: modules with the
parameter values of the active variation, cables, knobs and section digests.

Example:
  g2ctl export "Bass Line.pch2" --format yaml
  g2ctl export live.prf2 --format toml -o live.toml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := report.ParseFormat(format)
			if err != nil {
				return err
			}
			l, err := a.load(args[0])
			if err != nil {
				return err
			}
			if output == "" {
				return report.Encode(cmd.OutOrStdout(), l.summary(), f)
			}
			file, err := os.Create(output)
			if err != nil {
				return err
			}
			if err := report.Encode(file, l.summary(), f); err != nil {
				file.Close()
				return err
			}
			return file.Close()
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "yaml", "Output format: json, yaml or toml")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to a file instead of stdout")
	return cmd
}
