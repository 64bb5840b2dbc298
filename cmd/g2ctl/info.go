package main

import (
	"fmt"
	"io"

	"github.com/danmuck/g2ctl/internal/report"
	"github.com/spf13/cobra"
)

func newInfoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info <file>",
		Short: "Decode a patch or performance file and print a summary",
		Long: `The info command decodes a .pch2 or .prf2 file, verifying its header and
checksum, and prints the patch name, voice mode, modules and cables.

Example:
  g2ctl info "Bass Line.pch2"
  g2ctl info live.prf2 --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := a.load(args[0])
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if a.jsonOut {
				return a.printJSON(w, l.summary())
			}
			if l.perf != nil {
				printPerformance(w, report.SummarizePerformance(l.perf))
				return nil
			}
			printPatch(w, report.Summarize(l.patch), "")
			return nil
		},
	}
}

func printPerformance(w io.Writer, s report.PerformanceSummary) {
	fmt.Fprintf(w, "Performance: %s\n", s.Name)
	fmt.Fprintf(w, "  Version: %d\n", s.Version)
	fmt.Fprintf(w, "  Selected: %s\n", s.Selected)
	fmt.Fprintf(w, "  Master clock: %d\n", s.Clock)
	for _, ps := range s.Slots {
		printPatch(w, ps, "  ")
	}
}

func printPatch(w io.Writer, s report.PatchSummary, indent string) {
	fmt.Fprintf(w, "%sPatch %s: %s\n", indent, s.Slot, s.Name)
	fmt.Fprintf(w, "%s  Version: %d\n", indent, s.Version)
	fmt.Fprintf(w, "%s  Voice mode: %s\n", indent, s.VoiceMode)
	fmt.Fprintf(w, "%s  Variation: %d\n", indent, s.Variation)
	for _, a := range s.Areas {
		fmt.Fprintf(w, "%s  %s: %d modules, %d cables\n", indent, a.Area, len(a.Modules), a.Cables)
		for _, m := range a.Modules {
			fmt.Fprintf(w, "%s    %02d %-16s type %d params %v\n", indent, m.Index, m.Name, m.Type, m.Params)
		}
	}
	if len(s.Knobs) > 0 {
		fmt.Fprintf(w, "%s  Knobs: %d assigned\n", indent, len(s.Knobs))
	}
	if s.TextPad != "" {
		fmt.Fprintf(w, "%s  Text: %q\n", indent, s.TextPad)
	}
}
