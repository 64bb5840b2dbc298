package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var errRoundTrip = errors.New("re-encoded bytes differ")

func newRoundTripCmd(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "roundtrip <file>",
		Short: "Decode and re-encode a file, checking for byte identity",
		Long: `The roundtrip command decodes a patch or performance file and encodes it
again. The command fails when the two images are not byte for byte identical.

Example:
  g2ctl roundtrip "Bass Line.pch2"
  g2ctl roundtrip live.prf2 -o copy.prf2`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := a.load(args[0])
			if err != nil {
				return err
			}
			out, err := l.encode()
			if err != nil {
				return fmt.Errorf("encode %s: %w", args[0], err)
			}
			if output != "" {
				if err := os.WriteFile(output, out, 0o644); err != nil {
					return err
				}
			}
			res := roundTripResult{
				File:      args[0],
				Kind:      l.kind(),
				Bytes:     len(l.raw),
				Encoded:   len(out),
				Identical: true,
				FirstDiff: -1,
			}
			if off := firstDiff(l.raw, out); off >= 0 {
				res.Identical = false
				res.FirstDiff = off
			}
			w := cmd.OutOrStdout()
			if a.jsonOut {
				if err := a.printJSON(w, res); err != nil {
					return err
				}
			} else if res.Identical {
				fmt.Fprintf(w, "%s: %s of %d bytes round trips\n", res.File, res.Kind, res.Bytes)
			} else {
				fmt.Fprintf(w, "%s: %d bytes in, %d bytes out, first difference at %#x\n",
					res.File, res.Bytes, res.Encoded, res.FirstDiff)
			}
			if !res.Identical {
				return fmt.Errorf("%s: %w", args[0], errRoundTrip)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the re-encoded file here")
	return cmd
}

type roundTripResult struct {
	File      string `json:"file"`
	Kind      string `json:"kind"`
	Bytes     int    `json:"bytes"`
	Encoded   int    `json:"encoded"`
	Identical bool   `json:"identical"`
	FirstDiff int    `json:"first_diff"`
}

// firstDiff returns the first offset where a and b differ, or -1.
func firstDiff(a, b []byte) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	if len(a) != len(b) {
		return n
	}
	return -1
}
