package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/danmuck/g2ctl/internal/device"
	"github.com/danmuck/g2ctl/internal/report"
	"github.com/danmuck/g2ctl/internal/state"
	"github.com/spf13/cobra"
)

var errOffline = errors.New("no device connected")

// offlineTransport backs a device that only receives replayed messages.
type offlineTransport struct{}

func (offlineTransport) Request(context.Context, []byte) ([]byte, error) { return nil, errOffline }
func (offlineTransport) Send(context.Context, []byte) error              { return errOffline }

type replayResult struct {
	File  string `json:"file"`
	Error string `json:"error,omitempty"`
}

type replayReport struct {
	Messages    []replayResult            `json:"messages"`
	Failed      int                       `json:"failed"`
	Performance report.PerformanceSummary `json:"performance"`
}

func newReplayCmd(a *app) *cobra.Command {
	var (
		perfPath  string
		patchPath string
		slotName  string
	)
	cmd := &cobra.Command{
		Use:   "replay <capture>...",
		Short: "Apply captured device messages to a model and summarize it",
		Long: `The replay command dispatches captured inbound device messages, in order,
on a device worker exactly as a live connection would, then prints the
resulting performance. Start from a performance or patch file to replay edits
against a known state.

Example:
  g2ctl replay --performance live.prf2 edit1.hex edit2.hex
  g2ctl replay --patch lead.pch2 --slot B knob.hex --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			d := device.New(offlineTransport{}, a.cfg.Device)
			defer d.Close()

			if perfPath != "" {
				if err := d.LoadPerformanceFile(ctx, perfPath); err != nil {
					return fmt.Errorf("%s: %w", perfPath, err)
				}
			}
			if patchPath != "" {
				slot, err := parseSlot(slotName)
				if err != nil {
					return err
				}
				if err := d.LoadPatchFile(ctx, slot, patchPath); err != nil {
					return fmt.Errorf("%s: %w", patchPath, err)
				}
			}

			var rep replayReport
			for _, path := range args {
				msg, err := readCapture(path)
				if err != nil {
					return err
				}
				res := replayResult{File: path}
				err = d.Worker().Invoke(ctx, "replay", func(context.Context) error {
					return d.Dispatch(msg)
				})
				if err != nil {
					res.Error = err.Error()
					rep.Failed++
				}
				rep.Messages = append(rep.Messages, res)
			}
			err := d.View(ctx, func(perf *state.Performance, _ *state.SynthSettings) error {
				rep.Performance = report.SummarizePerformance(perf)
				return nil
			})
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if a.jsonOut {
				return a.printJSON(w, rep)
			}
			for _, r := range rep.Messages {
				if r.Error != "" {
					fmt.Fprintf(w, "%s: %s\n", r.File, r.Error)
					continue
				}
				fmt.Fprintf(w, "%s: applied\n", r.File)
			}
			printPerformance(w, rep.Performance)
			return nil
		},
	}
	cmd.Flags().StringVar(&perfPath, "performance", "", "Start from this performance file")
	cmd.Flags().StringVar(&patchPath, "patch", "", "Load this patch file into --slot first")
	cmd.Flags().StringVar(&slotName, "slot", "A", "Slot for --patch: A, B, C or D")
	return cmd
}

func parseSlot(name string) (state.Slot, error) {
	for _, s := range state.Slots {
		if strings.EqualFold(s.String(), strings.TrimSpace(name)) {
			return s, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", state.ErrSlot, name)
}
