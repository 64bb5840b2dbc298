package main

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/danmuck/g2ctl/internal/entries"
	"github.com/danmuck/g2ctl/internal/protocol"
	"github.com/spf13/cobra"
)

var errCapturesExhausted = errors.New("captured listing ended before a done page")

func newEntriesCmd(a *app) *cobra.Command {
	var bank int
	cmd := &cobra.Command{
		Use:   "entries <capture>...",
		Short: "Decode captured entry list responses and dump the catalog",
		Long: `The entries command replays captured entry list responses, in the order
given, through the catalog paging loop and prints the resulting banks. Each
capture holds one response message including its checksum, raw or as hex.

Example:
  g2ctl entries page1.hex page2.hex
  g2ctl entries perf.bin --bank 2 --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pages := map[entries.Type][]entries.Message{}
			var order []entries.Type
			for _, path := range args {
				raw, err := readCapture(path)
				if err != nil {
					return err
				}
				m, err := decodeListing(raw)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				if _, seen := pages[m.Type]; !seen {
					order = append(order, m.Type)
				}
				pages[m.Type] = append(pages[m.Type], m)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), a.cfg.Device.TaskTimeout)
			defer cancel()
			catalog := entries.NewCatalog()
			for _, t := range order {
				if err := catalog.Read(ctx, replayLister(pages[t]), t); err != nil {
					return err
				}
			}

			w := cmd.OutOrStdout()
			if a.jsonOut {
				return a.printJSON(w, catalogView(catalog, order, bank-1))
			}
			for _, t := range order {
				if err := catalog.Dump(w, t, bank-1); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&bank, "bank", 0, "Only show this bank (1-based)")
	return cmd
}

// decodeListing checks the checksum and header of a captured response and
// decodes its entry list payload.
func decodeListing(msg []byte) (entries.Message, error) {
	body, err := protocol.VerifyCRC(msg)
	if err != nil {
		return entries.Message{}, err
	}
	if len(body) < 4 {
		return entries.Message{}, fmt.Errorf("%w: %d bytes", protocol.ErrTruncated, len(body))
	}
	if body[0] != protocol.RCmd {
		return entries.Message{}, fmt.Errorf("%w: response code %#02x", protocol.ErrUnexpectedByte, body[0])
	}
	if h := body[1]; h != protocol.HeaderSystem && h != protocol.PerfID {
		return entries.Message{}, fmt.Errorf("%w: header %#02x", protocol.ErrUnexpectedByte, h)
	}
	if body[3] != protocol.TEntryList {
		return entries.Message{}, fmt.Errorf("%w: type %#02x is not an entry list", protocol.ErrUnexpectedByte, body[3])
	}
	return entries.Decode(body[4:])
}

// replayLister answers each list request with the next captured page.
func replayLister(pages []entries.Message) entries.Lister {
	next := 0
	return entries.ListerFunc(func(ctx context.Context, t entries.Type, bank, entry int) (entries.Message, error) {
		if err := ctx.Err(); err != nil {
			return entries.Message{}, err
		}
		if next >= len(pages) {
			return entries.Message{}, fmt.Errorf("%w at %d,%d", errCapturesExhausted, bank, entry)
		}
		m := pages[next]
		next++
		return m, nil
	})
}

type bankView struct {
	Type    string      `json:"type"`
	Bank    int         `json:"bank"`
	Entries []entryView `json:"entries"`
}

type entryView struct {
	Entry    int    `json:"entry"`
	Name     string `json:"name"`
	Category int    `json:"category"`
}

func catalogView(c *entries.Catalog, types []entries.Type, bank int) []bankView {
	out := []bankView{}
	for _, t := range types {
		for _, bi := range c.Banks(t) {
			if bank >= 0 && bi != bank {
				continue
			}
			bv := bankView{Type: t.String(), Bank: bi + 1, Entries: []entryView{}}
			es := c.Entries(t, bi)
			keys := make([]int, 0, len(es))
			for k := range es {
				keys = append(keys, k)
			}
			sort.Ints(keys)
			for _, ei := range keys {
				e := es[ei]
				bv.Entries = append(bv.Entries, entryView{Entry: ei + 1, Name: e.Name, Category: e.Category})
			}
			out = append(out, bv)
		}
	}
	return out
}
