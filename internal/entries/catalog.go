package entries

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/rs/zerolog/log"
)

// Lister performs one list request and returns the decoded response.
type Lister interface {
	ListEntries(ctx context.Context, t Type, bank, entry int) (Message, error)
}

// ListerFunc adapts a function to Lister.
type ListerFunc func(ctx context.Context, t Type, bank, entry int) (Message, error)

func (f ListerFunc) ListEntries(ctx context.Context, t Type, bank, entry int) (Message, error) {
	return f(ctx, t, bank, entry)
}

// Catalog holds the merged bank listings of both entry types.
type Catalog struct {
	banks map[Type]map[int]map[int]Entry
}

func NewCatalog() *Catalog {
	c := &Catalog{banks: map[Type]map[int]map[int]Entry{}}
	for _, t := range Types {
		c.banks[t] = map[int]map[int]Entry{}
	}
	return c
}

// Read replaces the listing of t by paging through the device until a
// response is done or carries no banks. Each request resumes after the
// last entry of the previous response.
func (c *Catalog) Read(ctx context.Context, l Lister, t Type) error {
	c.banks[t] = map[int]map[int]Entry{}
	msg := Message{Type: t, Banks: []Bank{{}}}
	pages := 0
	lastBank, lastEntry := -1, -1
	for {
		bank, entry, ok := msg.Next()
		if !ok {
			break
		}
		if bank == lastBank && entry == lastEntry {
			return fmt.Errorf("%w: %s at %d,%d", ErrNoProgress, t, bank, entry)
		}
		lastBank, lastEntry = bank, entry
		if err := ctx.Err(); err != nil {
			return err
		}
		log.Debug().Str("type", t.String()).Int("bank", bank).Int("entry", entry).Msg("entries request")
		var err error
		if msg, err = l.ListEntries(ctx, t, bank, entry); err != nil {
			return fmt.Errorf("entries: %s page %d: %w", t, pages, err)
		}
		if msg.Type != t {
			return fmt.Errorf("%w: got %s listing, want %s", ErrType, msg.Type, t)
		}
		c.Merge(msg)
		pages++
	}
	log.Info().Str("type", t.String()).Int("pages", pages).Int("banks", len(c.banks[t])).Msg("entries read")
	return nil
}

// Merge stores the entries of one response.
func (c *Catalog) Merge(m Message) {
	for _, b := range m.Banks {
		bm, ok := c.banks[m.Type][b.Bank]
		if !ok {
			bm = map[int]Entry{}
			c.banks[m.Type][b.Bank] = bm
		}
		for i, e := range b.Entries {
			bm[b.Entry+i] = e
		}
	}
}

// Banks lists the bank indexes of t in order.
func (c *Catalog) Banks(t Type) []int {
	return sortedKeys(c.banks[t])
}

// Entries lists the entries of one bank by entry index.
func (c *Catalog) Entries(t Type, bank int) map[int]Entry {
	return c.banks[t][bank]
}

func (c *Catalog) Lookup(t Type, bank, entry int) (Entry, bool) {
	e, ok := c.banks[t][bank][entry]
	return e, ok
}

// Len counts the entries of t.
func (c *Catalog) Len(t Type) int {
	n := 0
	for _, b := range c.banks[t] {
		n += len(b)
	}
	return n
}

// Dump writes the listing of t, one bank or all banks when bank is -1.
// Bank and entry numbers are shown 1-based.
func (c *Catalog) Dump(w io.Writer, t Type, bank int) error {
	for _, bi := range c.Banks(t) {
		if bank != -1 && bi != bank {
			continue
		}
		if _, err := fmt.Fprintf(w, "%s bank %d:\n", t, bi+1); err != nil {
			return err
		}
		b := c.banks[t][bi]
		for _, ei := range sortedKeys(b) {
			e := b[ei]
			if _, err := fmt.Fprintf(w, "  %02d: %s [%d]\n", ei+1, e.Name, e.Category); err != nil {
				return err
			}
		}
	}
	return nil
}

func sortedKeys[V any](m map[int]V) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}
