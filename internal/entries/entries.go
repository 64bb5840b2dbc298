// Package entries decodes bank entry listings and pages through the
// device catalog.
//
// Ownership boundary:
// - entry list response layout (bank marker, entries, done/more tag)
// - list request builder
// - resumption loop and the merged catalog
package entries

import (
	"errors"
	"fmt"
	"strings"

	"github.com/danmuck/g2ctl/internal/protocol"
	"github.com/danmuck/g2ctl/internal/protocol/bits"
	"github.com/danmuck/g2ctl/internal/protocol/schema"
)

var (
	ErrNoBank     = errors.New("entries: entry before bank marker")
	ErrType       = errors.New("entries: unknown entry type")
	ErrNoResponse = errors.New("entries: no entry list received")
	ErrNoProgress = errors.New("entries: listing did not advance")
)

// Type selects the patch or performance catalog.
type Type int

const (
	Patch Type = iota
	Perf
)

var Types = []Type{Patch, Perf}

func (t Type) String() string {
	switch t {
	case Patch:
		return "Patch"
	case Perf:
		return "Perf"
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// TypeFromIndex validates an on-wire type byte.
func TypeFromIndex(i int) (Type, error) {
	if i < int(Patch) || i > int(Perf) {
		return 0, fmt.Errorf("%w: %d", ErrType, i)
	}
	return Type(i), nil
}

// ParseType accepts "patch" or "perf" in any case.
func ParseType(s string) (Type, error) {
	for _, t := range Types {
		if strings.EqualFold(s, t.String()) {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrType, s)
}

// Entry is one stored patch or performance.
type Entry struct {
	Name     string `json:"name" yaml:"name" toml:"name"`
	Category int    `json:"category" yaml:"category" toml:"category"`
}

// Bank is a run of entries starting at Entry within bank Bank.
type Bank struct {
	Bank    int
	Entry   int
	Entries []Entry
}

// Message is one decoded entry list response.
type Message struct {
	Type  Type
	Banks []Bank
	Done  bool
}

// Next returns the request position following the last bank, and false
// when the listing is complete.
func (m Message) Next() (bank, entry int, ok bool) {
	if m.Done || len(m.Banks) == 0 {
		return 0, 0, false
	}
	last := m.Banks[len(m.Banks)-1]
	return last.Bank, last.Entry + len(last.Entries), true
}

// Response tags.
const (
	headerLen = 4
	tagBank   = 0x03
	tagDone   = 0x04
	tagMore   = 0x05
)

// Decode parses the payload following the entry list type byte of a
// performance command.
func Decode(b []byte) (Message, error) {
	if len(b) < headerLen+1 {
		return Message{}, fmt.Errorf("%w: entry list %d bytes", protocol.ErrTruncated, len(b))
	}
	c := bits.NewReader(b[headerLen:])
	raw, err := c.Get(8)
	if err != nil {
		return Message{}, err
	}
	t, err := TypeFromIndex(raw)
	if err != nil {
		return Message{}, err
	}
	msg := Message{Type: t}
	var cur *Bank
	for {
		tag, err := c.Peek(8)
		if err != nil {
			return Message{}, fmt.Errorf("%w: entry list without terminator", protocol.ErrTruncated)
		}
		switch tag {
		case tagBank:
			_, _ = c.Get(8)
			bank, err := c.Get(8)
			if err != nil {
				return Message{}, fmt.Errorf("%w: bank marker", protocol.ErrTruncated)
			}
			entry, err := c.Get(8)
			if err != nil {
				return Message{}, fmt.Errorf("%w: bank marker", protocol.ErrTruncated)
			}
			msg.Banks = append(msg.Banks, Bank{Bank: bank, Entry: entry})
			cur = &msg.Banks[len(msg.Banks)-1]
		case tagDone, tagMore:
			_, _ = c.Get(8)
			msg.Done = tag == tagDone
			return msg, nil
		default:
			if cur == nil {
				return Message{}, ErrNoBank
			}
			v, err := schema.EntryData.Decode(c)
			if err != nil {
				return Message{}, fmt.Errorf("entries: bank %d: %w", cur.Bank, err)
			}
			cur.Entries = append(cur.Entries, Entry{
				Name:     v.MustStr(schema.FieldName),
				Category: v.MustInt(schema.FieldCategory),
			})
		}
	}
}

// Request builds the list request resuming at (bank, entry).
func Request(t Type, bank, entry int) []byte {
	return protocol.ListNames(int(t), bank, entry)
}
