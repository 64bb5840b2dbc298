package field

import (
	"fmt"

	"github.com/danmuck/g2ctl/internal/protocol/bits"
	"golang.org/x/text/encoding/charmap"
)

// Device strings are single-byte Latin-1.
var latin1 = charmap.ISO8859_1

func readString(f *Field, c *bits.Cursor) (string, error) {
	raw := make([]byte, 0, 16)
	n := 0
	for c.BitsRemaining() >= 8 {
		if f.Length > 0 {
			n++
			if n > f.Length {
				break
			}
		}
		b, err := c.Get(8)
		if err != nil {
			return "", err
		}
		if b != 0 {
			raw = append(raw, byte(b))
			continue
		}
		if f.Mode == StrTerminated || f.Mode == StrToTerminator {
			break
		}
	}
	out, err := latin1.NewDecoder().Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrText, err)
	}
	return string(out), nil
}

func encodeText(f *Field, s string) ([]byte, error) {
	raw, err := latin1.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %q", ErrText, f.Name, s)
	}
	if f.Length > 0 && len(raw) > f.Length {
		return nil, fmt.Errorf("%w: %s: %d bytes exceeds %d", ErrOverflow, f.Name, len(raw), f.Length)
	}
	return raw, nil
}

func writeString(f *Field, s string, c *bits.Cursor) error {
	raw, err := encodeText(f, s)
	if err != nil {
		return err
	}
	if err := c.PutBytes(raw); err != nil {
		return err
	}
	switch f.Mode {
	case StrFixed:
		for i := len(raw); i < f.Length; i++ {
			if err := c.Put(8, 0); err != nil {
				return err
			}
		}
		return nil
	case StrToEOF:
		return nil
	case StrTerminated:
		// a full-length value is read back without a terminator
		if len(raw) == f.Length {
			return nil
		}
	}
	return c.Put(8, 0)
}
