package bits

import (
	"errors"
	"fmt"
)

// MaxWidth is the widest scalar a single Get/Put moves.
const MaxWidth = 32

var (
	ErrOverRead = errors.New("bits: read past end of buffer")
	ErrWidth    = errors.New("bits: invalid field width")
	ErrOverflow = errors.New("bits: value does not fit width")
	ErrIndex    = errors.New("bits: bit index out of range")
)

// Cursor is an MSB-first bit reader/writer over a byte slice.
// limit is the number of valid bits; pos never exceeds it.
type Cursor struct {
	data  []byte
	pos   int
	limit int
}

// NewReader wraps b for reading. The slice is not copied.
func NewReader(b []byte) *Cursor {
	return &Cursor{data: b, limit: len(b) * 8}
}

// NewWriter returns an empty cursor that grows on Put.
func NewWriter(capacity int) *Cursor {
	return &Cursor{data: make([]byte, 0, capacity)}
}

func (c *Cursor) BitIndex() int      { return c.pos }
func (c *Cursor) BitLen() int        { return c.limit }
func (c *Cursor) BitsRemaining() int { return c.limit - c.pos }

func (c *Cursor) SetBitIndex(i int) error {
	if i < 0 || i > c.limit {
		return fmt.Errorf("%w: %d of %d", ErrIndex, i, c.limit)
	}
	c.pos = i
	return nil
}

func (c *Cursor) Get(n int) (int, error) {
	v, err := c.Peek(n)
	if err != nil {
		return 0, err
	}
	c.pos += n
	return v, nil
}

func (c *Cursor) Peek(n int) (int, error) {
	if n < 1 || n > MaxWidth {
		return 0, fmt.Errorf("%w: %d", ErrWidth, n)
	}
	if c.pos+n > c.limit {
		return 0, fmt.Errorf("%w: want %d bits at %d, have %d", ErrOverRead, n, c.pos, c.limit-c.pos)
	}
	v := 0
	for i := 0; i < n; i++ {
		p := c.pos + i
		bit := (c.data[p>>3] >> (7 - uint(p&7))) & 1
		v = (v << 1) | int(bit)
	}
	return v, nil
}

// Put writes v in n bits at the cursor and advances, growing the buffer.
func (c *Cursor) Put(n int, v int) error {
	if n < 1 || n > MaxWidth {
		return fmt.Errorf("%w: %d", ErrWidth, n)
	}
	if v < 0 || uint64(v) >= uint64(1)<<uint(n) {
		return fmt.Errorf("%w: %d in %d bits", ErrOverflow, v, n)
	}
	end := c.pos + n
	for need := (end + 7) >> 3; len(c.data) < need; {
		c.data = append(c.data, 0)
	}
	for i := n - 1; i >= 0; i-- {
		p := c.pos
		mask := byte(1) << (7 - uint(p&7))
		if (v>>uint(i))&1 == 1 {
			c.data[p>>3] |= mask
		} else {
			c.data[p>>3] &^= mask
		}
		c.pos++
	}
	if c.pos > c.limit {
		c.limit = c.pos
	}
	return nil
}

// PutBytes writes whole bytes at the cursor.
func (c *Cursor) PutBytes(b []byte) error {
	for _, x := range b {
		if err := c.Put(8, int(x)); err != nil {
			return err
		}
	}
	return nil
}

// Slice returns a cursor over the next n bytes and advances past them.
// The current position must be byte aligned.
func (c *Cursor) Slice(n int) (*Cursor, error) {
	if c.pos&7 != 0 {
		return nil, fmt.Errorf("%w: slice at unaligned bit %d", ErrIndex, c.pos)
	}
	if n < 0 || c.pos+n*8 > c.limit {
		return nil, fmt.Errorf("%w: slice of %d bytes at %d", ErrOverRead, n, c.pos)
	}
	start := c.pos >> 3
	c.pos += n * 8
	return NewReader(c.data[start : start+n]), nil
}

// ShiftedSlice copies the remaining bits into a fresh byte slice whose first
// bit is the bit at the cursor. The cursor does not move.
func (c *Cursor) ShiftedSlice() []byte {
	rem := c.limit - c.pos
	if rem <= 0 {
		return []byte{}
	}
	out := make([]byte, (rem+7)>>3)
	shift := uint(c.pos & 7)
	base := c.pos >> 3
	for i := range out {
		b := c.data[base+i] << shift
		if shift > 0 && base+i+1 < len(c.data) {
			b |= c.data[base+i+1] >> (8 - shift)
		}
		out[i] = b
	}
	if tail := uint(rem & 7); tail != 0 {
		out[len(out)-1] &= 0xff << (8 - tail)
	}
	return out
}

// TrimToByte drops bits past the last whole byte of the written limit.
func (c *Cursor) TrimToByte() {
	c.limit &^= 7
	if c.pos > c.limit {
		c.pos = c.limit
	}
	c.data = c.data[:c.limit>>3]
}

// Bytes returns the written bytes, including a trailing partial byte.
func (c *Cursor) Bytes() []byte {
	return c.data[:(c.limit+7)>>3]
}
