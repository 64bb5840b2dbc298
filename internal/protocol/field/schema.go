package field

import (
	"fmt"
	"strings"

	"github.com/danmuck/g2ctl/internal/protocol/bits"
)

// Schema is an ordered list of fields decoded and encoded as one instance.
type Schema struct {
	Name     string
	Fields   []*Field
	index    map[string]int
	trimTail int
}

func NewSchema(name string, fields ...*Field) *Schema {
	if len(fields) == 0 {
		panic(fmt.Sprintf("field: schema %s has no fields", name))
	}
	s := &Schema{Name: name, Fields: fields, index: make(map[string]int, len(fields))}
	for i, f := range fields {
		if _, dup := s.index[f.Name]; dup {
			panic(fmt.Sprintf("field: schema %s: duplicate field %s", name, f.Name))
		}
		s.index[f.Name] = i
	}
	return s
}

// TrimTail makes Encode drop a trailing partial byte of at most n bits.
func (s *Schema) TrimTail(n int) *Schema {
	s.trimTail = n
	return s
}

// Field returns the named field or nil.
func (s *Schema) Field(name string) *Field {
	i, ok := s.index[name]
	if !ok {
		return nil
	}
	return s.Fields[i]
}

func (s *Schema) mustField(name string) *Field {
	f := s.Field(name)
	if f == nil {
		panic(fmt.Sprintf("field: schema %s has no field %s", s.Name, name))
	}
	return f
}

func (s *Schema) String() string {
	var b strings.Builder
	b.WriteString(s.Name)
	b.WriteString(":\n")
	for _, f := range s.Fields {
		fmt.Fprintf(&b, "  %s\n", f)
	}
	return b.String()
}

func (s *Schema) Decode(c *bits.Cursor) (*Values, error) {
	return s.decode(c, nil)
}

func (s *Schema) decode(c *bits.Cursor, parents Stack) (*Values, error) {
	v := &Values{schema: s, items: make([]Value, 0, len(s.Fields))}
	st := append(Stack{v}, parents...)
	for _, f := range s.Fields {
		start := c.BitIndex()
		val, err := decodeField(f, c, st)
		if err != nil {
			return nil, wrapDecode(s, f, start, err)
		}
		v.items = append(v.items, val)
	}
	return v, nil
}

func wrapDecode(s *Schema, f *Field, bit int, err error) error {
	if de, ok := err.(*DecodeError); ok && de.Schema == "" {
		de.Schema = s.Name
		return de
	}
	return &DecodeError{Schema: s.Name, Field: f.Name, Index: -1, BitIndex: bit, Err: err}
}

func decodeField(f *Field, c *bits.Cursor, st Stack) (Value, error) {
	switch f.Kind {
	case KindInt, KindBitGroup:
		width := f.Width
		if f.UpTo && c.BitsRemaining() < width {
			width = c.BitsRemaining()
		}
		if width == 0 {
			return Value{Field: f}, nil
		}
		n, err := c.Get(width)
		if err != nil {
			return Value{}, err
		}
		return Value{Field: f, Int: n}, nil
	case KindStr:
		str, err := readString(f, c)
		if err != nil {
			return Value{}, err
		}
		return Value{Field: f, Str: str}, nil
	case KindSubfields:
		return decodeSubfields(f, c, st)
	default:
		return Value{}, fmt.Errorf("%w: unknown kind %s", ErrSchema, f.Kind)
	}
}

func decodeSubfields(f *Field, c *bits.Cursor, st Stack) (Value, error) {
	var subs []*Values
	if f.Count.more != nil {
		for {
			more, err := f.Count.more(st, subs)
			if err != nil {
				return Value{}, err
			}
			if !more {
				break
			}
			start := c.BitIndex()
			sv, err := f.Schema.decode(c, st)
			if err != nil {
				return Value{}, &DecodeError{Field: f.Name, Index: len(subs), BitIndex: start, Err: err}
			}
			subs = append(subs, sv)
		}
		return Value{Field: f, Subs: subs}, nil
	}
	n, err := f.Count.resolve(st)
	if err != nil {
		return Value{}, err
	}
	subs = make([]*Values, 0, n)
	for i := 0; i < n; i++ {
		start := c.BitIndex()
		sv, err := f.Schema.decode(c, st)
		if err != nil {
			return Value{}, &DecodeError{Field: f.Name, Index: i, BitIndex: start, Err: err}
		}
		subs = append(subs, sv)
	}
	return Value{Field: f, Subs: subs}, nil
}

// Encode writes every value in schema order.
func (v *Values) Encode(c *bits.Cursor) error {
	for _, item := range v.items {
		if err := encodeValue(item, c); err != nil {
			return fmt.Errorf("encode %s.%s: %w", v.schema.Name, item.Field.Name, err)
		}
	}
	if t := v.schema.trimTail; t > 0 {
		if over := c.BitIndex() % 8; over > 0 && over <= t {
			c.TrimToByte()
		}
	}
	return nil
}

func encodeValue(val Value, c *bits.Cursor) error {
	f := val.Field
	switch f.Kind {
	case KindInt, KindBitGroup:
		return c.Put(f.Width, val.Int)
	case KindStr:
		return writeString(f, val.Str, c)
	case KindSubfields:
		for _, sub := range val.Subs {
			if err := sub.Encode(c); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown kind %s", ErrSchema, f.Kind)
	}
}

// EncodeBytes encodes v into a fresh byte slice.
func (v *Values) EncodeBytes() ([]byte, error) {
	c := bits.NewWriter(64)
	if err := v.Encode(c); err != nil {
		return nil, err
	}
	return c.Bytes(), nil
}
