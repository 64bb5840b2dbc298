package field

import (
	"fmt"
	"strings"
)

// Value is one decoded entry. Only the member matching Field.Kind is meaningful.
type Value struct {
	Field *Field
	Int   int
	Str   string
	Subs  []*Values
}

// Values is a decoded schema instance: one Value per field, in schema order.
type Values struct {
	schema *Schema
	items  []Value
}

func (v *Values) Schema() *Schema { return v.schema }

// Items returns the entries in schema order. Callers must not mutate them.
func (v *Values) Items() []Value { return v.items }

func (v *Values) Get(name string) (Value, bool) {
	for _, item := range v.items {
		if item.Field.Name == name {
			return item, true
		}
	}
	return Value{}, false
}

func (v *Values) lookup(name string, kinds ...Kind) (Value, error) {
	item, ok := v.Get(name)
	if !ok {
		return Value{}, fmt.Errorf("%w: %s.%s", ErrNoField, v.schema.Name, name)
	}
	for _, k := range kinds {
		if item.Field.Kind == k {
			return item, nil
		}
	}
	return Value{}, fmt.Errorf("%w: %s.%s is %s", ErrKind, v.schema.Name, name, item.Field.Kind)
}

func (v *Values) Int(name string) (int, error) {
	item, err := v.lookup(name, KindInt, KindBitGroup)
	if err != nil {
		return 0, err
	}
	return item.Int, nil
}

func (v *Values) Str(name string) (string, error) {
	item, err := v.lookup(name, KindStr)
	if err != nil {
		return "", err
	}
	return item.Str, nil
}

func (v *Values) Subfields(name string) ([]*Values, error) {
	item, err := v.lookup(name, KindSubfields)
	if err != nil {
		return nil, err
	}
	return item.Subs, nil
}

// Bit reports one labelled flag of a BitGroup field.
func (v *Values) Bit(name, label string) (bool, error) {
	item, err := v.lookup(name, KindBitGroup)
	if err != nil {
		return false, err
	}
	mask, ok := item.Field.labelBit(label)
	if !ok {
		return false, fmt.Errorf("%w: %s.%s has no label %s", ErrNoField, v.schema.Name, name, label)
	}
	return item.Int&mask != 0, nil
}

// MustInt is Int for fields the schema guarantees; a miss is a programming error.
func (v *Values) MustInt(name string) int {
	n, err := v.Int(name)
	if err != nil {
		panic(err)
	}
	return n
}

func (v *Values) MustStr(name string) string {
	s, err := v.Str(name)
	if err != nil {
		panic(err)
	}
	return s
}

func (v *Values) MustSubfields(name string) []*Values {
	subs, err := v.Subfields(name)
	if err != nil {
		panic(err)
	}
	return subs
}

// Update replaces the entry for val.Field in place. Siblings are untouched.
func (v *Values) Update(val Value) error {
	if val.Field == nil {
		return fmt.Errorf("%w: nil field", ErrNoField)
	}
	for i, item := range v.items {
		if item.Field != val.Field && item.Field.Name != val.Field.Name {
			continue
		}
		if item.Field.Kind != val.Field.Kind {
			return fmt.Errorf("%w: %s.%s is %s", ErrKind, v.schema.Name, item.Field.Name, item.Field.Kind)
		}
		val.Field = item.Field
		if err := check(val); err != nil {
			return err
		}
		v.items[i] = val
		return nil
	}
	return fmt.Errorf("%w: %s.%s", ErrNoField, v.schema.Name, val.Field.Name)
}

func (v *Values) SetInt(name string, n int) error {
	item, err := v.lookup(name, KindInt, KindBitGroup)
	if err != nil {
		return err
	}
	item.Int = n
	return v.Update(item)
}

func (v *Values) SetString(name, s string) error {
	item, err := v.lookup(name, KindStr)
	if err != nil {
		return err
	}
	item.Str = s
	return v.Update(item)
}

func (v *Values) SetSubfields(name string, subs []*Values) error {
	item, err := v.lookup(name, KindSubfields)
	if err != nil {
		return err
	}
	item.Subs = subs
	return v.Update(item)
}

func (v *Values) SetBit(name, label string, on bool) error {
	item, err := v.lookup(name, KindBitGroup)
	if err != nil {
		return err
	}
	mask, ok := item.Field.labelBit(label)
	if !ok {
		return fmt.Errorf("%w: %s.%s has no label %s", ErrNoField, v.schema.Name, name, label)
	}
	if on {
		item.Int |= mask
	} else {
		item.Int &^= mask
	}
	return v.Update(item)
}

func check(val Value) error {
	f := val.Field
	switch f.Kind {
	case KindInt, KindBitGroup:
		if val.Int < 0 || uint64(val.Int) >= uint64(1)<<uint(f.Width) {
			return fmt.Errorf("%w: %s=%d exceeds %d bits", ErrOverflow, f.Name, val.Int, f.Width)
		}
	case KindStr:
		if _, err := encodeText(f, val.Str); err != nil {
			return err
		}
	case KindSubfields:
		for _, sub := range val.Subs {
			if sub == nil || sub.schema != f.Schema {
				return fmt.Errorf("%w: %s holds %s instances", ErrSchema, f.Name, f.Schema.Name)
			}
		}
	}
	return nil
}

// Make builds an instance from positional values in schema order:
// int for KindInt/KindBitGroup, string for KindStr, []*Values for KindSubfields.
func (s *Schema) Make(args ...any) (*Values, error) {
	if len(args) != len(s.Fields) {
		return nil, fmt.Errorf("%w: %s wants %d values, got %d", ErrSchema, s.Name, len(s.Fields), len(args))
	}
	v := &Values{schema: s, items: make([]Value, len(s.Fields))}
	for i, f := range s.Fields {
		val := Value{Field: f}
		switch a := args[i].(type) {
		case int:
			if f.Kind != KindInt && f.Kind != KindBitGroup {
				return nil, fmt.Errorf("%w: %s.%s is %s, got int", ErrKind, s.Name, f.Name, f.Kind)
			}
			val.Int = a
		case bool:
			if f.Kind != KindInt {
				return nil, fmt.Errorf("%w: %s.%s is %s, got bool", ErrKind, s.Name, f.Name, f.Kind)
			}
			if a {
				val.Int = 1
			}
		case string:
			if f.Kind != KindStr {
				return nil, fmt.Errorf("%w: %s.%s is %s, got string", ErrKind, s.Name, f.Name, f.Kind)
			}
			val.Str = a
		case []*Values:
			if f.Kind != KindSubfields {
				return nil, fmt.Errorf("%w: %s.%s is %s, got subfields", ErrKind, s.Name, f.Name, f.Kind)
			}
			val.Subs = a
		default:
			return nil, fmt.Errorf("%w: %s.%s: unsupported %T", ErrKind, s.Name, f.Name, args[i])
		}
		if err := check(val); err != nil {
			return nil, err
		}
		v.items[i] = val
	}
	return v, nil
}

func (s *Schema) MustMake(args ...any) *Values {
	v, err := s.Make(args...)
	if err != nil {
		panic(err)
	}
	return v
}

// Clone deep-copies v, giving readers a snapshot independent of later updates.
func (v *Values) Clone() *Values {
	out := &Values{schema: v.schema, items: make([]Value, len(v.items))}
	for i, item := range v.items {
		if item.Subs != nil {
			subs := make([]*Values, len(item.Subs))
			for j, sub := range item.Subs {
				subs[j] = sub.Clone()
			}
			item.Subs = subs
		}
		out.items[i] = item
	}
	return out
}

func (v *Values) Equal(o *Values) bool {
	if v == nil || o == nil {
		return v == o
	}
	if v.schema != o.schema || len(v.items) != len(o.items) {
		return false
	}
	for i := range v.items {
		a, b := v.items[i], o.items[i]
		if a.Int != b.Int || a.Str != b.Str || len(a.Subs) != len(b.Subs) {
			return false
		}
		for j := range a.Subs {
			if !a.Subs[j].Equal(b.Subs[j]) {
				return false
			}
		}
	}
	return true
}

func (v *Values) Dump() string {
	var b strings.Builder
	v.format(&b, 0)
	return b.String()
}

func (v *Values) format(b *strings.Builder, depth int) {
	pad := strings.Repeat("  ", depth)
	for _, item := range v.items {
		switch item.Field.Kind {
		case KindStr:
			fmt.Fprintf(b, "%s%s: %q\n", pad, item.Field.Name, item.Str)
		case KindSubfields:
			fmt.Fprintf(b, "%s%s: [%d]\n", pad, item.Field.Name, len(item.Subs))
			for i, sub := range item.Subs {
				fmt.Fprintf(b, "%s  - %d\n", pad, i)
				sub.format(b, depth+2)
			}
		default:
			fmt.Fprintf(b, "%s%s: %#x\n", pad, item.Field.Name, item.Int)
		}
	}
}
