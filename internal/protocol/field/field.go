package field

import "fmt"

// Kind tags how a Field is decoded and encoded.
type Kind int

const (
	KindInt Kind = iota
	KindStr
	KindSubfields
	KindBitGroup
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindStr:
		return "string"
	case KindSubfields:
		return "subfields"
	case KindBitGroup:
		return "bitgroup"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// StrMode selects how a string field finds its end.
type StrMode int

const (
	// StrFixed reads exactly Length bytes; zero bytes are padding.
	StrFixed StrMode = iota
	// StrTerminated reads up to Length bytes, stopping early at a zero byte.
	StrTerminated
	// StrToTerminator reads until a zero byte.
	StrToTerminator
	// StrToEOF reads every remaining whole byte and writes no terminator.
	StrToEOF
)

// Field describes one named value in a Schema.
type Field struct {
	Name string
	Kind Kind

	// Width is the bit width for KindInt and KindBitGroup.
	Width int
	// UpTo lets an int read fewer than Width bits when the buffer is short.
	UpTo bool

	Mode   StrMode
	Length int

	// Labels names each bit of a KindBitGroup, most significant first.
	Labels []string

	Schema *Schema
	Count  Counter
}

func Int(name string, width int) *Field {
	if width < 1 || width > 32 {
		panic(fmt.Sprintf("field: %s: invalid width %d", name, width))
	}
	return &Field{Name: name, Kind: KindInt, Width: width}
}

// IntUpTo reads min(width, remaining) bits and always writes width bits.
func IntUpTo(name string, width int) *Field {
	f := Int(name, width)
	f.UpTo = true
	return f
}

func Str(name string, mode StrMode, length int) *Field {
	switch mode {
	case StrFixed, StrTerminated:
		if length <= 0 {
			panic(fmt.Sprintf("field: %s: invalid string length %d", name, length))
		}
	case StrToTerminator, StrToEOF:
		length = 0
	default:
		panic(fmt.Sprintf("field: %s: invalid string mode %d", name, mode))
	}
	return &Field{Name: name, Kind: KindStr, Mode: mode, Length: length}
}

// BitGroup packs one boolean per label into width bits.
// The declared width must equal the label count.
func BitGroup(name string, width int, labels ...string) *Field {
	if width < 1 || width > 32 {
		panic(fmt.Sprintf("field: %s: invalid width %d", name, width))
	}
	if width != len(labels) {
		panic(fmt.Sprintf("field: %s: width %d does not span %d labels", name, width, len(labels)))
	}
	seen := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		if _, dup := seen[l]; dup {
			panic(fmt.Sprintf("field: %s: duplicate label %q", name, l))
		}
		seen[l] = struct{}{}
	}
	return &Field{Name: name, Kind: KindBitGroup, Width: width, Labels: labels}
}

func Subfields(name string, schema *Schema, count Counter) *Field {
	if schema == nil {
		panic(fmt.Sprintf("field: %s: nil subfield schema", name))
	}
	if !count.valid() {
		panic(fmt.Sprintf("field: %s: invalid subfield counter", name))
	}
	return &Field{Name: name, Kind: KindSubfields, Schema: schema, Count: count}
}

// labelBit returns the bit mask for a BitGroup label.
func (f *Field) labelBit(label string) (int, bool) {
	for i, l := range f.Labels {
		if l == label {
			return 1 << uint(f.Width-1-i), true
		}
	}
	return 0, false
}

func (f *Field) String() string {
	switch f.Kind {
	case KindInt, KindBitGroup:
		return fmt.Sprintf("%s: %d", f.Name, f.Width)
	case KindSubfields:
		return fmt.Sprintf("%s: [%s]", f.Name, f.Schema.Name)
	default:
		return fmt.Sprintf("%s: (%s)", f.Name, f.Kind)
	}
}
