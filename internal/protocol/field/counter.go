package field

import "fmt"

// Counter decides how many nested instances a Subfields field holds.
type Counter struct {
	fixed  int
	ref    string
	adjust func(int) int
	more   func(st Stack, read []*Values) (bool, error)
}

// Const is a structurally fixed count.
func Const(n int) Counter {
	return Counter{fixed: n}
}

// CountOf reads the count from a previously decoded field, searching the
// current instance first and then its parents.
func CountOf(name string) Counter {
	return Counter{fixed: -1, ref: name}
}

func CountOfPlus(name string, k int) Counter {
	return CountFunc(name, func(n int) int { return n + k })
}

func CountFunc(name string, fn func(int) int) Counter {
	return Counter{fixed: -1, ref: name, adjust: fn}
}

// While keeps decoding instances as long as more reports true.
// On encode every held instance is written.
func While(more func(st Stack, read []*Values) (bool, error)) Counter {
	return Counter{fixed: -1, more: more}
}

func (c Counter) valid() bool {
	switch {
	case c.more != nil:
		return c.ref == ""
	case c.ref != "":
		return true
	default:
		return c.fixed >= 0
	}
}

func (c Counter) resolve(st Stack) (int, error) {
	if c.ref == "" {
		return c.fixed, nil
	}
	n, err := st.Int(c.ref)
	if err != nil {
		return 0, err
	}
	if c.adjust != nil {
		n = c.adjust(n)
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: negative count %d from %s", ErrSchema, n, c.ref)
	}
	return n, nil
}

// Stack is the decode context: the instance being decoded followed by its parents.
type Stack []*Values

// Int finds the nearest decoded int field with the given name.
func (st Stack) Int(name string) (int, error) {
	for _, v := range st {
		if val, ok := v.Get(name); ok {
			if val.Field.Kind != KindInt && val.Field.Kind != KindBitGroup {
				return 0, fmt.Errorf("%w: %s is %s", ErrKind, name, val.Field.Kind)
			}
			return val.Int, nil
		}
	}
	return 0, fmt.Errorf("%w: count field %s", ErrNoField, name)
}
