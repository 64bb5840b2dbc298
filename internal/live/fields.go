package live

import (
	"fmt"

	"github.com/danmuck/g2ctl/internal/protocol/field"
)

// IntField binds to an int field of v. It panics if v has no such field.
func IntField(v *field.Values, name string) *Property[int] {
	mustHave(v, name, field.KindInt)
	return Derived(qualify(v, name),
		func() int { return v.MustInt(name) },
		func(n int) error { return v.SetInt(name, n) },
	)
}

// BoolField binds to an int field read as non-zero.
func BoolField(v *field.Values, name string) *Property[bool] {
	mustHave(v, name, field.KindInt)
	return Derived(qualify(v, name),
		func() bool { return v.MustInt(name) != 0 },
		func(b bool) error {
			n := 0
			if b {
				n = 1
			}
			return v.SetInt(name, n)
		},
	)
}

func StringField(v *field.Values, name string) *Property[string] {
	mustHave(v, name, field.KindStr)
	return Derived(qualify(v, name),
		func() string { return v.MustStr(name) },
		func(s string) error { return v.SetString(name, s) },
	)
}

// BitField binds to one labelled bit of a bit group.
func BitField(v *field.Values, group, label string) *Property[bool] {
	mustHave(v, group, field.KindBitGroup)
	if _, err := v.Bit(group, label); err != nil {
		panic(fmt.Sprintf("live: %v", err))
	}
	return Derived(qualify(v, group)+"."+label,
		func() bool {
			on, _ := v.Bit(group, label)
			return on
		},
		func(on bool) error { return v.SetBit(group, label, on) },
	)
}

func mustHave(v *field.Values, name string, kind field.Kind) {
	if v == nil {
		panic(fmt.Sprintf("live: %s: nil values", name))
	}
	val, ok := v.Get(name)
	if !ok {
		panic(fmt.Sprintf("live: %s has no field %s", v.Schema().Name, name))
	}
	if val.Field.Kind != kind {
		panic(fmt.Sprintf("live: %s.%s is %s, not %s", v.Schema().Name, name, val.Field.Kind, kind))
	}
}

func qualify(v *field.Values, name string) string {
	return v.Schema().Name + "." + name
}
