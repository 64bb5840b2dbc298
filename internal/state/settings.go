package state

import (
	"fmt"

	"github.com/danmuck/g2ctl/internal/live"
	"github.com/danmuck/g2ctl/internal/protocol/field"
	"github.com/danmuck/g2ctl/internal/protocol/schema"
)

// MonoPoly values of a patch description.
const (
	MonoPolyPoly   = 0
	MonoPolyMono   = 1
	MonoPolyLegato = 2
)

// VoiceMode combines the MonoPoly and Voices fields. Voices is zero for
// mono and legato.
type VoiceMode struct {
	MonoPoly int
	Voices   int
}

var (
	Mono   = VoiceMode{MonoPoly: MonoPolyMono}
	Legato = VoiceMode{MonoPoly: MonoPolyLegato}
)

// Poly is a polyphonic mode with n voices, 2 to 32.
func Poly(n int) VoiceMode { return VoiceMode{MonoPoly: MonoPolyPoly, Voices: n} }

// VoiceModeOf reconciles the stored MonoPoly and Voices values.
func VoiceModeOf(monoPoly, voices int) (VoiceMode, error) {
	switch monoPoly {
	case MonoPolyPoly:
		m := Poly(voices)
		return m, m.Validate()
	case MonoPolyMono:
		return Mono, nil
	case MonoPolyLegato:
		return Legato, nil
	}
	return VoiceMode{}, fmt.Errorf("%w: monoPoly %d", ErrVoiceMode, monoPoly)
}

func (m VoiceMode) Validate() error {
	switch m.MonoPoly {
	case MonoPolyMono, MonoPolyLegato:
		return nil
	case MonoPolyPoly:
		if m.Voices < 2 || m.Voices > 32 {
			return fmt.Errorf("%w: %d voices", ErrVoiceMode, m.Voices)
		}
		return nil
	}
	return fmt.Errorf("%w: monoPoly %d", ErrVoiceMode, m.MonoPoly)
}

func (m VoiceMode) String() string {
	switch m.MonoPoly {
	case MonoPolyMono:
		return "Mono"
	case MonoPolyLegato:
		return "Legato"
	}
	return fmt.Sprintf("P%d", m.Voices)
}

// PatchSettings exposes the PatchDescription section.
type PatchSettings struct {
	values *field.Values

	Voices    *live.Property[int]
	Height    *live.Property[int]
	MonoPoly  *live.Property[int]
	Variation *live.Property[int]
	Category  *live.Property[int]
	// Cables toggles cable colour visibility, keyed by schema.CableColors.
	Cables map[string]*live.Property[bool]
	// VoiceMode reads invalid stored combinations as the zero VoiceMode.
	VoiceMode *live.Property[VoiceMode]
}

func newPatchSettings(v *field.Values) *PatchSettings {
	ps := &PatchSettings{
		values:    v,
		Voices:    live.IntField(v, schema.FieldVoices),
		Height:    live.IntField(v, schema.FieldHeight),
		MonoPoly:  live.IntField(v, schema.FieldMonoPoly),
		Variation: live.IntField(v, schema.FieldVariation),
		Category:  live.IntField(v, schema.FieldCategory),
		Cables:    make(map[string]*live.Property[bool], len(schema.CableColors)),
	}
	for _, c := range schema.CableColors {
		ps.Cables[c] = live.BitField(v, schema.FieldVisibleCables, c)
	}
	ps.VoiceMode = live.Derived(v.Schema().Name+".VoiceMode",
		func() VoiceMode {
			m, err := VoiceModeOf(ps.MonoPoly.Get(), ps.Voices.Get())
			if err != nil {
				return VoiceMode{}
			}
			return m
		},
		func(m VoiceMode) error {
			if err := m.Validate(); err != nil {
				return err
			}
			if m.MonoPoly == MonoPolyPoly {
				// Voices first: an overflow must leave MonoPoly untouched.
				if err := ps.Voices.Set(m.Voices); err != nil {
					return err
				}
			}
			return ps.MonoPoly.Set(m.MonoPoly)
		},
	)
	return ps
}

func (ps *PatchSettings) Values() *field.Values { return ps.values }
