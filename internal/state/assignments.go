package state

import (
	"fmt"

	"github.com/danmuck/g2ctl/internal/live"
	"github.com/danmuck/g2ctl/internal/protocol/field"
	"github.com/danmuck/g2ctl/internal/protocol/schema"
)

// ParamRef addresses one module parameter in a slot.
type ParamRef struct {
	Slot   Slot
	Area   AreaID
	Module int
	Param  int
}

// Knob is the assignment of one knob. The zero value is unassigned.
type Knob struct {
	Assigned bool
	Ref      ParamRef
	Led      bool
}

func knobOf(slot Slot, ka *field.Values, global bool) (Knob, error) {
	if ka.MustInt(schema.FieldAssigned) != 1 {
		return Knob{}, nil
	}
	kp := ka.MustSubfields(schema.FieldParams)[0]
	area, err := AreaFromIndex(kp.MustInt(schema.FieldLocation))
	if err != nil {
		return Knob{}, err
	}
	if global {
		if slot, err = SlotFromIndex(kp.MustInt(schema.FieldSlot)); err != nil {
			return Knob{}, err
		}
	}
	return Knob{
		Assigned: true,
		Ref: ParamRef{
			Slot:   slot,
			Area:   area,
			Module: kp.MustInt(schema.FieldIndex),
			Param:  kp.MustInt(schema.FieldParam),
		},
		Led: kp.MustInt(schema.FieldIsLed) != 0,
	}, nil
}

// KnobAssignments is the knob table of a patch, or of a performance when
// the assignments are global.
type KnobAssignments struct {
	values *field.Values
	Knobs  []*live.Property[Knob]
}

func newKnobAssignments(v *field.Values, slot Slot, global bool) (*KnobAssignments, error) {
	ka := &KnobAssignments{values: v}
	for i, k := range v.MustSubfields(schema.FieldKnobs) {
		knob, err := knobOf(slot, k, global)
		if err != nil {
			return nil, fmt.Errorf("knob %d: %w", i, err)
		}
		ka.Knobs = append(ka.Knobs, live.Value(fmt.Sprintf("%s.Knob[%d]", v.Schema().Name, i), knob))
	}
	return ka, nil
}

func (ka *KnobAssignments) Values() *field.Values { return ka.values }

// Active returns the parameter entries of assigned knobs.
func (ka *KnobAssignments) Active() []*field.Values {
	var out []*field.Values
	for _, k := range ka.values.MustSubfields(schema.FieldKnobs) {
		if k.MustInt(schema.FieldAssigned) == 1 {
			out = append(out, k.MustSubfields(schema.FieldParams)[0])
		}
	}
	return out
}

// Lookup finds the knob assigned to ref.
func (ka *KnobAssignments) Lookup(ref ParamRef) (int, Knob, bool) {
	for i, k := range ka.Knobs {
		if knob := k.Get(); knob.Assigned && knob.Ref == ref {
			return i, knob, true
		}
	}
	return 0, Knob{}, false
}

// Control maps a MIDI controller to a parameter.
type Control struct {
	MidiCC int
	Area   AreaID
	Module int
	Param  int
}

// ControlAssignments is the MIDI controller table of a patch.
type ControlAssignments struct {
	values   *field.Values
	Controls []Control
}

func newControlAssignments(v *field.Values) (*ControlAssignments, error) {
	ca := &ControlAssignments{values: v}
	for _, c := range v.MustSubfields(schema.FieldAssignments) {
		area, err := AreaFromIndex(c.MustInt(schema.FieldLocation))
		if err != nil {
			return nil, err
		}
		ca.Controls = append(ca.Controls, Control{
			MidiCC: c.MustInt(schema.FieldMidiCC),
			Area:   area,
			Module: c.MustInt(schema.FieldIndex),
			Param:  c.MustInt(schema.FieldParam),
		})
	}
	return ca, nil
}

func (ca *ControlAssignments) Values() *field.Values { return ca.values }

// ForCC returns the assignment of a controller number.
func (ca *ControlAssignments) ForCC(cc int) (Control, bool) {
	for _, c := range ca.Controls {
		if c.MidiCC == cc {
			return c, true
		}
	}
	return Control{}, false
}

// MorphParam is one morph assignment: morph group and signed range.
type MorphParam struct {
	Morph int
	Range int
}

// MorphParameters indexes the MorphParameters section by variation.
type MorphParameters struct {
	values *field.Values
	vars   map[int][]*field.Values
}

func newMorphParameters(v *field.Values) *MorphParameters {
	mp := &MorphParameters{values: v, vars: map[int][]*field.Values{}}
	for _, vm := range v.MustSubfields(schema.FieldVarMorphs) {
		mp.vars[vm.MustInt(schema.FieldVariation)] = vm.MustSubfields(schema.FieldVarMorphParams)
	}
	return mp
}

func (mp *MorphParameters) Values() *field.Values { return mp.values }

// Param returns the morph assignment of a parameter in a variation.
func (mp *MorphParameters) Param(variation int, area AreaID, module, param int) (MorphParam, bool, error) {
	ps, ok := mp.vars[variation]
	if !ok {
		return MorphParam{}, false, fmt.Errorf("%w: %d", ErrVariation, variation)
	}
	for _, p := range ps {
		if p.MustInt(schema.FieldLocation) == int(area) &&
			p.MustInt(schema.FieldModuleIndex) == module &&
			p.MustInt(schema.FieldParamIndex) == param {
			return MorphParam{Morph: p.MustInt(schema.FieldMorph), Range: p.MustInt(schema.FieldRange)}, true, nil
		}
	}
	return MorphParam{}, false, nil
}

// PatchLoadData is a DSP resource report for one area.
type PatchLoadData struct {
	values *field.Values
}

func (pl *PatchLoadData) Values() *field.Values { return pl.values }

// word15 joins the 7-bit halves some counters are split into.
func word15(msb, lsb int) int { return msb*128 + lsb }

// Mem is the memory load in percent.
func (pl *PatchLoadData) Mem() float64 {
	v := pl.values
	r4 := word15(v.MustInt(schema.FieldResource4Msb), v.MustInt(schema.FieldResource4Lsb))
	ram := uint32(v.MustInt(schema.FieldRAM))
	mem := max(100*v.MustInt(schema.FieldInternalMem)/128, 100*int(ram/260000), 100*r4/4315)
	return float64(mem)
}

// Cycles is the DSP cycle load in percent.
func (pl *PatchLoadData) Cycles() float64 {
	v := pl.values
	red := word15(v.MustInt(schema.FieldCyclesRed1Msb), v.MustInt(schema.FieldCyclesRed1Lsb))
	blue := word15(v.MustInt(schema.FieldCyclesBlue1Msb), v.MustInt(schema.FieldCyclesBlue1Lsb))
	return float64(100*red/1372 + 100*blue/5000)
}
