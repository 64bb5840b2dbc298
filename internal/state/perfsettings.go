package state

import (
	"fmt"

	"github.com/danmuck/g2ctl/internal/live"
	"github.com/danmuck/g2ctl/internal/protocol/field"
	"github.com/danmuck/g2ctl/internal/protocol/schema"
)

// SlotSettings is one slot entry of the performance settings.
type SlotSettings struct {
	values *field.Values

	PatchName         *live.Property[string]
	Enabled           *live.Property[bool]
	Keyboard          *live.Property[bool]
	Hold              *live.Property[bool]
	BankIndex         *live.Property[int]
	PatchIndex        *live.Property[int]
	KeyboardRangeFrom *live.Property[int]
	KeyboardRangeTo   *live.Property[int]
}

func newSlotSettings(v *field.Values) *SlotSettings {
	return &SlotSettings{
		values:            v,
		PatchName:         live.StringField(v, schema.FieldPatchName),
		Enabled:           live.BoolField(v, schema.FieldEnabled),
		Keyboard:          live.BoolField(v, schema.FieldKeyboard),
		Hold:              live.BoolField(v, schema.FieldHold),
		BankIndex:         live.IntField(v, schema.FieldBankIndex),
		PatchIndex:        live.IntField(v, schema.FieldPatchIndex),
		KeyboardRangeFrom: live.IntField(v, schema.FieldKeyboardRangeFrom),
		KeyboardRangeTo:   live.IntField(v, schema.FieldKeyboardRangeTo),
	}
}

func (ss *SlotSettings) Values() *field.Values { return ss.values }

// PerformanceSettings exposes the PerformanceSettings section.
type PerformanceSettings struct {
	values *field.Values

	SelectedSlot         *live.Property[int]
	MasterClock          *live.Property[int]
	MasterClockRun       *live.Property[bool]
	KeyboardRangeEnabled *live.Property[bool]
	Slots                []*SlotSettings
}

func newPerformanceSettings(v *field.Values) (*PerformanceSettings, error) {
	slots := v.MustSubfields(schema.FieldSlots)
	if len(slots) != schema.SlotCount {
		return nil, fmt.Errorf("%w: %d slot entries", ErrSlot, len(slots))
	}
	ps := &PerformanceSettings{
		values:               v,
		SelectedSlot:         live.IntField(v, schema.FieldSelectedSlot),
		MasterClock:          live.IntField(v, schema.FieldMasterClock),
		MasterClockRun:       live.BoolField(v, schema.FieldMasterClockRun),
		KeyboardRangeEnabled: live.BoolField(v, schema.FieldKeyboardRangeEnabled),
	}
	for _, s := range slots {
		ps.Slots = append(ps.Slots, newSlotSettings(s))
	}
	return ps, nil
}

func (ps *PerformanceSettings) Values() *field.Values { return ps.values }

func (ps *PerformanceSettings) Slot(s Slot) *SlotSettings { return ps.Slots[s] }

// SynthSettings exposes the global synth settings.
type SynthSettings struct {
	values *field.Values

	DeviceName           *live.Property[string]
	PerfMode             *live.Property[bool]
	PerfBank             *live.Property[int]
	PerfLocation         *live.Property[int]
	MemoryProtect        *live.Property[bool]
	MidiChannels         []*live.Property[int]
	MidiChannelGlobal    *live.Property[int]
	SysExID              *live.Property[int]
	LocalOn              *live.Property[bool]
	ProgramChangeReceive *live.Property[bool]
	ProgramChangeSend    *live.Property[bool]
	ControllersReceive   *live.Property[bool]
	ControllersSend      *live.Property[bool]
	SendClock            *live.Property[bool]
	IgnoreExternalClock  *live.Property[bool]
	TuneCent             *live.Property[int]
	GlobalOctaveShift    *live.Property[int]
	OctaveShiftActive    *live.Property[bool]
	TuneSemi             *live.Property[int]
	PedalPolarity        *live.Property[bool]
	ControlPedalGain     *live.Property[int]
}

// NewSynthSettings binds decoded SynthSettings values.
func NewSynthSettings(v *field.Values) *SynthSettings {
	return &SynthSettings{
		values:        v,
		DeviceName:    live.StringField(v, schema.FieldDeviceName),
		PerfMode:      live.BoolField(v, schema.FieldPerfMode),
		PerfBank:      live.IntField(v, schema.FieldPerfBank),
		PerfLocation:  live.IntField(v, schema.FieldPerfLocation),
		MemoryProtect: live.BoolField(v, schema.FieldMemoryProtect),
		MidiChannels: []*live.Property[int]{
			live.IntField(v, schema.FieldMidiChannelA),
			live.IntField(v, schema.FieldMidiChannelB),
			live.IntField(v, schema.FieldMidiChannelC),
			live.IntField(v, schema.FieldMidiChannelD),
		},
		MidiChannelGlobal:    live.IntField(v, schema.FieldMidiChannelGlobal),
		SysExID:              live.IntField(v, schema.FieldSysExID),
		LocalOn:              live.BoolField(v, schema.FieldLocalOn),
		ProgramChangeReceive: live.BoolField(v, schema.FieldProgramChangeReceive),
		ProgramChangeSend:    live.BoolField(v, schema.FieldProgramChangeSend),
		ControllersReceive:   live.BoolField(v, schema.FieldControllersReceive),
		ControllersSend:      live.BoolField(v, schema.FieldControllersSend),
		SendClock:            live.BoolField(v, schema.FieldSendClock),
		IgnoreExternalClock:  live.BoolField(v, schema.FieldIgnoreExternalClock),
		TuneCent:             live.IntField(v, schema.FieldTuneCent),
		GlobalOctaveShift:    live.IntField(v, schema.FieldGlobalOctaveShift),
		OctaveShiftActive:    live.BoolField(v, schema.FieldGlobalOctaveShiftActive),
		TuneSemi:             live.IntField(v, schema.FieldTuneSemi),
		PedalPolarity:        live.BoolField(v, schema.FieldPedalPolarity),
		ControlPedalGain:     live.IntField(v, schema.FieldControlPedalGain),
	}
}

// OfflineSynthSettings are the settings reported before a device answers.
func OfflineSynthSettings() *SynthSettings {
	return NewSynthSettings(schema.SynthSettings.MustMake(
		"[offline]", 1, 0, 0, 0, 0, 0, 0,
		0, 1, 2, 3, 0, 16,
		1, 0, 0, 1, 0, 0, 1, 0, 0, 0, 0, 0,
		0, 0, 0, 0, 0, 0, 0, 64, 0,
	))
}

func (ss *SynthSettings) Values() *field.Values { return ss.values }
