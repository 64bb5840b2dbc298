package schema

import (
	"sort"

	"github.com/danmuck/g2ctl/internal/protocol/field"
)

// Field names shared by more than one schema.
const (
	FieldReserved       = "Reserved"
	FieldLocation       = "Location"
	FieldIndex          = "Index"
	FieldParam          = "Param"
	FieldVariation      = "Variation"
	FieldDatum          = "Datum"
	FieldLabel          = "Label"
	FieldLabels         = "Labels"
	FieldName           = "Name"
	FieldCategory       = "Category"
	FieldColor          = "Color"
	FieldModuleIndex    = "ModuleIndex"
	FieldModuleCount    = "ModuleCount"
	FieldKnobCount      = "KnobCount"
	FieldKnobs          = "Knobs"
	FieldAssigned       = "Assigned"
	FieldParams         = "Params"
	FieldMorphCount     = "MorphCount"
	FieldLength         = "Length"
	FieldEntry          = "Entry"
	FieldNote           = "Note"
	FieldAttack         = "Attack"
	FieldRelease        = "Release"
	FieldVariationCount = "VariationCount"
)

// Cable lists.
const (
	FieldCableCount = "CableCount"
	FieldCables     = "Cables"
	FieldSrcModule  = "SrcModule"
	FieldSrcConn    = "SrcConn"
	FieldDirection  = "Direction"
	FieldDestModule = "DestModule"
	FieldDestConn   = "DestConn"
)

// Module lists.
const (
	FieldModules   = "Modules"
	FieldID        = "Id"
	FieldColumn    = "Column"
	FieldRow       = "Row"
	FieldUprate    = "Uprate"
	FieldLeds      = "Leds"
	FieldModeCount = "ModeCount"
	FieldModes     = "Modes"
	FieldData      = "Data"
)

// Patch description.
const (
	FieldReserved2     = "Reserved2"
	FieldReserved3     = "Reserved3"
	FieldVoices        = "Voices"
	FieldHeight        = "Height"
	FieldUnk2          = "Unk2"
	FieldVisibleCables = "VisibleCables"
	FieldMonoPoly      = "MonoPoly"

	CableRed    = "Red"
	CableBlue   = "Blue"
	CableYellow = "Yellow"
	CableOrange = "Orange"
	CableGreen  = "Green"
	CablePurple = "Purple"
	CableWhite  = "White"
)

// CableColors lists the VisibleCables labels, most significant bit first.
var CableColors = []string{CableRed, CableBlue, CableYellow, CableOrange, CableGreen, CablePurple, CableWhite}

// Module parameters and updates.
const (
	FieldSetCount   = "SetCount"
	FieldParamSet   = "ParamSet"
	FieldModIndex   = "ModIndex"
	FieldParamCount = "ParamCount"
	FieldModParams  = "ModParams"
	FieldModule     = "Module"
	FieldValue      = "Value"
	FieldUnknown    = "Unknown"
)

// Morphs.
const (
	FieldVarMorphs      = "VarMorphs"
	FieldReserved0      = "Reserved0"
	FieldReserved1      = "Reserved1"
	FieldVarMorphParams = "VarMorphParams"
	FieldParamIndex     = "ParamIndex"
	FieldMorph          = "Morph"
	FieldRange          = "Range"
	FieldLabelCount     = "LabelCount"
)

// Knobs and controllers.
const (
	FieldIsLed       = "IsLed"
	FieldSlot        = "Slot"
	FieldNumControls = "NumControls"
	FieldAssignments = "Assignments"
	FieldMidiCC      = "MidiCC"
)

// Names, labels, notes and text.
const (
	FieldNameCount   = "NameCount"
	FieldNames       = "Names"
	FieldNoteCount   = "NoteCount"
	FieldNotes       = "Notes"
	FieldModLabels   = "ModLabels"
	FieldModLabelLen = "ModLabelLen"
	FieldIsString    = "IsString"
	FieldParamLen    = "ParamLen"
	FieldText        = "Text"
)

// Synth settings.
const (
	FieldDeviceName              = "DeviceName"
	FieldPerfMode                = "PerfMode"
	FieldPerfBank                = "PerfBank"
	FieldPerfLocation            = "PerfLocation"
	FieldMemoryProtect           = "MemoryProtect"
	FieldMidiChannelA            = "MidiChannelA"
	FieldMidiChannelB            = "MidiChannelB"
	FieldMidiChannelC            = "MidiChannelC"
	FieldMidiChannelD            = "MidiChannelD"
	FieldMidiChannelGlobal       = "MidiChannelGlobal"
	FieldSysExID                 = "SysExId"
	FieldLocalOn                 = "LocalOn"
	FieldProgramChangeReceive    = "ProgramChangeReceive"
	FieldProgramChangeSend       = "ProgramChangeSend"
	FieldControllersReceive      = "ControllersReceive"
	FieldControllersSend         = "ControllersSend"
	FieldSendClock               = "SendClock"
	FieldIgnoreExternalClock     = "IgnoreExternalClock"
	FieldTuneCent                = "TuneCent"
	FieldGlobalOctaveShiftActive = "GlobalOctaveShiftActive"
	FieldGlobalOctaveShift       = "GlobalOctaveShift"
	FieldTuneSemi                = "TuneSemi"
	FieldPedalPolarity           = "PedalPolarity"
	FieldControlPedalGain        = "ControlPedalGain"
)

// Performance settings.
const (
	FieldSelectedSlot         = "SelectedSlot"
	FieldKeyboardRangeEnabled = "KeyboardRangeEnabled"
	FieldMasterClock          = "MasterClock"
	FieldMasterClockRun       = "MasterClockRun"
	FieldSlots                = "Slots"
	FieldPatchName            = "PatchName"
	FieldEnabled              = "Enabled"
	FieldKeyboard             = "Keyboard"
	FieldHold                 = "Hold"
	FieldBankIndex            = "BankIndex"
	FieldPatchIndex           = "PatchIndex"
	FieldKeyboardRangeFrom    = "KeyboardRangeFrom"
	FieldKeyboardRangeTo      = "KeyboardRangeTo"
)

// Patch load data.
const (
	FieldCyclesRed1Msb  = "CyclesRed1Msb"
	FieldCyclesRed1Lsb  = "CyclesRed1Lsb"
	FieldCyclesBlue1Msb = "CyclesBlue1Msb"
	FieldCyclesBlue1Lsb = "CyclesBlue1Lsb"
	FieldInternalMem    = "InternalMem"
	FieldResource4Msb   = "Resource4Msb"
	FieldResource4Lsb   = "Resource4Lsb"
	FieldResource5      = "Resource5"
	FieldCyclesRed2     = "CyclesRed2"
	FieldResource8      = "Resource8"
	FieldCyclesBlue2    = "CyclesBlue2"
	FieldRAM            = "RAM"
)

// MaxNameLength bounds module, entry and slot names.
const MaxNameLength = 16

var (
	Data7 = field.NewSchema("Data7", field.Int(FieldDatum, 7))
	Data8 = field.NewSchema("Data8", field.Int(FieldDatum, 8))

	Cable = field.NewSchema("Cable",
		field.Int(FieldColor, 3),
		field.Int(FieldSrcModule, 8),
		field.Int(FieldSrcConn, 6),
		field.Int(FieldDirection, 1),
		field.Int(FieldDestModule, 8),
		field.Int(FieldDestConn, 6),
	)
	CableList = field.NewSchema("CableList",
		field.Int(FieldReserved, 12),
		field.Int(FieldCableCount, 10),
		field.Subfields(FieldCables, Cable, field.CountOf(FieldCableCount)),
	)

	ModuleModes = field.NewSchema("ModuleModes", field.Int(FieldData, 6))
	UserModule  = field.NewSchema("UserModule",
		field.Int(FieldID, 8),
		field.Int(FieldIndex, 8),
		field.Int(FieldColumn, 7),
		field.Int(FieldRow, 7),
		field.Int(FieldColor, 8),
		field.Int(FieldUprate, 1),
		field.Int(FieldLeds, 1),
		field.Int(FieldReserved, 6),
		field.Int(FieldModeCount, 4),
		field.Subfields(FieldModes, ModuleModes, field.CountOf(FieldModeCount)),
	)
	ModuleList = field.NewSchema("ModuleList",
		field.Int(FieldModuleCount, 8),
		field.Subfields(FieldModules, UserModule, field.CountOf(FieldModuleCount)),
	)

	PatchDescription = field.NewSchema("PatchDescription",
		field.Subfields(FieldReserved, Data8, field.Const(7)),
		field.Int(FieldReserved2, 5),
		field.Int(FieldVoices, 5),
		field.Int(FieldHeight, 14),
		field.Int(FieldUnk2, 3),
		field.BitGroup(FieldVisibleCables, 7, CableColors...),
		field.Int(FieldMonoPoly, 2),
		field.Int(FieldVariation, 8),
		field.Int(FieldCategory, 8),
		field.Int(FieldReserved3, 8),
	)

	VarParams = field.NewSchema("VarParams",
		field.Int(FieldVariation, 8),
		field.Subfields(FieldParams, Data7, field.CountOf(FieldParamCount)),
	)
	ModuleParamSet = field.NewSchema("ModuleParamSet",
		field.Int(FieldModIndex, 8),
		field.Int(FieldParamCount, 7),
		field.Subfields(FieldModParams, VarParams, field.CountOf(FieldVariationCount)),
	)
	ModuleParams = field.NewSchema("ModuleParams",
		field.Int(FieldSetCount, 8),
		field.Int(FieldVariationCount, 8),
		field.Subfields(FieldParamSet, ModuleParamSet, field.CountOf(FieldSetCount)),
	)

	ParamUpdate = field.NewSchema("ParamUpdate",
		field.Int(FieldLocation, 8),
		field.Int(FieldModule, 8),
		field.Int(FieldParam, 8),
		field.Int(FieldValue, 8),
		field.Int(FieldVariation, 8),
	)

	VarMorphParam = field.NewSchema("VarMorphParam",
		field.Int(FieldLocation, 2),
		field.Int(FieldModuleIndex, 8),
		field.Int(FieldParamIndex, 7),
		field.Int(FieldMorph, 4),
		field.Int(FieldRange, 8),
	)
	// VarMorph ends in up to four padding bits that may be absent on the
	// last variation.
	VarMorph = field.NewSchema("VarMorph",
		field.Int(FieldVariation, 4),
		field.Int(FieldReserved0, 24),
		field.Int(FieldReserved1, 24),
		field.Int(FieldReserved2, 8),
		field.Int(FieldMorphCount, 8),
		field.Subfields(FieldVarMorphParams, VarMorphParam, field.CountOf(FieldMorphCount)),
		field.IntUpTo(FieldReserved3, 4),
	)
	MorphParameters = field.NewSchema("MorphParameters",
		field.Int(FieldVariationCount, 8),
		field.Int(FieldMorphCount, 4),
		field.Int(FieldReserved, 20),
		field.Subfields(FieldVarMorphs, VarMorph, field.CountOf(FieldVariationCount)),
	).TrimTail(4)

	KnobParams = field.NewSchema("KnobParams",
		field.Int(FieldLocation, 2),
		field.Int(FieldIndex, 8),
		field.Int(FieldIsLed, 2),
		field.Int(FieldParam, 7),
	)
	KnobAssignment = field.NewSchema("KnobAssignment",
		field.Int(FieldAssigned, 1),
		field.Subfields(FieldParams, KnobParams, field.CountOf(FieldAssigned)),
	)
	KnobAssignments = field.NewSchema("KnobAssignments",
		field.Int(FieldKnobCount, 16),
		field.Subfields(FieldKnobs, KnobAssignment, field.CountOf(FieldKnobCount)),
	)

	GlobalKnobParams = field.NewSchema("GlobalKnobParams",
		field.Int(FieldLocation, 2),
		field.Int(FieldIndex, 8),
		field.Int(FieldIsLed, 2),
		field.Int(FieldParam, 7),
		field.Int(FieldSlot, 2),
	)
	GlobalKnobAssignment = field.NewSchema("GlobalKnobAssignment",
		field.Int(FieldAssigned, 1),
		field.Subfields(FieldParams, GlobalKnobParams, field.CountOf(FieldAssigned)),
	)
	GlobalKnobAssignments = field.NewSchema("GlobalKnobAssignments",
		field.Int(FieldKnobCount, 16),
		field.Subfields(FieldKnobs, GlobalKnobAssignment, field.CountOf(FieldKnobCount)),
	)

	ControlAssignment = field.NewSchema("ControlAssignment",
		field.Int(FieldMidiCC, 7),
		field.Int(FieldLocation, 2),
		field.Int(FieldIndex, 8),
		field.Int(FieldParam, 7),
	)
	ControlAssignments = field.NewSchema("ControlAssignments",
		field.Int(FieldNumControls, 7),
		field.Subfields(FieldAssignments, ControlAssignment, field.CountOf(FieldNumControls)),
	)

	ModuleName = field.NewSchema("ModuleName",
		field.Int(FieldModuleIndex, 8),
		field.Str(FieldName, field.StrTerminated, MaxNameLength),
	)
	ModuleNames = field.NewSchema("ModuleNames",
		field.Int(FieldReserved, 6),
		field.Int(FieldNameCount, 8),
		field.Subfields(FieldNames, ModuleName, field.CountOf(FieldNameCount)),
	)

	MorphLabel = field.NewSchema("MorphLabel",
		field.Int(FieldIndex, 8),
		field.Int(FieldLength, 8),
		field.Int(FieldEntry, 8),
		field.Str(FieldLabel, field.StrFixed, 7),
	)
	MorphLabels = field.NewSchema("MorphLabels",
		field.Int(FieldLabelCount, 8),
		field.Int(FieldEntry, 8),
		field.Int(FieldLength, 8),
		field.Subfields(FieldLabels, MorphLabel, field.Const(MorphLabelCount)),
	)

	NoteData = field.NewSchema("NoteData",
		field.Int(FieldNote, 7),
		field.Int(FieldAttack, 7),
		field.Int(FieldRelease, 7),
	)
	// CurrentNote stores one less than the number of notes that follow.
	CurrentNote = field.NewSchema("CurrentNote",
		field.Int(FieldNote, 7),
		field.Int(FieldAttack, 7),
		field.Int(FieldRelease, 7),
		field.Int(FieldNoteCount, 5),
		field.Subfields(FieldNotes, NoteData, field.CountOfPlus(FieldNoteCount, 1)),
	)

	ParamLabel  = field.NewSchema("ParamLabel", field.Str(FieldLabel, field.StrFixed, 7))
	ParamLabels = field.NewSchema("ParamLabels",
		field.Int(FieldIsString, 8),
		field.Int(FieldParamLen, 8),
		field.Int(FieldParamIndex, 8),
		field.Subfields(FieldLabels, ParamLabel, field.CountFunc(FieldParamLen, func(n int) int {
			if n < 1 {
				return 0
			}
			return (n - 1) / 7
		})),
	)
	ModuleLabel = field.NewSchema("ModuleLabel",
		field.Int(FieldModuleIndex, 8),
		field.Int(FieldModLabelLen, 8),
		field.Subfields(FieldLabels, ParamLabels, field.While(moreParamLabels)),
	)
	ModuleLabels = field.NewSchema("ModuleLabels",
		field.Int(FieldModuleCount, 8),
		field.Subfields(FieldModLabels, ModuleLabel, field.CountOf(FieldModuleCount)),
	)

	TextPad = field.NewSchema("TextPad", field.Str(FieldText, field.StrToEOF, 0))

	SynthSettings = field.NewSchema("SynthSettings",
		field.Str(FieldDeviceName, field.StrToTerminator, 0),
		field.Int(FieldPerfMode, 1),
		field.Int(FieldReserved0, 7),
		field.Int(FieldReserved1, 8),
		field.Int(FieldPerfBank, 8),
		field.Int(FieldPerfLocation, 8),
		field.Int(FieldMemoryProtect, 1),
		field.Int(FieldReserved2, 7),
		field.Int(FieldMidiChannelA, 8),
		field.Int(FieldMidiChannelB, 8),
		field.Int(FieldMidiChannelC, 8),
		field.Int(FieldMidiChannelD, 8),
		field.Int(FieldMidiChannelGlobal, 8),
		field.Int(FieldSysExID, 8),
		field.Int(FieldLocalOn, 1),
		field.Int(FieldReserved3, 7),
		field.Int("Reserved4", 6),
		field.Int(FieldProgramChangeReceive, 1),
		field.Int(FieldProgramChangeSend, 1),
		field.Int("Reserved5", 6),
		field.Int(FieldControllersReceive, 1),
		field.Int(FieldControllersSend, 1),
		field.Int("Reserved6", 1),
		field.Int(FieldSendClock, 1),
		field.Int(FieldIgnoreExternalClock, 1),
		field.Int("Reserved7", 5),
		field.Int(FieldTuneCent, 8),
		field.Int(FieldGlobalOctaveShiftActive, 1),
		field.Int("Reserved8", 7),
		field.Int(FieldGlobalOctaveShift, 8),
		field.Int(FieldTuneSemi, 8),
		field.Int("Reserved9", 8),
		field.Int(FieldPedalPolarity, 1),
		field.Int("ReservedA", 7),
		field.Int(FieldControlPedalGain, 8),
	)

	EntryData = field.NewSchema("EntryData",
		field.Str(FieldName, field.StrTerminated, MaxNameLength),
		field.Int(FieldCategory, 8),
	)
	EntryName = field.NewSchema("EntryName",
		field.Str(FieldName, field.StrTerminated, MaxNameLength),
	)

	PerfSlot = field.NewSchema("PerfSlot",
		field.Str(FieldPatchName, field.StrTerminated, MaxNameLength),
		field.Int(FieldEnabled, 8),
		field.Int(FieldKeyboard, 8),
		field.Int(FieldHold, 8),
		field.Int(FieldBankIndex, 8),
		field.Int(FieldPatchIndex, 8),
		field.Int(FieldKeyboardRangeFrom, 8),
		field.Int(FieldKeyboardRangeTo, 8),
		field.Int(FieldUnknown, 24),
	)
	PerformanceSettings = field.NewSchema("PerformanceSettings",
		field.Int("Unknown1", 12),
		field.Int(FieldSelectedSlot, 2),
		field.Int("Unknown2", 2),
		field.Int(FieldKeyboardRangeEnabled, 8),
		field.Int(FieldMasterClock, 8),
		field.Int("Unknown3", 8),
		field.Int(FieldMasterClockRun, 8),
		field.Int("Unknown4", 16),
		field.Subfields(FieldSlots, PerfSlot, field.Const(SlotCount)),
	)

	PatchLoadData = field.NewSchema("PatchLoadData",
		field.Int(FieldLocation, 8),
		field.Int(FieldCyclesRed1Msb, 8),
		field.Int(FieldCyclesRed1Lsb, 8),
		field.Int(FieldCyclesBlue1Msb, 8),
		field.Int(FieldCyclesBlue1Lsb, 8),
		field.Int(FieldInternalMem, 8),
		field.Int("Unknown1", 16),
		field.Int(FieldResource4Msb, 8),
		field.Int(FieldResource4Lsb, 8),
		field.Int(FieldResource5, 16),
		field.Int(FieldCyclesRed2, 16),
		field.Int("Unknown3", 16),
		field.Int(FieldResource8, 16),
		field.Int(FieldCyclesBlue2, 16),
		field.Int("Unknown4", 16),
		field.Int(FieldRAM, 32),
		field.Int("Unknown5", 16),
	)

	SelectedParam = field.NewSchema("SelectedParam",
		field.Int(FieldUnknown, 8),
		field.Int(FieldLocation, 8),
		field.Int(FieldModule, 8),
		field.Int(FieldParam, 8),
	)
)

const (
	// MorphLabelCount is the fixed number of morph label slots.
	MorphLabelCount = 8
	// SlotCount is the number of patch slots in a performance.
	SlotCount = 4
)

// moreParamLabels keeps reading parameter labels until the declared module
// label length is consumed: 3 header bytes per entry plus 7 per label.
func moreParamLabels(st field.Stack, read []*field.Values) (bool, error) {
	total, err := st.Int(FieldModLabelLen)
	if err != nil {
		return false, err
	}
	labels := 0
	for _, v := range read {
		subs, err := v.Subfields(FieldLabels)
		if err != nil {
			return false, err
		}
		labels += len(subs)
	}
	return len(read)*3+labels*7 < total, nil
}

var registry = map[string]*field.Schema{}

func init() {
	for _, s := range []*field.Schema{
		Data7, Data8, Cable, CableList, ModuleModes, UserModule, ModuleList,
		PatchDescription, VarParams, ModuleParamSet, ModuleParams, ParamUpdate,
		VarMorphParam, VarMorph, MorphParameters, KnobParams, KnobAssignment,
		KnobAssignments, GlobalKnobParams, GlobalKnobAssignment, GlobalKnobAssignments,
		ControlAssignment, ControlAssignments, ModuleName, ModuleNames, MorphLabel,
		MorphLabels, NoteData, CurrentNote, ParamLabel, ParamLabels, ModuleLabel,
		ModuleLabels, TextPad, SynthSettings, EntryData, EntryName, PerfSlot,
		PerformanceSettings, PatchLoadData, SelectedParam,
	} {
		registry[s.Name] = s
	}
}

// Lookup returns a schema table by name.
func Lookup(name string) (*field.Schema, bool) {
	s, ok := registry[name]
	return s, ok
}

// Names lists every registered schema, sorted.
func Names() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
