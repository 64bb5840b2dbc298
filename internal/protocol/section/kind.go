package section

import (
	"fmt"

	"github.com/danmuck/g2ctl/internal/protocol/field"
	"github.com/danmuck/g2ctl/internal/protocol/schema"
)

// Kind identifies one framed section of a patch or performance.
type Kind int

const (
	PerformanceName Kind = iota
	PerformanceSettings
	GlobalKnobAssignments
	PatchDescription
	ModuleList1
	ModuleList0
	CurrentNote
	CableList1
	CableList0
	PatchParams
	ModuleParams1
	ModuleParams0
	MorphParameters
	KnobAssignments
	ControlAssignments
	MorphLabels
	ModuleLabels1
	ModuleLabels0
	ModuleNames1
	ModuleNames0
	TextPad
	PatchName
	PatchLoadData

	kindCount
)

// NoLocation marks a section without an embedded location prefix.
const NoLocation = -1

type kindInfo struct {
	name   string
	typ    uint8
	loc    int
	schema *field.Schema
}

var kinds = [kindCount]kindInfo{
	PerformanceName:       {"PerformanceName", 0x29, NoLocation, schema.EntryName},
	PerformanceSettings:   {"PerformanceSettings", 0x11, NoLocation, schema.PerformanceSettings},
	GlobalKnobAssignments: {"GlobalKnobAssignments", 0x5f, NoLocation, schema.GlobalKnobAssignments},
	PatchDescription:      {"PatchDescription", 0x21, NoLocation, schema.PatchDescription},
	ModuleList1:           {"ModuleList1", 0x4a, 1, schema.ModuleList},
	ModuleList0:           {"ModuleList0", 0x4a, 0, schema.ModuleList},
	CurrentNote:           {"CurrentNote", 0x69, NoLocation, schema.CurrentNote},
	CableList1:            {"CableList1", 0x52, 1, schema.CableList},
	CableList0:            {"CableList0", 0x52, 0, schema.CableList},
	PatchParams:           {"PatchParams", 0x4d, 2, schema.ModuleParams},
	ModuleParams1:         {"ModuleParams1", 0x4d, 1, schema.ModuleParams},
	ModuleParams0:         {"ModuleParams0", 0x4d, 0, schema.ModuleParams},
	MorphParameters:       {"MorphParameters", 0x65, NoLocation, schema.MorphParameters},
	KnobAssignments:       {"KnobAssignments", 0x62, NoLocation, schema.KnobAssignments},
	ControlAssignments:    {"ControlAssignments", 0x60, NoLocation, schema.ControlAssignments},
	MorphLabels:           {"MorphLabels", 0x5b, 2, schema.MorphLabels},
	ModuleLabels1:         {"ModuleLabels1", 0x5b, 1, schema.ModuleLabels},
	ModuleLabels0:         {"ModuleLabels0", 0x5b, 0, schema.ModuleLabels},
	ModuleNames1:          {"ModuleNames1", 0x5a, 1, schema.ModuleNames},
	ModuleNames0:          {"ModuleNames0", 0x5a, 0, schema.ModuleNames},
	TextPad:               {"TextPad", 0x6f, NoLocation, schema.TextPad},
	PatchName:             {"PatchName", 0x27, NoLocation, schema.EntryName},
	PatchLoadData:         {"PatchLoadData", 0x72, NoLocation, schema.PatchLoadData},
}

// FileSections is the section order of a patch file body.
var FileSections = []Kind{
	PatchDescription,
	ModuleList1,
	ModuleList0,
	CurrentNote,
	CableList1,
	CableList0,
	PatchParams,
	ModuleParams1,
	ModuleParams0,
	MorphParameters,
	KnobAssignments,
	ControlAssignments,
	MorphLabels,
	ModuleLabels1,
	ModuleLabels0,
	ModuleNames1,
	ModuleNames0,
	TextPad,
}

// MessageSections is the section order of a patch description message.
var MessageSections = []Kind{
	PatchDescription,
	ModuleList1,
	ModuleList0,
	CableList1,
	CableList0,
	PatchParams,
	ModuleParams1,
	ModuleParams0,
	MorphParameters,
	KnobAssignments,
	ControlAssignments,
	ModuleNames1,
	ModuleNames0,
	MorphLabels,
	ModuleLabels1,
	ModuleLabels0,
}

func (k Kind) valid() bool { return k >= 0 && k < kindCount }

func (k Kind) info() kindInfo {
	if !k.valid() {
		panic(fmt.Sprintf("section: invalid kind %d", int(k)))
	}
	return kinds[k]
}

func (k Kind) Name() string { return k.info().name }

// Type is the chunk type byte.
func (k Kind) Type() uint8 { return k.info().typ }

// Location returns the 2-bit prefix, if the section carries one.
func (k Kind) Location() (int, bool) {
	loc := k.info().loc
	return loc, loc != NoLocation
}

func (k Kind) Schema() *field.Schema { return k.info().schema }

func (k Kind) String() string {
	if !k.valid() {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	in := kinds[k]
	if in.loc == NoLocation {
		return fmt.Sprintf("%s[%x]", in.name, in.typ)
	}
	return fmt.Sprintf("%s[%x:%d]", in.name, in.typ, in.loc)
}

// Kinds lists every section kind in declaration order.
func Kinds() []Kind {
	out := make([]Kind, kindCount)
	for i := range out {
		out[i] = Kind(i)
	}
	return out
}

// ByName finds a kind by its name.
func ByName(name string) (Kind, bool) {
	for i, in := range kinds {
		if in.name == name {
			return Kind(i), true
		}
	}
	return 0, false
}

// ByTypeLocation resolves a chunk type byte and location prefix to a kind.
// loc is ignored for types without a location.
func ByTypeLocation(typ uint8, loc int) (Kind, bool) {
	for i, in := range kinds {
		if in.typ == typ && (in.loc == NoLocation || in.loc == loc) {
			return Kind(i), true
		}
	}
	return 0, false
}
