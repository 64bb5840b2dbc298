package state

import (
	"github.com/danmuck/g2ctl/internal/protocol/field"
	"github.com/danmuck/g2ctl/internal/protocol/schema"
	"github.com/danmuck/g2ctl/internal/protocol/section"
)

// Defaults of an empty patch, as the editor creates it.
const (
	defaultVoices    = 5
	defaultHeight    = 374
	defaultKnobCount = 0x78
	defaultNote      = 64
)

// DefaultSections builds the values of every file section for an empty
// patch.
func DefaultSections() map[section.Kind]*field.Values {
	data8 := make([]*field.Values, 7)
	for i := range data8 {
		data8[i] = schema.Data8.MustMake(0)
	}
	out := map[section.Kind]*field.Values{
		section.PatchDescription: schema.PatchDescription.MustMake(
			data8, 0, defaultVoices, defaultHeight, 1, 0x7f, MonoPolyPoly, 1, 0, 0),
		section.CurrentNote: schema.CurrentNote.MustMake(defaultNote, 0, 0, 0,
			[]*field.Values{schema.NoteData.MustMake(defaultNote, 0, 0)}),
		section.PatchParams:        defaultSettingsParams(),
		section.MorphParameters:    defaultMorphParameters(),
		section.KnobAssignments:    defaultKnobs(),
		section.ControlAssignments: schema.ControlAssignments.MustMake(0, []*field.Values{}),
		section.MorphLabels:        defaultMorphLabels(),
		section.TextPad:            schema.TextPad.MustMake(""),
	}
	for _, k := range []section.Kind{section.ModuleList0, section.ModuleList1} {
		out[k] = schema.ModuleList.MustMake(0, []*field.Values{})
	}
	for _, k := range []section.Kind{section.CableList0, section.CableList1} {
		out[k] = schema.CableList.MustMake(0, 0, []*field.Values{})
	}
	for _, k := range []section.Kind{section.ModuleParams0, section.ModuleParams1} {
		out[k] = schema.ModuleParams.MustMake(0, MaxVariations, []*field.Values{})
	}
	for _, k := range []section.Kind{section.ModuleLabels0, section.ModuleLabels1} {
		out[k] = schema.ModuleLabels.MustMake(0, []*field.Values{})
	}
	for _, k := range []section.Kind{section.ModuleNames0, section.ModuleNames1} {
		out[k] = schema.ModuleNames.MustMake(0, 0, []*field.Values{})
	}
	return out
}

// VarParamsOf builds MaxVariations VarParams instances holding values.
func VarParamsOf(values ...int) []*field.Values {
	vars := make([]*field.Values, MaxVariations)
	for i := range vars {
		ps := make([]*field.Values, len(values))
		for j, v := range values {
			ps[j] = schema.Data7.MustMake(v)
		}
		vars[i] = schema.VarParams.MustMake(i, ps)
	}
	return vars
}

func defaultSettingsParams() *field.Values {
	sets := make([]*field.Values, len(SettingsModules))
	for i, sm := range SettingsModules {
		n := sm.ParamCount()
		sets[i] = schema.ModuleParamSet.MustMake(int(sm), n, VarParamsOf(make([]int, n)...))
	}
	return schema.ModuleParams.MustMake(len(sets), MaxVariations, sets)
}

func defaultMorphParameters() *field.Values {
	vars := make([]*field.Values, MaxVariations)
	for i := range vars {
		vars[i] = schema.VarMorph.MustMake(i, 0, 0, 0, 0, []*field.Values{}, 0)
	}
	return schema.MorphParameters.MustMake(MaxVariations, schema.MorphLabelCount, 0, vars)
}

func defaultKnobs() *field.Values {
	knobs := make([]*field.Values, defaultKnobCount)
	for i := range knobs {
		knobs[i] = schema.KnobAssignment.MustMake(0, []*field.Values{})
	}
	return schema.KnobAssignments.MustMake(defaultKnobCount, knobs)
}

func defaultMorphLabels() *field.Values {
	labels := make([]*field.Values, schema.MorphLabelCount)
	for i := range labels {
		labels[i] = schema.MorphLabel.MustMake(1, 8, 8+i, MorphNames[i])
	}
	return schema.MorphLabels.MustMake(1, 1, 10*schema.MorphLabelCount, labels)
}

// InitDefaults loads the sections of an empty patch.
func (p *Patch) InitDefaults() error {
	defs := DefaultSections()
	for _, kind := range section.FileSections {
		if err := p.ApplySection(kind, defs[kind]); err != nil {
			return err
		}
	}
	p.updateVisualIndex()
	return nil
}
