// Package report builds serializable summaries of loaded patches and
// performances.
//
// Ownership boundary:
// - Reads state through its exported views only.
// - Never mutates a patch.
// - Encoding formats: json, yaml, toml.
package report

import (
	"github.com/danmuck/g2ctl/internal/protocol/field"
	"github.com/danmuck/g2ctl/internal/protocol/section"
	"github.com/danmuck/g2ctl/internal/state"
)

type PatchSummary struct {
	Name      string          `json:"name" yaml:"name" toml:"name"`
	Slot      string          `json:"slot" yaml:"slot" toml:"slot"`
	Version   int             `json:"version" yaml:"version" toml:"version"`
	VoiceMode string          `json:"voice_mode" yaml:"voice_mode" toml:"voice_mode"`
	Category  int             `json:"category" yaml:"category" toml:"category"`
	Variation int             `json:"variation" yaml:"variation" toml:"variation"`
	TextPad   string          `json:"text_pad,omitempty" yaml:"text_pad,omitempty" toml:"text_pad,omitempty"`
	Areas     []AreaSummary   `json:"areas" yaml:"areas" toml:"areas"`
	Knobs     []KnobSummary   `json:"knobs,omitempty" yaml:"knobs,omitempty" toml:"knobs,omitempty"`
	Sections  []SectionDigest `json:"sections" yaml:"sections" toml:"sections"`
}

type AreaSummary struct {
	Area    string          `json:"area" yaml:"area" toml:"area"`
	Cables  int             `json:"cables" yaml:"cables" toml:"cables"`
	Modules []ModuleSummary `json:"modules" yaml:"modules" toml:"modules"`
}

type ModuleSummary struct {
	Index  int            `json:"index" yaml:"index" toml:"index"`
	Type   int            `json:"type" yaml:"type" toml:"type"`
	Name   string         `json:"name" yaml:"name" toml:"name"`
	Params []int          `json:"params" yaml:"params" toml:"params"`
	Labels map[int]string `json:"labels,omitempty" yaml:"labels,omitempty" toml:"-"`
}

type KnobSummary struct {
	Knob   int    `json:"knob" yaml:"knob" toml:"knob"`
	Area   string `json:"area" yaml:"area" toml:"area"`
	Module int    `json:"module" yaml:"module" toml:"module"`
	Param  int    `json:"param" yaml:"param" toml:"param"`
}

// SectionDigest names a decoded section and its top-level field count.
type SectionDigest struct {
	Kind   string `json:"kind" yaml:"kind" toml:"kind"`
	Type   int    `json:"type" yaml:"type" toml:"type"`
	Fields int    `json:"fields" yaml:"fields" toml:"fields"`
}

type PerformanceSummary struct {
	Name     string         `json:"name" yaml:"name" toml:"name"`
	Version  int            `json:"version" yaml:"version" toml:"version"`
	Selected string         `json:"selected" yaml:"selected" toml:"selected"`
	Clock    int            `json:"master_clock" yaml:"master_clock" toml:"master_clock"`
	Slots    []PatchSummary `json:"slots" yaml:"slots" toml:"slots"`
}

// Summarize reads the current values of p. Parameters are taken from the
// patch's active variation.
func Summarize(p *state.Patch) PatchSummary {
	s := PatchSummary{
		Name:    p.Name().Get(),
		Slot:    p.Slot().String(),
		Version: p.Version(),
		TextPad: p.TextPad(),
	}
	variation := 0
	if ps := p.Settings(); ps != nil {
		s.VoiceMode = ps.VoiceMode.Get().String()
		s.Category = ps.Category.Get()
		variation = ps.Variation.Get()
		s.Variation = variation
	}
	for _, id := range state.UserAreas {
		a := p.Area(id)
		if a == nil {
			continue
		}
		s.Areas = append(s.Areas, summarizeArea(a, variation))
	}
	if ka := p.Knobs(); ka != nil {
		s.Knobs = summarizeKnobs(ka)
	}
	for _, k := range p.Kinds() {
		v, ok := p.Section(k)
		if !ok {
			continue
		}
		s.Sections = append(s.Sections, digest(k, v))
	}
	return s
}

func summarizeArea(a *state.Area, variation int) AreaSummary {
	out := AreaSummary{
		Area:    a.ID().String(),
		Cables:  len(a.Cables()),
		Modules: []ModuleSummary{},
	}
	for _, m := range a.Modules() {
		ms := ModuleSummary{
			Index: m.Index(),
			Type:  m.Type(),
			Name:  m.Name().Get(),
		}
		if vars := m.Params().Variations(); vars > 0 {
			v := variation
			if v >= vars {
				v = 0
			}
			ms.Params, _ = m.Params().VarValues(v)
		}
		if ms.Params == nil {
			ms.Params = []int{}
		}
		for _, idx := range m.LabelledParams() {
			labels := m.Labels(idx)
			if len(labels) == 0 {
				continue
			}
			if ms.Labels == nil {
				ms.Labels = map[int]string{}
			}
			ms.Labels[idx] = labels[0].Get()
		}
		out.Modules = append(out.Modules, ms)
	}
	return out
}

func summarizeKnobs(ka *state.KnobAssignments) []KnobSummary {
	var out []KnobSummary
	for i, prop := range ka.Knobs {
		k := prop.Get()
		if !k.Assigned {
			continue
		}
		out = append(out, KnobSummary{
			Knob:   i,
			Area:   k.Ref.Area.String(),
			Module: k.Ref.Module,
			Param:  k.Ref.Param,
		})
	}
	return out
}

func digest(k section.Kind, v *field.Values) SectionDigest {
	return SectionDigest{Kind: k.Name(), Type: int(k.Type()), Fields: len(v.Items())}
}

// SummarizePerformance summarizes the performance and its four slots.
func SummarizePerformance(perf *state.Performance) PerformanceSummary {
	s := PerformanceSummary{
		Name:    perf.Name().Get(),
		Version: perf.Version(),
	}
	if slot, err := perf.SelectedSlot(); err == nil {
		s.Selected = slot.String()
	}
	if ps := perf.Settings(); ps != nil {
		s.Clock = ps.MasterClock.Get()
	}
	for _, slot := range state.Slots {
		s.Slots = append(s.Slots, Summarize(perf.Patch(slot)))
	}
	return s
}

// ValuesMap converts decoded section values into plain maps and slices.
func ValuesMap(v *field.Values) map[string]any {
	out := make(map[string]any, len(v.Items()))
	for _, item := range v.Items() {
		switch item.Field.Kind {
		case field.KindStr:
			out[item.Field.Name] = item.Str
		case field.KindSubfields:
			subs := make([]map[string]any, len(item.Subs))
			for i, sub := range item.Subs {
				subs[i] = ValuesMap(sub)
			}
			out[item.Field.Name] = subs
		default:
			out[item.Field.Name] = item.Int
		}
	}
	return out
}
