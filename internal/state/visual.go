package state

import (
	"fmt"
	"strings"

	"github.com/danmuck/g2ctl/internal/live"
)

// VisualKind classifies a module indicator.
type VisualKind int

const (
	VisualLed VisualKind = iota
	VisualLedGroup
	VisualMeter
)

func (k VisualKind) String() string {
	switch k {
	case VisualLed:
		return "Led"
	case VisualLedGroup:
		return "LedGroup"
	case VisualMeter:
		return "Meter"
	}
	return fmt.Sprintf("VisualKind(%d)", int(k))
}

// Visual describes one indicator of a module type.
type Visual struct {
	Kind  VisualKind
	Names []string
}

// VisualCatalog supplies module type metadata. The module catalog itself
// lives outside this package.
type VisualCatalog interface {
	Visuals(moduleType int, kind VisualKind) []Visual
}

// StaticCatalog is a VisualCatalog keyed by module type id.
type StaticCatalog map[int][]Visual

func (c StaticCatalog) Visuals(moduleType int, kind VisualKind) []Visual {
	var out []Visual
	for _, v := range c[moduleType] {
		if v.Kind == kind {
			out = append(out, v)
		}
	}
	return out
}

// PatchVisual is a live indicator of one module in a loaded patch.
type PatchVisual struct {
	Area   AreaID
	Module *Module
	Visual Visual
	Value  *live.Property[int]
}

func newPatchVisual(area AreaID, m *Module, v Visual) *PatchVisual {
	return &PatchVisual{
		Area:   area,
		Module: m,
		Visual: v,
		Value:  live.Value(fmt.Sprintf("%s[%d].%s", area, m.Index(), strings.Join(v.Names, ",")), 0),
	}
}

// Update stores v and reports whether it changed.
func (pv *PatchVisual) Update(v int) bool {
	if pv.Value.Get() == v {
		return false
	}
	_ = pv.Value.Set(v)
	return true
}

func (pv *PatchVisual) String() string {
	names := strings.Join(pv.Visual.Names, ",")
	if len(pv.Visual.Names) > 1 {
		names = "[" + names + "]"
	}
	return fmt.Sprintf("%s.%s[%d].%s=%d", pv.Area, pv.Module.Name().Get(), pv.Module.Index(), names, pv.Value.Get())
}

// visualsOf appends the indicators of an area's user modules, per module
// in the order of kinds.
func visualsOf(out []*PatchVisual, cat VisualCatalog, a *Area, kinds ...VisualKind) []*PatchVisual {
	if cat == nil {
		return out
	}
	for _, m := range a.Modules() {
		if !m.IsUser() {
			continue
		}
		for _, k := range kinds {
			for _, v := range cat.Visuals(m.Type(), k) {
				out = append(out, newPatchVisual(a.id, m, v))
			}
		}
	}
	return out
}
