package state

import (
	"fmt"
	"sort"

	"github.com/danmuck/g2ctl/internal/protocol/field"
	"github.com/danmuck/g2ctl/internal/protocol/schema"
	"github.com/rs/zerolog"
)

// Cable connects two module connectors within one area.
type Cable struct {
	Color      int
	SrcModule  int
	SrcConn    int
	Output     bool
	DestModule int
	DestConn   int
}

func cableOf(v *field.Values) Cable {
	return Cable{
		Color:      v.MustInt(schema.FieldColor),
		SrcModule:  v.MustInt(schema.FieldSrcModule),
		SrcConn:    v.MustInt(schema.FieldSrcConn),
		Output:     v.MustInt(schema.FieldDirection) == 1,
		DestModule: v.MustInt(schema.FieldDestModule),
		DestConn:   v.MustInt(schema.FieldDestConn),
	}
}

// SelectedParam is the parameter focused on the device.
type SelectedParam struct {
	Module int
	Param  int
}

// Area holds the modules and cables of the fx, voice or settings area.
type Area struct {
	id       AreaID
	log      zerolog.Logger
	modules  map[int]*Module
	cables   []Cable
	selected *SelectedParam
	load     *PatchLoadData
}

func newArea(id AreaID, log zerolog.Logger) *Area {
	a := &Area{
		id:      id,
		log:     log.With().Str("area", id.String()).Logger(),
		modules: map[int]*Module{},
	}
	if id == AreaSettings {
		for _, sm := range SettingsModules {
			a.modules[int(sm)] = newSettingsModule(sm)
		}
	}
	return a
}

func (a *Area) ID() AreaID { return a.id }

// Module returns the module with the given index.
func (a *Area) Module(index int) (*Module, error) {
	m, ok := a.modules[index]
	if !ok {
		return nil, fmt.Errorf("%w: %s[%d]", ErrNoModule, a.id, index)
	}
	return m, nil
}

// Modules lists modules in index order.
func (a *Area) Modules() []*Module {
	idx := make([]int, 0, len(a.modules))
	for i := range a.modules {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	out := make([]*Module, len(idx))
	for i, k := range idx {
		out[i] = a.modules[k]
	}
	return out
}

func (a *Area) SettingsModule(sm SettingsModule) (*Module, error) {
	return a.Module(int(sm))
}

// Cables lists the area's cables in section order.
func (a *Area) Cables() []Cable { return a.cables }

func (a *Area) Selected() (SelectedParam, bool) {
	if a.selected == nil {
		return SelectedParam{}, false
	}
	return *a.selected, true
}

// LoadData is the last DSP load report for the area, nil until received.
func (a *Area) LoadData() *PatchLoadData { return a.load }

// setModules replaces the user modules with the contents of a ModuleList.
func (a *Area) setModules(list *field.Values) {
	a.modules = map[int]*Module{}
	for _, um := range list.MustSubfields(schema.FieldModules) {
		m := newUserModule(a.id, um)
		a.modules[m.index] = m
	}
}

func (a *Area) setModuleParams(params *field.Values) error {
	for _, set := range params.MustSubfields(schema.FieldParamSet) {
		m, err := a.Module(set.MustInt(schema.FieldModIndex))
		if err != nil {
			return err
		}
		m.setParamValues(set.MustSubfields(schema.FieldModParams))
	}
	return nil
}

func (a *Area) setCables(list *field.Values) {
	cs := list.MustSubfields(schema.FieldCables)
	a.cables = make([]Cable, len(cs))
	for i, c := range cs {
		a.cables[i] = cableOf(c)
	}
}

func (a *Area) setModuleLabels(labels *field.Values) error {
	for _, ml := range labels.MustSubfields(schema.FieldModLabels) {
		m, err := a.Module(ml.MustInt(schema.FieldModuleIndex))
		if err != nil {
			return err
		}
		m.setUserLabels(ml.MustSubfields(schema.FieldLabels))
	}
	return nil
}

func (a *Area) setModuleNames(names *field.Values) error {
	for _, mn := range names.MustSubfields(schema.FieldNames) {
		m, err := a.Module(mn.MustInt(schema.FieldModuleIndex))
		if err != nil {
			return err
		}
		m.setName(mn)
		a.log.Debug().Int("module", m.index).Int("type", m.Type()).Str("name", m.name.Get()).Msg("module name")
	}
	return nil
}

func (a *Area) setMorphLabels(labels *field.Values) error {
	m, err := a.SettingsModule(SettingsMorphs)
	if err != nil {
		return err
	}
	m.setMorphLabels(labels)
	return nil
}

func (a *Area) setPatchLoadData(v *field.Values) {
	a.load = &PatchLoadData{values: v}
	a.log.Debug().Float64("mem", a.load.Mem()).Float64("cycles", a.load.Cycles()).Msg("patch load")
}

func (a *Area) setSelectedParam(v *field.Values) {
	a.selected = &SelectedParam{
		Module: v.MustInt(schema.FieldModule),
		Param:  v.MustInt(schema.FieldParam),
	}
	a.log.Debug().Int("module", a.selected.Module).Int("param", a.selected.Param).Msg("selected param")
}

func (a *Area) updateParam(update *field.Values) error {
	m, err := a.Module(update.MustInt(schema.FieldModule))
	if err != nil {
		return err
	}
	return m.params.UpdateParam(update)
}
