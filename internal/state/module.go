package state

import (
	"fmt"
	"sort"

	"github.com/danmuck/g2ctl/internal/live"
	"github.com/danmuck/g2ctl/internal/protocol/field"
	"github.com/danmuck/g2ctl/internal/protocol/schema"
)

// SettingsModule identifies the fixed modules of the settings area. The
// value is the module index.
type SettingsModule int

const (
	SettingsMorphs SettingsModule = iota + 1
	SettingsGain
	SettingsGlide
	SettingsBend
	SettingsVibrato
	SettingsArpeggiator
	SettingsMisc
)

// SettingsModules lists the settings area modules in index order.
var SettingsModules = []SettingsModule{
	SettingsMorphs, SettingsGain, SettingsGlide, SettingsBend,
	SettingsVibrato, SettingsArpeggiator, SettingsMisc,
}

var settingsNames = map[SettingsModule]string{
	SettingsMorphs:      "Morphs",
	SettingsGain:        "Gain",
	SettingsGlide:       "Glide",
	SettingsBend:        "Bend",
	SettingsVibrato:     "Vibrato",
	SettingsArpeggiator: "Arpeggiator",
	SettingsMisc:        "Misc",
}

// settingsParams is the parameter count of each settings module. Morphs
// has a dial and a mode per morph.
var settingsParams = map[SettingsModule]int{
	SettingsMorphs:      2 * schema.MorphLabelCount,
	SettingsGain:        2,
	SettingsGlide:       2,
	SettingsBend:        2,
	SettingsVibrato:     3,
	SettingsArpeggiator: 4,
	SettingsMisc:        2,
}

// MorphNames are the default labels of the eight morph groups.
var MorphNames = []string{"Wheel", "Vel", "Keyb", "Aft.Tch", "Sust.Pd", "Ctrl.Pd", "P.Stick", "G.Wh 2"}

func (m SettingsModule) String() string {
	if n, ok := settingsNames[m]; ok {
		return n
	}
	return fmt.Sprintf("SettingsModule(%d)", int(m))
}

// ParamCount is the number of parameters the module carries.
func (m SettingsModule) ParamCount() int { return settingsParams[m] }

// Module is one module of an area: a user module from a module list, or
// one of the fixed settings modules.
type Module struct {
	index    int
	area     AreaID
	settings SettingsModule
	user     *field.Values

	// User module placement, editable from the editor only.
	Column *live.Property[int]
	Row    *live.Property[int]
	Color  *live.Property[int]
	Uprate *live.Property[int]
	Leds   *live.Property[bool]
	Modes  []*live.Property[int]

	params      *ParamValues
	name        *live.Property[string]
	labels      map[int][]*live.Property[string]
	morphLabels []*live.Property[string]
}

func newUserModule(area AreaID, v *field.Values) *Module {
	m := &Module{
		index:  v.MustInt(schema.FieldIndex),
		area:   area,
		user:   v,
		Column: live.IntField(v, schema.FieldColumn),
		Row:    live.IntField(v, schema.FieldRow),
		Color:  live.IntField(v, schema.FieldColor),
		Uprate: live.IntField(v, schema.FieldUprate),
		Leds:   live.BoolField(v, schema.FieldLeds),
		params: NewParamValues(nil),
		labels: map[int][]*live.Property[string]{},
	}
	for _, mv := range v.MustSubfields(schema.FieldModes) {
		m.Modes = append(m.Modes, live.IntField(mv, schema.FieldData))
	}
	m.name = live.Value(m.propName("name"), "")
	return m
}

func newSettingsModule(sm SettingsModule) *Module {
	m := &Module{
		index:    int(sm),
		area:     AreaSettings,
		settings: sm,
		params:   NewParamValues(nil),
		labels:   map[int][]*live.Property[string]{},
	}
	m.name = live.Value(m.propName("name"), sm.String())
	return m
}

func (m *Module) propName(what string) string {
	return fmt.Sprintf("%s[%d].%s", m.area, m.index, what)
}

func (m *Module) Index() int   { return m.index }
func (m *Module) Area() AreaID { return m.area }

// IsUser reports whether m came from a module list.
func (m *Module) IsUser() bool { return m.user != nil }

// Settings returns the settings module kind, or 0 for user modules.
func (m *Module) Settings() SettingsModule { return m.settings }

// Type is the module type id of a user module, or -1.
func (m *Module) Type() int {
	if m.user == nil {
		return -1
	}
	return m.user.MustInt(schema.FieldID)
}

// Values returns the UserModule instance backing a user module.
func (m *Module) Values() *field.Values { return m.user }

func (m *Module) Name() *live.Property[string] { return m.name }

func (m *Module) Params() *ParamValues { return m.params }

// Param returns a parameter property.
func (m *Module) Param(variation, index int) (*live.Property[int], error) {
	return m.params.Param(variation, index)
}

func (m *Module) setParamValues(vars []*field.Values) {
	m.params = NewParamValues(vars)
}

func (m *Module) setName(v *field.Values) {
	m.name = live.StringField(v, schema.FieldName)
}

func (m *Module) setUserLabels(labels []*field.Values) {
	for _, pl := range labels {
		idx := pl.MustInt(schema.FieldParamIndex)
		var props []*live.Property[string]
		for _, l := range pl.MustSubfields(schema.FieldLabels) {
			props = append(props, live.StringField(l, schema.FieldLabel))
		}
		m.labels[idx] = props
	}
}

// Labels returns the user labels of one parameter, if any.
func (m *Module) Labels(param int) []*live.Property[string] {
	return m.labels[param]
}

// LabelledParams lists parameter indexes that carry user labels.
func (m *Module) LabelledParams() []int {
	out := make([]int, 0, len(m.labels))
	for i := range m.labels {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

func (m *Module) setMorphLabels(v *field.Values) {
	m.morphLabels = m.morphLabels[:0]
	for _, l := range v.MustSubfields(schema.FieldLabels) {
		m.morphLabels = append(m.morphLabels, live.StringField(l, schema.FieldLabel))
	}
}

// MorphLabel returns the label of morph i on the morphs settings module.
func (m *Module) MorphLabel(i int) (*live.Property[string], error) {
	if i < 0 || i >= len(m.morphLabels) {
		return nil, fmt.Errorf("%w: morph label %d of %d", ErrParamIndex, i, len(m.morphLabels))
	}
	return m.morphLabels[i], nil
}

func (m *Module) String() string {
	return fmt.Sprintf("%s[%d] %s", m.area, m.index, m.name.Get())
}
