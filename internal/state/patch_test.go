package state

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/danmuck/g2ctl/internal/protocol"
	"github.com/danmuck/g2ctl/internal/protocol/bits"
	"github.com/danmuck/g2ctl/internal/protocol/crc16"
	"github.com/danmuck/g2ctl/internal/protocol/field"
	"github.com/danmuck/g2ctl/internal/protocol/schema"
	"github.com/danmuck/g2ctl/internal/protocol/section"
	"github.com/danmuck/g2ctl/internal/testutil/testlog"
	"github.com/stretchr/testify/require"
)

const (
	typeOsc = 3
	typeEnv = 4
)

var testCatalog = StaticCatalog{
	typeOsc: {{Kind: VisualLed, Names: []string{"Active"}}},
	typeEnv: {
		{Kind: VisualLedGroup, Names: []string{"Seg1", "Seg2"}},
		{Kind: VisualMeter, Names: []string{"Level"}},
	},
}

type recordingSender struct{ sent [][]byte }

func (s *recordingSender) Send(msg []byte) error {
	s.sent = append(s.sent, msg)
	return nil
}

// buildPatch returns a patch with two voice modules, one fx module, a
// cable, names and labels on top of the empty defaults.
func buildPatch(t *testing.T, slot Slot, version int, cfg Config) *Patch {
	t.Helper()
	p := NewPatch(slot, cfg)
	p.SetVersion(version)
	require.NoError(t, p.InitDefaults())

	none := []*field.Values{}
	apply := func(kind section.Kind, v *field.Values) {
		t.Helper()
		require.NoError(t, p.ApplySection(kind, v))
	}
	apply(section.ModuleList1, schema.ModuleList.MustMake(2, []*field.Values{
		schema.UserModule.MustMake(typeOsc, 1, 0, 0, 0, 0, 1, 0, 1,
			[]*field.Values{schema.ModuleModes.MustMake(2)}),
		schema.UserModule.MustMake(typeEnv, 2, 0, 3, 0, 0, 0, 0, 0, none),
	}))
	apply(section.ModuleList0, schema.ModuleList.MustMake(1, []*field.Values{
		schema.UserModule.MustMake(typeEnv, 1, 1, 0, 2, 1, 0, 0, 0, none),
	}))
	apply(section.CableList1, schema.CableList.MustMake(0, 1, []*field.Values{
		schema.Cable.MustMake(1, 1, 0, 1, 2, 0),
	}))
	apply(section.ModuleParams1, schema.ModuleParams.MustMake(2, MaxVariations, []*field.Values{
		schema.ModuleParamSet.MustMake(1, 3, VarParamsOf(10, 64, 127)),
		schema.ModuleParamSet.MustMake(2, 1, VarParamsOf(5)),
	}))
	apply(section.ModuleParams0, schema.ModuleParams.MustMake(1, MaxVariations, []*field.Values{
		schema.ModuleParamSet.MustMake(1, 2, VarParamsOf(0, 100)),
	}))
	apply(section.ModuleNames1, schema.ModuleNames.MustMake(0, 2, []*field.Values{
		schema.ModuleName.MustMake(1, "Osc1"),
		schema.ModuleName.MustMake(2, "Env"),
	}))
	apply(section.ModuleNames0, schema.ModuleNames.MustMake(0, 1, []*field.Values{
		schema.ModuleName.MustMake(1, "FxEnv"),
	}))
	apply(section.ModuleLabels1, schema.ModuleLabels.MustMake(1, []*field.Values{
		schema.ModuleLabel.MustMake(1, 10, []*field.Values{
			schema.ParamLabels.MustMake(1, 8, 0, []*field.Values{schema.ParamLabel.MustMake("Coarse")}),
		}),
	}))
	apply(section.TextPad, schema.TextPad.MustMake("round trip"))
	p.updateVisualIndex()
	return p
}

func TestPatchFileRoundTrip(t *testing.T) {
	testlog.Start(t)
	p := buildPatch(t, SlotA, 0, Config{})
	raw, err := p.FileBytes()
	require.NoError(t, err)
	require.Equal(t, protocol.PatchFileHeader, raw[:len(protocol.PatchFileHeader)])

	body := raw[len(protocol.PatchFileHeader):]
	stored := binary.BigEndian.Uint16(body[len(body)-2:])
	require.Equal(t, crc16.Checksum(body[:len(body)-2]), stored)

	back, err := ReadPatchFileBytes(SlotA, raw, Config{})
	require.NoError(t, err)
	again, err := back.FileBytes()
	require.NoError(t, err)
	require.Equal(t, raw, again)

	require.Equal(t, "round trip", back.TextPad())
	require.Len(t, back.Area(AreaVoice).Modules(), 2)
	require.Equal(t, []Cable{{Color: 1, SrcModule: 1, Output: true, DestModule: 2}}, back.Area(AreaVoice).Cables())
	osc, err := back.Area(AreaVoice).Module(1)
	require.NoError(t, err)
	require.Equal(t, "Osc1", osc.Name().Get())
	require.Equal(t, typeOsc, osc.Type())
	require.Len(t, osc.Labels(0), 1)
	require.Equal(t, "Coarse", osc.Labels(0)[0].Get())
	require.Equal(t, []int{0}, osc.LabelledParams())
	vals, err := osc.Params().VarValues(9)
	require.NoError(t, err)
	require.Equal(t, []int{10, 64, 127}, vals)
}

func TestPatchFileRejectsCorruption(t *testing.T) {
	testlog.Start(t)
	raw, err := buildPatch(t, SlotA, 0, Config{}).FileBytes()
	require.NoError(t, err)

	flipped := append([]byte(nil), raw...)
	flipped[len(flipped)-1] ^= 0x01
	_, err = ReadPatchFileBytes(SlotA, flipped, Config{})
	require.ErrorIs(t, err, protocol.ErrCRCMismatch)

	header := append([]byte(nil), raw...)
	header[0] = 'X'
	_, err = ReadPatchFileBytes(SlotA, header, Config{})
	require.ErrorIs(t, err, protocol.ErrBadFileHeader)
}

func TestPatchMessageRoundTrip(t *testing.T) {
	testlog.Start(t)
	p := buildPatch(t, SlotB, 3, Config{})
	raw, err := p.MessageBytes()
	require.NoError(t, err)
	require.Equal(t, []byte{protocol.RCmd, byte(SlotB.ID()), 3, byte(section.PatchDescription.Type())}, raw[:4])
	require.Equal(t, crc16.Checksum(raw[:len(raw)-2]), binary.BigEndian.Uint16(raw[len(raw)-2:]))

	back := NewPatch(SlotB, Config{})
	back.SetVersion(3)
	require.NoError(t, back.ReadMessage(raw))
	again, err := back.MessageBytes()
	require.NoError(t, err)
	require.Equal(t, raw, again)
	require.Equal(t, section.MessageSections, back.Kinds())

	other := NewPatch(SlotC, Config{})
	other.SetVersion(3)
	require.ErrorIs(t, other.ReadMessage(raw), ErrSlotMismatch)

	stale := NewPatch(SlotB, Config{})
	require.ErrorIs(t, stale.ReadMessage(raw), ErrVersionMismatch)
}

func TestFlippedLocationFailsDecode(t *testing.T) {
	testlog.Start(t)
	p := buildPatch(t, SlotA, 0, Config{})
	v, _ := p.Section(section.CableList1)
	payload, err := section.Encode(section.CableList1, v)
	require.NoError(t, err)

	payload[0] &^= 0x40
	err = p.ReadSectionSlice(section.CableList1, bits.NewReader(payload))
	var locErr *section.LocationError
	require.True(t, errors.As(err, &locErr), "got %v", err)
	require.Equal(t, 1, locErr.Want)
	require.Equal(t, 0, locErr.Got)
}

func TestReadSectionScansFramedBuffer(t *testing.T) {
	testlog.Start(t)
	src := buildPatch(t, SlotA, 0, Config{})
	raw, err := src.FileBytes()
	require.NoError(t, err)
	chunks := raw[len(protocol.PatchFileHeader)+2 : len(raw)-2]

	p := NewPatch(SlotA, Config{})
	require.NoError(t, p.ReadSection(section.ModuleList0, chunks))
	require.NoError(t, p.ReadSection(section.ModuleNames0, chunks))
	m, err := p.Area(AreaFx).Module(1)
	require.NoError(t, err)
	require.Equal(t, "FxEnv", m.Name().Get())
	require.Empty(t, p.Area(AreaVoice).Modules())
}

func TestParamUpdateNotifiesOnlyOnChange(t *testing.T) {
	testlog.Start(t)
	p := buildPatch(t, SlotA, 0, Config{})
	osc, err := p.Area(AreaVoice).Module(1)
	require.NoError(t, err)
	prop, err := osc.Param(0, 1)
	require.NoError(t, err)

	var changes [][2]int
	prop.Subscribe(func(old, cur int) { changes = append(changes, [2]int{old, cur}) })

	require.NoError(t, p.ReadParamUpdate([]byte{byte(AreaVoice), 1, 1, 64, 0}))
	require.Empty(t, changes)

	require.NoError(t, p.ReadParamUpdate([]byte{byte(AreaVoice), 1, 1, 65, 0}))
	require.Equal(t, [][2]int{{64, 65}}, changes)

	v, _ := p.Section(section.ModuleParams1)
	set := v.MustSubfields(schema.FieldParamSet)[0]
	stored := set.MustSubfields(schema.FieldModParams)[0].MustSubfields(schema.FieldParams)[1]
	require.Equal(t, 65, stored.MustInt(schema.FieldDatum))

	require.ErrorIs(t, p.ReadParamUpdate([]byte{byte(AreaVoice), 9, 1, 65, 0}), ErrNoModule)
	require.ErrorIs(t, p.ReadParamUpdate([]byte{byte(AreaVoice), 1, 1, 65, 12}), ErrVariation)
	require.ErrorIs(t, p.ReadParamUpdate([]byte{byte(AreaVoice), 1, 7, 65, 0}), ErrParamIndex)
}

func TestEditParamSendsCommand(t *testing.T) {
	testlog.Start(t)
	sender := &recordingSender{}
	p := buildPatch(t, SlotC, 2, Config{Sender: sender})

	require.NoError(t, p.EditParam(AreaFx, 1, 1, 0, 42))
	require.NoError(t, p.EditParam(AreaFx, 1, 1, 0, 42))
	require.Equal(t, [][]byte{protocol.SetParam(2, 2, 0, 1, 1, 42, 0)}, sender.sent)

	require.ErrorIs(t, p.EditParam(AreaFx, 1, 1, 0, 128), field.ErrOverflow)
	require.Len(t, sender.sent, 1)
}

func TestVoiceMode(t *testing.T) {
	testlog.Start(t)
	p := buildPatch(t, SlotA, 0, Config{})
	ps := p.Settings()
	require.Equal(t, Poly(5), ps.VoiceMode.Get())
	require.Equal(t, "P5", ps.VoiceMode.Get().String())

	require.NoError(t, ps.VoiceMode.Set(Legato))
	require.Equal(t, MonoPolyLegato, ps.MonoPoly.Get())
	require.Equal(t, 5, ps.Voices.Get())

	require.NoError(t, ps.VoiceMode.Set(Poly(8)))
	require.Equal(t, MonoPolyPoly, ps.MonoPoly.Get())
	require.Equal(t, 8, ps.Voices.Get())

	require.NoError(t, ps.VoiceMode.Set(Mono))
	err := ps.VoiceMode.Set(Poly(32))
	require.ErrorIs(t, err, field.ErrOverflow)
	require.Equal(t, Mono, ps.VoiceMode.Get())

	require.ErrorIs(t, ps.VoiceMode.Set(Poly(1)), ErrVoiceMode)
	_, err = VoiceModeOf(3, 0)
	require.ErrorIs(t, err, ErrVoiceMode)
}

func TestPatchSettingsCableColours(t *testing.T) {
	testlog.Start(t)
	p := buildPatch(t, SlotA, 0, Config{})
	ps := p.Settings()
	require.True(t, ps.Cables[schema.CableWhite].Get())
	require.NoError(t, ps.Cables[schema.CableRed].Set(false))
	require.Equal(t, 0x3f, ps.Values().MustInt(schema.FieldVisibleCables))
}

func TestSettingsAreaDefaults(t *testing.T) {
	testlog.Start(t)
	p := buildPatch(t, SlotA, 0, Config{})
	settings := p.Area(AreaSettings)
	require.Len(t, settings.Modules(), len(SettingsModules))

	morphs, err := settings.SettingsModule(SettingsMorphs)
	require.NoError(t, err)
	label, err := morphs.MorphLabel(3)
	require.NoError(t, err)
	require.Equal(t, "Aft.Tch", label.Get())
	_, err = morphs.MorphLabel(8)
	require.ErrorIs(t, err, ErrParamIndex)

	vib, err := settings.SettingsModule(SettingsVibrato)
	require.NoError(t, err)
	require.Equal(t, 3, len(mustVar(t, vib, 0)))
	require.Equal(t, "Vibrato", vib.Name().Get())

	require.Len(t, p.Knobs().Knobs, defaultKnobCount)
	require.Empty(t, p.Knobs().Active())
	_, found, err := p.Morphs().Param(0, AreaVoice, 1, 0)
	require.NoError(t, err)
	require.False(t, found)
	_, _, err = p.Morphs().Param(MaxVariations, AreaVoice, 1, 0)
	require.ErrorIs(t, err, ErrVariation)
}

func mustVar(t *testing.T, m *Module, variation int) []int {
	t.Helper()
	vals, err := m.Params().VarValues(variation)
	require.NoError(t, err)
	return vals
}

func TestKnobAndControlViews(t *testing.T) {
	testlog.Start(t)
	p := buildPatch(t, SlotB, 0, Config{})
	knobs := make([]*field.Values, 4)
	for i := range knobs {
		knobs[i] = schema.KnobAssignment.MustMake(0, []*field.Values{})
	}
	knobs[2] = schema.KnobAssignment.MustMake(1, []*field.Values{
		schema.KnobParams.MustMake(int(AreaVoice), 1, 0, 2),
	})
	require.NoError(t, p.ApplySection(section.KnobAssignments, schema.KnobAssignments.MustMake(4, knobs)))
	require.NoError(t, p.ApplySection(section.ControlAssignments, schema.ControlAssignments.MustMake(1, []*field.Values{
		schema.ControlAssignment.MustMake(7, int(AreaFx), 1, 0),
	})))

	ref := ParamRef{Slot: SlotB, Area: AreaVoice, Module: 1, Param: 2}
	i, knob, ok := p.Knobs().Lookup(ref)
	require.True(t, ok)
	require.Equal(t, 2, i)
	require.False(t, knob.Led)
	require.Len(t, p.Knobs().Active(), 1)

	c, ok := p.Controls().ForCC(7)
	require.True(t, ok)
	require.Equal(t, Control{MidiCC: 7, Area: AreaFx, Module: 1}, c)
	_, ok = p.Controls().ForCC(1)
	require.False(t, ok)
}

func TestVisualIndexAndDeltas(t *testing.T) {
	testlog.Start(t)
	p := buildPatch(t, SlotA, 0, Config{Catalog: testCatalog})

	require.Len(t, p.Leds(), 1)
	require.Equal(t, "Voice.Osc1[1].Active=0", p.Leds()[0].String())

	// Voice Env meter then LED group, then the fx Env.
	meters := p.Meters()
	require.Len(t, meters, 4)
	require.Equal(t, VisualMeter, meters[0].Visual.Kind)
	require.Equal(t, VisualLedGroup, meters[1].Visual.Kind)
	require.Equal(t, AreaFx, meters[2].Area)

	updated, err := p.ReadLedData([]byte{0xff, 0x02})
	require.NoError(t, err)
	require.Len(t, updated, 1)
	require.Equal(t, 2, p.Leds()[0].Value.Get())
	updated, err = p.ReadLedData([]byte{0x00, 0x02})
	require.NoError(t, err)
	require.Empty(t, updated)

	updated, err = p.ReadVolumeData([]byte{0, 10, 0, 0, 0, 30, 0, 0})
	require.NoError(t, err)
	require.Len(t, updated, 2)
	require.Equal(t, 30, meters[2].Value.Get())

	_, err = p.ReadVolumeData([]byte{0, 1})
	require.ErrorIs(t, err, protocol.ErrTruncated)
	_, err = p.ReadLedData([]byte{0})
	require.ErrorIs(t, err, protocol.ErrTruncated)
}

func TestSelectedParamAndLoadData(t *testing.T) {
	testlog.Start(t)
	p := buildPatch(t, SlotA, 0, Config{})
	require.NoError(t, p.ReadSelectedParam([]byte{0, byte(AreaVoice), 2, 0}))
	sel, ok := p.Area(AreaVoice).Selected()
	require.True(t, ok)
	require.Equal(t, SelectedParam{Module: 2, Param: 0}, sel)
	_, ok = p.Area(AreaFx).Selected()
	require.False(t, ok)

	load := make([]byte, 30)
	load[0] = byte(AreaFx)
	load[1], load[2] = 10, 92 // red cycles 1372
	load[5] = 64              // internal mem
	require.NoError(t, p.ReadPatchLoadData(load))
	ld := p.Area(AreaFx).LoadData()
	require.NotNil(t, ld)
	require.Equal(t, 100.0, ld.Cycles())
	require.Equal(t, 50.0, ld.Mem())

	require.ErrorIs(t, p.ReadSelectedParam([]byte{0, 3, 0, 0}), ErrArea)
}

func TestPatchNameMessage(t *testing.T) {
	testlog.Start(t)
	p := NewPatch(SlotD, Config{})
	require.NoError(t, p.ReadPatchName([]byte("Bells\x00")))
	require.Equal(t, "Bells", p.Name().Get())
	require.Equal(t, []section.Kind{section.PatchName}, p.Kinds())
}

func TestSlotAndArea(t *testing.T) {
	require.True(t, SlotC.TestID(2))
	require.True(t, SlotC.TestID(10))
	require.False(t, SlotC.TestID(3))
	require.Equal(t, "D", SlotD.String())
	_, err := SlotFromIndex(4)
	require.ErrorIs(t, err, ErrSlot)
	_, err = AreaFromIndex(3)
	require.ErrorIs(t, err, ErrArea)
	require.Equal(t, "Settings", AreaSettings.String())
}
