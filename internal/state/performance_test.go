package state

import (
	"testing"

	"github.com/danmuck/g2ctl/internal/protocol"
	"github.com/danmuck/g2ctl/internal/protocol/field"
	"github.com/danmuck/g2ctl/internal/protocol/schema"
	"github.com/danmuck/g2ctl/internal/protocol/section"
	"github.com/danmuck/g2ctl/internal/testutil/testlog"
	"github.com/stretchr/testify/require"
)

func perfSettingsValues(selected int) *field.Values {
	slots := make([]*field.Values, schema.SlotCount)
	for i := range slots {
		slots[i] = schema.PerfSlot.MustMake(
			"Slot"+Slots[i].String(), i == 0, true, false, i, 10+i, 0, 127, 0)
	}
	return schema.PerformanceSettings.MustMake(0, selected, 0, 1, 120, 0, 1, 0, slots)
}

func buildPerformance(t *testing.T) *Performance {
	t.Helper()
	perf := NewPerformance(Config{})
	perf.SetVersion(4)
	require.NoError(t, perf.ApplySection(section.PerformanceSettings, perfSettingsValues(2)))
	knobs := make([]*field.Values, 3)
	knobs[0] = schema.GlobalKnobAssignment.MustMake(0, []*field.Values{})
	knobs[1] = schema.GlobalKnobAssignment.MustMake(1, []*field.Values{
		schema.GlobalKnobParams.MustMake(int(AreaFx), 1, 1, 1, int(SlotD)),
	})
	knobs[2] = schema.GlobalKnobAssignment.MustMake(0, []*field.Values{})
	require.NoError(t, perf.ApplySection(section.GlobalKnobAssignments, schema.GlobalKnobAssignments.MustMake(3, knobs)))
	for _, s := range Slots {
		perf.SetPatch(buildPatch(t, s, 0, Config{}))
	}
	return perf
}

func TestPerformanceFileRoundTrip(t *testing.T) {
	testlog.Start(t)
	perf := buildPerformance(t)
	raw, err := perf.FileBytes()
	require.NoError(t, err)
	require.Equal(t, protocol.PerformanceFileHeader, raw[:len(protocol.PerformanceFileHeader)])

	back, err := ReadPerformanceFileBytes(raw, Config{})
	require.NoError(t, err)
	require.Equal(t, 4, back.Version())
	again, err := back.FileBytes()
	require.NoError(t, err)
	require.Equal(t, raw, again)

	slot, err := back.SelectedSlot()
	require.NoError(t, err)
	require.Equal(t, SlotC, slot)
	p, err := back.SelectedPatch()
	require.NoError(t, err)
	require.Equal(t, SlotC, p.Slot())
	require.Equal(t, "round trip", p.TextPad())

	ss := back.Settings().Slot(SlotB)
	require.Equal(t, "SlotB", ss.PatchName.Get())
	require.False(t, ss.Enabled.Get())
	require.True(t, ss.Keyboard.Get())
	require.Equal(t, 11, ss.PatchIndex.Get())
	require.Equal(t, 120, back.Settings().MasterClock.Get())

	_, knob, ok := back.GlobalKnobs().Lookup(ParamRef{Slot: SlotD, Area: AreaFx, Module: 1, Param: 1})
	require.True(t, ok)
	require.True(t, knob.Led)
}

func TestPerformanceFileTrailingBytes(t *testing.T) {
	testlog.Start(t)
	raw, err := buildPerformance(t).FileBytes()
	require.NoError(t, err)
	body := raw[len(protocol.PerformanceFileHeader) : len(raw)-2]
	bad := append(append([]byte(nil), protocol.PerformanceFileHeader...), body...)
	bad = append(bad, 0x00)
	bad = protocol.AppendCRC(bad, bad[len(protocol.PerformanceFileHeader):])
	_, err = ReadPerformanceFileBytes(bad, Config{})
	require.ErrorIs(t, err, protocol.ErrInvalidLength)
}

func TestPerformanceNameMessage(t *testing.T) {
	testlog.Start(t)
	perf := buildPerformance(t)
	require.NoError(t, perf.Name().Set("Live Set"))
	msg, err := perf.NameMessage()
	require.NoError(t, err)
	require.Equal(t, []byte{protocol.RCmd, protocol.HeaderSystem, 4, protocol.TPerformanceName}, msg[:4])

	back := NewPerformance(Config{})
	back.SetVersion(4)
	require.NoError(t, back.ReadNameMessage(msg))
	require.Equal(t, "Live Set", back.Name().Get())
	require.Equal(t, 2, back.Settings().SelectedSlot.Get())
	require.Equal(t, perf.Settings().Values().Dump(), back.Settings().Values().Dump())

	stale := NewPerformance(Config{})
	require.ErrorIs(t, stale.ReadNameMessage(msg), protocol.ErrUnexpectedByte)
}

func TestPerformanceAssignedVoices(t *testing.T) {
	testlog.Start(t)
	perf := buildPerformance(t)
	require.NoError(t, perf.ReadAssignedVoices([]byte{4, 0, 12, 1}))
	require.Equal(t, 12, perf.Patch(SlotC).AssignedVoices().Get())
	require.ErrorIs(t, perf.ReadAssignedVoices([]byte{1, 2}), protocol.ErrTruncated)
}

func TestPerformanceNotLoaded(t *testing.T) {
	testlog.Start(t)
	perf := NewPerformance(Config{})
	_, err := perf.SelectedSlot()
	require.ErrorIs(t, err, ErrNotLoaded)
	_, err = perf.FileBytes()
	require.ErrorIs(t, err, ErrNotLoaded)
}

func TestOfflineSynthSettings(t *testing.T) {
	testlog.Start(t)
	ss := OfflineSynthSettings()
	require.Equal(t, "[offline]", ss.Values().MustStr(schema.FieldDeviceName))
}
