package device

import (
	"context"
	"sync"
	"testing"

	"github.com/danmuck/g2ctl/internal/entries"
	"github.com/danmuck/g2ctl/internal/protocol"
	"github.com/danmuck/g2ctl/internal/protocol/field"
	"github.com/danmuck/g2ctl/internal/protocol/schema"
	"github.com/danmuck/g2ctl/internal/protocol/section"
	"github.com/danmuck/g2ctl/internal/state"
	"github.com/stretchr/testify/require"
)

const (
	fakePerfVersion = 2
	fakeSlotVersion = 5
)

// fakeSynth answers requests the way a G2 with a fixed performance does.
type fakeSynth struct {
	t       *testing.T
	perf    *state.Performance
	synth   *state.SynthSettings
	catalog map[entries.Type][][]byte

	mu       sync.Mutex
	requests [][]byte
	sent     [][]byte
	pages    map[entries.Type]int
}

func newFakeSynth(t *testing.T) *fakeSynth {
	t.Helper()
	perf := state.NewPerformance(state.Config{})
	perf.SetVersion(fakePerfVersion)
	slots := make([]*field.Values, schema.SlotCount)
	for i := range slots {
		slots[i] = schema.PerfSlot.MustMake("Init", true, i == 0, false, 0, i, 0, 127, 0)
	}
	require.NoError(t, perf.ApplySection(section.PerformanceSettings,
		schema.PerformanceSettings.MustMake(0, 1, 0, 0, 120, 0, 0, 0, slots)))
	require.NoError(t, perf.Name().Set("Stage"))
	for _, s := range state.Slots {
		perf.SetPatch(fakePatch(t, s))
	}
	return &fakeSynth{
		t:     t,
		perf:  perf,
		synth: state.OfflineSynthSettings(),
		catalog: map[entries.Type][][]byte{
			entries.Patch: {
				entryPage(entries.Patch, false, 0, 0, "Bells", "Pad"),
				entryPage(entries.Patch, true, 0, 2, "Bass"),
			},
			entries.Perf: {entryPage(entries.Perf, true, 3, 0, "Live")},
		},
		pages: map[entries.Type]int{},
	}
}

// fakePatch is an empty patch with one voice module holding two
// parameters.
func fakePatch(t *testing.T, s state.Slot) *state.Patch {
	t.Helper()
	p := state.NewPatch(s, state.Config{})
	p.SetVersion(fakeSlotVersion)
	require.NoError(t, p.InitDefaults())
	require.NoError(t, p.ApplySection(section.ModuleList1, schema.ModuleList.MustMake(1, []*field.Values{
		schema.UserModule.MustMake(7, 1, 0, 0, 0, 0, 0, 0, 0, []*field.Values{}),
	})))
	require.NoError(t, p.ApplySection(section.ModuleParams1, schema.ModuleParams.MustMake(1, state.MaxVariations, []*field.Values{
		schema.ModuleParamSet.MustMake(1, 2, state.VarParamsOf(20, 40)),
	})))
	require.NoError(t, p.ApplySection(section.TextPad, schema.TextPad.MustMake("slot "+s.String())))
	require.NoError(t, p.ApplySection(section.PatchName, schema.EntryName.MustMake("Patch"+s.String())))
	return p
}

func entryPage(t entries.Type, done bool, bank, entry int, names ...string) []byte {
	b := []byte{0, 0, 0, 0, byte(t), 0x03, byte(bank), byte(entry)}
	for _, n := range names {
		b = append(b, n...)
		b = append(b, 0, 1)
	}
	if done {
		return append(b, 0x04)
	}
	return append(b, 0x05)
}

func withCRC(b ...byte) []byte { return protocol.AppendCRC(b, b) }

func (f *fakeSynth) Request(_ context.Context, bulk []byte) ([]byte, error) {
	msg, err := protocol.DecodeBulk(bulk)
	require.NoError(f.t, err)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, msg)
	return f.respond(msg), nil
}

func (f *fakeSynth) Send(_ context.Context, bulk []byte) error {
	msg, err := protocol.DecodeBulk(bulk)
	require.NoError(f.t, err)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeSynth) perfOK() []byte {
	return withCRC(protocol.RCmd, protocol.HeaderSystem, fakePerfVersion, protocol.TOK)
}

func (f *fakeSynth) respond(msg []byte) []byte {
	if len(msg) == 1 && msg[0] == protocol.RInit {
		return []byte{protocol.RInit}
	}
	require.Equal(f.t, byte(protocol.RCmd), msg[0])
	switch {
	case msg[1] == protocol.CmdRequest+protocol.CmdSystem && msg[2] == protocol.SysVersion:
		return f.system(msg[3:])
	case msg[1] == protocol.CmdRequest+protocol.CmdSystem:
		require.Equal(f.t, byte(fakePerfVersion), msg[2], "perf request version")
		return f.perfRequest(msg[3])
	default:
		s := state.Slot(msg[1] - protocol.CmdRequest - protocol.CmdSlot)
		require.Equal(f.t, byte(fakeSlotVersion), msg[2], "slot request version")
		return f.slotRequest(s, msg[3:])
	}
}

func (f *fakeSynth) system(data []byte) []byte {
	switch data[0] {
	case protocol.QVersionCount:
		v := byte(fakeSlotVersion)
		if data[1] == protocol.PerfID {
			v = fakePerfVersion
		}
		return withCRC(protocol.RCmd, protocol.HeaderSystem, protocol.VersionTag, protocol.VersionCnt, data[1], v)
	case protocol.QSynthSettings:
		b, err := f.synth.Values().EncodeBytes()
		require.NoError(f.t, err)
		return withCRC(append([]byte{protocol.RCmd, protocol.HeaderSystem, fakePerfVersion, protocol.TSynthSettings}, b...)...)
	case protocol.QMasterClock:
		return withCRC(protocol.RCmd, protocol.HeaderSystem, fakePerfVersion, protocol.TExtMasterClock, 0x01, 0x00, 0x78)
	case protocol.QAssignedVoices:
		return withCRC(protocol.RCmd, protocol.HeaderSystem, fakePerfVersion, protocol.TAssignedVoices, 6, 1, 1, 1)
	case protocol.QListNames:
		t := entries.Type(data[1])
		page := f.catalog[t][f.pages[t]]
		f.pages[t]++
		return withCRC(append([]byte{protocol.RCmd, protocol.HeaderSystem, fakePerfVersion, protocol.TEntryList}, page...)...)
	}
	return f.perfOK()
}

func (f *fakeSynth) perfRequest(q byte) []byte {
	switch q {
	case protocol.QPerfSettings:
		msg, err := f.perf.NameMessage()
		require.NoError(f.t, err)
		return msg
	case protocol.QGlobalKnobs:
		knobs := schema.GlobalKnobAssignments.MustMake(1, []*field.Values{
			schema.GlobalKnobAssignment.MustMake(1, []*field.Values{
				schema.GlobalKnobParams.MustMake(1, 1, 0, 0, 2),
			}),
		})
		b, err := section.Append([]byte{protocol.RCmd, protocol.HeaderSystem, fakePerfVersion}, section.GlobalKnobAssignments, knobs)
		require.NoError(f.t, err)
		return withCRC(b...)
	}
	return f.perfOK()
}

func (f *fakeSynth) slotRequest(s state.Slot, data []byte) []byte {
	p := f.perf.Patch(s)
	head := []byte{protocol.RCmd, byte(s.ID()), fakeSlotVersion}
	switch data[0] {
	case protocol.QPatch:
		msg, err := p.MessageBytes()
		require.NoError(f.t, err)
		return msg
	case protocol.QPatchName:
		b := append(head, protocol.TPatchName)
		b = append(b, p.Name().Get()...)
		return withCRC(append(b, 0)...)
	case protocol.QCurrentNote, protocol.QPatchText:
		kind := section.CurrentNote
		if data[0] == protocol.QPatchText {
			kind = section.TextPad
		}
		v, _ := p.Section(kind)
		b, err := section.Append(head, kind, v)
		require.NoError(f.t, err)
		return withCRC(b...)
	case protocol.QResourcesUsed:
		load := make([]byte, 28)
		load[0] = data[1]
		load[5] = 32
		return withCRC(append(append(head, protocol.TPatchLoadData), load...)...)
	case protocol.QSelectedParam:
		return withCRC(append(head, protocol.TSelectedParam, 0, byte(state.AreaVoice), 1, 1)...)
	}
	return withCRC(append(head, protocol.TOK)...)
}

func (f *fakeSynth) sentMessages() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.sent...)
}

func (f *fakeSynth) requestLog() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.requests...)
}
