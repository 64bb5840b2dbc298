package main

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/danmuck/g2ctl/internal/protocol"
	"github.com/danmuck/g2ctl/internal/protocol/field"
	"github.com/danmuck/g2ctl/internal/protocol/schema"
	"github.com/danmuck/g2ctl/internal/protocol/section"
	"github.com/danmuck/g2ctl/internal/report"
	"github.com/danmuck/g2ctl/internal/state"
	"github.com/danmuck/g2ctl/internal/testutil/testlog"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writePatch(t *testing.T, dir string) string {
	t.Helper()
	p := state.NewPatch(state.SlotA, state.Config{})
	require.NoError(t, p.InitDefaults())
	require.NoError(t, p.ApplySection(section.ModuleList1, schema.ModuleList.MustMake(1, []*field.Values{
		schema.UserModule.MustMake(7, 1, 0, 0, 0, 0, 0, 0, 0, []*field.Values{}),
	})))
	require.NoError(t, p.ApplySection(section.ModuleParams1, schema.ModuleParams.MustMake(1, state.MaxVariations, []*field.Values{
		schema.ModuleParamSet.MustMake(1, 2, state.VarParamsOf(20, 40)),
	})))
	require.NoError(t, p.ApplySection(section.ModuleNames1, schema.ModuleNames.MustMake(0, 1, []*field.Values{
		schema.ModuleName.MustMake(1, "Filter"),
	})))
	require.NoError(t, p.ApplySection(section.TextPad, schema.TextPad.MustMake("cli")))
	path := filepath.Join(dir, "Lead.pch2")
	require.NoError(t, p.WriteFile(path))
	return path
}

func writeHex(t *testing.T, dir, name string, msg []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	body := "# captured\n" + hex.EncodeToString(msg) + "\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func withCRC(b ...byte) []byte { return protocol.AppendCRC(b, b) }

func TestInfoCommand(t *testing.T) {
	testlog.Start(t)
	path := writePatch(t, t.TempDir())

	out, err := run(t, "info", path)
	require.NoError(t, err)
	require.Contains(t, out, "Voice: 1 modules, 0 cables")
	require.Contains(t, out, "Filter")
	require.Contains(t, out, `Text: "cli"`)

	out, err = run(t, "info", path, "--json")
	require.NoError(t, err)
	var s report.PatchSummary
	require.NoError(t, json.Unmarshal([]byte(out), &s))
	require.Equal(t, "cli", s.TextPad)
	require.Equal(t, "P5", s.VoiceMode)

	bad := filepath.Join(t.TempDir(), "bad.pch2")
	require.NoError(t, os.WriteFile(bad, []byte("not a patch"), 0o600))
	_, err = run(t, "info", bad)
	require.ErrorIs(t, err, protocol.ErrBadFileHeader)
}

func TestRoundTripCommand(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()
	path := writePatch(t, dir)
	copyPath := filepath.Join(dir, "copy.pch2")

	out, err := run(t, "roundtrip", path, "-o", copyPath)
	require.NoError(t, err)
	require.Contains(t, out, "round trips")

	orig, err := os.ReadFile(path)
	require.NoError(t, err)
	copied, err := os.ReadFile(copyPath)
	require.NoError(t, err)
	require.Equal(t, orig, copied)

	out, err = run(t, "roundtrip", path, "--json")
	require.NoError(t, err)
	var res roundTripResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.True(t, res.Identical)
	require.Equal(t, -1, res.FirstDiff)
	require.Equal(t, len(orig), res.Bytes)
}

func TestFirstDiff(t *testing.T) {
	testlog.Start(t)
	require.Equal(t, -1, firstDiff([]byte{1, 2}, []byte{1, 2}))
	require.Equal(t, 1, firstDiff([]byte{1, 2}, []byte{1, 3}))
	require.Equal(t, 2, firstDiff([]byte{1, 2}, []byte{1, 2, 3}))
}

func TestExportCommand(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()
	path := writePatch(t, dir)

	out, err := run(t, "export", path)
	require.NoError(t, err)
	require.Contains(t, out, "text_pad: cli")

	target := filepath.Join(dir, "lead.toml")
	_, err = run(t, "export", path, "--format", "toml", "-o", target)
	require.NoError(t, err)
	body, err := os.ReadFile(target)
	require.NoError(t, err)
	require.Contains(t, string(body), "text_pad = 'cli'")

	_, err = run(t, "export", path, "--format", "csv")
	require.ErrorIs(t, err, report.ErrFormat)
}

func listing(done bool, bank, entry int, names ...string) []byte {
	b := []byte{protocol.RCmd, protocol.HeaderSystem, 0, protocol.TEntryList, 0, 0, 0, 0, 0, 0x03, byte(bank), byte(entry)}
	for _, n := range names {
		b = append(b, n...)
		b = append(b, 0, 2)
	}
	if done {
		return withCRC(append(b, 0x04)...)
	}
	return withCRC(append(b, 0x05)...)
}

func TestEntriesCommand(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()
	first := writeHex(t, dir, "page1.hex", listing(false, 0, 0, "Bells", "Pad"))
	second := writeHex(t, dir, "page2.hex", listing(true, 0, 2, "Bass"))

	out, err := run(t, "entries", first, second)
	require.NoError(t, err)
	require.Equal(t, "Patch bank 1:\n  01: Bells [2]\n  02: Pad [2]\n  03: Bass [2]\n", out)

	out, err = run(t, "entries", first, second, "--json", "--bank", "1")
	require.NoError(t, err)
	var banks []bankView
	require.NoError(t, json.Unmarshal([]byte(out), &banks))
	require.Len(t, banks, 1)
	require.Equal(t, entryView{Entry: 3, Name: "Bass", Category: 2}, banks[0].Entries[2])

	_, err = run(t, "entries", first)
	require.True(t, errors.Is(err, errCapturesExhausted), "err = %v", err)

	corrupt := listing(true, 0, 0, "X")
	corrupt[len(corrupt)-1] ^= 0xff
	_, err = run(t, "entries", writeHex(t, dir, "bad.hex", corrupt))
	require.ErrorIs(t, err, protocol.ErrCRCMismatch)
}

func TestReplayCommand(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()
	path := writePatch(t, dir)
	edit := writeHex(t, dir, "edit.hex", withCRC(protocol.RCmd, byte(state.SlotB.ID()), 0, protocol.TSetParam,
		byte(state.AreaVoice), 1, 0, 99, 1))
	junk := writeHex(t, dir, "junk.hex", withCRC(0x55, 1, 2))

	out, err := run(t, "replay", "--patch", path, "--slot", "b", edit, junk, "--json")
	require.NoError(t, err)
	var rep replayReport
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	require.Equal(t, 1, rep.Failed)
	require.Empty(t, rep.Messages[0].Error)
	require.NotEmpty(t, rep.Messages[1].Error)

	slotB := rep.Performance.Slots[state.SlotB]
	require.Equal(t, []int{99, 40}, slotB.Areas[1].Modules[0].Params)

	_, err = run(t, "replay", "--patch", path, "--slot", "E", edit)
	require.ErrorIs(t, err, state.ErrSlot)
}

func TestConfigInitCommand(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "g2ctl.toml")

	out, err := run(t, "config", "init", path, "--kind", "cli")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "wrote cli config"))

	_, err = run(t, "config", "init", path, "--kind", "cli")
	require.Error(t, err)

	_, err = run(t, "--config", path, "info", writePatch(t, t.TempDir()))
	require.NoError(t, err)
}
