package device

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/danmuck/g2ctl/internal/entries"
	"github.com/danmuck/g2ctl/internal/observability"
	"github.com/danmuck/g2ctl/internal/protocol"
	"github.com/danmuck/g2ctl/internal/protocol/bits"
	"github.com/danmuck/g2ctl/internal/protocol/schema"
	"github.com/danmuck/g2ctl/internal/protocol/section"
	"github.com/danmuck/g2ctl/internal/state"
)

// ErrUnhandled marks a well-formed message this package does not route.
var ErrUnhandled = errors.New("device: unhandled message")

// Dispatch routes one inbound message. It must run on the worker.
//
// Layout: response code, then for R_CMD a context byte (system, perf or
// slot), a version byte, a type byte and the payload, then a CRC over all
// of it.
func (d *Device) Dispatch(msg []byte) error {
	kind, err := d.dispatch(msg)
	observability.RecordDispatch(kind, err == nil)
	if err != nil {
		d.log.Debug().Str("kind", kind).Err(err).Hex("msg", msg).Msg("dispatch failed")
		return err
	}
	d.log.Debug().Str("kind", kind).Msg("dispatched")
	return nil
}

func (d *Device) dispatch(msg []byte) (string, error) {
	if len(msg) == 0 {
		return "empty", protocol.ErrTruncated
	}
	switch msg[0] {
	case protocol.RInit:
		return "init", nil
	case protocol.RCmd:
	default:
		return "unknown", fmt.Errorf("%w: response code %#02x", ErrUnhandled, msg[0])
	}
	body, err := protocol.VerifyCRC(msg)
	if err != nil {
		return "cmd", err
	}
	if len(body) < 4 {
		return "cmd", fmt.Errorf("%w: command of %d bytes", protocol.ErrTruncated, len(body))
	}
	h, v := int(body[1]), int(body[2])
	switch {
	case h == protocol.HeaderSystem:
		if v == protocol.VersionTag {
			return d.dispatchVersion(body[3:])
		}
		if v != d.perf.Version() {
			return "perf", fmt.Errorf("%w: perf or system version %d", ErrUnhandled, v)
		}
		return d.dispatchPerf(body[3:])
	case h == protocol.PerfID:
		if v == protocol.VersionTag {
			return d.dispatchVersion(body[3:])
		}
		if v != d.perf.Version() {
			d.log.Warn().Int("have", d.perf.Version()).Int("got", v).Msg("perf version changed")
			d.perf.SetVersion(v)
		}
		return d.dispatchPerf(body[3:])
	case h >= protocol.SlotIDOffset && h < protocol.SlotIDOffset+len(state.Slots):
		return d.dispatchSlot(state.Slot(h-protocol.SlotIDOffset), msg, body[2:])
	case h >= 0 && h < len(state.Slots):
		return d.dispatchSlot(state.Slot(h), msg, body[2:])
	}
	return "cmd", fmt.Errorf("%w: header %#02x", ErrUnhandled, h)
}

// dispatchPerf handles 01 0c|04 <perf version> <type> ...
func (d *Device) dispatchPerf(b []byte) (string, error) {
	t, rest := b[0], b[1:]
	switch t {
	case protocol.TOK:
		return "perf.ok", nil
	case protocol.RInit:
		return "perf.init", nil
	case protocol.TReserved1E:
		return "perf.reserved_1e", nil
	case protocol.TSynthSettings:
		v, err := schema.SynthSettings.Decode(bits.NewReader(rest))
		if err != nil {
			return "perf.synth_settings", err
		}
		d.synth = state.NewSynthSettings(v)
		return "perf.synth_settings", nil
	case protocol.TPerformanceName:
		return "perf.name", d.perf.ReadNameAndSettings(rest)
	case protocol.TExtMasterClock:
		if len(rest) < 3 {
			return "perf.master_clock", fmt.Errorf("%w: master clock", protocol.ErrTruncated)
		}
		return "perf.master_clock", d.masterClock.Set(int(binary.BigEndian.Uint16(rest[1:3])))
	case protocol.TGlobalKnobs:
		payload, err := sliceAhead(rest)
		if err != nil {
			return "perf.global_knobs", err
		}
		return "perf.global_knobs", d.perf.ReadSectionSlice(section.GlobalKnobAssignments, bits.NewReader(payload))
	case protocol.TAssignedVoices:
		return "perf.assigned_voices", d.perf.ReadAssignedVoices(rest)
	case protocol.TEntryList:
		m, err := entries.Decode(rest)
		if err != nil {
			return "perf.entry_list", err
		}
		d.lastEntries = &m
		d.log.Debug().Str("type", m.Type.String()).Int("banks", len(m.Banks)).Bool("done", m.Done).Msg("entry list")
		return "perf.entry_list", nil
	}
	return "perf", fmt.Errorf("%w: perf type %#02x", ErrUnhandled, t)
}

// dispatchSlot handles 01 <slot> <slot version> <type> ... b starts at the
// version byte; msg is the whole message for sections that verify it.
func (d *Device) dispatchSlot(s state.Slot, msg, b []byte) (string, error) {
	p := d.perf.Patch(s)
	if v := int(b[0]); v != p.Version() {
		d.log.Warn().Str("slot", s.String()).Int("have", p.Version()).Int("got", v).Msg("patch version changed")
		p.SetVersion(v)
	}
	t, rest := b[1], b[2:]
	switch t {
	case protocol.TPatchDescription:
		return "slot.patch", p.ReadMessage(msg)
	case protocol.TPatchName:
		return "slot.name", p.ReadPatchName(rest)
	case protocol.TCurrentNote:
		return "slot.current_note", readAhead(p, section.CurrentNote, rest)
	case protocol.TTextPad:
		return "slot.text_pad", readAhead(p, section.TextPad, rest)
	case protocol.TPatchLoadData:
		return "slot.load", p.ReadPatchLoadData(rest)
	case protocol.TOK:
		return "slot.ok", nil
	case protocol.TSelectedParam:
		return "slot.selected_param", p.ReadSelectedParam(rest)
	case protocol.TVolumeData:
		_, err := p.ReadVolumeData(rest)
		return "slot.volume", err
	case protocol.TLedData:
		_, err := p.ReadLedData(rest)
		return "slot.led", err
	case protocol.TSetParam:
		return "slot.param", p.ReadParamUpdate(rest)
	}
	return "slot", fmt.Errorf("%w: slot type %#02x", ErrUnhandled, t)
}

// dispatchVersion handles 01 0c 40 <sub> ...
func (d *Device) dispatchVersion(b []byte) (string, error) {
	if len(b) < 2 {
		return "version", fmt.Errorf("%w: version message", protocol.ErrTruncated)
	}
	switch b[0] {
	case protocol.VersionCnt:
		if len(b) < 3 {
			return "version.count", fmt.Errorf("%w: version count", protocol.ErrTruncated)
		}
		id, v := int(b[1]), int(b[2])
		if id == protocol.PerfID {
			d.perf.SetVersion(v)
			return "version.count", nil
		}
		s, err := state.SlotFromIndex(id)
		if err != nil {
			return "version.count", fmt.Errorf("%w: version id %d", ErrUnhandled, id)
		}
		d.perf.Patch(s).SetVersion(v)
		return "version.count", nil
	case protocol.VersionList:
		d.perf.SetVersion(int(b[1]))
		for pos := 2; pos+3 <= len(b) && b[pos] == protocol.VersionCnt; pos += 3 {
			s, err := state.SlotFromIndex(int(b[pos+1]))
			if err != nil {
				return "version.list", err
			}
			d.perf.Patch(s).SetVersion(int(b[pos+2]))
		}
		return "version.list", nil
	}
	return "version", fmt.Errorf("%w: version subcommand %#02x", ErrUnhandled, b[0])
}

// sliceAhead returns the payload of a u16 length-prefixed chunk.
func sliceAhead(b []byte) ([]byte, error) {
	if len(b) < 2 {
		return nil, fmt.Errorf("%w: chunk length", protocol.ErrTruncated)
	}
	n := int(binary.BigEndian.Uint16(b))
	if len(b) < 2+n {
		return nil, fmt.Errorf("%w: chunk of %d bytes, have %d", protocol.ErrTruncated, n, len(b)-2)
	}
	return b[2 : 2+n], nil
}

func readAhead(p *state.Patch, kind section.Kind, b []byte) error {
	payload, err := sliceAhead(b)
	if err != nil {
		return err
	}
	return p.ReadSectionSlice(kind, bits.NewReader(payload))
}
