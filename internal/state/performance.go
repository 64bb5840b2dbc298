package state

import (
	"bytes"
	"fmt"
	"os"

	"github.com/danmuck/g2ctl/internal/live"
	"github.com/danmuck/g2ctl/internal/protocol"
	"github.com/danmuck/g2ctl/internal/protocol/bits"
	"github.com/danmuck/g2ctl/internal/protocol/field"
	"github.com/danmuck/g2ctl/internal/protocol/schema"
	"github.com/danmuck/g2ctl/internal/protocol/section"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Performance is four patches plus performance-wide settings and knobs.
type Performance struct {
	version int
	cfg     Config
	log     zerolog.Logger

	name        *live.Property[string]
	settings    *PerformanceSettings
	globalKnobs *KnobAssignments
	patches     [schema.SlotCount]*Patch
}

// NewPerformance returns a performance with four empty patches.
func NewPerformance(cfg Config) *Performance {
	perf := &Performance{
		cfg:  cfg,
		log:  log.With().Str("component", "performance").Logger(),
		name: live.Value("Performance.Name", ""),
	}
	for _, s := range Slots {
		perf.patches[s] = NewPatch(s, cfg)
	}
	return perf
}

func (perf *Performance) Version() int { return perf.version }

func (perf *Performance) SetVersion(v int) {
	perf.version = v
	perf.log.Debug().Int("version", v).Msg("performance version")
}

func (perf *Performance) Name() *live.Property[string] { return perf.name }

// Settings is nil until loaded.
func (perf *Performance) Settings() *PerformanceSettings { return perf.settings }

// GlobalKnobs is nil until loaded.
func (perf *Performance) GlobalKnobs() *KnobAssignments { return perf.globalKnobs }

func (perf *Performance) Patch(s Slot) *Patch { return perf.patches[s] }

// SetPatch replaces the patch of a slot, e.g. after a file load.
func (perf *Performance) SetPatch(p *Patch) { perf.patches[p.Slot()] = p }

// SelectedSlot is the slot focused on the device.
func (perf *Performance) SelectedSlot() (Slot, error) {
	if perf.settings == nil {
		return 0, ErrNotLoaded
	}
	return SlotFromIndex(perf.settings.SelectedSlot.Get())
}

func (perf *Performance) SelectedPatch() (*Patch, error) {
	s, err := perf.SelectedSlot()
	if err != nil {
		return nil, err
	}
	return perf.patches[s], nil
}

// ReadPerformanceFile loads a .prf2 file.
func ReadPerformanceFile(path string, cfg Config) (*Performance, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	perf, err := ReadPerformanceFileBytes(b, cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return perf, nil
}

// ReadPerformanceFileBytes decodes a performance file image: header, body
// marker, version, settings, four patch section sequences, global knobs,
// then the CRC.
func ReadPerformanceFileBytes(b []byte, cfg Config) (*Performance, error) {
	body, err := protocol.CheckFileHeader(b, protocol.PerformanceFileHeader)
	if err != nil {
		return nil, err
	}
	covered, err := protocol.VerifyCRC(body)
	if err != nil {
		return nil, err
	}
	r := bytes.NewReader(covered)
	if err := protocol.ExpectByte(r, protocol.FileBodyMarker, "file body marker"); err != nil {
		return nil, err
	}
	version, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("%w: version", protocol.ErrTruncated)
	}
	perf := NewPerformance(cfg)
	perf.SetVersion(int(version))
	opts := cfg.sectionOptions()

	v, err := section.ReadNext(r, section.PerformanceSettings, opts)
	if err != nil {
		return nil, err
	}
	if err := perf.ApplySection(section.PerformanceSettings, v); err != nil {
		return nil, err
	}
	for _, s := range Slots {
		// Patches embedded in a performance file carry no version.
		p := NewPatch(s, cfg)
		if err := p.ReadFileSections(r); err != nil {
			return nil, fmt.Errorf("slot %s: %w", s, err)
		}
		perf.patches[s] = p
	}
	if v, err = section.ReadNext(r, section.GlobalKnobAssignments, opts); err != nil {
		return nil, err
	}
	if err := perf.ApplySection(section.GlobalKnobAssignments, v); err != nil {
		return nil, err
	}
	if r.Len() != 0 {
		return nil, fmt.Errorf("%w: %d bytes after sections", protocol.ErrInvalidLength, r.Len())
	}
	return perf, nil
}

// FileBytes encodes the performance as a file image.
func (perf *Performance) FileBytes() ([]byte, error) {
	if perf.settings == nil || perf.globalKnobs == nil {
		return nil, ErrNotLoaded
	}
	buf := append([]byte(nil), protocol.PerformanceFileHeader...)
	start := len(buf)
	buf = append(buf, protocol.FileBodyMarker, byte(perf.version))
	buf, err := section.Append(buf, section.PerformanceSettings, perf.settings.Values())
	if err != nil {
		return nil, err
	}
	for _, p := range perf.patches {
		if buf, err = p.AppendFileSections(buf); err != nil {
			return nil, fmt.Errorf("slot %s: %w", p.Slot(), err)
		}
	}
	if buf, err = section.Append(buf, section.GlobalKnobAssignments, perf.globalKnobs.Values()); err != nil {
		return nil, err
	}
	return protocol.AppendCRC(buf, buf[start:]), nil
}

func (perf *Performance) WriteFile(path string) error {
	b, err := perf.FileBytes()
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

// ApplySection stores a performance-level section.
func (perf *Performance) ApplySection(kind section.Kind, v *field.Values) error {
	if v.Schema() != kind.Schema() {
		return fmt.Errorf("%w: %s", section.ErrSchemaMismatch, kind)
	}
	var err error
	switch kind {
	case section.PerformanceName:
		perf.name = live.StringField(v, schema.FieldName)
	case section.PerformanceSettings:
		perf.settings, err = newPerformanceSettings(v)
	case section.GlobalKnobAssignments:
		perf.globalKnobs, err = newKnobAssignments(v, SlotA, true)
	default:
		return fmt.Errorf("state: %s is not a performance section", kind)
	}
	if err != nil {
		return fmt.Errorf("state: apply %s: %w", kind, err)
	}
	perf.log.Debug().Str("section", kind.String()).Msg("section applied")
	return nil
}

// ReadSectionSlice decodes a performance-level section at c and applies it.
func (perf *Performance) ReadSectionSlice(kind section.Kind, c *bits.Cursor) error {
	v, err := section.Decode(kind, c, perf.cfg.sectionOptions())
	if err != nil {
		return err
	}
	return perf.ApplySection(kind, v)
}

// ReadNameAndSettings applies the payload of a performance name message:
// the name, then a framed PerformanceSettings section.
func (perf *Performance) ReadNameAndSettings(b []byte) error {
	c := bits.NewReader(b)
	nv, err := schema.EntryName.Decode(c)
	if err != nil {
		return fmt.Errorf("state: performance name: %w", err)
	}
	rest := b[(c.BitIndex()+7)/8:]
	v, err := section.ReadNext(bytes.NewReader(rest), section.PerformanceSettings, perf.cfg.sectionOptions())
	if err != nil {
		return err
	}
	if err := perf.ApplySection(section.PerformanceName, nv); err != nil {
		return err
	}
	return perf.ApplySection(section.PerformanceSettings, v)
}

// NameMessage encodes the performance name message with CRC.
func (perf *Performance) NameMessage() ([]byte, error) {
	if perf.settings == nil {
		return nil, ErrNotLoaded
	}
	buf := []byte{protocol.RCmd, protocol.HeaderSystem, byte(perf.version), protocol.TPerformanceName}
	name, err := schema.EntryName.MustMake(perf.name.Get()).EncodeBytes()
	if err != nil {
		return nil, err
	}
	buf = append(buf, name...)
	if buf, err = section.Append(buf, section.PerformanceSettings, perf.settings.Values()); err != nil {
		return nil, err
	}
	return protocol.AppendCRC(buf, buf), nil
}

// ReadNameMessage decodes a complete performance name message.
func (perf *Performance) ReadNameMessage(b []byte) error {
	covered, err := protocol.VerifyCRC(b)
	if err != nil {
		return err
	}
	pos := 0
	for _, want := range []struct {
		b    byte
		what string
	}{
		{protocol.RCmd, "message command"},
		{protocol.HeaderSystem, "performance header"},
		{byte(perf.version), "performance version"},
		{protocol.TPerformanceName, "performance name"},
	} {
		if err := protocol.Expect(covered, &pos, want.b, want.what); err != nil {
			return err
		}
	}
	return perf.ReadNameAndSettings(covered[pos:])
}

// ReadAssignedVoices applies one voice count byte per slot.
func (perf *Performance) ReadAssignedVoices(b []byte) error {
	if len(b) < len(Slots) {
		return fmt.Errorf("%w: assigned voices %d bytes", protocol.ErrTruncated, len(b))
	}
	for _, s := range Slots {
		perf.patches[s].SetAssignedVoices(int(b[s]))
	}
	return nil
}
