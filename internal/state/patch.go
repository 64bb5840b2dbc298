package state

import (
	"bytes"
	"fmt"
	"io"
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

// Sender delivers outbound messages produced by local edits. It is called
// on the goroutine that owns the model and must not wait on it.
type Sender interface {
	Send(msg []byte) error
}

// Config wires a Patch or Performance to its collaborators. The zero value
// is usable offline.
type Config struct {
	// DumpDir receives raw captures of sections that fail to decode.
	DumpDir string
	// Catalog resolves module types to LED and meter indicators.
	Catalog VisualCatalog
	// Sender receives parameter edits made through EditParam.
	Sender Sender
}

func (c Config) sectionOptions() section.Options {
	return section.Options{DumpDir: c.DumpDir}
}

// Patch is the model of one slot: decoded sections plus the views over them.
type Patch struct {
	slot    Slot
	version int
	cfg     Config
	log     zerolog.Logger

	sections map[section.Kind]*field.Values
	order    []section.Kind

	settings    *PatchSettings
	textPad     *field.Values
	currentNote *field.Values
	areas       [3]*Area
	knobs       *KnobAssignments
	controls    *ControlAssignments
	morphs      *MorphParameters
	name        *live.Property[string]
	voices      *live.Property[int]
	leds        []*PatchVisual
	meters      []*PatchVisual
}

// NewPatch returns an empty patch for slot.
func NewPatch(slot Slot, cfg Config) *Patch {
	p := &Patch{
		slot:     slot,
		cfg:      cfg,
		log:      log.With().Str("slot", slot.String()).Logger(),
		sections: map[section.Kind]*field.Values{},
	}
	for _, id := range []AreaID{AreaFx, AreaVoice, AreaSettings} {
		p.areas[id] = newArea(id, p.log)
	}
	p.name = live.Value(fmt.Sprintf("Patch[%s].Name", slot), "")
	p.voices = live.Value(fmt.Sprintf("Patch[%s].AssignedVoices", slot), 0)
	return p
}

func (p *Patch) Slot() Slot   { return p.slot }
func (p *Patch) Version() int { return p.version }

func (p *Patch) SetVersion(v int) {
	p.version = v
	p.log.Debug().Int("version", v).Msg("patch version")
}

// Section returns the decoded values of kind.
func (p *Patch) Section(kind section.Kind) (*field.Values, bool) {
	v, ok := p.sections[kind]
	return v, ok
}

// Kinds lists loaded sections in the order they were first applied.
func (p *Patch) Kinds() []section.Kind {
	return append([]section.Kind(nil), p.order...)
}

func (p *Patch) Area(id AreaID) *Area { return p.areas[id] }

// AreaAt resolves an on-wire location to an area.
func (p *Patch) AreaAt(loc int) (*Area, error) {
	id, err := AreaFromIndex(loc)
	if err != nil {
		return nil, err
	}
	return p.areas[id], nil
}

// Settings is nil until PatchDescription is loaded.
func (p *Patch) Settings() *PatchSettings            { return p.settings }
func (p *Patch) Knobs() *KnobAssignments             { return p.knobs }
func (p *Patch) Controls() *ControlAssignments       { return p.controls }
func (p *Patch) Morphs() *MorphParameters            { return p.morphs }
func (p *Patch) CurrentNote() *field.Values          { return p.currentNote }
func (p *Patch) Name() *live.Property[string]        { return p.name }
func (p *Patch) AssignedVoices() *live.Property[int] { return p.voices }

// Leds lists single LED indicators, voice area first.
func (p *Patch) Leds() []*PatchVisual { return p.leds }

// Meters lists meters and LED groups, voice area first.
func (p *Patch) Meters() []*PatchVisual { return p.meters }

func (p *Patch) TextPad() string {
	if p.textPad == nil {
		return ""
	}
	return p.textPad.MustStr(schema.FieldText)
}

// ReadPatchFile loads a .pch2 file.
func ReadPatchFile(slot Slot, path string, cfg Config) (*Patch, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	p, err := ReadPatchFileBytes(slot, b, cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// ReadPatchFileBytes decodes a patch file image: header, body marker,
// version, the file sections, then the CRC of everything after the header.
func ReadPatchFileBytes(slot Slot, b []byte, cfg Config) (*Patch, error) {
	body, err := protocol.CheckFileHeader(b, protocol.PatchFileHeader)
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
	p := NewPatch(slot, cfg)
	p.SetVersion(int(version))
	if err := p.ReadFileSections(r); err != nil {
		return nil, err
	}
	if r.Len() != 0 {
		return nil, fmt.Errorf("%w: %d bytes after sections", protocol.ErrInvalidLength, r.Len())
	}
	return p, nil
}

// ReadFileSections reads the file section sequence from r.
func (p *Patch) ReadFileSections(r io.Reader) error {
	for _, kind := range section.FileSections {
		if err := p.readNext(r, kind); err != nil {
			return err
		}
	}
	p.updateVisualIndex()
	return nil
}

func (p *Patch) readNext(r io.Reader, kind section.Kind) error {
	v, err := section.ReadNext(r, kind, p.cfg.sectionOptions())
	if err != nil {
		return err
	}
	return p.ApplySection(kind, v)
}

// AppendFileSections encodes the file section sequence onto buf.
func (p *Patch) AppendFileSections(buf []byte) ([]byte, error) {
	return p.appendSections(buf, section.FileSections, false)
}

func (p *Patch) appendSections(buf []byte, kinds []section.Kind, message bool) ([]byte, error) {
	for _, kind := range kinds {
		v, ok := p.sections[kind]
		if !ok {
			return buf, fmt.Errorf("%w: %s", ErrNoSection, kind)
		}
		var err error
		if buf, err = section.Append(buf, kind, v); err != nil {
			return buf, err
		}
		if message && kind == section.PatchDescription {
			buf = append(buf, protocol.PatchExtraFirst, protocol.PatchExtraSecond)
		}
	}
	return buf, nil
}

// FileBytes encodes the patch as a file image.
func (p *Patch) FileBytes() ([]byte, error) {
	buf := append([]byte(nil), protocol.PatchFileHeader...)
	start := len(buf)
	buf = append(buf, protocol.FileBodyMarker, byte(p.version))
	buf, err := p.AppendFileSections(buf)
	if err != nil {
		return nil, err
	}
	return protocol.AppendCRC(buf, buf[start:]), nil
}

func (p *Patch) WriteFile(path string) error {
	b, err := p.FileBytes()
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

// ReadMessage decodes a complete patch description message: header,
// message sections and trailing CRC.
func (p *Patch) ReadMessage(b []byte) error {
	covered, err := protocol.VerifyCRC(b)
	if err != nil {
		return err
	}
	r := bytes.NewReader(covered)
	if err := p.readMessageHeader(r); err != nil {
		return err
	}
	if err := p.ReadPatchDescription(r); err != nil {
		return err
	}
	if r.Len() != 0 {
		return fmt.Errorf("%w: %d bytes after sections", protocol.ErrInvalidLength, r.Len())
	}
	return nil
}

func (p *Patch) readMessageHeader(r *bytes.Reader) error {
	if err := protocol.ExpectByte(r, protocol.RCmd, "message command"); err != nil {
		return err
	}
	id, err := r.ReadByte()
	if err != nil {
		return fmt.Errorf("%w: slot", protocol.ErrTruncated)
	}
	if !p.slot.TestID(int(id)) {
		return fmt.Errorf("%w: %s got %d", ErrSlotMismatch, p.slot, id)
	}
	version, err := r.ReadByte()
	if err != nil {
		return fmt.Errorf("%w: version", protocol.ErrTruncated)
	}
	if int(version) != p.version {
		return fmt.Errorf("%w: have %d got %d", ErrVersionMismatch, p.version, version)
	}
	return nil
}

// ReadPatchDescription reads the message section sequence from r.
func (p *Patch) ReadPatchDescription(r *bytes.Reader) error {
	for _, kind := range section.MessageSections {
		if err := p.readNext(r, kind); err != nil {
			return err
		}
		if kind == section.PatchDescription {
			p.expectExtra(r, protocol.PatchExtraFirst)
			p.expectExtra(r, protocol.PatchExtraSecond)
		}
	}
	p.updateVisualIndex()
	return nil
}

// expectExtra consumes one of the two bytes following PatchDescription in
// messages. Their meaning is unknown; a different value is only logged.
func (p *Patch) expectExtra(r *bytes.Reader, want byte) {
	if err := protocol.ExpectByte(r, want, "patch description extra"); err != nil {
		p.log.Warn().Err(err).Msg("message extra byte")
	}
}

// MessageBytes encodes the patch as a description message with CRC.
func (p *Patch) MessageBytes() ([]byte, error) {
	buf := []byte{protocol.RCmd, byte(p.slot.ID()), byte(p.version)}
	buf, err := p.appendSections(buf, section.MessageSections, true)
	if err != nil {
		return nil, err
	}
	return protocol.AppendCRC(buf, buf), nil
}

// ReadSection finds kind in a buffer of framed sections, decodes it and
// applies it.
func (p *Patch) ReadSection(kind section.Kind, buf []byte) error {
	c, err := section.Find(kind, buf)
	if err != nil {
		return err
	}
	return p.ReadSectionSlice(kind, c)
}

// ReadSectionSlice decodes kind at c and applies it.
func (p *Patch) ReadSectionSlice(kind section.Kind, c *bits.Cursor) error {
	v, err := section.Decode(kind, c, p.cfg.sectionOptions())
	if err != nil {
		return err
	}
	return p.ApplySection(kind, v)
}

// ApplySection stores v as the current value of kind and rebuilds the
// views that depend on it.
func (p *Patch) ApplySection(kind section.Kind, v *field.Values) error {
	if v.Schema() != kind.Schema() {
		return fmt.Errorf("%w: %s", section.ErrSchemaMismatch, kind)
	}
	if _, ok := p.sections[kind]; !ok {
		p.order = append(p.order, kind)
	}
	p.sections[kind] = v
	p.log.Debug().Str("section", kind.String()).Msg("section applied")

	fx, voice, settings := p.areas[AreaFx], p.areas[AreaVoice], p.areas[AreaSettings]
	var err error
	switch kind {
	case section.PatchDescription:
		p.settings = newPatchSettings(v)
	case section.PatchParams:
		err = settings.setModuleParams(v)
	case section.TextPad:
		p.textPad = v
	case section.CurrentNote:
		p.currentNote = v
	case section.ModuleList0:
		fx.setModules(v)
	case section.ModuleList1:
		voice.setModules(v)
	case section.ModuleParams0:
		err = fx.setModuleParams(v)
	case section.ModuleParams1:
		err = voice.setModuleParams(v)
	case section.ModuleLabels0:
		err = fx.setModuleLabels(v)
	case section.ModuleLabels1:
		err = voice.setModuleLabels(v)
	case section.ModuleNames0:
		err = fx.setModuleNames(v)
	case section.ModuleNames1:
		err = voice.setModuleNames(v)
	case section.CableList0:
		fx.setCables(v)
	case section.CableList1:
		voice.setCables(v)
	case section.MorphLabels:
		err = settings.setMorphLabels(v)
	case section.KnobAssignments:
		p.knobs, err = newKnobAssignments(v, p.slot, false)
	case section.ControlAssignments:
		p.controls, err = newControlAssignments(v)
	case section.MorphParameters:
		p.morphs = newMorphParameters(v)
	case section.PatchName:
		p.name = live.StringField(v, schema.FieldName)
	}
	if err != nil {
		return fmt.Errorf("state: apply %s: %w", kind, err)
	}
	return nil
}

// ReadPatchName applies a patch name message payload.
func (p *Patch) ReadPatchName(b []byte) error {
	return p.ReadSectionSlice(section.PatchName, bits.NewReader(b))
}

// ReadParamUpdate applies an inbound parameter change. Listeners fire
// only if the value differs from the stored one.
func (p *Patch) ReadParamUpdate(b []byte) error {
	v, err := schema.ParamUpdate.Decode(bits.NewReader(b))
	if err != nil {
		return fmt.Errorf("state: param update: %w", err)
	}
	a, err := p.AreaAt(v.MustInt(schema.FieldLocation))
	if err != nil {
		return err
	}
	return a.updateParam(v)
}

func (p *Patch) ReadSelectedParam(b []byte) error {
	v, err := schema.SelectedParam.Decode(bits.NewReader(b))
	if err != nil {
		return fmt.Errorf("state: selected param: %w", err)
	}
	a, err := p.AreaAt(v.MustInt(schema.FieldLocation))
	if err != nil {
		return err
	}
	a.setSelectedParam(v)
	return nil
}

func (p *Patch) ReadPatchLoadData(b []byte) error {
	v, err := schema.PatchLoadData.Decode(bits.NewReader(b))
	if err != nil {
		return fmt.Errorf("state: patch load data: %w", err)
	}
	a, err := p.AreaAt(v.MustInt(schema.FieldLocation))
	if err != nil {
		return err
	}
	a.setPatchLoadData(v)
	return nil
}

// ReadLedData applies an LED state message: one unknown byte, then two
// bits per LED, four LEDs per byte starting at the low bits. It returns
// the LEDs that changed.
func (p *Patch) ReadLedData(b []byte) ([]*PatchVisual, error) {
	need := 1 + (len(p.leds)+3)/4
	if len(b) < need {
		return nil, fmt.Errorf("%w: led data %d of %d bytes", protocol.ErrTruncated, len(b), need)
	}
	data := b[1:]
	var updated []*PatchVisual
	for i, v := range p.leds {
		shift := (i % 4) * 2
		if v.Update(int(data[i/4]>>shift) & 0x03) {
			updated = append(updated, v)
		}
	}
	p.log.Trace().Int("updated", len(updated)).Msg("led data")
	return updated, nil
}

// ReadVolumeData applies a meter message: two bytes per meter or LED
// group, the second holding the value. It returns the visuals that changed.
func (p *Patch) ReadVolumeData(b []byte) ([]*PatchVisual, error) {
	need := 2 * len(p.meters)
	if len(b) < need {
		return nil, fmt.Errorf("%w: volume data %d of %d bytes", protocol.ErrTruncated, len(b), need)
	}
	var updated []*PatchVisual
	for i, v := range p.meters {
		if v.Update(int(b[2*i+1])) {
			updated = append(updated, v)
		}
	}
	p.log.Trace().Int("updated", len(updated)).Msg("volume data")
	return updated, nil
}

// SetAssignedVoices records the voice count the device allocated.
func (p *Patch) SetAssignedVoices(n int) {
	_ = p.voices.Set(n)
}

// ParamUpdateMessage builds the outbound command for one parameter value.
func (p *Patch) ParamUpdateMessage(area AreaID, module, param, value, variation int) []byte {
	return protocol.SetParam(p.slot.Index(), p.version, int(area), module, param, value, variation)
}

// EditParam is a local edit: it updates the stored value and, when it
// changed and a Sender is configured, sends the matching command.
func (p *Patch) EditParam(area AreaID, module, param, variation, value int) error {
	a, err := p.AreaAt(int(area))
	if err != nil {
		return err
	}
	m, err := a.Module(module)
	if err != nil {
		return err
	}
	prop, err := m.Param(variation, param)
	if err != nil {
		return err
	}
	if prop.Get() == value {
		return nil
	}
	if err := prop.Set(value); err != nil {
		return err
	}
	if p.cfg.Sender == nil {
		return nil
	}
	return p.cfg.Sender.Send(p.ParamUpdateMessage(area, module, param, value, variation))
}

// updateVisualIndex rebuilds the LED and meter lists in the order the
// device reports them: voice area, then fx area.
func (p *Patch) updateVisualIndex() {
	voice, fx := p.areas[AreaVoice], p.areas[AreaFx]
	p.leds = visualsOf(nil, p.cfg.Catalog, voice, VisualLed)
	p.leds = visualsOf(p.leds, p.cfg.Catalog, fx, VisualLed)
	p.meters = visualsOf(nil, p.cfg.Catalog, voice, VisualMeter, VisualLedGroup)
	p.meters = visualsOf(p.meters, p.cfg.Catalog, fx, VisualMeter, VisualLedGroup)
	p.log.Debug().Int("leds", len(p.leds)).Int("meters", len(p.meters)).Msg("visual index")
}
