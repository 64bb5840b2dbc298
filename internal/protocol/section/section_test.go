package section

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/danmuck/g2ctl/internal/protocol/bits"
	"github.com/danmuck/g2ctl/internal/protocol/field"
	"github.com/danmuck/g2ctl/internal/protocol/schema"
	"github.com/danmuck/g2ctl/internal/testutil/testlog"
)

func cableList(color int) *field.Values {
	return schema.CableList.MustMake(0, 1, []*field.Values{
		schema.Cable.MustMake(color, 1, 2, 1, 3, 4),
	})
}

func moduleList() *field.Values {
	return schema.ModuleList.MustMake(1, []*field.Values{
		schema.UserModule.MustMake(92, 1, 0, 3, 0, 0, 1, 0, 1, []*field.Values{schema.ModuleModes.MustMake(2)}),
	})
}

func TestKindStringAndOrderings(t *testing.T) {
	testlog.Start(t)
	if got := CableList1.String(); got != "CableList1[52:1]" {
		t.Fatalf("string: got=%q", got)
	}
	if got := TextPad.String(); got != "TextPad[6f]" {
		t.Fatalf("string: got=%q", got)
	}
	if len(FileSections) != 18 || len(MessageSections) != 16 {
		t.Fatalf("orderings: file=%d msg=%d", len(FileSections), len(MessageSections))
	}
	inMsg := map[Kind]bool{}
	for _, k := range MessageSections {
		inMsg[k] = true
	}
	for _, k := range FileSections {
		if !inMsg[k] && k != CurrentNote && k != TextPad {
			t.Fatalf("%s in file order but not message order", k)
		}
	}
	if k, ok := ByTypeLocation(0x4d, 2); !ok || k != PatchParams {
		t.Fatalf("by type/location: got=%s ok=%v", k, ok)
	}
	if k, ok := ByName("ModuleNames0"); !ok || k != ModuleNames0 {
		t.Fatalf("by name: got=%s ok=%v", k, ok)
	}
}

func TestSectionRoundTripWithLocation(t *testing.T) {
	testlog.Start(t)
	in := cableList(2)
	raw, err := Bytes(CableList0, in)
	if err != nil {
		t.Fatalf("bytes: %v", err)
	}
	if raw[0] != 0x52 || raw[3]>>6 != 0 {
		t.Fatalf("unexpected chunk: % x", raw)
	}
	out, err := Read(CableList0, raw, Options{})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !out.Equal(in) {
		t.Fatalf("round trip differs:\n%s", out.Dump())
	}
	again, err := Bytes(CableList0, out)
	if err != nil || !bytes.Equal(again, raw) {
		t.Fatalf("re-encode differs: err=%v\n got=% x\nwant=% x", err, again, raw)
	}
}

func TestFindSelectsByLocation(t *testing.T) {
	testlog.Start(t)
	var buf []byte
	var err error
	if buf, err = Append(buf, CableList1, cableList(1)); err != nil {
		t.Fatalf("append: %v", err)
	}
	if buf, err = Append(buf, CableList0, cableList(5)); err != nil {
		t.Fatalf("append: %v", err)
	}
	fx, err := Read(CableList0, buf, Options{})
	if err != nil {
		t.Fatalf("read fx: %v", err)
	}
	if c := fx.MustSubfields(schema.FieldCables)[0].MustInt(schema.FieldColor); c != 5 {
		t.Fatalf("fx cable color: got=%d want=5", c)
	}
	voice, err := Read(CableList1, buf, Options{})
	if err != nil {
		t.Fatalf("read voice: %v", err)
	}
	if c := voice.MustSubfields(schema.FieldCables)[0].MustInt(schema.FieldColor); c != 1 {
		t.Fatalf("voice cable color: got=%d want=1", c)
	}
	if _, err := Read(ModuleList1, buf, Options{}); err == nil {
		t.Fatalf("expected missing section error")
	}
}

func TestDecodeRejectsWrongLocation(t *testing.T) {
	testlog.Start(t)
	payload, err := Encode(CableList1, cableList(1))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	_, err = Decode(CableList0, bits.NewReader(payload), Options{})
	var le *LocationError
	if !errors.As(err, &le) {
		t.Fatalf("expected LocationError, got %v", err)
	}
	if le.Want != 0 || le.Got != 1 || le.Kind != CableList0 {
		t.Fatalf("unexpected location error: %+v", le)
	}
}

func TestDecodeFailureDumpsSection(t *testing.T) {
	testlog.Start(t)
	payload, err := Encode(ModuleList1, moduleList())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	dir := t.TempDir()
	short := payload[:3]
	if _, err := Decode(ModuleList1, bits.NewReader(short), Options{DumpDir: dir}); !errors.Is(err, bits.ErrOverRead) {
		t.Fatalf("expected over-read, got %v", err)
	}
	got, err := os.ReadFile(filepath.Join(dir, "error_ModuleList1.msg"))
	if err != nil {
		t.Fatalf("read dump: %v", err)
	}
	if !bytes.Equal(got, short) {
		t.Fatalf("dump: got=% x want=% x", got, short)
	}
}

func TestReadNextChecksType(t *testing.T) {
	testlog.Start(t)
	var buf []byte
	var err error
	if buf, err = Append(buf, ModuleList1, moduleList()); err != nil {
		t.Fatalf("append: %v", err)
	}
	if buf, err = Append(buf, CableList1, cableList(0)); err != nil {
		t.Fatalf("append: %v", err)
	}
	r := bytes.NewReader(buf)
	if _, err := ReadNext(r, ModuleList1, Options{}); err != nil {
		t.Fatalf("read modules: %v", err)
	}
	if _, err := ReadNext(r, ModuleList0, Options{}); !errors.Is(err, ErrUnexpectedType) {
		t.Fatalf("expected ErrUnexpectedType, got %v", err)
	}
}

func TestEncodeRejectsForeignValues(t *testing.T) {
	testlog.Start(t)
	if _, err := Encode(ModuleList0, cableList(0)); !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}
