package protocol

import (
	"bytes"
	"errors"
	"testing"
)

func TestRequestBuilders(t *testing.T) {
	cases := []struct {
		name string
		got  []byte
		want []byte
	}{
		{"system", SystemRequest(QVersionCount, 0x04), []byte{0x01, 0x2c, 0x41, 0x35, 0x04}},
		{"perf", PerfRequest(0, QPerfSettings), []byte{0x01, 0x2c, 0x00, 0x10}},
		{"slot request", SlotRequest(2, 5, QResourcesUsed, 1), []byte{0x01, 0x2a, 0x05, 0x71, 0x01}},
		{"slot command", SlotCommand(1, 3, 0x01), []byte{0x01, 0x39, 0x03, 0x01}},
		{"set param", SetParam(0, 7, 1, 4, 2, 100, 0), []byte{0x01, 0x38, 0x07, 0x40, 0x01, 0x04, 0x02, 0x64, 0x00}},
		{"stop comm", StartStopComm(false), []byte{0x01, 0x2c, 0x41, 0x7d, 0x01}},
		{"list names", ListNames(1, 2, 15), []byte{0x01, 0x2c, 0x41, 0x14, 0x01, 0x02, 0x0f}},
		{"load entry", LoadEntry(0, 3, 9), []byte{0x01, 0x2c, 0x41, 0x0a, 0x00, 0x03, 0x09}},
	}
	for _, tc := range cases {
		if !bytes.Equal(tc.got, tc.want) {
			t.Fatalf("%s: got=% x want=% x", tc.name, tc.got, tc.want)
		}
	}
}

func TestBulkRoundTrip(t *testing.T) {
	data := []byte{RInit}
	bulk, err := EncodeBulk(data)
	if err != nil {
		t.Fatalf("encode bulk: %v", err)
	}
	if want := []byte{0x00, 0x05, 0x80, 0x91, 0x88}; !bytes.Equal(bulk, want) {
		t.Fatalf("bulk: got=% x want=% x", bulk, want)
	}
	out, err := DecodeBulk(bulk)
	if err != nil {
		t.Fatalf("decode bulk: %v", err)
	}
	if !bytes.Equal(out, data) {
		t.Fatalf("data: got=% x", out)
	}

	bulk[2] = 0x81
	if _, err := DecodeBulk(bulk); !errors.Is(err, ErrCRCMismatch) {
		t.Fatalf("expected ErrCRCMismatch, got %v", err)
	}
	if _, err := DecodeBulk([]byte{0x00, 0x09, 0x80}); !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
}

func TestVerifyCRC(t *testing.T) {
	msg := AppendCRC([]byte{0x01, 0x08, 0x00}, []byte{0x01, 0x08, 0x00})
	covered, err := VerifyCRC(msg)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if len(covered) != 3 {
		t.Fatalf("covered: % x", covered)
	}
	msg[len(msg)-1] ^= 0xff
	if _, err := VerifyCRC(msg); !errors.Is(err, ErrCRCMismatch) {
		t.Fatalf("expected ErrCRCMismatch, got %v", err)
	}
}

func TestFileHeaders(t *testing.T) {
	if len(PatchFileHeader) != 80 || len(PerformanceFileHeader) != 86 {
		t.Fatalf("header sizes: %d %d", len(PatchFileHeader), len(PerformanceFileHeader))
	}
	prefix := "Version=Nord Modular G2 File Format 1\r\nType=Patch\r\nVersion=23\r\nInfo=BUILD 320\r\n\x00"
	if !bytes.HasPrefix(PatchFileHeader, []byte(prefix)) {
		t.Fatalf("patch header: %q", PatchFileHeader)
	}
	body := append(append([]byte{}, PatchFileHeader...), FileBodyMarker, 0x00)
	rest, err := CheckFileHeader(body, PatchFileHeader)
	if err != nil || !bytes.Equal(rest, []byte{FileBodyMarker, 0x00}) {
		t.Fatalf("check header: rest=% x err=%v", rest, err)
	}
	if _, err := CheckFileHeader(body, PerformanceFileHeader); !errors.Is(err, ErrBadFileHeader) {
		t.Fatalf("expected ErrBadFileHeader, got %v", err)
	}
}

func TestExpect(t *testing.T) {
	b := []byte{0x01, 0x09}
	pos := 0
	if err := Expect(b, &pos, RCmd, "cmd"); err != nil {
		t.Fatalf("expect cmd: %v", err)
	}
	if err := Expect(b, &pos, 0x08, "slot"); !errors.Is(err, ErrUnexpectedByte) {
		t.Fatalf("expected ErrUnexpectedByte, got %v", err)
	}
	if err := Expect(b, &pos, 0x00, "version"); !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
}

func TestExpectByte(t *testing.T) {
	r := bytes.NewReader([]byte{FileBodyMarker, 0x03})
	if err := ExpectByte(r, FileBodyMarker, "marker"); err != nil {
		t.Fatalf("expect marker: %v", err)
	}
	if err := ExpectByte(r, 0x02, "version"); !errors.Is(err, ErrUnexpectedByte) {
		t.Fatalf("expected ErrUnexpectedByte, got %v", err)
	}
	if err := ExpectByte(r, 0x00, "eof"); !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
}
