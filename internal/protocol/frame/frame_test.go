package frame

import (
	"bytes"
	"errors"
	"testing"
)

func TestReadWriteFrameRoundTrip(t *testing.T) {
	in := Frame{Type: 0x52, Payload: []byte{0x40, 0x00, 0x04, 0x81}}
	var buf bytes.Buffer
	if err := WriteFrame(&buf, in, DefaultLimits()); err != nil {
		t.Fatalf("write frame: %v", err)
	}
	if got := buf.Bytes()[:HeaderLen]; !bytes.Equal(got, []byte{0x52, 0x00, 0x04}) {
		t.Fatalf("header bytes: % x", got)
	}
	out, err := ReadFrame(&buf, DefaultLimits())
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	if out.Type != in.Type || !bytes.Equal(out.Payload, in.Payload) {
		t.Fatalf("frame mismatch: got=%+v want=%+v", out, in)
	}
	if out.Len() != 7 {
		t.Fatalf("encoded len: got=%d", out.Len())
	}
}

func TestReadFrameMalformedHeaderIsDeterministic(t *testing.T) {
	_, err := ReadFrame(bytes.NewReader([]byte{1, 2}), DefaultLimits())
	if !errors.Is(err, ErrShortHeader) {
		t.Fatalf("expected ErrShortHeader, got %v", err)
	}
}

func TestReadFrameTruncatedPayload(t *testing.T) {
	_, err := ReadFrame(bytes.NewReader([]byte{0x21, 0x00, 0x05, 0xaa}), DefaultLimits())
	if !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
}

func TestLimitsRejectLargePayload(t *testing.T) {
	limits := Limits{MaxPayloadBytes: 2}
	if err := WriteFrame(&bytes.Buffer{}, Frame{Type: 1, Payload: []byte{1, 2, 3}}, limits); !errors.Is(err, ErrPayloadTooLarge) {
		t.Fatalf("expected ErrPayloadTooLarge on write, got %v", err)
	}
	_, err := ReadFrame(bytes.NewReader([]byte{0x01, 0x00, 0x03, 1, 2, 3}), limits)
	if !errors.Is(err, ErrPayloadTooLarge) {
		t.Fatalf("expected ErrPayloadTooLarge on read, got %v", err)
	}
}

func TestFindSkipsToMatchingChunk(t *testing.T) {
	var buf []byte
	var err error
	for _, f := range []Frame{
		{Type: 0x4a, Payload: []byte{0x40, 0x01}},
		{Type: 0x4a, Payload: []byte{0x00, 0x02}},
		{Type: 0x52, Payload: []byte{0x00}},
	} {
		if buf, err = AppendFrame(buf, f); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	fx := func(p []byte) bool { return len(p) > 0 && p[0]>>6 == 0 }
	f, off, err := Find(buf, 0x4a, fx)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if off != 5 || !bytes.Equal(f.Payload, []byte{0x00, 0x02}) {
		t.Fatalf("found wrong chunk at %d: % x", off, f.Payload)
	}

	if _, _, err := Find(buf, 0x69, nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, _, err := Find(buf[:len(buf)-1], 0x52, nil); !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
}
