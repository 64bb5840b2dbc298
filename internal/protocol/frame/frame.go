package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// HeaderLen is the chunk header: one type byte and a big-endian u16 length.
const HeaderLen = 3

// MaxPayloadLen is the largest payload the length field can carry.
const MaxPayloadLen = 0xffff

var (
	ErrShortHeader     = errors.New("frame: short chunk header")
	ErrTruncated       = errors.New("frame: payload shorter than declared length")
	ErrPayloadTooLarge = errors.New("frame: payload too large")
	ErrNotFound        = errors.New("frame: chunk not found")
)

// Header is the chunk header that precedes every section payload.
type Header struct {
	Type       uint8
	PayloadLen uint16
}

// Frame is one (type, length, payload) chunk.
type Frame struct {
	Type    uint8
	Payload []byte
}

// Len is the encoded size of f including its header.
func (f Frame) Len() int {
	return HeaderLen + len(f.Payload)
}

// Limits constrains chunk decode/encode memory use.
type Limits struct {
	MaxPayloadBytes int
}

func DefaultLimits() Limits {
	return Limits{MaxPayloadBytes: MaxPayloadLen}
}

func (l Limits) max() int {
	if l.MaxPayloadBytes <= 0 || l.MaxPayloadBytes > MaxPayloadLen {
		return MaxPayloadLen
	}
	return l.MaxPayloadBytes
}

func ReadFrame(r io.Reader, limits Limits) (Frame, error) {
	var fixed [HeaderLen]byte
	if _, err := io.ReadFull(r, fixed[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return Frame{}, ErrShortHeader
		}
		return Frame{}, err
	}

	h, err := DecodeHeader(fixed[:])
	if err != nil {
		return Frame{}, err
	}
	if int(h.PayloadLen) > limits.max() {
		return Frame{}, ErrPayloadTooLarge
	}

	payload := make([]byte, h.PayloadLen)
	if h.PayloadLen > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
				return Frame{}, fmt.Errorf("%w: type=%#02x len=%d", ErrTruncated, h.Type, h.PayloadLen)
			}
			return Frame{}, err
		}
	}
	return Frame{Type: h.Type, Payload: payload}, nil
}

func WriteFrame(w io.Writer, f Frame, limits Limits) error {
	if len(f.Payload) > limits.max() {
		return ErrPayloadTooLarge
	}
	hb := EncodeHeader(Header{Type: f.Type, PayloadLen: uint16(len(f.Payload))})
	if _, err := w.Write(hb); err != nil {
		return err
	}
	if len(f.Payload) > 0 {
		if _, err := w.Write(f.Payload); err != nil {
			return err
		}
	}
	return nil
}

// AppendFrame appends the encoded chunk to buf.
func AppendFrame(buf []byte, f Frame) ([]byte, error) {
	if len(f.Payload) > MaxPayloadLen {
		return buf, ErrPayloadTooLarge
	}
	buf = append(buf, EncodeHeader(Header{Type: f.Type, PayloadLen: uint16(len(f.Payload))})...)
	return append(buf, f.Payload...), nil
}

func EncodeHeader(h Header) []byte {
	buf := make([]byte, HeaderLen)
	buf[0] = h.Type
	binary.BigEndian.PutUint16(buf[1:3], h.PayloadLen)
	return buf
}

func DecodeHeader(b []byte) (Header, error) {
	if len(b) != HeaderLen {
		return Header{}, fmt.Errorf("frame: invalid chunk header length: %d", len(b))
	}
	return Header{
		Type:       b[0],
		PayloadLen: binary.BigEndian.Uint16(b[1:3]),
	}, nil
}

// Find scans concatenated chunks in buf for the first one with the given
// type whose payload satisfies match (nil matches any). It returns the
// chunk and the offset of its header. Chunks before it are skipped
// without being decoded.
func Find(buf []byte, typ uint8, match func(payload []byte) bool) (Frame, int, error) {
	off := 0
	for off < len(buf) {
		if len(buf)-off < HeaderLen {
			return Frame{}, off, ErrShortHeader
		}
		h, _ := DecodeHeader(buf[off : off+HeaderLen])
		end := off + HeaderLen + int(h.PayloadLen)
		if end > len(buf) {
			return Frame{}, off, fmt.Errorf("%w: type=%#02x len=%d at %d", ErrTruncated, h.Type, h.PayloadLen, off)
		}
		payload := buf[off+HeaderLen : end]
		if h.Type == typ && (match == nil || match(payload)) {
			return Frame{Type: h.Type, Payload: payload}, off, nil
		}
		off = end
	}
	return Frame{}, off, fmt.Errorf("%w: type=%#02x", ErrNotFound, typ)
}
