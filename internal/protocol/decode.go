package protocol

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/danmuck/g2ctl/internal/protocol/crc16"
)

// DecodeBulk unwraps a bulk transfer produced by EncodeBulk, verifying
// size and CRC.
func DecodeBulk(b []byte) ([]byte, error) {
	if len(b) < 4 {
		return nil, ErrTruncated
	}
	size := int(binary.BigEndian.Uint16(b[0:2]))
	if size < 4 || size > len(b) {
		return nil, fmt.Errorf("%w: bulk size %d of %d", ErrInvalidLength, size, len(b))
	}
	data := b[2 : size-2]
	if err := checkCRC(data, b[size-2:size]); err != nil {
		return nil, err
	}
	return data, nil
}

// VerifyCRC checks that the last two bytes of b are the CRC of the rest
// and returns the covered bytes.
func VerifyCRC(b []byte) ([]byte, error) {
	if len(b) < 2 {
		return nil, ErrTruncated
	}
	covered := b[:len(b)-2]
	return covered, checkCRC(covered, b[len(b)-2:])
}

func checkCRC(covered, trailer []byte) error {
	want := binary.BigEndian.Uint16(trailer)
	if got := crc16.Checksum(covered); got != want {
		return fmt.Errorf("%w: computed %#04x stored %#04x", ErrCRCMismatch, got, want)
	}
	return nil
}

// CheckFileHeader verifies that b starts with header and returns the rest.
func CheckFileHeader(b, header []byte) ([]byte, error) {
	if len(b) < len(header) {
		return nil, fmt.Errorf("%w: %d bytes", ErrBadFileHeader, len(b))
	}
	if !bytes.Equal(b[:len(header)], header) {
		return nil, fmt.Errorf("%w: % x", ErrBadFileHeader, b[:min(len(b), 16)])
	}
	return b[len(header):], nil
}

// Expect consumes one byte of b at *pos and checks it.
func Expect(b []byte, pos *int, want byte, what string) error {
	if *pos >= len(b) {
		return fmt.Errorf("%w: %s at %d", ErrTruncated, what, *pos)
	}
	got := b[*pos]
	*pos++
	if got != want {
		return fmt.Errorf("%w: %s got %#02x want %#02x", ErrUnexpectedByte, what, got, want)
	}
	return nil
}

// ExpectByte reads one byte from r and checks it.
func ExpectByte(r io.ByteReader, want byte, what string) error {
	got, err := r.ReadByte()
	if err != nil {
		return fmt.Errorf("%w: %s", ErrTruncated, what)
	}
	if got != want {
		return fmt.Errorf("%w: %s got %#02x want %#02x", ErrUnexpectedByte, what, got, want)
	}
	return nil
}
