package protocol

import "errors"

var (
	ErrTruncated      = errors.New("protocol: truncated data")
	ErrInvalidLength  = errors.New("protocol: invalid length")
	ErrCRCMismatch    = errors.New("protocol: crc mismatch")
	ErrBadFileHeader  = errors.New("protocol: unexpected file header")
	ErrUnexpectedByte = errors.New("protocol: unexpected byte")
)
