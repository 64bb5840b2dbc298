package field

import (
	"errors"
	"fmt"
)

var (
	ErrNoField  = errors.New("field: no such field")
	ErrKind     = errors.New("field: kind mismatch")
	ErrOverflow = errors.New("field: value out of range")
	ErrSchema   = errors.New("field: schema violation")
	ErrText     = errors.New("field: unencodable text")
)

// DecodeError locates a failed decode within a schema instance.
type DecodeError struct {
	Schema   string
	Field    string
	Index    int
	BitIndex int
	Err      error
}

func (e *DecodeError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("field: decode %s.%s[%d] at bit %d: %v", e.Schema, e.Field, e.Index, e.BitIndex, e.Err)
	}
	return fmt.Sprintf("field: decode %s.%s at bit %d: %v", e.Schema, e.Field, e.BitIndex, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
