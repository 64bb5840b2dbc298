package section

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/danmuck/g2ctl/internal/observability"
	"github.com/danmuck/g2ctl/internal/protocol/bits"
	"github.com/danmuck/g2ctl/internal/protocol/field"
	"github.com/danmuck/g2ctl/internal/protocol/frame"
	"github.com/rs/zerolog/log"
)

var (
	ErrUnexpectedType = errors.New("section: unexpected chunk type")
	ErrSchemaMismatch = errors.New("section: values do not match section schema")
)

// LocationError reports a location prefix that does not belong to the
// section being decoded.
type LocationError struct {
	Kind Kind
	Want int
	Got  int
}

func (e *LocationError) Error() string {
	return fmt.Sprintf("section: %s: bad location %d, want %d", e.Kind, e.Got, e.Want)
}

// Options control decode side effects.
type Options struct {
	// DumpDir receives error_<Name>.msg captures of payloads that fail to
	// decode. Empty disables capture.
	DumpDir string
}

// Find locates the chunk for kind in buf and returns a cursor at the start
// of its payload, location prefix included.
func Find(kind Kind, buf []byte) (*bits.Cursor, error) {
	var match func([]byte) bool
	if loc, ok := kind.Location(); ok {
		match = func(p []byte) bool { return len(p) > 0 && int(p[0]>>6) == loc }
	}
	f, _, err := frame.Find(buf, kind.Type(), match)
	if err != nil {
		return nil, fmt.Errorf("section: find %s: %w", kind, err)
	}
	return bits.NewReader(f.Payload), nil
}

// Read finds and decodes kind from a buffer of concatenated chunks.
func Read(kind Kind, buf []byte, opts Options) (*field.Values, error) {
	c, err := Find(kind, buf)
	if err != nil {
		return nil, err
	}
	return Decode(kind, c, opts)
}

// ReadNext reads the next chunk from r, which must be of kind's type,
// and decodes it.
func ReadNext(r io.Reader, kind Kind, opts Options) (*field.Values, error) {
	f, err := frame.ReadFrame(r, frame.DefaultLimits())
	if err != nil {
		return nil, fmt.Errorf("section: read %s: %w", kind, err)
	}
	if f.Type != kind.Type() {
		return nil, fmt.Errorf("%w: %s got %#02x", ErrUnexpectedType, kind, f.Type)
	}
	return Decode(kind, bits.NewReader(f.Payload), opts)
}

// Decode verifies the location prefix, if any, and decodes the section
// schema at c. A schema failure captures the raw section bits under
// opts.DumpDir before the error is returned.
func Decode(kind Kind, c *bits.Cursor, opts Options) (*field.Values, error) {
	start := c.BitIndex()
	if want, ok := kind.Location(); ok {
		got, err := c.Get(2)
		if err != nil {
			observability.RecordSection(kind.Name(), "decode", 0, false)
			return nil, fmt.Errorf("section: %s location: %w", kind, err)
		}
		if got != want {
			observability.RecordSection(kind.Name(), "decode", 0, false)
			return nil, &LocationError{Kind: kind, Want: want, Got: got}
		}
	}
	v, err := kind.Schema().Decode(c)
	if err != nil {
		observability.RecordSection(kind.Name(), "decode", 0, false)
		_ = c.SetBitIndex(start)
		path := dump(kind, c.ShiftedSlice(), opts.DumpDir)
		log.Error().Err(err).Str("section", kind.String()).Str("dump", path).Msg("section decode failed")
		return nil, fmt.Errorf("section: decode %s: %w", kind, err)
	}
	n := (c.BitIndex() - start + 7) / 8
	observability.RecordSection(kind.Name(), "decode", n, true)
	log.Debug().Str("section", kind.String()).Int("bytes", n).Msg("section decoded")
	return v, nil
}

func dump(kind Kind, raw []byte, dir string) string {
	if dir == "" {
		return ""
	}
	path := filepath.Join(dir, fmt.Sprintf("error_%s.msg", kind.Name()))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Warn().Err(err).Str("dir", dir).Msg("section dump dir")
		return ""
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("section dump write")
		return ""
	}
	return path
}

// Encode returns the section payload: location prefix, if any, then the
// encoded fields.
func Encode(kind Kind, v *field.Values) ([]byte, error) {
	if v == nil || v.Schema() != kind.Schema() {
		return nil, fmt.Errorf("%w: %s", ErrSchemaMismatch, kind)
	}
	c := bits.NewWriter(256)
	if loc, ok := kind.Location(); ok {
		if err := c.Put(2, loc); err != nil {
			return nil, err
		}
	}
	if err := v.Encode(c); err != nil {
		observability.RecordSection(kind.Name(), "encode", 0, false)
		return nil, fmt.Errorf("section: encode %s: %w", kind, err)
	}
	out := c.Bytes()
	observability.RecordSection(kind.Name(), "encode", len(out), true)
	return out, nil
}

// Append encodes v and appends it to buf as a (type, length, payload) chunk.
func Append(buf []byte, kind Kind, v *field.Values) ([]byte, error) {
	payload, err := Encode(kind, v)
	if err != nil {
		return buf, err
	}
	out, err := frame.AppendFrame(buf, frame.Frame{Type: kind.Type(), Payload: payload})
	if err != nil {
		return buf, fmt.Errorf("section: frame %s: %w", kind, err)
	}
	return out, nil
}

// Write encodes v as one chunk to w.
func Write(w io.Writer, kind Kind, v *field.Values) error {
	payload, err := Encode(kind, v)
	if err != nil {
		return err
	}
	return frame.WriteFrame(w, frame.Frame{Type: kind.Type(), Payload: payload}, frame.DefaultLimits())
}

// Bytes encodes v as a single framed chunk.
func Bytes(kind Kind, v *field.Values) ([]byte, error) {
	return Append(nil, kind, v)
}
