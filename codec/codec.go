// Package codec encodes the JSON documents carried in miniSEED 3 extra headers.
//
// Extra headers are a single JSON object stored verbatim between the source
// identifier and the data payload of a record. Records written by other tools
// are round-tripped byte-for-byte; the codec is only used when headers are
// built from Go values or inspected.
package codec

import (
	"bytes"
	"errors"
	"fmt"
)

// ErrNotObject is returned when an extra-header document is not a JSON object.
var ErrNotObject = errors.New("extra headers must be a JSON object")

// Codec encodes/decodes values.
// Implementations must be safe for concurrent use.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// ByName returns a built-in codec by its stable name.
func ByName(name string) (Codec, bool) {
	switch name {
	case "json":
		return JSON{}, true
	case "go-json":
		return GoJSON{}, true
	default:
		return nil, false
	}
}

// Default is the codec used when none is configured.
var Default Codec = GoJSON{}

// ValidateObject reports whether data holds exactly one JSON object.
// Empty input is valid and means "no extra headers".
func ValidateObject(c Codec, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if c == nil {
		c = Default
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return ErrNotObject
	}
	var m map[string]any
	if err := c.Unmarshal(trimmed, &m); err != nil {
		return fmt.Errorf("%w: %w", ErrNotObject, err)
	}
	return nil
}

// MarshalObject encodes v and verifies the result is a JSON object.
func MarshalObject(c Codec, v any) ([]byte, error) {
	if c == nil {
		c = Default
	}
	b, err := c.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("codec %s marshal failed: %w", c.Name(), err)
	}
	if err := ValidateObject(c, b); err != nil {
		return nil, err
	}
	return b, nil
}
