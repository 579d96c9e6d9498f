package codec

import gojson "github.com/goccy/go-json"

var _ Codec = GoJSON{}

// GoJSON encodes with github.com/goccy/go-json. It is the default codec and
// is selected by the name "go-json".
type GoJSON struct{}

// Marshal implements Codec.
func (GoJSON) Marshal(v any) ([]byte, error) { return gojson.Marshal(v) }

// Unmarshal implements Codec.
func (GoJSON) Unmarshal(data []byte, v any) error { return gojson.Unmarshal(data, v) }

// Name implements Codec.
func (GoJSON) Name() string { return "go-json" }
