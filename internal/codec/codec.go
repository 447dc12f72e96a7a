// Package codec is the payload boundary between the coordlog components and
// the bytes stored at each coordination-service node. A Codec is a plain
// two-function capability; the rest of the module never inspects payload
// bytes and never assumes a particular serialization.
package codec

import (
	"fmt"

	"github.com/golang/snappy"
	"gopkg.in/yaml.v3"

	stdjson "encoding/json"
)

const (
	// NameYAMLSnappy selects the default YAML+snappy codec.
	NameYAMLSnappy = "yaml-snappy"
	// NameJSON selects the uncompressed JSON codec (human-inspectable).
	NameJSON = "json"
)

// Codec encodes values to node payload bytes and back. Implementations must
// be safe for concurrent use; writers and subscribers of the same tenancy
// must share a codec.
type Codec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, out any) error
}

// ForName resolves a codec by its configuration name.
func ForName(name string) (Codec, error) {
	switch name {
	case "", NameYAMLSnappy:
		return YAMLSnappy{}, nil
	case NameJSON:
		return JSON{}, nil
	default:
		return nil, fmt.Errorf("codec: unknown codec %q (options: %s, %s)", name, NameYAMLSnappy, NameJSON)
	}
}

// YAMLSnappy serializes with YAML and compresses with snappy block encoding.
// It is the default wire format for all node payloads.
type YAMLSnappy struct{}

// Encode implements Codec.
func (YAMLSnappy) Encode(v any) ([]byte, error) {
	raw, err := yaml.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("codec: encode: %w", err)
	}
	return snappy.Encode(nil, raw), nil
}

// Decode implements Codec.
func (YAMLSnappy) Decode(data []byte, out any) error {
	raw, err := snappy.Decode(nil, data)
	if err != nil {
		return fmt.Errorf("codec: decompress: %w", err)
	}
	if err := yaml.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("codec: decode: %w", err)
	}
	return nil
}

// JSON serializes with encoding/json and no compression. Useful when node
// payloads need to be readable with generic coordination-service tooling.
type JSON struct{}

// Encode implements Codec.
func (JSON) Encode(v any) ([]byte, error) {
	raw, err := stdjson.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("codec: encode: %w", err)
	}
	return raw, nil
}

// Decode implements Codec.
func (JSON) Decode(data []byte, out any) error {
	if err := stdjson.Unmarshal(data, out); err != nil {
		return fmt.Errorf("codec: decode: %w", err)
	}
	return nil
}
