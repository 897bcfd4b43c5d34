// Package snapshot encodes session snapshots for saving and exchange.
//
// JSON documents are checked against an embedded JSON Schema before they are
// decoded. Packed snapshots are zstd-compressed JSON.
package snapshot

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/tatianab/keepsake/internal/models"
)

//go:embed snapshot.schema.json
var schemaSource string

var schema = jsonschema.MustCompileString("snapshot.schema.json", schemaSource)

var (
	ErrUnknownFormat = errors.New("snapshot: unknown format")
	ErrSchema        = errors.New("snapshot: document does not match schema")
)

// Format names an encoding.
type Format string

const (
	JSON Format = "json"
	YAML Format = "yaml"
)

// ParseFormat accepts "json", "yaml" or "yml", case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return JSON, nil
	case "yaml", "yml":
		return YAML, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

func Encode(f Format, snap models.Snapshot) ([]byte, error) {
	switch f {
	case JSON:
		return json.MarshalIndent(snap, "", "  ")
	case YAML:
		return yaml.Marshal(snap)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}

func Decode(f Format, data []byte) (models.Snapshot, error) {
	switch f {
	case JSON:
		return decodeJSON(data)
	case YAML:
		var snap models.Snapshot
		if err := yaml.Unmarshal(data, &snap); err != nil {
			return models.Snapshot{}, fmt.Errorf("failed to parse snapshot YAML: %w", err)
		}
		return snap, nil
	}
	return models.Snapshot{}, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}

// Validate checks a JSON document against the snapshot schema.
func Validate(data []byte) error {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse snapshot JSON: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrSchema, err)
	}
	return nil
}

func decodeJSON(data []byte) (models.Snapshot, error) {
	if err := Validate(data); err != nil {
		return models.Snapshot{}, err
	}
	var snap models.Snapshot
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&snap); err != nil {
		return models.Snapshot{}, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return snap, nil
}

var (
	encoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	decoder, _ = zstd.NewReader(nil)
)

// Pack returns the zstd-compressed JSON encoding of snap.
func Pack(snap models.Snapshot) ([]byte, error) {
	raw, err := json.Marshal(snap)
	if err != nil {
		return nil, err
	}
	return encoder.EncodeAll(raw, nil), nil
}

// Unpack reverses Pack and validates the result.
func Unpack(data []byte) (models.Snapshot, error) {
	raw, err := decoder.DecodeAll(data, nil)
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("zstd decode: %w", err)
	}
	return decodeJSON(raw)
}
