// Package codec serializes work arguments and results carried through task
// data channels. Rings are small, so the default codec is msgpack; JSON is
// available where readability matters more than size.
package codec

import (
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// =============================================================================
// Serializer Interface
// =============================================================================

// Serializer converts Go values to bytes and back.
type Serializer interface {
	// Serialize converts a Go value to bytes
	Serialize(v any) ([]byte, error)

	// Deserialize converts bytes back to a Go value
	Deserialize(data []byte, target any) error

	// Name returns the serializer name (for debugging/logging)
	Name() string
}

// =============================================================================
// MsgpackSerializer Implementation
// =============================================================================

// MsgpackSerializer uses MessagePack encoding for serialization.
type MsgpackSerializer struct{}

// NewMsgpackSerializer creates a new MessagePack serializer
func NewMsgpackSerializer() *MsgpackSerializer {
	return &MsgpackSerializer{}
}

func (s *MsgpackSerializer) Serialize(v any) ([]byte, error) {
	data, err := msgpack.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("msgpack marshal failed: %w", err)
	}

	return data, nil
}

func (s *MsgpackSerializer) Deserialize(data []byte, target any) error {
	if target == nil {
		return fmt.Errorf("deserialize target cannot be nil")
	}

	if len(data) == 0 {
		return fmt.Errorf("data is empty")
	}

	if err := msgpack.Unmarshal(data, target); err != nil {
		return fmt.Errorf("msgpack unmarshal failed: %w", err)
	}

	return nil
}

func (s *MsgpackSerializer) Name() string {
	return "msgpack"
}

// =============================================================================
// JSONSerializer Implementation
// =============================================================================

// JSONSerializer uses JSON encoding for serialization.
type JSONSerializer struct{}

// NewJSONSerializer creates a new JSON serializer
func NewJSONSerializer() *JSONSerializer {
	return &JSONSerializer{}
}

func (s *JSONSerializer) Serialize(v any) ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("json marshal failed: %w", err)
	}

	return data, nil
}

func (s *JSONSerializer) Deserialize(data []byte, target any) error {
	if target == nil {
		return fmt.Errorf("deserialize target cannot be nil")
	}

	if len(data) == 0 {
		return fmt.Errorf("data is empty")
	}

	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("json unmarshal failed: %w", err)
	}

	return nil
}

func (s *JSONSerializer) Name() string {
	return "json"
}

// =============================================================================
// Generic Helpers
// =============================================================================

// Encode marshals a value with msgpack. Work functions use it to produce
// result payloads small enough for the receiving ring.
func Encode[T any](v T) ([]byte, error) {
	data, err := msgpack.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("msgpack marshal failed: %w", err)
	}
	return data, nil
}

// Decode unmarshals a msgpack payload into T.
func Decode[T any](data []byte) (T, error) {
	var v T
	if len(data) == 0 {
		return v, fmt.Errorf("data is empty")
	}
	if err := msgpack.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("msgpack unmarshal failed: %w", err)
	}
	return v, nil
}

// Decoder returns a decode function for result collection, matching the
// decoder seam of SubmitAndCollect.
func Decoder[T any]() func(data []byte) (T, error) {
	return Decode[T]
}
