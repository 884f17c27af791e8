// SPDX-License-Identifier: MIT

// Package sample defines the scalar type tags of raw sample streams and the
// widening decode from raw bytes into the engine's float64 accumulation type.
package sample

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Sentinel errors for tag parsing and record validation.
var (
	// ErrUnknownType indicates an unrecognized type tag name.
	ErrUnknownType = errors.New("sample: unknown type")

	// ErrPartialRecord indicates a byte length that does not hold whole records.
	ErrPartialRecord = errors.New("sample: buffer length is not a multiple of the record size")

	// ErrShortDestination indicates a decode destination smaller than the source.
	ErrShortDestination = errors.New("sample: destination too short")
)

// Type tags the element type of a raw sample buffer.
type Type int

const (
	// Uint8 is an unsigned 8-bit integer sample.
	Uint8 Type = iota
	// Int8 is a signed 8-bit integer sample.
	Int8
	// Uint16 is an unsigned 16-bit integer sample.
	Uint16
	// Int16 is a signed 16-bit integer sample.
	Int16
	// Uint32 is an unsigned 32-bit integer sample.
	Uint32
	// Int32 is a signed 32-bit integer sample.
	Int32
	// Float32 is an IEEE-754 single precision sample.
	Float32
	// Float64 is an IEEE-754 double precision sample.
	Float64
)

// typeInfo holds the names and byte width of one tag.
type typeInfo struct {
	short string // compact config name
	long  string // descriptive name used by acquisition tools
	size  int    // bytes per element
}

var types = [...]typeInfo{
	Uint8:   {"u8", "Unsigned 8 bit", 1},
	Int8:    {"s8", "Signed 8 bit", 1},
	Uint16:  {"u16", "Unsigned 16 bit", 2},
	Int16:   {"s16", "Signed 16 bit", 2},
	Uint32:  {"u32", "Unsigned 32 bit", 4},
	Int32:   {"s32", "Signed 32 bit", 4},
	Float32: {"f32", "Real 32 bit (float)", 4},
	Float64: {"f64", "Real 64 bit (double)", 8},
}

// Types lists every supported tag in declaration order.
func Types() []Type {
	return []Type{Uint8, Int8, Uint16, Int16, Uint32, Int32, Float32, Float64}
}

// Valid reports whether t is a known tag.
func (t Type) Valid() bool { return t >= Uint8 && t <= Float64 }

// Size returns the element size in bytes; 0 for an invalid tag.
func (t Type) Size() int {
	if !t.Valid() {
		return 0
	}

	return types[t].size
}

// String returns the short name of the tag.
func (t Type) String() string {
	if !t.Valid() {
		return fmt.Sprintf("Type(%d)", int(t))
	}

	return types[t].short
}

// Description returns the long, human readable name of the tag.
func (t Type) Description() string {
	if !t.Valid() {
		return t.String()
	}

	return types[t].long
}

// Parse resolves a tag from either its short ("u16") or long ("Unsigned 16 bit")
// name; matching is case-insensitive and ignores surrounding spaces.
func Parse(name string) (Type, error) {
	s := strings.TrimSpace(name)
	for i, info := range types {
		if strings.EqualFold(s, info.short) || strings.EqualFold(s, info.long) {
			return Type(i), nil
		}
	}

	return 0, fmt.Errorf("%q: %w", name, ErrUnknownType)
}

// MarshalText implements encoding.TextMarshaler.
func (t Type) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%d: %w", int(t), ErrUnknownType)
	}

	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Type) UnmarshalText(text []byte) error {
	v, err := Parse(string(text))
	if err != nil {
		return err
	}
	*t = v

	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler for scalar tag names.
func (t *Type) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: sample type must be a scalar: %w", node.Line, ErrUnknownType)
	}

	return t.UnmarshalText([]byte(node.Value))
}

// Records returns how many whole records of width elements of type t a buffer
// of byteLen bytes holds, or ErrPartialRecord when byteLen is not an exact multiple.
func Records(t Type, byteLen, width int) (int, error) {
	recSize := t.Size() * width
	if recSize <= 0 {
		return 0, fmt.Errorf("record of %d x %s: %w", width, t, ErrUnknownType)
	}
	if byteLen%recSize != 0 {
		return 0, fmt.Errorf("%d bytes, record size %d: %w", byteLen, recSize, ErrPartialRecord)
	}

	return byteLen / recSize, nil
}
