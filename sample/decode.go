// SPDX-License-Identifier: MIT

package sample

import (
	"encoding/binary"
	"fmt"
	"math"
)

// scalar is the set of raw element types a stream can carry.
type scalar interface {
	~uint8 | ~int8 | ~uint16 | ~int16 | ~uint32 | ~int32 | ~float32 | ~float64
}

// widen converts len(dst) packed elements of size bytes into float64 using get.
// One instantiation exists per tag; the tag switch in Decode picks it once per call.
func widen[U scalar](dst []float64, src []byte, size int, get func([]byte) U) {
	var off int
	for i := range dst {
		dst[i] = float64(get(src[off : off+size]))
		off += size
	}
}

func getU8(b []byte) uint8 { return b[0] }
func getS8(b []byte) int8  { return int8(b[0]) }
func getS16(b []byte) int16 {
	return int16(binary.NativeEndian.Uint16(b))
}
func getS32(b []byte) int32 {
	return int32(binary.NativeEndian.Uint32(b))
}
func getF32(b []byte) float32 {
	return math.Float32frombits(binary.NativeEndian.Uint32(b))
}
func getF64(b []byte) float64 {
	return math.Float64frombits(binary.NativeEndian.Uint64(b))
}

// Decode widens the native-endian elements of src (tagged t) into dst and
// returns the number of elements written. len(src) must be a multiple of
// t.Size() and dst must hold at least len(src)/t.Size() elements.
func Decode(t Type, src []byte, dst []float64) (int, error) {
	size := t.Size()
	if size == 0 {
		return 0, fmt.Errorf("decode: %w", ErrUnknownType)
	}
	if len(src)%size != 0 {
		return 0, fmt.Errorf("decode %d bytes of %s: %w", len(src), t, ErrPartialRecord)
	}
	n := len(src) / size
	if len(dst) < n {
		return 0, fmt.Errorf("decode %d elements into %d: %w", n, len(dst), ErrShortDestination)
	}
	dst = dst[:n]

	switch t {
	case Uint8:
		widen(dst, src, size, getU8)
	case Int8:
		widen(dst, src, size, getS8)
	case Uint16:
		widen(dst, src, size, binary.NativeEndian.Uint16)
	case Int16:
		widen(dst, src, size, getS16)
	case Uint32:
		widen(dst, src, size, binary.NativeEndian.Uint32)
	case Int32:
		widen(dst, src, size, getS32)
	case Float32:
		widen(dst, src, size, getF32)
	case Float64:
		widen(dst, src, size, getF64)
	}

	return n, nil
}

// Append narrows vals to tag t and appends their native-endian encoding to dst.
// Values are converted with Go's conversion rules (truncation toward zero for
// integer tags); callers pass values representable in t.
func Append(t Type, dst []byte, vals ...float64) []byte {
	ne := binary.NativeEndian
	for _, v := range vals {
		switch t {
		case Uint8:
			dst = append(dst, uint8(v))
		case Int8:
			dst = append(dst, byte(int8(v)))
		case Uint16:
			dst = ne.AppendUint16(dst, uint16(v))
		case Int16:
			dst = ne.AppendUint16(dst, uint16(int16(v)))
		case Uint32:
			dst = ne.AppendUint32(dst, uint32(v))
		case Int32:
			dst = ne.AppendUint32(dst, uint32(int32(v)))
		case Float32:
			dst = ne.AppendUint32(dst, math.Float32bits(float32(v)))
		case Float64:
			dst = ne.AppendUint64(dst, math.Float64bits(v))
		}
	}

	return dst
}
