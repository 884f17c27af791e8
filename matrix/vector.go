// SPDX-License-Identifier: MIT

// Package matrix - Vector storage with separate logical length and capacity.
//
// Purpose:
//   - Provide a flat numeric buffer that can be re-initialized many times without
//     reallocating: Init(n) only grows the backing array when n exceeds capacity.
//   - Keep element access as a plain slice index; bounds are a caller contract.
//
// Complexity quicksheet:
//   - Init: O(1) amortized (O(n) when growing); Fill: O(len); At/Set: O(1).

package matrix

import "unsafe"

// Number is the set of scalar element types a dense buffer can hold.
type Number interface {
	~int8 | ~uint8 | ~int16 | ~uint16 | ~int32 | ~uint32 | ~int64 | ~uint64 | ~int | ~float32 | ~float64
}

// panic messages (programmer errors only)
const (
	panicNegativeLength = "matrix: negative length"
	panicNegativeShape  = "matrix: negative shape"
)

// Vector is a flat array of T with a logical length and a physical capacity.
//   - len(data) is the logical length, cap(data) the physical capacity.
//   - Capacity never shrinks implicitly.
type Vector[T Number] struct {
	data []T // backing storage; len = logical length, cap = physical capacity
}

// NewVector creates a Vector with logical length n. Elements are zero.
// Complexity: O(n).
func NewVector[T Number](n int) *Vector[T] {
	v := &Vector[T]{}
	v.Init(n)

	return v
}

// NewVectorFill creates a Vector with logical length n filled with val.
// Complexity: O(n).
func NewVectorFill[T Number](n int, val T) *Vector[T] {
	v := NewVector[T](n)
	v.Fill(val)

	return v
}

// Init establishes logical length n.
// MAIN DESCRIPTION:
//   - Allocates only when n exceeds the current capacity; otherwise only the
//     logical length changes and the backing array is reused.
//
// Implementation:
//   - Stage 1: reject negative n (programmer error).
//   - Stage 2: grow the backing array when n > cap.
//   - Stage 3: reslice to n.
//
// Notes:
//   - Content is unspecified after Init (stale values may survive a shrink/grow
//     cycle within capacity); call Fill or InitFill when zeroes are required.
//
// Complexity:
//   - Time O(1) when n <= capacity, O(n) otherwise.
func (v *Vector[T]) Init(n int) {
	// Stage 1 (Validate): negative length is a caller bug.
	if n < 0 {
		panic(panicNegativeLength)
	}
	// Stage 2 (Grow): realloc only when asking for more than we can hold.
	if n > cap(v.data) {
		v.data = make([]T, n)

		return
	}
	// Stage 3 (Reslice): capacity is kept, only the upper bound moves.
	v.data = v.data[:n]
}

// InitFill is Init followed by Fill(val).
func (v *Vector[T]) InitFill(n int, val T) {
	v.Init(n)
	v.Fill(val)
}

// Fill overwrites all Len() elements with val.
// Complexity: O(len).
func (v *Vector[T]) Fill(val T) {
	for i := range v.data {
		v.data[i] = val
	}
}

// Len returns the logical number of elements.
func (v *Vector[T]) Len() int { return len(v.data) }

// Cap returns the physical capacity (number of elements allocated).
func (v *Vector[T]) Cap() int { return cap(v.data) }

// Size returns the logical size in bytes (Len() * sizeof(T)).
func (v *Vector[T]) Size() int {
	var zero T

	return len(v.data) * int(unsafe.Sizeof(zero))
}

// At returns element i. Bounds are the caller's responsibility.
func (v *Vector[T]) At(i int) T { return v.data[i] }

// Set assigns element i.
func (v *Vector[T]) Set(i int, val T) { v.data[i] = val }

// Data returns the contiguous logical storage. Mutations are visible in v.
func (v *Vector[T]) Data() []T { return v.data }
