// SPDX-License-Identifier: MIT

package device

import (
	"encoding/binary"
	"math"

	"github.com/katalvlaran/leakage/matrix"
)

// elemSize is the byte width of one result element (float64).
const elemSize = 8

// resultStream exposes a result matrix as a byte stream in native-endian
// float64 layout, read through a monotonically advancing cursor.
type resultStream struct {
	m      *matrix.Matrix[float64]
	cursor int // bytes already read
}

func newResultStream(cols, rows int) resultStream {
	return resultStream{m: matrix.NewMatrix[float64](cols, rows)}
}

// total is the byte length of the whole matrix.
func (r *resultStream) total() int { return r.m.Len() * elemSize }

// available is the number of unread bytes.
func (r *resultStream) available() int { return r.total() - r.cursor }

// read copies up to len(dst) unread bytes into dst, starting at any byte
// offset, and returns the count; 0 once exhausted.
func (r *resultStream) read(dst []byte) int {
	n := min(len(dst), r.available())
	if n <= 0 {
		return 0
	}
	data := r.m.Data()
	var tmp [elemSize]byte
	off, w := r.cursor, 0
	for w < n {
		binary.NativeEndian.PutUint64(tmp[:], math.Float64bits(data[off/elemSize]))
		c := copy(dst[w:n], tmp[off%elemSize:])
		w += c
		off += c
	}
	r.cursor = off

	return n
}

// replace swaps in a freshly computed matrix (returning the old one for
// reuse) and rewinds the cursor.
func (r *resultStream) replace(m *matrix.Matrix[float64]) *matrix.Matrix[float64] {
	old := r.m
	r.m = m
	r.cursor = 0

	return old
}

// clear zero-fills the matrix and rewinds the cursor.
func (r *resultStream) clear() {
	r.m.Fill(0)
	r.cursor = 0
}
