// SPDX-License-Identifier: MIT

package device

import (
	"fmt"

	"github.com/katalvlaran/leakage/sample"
)

// queue is a FIFO of fixed-width float64 records decoded from raw buffers.
// Storage is reused; consumed records are compacted away lazily.
type queue struct {
	width int
	typ   sample.Type
	buf   []float64 // records [head, len(buf)) are pending
	head  int       // in elements
}

func newQueue(typ sample.Type, width int) queue {
	return queue{width: width, typ: typ}
}

// push validates raw as whole records, decodes and appends them, and returns
// the number of records added. Nothing is queued on error.
func (q *queue) push(raw []byte) (int, error) {
	n, err := sample.Records(q.typ, len(raw), q.width)
	if err != nil {
		return 0, fmt.Errorf("%d bytes of %d x %s records: %w", len(raw), q.width, q.typ, err)
	}
	if n == 0 {
		return 0, nil
	}
	q.compact()
	tail := len(q.buf)
	q.buf = append(q.buf, make([]float64, n*q.width)...)
	if _, err = sample.Decode(q.typ, raw, q.buf[tail:]); err != nil {
		q.buf = q.buf[:tail]

		return 0, err
	}

	return n, nil
}

// len returns the number of pending records.
func (q *queue) len() int { return (len(q.buf) - q.head) / q.width }

// pop removes the n oldest records and returns them as one flat slice, valid
// until the next push.
func (q *queue) pop(n int) []float64 {
	out := q.buf[q.head : q.head+n*q.width]
	q.head += n * q.width

	return out
}

// compact moves pending records to the front once the consumed prefix
// dominates the buffer.
func (q *queue) compact() {
	if q.head == 0 {
		return
	}
	if q.head == len(q.buf) {
		q.buf, q.head = q.buf[:0], 0

		return
	}
	if q.head >= len(q.buf)-q.head {
		n := copy(q.buf, q.buf[q.head:])
		q.buf, q.head = q.buf[:n], 0
	}
}

// reset drops every pending record.
func (q *queue) reset() { q.buf, q.head = q.buf[:0], 0 }
