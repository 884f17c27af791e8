// SPDX-License-Identifier: MIT

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// source reads a raw file in chunks of whole records.
type source struct {
	name string
	f    *os.File
	buf  []byte
	done bool
}

func openSource(path string, recordSize, chunkRecords int) (*source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	return &source{name: path, f: f, buf: make([]byte, recordSize*chunkRecords)}, nil
}

// next returns the next chunk; a short final chunk is returned as is so the
// device reports a trailing partial record.
func (s *source) next() ([]byte, error) {
	if s.done {
		return nil, io.EOF
	}
	n, err := io.ReadFull(s.f, s.buf)
	switch {
	case errors.Is(err, io.EOF):
		s.done = true

		return nil, io.EOF
	case errors.Is(err, io.ErrUnexpectedEOF):
		s.done = true
	case err != nil:
		return nil, fmt.Errorf("%s: %w", s.name, err)
	}

	return s.buf[:n], nil
}

func (s *source) Close() error { return s.f.Close() }

// feed alternates one chunk from every source into its sink until all are
// exhausted, so paired streams interleave the way independent producers do.
func feed(sources []*source, sinks []func([]byte) (int, error)) error {
	for {
		active := false
		for i, s := range sources {
			chunk, err := s.next()
			if errors.Is(err, io.EOF) {
				continue
			}
			if err != nil {
				return err
			}
			active = true
			if _, err = sinks[i](chunk); err != nil {
				return fmt.Errorf("%s: %w", s.name, err)
			}
		}
		if !active {
			return nil
		}
	}
}
