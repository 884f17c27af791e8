// SPDX-License-Identifier: MIT

package device

import "github.com/sirupsen/logrus"

// Option customizes a device at construction.
type Option func(*settings)

type settings struct {
	log     *logrus.Entry
	workers int // 0 keeps the configured value
}

// WithLogger routes device logs through l; a "device" field is added.
func WithLogger(l *logrus.Entry) Option {
	return func(s *settings) { s.log = l }
}

// WithWorkers overrides the candidate fan-out width (CPA only). n < 1 is ignored.
func WithWorkers(n int) Option {
	return func(s *settings) {
		if n >= 1 {
			s.workers = n
		}
	}
}

func gatherSettings(name string, opts ...Option) settings {
	var s settings
	for _, fn := range opts {
		if fn != nil {
			fn(&s)
		}
	}
	if s.log == nil {
		s.log = logrus.NewEntry(logrus.StandardLogger())
	}
	s.log = s.log.WithField("device", name)

	return s
}
