// SPDX-License-Identifier: MIT

// Package config loads the YAML configuration of the leakctl tool: logging
// and the two device configurations. Unknown keys are rejected.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/katalvlaran/leakage/device"
	"github.com/katalvlaran/leakage/sample"
)

// ErrInvalid indicates a configuration that fails validation.
var ErrInvalid = errors.New("config: invalid")

// Log configures logrus.
type Log struct {
	Level  string `yaml:"level"`  // logrus level name; default "info"
	Format string `yaml:"format"` // "text" or "json"; default "text"
}

// File is the top-level configuration document.
type File struct {
	Log   Log                `yaml:"log"`
	CPA   device.CPAConfig   `yaml:"cpa"`
	TTest device.TTestConfig `yaml:"ttest"`
}

// Default returns the configuration used when no file is given.
func Default() File {
	return File{
		Log: Log{Level: "info", Format: "text"},
		CPA: device.CPAConfig{
			SampleType:     sample.Float64,
			PredictionType: sample.Float64,
			Candidates:     256,
			Order:          1,
		},
		TTest: device.TTestConfig{
			SampleType: sample.Float64,
			LabelType:  sample.Uint8,
			Classes:    2,
			Order:      1,
		},
	}
}

// Load reads and parses the file at path.
func Load(path string) (File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("config: %w", err)
	}
	f, err := Parse(raw)
	if err != nil {
		return File{}, fmt.Errorf("%s: %w", path, err)
	}

	return f, nil
}

// Parse decodes raw over Default(). Device sections are validated later by
// the device constructors, once command-line overrides are applied.
func Parse(raw []byte) (File, error) {
	f := Default()
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return File{}, fmt.Errorf("config: %w", err)
	}
	if err := f.Log.Validate(); err != nil {
		return File{}, err
	}

	return f, nil
}

// Validate checks the level and format names.
func (l Log) Validate() error {
	if _, err := logrus.ParseLevel(l.Level); err != nil {
		return fmt.Errorf("log.level %q: %w", l.Level, ErrInvalid)
	}
	if l.Format != "text" && l.Format != "json" {
		return fmt.Errorf("log.format %q: %w", l.Format, ErrInvalid)
	}

	return nil
}

// Apply configures logger from l.
func (l Log) Apply(logger *logrus.Logger) error {
	if err := l.Validate(); err != nil {
		return err
	}
	lvl, _ := logrus.ParseLevel(l.Level)
	logger.SetLevel(lvl)
	if l.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return nil
}
