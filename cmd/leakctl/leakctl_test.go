// SPDX-License-Identifier: MIT

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/leakage/sample"
)

func writeRaw(t *testing.T, dir, name string, typ sample.Type, vals ...float64) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, sample.Append(typ, nil, vals...), 0o600))

	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&stderr)
	cmd.SetErr(&stderr)
	err := cmd.Execute()

	return stderr.String(), err
}

func readFloats(t *testing.T, path string) []float64 {
	t.Helper()
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	vals := make([]float64, len(raw)/8)
	_, err = sample.Decode(sample.Float64, raw, vals)
	require.NoError(t, err)

	return vals
}

func TestCPACommand(t *testing.T) {
	dir := t.TempDir()
	traces := writeRaw(t, dir, "traces.bin", sample.Int16, 1, 2, 3, 4, 5, 6, 7, 8)
	preds := writeRaw(t, dir, "preds.bin", sample.Uint8, 1, 0, 1, 0)
	out := filepath.Join(dir, "out")
	metricsFile := filepath.Join(dir, "metrics.prom")

	logs, err := run(t, "cpa",
		"--traces", traces, "--predictions", preds,
		"--trace-length", "2", "--sample-type", "s16",
		"--candidates", "1", "--prediction-type", "u8",
		"--chunk", "3", "--out", out, "--metrics-file", metricsFile,
	)
	require.NoError(t, err, logs)
	assert.Contains(t, logs, "best candidate")

	corr := readFloats(t, filepath.Join(out, "correlations-order-1.bin"))
	require.Len(t, corr, 2)
	assert.InDelta(t, -0.4472135954999579, corr[0], 1e-12)

	prom, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), "leakage_traces_merged_total")
}

func TestCPACommand_PartialTrailingRecord(t *testing.T) {
	dir := t.TempDir()
	traces := writeRaw(t, dir, "traces.bin", sample.Float64, 1, 2, 3)
	preds := writeRaw(t, dir, "preds.bin", sample.Float64, 1)

	_, err := run(t, "cpa", "--traces", traces, "--predictions", preds,
		"--trace-length", "2", "--candidates", "1", "--out", dir)
	assert.ErrorIs(t, err, sample.ErrPartialRecord)
}

func TestTTestCommand_Classes(t *testing.T) {
	dir := t.TempDir()
	a := writeRaw(t, dir, "a.bin", sample.Float64, -1, 1, -1, 1)
	b := writeRaw(t, dir, "b.bin", sample.Float64, 9, 11, 9, 11)
	out := filepath.Join(dir, "out")

	logs, err := run(t, "ttest", "--class", "0="+a, "--class", "1="+b,
		"--trace-length", "1", "--out", out, "--log-level", "info")
	require.NoError(t, err, logs)
	assert.Contains(t, logs, "verdict")

	tv := readFloats(t, filepath.Join(out, "tvalues-order-1-0-1.bin"))
	require.Len(t, tv, 2)
	assert.InDelta(t, 10/0.7071067811865476, tv[0], 1e-9)
}

func TestTTestCommand_Labelled(t *testing.T) {
	dir := t.TempDir()
	traces := writeRaw(t, dir, "traces.bin", sample.Uint8, 1, 11, 3, 9, 1, 11, 3, 7, 9)
	labels := writeRaw(t, dir, "labels.bin", sample.Uint8, 0, 1, 0, 1, 0, 1, 0, 5, 1)
	out := filepath.Join(dir, "out")

	logs, err := run(t, "ttest", "--traces", traces, "--labels", labels,
		"--trace-length", "1", "--sample-type", "u8", "--label-type", "u8",
		"--chunk", "2", "--out", out)
	require.NoError(t, err, logs)
	_, err = os.Stat(filepath.Join(out, "tvalues-order-1-0-1.bin"))
	assert.NoError(t, err)
}

func TestTTestCommand_BadFlags(t *testing.T) {
	_, err := run(t, "ttest", "--trace-length", "1")
	assert.Error(t, err)

	_, err = run(t, "ttest", "--class", "zero=x.bin", "--trace-length", "1")
	assert.Error(t, err)

	_, err = run(t, "--log-level", "loud", "ttest", "--class", "0=x.bin")
	assert.Error(t, err)
}
