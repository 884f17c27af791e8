// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/katalvlaran/leakage/config"
)

// globals carries the persistent flags and the state derived from them.
type globals struct {
	configPath  string
	logLevel    string
	metricsFile string

	cfg config.File
	log *logrus.Entry
}

func newRootCmd() *cobra.Command {
	g := &globals{}
	cmd := &cobra.Command{
		Use:   "leakctl",
		Short: "Streaming CPA and Welch t-test over raw trace files",
		Long: `leakctl feeds raw binary trace, prediction and label files into the
analytical devices in fixed-size chunks, computes the results and writes every
result stream as native-endian float64 files.
`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return g.load(cmd)
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			return g.writeMetrics()
		},
	}
	pf := cmd.PersistentFlags()
	pf.StringVar(&g.configPath, "config", "", "YAML configuration file")
	pf.StringVar(&g.logLevel, "log-level", "", "log level (overrides the configuration)")
	pf.StringVar(&g.metricsFile, "metrics-file", "", "write Prometheus metrics in text format to this file on exit")

	cmd.AddCommand(cpaCmd(g), ttestCmd(g))

	return cmd
}

// load reads the configuration and sets up logging.
func (g *globals) load(cmd *cobra.Command) error {
	g.cfg = config.Default()
	if g.configPath != "" {
		f, err := config.Load(g.configPath)
		if err != nil {
			return err
		}
		g.cfg = f
	}
	if g.logLevel != "" {
		g.cfg.Log.Level = g.logLevel
	}

	logger := logrus.New()
	logger.SetOutput(cmd.ErrOrStderr())
	if err := g.cfg.Log.Apply(logger); err != nil {
		return err
	}
	g.log = logrus.NewEntry(logger)

	return nil
}

func (g *globals) writeMetrics() error {
	if g.metricsFile == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(g.metricsFile, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	g.log.WithField("file", g.metricsFile).Debug("metrics written")

	return nil
}

// writeStream drains read into dir/name.
func writeStream(dir, name string, size int, read func([]byte) (int, error)) error {
	buf := make([]byte, size)
	n, err := read(buf)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(dir, name), buf[:n], 0o644)
}
