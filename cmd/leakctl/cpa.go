// SPDX-License-Identifier: MIT

package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/katalvlaran/leakage/device"
	"github.com/katalvlaran/leakage/sample"
)

func cpaCmd(g *globals) *cobra.Command {
	var (
		tracesPath, predsPath, outDir string
		sampleType, predType          string
		traceLength, candidates       int
		order, workers, chunk         int
	)
	cmd := &cobra.Command{
		Use:     "cpa",
		Short:   "Correlate a trace file with a prediction file",
		Example: `leakctl cpa --traces traces.bin --predictions hw.bin --trace-length 5000 --sample-type s16 --out results/`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := g.cfg.CPA
			fl := cmd.Flags()
			if fl.Changed("trace-length") {
				cfg.TraceLength = traceLength
			}
			if fl.Changed("candidates") {
				cfg.Candidates = candidates
			}
			if fl.Changed("order") {
				cfg.Order = order
			}
			if fl.Changed("workers") {
				cfg.Workers = workers
			}
			if err := parseType(fl.Changed("sample-type"), sampleType, &cfg.SampleType); err != nil {
				return err
			}
			if err := parseType(fl.Changed("prediction-type"), predType, &cfg.PredictionType); err != nil {
				return err
			}

			return runCPA(g, cfg, tracesPath, predsPath, outDir, chunk)
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&tracesPath, "traces", "", "raw trace file")
	fl.StringVar(&predsPath, "predictions", "", "raw prediction file")
	fl.StringVar(&outDir, "out", ".", "output directory")
	fl.IntVar(&chunk, "chunk", 1024, "records per chunk")
	fl.IntVar(&traceLength, "trace-length", 0, "samples per trace")
	fl.IntVar(&candidates, "candidates", 0, "predictions per trace")
	fl.IntVar(&order, "order", 0, "highest attack order")
	fl.IntVar(&workers, "workers", 0, "candidate fan-out (0 = all CPUs)")
	fl.StringVar(&sampleType, "sample-type", "", "trace element type (u8, s16, f32, ...)")
	fl.StringVar(&predType, "prediction-type", "", "prediction element type")
	_ = cmd.MarkFlagRequired("traces")
	_ = cmd.MarkFlagRequired("predictions")

	return cmd
}

func runCPA(g *globals, cfg device.CPAConfig, tracesPath, predsPath, outDir string, chunk int) error {
	if chunk < 1 {
		return fmt.Errorf("--chunk %d must be >= 1", chunk)
	}
	d, err := device.NewCPA(cfg, device.WithLogger(g.log))
	if err != nil {
		return err
	}

	ts, err := openSource(tracesPath, cfg.TraceLength*cfg.SampleType.Size(), chunk)
	if err != nil {
		return err
	}
	defer ts.Close()
	ps, err := openSource(predsPath, cfg.Candidates*cfg.PredictionType.Size(), chunk)
	if err != nil {
		return err
	}
	defer ps.Close()

	if err = feed([]*source{ts, ps}, []func([]byte) (int, error){d.AddTraces, d.AddPredicts}); err != nil {
		return err
	}
	if err = d.ComputeCorrelations(); err != nil {
		return err
	}

	for k := 1; k <= cfg.Order; k++ {
		size, err := d.AvailableBytes(k)
		if err != nil {
			return err
		}
		name := fmt.Sprintf("correlations-order-%d.bin", k)
		if err = writeStream(outDir, name, size, func(b []byte) (int, error) { return d.GetCorrelations(b, k) }); err != nil {
			return err
		}
		smp, cand, r, err := d.Best(k)
		if err != nil {
			return err
		}
		g.log.WithFields(logrus.Fields{
			"order": k, "sample": smp, "candidate": cand, "r": r, "file": name,
		}).Info("best candidate")
	}

	return nil
}

// parseType overwrites dst with the tag named by value when the flag was set.
func parseType(changed bool, value string, dst *sample.Type) error {
	if !changed {
		return nil
	}
	t, err := sample.Parse(value)
	if err != nil {
		return err
	}
	*dst = t

	return nil
}
