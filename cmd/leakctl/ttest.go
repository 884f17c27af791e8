// SPDX-License-Identifier: MIT

package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/katalvlaran/leakage/device"
	"github.com/katalvlaran/leakage/ttest"
)

func ttestCmd(g *globals) *cobra.Command {
	var (
		classFiles                     []string
		tracesPath, labelsPath, outDir string
		sampleType, labelType          string
		traceLength, classes, order    int
		chunk                          int
		threshold                      float64
	)
	cmd := &cobra.Command{
		Use:   "ttest",
		Short: "Welch t-test between trace classes",
		Example: `leakctl ttest --class 0=fixed.bin --class 1=random.bin --trace-length 5000 --out results/
leakctl ttest --traces all.bin --labels labels.bin --classes 2 --order 2 --out results/`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := g.cfg.TTest
			fl := cmd.Flags()
			if fl.Changed("trace-length") {
				cfg.TraceLength = traceLength
			}
			if fl.Changed("classes") {
				cfg.Classes = classes
			}
			if fl.Changed("order") {
				cfg.Order = order
			}
			if err := parseType(fl.Changed("sample-type"), sampleType, &cfg.SampleType); err != nil {
				return err
			}
			if err := parseType(fl.Changed("label-type"), labelType, &cfg.LabelType); err != nil {
				return err
			}

			switch {
			case len(classFiles) > 0 && tracesPath == "":
				cfg.Labeled = false
			case len(classFiles) == 0 && tracesPath != "" && labelsPath != "":
				cfg.Labeled = true
			default:
				return errors.New("give either --class i=FILE flags or both --traces and --labels")
			}

			return runTTest(g, cfg, classFiles, tracesPath, labelsPath, outDir, chunk, threshold)
		},
	}
	fl := cmd.Flags()
	fl.StringArrayVar(&classFiles, "class", nil, "class trace file as INDEX=FILE (repeatable)")
	fl.StringVar(&tracesPath, "traces", "", "interleaved raw trace file (labelled mode)")
	fl.StringVar(&labelsPath, "labels", "", "raw label file (labelled mode)")
	fl.StringVar(&outDir, "out", ".", "output directory")
	fl.IntVar(&chunk, "chunk", 1024, "records per chunk")
	fl.IntVar(&traceLength, "trace-length", 0, "samples per trace")
	fl.IntVar(&classes, "classes", 0, "number of classes")
	fl.IntVar(&order, "order", 0, "highest test order")
	fl.StringVar(&sampleType, "sample-type", "", "trace element type (u8, s16, f32, ...)")
	fl.StringVar(&labelType, "label-type", "", "label element type")
	fl.Float64Var(&threshold, "threshold", ttest.DefaultThreshold, "|t| above which a sample is reported as leaking")

	return cmd
}

func runTTest(g *globals, cfg device.TTestConfig, classFiles []string, tracesPath, labelsPath, outDir string, chunk int, threshold float64) error {
	if chunk < 1 {
		return fmt.Errorf("--chunk %d must be >= 1", chunk)
	}
	d, err := device.NewTTest(cfg, device.WithLogger(g.log))
	if err != nil {
		return err
	}

	var (
		sources []*source
		sinks   []func([]byte) (int, error)
	)
	defer func() {
		for _, s := range sources {
			_ = s.Close()
		}
	}()
	recordSize := cfg.TraceLength * cfg.SampleType.Size()
	if cfg.Labeled {
		ts, err := openSource(tracesPath, recordSize, chunk)
		if err != nil {
			return err
		}
		sources = append(sources, ts)
		ls, err := openSource(labelsPath, cfg.LabelType.Size(), chunk)
		if err != nil {
			return err
		}
		sources = append(sources, ls)
		sinks = append(sinks, tolerateLabels(d.AddTraces), tolerateLabels(d.AddLabels))
	} else {
		for _, arg := range classFiles {
			class, path, err := parseClassFile(arg)
			if err != nil {
				return err
			}
			s, err := openSource(path, recordSize, chunk)
			if err != nil {
				return err
			}
			sources = append(sources, s)
			sinks = append(sinks, func(b []byte) (int, error) { return d.AddClassTraces(class, b) })
		}
	}

	if err = feed(sources, sinks); err != nil {
		return err
	}
	if err = d.ComputeTVals(); err != nil {
		return err
	}

	size := 2 * cfg.TraceLength * 8
	for k := 1; k <= cfg.Order; k++ {
		for i := 0; i < cfg.Classes; i++ {
			for j := i + 1; j < cfg.Classes; j++ {
				name := fmt.Sprintf("tvalues-order-%d-%d-%d.bin", k, i, j)
				read := func(b []byte) (int, error) { return d.GetTValues(b, i, j, k) }
				if err = writeStream(outDir, name, size, read); err != nil {
					return err
				}
				sum, err := d.Summarize(i, j, k, threshold)
				if err != nil {
					return err
				}
				g.log.WithFields(logrus.Fields{
					"order": k, "class1": i, "class2": j, "max_t": sum.MaxAbsT, "sample": sum.Sample,
					"p_value": sum.PValue, "leaking": len(sum.Leaking),
					"verdict": sum.Verdict.String(), "file": name,
				}).Info("t-test")
			}
		}
	}

	return nil
}

// tolerateLabels lets dropped-label reports through; the device has already
// logged and counted them.
func tolerateLabels(add func([]byte) (int, error)) func([]byte) (int, error) {
	return func(b []byte) (int, error) {
		n, err := add(b)
		if errors.Is(err, device.ErrLabelRange) {
			return n, nil
		}

		return n, err
	}
}

// parseClassFile splits "INDEX=FILE".
func parseClassFile(arg string) (int, string, error) {
	idx, path, ok := strings.Cut(arg, "=")
	if !ok || path == "" {
		return 0, "", fmt.Errorf("--class %q: want INDEX=FILE", arg)
	}
	class, err := strconv.Atoi(idx)
	if err != nil {
		return 0, "", fmt.Errorf("--class %q: %w", arg, err)
	}

	return class, path, nil
}
