package main

import (
	"fmt"
	"os"
	"time"

	"github.com/example/lvcsr-decode/internal/bench"
	"github.com/example/lvcsr-decode/internal/modelio"
	"github.com/example/lvcsr-decode/internal/recognizer"
	"github.com/spf13/cobra"
)

func newBenchCmd() *cobra.Command {
	var (
		featuresPath string
		runs         int
		format       string
		rtfThreshold float64
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Benchmark decode latency and realtime factor over one utterance",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}
			if runs < 1 {
				return fmt.Errorf("--runs must be at least 1")
			}
			if format != "table" && format != "json" {
				return fmt.Errorf("--format must be 'table' or 'json'")
			}

			f, err := os.Open(featuresPath)
			if err != nil {
				return fmt.Errorf("open features: %w", err)
			}
			frames, err := modelio.LoadFrameVectors(f)
			f.Close()
			if err != nil {
				return fmt.Errorf("load features: %w", err)
			}

			m, err := loadModel(cfg)
			if err != nil {
				return err
			}
			tree, err := m.tree()
			if err != nil {
				return err
			}
			rec, err := recognizer.New(m.dict, m.index, m.am, tree, m.bigram, m.dfa, m.main, nil, buildRecognizerConfig(cfg))
			if err != nil {
				return err
			}

			frameShiftMs := 10.0
			if mf, err := os.Open(cfg.Paths.ManifestPath); err == nil {
				manifest, err := modelio.LoadManifest(mf)
				mf.Close()
				if err == nil && manifest.FrameShiftMs > 0 {
					frameShiftMs = manifest.FrameShiftMs
				}
			}
			audioDur := bench.FrameDuration(len(frames), frameShiftMs)

			results := make([]bench.RunResult, 0, runs)
			for i := range runs {
				start := time.Now()
				m.am.Prepare(len(frames), m.index.TotalStateNum())
				_, sentences, err := rec.Recognize(cmd.Context(), recognizer.Input{Frames: frames}, recognizer.Callbacks{})
				if err != nil {
					return fmt.Errorf("run %d failed: %w", i+1, err)
				}
				dur := time.Since(start)

				r := bench.RunResult{
					Index:         i,
					Cold:          i == 0,
					Duration:      dur,
					AudioDuration: audioDur,
					RTF:           bench.CalcRTF(dur, audioDur),
				}
				if len(sentences) > 0 {
					r.WordCount = len(sentences[0].WordIDs)
					r.TotalScore = sentences[0].TotalScore
				}
				results = append(results, r)
			}

			stats := bench.ComputeStats(results)

			switch format {
			case "json":
				bench.FormatJSON(results, stats, os.Stdout)
			default:
				bench.FormatTable(results, stats, os.Stdout)
			}

			var totalRTF float64
			for _, r := range results {
				totalRTF += r.RTF
			}
			meanRTF := totalRTF / float64(len(results))

			return bench.CheckRTFThreshold(meanRTF, rtfThreshold)
		},
	}

	cmd.Flags().StringVar(&featuresPath, "features", "", "Path to a pre-extracted feature file (required)")
	cmd.Flags().IntVar(&runs, "runs", 5, "Number of decode runs")
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table|json")
	cmd.Flags().Float64Var(&rtfThreshold, "rtf-threshold", 0, "Exit non-zero if mean RTF exceeds this value (0 = disabled)")
	_ = cmd.MarkFlagRequired("features")

	return cmd
}
