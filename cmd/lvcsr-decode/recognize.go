package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/example/lvcsr-decode/internal/modelio"
	"github.com/example/lvcsr-decode/internal/recognizer"
	"github.com/example/lvcsr-decode/internal/result"
	"github.com/spf13/cobra"
)

func newRecognizeCmd() *cobra.Command {
	var featuresPath string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "recognize",
		Short: "Decode one utterance from a pre-extracted feature file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
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

			m.am.Prepare(len(frames), m.index.TotalStateNum())

			code, sentences, err := rec.Recognize(cmd.Context(), recognizer.Input{Frames: frames}, recognizer.Callbacks{})
			if err != nil {
				return fmt.Errorf("recognize: %w", err)
			}

			if asJSON {
				return printJSON(os.Stdout, code.String(), sentences)
			}
			printText(os.Stdout, code.String(), sentences)
			return nil
		},
	}

	cmd.Flags().StringVar(&featuresPath, "features", "", "Path to a pre-extracted feature file (modelio.LoadFrameVectors format)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	_ = cmd.MarkFlagRequired("features")

	return cmd
}

func printText(w io.Writer, code string, sentences []result.Sentence) {
	fmt.Fprintf(w, "status: %s\n", code)
	for i, s := range sentences {
		fmt.Fprintf(w, "%d: %s  (score %.2f)\n", i, joinWords(s.Words), s.TotalScore)
	}
}

func joinWords(words []string) string {
	out := ""
	for i, w := range words {
		if i > 0 {
			out += " "
		}
		out += w
	}
	return out
}

type jsonResult struct {
	Status    string         `json:"status"`
	Sentences []jsonSentence `json:"sentences"`
}

type jsonSentence struct {
	Words      []string  `json:"words"`
	AMScore    float32   `json:"am_score"`
	LMScore    float32   `json:"lm_score"`
	TotalScore float32   `json:"total_score"`
	Confidence []float64 `json:"confidence"`
}

func printJSON(w io.Writer, code string, sentences []result.Sentence) error {
	out := jsonResult{Status: code}
	for _, s := range sentences {
		out.Sentences = append(out.Sentences, jsonSentence{
			Words:      s.Words,
			AMScore:    s.AMScore,
			LMScore:    s.LMScore,
			TotalScore: s.TotalScore,
			Confidence: s.Confidence,
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
