package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/example/lvcsr-decode/internal/lm"
	"github.com/example/lvcsr-decode/internal/modelio"
	"github.com/example/lvcsr-decode/internal/modelio/ngrambin"
	"github.com/spf13/cobra"
)

func newNgramCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ngram",
		Short: "Compile and score N-gram language models",
	}
	cmd.AddCommand(newNgramCompileCmd())
	cmd.AddCommand(newNgramScoreCmd())
	return cmd
}

func newNgramCompileCmd() *cobra.Command {
	var (
		arpaPath  string
		vocabPath string
		outPath   string
		direction string
		header    string
	)

	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Convert an ARPA-format N-gram into the decoder's binary format",
		RunE: func(_ *cobra.Command, _ []string) error {
			dir, err := parseDirection(direction)
			if err != nil {
				return err
			}

			v, err := openVocab(vocabPath)
			if err != nil {
				return err
			}

			af, err := os.Open(arpaPath)
			if err != nil {
				return fmt.Errorf("open arpa: %w", err)
			}
			g, err := modelio.LoadARPA(af, dir, v.wordID)
			af.Close()
			if err != nil {
				return fmt.Errorf("load arpa: %w", err)
			}

			out, err := os.Create(outPath)
			if err != nil {
				return fmt.Errorf("create output: %w", err)
			}
			defer out.Close()

			if header == "" {
				header = fmt.Sprintf("compiled from %s", arpaPath)
			}
			if err := ngrambin.Write(out, g, header); err != nil {
				return fmt.Errorf("write binary ngram: %w", err)
			}

			if vocabPath == "" {
				if err := writeVocabSidecar(outPath+".vocab", v); err != nil {
					return fmt.Errorf("write vocab sidecar: %w", err)
				}
			}

			fmt.Fprintf(os.Stdout, "compiled %d words, order %d, direction %s -> %s\n", len(v.byID), g.Order, direction, outPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&arpaPath, "arpa", "", "Input ARPA-format N-gram file (required)")
	cmd.Flags().StringVar(&vocabPath, "vocab", "", "Vocabulary file assigning stable word IDs (optional; derived from the ARPA file and written as a sidecar if omitted)")
	cmd.Flags().StringVar(&outPath, "out", "", "Output binary N-gram path (required)")
	cmd.Flags().StringVar(&direction, "direction", "forward", "N-gram direction: forward|backward")
	cmd.Flags().StringVar(&header, "header", "", "Free-text header stored in the binary file")
	_ = cmd.MarkFlagRequired("arpa")
	_ = cmd.MarkFlagRequired("out")

	return cmd
}

func newNgramScoreCmd() *cobra.Command {
	var (
		arpaPath  string
		binPath   string
		vocabPath string
		direction string
		sentence  string
	)

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score a word sequence against an N-gram model",
		RunE: func(_ *cobra.Command, _ []string) error {
			if arpaPath == "" && binPath == "" {
				return fmt.Errorf("one of --arpa or --bin is required")
			}
			if sentence == "" {
				return fmt.Errorf("--sentence is required")
			}

			var (
				g   *lm.NGram
				v   *vocab
				err error
			)

			switch {
			case binPath != "":
				if vocabPath == "" {
					return fmt.Errorf("--vocab is required with --bin")
				}
				v, err = openVocab(vocabPath)
				if err != nil {
					return err
				}
				bf, err := os.Open(binPath)
				if err != nil {
					return fmt.Errorf("open binary ngram: %w", err)
				}
				g, _, err = ngrambin.Read(bf)
				bf.Close()
				if err != nil {
					return fmt.Errorf("read binary ngram: %w", err)
				}
			default:
				dir, derr := parseDirection(direction)
				if derr != nil {
					return derr
				}
				v, err = openVocab(vocabPath)
				if err != nil {
					return err
				}
				af, aerr := os.Open(arpaPath)
				if aerr != nil {
					return fmt.Errorf("open arpa: %w", aerr)
				}
				g, err = modelio.LoadARPA(af, dir, v.wordID)
				af.Close()
				if err != nil {
					return fmt.Errorf("load arpa: %w", err)
				}
			}

			words := strings.Fields(sentence)
			ids := make([]lm.WordID, len(words))
			for i, w := range words {
				ids[i] = v.wordID(w)
			}

			var total float32
			for i, id := range ids {
				start := i - g.Order + 1
				if start < 0 {
					start = 0
				}
				score := g.ConditionalLogProb(ids[start:i], id)
				total += score
				fmt.Fprintf(os.Stdout, "%-16s %8.4f\n", words[i], score)
			}
			fmt.Fprintf(os.Stdout, "total log prob: %.4f\n", total)
			return nil
		},
	}

	cmd.Flags().StringVar(&arpaPath, "arpa", "", "ARPA-format N-gram file")
	cmd.Flags().StringVar(&binPath, "bin", "", "Binary N-gram file (produced by ngram compile)")
	cmd.Flags().StringVar(&vocabPath, "vocab", "", "Vocabulary file assigning word IDs")
	cmd.Flags().StringVar(&direction, "direction", "forward", "N-gram direction when --arpa is used: forward|backward")
	cmd.Flags().StringVar(&sentence, "sentence", "", "Whitespace-separated word sequence to score (required)")

	return cmd
}

func parseDirection(s string) (lm.Direction, error) {
	switch s {
	case "forward":
		return lm.Forward, nil
	case "backward":
		return lm.Backward, nil
	default:
		return 0, fmt.Errorf("unknown direction %q, expected forward or backward", s)
	}
}

func openVocab(path string) (*vocab, error) {
	if path == "" {
		return &vocab{ids: make(map[string]lm.WordID)}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vocab: %w", err)
	}
	defer f.Close()
	return loadVocab(f)
}

func writeVocabSidecar(path string, v *vocab) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	for _, w := range v.byID {
		if _, err := fmt.Fprintln(f, w); err != nil {
			return err
		}
	}
	return nil
}
