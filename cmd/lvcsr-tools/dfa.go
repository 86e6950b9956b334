package main

import (
	"fmt"
	"os"

	"github.com/example/lvcsr-decode/internal/dfatools"
	"github.com/example/lvcsr-decode/internal/lm"
	"github.com/example/lvcsr-decode/internal/modelio"
	"github.com/spf13/cobra"
)

func newDFACmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dfa",
		Short: "Transform DFA grammar files",
	}
	cmd.AddCommand(newDFADeterminizeCmd())
	cmd.AddCommand(newDFAMinimizeCmd())
	return cmd
}

func newDFADeterminizeCmd() *cobra.Command {
	var inPath, outPath string

	cmd := &cobra.Command{
		Use:   "determinize",
		Short: "Merge ambiguous arcs so each state has at most one arc per category",
		RunE: func(_ *cobra.Command, _ []string) error {
			d, err := loadDFAFile(inPath)
			if err != nil {
				return err
			}
			det := dfatools.Determinize(d)
			if err := writeDFAFile(outPath, det); err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "%d states -> %d states\n", len(d.States), len(det.States))
			return nil
		},
	}
	cmd.Flags().StringVar(&inPath, "in", "", "Input DFA grammar file (required)")
	cmd.Flags().StringVar(&outPath, "out", "", "Output DFA grammar file (required)")
	_ = cmd.MarkFlagRequired("in")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func newDFAMinimizeCmd() *cobra.Command {
	var inPath, outPath string

	cmd := &cobra.Command{
		Use:   "minimize",
		Short: "Collapse equivalent states of an already-determinized DFA",
		RunE: func(_ *cobra.Command, _ []string) error {
			d, err := loadDFAFile(inPath)
			if err != nil {
				return err
			}
			min := dfatools.Minimize(d)
			if err := writeDFAFile(outPath, min); err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "%d states -> %d states\n", len(d.States), len(min.States))
			return nil
		},
	}
	cmd.Flags().StringVar(&inPath, "in", "", "Input DFA grammar file (required, should already be determinized)")
	cmd.Flags().StringVar(&outPath, "out", "", "Output DFA grammar file (required)")
	_ = cmd.MarkFlagRequired("in")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func loadDFAFile(path string) (*lm.DFA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dfa: %w", err)
	}
	defer f.Close()
	d, err := modelio.LoadDFA(f)
	if err != nil {
		return nil, fmt.Errorf("load dfa: %w", err)
	}
	return d, nil
}

func writeDFAFile(path string, d *lm.DFA) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer f.Close()
	if err := modelio.WriteDFA(f, d); err != nil {
		return fmt.Errorf("write dfa: %w", err)
	}
	return nil
}
