package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/example/lvcsr-decode/internal/doctor"
	"github.com/spf13/cobra"
)

func newDoctorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Run local model file checks",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			dcfg := doctor.Config{
				HMMDefsPath:  cfg.Paths.HMMDefsPath,
				HMMListPath:  cfg.Paths.HMMListPath,
				DictPath:     cfg.Paths.DictPath,
				BigramPath:   cfg.Paths.BigramPath,
				NgramPath:    cfg.Paths.NgramPath,
				DFAPath:      cfg.Paths.DFAPath,
				ManifestPath: cfg.Paths.ManifestPath,
			}

			result := doctor.Run(dcfg, os.Stdout)
			if result.Failed() {
				for _, f := range result.Findings {
					if !f.OK {
						fmt.Fprintf(os.Stderr, "FAIL: %s: %s\n", f.Name, f.Detail)
					}
				}
				return errors.New("doctor checks failed")
			}

			_, _ = fmt.Fprintln(os.Stdout, "doctor checks passed")
			return nil
		},
	}

	return cmd
}
