package main

import (
	"fmt"
	"os"

	"github.com/example/lvcsr-decode/internal/acoustic"
	"github.com/example/lvcsr-decode/internal/amodel"
	"github.com/example/lvcsr-decode/internal/config"
	"github.com/example/lvcsr-decode/internal/lexicon"
	"github.com/example/lvcsr-decode/internal/lm"
	"github.com/example/lvcsr-decode/internal/modelio"
	"github.com/example/lvcsr-decode/internal/result"
	"github.com/example/lvcsr-decode/internal/search/pass1"
	"github.com/example/lvcsr-decode/internal/search/pass2"
	"github.com/example/lvcsr-decode/internal/recognizer"
	"github.com/spf13/cobra"
)

func newModelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "model",
		Short: "Inspect configured model files",
	}
	cmd.AddCommand(newModelInfoCmd())
	return cmd
}

func newModelInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Load the configured model files and print a summary",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}
			loaded, err := loadModel(cfg)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "hmm states: %d\n", loaded.index.TotalStateNum())
			fmt.Fprintf(os.Stdout, "dictionary words: %d\n", loaded.dict.Len())
			if loaded.bigram != nil {
				fmt.Fprintf(os.Stdout, "pass-1 bigram loaded\n")
			}
			if loaded.dfa != nil {
				fmt.Fprintf(os.Stdout, "dfa grammar: %d states\n", len(loaded.dfa.States))
			}
			fmt.Fprintf(os.Stdout, "pass-2 ngram order: %d\n", loaded.main.Order)
			fmt.Fprintf(os.Stdout, "lexicon tree categories: %d\n", len(loaded.trees))
			return nil
		},
	}
}

// model holds every table the recognizer needs, assembled from cfg.Paths.
type model struct {
	index  *amodel.Index
	dict   *lexicon.Dictionary
	am     *acoustic.Engine
	trees  map[lm.CategoryID]*lexicon.Tree
	bigram *lm.NGram // pass-1 forward bigram, nil in grammar mode
	dfa    *lm.DFA   // nil in N-gram mode
	main   *lm.NGram // pass-2 full-order model, always required
}

// loadModel loads hmmdefs/hmmlist/dictionary/grammar/ngram from cfg.Paths
// and builds the acoustic engine and lexicon tree(s). HMM defs, HMM list
// and dictionary come first, as in internal/doctor.Run; the DFA is loaded
// before the N-grams here, whereas doctor checks it after them.
func loadModel(cfg config.Config) (*model, error) {
	idx := amodel.NewIndex()

	f, err := os.Open(cfg.Paths.HMMDefsPath)
	if err != nil {
		return nil, fmt.Errorf("open hmmdefs: %w", err)
	}
	err = modelio.LoadHMMDefs(f, idx)
	f.Close()
	if err != nil {
		return nil, fmt.Errorf("load hmmdefs: %w", err)
	}

	f, err = os.Open(cfg.Paths.HMMListPath)
	if err != nil {
		return nil, fmt.Errorf("open hmmlist: %w", err)
	}
	err = modelio.LoadHMMList(f, idx)
	f.Close()
	if err != nil {
		return nil, fmt.Errorf("load hmmlist: %w", err)
	}

	f, err = os.Open(cfg.Paths.DictPath)
	if err != nil {
		return nil, fmt.Errorf("open dictionary: %w", err)
	}
	dict, err := modelio.LoadDictionary(f, idx)
	f.Close()
	if err != nil {
		return nil, fmt.Errorf("load dictionary: %w", err)
	}
	bySurface := make(map[string]lm.WordID, dict.Len())
	for _, w := range dict.Words() {
		bySurface[w.Surface] = w.ID
	}
	wordID := func(surface string) lm.WordID { return bySurface[surface] }

	kind := lexicon.LMNGram
	var dfa *lm.DFA
	if cfg.Paths.DFAPath != "" {
		kind = lexicon.LMDFA
		f, err = os.Open(cfg.Paths.DFAPath)
		if err != nil {
			return nil, fmt.Errorf("open dfa: %w", err)
		}
		dfa, err = modelio.LoadDFA(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("load dfa: %w", err)
		}
	}

	var bigram *lm.NGram
	if cfg.Paths.BigramPath != "" {
		f, err = os.Open(cfg.Paths.BigramPath)
		if err != nil {
			return nil, fmt.Errorf("open bigram: %w", err)
		}
		bigram, err = modelio.LoadARPA(f, lm.Forward, wordID)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("load bigram: %w", err)
		}
	}

	f, err = os.Open(cfg.Paths.NgramPath)
	if err != nil {
		return nil, fmt.Errorf("open ngram: %w", err)
	}
	main, err := modelio.LoadARPA(f, lm.Forward, wordID)
	f.Close()
	if err != nil {
		return nil, fmt.Errorf("load ngram: %w", err)
	}

	if bigram == nil && kind == lexicon.LMNGram {
		vocab := make([]lm.WordID, 0, dict.Len())
		for _, w := range dict.Words() {
			vocab = append(vocab, w.ID)
		}
		bigram = lm.DeriveForwardBigram(main, vocab)
	}

	trees, err := lexicon.BuildTree(dict, lexicon.BuildOptions{
		Kind:          kind,
		ShortWordLen:  cfg.Pass1.ShortWordLen,
		LowMemoryTree: cfg.Pass1.LowMemoryTree,
	})
	if err != nil {
		return nil, fmt.Errorf("build lexicon tree: %w", err)
	}
	if kind == lexicon.LMNGram {
		for _, t := range trees {
			if err := lexicon.AssignFactoring(t, main); err != nil {
				return nil, fmt.Errorf("assign factoring: %w", err)
			}
		}
	}

	am := acoustic.NewEngine(acoustic.Config{
		Prune:          parsePruneMode(cfg.Acoustic.PruneMode),
		TopN:           cfg.Acoustic.TopNGaussians,
		BeamSlack:      float32(cfg.Acoustic.BeamSlack),
		CDCombiner:     parseCDCombiner(cfg.Acoustic.CDCombiner),
		CDTopK:         cfg.Acoustic.CDTopK,
		GMSEnabled:     cfg.Acoustic.GMSEnabled,
		GMSClusterSize: cfg.Acoustic.GMSClusterSize,
	})

	return &model{index: idx, dict: dict, am: am, trees: trees, bigram: bigram, dfa: dfa, main: main}, nil
}

// tree returns the single lexicon tree a recognizer.New call needs.
// N-gram mode builds one tree under category 0; DFA mode builds one tree
// per grammar category, and this decoder only drives a single category at
// a time (see internal/recognizer.New's doc comment).
func (m *model) tree() (*lexicon.Tree, error) {
	if t, ok := m.trees[0]; ok {
		return t, nil
	}
	for _, t := range m.trees {
		return t, nil
	}
	return nil, fmt.Errorf("no lexicon tree built")
}

// buildRecognizerConfig maps config.Config's recognizer-facing fields onto
// recognizer.Config, internal/search/pass1.Config and
// internal/search/pass2.Config/MBRConfig.
func buildRecognizerConfig(cfg config.Config) recognizer.Config {
	return recognizer.Config{
		Pass1: pass1.Config{
			BeamWidth:        amodel.LogProb(cfg.Pass1.BeamWidth),
			HypoLimit:        cfg.Pass1.HypoLimit,
			WordPairApprox:   cfg.Pass1.WordPairApprox,
			InsertionPenalty: amodel.LogProb(cfg.Pass1.InsertionPenalty),
		},
		Pass2: pass2.Config{
			NBest:            cfg.Pass2.NBest,
			StackSize:        cfg.Pass2.StackSize,
			HypoOverflow:     cfg.Pass2.HypoOverflow,
			InsertionPenalty: amodel.LogProb(cfg.Pass2.InsertionPenalty),
		},
		MBR: pass2.MBRConfig{
			ScaleFactor: cfg.MBR.ScaleFactor,
		},
		EnableMBR:         cfg.MBR.Enabled,
		EnableAlignment:   true,
		AlignmentUnit:     result.UnitWord,
		RejectShortFrames: cfg.Reject.ShortFrames,
		RejectLongFrames:  cfg.Reject.LongFrames,
		PowerThreshold:    float32(cfg.Reject.PowerThreshold),
	}
}

func parsePruneMode(s string) acoustic.PruneMode {
	switch s {
	case "none":
		return acoustic.PruneNone
	case "heuristic":
		return acoustic.PruneHeuristic
	case "beam":
		return acoustic.PruneBeam
	default:
		return acoustic.PruneSafe
	}
}

func parseCDCombiner(s string) acoustic.CDCombiner {
	switch s {
	case "max":
		return acoustic.CombineMax
	case "topk":
		return acoustic.CombineTopK
	default:
		return acoustic.CombineAverage
	}
}
