package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the full set of tunables a recognizer process needs: where its
// model files live, every beam/pruning/search knob spec.md leaves
// configurable rather than hardcoded, and the two listener addresses
// internal/server exposes.
type Config struct {
	Paths    PathsConfig    `mapstructure:"paths"`
	Acoustic AcousticConfig `mapstructure:"acoustic"`
	Pass1    Pass1Config    `mapstructure:"pass1"`
	Pass2    Pass2Config    `mapstructure:"pass2"`
	MBR      MBRConfig      `mapstructure:"mbr"`
	Reject   RejectConfig   `mapstructure:"reject"`
	Server   ServerConfig   `mapstructure:"server"`
	LogLevel string         `mapstructure:"log_level"`
}

// PathsConfig locates the model files internal/modelio loads at startup.
type PathsConfig struct {
	HMMDefsPath  string `mapstructure:"hmmdefs_path"`
	HMMListPath  string `mapstructure:"hmmlist_path"`
	DictPath     string `mapstructure:"dict_path"`
	BigramPath   string `mapstructure:"bigram_path"` // pass-1 factored N-gram
	NgramPath    string `mapstructure:"ngram_path"`  // pass-2 N-gram
	DFAPath      string `mapstructure:"dfa_path"`
	ManifestPath string `mapstructure:"manifest_path"`
}

// AcousticConfig mirrors internal/acoustic.Config's tunables (spec §4.1).
type AcousticConfig struct {
	PruneMode      string  `mapstructure:"prune_mode"` // none|safe|heuristic|beam
	TopNGaussians  int     `mapstructure:"top_n_gaussians"`
	BeamSlack      float64 `mapstructure:"beam_slack"`
	CDCombiner     string  `mapstructure:"cd_combiner"` // average|max|topk
	CDTopK         int     `mapstructure:"cd_top_k"`
	GMSEnabled     bool    `mapstructure:"gms_enabled"`
	GMSClusterSize int     `mapstructure:"gms_cluster_size"` // M
}

// Pass1Config mirrors internal/search/pass1.Config's tunables plus the
// lexicon tree construction policy spec.md §2 describes (short-word
// isolation vs. the low-memory policy that merges everything into one tree).
type Pass1Config struct {
	BeamWidth        float64 `mapstructure:"beam_width"`
	HypoLimit        int     `mapstructure:"hypo_limit"`
	WordPairApprox   bool    `mapstructure:"word_pair_approx"`
	InsertionPenalty float64 `mapstructure:"insertion_penalty"`
	LowMemoryTree    bool    `mapstructure:"low_memory_tree"`
	ShortWordLen     int     `mapstructure:"short_word_len"`
}

// Pass2Config mirrors internal/search/pass2.Config's tunables.
type Pass2Config struct {
	NBest            int     `mapstructure:"nbest"`
	StackSize        int     `mapstructure:"stack_size"`
	HypoOverflow     int     `mapstructure:"hypo_overflow"`
	InsertionPenalty float64 `mapstructure:"insertion_penalty"`
}

// MBRConfig mirrors internal/search/pass2.MBRConfig, plus a toggle for
// whether minimum Bayes-risk reranking runs at all.
type MBRConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	ScaleFactor float64 `mapstructure:"scale_factor"`
}

// RejectConfig mirrors internal/recognizer.Config's accept/reject gate
// tunables (spec.md's rejectshortlen/rejectlonglen).
type RejectConfig struct {
	ShortFrames    int     `mapstructure:"short_frames"`
	LongFrames     int     `mapstructure:"long_frames"` // 0 means unlimited
	PowerThreshold float64 `mapstructure:"power_threshold"`
}

// ServerConfig configures internal/server's two listeners: the raw
// TCP+XML module port and the HTTP doctor/health/metrics mux.
type ServerConfig struct {
	ListenAddr      string `mapstructure:"listen_addr"`
	HTTPAddr        string `mapstructure:"http_addr"`
	Workers         int    `mapstructure:"workers"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout_secs"`
	RequestTimeout  int    `mapstructure:"request_timeout_secs"`
}

// LoadOptions configures Load. Cmd supplies command-line flag values bound
// at a higher precedence than the config file or environment; Defaults
// seeds every value Load falls back to when nothing else is set.
type LoadOptions struct {
	Cmd        flagBinder
	ConfigFile string
	Defaults   Config
}

type flagBinder interface {
	Flags() *pflag.FlagSet
}

// DefaultConfig returns the recognizer's recommended tunables, matching
// internal/acoustic.DefaultConfig, internal/search/pass1.DefaultConfig,
// internal/search/pass2.DefaultConfig and internal/search/pass2.DefaultMBRConfig.
func DefaultConfig() Config {
	return Config{
		Paths: PathsConfig{
			HMMDefsPath:  "models/hmmdefs",
			HMMListPath:  "models/hmmlist",
			DictPath:     "models/dict",
			BigramPath:   "models/bigram.arpa",
			NgramPath:    "models/trigram.arpa",
			DFAPath:      "",
			ManifestPath: "models/manifest.yaml",
		},
		Acoustic: AcousticConfig{
			PruneMode:     "safe",
			TopNGaussians: 8,
			BeamSlack:     2.0,
			CDCombiner:    "average",
			CDTopK:        4,
		},
		Pass1: Pass1Config{
			BeamWidth:        -150,
			InsertionPenalty: -2,
			ShortWordLen:     2,
		},
		Pass2: Pass2Config{
			NBest:            10,
			StackSize:        500,
			HypoOverflow:     20000,
			InsertionPenalty: -2,
		},
		MBR: MBRConfig{
			Enabled:     true,
			ScaleFactor: 0.05,
		},
		Reject: RejectConfig{
			ShortFrames: 2,
			LongFrames:  0,
		},
		Server: ServerConfig{
			ListenAddr:      ":5530",
			HTTPAddr:        ":8080",
			Workers:         4,
			ShutdownTimeout: 30,
			RequestTimeout:  60,
		},
		LogLevel: "info",
	}
}

func RegisterFlags(fs *pflag.FlagSet, defaults Config) {
	fs.String("paths-hmmdefs-path", defaults.Paths.HMMDefsPath, "Path to the HTK-style HMM definitions file")
	fs.String("paths-hmmlist-path", defaults.Paths.HMMListPath, "Path to the logical-to-physical HMM name map")
	fs.String("paths-dict-path", defaults.Paths.DictPath, "Path to the pronunciation dictionary")
	fs.String("paths-bigram-path", defaults.Paths.BigramPath, "Path to the pass-1 ARPA bigram/backward N-gram")
	fs.String("paths-ngram-path", defaults.Paths.NgramPath, "Path to the pass-2 ARPA N-gram")
	fs.String("paths-dfa-path", defaults.Paths.DFAPath, "Path to a Julius-format DFA grammar (grammar mode only)")
	fs.String("paths-manifest-path", defaults.Paths.ManifestPath, "Path to the YAML model manifest")

	fs.String("acoustic-prune-mode", defaults.Acoustic.PruneMode, "Gaussian pruning strategy (none|safe|heuristic|beam)")
	fs.Int("acoustic-top-n", defaults.Acoustic.TopNGaussians, "Max Gaussians retained per mixture evaluation")
	fs.Float64("acoustic-beam-slack", defaults.Acoustic.BeamSlack, "Log-probability slack for beam-mode Gaussian pruning")
	fs.String("acoustic-cd-combiner", defaults.Acoustic.CDCombiner, "Cross-word pooled state combiner (average|max|topk)")
	fs.Int("acoustic-cd-top-k", defaults.Acoustic.CDTopK, "K for the topk cross-word combiner")
	fs.Bool("acoustic-gms-enabled", defaults.Acoustic.GMSEnabled, "Enable Gaussian mixture selection coarse-to-fine pruning")
	fs.Int("acoustic-gms-cluster-size", defaults.Acoustic.GMSClusterSize, "M: number of GMS clusters kept per frame")

	fs.Float64("pass1-beam-width", defaults.Pass1.BeamWidth, "Pass-1 frame-synchronous beam width (log-probability)")
	fs.Int("pass1-hypo-limit", defaults.Pass1.HypoLimit, "Max surviving tree tokens per frame (0 = unlimited)")
	fs.Bool("pass1-word-pair-approx", defaults.Pass1.WordPairApprox, "Use the word-pair approximation instead of plain Viterbi merging")
	fs.Float64("pass1-insertion-penalty", defaults.Pass1.InsertionPenalty, "Pass-1 per-word insertion penalty")
	fs.Bool("pass1-low-memory-tree", defaults.Pass1.LowMemoryTree, "Merge short words into the lexicon tree instead of isolating them")
	fs.Int("pass1-short-word-len", defaults.Pass1.ShortWordLen, "Phone-count threshold below which a word is isolated from the tree")

	fs.Int("pass2-nbest", defaults.Pass2.NBest, "Number of N-best hypotheses pass 2 returns")
	fs.Int("pass2-stack-size", defaults.Pass2.StackSize, "Pass-2 stack decoder agenda size")
	fs.Int("pass2-hypo-overflow", defaults.Pass2.HypoOverflow, "Pass-2 safety valve: max hypothesis pops regardless of convergence")
	fs.Float64("pass2-insertion-penalty", defaults.Pass2.InsertionPenalty, "Pass-2 per-word insertion penalty")

	fs.Bool("mbr-enabled", defaults.MBR.Enabled, "Rerank the N-best list by minimum Bayes risk before formatting a result")
	fs.Float64("mbr-scale-factor", defaults.MBR.ScaleFactor, "Sharpness of the N-best posterior distribution used for MBR")

	fs.Int("reject-short-frames", defaults.Reject.ShortFrames, "Reject utterances shorter than this many frames")
	fs.Int("reject-long-frames", defaults.Reject.LongFrames, "Reject utterances longer than this many frames (0 = unlimited)")
	fs.Float64("reject-power-threshold", defaults.Reject.PowerThreshold, "Reject utterances whose frames are all below this power")

	fs.String("server-listen-addr", defaults.Server.ListenAddr, "Module server TCP listen address")
	fs.String("server-http-addr", defaults.Server.HTTPAddr, "Doctor/health/metrics HTTP listen address")
	fs.Int("workers", defaults.Server.Workers, "Max concurrent recognize requests the module server processes")
	fs.Int("shutdown-timeout", defaults.Server.ShutdownTimeout, "Graceful shutdown drain timeout in seconds")
	fs.Int("request-timeout", defaults.Server.RequestTimeout, "Per-utterance recognition timeout in seconds")

	fs.String("log-level", defaults.LogLevel, "Log level (debug|info|warn|error)")
}

func Load(opts LoadOptions) (Config, error) {
	v := viper.New()

	setDefaults(v, opts.Defaults)
	if opts.Cmd != nil {
		if err := v.BindPFlags(opts.Cmd.Flags()); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}
	registerAliases(v)

	v.SetEnvPrefix("LVCSR")
	replacer := strings.NewReplacer("-", "_", ".", "_", "__", "_")
	v.SetEnvKeyReplacer(replacer)
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("lvcsr-decode")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, c Config) {
	v.SetDefault("paths.hmmdefs_path", c.Paths.HMMDefsPath)
	v.SetDefault("paths.hmmlist_path", c.Paths.HMMListPath)
	v.SetDefault("paths.dict_path", c.Paths.DictPath)
	v.SetDefault("paths.bigram_path", c.Paths.BigramPath)
	v.SetDefault("paths.ngram_path", c.Paths.NgramPath)
	v.SetDefault("paths.dfa_path", c.Paths.DFAPath)
	v.SetDefault("paths.manifest_path", c.Paths.ManifestPath)

	v.SetDefault("acoustic.prune_mode", c.Acoustic.PruneMode)
	v.SetDefault("acoustic.top_n_gaussians", c.Acoustic.TopNGaussians)
	v.SetDefault("acoustic.beam_slack", c.Acoustic.BeamSlack)
	v.SetDefault("acoustic.cd_combiner", c.Acoustic.CDCombiner)
	v.SetDefault("acoustic.cd_top_k", c.Acoustic.CDTopK)
	v.SetDefault("acoustic.gms_enabled", c.Acoustic.GMSEnabled)
	v.SetDefault("acoustic.gms_cluster_size", c.Acoustic.GMSClusterSize)

	v.SetDefault("pass1.beam_width", c.Pass1.BeamWidth)
	v.SetDefault("pass1.hypo_limit", c.Pass1.HypoLimit)
	v.SetDefault("pass1.word_pair_approx", c.Pass1.WordPairApprox)
	v.SetDefault("pass1.insertion_penalty", c.Pass1.InsertionPenalty)
	v.SetDefault("pass1.low_memory_tree", c.Pass1.LowMemoryTree)
	v.SetDefault("pass1.short_word_len", c.Pass1.ShortWordLen)

	v.SetDefault("pass2.nbest", c.Pass2.NBest)
	v.SetDefault("pass2.stack_size", c.Pass2.StackSize)
	v.SetDefault("pass2.hypo_overflow", c.Pass2.HypoOverflow)
	v.SetDefault("pass2.insertion_penalty", c.Pass2.InsertionPenalty)

	v.SetDefault("mbr.enabled", c.MBR.Enabled)
	v.SetDefault("mbr.scale_factor", c.MBR.ScaleFactor)

	v.SetDefault("reject.short_frames", c.Reject.ShortFrames)
	v.SetDefault("reject.long_frames", c.Reject.LongFrames)
	v.SetDefault("reject.power_threshold", c.Reject.PowerThreshold)

	v.SetDefault("server.listen_addr", c.Server.ListenAddr)
	v.SetDefault("server.http_addr", c.Server.HTTPAddr)
	v.SetDefault("server.workers", c.Server.Workers)
	v.SetDefault("server.shutdown_timeout_secs", c.Server.ShutdownTimeout)
	v.SetDefault("server.request_timeout_secs", c.Server.RequestTimeout)

	v.SetDefault("log_level", c.LogLevel)
}

func registerAliases(v *viper.Viper) {
	v.RegisterAlias("paths.hmmdefs_path", "paths-hmmdefs-path")
	v.RegisterAlias("paths.hmmlist_path", "paths-hmmlist-path")
	v.RegisterAlias("paths.dict_path", "paths-dict-path")
	v.RegisterAlias("paths.bigram_path", "paths-bigram-path")
	v.RegisterAlias("paths.ngram_path", "paths-ngram-path")
	v.RegisterAlias("paths.dfa_path", "paths-dfa-path")
	v.RegisterAlias("paths.manifest_path", "paths-manifest-path")

	v.RegisterAlias("acoustic.prune_mode", "acoustic-prune-mode")
	v.RegisterAlias("acoustic.top_n_gaussians", "acoustic-top-n")
	v.RegisterAlias("acoustic.beam_slack", "acoustic-beam-slack")
	v.RegisterAlias("acoustic.cd_combiner", "acoustic-cd-combiner")
	v.RegisterAlias("acoustic.cd_top_k", "acoustic-cd-top-k")
	v.RegisterAlias("acoustic.gms_enabled", "acoustic-gms-enabled")
	v.RegisterAlias("acoustic.gms_cluster_size", "acoustic-gms-cluster-size")

	v.RegisterAlias("pass1.beam_width", "pass1-beam-width")
	v.RegisterAlias("pass1.hypo_limit", "pass1-hypo-limit")
	v.RegisterAlias("pass1.word_pair_approx", "pass1-word-pair-approx")
	v.RegisterAlias("pass1.insertion_penalty", "pass1-insertion-penalty")
	v.RegisterAlias("pass1.low_memory_tree", "pass1-low-memory-tree")
	v.RegisterAlias("pass1.short_word_len", "pass1-short-word-len")

	v.RegisterAlias("pass2.nbest", "pass2-nbest")
	v.RegisterAlias("pass2.stack_size", "pass2-stack-size")
	v.RegisterAlias("pass2.hypo_overflow", "pass2-hypo-overflow")
	v.RegisterAlias("pass2.insertion_penalty", "pass2-insertion-penalty")

	v.RegisterAlias("mbr.enabled", "mbr-enabled")
	v.RegisterAlias("mbr.scale_factor", "mbr-scale-factor")

	v.RegisterAlias("reject.short_frames", "reject-short-frames")
	v.RegisterAlias("reject.long_frames", "reject-long-frames")
	v.RegisterAlias("reject.power_threshold", "reject-power-threshold")

	v.RegisterAlias("server.listen_addr", "server-listen-addr")
	v.RegisterAlias("server.http_addr", "server-http-addr")
	v.RegisterAlias("server.workers", "workers")
	v.RegisterAlias("server.shutdown_timeout_secs", "shutdown-timeout")
	v.RegisterAlias("server.request_timeout_secs", "request-timeout")

	v.RegisterAlias("log_level", "log-level")
}
