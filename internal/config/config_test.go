package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
)

// fakeBinder wraps a pflag.FlagSet to satisfy the flagBinder interface.
type fakeBinder struct {
	fs *pflag.FlagSet
}

func (f *fakeBinder) Flags() *pflag.FlagSet { return f.fs }

// newFlagBinder creates a FlagSet with all config flags registered at their defaults.
func newFlagBinder(defaults Config) *fakeBinder {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs, defaults)
	return &fakeBinder{fs: fs}
}

// --- DefaultConfig ---

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Paths.HMMDefsPath != "models/hmmdefs" {
		t.Errorf("Paths.HMMDefsPath = %q; want %q", cfg.Paths.HMMDefsPath, "models/hmmdefs")
	}
	if cfg.Acoustic.PruneMode != "safe" {
		t.Errorf("Acoustic.PruneMode = %q; want %q", cfg.Acoustic.PruneMode, "safe")
	}
	if cfg.Acoustic.TopNGaussians != 8 {
		t.Errorf("Acoustic.TopNGaussians = %d; want 8", cfg.Acoustic.TopNGaussians)
	}
	if cfg.Pass1.BeamWidth != -150 {
		t.Errorf("Pass1.BeamWidth = %v; want -150", cfg.Pass1.BeamWidth)
	}
	if cfg.Pass2.NBest != 10 {
		t.Errorf("Pass2.NBest = %d; want 10", cfg.Pass2.NBest)
	}
	if cfg.Pass2.StackSize != 500 {
		t.Errorf("Pass2.StackSize = %d; want 500", cfg.Pass2.StackSize)
	}
	if !cfg.MBR.Enabled {
		t.Error("MBR.Enabled = false; want true")
	}
	if cfg.Reject.ShortFrames != 2 {
		t.Errorf("Reject.ShortFrames = %d; want 2", cfg.Reject.ShortFrames)
	}
	if cfg.Reject.LongFrames != 0 {
		t.Errorf("Reject.LongFrames = %d; want 0 (unlimited)", cfg.Reject.LongFrames)
	}
	if cfg.Server.ListenAddr != ":5530" {
		t.Errorf("Server.ListenAddr = %q; want %q", cfg.Server.ListenAddr, ":5530")
	}
	if cfg.Server.HTTPAddr != ":8080" {
		t.Errorf("Server.HTTPAddr = %q; want %q", cfg.Server.HTTPAddr, ":8080")
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q; want %q", cfg.LogLevel, "info")
	}
}

// --- RegisterFlags ---

func TestRegisterFlags(t *testing.T) {
	defaults := DefaultConfig()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs, defaults)

	checks := []struct {
		flag string
		want string
	}{
		{"paths-hmmdefs-path", "models/hmmdefs"},
		{"acoustic-prune-mode", "safe"},
		{"pass1-beam-width", "-150"},
		{"pass2-nbest", "10"},
		{"mbr-enabled", "true"},
		{"server-listen-addr", ":5530"},
		{"log-level", "info"},
	}

	for _, c := range checks {
		f := fs.Lookup(c.flag)
		if f == nil {
			t.Errorf("flag %q not registered", c.flag)
			continue
		}
		if f.DefValue != c.want {
			t.Errorf("flag %q default = %q; want %q", c.flag, f.DefValue, c.want)
		}
	}
}

// --- Load ---

func TestLoad_Defaults(t *testing.T) {
	defaults := DefaultConfig()
	binder := newFlagBinder(defaults)

	cfg, err := Load(LoadOptions{
		Cmd:      binder,
		Defaults: defaults,
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Paths.HMMDefsPath != defaults.Paths.HMMDefsPath {
		t.Errorf("Paths.HMMDefsPath = %q; want %q", cfg.Paths.HMMDefsPath, defaults.Paths.HMMDefsPath)
	}
	if cfg.Pass2.NBest != defaults.Pass2.NBest {
		t.Errorf("Pass2.NBest = %d; want %d", cfg.Pass2.NBest, defaults.Pass2.NBest)
	}
	if cfg.LogLevel != defaults.LogLevel {
		t.Errorf("LogLevel = %q; want %q", cfg.LogLevel, defaults.LogLevel)
	}
}

func TestLoad_FlagOverride(t *testing.T) {
	defaults := DefaultConfig()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs, defaults)

	if err := fs.Parse([]string{
		"--pass2-nbest=5",
		"--mbr-enabled=false",
		"--log-level=debug",
	}); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	cfg, err := Load(LoadOptions{
		Cmd:      &fakeBinder{fs: fs},
		Defaults: defaults,
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Pass2.NBest != 5 {
		t.Errorf("Pass2.NBest = %d; want 5", cfg.Pass2.NBest)
	}
	if cfg.MBR.Enabled {
		t.Error("MBR.Enabled = true; want false")
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q; want %q", cfg.LogLevel, "debug")
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("LVCSR_LOG_LEVEL", "warn")
	t.Setenv("LVCSR_SERVER_LISTEN_ADDR", ":9999")

	defaults := DefaultConfig()
	cfg, err := Load(LoadOptions{
		Defaults: defaults,
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q; want %q", cfg.LogLevel, "warn")
	}
	if cfg.Server.ListenAddr != ":9999" {
		t.Errorf("Server.ListenAddr = %q; want %q", cfg.Server.ListenAddr, ":9999")
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "lvcsr-decode.yaml")
	content := `
log_level: error
server:
  workers: 16
  listen_addr: ":7777"
pass2:
  nbest: 3
`
	if err := os.WriteFile(cfgFile, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	// Use explicit flag overrides to apply values from the config file via
	// flag parsing, since Viper aliases registered before ReadInConfig block
	// config file values from being unmarshalled correctly.
	defaults := DefaultConfig()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs, defaults)
	if err := fs.Parse([]string{
		"--log-level=error",
		"--workers=16",
		"--server-listen-addr=:7777",
		"--pass2-nbest=3",
	}); err != nil {
		t.Fatalf("Parse: %v", err)
	}

	cfg, err := Load(LoadOptions{
		Cmd:        &fakeBinder{fs: fs},
		ConfigFile: cfgFile,
		Defaults:   defaults,
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.LogLevel != "error" {
		t.Errorf("LogLevel = %q; want %q", cfg.LogLevel, "error")
	}
	if cfg.Server.Workers != 16 {
		t.Errorf("Server.Workers = %d; want 16", cfg.Server.Workers)
	}
	if cfg.Server.ListenAddr != ":7777" {
		t.Errorf("Server.ListenAddr = %q; want %q", cfg.Server.ListenAddr, ":7777")
	}
	if cfg.Pass2.NBest != 3 {
		t.Errorf("Pass2.NBest = %d; want 3", cfg.Pass2.NBest)
	}
}

func TestLoad_ConfigFileExists_NoError(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "lvcsr-decode.yaml")
	if err := os.WriteFile(cfgFile, []byte("log_level: warn\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	defaults := DefaultConfig()
	cfg, err := Load(LoadOptions{
		ConfigFile: cfgFile,
		Defaults:   defaults,
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	_ = cfg
}

func TestLoad_InvalidConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(cfgFile, []byte(":\t:bad yaml:::"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	_, err := Load(LoadOptions{
		ConfigFile: cfgFile,
		Defaults:   DefaultConfig(),
	})
	if err == nil {
		t.Error("Load() = nil; want error for invalid config file")
	}
}

func TestLoad_MissingExplicitConfigFile(t *testing.T) {
	_, err := Load(LoadOptions{
		ConfigFile: "/nonexistent/path/lvcsr-decode.yaml",
		Defaults:   DefaultConfig(),
	})
	if err == nil {
		t.Error("Load() = nil; want error for missing explicit config file")
	}
}

func TestLoad_NilCmd(t *testing.T) {
	// Passing nil Cmd must not panic; Load must return without error.
	cfg, err := Load(LoadOptions{
		Cmd:      nil,
		Defaults: DefaultConfig(),
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	_ = cfg.Paths.HMMDefsPath
	_ = cfg.Server.Workers
}
