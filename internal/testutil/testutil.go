// Package testutil provides shared skip helpers for integration tests.
//
// Each helper calls t.Skip with a clear human-readable reason when the named
// prerequisite is absent, so integration tests remain runnable in partial
// environments (e.g. CI with no model files checked in) without failing
// noisily.
//
// Typical usage:
//
//	func TestMyIntegration(t *testing.T) {
//	    dir := testutil.RequireModelDir(t)
//	    ...
//	}
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// ModelDirEnv names the environment variable pointing at a directory of
// real model files (hmmdefs, hmmlist, dictionary, N-grams, DFA, manifest)
// for tests that need more than the small fixtures committed in-tree.
const ModelDirEnv = "LVCSR_MODEL_DIR"

// RequireModelDir skips the test if LVCSR_MODEL_DIR is unset or does not
// point at an existing directory, and returns the directory path otherwise.
func RequireModelDir(t testing.TB) string {
	t.Helper()
	dir := os.Getenv(ModelDirEnv)
	if dir == "" {
		t.Skipf("%s not set; skipping test that needs a real model directory", ModelDirEnv)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Skipf("%s=%q not accessible: %v", ModelDirEnv, dir, err)
	}
	return dir
}

// RequireModelFile skips the test if name does not exist inside the
// directory returned by RequireModelDir, and returns the joined path.
func RequireModelFile(t testing.TB, name string) string {
	t.Helper()
	dir := RequireModelDir(t)
	path := filepath.Join(dir, name)
	if _, err := os.Stat(path); err != nil {
		t.Skipf("model file %q not found under %s: %v", name, dir, err)
	}
	return path
}

// RequireAudioDevice skips the test if no capture device can be opened.
// Audio capture integration tests run only when LVCSR_AUDIO_DEVICE_OK=1 is
// set, since CI containers typically have no microphone and probing one
// unconditionally would hang or crash the test binary.
func RequireAudioDevice(t testing.TB) {
	t.Helper()
	if os.Getenv("LVCSR_AUDIO_DEVICE_OK") != "1" {
		t.Skip("no audio capture device available; set LVCSR_AUDIO_DEVICE_OK=1 to run this test against real hardware")
	}
}

// SilenceWAVPath returns the path to the committed 100 ms silence fixture
// WAV, relative to the repository root. Callers should use this as a
// stand-in utterance when a real audio capture device is unavailable.
func SilenceWAVPath() string {
	return filepath.Join("cmd", "lvcsr-decode", "testdata", "silence_100ms.wav")
}
