package audiorec

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRecorder_WritesAndRenamesFile(t *testing.T) {
	dir := t.TempDir()
	r := NewRecorder(dir, DefaultSampleRate)

	if err := r.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := r.Write([]float32{0.1, 0.2, -0.1}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := r.Write([]float32{0.3, -0.3}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	path, err := r.Close()
	if err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if path == "" {
		t.Fatal("Close() returned empty path for non-empty recording")
	}
	if filepath.Dir(path) != dir {
		t.Errorf("recording written outside dir: %s", path)
	}
	if !strings.HasSuffix(path, ".wav") {
		t.Errorf("path %q does not end in .wav", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile(%q): %v", path, err)
	}
	samples, rate, err := DecodeWAV(data)
	if err != nil {
		t.Fatalf("DecodeWAV: %v", err)
	}
	if len(samples) != 5 {
		t.Errorf("got %d samples, want 5", len(samples))
	}
	if rate != DefaultSampleRate {
		t.Errorf("got rate %d, want %d", rate, DefaultSampleRate)
	}

	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "tmprecord.") {
			t.Errorf("temporary file left behind: %s", e.Name())
		}
	}
}

func TestRecorder_EmptyRecordingDiscarded(t *testing.T) {
	dir := t.TempDir()
	r := NewRecorder(dir, DefaultSampleRate)

	if err := r.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	path, err := r.Close()
	if err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if path != "" {
		t.Errorf("Close() = %q; want empty path for an empty recording", path)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("directory not empty after discarding empty recording: %v", entries)
	}
}

func TestRecorder_DoubleOpenFails(t *testing.T) {
	dir := t.TempDir()
	r := NewRecorder(dir, DefaultSampleRate)

	if err := r.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := r.Open(); err == nil {
		t.Error("second Open() = nil; want error")
	}
	if _, err := r.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
}

func TestRecorder_WriteWithoutOpenFails(t *testing.T) {
	r := NewRecorder(t.TempDir(), DefaultSampleRate)
	if err := r.Write([]float32{0.1}); err == nil {
		t.Error("Write() without Open = nil; want error")
	}
}

func TestRecorder_CloseWithoutOpenFails(t *testing.T) {
	r := NewRecorder(t.TempDir(), DefaultSampleRate)
	if _, err := r.Close(); err == nil {
		t.Error("Close() without Open = nil; want error")
	}
}

func TestRecorder_AppliesHooks(t *testing.T) {
	dir := t.TempDir()
	var hookCalled bool
	zero := func(s []float32) []float32 {
		hookCalled = true
		out := make([]float32, len(s))
		return out
	}

	r := NewRecorder(dir, DefaultSampleRate, zero)
	if err := r.Open(); err != nil {
		t.Fatal(err)
	}
	if err := r.Write([]float32{1.0, 1.0}); err != nil {
		t.Fatal(err)
	}
	path, err := r.Close()
	if err != nil {
		t.Fatal(err)
	}
	if !hookCalled {
		t.Error("hook was never invoked")
	}

	data, _ := os.ReadFile(path)
	samples, _, err := DecodeWAV(data)
	if err != nil {
		t.Fatal(err)
	}
	for i, s := range samples {
		if s != 0 {
			t.Errorf("sample[%d] = %f; want 0 after zeroing hook", i, s)
		}
	}
}

func TestRecorder_DefaultSampleRate(t *testing.T) {
	r := NewRecorder(t.TempDir(), 0)
	if r.sampleRate != DefaultSampleRate {
		t.Errorf("sampleRate = %d; want default %d", r.sampleRate, DefaultSampleRate)
	}
}
