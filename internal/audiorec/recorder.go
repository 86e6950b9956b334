package audiorec

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Recorder captures one utterance at a time to disk. It never buffers the
// whole utterance in memory: samples are written to a temporary file as
// they arrive, and on Close the temporary file is atomically renamed to a
// timestamp name, matching Julius's own module-server recording behavior
// (record.c): the rename happens only once an input is known to be
// non-empty, so an utterance that never produced a sample leaves the
// directory untouched.
type Recorder struct {
	dir        string
	sampleRate int
	hooks      []Hook

	f            *os.File
	tmpPath      string
	headerOffset int64
	dataLen      int64
	timestamp    string
}

// NewRecorder creates a Recorder that writes utterance files under dir at
// sampleRate. dir must already exist and be writable.
func NewRecorder(dir string, sampleRate int, hooks ...Hook) *Recorder {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	return &Recorder{dir: dir, sampleRate: sampleRate, hooks: hooks}
}

// Open starts a new utterance capture, opening a process-unique temporary
// file and writing a placeholder streaming header to it.
func (r *Recorder) Open() error {
	if r.f != nil {
		return fmt.Errorf("audiorec: Open called before previous recording was closed")
	}

	r.tmpPath = filepath.Join(r.dir, fmt.Sprintf("tmprecord.%d", os.Getpid()))
	f, err := os.Create(r.tmpPath)
	if err != nil {
		return fmt.Errorf("audiorec: opening temporary file %q: %w", r.tmpPath, err)
	}

	if _, err := WriteWAVHeaderStreaming(f, r.sampleRate); err != nil {
		_ = f.Close()
		_ = os.Remove(r.tmpPath)
		return fmt.Errorf("audiorec: writing header: %w", err)
	}

	r.f = f
	r.headerOffset = 0
	r.dataLen = 0
	r.timestamp = ""

	return nil
}

// Write appends one block of captured samples to the current utterance.
// The utterance's timestamp is taken at the first call to Write, matching
// how record_sample_write stamps the base filename at the start of
// recording rather than at Open or Close.
func (r *Recorder) Write(samples []float32) error {
	if r.f == nil {
		return fmt.Errorf("audiorec: Write called without an open recording")
	}
	if r.dataLen == 0 {
		r.timestamp = timestring(time.Now())
	}

	out := ApplyHooks(samples, r.hooks...)
	n, err := WritePCM16Samples(r.f, out)
	if err != nil {
		return fmt.Errorf("audiorec: writing samples: %w", err)
	}
	r.dataLen += int64(n)

	return nil
}

// Close ends the current utterance. If any samples were written it patches
// the WAV header's size fields and atomically renames the temporary file
// to its final timestamp name, returning that path. If no samples were
// written the temporary file is discarded and Close returns ("", nil).
func (r *Recorder) Close() (string, error) {
	if r.f == nil {
		return "", fmt.Errorf("audiorec: Close called without an open recording")
	}
	f := r.f
	r.f = nil

	if r.dataLen == 0 {
		_ = f.Close()
		_ = os.Remove(r.tmpPath)
		return "", nil
	}

	if err := PatchWAVHeaderSizes(f, r.headerOffset, r.dataLen); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("audiorec: patching header: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("audiorec: closing temporary file: %w", err)
	}

	finalPath := filepath.Join(r.dir, r.timestamp+".wav")
	if err := os.Rename(r.tmpPath, finalPath); err != nil {
		return "", fmt.Errorf("audiorec: renaming %q to %q: %w", r.tmpPath, finalPath, err)
	}

	return finalPath, nil
}

// timestring formats t the way record.c's timestring() does, producing
// base names like "2026.0801.143002".
func timestring(t time.Time) string {
	return t.Format("2006.0102.150405")
}
