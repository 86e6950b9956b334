package bench_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/example/lvcsr-decode/internal/bench"
)

// ---------------------------------------------------------------------------
// Aggregation
// ---------------------------------------------------------------------------

func TestStats_MinMaxMean(t *testing.T) {
	runs := []bench.RunResult{
		{Duration: 100 * time.Millisecond, WordCount: 2},
		{Duration: 200 * time.Millisecond, WordCount: 3},
		{Duration: 300 * time.Millisecond, WordCount: 4},
	}
	s := bench.ComputeStats(runs)

	if s.Min != 100*time.Millisecond {
		t.Errorf("want min=100ms, got %v", s.Min)
	}
	if s.Max != 300*time.Millisecond {
		t.Errorf("want max=300ms, got %v", s.Max)
	}
	if s.Mean != 200*time.Millisecond {
		t.Errorf("want mean=200ms, got %v", s.Mean)
	}

	// 9 words in 600ms = 15 words/sec.
	if diff := s.WordsPerSec - 15.0; diff < -0.01 || diff > 0.01 {
		t.Errorf("want words/sec≈15, got %.4f", s.WordsPerSec)
	}
}

func TestStats_SingleRun(t *testing.T) {
	s := bench.ComputeStats([]bench.RunResult{{Duration: 150 * time.Millisecond, WordCount: 1}})
	if s.Min != s.Max || s.Min != s.Mean {
		t.Errorf("single run: min/max/mean should all be equal, got min=%v max=%v mean=%v", s.Min, s.Max, s.Mean)
	}
}

func TestStats_Empty(t *testing.T) {
	s := bench.ComputeStats(nil)
	if s.Min != 0 || s.Max != 0 || s.Mean != 0 || s.WordsPerSec != 0 {
		t.Errorf("want zero Stats for no runs, got %+v", s)
	}
}

// ---------------------------------------------------------------------------
// RTF calculation
// ---------------------------------------------------------------------------

func TestRTF_Calculation(t *testing.T) {
	// 1 second of audio decoded in 500ms -> RTF = 0.5
	decodeDur := 500 * time.Millisecond
	audioDur := 1 * time.Second

	rtf := bench.CalcRTF(decodeDur, audioDur)
	if rtf < 0.499 || rtf > 0.501 {
		t.Errorf("want RTF≈0.5, got %.4f", rtf)
	}
}

func TestRTF_ZeroAudioDuration(t *testing.T) {
	rtf := bench.CalcRTF(500*time.Millisecond, 0)
	if rtf != 0 {
		t.Errorf("want RTF=0 for zero audio duration, got %.4f", rtf)
	}
}

// ---------------------------------------------------------------------------
// Frame duration
// ---------------------------------------------------------------------------

func TestFrameDuration(t *testing.T) {
	// 150 frames at 10ms/frame is 1.5s of audio.
	dur := bench.FrameDuration(150, 10.0)
	if dur != 1500*time.Millisecond {
		t.Errorf("want 1.5s, got %v", dur)
	}
}

func TestFrameDuration_InvalidInputsReturnZero(t *testing.T) {
	if d := bench.FrameDuration(0, 10.0); d != 0 {
		t.Errorf("want 0 for zero frame count, got %v", d)
	}
	if d := bench.FrameDuration(100, 0); d != 0 {
		t.Errorf("want 0 for zero frame shift, got %v", d)
	}
}

// ---------------------------------------------------------------------------
// RTF threshold gate
// ---------------------------------------------------------------------------

func TestRTFThreshold_ExceedsThreshold(t *testing.T) {
	// Mean RTF = 1.5, threshold = 1.0 -> should fail
	err := bench.CheckRTFThreshold(1.5, 1.0)
	if err == nil {
		t.Error("want error when mean RTF exceeds threshold")
	}
}

func TestRTFThreshold_BelowThreshold(t *testing.T) {
	err := bench.CheckRTFThreshold(0.8, 1.0)
	if err != nil {
		t.Errorf("want no error when RTF below threshold, got: %v", err)
	}
}

func TestRTFThreshold_ExactlyAtThreshold(t *testing.T) {
	err := bench.CheckRTFThreshold(1.0, 1.0)
	if err != nil {
		t.Errorf("want no error at exact threshold, got: %v", err)
	}
}

func TestRTFThreshold_DisabledWhenZero(t *testing.T) {
	err := bench.CheckRTFThreshold(9999, 0)
	if err != nil {
		t.Errorf("threshold=0 should disable gate, got: %v", err)
	}
}

// ---------------------------------------------------------------------------
// Output formatting
// ---------------------------------------------------------------------------

func TestFormatTable_ContainsHeaders(t *testing.T) {
	runs := []bench.RunResult{
		{Index: 0, Cold: true, Duration: 800 * time.Millisecond, RTF: 0.8, AudioDuration: time.Second, WordCount: 3, TotalScore: -120.5},
		{Index: 1, Cold: false, Duration: 500 * time.Millisecond, RTF: 0.5, AudioDuration: time.Second, WordCount: 3, TotalScore: -118.2},
	}
	stats := bench.ComputeStats(runs)

	var buf strings.Builder
	bench.FormatTable(runs, stats, &buf)
	out := buf.String()

	for _, want := range []string{"run", "cold", "ms", "rtf", "words", "score"} {
		if !strings.Contains(strings.ToLower(out), want) {
			t.Errorf("table output missing %q:\n%s", want, out)
		}
	}
}

func TestFormatJSON_IsValidJSON(t *testing.T) {
	runs := []bench.RunResult{
		{Index: 0, Cold: true, Duration: 800 * time.Millisecond, RTF: 0.8, AudioDuration: time.Second, WordCount: 4, TotalScore: -90.1},
	}
	stats := bench.ComputeStats(runs)

	var buf bytes.Buffer
	bench.FormatJSON(runs, stats, &buf)

	var out struct {
		Runs []struct {
			WordCount int     `json:"word_count"`
			RTF       float64 `json:"rtf"`
		} `json:"runs"`
		Stats struct {
			WordsPerSec float64 `json:"words_per_sec"`
		} `json:"stats"`
	}

	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("FormatJSON produced invalid JSON: %v\n%s", err, buf.String())
	}
	if len(out.Runs) != 1 || out.Runs[0].WordCount != 4 {
		t.Errorf("want word_count=4 in decoded JSON, got %+v", out.Runs)
	}
}
