package bench_test

import (
	"testing"
	"time"

	"github.com/example/lvcsr-decode/internal/bench"
)

func TestFrameDuration_NegativeInputsReturnZero(t *testing.T) {
	if d := bench.FrameDuration(-1, 10.0); d != 0 {
		t.Fatalf("expected 0 for a negative frame count, got %v", d)
	}
	if d := bench.FrameDuration(100, -5.0); d != 0 {
		t.Fatalf("expected 0 for a negative frame shift, got %v", d)
	}
}

func TestFrameDuration_FractionalShift(t *testing.T) {
	// 100 frames at 12.5ms/frame is 1.25s.
	d := bench.FrameDuration(100, 12.5)
	if d != 1250*time.Millisecond {
		t.Fatalf("expected 1.25s, got %v", d)
	}
}
