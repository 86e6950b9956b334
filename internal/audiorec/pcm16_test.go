package audiorec

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestEncodeWAVPCM16_InvalidSampleRate(t *testing.T) {
	tests := []struct {
		name       string
		sampleRate int
	}{
		{"zero", 0},
		{"negative", -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := EncodeWAVPCM16([]float32{0.1}, tt.sampleRate)
			if err == nil {
				t.Errorf("EncodeWAVPCM16(rate=%d) = nil; want error", tt.sampleRate)
			}
		})
	}
}

func TestEncodeWAVPCM16_ValidOutput(t *testing.T) {
	samples := []float32{0.0, 0.5, -0.5, 1.0, -1.0}
	sampleRate := 16000

	data, err := EncodeWAVPCM16(samples, sampleRate)
	if err != nil {
		t.Fatalf("EncodeWAVPCM16 error = %v", err)
	}

	minSize := 44 + len(samples)*2
	if len(data) < minSize {
		t.Errorf("output length = %d; want at least %d", len(data), minSize)
	}
	if !bytes.HasPrefix(data, []byte("RIFF")) {
		t.Error("output does not start with RIFF")
	}
	if !bytes.Contains(data[:12], []byte("WAVE")) {
		t.Error("output does not contain WAVE marker")
	}
}

func TestEncodeWAVPCM16_SampleRateInHeader(t *testing.T) {
	sampleRate := 16000

	data, err := EncodeWAVPCM16([]float32{0}, sampleRate)
	if err != nil {
		t.Fatalf("EncodeWAVPCM16 error = %v", err)
	}

	got := binary.LittleEndian.Uint32(data[24:28])
	if int(got) != sampleRate {
		t.Errorf("sample rate in header = %d; want %d", got, sampleRate)
	}
}

func TestEncodeWAVPCM16_Clamping(t *testing.T) {
	samples := []float32{2.0, -2.0}

	data, err := EncodeWAVPCM16(samples, 44100)
	if err != nil {
		t.Fatalf("EncodeWAVPCM16 error = %v", err)
	}

	v1 := int16(binary.LittleEndian.Uint16(data[44:46]))
	v2 := int16(binary.LittleEndian.Uint16(data[46:48]))

	if v1 != 32767 {
		t.Errorf("clamped +2.0 = %d; want 32767", v1)
	}
	if v2 != -32767 {
		t.Errorf("clamped -2.0 = %d; want -32767", v2)
	}
}

func TestEncodeWAVPCM16_EmptySamples(t *testing.T) {
	data, err := EncodeWAVPCM16([]float32{}, 44100)
	if err != nil {
		t.Fatalf("EncodeWAVPCM16(empty) error = %v", err)
	}
	if len(data) < 44 {
		t.Errorf("empty WAV length = %d; want at least 44", len(data))
	}
}
