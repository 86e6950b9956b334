package audiorec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// EncodeWAVPCM16 builds a complete, length-known WAV file from samples at
// the given rate. Used for one-shot encoding once an utterance's full
// sample buffer is available, as opposed to the streaming writer used
// during live capture.
//
//nolint:funlen // WAV header construction stays explicit and validated in one place.
func EncodeWAVPCM16(samples []float32, sampleRate int) ([]byte, error) {
	if sampleRate < 1 {
		return nil, fmt.Errorf("invalid sample rate: %d", sampleRate)
	}

	pcm := make([]int16, len(samples))
	for i, s := range samples {
		clamped := math.Max(-1.0, math.Min(1.0, float64(s)))
		pcm[i] = int16(clamped * 32767)
	}

	const channels = Channels
	const bitsPerSample = BitDepth
	byteRate := int64(sampleRate) * channels * bitsPerSample / 8
	blockAlign := channels * bitsPerSample / 8
	dataSize := int64(len(pcm)) * 2
	riffSize := int64(4+(8+16)+8) + dataSize

	riffSizeU32, err := toUint32Checked(riffSize, "riff size")
	if err != nil {
		return nil, err
	}

	sampleRateU32, err := toUint32Checked(int64(sampleRate), "sample rate")
	if err != nil {
		return nil, err
	}

	byteRateU32, err := toUint32Checked(byteRate, "byte rate")
	if err != nil {
		return nil, err
	}

	dataSizeU32, err := toUint32Checked(dataSize, "data size")
	if err != nil {
		return nil, err
	}

	buf := &bytes.Buffer{}
	buf.WriteString("RIFF")
	_ = binary.Write(buf, binary.LittleEndian, riffSizeU32)
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	_ = binary.Write(buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(buf, binary.LittleEndian, uint16(1))
	_ = binary.Write(buf, binary.LittleEndian, uint16(channels))
	_ = binary.Write(buf, binary.LittleEndian, sampleRateU32)
	_ = binary.Write(buf, binary.LittleEndian, byteRateU32)
	_ = binary.Write(buf, binary.LittleEndian, uint16(blockAlign))
	_ = binary.Write(buf, binary.LittleEndian, uint16(bitsPerSample))
	buf.WriteString("data")

	_ = binary.Write(buf, binary.LittleEndian, dataSizeU32)
	for _, s := range pcm {
		_ = binary.Write(buf, binary.LittleEndian, s)
	}

	return buf.Bytes(), nil
}
