package audiorec

import (
	"encoding/binary"
	"io"
	"math"
)

// WriteWAVHeaderStreaming writes a 44-byte WAV header for streaming where
// the total data length is not known in advance, as is always the case
// when a Recorder opens its temporary capture file before an utterance's
// length is known. Both the RIFF chunk size and the data sub-chunk size
// are set to 0xFFFFFFFF, the conventional marker for an unknown length;
// Recorder.Close patches both in place once the final length is known.
func WriteWAVHeaderStreaming(w io.Writer, sampleRate int) (int, error) {
	const (
		channels      = Channels
		bitsPerSample = BitDepth
	)
	byteRate := sampleRate * channels * bitsPerSample / 8
	blockAlign := channels * bitsPerSample / 8

	var hdr [44]byte
	copy(hdr[0:4], "RIFF")
	binary.LittleEndian.PutUint32(hdr[4:8], 0xFFFFFFFF)
	copy(hdr[8:12], "WAVE")
	copy(hdr[12:16], "fmt ")
	binary.LittleEndian.PutUint32(hdr[16:20], 16)
	binary.LittleEndian.PutUint16(hdr[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(hdr[22:24], channels)
	binary.LittleEndian.PutUint32(hdr[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(hdr[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(hdr[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(hdr[34:36], bitsPerSample)
	copy(hdr[36:40], "data")
	binary.LittleEndian.PutUint32(hdr[40:44], 0xFFFFFFFF)

	return w.Write(hdr[:])
}

// PatchWAVHeaderSizes rewrites the RIFF and data chunk sizes of a header
// previously written by WriteWAVHeaderStreaming, once dataSize (in bytes)
// is known. w must support seeking back to the start of the header.
func PatchWAVHeaderSizes(w io.WriteSeeker, headerOffset int64, dataSize int64) error {
	riffSize, err := toUint32Checked(dataSize+36, "riff size")
	if err != nil {
		return err
	}
	dataSizeU32, err := toUint32Checked(dataSize, "data size")
	if err != nil {
		return err
	}

	if _, err := w.Seek(headerOffset+4, io.SeekStart); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, riffSize); err != nil {
		return err
	}
	if _, err := w.Seek(headerOffset+40, io.SeekStart); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, dataSizeU32); err != nil {
		return err
	}
	_, err = w.Seek(0, io.SeekEnd)
	return err
}

// WritePCM16Samples encodes float32 samples as little-endian 16-bit signed
// integers and writes them to w. Samples are clamped to [-1, 1].
func WritePCM16Samples(w io.Writer, samples []float32) (int, error) {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		clamped := math.Max(-1.0, math.Min(1.0, float64(s)))
		v := int16(clamped * 32767)
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(v))
	}

	return w.Write(buf)
}
