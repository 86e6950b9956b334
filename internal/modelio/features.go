package modelio

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/example/lvcsr-decode/internal/amodel"
)

// LoadFrameVectors reads a whitespace-delimited ASCII feature file, one
// frame per line, and returns the parsed internal/amodel.FrameVector
// values: the feature-vector input interface's concrete wire format,
// sitting on the far side of the boundary internal/audiorec stops at (this
// decoder never extracts features from PCM audio itself). A dimension
// written as "x" is flagged Missing rather than parsed as a number,
// carrying outprob.c's MSD skip-dimension convention through the file
// format rather than inventing a separate sidecar.
func LoadFrameVectors(r io.Reader) ([]amodel.FrameVector, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)

	var frames []amodel.FrameVector
	dim := -1
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if dim == -1 {
			dim = len(fields)
		} else if len(fields) != dim {
			return nil, fmt.Errorf("modelio: feature line %d: expected %d dimensions, got %d", lineNo, dim, len(fields))
		}

		values := make([]float32, dim)
		var missing []bool
		for i, f := range fields {
			if f == "x" {
				if missing == nil {
					missing = make([]bool, dim)
				}
				missing[i] = true
				continue
			}
			v, err := strconv.ParseFloat(f, 32)
			if err != nil {
				return nil, fmt.Errorf("modelio: feature line %d: invalid value %q: %w", lineNo, f, err)
			}
			values[i] = float32(v)
		}
		frames = append(frames, amodel.FrameVector{Values: values, Missing: missing})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("modelio: feature file defines no frames")
	}
	return frames, nil
}

// WriteFrameVectors serializes frames back to LoadFrameVectors' format,
// used by lvcsr-tools fixtures and round-trip tests.
func WriteFrameVectors(w io.Writer, frames []amodel.FrameVector) error {
	bw := bufio.NewWriter(w)
	for _, f := range frames {
		for i, v := range f.Values {
			if i > 0 {
				if err := bw.WriteByte(' '); err != nil {
					return err
				}
			}
			if i < len(f.Missing) && f.Missing[i] {
				if _, err := bw.WriteString("x"); err != nil {
					return err
				}
				continue
			}
			if _, err := fmt.Fprintf(bw, "%g", v); err != nil {
				return err
			}
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}
