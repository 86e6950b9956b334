// Package ngrambin implements a bit-for-bit binary N-gram round trip
// (mkbingram.c's ngram_write_bin/ngram_read_bin), a supplemented feature:
// the real format is a sorted-array, context-id-compacted encoding keyed on
// NNID; this package trades that compaction for a flat per-order record
// list keyed directly on internal/lm.NGram's own (context, word) entries,
// since lm.NGram itself is a map-based table rather than the original's
// sorted-array-plus-lookup-tree structure. The header-string convention
// (free-text provenance note ahead of the binary payload) is kept as-is.
package ngrambin

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/example/lvcsr-decode/internal/lm"
)

const (
	magic   = "NGRB"
	version = uint32(1)
)

// Write serializes g to w after the magic and version, preceded by an
// arbitrary free-text header string. The header is written with a uint32
// length prefix rather than mkbingram.c's NUL terminator.
func Write(w io.Writer, g *lm.NGram, header string) error {
	bw := bufio.NewWriter(w)

	if _, err := bw.WriteString(magic); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, version); err != nil {
		return err
	}
	if err := writeString(bw, header); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, int32(g.Order)); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, int32(g.Direction)); err != nil {
		return err
	}

	for m := 1; m <= g.Order; m++ {
		entries := g.Entries(m)
		if err := binary.Write(bw, binary.LittleEndian, uint32(len(entries))); err != nil {
			return err
		}
		for _, e := range entries {
			if err := writeEntry(bw, e); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}

func writeString(w io.Writer, s string) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func writeEntry(w io.Writer, e lm.Entry) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(e.Context))); err != nil {
		return err
	}
	for _, c := range e.Context {
		if err := binary.Write(w, binary.LittleEndian, int32(c)); err != nil {
			return err
		}
	}
	if err := binary.Write(w, binary.LittleEndian, int32(e.Word)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, e.LogProb); err != nil {
		return err
	}
	hasBackoff := uint8(0)
	if e.HasBackoff {
		hasBackoff = 1
	}
	if err := binary.Write(w, binary.LittleEndian, hasBackoff); err != nil {
		return err
	}
	if e.HasBackoff {
		if err := binary.Write(w, binary.LittleEndian, e.Backoff); err != nil {
			return err
		}
	}
	return nil
}

// Read deserializes a binary N-gram written by Write, returning the
// decoded model and the free-text header string it was saved with.
func Read(r io.Reader) (*lm.NGram, string, error) {
	br := bufio.NewReader(r)

	magicBuf := make([]byte, len(magic))
	if _, err := io.ReadFull(br, magicBuf); err != nil {
		return nil, "", fmt.Errorf("ngrambin: read magic: %w", err)
	}
	if string(magicBuf) != magic {
		return nil, "", fmt.Errorf("ngrambin: bad magic %q, expected %q", magicBuf, magic)
	}

	var ver uint32
	if err := binary.Read(br, binary.LittleEndian, &ver); err != nil {
		return nil, "", fmt.Errorf("ngrambin: read version: %w", err)
	}
	if ver != version {
		return nil, "", fmt.Errorf("ngrambin: unsupported version %d", ver)
	}

	header, err := readString(br)
	if err != nil {
		return nil, "", fmt.Errorf("ngrambin: read header: %w", err)
	}

	var order, dir int32
	if err := binary.Read(br, binary.LittleEndian, &order); err != nil {
		return nil, "", fmt.Errorf("ngrambin: read order: %w", err)
	}
	if err := binary.Read(br, binary.LittleEndian, &dir); err != nil {
		return nil, "", fmt.Errorf("ngrambin: read direction: %w", err)
	}

	g := lm.NewNGram(int(order), lm.Direction(dir))
	for m := 1; m <= int(order); m++ {
		var count uint32
		if err := binary.Read(br, binary.LittleEndian, &count); err != nil {
			return nil, "", fmt.Errorf("ngrambin: read order-%d entry count: %w", m, err)
		}
		for i := uint32(0); i < count; i++ {
			context, word, logProb, backoff, err := readEntry(br)
			if err != nil {
				return nil, "", fmt.Errorf("ngrambin: read order-%d entry %d: %w", m, i, err)
			}
			g.AddEntry(context, word, logProb, backoff)
		}
	}
	return g, header, nil
}

func readString(r io.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func readEntry(r io.Reader) ([]lm.WordID, lm.WordID, float32, *float32, error) {
	var contextLen uint32
	if err := binary.Read(r, binary.LittleEndian, &contextLen); err != nil {
		return nil, 0, 0, nil, err
	}
	context := make([]lm.WordID, contextLen)
	for i := range context {
		var w int32
		if err := binary.Read(r, binary.LittleEndian, &w); err != nil {
			return nil, 0, 0, nil, err
		}
		context[i] = lm.WordID(w)
	}
	var word int32
	if err := binary.Read(r, binary.LittleEndian, &word); err != nil {
		return nil, 0, 0, nil, err
	}
	var logProb float32
	if err := binary.Read(r, binary.LittleEndian, &logProb); err != nil {
		return nil, 0, 0, nil, err
	}
	var hasBackoff uint8
	if err := binary.Read(r, binary.LittleEndian, &hasBackoff); err != nil {
		return nil, 0, 0, nil, err
	}
	var backoff *float32
	if hasBackoff != 0 {
		var b float32
		if err := binary.Read(r, binary.LittleEndian, &b); err != nil {
			return nil, 0, 0, nil, err
		}
		backoff = &b
	}
	return context, lm.WordID(word), logProb, backoff, nil
}
