package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/example/lvcsr-decode/internal/lm"
)

// vocab is a stable, bidirectional surface<->lm.WordID mapping loaded from
// a plain one-surface-per-line file. Blank lines, '#' comment lines and
// repeated surfaces are skipped; each remaining surface's position among the
// kept lines (0-based) is its word ID.
// Kept separate from internal/lexicon.Dictionary since neither
// generate-ngram.c nor mkbingram.c consult the phone dictionary: N-gram
// word IDs are assigned purely from the model's own vocabulary list.
type vocab struct {
	ids  map[string]lm.WordID
	byID []string
}

func loadVocab(r io.Reader) (*vocab, error) {
	v := &vocab{ids: make(map[string]lm.WordID)}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if _, exists := v.ids[line]; exists {
			continue
		}
		id := lm.WordID(len(v.byID))
		v.ids[line] = id
		v.byID = append(v.byID, line)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(v.byID) == 0 {
		return nil, fmt.Errorf("vocab file defines no words")
	}
	return v, nil
}

func (v *vocab) wordID(surface string) lm.WordID {
	if id, ok := v.ids[surface]; ok {
		return id
	}
	id := lm.WordID(len(v.byID))
	v.ids[surface] = id
	v.byID = append(v.byID, surface)
	return id
}

func (v *vocab) surface(id lm.WordID) string {
	if int(id) < 0 || int(id) >= len(v.byID) {
		return fmt.Sprintf("<unk:%d>", id)
	}
	return v.byID[id]
}
