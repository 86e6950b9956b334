package modelio

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/example/lvcsr-decode/internal/amodel"
	"github.com/example/lvcsr-decode/internal/lexicon"
	"github.com/example/lvcsr-decode/internal/lm"
)

// headSilenceSurface and tailSilenceSurface are the reserved dictionary
// entries LoadDictionary wires to Dictionary.SetSilenceWords, matching the
// convention of reserving a fixed sentence-boundary symbol rather than
// requiring a separate out-of-band configuration entry.
const (
	headSilenceSurface = "<s>"
	tailSilenceSurface = "</s>"
)

// LoadDictionary reads a pronunciation dictionary, one word per line:
//
//	surface phone1 phone2 ... phoneN
//
// Word ids are assigned sequentially in file order, the same convention
// Julius's own dictionary reader uses. Blank lines and lines starting with
// '#' are skipped. The reserved surfaces "<s>" and "</s>" are registered as
// the head/tail silence words.
func LoadDictionary(r io.Reader, idx *amodel.Index) (*lexicon.Dictionary, error) {
	dict := lexicon.NewDictionary()
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)

	var nextID lm.WordID
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return nil, fmt.Errorf("modelio: dict line %d: expected a surface and at least one phone", lineNo)
		}
		surface := fields[0]
		phoneNames := fields[1:]

		slots, err := lexicon.ExpandPhoneSequence(idx, phoneNames)
		if err != nil {
			return nil, fmt.Errorf("modelio: dict line %d (%q): %w", lineNo, surface, err)
		}

		id := nextID
		nextID++
		w := &lexicon.Word{ID: id, Surface: surface, Phones: slots}
		if err := dict.AddWord(w); err != nil {
			return nil, fmt.Errorf("modelio: dict line %d: %w", lineNo, err)
		}

		switch surface {
		case headSilenceSurface:
			dict.SetSilenceWords(id, dict.TailSilence)
		case tailSilenceSurface:
			dict.SetSilenceWords(dict.HeadSilence, id)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return dict, nil
}

// WriteDictionary serializes dict back to the same text format LoadDictionary
// reads, flattening each word's PhoneSlot.Base sequence.
func WriteDictionary(w io.Writer, dict *lexicon.Dictionary) error {
	bw := bufio.NewWriter(w)
	for _, word := range dict.Words() {
		phones := make([]string, len(word.Phones))
		for i, p := range word.Phones {
			phones[i] = p.Base
		}
		if _, err := fmt.Fprintf(bw, "%s %s\n", word.Surface, strings.Join(phones, " ")); err != nil {
			return err
		}
	}
	return bw.Flush()
}
