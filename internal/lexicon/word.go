// Package lexicon builds the pronunciation dictionary and the WCHMM lexicon
// tree that pass 1 traverses (spec §3, §4.2). It depends on internal/amodel
// for logical HMM resolution and on internal/lm for the WordID and
// CategoryID types words are keyed on, plus the N-gram whose unigram
// probabilities AssignFactoring spreads over the tree.
package lexicon

import (
	"fmt"

	"github.com/example/lvcsr-decode/internal/amodel"
	"github.com/example/lvcsr-decode/internal/lm"
)

// PhoneSlot is one position in a word's expanded phone sequence. Word
// internal slots resolve directly to a logical HMM; boundary slots carry a
// pooled cross-word state set built lazily because the real neighbor phone
// is not known until search time (spec §4.2 step 1).
type PhoneSlot struct {
	Base      string
	Plain     *amodel.LogicalHMM   // word-internal: fully resolved triphone
	Boundary  *amodel.PseudoHMMSet // word-edge: pooled over unknown neighbor
	AtWordTop bool
	AtWordEnd bool
}

func (s PhoneSlot) NumStates() int {
	if s.Plain != nil {
		return s.Plain.NumStates()
	}
	if s.Boundary != nil {
		return s.Boundary.NumStates()
	}
	return 0
}

// Word is one dictionary entry (spec §3: "Word dictionary").
type Word struct {
	ID           lm.WordID
	Surface      string
	LMClassName  string
	Category     lm.CategoryID // meaningful only in DFA/grammar mode
	Phones       []PhoneSlot
	ClassUnigram *float32
	Transparent  bool
}

func (w *Word) NumPhones() int { return len(w.Phones) }

// Dictionary is the full word list plus the head/tail silence identities
// pass 1 and pass 2 both special-case.
type Dictionary struct {
	words       []*Word
	byID        map[lm.WordID]*Word
	bySurface   map[string][]*Word
	HeadSilence lm.WordID
	TailSilence lm.WordID
}

func NewDictionary() *Dictionary {
	return &Dictionary{byID: make(map[lm.WordID]*Word), bySurface: make(map[string][]*Word)}
}

func (d *Dictionary) AddWord(w *Word) error {
	if _, exists := d.byID[w.ID]; exists {
		return fmt.Errorf("lexicon: duplicate word id %d (%q)", w.ID, w.Surface)
	}
	d.words = append(d.words, w)
	d.byID[w.ID] = w
	d.bySurface[w.Surface] = append(d.bySurface[w.Surface], w)
	return nil
}

func (d *Dictionary) Word(id lm.WordID) (*Word, bool) {
	w, ok := d.byID[id]
	return w, ok
}

func (d *Dictionary) Words() []*Word { return d.words }

func (d *Dictionary) Len() int { return len(d.words) }

func (d *Dictionary) SetSilenceWords(head, tail lm.WordID) {
	d.HeadSilence = head
	d.TailSilence = tail
}
