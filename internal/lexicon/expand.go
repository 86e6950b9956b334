package lexicon

import (
	"fmt"

	"github.com/example/lvcsr-decode/internal/amodel"
)

// ExpandPhoneSequence turns a word's base phone labels into a slice of
// PhoneSlots: word-internal positions resolve to an exact triphone, and the
// two edge positions (or the single position of a one-phone word) become
// cross-word pseudo-phone sets pooled over every possible real neighbor
// (spec §4.2 step 1).
func ExpandPhoneSequence(idx *amodel.Index, phones []string) ([]PhoneSlot, error) {
	n := len(phones)
	if n == 0 {
		return nil, fmt.Errorf("lexicon: word has no phones")
	}
	slots := make([]PhoneSlot, n)

	if n == 1 {
		pseudo, err := BuildBoundaryPseudo(idx, phones[0], amodel.ContextMono, "")
		if err != nil {
			return nil, err
		}
		slots[0] = PhoneSlot{Base: phones[0], Boundary: pseudo, AtWordTop: true, AtWordEnd: true}
		return slots, nil
	}

	first, err := BuildBoundaryPseudo(idx, phones[0], amodel.ContextRight, phones[1])
	if err != nil {
		return nil, fmt.Errorf("lexicon: word-initial phone %q: %w", phones[0], err)
	}
	slots[0] = PhoneSlot{Base: phones[0], Boundary: first, AtWordTop: true}

	for i := 1; i < n-1; i++ {
		logical, err := ExpandWordInternal(idx, phones[i-1], phones[i], phones[i+1])
		if err != nil {
			return nil, err
		}
		slots[i] = PhoneSlot{Base: phones[i], Plain: logical}
	}

	last, err := BuildBoundaryPseudo(idx, phones[n-1], amodel.ContextLeft, phones[n-2])
	if err != nil {
		return nil, fmt.Errorf("lexicon: word-final phone %q: %w", phones[n-1], err)
	}
	slots[n-1] = PhoneSlot{Base: phones[n-1], Boundary: last, AtWordEnd: true}

	return slots, nil
}
