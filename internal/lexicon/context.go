package lexicon

import (
	"fmt"
	"strings"

	"github.com/example/lvcsr-decode/internal/amodel"
)

// triphoneParts splits a triphone logical name of the canonical form
// "left-center+right" into its three phone labels. Names that don't match
// (monophones, biphones) return ok=false.
func triphoneParts(name string) (left, center, right string, ok bool) {
	dash := strings.IndexByte(name, '-')
	plus := strings.LastIndexByte(name, '+')
	if dash < 0 || plus < 0 || plus < dash {
		return "", "", "", false
	}
	return name[:dash], name[dash+1 : plus], name[plus+1:], true
}

// ExpandWordInternal resolves one word-internal phone (both neighbors known)
// to its exact triphone logical HMM, falling back to the biphone or
// monophone form when the triphone is undefined (spec §4.2 step 1, grounded
// on cdset.c's context back-off order: triphone, biphone, monophone).
func ExpandWordInternal(idx *amodel.Index, left, center, right string) (*amodel.LogicalHMM, error) {
	candidates := []string{
		fmt.Sprintf("%s-%s+%s", left, center, right),
		fmt.Sprintf("%s-%s", left, center),
		fmt.Sprintf("%s+%s", center, right),
		center,
	}
	for _, name := range candidates {
		if l, ok := idx.Resolve(name); ok {
			return l, nil
		}
	}
	return nil, fmt.Errorf("lexicon: no triphone, biphone, or monophone definition for %q in context %s_%s", center, left, right)
}

// contributorsFor scans the index for every triphone logical HMM whose
// known side matches neighbor and whose base phone matches base, returning
// their physical HMMs as pooling contributors.
func contributorsFor(idx *amodel.Index, base string, ctx amodel.PhoneContext, neighbor string) []*amodel.PhysicalHMM {
	var out []*amodel.PhysicalHMM
	seen := make(map[string]bool)
	for _, name := range idx.LogicalNames() {
		left, center, right, ok := triphoneParts(name)
		if !ok || center != base {
			continue
		}
		switch ctx {
		case amodel.ContextLeft:
			if left != neighbor {
				continue
			}
		case amodel.ContextRight:
			if right != neighbor {
				continue
			}
		}
		logical, ok := idx.Resolve(name)
		if !ok || logical.Kind != amodel.LogicalPhysical || logical.Physical == nil {
			continue
		}
		key := logical.Physical.Name
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, logical.Physical)
	}
	return out
}

// BuildBoundaryPseudo pools every triphone sharing the known neighbor side
// into a PseudoHMMSet representing the unresolved cross-word position
// (spec §4.2 step 1: "word-boundary phones become pseudo-phone sets indexed
// by cross-word context"). It falls back to the base monophone's own
// physical HMM as the sole contributor when no triphone shares the known
// side, matching cdset.c's closest-fallback behavior.
func BuildBoundaryPseudo(idx *amodel.Index, base string, ctx amodel.PhoneContext, neighbor string) (*amodel.PseudoHMMSet, error) {
	contributors := contributorsFor(idx, base, ctx, neighbor)
	if len(contributors) == 0 {
		mono, ok := idx.Physical(base)
		if !ok {
			return nil, fmt.Errorf("lexicon: no contributors and no monophone fallback for base phone %q", base)
		}
		contributors = []*amodel.PhysicalHMM{mono}
	}
	return amodel.BuildPseudoHMMSet(base, ctx, neighbor, contributors, idx.NextStateID)
}
