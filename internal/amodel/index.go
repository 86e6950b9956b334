package amodel

import (
	"fmt"
	"sort"
)

// Index is the acoustic-model index (spec §2): physical HMMs, the logical
// name table, pseudo-phone sets, codebooks, and the running state-id
// allocator. It is built once at load time and is read-only afterward; all
// of internal/acoustic and internal/search treat it as immutable.
type Index struct {
	physical map[string]*PhysicalHMM
	logical  map[string]*LogicalHMM
	codebook map[CodebookID]*Codebook
	nextSid  StateID

	// fallbackLog records unknown-triphone fallback events (spec §9,
	// design note on cdset.c): a warning, not an abort.
	fallbackLog []FallbackEvent
}

// FallbackEvent records that a logical name failed to resolve directly and
// was served by the closest pseudo phone instead.
type FallbackEvent struct {
	Requested string
	Resolved  string
}

// NewIndex creates an empty Index.
func NewIndex() *Index {
	return &Index{
		physical: make(map[string]*PhysicalHMM),
		logical:  make(map[string]*LogicalHMM),
		codebook: make(map[CodebookID]*Codebook),
	}
}

// NextStateID allocates and returns the next globally unique state id. It is
// exposed so loaders (internal/modelio) and pseudo-set construction
// (BuildPseudoHMMSet) share one counter and every state ends up with
// 0 <= sid < TotalStateNum (spec §3 invariant).
func (ix *Index) NextStateID() StateID {
	id := ix.nextSid
	ix.nextSid++
	return id
}

// TotalStateNum returns the number of state ids allocated so far.
func (ix *Index) TotalStateNum() int { return int(ix.nextSid) }

// AddPhysical registers a physical HMM definition after validating it.
func (ix *Index) AddPhysical(h *PhysicalHMM) error {
	if err := h.Validate(); err != nil {
		return err
	}
	if _, exists := ix.physical[h.Name]; exists {
		return fmt.Errorf("amodel: duplicate physical hmm %q", h.Name)
	}
	ix.physical[h.Name] = h
	return nil
}

// AddLogical registers a logical-name mapping, e.g. from an HMMList entry.
func (ix *Index) AddLogical(l *LogicalHMM) error {
	if _, exists := ix.logical[l.Name]; exists {
		return fmt.Errorf("amodel: duplicate logical hmm %q", l.Name)
	}
	ix.logical[l.Name] = l
	return nil
}

// AddCodebook registers a shared codebook.
func (ix *Index) AddCodebook(c *Codebook) error {
	if _, exists := ix.codebook[c.ID]; exists {
		return fmt.Errorf("amodel: duplicate codebook id %d", c.ID)
	}
	ix.codebook[c.ID] = c
	return nil
}

// Physical looks up a physical HMM by name.
func (ix *Index) Physical(name string) (*PhysicalHMM, bool) {
	h, ok := ix.physical[name]
	return h, ok
}

// Codebook looks up a codebook by id.
func (ix *Index) Codebook(id CodebookID) (*Codebook, bool) {
	c, ok := ix.codebook[id]
	return c, ok
}

// Resolve looks up a logical HMM by name. Every logical name appearing in
// the lexicon must resolve (spec §3 invariant); Resolve itself never
// fabricates a fallback — that is the caller's job via ResolveOrFallback,
// because only the caller (lexicon build) knows the acceptable substitutes.
func (ix *Index) Resolve(name string) (*LogicalHMM, bool) {
	l, ok := ix.logical[name]
	return l, ok
}

// ResolveOrFallback resolves name directly if possible; otherwise it
// consults fallback (typically the pseudo-phone set for the same base
// phone) and records a FallbackEvent rather than failing, matching
// cdset.c's "fall back to the closest pseudo phone and record the event"
// behavior (spec §9 supplemented feature).
func (ix *Index) ResolveOrFallback(name string, fallback *LogicalHMM) (*LogicalHMM, bool) {
	if l, ok := ix.logical[name]; ok {
		return l, false
	}
	if fallback == nil {
		return nil, false
	}
	ix.fallbackLog = append(ix.fallbackLog, FallbackEvent{Requested: name, Resolved: fallback.Name})
	return fallback, true
}

// FallbackEvents returns all recorded unknown-triphone fallback events,
// ordered by first occurrence.
func (ix *Index) FallbackEvents() []FallbackEvent {
	return append([]FallbackEvent(nil), ix.fallbackLog...)
}

// LogicalNames returns all registered logical HMM names in sorted order,
// used by diagnostics and tests.
func (ix *Index) LogicalNames() []string {
	names := make([]string, 0, len(ix.logical))
	for n := range ix.logical {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
