// Package modelio loads the on-disk model formats spec §6 documents (HTK
// text acoustic-model definitions, ARPA and binary N-grams, Julius-style
// DFA grammars, and pronunciation dictionaries) into the in-memory
// structures internal/amodel, internal/lm, and internal/lexicon define.
//
// It is pure parsing glued onto those packages' public constructors; none
// of the core decoder packages import it back, so a loader bug can never
// reach into the search hot path (spec §2's dependency order: modelio sits
// beside the core and depends on it, never the reverse).
package modelio
