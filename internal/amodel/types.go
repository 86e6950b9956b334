// Package amodel holds the acoustic-model data model described in spec §3:
// physical and logical HMMs, pseudo-phone sets synthesized for unseen
// biphone/monophone contexts, states, Gaussian-mixture PDFs, and codebooks.
// Every table here is read-only once an Index has been built; per-utterance
// mutable state (caches, tokens) lives in internal/acoustic and
// internal/search, never here.
package amodel

import "github.com/example/lvcsr-decode/internal/vecmath"

// LogProb is a natural-log probability. LogZero represents an effectively
// impossible event; it is a large negative finite value (not -Inf) so that
// arithmetic on it stays well-defined, matching the teacher's sentinel-based
// numeric conventions.
type LogProb = float32

// LogZero is the sentinel used throughout the decoder for "impossible".
const LogZero = vecmath.LogZero

// FrameVector is one frame of acoustic feature data. Dimensions flagged in
// Missing are skipped by the Gaussian kernel (MSD — missing-value streams),
// per spec §9 design note: "missing value" is part of the frame vector type,
// not a distinct error path.
type FrameVector struct {
	Values  []float32
	Missing []bool // nil means no dimension is missing
}

// Dim returns the vector's dimensionality.
func (f FrameVector) Dim() int { return len(f.Values) }

// StateID uniquely identifies a State across the whole model, used as the
// acoustic-engine cache key. Every state satisfies 0 <= id < totalstatenum.
type StateID int32
