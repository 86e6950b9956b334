// Package doctor runs environment preflight checks against a decoder's
// model files: that the HMM definitions, HMM list, dictionary, N-gram(s),
// DFA, and manifest all parse, and that every triphone the dictionary
// needs is actually covered by the acoustic model (chkhmmlist.c's
// "does the vocabulary's triphone coverage match the HMM set" check,
// reported here as fallback events rather than an outright failure since
// internal/lexicon already degrades gracefully to pooled pseudo phones).
package doctor

import (
	"fmt"
	"io"
	"os"

	"github.com/example/lvcsr-decode/internal/amodel"
	"github.com/example/lvcsr-decode/internal/lexicon"
	"github.com/example/lvcsr-decode/internal/lm"
	"github.com/example/lvcsr-decode/internal/modelio"
	"github.com/example/lvcsr-decode/internal/server"
)

// PassMark and FailMark are the prefix symbols printed for each check result.
const (
	PassMark = "✓"
	FailMark = "✗"
)

// Config locates the model files to check. A bigram is optional (DFA-only
// setups have none); a DFA is optional (N-gram-only setups have none). At
// least one of BigramPath/NgramPath/DFAPath should be set for a usable
// setup, but Run does not enforce that itself.
type Config struct {
	HMMDefsPath  string
	HMMListPath  string
	DictPath     string
	BigramPath   string
	NgramPath    string
	DFAPath      string
	ManifestPath string
}

// Finding is the outcome of one named check.
type Finding struct {
	Name   string
	OK     bool
	Detail string
}

// Report collects every Finding from a Run.
type Report struct {
	Findings []Finding
}

// Failed reports whether any finding failed.
func (r *Report) Failed() bool {
	for _, f := range r.Findings {
		if !f.OK {
			return true
		}
	}
	return false
}

// Check satisfies internal/server's DoctorChecker interface without that
// package needing to import this one.
func (r *Report) Check() []server.DoctorCheck {
	out := make([]server.DoctorCheck, len(r.Findings))
	for i, f := range r.Findings {
		out[i] = server.DoctorCheck{Name: f.Name, OK: f.OK, Detail: f.Detail}
	}
	return out
}

func (r *Report) pass(name, detail string) {
	r.Findings = append(r.Findings, Finding{Name: name, OK: true, Detail: detail})
}

func (r *Report) fail(name, detail string) {
	r.Findings = append(r.Findings, Finding{Name: name, OK: false, Detail: detail})
}

// Run loads every configured model file in dependency order (HMM defs,
// then HMM list, then dictionary, then N-gram(s)/DFA, then manifest),
// writing a PassMark/FailMark line per check to w, and returns the full
// Report. A load failure for an earlier file (e.g. hmmdefs) short-circuits
// every check that depends on it, since there is nothing left to check.
func Run(cfg Config, w io.Writer) *Report {
	r := &Report{}

	idx := amodel.NewIndex()
	hmmOK := checkHMMDefs(cfg.HMMDefsPath, idx, r, w)
	if hmmOK {
		checkHMMList(cfg.HMMListPath, idx, r, w)
	} else {
		skip(r, w, "hmm list", "skipped: hmm definitions failed to load")
	}

	var dict *lexicon.Dictionary
	if hmmOK {
		dict = checkDictionary(cfg.DictPath, idx, r, w)
	} else {
		skip(r, w, "dictionary", "skipped: hmm definitions failed to load")
	}

	if dict != nil {
		if cfg.BigramPath != "" {
			checkARPA(cfg.BigramPath, "pass-1 bigram", dict, r, w)
		}
		if cfg.NgramPath != "" {
			checkARPA(cfg.NgramPath, "pass-2 ngram", dict, r, w)
		}
	} else {
		if cfg.BigramPath != "" {
			skip(r, w, "pass-1 bigram", "skipped: dictionary failed to load")
		}
		if cfg.NgramPath != "" {
			skip(r, w, "pass-2 ngram", "skipped: dictionary failed to load")
		}
	}

	if cfg.DFAPath != "" {
		checkDFA(cfg.DFAPath, r, w)
	}

	if cfg.ManifestPath != "" {
		checkManifest(cfg.ManifestPath, r, w)
	}

	if hmmOK && dict != nil {
		checkTriphoneCoverage(idx, r, w)
	}

	return r
}

func skip(r *Report, w io.Writer, name, detail string) {
	r.pass(name, detail)
	fmt.Fprintf(w, "%s %s: %s\n", PassMark, name, detail)
}

func checkHMMDefs(path string, idx *amodel.Index, r *Report, w io.Writer) bool {
	const name = "hmm definitions"
	f, err := os.Open(path)
	if err != nil {
		r.fail(name, err.Error())
		fmt.Fprintf(w, "%s %s: %v\n", FailMark, name, err)
		return false
	}
	defer f.Close()

	if err := modelio.LoadHMMDefs(f, idx); err != nil {
		r.fail(name, err.Error())
		fmt.Fprintf(w, "%s %s: %v\n", FailMark, name, err)
		return false
	}
	detail := fmt.Sprintf("%d states allocated", idx.TotalStateNum())
	r.pass(name, detail)
	fmt.Fprintf(w, "%s %s: %s\n", PassMark, name, detail)
	return true
}

func checkHMMList(path string, idx *amodel.Index, r *Report, w io.Writer) {
	const name = "hmm list"
	f, err := os.Open(path)
	if err != nil {
		r.fail(name, err.Error())
		fmt.Fprintf(w, "%s %s: %v\n", FailMark, name, err)
		return
	}
	defer f.Close()

	if err := modelio.LoadHMMList(f, idx); err != nil {
		r.fail(name, err.Error())
		fmt.Fprintf(w, "%s %s: %v\n", FailMark, name, err)
		return
	}
	detail := fmt.Sprintf("%d logical names", len(idx.LogicalNames()))
	r.pass(name, detail)
	fmt.Fprintf(w, "%s %s: %s\n", PassMark, name, detail)
}

func checkDictionary(path string, idx *amodel.Index, r *Report, w io.Writer) *lexicon.Dictionary {
	const name = "dictionary"
	f, err := os.Open(path)
	if err != nil {
		r.fail(name, err.Error())
		fmt.Fprintf(w, "%s %s: %v\n", FailMark, name, err)
		return nil
	}
	defer f.Close()

	dict, err := modelio.LoadDictionary(f, idx)
	if err != nil {
		r.fail(name, err.Error())
		fmt.Fprintf(w, "%s %s: %v\n", FailMark, name, err)
		return nil
	}
	detail := fmt.Sprintf("%d words", dict.Len())
	r.pass(name, detail)
	fmt.Fprintf(w, "%s %s: %s\n", PassMark, name, detail)
	return dict
}

// wordIDFunc builds the surface->WordID lookup modelio.LoadARPA needs from
// an already loaded dictionary; unknown surfaces (out-of-vocabulary N-gram
// entries) resolve to WordID 0, the same "unknown word is silently
// unreachable" behavior init_ngram.c falls back to when -1 is mapped to the
// vocabulary's own sentinel rather than aborting the whole load.
func wordIDFunc(dict *lexicon.Dictionary) func(string) lm.WordID {
	bySurface := make(map[string]lm.WordID, dict.Len())
	for _, w := range dict.Words() {
		bySurface[w.Surface] = w.ID
	}
	return func(surface string) lm.WordID { return bySurface[surface] }
}

func checkARPA(path, name string, dict *lexicon.Dictionary, r *Report, w io.Writer) {
	f, err := os.Open(path)
	if err != nil {
		r.fail(name, err.Error())
		fmt.Fprintf(w, "%s %s: %v\n", FailMark, name, err)
		return
	}
	defer f.Close()

	g, err := modelio.LoadARPA(f, lm.Forward, wordIDFunc(dict))
	if err != nil {
		r.fail(name, err.Error())
		fmt.Fprintf(w, "%s %s: %v\n", FailMark, name, err)
		return
	}
	detail := fmt.Sprintf("order %d", g.Order)
	r.pass(name, detail)
	fmt.Fprintf(w, "%s %s: %s\n", PassMark, name, detail)
}

func checkDFA(path string, r *Report, w io.Writer) {
	const name = "dfa grammar"
	f, err := os.Open(path)
	if err != nil {
		r.fail(name, err.Error())
		fmt.Fprintf(w, "%s %s: %v\n", FailMark, name, err)
		return
	}
	defer f.Close()

	d, err := modelio.LoadDFA(f)
	if err != nil {
		r.fail(name, err.Error())
		fmt.Fprintf(w, "%s %s: %v\n", FailMark, name, err)
		return
	}
	detail := fmt.Sprintf("%d states", len(d.States))
	r.pass(name, detail)
	fmt.Fprintf(w, "%s %s: %s\n", PassMark, name, detail)
}

func checkManifest(path string, r *Report, w io.Writer) {
	const name = "manifest"
	f, err := os.Open(path)
	if err != nil {
		r.fail(name, err.Error())
		fmt.Fprintf(w, "%s %s: %v\n", FailMark, name, err)
		return
	}
	defer f.Close()

	m, err := modelio.LoadManifest(f)
	if err != nil {
		r.fail(name, err.Error())
		fmt.Fprintf(w, "%s %s: %v\n", FailMark, name, err)
		return
	}
	detail := fmt.Sprintf("%q, %d Hz", m.Name, m.SampleRateHz)
	r.pass(name, detail)
	fmt.Fprintf(w, "%s %s: %s\n", PassMark, name, detail)
}

// checkTriphoneCoverage reports the unknown-triphone fallback events
// recorded while the dictionary was being resolved against the HMM set
// (chkhmmlist.c's coverage check, backed here by internal/amodel.Index's
// own fallback log instead of a separate pre-pass over the vocabulary).
func checkTriphoneCoverage(idx *amodel.Index, r *Report, w io.Writer) {
	const name = "triphone coverage"
	events := idx.FallbackEvents()
	if len(events) == 0 {
		r.pass(name, "no fallback triphones")
		fmt.Fprintf(w, "%s %s: no fallback triphones\n", PassMark, name)
		return
	}
	detail := fmt.Sprintf("%d triphones fell back to pooled pseudo phones (e.g. %q -> %q)",
		len(events), events[0].Requested, events[0].Resolved)
	r.pass(name, detail)
	fmt.Fprintf(w, "%s %s: %s\n", PassMark, name, detail)
}
