package doctor_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/example/lvcsr-decode/internal/doctor"
)

const silHMMDefs = `~h "sil"
<BEGINHMM>
<NUMSTATES> 3
<STATE> 2
<MEAN> 1
 0.0
<VARIANCE> 1
 1.0
<TRANSP> 3
 0.0 1.0 0.0
 0.0 0.5 0.5
 0.0 0.0 0.0
<ENDHMM>
~h "aa"
<BEGINHMM>
<NUMSTATES> 3
<STATE> 2
<MEAN> 1
 0.0
<VARIANCE> 1
 1.0
<TRANSP> 3
 0.0 1.0 0.0
 0.0 0.5 0.5
 0.0 0.0 0.0
<ENDHMM>
~h "bb"
<BEGINHMM>
<NUMSTATES> 3
<STATE> 2
<MEAN> 1
 0.0
<VARIANCE> 1
 1.0
<TRANSP> 3
 0.0 1.0 0.0
 0.0 0.5 0.5
 0.0 0.0 0.0
<ENDHMM>
`

const hmmListText = "sil sil\naa aa\nbb bb\n"

const dictText = "<s> sil\naa aa\nbb bb\n</s> sil\n"

const arpaText = `\data\
ngram 1=2
ngram 2=1

\1-grams:
-1.0 aa
-1.0 bb

\2-grams:
-0.5 aa bb -0.1

\end\
`

const dfaText = `0 0 1 1
1 1 2 0
2 -1 -1 1
DFAEND
`

const manifestText = "name: test-am\nstream_widths: [1]\nsample_rate_hz: 16000\nframe_shift_ms: 10\n"

func writeFixture(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing fixture %s: %v", name, err)
	}
	return path
}

func TestRun_AllChecksPass(t *testing.T) {
	dir := t.TempDir()
	cfg := doctor.Config{
		HMMDefsPath:  writeFixture(t, dir, "hmmdefs", silHMMDefs),
		HMMListPath:  writeFixture(t, dir, "hmmlist", hmmListText),
		DictPath:     writeFixture(t, dir, "dict", dictText),
		BigramPath:   writeFixture(t, dir, "bigram.arpa", arpaText),
		NgramPath:    writeFixture(t, dir, "ngram.arpa", arpaText),
		DFAPath:      writeFixture(t, dir, "grammar.dfa", dfaText),
		ManifestPath: writeFixture(t, dir, "manifest.yaml", manifestText),
	}

	var out strings.Builder
	report := doctor.Run(cfg, &out)

	if report.Failed() {
		t.Fatalf("expected all checks to pass; findings: %+v", report.Findings)
	}
	if !strings.Contains(out.String(), "hmm definitions") {
		t.Error("output should mention hmm definitions")
	}
}

func TestRun_MissingHMMDefsFailsAndSkipsDependents(t *testing.T) {
	dir := t.TempDir()
	cfg := doctor.Config{
		HMMDefsPath: filepath.Join(dir, "does-not-exist"),
		HMMListPath: writeFixture(t, dir, "hmmlist", hmmListText),
		DictPath:    writeFixture(t, dir, "dict", dictText),
	}

	var out strings.Builder
	report := doctor.Run(cfg, &out)

	if !report.Failed() {
		t.Fatal("expected failure when hmm definitions are missing")
	}
	f := findingNamed(report, "hmm definitions")
	if f.OK {
		t.Error("expected hmm definitions finding to fail")
	}
	dictFinding := findingNamed(report, "dictionary")
	if !dictFinding.OK {
		t.Error("expected dictionary check to be reported as skipped (OK), not failed")
	}
	if !strings.Contains(dictFinding.Detail, "skipped") {
		t.Errorf("expected skip detail, got %q", dictFinding.Detail)
	}
}

func TestRun_MalformedDictionaryFails(t *testing.T) {
	dir := t.TempDir()
	cfg := doctor.Config{
		HMMDefsPath: writeFixture(t, dir, "hmmdefs", silHMMDefs),
		HMMListPath: writeFixture(t, dir, "hmmlist", hmmListText),
		DictPath:    writeFixture(t, dir, "dict", "onlyoneword\n"),
	}

	var out strings.Builder
	report := doctor.Run(cfg, &out)

	if !report.Failed() {
		t.Fatal("expected failure for a malformed dictionary line")
	}
	f := findingNamed(report, "dictionary")
	if f.OK {
		t.Error("expected dictionary finding to fail")
	}
}

func TestRun_TriphoneCoverageReportsNoFallbacksForFullyCoveredVocabulary(t *testing.T) {
	dir := t.TempDir()
	cfg := doctor.Config{
		HMMDefsPath: writeFixture(t, dir, "hmmdefs", silHMMDefs),
		HMMListPath: writeFixture(t, dir, "hmmlist", hmmListText),
		DictPath:    writeFixture(t, dir, "dict", dictText),
	}

	var out strings.Builder
	report := doctor.Run(cfg, &out)

	if report.Failed() {
		t.Fatalf("expected no failures; findings: %+v", report.Findings)
	}
	f := findingNamed(report, "triphone coverage")
	if !strings.Contains(f.Detail, "no fallback") {
		t.Errorf("expected no-fallback detail, got %q", f.Detail)
	}
}

func TestRun_OutputContainsPassAndFailMarkers(t *testing.T) {
	dir := t.TempDir()
	cfg := doctor.Config{
		HMMDefsPath: filepath.Join(dir, "does-not-exist"),
	}

	var out strings.Builder
	doctor.Run(cfg, &out)

	body := out.String()
	if !strings.Contains(body, doctor.FailMark) {
		t.Errorf("output missing fail marker %q:\n%s", doctor.FailMark, body)
	}
}

func TestReport_Check_ConvertsFindingsToServerChecks(t *testing.T) {
	dir := t.TempDir()
	cfg := doctor.Config{
		HMMDefsPath: writeFixture(t, dir, "hmmdefs", silHMMDefs),
		HMMListPath: writeFixture(t, dir, "hmmlist", hmmListText),
		DictPath:    writeFixture(t, dir, "dict", dictText),
	}

	var out strings.Builder
	report := doctor.Run(cfg, &out)

	checks := report.Check()
	if len(checks) != len(report.Findings) {
		t.Fatalf("Check() len = %d; want %d", len(checks), len(report.Findings))
	}
	for i, c := range checks {
		if c.Name != report.Findings[i].Name || c.OK != report.Findings[i].OK {
			t.Errorf("checks[%d] = %+v; want matching finding %+v", i, c, report.Findings[i])
		}
	}
}

func findingNamed(r *doctor.Report, name string) doctor.Finding {
	for _, f := range r.Findings {
		if f.Name == name {
			return f
		}
	}
	return doctor.Finding{}
}
