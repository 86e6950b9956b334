package modelio

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/example/lvcsr-decode/internal/lm"
)

const ln10 = math.Ln10

// LoadARPA reads a standard ARPA back-off N-gram file (init_ngram.c's
// ngram_read_arpa, the \data\ / \N-grams:\ / \end\ sectioned text format)
// and builds an lm.NGram out of it. ARPA probabilities are log10; they are
// converted to natural log on the way in so N-gram scores sum directly with
// the natural-log acoustic scores internal/amodel.Gaussian produces.
// wordID resolves a surface word string to the dictionary's WordID.
func LoadARPA(r io.Reader, dir lm.Direction, wordID func(surface string) lm.WordID) (*lm.NGram, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)

	order := 0
	var g *lm.NGram
	currentOrder := 0
	lineNo := 0

	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "" || line == "\\data\\":
			continue
		case strings.HasPrefix(line, "ngram "):
			n, err := parseNgramCountLine(line)
			if err != nil {
				return nil, fmt.Errorf("modelio: arpa line %d: %w", lineNo, err)
			}
			if n > order {
				order = n
			}
		case strings.HasSuffix(line, "-grams:"):
			if g == nil {
				if order == 0 {
					return nil, fmt.Errorf("modelio: arpa line %d: no ngram counts declared before %q", lineNo, line)
				}
				g = lm.NewNGram(order, dir)
			}
			n, err := strconv.Atoi(strings.TrimSuffix(line, "-grams:"))
			if err != nil {
				return nil, fmt.Errorf("modelio: arpa line %d: invalid section header %q", lineNo, line)
			}
			currentOrder = n
		case line == "\\end\\":
			if g == nil {
				return nil, fmt.Errorf("modelio: arpa file has no ngram data")
			}
			return g, nil
		default:
			if g == nil || currentOrder == 0 {
				return nil, fmt.Errorf("modelio: arpa line %d: entry %q outside any section", lineNo, line)
			}
			if err := addARPALine(g, currentOrder, line, wordID); err != nil {
				return nil, fmt.Errorf("modelio: arpa line %d: %w", lineNo, err)
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if g == nil {
		return nil, fmt.Errorf("modelio: arpa file is missing \\end\\")
	}
	return g, nil
}

func parseNgramCountLine(line string) (int, error) {
	// "ngram 2=12345"
	rest := strings.TrimPrefix(line, "ngram ")
	parts := strings.SplitN(rest, "=", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("malformed ngram count line %q", line)
	}
	return strconv.Atoi(strings.TrimSpace(parts[0]))
}

func addARPALine(g *lm.NGram, order int, line string, wordID func(string) lm.WordID) error {
	fields := strings.Fields(line)
	// logprob w_1 ... w_order [backoff]
	if len(fields) < order+1 {
		return fmt.Errorf("expected at least %d fields, got %d", order+1, len(fields))
	}
	logProb10, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return fmt.Errorf("invalid log-probability %q", fields[0])
	}
	context := make([]lm.WordID, order-1)
	for i := 0; i < order-1; i++ {
		context[i] = wordID(fields[1+i])
	}
	word := wordID(fields[order])

	var backoff *float32
	if len(fields) > order+1 {
		bo10, err := strconv.ParseFloat(fields[order+1], 64)
		if err != nil {
			return fmt.Errorf("invalid back-off weight %q", fields[order+1])
		}
		v := float32(bo10 * ln10)
		backoff = &v
	}

	g.AddEntry(context, word, float32(logProb10*ln10), backoff)
	return nil
}

// WriteARPA serializes g back to ARPA text format, converting its natural
// log scores back to log10. Used by lvcsr-tools' ngram compile/score
// offline workflow to inspect or hand off a loaded model.
func WriteARPA(w io.Writer, g *lm.NGram, surface func(lm.WordID) string) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "\\data\\")
	counts := make([]int, g.Order+1)
	allEntries := make([][]lm.Entry, g.Order+1)
	for m := 1; m <= g.Order; m++ {
		allEntries[m] = g.Entries(m)
		counts[m] = len(allEntries[m])
		fmt.Fprintf(bw, "ngram %d=%d\n", m, counts[m])
	}
	for m := 1; m <= g.Order; m++ {
		fmt.Fprintf(bw, "\n\\%d-grams:\n", m)
		for _, e := range allEntries[m] {
			logProb10 := e.LogProb / ln10
			fmt.Fprintf(bw, "%g", logProb10)
			for _, c := range e.Context {
				fmt.Fprintf(bw, " %s", surface(c))
			}
			fmt.Fprintf(bw, " %s", surface(e.Word))
			if e.HasBackoff {
				fmt.Fprintf(bw, " %g", e.Backoff/ln10)
			}
			fmt.Fprintln(bw)
		}
	}
	fmt.Fprintln(bw, "\n\\end\\")
	return bw.Flush()
}
