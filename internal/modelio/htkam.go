package modelio

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/example/lvcsr-decode/internal/amodel"
)

// tokenizer reads an HTK-style definition file token by token regardless of
// line boundaries, mirroring rdhmmdef.c's read_token(): whitespace
// (including newlines) is insignificant, and a quoted name is one token.
type tokenizer struct {
	sc       *bufio.Scanner
	pos      int
	buffered []string
}

func newTokenizer(r io.Reader) *tokenizer {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	sc.Split(bufio.ScanWords)
	return &tokenizer{sc: sc}
}

func (t *tokenizer) next() (string, bool) {
	if n := len(t.buffered); n > 0 {
		tok := t.buffered[n-1]
		t.buffered = t.buffered[:n-1]
		t.pos++
		return tok, true
	}
	if !t.sc.Scan() {
		return "", false
	}
	t.pos++
	return strings.Trim(t.sc.Text(), "\""), true
}

func (t *tokenizer) expect(want string) error {
	tok, ok := t.next()
	if !ok {
		return fmt.Errorf("modelio: expected %q, reached end of file", want)
	}
	if !strings.EqualFold(tok, want) {
		return fmt.Errorf("modelio: expected %q at token %d, got %q", want, t.pos, tok)
	}
	return nil
}

func (t *tokenizer) nextInt() (int, error) {
	tok, ok := t.next()
	if !ok {
		return 0, fmt.Errorf("modelio: expected an integer, reached end of file")
	}
	v, err := strconv.Atoi(tok)
	if err != nil {
		return 0, fmt.Errorf("modelio: expected an integer at token %d, got %q", t.pos, tok)
	}
	return v, nil
}

func (t *tokenizer) nextFloat() (float32, error) {
	tok, ok := t.next()
	if !ok {
		return 0, fmt.Errorf("modelio: expected a number, reached end of file")
	}
	v, err := strconv.ParseFloat(tok, 32)
	if err != nil {
		return 0, fmt.Errorf("modelio: expected a number at token %d, got %q", t.pos, tok)
	}
	return float32(v), nil
}

func (t *tokenizer) nextFloats(n int) ([]float32, error) {
	out := make([]float32, n)
	for i := range out {
		v, err := t.nextFloat()
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// LoadHMMDefs reads an HTK %HMM definition file (rdhmmdef.c's format: a
// stream of "~h name ... <BEGINHMM> ... <ENDHMM>" macro definitions) and
// registers every physical HMM it defines into idx. Only single- and
// multi-mixture diagonal-covariance Gaussian states are supported;
// tied-mixture (codebook) definitions, which the original reads separately
// (rdhmmdef_tiedmix.c vs. rdhmmdef_dens.c), are not read by this loader or
// by any other in this package.
func LoadHMMDefs(r io.Reader, idx *amodel.Index) error {
	t := newTokenizer(r)
	for {
		tok, ok := t.next()
		if !ok {
			return nil
		}
		if tok != "~h" {
			continue
		}
		name, ok := t.next()
		if !ok {
			return fmt.Errorf("modelio: ~h macro with no name")
		}
		phys, err := readPhysicalHMM(t, idx, name)
		if err != nil {
			return fmt.Errorf("modelio: reading hmm %q: %w", name, err)
		}
		if err := idx.AddPhysical(phys); err != nil {
			return err
		}
	}
}

func readPhysicalHMM(t *tokenizer, idx *amodel.Index, name string) (*amodel.PhysicalHMM, error) {
	if err := t.expect("<BEGINHMM>"); err != nil {
		return nil, err
	}
	if err := t.expect("<NUMSTATES>"); err != nil {
		return nil, err
	}
	n, err := t.nextInt()
	if err != nil {
		return nil, err
	}
	if n < 2 {
		return nil, fmt.Errorf("modelio: <NUMSTATES> %d is fewer than the 2 required non-emitting ends", n)
	}

	states := make([]*amodel.State, n)
	states[0] = &amodel.State{Sid: idx.NextStateID()}
	states[n-1] = &amodel.State{Sid: idx.NextStateID()}

	for {
		tok, ok := t.next()
		if !ok {
			return nil, fmt.Errorf("modelio: unexpected end of file inside %q", name)
		}
		switch tok {
		case "<STATE>":
			k, err := t.nextInt()
			if err != nil {
				return nil, err
			}
			if k < 2 || k > n-1 {
				return nil, fmt.Errorf("modelio: <STATE> %d out of the emitting range [2,%d] for %q", k, n-1, name)
			}
			mix, err := readMixture(t)
			if err != nil {
				return nil, err
			}
			states[k-1] = &amodel.State{Sid: idx.NextStateID(), Streams: []*amodel.MixturePDF{mix}}
		case "<TRANSP>":
			nn, err := t.nextInt()
			if err != nil {
				return nil, err
			}
			if nn != n {
				return nil, fmt.Errorf("modelio: <TRANSP> size %d does not match <NUMSTATES> %d for %q", nn, n, name)
			}
			a, err := readTransitionMatrix(t, nn)
			if err != nil {
				return nil, err
			}
			if err := t.expect("<ENDHMM>"); err != nil {
				return nil, err
			}
			phys := &amodel.PhysicalHMM{Name: name, States: states, A: a}
			return phys, phys.Validate()
		default:
			return nil, fmt.Errorf("modelio: unexpected token %q inside %q", tok, name)
		}
	}
}

func readMixture(t *tokenizer) (*amodel.MixturePDF, error) {
	tok, ok := t.next()
	if !ok {
		return nil, fmt.Errorf("modelio: unexpected end of file reading a mixture")
	}

	numMixes := 1
	if tok == "<NUMMIXES>" {
		n, err := t.nextInt()
		if err != nil {
			return nil, err
		}
		numMixes = n
		tok, ok = t.next()
		if !ok {
			return nil, fmt.Errorf("modelio: unexpected end of file reading a mixture")
		}
	}

	components := make([]*amodel.Gaussian, 0, numMixes)
	weights := make([]float32, 0, numMixes)

	for i := 0; i < numMixes; i++ {
		weight := float32(1)
		if tok == "<MIXTURE>" {
			if _, err := t.nextInt(); err != nil { // mixture index, unused: order is positional
				return nil, err
			}
			w, err := t.nextFloat()
			if err != nil {
				return nil, err
			}
			weight = w
			tok, ok = t.next()
			if !ok {
				return nil, fmt.Errorf("modelio: unexpected end of file reading a mixture")
			}
		}
		if tok != "<MEAN>" {
			return nil, fmt.Errorf("modelio: expected <MEAN>, got %q", tok)
		}
		dim, err := t.nextInt()
		if err != nil {
			return nil, err
		}
		mean, err := t.nextFloats(dim)
		if err != nil {
			return nil, err
		}
		if err := t.expect("<VARIANCE>"); err != nil {
			return nil, err
		}
		vdim, err := t.nextInt()
		if err != nil {
			return nil, err
		}
		if vdim != dim {
			return nil, fmt.Errorf("modelio: <VARIANCE> dim %d does not match <MEAN> dim %d", vdim, dim)
		}
		variance, err := t.nextFloats(vdim)
		if err != nil {
			return nil, err
		}
		g, err := amodel.NewGaussian(mean, variance)
		if err != nil {
			return nil, err
		}
		components = append(components, g)
		weights = append(weights, weight)

		if i < numMixes-1 {
			tok, ok = t.next()
			if !ok {
				return nil, fmt.Errorf("modelio: unexpected end of file between mixture components")
			}
			continue
		}
		// Peek past an optional trailing <GCONST>: it is recomputed by
		// NewGaussian at load time rather than trusted from the file
		// (amodel's own "computed at load time" invariant), so it is
		// read only to be discarded.
		if i == numMixes-1 {
			peeked, ok := t.next()
			if ok {
				if peeked == "<GCONST>" {
					if _, err := t.nextFloat(); err != nil {
						return nil, err
					}
				} else {
					t.pushback(peeked)
				}
			}
		}
	}

	return &amodel.MixturePDF{Components: components, Weights: weights}, nil
}

// pushback is a one-token lookahead buffer for the rare case (a trailing
// optional <GCONST>) where a token must be read to see if it is present and
// put back otherwise.
func (t *tokenizer) pushback(tok string) {
	t.buffered = append(t.buffered, tok)
}

func readTransitionMatrix(t *tokenizer, n int) ([][]amodel.LogProb, error) {
	a := make([][]amodel.LogProb, n)
	for i := range a {
		a[i] = make([]amodel.LogProb, n)
		for j := range a[i] {
			p, err := t.nextFloat()
			if err != nil {
				return nil, err
			}
			if p <= 0 {
				a[i][j] = amodel.LogZero
			} else {
				a[i][j] = amodel.LogProb(math.Log(float64(p)))
			}
		}
	}
	return a, nil
}
