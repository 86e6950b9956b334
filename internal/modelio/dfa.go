package modelio

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/example/lvcsr-decode/internal/lm"
)

// acceptStatusBit mirrors rddfa.c's ACCEPT_S bit in the per-line status
// field; state 0 is always implicitly the initial state, exactly as the
// original hard-codes it.
const acceptStatusBit = 0x1

// LoadDFA reads a Julius-format DFA grammar file (rddfa.c's line format:
// "state terminal nextstate statuscode_hex", one arc per line, state 0
// always initial, a negative terminal or nextstate meaning "no arc, status
// only") and builds an lm.DFA.
func LoadDFA(r io.Reader) (*lm.DFA, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)

	var states []lm.DFAState
	ensure := func(n int) {
		for len(states) <= n {
			states = append(states, lm.DFAState{})
		}
	}

	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || line == "DFAEND" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 4 {
			return nil, fmt.Errorf("modelio: dfa line %d: expected 4 fields, got %d", lineNo, len(fields))
		}
		state, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("modelio: dfa line %d: invalid state %q", lineNo, fields[0])
		}
		terminal, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("modelio: dfa line %d: invalid terminal %q", lineNo, fields[1])
		}
		next, err := strconv.Atoi(fields[2])
		if err != nil {
			return nil, fmt.Errorf("modelio: dfa line %d: invalid next state %q", lineNo, fields[2])
		}
		status, err := strconv.ParseUint(fields[3], 16, 32)
		if err != nil {
			return nil, fmt.Errorf("modelio: dfa line %d: invalid status code %q", lineNo, fields[3])
		}

		ensure(state)
		if next >= 0 {
			ensure(next)
		}
		if status&acceptStatusBit != 0 {
			states[state].Accept = true
		}
		if state == 0 {
			states[state].Initial = true
		}
		if terminal >= 0 && next >= 0 {
			states[state].Arcs = append(states[state].Arcs, lm.Arc{
				Category: lm.CategoryID(terminal),
				Next:     lm.DFAStateID(next),
			})
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(states) == 0 {
		return nil, fmt.Errorf("modelio: dfa file defines no states")
	}
	return lm.NewDFA(states), nil
}

// WriteDFA serializes d back to the Julius text grammar format, used by
// lvcsr-tools' determinize/minimize offline workflow to persist a rebuilt
// grammar.
func WriteDFA(w io.Writer, d *lm.DFA) error {
	bw := bufio.NewWriter(w)
	for i, st := range d.States {
		status := 0
		if st.Accept {
			status = acceptStatusBit
		}
		if len(st.Arcs) == 0 {
			fmt.Fprintf(bw, "%d -1 -1 %x\n", i, status)
			continue
		}
		for _, arc := range st.Arcs {
			fmt.Fprintf(bw, "%d %d %d %x\n", i, arc.Category, arc.Next, status)
		}
	}
	fmt.Fprintln(bw, "DFAEND")
	return bw.Flush()
}
