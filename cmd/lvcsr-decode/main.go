// Command lvcsr-decode is the decoder's end-user CLI: run one utterance
// through the recognizer, benchmark it, serve the module protocol, and
// run local preflight checks against a model directory.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
