// Command lvcsr-tools builds and inspects the language-model and grammar
// files the decoder consumes: ARPA-to-binary N-gram compilation and
// scoring, and DFA grammar determinization/minimization.
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
