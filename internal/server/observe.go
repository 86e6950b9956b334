package server

import (
	"context"

	"github.com/example/lvcsr-decode/internal/observe"
	"github.com/example/lvcsr-decode/internal/recognizer"
)

// observeCallbacks builds a recognizer.Callbacks that reports frame
// progress to rec. This is the one place pass-1/pass-2 instrumentation is
// wired: the search packages themselves never import internal/observe, so
// every counter recorded during a decode flows back through the
// recognizer.Callbacks surface those packages already expose.
func observeCallbacks(ctx context.Context, rec *observe.Recorder) recognizer.Callbacks {
	return recognizer.Callbacks{
		Pass1Frame: func(int) {
			rec.FrameDecoded(ctx)
		},
	}
}

// mergeCallbacks layers extra on top of base: the begin, Pass1Frame and
// Pass2End hooks call both (base first) when both are set, while Pass1End,
// Result and RecogEnd are taken from base only.
func mergeCallbacks(base, extra recognizer.Callbacks) recognizer.Callbacks {
	return recognizer.Callbacks{
		RecogBegin: chain0(base.RecogBegin, extra.RecogBegin),
		Pass1Begin: chain0(base.Pass1Begin, extra.Pass1Begin),
		Pass1Frame: chainInt(base.Pass1Frame, extra.Pass1Frame),
		Pass1End:   base.Pass1End,
		Pass2Begin: chain0(base.Pass2Begin, extra.Pass2Begin),
		Result:     base.Result,
		Pass2End:   chain0(base.Pass2End, extra.Pass2End),
		RecogEnd:   base.RecogEnd,
	}
}

func chain0(a, b func()) func() {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func() { a(); b() }
}

func chainInt(a, b func(int)) func(int) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(t int) { a(t); b(t) }
}
