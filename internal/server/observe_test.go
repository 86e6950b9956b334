package server

import (
	"context"
	"testing"

	"github.com/example/lvcsr-decode/internal/observe"
	"github.com/example/lvcsr-decode/internal/recognizer"
	"github.com/example/lvcsr-decode/internal/result"
)

func TestChain0_BothNil(t *testing.T) {
	if fn := chain0(nil, nil); fn != nil {
		t.Errorf("chain0(nil, nil) = %v; want nil", fn)
	}
}

func TestChain0_OneSet(t *testing.T) {
	called := false
	fn := chain0(func() { called = true }, nil)
	fn()
	if !called {
		t.Error("expected base to run")
	}
}

func TestChain0_BothSet(t *testing.T) {
	var order []string
	fn := chain0(func() { order = append(order, "a") }, func() { order = append(order, "b") })
	fn()
	if len(order) != 2 || order[0] != "a" || order[1] != "b" {
		t.Errorf("order = %v; want [a b]", order)
	}
}

func TestChainInt_BothSet(t *testing.T) {
	var got []int
	fn := chainInt(func(t int) { got = append(got, t) }, func(t int) { got = append(got, t*10) })
	fn(3)
	if len(got) != 2 || got[0] != 3 || got[1] != 30 {
		t.Errorf("got = %v; want [3 30]", got)
	}
}

func TestMergeCallbacks_PreservesUnmergedHooks(t *testing.T) {
	resultCalled := false
	base := recognizer.Callbacks{
		Result: func(result.Sentence) { resultCalled = true },
	}
	frameCalled := 0
	extra := recognizer.Callbacks{
		Pass1Frame: func(int) { frameCalled++ },
	}

	merged := mergeCallbacks(base, extra)
	merged.Result(result.Sentence{})
	merged.Pass1Frame(1)

	if !resultCalled {
		t.Error("expected base.Result to run")
	}
	if frameCalled != 1 {
		t.Errorf("frameCalled = %d; want 1", frameCalled)
	}
}

func TestObserveCallbacks_ReportsFrames(t *testing.T) {
	rec, err := observe.NewRecorder("lvcsr-decode-server-test")
	if err != nil {
		t.Fatalf("observe.NewRecorder: %v", err)
	}
	cb := observeCallbacks(context.Background(), rec)
	if cb.Pass1Frame == nil {
		t.Fatal("expected Pass1Frame hook to be set")
	}
	cb.Pass1Frame(1)
	cb.Pass1Frame(2)
}
