package observe

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Recorder records the search counters a Recognizer's pass1/pass2 hooks
// report per utterance: frames decoded, tokens pruned, stack pops, Gaussian
// evaluations performed vs. skipped by caching or pruning, and codebook
// cache hit/miss counts. A nil *Recorder is safe to call methods on; every
// method is then a no-op, so callers that never wire observability (tests,
// the bare decode CLI) do not need a conditional at every call site.
type Recorder struct {
	framesDecoded    metric.Int64Counter
	tokensPruned     metric.Int64Counter
	stackPops        metric.Int64Counter
	gaussiansEvalued metric.Int64Counter
	gaussiansPruned  metric.Int64Counter
	cacheHits        metric.Int64Counter
	cacheMisses      metric.Int64Counter
}

// NewRecorder creates instruments against the current global OTel meter
// provider (set by InitProvider, or the no-op default if InitProvider was
// never called). instrumentationName identifies the meter, conventionally
// the importing package's path.
func NewRecorder(instrumentationName string) (*Recorder, error) {
	m := otel.Meter(instrumentationName)

	framesDecoded, err := m.Int64Counter(
		"lvcsr.decode.frames",
		metric.WithDescription("Number of acoustic frames processed by pass 1"),
		metric.WithUnit("{frame}"),
	)
	if err != nil {
		return nil, err
	}
	tokensPruned, err := m.Int64Counter(
		"lvcsr.decode.tokens_pruned",
		metric.WithDescription("Number of pass-1 tree tokens dropped by beam pruning"),
		metric.WithUnit("{token}"),
	)
	if err != nil {
		return nil, err
	}
	stackPops, err := m.Int64Counter(
		"lvcsr.decode.stack_pops",
		metric.WithDescription("Number of hypotheses popped off the pass-2 stack decoder's priority queue"),
		metric.WithUnit("{hypothesis}"),
	)
	if err != nil {
		return nil, err
	}
	gaussiansEvalued, err := m.Int64Counter(
		"lvcsr.acoustic.gaussians_evaluated",
		metric.WithDescription("Number of Gaussian components actually scored"),
		metric.WithUnit("{component}"),
	)
	if err != nil {
		return nil, err
	}
	gaussiansPruned, err := m.Int64Counter(
		"lvcsr.acoustic.gaussians_pruned",
		metric.WithDescription("Number of Gaussian components skipped by Gaussian mixture selection or safe pruning"),
		metric.WithUnit("{component}"),
	)
	if err != nil {
		return nil, err
	}
	cacheHits, err := m.Int64Counter(
		"lvcsr.acoustic.cache_hits",
		metric.WithDescription("Number of per-frame output-probability cache hits"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		return nil, err
	}
	cacheMisses, err := m.Int64Counter(
		"lvcsr.acoustic.cache_misses",
		metric.WithDescription("Number of per-frame output-probability cache misses"),
		metric.WithUnit("{miss}"),
	)
	if err != nil {
		return nil, err
	}

	return &Recorder{
		framesDecoded:    framesDecoded,
		tokensPruned:     tokensPruned,
		stackPops:        stackPops,
		gaussiansEvalued: gaussiansEvalued,
		gaussiansPruned:  gaussiansPruned,
		cacheHits:        cacheHits,
		cacheMisses:      cacheMisses,
	}, nil
}

// FrameDecoded records that pass 1 advanced by one frame.
func (r *Recorder) FrameDecoded(ctx context.Context) {
	if r == nil {
		return
	}
	r.framesDecoded.Add(ctx, 1)
}

// TokensPruned records n tree tokens dropped by beam pruning in one frame.
func (r *Recorder) TokensPruned(ctx context.Context, n int64) {
	if r == nil {
		return
	}
	r.tokensPruned.Add(ctx, n)
}

// StackPop records one hypothesis popped off the pass-2 priority queue.
func (r *Recorder) StackPop(ctx context.Context) {
	if r == nil {
		return
	}
	r.stackPops.Add(ctx, 1)
}

// GaussianEvaluations records evaluated and pruned Gaussian component counts
// for one output-probability computation, tagged by the stream index so a
// multi-stream model's streams can be compared in a dashboard.
func (r *Recorder) GaussianEvaluations(ctx context.Context, stream int, evaluated, pruned int64) {
	if r == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.Int("stream", stream))
	r.gaussiansEvalued.Add(ctx, evaluated, attrs)
	r.gaussiansPruned.Add(ctx, pruned, attrs)
}

// CacheAccess records one output-probability cache lookup.
func (r *Recorder) CacheAccess(ctx context.Context, hit bool) {
	if r == nil {
		return
	}
	if hit {
		r.cacheHits.Add(ctx, 1)
		return
	}
	r.cacheMisses.Add(ctx, 1)
}
