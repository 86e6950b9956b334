package recognizer

import (
	"fmt"

	"github.com/example/lvcsr-decode/internal/amodel"
)

// GMMClassifier is the whole-utterance speech/silence classifier spec.md
// §7's REJECT_GMM and ONLY_SILENCE outcomes require (supplemented feature:
// original_source's outprob_dnn.c-style accept/reject gate, reimplemented
// here as a plain Gaussian pair rather than a DNN, reusing
// internal/amodel.Gaussian exactly as the acoustic engine's mixtures do).
// It is never consulted during search, only once per utterance before pass
// 1 starts.
type GMMClassifier struct {
	speech  *amodel.Gaussian
	silence *amodel.Gaussian
	margin  amodel.LogProb
}

// NewGMMClassifier builds a classifier from pre-trained speech/silence
// Gaussians and the minimum log-likelihood-ratio margin required to accept
// an utterance as speech.
func NewGMMClassifier(speech, silence *amodel.Gaussian, margin amodel.LogProb) *GMMClassifier {
	return &GMMClassifier{speech: speech, silence: silence, margin: margin}
}

// Classify scores the whole utterance (summed per-frame log-likelihood
// under each class) and reports whether it looks like silence throughout,
// or like speech but below the configured confidence margin.
func (c *GMMClassifier) Classify(frames []amodel.FrameVector) (onlySilence, lowConfidence bool, err error) {
	var speechLL, silenceLL amodel.LogProb
	for i, f := range frames {
		sll, err := c.speech.LogLikelihood(f.Values, f.Missing)
		if err != nil {
			return false, false, fmt.Errorf("recognizer: gmm speech likelihood at frame %d: %w", i, err)
		}
		nll, err := c.silence.LogLikelihood(f.Values, f.Missing)
		if err != nil {
			return false, false, fmt.Errorf("recognizer: gmm silence likelihood at frame %d: %w", i, err)
		}
		speechLL += sll
		silenceLL += nll
	}
	if silenceLL >= speechLL {
		return true, false, nil
	}
	if speechLL-silenceLL < c.margin {
		return false, true, nil
	}
	return false, false, nil
}
