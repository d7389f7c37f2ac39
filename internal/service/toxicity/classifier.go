package toxicity

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"StreamPulse/internal/domain/models"
	"StreamPulse/pkg/cache"
	xhttp "StreamPulse/pkg/http"
	"StreamPulse/pkg/logger"
)

// HTTPClassifier scores chat text against a remote toxicity model service.
// Predict never fails outward: any transport or decode error degrades to the
// all-zero score set with the error recorded in the result. Predictions are
// cached by text hash since the model call dominates enrichment latency.
type HTTPClassifier struct {
	baseURL  string
	client   *xhttp.Client
	cache    cache.Service
	cacheTTL time.Duration
	lgr      *logger.Logger
}

// Option configures HTTPClassifier.
type Option func(*HTTPClassifier)

// WithCache enables prediction caching.
func WithCache(c cache.Service, ttl time.Duration) Option {
	return func(h *HTTPClassifier) {
		h.cache = c
		h.cacheTTL = ttl
	}
}

// NewHTTPClassifier creates a classifier backed by the model service at baseURL.
func NewHTTPClassifier(baseURL string, timeout time.Duration, lgr *logger.Logger, opts ...Option) *HTTPClassifier {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	h := &HTTPClassifier{
		baseURL: baseURL,
		client:  xhttp.NewClient(xhttp.WithTimeout(timeout)),
		lgr:     lgr,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type predictRequest struct {
	Text string `json:"text"`
}

// Predict returns the six fixed label scores for text.
func (h *HTTPClassifier) Predict(ctx context.Context, text string) models.ToxicityScores {
	key := cacheKey(text)
	if h.cache != nil {
		var cached models.ToxicityScores
		if err := h.cache.Get(ctx, key, &cached); err == nil {
			return cached
		}
	}

	var scores models.ToxicityScores
	err := h.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodPost,
		URL:     h.baseURL + "/predict",
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    predictRequest{Text: text},
	}, &scores)
	if err != nil {
		h.lgr.Warn("toxicity predict degraded to zero scores", logger.Error(err))
		return models.ToxicityScores{Error: "model unavailable"}
	}

	if h.cache != nil {
		if err := h.cache.Set(ctx, key, scores, h.cacheTTL); err != nil {
			h.lgr.Warn("toxicity cache set failed", logger.Error(err))
		}
	}
	return scores
}

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return "toxicity:" + hex.EncodeToString(sum[:16])
}

// Disabled is a classifier that always returns the all-zero default. Used when
// no model service is configured; the pipeline keeps publishing regardless.
type Disabled struct{}

// Predict returns zero scores.
func (Disabled) Predict(ctx context.Context, text string) models.ToxicityScores {
	return models.ToxicityScores{Error: "model not loaded"}
}
