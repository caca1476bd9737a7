package embedding

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// NewWithFallback probes the primary model and, if it cannot be reached,
// retries with the fallback model. The returned embedder reports the model
// that actually answered via Model().
func NewWithFallback(ctx context.Context, logger *zap.Logger, host, primary, fallback string, cacheSize int) (Embedder, error) {
	e := NewOllamaEmbedder(host, primary, cacheSize)
	err := e.Probe(ctx)
	if err == nil {
		logger.Info("embedding model ready",
			zap.String("model", primary),
			zap.Int("dimensions", e.Dimensions()))
		return e, nil
	}
	if fallback == "" || fallback == primary {
		return nil, fmt.Errorf("probe embedding model %s: %w", primary, err)
	}

	logger.Warn("primary embedding model unavailable, trying fallback",
		zap.String("primary", primary),
		zap.String("fallback", fallback),
		zap.Error(err))

	fb := NewOllamaEmbedder(host, fallback, cacheSize)
	if err := fb.Probe(ctx); err != nil {
		return nil, fmt.Errorf("probe fallback model %s: %w", fallback, err)
	}
	logger.Info("embedding model ready",
		zap.String("model", fallback),
		zap.Int("dimensions", fb.Dimensions()))
	return fb, nil
}
