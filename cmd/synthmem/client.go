package synthmem

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/soundprediction/synthmem/pkg/cache"
	"github.com/soundprediction/synthmem/pkg/config"
	"github.com/soundprediction/synthmem/pkg/nlp"
)

// buildClient assembles the text generation client stack from configuration:
// OpenAI-compatible base client, retry, optional circuit breaker, optional
// token usage tracking, optional generation cache. Returns a nil client when
// no API key is configured. The returned cleanup closes every layer that
// holds resources.
func buildClient(cfg *config.Config, logger *slog.Logger) (nlp.Client, func(), error) {
	noop := func() {}

	if cfg.NLP.APIKey == "" {
		return nil, noop, nil
	}
	if cfg.NLP.Provider != "openai" {
		return nil, noop, fmt.Errorf("unsupported nlp provider: %s", cfg.NLP.Provider)
	}

	nlpConfig := nlp.Config{
		Model:       cfg.NLP.Model,
		Temperature: &cfg.NLP.Temperature,
		BaseURL:     cfg.NLP.BaseURL,
	}
	if cfg.NLP.MaxTokens > 0 {
		nlpConfig.MaxTokens = &cfg.NLP.MaxTokens
	}

	base, err := nlp.NewOpenAIClient(cfg.NLP.APIKey, nlpConfig)
	if err != nil {
		return nil, noop, fmt.Errorf("failed to create nlp client: %w", err)
	}

	retryConfig := nlp.DefaultRetryConfig()
	if cfg.NLP.MaxRetries > 0 {
		retryConfig.MaxRetries = cfg.NLP.MaxRetries
	}
	var client nlp.Client = nlp.NewRetryClient(base, retryConfig)

	if cfg.CircuitBreaker.Enabled {
		client = nlp.NewCircuitBreakerClient(client, nlp.CircuitBreakerSettings{
			MaxRequests:      cfg.CircuitBreaker.MaxRequests,
			Interval:         cfg.CircuitBreaker.Interval,
			Timeout:          cfg.CircuitBreaker.Timeout,
			ReadyToTripRatio: cfg.CircuitBreaker.ReadyToTripRatio,
		}, logger, "nlp")
	}

	var closers []func()

	if cfg.NLP.TokenUsageDir != "" {
		if err := os.MkdirAll(cfg.NLP.TokenUsageDir, 0755); err != nil {
			return nil, noop, fmt.Errorf("failed to create token usage directory: %w", err)
		}
		tracker, err := nlp.NewTokenTracker(cfg.NLP.TokenUsageDir)
		if err != nil {
			logger.Warn("failed to initialize token tracker", "error", err)
		} else {
			client = nlp.NewTokenTrackingClient(client, tracker)
			closers = append(closers, func() {
				if err := tracker.Flush(); err != nil {
					logger.Warn("failed to flush token tracker", "error", err)
				}
			})
			logger.Info("token tracking enabled", "dir", cfg.NLP.TokenUsageDir)
		}
	}

	if cfg.Cache.Enabled {
		store, err := cache.Open(cfg.Cache.Dir, cache.Options{
			TTL: time.Duration(cfg.Cache.TTLHours) * time.Hour,
		})
		if err != nil {
			return nil, noop, fmt.Errorf("failed to open generation cache: %w", err)
		}
		client = cache.NewCachedClient(client, store, logger)
		closers = append(closers, func() {
			if err := store.Close(); err != nil {
				logger.Warn("failed to close generation cache", "error", err)
			}
		})
		logger.Info("generation cache enabled", "dir", cfg.Cache.Dir)
	}

	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	return client, cleanup, nil
}
