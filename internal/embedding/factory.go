package embedding

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/policysimplify/internal/config"
)

// Provider names accepted in embedding.provider.
const (
	ProviderOpenAI = "openai"
	ProviderONNX   = "onnx"
	ProviderMock   = "mock"
)

// New builds the gateway selected by cfg.Provider. Remote gateways are wrapped with retry
// and, when cfg.CacheSize > 0, an LRU cache.
func New(cfg config.EmbeddingConfig, logger *zap.Logger) (Embedder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var base Embedder
	switch cfg.Provider {
	case ProviderOpenAI, "":
		oe, err := NewOpenAIEmbedder(OpenAIConfig{
			APIKey:            cfg.APIKey,
			BaseURL:           cfg.BaseURL,
			Model:             cfg.Model,
			Timeout:           time.Duration(cfg.TimeoutSecs) * time.Second,
			Dimensions:        cfg.Dimensions,
			RequestsPerSecond: cfg.RequestsPerSecond,
		})
		if err != nil {
			return nil, err
		}
		base = NewRetryingEmbedder(oe, cfg.MaxRetries, WithRetryLogger(logger))
		logger.Info("embedding gateway", zap.String("provider", ProviderOpenAI), zap.String("model", cfg.Model))
	case ProviderONNX:
		oe, err := NewONNXEmbedder(cfg.ModelPath, cfg.Dimensions, cfg.MaxTokens)
		if err != nil {
			return nil, err
		}
		base = oe
		logger.Info("embedding gateway", zap.String("provider", ProviderONNX), zap.String("model_path", cfg.ModelPath))
	case ProviderMock:
		base = NewMockEmbedder(cfg.Dimensions)
		logger.Info("embedding gateway", zap.String("provider", ProviderMock), zap.Int("dimensions", base.Dimensions()))
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (supported: openai, onnx, mock)", cfg.Provider)
	}

	if cfg.CacheSize > 0 {
		return NewCachedEmbedder(base, cfg.CacheSize), nil
	}
	return base, nil
}
