// Package embedding selects the embedding capability used for indexing and retrieval.
package embedding

import (
	"fmt"
	"os"
	"time"

	"compliance/internal/config"
	"compliance/internal/domain"
	"compliance/internal/embedding/hashing"
	"compliance/internal/embedding/openai"
)

// New builds the embedder named by cfg.Type.
// Index builds and queries must use the same configuration.
func New(cfg config.EmbedderConfig) (domain.Embedder, error) {
	switch cfg.Type {
	case "hashing", "":
		return hashing.NewEmbedder(cfg.Hashing.Dimension), nil
	case "openai":
		if cfg.OpenAI == nil {
			return nil, fmt.Errorf("openai embedder config missing")
		}
		key := ""
		if cfg.OpenAI.APIKeyEnv != "" {
			key = os.Getenv(cfg.OpenAI.APIKeyEnv)
			if key == "" && cfg.OpenAI.BaseURL == openai.DefaultBaseURL {
				return nil, fmt.Errorf("missing API key in env %s", cfg.OpenAI.APIKeyEnv)
			}
		}
		return openai.NewClient(openai.Config{
			BaseURL:    cfg.OpenAI.BaseURL,
			APIKey:     key,
			Model:      cfg.OpenAI.Model,
			Timeout:    time.Duration(cfg.OpenAI.TimeoutSecs) * time.Second,
			MaxRetries: cfg.OpenAI.MaxRetries,
		}), nil
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Type)
	}
}
