// Package judge builds the language model capability that renders verdicts.
package judge

import (
	"fmt"
	"os"

	"compliance/internal/config"
	"compliance/internal/domain"
	"compliance/internal/judge/openai"
)

// New builds the judge named by cfg.Type, wrapped in a rate limiter when
// cfg.RequestsPerMinute is set.
func New(cfg config.JudgeConfig) (domain.Judge, error) {
	var j domain.Judge
	switch cfg.Type {
	case "openai", "":
		key := ""
		if cfg.APIKeyEnv != "" {
			key = os.Getenv(cfg.APIKeyEnv)
			if key == "" {
				return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
			}
		}
		j = openai.New(openai.Config{
			BaseURL:     cfg.BaseURL,
			APIKey:      key,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
		})
	default:
		return nil, fmt.Errorf("unknown judge: %s", cfg.Type)
	}
	return NewRateLimited(j, cfg.RequestsPerMinute), nil
}
