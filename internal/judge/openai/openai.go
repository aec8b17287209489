// Package openai renders compliance judgments through any OpenAI-compatible
// chat completions endpoint.
package openai

import (
	"context"
	"errors"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"compliance/internal/domain"
)

var _ domain.Judge = (*Judge)(nil)

// Default configuration values. The default endpoint is Gemini's
// OpenAI-compatible API.
const (
	DefaultBaseURL     = "https://generativelanguage.googleapis.com/v1beta/openai/"
	DefaultModel       = "gemini-2.0-flash"
	DefaultTemperature = 0.3
)

// Config configures the judge.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
}

// Judge sends each prompt as a single user message and returns the reply text.
type Judge struct {
	client      openai.Client
	model       string
	temperature float64
}

// New creates a judge. Transport retries are disabled: a failed call is
// reported to the caller as is.
func New(cfg Config, opts ...option.RequestOption) *Judge {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultTemperature
	}
	base := []option.RequestOption{
		option.WithBaseURL(cfg.BaseURL),
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	return &Judge{
		client:      openai.NewClient(append(base, opts...)...),
		model:       strings.TrimPrefix(cfg.Model, "models/"),
		temperature: cfg.Temperature,
	}
}

// Model returns the chat model name.
func (j *Judge) Model() string { return j.model }

// Judge returns the model's reply to prompt.
func (j *Judge) Judge(ctx context.Context, prompt string) (string, error) {
	resp, err := j.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(j.model),
		Messages:    []openai.ChatCompletionMessageParamUnion{openai.UserMessage(prompt)},
		Temperature: openai.Float(j.temperature),
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
