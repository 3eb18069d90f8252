package oracle

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// OpenAIConfig configures the OpenAI-compatible completion client. BaseURL
// may point at any compatible server; an empty APIKey is replaced with a
// placeholder for local servers that skip authentication.
type OpenAIConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// OpenAIOracle implements Oracle against an OpenAI-compatible chat API.
type OpenAIOracle struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

// NewOpenAIOracle builds the client.
func NewOpenAIOracle(cfg OpenAIConfig, logger *zap.Logger) (*OpenAIOracle, error) {
	if cfg.Model == "" {
		return nil, errors.New("oracle model is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = "not-needed"
	}
	clientCfg := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &OpenAIOracle{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   cfg.Model,
		timeout: cfg.Timeout,
		logger:  logger.Named("oracle"),
	}, nil
}

// Complete sends the prompt, attaching the screenshot as an inline image part
// when present, and returns the raw completion text.
func (o *OpenAIOracle) Complete(ctx context.Context, prompt string, image []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	msg := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser}
	if len(image) == 0 {
		msg.Content = prompt
	} else {
		msg.MultiContent = []openai.ChatMessagePart{
			{Type: openai.ChatMessagePartTypeText, Text: prompt},
			{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL: "data:image/png;base64," + base64.StdEncoding.EncodeToString(image),
				},
			},
		}
	}

	start := time.Now()
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    o.model,
		Messages: []openai.ChatCompletionMessage{msg},
	})
	if err != nil {
		return "", fmt.Errorf("oracle completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("oracle returned no choices")
	}

	o.logger.Debug("oracle completion finished",
		zap.Duration("dur", time.Since(start)),
		zap.Bool("vision", len(image) > 0),
	)
	return resp.Choices[0].Message.Content, nil
}
