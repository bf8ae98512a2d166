package ai

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
)

const defaultMaxTokens = 500

type OpenAIClient struct {
	client    *openai.Client
	model     string
	maxTokens int
	log       zerolog.Logger
}

func NewOpenAIClient(apiKey, model string, log zerolog.Logger) *OpenAIClient {
	return newOpenAIClient(openai.DefaultConfig(apiKey), model, log)
}

func newOpenAIClient(cfg openai.ClientConfig, model string, log zerolog.Logger) *OpenAIClient {
	if model == "" {
		model = openai.GPT4oMini
	}

	return &OpenAIClient{
		client:    openai.NewClientWithConfig(cfg),
		model:     model,
		maxTokens: defaultMaxTokens,
		log:       log.With().Str("component", "openai").Logger(),
	}
}

func (c *OpenAIClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
	})
	if err != nil {
		c.log.Error().Err(err).Msg("chat completion failed")
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("ai: empty choices")
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", errors.New("ai: empty answer")
	}

	c.log.Debug().Int("tokens", resp.Usage.TotalTokens).Msg("chat completion ok")
	return text, nil
}
