package responder

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const systemPrompt = `You are a friendly Hindi voice assistant.
Always reply in Hindi (Devanagari script).
Keep replies short: at most two sentences, suitable for speech synthesis.
Do not use markdown, lists or emoji.`

// OpenAIGenerator calls the OpenAI chat completions API directly, bypassing
// the upstream backend. Mirrors the backend's own OpenAI configuration.
type OpenAIGenerator struct {
	client openai.Client
	model  openai.ChatModel
}

// NewOpenAIGenerator creates a generator using the given API key.
func NewOpenAIGenerator(apiKey string) *OpenAIGenerator {
	return &OpenAIGenerator{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  openai.ChatModelGPT3_5Turbo,
	}
}

// Generate produces a reply for the user input.
func (g *OpenAIGenerator) Generate(ctx context.Context, input, sessionID string) (string, error) {
	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(input),
		},
		Model:       g.model,
		MaxTokens:   openai.Int(100),
		Temperature: openai.Float(0.7),
		TopP:        openai.Float(0.9),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("no choices in response")
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", errors.New("empty message content")
	}
	return content, nil
}
