package llm

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultChatModel is the default model for chat completions
const DefaultChatModel = "gpt-4o-mini"

// OpenAIBackend fulfills generation through the OpenAI chat API
type OpenAIBackend struct {
	client *openai.Client
	model  string
}

// NewOpenAIBackend creates an OpenAI-backed generation backend
func NewOpenAIBackend(apiKey, chatModel string) (*OpenAIBackend, error) {
	if apiKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}
	if chatModel == "" {
		chatModel = DefaultChatModel
	}
	return &OpenAIBackend{
		client: openai.NewClient(apiKey),
		model:  chatModel,
	}, nil
}

// Generate submits the question with its documentation context and returns
// the completion text
func (b *OpenAIBackend) Generate(ctx context.Context, question string, docContext string) (string, error) {
	resp, err := b.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: b.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: BuildPrompt(question, docContext)},
		},
		Temperature: 0.1,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no completion choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

func (b *OpenAIBackend) Name() string {
	return "openai-" + b.model
}
