package llm

import (
	"context"
	"fmt"
	"strings"
)

// Backend generates an answer from a question and the retrieved context.
// The RAG core never assumes anything about how generation is fulfilled;
// a backend is selected once at construction via explicit configuration.
type Backend interface {
	Generate(ctx context.Context, question string, docContext string) (string, error)
	Name() string
}

// MockBackend returns a canned answer; used in tests and offline demos
type MockBackend struct {
	Response string
}

// Generate returns the canned response, echoing the question when no
// response is configured
func (m *MockBackend) Generate(ctx context.Context, question string, docContext string) (string, error) {
	if m.Response != "" {
		return m.Response, nil
	}
	return fmt.Sprintf("mock answer to %q based on %d context bytes", question, len(docContext)), nil
}

func (m *MockBackend) Name() string {
	return "mock"
}

const systemPrompt = `You are an expert on O-RAN and Nephio. Answer the question using only the
provided documentation excerpts. Cite the bracketed excerpt numbers you used
and say so explicitly when the excerpts do not contain the answer.`

// BuildPrompt renders the user prompt handed to a backend from the
// question and the citation-bearing context string
func BuildPrompt(question string, docContext string) string {
	var b strings.Builder
	b.WriteString("Documentation excerpts:\n\n")
	b.WriteString(strings.TrimSpace(docContext))
	b.WriteString("\n\nQuestion: ")
	b.WriteString(strings.TrimSpace(question))
	return b.String()
}

// BackendKind selects the generation backend at construction time
type BackendKind string

const (
	BackendOpenAI BackendKind = "openai"
	BackendMock   BackendKind = "mock"
)

// NewBackend constructs the configured backend variant
func NewBackend(kind BackendKind, apiKey, chatModel string) (Backend, error) {
	switch kind {
	case BackendOpenAI:
		return NewOpenAIBackend(apiKey, chatModel)
	case BackendMock:
		return &MockBackend{}, nil
	default:
		return nil, fmt.Errorf("unknown LLM backend kind %q", kind)
	}
}

// interface guards
var (
	_ Backend = (*MockBackend)(nil)
	_ Backend = (*OpenAIBackend)(nil)
)
