package llm

import (
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

const (
	BackendLangChain = "langchain"
	BackendGoOpenAI  = "go-openai"
)

// NewModel builds the completion client for the named backend. Both speak
// the OpenAI chat completions protocol; baseURL may be empty for the
// public endpoint.
func NewModel(backend, baseURL, token, model string) (llms.Model, error) {
	switch backend {
	case "", BackendLangChain:
		opts := []openai.Option{
			openai.WithToken(token),
			openai.WithModel(model),
		}
		if baseURL != "" {
			opts = append(opts, openai.WithBaseURL(baseURL))
		}
		llm, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize OpenAI: %w", err)
		}
		return llm, nil
	case BackendGoOpenAI:
		return NewGoOpenAI(baseURL, token, model), nil
	default:
		return nil, fmt.Errorf("unknown llm backend %q", backend)
	}
}
