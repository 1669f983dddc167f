package llm

import (
	"context"
	"fmt"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"
)

// chatModel adapts the go-openai client to llms.Model.
type chatModel struct {
	client *goopenai.Client
	model  string
}

var _ llms.Model = (*chatModel)(nil)

func NewGoOpenAI(baseURL, token, model string) llms.Model {
	cfg := goopenai.DefaultConfig(token)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &chatModel{client: goopenai.NewClientWithConfig(cfg), model: model}
}

func (m *chatModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	opts := llms.CallOptions{}
	for _, opt := range options {
		opt(&opts)
	}
	model := m.model
	if opts.Model != "" {
		model = opts.Model
	}

	req := goopenai.ChatCompletionRequest{
		Model:    model,
		Messages: make([]goopenai.ChatCompletionMessage, 0, len(messages)),
	}
	for _, mc := range messages {
		role, err := roleFor(mc.Role)
		if err != nil {
			return nil, err
		}
		var text strings.Builder
		for _, part := range mc.Parts {
			if tc, ok := part.(llms.TextContent); ok {
				text.WriteString(tc.Text)
			}
		}
		req.Messages = append(req.Messages, goopenai.ChatCompletionMessage{Role: role, Content: text.String()})
	}

	resp, err := m.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, err
	}

	choices := make([]*llms.ContentChoice, 0, len(resp.Choices))
	for _, c := range resp.Choices {
		choices = append(choices, &llms.ContentChoice{
			Content:    c.Message.Content,
			StopReason: string(c.FinishReason),
		})
	}
	return &llms.ContentResponse{Choices: choices}, nil
}

func (m *chatModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

func roleFor(t schema.ChatMessageType) (string, error) {
	switch t {
	case schema.ChatMessageTypeSystem:
		return goopenai.ChatMessageRoleSystem, nil
	case schema.ChatMessageTypeHuman, schema.ChatMessageTypeGeneric:
		return goopenai.ChatMessageRoleUser, nil
	case schema.ChatMessageTypeAI:
		return goopenai.ChatMessageRoleAssistant, nil
	default:
		return "", fmt.Errorf("unsupported message role %q", t)
	}
}
