package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/RichardoC/lovegpt/internal/models"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"
)

// Service turns a robot persona plus a conversation transcript into a
// completion request. It never touches storage.
type Service struct {
	llm     llms.Model
	timeout time.Duration
}

func New(model llms.Model, timeout time.Duration) *Service {
	return &Service{llm: model, timeout: timeout}
}

// BuildPrompt lays out the persona as the system message, then the
// transcript, then the new user message.
func BuildPrompt(persona string, history []models.ChatMessage, message string) []llms.MessageContent {
	prompt := make([]llms.MessageContent, 0, len(history)+2)
	prompt = append(prompt, llms.TextParts(schema.ChatMessageTypeSystem, persona))
	for _, h := range history {
		role := schema.ChatMessageTypeHuman
		if h.IsRobot {
			role = schema.ChatMessageTypeAI
		}
		prompt = append(prompt, llms.TextParts(role, h.Message))
	}
	return append(prompt, llms.TextParts(schema.ChatMessageTypeHuman, message))
}

// Reply asks the completion API for the robot's next turn. Every failure is
// reported as models.ErrUpstream.
func (s *Service) Reply(ctx context.Context, persona string, history []models.ChatMessage, message string) (string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	resp, err := s.llm.GenerateContent(ctx, BuildPrompt(persona, history, message))
	if err != nil {
		return "", fmt.Errorf("%w: generate completion: %w", models.ErrUpstream, err)
	}
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0] == nil {
		return "", fmt.Errorf("%w: empty completion response", models.ErrUpstream)
	}

	reply := strings.TrimSpace(resp.Choices[0].Content)
	if reply == "" {
		return "", fmt.Errorf("%w: blank completion", models.ErrUpstream)
	}
	return reply, nil
}
