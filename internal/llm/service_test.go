package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"

	"github.com/RichardoC/lovegpt/internal/models"
)

type fakeModel struct {
	reply string
	err   error
	got   []llms.MessageContent
}

func (f *fakeModel) GenerateContent(_ context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	f.got = messages
	if f.err != nil {
		return nil, f.err
	}
	if f.reply == "" {
		return &llms.ContentResponse{}, nil
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: f.reply}}}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func textOf(t *testing.T, mc llms.MessageContent) string {
	t.Helper()
	require.Len(t, mc.Parts, 1)
	tc, ok := mc.Parts[0].(llms.TextContent)
	require.True(t, ok)
	return tc.Text
}

var history = []models.ChatMessage{
	{ID: 1, Message: "Hi", IsRobot: false},
	{ID: 2, Message: "Hello there", IsRobot: true},
}

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt("warm and caring", history, "tell me about yourself")
	require.Len(t, prompt, 4)

	wantRoles := []schema.ChatMessageType{
		schema.ChatMessageTypeSystem,
		schema.ChatMessageTypeHuman,
		schema.ChatMessageTypeAI,
		schema.ChatMessageTypeHuman,
	}
	wantText := []string{"warm and caring", "Hi", "Hello there", "tell me about yourself"}
	for i := range prompt {
		assert.Equal(t, wantRoles[i], prompt[i].Role)
		assert.Equal(t, wantText[i], textOf(t, prompt[i]))
	}
}

func TestBuildPromptNoHistory(t *testing.T) {
	prompt := BuildPrompt("persona", nil, "hi")
	require.Len(t, prompt, 2)
	assert.Equal(t, schema.ChatMessageTypeSystem, prompt[0].Role)
	assert.Equal(t, schema.ChatMessageTypeHuman, prompt[1].Role)
}

func TestReply(t *testing.T) {
	model := &fakeModel{reply: "  Hello! My name is Alex.  "}
	svc := New(model, time.Second)

	reply, err := svc.Reply(context.Background(), "warm and caring", history, "who are you?")
	require.NoError(t, err)
	assert.Equal(t, "Hello! My name is Alex.", reply)
	assert.Len(t, model.got, 4)
}

func TestReplyFailures(t *testing.T) {
	tests := []struct {
		name  string
		model *fakeModel
	}{
		{name: "transport error", model: &fakeModel{err: errors.New("connection refused")}},
		{name: "no choices", model: &fakeModel{}},
		{name: "blank reply", model: &fakeModel{reply: "   "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.model, 0).Reply(context.Background(), "p", nil, "hi")
			assert.ErrorIs(t, err, models.ErrUpstream)
		})
	}
}

// completionServer mimics the OpenAI chat completions endpoint and records
// the roles it was sent.
func completionServer(t *testing.T, status int) (*httptest.Server, func() []string) {
	t.Helper()
	var (
		mu    sync.Mutex
		roles []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var req struct {
			Messages []struct {
				Role string `json:"role"`
			} `json:"messages"`
		}
		_ = json.Unmarshal(body, &req)
		mu.Lock()
		roles = roles[:0]
		for _, m := range req.Messages {
			roles = append(roles, m.Role)
		}
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			w.Write([]byte(`{"error":{"message":"quota exceeded","type":"insufficient_quota"}}`))
			return
		}
		w.Write([]byte(`{"id":"c1","object":"chat.completion","created":1,"model":"gpt-3.5-turbo","choices":[{"index":0,"message":{"role":"assistant","content":"Hello! My name is Alex."},"finish_reason":"stop"}],"usage":{"prompt_tokens":3,"completion_tokens":5,"total_tokens":8}}`))
	}))
	t.Cleanup(srv.Close)
	return srv, func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), roles...)
	}
}

func TestBackendsAgainstCompletionServer(t *testing.T) {
	for _, backend := range []string{BackendLangChain, BackendGoOpenAI} {
		t.Run(backend, func(t *testing.T) {
			srv, roles := completionServer(t, http.StatusOK)
			model, err := NewModel(backend, srv.URL+"/v1", "test-token", "gpt-3.5-turbo")
			require.NoError(t, err)

			reply, err := New(model, 5*time.Second).Reply(context.Background(), "warm and caring", history, "who are you?")
			require.NoError(t, err)
			assert.Equal(t, "Hello! My name is Alex.", reply)
			assert.Equal(t, []string{"system", "user", "assistant", "user"}, roles())
		})
	}
}

func TestBackendsUpstreamError(t *testing.T) {
	for _, backend := range []string{BackendLangChain, BackendGoOpenAI} {
		t.Run(backend, func(t *testing.T) {
			srv, _ := completionServer(t, http.StatusTooManyRequests)
			model, err := NewModel(backend, srv.URL+"/v1", "test-token", "gpt-3.5-turbo")
			require.NoError(t, err)

			_, err = New(model, 5*time.Second).Reply(context.Background(), "p", nil, "hi")
			assert.ErrorIs(t, err, models.ErrUpstream)
		})
	}
}

func TestNewModelUnknownBackend(t *testing.T) {
	_, err := NewModel("carrier-pigeon", "", "t", "m")
	assert.Error(t, err)
}
