package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ethanbaker/receptionist/pkg/prompt"
	"github.com/openai/openai-go/v2/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completionBody(content string) string {
	body, _ := json.Marshal(map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": 1,
		"model":   "gpt-4o",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
	})
	return string(body)
}

func newTestGenerator(t *testing.T, handler http.HandlerFunc) *ChatGenerator {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewChatGenerator(ChatOptions{
		APIKey:      "test-key",
		Model:       "gpt-4o",
		Temperature: 0.7,
		MaxTokens:   500,
		RequestOptions: []option.RequestOption{
			option.WithBaseURL(server.URL + "/"),
		},
	})
}

var testPrompt = prompt.Prompt{
	System: "You are a receptionist",
	Messages: []prompt.Message{
		{Role: prompt.RoleUser, Content: "Hi"},
		{Role: prompt.RoleAssistant, Content: "Hello!"},
		{Role: prompt.RoleUser, Content: "When are you open?"},
	},
}

func TestChatGenerator_Generate(t *testing.T) {
	var received map[string]any

	gen := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"))
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionBody("  We open at 9am.  ")))
	})

	out, err := gen.Generate(context.Background(), testPrompt)
	require.NoError(t, err)
	assert.Equal(t, "  We open at 9am.  ", out)

	assert.Equal(t, "gpt-4o", received["model"])
	assert.InDelta(t, 0.7, received["temperature"], 0.0001)
	assert.EqualValues(t, 500, received["max_tokens"])

	messages, ok := received["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 4)

	roles := make([]string, 0, len(messages))
	for _, m := range messages {
		roles = append(roles, m.(map[string]any)["role"].(string))
	}
	assert.Equal(t, []string{"system", "user", "assistant", "user"}, roles)
}

func TestChatGenerator_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    ErrorKind
		timeout time.Duration
		delay   time.Duration
	}{
		{name: "rate limited", status: http.StatusTooManyRequests, body: `{"error":{"message":"slow down"}}`, want: KindRateLimited},
		{name: "server error", status: http.StatusInternalServerError, body: `{"error":{"message":"boom"}}`, want: KindTransport},
		{name: "empty content", status: http.StatusOK, body: completionBody("   "), want: KindMalformed},
		{name: "no choices", status: http.StatusOK, body: `{"id":"x","object":"chat.completion","created":1,"model":"gpt-4o","choices":[]}`, want: KindMalformed},
		{name: "deadline", status: http.StatusOK, body: completionBody("late"), want: KindTimeout, timeout: 20 * time.Millisecond, delay: 500 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
				if tt.delay > 0 {
					select {
					case <-time.After(tt.delay):
					case <-r.Context().Done():
						return
					}
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			ctx := context.Background()
			if tt.timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, tt.timeout)
				defer cancel()
			}

			out, err := gen.Generate(ctx, testPrompt)
			require.Error(t, err)
			assert.Empty(t, out)

			var genErr *GenerationError
			require.True(t, errors.As(err, &genErr))
			assert.Equal(t, tt.want, genErr.Kind)
		})
	}
}

func TestAgentInput(t *testing.T) {
	tests := []struct {
		name         string
		prompt       prompt.Prompt
		wantInput    string
		wantContains []string
		wantExact    bool
	}{
		{
			name:      "single caller message",
			prompt:    prompt.Prompt{System: "sys", Messages: []prompt.Message{{Role: prompt.RoleUser, Content: "Hi"}}},
			wantInput: "Hi",
			wantExact: true,
		},
		{
			name:         "transcript folded into instructions",
			prompt:       testPrompt,
			wantInput:    "When are you open?",
			wantContains: []string{"You are a receptionist", "Caller: Hi", "You: Hello!"},
		},
		{
			name:      "no messages",
			prompt:    prompt.Prompt{System: "sys"},
			wantInput: silentCaller,
			wantExact: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			instructions, input := agentInput(tt.prompt)
			assert.Equal(t, tt.wantInput, input)
			if tt.wantExact {
				assert.Equal(t, "sys", instructions)
			}
			for _, want := range tt.wantContains {
				assert.Contains(t, instructions, want)
			}
			assert.NotContains(t, instructions, "When are you open?")
		})
	}
}

func TestGenerationError_Unwrap(t *testing.T) {
	err := classify(KindTransport, context.DeadlineExceeded)
	assert.Equal(t, KindTimeout, err.Kind)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "timeout")
}
