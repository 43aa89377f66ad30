package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/ethanbaker/receptionist/pkg/prompt"
	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

// ChatOptions configures a ChatGenerator
type ChatOptions struct {
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int

	// RequestOptions are appended to the SDK client options (base URL, HTTP client)
	RequestOptions []option.RequestOption
}

// ChatGenerator calls the OpenAI chat completions API
type ChatGenerator struct {
	client      openai.Client
	model       string
	temperature float64
	maxTokens   int64
}

// NewChatGenerator creates a chat completions generator. SDK level retries are disabled:
// a failed generation is reported to the caller instead of being retried within the turn
func NewChatGenerator(opts ChatOptions) *ChatGenerator {
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxTokens
	}

	reqOpts := append([]option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithMaxRetries(0),
	}, opts.RequestOptions...)

	return &ChatGenerator{
		client:      openai.NewClient(reqOpts...),
		model:       opts.Model,
		temperature: opts.Temperature,
		maxTokens:   int64(opts.MaxTokens),
	}
}

// Generate implements Generator
func (g *ChatGenerator) Generate(ctx context.Context, p prompt.Prompt) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(p.Messages)+1)
	messages = append(messages, openai.SystemMessage(p.System))
	for _, m := range p.Messages {
		switch m.Role {
		case prompt.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(m.Content))
		default:
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}

	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(g.model),
		Messages:    messages,
		Temperature: openai.Float(g.temperature),
		MaxTokens:   openai.Int(g.maxTokens),
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests {
			return "", classify(KindRateLimited, err)
		}
		return "", classify(KindTransport, err)
	}

	if len(resp.Choices) == 0 {
		return "", &GenerationError{Kind: KindMalformed, Err: fmt.Errorf("completion returned no choices")}
	}

	content := resp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", &GenerationError{Kind: KindMalformed, Err: fmt.Errorf("completion returned empty content")}
	}

	return content, nil
}
