package knowledge

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

// DefaultEmbeddingModel is used when no embedding model is configured
const DefaultEmbeddingModel = openai.EmbeddingModelTextEmbedding3Small

// OpenAIEmbedder embeds text with the OpenAI embeddings API
type OpenAIEmbedder struct {
	client openai.Client
	model  openai.EmbeddingModel
}

// NewOpenAIEmbedder creates an embedder. Extra request options (base URL, HTTP client)
// are passed to the SDK client
func NewOpenAIEmbedder(apiKey, model string, opts ...option.RequestOption) *OpenAIEmbedder {
	if model == "" {
		model = string(DefaultEmbeddingModel)
	}

	opts = append([]option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}, opts...)

	return &OpenAIEmbedder{
		client: openai.NewClient(opts...),
		model:  openai.EmbeddingModel(model),
	}
}

// Embed implements Embedder
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
		Model: e.model,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding: %w", err)
	}

	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("embedding response contained no vectors")
	}

	return resp.Data[0].Embedding, nil
}
