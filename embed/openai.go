package embed

import (
	"context"
	"fmt"
	"os"

	openai "github.com/sashabaranov/go-openai"

	"github.com/c360studio/kddindex/kdderr"
	"github.com/c360studio/kddindex/model"
)

// Environment variables consumed by the adapter. The engine itself reads
// neither.
const (
	EnvAPIKey  = "KDD_EMBEDDING_API_KEY"
	EnvBaseURL = "KDD_EMBEDDING_BASE_URL"
)

// OpenAIEmbedder calls an OpenAI-compatible embeddings endpoint. Works
// against the hosted API or any local server exposing the same surface.
type OpenAIEmbedder struct {
	client     *openai.Client
	modelName  string
	dimensions int
}

// NewOpenAIEmbedder builds the adapter from the environment. The base URL is
// optional; the API key is required unless a base URL points at a local
// server that ignores auth.
func NewOpenAIEmbedder(modelName string, dimensions int) (*OpenAIEmbedder, error) {
	apiKey := os.Getenv(EnvAPIKey)
	baseURL := os.Getenv(EnvBaseURL)
	if apiKey == "" && baseURL == "" {
		return nil, kdderr.New(kdderr.APIKeyMissing, "%s is not set", EnvAPIKey)
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIEmbedder{
		client:     openai.NewClientWithConfig(cfg),
		modelName:  modelName,
		dimensions: dimensions,
	}, nil
}

func (e *OpenAIEmbedder) ModelName() string { return e.modelName }

func (e *OpenAIEmbedder) Dimensions() int { return e.dimensions }

// Embed requests one embedding for text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) (model.Vector, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.modelName),
		Input: []string{text},
	})
	if err != nil {
		return nil, fmt.Errorf("create embedding: %w", err)
	}
	if len(resp.Data) != 1 {
		return nil, fmt.Errorf("create embedding: expected 1 result, got %d", len(resp.Data))
	}
	return model.Vector(resp.Data[0].Embedding), nil
}
