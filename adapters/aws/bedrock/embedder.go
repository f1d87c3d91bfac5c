package bedrock

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/smithy-go/ptr"

	"github.com/ProjectAlita/indexpipe/embedding"
)

// EmbeddingModelID represents available Bedrock embedding models
type EmbeddingModelID string

const (
	TitanEmbedV1 EmbeddingModelID = "amazon.titan-embed-text-v1"
	TitanEmbedV2 EmbeddingModelID = "amazon.titan-embed-text-v2:0"
)

// BedrockEmbedder implements embedding.Embedder over Amazon Bedrock's Titan
// embedding models. Titan accepts one input text per invocation, so document
// batches are embedded sequentially.
type BedrockEmbedder struct {
	client  *bedrockruntime.Client
	model   EmbeddingModelID
	options *embedding.EmbeddingOptions
}

type titanEmbedRequest struct {
	InputText  string `json:"inputText"`
	Dimensions int    `json:"dimensions,omitempty"`
	Normalize  bool   `json:"normalize,omitempty"`
}

type titanEmbedResponse struct {
	Embedding           []float32 `json:"embedding"`
	InputTextTokenCount int       `json:"inputTextTokenCount"`
}

func NewBedrockEmbedder(client *bedrockruntime.Client, model EmbeddingModelID, opts ...embedding.Option) *BedrockEmbedder {
	if model == "" {
		model = TitanEmbedV2
	}

	options := &embedding.EmbeddingOptions{
		Model:     string(model),
		Normalize: true,
	}
	for _, opt := range opts {
		opt(options)
	}

	return &BedrockEmbedder{
		client:  client,
		model:   model,
		options: options,
	}
}

// EmbedDocuments implements the Embedder interface
func (b *BedrockEmbedder) EmbedDocuments(ctx context.Context, documents []string) ([][]float32, error) {
	if len(documents) == 0 {
		return nil, embedding.ErrEmptyInput("EmbedDocuments")
	}

	vectors := make([][]float32, len(documents))
	for i, text := range documents {
		vector, err := b.invoke(ctx, "EmbedDocuments", text)
		if err != nil {
			return nil, err
		}
		vectors[i] = vector
	}

	return vectors, nil
}

// EmbedQuery implements the Embedder interface
func (b *BedrockEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, embedding.ErrEmptyInput("EmbedQuery")
	}
	return b.invoke(ctx, "EmbedQuery", text)
}

func (b *BedrockEmbedder) invoke(ctx context.Context, op, text string) ([]float32, error) {
	req := titanEmbedRequest{InputText: text}
	if b.model == TitanEmbedV2 {
		req.Normalize = b.options.Normalize
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, embedding.NewEmbeddingError(op, err, embedding.ErrCodeInternal,
			"failed to marshal request")
	}

	output, err := b.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     ptr.String(string(b.model)),
		Body:        body,
		ContentType: ptr.String("application/json"),
	})
	if err != nil {
		return nil, handleBedrockError(op, err)
	}

	var resp titanEmbedResponse
	if err := json.Unmarshal(output.Body, &resp); err != nil {
		return nil, embedding.NewEmbeddingError(op, err, embedding.ErrCodeInternal,
			"failed to unmarshal response")
	}
	if len(resp.Embedding) == 0 {
		return nil, embedding.NewEmbeddingError(op, nil, embedding.ErrCodeAPIError,
			"no embedding returned from Bedrock")
	}

	return resp.Embedding, nil
}

func handleBedrockError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return embedding.NewEmbeddingError(op, err, embedding.ErrCodeContextCanceled,
			"request cancelled")
	}
	return embedding.NewEmbeddingError(op, err, embedding.ErrCodeAPIError,
		"Bedrock API error")
}
