package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

var (
	// ErrDimensionMismatch means the service returned a vector whose length
	// does not match the index dimension. Nothing from the affected batch is
	// returned, so nothing reaches the index.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrEmbeddingService marks a transient failure that survived the retry
	// budget.
	ErrEmbeddingService = errors.New("embedding service failed")

	// ErrServiceContract marks a response that is missing required fields.
	ErrServiceContract = errors.New("unexpected service response")
)

const embeddingModel = "gemini-embedding-001"

type Embedder struct {
	client     *genai.Client
	model      string
	dimension  int
	batchSize  int
	maxRetries int
}

func NewEmbedder(ctx context.Context, apiKey string, dimension, batchSize, maxRetries int, opts ...option.ClientOption) (*Embedder, error) {
	clientOpts := append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	client, err := genai.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, err
	}
	if batchSize <= 0 {
		batchSize = 32
	}
	return &Embedder{
		client:     client,
		model:      embeddingModel,
		dimension:  dimension,
		batchSize:  batchSize,
		maxRetries: maxRetries,
	}, nil
}

// EmbedBatch embeds texts in batches of at most batchSize per call. Every
// returned vector is validated against the configured index dimension before
// anything is handed back to the caller.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	em := e.client.EmbeddingModel(e.model)
	out := make([][]float32, 0, len(texts))

	for i := 0; i < len(texts); i += e.batchSize {
		end := i + e.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch := em.NewBatch()
		for _, t := range texts[i:end] {
			batch.AddContent(genai.Text(t))
		}

		res, err := e.embedWithRetry(ctx, em, batch)
		if err != nil {
			return nil, err
		}
		if res == nil || len(res.Embeddings) != end-i {
			got := 0
			if res != nil {
				got = len(res.Embeddings)
			}
			return nil, fmt.Errorf("%w: got %d embeddings for %d inputs", ErrServiceContract, got, end-i)
		}

		for _, emb := range res.Embeddings {
			if emb == nil || len(emb.Values) == 0 {
				return nil, fmt.Errorf("%w: empty embedding", ErrServiceContract)
			}
			if len(emb.Values) != e.dimension {
				return nil, fmt.Errorf("%w: got %d, index expects %d", ErrDimensionMismatch, len(emb.Values), e.dimension)
			}
			out = append(out, emb.Values)
		}
	}

	return out, nil
}

// Embed embeds a single text, typically a question.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (e *Embedder) embedWithRetry(ctx context.Context, em *genai.EmbeddingModel, batch *genai.EmbeddingBatch) (*genai.BatchEmbedContentsResponse, error) {
	var res *genai.BatchEmbedContentsResponse

	operation := func() error {
		r, err := em.BatchEmbedContents(ctx, batch)
		if err != nil {
			slog.WarnContext(ctx, "embedding call failed, will retry", "error", err)
			return err
		}
		res = r
		return nil
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(e.maxRetries)), ctx)
	if err := backoff.Retry(operation, bo); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingService, err)
	}
	return res, nil
}

func (e *Embedder) Close() error {
	return e.client.Close()
}
