package retrieval

import (
	"context"
	"time"
)

// RetrievedChunk is one indexed chunk returned for a question, ordered by
// similarity.
type RetrievedChunk struct {
	Content  string  `json:"content"`
	URL      string  `json:"url"`
	Position int     `json:"position"`
	Score    float32 `json:"score"`
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type VectorStore interface {
	Query(ctx context.Context, userID string, vector []float32, topK int) ([]RetrievedChunk, error)
}

// Service embeds a question and fetches the caller's nearest chunks. Every
// query is scoped to one user; there is no cross-user retrieval path.
type Service struct {
	embedder Embedder
	store    VectorStore
	topK     int
	logger   *QueryLogger
}

func NewService(e Embedder, s VectorStore, topK int, l *QueryLogger) *Service {
	return &Service{embedder: e, store: s, topK: topK, logger: l}
}

func (s *Service) Retrieve(ctx context.Context, userID, question string) ([]RetrievedChunk, error) {
	start := time.Now()
	var chunks []RetrievedChunk
	var err error

	defer func() {
		if s.logger != nil && err == nil {
			s.logger.Log(QueryLogEntry{
				UserID:     userID,
				Query:      question,
				NumResults: len(chunks),
				Duration:   time.Since(start),
			})
		}
	}()

	vec, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return nil, err
	}

	chunks, err = s.store.Query(ctx, userID, vec, s.topK)
	if err != nil {
		return nil, err
	}

	// An empty result is a valid outcome, not an error. The caller decides
	// how to answer without context.
	return chunks, nil
}
