package weaviate

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-openapi/strfmt"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"newsbrief/backend/internal/retrieval"
	"newsbrief/backend/internal/vector"
)

// ErrVectorIndex marks a failed index operation.
var ErrVectorIndex = errors.New("vector index operation failed")

type Store struct {
	client *weaviate.Client
}

func NewStore(client *weaviate.Client) *Store {
	return &Store{client: client}
}

// UpsertChunks writes records in one batch. Records carry deterministic IDs,
// so re-ingesting the same URL overwrites the existing objects instead of
// duplicating them.
func (s *Store) UpsertChunks(ctx context.Context, records []vector.Record) error {
	if len(records) == 0 {
		return nil
	}

	objects := make([]*models.Object, 0, len(records))
	for _, r := range records {
		objects = append(objects, &models.Object{
			Class: vector.ClassName,
			ID:    strfmt.UUID(r.ID),
			Properties: map[string]interface{}{
				"content":    r.Content,
				"url":        r.URL,
				"userId":     r.UserID,
				"chunkIndex": r.Position,
			},
			Vector: models.C11yVector(r.Embedding),
		})
	}

	resp, err := s.client.Batch().ObjectsBatcher().
		WithObjects(objects...).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrVectorIndex, err)
	}

	for _, obj := range resp {
		if obj.Result != nil && obj.Result.Errors != nil && len(obj.Result.Errors.Error) > 0 {
			return fmt.Errorf("%w: object %s: %s", ErrVectorIndex, obj.ID, obj.Result.Errors.Error[0].Message)
		}
	}
	return nil
}

// Query returns the userID's topK nearest chunks. The userId filter is
// applied on every call so one user's question can never surface another
// user's documents.
func (s *Store) Query(ctx context.Context, userID string, vec []float32, topK int) ([]retrieval.RetrievedChunk, error) {
	nearVector := s.client.GraphQL().NearVectorArgBuilder().
		WithVector(vec)

	where := filters.Where().
		WithPath([]string{"userId"}).
		WithOperator(filters.Equal).
		WithValueString(userID)

	fields := []graphql.Field{
		{Name: "content"},
		{Name: "url"},
		{Name: "chunkIndex"},
		{Name: "_additional", Fields: []graphql.Field{{Name: "certainty"}}},
	}

	res, err := s.client.GraphQL().Get().
		WithClassName(vector.ClassName).
		WithNearVector(nearVector).
		WithWhere(where).
		WithLimit(topK).
		WithFields(fields...).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrVectorIndex, err)
	}
	if len(res.Errors) > 0 {
		return nil, fmt.Errorf("%w: graphql: %v", ErrVectorIndex, res.Errors[0].Message)
	}

	var chunks []retrieval.RetrievedChunk
	data, ok := res.Data["Get"].(map[string]interface{})
	if !ok {
		return chunks, nil
	}
	raw, ok := data[vector.ClassName].([]interface{})
	if !ok {
		return chunks, nil
	}

	for _, c := range raw {
		props, ok := c.(map[string]interface{})
		if !ok {
			continue
		}
		chunk := retrieval.RetrievedChunk{}
		if content, ok := props["content"].(string); ok {
			chunk.Content = content
		}
		if url, ok := props["url"].(string); ok {
			chunk.URL = url
		}
		if idx, ok := props["chunkIndex"].(float64); ok {
			chunk.Position = int(idx)
		}
		if additional, ok := props["_additional"].(map[string]interface{}); ok {
			if certainty, ok := additional["certainty"].(float64); ok {
				chunk.Score = float32(certainty)
			}
		}
		chunks = append(chunks, chunk)
	}

	return chunks, nil
}

// DeleteByUser removes every chunk the user has indexed.
func (s *Store) DeleteByUser(ctx context.Context, userID string) error {
	_, err := s.client.Batch().ObjectsBatchDeleter().
		WithClassName(vector.ClassName).
		WithOutput("minimal").
		WithWhere(filters.Where().
			WithPath([]string{"userId"}).
			WithOperator(filters.Equal).
			WithValueString(userID)).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrVectorIndex, err)
	}
	return nil
}

// DeleteByUserURL removes the user's chunks for one URL. Run before
// re-ingesting so a shorter re-fetch leaves no stale tail chunks behind.
func (s *Store) DeleteByUserURL(ctx context.Context, userID, url string) error {
	_, err := s.client.Batch().ObjectsBatchDeleter().
		WithClassName(vector.ClassName).
		WithOutput("minimal").
		WithWhere(filters.Where().
			WithOperator(filters.And).
			WithOperands([]*filters.WhereBuilder{
				filters.Where().
					WithPath([]string{"userId"}).
					WithOperator(filters.Equal).
					WithValueString(userID),
				filters.Where().
					WithPath([]string{"url"}).
					WithOperator(filters.Equal).
					WithValueString(url),
			})).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrVectorIndex, err)
	}
	return nil
}
