package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"newsbrief/backend/internal/text"
	"newsbrief/backend/internal/vector"
)

// MaxBatchURLs caps a single ingest request.
const MaxBatchURLs = 10

var (
	ErrNoURLs    = errors.New("at least one url is required")
	ErrBatchSize = fmt.Errorf("at most %d urls per request", MaxBatchURLs)
)

// ProcessedURL is one row of the per-user ingestion ledger.
type ProcessedURL struct {
	ID          int64  `json:"id"`
	UserID      string `json:"user_id"`
	URL         string `json:"url"`
	NumChunks   int    `json:"num_chunks"`
	Status      string `json:"status"` // success, failed
	ProcessedAt string `json:"processed_at"`
}

// IngestResult aggregates the outcome of one batch. A failing URL lands in
// the failed list; it never fails the batch.
type IngestResult struct {
	Success        bool     `json:"success"`
	Message        string   `json:"message"`
	NumDocuments   int      `json:"num_documents"`
	NumChunks      int      `json:"num_chunks"`
	NewURLs        int      `json:"new_urls"`
	SkippedURLs    int      `json:"skipped_urls"`
	FailedURLs     int      `json:"failed_urls"`
	SkippedURLList []string `json:"skipped_url_list"`
	FailedURLList  []string `json:"failed_url_list"`
}

type Repository interface {
	IsProcessed(ctx context.Context, userID, url string) (bool, error)
	Mark(ctx context.Context, rec ProcessedURL) error
	ListByUser(ctx context.Context, userID string, limit int) ([]ProcessedURL, error)
	DeleteByUser(ctx context.Context, userID string) error
}

type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

type VectorStore interface {
	UpsertChunks(ctx context.Context, records []vector.Record) error
	DeleteByUser(ctx context.Context, userID string) error
	DeleteByUserURL(ctx context.Context, userID, url string) error
}

type Service struct {
	repo         Repository
	fetcher      Fetcher
	embedder     Embedder
	store        VectorStore
	chunkSize    int
	chunkOverlap int
	concurrency  int
}

func NewService(repo Repository, fetcher Fetcher, embedder Embedder, store VectorStore, chunkSize, chunkOverlap, concurrency int) *Service {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Service{
		repo:         repo,
		fetcher:      fetcher,
		embedder:     embedder,
		store:        store,
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		concurrency:  concurrency,
	}
}

// ChunkID derives a stable identifier for one chunk. Re-ingesting the same
// URL for the same user produces the same IDs, so upserts overwrite instead
// of duplicating.
func ChunkID(userID, url string, position int) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(fmt.Sprintf("%s|%s|%d", userID, url, position))).String()
}

// Ingest fetches, chunks, embeds and indexes every URL in the batch for one
// user. URLs already in the ledger are skipped; a failing URL is recorded
// and the rest of the batch continues. Only context cancellation returns an
// error.
func (s *Service) Ingest(ctx context.Context, userID string, urls []string) (*IngestResult, error) {
	if len(urls) == 0 {
		return nil, ErrNoURLs
	}
	if len(urls) > MaxBatchURLs {
		return nil, ErrBatchSize
	}

	// Duplicate URLs inside one batch collapse into a single unit of work.
	seen := make(map[string]bool, len(urls))
	unique := make([]string, 0, len(urls))
	for _, u := range urls {
		if !seen[u] {
			seen[u] = true
			unique = append(unique, u)
		}
	}

	result := &IngestResult{
		SkippedURLList: []string{},
		FailedURLList:  []string{},
	}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, url := range unique {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			processed, err := s.repo.IsProcessed(gctx, userID, url)
			if err != nil {
				s.recordFailure(gctx, userID, url, err, result, &mu)
				return nil
			}
			if processed {
				slog.InfoContext(gctx, "url already ingested, skipping", "url", url, "user_id", userID)
				mu.Lock()
				result.SkippedURLs++
				result.SkippedURLList = append(result.SkippedURLList, url)
				mu.Unlock()
				return nil
			}

			numChunks, err := s.ingestURL(gctx, userID, url)
			if err != nil {
				s.recordFailure(gctx, userID, url, err, result, &mu)
				return nil
			}

			if err := s.repo.Mark(gctx, ProcessedURL{
				UserID:    userID,
				URL:       url,
				NumChunks: numChunks,
				Status:    "success",
			}); err != nil {
				slog.ErrorContext(gctx, "failed to record processed url", "error", err, "url", url)
			}

			mu.Lock()
			result.NewURLs++
			result.NumDocuments++
			result.NumChunks += numChunks
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	result.Success = true
	result.Message = fmt.Sprintf("Processed %d URLs: %d new, %d skipped, %d failed",
		len(unique), result.NewURLs, result.SkippedURLs, result.FailedURLs)
	return result, nil
}

func (s *Service) recordFailure(ctx context.Context, userID, url string, cause error, result *IngestResult, mu *sync.Mutex) {
	slog.ErrorContext(ctx, "url ingestion failed", "error", cause, "url", url, "user_id", userID)

	if err := s.repo.Mark(ctx, ProcessedURL{
		UserID: userID,
		URL:    url,
		Status: "failed",
	}); err != nil {
		slog.ErrorContext(ctx, "failed to record failed url", "error", err, "url", url)
	}

	mu.Lock()
	result.FailedURLs++
	result.FailedURLList = append(result.FailedURLList, url)
	mu.Unlock()
}

func (s *Service) ingestURL(ctx context.Context, userID, url string) (int, error) {
	content, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		return 0, err
	}

	chunks, err := text.SplitText(content, s.chunkSize, s.chunkOverlap)
	if err != nil {
		return 0, err
	}

	embeddings, err := s.embedder.EmbedBatch(ctx, chunks)
	if err != nil {
		return 0, err
	}

	// A previous ingest of the same URL may have produced more chunks than
	// this one; clear them so no stale tail survives the upsert.
	if err := s.store.DeleteByUserURL(ctx, userID, url); err != nil {
		return 0, err
	}

	records := make([]vector.Record, 0, len(chunks))
	for i, chunk := range chunks {
		records = append(records, vector.Record{
			ID:        ChunkID(userID, url, i),
			Content:   chunk,
			URL:       url,
			UserID:    userID,
			Position:  i,
			Embedding: embeddings[i],
		})
	}

	if err := s.store.UpsertChunks(ctx, records); err != nil {
		return 0, err
	}

	slog.InfoContext(ctx, "url ingested", "url", url, "user_id", userID, "chunks", len(records))
	return len(records), nil
}

// Clear removes everything the user has indexed: chunks first, then the
// ledger, so a failure between the two leaves re-ingestable state rather
// than orphaned vectors.
func (s *Service) Clear(ctx context.Context, userID string) error {
	if err := s.store.DeleteByUser(ctx, userID); err != nil {
		return err
	}
	return s.repo.DeleteByUser(ctx, userID)
}

// URLs lists the user's ledger entries, most recent first.
func (s *Service) URLs(ctx context.Context, userID string, limit int) ([]ProcessedURL, error) {
	return s.repo.ListByUser(ctx, userID, limit)
}
