package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"newsbrief/backend/features/library"
	"newsbrief/backend/features/qa"
	"newsbrief/backend/internal/config"
	"newsbrief/backend/internal/middleware"
	"newsbrief/backend/internal/retrieval"
	"newsbrief/backend/internal/vector"
)

// VectorStore is the full index surface the features need. The Weaviate
// store satisfies it; tests swap in fakes.
type VectorStore interface {
	UpsertChunks(ctx context.Context, records []vector.Record) error
	Query(ctx context.Context, userID string, vec []float32, topK int) ([]retrieval.RetrievedChunk, error)
	DeleteByUser(ctx context.Context, userID string) error
	DeleteByUserURL(ctx context.Context, userID, url string) error
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

type App struct {
	Handler        http.Handler
	LibraryService *library.Service
	port           int
}

func New(
	cfg *config.Config,
	db *sql.DB,
	store VectorStore,
	fetcher Fetcher,
	embedder Embedder,
	generator Generator,
) (*App, error) {

	// Feature: Library
	libraryRepo := library.NewPostgresRepo(db)
	libraryService := library.NewService(libraryRepo, fetcher, embedder, store,
		cfg.ChunkSize, cfg.ChunkOverlap, cfg.IngestConcurrency)
	libraryHandler := library.NewHandler(libraryService)

	// Feature: QA
	queryLogger, err := retrieval.NewFileQueryLogger(cfg.QueryLogPath)
	if err != nil {
		slog.Warn("failed to create query logger, falling back to stdout", "error", err)
		queryLogger = retrieval.NewQueryLogger(os.Stdout)
	}

	retrievalService := retrieval.NewService(embedder, store, cfg.SearchTopK, queryLogger)
	qaService := qa.NewService(retrievalService, generator, cfg.PromptCharLimit)
	qaHandler := qa.NewHandler(qaService)

	// Middleware: CORS
	enableCORS := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next(w, r)
		}
	}

	// Routes
	mux := http.NewServeMux()

	mux.Handle("POST /ingest", middleware.CorrelationID(enableCORS(libraryHandler.Ingest)))
	mux.Handle("POST /clear-index", middleware.CorrelationID(enableCORS(libraryHandler.Clear)))
	mux.Handle("GET /my-urls", middleware.CorrelationID(enableCORS(libraryHandler.ListURLs)))

	mux.Handle("POST /ask", middleware.CorrelationID(enableCORS(qaHandler.Ask)))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	return &App{
		Handler:        mux,
		LibraryService: libraryService,
		port:           cfg.ServerPort,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.port),
		Handler: a.Handler,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutting down server...")
		if err := srv.Shutdown(context.Background()); err != nil {
			slog.Error("server shutdown failed", "error", err)
		}
	}()

	slog.Info("server starting", "port", a.port)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
