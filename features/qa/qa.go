package qa

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"newsbrief/backend/internal/retrieval"
)

var ErrEmptyQuestion = errors.New("question must not be empty")

// NoContextAnswer is returned when the user has nothing indexed that matches
// the question. It is a normal answer, not an error.
const NoContextAnswer = "No relevant documents found. Please add some URLs first to provide context for your questions."

const sourcePreviewLen = 200

// Source points the user at one retrieved chunk backing the answer.
type Source struct {
	URL     string  `json:"url"`
	Preview string  `json:"text"`
	Score   float32 `json:"score"`
}

// Answer is the full response to one question.
type Answer struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
}

type Retriever interface {
	Retrieve(ctx context.Context, userID, question string) ([]retrieval.RetrievedChunk, error)
}

type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type Service struct {
	retriever       Retriever
	generator       Generator
	promptCharLimit int
}

func NewService(retriever Retriever, generator Generator, promptCharLimit int) *Service {
	return &Service{
		retriever:       retriever,
		generator:       generator,
		promptCharLimit: promptCharLimit,
	}
}

// Ask answers a question from the user's indexed documents. With no
// matching documents it returns the fixed fallback answer and an empty
// source list without calling the generator.
func (s *Service) Ask(ctx context.Context, userID, question string) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	chunks, err := s.retriever.Retrieve(ctx, userID, question)
	if err != nil {
		return nil, err
	}

	if len(chunks) == 0 {
		slog.InfoContext(ctx, "no context for question", "user_id", userID)
		return &Answer{Answer: NoContextAnswer, Sources: []Source{}}, nil
	}

	prompt := BuildPrompt(question, chunks, s.promptCharLimit)

	answer, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	sources := make([]Source, 0, len(chunks))
	for _, c := range chunks {
		sources = append(sources, Source{
			URL:     c.URL,
			Preview: preview(c.Content),
			Score:   c.Score,
		})
	}

	return &Answer{Answer: answer, Sources: sources}, nil
}

func preview(content string) string {
	content = strings.TrimSpace(content)
	if len(content) <= sourcePreviewLen {
		return content
	}
	return content[:sourcePreviewLen] + "..."
}
