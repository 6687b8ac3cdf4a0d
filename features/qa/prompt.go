package qa

import (
	"fmt"
	"strings"

	"newsbrief/backend/internal/retrieval"
)

const promptInstructions = `You are a helpful assistant answering questions about news articles.
Answer the question using ONLY the context below. Each context block starts with the URL it was taken from.
If the context does not contain the answer, say that you don't know; do not make anything up.
When you use information from a source, mention its URL.`

// BuildPrompt assembles the generation prompt within charLimit characters.
// Chunks are added in rank order and the lowest-ranked ones are dropped
// first when the budget runs out; the top chunk is truncated rather than
// dropped so the generator always sees some context.
func BuildPrompt(question string, chunks []retrieval.RetrievedChunk, charLimit int) string {
	var sb strings.Builder
	sb.WriteString(promptInstructions)
	sb.WriteString("\n\nContext:\n")

	footer := fmt.Sprintf("\nQuestion: %s\nAnswer:", question)
	budget := charLimit - sb.Len() - len(footer)

	for i, c := range chunks {
		block := fmt.Sprintf("\n[%s]\n%s\n", c.URL, c.Content)
		if len(block) > budget {
			if i == 0 && budget > 0 {
				sb.WriteString(block[:budget])
			}
			break
		}
		sb.WriteString(block)
		budget -= len(block)
	}

	sb.WriteString(footer)
	return sb.String()
}
