package vector

// Record is one chunk ready for indexing: the chunk text, where it came
// from, who owns it, and its embedding.
type Record struct {
	ID        string
	Content   string
	URL       string
	UserID    string
	Position  int
	Embedding []float32
}
