package knowledge

import "context"

// Snippet is one retrieved knowledge-base passage.
type Snippet struct {
	ID      string  `json:"id"`
	Content string  `json:"content"`
	Source  string  `json:"source,omitempty"`
	Score   float32 `json:"score"`
}

// Retriever is the document-retriever boundary. The agents query it by text
// to pull architecture-standards passages into their prompts; it is optional
// and a nil Retriever simply means no enrichment.
type Retriever interface {
	// Search returns the passages most relevant to the query.
	Search(ctx context.Context, query string, limit int) ([]Snippet, error)

	// Close releases any resources held by the retriever.
	Close() error
}
