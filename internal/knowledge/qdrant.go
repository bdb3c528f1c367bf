package knowledge

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/qdrant/go-client/qdrant"
	openai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"

	"github.com/viab/viab-backend/internal/config"
)

// QdrantRetriever searches an architecture-standards collection in Qdrant.
// Queries are embedded with the OpenAI embeddings API before the vector
// search.
type QdrantRetriever struct {
	client     *qdrant.Client
	embedder   *openai.Client
	collection string
	model      openai.EmbeddingModel
}

// NewQdrantRetriever connects to the Qdrant server named in the knowledge
// config. The embedding API key falls back to the visualizer agent's key so
// a single-key deployment needs no extra configuration.
func NewQdrantRetriever(cfg config.KnowledgeConfig, embeddingAPIKey string) (*QdrantRetriever, error) {
	if cfg.QdrantURL == "" {
		return nil, fmt.Errorf("qdrant url is required")
	}
	if embeddingAPIKey == "" {
		return nil, fmt.Errorf("embedding api key is required")
	}

	raw := cfg.QdrantURL
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse qdrant url: %w", err)
	}

	host := u.Hostname()
	port := 6334
	if u.Port() != "" {
		p, err := strconv.Atoi(u.Port())
		if err != nil {
			return nil, fmt.Errorf("invalid qdrant port: %w", err)
		}
		port = p
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: cfg.QdrantAPIKey,
		UseTLS: u.Scheme == "https",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"host":       host,
		"collection": cfg.Collection,
	}).Info("Connected to knowledge base")

	return &QdrantRetriever{
		client:     client,
		embedder:   openai.NewClient(embeddingAPIKey),
		collection: cfg.Collection,
		model:      openai.EmbeddingModel(cfg.EmbeddingModel),
	}, nil
}

// Search embeds the query and returns the closest passages from the
// collection.
func (r *QdrantRetriever) Search(ctx context.Context, query string, limit int) ([]Snippet, error) {
	if limit <= 0 {
		limit = 5
	}

	vector, err := r.embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	limitUint64 := uint64(limit)
	points, err := r.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: r.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &limitUint64,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant search failed: %w", err)
	}

	snippets := make([]Snippet, 0, len(points))
	for _, point := range points {
		s := Snippet{Score: point.Score}

		if point.Id != nil {
			if id := point.Id.GetUuid(); id != "" {
				s.ID = id
			} else {
				s.ID = fmt.Sprintf("%d", point.Id.GetNum())
			}
		}

		if point.Payload != nil {
			if v, ok := point.Payload["content"]; ok {
				s.Content = v.GetStringValue()
			}
			if v, ok := point.Payload["source"]; ok {
				s.Source = v.GetStringValue()
			}
		}

		if s.Content != "" {
			snippets = append(snippets, s)
		}
	}

	return snippets, nil
}

func (r *QdrantRetriever) embed(ctx context.Context, query string) ([]float32, error) {
	resp, err := r.embedder.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{query},
		Model: r.model,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("embedding response contained no vectors")
	}
	return resp.Data[0].Embedding, nil
}

// Close shuts down the underlying gRPC connection.
func (r *QdrantRetriever) Close() error {
	return r.client.Close()
}
