// Package retrieval wraps a Qdrant dense-vector collection behind a uniform
// top-k search call, with an optional reranking pass. Queries are embedded
// with the OpenAI embeddings endpoint before being sent to Qdrant.
package retrieval

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/qdrant/go-client/qdrant"

	"github.com/sousline/sous/pkg/config"
	"github.com/sousline/sous/pkg/session"
)

// Gateway performs dense-vector search with optional reranking, returning
// documents with title/content/metadata.
type Gateway struct {
	client         *qdrant.Client
	embedder       openai.Client
	collectionName string
	cfg            config.RetrievalConfig
}

// New dials the Qdrant collection named in cfg and prepares an embedding
// client for query-time vectorization. embedderAPIKey authenticates the
// OpenAI embeddings calls; cmd/sous resolves it from the environment
// variable RetrievalConfig.APIKeyEnv names, separately from the LLM
// Gateway's key.
func New(cfg config.RetrievalConfig, embedderAPIKey string) (*Gateway, error) {
	host, port, err := splitAddr(cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("retrieval gateway: %w", err)
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("retrieval gateway: failed to create qdrant client: %w", err)
	}

	embedder := openai.NewClient(option.WithAPIKey(embedderAPIKey))

	return &Gateway{
		client:         client,
		embedder:       embedder,
		collectionName: cfg.CollectionName,
		cfg:            cfg,
	}, nil
}

// Search runs top-k dense search for query, applying the gateway's
// configured reranking pass when enabled. k<=0 uses the gateway's default.
func (g *Gateway) Search(ctx context.Context, query string, k int) ([]session.Document, error) {
	if k <= 0 {
		k = g.cfg.TopK
	}

	ctx, cancel := context.WithTimeout(ctx, g.cfg.RequestTimeout)
	defer cancel()

	vector, err := g.embedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("retrieval gateway: failed to embed query: %w", err)
	}

	limit := uint64(k)
	points, err := g.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: g.collectionName,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("retrieval gateway: query failed: %w", err)
	}

	docs := buildDocuments(points)
	if g.cfg.RerankEnabled {
		docs = rerankByQueryOverlap(query, docs)
	}

	return docs, nil
}

func (g *Gateway) embedQuery(ctx context.Context, query string) ([]float32, error) {
	resp, err := g.embedder.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModelTextEmbedding3Small,
		Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(query)},
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("embedding response contained no vectors")
	}

	embedding := resp.Data[0].Embedding
	vector := make([]float32, len(embedding))
	for i, v := range embedding {
		vector[i] = float32(v)
	}
	return vector, nil
}

func buildDocuments(points []*qdrant.ScoredPoint) []session.Document {
	docs := make([]session.Document, 0, len(points))
	for _, p := range points {
		payload := p.GetPayload()
		docs = append(docs, session.Document{
			Title:      stringField(payload, "title"),
			Content:    stringField(payload, "content"),
			CookTime:   stringField(payload, "cook_time"),
			Difficulty: stringField(payload, "difficulty"),
			RecipeID:   stringField(payload, "recipe_id"),
		})
	}
	return docs
}

func stringField(payload map[string]*qdrant.Value, key string) string {
	v, ok := payload[key]
	if !ok || v == nil {
		return ""
	}
	return v.GetStringValue()
}

// rerankByQueryOverlap is a lightweight reranking pass: documents whose
// title shares more query tokens sort first. A full cross-encoder rerank is
// out of scope for this core; the optional flag exists so deployments can
// plug a stronger reranker in without changing the gateway's call shape.
func rerankByQueryOverlap(query string, docs []session.Document) []session.Document {
	tokens := tokenize(query)
	scores := make([]int, len(docs))
	for i, d := range docs {
		scores[i] = overlapScore(tokenize(d.Title), tokens)
	}

	ranked := make([]session.Document, len(docs))
	copy(ranked, docs)
	for i := 1; i < len(ranked); i++ {
		for j := i; j > 0 && scores[j] > scores[j-1]; j-- {
			ranked[j], ranked[j-1] = ranked[j-1], ranked[j]
			scores[j], scores[j-1] = scores[j-1], scores[j]
		}
	}
	return ranked
}

func overlapScore(titleTokens, queryTokens []string) int {
	score := 0
	for _, qt := range queryTokens {
		for _, tt := range titleTokens {
			if qt == tt {
				score++
			}
		}
	}
	return score
}

func tokenize(s string) []string {
	var tokens []string
	var current []rune
	for _, r := range s {
		if r == ' ' || r == ',' || r == '.' {
			if len(current) > 0 {
				tokens = append(tokens, string(current))
				current = nil
			}
			continue
		}
		current = append(current, r)
	}
	if len(current) > 0 {
		tokens = append(tokens, string(current))
	}
	return tokens
}

func splitAddr(addr string) (string, int, error) {
	host := addr
	port := 6334
	for i := len(addr) - 1; i >= 0; i-- {
		if addr[i] == ':' {
			host = addr[:i]
			if _, err := fmt.Sscanf(addr[i+1:], "%d", &port); err != nil {
				return "", 0, fmt.Errorf("invalid port in addr %q: %w", addr, err)
			}
			break
		}
	}
	return host, port, nil
}
