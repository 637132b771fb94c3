// Package websearch is the fallback text-search gateway used when the dense
// retrieval index cannot satisfy a query: no documents matched, no top
// result's title shares a query token, or the relevance grader said no. It
// fetches a small number of external snippets and hands them back in the
// same session.Document shape retrieval uses, so the pipeline can treat a
// web-search result set as a drop-in replacement for a retrieval result set.
package websearch

import (
	"context"
	"fmt"

	"github.com/sousline/sous/pkg/config"
	"github.com/sousline/sous/pkg/session"
)

// Provider fetches up to maxResults text snippets for query.
type Provider interface {
	Search(ctx context.Context, query string, maxResults int) ([]session.Document, error)
}

// Gateway is the uniform fallback search call the pipeline invokes; it
// delegates to whichever Provider the configuration selected.
type Gateway struct {
	provider    Provider
	resultCount int
}

// New selects a Provider by cfg.Provider and wraps it in a Gateway. apiKey is
// the already-resolved value of the environment variable cfg.APIKeyEnv names;
// the duckduckgo provider ignores it since that endpoint needs no credential.
func New(cfg config.WebSearchConfig, apiKey string) (*Gateway, error) {
	var provider Provider
	switch cfg.Provider {
	case config.WebSearchProviderHTTP:
		provider = newHTTPProvider(cfg, apiKey)
	case config.WebSearchProviderDuckDuckGo:
		provider = newDuckDuckGoProvider(cfg)
	default:
		return nil, fmt.Errorf("websearch gateway: unknown provider %q", cfg.Provider)
	}

	resultCount := cfg.ResultCount
	if resultCount <= 0 {
		resultCount = 3
	}

	return &Gateway{provider: provider, resultCount: resultCount}, nil
}

// Search fetches the gateway's configured number of snippets for query.
func (g *Gateway) Search(ctx context.Context, query string) ([]session.Document, error) {
	docs, err := g.provider.Search(ctx, query, g.resultCount)
	if err != nil {
		return nil, fmt.Errorf("websearch gateway: %w", err)
	}
	return docs, nil
}

// formatSnippet renders one search result into the same numbered
// "[검색 결과 N]" layout the generation prompt expects from a document,
// regardless of which provider produced it.
func formatSnippet(index int, title, body, link string) string {
	return fmt.Sprintf("[검색 결과 %d]\n제목: %s\n\n내용:\n%s\n\n링크: %s", index, title, body, link)
}
