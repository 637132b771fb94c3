package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/sousline/sous/pkg/config"
	"github.com/sousline/sous/pkg/session"
)

// httpProvider calls a generic JSON search API: POST {"q": "..."} with the
// resolved API key in X-API-KEY, expecting back {"organic": [{title,
// snippet, link}, ...]}. This matches the Serper.dev-shaped provider; other
// JSON search APIs behind the same contract can be pointed at via BaseURL.
type httpProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func newHTTPProvider(cfg config.WebSearchConfig, apiKey string) *httpProvider {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://google.serper.dev/search"
	}
	return &httpProvider{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: cfg.RequestTimeout},
	}
}

type httpSearchRequest struct {
	Q  string `json:"q"`
	GL string `json:"gl"`
	HL string `json:"hl"`
	Num int   `json:"num"`
}

type httpSearchResponse struct {
	Organic []struct {
		Title   string `json:"title"`
		Snippet string `json:"snippet"`
		Link    string `json:"link"`
	} `json:"organic"`
}

func (p *httpProvider) Search(ctx context.Context, query string, maxResults int) ([]session.Document, error) {
	if p.apiKey == "" {
		return []session.Document{{Title: "설정 오류", Content: "웹 검색 API 키가 필요합니다."}}, nil
	}

	body, err := json.Marshal(httpSearchRequest{
		Q:   query + " 레시피 재료",
		GL:  "kr",
		HL:  "ko",
		Num: maxResults,
	})
	if err != nil {
		return nil, fmt.Errorf("http provider: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL, strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("http provider: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-KEY", p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return []session.Document{{Title: "검색 실패", Content: fmt.Sprintf("검색 중 오류: %v", err)}}, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return []session.Document{{Title: "호출 제한", Content: "API 호출 제한을 초과했습니다."}}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return []session.Document{{Title: "API 오류", Content: fmt.Sprintf("검색 중 오류: %d", resp.StatusCode)}}, nil
	}

	var parsed httpSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("http provider: decode response: %w", err)
	}

	items := parsed.Organic
	if len(items) > maxResults {
		items = items[:maxResults]
	}

	docs := make([]session.Document, 0, len(items))
	for i, item := range items {
		docs = append(docs, session.Document{
			Title:   item.Title,
			Content: formatSnippet(i+1, item.Title, item.Snippet, item.Link),
		})
	}
	return docs, nil
}
