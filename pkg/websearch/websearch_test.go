package websearch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sousline/sous/pkg/config"
)

func TestHTTPProviderParsesOrganicResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("X-API-KEY"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"organic":[{"title":"김치찌개 황금레시피","snippet":"맛있게 끓이는 법","link":"https://example.com/1"}]}`))
	}))
	defer server.Close()

	cfg := config.WebSearchConfig{Provider: config.WebSearchProviderHTTP, BaseURL: server.URL, RequestTimeout: time.Second}
	gw, err := New(cfg, "test-key")
	require.NoError(t, err)

	docs, err := gw.Search(context.Background(), "김치찌개")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "김치찌개 황금레시피", docs[0].Title)
	assert.Contains(t, docs[0].Content, "https://example.com/1")
}

func TestHTTPProviderWithoutAPIKeyReturnsConfigErrorDocument(t *testing.T) {
	cfg := config.WebSearchConfig{Provider: config.WebSearchProviderHTTP, BaseURL: "http://unused.invalid", RequestTimeout: time.Second}
	gw, err := New(cfg, "")
	require.NoError(t, err)

	docs, err := gw.Search(context.Background(), "김치찌개")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "설정 오류", docs[0].Title)
}

func TestHTTPProviderRateLimitReturnsPlaceholderDocument(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	cfg := config.WebSearchConfig{Provider: config.WebSearchProviderHTTP, BaseURL: server.URL, RequestTimeout: time.Second}
	gw, err := New(cfg, "test-key")
	require.NoError(t, err)

	docs, err := gw.Search(context.Background(), "김치찌개")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "호출 제한", docs[0].Title)
}

func TestHTTPProviderTruncatesToMaxResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"organic":[{"title":"a"},{"title":"b"},{"title":"c"},{"title":"d"}]}`))
	}))
	defer server.Close()

	cfg := config.WebSearchConfig{Provider: config.WebSearchProviderHTTP, BaseURL: server.URL, ResultCount: 2, RequestTimeout: time.Second}
	gw, err := New(cfg, "test-key")
	require.NoError(t, err)

	docs, err := gw.Search(context.Background(), "query")
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestParseDuckDuckGoHTMLExtractsTitleSnippetLink(t *testing.T) {
	body := strings.NewReader(`<html><body>
		<div class="result">
			<a class="result__a" href="https://example.com/a">김치찌개 레시피</a>
			<a class="result__snippet">맛있는 김치찌개 만드는 법</a>
		</div>
		<div class="result">
			<a class="result__a" href="https://example.com/b">된장찌개 레시피</a>
			<a class="result__snippet">구수한 된장찌개</a>
		</div>
	</body></html>`)

	docs, err := parseDuckDuckGoHTML(body, 5)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "김치찌개 레시피", docs[0].Title)
	assert.Contains(t, docs[0].Content, "example.com/a")
}

func TestParseDuckDuckGoHTMLRespectsMaxResults(t *testing.T) {
	body := strings.NewReader(`<html><body>
		<div class="result"><a class="result__a" href="https://example.com/a">a</a></div>
		<div class="result"><a class="result__a" href="https://example.com/b">b</a></div>
		<div class="result"><a class="result__a" href="https://example.com/c">c</a></div>
	</body></html>`)

	docs, err := parseDuckDuckGoHTML(body, 1)
	require.NoError(t, err)
	require.Len(t, docs, 1)
}

func TestNewRejectsUnknownProvider(t *testing.T) {
	_, err := New(config.WebSearchConfig{Provider: "bing"}, "key")
	assert.Error(t, err)
}

func TestGatewayDefaultsResultCount(t *testing.T) {
	cfg := config.WebSearchConfig{Provider: config.WebSearchProviderHTTP, RequestTimeout: time.Second}
	gw, err := New(cfg, "key")
	require.NoError(t, err)
	assert.Equal(t, 3, gw.resultCount)
}
