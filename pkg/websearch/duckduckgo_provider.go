package websearch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/PuerkitoBio/goquery"

	"github.com/sousline/sous/pkg/config"
	"github.com/sousline/sous/pkg/session"
)

// duckDuckGoProvider scrapes the no-JS HTML results page, which needs no API
// key. Result markup is keyed off result__a/result__snippet class names,
// matching the page duckduckgo.com/html/ has served for years.
type duckDuckGoProvider struct {
	client *http.Client
}

func newDuckDuckGoProvider(cfg config.WebSearchConfig) *duckDuckGoProvider {
	return &duckDuckGoProvider{client: &http.Client{Timeout: cfg.RequestTimeout}}
}

func (p *duckDuckGoProvider) Search(ctx context.Context, query string, maxResults int) ([]session.Document, error) {
	endpoint := "https://html.duckduckgo.com/html/?q=" + url.QueryEscape(query+" 레시피")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("duckduckgo provider: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := p.client.Do(req)
	if err != nil {
		return []session.Document{{Title: "검색 실패", Content: fmt.Sprintf("검색 중 오류: %v", err)}}, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return []session.Document{{Title: "API 오류", Content: fmt.Sprintf("검색 중 오류: %d", resp.StatusCode)}}, nil
	}

	return parseDuckDuckGoHTML(resp.Body, maxResults)
}

func parseDuckDuckGoHTML(body io.Reader, maxResults int) ([]session.Document, error) {
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("duckduckgo provider: parse html: %w", err)
	}

	var docs []session.Document
	doc.Find(".result").EachWithBreak(func(i int, sel *goquery.Selection) bool {
		if len(docs) >= maxResults {
			return false
		}

		titleSel := sel.Find(".result__a").First()
		title := titleSel.Text()
		link, _ := titleSel.Attr("href")
		snippet := sel.Find(".result__snippet").First().Text()

		if title == "" {
			return true
		}

		docs = append(docs, session.Document{
			Title:   title,
			Content: formatSnippet(len(docs)+1, title, snippet, link),
		})
		return true
	})

	return docs, nil
}
