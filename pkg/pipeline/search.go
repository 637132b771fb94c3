// Package pipeline is the conditional graph that turns one classified
// utterance into a reply: the six-stage search path (rewrite, retrieve,
// constraint-mark, grade, optional web search, generate), or the
// single-shot modification path. Every stage is timed and token-accounted;
// a concurrent progress emitter reports elapsed time while the pipeline runs.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Tangerg/lynx/pkg/sets"

	"github.com/sousline/sous/pkg/config"
	"github.com/sousline/sous/pkg/llmgateway"
	"github.com/sousline/sous/pkg/postprocess"
	"github.com/sousline/sous/pkg/retrieval"
	"github.com/sousline/sous/pkg/session"
	"github.com/sousline/sous/pkg/websearch"
)

// Executor runs the search and modification pipelines, wiring the LLM,
// retrieval, and web-search gateways behind the conditional stage graph.
type Executor struct {
	llm       *llmgateway.Gateway
	retrieval *retrieval.Gateway
	webSearch *websearch.Gateway
	cfg       config.PipelineConfig
}

func New(llm *llmgateway.Gateway, retrieval *retrieval.Gateway, webSearch *websearch.Gateway, cfg config.PipelineConfig) *Executor {
	return &Executor{llm: llm, retrieval: retrieval, webSearch: webSearch, cfg: cfg}
}

// SearchRequest is the input to the search path.
type SearchRequest struct {
	Query            string
	History          []session.Message
	Personalization  session.Personalization
	EffectiveRemoves sets.Set[string]
}

// SearchResult is the search path's output, ready for the Dialog Controller
// to wrap into an outbound frame.
type SearchResult struct {
	Content           string
	ConstraintWarning string
	RoutedToWebSearch bool
	Documents         []session.Document
	Accounting        *Accounting
}

// RunSearch executes the six-stage search graph. onProgress, if non-nil, is
// invoked from a separate goroutine roughly every cfg.ProgressInterval with
// the name of the currently running stage and the cumulative elapsed time;
// it is never called after RunSearch returns.
func (e *Executor) RunSearch(ctx context.Context, req SearchRequest, onProgress func(stage StageName, elapsed time.Duration)) (*SearchResult, error) {
	acc := newAccounting()
	tracker := newStageTracker()

	stop := e.startProgressEmitter(ctx, tracker, onProgress)
	defer stop()

	query := req.Query
	tracker.set(StageRewrite)
	rewritten, rewriteTokens, rewriteElapsed := e.rewrite(ctx, query, req.History)
	acc.record(StageRewrite, rewriteElapsed, rewriteTokens)

	tracker.set(StageRetrieve)
	var docs []session.Document
	var err error
	retrieveElapsed := timed(func() {
		docs, err = e.retrieval.Search(ctx, rewritten, 0)
	})
	acc.record(StageRetrieve, retrieveElapsed, 0)
	if err != nil {
		docs = nil
	}

	tracker.set(StageConstraintMarker)
	var constraintWarning string
	markerElapsed := timed(func() {
		constraintWarning = markConstraints(query, docs, req.Personalization)
	})
	acc.record(StageConstraintMarker, markerElapsed, 0)

	tracker.set(StageGradeRelevance)
	needsWebSearch, gradeTokens, gradeElapsed := e.gradeRelevance(ctx, rewritten, docs)
	acc.record(StageGradeRelevance, gradeElapsed, gradeTokens)

	routedToWebSearch := needsWebSearch
	if needsWebSearch {
		tracker.set(StageWebSearch)
		var webDocs []session.Document
		webElapsed := timed(func() {
			webDocs, err = e.webSearch.Search(ctx, rewritten)
		})
		acc.record(StageWebSearch, webElapsed, 0)
		if err == nil {
			docs = webDocs
		}
	}

	tracker.set(StageGenerate)
	content, genTokens, genElapsed := e.generate(ctx, query, req.History, req.Personalization, req.EffectiveRemoves, docs)
	acc.record(StageGenerate, genElapsed, genTokens)

	return &SearchResult{
		Content:           postprocess.Process(content),
		ConstraintWarning: constraintWarning,
		RoutedToWebSearch: routedToWebSearch,
		Documents:         docs,
		Accounting:        acc,
	}, nil
}

func (e *Executor) rewrite(ctx context.Context, query string, history []session.Message) (string, int, time.Duration) {
	prompt := fmt.Sprintf(`[대화]
%s

[질문]
%s

**요리명 1-5단어 (조사 제거):**`, formatHistory(history), query)

	var rewritten string
	tokens := 0
	elapsed := timed(func() {
		result, err := e.llm.Complete(ctx, llmgateway.CompletionRequest{
			Messages: []llmgateway.ChatMessage{{Role: "user", Content: prompt}},
		})
		if err != nil {
			rewritten = query
			return
		}
		tokens = result.Usage.TotalTokens
		rewritten = strings.TrimSpace(result.Content)
		if rewritten == "" {
			rewritten = query
		}
	})
	return rewritten, tokens, elapsed
}

func formatHistory(history []session.Message) string {
	var b strings.Builder
	for _, m := range history {
		fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
	}
	return b.String()
}

// markConstraints checks whether the query itself names a constrained
// (allergy or dislike) ingredient and, if so, returns a warning naming the
// matches. Only the query is inspected: the documents are neither read nor
// marked, so a document that mentions a constrained ingredient produces no
// warning and carries no mark.
func markConstraints(query string, docs []session.Document, p session.Personalization) string {
	lowerQuery := strings.ToLower(query)
	var hits []string

	for _, name := range constrainedNames(p) {
		if name != "" && strings.Contains(lowerQuery, strings.ToLower(name)) {
			hits = append(hits, name)
		}
	}
	if len(hits) == 0 {
		return ""
	}

	_ = docs // the documents are not inspected
	return fmt.Sprintf("요청하신 음식에 %s 성분이 포함될 수 있습니다.", strings.Join(hits, ", "))
}

func constrainedNames(p session.Personalization) []string {
	var names []string
	if p.Allergies != nil {
		names = append(names, p.Allergies.ToSlice()...)
	}
	if p.Dislikes != nil {
		names = append(names, p.Dislikes.ToSlice()...)
	}
	return names
}

func (e *Executor) gradeRelevance(ctx context.Context, query string, docs []session.Document) (bool, int, time.Duration) {
	if len(docs) == 0 {
		return true, 0, 0
	}

	top := docs
	if len(top) > 3 {
		top = top[:3]
	}

	if !anyTitleSharesToken(query, top) {
		return true, 0, 0
	}

	contentBuilder := strings.Builder{}
	for _, d := range top {
		contentBuilder.WriteString(d.Content)
		contentBuilder.WriteString("\n")
	}

	prompt := fmt.Sprintf(`질문: %s
문서: %s

요리명 매칭? yes/no:`, query, contentBuilder.String())

	var needsWebSearch bool
	tokens := 0
	elapsed := timed(func() {
		result, err := e.llm.Complete(ctx, llmgateway.CompletionRequest{
			Messages: []llmgateway.ChatMessage{{Role: "user", Content: prompt}},
		})
		if err != nil {
			needsWebSearch = false
			return
		}
		tokens = result.Usage.TotalTokens
		needsWebSearch = !strings.Contains(strings.ToLower(result.Content), "yes")
	})
	return needsWebSearch, tokens, elapsed
}

func anyTitleSharesToken(query string, docs []session.Document) bool {
	queryTokens := tokenizeQuery(query)
	for _, d := range docs {
		titleTokens := tokenizeQuery(d.Title)
		for _, qt := range queryTokens {
			if len([]rune(qt)) <= 1 {
				continue
			}
			for _, tt := range titleTokens {
				if qt == tt {
					return true
				}
			}
		}
	}
	return false
}

func tokenizeQuery(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == ',' || r == '.'
	})
}

func (e *Executor) generate(ctx context.Context, query string, history []session.Message, p session.Personalization, effectiveRemoves sets.Set[string], docs []session.Document) (string, int, time.Duration) {
	servings := servingsFor(p)
	constraintsClause := modificationConstraintsClause(effectiveRemoves)
	docContext := concatenateDocuments(docs)
	augmentedQuery := augmentQueryWithConstraints(query, p)

	prompt := fmt.Sprintf(`[검색 결과]
%s

[질문]
%s

%s

**출력 개수: 질문에 "여러", "많이", "추천", "N개" 없으면 무조건 1개만**

**규칙:**
1. 재료: 쉼표로 나열, 줄바꿈 절대 금지
2. **인원수: 반드시 %d인분으로 작성 (재료 양도 %d인분 기준)**
3. 모든 재료 양 필수
4. 금지: "데코", "토핑", "적당량", "취향껏", "약간"
5. "알레르기", "비선호" 재료 사용 금지
8. 조리법 출력 금지

**형식:**
**[요리명]**
⏱️ XX분 | 📊 난이도 | 👥 %d인분
**소개:** 객관적 1줄
**재료:** 재료명과 양 (한 줄, 쉼표 구분, %d인분 기준)

답변 (1개):`, docContext, augmentedQuery, constraintsClause, servings, servings, servings, servings)

	var content string
	tokens := 0
	elapsed := timed(func() {
		result, err := e.llm.Complete(ctx, llmgateway.CompletionRequest{
			Messages: []llmgateway.ChatMessage{{Role: "user", Content: prompt}},
		})
		if err != nil {
			content = ""
			return
		}
		tokens = result.Usage.TotalTokens
		content = result.Content
	})
	return content, tokens, elapsed
}

func servingsFor(p session.Personalization) int {
	if len(p.Names) > 1 {
		return len(p.Names)
	}
	return 1
}

// modificationConstraintsClause unions remove/replace entries' removed
// ingredients minus replace entries' added ones (the ledger's effective
// remove set), instructing the generator to exclude those names.
func modificationConstraintsClause(effectiveRemoves sets.Set[string]) string {
	if effectiveRemoves == nil || effectiveRemoves.IsEmpty() {
		return ""
	}
	return "제외: " + strings.Join(effectiveRemoves.ToSlice(), ", ")
}

func augmentQueryWithConstraints(query string, p session.Personalization) string {
	var clauses []string
	if p.Allergies != nil && !p.Allergies.IsEmpty() {
		clauses = append(clauses, "알레르기 재료 (절대 사용 금지): "+strings.Join(p.Allergies.ToSlice(), ", "))
	}
	if p.Dislikes != nil && !p.Dislikes.IsEmpty() {
		clauses = append(clauses, "비선호 음식 (피해야 함): "+strings.Join(p.Dislikes.ToSlice(), ", "))
	}
	if len(clauses) == 0 {
		return query
	}
	return strings.Join(clauses, "\n") + "\n" + query
}

const maxDocumentContentChars = 800

func concatenateDocuments(docs []session.Document) string {
	var b strings.Builder
	for _, d := range docs {
		content := d.Content
		if len([]rune(content)) > maxDocumentContentChars {
			content = string([]rune(content)[:maxDocumentContentChars])
		}
		b.WriteString(content)
		b.WriteString("\n\n")
	}
	return b.String()
}
