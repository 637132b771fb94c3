// Package extractor pulls ingredient names out of a modification utterance:
// which ones to remove, which to add. It tries a single LLM call first and
// falls back to keyword-anchored pattern matching when the call fails or
// the model declines to name anything.
package extractor

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/sousline/sous/pkg/llmgateway"
	"github.com/sousline/sous/pkg/session"
)

// Result is what one modification utterance names to remove and to add.
type Result struct {
	Remove []string
	Add    []string
}

// Extractor extracts ingredient names for a ModificationEntry.
type Extractor struct {
	gateway *llmgateway.Gateway
}

func New(gateway *llmgateway.Gateway) *Extractor {
	return &Extractor{gateway: gateway}
}

// Extract returns the ingredients named for removal/addition by utterance,
// given the already-classified modification type.
func (e *Extractor) Extract(ctx context.Context, utterance string, modType session.ModificationType) Result {
	if modType == session.ModificationReplace {
		return e.extractReplace(ctx, utterance)
	}
	return e.extractSingleSided(ctx, utterance, modType)
}

func (e *Extractor) extractReplace(ctx context.Context, utterance string) Result {
	prompt := `# 재료 교체 추출
입력: "` + utterance + `"

# 규칙: "A 말고 B" → A 제거, B 추가 (재료명만)

# 예시
입력: 돼지고기 말고 참치 넣어줘
제거: 돼지고기
추가: 참치

# 출력
제거:
추가:`

	result, err := e.gateway.Complete(ctx, llmgateway.CompletionRequest{
		Messages: []llmgateway.ChatMessage{{Role: "user", Content: prompt}},
	})
	if err == nil {
		if remove, add, ok := parseReplaceResponse(result.Content); ok {
			return Result{Remove: remove, Add: add}
		}
	}

	return fallbackReplace(utterance)
}

func parseReplaceResponse(response string) (remove, add []string, ok bool) {
	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "제거:"):
			remove = splitNonEmpty(strings.TrimPrefix(line, "제거:"))
		case strings.HasPrefix(line, "추가:"):
			add = splitNonEmpty(strings.TrimPrefix(line, "추가:"))
		}
	}
	return remove, add, len(remove) > 0 || len(add) > 0
}

var replacePattern = regexp.MustCompile(`([가-힣]+)\s*말고\s*([가-힣]+)`)

func fallbackReplace(utterance string) Result {
	m := replacePattern.FindStringSubmatch(utterance)
	if m == nil {
		return Result{}
	}
	return Result{Remove: []string{m[1]}, Add: []string{m[2]}}
}

func (e *Extractor) extractSingleSided(ctx context.Context, utterance string, modType session.ModificationType) Result {
	prompt := `# 재료명 추출
입력: "` + utterance + `"

# 규칙: 재료명만 추출 (조사/동사/장소 제거), 없으면 "없음"

# 예시[5]{input,output}:
  참치 빼줘,참치
  집에 간장이 없어,간장
  오이 집에 없어 빼줘,오이
  딸기 블루베리 추가해줘,"딸기, 블루베리"
  알려줘,없음

재료:`

	result, err := e.gateway.Complete(ctx, llmgateway.CompletionRequest{
		Messages: []llmgateway.ChatMessage{{Role: "user", Content: prompt}},
	})
	if err == nil {
		response := strings.TrimSpace(result.Content)
		if response != "" && !strings.Contains(response, "없음") {
			ingredients := splitNonEmpty(response)
			if len(ingredients) > 0 {
				return sideResult(modType, ingredients)
			}
		}
	}

	return fallbackSingleSided(utterance, modType)
}

func splitNonEmpty(s string) []string {
	var out []string
	for _, raw := range strings.Split(s, ",") {
		item := strings.TrimSpace(raw)
		item = strings.Trim(item, `"`)
		if item != "" && item != "없음" {
			out = append(out, item)
		}
	}
	return out
}

func sideResult(modType session.ModificationType, ingredients []string) Result {
	if modType == session.ModificationRemove {
		return Result{Remove: ingredients}
	}
	return Result{Add: ingredients}
}

var singleSidedKeywords = []string{"빼", "제거", "없이", "말고", "없어", "없는", "없다", "대신", "바꿔", "교체", "빼줘"}

var locationWords = map[string]bool{
	"집": true, "냉장고": true, "부엌": true, "주방": true, "마트": true,
	"편의점": true, "가게": true, "슈퍼": true, "어제": true, "오늘": true, "내일": true,
}

var particleSuffixes = []string{"에서", "으로", "이", "가", "을", "를", "은", "는", "도", "만", "에", "로"}

var leadingNounPattern = regexp.MustCompile(`^([가-힣]{2,})`)

// fallbackSingleSided mirrors the keyword-anchored extraction: for each
// modification keyword, find a preceding Hangul run (optionally trimming one
// trailing particle), then drop location words and sub-2-character results.
func fallbackSingleSided(utterance string, modType session.ModificationType) Result {
	seen := map[string]bool{}
	var ingredients []string

	for _, kw := range singleSidedKeywords {
		for _, noun := range precedingNouns(utterance, kw) {
			noun = trimOneParticle(noun)
			if locationWords[noun] || utf8.RuneCountInString(noun) < 2 || seen[noun] {
				continue
			}
			seen[noun] = true
			ingredients = append(ingredients, noun)
		}
	}

	if len(ingredients) == 0 && containsAny(utterance, []string{"빼", "제거", "없어", "없는", "없다"}) {
		if m := leadingNounPattern.FindStringSubmatch(utterance); m != nil && !locationWords[m[1]] {
			ingredients = append(ingredients, m[1])
		}
	}

	return sideResult(modType, ingredients)
}

func precedingNouns(text, keyword string) []string {
	runes := []rune(text)
	kwRunes := []rune(keyword)
	var nouns []string
	for i := 0; i+len(kwRunes) <= len(runes); i++ {
		if string(runes[i:i+len(kwRunes)]) != keyword {
			continue
		}
		end := i
		start := end
		for start > 0 && isHangul(runes[start-1]) {
			start--
		}
		if start < end {
			nouns = append(nouns, string(runes[start:end]))
		}
	}
	return nouns
}

func trimOneParticle(noun string) string {
	for _, p := range particleSuffixes {
		if strings.HasSuffix(noun, p) && utf8.RuneCountInString(noun) > utf8.RuneCountInString(p) {
			return strings.TrimSuffix(noun, p)
		}
	}
	return noun
}

func isHangul(r rune) bool {
	return r >= 0xAC00 && r <= 0xD7A3
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}
