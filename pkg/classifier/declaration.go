package classifier

import (
	"context"
	"strings"

	"github.com/sousline/sous/pkg/llmgateway"
)

// DeclarationKind is what a Allergy/Dislike Declaration Detector found.
type DeclarationKind string

const (
	DeclarationNone    DeclarationKind = "none"
	DeclarationAllergy DeclarationKind = "allergy"
	DeclarationDislike DeclarationKind = "dislike"
)

// Declaration is the detector's output: a kind and the ingredient names it
// found stated against that kind.
type Declaration struct {
	Kind  DeclarationKind
	Items []string
}

var allergyKeywords = []string{"알러지", "알레르기", "못먹어", "먹으면", "배아파", "탈나"}
var dislikeKeywords = []string{"싫어", "안먹어", "빼줘", "빼고", "제외"}

// DeclarationDetector finds allergy/dislike statements in an utterance,
// short-circuiting to none when the utterance is more plausibly a
// recipe-modification request than a standing declaration.
type DeclarationDetector struct {
	gateway *llmgateway.Gateway
	model   string
}

// NewDeclarationDetector builds a DeclarationDetector. model, when non-empty,
// overrides the gateway's default generation model (LLMConfig.ClassifierModel).
func NewDeclarationDetector(gateway *llmgateway.Gateway, model string) *DeclarationDetector {
	return &DeclarationDetector{gateway: gateway, model: model}
}

// Detect returns DeclarationNone immediately, without calling the LLM, when
// a recipe exists in recent history and the utterance contains a
// modification keyword — otherwise "새우" in "새우 말고 오징어 넣어줘" could be
// misread as a standing dislike declaration rather than a one-off
// substitution.
func (d *DeclarationDetector) Detect(ctx context.Context, utterance string, hasRecentRecipe bool) Declaration {
	if hasRecentRecipe && containsAny(utterance, modifyKeywords) {
		return Declaration{Kind: DeclarationNone}
	}

	prompt := buildDeclarationPrompt(utterance)
	temp := classificationTemperature
	result, err := d.gateway.Complete(ctx, llmgateway.CompletionRequest{
		Messages:    []llmgateway.ChatMessage{{Role: "user", Content: prompt}},
		Model:       d.model,
		Temperature: &temp,
	})
	if err != nil {
		return fallbackDeclaration(utterance)
	}

	decl, ok := parseDeclaration(result.Content)
	if !ok {
		return fallbackDeclaration(utterance)
	}
	return decl
}

func buildDeclarationPrompt(utterance string) string {
	return `# 알러지/비선호 감지
입력: "` + utterance + `"

# 중요: 메뉴 언급/수정 요청은 NONE
예시[4]{input,result}:
  고수덮밥 먹을까,NONE
  후추 빼고,NONE
  나 고수 싫어해,DISLIKE
  새우 알러지 있어,ALLERGY

# 분류
ALLERGY: 알러지 명시적 진술 (못먹어/배아파)
DISLIKE: 비선호 명시적 진술 (싫어해/안먹어)
NONE: 해당 없음

# 출력
타입: ALLERGY 또는 DISLIKE 또는 NONE
재료: 재료1, 재료2 (없으면 "없음")`
}

// parseDeclaration requires the response to carry at least one of the
// expected marker tokens; a response missing all of them is treated as
// low-quality output rather than a legitimate NONE, and triggers the
// keyword fallback instead.
func parseDeclaration(response string) (Declaration, bool) {
	response = strings.TrimSpace(response)
	upper := strings.ToUpper(response)

	hasMarker := strings.Contains(response, "타입:") || strings.Contains(response, "재료:") ||
		strings.Contains(upper, "ALLERGY") || strings.Contains(upper, "DISLIKE") || strings.Contains(upper, "NONE")
	if !hasMarker {
		return Declaration{}, false
	}

	var kind DeclarationKind
	switch {
	case strings.Contains(upper, "ALLERGY"):
		kind = DeclarationAllergy
	case strings.Contains(upper, "DISLIKE"):
		kind = DeclarationDislike
	case strings.Contains(upper, "NONE"):
		return Declaration{Kind: DeclarationNone}, true
	default:
		return Declaration{}, false
	}

	items := parseItemsField(response)
	if len(items) == 0 {
		return Declaration{Kind: DeclarationNone}, true
	}
	return Declaration{Kind: kind, Items: items}, true
}

func parseItemsField(response string) []string {
	idx := strings.Index(response, "재료:")
	if idx == -1 {
		return nil
	}
	itemsText := strings.TrimSpace(response[idx+len("재료:"):])
	if itemsText == "" || itemsText == "없음" {
		return nil
	}

	var items []string
	for _, raw := range strings.Split(itemsText, ",") {
		item := strings.TrimSpace(raw)
		if item != "" {
			items = append(items, item)
		}
	}
	return items
}

func fallbackDeclaration(utterance string) Declaration {
	lower := strings.ToLower(utterance)

	isAllergy := containsAny(lower, allergyKeywords)
	isDislike := containsAny(lower, dislikeKeywords)
	if !isAllergy && !isDislike {
		return Declaration{Kind: DeclarationNone}
	}

	kind := DeclarationDislike
	keywords := dislikeKeywords
	if isAllergy {
		kind = DeclarationAllergy
		keywords = allergyKeywords
	}

	items := extractPrecedingNouns(utterance, keywords)
	if len(items) == 0 {
		return Declaration{Kind: DeclarationNone}
	}
	return Declaration{Kind: kind, Items: items}
}

// extractPrecedingNouns is a coarse stand-in for the original's regex-based
// "noun immediately before the keyword" extraction: it takes the Hangul run
// that ends right before a keyword, skipping any spaces between the two.
func extractPrecedingNouns(text string, keywords []string) []string {
	runes := []rune(text)
	seen := map[string]bool{}
	var items []string

	for _, kw := range keywords {
		kwRunes := []rune(kw)
		for i := 0; i+len(kwRunes) <= len(runes); i++ {
			if string(runes[i:i+len(kwRunes)]) != kw {
				continue
			}
			end := i
			for end > 0 && runes[end-1] == ' ' {
				end--
			}
			start := end
			for start > 0 && isHangul(runes[start-1]) {
				start--
			}
			noun := strings.TrimSpace(string(runes[start:end]))
			noun = trimParticles(noun)
			if len([]rune(noun)) >= 2 && !seen[noun] {
				seen[noun] = true
				items = append(items, noun)
			}
		}
	}
	return items
}

var particles = []string{"이", "가", "을", "를", "은", "는", "도", "만", "에", "에서", "으로", "로"}

func trimParticles(noun string) string {
	for _, p := range particles {
		if strings.HasSuffix(noun, p) && len([]rune(noun)) > len([]rune(p)) {
			return strings.TrimSuffix(noun, p)
		}
	}
	return noun
}

func isHangul(r rune) bool {
	return r >= 0xAC00 && r <= 0xD7A3
}
