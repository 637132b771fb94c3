// Package classifier maps an utterance (plus whether the session's recent
// history contains a recipe) to a dialog intent, and separately detects
// allergy/dislike declarations. Both are single low-temperature LLM calls
// with a keyword-heuristic fallback so a classifier outage degrades the
// dialog rather than stalling it.
package classifier

import (
	"context"
	"fmt"
	"strings"

	"github.com/sousline/sous/pkg/llmgateway"
)

// Intent is one of the four top-level dialog branches an utterance can take.
type Intent string

const (
	IntentRecipeSearch    Intent = "RECIPE_SEARCH"
	IntentRecipeModify    Intent = "RECIPE_MODIFY"
	IntentCookingQuestion Intent = "COOKING_QUESTION"
	IntentNotCooking      Intent = "NOT_COOKING"
)

// modifyKeywords signal a modification request when a recent recipe exists;
// used both by the fallback heuristic and by the declaration detector's
// short-circuit rule.
var modifyKeywords = []string{"말고", "대신", "바꿔", "교체", "추가", "빼고", "빼줘", "제거", "없이", "더", "덜", "없어", "없는", "없다"}

var notCookingKeywords = []string{"영화", "날씨", "여행", "제주", "부산", "서울", "운동", "음악", "게임", "드라마", "뉴스", "정치", "경제"}

// classificationTemperature is kept low and fixed, independent of the
// gateway's generation-stage default, since classification wants a
// deterministic single-keyword answer rather than creative variety.
const classificationTemperature = 0.0

// Classifier classifies utterances into Intent values via a single LLM call.
type Classifier struct {
	gateway *llmgateway.Gateway
	model   string
}

// New builds a Classifier. model, when non-empty, overrides the gateway's
// default generation model for classification calls (LLMConfig.ClassifierModel).
func New(gateway *llmgateway.Gateway, model string) *Classifier {
	return &Classifier{gateway: gateway, model: model}
}

// Classify returns the intent for utterance given whether recent assistant
// history contains a recipe. On transport error it falls back to a keyword
// heuristic; any response that arrives is read by parseIntent, which maps
// output naming none of the labels to RECIPE_SEARCH. It never returns an
// error, since a classifier failure must not block the dialog.
func (c *Classifier) Classify(ctx context.Context, utterance string, hasRecentRecipe bool) Intent {
	prompt := buildIntentPrompt(utterance, hasRecentRecipe)

	temp := classificationTemperature
	result, err := c.gateway.Complete(ctx, llmgateway.CompletionRequest{
		Messages:    []llmgateway.ChatMessage{{Role: "user", Content: prompt}},
		Model:       c.model,
		Temperature: &temp,
	})
	if err != nil {
		return fallbackIntent(utterance, hasRecentRecipe)
	}

	return parseIntent(result.Content)
}

func buildIntentPrompt(utterance string, hasRecentRecipe bool) string {
	recipeFlag := "N"
	if hasRecentRecipe {
		recipeFlag = "Y"
	}
	return fmt.Sprintf(`# 채팅 의도 분류
입력: "%s"
레시피: %s

# 중요: 음식/요리 키워드 없으면 NOT_COOKING

분류[4]{key,조건,예시}:
  NOT_COOKING,음식/요리 무관,"날씨/영화/여행/운동"
  RECIPE_MODIFY,레시피=Y+수정요청,"빼줘/말고/더 맵게/없어/없는데"
  RECIPE_SEARCH,음식관련+레시피=N,"김치찌개/케이크/빵"
  COOKING_QUESTION,요리 지식,"보관법/칼로리/대체재료"

출력(키워드 1개):`, utterance, recipeFlag)
}

// parseIntent matches by substring against the four label strings;
// ambiguous output defaults to RECIPE_SEARCH.
func parseIntent(response string) Intent {
	decision := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(response), " ", ""))

	switch {
	case strings.Contains(decision, "RECIPE_MODIFY"), strings.Contains(decision, "RECIPE_MOD"), strings.Contains(decision, "MODIFY"):
		return IntentRecipeModify
	case strings.Contains(decision, "NOT_COOKING"), strings.Contains(decision, "NOTCOOKING"):
		return IntentNotCooking
	case strings.Contains(decision, "COOKING_QUESTION"), strings.Contains(decision, "QUESTION"):
		return IntentCookingQuestion
	case strings.Contains(decision, "RECIPE_SEARCH"), strings.Contains(decision, "SEARCH"):
		return IntentRecipeSearch
	default:
		return IntentRecipeSearch
	}
}

func fallbackIntent(utterance string, hasRecentRecipe bool) Intent {
	lower := strings.ToLower(utterance)

	if containsAny(lower, notCookingKeywords) {
		return IntentNotCooking
	}

	if hasRecentRecipe && containsAny(lower, modifyKeywords) {
		return IntentRecipeModify
	}

	return IntentRecipeSearch
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}
