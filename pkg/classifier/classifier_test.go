package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseIntentMatchesBySubstring(t *testing.T) {
	assert.Equal(t, IntentRecipeModify, parseIntent("RECIPE_MODIFY"))
	assert.Equal(t, IntentNotCooking, parseIntent("판단: NOT_COOKING 입니다"))
	assert.Equal(t, IntentCookingQuestion, parseIntent("COOKING_QUESTION"))
	assert.Equal(t, IntentRecipeSearch, parseIntent("RECIPE_SEARCH"))
}

func TestParseIntentDefaultsToSearchOnAmbiguousOutput(t *testing.T) {
	assert.Equal(t, IntentRecipeSearch, parseIntent("모르겠음"))
	assert.Equal(t, IntentRecipeSearch, parseIntent(""))
}

func TestFallbackIntentPrefersNotCookingKeyword(t *testing.T) {
	assert.Equal(t, IntentNotCooking, fallbackIntent("오늘 날씨 어때", true))
}

func TestFallbackIntentRequiresRecentRecipeForModify(t *testing.T) {
	assert.Equal(t, IntentRecipeModify, fallbackIntent("돼지고기 말고 참치 넣어줘", true))
	assert.Equal(t, IntentRecipeSearch, fallbackIntent("돼지고기 말고 참치 넣어줘", false))
}

func TestFallbackIntentDefaultsToSearch(t *testing.T) {
	assert.Equal(t, IntentRecipeSearch, fallbackIntent("김치찌개 레시피 알려줘", false))
}
