package postprocess

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripProcedureRemovesNumberedSteps(t *testing.T) {
	text := "김치찌개\n**재료:** 김치 200g\n1. 김치를 볶는다\n2. 물을 넣는다"
	out := stripProcedure(text)
	assert.NotContains(t, out, "김치를 볶는다")
	assert.Contains(t, out, "**재료:**")
}

func TestStripProcedureRemovesKeywordSection(t *testing.T) {
	text := "김치찌개\n**재료:** 김치 200g\n조리법: 끓인다"
	out := stripProcedure(text)
	assert.NotContains(t, out, "끓인다")
}

func TestStripSafetyLinesRemovesAllergyMetadata(t *testing.T) {
	text := "알레르기 재료 (절대 사용 금지): 새우\n김치찌개 레시피입니다."
	out := stripSafetyLines(text)
	assert.NotContains(t, out, "알레르기 재료")
	assert.Contains(t, out, "김치찌개 레시피입니다.")
}

func TestNormalizeIntroStripsEmojiAndAddsTerminalPunctuation(t *testing.T) {
	text := "**소개:** 맛있는 김치찌개를 알려드릴게요~ ㅎㅎ\n**재료:** 김치 200g"
	out := normalizeIntro(text)
	assert.NotContains(t, out, "ㅎㅎ")
	assert.NotContains(t, out, "~")
	assert.True(t, strings.Contains(out, "**소개:**"))
}

func TestNormalizeIngredientsDropsVagueQuantityEntries(t *testing.T) {
	text := "**재료:**\n- 소금 약간\n- 돼지고기 150g"
	out := normalizeIngredients(text)
	assert.NotContains(t, out, "소금")
	assert.Contains(t, out, "돼지고기 150g")
}

func TestNormalizeIngredientsDropsEntriesWithoutQuantity(t *testing.T) {
	text := "**재료:**\n- 고명\n- 참기름 1큰술"
	out := normalizeIngredients(text)
	assert.NotContains(t, out, "고명")
	assert.Contains(t, out, "참기름 1큰술")
}

func TestNormalizeIngredientsJoinsSurvivorsWithCommas(t *testing.T) {
	text := "**재료:**\n- 김치 200g\n- 돼지고기 150g"
	out := normalizeIngredients(text)
	assert.Contains(t, out, "김치 200g, 돼지고기 150g")
}

func TestProcessIsIdempotent(t *testing.T) {
	text := "김치찌개\n**소개:** 맛있는 김치찌개를 알려드릴게요~ ㅎㅎ\n**재료:**\n- 김치 200g\n- 소금 약간\n조리법: 끓인다"

	once := Process(text)
	twice := Process(once)

	assert.Equal(t, once, twice)
}

func TestProcessNeverLeavesProcedureInOutput(t *testing.T) {
	text := "김치찌개\n**재료:** 김치 200g\n1. 냄비에 물을 끓인다\n2. 김치를 넣는다"
	out := Process(text)
	assert.NotContains(t, out, "냄비에 물을 끓인다")
}
