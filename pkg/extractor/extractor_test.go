package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sousline/sous/pkg/session"
)

func TestFallbackReplaceMatchesMalgoPattern(t *testing.T) {
	result := fallbackReplace("돼지고기 말고 참치 넣어줘")
	assert.Equal(t, []string{"돼지고기"}, result.Remove)
	assert.Equal(t, []string{"참치"}, result.Add)
}

func TestFallbackReplaceNoMatch(t *testing.T) {
	result := fallbackReplace("그냥 알려줘")
	assert.Empty(t, result.Remove)
	assert.Empty(t, result.Add)
}

func TestFallbackSingleSidedRemove(t *testing.T) {
	result := fallbackSingleSided("참치 빼줘", session.ModificationRemove)
	assert.Contains(t, result.Remove, "참치")
	assert.Empty(t, result.Add)
}

func TestFallbackSingleSidedExcludesLocationWord(t *testing.T) {
	result := fallbackSingleSided("오이 집에 없어 빼줘", session.ModificationRemove)
	assert.Contains(t, result.Remove, "오이")
	assert.NotContains(t, result.Remove, "집")
}

func TestFallbackSingleSidedAdd(t *testing.T) {
	result := fallbackSingleSided("딸기 블루베리 추가해줘", session.ModificationAdd)
	assert.NotEmpty(t, result.Add)
}

func TestParseReplaceResponseParsesBothLines(t *testing.T) {
	remove, add, ok := parseReplaceResponse("제거: 돼지고기\n추가: 참치")
	require.True(t, ok)
	assert.Equal(t, []string{"돼지고기"}, remove)
	assert.Equal(t, []string{"참치"}, add)
}

func TestParseReplaceResponseEmptyIsNotOK(t *testing.T) {
	_, _, ok := parseReplaceResponse("제거:\n추가:")
	assert.False(t, ok)
}

func TestSplitNonEmptyFiltersNoneMarker(t *testing.T) {
	items := splitNonEmpty("없음")
	assert.Empty(t, items)
}

func TestSplitNonEmptyTrimsQuotesAndWhitespace(t *testing.T) {
	items := splitNonEmpty(`"딸기, 블루베리"`)
	assert.Equal(t, []string{"딸기", "블루베리"}, items)
}
