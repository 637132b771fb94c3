package session

import (
	"testing"

	"github.com/Tangerg/lynx/pkg/sets"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession() *Session {
	p := NewPersonalization(1, []string{"엄마"}, []string{"새우"}, []string{"당근"}, []string{"에어프라이어"})
	return New(uuid.New(), p)
}

func TestHasRecentRecipeDetectsStructuralMarker(t *testing.T) {
	s := newTestSession()
	s.AppendMessage(RoleUser, "김치찌개 레시피 알려줘", "")
	s.AppendMessage(RoleAssistant, "김치찌개\n⏱️ 20분 | 📊 쉬움 | 👥 2인분\n맛있는 찌개입니다.\n재료: 김치 200g, 돼지고기 150g", "")

	assert.True(t, s.HasRecentRecipe())
}

func TestHasRecentRecipeFalseWithoutGlyphs(t *testing.T) {
	s := newTestSession()
	s.AppendMessage(RoleAssistant, "재료: 김치 200g, 돼지고기 150g", "")

	assert.False(t, s.HasRecentRecipe())
}

func TestFindMostRecentRecipeSearchesNewestFirst(t *testing.T) {
	s := newTestSession()
	s.AppendMessage(RoleAssistant, "older\n⏱️ 10분 | 📊 쉬움 | 👥 1인분\n재료: 파 1대", "")
	s.AppendMessage(RoleUser, "고마워", "")
	s.AppendMessage(RoleAssistant, "newest\n⏱️ 30분 | 📊 보통 | 👥 2인분\n재료: 돼지고기 150g", "img.png")

	content, image, ok := s.FindMostRecentRecipe()
	require.True(t, ok)
	assert.Contains(t, content, "newest")
	assert.Equal(t, "img.png", image)
}

func TestEffectiveRemoveSetSubtractsReplaceAdds(t *testing.T) {
	s := newTestSession()

	remove1 := sets.NewHashSet[string]()
	remove1.Add("돼지고기")
	s.AppendModification(ModificationEntry{
		Type:              ModificationRemove,
		RemoveIngredients: remove1,
		AddIngredients:    sets.NewHashSet[string](),
	})

	removeSet := s.EffectiveRemoveSet()
	assert.True(t, removeSet.Contains("돼지고기"))

	replaceRemove := sets.NewHashSet[string]()
	replaceRemove.Add("돼지고기")
	replaceAdd := sets.NewHashSet[string]()
	replaceAdd.Add("참치")
	s.AppendModification(ModificationEntry{
		Type:              ModificationReplace,
		RemoveIngredients: replaceRemove,
		AddIngredients:    replaceAdd,
	})

	removeSet = s.EffectiveRemoveSet()
	assert.False(t, removeSet.Contains("돼지고기"), "replace's add-set must cancel the earlier remove")
}

func TestPatchLedgerEntriesDropsEmptiedEntries(t *testing.T) {
	s := newTestSession()
	r := sets.NewHashSet[string]()
	r.Add("돼지고기")
	s.AppendModification(ModificationEntry{Type: ModificationRemove, RemoveIngredients: r, AddIngredients: sets.NewHashSet[string]()})
	require.Len(t, s.Ledger, 1)

	conflict := sets.NewHashSet[string]()
	conflict.Add("돼지고기")
	s.PatchLedgerEntries(conflict)

	assert.Len(t, s.Ledger, 0)
}

func TestTemporarilyAllowedDislikesOnlyGrows(t *testing.T) {
	s := newTestSession()
	s.TemporarilyAllowedDislikes.Add("당근")
	assert.True(t, s.TemporarilyAllowedDislikes.Contains("당근"))
	s.TemporarilyAllowedDislikes.Add("양파")
	assert.True(t, s.TemporarilyAllowedDislikes.Contains("당근"))
	assert.True(t, s.TemporarilyAllowedDislikes.Contains("양파"))
}

func TestManagerRegisterGetRemove(t *testing.T) {
	m := NewManager()
	s := newTestSession()

	m.Register(s)
	got, ok := m.Get(s.ID)
	require.True(t, ok)
	assert.Equal(t, s, got)
	assert.Equal(t, 1, m.Count())

	m.Remove(s.ID)
	_, ok = m.Get(s.ID)
	assert.False(t, ok)
	assert.Equal(t, 0, m.Count())
}
