package constraint

import (
	"testing"

	"github.com/Tangerg/lynx/pkg/sets"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sousline/sous/pkg/session"
)

func personalizationWith(allergies, dislikes []string) session.Personalization {
	return session.NewPersonalization(1, []string{"엄마"}, allergies, dislikes, nil)
}

func TestAllergyCheckBlocksBeforeDislikeOrLedger(t *testing.T) {
	p := personalizationWith([]string{"새우"}, []string{"당근"})
	out := Check("새우 들어간 볶음밥 알려줘", p, sets.NewHashSet[string](), sets.NewHashSet[string]())

	assert.True(t, out.Blocked)
	assert.False(t, out.Proceed())
	assert.Contains(t, out.BlockedNames, "새우")
}

func TestDislikeCheckPopulatesPendingConfirmation(t *testing.T) {
	p := personalizationWith(nil, []string{"당근"})
	out := Check("당근 들어간 볶음밥", p, sets.NewHashSet[string](), sets.NewHashSet[string]())

	require.NotNil(t, out.Confirmation)
	assert.Equal(t, session.ConfirmationDislike, out.Confirmation.Kind)
	assert.True(t, out.Confirmation.MatchedDislikes.Contains("당근"))
}

func TestDislikeCheckSkipsTemporarilyAllowedNames(t *testing.T) {
	p := personalizationWith(nil, []string{"당근"})
	allowed := sets.NewHashSet[string]()
	allowed.Add("당근")

	out := Check("당근 들어간 볶음밥", p, allowed, sets.NewHashSet[string]())
	assert.True(t, out.Proceed())
}

func TestLedgerConflictCheckFiresForUnauthenticatedUsers(t *testing.T) {
	p := session.Personalization{}
	effectiveRemoves := sets.NewHashSet[string]()
	effectiveRemoves.Add("돼지고기")

	out := Check("돼지고기 넣어서 다시 해줘", p, sets.NewHashSet[string](), effectiveRemoves)

	require.NotNil(t, out.Confirmation)
	assert.Equal(t, session.ConfirmationLedger, out.Confirmation.Kind)
	assert.True(t, out.Confirmation.ConflictedIngredients.Contains("돼지고기"))
}

func TestNoMatchProceedsToPipeline(t *testing.T) {
	p := personalizationWith([]string{"새우"}, []string{"당근"})
	out := Check("김치찌개 레시피 알려줘", p, sets.NewHashSet[string](), sets.NewHashSet[string]())
	assert.True(t, out.Proceed())
}

func TestApplyDislikeConfirmationGrowsTemporarilyAllowed(t *testing.T) {
	p := personalizationWith(nil, []string{"당근"})
	s := session.New(uuid.New(), p)

	ApplyDislikeConfirmation(s, []string{"당근"})
	assert.True(t, s.TemporarilyAllowedDislikes.Contains("당근"))
}

func TestApplyLedgerConfirmationStripsConflictedNames(t *testing.T) {
	p := personalizationWith(nil, nil)
	s := session.New(uuid.New(), p)

	remove := sets.NewHashSet[string]()
	remove.Add("돼지고기")
	s.AppendModification(session.ModificationEntry{
		Type:              session.ModificationRemove,
		RemoveIngredients: remove,
		AddIngredients:    sets.NewHashSet[string](),
	})

	ApplyLedgerConfirmation(s, []string{"돼지고기"})
	assert.Len(t, s.Ledger, 0)
}
