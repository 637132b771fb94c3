package dialog

import (
	"strings"

	"github.com/sousline/sous/pkg/session"
)

// replaceTriggerKeywords and replaceCompletionKeywords together flag the
// "A 말고 B 넣어줘" shape: a substitution marker plus an addition marker in
// the same utterance. A removal marker plus an addition marker
// ("A 빼고 B 넣어줘") also reads as replace. Order matters — both two-sided
// checks run before the remove check, so a removal word in such an
// utterance does not make it a remove.
var replaceTriggerKeywords = []string{"대신", "말고", "바꿔", "교체"}
var replaceCompletionKeywords = []string{"추가", "넣어", "로"}
var removeOnlyKeywords = []string{"빼", "제거", "없이", "없어", "없는", "없다"}
var addOnlyKeywords = []string{"추가", "넣어"}

// classifyModificationType orders the same keyword checks a recipe-mutation
// utterance is screened through: a two-sided substitution reads as replace,
// a one-sided removal/addition reads as remove/add, and anything else is a
// free-form modify with no extractable ingredient sets.
func classifyModificationType(utterance string) session.ModificationType {
	switch {
	case containsAny(utterance, replaceTriggerKeywords) && containsAny(utterance, replaceCompletionKeywords):
		return session.ModificationReplace
	case containsAny(utterance, removeOnlyKeywords) && containsAny(utterance, addOnlyKeywords):
		return session.ModificationReplace
	case containsAny(utterance, removeOnlyKeywords):
		return session.ModificationRemove
	case containsAny(utterance, replaceTriggerKeywords):
		return session.ModificationReplace
	case containsAny(utterance, addOnlyKeywords):
		return session.ModificationAdd
	default:
		return session.ModificationModify
	}
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}
