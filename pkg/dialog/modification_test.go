package dialog

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sousline/sous/pkg/session"
)

func TestClassifyModificationTypeReplaceWinsOverRemoveKeyword(t *testing.T) {
	got := classifyModificationType("돼지고기 빼고 참치 넣어줘")
	assert.Equal(t, session.ModificationReplace, got)
}

func TestClassifyModificationTypeReplaceFromSubstitutionWord(t *testing.T) {
	got := classifyModificationType("돼지고기 말고 참치 넣어줘")
	assert.Equal(t, session.ModificationReplace, got)
}

func TestClassifyModificationTypeRemove(t *testing.T) {
	got := classifyModificationType("돼지고기 빼줘")
	assert.Equal(t, session.ModificationRemove, got)
}

func TestClassifyModificationTypeAdd(t *testing.T) {
	got := classifyModificationType("양파 추가해줘")
	assert.Equal(t, session.ModificationAdd, got)
}

func TestClassifyModificationTypeDefaultsToModify(t *testing.T) {
	got := classifyModificationType("조금 더 맵게 해줘")
	assert.Equal(t, session.ModificationModify, got)
}
