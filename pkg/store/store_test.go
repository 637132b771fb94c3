package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChatRoleConstants(t *testing.T) {
	assert.Equal(t, ChatRole("USER"), ChatRoleUser)
	assert.Equal(t, ChatRole("AGENT"), ChatRoleAgent)
}

func TestChatMessageTypeConstants(t *testing.T) {
	assert.Equal(t, ChatMessageType("GENERATE"), ChatMessageTypeGenerate)
	assert.Equal(t, ChatMessageType("VOICE"), ChatMessageTypeVoice)
}
