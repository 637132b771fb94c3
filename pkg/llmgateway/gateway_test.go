package llmgateway

import (
	"testing"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/pkoukk/tiktoken-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sousline/sous/pkg/config"
)

func newTestGateway(t *testing.T) *Gateway {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	require.NoError(t, err)
	return &Gateway{
		cfg:         config.LLMConfig{Model: "gpt-4o-mini", Temperature: 0.2, RequestTimeout: time.Second},
		fallbackEnc: enc,
	}
}

func TestNormalizeUsagePassesThroughProviderShape(t *testing.T) {
	g := newTestGateway(t)
	resp := &openai.ChatCompletion{}
	resp.Usage.PromptTokens = 12
	resp.Usage.CompletionTokens = 5
	resp.Usage.TotalTokens = 17

	usage := g.normalizeUsage(resp, []ChatMessage{{Role: "user", Content: "hi"}}, "hello")

	assert.Equal(t, 12, usage.PromptTokens)
	assert.Equal(t, 5, usage.CompletionTokens)
	assert.Equal(t, 17, usage.TotalTokens)
	assert.False(t, usage.Estimated)
}

func TestNormalizeUsageFallsBackWhenProviderOmitsUsage(t *testing.T) {
	g := newTestGateway(t)
	resp := &openai.ChatCompletion{}

	usage := g.normalizeUsage(resp, []ChatMessage{{Role: "user", Content: "hello there"}}, "hi")

	assert.True(t, usage.Estimated)
	assert.Greater(t, usage.PromptTokens, 0)
	assert.Greater(t, usage.CompletionTokens, 0)
	assert.Equal(t, usage.PromptTokens+usage.CompletionTokens, usage.TotalTokens)
}

func TestBuildMessagesMapsRoles(t *testing.T) {
	g := newTestGateway(t)
	params := g.buildMessages([]ChatMessage{
		{Role: "system", Content: "be terse"},
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "hello"},
	})

	require.Len(t, params, 3)
}
