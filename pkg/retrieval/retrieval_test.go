package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sousline/sous/pkg/session"
)

func TestSplitAddrWithPort(t *testing.T) {
	host, port, err := splitAddr("localhost:6334")
	require.NoError(t, err)
	assert.Equal(t, "localhost", host)
	assert.Equal(t, 6334, port)
}

func TestSplitAddrDefaultsPort(t *testing.T) {
	host, port, err := splitAddr("qdrant.internal")
	require.NoError(t, err)
	assert.Equal(t, "qdrant.internal", host)
	assert.Equal(t, 6334, port)
}

func TestTokenizeSplitsOnPunctuationAndSpace(t *testing.T) {
	tokens := tokenize("김치찌개, 맛있는 레시피.")
	assert.Equal(t, []string{"김치찌개", "맛있는", "레시피"}, tokens)
}

func TestRerankByQueryOverlapPrefersMatchingTitle(t *testing.T) {
	docs := []session.Document{
		{Title: "된장찌개 레시피"},
		{Title: "김치찌개 황금 레시피"},
	}

	ranked := rerankByQueryOverlap("김치찌개 만드는 법", docs)

	assert.Equal(t, "김치찌개 황금 레시피", ranked[0].Title)
}
