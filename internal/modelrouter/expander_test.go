package modelrouter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuleBasedExpander_AlwaysIncludesOriginal(t *testing.T) {
	e := NewRuleBasedExpander()
	variants, err := e.Expand(context.Background(), "how do I find the config")
	require.NoError(t, err)
	assert.Equal(t, "how do I find the config", variants[0])
}

func TestRuleBasedExpander_AddsSynonymVariant(t *testing.T) {
	e := NewRuleBasedExpander()
	variants, err := e.Expand(context.Background(), "delete the file")
	require.NoError(t, err)
	assert.Contains(t, variants, "remove the file")
}

func TestRuleBasedExpander_EmptyQuery(t *testing.T) {
	e := NewRuleBasedExpander()
	variants, err := e.Expand(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{""}, variants)
}

func TestRuleBasedExpander_NoDuplicates(t *testing.T) {
	e := NewRuleBasedExpander()
	variants, err := e.Expand(context.Background(), "search")
	require.NoError(t, err)
	seen := map[string]bool{}
	for _, v := range variants {
		require.False(t, seen[v], "duplicate variant %q", v)
		seen[v] = true
	}
}
