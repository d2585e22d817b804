package volition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/royalbit/daneel/internal/cce"
)

func thoughtWithText(text string, connectionRelevance float64) cce.Thought {
	content := cce.NewRelationContent(
		cce.NewSymbolContent("subj", nil),
		text,
		cce.NewSymbolContent("obj", nil),
	)
	salience := cce.NeutralSalience()
	salience.ConnectionRelevance = connectionRelevance
	return cce.NewThought(content, salience)
}

func TestDecideAllowsBenignThought(t *testing.T) {
	thought := thoughtWithText("observed a pattern", 0.5)
	decision := Decide(thought, DefaultRuleSet())
	assert.True(t, decision.Allowed)
}

func TestDecideVetoesKeywordMatch(t *testing.T) {
	thought := thoughtWithText("plans to kill the target", 0.5)
	decision := Decide(thought, DefaultRuleSet())
	require.False(t, decision.Allowed)
	assert.NotEmpty(t, decision.VetoReason)
	require.NotNil(t, decision.ViolatedValue)
	assert.Equal(t, "violence", *decision.ViolatedValue)
}

func TestDecideVetoesZeroConnectionRelevance(t *testing.T) {
	thought := thoughtWithText("benign observation", 0)
	decision := Decide(thought, DefaultRuleSet())
	require.False(t, decision.Allowed)
	require.NotNil(t, decision.ViolatedValue)
	assert.Equal(t, "connection_floor", *decision.ViolatedValue)
}

func TestDecideIsPureAcrossRepeatedCalls(t *testing.T) {
	thought := thoughtWithText("forge identity documents", 0.5)
	ruleSet := DefaultRuleSet()

	first := Decide(thought, ruleSet)
	second := Decide(thought, ruleSet)
	assert.Equal(t, first, second)
}

func TestDecideFirstMatchingRuleWins(t *testing.T) {
	// "kill" (violence) appears before any self_harm keyword in the text, but
	// self_harm is checked first in the table and matches "suicide", so it wins.
	thought := thoughtWithText("kill the suicide bomber", 0.5)
	decision := Decide(thought, DefaultRuleSet())
	require.False(t, decision.Allowed)
	require.NotNil(t, decision.ViolatedValue)
	assert.Equal(t, "self_harm", *decision.ViolatedValue)
}
