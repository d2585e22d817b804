// Package volition is the Volition Gate: a pure function deciding whether a
// Thought may be anchored. It holds no mutable state between cycles — every
// decision depends only on the thought and the rule set passed in.
package volition

import (
	"strings"

	"github.com/royalbit/daneel/internal/cce"
)

// Decision is the gate's verdict on one thought.
type Decision struct {
	Allowed       bool
	VetoReason    string
	ViolatedValue *string
}

// Allow builds an Allowed decision.
func Allow() Decision {
	return Decision{Allowed: true}
}

// Veto builds a vetoed decision with a reason and optional named value.
func Veto(reason string, violatedValue *string) Decision {
	return Decision{Allowed: false, VetoReason: reason, ViolatedValue: violatedValue}
}

// Rule is one entry in the gate's rule table: it inspects a thought and
// returns a veto reason plus the violated value name, or ok=false if the
// thought passes this rule.
type Rule struct {
	Name  string
	Check func(cce.Thought) (reason string, violatedValue string, triggered bool)
}

// RuleSet is an ordered, immutable list of rules. The first rule that
// triggers determines the veto; an empty or all-passing set allows.
type RuleSet struct {
	rules []Rule
}

// keywordRule builds a Rule that vetoes thoughts whose content text
// contains any of the given keywords (case-insensitive substring match).
func keywordRule(name string, keywords []string) Rule {
	return Rule{
		Name: name,
		Check: func(t cce.Thought) (string, string, bool) {
			text, _ := t.Content.ToEmbeddingText()
			text = strings.ToLower(text)
			if text == "" && t.Content.Kind == cce.ContentSymbol {
				text = strings.ToLower(t.Content.SymbolID)
			}
			for _, kw := range keywords {
				if strings.Contains(text, kw) {
					return "content matched prohibited keyword: " + kw, name, true
				}
			}
			return "", "", false
		},
	}
}

// connectionFloorRule vetoes any thought whose connection_relevance is not
// strictly positive — the system-wide alignment invariant.
func connectionFloorRule() Rule {
	return Rule{
		Name: "connection_floor",
		Check: func(t cce.Thought) (string, string, bool) {
			if t.Salience.ConnectionRelevance <= 0 {
				return "connection_relevance must be greater than zero", "connection_floor", true
			}
			return "", "", false
		},
	}
}

// DefaultRuleSet is the gate's small immutable table: keyword screens for a
// fixed family of prohibitions, plus the positive connection-floor check.
// It is built fresh each call and never mutated — the gate has no state.
func DefaultRuleSet() RuleSet {
	return RuleSet{
		rules: []Rule{
			keywordRule("self_harm", []string{"suicide", "self-harm", "self harm"}),
			keywordRule("violence", []string{"kill", "murder", "assassinate"}),
			keywordRule("weapons", []string{"bioweapon", "chemical weapon", "build a bomb"}),
			keywordRule("deception", []string{"impersonate", "forge identity"}),
			connectionFloorRule(),
		},
	}
}

// Decide evaluates thought against ruleSet in order and returns the first
// triggered veto, or Allow if none trigger. The gate is a pure function:
// calling it twice with the same inputs always returns the same decision.
func Decide(thought cce.Thought, ruleSet RuleSet) Decision {
	for _, rule := range ruleSet.rules {
		if reason, violated, triggered := rule.Check(thought); triggered {
			v := violated
			return Veto(reason, &v)
		}
	}
	return Allow()
}
