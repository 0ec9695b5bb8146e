package domain

import (
	"encoding/json"
	"fmt"
)

// Rule reconciles one machine/self band pair for a category. A rule
// matches when the machine band is in MachineInput and the self band is
// in CustomerInput for the rule's category (and dimension, for
// pigmentation). Matching rules contribute follow-up questions; their
// outcomes decide the final band.
type Rule struct {
	ID       string   `json:"id"`
	Category Category `json:"category"`

	// Dimension qualifies pigmentation rules (brown vs red).
	Dimension Dimension `json:"dimension,omitempty"`

	// Band sets that trigger the rule.
	MachineInput  []Band `json:"machineInput"`
	CustomerInput []Band `json:"customerInput"`

	// Follow-up questions, in the order the UI should present them.
	// May be empty: some rules resolve purely on band pair and age.
	Questions []QuestionSpec `json:"questions,omitempty"`

	// Outcomes are a priority list: the first whose When expression is
	// satisfied wins. Declaration order is load-bearing.
	Outcomes []OutcomeSpec `json:"outcomes,omitempty"`

	// Free-text authoring notes, not used by the engine.
	Notes string `json:"notes,omitempty"`
}

// QuestionSpec describes one follow-up question.
type QuestionSpec struct {
	// ID matches Q<n> or Q<n><letter> for branch sub-questions.
	ID      string   `json:"id"`
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`

	// Multi marks questions whose answer is a set of options.
	Multi bool `json:"multi,omitempty"`
}

// OutcomeSpec is one when -> updates/flags/verdict entry within a rule.
type OutcomeSpec struct {
	// When is a textual boolean expression over question answers and
	// age. "-", the em-dash, and "true" denote the always-true default.
	When string `json:"when"`

	// Updates are tokens of the form "<Category[ (dimension)]>: <Band>",
	// e.g. "Acne: Red" or "Pigmentation (Brown): Yellow".
	Updates []string `json:"updates,omitempty"`

	// Flags are opaque advisory tags for downstream routing.
	Flags []string `json:"flags,omitempty"`

	// Verdict is a human-readable summary for the UI.
	Verdict string `json:"verdict,omitempty"`
}

// Answer holds the selected option(s) for one question. Single-choice
// questions carry one element. JSON accepts either a bare string or an
// array of strings.
type Answer []string

// UnmarshalJSON accepts "Yes" as well as ["Tight","Flaky patches"].
func (a *Answer) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*a = Answer{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("answer must be a string or an array of strings")
	}
	*a = Answer(many)
	return nil
}

// Answers maps question id to the selected option(s).
type Answers map[string]Answer

// RuleMatch is the matcher's output for one applicable rule.
type RuleMatch struct {
	RuleID    string         `json:"ruleId"`
	Category  Category       `json:"category"`
	Dimension Dimension      `json:"dimension,omitempty"`
	Questions []QuestionSpec `json:"questions"`
}

// Decision is the resolver's output for one rule: the first satisfied
// outcome's band updates, flags, and verdict. Updates may be empty when
// no outcome clause was satisfied.
type Decision struct {
	RuleID  string          `json:"ruleId"`
	Updates map[string]Band `json:"updates"`
	Flags   []string        `json:"flags,omitempty"`
	Verdict string          `json:"verdict,omitempty"`
}

// AggregateResult merges all per-rule decisions for a session.
// Updates uses last-write-wins in catalog order; PerRule retains every
// matched rule's decision for audit, including rules that resolved to
// no decision.
type AggregateResult struct {
	Updates map[string]Band      `json:"updates"`
	PerRule map[string]*Decision `json:"perRule"`
}
