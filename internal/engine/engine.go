// Package engine implements the band-reconciliation decision engine:
// rule matching, outcome resolution, and session-level aggregation
// over a static rule catalog.
package engine

import (
	"time"

	"github.com/clearskin/accord/internal/domain"
)

// Engine evaluates reconciliation rules against session readings.
// It is immutable after construction and safe for concurrent use
// without locking; the catalog is shared read-only state. Rules are
// held in a slice, never a map, because catalog declaration order
// drives both match output order and update merge order.
type Engine struct {
	rules []*domain.Rule
	index map[string]*domain.Rule
	now   func() time.Time
}

// New creates an engine over the given rule catalog. The engine keeps
// a reference to the slice; callers must not mutate it afterwards.
func New(rules []*domain.Rule) *Engine {
	index := make(map[string]*domain.Rule, len(rules))
	for _, r := range rules {
		index[r.ID] = r
	}
	return &Engine{
		rules: rules,
		index: index,
		now:   time.Now,
	}
}

// RulesCount returns the number of catalog rules.
func (e *Engine) RulesCount() int {
	return len(e.rules)
}

// Rules returns the catalog in declaration order, for introspection.
// The returned slice is shared and read-only.
func (e *Engine) Rules() []*domain.Rule {
	return e.rules
}

// Rule looks up a single rule by id.
func (e *Engine) Rule(id string) (*domain.Rule, bool) {
	r, ok := e.index[id]
	return r, ok
}

// Match finds every rule whose band-pair condition is satisfied by the
// given readings and returns its follow-up question set. Output order
// follows catalog order. Rules whose category has no machine or self
// reading are skipped. Pure function of its inputs.
func (e *Engine) Match(machine, self domain.Readings) []domain.RuleMatch {
	matches := make([]domain.RuleMatch, 0)
	for _, rule := range e.rules {
		key := domain.BandKey(rule.Category, rule.Dimension)
		machineBand, ok := machine[key]
		if !ok {
			continue
		}
		selfBand, ok := self[key]
		if !ok {
			continue
		}
		if !bandIn(machineBand, rule.MachineInput) || !bandIn(selfBand, rule.CustomerInput) {
			continue
		}
		questions := rule.Questions
		if questions == nil {
			questions = []domain.QuestionSpec{}
		}
		matches = append(matches, domain.RuleMatch{
			RuleID:    rule.ID,
			Category:  rule.Category,
			Dimension: rule.Dimension,
			Questions: questions,
		})
	}
	return matches
}

// Resolve evaluates a rule's outcome clauses in declared order against
// the answers and returns the first satisfied outcome's decision.
// Returns nil for an unknown rule id, which signals caller misuse
// rather than a domain condition. A matched rule whose clauses are all
// unsatisfied yields a decision with empty updates; well-formed
// catalog rules end in a default clause, so this is the degraded path,
// not the normal one.
func (e *Engine) Resolve(ruleID string, answers domain.Answers, profile domain.Profile) *domain.Decision {
	rule, ok := e.index[ruleID]
	if !ok {
		return nil
	}
	return e.resolve(rule, answers, profile.AgeAt(e.now()))
}

func (e *Engine) resolve(rule *domain.Rule, answers domain.Answers, age int) *domain.Decision {
	for _, outcome := range rule.Outcomes {
		if !evaluate(outcome.When, answers, age) {
			continue
		}
		updates := make(map[string]domain.Band, len(outcome.Updates))
		for _, token := range outcome.Updates {
			key, band, ok := parseUpdateToken(token)
			if !ok {
				// Unrecognized tokens are dropped, not fatal.
				continue
			}
			updates[key] = band
		}
		return &domain.Decision{
			RuleID:  rule.ID,
			Updates: updates,
			Flags:   outcome.Flags,
			Verdict: outcome.Verdict,
		}
	}
	return &domain.Decision{
		RuleID:  rule.ID,
		Updates: map[string]domain.Band{},
	}
}

// AggregateAll runs the matcher and resolver across every applicable
// rule and merges the resulting band updates. Conflicting category
// keys resolve last-write-wins in catalog order. PerRule retains each
// matched rule's decision for audit, including rules that resolved to
// no updates.
func (e *Engine) AggregateAll(machine, self domain.Readings, answersByRule map[string]domain.Answers, profile domain.Profile) *domain.AggregateResult {
	age := profile.AgeAt(e.now())

	result := &domain.AggregateResult{
		Updates: make(map[string]domain.Band),
		PerRule: make(map[string]*domain.Decision),
	}

	for _, match := range e.Match(machine, self) {
		rule := e.index[match.RuleID]
		dec := e.resolve(rule, answersByRule[match.RuleID], age)
		result.PerRule[match.RuleID] = dec
		for key, band := range dec.Updates {
			result.Updates[key] = band
		}
	}

	return result
}

func bandIn(b domain.Band, set []domain.Band) bool {
	for _, s := range set {
		if b == s {
			return true
		}
	}
	return false
}
