package engine

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/clearskin/accord/internal/domain"
)

// Diagnostic describes a catalog authoring problem found by
// ValidateCatalog. Diagnostics are advisory: the engine still
// evaluates a flawed catalog, degrading per its usual rules
// (unrecognized tokens dropped, unsatisfiable clauses false).
type Diagnostic struct {
	RuleID  string `json:"ruleId"`
	Message string `json:"message"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s", d.RuleID, d.Message)
}

var reQuestionRef = regexp.MustCompile(`(?i)\bQ[0-9]+[a-z]?\b`)

// ValidateCatalog runs an offline authoring check over a rule set,
// distinct from the hot evaluation path: duplicate ids, empty band
// sets, unrecognized update tokens, clauses referencing questions the
// rule does not declare, and rules that can match but lack a default
// final clause.
func ValidateCatalog(rules []*domain.Rule) []Diagnostic {
	var diags []Diagnostic
	seen := make(map[string]bool, len(rules))

	for _, rule := range rules {
		if rule.ID == "" {
			diags = append(diags, Diagnostic{RuleID: "(unnamed)", Message: "rule has no id"})
			continue
		}
		if seen[rule.ID] {
			diags = append(diags, Diagnostic{RuleID: rule.ID, Message: "duplicate rule id"})
		}
		seen[rule.ID] = true

		if len(rule.MachineInput) == 0 || len(rule.CustomerInput) == 0 {
			diags = append(diags, Diagnostic{RuleID: rule.ID, Message: "empty machine or customer band set; rule can never match"})
		}
		for _, b := range rule.MachineInput {
			if !b.Valid() {
				diags = append(diags, Diagnostic{RuleID: rule.ID, Message: fmt.Sprintf("unknown machine band %q", b)})
			}
		}
		for _, b := range rule.CustomerInput {
			if !b.Valid() {
				diags = append(diags, Diagnostic{RuleID: rule.ID, Message: fmt.Sprintf("unknown customer band %q", b)})
			}
		}

		declared := make(map[string]bool, len(rule.Questions))
		for _, q := range rule.Questions {
			if declared[q.ID] {
				diags = append(diags, Diagnostic{RuleID: rule.ID, Message: fmt.Sprintf("duplicate question id %s", q.ID)})
			}
			declared[q.ID] = true
		}

		hasDefault := false
		for i, outcome := range rule.Outcomes {
			for _, token := range outcome.Updates {
				if _, _, ok := parseUpdateToken(token); !ok {
					diags = append(diags, Diagnostic{
						RuleID:  rule.ID,
						Message: fmt.Sprintf("outcome %d: unrecognized update token %q (will be dropped)", i, token),
					})
				}
			}
			for _, ref := range reQuestionRef.FindAllString(outcome.When, -1) {
				if !declared[canonicalQuestionID(ref)] {
					diags = append(diags, Diagnostic{
						RuleID:  rule.ID,
						Message: fmt.Sprintf("outcome %d: clause references undeclared question %s", i, ref),
					})
				}
			}
			if isDefaultClause(outcome.When) {
				hasDefault = true
				if i != len(rule.Outcomes)-1 {
					diags = append(diags, Diagnostic{
						RuleID:  rule.ID,
						Message: fmt.Sprintf("outcome %d: default clause before later outcomes, which are unreachable", i),
					})
				}
			}
		}
		if len(rule.Outcomes) > 0 && !hasDefault {
			diags = append(diags, Diagnostic{RuleID: rule.ID, Message: "no default ('-') outcome; some answer sets will resolve to no decision"})
		}
	}

	return diags
}

func isDefaultClause(when string) bool {
	return when == "-" || when == "—" || strings.EqualFold(when, "true")
}
