package engine

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/clearskin/accord/internal/domain"
)

// The "when" expressions in the rule catalog form a small fixed DSL.
// OR has the lowest precedence and AND binds tighter: the expression
// is split on OR first, then each side on AND; an AND group is true
// only if every clause holds, and the whole expression is true if any
// OR group holds. Clauses that are malformed, unrecognized, or that
// reference unanswered questions evaluate to false rather than
// erroring, so resolution always degrades toward a rule's default
// clause.

var (
	reSplitOr  = regexp.MustCompile(`(?i)\bOR\b`)
	reSplitAnd = regexp.MustCompile(`(?i)\bAND\b`)

	reAgeClause      = regexp.MustCompile(`(?i)^age\s*(>=|<=|>|<)\s*(\d+)$`)
	reInClause       = regexp.MustCompile(`(?i)^(Q[0-9]+[a-z]?)\s+in\s*\{(.*)\}$`)
	reIncludesClause = regexp.MustCompile(`(?i)^(Q[0-9]+[a-z]?)\s+(includes|excludes)\s+(.+)$`)
	reCompareClause  = regexp.MustCompile(`(?i)^(Q[0-9]+[a-z]?)\s*(>=|<=|=|>|<)\s*(.+)$`)

	// reNumericish matches a bare integer optionally prefixed by a
	// comparison glyph, e.g. "15", ">15", ">=20", as used in the
	// catalog's count-bucket answer options.
	reNumericish = regexp.MustCompile(`^[<>]?=?\s*(\d+)$`)
)

// ordinalLexicon maps qualitative answer options to numeric
// approximations so that ordered comparisons like "Q1 >= 3x/day" can
// order "Never" < "1-2x/day" < ">=3x/day". Bucket labels collapse to
// midpoint-ish values; that "1-5" and "6-15" share values with the
// comedone buckets is intentional, since the rule clauses were
// authored against exactly this table.
var ordinalLexicon = map[string]float64{
	"never":     0,
	"none":      0,
	"1-2x/day":  2,
	"3x/day":    3,
	">=3x/day":  3,
	"1-2x/week": 2,
	"3x/week":   3,
	">=3x/week": 3,
	"<10":       5,
	"10-20":     15,
	">=20":      20,
	"1-5":       5,
	"6-15":      15,
	">15":       15,
	">=15":      15,
	"several":   6,
}

// evaluate reports whether a when-expression holds for the given
// answers and derived age.
func evaluate(expr string, answers domain.Answers, age int) bool {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return false
	}
	for _, orTerm := range reSplitOr.Split(expr, -1) {
		all := true
		for _, clause := range reSplitAnd.Split(orTerm, -1) {
			if !evalClause(strings.TrimSpace(clause), answers, age) {
				all = false
				break
			}
		}
		if all {
			return true
		}
	}
	return false
}

// evalClause evaluates a single clause. Forms are tried in precedence
// order: literal, age comparison, set membership, includes/excludes,
// generic comparison. Anything else is false.
func evalClause(clause string, answers domain.Answers, age int) bool {
	if clause == "" {
		return false
	}

	// 1. Always-true literal.
	if clause == "-" || clause == "—" || strings.EqualFold(clause, "true") {
		return true
	}

	// 2. Age comparison.
	if m := reAgeClause.FindStringSubmatch(clause); m != nil {
		threshold, _ := strconv.Atoi(m[2])
		return compareNumbers(float64(age), m[1], float64(threshold))
	}

	// 3. Set membership: Q<id> in {A,B,C}.
	if m := reInClause.FindStringSubmatch(clause); m != nil {
		answer, ok := answers[canonicalQuestionID(m[1])]
		if !ok {
			return false
		}
		for _, member := range strings.Split(m[2], ",") {
			member = strings.TrimSpace(member)
			for _, val := range answer {
				if strings.EqualFold(val, member) {
					return true
				}
			}
		}
		return false
	}

	// 4. Token inclusion/exclusion: Q<id> includes a/b/c.
	if m := reIncludesClause.FindStringSubmatch(clause); m != nil {
		answer, ok := answers[canonicalQuestionID(m[1])]
		if !ok {
			return false
		}
		found := false
		for _, token := range strings.Split(m[3], "/") {
			token = strings.ToLower(strings.TrimSpace(token))
			if token == "" {
				continue
			}
			for _, val := range answer {
				if strings.Contains(strings.ToLower(val), token) {
					found = true
				}
			}
		}
		if strings.EqualFold(m[2], "excludes") {
			return !found
		}
		return found
	}

	// 5. Generic comparison: Q<id> <op> <value>.
	if m := reCompareClause.FindStringSubmatch(clause); m != nil {
		answer, ok := answers[canonicalQuestionID(m[1])]
		if !ok {
			return false
		}
		return compareAnswer(answer, m[2], strings.TrimSpace(m[3]))
	}

	// 6. Unrecognized clause: unsatisfied, never an error.
	return false
}

// compareAnswer applies <op> between any element of the answer and the
// right-hand value. Equality is case-insensitive exact match. Ordered
// comparisons map both sides through the ordinal lexicon; when either
// side has no numeric reading, the clause falls back to string
// equality. The fallback is deliberate degraded behavior, not an
// error.
func compareAnswer(answer domain.Answer, op, value string) bool {
	if op == "=" {
		for _, val := range answer {
			if strings.EqualFold(val, value) {
				return true
			}
		}
		return false
	}

	rhs, rhsOK := ordinal(value)
	for _, val := range answer {
		lhs, lhsOK := ordinal(val)
		if lhsOK && rhsOK {
			if compareNumbers(lhs, op, rhs) {
				return true
			}
		} else if strings.EqualFold(val, value) {
			return true
		}
	}
	return false
}

// ordinal maps an answer option or literal to its numeric
// approximation: lexicon first, then bare/prefixed integers.
func ordinal(s string) (float64, bool) {
	key := strings.ToLower(strings.TrimSpace(s))
	if v, ok := ordinalLexicon[key]; ok {
		return v, true
	}
	if m := reNumericish.FindStringSubmatch(key); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil {
			return float64(n), true
		}
	}
	return 0, false
}

func compareNumbers(lhs float64, op string, rhs float64) bool {
	switch op {
	case ">":
		return lhs > rhs
	case "<":
		return lhs < rhs
	case ">=":
		return lhs >= rhs
	case "<=":
		return lhs <= rhs
	case "=":
		return lhs == rhs
	}
	return false
}

// canonicalQuestionID normalizes the case-insensitively matched
// question reference to the catalog's Q<n><letter> form.
func canonicalQuestionID(id string) string {
	if len(id) == 0 {
		return id
	}
	return "Q" + strings.ToLower(id[1:])
}
