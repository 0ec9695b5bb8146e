package catalog

import (
	"strings"
	"testing"

	"github.com/clearskin/accord/internal/domain"
	"github.com/clearskin/accord/internal/engine"
)

func TestDefaultCatalogValidates(t *testing.T) {
	for _, d := range engine.ValidateCatalog(Default()) {
		t.Errorf("catalog diagnostic: %s", d)
	}
}

func TestDefaultCatalogShape(t *testing.T) {
	rules := Default()

	if len(rules) != 14 {
		t.Errorf("expected 14 rules, got %d", len(rules))
	}

	// Every resolvable attribute has a machine-side and a
	// customer-side rule.
	directions := make(map[string]int)
	for _, rule := range rules {
		directions[domain.BandKey(rule.Category, rule.Dimension)]++
	}
	for _, key := range domain.ResolvableBandKeys() {
		if directions[key] != 2 {
			t.Errorf("attribute %s: expected 2 rules, got %d", key, directions[key])
		}
	}
}

func TestEveryRuleEndsInDefault(t *testing.T) {
	for _, rule := range Default() {
		if len(rule.Outcomes) == 0 {
			t.Errorf("rule %s has no outcomes", rule.ID)
			continue
		}
		last := rule.Outcomes[len(rule.Outcomes)-1]
		if last.When != "-" {
			t.Errorf("rule %s: final outcome is %q, not the default clause", rule.ID, last.When)
		}
	}
}

func TestReferralFlagsAreWellFormed(t *testing.T) {
	// Referral flags must carry the routing prefix exactly; anything
	// else would silently skip the referral topic.
	found := false
	for _, rule := range Default() {
		for _, outcome := range rule.Outcomes {
			for _, flag := range outcome.Flags {
				if strings.HasPrefix(flag, domain.ReferralFlagPrefix) {
					found = true
				}
			}
		}
	}
	if !found {
		t.Error("expected at least one refer- flag in the catalog")
	}
}

func TestSensitivityAdvisory(t *testing.T) {
	adv := Sensitivity()

	if len(adv.Questions) != 2 {
		t.Errorf("expected 2 sensitivity questions, got %d", len(adv.Questions))
	}
	if adv.Verdict == "" {
		t.Error("expected a non-empty verdict")
	}
	if len(adv.Flags) == 0 {
		t.Error("expected advisory flags")
	}

	// Sensitivity never enters the matcher; no catalog rule may claim
	// the category.
	for _, rule := range Default() {
		if rule.Category == domain.CategorySensitivity {
			t.Errorf("rule %s uses the sensitivity category", rule.ID)
		}
	}
}
