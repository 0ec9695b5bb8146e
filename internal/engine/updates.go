package engine

import (
	"strings"

	"github.com/clearskin/accord/internal/domain"
)

// updateTargets is the closed mapping from update-token labels to band
// keys. The catalog writes labels like "Acne" or "Pigmentation
// (Brown)"; resolving through an explicit table rather than free
// substring matching means a typo'd label fails the lookup instead of
// silently hitting the wrong category. Unrecognized labels are still
// dropped, not raised; ValidateCatalog surfaces them offline.
var updateTargets = map[string]string{
	"moisture":             domain.BandKey(domain.CategoryMoisture, domain.DimensionNone),
	"sebum":                domain.BandKey(domain.CategorySebum, domain.DimensionNone),
	"grease":               domain.BandKey(domain.CategorySebum, domain.DimensionNone),
	"oil":                  domain.BandKey(domain.CategorySebum, domain.DimensionNone),
	"texture":              domain.BandKey(domain.CategoryTexture, domain.DimensionNone),
	"pores":                domain.BandKey(domain.CategoryPores, domain.DimensionNone),
	"acne":                 domain.BandKey(domain.CategoryAcne, domain.DimensionNone),
	"pigmentation (brown)": domain.BandKey(domain.CategoryPigmentation, domain.DimensionBrown),
	"pigmentation (red)":   domain.BandKey(domain.CategoryPigmentation, domain.DimensionRed),
}

// parseUpdateToken parses "<Category[ (dimension)]>: <Band>" into a
// band key and band. Returns ok=false for unrecognized labels or
// bands; callers drop such tokens.
func parseUpdateToken(token string) (key string, band domain.Band, ok bool) {
	label, value, found := strings.Cut(token, ":")
	if !found {
		return "", "", false
	}

	key, ok = updateTargets[normalizeLabel(label)]
	if !ok {
		return "", "", false
	}

	band, ok = domain.ParseBand(value)
	if !ok {
		return "", "", false
	}
	return key, band, true
}

// normalizeLabel lowercases and collapses interior whitespace so that
// "Pigmentation  (Brown)" and "pigmentation (brown)" look the same.
func normalizeLabel(label string) string {
	return strings.Join(strings.Fields(strings.ToLower(label)), " ")
}
