// Package domain defines the core interfaces and types for Accord.
package domain

import "strings"

// Band is an ordered qualitative severity level for a skin attribute.
// Green means no concern, red the most severe.
type Band string

const (
	BandGreen  Band = "green"
	BandBlue   Band = "blue"
	BandYellow Band = "yellow"
	BandRed    Band = "red"
)

// bandRanks orders bands from least to most severe.
var bandRanks = map[Band]int{
	BandGreen:  0,
	BandBlue:   1,
	BandYellow: 2,
	BandRed:    3,
}

// Rank returns the severity rank of the band (green=0 .. red=3).
// Unknown bands rank below green.
func (b Band) Rank() int {
	if r, ok := bandRanks[b]; ok {
		return r
	}
	return -1
}

// Valid reports whether b is one of the four known bands.
func (b Band) Valid() bool {
	_, ok := bandRanks[b]
	return ok
}

// ParseBand normalizes a string to a Band.
func ParseBand(s string) (Band, bool) {
	b := Band(strings.ToLower(strings.TrimSpace(s)))
	return b, b.Valid()
}

// Category identifies a measured skin attribute.
type Category string

const (
	CategoryMoisture     Category = "moisture"
	CategorySebum        Category = "sebum"
	CategoryAcne         Category = "acne"
	CategoryPores        Category = "pores"
	CategoryTexture      Category = "texture"
	CategoryPigmentation Category = "pigmentation"
	CategorySensitivity  Category = "sensitivity"
)

// Dimension is the pigmentation sub-axis. Brown and red pigmentation
// are measured and reconciled independently.
type Dimension string

const (
	DimensionNone  Dimension = ""
	DimensionBrown Dimension = "brown"
	DimensionRed   Dimension = "red"
)

// BandKey returns the wire key for a category/dimension pair, e.g.
// "moisture" or "pigmentation_brown".
func BandKey(c Category, d Dimension) string {
	if d == DimensionNone {
		return string(c)
	}
	return string(c) + "_" + string(d)
}

// Readings maps band keys to measured or self-reported bands.
// Entries may be absent for attributes not yet measured.
type Readings map[string]Band

// ResolvableBandKeys lists the band keys the engine can read and write.
// Sensitivity is intentionally absent: it is handled via a static
// advisory route and never passes through the matcher.
func ResolvableBandKeys() []string {
	return []string{
		BandKey(CategoryMoisture, DimensionNone),
		BandKey(CategorySebum, DimensionNone),
		BandKey(CategoryTexture, DimensionNone),
		BandKey(CategoryPores, DimensionNone),
		BandKey(CategoryAcne, DimensionNone),
		BandKey(CategoryPigmentation, DimensionBrown),
		BandKey(CategoryPigmentation, DimensionRed),
	}
}
