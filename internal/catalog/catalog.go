// Package catalog holds the static band-reconciliation rule set.
//
// The catalog is plain data: each rule pairs a machine/self band
// combination with follow-up questions and an ordered list of outcome
// clauses whose "when" expressions are evaluated by the engine. Keeping
// it as data means consultants can audit and amend the decision table
// without touching evaluator code. Outcome order within a rule is a
// priority list, not a set of independent guards: do not reorder.
package catalog

import (
	"github.com/clearskin/accord/internal/domain"
)

const (
	green  = domain.BandGreen
	blue   = domain.BandBlue
	yellow = domain.BandYellow
	red    = domain.BandRed
)

// defaultRules is built once at init and never mutated. Concurrent
// callers share it safely because it is read-only. Declaration order
// is load-bearing: the aggregator merges updates in this order.
var defaultRules = []*domain.Rule{

	// ------------------------------------------------------------------
	// Moisture
	// ------------------------------------------------------------------
	{
		ID:            "moisture-machine-dry",
		Category:      domain.CategoryMoisture,
		MachineInput:  []domain.Band{yellow, red},
		CustomerInput: []domain.Band{green, blue},
		Notes:         "Instrument sees dehydration the customer does not feel.",
		Questions: []domain.QuestionSpec{
			{ID: "Q1", Prompt: "Does your skin feel tight within an hour of cleansing?", Options: []string{"Yes", "No"}},
			{ID: "Q2", Prompt: "Do you notice flaking or rough, dry patches anywhere on your face?", Options: []string{"Yes", "No"}},
			{ID: "Q3", Prompt: "Do skincare products sting or burn when you first apply them?", Options: []string{"Yes", "No"}},
		},
		Outcomes: []domain.OutcomeSpec{
			{
				When:    "Q2 = Yes AND Q3 = Yes",
				Updates: []string{"Moisture: Red"},
				Flags:   []string{"barrier-compromised"},
				Verdict: "Flaking plus stinging points to a compromised moisture barrier even though the skin does not feel dry. Prioritise barrier repair before any active ingredients.",
			},
			{
				When:    "Q1 = Yes OR Q2 = Yes",
				Updates: []string{"Moisture: Yellow"},
				Verdict: "Early dehydration signs confirm the instrument reading. Step up hydrating layers.",
			},
			{
				When:    "-",
				Updates: []string{"Moisture: Blue"},
				Verdict: "No symptoms reported; the reading likely reflects transient surface dryness on the day of measurement.",
			},
		},
	},
	{
		ID:            "moisture-customer-dry",
		Category:      domain.CategoryMoisture,
		MachineInput:  []domain.Band{green, blue},
		CustomerInput: []domain.Band{yellow, red},
		Notes:         "Customer feels dry but the instrument disagrees.",
		Questions: []domain.QuestionSpec{
			{ID: "Q1", Prompt: "How often does your skin feel tight during the day?", Options: []string{"Never", "Sometimes", "Daily"}},
			{ID: "Q2", Prompt: "Which of these describe your skin by mid-day?", Options: []string{"Comfortable", "Tight", "Flaky patches", "Shiny T-zone"}, Multi: true},
		},
		Outcomes: []domain.OutcomeSpec{
			{
				When:    "Q1 = Daily AND Q2 includes tight/flaky",
				Updates: []string{"Moisture: Yellow"},
				Verdict: "Daily tightness with visible symptoms outweighs a single favourable measurement.",
			},
			{
				When:    "age > 45 AND Q1 = Sometimes",
				Updates: []string{"Moisture: Yellow"},
				Verdict: "Intermittent tightness past the mid-forties usually precedes measurable dryness; treat preventively.",
			},
			{
				When:    "-",
				Updates: []string{"Moisture: Green"},
				Verdict: "Perceived dryness is not supported by the measurement or symptoms; current hydration routine is adequate.",
			},
		},
	},

	// ------------------------------------------------------------------
	// Sebum
	// ------------------------------------------------------------------
	{
		ID:            "sebum-machine-oily",
		Category:      domain.CategorySebum,
		MachineInput:  []domain.Band{yellow, red},
		CustomerInput: []domain.Band{green, blue},
		Questions: []domain.QuestionSpec{
			{ID: "Q1", Prompt: "How often do you blot or wash excess oil off during the day?", Options: []string{"Never", "1-2x/day", ">=3x/day"}},
		},
		Outcomes: []domain.OutcomeSpec{
			{
				When:    "Q1 >= 3x/day",
				Updates: []string{"Sebum: Red"},
				Verdict: "Frequent blotting confirms heavy sebum production. Oil-control routine recommended.",
			},
			{
				When:    "Q1 = 1-2x/day",
				Updates: []string{"Sebum: Yellow"},
				Verdict: "Moderate oiliness, consistent with the instrument reading.",
			},
			{
				When:    "-",
				Updates: []string{"Sebum: Blue"},
				Verdict: "Reading likely caught post-cleanse rebound oil; no routine change needed.",
			},
		},
	},
	{
		ID:            "sebum-customer-oily",
		Category:      domain.CategorySebum,
		MachineInput:  []domain.Band{green, blue},
		CustomerInput: []domain.Band{yellow, red},
		Questions: []domain.QuestionSpec{
			{ID: "Q1", Prompt: "Where do you notice shine by the afternoon?", Options: []string{"Forehead", "Nose", "Cheeks", "Chin"}, Multi: true},
		},
		Outcomes: []domain.OutcomeSpec{
			{
				When:    "Q1 includes cheek",
				Updates: []string{"Sebum: Yellow"},
				Verdict: "Shine beyond the T-zone suggests genuine oiliness the spot measurement missed.",
			},
			{
				When:    "-",
				Updates: []string{"Sebum: Green"},
				Verdict: "T-zone shine is normal; overall sebum level is balanced.",
			},
		},
	},

	// ------------------------------------------------------------------
	// Acne
	// ------------------------------------------------------------------
	{
		ID:            "acne-machine-acne",
		Category:      domain.CategoryAcne,
		MachineInput:  []domain.Band{yellow, red},
		CustomerInput: []domain.Band{green, blue},
		Notes:         "Instrument detects lesions the customer considers unremarkable.",
		Questions: []domain.QuestionSpec{
			{ID: "Q1", Prompt: "Roughly how many blackheads or whiteheads can you count?", Options: []string{"<10", "10-20", ">=20"}},
			{ID: "Q2", Prompt: "Where do breakouts usually appear?", Options: []string{"Forehead", "Cheeks", "Jawline", "Back/chest"}, Multi: true},
			{ID: "Q3", Prompt: "Do breakouts leave dark marks after they heal?", Options: []string{"Yes", "No"}},
			{ID: "Q4", Prompt: "Are you currently using any acne treatment products?", Options: []string{"Yes", "No"}},
			{ID: "Q5", Prompt: "How many red, inflamed pimples do you currently have?", Options: []string{"None", "1-5", "6-15", ">=15"}},
		},
		Outcomes: []domain.OutcomeSpec{
			{
				When:    "Q5 = 6-15 OR Q5 = >=15",
				Updates: []string{"Acne: Red"},
				Flags:   []string{"refer-derm", "acne-category:Inflammatory"},
				Verdict: "Active inflammatory acne at this count warrants a dermatologist referral rather than cosmetic management alone.",
			},
			{
				When:    "Q5 = 1-5",
				Updates: []string{"Acne: Yellow"},
				Flags:   []string{"acne-category:Inflammatory"},
				Verdict: "Mild inflammatory acne; manageable with a targeted routine.",
			},
			{
				When:    "Q1 >= 10-20",
				Updates: []string{"Acne: Yellow"},
				Flags:   []string{"acne-category:Comedonal"},
				Verdict: "Comedonal congestion confirmed; exfoliating actives recommended.",
			},
			{
				When:    "Q3 = Yes",
				Updates: []string{"Acne: Yellow", "Pigmentation (Brown): Yellow"},
				Flags:   []string{"acne-category:Post-inflammatory"},
				Verdict: "Healing lesions are leaving post-inflammatory marks; treat acne and pigmentation together.",
			},
			{
				When:    "-",
				Updates: []string{"Acne: Blue"},
				Verdict: "Few active lesions reported; the reading reflects texture rather than active acne.",
			},
		},
	},
	{
		ID:            "acne-customer-acne",
		Category:      domain.CategoryAcne,
		MachineInput:  []domain.Band{green, blue},
		CustomerInput: []domain.Band{yellow, red},
		Questions: []domain.QuestionSpec{
			{ID: "Q1", Prompt: "How often do new breakouts appear?", Options: []string{"Rarely", "Monthly", "Weekly", "Daily"}},
			{ID: "Q2", Prompt: "Do breakouts cluster around the same time each month?", Options: []string{"Yes", "No"}},
		},
		Outcomes: []domain.OutcomeSpec{
			{
				When:    "Q1 in {Weekly, Daily}",
				Updates: []string{"Acne: Yellow"},
				Flags:   []string{"followup:acne-inflammatory"},
				Verdict: "Frequent new breakouts matter more than a clear-skin snapshot on measurement day.",
			},
			{
				When:    "Q2 = Yes",
				Updates: []string{"Acne: Blue"},
				Flags:   []string{"acne-category:Hormonal"},
				Verdict: "Cyclical pattern suggests hormonal breakouts; time treatment to the cycle.",
			},
			{
				When:    "-",
				Updates: []string{"Acne: Green"},
				Verdict: "Occasional breakouts are within normal range; no acne routine required.",
			},
		},
	},

	// ------------------------------------------------------------------
	// Pores
	// ------------------------------------------------------------------
	{
		ID:            "pores-machine-enlarged",
		Category:      domain.CategoryPores,
		MachineInput:  []domain.Band{yellow, red},
		CustomerInput: []domain.Band{green, blue},
		Questions: []domain.QuestionSpec{
			{ID: "Q1", Prompt: "Do enlarged pores bother you when you look closely in a mirror?", Options: []string{"Yes", "No"}},
			{ID: "Q2", Prompt: "Do you notice blackheads across the nose or T-zone?", Options: []string{"Yes", "No"}},
		},
		Outcomes: []domain.OutcomeSpec{
			{
				When:    "Q1 = Yes AND Q2 = Yes",
				Updates: []string{"Pores: Red"},
				Verdict: "Visible enlargement with congestion; pore-refining and decongesting routine recommended.",
			},
			{
				When:    "Q1 = Yes",
				Updates: []string{"Pores: Yellow"},
				Verdict: "Pore size is a genuine concern; the reading stands.",
			},
			{
				When:    "Q1 = No AND Q2 = Yes",
				Updates: []string{"Pores: Blue"},
				Flags:   []string{"followup:acne-comedonal"},
				Verdict: "Pore size is unremarkable to the customer, but blackheads suggest following up under comedonal acne instead.",
			},
			{
				When:    "-",
				Updates: []string{"Pores: Blue"},
				Verdict: "Not a concern for the customer; likely lighting-sensitive measurement.",
			},
		},
	},
	{
		ID:            "pores-customer-enlarged",
		Category:      domain.CategoryPores,
		MachineInput:  []domain.Band{green, blue},
		CustomerInput: []domain.Band{yellow, red},
		Questions: []domain.QuestionSpec{
			{ID: "Q1", Prompt: "Is the concern limited to the nose area?", Options: []string{"Yes", "No"}},
		},
		Outcomes: []domain.OutcomeSpec{
			{
				When:    "Q1 = Yes",
				Updates: []string{"Pores: Blue"},
				Verdict: "Nose-only pores are structural and normal; measurement confirms overall pore health.",
			},
			{
				When:    "-",
				Updates: []string{"Pores: Green"},
				Verdict: "Perceived enlargement is not borne out by the measurement.",
			},
		},
	},

	// ------------------------------------------------------------------
	// Texture
	// ------------------------------------------------------------------
	{
		ID:            "texture-machine-rough",
		Category:      domain.CategoryTexture,
		MachineInput:  []domain.Band{yellow, red},
		CustomerInput: []domain.Band{green, blue},
		Questions: []domain.QuestionSpec{
			{ID: "Q1", Prompt: "How often do you exfoliate?", Options: []string{"Never", "1-2x/week", ">=3x/week"}},
			{ID: "Q2", Prompt: "Does makeup cling to dry or rough patches?", Options: []string{"Yes", "No"}},
		},
		Outcomes: []domain.OutcomeSpec{
			{
				When:    "age > 35 AND Q1 = Never",
				Updates: []string{"Texture: Yellow"},
				Verdict: "Cell turnover slows from the mid-thirties; without exfoliation the measured roughness will persist.",
			},
			{
				When:    "Q2 = Yes",
				Updates: []string{"Texture: Yellow"},
				Verdict: "Makeup behaviour confirms surface unevenness.",
			},
			{
				When:    "-",
				Updates: []string{"Texture: Blue"},
				Verdict: "No day-to-day signs; the reading may reflect temporary buildup.",
			},
		},
	},
	{
		ID:            "texture-customer-rough",
		Category:      domain.CategoryTexture,
		MachineInput:  []domain.Band{green, blue},
		CustomerInput: []domain.Band{yellow, red},
		Questions: []domain.QuestionSpec{
			{ID: "Q1", Prompt: "Where does your skin feel uneven to the touch?", Options: []string{"Forehead", "Cheeks", "Jawline", "Nose"}, Multi: true},
		},
		Outcomes: []domain.OutcomeSpec{
			{
				When:    "Q1 includes jaw",
				Updates: []string{"Texture: Blue"},
				Verdict: "Jawline bumpiness is usually follicular, not surface texture; monitor rather than treat.",
			},
			{
				When:    "-",
				Updates: []string{"Texture: Green"},
				Verdict: "Measured smoothness takes precedence; perceived roughness is within normal variation.",
			},
		},
	},

	// ------------------------------------------------------------------
	// Pigmentation (brown): no follow-up questions; resolved on band
	// pair and age alone.
	// ------------------------------------------------------------------
	{
		ID:            "pigment-brown-machine-high",
		Category:      domain.CategoryPigmentation,
		Dimension:     domain.DimensionBrown,
		MachineInput:  []domain.Band{yellow, red},
		CustomerInput: []domain.Band{green, blue},
		Notes:         "UV imaging routinely reveals sub-surface brown pigment before it is visible.",
		Outcomes: []domain.OutcomeSpec{
			{
				When:    "-",
				Updates: []string{"Pigmentation (Brown): Yellow"},
				Verdict: "Sub-surface brown pigment detected before it is visible to the eye. Daily broad-spectrum SPF will slow its emergence.",
			},
		},
	},
	{
		ID:            "pigment-brown-customer-high",
		Category:      domain.CategoryPigmentation,
		Dimension:     domain.DimensionBrown,
		MachineInput:  []domain.Band{green, blue},
		CustomerInput: []domain.Band{yellow, red},
		Outcomes: []domain.OutcomeSpec{
			{
				When:    "-",
				Updates: []string{"Pigmentation (Brown): Blue"},
				Verdict: "The spots of concern measure within the normal range; likely surface tone variation rather than pigment.",
			},
		},
	},

	// ------------------------------------------------------------------
	// Pigmentation (red)
	// ------------------------------------------------------------------
	{
		ID:            "pigment-red-machine-high",
		Category:      domain.CategoryPigmentation,
		Dimension:     domain.DimensionRed,
		MachineInput:  []domain.Band{yellow, red},
		CustomerInput: []domain.Band{green, blue},
		Outcomes: []domain.OutcomeSpec{
			{
				When:    "age > 40",
				Updates: []string{"Pigmentation (Red): Yellow"},
				Flags:   []string{"followup:vascular"},
				Verdict: "Diffuse redness at this age often has a vascular component worth a closer look.",
			},
			{
				When:    "-",
				Updates: []string{"Pigmentation (Red): Blue"},
				Verdict: "Mild sub-surface redness, commonly post-blemish; should fade with consistent SPF.",
			},
		},
	},
	{
		ID:            "pigment-red-customer-high",
		Category:      domain.CategoryPigmentation,
		Dimension:     domain.DimensionRed,
		MachineInput:  []domain.Band{green, blue},
		CustomerInput: []domain.Band{yellow, red},
		Outcomes: []domain.OutcomeSpec{
			{
				When:    "-",
				Updates: []string{"Pigmentation (Red): Blue"},
				Verdict: "Perceived redness measures low; likely transient flushing rather than persistent pigment.",
			},
		},
	},
}

// Default returns the built-in reconciliation rule set in declaration
// order. Callers must treat the returned slice and its rules as
// read-only.
func Default() []*domain.Rule {
	return defaultRules
}

// SensitivityAdvisory is the static route for the sensitivity
// category. Sensitivity has no machine band, so it never passes
// through the matcher; the intake UI presents this fixed question set
// and verdict instead.
type SensitivityAdvisory struct {
	Questions []domain.QuestionSpec `json:"questions"`
	Verdict   string                `json:"verdict"`
	Flags     []string              `json:"flags"`
}

// Sensitivity returns the static sensitivity advisory.
func Sensitivity() SensitivityAdvisory {
	return SensitivityAdvisory{
		Questions: []domain.QuestionSpec{
			{ID: "Q1", Prompt: "Does your skin redden or sting in response to new products?", Options: []string{"Yes", "No"}},
			{ID: "Q2", Prompt: "Have you been diagnosed with rosacea, eczema, or dermatitis?", Options: []string{"Yes", "No"}},
		},
		Verdict: "Sensitivity is assessed from history rather than instrument readings. Patch-test new products and introduce one active at a time.",
		Flags:   []string{"followup:sensitivity"},
	}
}
