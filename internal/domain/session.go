package domain

import (
	"time"
)

// Session is one consultation session: the instrument's readings, the
// customer's self-assessment, and an optional profile for age-based
// clauses. Bands may be absent for attributes not yet measured.
type Session struct {
	ID       string `json:"id"`
	ClinicID string `json:"clinicId"`

	MachineBands Readings `json:"machineBands"`
	SelfBands    Readings `json:"selfBands"`

	Profile Profile `json:"profile,omitempty"`

	Timestamp time.Time `json:"timestamp"`
	CreatedAt time.Time `json:"createdAt"`

	// Optional metadata from the intake form (consultant name, device
	// serial, etc.). Opaque to the engine.
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Profile carries the age context for age-based outcome clauses.
// Either Age or DateOfBirth may be set; both absent means age 0, so
// age comparisons against positive thresholds are false by
// construction.
type Profile struct {
	Age         int    `json:"age,omitempty"`
	DateOfBirth string `json:"dateOfBirth,omitempty"` // YYYY-MM-DD
}

// AgeAt resolves the profile's age as of now. A directly supplied age
// wins; otherwise whole years are derived from the date of birth,
// decremented when the birthday has not yet been reached this year.
func (p Profile) AgeAt(now time.Time) int {
	if p.Age > 0 {
		return p.Age
	}
	if p.DateOfBirth == "" {
		return 0
	}
	dob, err := time.Parse("2006-01-02", p.DateOfBirth)
	if err != nil {
		return 0
	}
	age := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		age--
	}
	if age < 0 {
		return 0
	}
	return age
}

// SessionRequest is the API request payload for storing a session.
type SessionRequest struct {
	MachineBands map[string]string      `json:"machineBands"`
	SelfBands    map[string]string      `json:"selfBands"`
	Profile      Profile                `json:"profile,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

// ToSession converts a request to a Session domain object. Unknown
// band keys and unparseable band values are dropped rather than
// rejected, matching the engine's tolerance for absent readings.
func (r *SessionRequest) ToSession(clinicID string) *Session {
	now := time.Now().UTC()
	return &Session{
		ClinicID:     clinicID,
		MachineBands: parseReadings(r.MachineBands),
		SelfBands:    parseReadings(r.SelfBands),
		Profile:      r.Profile,
		Timestamp:    now,
		CreatedAt:    now,
		Metadata:     r.Metadata,
	}
}

func parseReadings(raw map[string]string) Readings {
	known := make(map[string]bool)
	for _, k := range ResolvableBandKeys() {
		known[k] = true
	}
	out := make(Readings, len(raw))
	for key, val := range raw {
		if !known[key] {
			continue
		}
		if band, ok := ParseBand(val); ok {
			out[key] = band
		}
	}
	return out
}
