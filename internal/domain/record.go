package domain

// Record is the canonical ingested unit. Two records describe the same event
// iff all four fields are equal, so a Record value is its own dedup key.
type Record struct {
	Subject      string `json:"subject"`
	Location     string `json:"location"`
	OccursAt     string `json:"occursAt"`
	ReferenceURL string `json:"referenceURL"`
}

// RawItem is one extracted item keyed by ruleset field name.
type RawItem map[string]string

// FieldMap names the raw item keys feeding each Record field.
type FieldMap struct {
	Subject      string `yaml:"subject"`
	Location     string `yaml:"location"`
	OccursAt     string `yaml:"occursAt"`
	ReferenceURL string `yaml:"referenceURL"`
}

// DefaultFieldMap matches the keys produced by the bundled event rulesets.
func DefaultFieldMap() FieldMap {
	return FieldMap{
		Subject:      "artist",
		Location:     "location",
		OccursAt:     "date",
		ReferenceURL: "url",
	}
}

// WithDefaults fills empty keys from DefaultFieldMap.
func (m FieldMap) WithDefaults() FieldMap {
	def := DefaultFieldMap()
	if m.Subject == "" {
		m.Subject = def.Subject
	}
	if m.Location == "" {
		m.Location = def.Location
	}
	if m.OccursAt == "" {
		m.OccursAt = def.OccursAt
	}
	if m.ReferenceURL == "" {
		m.ReferenceURL = def.ReferenceURL
	}
	return m
}
