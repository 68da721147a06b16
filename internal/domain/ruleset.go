package domain

// FieldType selects how a field value is read from a matched element.
type FieldType string

const (
	FieldText      FieldType = "text"
	FieldLink      FieldType = "link"
	FieldAttribute FieldType = "attribute"
)

// Ruleset is the declarative page-structure description handed to extractors.
type Ruleset struct {
	Items ItemRule `yaml:"items"`
	// BaseURL resolves relative links; sources default it to the page URL.
	BaseURL string `yaml:"baseUrl"`
}

// ItemRule locates the repeated item elements on a page.
type ItemRule struct {
	CSS       string               `yaml:"css"`
	EmptyText string               `yaml:"emptyText"`
	Type      string               `yaml:"type"`
	Fields    map[string]FieldRule `yaml:"fields"`
}

// FieldRule extracts one named value relative to an item element.
type FieldRule struct {
	CSS       string    `yaml:"css"`
	Type      FieldType `yaml:"type"`
	Attribute string    `yaml:"attribute"`
	Path      string    `yaml:"path"`
}
