package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"TourScanner/internal/domain"
	"TourScanner/internal/scanner"
)

// JSONLDExtractor reads schema.org objects embedded as application/ld+json.
// Field rules address values with dotted paths such as "location.name".
type JSONLDExtractor struct{}

var _ scanner.Strategy = JSONLDExtractor{}

// NewJSONLDExtractor returns the JSON-LD strategy.
func NewJSONLDExtractor() JSONLDExtractor {
	return JSONLDExtractor{}
}

// Name identifies the strategy inside the registry.
func (JSONLDExtractor) Name() string {
	return "jsonld"
}

// Validate requires a path on every field.
func (JSONLDExtractor) Validate(rs domain.Ruleset) error {
	if len(rs.Items.Fields) == 0 {
		return fmt.Errorf("ruleset: items.fields is empty")
	}
	for name, rule := range rs.Items.Fields {
		if strings.TrimSpace(rule.Path) == "" {
			return fmt.Errorf("ruleset: field %s needs a path", name)
		}
		if rule.Type != "" && rule.Type != domain.FieldText && rule.Type != domain.FieldLink {
			return fmt.Errorf("ruleset: field %s has unsupported type %q for jsonld", name, rule.Type)
		}
	}
	return nil
}

// Extract returns one raw item per object whose @type equals items.type (any
// object when items.type is empty). Malformed blocks are skipped.
func (e JSONLDExtractor) Extract(raw []byte, rs domain.Ruleset) ([]domain.RawItem, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, &domain.ExtractionError{Reason: "empty content"}
	}
	if err := e.Validate(rs); err != nil {
		return nil, &domain.ExtractionError{Reason: "invalid ruleset", Err: err}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return nil, &domain.ExtractionError{Reason: "parse html", Err: err}
	}

	var (
		objects []map[string]any
		blocks  int
		broken  int
	)
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, script *goquery.Selection) {
		blocks++
		var payload any
		if err := json.Unmarshal([]byte(script.Text()), &payload); err != nil {
			broken++
			return
		}
		objects = append(objects, flattenObjects(payload)...)
	})

	if blocks > 0 && broken == blocks {
		return nil, &domain.ExtractionError{Reason: "no readable json-ld block"}
	}

	base := parseBase(rs.BaseURL)
	items := make([]domain.RawItem, 0, len(objects))
	for _, obj := range objects {
		if rs.Items.Type != "" && !hasType(obj, rs.Items.Type) {
			continue
		}
		item := domain.RawItem{}
		for name, rule := range rs.Items.Fields {
			value, ok := lookupPath(obj, rule.Path)
			if !ok {
				continue
			}
			if rule.Type == domain.FieldLink {
				value = resolveLink(base, value)
			}
			item[name] = value
		}
		items = append(items, item)
	}

	if len(items) == 0 {
		return emptyResult(doc.Text(), rs, fmt.Sprintf("no json-ld object of type %q", rs.Items.Type))
	}
	return items, nil
}

func flattenObjects(payload any) []map[string]any {
	switch v := payload.(type) {
	case []any:
		var out []map[string]any
		for _, el := range v {
			out = append(out, flattenObjects(el)...)
		}
		return out
	case map[string]any:
		if graph, ok := v["@graph"]; ok {
			return flattenObjects(graph)
		}
		return []map[string]any{v}
	default:
		return nil
	}
}

func hasType(obj map[string]any, want string) bool {
	switch t := obj["@type"].(type) {
	case string:
		return t == want
	case []any:
		for _, el := range t {
			if s, ok := el.(string); ok && s == want {
				return true
			}
		}
	}
	return false
}

// lookupPath walks dotted keys; arrays along the way yield their first element.
func lookupPath(obj map[string]any, path string) (string, bool) {
	var cur any = obj
	for _, key := range strings.Split(path, ".") {
		cur = firstElement(cur)
		m, ok := cur.(map[string]any)
		if !ok {
			return "", false
		}
		if cur, ok = m[key]; !ok {
			return "", false
		}
	}

	switch v := firstElement(cur).(type) {
	case string:
		v = collapseSpace(v)
		return v, v != ""
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(v), true
	default:
		return "", false
	}
}

func firstElement(v any) any {
	if arr, ok := v.([]any); ok {
		if len(arr) == 0 {
			return nil
		}
		return arr[0]
	}
	return v
}
