package parser

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"TourScanner/internal/domain"
	"TourScanner/internal/scanner"
)

// SelectorExtractor applies CSS selector rulesets to HTML pages.
type SelectorExtractor struct{}

var _ scanner.Strategy = SelectorExtractor{}

// NewSelectorExtractor returns the CSS selector strategy.
func NewSelectorExtractor() SelectorExtractor {
	return SelectorExtractor{}
}

// Name identifies the strategy inside the registry.
func (SelectorExtractor) Name() string {
	return "selectors"
}

// Validate checks the item selector and every field rule.
func (SelectorExtractor) Validate(rs domain.Ruleset) error {
	if strings.TrimSpace(rs.Items.CSS) == "" {
		return fmt.Errorf("ruleset: items.css is required")
	}
	if len(rs.Items.Fields) == 0 {
		return fmt.Errorf("ruleset: items.fields is empty")
	}
	for name, rule := range rs.Items.Fields {
		if err := validateFieldType(name, rule); err != nil {
			return err
		}
	}
	return nil
}

// Extract returns one raw item per element matched by items.css. Fields that
// match nothing are left out of the item.
func (e SelectorExtractor) Extract(raw []byte, rs domain.Ruleset) ([]domain.RawItem, error) {
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

	matches := doc.Find(rs.Items.CSS)
	if matches.Length() == 0 {
		return emptyResult(doc.Text(), rs, fmt.Sprintf("selector %q matched nothing", rs.Items.CSS))
	}

	base := parseBase(rs.BaseURL)
	items := make([]domain.RawItem, 0, matches.Length())
	matches.Each(func(_ int, sel *goquery.Selection) {
		item := domain.RawItem{}
		for name, rule := range rs.Items.Fields {
			if value, ok := readField(sel, rule, base); ok {
				item[name] = value
			}
		}
		items = append(items, item)
	})

	return items, nil
}

func readField(sel *goquery.Selection, rule domain.FieldRule, base *url.URL) (string, bool) {
	target := sel
	if rule.CSS != "" {
		target = sel.Find(rule.CSS).First()
	}
	if target.Length() == 0 {
		return "", false
	}

	var value string
	switch rule.Type {
	case domain.FieldLink:
		href, ok := target.Attr("href")
		if !ok {
			return "", false
		}
		value = resolveLink(base, strings.TrimSpace(href))
	case domain.FieldAttribute:
		attr, ok := target.Attr(rule.Attribute)
		if !ok {
			return "", false
		}
		value = strings.TrimSpace(attr)
	default:
		value = collapseSpace(target.Text())
	}

	return value, value != ""
}

// emptyResult separates "the page says there is nothing" from "the page no
// longer looks like the ruleset expects".
func emptyResult(pageText string, rs domain.Ruleset, mismatch string) ([]domain.RawItem, error) {
	if rs.Items.EmptyText == "" || strings.Contains(pageText, rs.Items.EmptyText) {
		return []domain.RawItem{}, nil
	}
	return nil, &domain.ExtractionError{Reason: mismatch}
}

func validateFieldType(name string, rule domain.FieldRule) error {
	switch rule.Type {
	case "", domain.FieldText, domain.FieldLink:
	case domain.FieldAttribute:
		if rule.Attribute == "" {
			return fmt.Errorf("ruleset: field %s needs an attribute name", name)
		}
	default:
		return fmt.Errorf("ruleset: field %s has unknown type %q", name, rule.Type)
	}
	return nil
}

func parseBase(raw string) *url.URL {
	if raw == "" {
		return nil
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil
	}
	return base
}

func resolveLink(base *url.URL, href string) string {
	if base == nil || href == "" {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
