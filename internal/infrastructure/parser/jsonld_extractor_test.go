package parser

import (
	"errors"
	"testing"

	"TourScanner/internal/domain"
)

const jsonldPage = `
<html><head>
<script type="application/ld+json">{ broken </script>
<script type="application/ld+json">
[
  {"@type": "MusicEvent", "name": "Muse at Olympiastadion",
   "performer": [{"@type": "MusicGroup", "name": "Muse"}],
   "location": {"@type": "Place", "name": "Olympiastadion", "address": {"addressLocality": "Berlin"}},
   "startDate": "2025-06-15T20:00:00", "url": "/e/2002"},
  {"@type": "Organization", "name": "Bandsintown"}
]
</script>
<script type="application/ld+json">
{"@graph": [{"@type": ["Event", "MusicEvent"], "performer": {"name": "Blur"},
  "location": {"name": "Wembley"}, "startDate": "2025-07-02"}]}
</script>
</head><body></body></html>`

func jsonldRuleset() domain.Ruleset {
	return domain.Ruleset{
		BaseURL: "https://www.bandsintown.com/",
		Items: domain.ItemRule{
			Type: "MusicEvent",
			Fields: map[string]domain.FieldRule{
				"artist":   {Path: "performer.name"},
				"location": {Path: "location.name"},
				"city":     {Path: "location.address.addressLocality"},
				"date":     {Path: "startDate"},
				"url":      {Path: "url", Type: domain.FieldLink},
			},
		},
	}
}

func TestJSONLDExtractorExtract(t *testing.T) {
	t.Parallel()

	items, err := NewJSONLDExtractor().Extract([]byte(jsonldPage), jsonldRuleset())
	if err != nil {
		t.Fatalf("Extract error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d: %#v", len(items), items)
	}

	muse := items[0]
	if muse["artist"] != "Muse" || muse["location"] != "Olympiastadion" || muse["city"] != "Berlin" {
		t.Fatalf("unexpected first item: %#v", muse)
	}
	if muse["url"] != "https://www.bandsintown.com/e/2002" {
		t.Fatalf("unexpected url: %q", muse["url"])
	}

	blur := items[1]
	if blur["artist"] != "Blur" || blur["date"] != "2025-07-02" {
		t.Fatalf("unexpected second item: %#v", blur)
	}
	if _, ok := blur["url"]; ok {
		t.Fatalf("expected missing url to be absent")
	}
}

func TestJSONLDExtractorFailures(t *testing.T) {
	t.Parallel()

	ex := NewJSONLDExtractor()

	broken := `<script type="application/ld+json">{ nope</script>`
	if _, err := ex.Extract([]byte(broken), jsonldRuleset()); !errors.Is(err, domain.ErrExtraction) {
		t.Fatalf("expected extraction error, got %v", err)
	}

	rs := jsonldRuleset()
	rs.Items.EmptyText = "No upcoming events"
	if _, err := ex.Extract([]byte(`<p>Just a page</p>`), rs); !errors.Is(err, domain.ErrExtraction) {
		t.Fatalf("expected mismatch error, got %v", err)
	}

	items, err := ex.Extract([]byte(`<p>No upcoming events</p>`), rs)
	if err != nil || len(items) != 0 {
		t.Fatalf("expected no items without error, got %v %v", items, err)
	}

	noPath := jsonldRuleset()
	noPath.Items.Fields["date"] = domain.FieldRule{}
	if err := ex.Validate(noPath); err == nil {
		t.Fatalf("expected field without path to be rejected")
	}
}
