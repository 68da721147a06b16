package notify

import (
	"fmt"
	"strings"

	"TourScanner/internal/domain"
)

// FormatDigest renders records as the plain-text operator digest:
//
//	- Musical events on today Jun 14:
//
//	- Event 1:
//	    . Artist:  The Cure
//	    . Location:  Wembley Arena, London
//	    . Start Time:  Jun 14 - 7:30 PM
//	    . More info:  https://...
func FormatDigest(records []domain.Record) string {
	if len(records) == 0 {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "- Musical events on today %s:\n\n", headlineDate(records[0].OccursAt))
	for i, r := range records {
		fmt.Fprintf(&b, "\n- Event %d:\n", i+1)
		fmt.Fprintf(&b, "    . Artist:  %s\n", r.Subject)
		fmt.Fprintf(&b, "    . Location:  %s\n", r.Location)
		fmt.Fprintf(&b, "    . Start Time:  %s\n", r.OccursAt)
		if r.ReferenceURL != "" {
			fmt.Fprintf(&b, "    . More info:  %s\n", r.ReferenceURL)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// headlineDate keeps the day part of "Jun 14 - 7:30 PM" style values.
func headlineDate(occursAt string) string {
	day, _, _ := strings.Cut(occursAt, " - ")
	return strings.TrimSpace(day)
}
