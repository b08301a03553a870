package avm

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// requiredSections are the report sections a rendered document must carry.
var requiredSections = []string{
	"property-info",
	"valuation",
	"comparables",
	"market",
	"neighborhood",
	"disclaimers",
}

// SelfCheck parses the rendered HTML and verifies it is a complete report
// before it is handed to the browser for PDF conversion. It catches template
// regressions early, when the HTML is still inspectable.
func SelfCheck(html string, report *Report) error {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return fmt.Errorf("AVM self-check could not parse HTML: %w", err)
	}

	for _, section := range requiredSections {
		if doc.Find(".section."+section).Length() == 0 {
			return fmt.Errorf("AVM report is missing the %s section", section)
		}
	}

	value := strings.TrimSpace(doc.Find(".value-highlight").First().Text())
	if value == "" || value == "$" {
		return fmt.Errorf("AVM report has an empty estimated value")
	}

	rows := doc.Find(".comparables tbody tr").Length()
	if rows != len(report.Comparables) {
		return fmt.Errorf("AVM report renders %d comparable rows, expected %d", rows, len(report.Comparables))
	}
	return nil
}
