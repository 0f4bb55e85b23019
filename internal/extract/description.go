package extract

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// descriptionSelectors lists content regions from most to least specific
var descriptionSelectors = []string{
	`[data-testid="event-description"]`,
	`[data-event-label="description"]`,
	`.event-description`,
	`[class*="description"]`,
	`div[class*="wysiwyg"]`,
	`div[class*="event-content"]`,
	`div[class*="eventDetails"]`,
	`section[aria-labelledby*="details"]`,
	`#event-details-section`,
	`div[data-testid="rich-text-content"]`,
	`main section div[class*="break-words"]`,
	`div[class*="formatted-text"]`,
	`div.w-full.break-words`,
}

func descriptionChain(opts Options) Chain {
	strategies := make([]Strategy, 0, len(descriptionSelectors)+1)
	for _, sel := range descriptionSelectors {
		strategies = append(strategies, Strategy{Name: sel, Run: regionText(sel)})
	}
	strategies = append(strategies, Strategy{Name: "block-scan", Run: blockScan(opts)})

	return Chain{
		Strategies: strategies,
		Accept:     minLength(opts.DescriptionMin),
	}
}

// regionText reads the first element matching selector, preferring its paragraphs
// over the raw container text
func regionText(selector string) func(*goquery.Document) (Candidate, bool) {
	return func(doc *goquery.Document) (Candidate, bool) {
		region := doc.Find(selector).First()
		if region.Length() == 0 {
			return Candidate{}, false
		}

		var parts []string
		region.Find("p").Each(func(_ int, p *goquery.Selection) {
			if text := strings.TrimSpace(p.Text()); text != "" {
				parts = append(parts, text)
			}
		})
		if len(parts) > 0 {
			return Candidate{Value: collapse(strings.Join(parts, " "))}, true
		}
		return Candidate{Value: collapse(region.Text())}, true
	}
}

// blockScan looks for any block whose text length is plausible for a description,
// contains no boilerplate and mentions the site keyword
func blockScan(opts Options) func(*goquery.Document) (Candidate, bool) {
	keyword := strings.ToLower(opts.SiteKeyword)

	return func(doc *goquery.Document) (Candidate, bool) {
		var found string
		doc.Find("div, section, article").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			text := strings.TrimSpace(s.Text())
			n := utf8.RuneCountInString(text)
			if n <= opts.FallbackMin || n >= opts.FallbackMax {
				return true
			}
			for _, phrase := range opts.Boilerplate {
				if phrase != "" && strings.Contains(text, phrase) {
					return true
				}
			}
			if keyword != "" && !strings.Contains(strings.ToLower(text), keyword) {
				return true
			}
			found = collapse(text)
			return false
		})
		if found == "" {
			return Candidate{}, false
		}
		return Candidate{Value: found}, true
	}
}
