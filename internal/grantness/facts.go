// Package grantness decides whether a fetched page is a genuine, open,
// sufficiently specific funding opportunity, extracts its fields, and scores
// its relevance. Analysis is a pure function of the page inputs.
package grantness

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Link is one anchor found on the page.
type Link struct {
	Href string
	Text string
}

// PageFacts is the DOM-query result consumed by the pure stage and
// extraction functions. All text mining happens against this struct, never
// against the live document.
type PageFacts struct {
	URL             string
	Host            string
	Title           string
	MetaDescription string
	OGTitle         string
	OGDescription   string
	OGSiteName      string
	BodyText        string
	Headings        []string
	Links           []Link
}

// nonContentSelectors are removed before body text extraction.
const nonContentSelectors = "script, style, noscript, header, footer, nav, aside"

// ExtractFacts parses the HTML once and reduces it to the small facts struct.
func ExtractFacts(pageURL, html string) (*PageFacts, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}

	facts := &PageFacts{
		URL:             pageURL,
		MetaDescription: metaContent(doc, "description"),
		OGTitle:         metaContent(doc, "og:title"),
		OGDescription:   metaContent(doc, "og:description"),
		OGSiteName:      metaContent(doc, "og:site_name"),
	}

	facts.Title = extractTitle(doc, facts.OGTitle)

	doc.Find("h1, h2, h3, h4").Each(func(_ int, s *goquery.Selection) {
		if heading := collapseWhitespace(s.Text()); heading != "" {
			facts.Headings = append(facts.Headings, heading)
		}
	})

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		facts.Links = append(facts.Links, Link{
			Href: strings.TrimSpace(href),
			Text: collapseWhitespace(s.Text()),
		})
	})

	body := doc.Find("body")
	body.Find(nonContentSelectors).Remove()
	facts.BodyText = collapseWhitespace(body.Text())

	return facts, nil
}

// extractTitle tries og:title, then the title tag, then the first h1.
func extractTitle(doc *goquery.Document, ogTitle string) string {
	if ogTitle != "" {
		return ogTitle
	}
	if title := collapseWhitespace(doc.Find("title").First().Text()); title != "" {
		return title
	}
	return collapseWhitespace(doc.Find("h1").First().Text())
}

// metaContent reads a meta tag by property or name attribute.
func metaContent(doc *goquery.Document, key string) string {
	value := doc.Find(fmt.Sprintf("meta[property='%s']", key)).AttrOr("content", "")
	if value == "" {
		value = doc.Find(fmt.Sprintf("meta[name='%s']", key)).AttrOr("content", "")
	}
	return strings.TrimSpace(value)
}

// collapseWhitespace trims and collapses runs of whitespace to single spaces.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
