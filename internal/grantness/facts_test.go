package grantness_test

import (
	"strings"
	"testing"

	"github.com/jonesrussell/grantpull/internal/grantness"
)

func TestExtractFacts(t *testing.T) {
	html := `<html><head>
<title>Victim Services Grant Program</title>
<meta name="description" content="Support for survivors.">
<meta property="og:site_name" content="Department of Children and Families">
</head><body>
<nav>Home | Grants | Contact</nav>
<h1>Victim Services Grant Program</h1>
<h2>Eligibility</h2>
<p>Nonprofit organizations providing direct services.</p>
<a href="/grants/apply">Apply Now</a>
<script>trackPageView();</script>
<footer>Copyright 2025</footer>
</body></html>`

	facts, err := grantness.ExtractFacts("https://example.gov/grants/victim-services", html)
	if err != nil {
		t.Fatalf("ExtractFacts() unexpected error: %v", err)
	}

	if facts.Title != "Victim Services Grant Program" {
		t.Errorf("Title = %q", facts.Title)
	}
	if facts.MetaDescription != "Support for survivors." {
		t.Errorf("MetaDescription = %q", facts.MetaDescription)
	}
	if facts.OGSiteName != "Department of Children and Families" {
		t.Errorf("OGSiteName = %q", facts.OGSiteName)
	}
	if len(facts.Headings) != 2 {
		t.Errorf("Headings = %v, want the h1 and h2", facts.Headings)
	}
	if len(facts.Links) != 1 || facts.Links[0].Href != "/grants/apply" || facts.Links[0].Text != "Apply Now" {
		t.Errorf("Links = %+v", facts.Links)
	}

	if !strings.Contains(facts.BodyText, "Nonprofit organizations") {
		t.Errorf("BodyText missing paragraph content: %q", facts.BodyText)
	}
	for _, excluded := range []string{"trackPageView", "Copyright 2025", "Home | Grants"} {
		if strings.Contains(facts.BodyText, excluded) {
			t.Errorf("BodyText contains non-content text %q", excluded)
		}
	}
}

func TestExtractFactsTitleFallbacks(t *testing.T) {
	ogTitle := `<html><head><title>Ignored</title>
<meta property="og:title" content="Preferred Title"></head><body></body></html>`
	facts, err := grantness.ExtractFacts("https://example.gov/a", ogTitle)
	if err != nil {
		t.Fatalf("ExtractFacts() unexpected error: %v", err)
	}
	if facts.Title != "Preferred Title" {
		t.Errorf("Title = %q, want og:title to win", facts.Title)
	}

	h1Only := `<html><body><h1>Heading Title</h1></body></html>`
	facts, err = grantness.ExtractFacts("https://example.gov/b", h1Only)
	if err != nil {
		t.Fatalf("ExtractFacts() unexpected error: %v", err)
	}
	if facts.Title != "Heading Title" {
		t.Errorf("Title = %q, want h1 fallback", facts.Title)
	}
}
