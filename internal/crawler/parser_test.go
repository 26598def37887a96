package crawler

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func parseHTML(t *testing.T, html string) *goquery.Selection {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return doc.Selection
}

func TestExtractPagePrefersMainContent(t *testing.T) {
	dom := parseHTML(t, `<html><head><title>Writing Tasks</title></head><body>
		<nav>Home / Docs / Tasks</nav>
		<main><h1>Writing Tasks</h1><p>Tasks are the unit of automation.</p></main>
		<footer>Copyright</footer>
	</body></html>`)

	title, text := ExtractPage(dom)
	if title != "Writing Tasks" {
		t.Errorf("title = %q", title)
	}
	if !strings.Contains(text, "unit of automation") {
		t.Errorf("main content missing: %q", text)
	}
	if strings.Contains(text, "Copyright") || strings.Contains(text, "Home / Docs") {
		t.Errorf("boilerplate leaked into text: %q", text)
	}
}

func TestExtractPageFallsBackToBody(t *testing.T) {
	dom := parseHTML(t, `<html><body>
		<script>var x = 1;</script>
		<p>Plain page without main element.</p>
	</body></html>`)

	title, text := ExtractPage(dom)
	if title != "" {
		t.Errorf("expected empty title, got %q", title)
	}
	if text != "Plain page without main element." {
		t.Errorf("text = %q", text)
	}
}

func TestExtractPageTitleFromHeading(t *testing.T) {
	dom := parseHTML(t, `<html><body><main><h1>SLI Basics</h1><p>Body.</p></main></body></html>`)
	title, _ := ExtractPage(dom)
	if title != "SLI Basics" {
		t.Errorf("title = %q", title)
	}
}

func TestCollapseWhitespace(t *testing.T) {
	got := collapseWhitespace("  one   two \n\n\n three\n")
	if got != "one two\nthree" {
		t.Errorf("collapseWhitespace = %q", got)
	}
}

func TestNormalizeURL(t *testing.T) {
	cases := map[string]string{
		"HTTPS://Docs.Example.COM:443/guides/":   "https://docs.example.com/guides",
		"https://docs.example.com/guides#anchor": "https://docs.example.com/guides",
		"http://docs.example.com:80/":            "http://docs.example.com/",
	}
	for in, want := range cases {
		got, err := normalizeURL(in)
		if err != nil {
			t.Fatalf("normalizeURL(%q): %v", in, err)
		}
		if got != want {
			t.Errorf("normalizeURL(%q) = %q, want %q", in, got, want)
		}
	}
}
