package crawler

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// boilerplateSelectors are elements whose text never belongs in the index.
var boilerplateSelectors = []string{
	"script", "style", "noscript", "template",
	"nav", "header", "footer", "aside",
	".sidebar", ".toc", ".breadcrumbs", ".cookie-banner",
}

// ExtractPage pulls the title and readable text out of a parsed page. Text
// is taken from the main content region when one is marked up, otherwise
// from the whole body with boilerplate removed.
func ExtractPage(dom *goquery.Selection) (title, text string) {
	title = strings.TrimSpace(dom.Find("title").First().Text())
	if h1 := strings.TrimSpace(dom.Find("h1").First().Text()); title == "" && h1 != "" {
		title = h1
	}

	content := dom.Find("main, article, [role=main]").First()
	if content.Length() == 0 {
		content = dom.Find("body").First()
	}
	if content.Length() == 0 {
		content = dom
	}

	cleaned := content.Clone()
	cleaned.Find(strings.Join(boilerplateSelectors, ", ")).Remove()

	return title, collapseWhitespace(cleaned.Text())
}

// collapseWhitespace folds runs of whitespace into single spaces while
// keeping paragraph breaks as newlines.
func collapseWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	lines := strings.Split(s, "\n")
	blank := true
	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			if !blank {
				b.WriteByte('\n')
				blank = true
			}
			continue
		}
		if !blank {
			b.WriteByte(' ')
		}
		b.WriteString(strings.Join(fields, " "))
		blank = false
	}
	return strings.TrimSpace(b.String())
}
