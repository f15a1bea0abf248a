// Package fetch implements the two-tier article content recovery
// pipeline: a static HTML fetch with heuristic text extraction, and a
// headless-browser rendered fallback for script-heavy pages.
package fetch

import (
	"strings"

	"codeberg.org/readeck/go-readability/v2"
	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
)

// minReadabilityText guards against readability extracting only a
// title or metadata; shorter output falls back to paragraph scraping.
const minReadabilityText = 200

// ExtractArticleText converts raw article HTML into plain text
// paragraphs. Non-content elements (scripts, navigation, social
// widgets, comments) are removed before go-readability picks the main
// content; plain paragraph extraction and a strict tag-strip are the
// fallbacks when readability comes up short.
func ExtractArticleText(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}

	// Short-circuit if the payload is already plain text.
	if !strings.Contains(trimmed, "<") {
		return normalizeWhitespace(trimmed)
	}

	if cleaned := removeChrome(trimmed); cleaned != "" {
		trimmed = cleaned
	}

	article, err := readability.FromReader(strings.NewReader(trimmed), nil)
	if err == nil {
		var textBuf strings.Builder
		if err := article.RenderText(&textBuf); err == nil {
			text := strings.TrimSpace(textBuf.String())
			if len(text) >= minReadabilityText {
				var htmlBuf strings.Builder
				if err := article.RenderHTML(&htmlBuf); err == nil {
					if html := strings.TrimSpace(htmlBuf.String()); html != "" {
						return extractParagraphs(html)
					}
				}
				return normalizeWhitespace(text)
			}
		}
	}

	return extractParagraphs(trimmed)
}

// removeChrome strips elements that never carry article text so the
// readability pass has less boilerplate to score. Returns "" when the
// document cannot be parsed.
func removeChrome(raw string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return ""
	}

	doc.Find("head, script, style, noscript, title, aside, nav, header, footer").Remove()
	doc.Find("iframe, embed, object, video, audio, canvas").Remove()
	doc.Find("[class*='social'], [class*='share'], [id*='social'], [id*='share']").Remove()
	doc.Find("[class*='comment'], [id*='comment']").Remove()
	doc.Find("meta, link[rel='stylesheet'], link[rel='preload'], link[rel='prefetch']").Remove()

	html, err := doc.Html()
	if err != nil {
		return ""
	}
	return html
}

// extractParagraphs extracts text from HTML while preserving paragraph
// structure. Headers, paragraphs, code blocks and list items are taken
// in document groups, separated by blank lines.
func extractParagraphs(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return normalizeWhitespace(stripTags(html))
	}

	var paragraphs []string

	collect := func(i int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); text != "" {
			paragraphs = append(paragraphs, text)
		}
	}

	doc.Find("h1, h2, h3, h4, h5, h6").Each(collect)
	doc.Find("p").Each(collect)
	doc.Find("pre").Each(collect)
	doc.Find("li").Each(collect)

	// No structured content; settle for meaningful block elements.
	if len(paragraphs) == 0 {
		doc.Find("div, article, section").Each(func(i int, s *goquery.Selection) {
			if text := strings.TrimSpace(s.Text()); len(text) > 10 {
				paragraphs = append(paragraphs, text)
			}
		})
	}

	if len(paragraphs) == 0 {
		return normalizeWhitespace(stripTags(html))
	}

	return strings.Join(paragraphs, "\n\n")
}

// stripTags removes all HTML tags using bluemonday's strict policy.
func stripTags(raw string) string {
	return bluemonday.StrictPolicy().Sanitize(raw)
}

// normalizeWhitespace collapses runs of whitespace into single spaces.
func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// ExtractTitle extracts the article title from HTML content.
// Priority order: <title> tag, og:title meta tag, first <h1> tag.
func ExtractTitle(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(trimmed))
	if err != nil {
		return ""
	}

	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		return title
	}

	if ogTitle, ok := doc.Find("meta[property='og:title']").First().Attr("content"); ok {
		if title := strings.TrimSpace(ogTitle); title != "" {
			return title
		}
	}

	return strings.TrimSpace(doc.Find("h1").First().Text())
}
