package retrieval

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/PuerkitoBio/goquery"
)

var (
	reSpaces   = regexp.MustCompile(`[ \t]+`)
	reNewlines = regexp.MustCompile(`\n{3,}`)
)

// Loader fetches web pages and reduces them to plain text suitable for
// chunking and embedding.
type Loader struct {
	client *http.Client
}

// NewLoader creates a page loader. A nil client gets a sane default.
func NewLoader(client *http.Client) *Loader {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Loader{client: client}
}

// Load fetches one URL and extracts its readable text.
func (l *Loader) Load(ctx context.Context, url string) (Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Document{}, fmt.Errorf("build request for %s: %w", url, err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return Document{}, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Document{}, fmt.Errorf("fetch %s: unexpected status %d", url, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return Document{}, fmt.Errorf("parse %s: %w", url, err)
	}

	return Document{
		Content: extractText(doc),
		Source:  url,
	}, nil
}

// extractText keeps headings, paragraphs, list items, and code blocks, in
// document order. Navigation chrome, scripts, and styles are dropped by
// simply never selecting them.
func extractText(doc *goquery.Document) string {
	var out []string
	doc.Find("h1,h2,h3,h4,p,li,pre,blockquote").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text == "" {
			return
		}
		switch goquery.NodeName(s) {
		case "li":
			out = append(out, "- "+text)
		case "pre":
			out = append(out, text)
		default:
			out = append(out, text)
		}
	})
	return normalize(strings.Join(out, "\n\n"))
}

// normalize strips control characters and collapses runs of whitespace.
func normalize(text string) string {
	cleaned := strings.Map(func(r rune) rune {
		if r == '\n' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, text)

	cleaned = reSpaces.ReplaceAllString(cleaned, " ")
	cleaned = reNewlines.ReplaceAllString(cleaned, "\n\n")
	return strings.TrimSpace(cleaned)
}
