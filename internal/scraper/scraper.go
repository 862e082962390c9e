// Package scraper pulls full article text from a news site when the feed
// only carries a teaser. Extraction is best effort: on failure the pipeline
// falls back to the feed description.
package scraper

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"espanews/internal/logger"
)

// maxArticleRunes caps extracted text; anything longer is cut on a paragraph
// boundary.
const maxArticleRunes = 8000

// minParagraphRunes filters out captions, bylines, and widget leftovers.
const minParagraphRunes = 25

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Scraper downloads article pages and extracts their body text.
type Scraper struct {
	client HTTPClient
}

func New(client HTTPClient) *Scraper {
	return &Scraper{client: client}
}

// Site-specific selectors tried before the generic ones. Spanish outlets
// mark article bodies fairly consistently, but each has its own class names.
var siteSelectors = map[string][]string{
	"elpais.com": {
		"div[data-dtm-region='articulo_cuerpo'] p",
		".a_c p",
		"article p",
	},
	"elmundo.es": {
		".ue-c-article__body p",
		"div[data-section='articleBody'] p",
		"article p",
	},
	"abc.es": {
		".voc-d p",
		".cuerpo-texto p",
		"article p",
	},
}

var genericSelectors = []string{
	"article p",
	".article-body p",
	".post-content p",
	".entry-content p",
	"main p",
	"#content p",
	"p",
}

// Boilerplate lines Spanish news pages append to article bodies.
var junkIndicators = []string{
	"suscríbete",
	"hazte premium",
	"newsletter",
	"lee también",
	"te puede interesar",
	"más información",
	"síguenos en",
	"comparte este artículo",
	"todos los derechos reservados",
	"cookie",
	"publicidad",
}

// Extract downloads the page at url and returns the article body text.
func (s *Scraper) Extract(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "EspaNewsBot/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("load page: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	doc.Find("script, style, nav, header, footer, aside, figure, iframe").Remove()

	content := extractBody(doc, url)
	if content == "" {
		return "", fmt.Errorf("no article body found")
	}
	return content, nil
}

// ExtractOrFallback tries the full article and falls back to the provided
// description on any failure.
func (s *Scraper) ExtractOrFallback(ctx context.Context, url, description string) string {
	content, err := s.Extract(ctx, url)
	if err != nil {
		logger.Debug("article extraction failed, using feed description", "url", url, "error", err)
		return description
	}
	logger.Debug("article extracted", "url", url, "chars", len(content))
	return content
}

func extractBody(doc *goquery.Document, url string) string {
	for site, selectors := range siteSelectors {
		if strings.Contains(url, site) {
			if text := collectParagraphs(doc, selectors); text != "" {
				return text
			}
			break
		}
	}
	return collectParagraphs(doc, genericSelectors)
}

// collectParagraphs walks the selector list and takes the first one that
// yields real paragraphs.
func collectParagraphs(doc *goquery.Document, selectors []string) string {
	for _, selector := range selectors {
		var paragraphs []string
		doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
			text := strings.TrimSpace(sel.Text())
			if utf8.RuneCountInString(text) < minParagraphRunes {
				return
			}
			if isJunk(text) {
				return
			}
			paragraphs = append(paragraphs, strings.Join(strings.Fields(text), " "))
		})
		if len(paragraphs) >= 2 {
			return capParagraphs(paragraphs)
		}
	}
	return ""
}

func isJunk(line string) bool {
	lower := strings.ToLower(line)
	for _, indicator := range junkIndicators {
		if strings.Contains(lower, indicator) {
			return true
		}
	}
	return false
}

// capParagraphs joins paragraphs up to the rune limit, never splitting one.
func capParagraphs(paragraphs []string) string {
	var out []string
	total := 0
	for _, p := range paragraphs {
		n := utf8.RuneCountInString(p)
		if total+n > maxArticleRunes && len(out) > 0 {
			break
		}
		out = append(out, p)
		total += n + 2
	}
	return strings.Join(out, "\n\n")
}
