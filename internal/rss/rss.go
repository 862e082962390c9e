// Package rss loads the feed list and turns raw RSS entries into pipeline
// items. One broken feed never stops a cycle.
package rss

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"gopkg.in/yaml.v3"

	"espanews/internal/logger"
	"espanews/internal/metrics"
	"espanews/internal/model"
)

const maxFeedBody = 5 * 1024 * 1024

// Source is one configured feed.
type Source struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// FeedsConfig is the YAML config structure:
//
// feeds:
//   - name: elpais
//     url: https://...
type FeedsConfig struct {
	Feeds []Source `yaml:"feeds"`
}

// LoadFeeds reads the feed list from a YAML file.
func LoadFeeds(path string) ([]Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg FeedsConfig
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse feeds config: %w", err)
	}
	return cfg.Feeds, nil
}

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Fetcher downloads and parses feeds, keeping only recent items.
type Fetcher struct {
	client HTTPClient
	maxAge time.Duration

	now func() time.Time
}

// NewFetcher builds a fetcher. maxAge is the recency window: items published
// earlier than now-maxAge are dropped before any further processing.
func NewFetcher(client HTTPClient, maxAge time.Duration) *Fetcher {
	return &Fetcher{
		client: client,
		maxAge: maxAge,
		now:    time.Now,
	}
}

// FetchAll downloads every source and returns the recent items across all of
// them. A failing source is logged and skipped.
func (f *Fetcher) FetchAll(ctx context.Context, sources []Source) []model.Item {
	var all []model.Item
	ok := 0

	for _, src := range sources {
		items, err := f.fetch(ctx, src)
		if err != nil {
			logger.Error("feed fetch failed", "source", src.Name, "url", src.URL, "error", err)
			continue
		}
		all = append(all, items...)
		ok++
		logger.Info("feed loaded", "source", src.Name, "items", len(items))
	}

	logger.Info("feeds processed", "ok", ok, "total", len(sources), "items", len(all))
	metrics.Global.AddItemsFetched(len(all))
	return all
}

func (f *Fetcher) fetch(ctx context.Context, src Source) ([]model.Item, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "EspaNewsBot/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBody))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	feed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	cutoff := f.now().Add(-f.maxAge)
	var items []model.Item
	for _, it := range feed.Items {
		if it.Link == "" {
			continue
		}
		item := convertItem(it, src.Name)
		// Undated items pass: the URL store keeps them from repeating.
		if !item.Published.IsZero() && item.Published.Before(cutoff) {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

func convertItem(it *gofeed.Item, source string) model.Item {
	item := model.Item{
		Title:       strings.TrimSpace(it.Title),
		Link:        it.Link,
		Description: htmlToText(it.Description),
		Categories:  it.Categories,
		Image:       itemImage(it),
		Source:      source,
	}
	if it.PublishedParsed != nil {
		item.Published = *it.PublishedParsed
	} else if it.UpdatedParsed != nil {
		item.Published = *it.UpdatedParsed
	}
	if len(it.Authors) > 0 {
		item.Author = it.Authors[0].Name
	}
	return item
}

// itemImage finds a usable image URL: the feed-level image element first,
// then image enclosures, then media extensions, then an <img> inside the
// HTML description.
func itemImage(it *gofeed.Item) string {
	if it.Image != nil && it.Image.URL != "" {
		return it.Image.URL
	}

	for _, enc := range it.Enclosures {
		if strings.HasPrefix(enc.Type, "image/") && enc.URL != "" {
			return enc.URL
		}
	}

	if media, ok := it.Extensions["media"]; ok {
		for _, key := range []string{"content", "thumbnail"} {
			for _, ext := range media[key] {
				if url := ext.Attrs["url"]; url != "" {
					return url
				}
			}
		}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(it.Description))
	if err != nil {
		return ""
	}
	src, _ := doc.Find("img").First().Attr("src")
	return src
}

// htmlToText strips markup from a feed description, leaving plain text.
func htmlToText(s string) string {
	if !strings.Contains(s, "<") {
		return strings.TrimSpace(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(strings.Join(strings.Fields(doc.Text()), " "))
}
