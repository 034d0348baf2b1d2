package datasource

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"github.com/ternarybob/arbor"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/unicode/norm"

	"github.com/seenimoa/marketbrief/pkg/models"
)

// DefaultMaxHeadlines caps headlines per source when neither the source nor
// the scraper sets a limit.
const DefaultMaxHeadlines = 5

// PageRenderer returns the rendered HTML of a page. It is used for
// "browser" sources whose headlines are built client-side.
type PageRenderer interface {
	RenderHTML(ctx context.Context, url string) (string, error)
}

// HeadlineScraper extracts headline text from configured news sources.
type HeadlineScraper struct {
	client       *http.Client
	userAgent    string
	maxHeadlines int
	renderer     PageRenderer // nil = browser sources are fetched with a plain GET
	parser       *gofeed.Parser
	logger       arbor.ILogger
}

// NewHeadlineScraper creates a scraper. maxHeadlines <= 0 disables the cap.
func NewHeadlineScraper(client *http.Client, userAgent string, maxHeadlines int, renderer PageRenderer, logger arbor.ILogger) *HeadlineScraper {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &HeadlineScraper{
		client:       client,
		userAgent:    userAgent,
		maxHeadlines: maxHeadlines,
		renderer:     renderer,
		parser:       gofeed.NewParser(),
		logger:       logger,
	}
}

// Scrape returns the headlines of one source in document order. Failures are
// logged and yield an empty list.
func (s *HeadlineScraper) Scrape(ctx context.Context, source models.NewsSource) []string {
	headlines, err := s.scrape(ctx, source)
	if err != nil {
		s.logger.Warn().
			Str("source", source.Name).
			Str("url", source.URL).
			Err(fmt.Errorf("%w: %w", ErrSourceUnavailable, err)).
			Msg("Headline scrape failed")
		return []string{}
	}

	headlines = capHeadlines(headlines, s.limitFor(source))
	s.logger.Debug().Str("source", source.Name).Int("headlines", len(headlines)).Msg("Scraped headlines")
	return headlines
}

// ScrapeAll scrapes every source concurrently. Each source appears in the
// result, with an empty list if it failed.
func (s *HeadlineScraper) ScrapeAll(ctx context.Context, sources []models.NewsSource) map[string][]string {
	var (
		mu  sync.Mutex
		out = make(map[string][]string, len(sources))
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, src := range sources {
		g.Go(func() error {
			headlines := s.Scrape(gctx, src)
			mu.Lock()
			out[src.Name] = headlines
			mu.Unlock()
			return nil // non-fatal
		})
	}
	_ = g.Wait()

	return out
}

func (s *HeadlineScraper) scrape(ctx context.Context, source models.NewsSource) ([]string, error) {
	switch source.EffectiveKind() {
	case models.SourceRSS:
		return s.scrapeFeed(ctx, source)
	case models.SourceBrowser:
		if s.renderer != nil {
			html, err := s.renderer.RenderHTML(ctx, source.URL)
			if err != nil {
				return nil, err
			}
			return ExtractText(strings.NewReader(html), source.Selector, source.ClassFilter)
		}
		s.logger.Debug().Str("source", source.Name).Msg("Browser disabled, using plain GET")
	}
	return s.scrapeHTML(ctx, source)
}

func (s *HeadlineScraper) scrapeHTML(ctx context.Context, source models.NewsSource) ([]string, error) {
	body, _, err := doGet(ctx, s.client, source.URL, map[string]string{
		"User-Agent": s.userAgent,
		"Accept":     "text/html,application/xhtml+xml",
	})
	if err != nil {
		return nil, err
	}
	defer body.Close()

	return ExtractText(body, source.Selector, source.ClassFilter)
}

func (s *HeadlineScraper) scrapeFeed(ctx context.Context, source models.NewsSource) ([]string, error) {
	body, _, err := doGet(ctx, s.client, source.URL, map[string]string{
		"User-Agent": s.userAgent,
		"Accept":     "application/rss+xml, application/atom+xml, application/xml, text/xml",
	})
	if err != nil {
		return nil, err
	}
	defer body.Close()

	feed, err := s.parser.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", source.Name, err)
	}

	titles := make([]string, 0, len(feed.Items))
	for _, item := range feed.Items {
		if t := cleanText(item.Title); t != "" {
			titles = append(titles, t)
		}
	}
	return titles, nil
}

func (s *HeadlineScraper) limitFor(source models.NewsSource) int {
	if source.MaxHeadlines != 0 {
		return source.MaxHeadlines
	}
	return s.maxHeadlines
}

// ExtractText returns the visible text of every element matching selector,
// in document order. With classFilter set, only elements carrying that class
// are kept. Empty texts are dropped.
func ExtractText(body io.Reader, selector, classFilter string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var out []string
	doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
		if classFilter != "" && !sel.HasClass(classFilter) {
			return
		}
		if t := cleanText(sel.Text()); t != "" {
			out = append(out, t)
		}
	})
	return out, nil
}

// cleanText NFKC-normalizes s and collapses runs of whitespace.
func cleanText(s string) string {
	return strings.Join(strings.Fields(norm.NFKC.String(s)), " ")
}

// capHeadlines keeps the first n entries; n <= 0 keeps all.
func capHeadlines(headlines []string, n int) []string {
	if headlines == nil {
		return []string{}
	}
	if n > 0 && len(headlines) > n {
		return headlines[:n]
	}
	return headlines
}
