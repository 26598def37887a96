package crawler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/andybalholm/brotli"
	colly "github.com/gocolly/colly/v2"
	"golang.org/x/net/html/charset"

	"github.com/runwhen-contrib/codecollection-registry-sub002/internal/logger"
	"github.com/runwhen-contrib/codecollection-registry-sub002/models"
)

// Config describes one docs-site crawl.
type Config struct {
	// Site is the start URL; the crawl stays on its host and under its path.
	Site     string
	MaxPages int
	TextCap  int
	Timeout  time.Duration
	Delay    time.Duration
}

// PageSink receives extracted pages; satisfied by *registry.Repository.
type PageSink interface {
	UpsertDocPage(ctx context.Context, page *models.DocumentationPage) error
}

// Crawler fetches documentation pages and stores their extracted text for
// indexing. It never executes JavaScript; the supported docs sites are
// static HTML.
type Crawler struct {
	sink PageSink
}

func New(sink PageSink) *Crawler {
	return &Crawler{sink: sink}
}

// normalizeURL canonicalizes a URL for duplicate detection: no fragment, no
// trailing slash, lowercase scheme and host, default ports stripped.
func normalizeURL(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	parsed.Fragment = ""

	path := parsed.Path
	if path == "" {
		path = "/"
	} else if path != "/" {
		path = strings.TrimSuffix(path, "/")
		if path == "" {
			path = "/"
		}
	}
	parsed.Path = path

	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = strings.ToLower(parsed.Host)
	if parsed.Port() == "80" && parsed.Scheme == "http" {
		parsed.Host = parsed.Hostname()
	}
	if parsed.Port() == "443" && parsed.Scheme == "https" {
		parsed.Host = parsed.Hostname()
	}
	return parsed.String(), nil
}

// CrawlSite walks one docs site breadth-first and upserts every page with
// extractable text. It returns the number of pages stored.
func (cw *Crawler) CrawlSite(ctx context.Context, cfg Config) (int, error) {
	parsed, err := url.Parse(cfg.Site)
	if err != nil {
		return 0, fmt.Errorf("invalid site URL: %w", err)
	}
	if parsed.Scheme == "" {
		parsed.Scheme = "https"
	}
	start, err := normalizeURL(parsed.String())
	if err != nil {
		return 0, fmt.Errorf("invalid site URL: %w", err)
	}

	host := strings.ToLower(parsed.Hostname())
	pathPrefix := parsed.Path
	if pathPrefix == "" {
		pathPrefix = "/"
	}

	maxPages := cfg.MaxPages
	if maxPages <= 0 {
		maxPages = 200
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	delay := cfg.Delay
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}

	c := colly.NewCollector(
		colly.Async(true),
		colly.MaxDepth(4),
		colly.AllowedDomains(host, "www."+host),
	)
	c.SetRequestTimeout(timeout)
	c.UserAgent = "codecollection-registry/1.0 (+docs indexer)"
	c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: 2,
		Delay:       delay,
	})

	var (
		stored  atomic.Int64
		visited sync.Map
		errsMu  sync.Mutex
		lastErr error
	)

	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "text/html,application/xhtml+xml")
		r.Headers.Set("Accept-Language", "en")
	})

	// Normalize the body before parsing: decompress brotli, which the
	// standard transport does not handle, and transcode to UTF-8.
	c.OnResponse(func(r *colly.Response) {
		contentType := r.Headers.Get("Content-Type")
		if contentType != "" && !strings.Contains(contentType, "text/html") &&
			!strings.Contains(contentType, "application/xhtml+xml") {
			return
		}
		body := io.Reader(bytes.NewReader(r.Body))
		if strings.Contains(r.Headers.Get("Content-Encoding"), "br") {
			if decompressed, err := io.ReadAll(brotli.NewReader(body)); err == nil {
				r.Body = decompressed
				body = bytes.NewReader(decompressed)
			}
		}
		if utf8Reader, err := charset.NewReader(body, contentType); err == nil {
			if decoded, err := io.ReadAll(utf8Reader); err == nil && len(decoded) > 0 {
				r.Body = decoded
			}
		}
	})

	c.OnHTML("html", func(e *colly.HTMLElement) {
		pageURL, err := normalizeURL(e.Request.URL.String())
		if err != nil {
			return
		}
		if _, dup := visited.LoadOrStore(pageURL, true); dup {
			return
		}
		if stored.Load() >= int64(maxPages) {
			return
		}

		title, text := ExtractPage(e.DOM)
		if strings.TrimSpace(text) == "" {
			return
		}
		text = capText(text, cfg.TextCap)

		page := &models.DocumentationPage{
			URL:   pageURL,
			Site:  host,
			Title: title,
			Text:  text,
		}
		if err := cw.sink.UpsertDocPage(ctx, page); err != nil {
			errsMu.Lock()
			lastErr = err
			errsMu.Unlock()
			logger.Error("storing page failed", "url", pageURL, "error", err)
			return
		}
		stored.Add(1)
	})

	c.OnHTML("a[href]", func(e *colly.HTMLElement) {
		if stored.Load() >= int64(maxPages) {
			return
		}
		link := e.Request.AbsoluteURL(e.Attr("href"))
		normalized, err := normalizeURL(link)
		if err != nil {
			return
		}
		target, err := url.Parse(normalized)
		if err != nil || !strings.HasPrefix(target.Path, pathPrefix) {
			return
		}
		e.Request.Visit(normalized)
	})

	c.OnError(func(r *colly.Response, err error) {
		logger.Warn("fetch failed", "url", r.Request.URL.String(), "status", r.StatusCode, "error", err)
	})

	if err := c.Visit(start); err != nil {
		return 0, fmt.Errorf("visiting %s: %w", start, err)
	}
	c.Wait()

	count := int(stored.Load())
	if count == 0 && lastErr != nil {
		return 0, lastErr
	}
	logger.Info("site crawled", "site", host, "pages", count)
	return count, nil
}

func capText(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}
