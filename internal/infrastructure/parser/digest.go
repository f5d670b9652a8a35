package parser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"ArticlesPipeline/internal/domain"
	"ArticlesPipeline/internal/harvest"
	"ArticlesPipeline/internal/ports"
)

// DefaultDigestPattern matches Medium story links inside the daily digest mail.
const DefaultDigestPattern = `https://medium\.com/@[^/]+/.+`

// DigestHarvester pulls article links out of the newest e-mail digest.
type DigestHarvester struct {
	inbox  ports.Inbox
	logger *slog.Logger
}

var _ harvest.Harvester = (*DigestHarvester)(nil)

// NewDigestHarvester builds the e-mail strategy around an inbox.
func NewDigestHarvester(inbox ports.Inbox, log *slog.Logger) *DigestHarvester {
	return &DigestHarvester{inbox: inbox, logger: log}
}

// Name satisfies harvest.Harvester.
func (h *DigestHarvester) Name() string { return "digest" }

// Harvest reads the latest message matching req.Query and extracts matching links.
func (h *DigestHarvester) Harvest(ctx context.Context, req harvest.Request) ([]domain.Link, error) {
	if h.inbox == nil {
		return nil, errors.New("digest harvester: inbox is not configured")
	}

	pattern := req.Pattern
	if pattern == "" {
		pattern = DefaultDigestPattern
	}
	expr, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("digest source %s: pattern: %w", req.SourceName, err)
	}

	body, err := h.inbox.LatestHTML(ctx, req.Query)
	if err != nil {
		return nil, fmt.Errorf("digest source %s: %w", req.SourceName, err)
	}
	if body == "" {
		h.debug("digest empty", "source", req.SourceName, "query", req.Query)
		return nil, nil
	}

	urls, err := ExtractLinks(body, expr)
	if err != nil {
		return nil, fmt.Errorf("digest source %s: %w", req.SourceName, err)
	}

	label := req.Option("label", req.SourceName)
	links := make([]domain.Link, 0, len(urls))
	for _, u := range urls {
		links = append(links, domain.Link{URL: u, Source: label, Scrape: true})
	}

	h.debug("digest parsed", "source", req.SourceName, "links", len(links))
	return links, nil
}

// ExtractLinks returns the part of every a[href] that expr matches, in
// document order without duplicates. Redirect wrappers reduce to the
// link they carry.
func ExtractLinks(body string, expr *regexp.Regexp) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	seen := map[string]struct{}{}
	var out []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		link := expr.FindString(strings.TrimSpace(href))
		if link == "" {
			return
		}
		if _, dup := seen[link]; dup {
			return
		}
		seen[link] = struct{}{}
		out = append(out, link)
	})
	return out, nil
}

func (h *DigestHarvester) debug(msg string, args ...any) {
	if h.logger != nil {
		h.logger.Debug(msg, args...)
	}
}
