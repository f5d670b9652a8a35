// Package scraper renders article pages in a browser session and extracts
// their title and body.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"github.com/avast/retry-go"

	"ArticlesPipeline/internal/config"
	"ArticlesPipeline/internal/domain"
	"ArticlesPipeline/internal/ports"
)

// Sentinels re-exported so callers of the scraper can match on them.
var (
	ErrUnavailable   = domain.ErrUnavailable
	ErrUnknownLayout = domain.ErrUnknownLayout
)

// Scraper implements ports.PageScraper.
type Scraper struct {
	browser  ports.Browser
	resolver ports.URLResolver
	layouts  layoutSet
	cfg      config.ScraperConfig
	logger   *slog.Logger

	sleep  func(ctx context.Context, d time.Duration) error
	jitter func(n int64) int64
	now    func() time.Time
}

var _ ports.PageScraper = (*Scraper)(nil)

// New builds a scraper over a browser and resolver.
func New(browser ports.Browser, resolver ports.URLResolver, cfg config.ScraperConfig, log *slog.Logger) *Scraper {
	if cfg.MaxScrolls <= 0 {
		cfg.MaxScrolls = 10
	}
	if cfg.ExtractAttempts <= 0 {
		cfg.ExtractAttempts = 3
	}
	if cfg.MaxDelay < cfg.MinDelay {
		cfg.MaxDelay = cfg.MinDelay
	}
	return &Scraper{
		browser:  browser,
		resolver: resolver,
		layouts:  newLayoutSet(cfg.Layouts),
		cfg:      cfg,
		logger:   log,
		sleep:    sleepContext,
		jitter:   rand.Int63n,
		now:      time.Now,
	}
}

// Layout returns the layout a tag selects.
func (s *Scraper) Layout(tag string) (Layout, error) {
	l, ok := s.layouts.lookup(tag)
	if !ok {
		return Layout{}, fmt.Errorf("%w: %q", ErrUnknownLayout, tag)
	}
	return l, nil
}

// Scrape resolves, renders and extracts one article.
func (s *Scraper) Scrape(ctx context.Context, rawURL, tag string) (domain.Article, error) {
	layout, err := s.Layout(tag)
	if err != nil {
		return domain.Article{}, err
	}

	target := rawURL
	if s.resolver != nil {
		target = s.resolver.Resolve(ctx, rawURL)
	}

	if err := s.sleep(ctx, s.politeDelay()); err != nil {
		return domain.Article{}, err
	}

	sess, err := s.browser.NewSession(ctx)
	if err != nil {
		return domain.Article{}, fmt.Errorf("open browser session: %w", err)
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			s.debug("close session", "url", target, "error", cerr)
		}
	}()

	if err := sess.Navigate(ctx, target); err != nil {
		return domain.Article{}, unavailable("navigate", err)
	}

	if layout.Scroll {
		if err := s.scrollToEnd(ctx, sess); err != nil {
			return domain.Article{}, err
		}
	}

	if err := sess.WaitVisible(ctx, layout.ContentSelector, layout.WaitTimeout); err != nil {
		if ctx.Err() != nil {
			return domain.Article{}, ctx.Err()
		}
		return domain.Article{}, unavailable("content not visible", err)
	}

	if len(layout.PaywallMarkers) > 0 {
		source, err := sess.PageSource(ctx)
		if err != nil {
			return domain.Article{}, unavailable("page source", err)
		}
		for _, marker := range layout.PaywallMarkers {
			if strings.Contains(source, marker) {
				return domain.Article{}, unavailable("paywall", fmt.Errorf("marker %q present", marker))
			}
		}
	}

	var body, title string
	err = retry.Do(
		func() error {
			var err error
			if body, err = sess.Text(ctx, layout.ContentSelector); err != nil {
				return err
			}
			title, err = sess.Text(ctx, layout.TitleSelector)
			return err
		},
		retry.Attempts(uint(s.cfg.ExtractAttempts)),
		retry.Delay(s.cfg.StaleBackoff),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
		retry.RetryIf(func(err error) bool {
			return errors.Is(err, domain.ErrStaleElement)
		}),
		retry.OnRetry(func(n uint, err error) {
			s.debug("stale element, retrying extraction", "url", target, "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		if ctx.Err() != nil {
			return domain.Article{}, ctx.Err()
		}
		return domain.Article{}, unavailable("extract", err)
	}

	body = strings.TrimSpace(body)
	title = strings.TrimSpace(title)
	if body == "" || title == "" {
		return domain.Article{}, unavailable("extract", errors.New("empty title or body"))
	}

	return domain.Article{
		URL:          target,
		Title:        title,
		Source:       layout.Label,
		Body:         body,
		DiscoveredAt: s.now(),
	}, nil
}

// scrollToEnd scrolls until the document height stops growing or MaxScrolls is hit.
func (s *Scraper) scrollToEnd(ctx context.Context, sess ports.BrowserSession) error {
	last, err := sess.ScrollHeight(ctx)
	if err != nil {
		s.debug("measure height", "error", err)
		return nil
	}
	for i := 0; i < s.cfg.MaxScrolls; i++ {
		if err := sess.ScrollToBottom(ctx); err != nil {
			s.debug("scroll", "error", err)
			return nil
		}
		if err := s.sleep(ctx, s.cfg.ScrollPause); err != nil {
			return err
		}
		height, err := sess.ScrollHeight(ctx)
		if err != nil || height == last {
			return nil
		}
		last = height
	}
	return nil
}

func (s *Scraper) politeDelay() time.Duration {
	spread := int64(s.cfg.MaxDelay - s.cfg.MinDelay)
	if spread <= 0 {
		return s.cfg.MinDelay
	}
	return s.cfg.MinDelay + time.Duration(s.jitter(spread+1))
}

func unavailable(reason string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, reason, err)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (s *Scraper) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
