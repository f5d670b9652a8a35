package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	"ArticlesPipeline/internal/domain"
	"ArticlesPipeline/internal/ports"
)

const textTimeout = 10 * time.Second

// Chrome starts one browser process on first use and opens a tab per session.
type Chrome struct {
	opts   []chromedp.ExecAllocatorOption
	logger *slog.Logger

	mu            sync.Mutex
	browserCtx    context.Context
	allocCancel   context.CancelFunc
	browserCancel context.CancelFunc
}

var _ ports.Browser = (*Chrome)(nil)

// New prepares a lazily started Chrome.
func New(opts []chromedp.ExecAllocatorOption, log *slog.Logger) *Chrome {
	return &Chrome{opts: opts, logger: log}
}

func (c *Chrome) ensureStarted() (context.Context, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.browserCtx != nil {
		return c.browserCtx, nil
	}

	// The process outlives individual calls, so it is rooted in Background.
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), c.opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("start browser: %w", err)
	}

	c.browserCtx = browserCtx
	c.allocCancel = allocCancel
	c.browserCancel = browserCancel
	if c.logger != nil {
		c.logger.Debug("browser started")
	}
	return browserCtx, nil
}

// NewSession opens a fresh tab.
func (c *Chrome) NewSession(ctx context.Context) (ports.BrowserSession, error) {
	browserCtx, err := c.ensureStarted()
	if err != nil {
		return nil, err
	}

	tabCtx, cancel := chromedp.NewContext(browserCtx)
	s := &session{tab: tabCtx, cancel: cancel}
	if err := s.run(ctx, 0); err != nil {
		cancel()
		return nil, fmt.Errorf("open tab: %w", err)
	}
	return s, nil
}

// Close shuts the browser process down. Safe to call when it never started.
func (c *Chrome) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.browserCtx == nil {
		return nil
	}
	c.browserCancel()
	c.allocCancel()
	c.browserCtx = nil
	return nil
}

type session struct {
	tab    context.Context
	cancel context.CancelFunc
}

// run executes actions in the tab, bounded by timeout (0 = none) and the caller's ctx.
func (s *session) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	opCtx, cancel := context.WithCancel(s.tab)
	defer cancel()
	if timeout > 0 {
		var tcancel context.CancelFunc
		opCtx, tcancel = context.WithTimeout(opCtx, timeout)
		defer tcancel()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(opCtx, actions...)
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return mapError(err)
}

func (s *session) Navigate(ctx context.Context, url string) error {
	return s.run(ctx, 0, chromedp.Navigate(url))
}

func (s *session) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	return s.run(ctx, timeout, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

func (s *session) ScrollHeight(ctx context.Context) (int64, error) {
	var height int64
	if err := s.run(ctx, 0, chromedp.Evaluate(`document.body ? document.body.scrollHeight : 0`, &height)); err != nil {
		return 0, err
	}
	return height, nil
}

func (s *session) ScrollToBottom(ctx context.Context) error {
	return s.run(ctx, 0, chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil))
}

func (s *session) PageSource(ctx context.Context) (string, error) {
	var html string
	if err := s.run(ctx, 0, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return html, nil
}

func (s *session) Text(ctx context.Context, selector string) (string, error) {
	var text string
	if err := s.run(ctx, textTimeout, chromedp.Text(selector, &text, chromedp.ByQuery, chromedp.NodeVisible)); err != nil {
		return "", err
	}
	return text, nil
}

func (s *session) Close() error {
	s.cancel()
	return nil
}

var staleMarkers = []string{
	"could not find node",
	"no node with given id",
	"node with given id does not belong",
	"cannot find context with specified id",
}

// mapError translates chromedp failures into domain sentinels.
func mapError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", domain.ErrWaitTimeout, err)
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range staleMarkers {
		if strings.Contains(msg, marker) {
			return fmt.Errorf("%w: %v", domain.ErrStaleElement, err)
		}
	}
	return err
}
