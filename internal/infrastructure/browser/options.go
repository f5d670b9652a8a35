// Package browser provides the chromedp-backed page sessions used by the scraper.
package browser

import "github.com/chromedp/chromedp"

// DefaultUserAgent is a realistic desktop Chrome user agent.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// Options returns allocator options that hide the most common automation tells.
func Options(headless bool, userAgent, execPath string) []chromedp.ExecAllocatorOption {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", headless),
		// navigator.webdriver stays false
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(userAgent),
		chromedp.WindowSize(1920, 1080),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("no-default-browser-check", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)

	if headless {
		opts = append(opts, chromedp.Flag("disable-gpu", true))
	}
	if execPath != "" {
		opts = append(opts, chromedp.ExecPath(execPath))
	}

	return opts
}
