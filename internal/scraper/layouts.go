package scraper

import (
	"strings"
	"time"

	"ArticlesPipeline/internal/config"
)

const defaultWaitTimeout = 30 * time.Second

// Layout describes one page family: where the body and title live and how a
// paywalled render looks.
type Layout struct {
	Name            string
	Label           string
	ContentSelector string
	TitleSelector   string
	PaywallMarkers  []string
	WaitTimeout     time.Duration
	Scroll          bool
}

// DefaultLayouts returns the built-in layout families.
func DefaultLayouts() []Layout {
	return []Layout{
		{
			Name:            "medium",
			Label:           "Medium",
			ContentSelector: "article",
			TitleSelector:   "h1",
			PaywallMarkers:  []string{"Get unlimited access", "Become a member"},
			WaitTimeout:     defaultWaitTimeout,
			Scroll:          true,
		},
		{
			Name:            "mit",
			Label:           "MIT Technology Review",
			ContentSelector: "article",
			TitleSelector:   "h1",
			WaitTimeout:     defaultWaitTimeout,
		},
	}
}

// layoutSet indexes layouts by lower-cased name and label.
type layoutSet map[string]Layout

func newLayoutSet(overrides []config.LayoutConfig) layoutSet {
	byName := map[string]Layout{}
	var order []string
	for _, l := range DefaultLayouts() {
		byName[l.Name] = l
		order = append(order, l.Name)
	}

	for _, o := range overrides {
		name := strings.ToLower(strings.TrimSpace(o.Name))
		if name == "" {
			continue
		}
		l, exists := byName[name]
		if !exists {
			l = Layout{Name: name, ContentSelector: "article", TitleSelector: "h1", WaitTimeout: defaultWaitTimeout}
			order = append(order, name)
		}
		if o.Label != "" {
			l.Label = o.Label
		}
		if o.ContentSelector != "" {
			l.ContentSelector = o.ContentSelector
		}
		if o.TitleSelector != "" {
			l.TitleSelector = o.TitleSelector
		}
		if o.PaywallMarkers != nil {
			l.PaywallMarkers = o.PaywallMarkers
		}
		if o.WaitTimeout > 0 {
			l.WaitTimeout = o.WaitTimeout
		}
		if o.Scroll {
			l.Scroll = true
		}
		byName[name] = l
	}

	set := layoutSet{}
	for _, name := range order {
		l := byName[name]
		if l.Label == "" {
			l.Label = l.Name
		}
		set[strings.ToLower(l.Name)] = l
		set[strings.ToLower(l.Label)] = l
	}
	return set
}

func (s layoutSet) lookup(tag string) (Layout, bool) {
	l, ok := s[strings.ToLower(strings.TrimSpace(tag))]
	return l, ok
}
