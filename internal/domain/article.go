package domain

import "time"

// Article is the canonical raw record for one URL, produced by the page scraper.
type Article struct {
	ID           int64
	URL          string
	Title        string
	Source       string
	Body         string
	DiscoveredAt time.Time
}

// Link is a candidate article discovered by a harvester.
// A non-empty Excerpt means the link already carries a feed summary;
// Scrape marks links that must be rendered and extracted.
type Link struct {
	URL         string
	Source      string
	Title       string
	Author      string
	Excerpt     string
	PublishedAt time.Time
	Scrape      bool
}

// Summary is one row of a summary table, keyed by URL.
type Summary struct {
	URL    string
	Title  string
	Author string
	Text   string
	Source string
	Date   time.Time
}

// UnifiedSummary is a summary folded into the unified table with its provenance.
type UnifiedSummary struct {
	Summary
	OriginTable string
	LastUpdated time.Time
}

// MergeResult reports how many rows one origin table contributed during unification.
type MergeResult struct {
	Origin   string
	Inserted int64
}
