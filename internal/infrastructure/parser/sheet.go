package parser

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"ArticlesPipeline/internal/domain"
	"ArticlesPipeline/internal/harvest"
)

// SheetHarvester reads (url, label) rows from a spreadsheet CSV export.
type SheetHarvester struct {
	client *http.Client
	logger *slog.Logger
}

var _ harvest.Harvester = (*SheetHarvester)(nil)

// NewSheetHarvester builds the CSV-over-HTTP strategy.
func NewSheetHarvester(client *http.Client, log *slog.Logger) *SheetHarvester {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &SheetHarvester{client: client, logger: log}
}

// Name satisfies harvest.Harvester.
func (h *SheetHarvester) Name() string { return "sheet" }

// Harvest downloads the CSV export at req.URL.
func (h *SheetHarvester) Harvest(ctx context.Context, req harvest.Request) ([]domain.Link, error) {
	if req.URL == "" {
		return nil, fmt.Errorf("sheet source %s: url is empty", req.SourceName)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := h.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("fetch sheet %s: %w", req.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch sheet %s: unexpected status %s", req.URL, resp.Status)
	}

	rows, err := readCSV(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", req.URL, err)
	}

	links := rowsToLinks(rows, req.Option("label", ""), h.logger, req.SourceName)
	return links, nil
}

func readCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var rows [][]string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, record)
	}
}

// rowsToLinks maps (url, label) rows to scrapeable links.
// A one-column row takes fallbackLabel; rows without a usable url or label are skipped.
func rowsToLinks(rows [][]string, fallbackLabel string, log *slog.Logger, source string) []domain.Link {
	links := make([]domain.Link, 0, len(rows))
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		rawURL := strings.TrimSpace(row[0])
		label := fallbackLabel
		if len(row) > 1 && strings.TrimSpace(row[1]) != "" {
			label = strings.TrimSpace(row[1])
		}
		if !validLink(rawURL) || label == "" {
			if log != nil && rawURL != "" {
				log.Debug("skip sheet row", "source", source, "row", i+1, "value", rawURL)
			}
			continue
		}
		links = append(links, domain.Link{URL: rawURL, Source: label, Scrape: true})
	}
	return links
}
