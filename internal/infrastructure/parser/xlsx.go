package parser

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"ArticlesPipeline/internal/domain"
	"ArticlesPipeline/internal/harvest"
)

// WorkbookHarvester reads (url, label) rows from a local .xlsx workbook.
//
// req.URL is the file path; the "sheet" option picks a sheet (first sheet by default).
type WorkbookHarvester struct {
	logger *slog.Logger
}

var _ harvest.Harvester = (*WorkbookHarvester)(nil)

// NewWorkbookHarvester builds the workbook strategy.
func NewWorkbookHarvester(log *slog.Logger) *WorkbookHarvester {
	return &WorkbookHarvester{logger: log}
}

// Name satisfies harvest.Harvester.
func (h *WorkbookHarvester) Name() string { return "xlsx" }

// Harvest opens the workbook and converts its rows.
func (h *WorkbookHarvester) Harvest(ctx context.Context, req harvest.Request) ([]domain.Link, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.URL == "" {
		return nil, fmt.Errorf("xlsx source %s: path is empty", req.SourceName)
	}

	f, err := excelize.OpenFile(req.URL)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", req.URL, err)
	}
	defer f.Close()

	sheet := req.Option("sheet", "")
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, nil
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}

	return rowsToLinks(rows, req.Option("label", ""), h.logger, req.SourceName), nil
}
