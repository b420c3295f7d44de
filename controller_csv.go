package gotable

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"
)

// csvTimestampLayout stamps exported file names.
const csvTimestampLayout = "20060102_150405"

// CSVRecords returns the export of the filtered and sorted source: a header
// of the shown column titles followed by one record per row. Pagination is
// bypassed.
func (c *Controller) CSVRecords(ctx context.Context) ([][]string, error) {
	if err := c.prepare(ctx, false); err != nil {
		return nil, err
	}

	items, err := c.src.Clone().Rows(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch rows: %w", err)
	}

	titles := c.Titles()
	header := make([]string, len(titles))
	for i, title := range titles {
		header[i] = title.Text()
	}

	records := make([][]string, 0, len(items)+1)
	records = append(records, header)

	for _, row := range c.bind(items) {
		cells := row.Cells()
		record := make([]string, len(cells))
		for i, cell := range cells {
			if record[i], err = cell.CSV(); err != nil {
				return nil, err
			}
		}
		records = append(records, record)
	}

	return records, nil
}

// WriteCSV writes the export to w.
func (c *Controller) WriteCSV(ctx context.Context, w io.Writer) error {
	records, err := c.CSVRecords(ctx)
	if err != nil {
		return err
	}

	return writeCSV(w, c.view.meta.CSVDialect, records)
}

// DownloadCSV returns the export as an attachment named
// <table id>_<timestamp>.csv.
func (c *Controller) DownloadCSV(ctx context.Context) (*CSVResponse, error) {
	records, err := c.CSVRecords(ctx)
	if err != nil {
		return nil, err
	}

	c.log.Debug("csv export", slog.Int("records", len(records)-1))

	return &CSVResponse{
		Filename: fmt.Sprintf("%s_%s.csv", c.view.ID(), time.Now().Format(csvTimestampLayout)),
		Dialect:  c.view.meta.CSVDialect,
		Records:  records,
		log:      c.log,
	}, nil
}
