// Package extractor turns the raw portal responses into deduplicated
// grievance records.
package extractor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"bbmp-grievances/internal/grievance"
	"bbmp-grievances/internal/rawstore"
	"bbmp-grievances/lib/telemetry"
	"bbmp-grievances/lib/textutil"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var (
	tracer = telemetry.Tracer("internal/extractor")
	meter  = telemetry.Meter("internal/extractor")

	rowCounter, _ = meter.Int64Counter("extractor.rows")
)

var (
	ErrNoInputDir    = errors.New("raw directory does not exist")
	ErrEmptyFetchSet = errors.New("raw directory contains no responses")
)

const (
	report_read_file  = "read-file"
	report_parse_file = "parse-file"
	report_no_rows    = "no-rows"
	report_skip_row   = "skip-row"
	report_date       = "grievance-date"
	report_status     = "grievance-status"
	report_records    = "records"
	report_duplicates = "duplicates"
)

type Stats struct {
	Files            int
	FilesWithoutRows int
	Rows             int
	SkippedRows      int
	Duplicates       int
	DateWarnings     int
	StatusWarnings   int
	Records          int
}

type Result struct {
	Records []grievance.Record
	Stats   Stats
}

type Extractor struct {
	Telemetry telemetry.API
}

func (e Extractor) api() telemetry.API {
	if e.Telemetry == nil {
		return telemetry.NewScopedAPI("extractor", telemetry.SlogAPI{})
	}
	return e.Telemetry
}

type candidate struct {
	record    grievance.Record
	fetchedAt time.Time
	key       string
}

// Run extracts every raw file in `dir`. Records are deduplicated by complaint
// id (the most recently fetched file wins) and returned in output order.
func (e Extractor) Run(ctx context.Context, dir string) (Result, error) {
	ctx, span := tracer.Start(ctx, "Run")
	defer span.End()

	store, err := rawstore.Open(dir)
	if err != nil {
		return Result{}, err
	}
	entries, err := store.List()
	if errors.Is(err, os.ErrNotExist) || errors.Is(err, rawstore.ErrNotDirectory) {
		return Result{}, fmt.Errorf("%w: %s", ErrNoInputDir, store.Dir)
	}
	if err != nil {
		return Result{}, err
	}
	if len(entries) == 0 {
		return Result{}, fmt.Errorf("%w: %s", ErrEmptyFetchSet, store.Dir)
	}

	api := e.api()
	var stats Stats
	byID := map[string]candidate{}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			span.SetStatus(codes.Error, "cancelled")
			return Result{}, err
		}
		stats.Files++

		body, err := store.Read(entry)
		if err != nil {
			api.ReportWarning(report_read_file, entry.Path, err)
			stats.FilesWithoutRows++
			continue
		}
		rows, err := parseRows(bytes.NewReader(body))
		if err != nil {
			api.ReportWarning(report_parse_file, entry.Path, err)
			stats.FilesWithoutRows++
			continue
		}
		if len(rows) == 0 {
			api.ReportDebug("file has no grievance rows", entry.Path)
			stats.FilesWithoutRows++
			continue
		}

		// a file fetched by complaint id names the grievance of its first
		// panel, later panels need an id of their own
		keyID := ""
		if textutil.IsDigits(entry.Key) {
			keyID = entry.Key
		}

		for i, r := range rows {
			stats.Rows++
			fallbackID := ""
			if i == 0 {
				fallbackID = keyID
			}
			record, problems, err := toRecord(r, fallbackID)
			if err != nil {
				api.ReportWarning(report_skip_row, entry.Path, err)
				stats.SkippedRows++
				continue
			}
			if problems.badDate != "" {
				api.ReportWarning(report_date, record.ComplaintID, problems.badDate)
				stats.DateWarnings++
			}
			if problems.badStatus != "" {
				api.ReportWarning(report_status, record.ComplaintID, problems.badStatus)
				stats.StatusWarnings++
			}

			next := candidate{record: record, fetchedAt: entry.FetchedAt, key: entry.Key}
			existing, ok := byID[record.ComplaintID]
			if !ok {
				byID[record.ComplaintID] = next
				continue
			}
			stats.Duplicates++
			if grievance.Newer(next.fetchedAt, next.key, existing.fetchedAt, existing.key) {
				byID[record.ComplaintID] = next
			}
		}
	}

	records := make([]grievance.Record, 0, len(byID))
	for _, c := range byID {
		records = append(records, c.record)
	}
	grievance.Sort(records)
	stats.Records = len(records)

	rowCounter.Add(ctx, int64(stats.Rows))
	span.SetAttributes(
		attribute.Int("files", stats.Files),
		attribute.Int("rows", stats.Rows),
		attribute.Int("records", stats.Records),
	)

	if stats.FilesWithoutRows > 0 {
		api.ReportCount(report_no_rows, int64(stats.FilesWithoutRows))
	}
	api.ReportCount(report_duplicates, int64(stats.Duplicates))
	api.ReportCount(report_records, int64(stats.Records))
	if stats.Records == 0 {
		api.ReportWarning(report_records, "no grievances were extracted", store.Dir)
	}

	return Result{Records: records, Stats: stats}, nil
}
