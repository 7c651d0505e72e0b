// Package fetcher walks a parameter space and stores every portal response
// that contains a grievance.
package fetcher

import (
	"bytes"
	"context"
	"errors"

	"bbmp-grievances/internal/manifest"
	"bbmp-grievances/internal/paramspace"
	"bbmp-grievances/internal/portal"
	"bbmp-grievances/internal/rawstore"
	"bbmp-grievances/lib/telemetry"
	"bbmp-grievances/lib/timezone"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

var (
	tracer = telemetry.Tracer("internal/fetcher")
	meter  = telemetry.Meter("internal/fetcher")

	requestCounter, _ = meter.Int64Counter("fetcher.requests")
	outcomeCounter, _ = meter.Int64Counter("fetcher.outcomes")
)

const (
	report_fetch     = "fetch"
	report_write_raw = "write-raw"
	report_manifest  = "manifest"
	report_saved     = "saved"
	report_empty     = "empty"
	report_failed    = "failed"
)

// Requester fetches a single parameter combination.
type Requester interface {
	Fetch(ctx context.Context, params paramspace.Params) (portal.RawResponse, error)
}

type Options struct {
	// Marker is the text a response must contain to hold a grievance.
	Marker string `json:"marker"`

	// KeepEmpty persists the body of responses without the marker.
	KeepEmpty bool `json:"keep_empty"`

	// RetryEmpty requests keys the manifest knows to be empty again.
	RetryEmpty bool `json:"retry_empty"`

	// SkipAfterEmpty consecutive empty responses make the cursor jump to the
	// next multiple of SkipAlign. A value below 1 disables the jump.
	SkipAfterEmpty int   `json:"skip_after_empty"`
	SkipAlign      int64 `json:"skip_align"`

	// StopAfterEmpty consecutive empty responses abandon the innermost
	// dimension. A value below 1 disables it.
	StopAfterEmpty int `json:"stop_after_empty"`
}

func DefaultOptions() Options {
	return Options{
		Marker:         "Grievance Status",
		SkipAfterEmpty: 50,
		SkipAlign:      100,
		StopAfterEmpty: 75,
	}
}

type Summary struct {
	RunID string

	// Visited is the number of combinations the cursor stopped on.
	Visited int
	Saved   int
	Empty   int
	Failed  int

	// Skipped combinations already had a raw file, SkippedEmpty ones were
	// known to be empty from an earlier run.
	Skipped      int
	SkippedEmpty int

	// Jumps counts how often the cursor skipped ahead, Abandoned how often
	// it gave up on the rest of a slice.
	Jumps       int
	Abandoned   int
	Interrupted bool
}

type Fetcher struct {
	Client    Requester
	Store     rawstore.Store
	Manifest  manifest.Store
	Space     paramspace.Space
	Options   Options
	Telemetry telemetry.API
	Clock     timezone.TimeAPI
}

func (f Fetcher) api() telemetry.API {
	if f.Telemetry == nil {
		return telemetry.NewScopedAPI("fetcher", telemetry.SlogAPI{})
	}
	return f.Telemetry
}

func (f Fetcher) clock() timezone.TimeAPI {
	if f.Clock == nil {
		return timezone.StandardTime{}
	}
	return f.Clock
}

// Run requests every combination of the space that is not already known.
// Cancelling ctx stops the run between requests, the summary of what was
// done so far is still returned. The run is closed in the manifest however
// Run returns.
func (f Fetcher) Run(ctx context.Context) (Summary, error) {
	ctx, span := tracer.Start(ctx, "Run")
	defer span.End()

	err := f.Space.Validate()
	if err != nil {
		return Summary{}, err
	}

	api := f.api()
	clock := f.clock()
	marker := []byte(f.Options.Marker)

	runId, err := f.Manifest.StartRun(ctx, clock.Now())
	if err != nil {
		return Summary{}, err
	}
	summary := Summary{RunID: runId}
	span.SetAttributes(attribute.String("run_id", runId))
	// the run is closed on every return, errors included
	defer func() {
		f.finish(ctx, summary)
	}()

	consecutiveEmpty := 0
	cursor := f.Space.Cursor()
	for !cursor.Done() {
		if ctx.Err() != nil {
			summary.Interrupted = true
			break
		}
		summary.Visited++

		params := cursor.Params()
		key := params.Key()

		outcome, known, err := f.Manifest.Outcome(ctx, key)
		if err != nil {
			return summary, err
		}
		if known && outcome == manifest.OutcomeEmpty && !f.Options.RetryEmpty {
			summary.SkippedEmpty++
			consecutiveEmpty++
			f.advance(cursor, &consecutiveEmpty, &summary, key)
			continue
		}
		if !known || outcome != manifest.OutcomeEmpty {
			exists, err := f.Store.Exists(key)
			if err != nil {
				return summary, err
			}
			if exists {
				summary.Skipped++
				consecutiveEmpty = 0
				cursor.Next()
				continue
			}
		}

		requestCounter.Add(ctx, 1)
		res, err := f.Client.Fetch(ctx, params)
		result := manifest.Result{
			Key:        key,
			Params:     params,
			StatusCode: res.StatusCode,
			FetchedAt:  res.FetchedAt,
			RunID:      runId,
		}
		if result.FetchedAt.IsZero() {
			result.FetchedAt = clock.Now()
		}

		switch {
		case err != nil:
			if errors.Is(ctx.Err(), context.Canceled) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
				summary.Visited--
				summary.Interrupted = true
				break
			}
			api.ReportWarning(report_fetch, key, err)
			result.Outcome = manifest.OutcomeFailed
			result.Error = err.Error()
			summary.Failed++
		case bytes.Contains(res.Body, marker):
			_, err := f.Store.Write(res)
			if err != nil {
				api.ReportBroken(report_write_raw, key, err)
				span.RecordError(err)
				span.SetStatus(codes.Error, "failed to write raw response")
				return summary, err
			}
			result.Outcome = manifest.OutcomeSaved
			summary.Saved++
			consecutiveEmpty = 0
		default:
			if f.Options.KeepEmpty {
				_, err := f.Store.Write(res)
				if err != nil {
					api.ReportBroken(report_write_raw, key, err)
					return summary, err
				}
			}
			api.ReportDebug("empty response", key)
			result.Outcome = manifest.OutcomeEmpty
			summary.Empty++
			consecutiveEmpty++
		}
		if summary.Interrupted {
			break
		}

		outcomeCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", string(result.Outcome))))
		err = f.Manifest.Record(ctx, result)
		if err != nil {
			return summary, err
		}

		f.advance(cursor, &consecutiveEmpty, &summary, key)
	}

	api.ReportCount(report_saved, int64(summary.Saved))
	api.ReportCount(report_empty, int64(summary.Empty))
	api.ReportCount(report_failed, int64(summary.Failed))
	return summary, nil
}

// advance moves the cursor past `key`, applying the empty response
// heuristics.
func (f Fetcher) advance(cursor *paramspace.Cursor, consecutiveEmpty *int, summary *Summary, key string) {
	api := f.api()
	stop := f.Options.StopAfterEmpty
	skip := f.Options.SkipAfterEmpty

	if stop > 0 && *consecutiveEmpty >= stop {
		api.ReportDebug("abandoning slice after consecutive empty responses", key, *consecutiveEmpty)
		summary.Abandoned++
		*consecutiveEmpty = 0
		cursor.NextSlice()
		return
	}
	// the counter is kept after a jump, every further empty response jumps
	// again until the stop threshold is reached
	if skip > 0 && *consecutiveEmpty >= skip && cursor.SkipAligned(f.Options.SkipAlign) {
		api.ReportDebug("skipping ahead after consecutive empty responses", key, *consecutiveEmpty)
		summary.Jumps++
		return
	}
	cursor.Next()
}

func (f Fetcher) finish(ctx context.Context, summary Summary) {
	finishedAt := f.clock().Now()
	err := f.Manifest.FinishRun(context.WithoutCancel(ctx), manifest.Run{
		ID:         summary.RunID,
		FinishedAt: &finishedAt,
		Saved:      summary.Saved,
		Empty:      summary.Empty,
		Failed:     summary.Failed,
		Skipped:    summary.Skipped + summary.SkippedEmpty,
	})
	if err != nil {
		f.api().ReportBroken(report_manifest, summary.RunID, err)
	}
}
