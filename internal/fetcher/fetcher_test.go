package fetcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"bbmp-grievances/internal/manifest"
	"bbmp-grievances/internal/paramspace"
	"bbmp-grievances/internal/portal"
	"bbmp-grievances/internal/rawstore"
	"bbmp-grievances/lib/telemetry"
	"bbmp-grievances/lib/testutil"
	"bbmp-grievances/lib/timezone"

	"github.com/stretchr/testify/require"
)

type fakePortal struct {
	grievances map[string]bool
	failing    map[string]bool
	requested  []string
	clock      *timezone.FixedTime
	onFetch    func(n int)
}

func (p *fakePortal) Fetch(ctx context.Context, params paramspace.Params) (portal.RawResponse, error) {
	key := params.Key()
	p.requested = append(p.requested, key)
	if p.onFetch != nil {
		p.onFetch(len(p.requested))
	}
	if ctx.Err() != nil {
		return portal.RawResponse{}, ctx.Err()
	}
	res := portal.RawResponse{
		Params:     params,
		FetchedAt:  p.clock.Now(),
		StatusCode: 200,
	}
	if p.failing[key] {
		res.StatusCode = 503
		return res, fmt.Errorf("%w: status 503", portal.ErrRequestFailed)
	}
	if p.grievances[key] {
		res.Body = []byte(fmt.Sprintf("<div class=panel><label>Grievance Status</label><div>Closed</div> %s</div>", key))
		return res, nil
	}
	res.Body = []byte("<html><body>No records found</body></html>")
	return res, nil
}

type fixture struct {
	fetcher  Fetcher
	portal   *fakePortal
	store    rawstore.Store
	manifest manifest.Store
	recorder *telemetry.Recorder
}

func newFixture(t *testing.T, space paramspace.Space, opts Options) *fixture {
	dir := t.TempDir()
	store, err := rawstore.Create(filepath.Join(dir, "raw"))
	require.NoError(t, err)
	ledger := manifest.NewStore(testutil.SetupDB(t, "fetcher", manifest.Schema))

	clock := &timezone.FixedTime{
		Current: time.Date(2024, 6, 1, 9, 0, 0, 0, timezone.Location),
		Step:    time.Second,
	}
	fake := &fakePortal{
		grievances: map[string]bool{},
		failing:    map[string]bool{},
		clock:      clock,
	}
	recorder := telemetry.NewRecorder()
	return &fixture{
		fetcher: Fetcher{
			Client:    fake,
			Store:     store,
			Manifest:  ledger,
			Space:     space,
			Options:   opts,
			Telemetry: telemetry.NewScopedAPI("fetcher", recorder),
			Clock:     clock,
		},
		portal:   fake,
		store:    store,
		manifest: ledger,
		recorder: recorder,
	}
}

func idRange(start, end int64) paramspace.Space {
	return paramspace.Space{Dimensions: []paramspace.Dimension{
		{Name: "complaint_id", Start: start, End: end},
	}}
}

func noHeuristics() Options {
	opts := DefaultOptions()
	opts.SkipAfterEmpty = 0
	opts.StopAfterEmpty = 0
	return opts
}

func listKeys(t *testing.T, store rawstore.Store) []string {
	entries, err := store.List()
	require.NoError(t, err)
	keys := make([]string, len(entries))
	for i, e := range entries {
		keys[i] = e.Key
	}
	return keys
}

func TestRunIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, idRange(20000000, 20000005), noHeuristics())
	f.portal.grievances["20000001"] = true
	f.portal.grievances["20000003"] = true

	summary, err := f.fetcher.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, 5, summary.Visited)
	require.Equal(t, 2, summary.Saved)
	require.Equal(t, 3, summary.Empty)
	require.Equal(t, []string{"20000001", "20000003"}, listKeys(t, f.store))

	outcome, ok, err := f.manifest.Outcome(ctx, "20000002")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, manifest.OutcomeEmpty, outcome)

	saved, ok := f.recorder.LastCount(report_saved)
	require.True(t, ok)
	require.Equal(t, int64(2), saved)

	f.portal.requested = nil
	summary, err = f.fetcher.Run(ctx)
	require.NoError(t, err)
	require.Empty(t, f.portal.requested)
	require.Equal(t, 2, summary.Skipped)
	require.Equal(t, 3, summary.SkippedEmpty)
	require.Equal(t, []string{"20000001", "20000003"}, listKeys(t, f.store))

	runs, err := f.manifest.Runs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	require.Equal(t, summary.RunID, runs[0].ID)
	require.Equal(t, 5, runs[0].Skipped)
}

func TestRetryEmpty(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, idRange(1, 3), noHeuristics())

	_, err := f.fetcher.Run(ctx)
	require.NoError(t, err)
	require.Len(t, f.portal.requested, 2)

	f.portal.grievances["2"] = true
	f.fetcher.Options.RetryEmpty = true
	f.portal.requested = nil
	summary, err := f.fetcher.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"1", "2"}, f.portal.requested)
	require.Equal(t, 1, summary.Saved)
	require.Equal(t, []string{"2"}, listKeys(t, f.store))
}

func TestKeepEmpty(t *testing.T) {
	opts := noHeuristics()
	opts.KeepEmpty = true
	f := newFixture(t, idRange(1, 3), opts)

	summary, err := f.fetcher.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, summary.Empty)
	require.Equal(t, []string{"1", "2"}, listKeys(t, f.store))
}

func TestFailuresAreRetriedNextRun(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, idRange(1, 4), noHeuristics())
	f.portal.failing["2"] = true
	f.portal.grievances["2"] = true
	f.portal.grievances["3"] = true

	summary, err := f.fetcher.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, summary.Failed)
	require.Equal(t, 1, summary.Saved)
	require.Len(t, f.recorder.Reports("warning", report_fetch), 1)

	result, err := f.manifest.Result(ctx, "2")
	require.NoError(t, err)
	require.Equal(t, manifest.OutcomeFailed, result.Outcome)
	require.Equal(t, 503, result.StatusCode)
	require.NotEmpty(t, result.Error)

	delete(f.portal.failing, "2")
	f.portal.requested = nil
	summary, err = f.fetcher.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"2"}, f.portal.requested)
	require.Equal(t, 1, summary.Saved)
	require.Equal(t, []string{"2", "3"}, listKeys(t, f.store))
}

func TestEmptyHeuristics(t *testing.T) {
	opts := DefaultOptions()
	opts.SkipAfterEmpty = 3
	opts.SkipAlign = 100
	opts.StopAfterEmpty = 6
	f := newFixture(t, idRange(0, 1000), opts)
	f.portal.grievances["1"] = true

	summary, err := f.fetcher.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"0", "1", "2", "3", "4", "100", "200", "300"}, f.portal.requested)
	require.Equal(t, 1, summary.Saved)
	require.Equal(t, 7, summary.Empty)
	require.Equal(t, 3, summary.Jumps)
	require.Equal(t, 1, summary.Abandoned)
}

func TestAbandonSliceMovesToNextOuterValue(t *testing.T) {
	opts := DefaultOptions()
	opts.SkipAfterEmpty = 0
	opts.StopAfterEmpty = 2
	space := paramspace.Space{Dimensions: []paramspace.Dimension{
		{Name: "ward", Values: []string{"1", "2"}},
		{Name: "page", Start: 1, End: 100},
	}}
	f := newFixture(t, space, opts)
	f.portal.grievances["ward-1_page-1"] = true

	summary, err := f.fetcher.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{
		"ward-1_page-1",
		"ward-1_page-2",
		"ward-1_page-3",
		"ward-2_page-1",
		"ward-2_page-2",
	}, f.portal.requested)
	require.Equal(t, 2, summary.Abandoned)
}

func TestCancelStopsBetweenRequests(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := newFixture(t, idRange(1, 100), noHeuristics())
	f.portal.onFetch = func(n int) {
		if n == 3 {
			cancel()
		}
	}

	summary, err := f.fetcher.Run(ctx)
	require.NoError(t, err)
	require.True(t, summary.Interrupted)
	require.Equal(t, 2, summary.Empty)
	require.Len(t, f.portal.requested, 3)

	runs, err := f.manifest.Runs(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, runs[0].FinishedAt)
}

func TestRunIsClosedOnError(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, idRange(20000000, 20000005), noHeuristics())
	f.portal.grievances["20000001"] = true
	f.portal.onFetch = func(n int) {
		if n == 2 {
			require.NoError(t, os.RemoveAll(f.store.Dir))
		}
	}

	summary, err := f.fetcher.Run(ctx)
	require.Error(t, err)
	require.Equal(t, 1, summary.Empty)
	require.Len(t, f.recorder.Reports("broken", report_write_raw), 1)

	runs, err := f.manifest.Runs(ctx, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, summary.RunID, runs[0].ID)
	require.NotNil(t, runs[0].FinishedAt)
	require.Equal(t, 1, runs[0].Empty)
	require.Equal(t, 0, runs[0].Saved)
}
