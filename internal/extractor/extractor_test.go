package extractor

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"bbmp-grievances/internal/grievance"
	"bbmp-grievances/lib/telemetry"
	"bbmp-grievances/lib/timezone"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2024, 6, 1, 9, 0, 0, 0, timezone.Location)

// place copies a fixture into `dir` as the raw file for `key`.
func place(t *testing.T, dir, fixture, key string, fetchedAt time.Time) {
	body, err := os.ReadFile(filepath.Join("testdata", fixture))
	require.NoError(t, err)
	path := filepath.Join(dir, key+".html")
	require.NoError(t, os.WriteFile(path, body, 0600))
	require.NoError(t, os.Chtimes(path, fetchedAt, fetchedAt))
}

func newExtractor() (Extractor, *telemetry.Recorder) {
	recorder := telemetry.NewRecorder()
	return Extractor{Telemetry: telemetry.NewScopedAPI("extractor", recorder)}, recorder
}

func str(s string) *string {
	return &s
}

func TestSingleGrievance(t *testing.T) {
	dir := t.TempDir()
	place(t, dir, "single.html", "20000001", baseTime)

	e, recorder := newExtractor()
	result, err := e.Run(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, result.Records, 1)

	date := time.Date(2024, 3, 5, 14, 22, 0, 0, timezone.Location)
	expected := grievance.Record{
		ComplaintID:   "20000001",
		Category:      str("Road Maintenance(Engg)"),
		SubCategory:   str("Potholes"),
		GrievanceDate: &date,
		WardName:      str("Shanthala Nagar"),
		Status:        str(grievance.StatusClosed),
		StaffRemarks:  str("Pothole filled on 07/03/2024"),
		Description:   str("Large pothole near the bus stop, very dangerous at night"),
		Address:       str("12th Cross, Richmond Town"),
		Image:         str("/docs/20000001/complaint.jpg"),
		StaffImage:    str("/docs/20000001/staff.jpg"),
	}
	if diff := cmp.Diff(expected, result.Records[0]); diff != "" {
		t.Fatal(diff)
	}

	require.Equal(t, Stats{Files: 1, Rows: 1, Records: 1}, result.Stats)
	require.Empty(t, recorder.Reports("warning", ""))
}

func TestFallbackIDAndFuzzyStatus(t *testing.T) {
	dir := t.TempDir()
	place(t, dir, "no_id.html", "20000002", baseTime)

	e, _ := newExtractor()
	result, err := e.Run(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, result.Records, 1)

	record := result.Records[0]
	require.Equal(t, "20000002", record.ComplaintID)
	require.Equal(t, grievance.StatusInProgress, grievance.Value(record.Status))
	require.NotNil(t, record.GrievanceDate)
	require.True(t, time.Date(2023, 12, 31, 8, 5, 0, 0, timezone.Location).Equal(*record.GrievanceDate))
	require.Nil(t, record.StaffName)
	require.Nil(t, record.StaffRemarks)
}

func TestFirstPanelTakesFileKey(t *testing.T) {
	dir := t.TempDir()
	place(t, dir, "extra_panel.html", "20000004", baseTime)

	e, recorder := newExtractor()
	result, err := e.Run(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, result.Records, 1)

	record := result.Records[0]
	require.Equal(t, "20000004", record.ComplaintID)
	require.Equal(t, "Koramangala", grievance.Value(record.WardName))
	require.Equal(t, grievance.StatusPending, grievance.Value(record.Status))
	require.Nil(t, record.Address)

	require.Equal(t, 2, result.Stats.Rows)
	require.Equal(t, 1, result.Stats.SkippedRows)
	require.Len(t, recorder.Reports("warning", report_skip_row), 1)
}

func TestMultiRowFile(t *testing.T) {
	dir := t.TempDir()
	place(t, dir, "multi.html", "20000099", baseTime)

	e, recorder := newExtractor()
	result, err := e.Run(context.Background(), dir)
	require.NoError(t, err)

	require.Len(t, result.Records, 1)
	record := result.Records[0]
	require.Equal(t, "20000010", record.ComplaintID)
	require.Nil(t, record.GrievanceDate)
	require.Equal(t, "Forwarded to zonal office", grievance.Value(record.Status))

	require.Equal(t, 3, result.Stats.Rows)
	require.Equal(t, 2, result.Stats.SkippedRows)
	require.Equal(t, 1, result.Stats.DateWarnings)
	require.Equal(t, 1, result.Stats.StatusWarnings)
	require.Len(t, recorder.Reports("warning", report_skip_row), 2)
	require.Len(t, recorder.Reports("warning", report_date), 1)
	require.Len(t, recorder.Reports("warning", report_status), 1)
}

func TestFilesWithoutRowsAreNotFatal(t *testing.T) {
	dir := t.TempDir()
	place(t, dir, "empty.html", "20000003", baseTime)
	place(t, dir, "single.html", "20000001", baseTime)

	e, _ := newExtractor()
	result, err := e.Run(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, result.Records, 1)
	require.Equal(t, 2, result.Stats.Files)
	require.Equal(t, 1, result.Stats.FilesWithoutRows)
}

func TestOnlyEmptyFiles(t *testing.T) {
	dir := t.TempDir()
	place(t, dir, "empty.html", "20000003", baseTime)

	e, recorder := newExtractor()
	result, err := e.Run(context.Background(), dir)
	require.NoError(t, err)
	require.Empty(t, result.Records)
	require.Len(t, recorder.Reports("warning", report_records), 1)
}

func TestLatestFetchWins(t *testing.T) {
	dir := t.TempDir()
	place(t, dir, "single.html", "20000001", baseTime)

	// the same grievance fetched later under another key, with a new status
	body, err := os.ReadFile(filepath.Join("testdata", "single.html"))
	require.NoError(t, err)
	updated := strings.Replace(
		string(body),
		`<div class="col-md-9">Closed</div>`,
		`<div class="col-md-9">Reopened</div>`,
		1,
	)
	path := filepath.Join(dir, "batch-2.html")
	require.NoError(t, os.WriteFile(path, []byte(updated), 0600))
	later := baseTime.Add(time.Hour)
	require.NoError(t, os.Chtimes(path, later, later))

	e, _ := newExtractor()
	result, err := e.Run(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, result.Records, 1)
	require.Equal(t, 1, result.Stats.Duplicates)
	require.Equal(t, grievance.StatusReopened, grievance.Value(result.Records[0].Status))

	// an older copy does not replace it
	older := baseTime.Add(-time.Hour)
	require.NoError(t, os.Chtimes(path, older, older))
	result, err = e.Run(context.Background(), dir)
	require.NoError(t, err)
	require.Equal(t, grievance.StatusClosed, grievance.Value(result.Records[0].Status))
}

func TestSetupErrors(t *testing.T) {
	e, _ := newExtractor()

	_, err := e.Run(context.Background(), filepath.Join(t.TempDir(), "missing"))
	require.ErrorIs(t, err, ErrNoInputDir)

	_, err = e.Run(context.Background(), t.TempDir())
	require.ErrorIs(t, err, ErrEmptyFetchSet)
}

func TestParseDate(t *testing.T) {
	cases := []struct {
		raw      string
		expected time.Time
	}{
		{raw: "05/03/2024 14:22", expected: time.Date(2024, 3, 5, 14, 22, 0, 0, timezone.Location)},
		{raw: "05/03/2024 14:22:09", expected: time.Date(2024, 3, 5, 14, 22, 9, 0, timezone.Location)},
		{raw: "05-03-2024 14:22", expected: time.Date(2024, 3, 5, 14, 22, 0, 0, timezone.Location)},
	}
	for _, test := range cases {
		parsed, err := ParseDate(test.raw)
		require.NoError(t, err, test.raw)
		require.True(t, test.expected.Equal(parsed), test.raw)
	}

	_, err := ParseDate("2024-03-05")
	require.Error(t, err)
}
