package publish

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestObjectKey(t *testing.T) {
	require.Equal(t, "citizen-grievances.parquet", ObjectKey("", "data/citizen-grievances.parquet"))
	require.Equal(t, "bbmp/latest/citizen-grievances.csv.gz", ObjectKey("/bbmp/latest/", "/tmp/data/citizen-grievances.csv.gz"))
}

func TestContentType(t *testing.T) {
	require.Equal(t, "application/vnd.apache.parquet", ContentType("citizen-grievances.parquet"))
	require.Equal(t, "application/gzip", ContentType("citizen-grievances.csv.gz"))
	require.Equal(t, "text/csv", ContentType("export.csv"))
	require.Equal(t, "application/octet-stream", ContentType("manifest.db"))
}

func TestNotConfigured(t *testing.T) {
	_, err := New(Config{Bucket: "grievances"})
	require.ErrorIs(t, err, ErrNotConfigured)
}

type objectRequest struct {
	method      string
	path        string
	contentType string
	records     string
}

func TestUpload(t *testing.T) {
	var mu sync.Mutex
	var requests []objectRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		mu.Lock()
		requests = append(requests, objectRequest{
			method:      r.Method,
			path:        r.URL.Path,
			contentType: r.Header.Get("Content-Type"),
			records:     r.Header.Get("X-Amz-Meta-Records"),
		})
		mu.Unlock()
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	dir := t.TempDir()
	file := filepath.Join(dir, "citizen-grievances.parquet")
	require.NoError(t, os.WriteFile(file, []byte("PAR1"), 0600))

	publisher, err := New(Config{
		Endpoint:  strings.TrimPrefix(server.URL, "http://"),
		AccessKey: "access",
		SecretKey: "secret",
		Region:    "us-east-1",
		Bucket:    "grievances",
		Prefix:    "bbmp",
	})
	require.NoError(t, err)

	uploaded, err := publisher.Upload(context.Background(), []string{file}, map[string]string{"records": "3"})
	require.NoError(t, err)
	require.Equal(t, []Uploaded{{File: file, Key: "bbmp/citizen-grievances.parquet", Size: 4}}, uploaded)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, requests, 1)
	require.Equal(t, http.MethodPut, requests[0].method)
	require.Equal(t, "/grievances/bbmp/citizen-grievances.parquet", requests[0].path)
	require.Equal(t, "application/vnd.apache.parquet", requests[0].contentType)
	require.Equal(t, "3", requests[0].records)
}
