package rawstore

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"bbmp-grievances/internal/paramspace"
	"bbmp-grievances/internal/portal"

	"github.com/stretchr/testify/require"
)

func response(id, body string, fetchedAt time.Time) portal.RawResponse {
	return portal.RawResponse{
		Params:     paramspace.Params{{Name: "complaint_id", Value: id}},
		FetchedAt:  fetchedAt,
		StatusCode: 200,
		Body:       []byte(body),
	}
}

func TestWriteAndList(t *testing.T) {
	store, err := Create(filepath.Join(t.TempDir(), "raw"))
	require.NoError(t, err)

	first := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	second := first.Add(time.Hour)

	path, err := store.Write(response("20000002", "two", second))
	require.NoError(t, err)
	require.Equal(t, filepath.Join(store.Dir, "20000002.html"), path)
	_, err = store.Write(response("20000001", "one", first))
	require.NoError(t, err)

	// ignored: wrong extension, empty, leftover temporary file
	require.NoError(t, os.WriteFile(filepath.Join(store.Dir, "notes.txt"), []byte("x"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(store.Dir, "20000003.html"), nil, 0600))
	require.NoError(t, os.WriteFile(filepath.Join(store.Dir, ".tmp-123.html"), []byte("x"), 0600))

	entries, err := store.List()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "20000001", entries[0].Key)
	require.Equal(t, "20000002", entries[1].Key)
	require.True(t, first.Equal(entries[0].FetchedAt))
	require.True(t, second.Equal(entries[1].FetchedAt))
	require.Equal(t, int64(3), entries[0].Size)

	body, err := store.Read(entries[1])
	require.NoError(t, err)
	require.Equal(t, "two", string(body))
}

func TestExists(t *testing.T) {
	store, err := Create(t.TempDir())
	require.NoError(t, err)

	exists, err := store.Exists("20000001")
	require.NoError(t, err)
	require.False(t, exists)

	_, err = store.Write(response("20000001", "one", time.Now()))
	require.NoError(t, err)

	exists, err = store.Exists("20000001")
	require.NoError(t, err)
	require.True(t, exists)

	// zero byte files are treated as absent so they get fetched again
	require.NoError(t, os.WriteFile(store.Path("20000009"), nil, 0600))
	exists, err = store.Exists("20000009")
	require.NoError(t, err)
	require.False(t, exists)
}

func TestWriteOverwrites(t *testing.T) {
	store, err := Create(t.TempDir())
	require.NoError(t, err)

	_, err = store.Write(response("1", "old", time.Now()))
	require.NoError(t, err)
	_, err = store.Write(response("1", "new", time.Now()))
	require.NoError(t, err)

	entries, err := store.List()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	body, err := store.Read(entries[0])
	require.NoError(t, err)
	require.Equal(t, "new", string(body))
}

func TestListMissingDir(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "missing"))
	require.NoError(t, err)
	_, err = store.List()
	require.ErrorIs(t, err, os.ErrNotExist)
}
