package devenv

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolvePath(t *testing.T) {
	path, err := ResolvePath(filepath.Join("data", "raw"))
	require.NoError(t, err)
	require.Equal(t, filepath.Join("data", "raw"), path)

	root, err := GetWorkspaceRoot()
	require.NoError(t, err)

	path, err = ResolvePath("<dev_state>/resty/portal")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(root, "dev", ".state", "resty", "portal"), path)
}
