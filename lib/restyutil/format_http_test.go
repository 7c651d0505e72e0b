package restyutil

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatHeaders(t *testing.T) {
	headers := http.Header{}
	headers.Add("X-B", "2")
	headers.Add("X-A", "1")
	headers.Add("X-A", "3")

	require.Equal(t, "X-A: 1\nX-A: 3\nX-B: 2", formatHeaders(headers))
	require.Equal(t, "", formatHeaders(http.Header{}))
}

func TestFormatRequestBodyWithoutBody(t *testing.T) {
	req, err := http.NewRequest(http.MethodGet, "http://localhost", nil)
	require.NoError(t, err)
	require.Equal(t, "", formatRequestBody(req))
	require.Equal(t, "", formatRequestBody(nil))
}
