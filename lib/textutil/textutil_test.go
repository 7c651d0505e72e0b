package textutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeLabel(t *testing.T) {
	cases := []struct {
		in       string
		expected string
	}{
		{in: "Complaint ID", expected: "complaintid"},
		{in: " Sub  Category : ", expected: "subcategory"},
		{in: "Grievance\nStatus*", expected: "grievancestatus"},
		{in: "Ward Name", expected: "wardname"},
	}
	for _, test := range cases {
		require.Equal(t, test.expected, NormalizeLabel(test.in), test.in)
	}
}

func TestIsDigits(t *testing.T) {
	require.True(t, IsDigits("20000001"))
	require.False(t, IsDigits(""))
	require.False(t, IsDigits("2000A001"))
	require.False(t, IsDigits("-1"))
}
