package htmlutil

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func TestCleanText(t *testing.T) {
	cases := []struct {
		in       string
		expected string
	}{
		{in: "  Closed \n", expected: "Closed"},
		{in: "Garbage\t\tnot   cleared", expected: "Garbage not cleared"},
		{in: "zero\u200bwidth", expected: "zerowidth"},
		{in: "non\u00a0breaking", expected: "non breaking"},
		{in: " ", expected: ""},
		{in: "", expected: ""},
	}
	for _, test := range cases {
		require.Equal(t, test.expected, CleanText(test.in), test.in)
	}
}

func TestSelectionText(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(
		`<div id="v">Road<br>repair <span> needed </span></div>`,
	))
	require.NoError(t, err)
	require.Equal(t, "Road repair needed", SelectionText(doc.Find("#v")))
	require.Equal(t, "", SelectionText(doc.Find("#missing")))
}
