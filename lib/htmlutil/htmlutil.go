package htmlutil

import (
	"bytes"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	// <br> separates words even though it has no text
	if node.Type == html.ElementNode && node.Data == "br" {
		buffer.WriteByte(' ')
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

func removeNonPrintable(s string) string {
	newStr := strings.Builder{}
	for _, c := range s {
		if unicode.IsPrint(c) || unicode.IsSpace(c) {
			newStr.WriteRune(c)
		}
	}
	return newStr.String()
}

// CleanText removes non-printable characters, trims the string and collapses
// every run of whitespace into a single space.
func CleanText(s string) string {
	s = removeNonPrintable(s)
	return strings.Join(strings.Fields(s), " ")
}

// SelectionText is the cleaned text of every node in the selection.
func SelectionText(sel *goquery.Selection) string {
	var buffer bytes.Buffer
	for i, n := range sel.Nodes {
		if i > 0 {
			buffer.WriteByte(' ')
		}
		getTextRecursive(n, &buffer)
	}
	return CleanText(buffer.String())
}
