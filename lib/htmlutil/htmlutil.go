package htmlutil

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// writeText appends the text nodes under node in document order.
func writeText(node *html.Node, out *strings.Builder) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		out.WriteString(node.Data)
		return
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		writeText(child, out)
	}
}

var whitespaceRun = regexp.MustCompile(`\s{2,}`)

// CleanText drops non-printable runes (zero width spaces show up in kworb cells), trims
// the ends and collapses runs of whitespace into a single space.
func CleanText(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, s)
	s = strings.TrimSpace(s)
	return whitespaceRun.ReplaceAllString(s, " ")
}

// SelectionText is CleanText over the text of every node in sel.
func SelectionText(sel *goquery.Selection) string {
	var out strings.Builder
	for _, n := range sel.Nodes {
		writeText(n, &out)
	}
	return CleanText(out.String())
}
