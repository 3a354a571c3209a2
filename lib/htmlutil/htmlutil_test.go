package htmlutil

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func TestSelectionText(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(
		"<table><tr><td>\n  <span class=\"s\">1,234</span>\t\t<b>x</b>  </td></tr></table>",
	))
	if err != nil {
		t.Fatal(err)
	}

	require.Equal(t, "1,234 x", SelectionText(doc.Find("td")))
	require.Equal(t, "", SelectionText(doc.Find("th")))
}

func TestCleanText(t *testing.T) {
	require.Equal(t, "Title: Golden", CleanText("  Title:​   Golden \n"))
}
