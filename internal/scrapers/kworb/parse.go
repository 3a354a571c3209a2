// parse.go turns a kworb track page into observations, it does no IO.

package kworb

import (
	"bytes"
	"fmt"
	"regexp"
	"spotify-charts/internal/chart"
	"spotify-charts/internal/components/telemetry"
	"spotify-charts/lib/htmlutil"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	report_parser_parse     = "parser.parse"
	report_parser_container = "parser.container"
	report_parser_row       = "parser.row"
)

const UnknownMetadata = "Unknown"

// the empty marker kworb puts in a region column when the track did not chart there
const emptyCellMarker = "--"

var (
	titleRegex  = regexp.MustCompile(`Title:\s*(.+)`)
	artistRegex = regexp.MustCompile(`Artist:\s*(.+)`)
	dateRegex   = regexp.MustCompile(`^\d{4}/\d{2}/\d{2}$`)
)

var summaryRows = map[string]struct{}{
	"Total": {},
	"Peak":  {},
}

type ParseOptions struct {
	// Strict rejects pages that lack the container for the requested view instead of
	// falling back to the first table anywhere on the page.
	Strict bool
}

// Diagnostic describes a table row that was dropped.
type Diagnostic struct {
	// Row is the index of the row within the table, the header row is 0.
	Row      int
	DateCell string
	Err      error
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("row %d (%q): %v", d.Row, d.DateCell, d.Err)
}

// Page is everything extracted from one track page for one view.
type Page struct {
	TrackID      string
	View         chart.View
	Title        string
	Artist       string
	Observations []chart.Observation
	Diagnostics  []Diagnostic
	// UsedFallback is set when the view's container was missing and the first table on
	// the page was read instead.
	UsedFallback bool
}

// Parser extracts observations out of kworb track pages.
type Parser struct {
	opts ParseOptions
	tel  telemetry.API
}

func NewParser(opts ParseOptions, tel telemetry.API) Parser {
	return Parser{
		opts: opts,
		tel:  telemetry.NewScopedAPI("kworb", tel),
	}
}

// Parse never fails, a page it cannot make sense of has no observations. The same
// markup always produces the same page.
func (p Parser) Parse(trackID string, markup []byte, view chart.View) Page {
	page := Page{
		TrackID: trackID,
		View:    view,
		Title:   UnknownMetadata,
		Artist:  UnknownMetadata,
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(markup))
	if err != nil {
		p.tel.ReportWarning(report_parser_parse, fmt.Errorf("parse html: %w", err), trackID)
		return page
	}

	page.Title, page.Artist = parseMetadata(doc)

	container := doc.Find("div." + view.String()).First()
	if container.Length() == 0 {
		if p.opts.Strict {
			p.tel.ReportWarning(
				report_parser_container,
				fmt.Errorf("no %s container, strict mode rejects the page", view),
				trackID,
			)
			return page
		}
		p.tel.ReportWarning(
			report_parser_container,
			fmt.Errorf("no %s container, falling back to the first table on the page", view),
			trackID,
		)
		container = doc.Selection
		page.UsedFallback = true
	}

	table := container.Find("table").First()
	if table.Length() == 0 {
		p.tel.ReportWarning(report_parser_parse, fmt.Errorf("could not find data table"), trackID, view.String())
		return page
	}

	rows := table.Find("tr")
	if rows.Length() < 2 {
		p.tel.ReportWarning(report_parser_parse, fmt.Errorf("table has insufficient rows"), trackID, view.String())
		return page
	}

	var headers []string
	rows.First().Find("th").Each(func(_ int, th *goquery.Selection) {
		headers = append(headers, htmlutil.SelectionText(th))
	})
	dateIdx := indexOf(headers, "Date")
	if dateIdx < 0 {
		p.tel.ReportWarning(report_parser_parse, fmt.Errorf("could not find a Date header"), trackID, headers)
		return page
	}

	rows.Slice(1, rows.Length()).Each(func(i int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() == 0 {
			return
		}

		tr := tableRow{
			index:   i + 1,
			cells:   cells,
			headers: headers,
			dateIdx: dateIdx,
		}
		obs, skip, err := tr.parse(page)
		if skip {
			return
		}
		if err != nil {
			diag := Diagnostic{Row: tr.index, DateCell: tr.dateCell, Err: err}
			page.Diagnostics = append(page.Diagnostics, diag)
			p.tel.ReportWarning(report_parser_row, err, trackID, view.String(), diag.Row, diag.DateCell)
			return
		}
		page.Observations = append(page.Observations, obs...)
	})

	p.tel.ReportDebug("parsed page", trackID, view.String(), len(page.Observations), len(page.Diagnostics))

	return page
}

func parseMetadata(doc *goquery.Document) (title, artist string) {
	text := doc.Text()
	return matchLabel(titleRegex, text), matchLabel(artistRegex, text)
}

func matchLabel(re *regexp.Regexp, text string) string {
	groups := re.FindStringSubmatch(text)
	if len(groups) < 2 {
		return UnknownMetadata
	}
	value := htmlutil.CleanText(groups[1])
	if value == "" {
		return UnknownMetadata
	}
	return value
}

func indexOf(list []string, target string) int {
	for i, s := range list {
		if s == target {
			return i
		}
	}
	return -1
}

type tableRow struct {
	index    int
	cells    *goquery.Selection
	headers  []string
	dateIdx  int
	dateCell string
}

// parse returns the observations of one row, `skip` is set for summary rows that are
// dropped without a diagnostic. Panics while reading the row are turned into errors so
// that one broken row never takes the page down with it.
func (r *tableRow) parse(page Page) (obs []chart.Observation, skip bool, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			obs = nil
			skip = false
			err = fmt.Errorf("panic while reading row: %v", recovered)
		}
	}()

	if r.dateIdx >= r.cells.Length() {
		return nil, false, fmt.Errorf("row has %d cells, no date column", r.cells.Length())
	}
	r.dateCell = htmlutil.SelectionText(r.cells.Eq(r.dateIdx))
	if _, isSummary := summaryRows[r.dateCell]; isSummary {
		return nil, true, nil
	}
	if !dateRegex.MatchString(r.dateCell) {
		return nil, false, fmt.Errorf("date cell does not match YYYY/MM/DD")
	}
	date, err := chart.ParseDate("2006/01/02", r.dateCell)
	if err != nil {
		return nil, false, fmt.Errorf("parse date: %w", err)
	}

	for col, region := range r.headers {
		if col == r.dateIdx || col >= r.cells.Length() {
			continue
		}
		rank, streams, err := parseCell(r.cells.Eq(col))
		if err != nil {
			return nil, false, fmt.Errorf("region %s: %w", region, err)
		}
		obs = append(obs, chart.Observation{
			Date:    date,
			TrackID: page.TrackID,
			Title:   page.Title,
			Artist:  page.Artist,
			Region:  region,
			Rank:    rank,
			Streams: streams,
			View:    page.View,
		})
	}

	return obs, false, nil
}

// parseCell reads the position (span.p) and stream count (span.s) of a region cell. The
// empty marker or a blank cell means both are absent, which is not the same as zero.
func parseCell(cell *goquery.Selection) (rank *int, streams *int64, err error) {
	text := htmlutil.SelectionText(cell)
	if text == "" || text == emptyCellMarker {
		return nil, nil, nil
	}

	positionSpan := cell.Find("span.p").First()
	if positionSpan.Length() > 0 {
		positionText := htmlutil.SelectionText(positionSpan)
		position, err := strconv.Atoi(positionText)
		if err != nil {
			return nil, nil, fmt.Errorf("malformed position %q", positionText)
		}
		if position <= 0 {
			return nil, nil, fmt.Errorf("position %d is not positive", position)
		}
		rank = &position
	}

	streamsSpan := cell.Find("span.s").First()
	if streamsSpan.Length() > 0 {
		streamsText := strings.ReplaceAll(htmlutil.SelectionText(streamsSpan), ",", "")
		if isDigits(streamsText) {
			count, err := strconv.ParseInt(streamsText, 10, 64)
			if err != nil {
				return nil, nil, fmt.Errorf("malformed stream count %q: %w", streamsText, err)
			}
			streams = &count
		}
	}

	return rank, streams, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
