package tabular

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"spotify-charts/internal/catalog"
	"spotify-charts/internal/chart"
	"spotify-charts/internal/components/telemetry"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

const (
	report_official_row  = "official.row"
	report_official_file = "official.file"
)

var (
	officialNameRegex = regexp.MustCompile(`regional-([a-z]+)-(daily|weekly)-(\d{4}-\d{2}-\d{2})`)
	fileDateRegex     = regexp.MustCompile(`(\d{4}-\d{2}-\d{2})`)
)

// OfficialFile describes a chart export downloaded from the official charts site, the
// date, region and view of its rows are only known from its file name.
type OfficialFile struct {
	Path   string
	Date   chart.Date
	Region string
	View   chart.View
}

// ParseOfficialName reads `regional-<region>-<daily|weekly>-YYYY-MM-DD.csv`. Any other
// name containing a YYYY-MM-DD date is accepted as a daily global chart.
func ParseOfficialName(path string) (OfficialFile, error) {
	base := strings.ToLower(filepath.Base(path))
	file := OfficialFile{
		Path:   path,
		Region: chart.GlobalRegion,
		View:   chart.VIEW_DAILY,
	}

	if groups := officialNameRegex.FindStringSubmatch(base); groups != nil {
		date, err := chart.ParseISODate(groups[3])
		if err != nil {
			return OfficialFile{}, fmt.Errorf("%s: %w", path, err)
		}
		view, err := chart.ParseView(groups[2])
		if err != nil {
			return OfficialFile{}, fmt.Errorf("%s: %w", path, err)
		}
		file.Date = date
		file.View = view
		file.Region = regionName(groups[1])
		return file, nil
	}

	groups := fileDateRegex.FindStringSubmatch(base)
	if groups == nil {
		return OfficialFile{}, fmt.Errorf("%s: no YYYY-MM-DD date in file name", path)
	}
	date, err := chart.ParseISODate(groups[1])
	if err != nil {
		return OfficialFile{}, fmt.Errorf("%s: %w", path, err)
	}
	file.Date = date
	return file, nil
}

func regionName(code string) string {
	if code == "global" {
		return chart.GlobalRegion
	}
	return strings.ToUpper(code)
}

// ReadOfficial reads the rows of one official chart export. Rows that cannot be read are
// reported and skipped, only a broken header fails the whole file.
func ReadOfficial(r io.Reader, file OfficialFile, tel telemetry.API) ([]chart.Observation, error) {
	reader, err := newReader(r)
	if err != nil {
		return nil, err
	}
	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	index := columnIndex(header)
	for _, column := range []string{"rank", "uri", "artist_names", "track_name", "streams"} {
		if _, ok := index[column]; !ok {
			return nil, fmt.Errorf("%s: missing column '%s'", file.Path, column)
		}
	}

	var out []chart.Observation
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			tel.ReportWarning(report_official_row, err, file.Path, line)
			continue
		}
		if len(record) < len(header) {
			tel.ReportWarning(report_official_row, fmt.Errorf("expected %d fields, got %d", len(header), len(record)), file.Path, line)
			continue
		}

		o, err := readOfficialRow(record, index, file)
		if err != nil {
			tel.ReportWarning(report_official_row, err, file.Path, line)
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

func readOfficialRow(record []string, index map[string]int, file OfficialFile) (chart.Observation, error) {
	trackID, err := catalog.TrackIDFromURL(record[index["uri"]])
	if err != nil {
		return chart.Observation{}, err
	}
	rank, err := strconv.Atoi(strings.TrimSpace(record[index["rank"]]))
	if err != nil {
		return chart.Observation{}, fmt.Errorf("parse rank: %w", err)
	}
	if rank <= 0 {
		return chart.Observation{}, fmt.Errorf("rank %d is not positive", rank)
	}
	streams, err := parseOptionalInt(strings.ReplaceAll(record[index["streams"]], ",", ""))
	if err != nil {
		return chart.Observation{}, fmt.Errorf("parse streams: %w", err)
	}

	return chart.Observation{
		Date:    file.Date,
		TrackID: trackID,
		Title:   record[index["track_name"]],
		Artist:  record[index["artist_names"]],
		Region:  file.Region,
		Rank:    &rank,
		Streams: streams,
		View:    file.View,
	}, nil
}

// ReadOfficialFiles expands every glob pattern and reads the matching exports in name
// order. Files that cannot be read are reported and skipped.
func ReadOfficialFiles(tel telemetry.API, patterns ...string) ([]chart.Observation, error) {
	tel = telemetry.NewScopedAPI("tabular", tel)

	var paths []string
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("glob '%s': %w", pattern, err)
		}
		paths = append(paths, matches...)
	}
	paths = lo.Uniq(paths)
	sort.Strings(paths)

	var out []chart.Observation
	for _, path := range paths {
		obs, err := readOfficialFile(path, tel)
		if err != nil {
			tel.ReportWarning(report_official_file, err, path)
			continue
		}
		tel.ReportDebug("read official chart", path, len(obs))
		out = append(out, obs...)
	}
	return out, nil
}

func readOfficialFile(path string, tel telemetry.API) ([]chart.Observation, error) {
	file, err := ParseOfficialName(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadOfficial(f, file, tel)
}
