// Package tabular reads and writes the CSV files observations travel in.
package tabular

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"spotify-charts/internal/aggregate"
	"spotify-charts/internal/chart"
	"spotify-charts/lib/textutil"
	"strconv"
	"strings"
)

const utf8BOM = "\ufeff"

// Header of the aggregated dataset, absent ranks and stream counts are empty cells.
var Header = []string{
	"date",
	"track_id",
	"title",
	"artist",
	"region",
	"view",
	"rank",
	"streams",
	"stream_delta",
	"stream_percent_change",
	"day_of_week",
	"is_weekend",
}

func formatOptionalInt[T int | int64](v *T) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(int64(*v), 10)
}

// Write writes the table as UTF-8 CSV prefixed with a byte order mark.
func Write(w io.Writer, table aggregate.Table) error {
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return err
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(Header); err != nil {
		return err
	}
	for _, row := range table {
		err := writer.Write([]string{
			row.Date.String(),
			row.TrackID,
			row.Title,
			row.Artist,
			row.Region,
			row.View.String(),
			formatOptionalInt(row.Rank),
			formatOptionalInt(row.Streams),
			strconv.FormatInt(row.StreamDelta, 10),
			strconv.FormatFloat(row.StreamPercentChange, 'f', -1, 64),
			row.DayOfWeek,
			strconv.FormatBool(row.IsWeekend),
		})
		if err != nil {
			return fmt.Errorf("write %s %s %s: %w", row.TrackID, row.Region, row.Date, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteFile writes the table to `path`, replacing the file if it exists.
func WriteFile(path string, table aggregate.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(f, table); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// newReader strips the byte order mark in front of the header if there is one.
func newReader(r io.Reader) (*csv.Reader, error) {
	buffered := bufio.NewReader(r)
	prefix, err := buffered.Peek(len(utf8BOM))
	if err == nil && string(prefix) == utf8BOM {
		if _, err := buffered.Discard(len(utf8BOM)); err != nil {
			return nil, err
		}
	}
	reader := csv.NewReader(buffered)
	reader.FieldsPerRecord = -1
	return reader, nil
}

func columnIndex(header []string) map[string]int {
	index := map[string]int{}
	for i, name := range header {
		index[textutil.NormalizeName(name)] = i
	}
	return index
}

func parseOptionalInt(value string) (*int64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// Read reads a file written by Write back into observations, the derived columns are
// ignored since they are recomputed on aggregation.
func Read(r io.Reader) ([]chart.Observation, error) {
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
	for _, column := range []string{"date", "track_id", "title", "artist", "region", "view", "rank", "streams"} {
		if _, ok := index[column]; !ok {
			return nil, fmt.Errorf("missing column '%s'", column)
		}
	}

	var out []chart.Observation
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if len(record) < len(header) {
			return nil, fmt.Errorf("line %d: expected %d fields, got %d", line, len(header), len(record))
		}

		o, err := readObservation(record, index)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, o)
	}
	return out, nil
}

func readObservation(record []string, index map[string]int) (chart.Observation, error) {
	date, err := chart.ParseISODate(record[index["date"]])
	if err != nil {
		return chart.Observation{}, fmt.Errorf("parse date: %w", err)
	}
	view, err := chart.ParseView(record[index["view"]])
	if err != nil {
		return chart.Observation{}, err
	}
	rank, err := parseOptionalInt(record[index["rank"]])
	if err != nil {
		return chart.Observation{}, fmt.Errorf("parse rank: %w", err)
	}
	streams, err := parseOptionalInt(record[index["streams"]])
	if err != nil {
		return chart.Observation{}, fmt.Errorf("parse streams: %w", err)
	}

	o := chart.Observation{
		Date:    date,
		TrackID: record[index["track_id"]],
		Title:   record[index["title"]],
		Artist:  record[index["artist"]],
		Region:  record[index["region"]],
		Streams: streams,
		View:    view,
	}
	if rank != nil {
		o.Rank = chart.IntPtr(int(*rank))
	}
	return o, nil
}

// ReadFile reads a file written by WriteFile.
func ReadFile(path string) ([]chart.Observation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	obs, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return obs, nil
}
