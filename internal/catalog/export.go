package catalog

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"
)

// FormatDuration renders a duration as m:ss, rounding to the closest second.
func FormatDuration(d time.Duration) string {
	seconds := roundSeconds(d)
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

func roundSeconds(d time.Duration) int64 {
	return int64(math.RoundToEven(d.Seconds()))
}

const utf8BOM = "\ufeff"

var trackInfoHeader = []string{
	"name",
	"artist_names",
	"duration_s",
	"duration_min",
	"duration_mm_ss",
	"popularity",
	"id",
}

// WriteTrackInfo writes one row per track as UTF-8 CSV with a byte order mark, so that
// spreadsheet tools keep non-ASCII titles intact.
func WriteTrackInfo(w io.Writer, tracks []Track) error {
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return err
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(trackInfoHeader); err != nil {
		return err
	}
	for _, t := range tracks {
		seconds := roundSeconds(t.Duration)
		err := writer.Write([]string{
			t.Name,
			t.ArtistNames(),
			strconv.FormatInt(seconds, 10),
			strconv.FormatFloat(float64(seconds)/60, 'f', 2, 64),
			FormatDuration(t.Duration),
			strconv.Itoa(t.Popularity),
			t.ID,
		})
		if err != nil {
			return fmt.Errorf("write track %s: %w", t.ID, err)
		}
	}
	writer.Flush()
	return writer.Error()
}
