package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"
	"github.com/zmb3/spotify/v2"
)

const (
	report_catalog_search = "catalog.search"
)

// DefaultMarket is used for top tracks when no market is given.
const DefaultMarket = "US"

var ErrTrackNotFound = errors.New("no track matches")

// Track returns a single track, including its current popularity.
func (c *Client) Track(ctx context.Context, track string) (Track, error) {
	trackID, err := TrackIDFromURL(track)
	if err != nil {
		return Track{}, err
	}
	full, err := c.api.GetTrack(ctx, spotify.ID(trackID))
	if err != nil {
		return Track{}, fmt.Errorf("get track %s: %w", trackID, err)
	}
	return trackOf(*full), nil
}

func searchQuery(artist, title string) string {
	var filters []string
	if artist = strings.TrimSpace(artist); artist != "" {
		filters = append(filters, fmt.Sprintf("artist:%q", artist))
	}
	if title = strings.TrimSpace(title); title != "" {
		filters = append(filters, fmt.Sprintf("track:%q", title))
	}
	return strings.Join(filters, " ")
}

// SearchTrack looks a track up by artist and title. Among the hits a case insensitive
// title match wins over the search ranking, so "TAKEDOWN" is not shadowed by
// "TAKEDOWN (Instrumental)". ErrTrackNotFound is returned when nothing comes back.
func (c *Client) SearchTrack(ctx context.Context, artist, title string) (Track, error) {
	query := searchQuery(artist, title)
	if query == "" {
		return Track{}, fmt.Errorf("search needs an artist or a title")
	}

	result, err := c.api.Search(ctx, query, spotify.SearchTypeTrack, spotify.Limit(10))
	if err != nil {
		c.tel.ReportWarning(report_catalog_search, err, query)
		return Track{}, fmt.Errorf("search '%s': %w", query, err)
	}
	if result.Tracks == nil || len(result.Tracks.Tracks) == 0 {
		return Track{}, fmt.Errorf("search '%s': %w", query, ErrTrackNotFound)
	}

	hits := lo.Map(result.Tracks.Tracks, func(t spotify.FullTrack, _ int) Track {
		return trackOf(t)
	})
	exact, ok := lo.Find(hits, func(t Track) bool {
		return strings.EqualFold(t.Name, strings.TrimSpace(title))
	})
	if ok {
		return exact, nil
	}
	c.tel.ReportDebug("no exact title match, using the first hit", query, hits[0].Name)
	return hits[0], nil
}

// ArtistTopTracks returns the top tracks of an artist in a market (ISO 3166 country
// code), DefaultMarket when empty.
func (c *Client) ArtistTopTracks(ctx context.Context, artist, market string) ([]Track, error) {
	artistID, err := ArtistIDFromURL(artist)
	if err != nil {
		return nil, err
	}
	if market == "" {
		market = DefaultMarket
	}
	tracks, err := c.api.GetArtistsTopTracks(ctx, spotify.ID(artistID), market)
	if err != nil {
		return nil, fmt.Errorf("get top tracks of %s: %w", artistID, err)
	}
	return lo.Map(tracks, func(t spotify.FullTrack, _ int) Track {
		return trackOf(t)
	}), nil
}

// SplitSearch splits an "artist - title" reference on the first " - ".
func SplitSearch(ref string) (artist, title string, err error) {
	artist, title, ok := strings.Cut(ref, " - ")
	artist = strings.TrimSpace(artist)
	title = strings.TrimSpace(title)
	if !ok || artist == "" || title == "" {
		return "", "", fmt.Errorf("'%s' is not of the form 'artist - title'", ref)
	}
	return artist, title, nil
}
