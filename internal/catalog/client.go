// Package catalog reads track metadata out of the Spotify Web API.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"spotify-charts/internal/components/assert"
	"spotify-charts/internal/components/telemetry"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	report_catalog_playlist = "catalog.playlist"
)

// Credentials of a Spotify app, they are read from the environment and never from config
// files.
type Credentials struct {
	ClientID     string
	ClientSecret string
	// TokenURL defaults to the accounts service of Spotify.
	TokenURL string
}

type Track struct {
	ID       string
	Name     string
	Artists  []string
	Album    string
	Duration time.Duration
	// Popularity is Spotify's 0 to 100 score, recent plays weigh the most.
	Popularity int
}

// ArtistNames joins the artists the way they are displayed on charts.
func (t Track) ArtistNames() string {
	return strings.Join(t.Artists, ", ")
}

type Playlist struct {
	ID     string
	Name   string
	Tracks []Track
}

type Client struct {
	api *spotify.Client
	tel telemetry.API
}

// NewClient returns a client authenticated with the client credentials flow, tokens are
// fetched lazily and refreshed when they expire.
func NewClient(ctx context.Context, creds Credentials, tel telemetry.API, opts ...spotify.ClientOption) *Client {
	assert.NotEmptyStr(creds.ClientID)
	assert.NotEmptyStr(creds.ClientSecret)

	tokenURL := creds.TokenURL
	if tokenURL == "" {
		tokenURL = spotifyauth.TokenURL
	}
	config := &clientcredentials.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		TokenURL:     tokenURL,
	}
	return NewClientWithHTTP(config.Client(ctx), tel, opts...)
}

// NewClientWithHTTP uses an already authenticated http client.
func NewClientWithHTTP(httpClient *http.Client, tel telemetry.API, opts ...spotify.ClientOption) *Client {
	assert.NotNil(httpClient)
	assert.NotNil(tel)
	return &Client{
		api: spotify.New(httpClient, opts...),
		tel: telemetry.NewScopedAPI("catalog", tel),
	}
}

// PlaylistTracks returns the playlist and every track on it, following the pagination
// until the last page. Local files and removed tracks are skipped.
func (c *Client) PlaylistTracks(ctx context.Context, playlist string) (Playlist, error) {
	playlistID, err := PlaylistIDFromURL(playlist)
	if err != nil {
		return Playlist{}, err
	}

	full, err := c.api.GetPlaylist(ctx, spotify.ID(playlistID))
	if err != nil {
		return Playlist{}, fmt.Errorf("get playlist %s: %w", playlistID, err)
	}

	out := Playlist{ID: playlistID, Name: full.Name}
	for page := 1; ; page++ {
		for _, item := range full.Tracks.Tracks {
			if item.IsLocal || item.Track.ID == "" {
				c.tel.ReportDebug("skipping playlist item without a track id", playlistID, item.Track.Name)
				continue
			}
			out.Tracks = append(out.Tracks, trackOf(item.Track))
		}

		err = c.api.NextPage(ctx, &full.Tracks)
		if errors.Is(err, spotify.ErrNoMorePages) {
			break
		}
		if err != nil {
			c.tel.ReportWarning(report_catalog_playlist, err, playlistID, page)
			return Playlist{}, fmt.Errorf("get playlist %s page %d: %w", playlistID, page+1, err)
		}
	}

	c.tel.ReportDebug("read playlist", playlistID, out.Name, len(out.Tracks))
	return out, nil
}

func trackOf(t spotify.FullTrack) Track {
	return Track{
		ID:   string(t.ID),
		Name: t.Name,
		Artists: lo.Map(t.Artists, func(a spotify.SimpleArtist, _ int) string {
			return a.Name
		}),
		Album:      t.Album.Name,
		Duration:   time.Duration(t.Duration) * time.Millisecond,
		Popularity: int(t.Popularity),
	}
}
