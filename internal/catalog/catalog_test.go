package catalog

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"spotify-charts/internal/components/telemetry"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/zmb3/spotify/v2"
)

func TestTrackIDFromURL(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
		fails    bool
	}{
		{input: "https://open.spotify.com/track/19GxfaRs5KdurzPKLVX3Cq", expected: "19GxfaRs5KdurzPKLVX3Cq"},
		{input: "https://open.spotify.com/track/19GxfaRs5KdurzPKLVX3Cq?si=abcdef", expected: "19GxfaRs5KdurzPKLVX3Cq"},
		{input: "https://open.spotify.com/intl-ko/track/19GxfaRs5KdurzPKLVX3Cq", expected: "19GxfaRs5KdurzPKLVX3Cq"},
		{input: "spotify:track:19GxfaRs5KdurzPKLVX3Cq", expected: "19GxfaRs5KdurzPKLVX3Cq"},
		{input: " 19GxfaRs5KdurzPKLVX3Cq ", expected: "19GxfaRs5KdurzPKLVX3Cq"},
		{input: "spotify:album:19GxfaRs5KdurzPKLVX3Cq", fails: true},
		{input: "https://open.spotify.com/album/19GxfaRs5KdurzPKLVX3Cq", fails: true},
		{input: "https://example.com/track/19GxfaRs5KdurzPKLVX3Cq", fails: true},
		{input: "not-an-id", fails: true},
		{input: "", fails: true},
	}

	for _, test := range testCases {
		id, err := TrackIDFromURL(test.input)
		if test.fails {
			require.Error(t, err, test.input)
			continue
		}
		require.NoError(t, err, test.input)
		require.Equal(t, test.expected, id, test.input)
	}

	id, err := PlaylistIDFromURL("https://open.spotify.com/playlist/37i9dQZEVXbMDoHDwVN2tF")
	require.NoError(t, err)
	require.Equal(t, "37i9dQZEVXbMDoHDwVN2tF", id)
}

func TestFormatDuration(t *testing.T) {
	require.Equal(t, "3:05", FormatDuration(184_600*time.Millisecond))
	require.Equal(t, "0:00", FormatDuration(0))
	require.Equal(t, "10:00", FormatDuration(599_700*time.Millisecond))
}

func TestWriteTrackInfo(t *testing.T) {
	buf := bytes.Buffer{}
	err := WriteTrackInfo(&buf, []Track{
		{
			ID:         "19GxfaRs5KdurzPKLVX3Cq",
			Name:       "TAKEDOWN (JEONGYEON, JIHYO, CHAEYOUNG)",
			Artists:    []string{"TWICE"},
			Duration:   180_000 * time.Millisecond,
			Popularity: 71,
		},
		{
			ID:       "5sdQOyqq2IDhvmx2lHOpwd",
			Name:     "골든",
			Artists:  []string{"HUNTR/X", "EJAE"},
			Duration: 194_400 * time.Millisecond,
		},
	})
	require.NoError(t, err)

	expected := "\ufeffname,artist_names,duration_s,duration_min,duration_mm_ss,popularity,id\n" +
		"\"TAKEDOWN (JEONGYEON, JIHYO, CHAEYOUNG)\",TWICE,180,3.00,3:00,71,19GxfaRs5KdurzPKLVX3Cq\n" +
		"골든,\"HUNTR/X, EJAE\",194,3.23,3:14,0,5sdQOyqq2IDhvmx2lHOpwd\n"
	require.Equal(t, expected, buf.String())
}

const playlistID = "37i9dQZEVXbMDoHDwVN2tF"

const (
	takedownID = "1rKQjUhF9zFJmuUotr3VkV"
	twiceID    = "7n2Ycct7Beij7Dj7meI4X0"
)

func fullTrackJSON(id, name string, durationMs, popularity int, artists ...string) string {
	var artistJSON []string
	for _, a := range artists {
		artistJSON = append(artistJSON, fmt.Sprintf(`{"name": %q}`, a))
	}
	return fmt.Sprintf(
		`{"id": %q, "name": %q, "duration_ms": %d, "popularity": %d, "album": {"name": "album"}, "artists": [%s]}`,
		id, name, durationMs, popularity, strings.Join(artistJSON, ","),
	)
}

// trackJSON is a playlist item.
func trackJSON(id, name string, durationMs int, artists ...string) string {
	return fmt.Sprintf(`{"track": %s}`, fullTrackJSON(id, name, durationMs, 0, artists...))
}

func newSpotifyServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	var server *httptest.Server

	mux.HandleFunc("/api/token", func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "client-id" || pass != "client-secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("content-type", "application/json")
		fmt.Fprint(w, `{"access_token": "token", "token_type": "Bearer", "expires_in": 3600}`)
	})
	mux.HandleFunc("/v1/playlists/"+playlistID, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("content-type", "application/json")
		fmt.Fprintf(w, `{
			"id": %q,
			"name": "Top 50 - Global",
			"tracks": {
				"total": 3,
				"limit": 2,
				"offset": 0,
				"next": %q,
				"items": [%s, %s]
			}
		}`,
			playlistID,
			server.URL+"/v1/playlists/"+playlistID+"/tracks?offset=2&limit=2",
			trackJSON("19GxfaRs5KdurzPKLVX3Cq", "TAKEDOWN", 180_000, "TWICE"),
			trackJSON("", "local file", 1000, "me"),
		)
	})
	mux.HandleFunc("/v1/playlists/"+playlistID+"/tracks", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("content-type", "application/json")
		fmt.Fprintf(w, `{"total": 3, "limit": 2, "offset": 2, "next": null, "items": [%s]}`,
			trackJSON("5sdQOyqq2IDhvmx2lHOpwd", "Golden", 194_400, "HUNTR/X", "EJAE"),
		)
	})

	mux.HandleFunc("/v1/tracks/"+takedownID, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("content-type", "application/json")
		fmt.Fprint(w, fullTrackJSON(takedownID, "TAKEDOWN (JEONGYEON, JIHYO, CHAEYOUNG)", 180_000, 71, "TWICE"))
	})
	mux.HandleFunc("/v1/search", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("content-type", "application/json")
		if r.URL.Query().Get("type") != "track" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if r.URL.Query().Get("q") != `artist:"TWICE" track:"TAKEDOWN (JEONGYEON, JIHYO, CHAEYOUNG)"` {
			fmt.Fprint(w, `{"tracks": {"total": 0, "limit": 10, "offset": 0, "items": []}}`)
			return
		}
		fmt.Fprintf(w, `{"tracks": {"total": 2, "limit": 10, "offset": 0, "items": [%s, %s]}}`,
			fullTrackJSON("4Qe1cRz2dW6Fh3i4PyRtVu", "TAKEDOWN (JEONGYEON, JIHYO, CHAEYOUNG) - Instrumental", 180_000, 30, "TWICE"),
			fullTrackJSON(takedownID, "Takedown (Jeongyeon, Jihyo, Chaeyoung)", 180_000, 71, "TWICE"),
		)
	})
	mux.HandleFunc("/v1/artists/"+twiceID+"/top-tracks", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("content-type", "application/json")
		if r.URL.Query().Get("country") != "US" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		fmt.Fprintf(w, `{"tracks": [%s, %s]}`,
			fullTrackJSON(takedownID, "TAKEDOWN (JEONGYEON, JIHYO, CHAEYOUNG)", 180_000, 71, "TWICE"),
			fullTrackJSON("5sdQOyqq2IDhvmx2lHOpwd", "Strategy", 160_000, 65, "TWICE", "Megan Thee Stallion"),
		)
	})

	server = httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestPlaylistTracks(t *testing.T) {
	server := newSpotifyServer(t)
	ctx := context.Background()

	client := NewClient(ctx, Credentials{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		TokenURL:     server.URL + "/api/token",
	}, &telemetry.Recorder{}, spotify.WithBaseURL(server.URL+"/v1/"))

	playlist, err := client.PlaylistTracks(ctx, "https://open.spotify.com/playlist/"+playlistID+"?si=x")
	require.NoError(t, err)
	require.Equal(t, "Top 50 - Global", playlist.Name)
	require.Equal(t, []Track{
		{
			ID:       "19GxfaRs5KdurzPKLVX3Cq",
			Name:     "TAKEDOWN",
			Artists:  []string{"TWICE"},
			Album:    "album",
			Duration: 3 * time.Minute,
		},
		{
			ID:       "5sdQOyqq2IDhvmx2lHOpwd",
			Name:     "Golden",
			Artists:  []string{"HUNTR/X", "EJAE"},
			Album:    "album",
			Duration: 194_400 * time.Millisecond,
		},
	}, playlist.Tracks)
	require.Equal(t, "HUNTR/X, EJAE", playlist.Tracks[1].ArtistNames())
}

func TestPlaylistTracksErrors(t *testing.T) {
	server := newSpotifyServer(t)
	ctx := context.Background()

	badCreds := NewClient(ctx, Credentials{
		ClientID:     "client-id",
		ClientSecret: "wrong",
		TokenURL:     server.URL + "/api/token",
	}, &telemetry.Recorder{}, spotify.WithBaseURL(server.URL+"/v1/"))
	_, err := badCreds.PlaylistTracks(ctx, playlistID)
	require.Error(t, err)

	client := NewClientWithHTTP(http.DefaultClient, &telemetry.Recorder{}, spotify.WithBaseURL(server.URL+"/v1/"))
	_, err = client.PlaylistTracks(ctx, "not a playlist")
	require.Error(t, err)
}

func newTestClient(t *testing.T) *Client {
	t.Helper()
	server := newSpotifyServer(t)
	return NewClient(context.Background(), Credentials{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		TokenURL:     server.URL + "/api/token",
	}, &telemetry.Recorder{}, spotify.WithBaseURL(server.URL+"/v1/"))
}

func TestTrackPopularity(t *testing.T) {
	client := newTestClient(t)

	track, err := client.Track(context.Background(), "spotify:track:"+takedownID)
	require.NoError(t, err)
	require.Equal(t, takedownID, track.ID)
	require.Equal(t, 71, track.Popularity)

	_, err = client.Track(context.Background(), "spotify:artist:"+twiceID)
	require.Error(t, err)
}

func TestSearchTrack(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	track, err := client.SearchTrack(ctx, "TWICE", " TAKEDOWN (JEONGYEON, JIHYO, CHAEYOUNG) ")
	require.NoError(t, err)
	require.Equal(t, takedownID, track.ID)
	require.Equal(t, 71, track.Popularity)

	_, err = client.SearchTrack(ctx, "TWICE", "Not A Song")
	require.ErrorIs(t, err, ErrTrackNotFound)

	_, err = client.SearchTrack(ctx, " ", "")
	require.Error(t, err)
}

func TestArtistTopTracks(t *testing.T) {
	client := newTestClient(t)

	tracks, err := client.ArtistTopTracks(context.Background(), "https://open.spotify.com/artist/"+twiceID, "")
	require.NoError(t, err)
	require.Len(t, tracks, 2)
	require.Equal(t, "TAKEDOWN (JEONGYEON, JIHYO, CHAEYOUNG)", tracks[0].Name)
	require.Equal(t, []string{"TWICE", "Megan Thee Stallion"}, tracks[1].Artists)
	require.Equal(t, 65, tracks[1].Popularity)

	_, err = client.ArtistTopTracks(context.Background(), twiceID, "KR")
	require.Error(t, err)
}

func TestSplitSearch(t *testing.T) {
	artist, title, err := SplitSearch("TWICE - TAKEDOWN (JEONGYEON, JIHYO, CHAEYOUNG)")
	require.NoError(t, err)
	require.Equal(t, "TWICE", artist)
	require.Equal(t, "TAKEDOWN (JEONGYEON, JIHYO, CHAEYOUNG)", title)

	artist, title, err = SplitSearch("HUNTR/X - Golden - Remix")
	require.NoError(t, err)
	require.Equal(t, "HUNTR/X", artist)
	require.Equal(t, "Golden - Remix", title)

	_, _, err = SplitSearch("Golden")
	require.Error(t, err)
	_, _, err = SplitSearch(" - Golden")
	require.Error(t, err)
}
