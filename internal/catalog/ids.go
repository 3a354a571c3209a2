package catalog

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var base62Regex = regexp.MustCompile(`^[0-9A-Za-z]{22}$`)

// parseID accepts a bare id, a `spotify:<kind>:<id>` uri or an
// `https://open.spotify.com/<kind>/<id>` url (with or without a locale segment).
func parseID(kind, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("empty %s reference", kind)
	}

	if strings.HasPrefix(value, "spotify:") {
		parts := strings.Split(value, ":")
		if len(parts) != 3 || parts[1] != kind {
			return "", fmt.Errorf("'%s' is not a %s uri", value, kind)
		}
		return validID(kind, parts[2])
	}

	if !strings.Contains(value, "/") {
		return validID(kind, value)
	}

	parsed, err := url.Parse(value)
	if err != nil {
		return "", fmt.Errorf("parse %s url: %w", kind, err)
	}
	if parsed.Host != "open.spotify.com" {
		return "", fmt.Errorf("'%s' is not an open.spotify.com url", value)
	}
	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	for i := 0; i+1 < len(segments); i++ {
		if segments[i] == kind {
			return validID(kind, segments[i+1])
		}
	}
	return "", fmt.Errorf("'%s' is not a %s url", value, kind)
}

func validID(kind, id string) (string, error) {
	if !base62Regex.MatchString(id) {
		return "", fmt.Errorf("'%s' is not a valid %s id", id, kind)
	}
	return id, nil
}

// TrackIDFromURL extracts the track id out of a track url, uri or bare id.
func TrackIDFromURL(value string) (string, error) {
	return parseID("track", value)
}

// PlaylistIDFromURL extracts the playlist id out of a playlist url, uri or bare id.
func PlaylistIDFromURL(value string) (string, error) {
	return parseID("playlist", value)
}

// ArtistIDFromURL extracts the artist id out of an artist url, uri or bare id.
func ArtistIDFromURL(value string) (string, error) {
	return parseID("artist", value)
}
