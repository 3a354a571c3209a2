package commands

import (
	"context"
	"fmt"
	"os"
	"spotify-charts/internal/catalog"
	"spotify-charts/internal/components/telemetry"
	"spotify-charts/lib/configutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	catalogOut    string
	catalogIDs    bool
	catalogMarket string
)

func init() {
	catalogCmd.PersistentFlags().StringVarP(&catalogOut, "out", "o", "", "Write the track info CSV here, named after what was listed by default.")
	catalogCmd.PersistentFlags().BoolVar(&catalogIDs, "ids", false, "Only print the track ids, one per line.")
	catalogTopTracksCmd.Flags().StringVar(&catalogMarket, "market", catalog.DefaultMarket, "Country code the top tracks are ranked in.")

	catalogCmd.AddCommand(catalogPlaylistCmd)
	catalogCmd.AddCommand(catalogTrackCmd)
	catalogCmd.AddCommand(catalogSearchCmd)
	catalogCmd.AddCommand(catalogTopTracksCmd)
	rootCmd.AddCommand(catalogCmd)
}

func newCatalogClient(ctx context.Context, tel telemetry.API) (*catalog.Client, error) {
	secrets, err := configutil.RequireEnv("SPOTIFY_CLIENT_ID", "SPOTIFY_CLIENT_SECRET")
	if err != nil {
		return nil, err
	}
	return catalog.NewClient(ctx, catalog.Credentials{
		ClientID:     secrets[0],
		ClientSecret: secrets[1],
	}, tel), nil
}

// printTracks prints the tracks as a table (or only their ids with --ids) and writes
// the track info CSV.
func printTracks(title string, tracks []catalog.Track, defaultOut ...string) error {
	if catalogIDs {
		for _, t := range tracks {
			fmt.Println(t.ID)
		}
		return nil
	}

	t := NewTable()
	t.SetTitle(title)
	t.AppendHeader(table.Row{"#", "Name", "Artists", "Duration", "Popularity", "ID"})
	for i, track := range tracks {
		t.AppendRow(table.Row{
			i + 1,
			track.Name,
			track.ArtistNames(),
			catalog.FormatDuration(track.Duration),
			track.Popularity,
			track.ID,
		})
	}
	t.Render()

	out := catalogOut
	if out == "" {
		out = outputName(defaultOut...)
	}
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	if err := catalog.WriteTrackInfo(f, tracks); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", out, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Printf("wrote %d tracks to %s\n", len(tracks), out)
	return nil
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Looks tracks up in the spotify catalog (needs SPOTIFY_CLIENT_ID and SPOTIFY_CLIENT_SECRET).",
}

var catalogPlaylistCmd = &cobra.Command{
	Use:   "playlist <playlist id or url>",
	Short: "Lists the tracks of a playlist and writes their info to a CSV.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		client, err := newCatalogClient(ctx, envOf(cmd).tel)
		if err != nil {
			return err
		}
		playlist, err := client.PlaylistTracks(ctx, args[0])
		if err != nil {
			return err
		}
		return printTracks(playlist.Name, playlist.Tracks, playlist.Name, "tracks")
	},
}

var catalogTrackCmd = &cobra.Command{
	Use:   "track <track id or url...>",
	Short: "Shows tracks with their current popularity.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		client, err := newCatalogClient(ctx, envOf(cmd).tel)
		if err != nil {
			return err
		}
		var tracks []catalog.Track
		for _, ref := range args {
			track, err := client.Track(ctx, ref)
			if err != nil {
				return err
			}
			tracks = append(tracks, track)
		}
		return printTracks("tracks", tracks, "tracks")
	},
}

var catalogSearchCmd = &cobra.Command{
	Use:   "search <'artist - title'...>",
	Short: "Finds the track id of songs by artist and title, e.g. 'TWICE - Strategy'.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e := envOf(cmd)
		client, err := newCatalogClient(ctx, e.tel)
		if err != nil {
			return err
		}
		tracks, err := searchTracks(ctx, client, e.tel, args)
		if err != nil {
			return err
		}
		if len(tracks) == 0 {
			fmt.Println("no data")
			return nil
		}
		return printTracks("search", tracks, "search")
	},
}

var catalogTopTracksCmd = &cobra.Command{
	Use:   "top-tracks <artist id or url>",
	Short: "Lists the top tracks of an artist.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		client, err := newCatalogClient(ctx, envOf(cmd).tel)
		if err != nil {
			return err
		}
		tracks, err := client.ArtistTopTracks(ctx, args[0], catalogMarket)
		if err != nil {
			return err
		}
		return printTracks("top tracks", tracks, "top-tracks", catalogMarket)
	},
}

// searchTracks resolves 'artist - title' references, the ones nothing matches are
// reported and skipped.
func searchTracks(ctx context.Context, client *catalog.Client, tel telemetry.API, refs []string) ([]catalog.Track, error) {
	var out []catalog.Track
	for _, ref := range refs {
		artist, title, err := catalog.SplitSearch(ref)
		if err != nil {
			return nil, err
		}
		track, err := client.SearchTrack(ctx, artist, title)
		if err != nil {
			tel.ReportWarning("catalog.search", err, ref)
			continue
		}
		out = append(out, track)
	}
	return out, nil
}
