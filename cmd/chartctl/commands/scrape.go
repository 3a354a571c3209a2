package commands

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"spotify-charts/internal/aggregate"
	"spotify-charts/internal/catalog"
	"spotify-charts/internal/chart"
	"spotify-charts/internal/scrapers/kworb"
	"spotify-charts/internal/store"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/samber/lo"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var (
	scrapeView       string
	scrapeTracksFile string
	scrapePlaylist   string
	scrapeSearch     []string
	scrapeWorkers    int
	scrapeDelay      time.Duration
	scrapeStrict     bool
	scrapeResume     bool
	scrapeOut        string
	scrapeDumpDir    string
	scrapeFilter     *filterFlags
)

func init() {
	scrapeCmd.Flags().StringVar(&scrapeView, "view", "both", "Chart view to scrape: daily, weekly or both.")
	scrapeCmd.Flags().StringVar(&scrapeTracksFile, "tracks-file", "", "File with one track id or url per line.")
	scrapeCmd.Flags().StringVar(&scrapePlaylist, "playlist", "", "Scrape every track of a spotify playlist (needs SPOTIFY_CLIENT_ID and SPOTIFY_CLIENT_SECRET).")
	scrapeCmd.Flags().StringArrayVar(&scrapeSearch, "search", nil, "Scrape the track found for 'artist - title' in the spotify catalog, repeat the flag for more.")
	scrapeCmd.Flags().IntVar(&scrapeWorkers, "workers", 1, "Number of tracks fetched at the same time.")
	scrapeCmd.Flags().DurationVar(&scrapeDelay, "delay", kworb.DefaultDelay, "Delay after every request.")
	scrapeCmd.Flags().BoolVar(&scrapeStrict, "strict", false, "Reject pages without the container of the requested view.")
	scrapeCmd.Flags().BoolVar(&scrapeResume, "resume", false, "Skip tracks the database already has for every requested view.")
	scrapeCmd.Flags().StringVar(&scrapeDumpDir, "dump-dir", "", "Keep a copy of every fetched page in this directory.")
	scrapeCmd.Flags().StringVarP(&scrapeOut, "out", "o", "", "Output CSV, named after the view and the date by default.")
	scrapeFilter = addFilterFlags(scrapeCmd)
	rootCmd.AddCommand(scrapeCmd)
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape [track id or url...]",
	Short: "Scrapes the kworb chart history of tracks and writes the aggregated rows to a CSV.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e := envOf(cmd)

		views, err := chart.ParseViews(scrapeView)
		if err != nil {
			return err
		}
		filter, err := scrapeFilter.build(cmd)
		if err != nil {
			return err
		}
		requested, err := collectTracks(ctx, e, args)
		if err != nil {
			return err
		}
		if len(requested) == 0 {
			return fmt.Errorf("no tracks given, pass track ids, --tracks-file, --playlist, --search or set tracks in %s", defaultConfigName)
		}

		opts, err := e.cfg.ClientOptions()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("delay") {
			opts.Delay = scrapeDelay
		}
		opts.DumpDir = scrapeDumpDir
		workers := e.cfg.Workers
		if cmd.Flags().Changed("workers") || workers < 1 {
			workers = scrapeWorkers
		}

		client, err := kworb.NewClient(opts, e.clock, e.tel)
		if err != nil {
			return err
		}
		parser := kworb.NewParser(kworb.ParseOptions{Strict: e.cfg.StrictContainer || scrapeStrict}, e.tel)
		batch := kworb.NewBatch(client, parser, workers, e.tel)

		var checkpoints *store.Store
		trackIDs := requested
		if e.cfg.Database.Enabled() {
			s, err := e.openStore()
			if err != nil {
				return err
			}
			defer s.Close()
			checkpoints = &s

			if scrapeResume {
				completed, err := s.Completed(ctx, views)
				if err != nil {
					return fmt.Errorf("read completed tracks: %w", err)
				}
				trackIDs = lo.Without(requested, completed...)
				fmt.Fprintf(os.Stderr, "resuming, %d of %d tracks already done\n", len(requested)-len(trackIDs), len(requested))
			}

			batch.OnTrack = func(ctx context.Context, trackID string, obs []chart.Observation) error {
				return s.Upsert(ctx, obs)
			}
		} else if scrapeResume {
			return fmt.Errorf("--resume needs a database, set database.file or database.url in %s", defaultConfigName)
		}

		bar := progressbar.NewOptions(
			len(trackIDs)*len(views),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription("scraping"),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
		batch.OnItem = func(item kworb.ItemResult) {
			bar.Add(1)
			if checkpoints == nil {
				return
			}
			record := store.FetchRecord{
				TrackID:      item.TrackID,
				View:         item.View,
				Status:       item.Status,
				Observations: item.Observations,
			}
			if item.Err != nil {
				record.Err = item.Err.Error()
			}
			if err := checkpoints.RecordFetch(context.WithoutCancel(ctx), record); err != nil {
				e.tel.ReportBroken("scrape.record_fetch", err, item.TrackID)
			}
		}

		result := batch.Run(ctx, trackIDs, views)
		bar.Finish()
		printBatchSummary(result)

		observations := result.Observations
		if checkpoints != nil {
			observations, err = checkpoints.Load(context.WithoutCancel(ctx), requested...)
			if err != nil {
				return fmt.Errorf("load checkpointed observations: %w", err)
			}
		}

		rows := e.applyFilter(aggregate.Aggregate(observations), filter)
		out := scrapeOut
		if out == "" {
			out = outputName("kworb", scrapeView, e.clock.Now().Format("2006-01-02"))
		}
		if err := writeOutput(out, rows); err != nil {
			return err
		}

		if result.Canceled {
			return fmt.Errorf("interrupted after %d of %d items", len(result.Items), len(trackIDs)*len(views))
		}
		return nil
	},
}

// collectTracks gathers track ids from the arguments, the tracks file, the playlist, the
// catalog searches and the config, in that order. Entries that are not track ids or urls are skipped.
func collectTracks(ctx context.Context, e *env, args []string) ([]string, error) {
	var refs []string
	refs = append(refs, args...)

	if scrapeTracksFile != "" {
		f, err := os.Open(scrapeTracksFile)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			refs = append(refs, line)
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read %s: %w", scrapeTracksFile, err)
		}
	}

	if scrapePlaylist != "" || len(scrapeSearch) > 0 {
		client, err := newCatalogClient(ctx, e.tel)
		if err != nil {
			return nil, err
		}
		if scrapePlaylist != "" {
			playlist, err := client.PlaylistTracks(ctx, scrapePlaylist)
			if err != nil {
				return nil, err
			}
			for _, t := range playlist.Tracks {
				refs = append(refs, t.ID)
			}
		}
		found, err := searchTracks(ctx, client, e.tel, scrapeSearch)
		if err != nil {
			return nil, err
		}
		for _, t := range found {
			refs = append(refs, t.ID)
		}
	}

	if len(refs) == 0 {
		refs = e.cfg.Tracks
	}

	var ids []string
	for _, ref := range refs {
		id, err := catalog.TrackIDFromURL(ref)
		if err != nil {
			e.tel.ReportWarning("scrape.track", err, ref)
			continue
		}
		ids = append(ids, id)
	}
	return lo.Uniq(ids), nil
}

func printBatchSummary(result kworb.BatchResult) {
	failed := lo.Filter(result.Items, func(item kworb.ItemResult, _ int) bool {
		return !item.OK()
	})
	fallbacks := lo.CountBy(result.Items, func(item kworb.ItemResult) bool {
		return item.UsedFallback
	})
	diagnostics := lo.SumBy(result.Items, func(item kworb.ItemResult) int {
		return len(item.Diagnostics)
	})

	if len(failed) > 0 {
		t := NewTable()
		t.AppendHeader(table.Row{"Track", "View", "Status", "Error"})
		for _, item := range failed {
			t.AppendRow(table.Row{item.TrackID, item.View, item.Status, item.Err})
		}
		t.Render()
	}

	t := NewTable()
	t.AppendHeader(table.Row{"Succeeded", "Failed", "Observations", "Skipped rows", "Fallback pages"})
	t.AppendRow(table.Row{result.Succeeded(), result.Failed(), len(result.Observations), diagnostics, fallbacks})
	t.Render()
}
