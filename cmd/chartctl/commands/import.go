package commands

import (
	"fmt"
	"spotify-charts/internal/aggregate"
	"spotify-charts/internal/tabular"

	"github.com/spf13/cobra"
)

var (
	importOut    string
	importStore  bool
	importFilter *filterFlags
)

func init() {
	importCmd.Flags().StringVarP(&importOut, "out", "o", "official-charts.csv", "Output CSV.")
	importCmd.Flags().BoolVar(&importStore, "store", false, "Also write the imported observations to the configured database.")
	importFilter = addFilterFlags(importCmd)
	rootCmd.AddCommand(importCmd)
}

var importCmd = &cobra.Command{
	Use:   "import <glob...>",
	Short: "Imports official spotify chart CSV exports, e.g. 'downloads/regional-global-daily-*.csv'.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e := envOf(cmd)
		filter, err := importFilter.build(cmd)
		if err != nil {
			return err
		}

		obs, err := tabular.ReadOfficialFiles(e.tel, args...)
		if err != nil {
			return err
		}
		fmt.Printf("read %d observations\n", len(obs))

		if importStore {
			s, err := e.openStore()
			if err != nil {
				return err
			}
			defer s.Close()
			if err := s.Upsert(cmd.Context(), obs); err != nil {
				return fmt.Errorf("store observations: %w", err)
			}
		}

		return writeOutput(importOut, e.applyFilter(aggregate.Aggregate(obs), filter))
	},
}
