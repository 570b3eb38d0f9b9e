package main

import (
	"os"
	"slices"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/road-crawl-cli/internal/osmimport"
)

const importBatchSize = 1000

var importFile string

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import OSM roads or POIs from GeoJSON",
}

var importRoadsCmd = &cobra.Command{
	Use:   "roads",
	Short: "Upsert road segments from a GeoJSON LineString collection",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate(""); err != nil {
			return err
		}

		f, err := os.Open(importFile)
		if err != nil {
			return eris.Wrap(err, "open roads file")
		}
		defer f.Close() //nolint:errcheck

		roads, skips, err := osmimport.ReadRoads(f)
		if err != nil {
			return err
		}
		logSkips("road", skips)

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		total := 0
		for batch := range slices.Chunk(roads, importBatchSize) {
			n, err := st.UpsertRoads(ctx, batch)
			if err != nil {
				return eris.Wrap(err, "upsert roads")
			}
			total += n
		}

		zap.L().Info("road import complete",
			zap.String("file", importFile),
			zap.Int("upserted", total),
			zap.Int("skipped", len(skips)),
		)
		return nil
	},
}

var importPOIsCmd = &cobra.Command{
	Use:   "pois",
	Short: "Upsert business POIs from a GeoJSON Point collection",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate(""); err != nil {
			return err
		}

		f, err := os.Open(importFile)
		if err != nil {
			return eris.Wrap(err, "open pois file")
		}
		defer f.Close() //nolint:errcheck

		pois, skips, err := osmimport.ReadPOIs(f)
		if err != nil {
			return err
		}
		logSkips("poi", skips)

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		total := 0
		for batch := range slices.Chunk(pois, importBatchSize) {
			n, err := st.UpsertPOIs(ctx, batch)
			if err != nil {
				return eris.Wrap(err, "upsert pois")
			}
			total += n
		}

		zap.L().Info("poi import complete",
			zap.String("file", importFile),
			zap.Int("upserted", total),
			zap.Int("skipped", len(skips)),
		)
		return nil
	},
}

func logSkips(kind string, skips []osmimport.Skip) {
	for _, s := range skips {
		zap.L().Warn("skipped feature",
			zap.String("kind", kind),
			zap.Int("index", s.Index),
			zap.Int64("osm_id", s.OSMID),
			zap.String("reason", s.Reason),
		)
	}
}

func init() {
	importCmd.PersistentFlags().StringVar(&importFile, "file", "", "path to GeoJSON file (required)")
	_ = importCmd.MarkPersistentFlagRequired("file")
	importCmd.AddCommand(importRoadsCmd, importPOIsCmd)
	rootCmd.AddCommand(importCmd)
}
