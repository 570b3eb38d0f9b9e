package main

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/road-crawl-cli/internal/distribution"
	"github.com/sells-group/road-crawl-cli/internal/roadstats"
)

var (
	statsState  string
	statsCounty string
	statsOut    string
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Road business statistics",
}

var statsRebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Recompute road business stats and scores for a state",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("stats"); err != nil {
			return err
		}

		e, err := initEnv(ctx, false)
		if err != nil {
			return err
		}
		defer e.Close()

		rb := roadstats.NewRebuilder(e.Store, e.Engine, roadstats.Options{
			RadiusMeters: cfg.Scoring.RadiusMeters,
			Concurrency:  cfg.Stats.Concurrency,
			Calibration:  e.Calibration,
		})
		report, err := rb.Rebuild(ctx, strings.ToUpper(statsState), statsCounty)
		if err != nil {
			return err
		}

		zap.L().Info("stats rebuild complete",
			zap.String("state", report.StateCode),
			zap.Int("roads", report.Roads),
			zap.Int("written", report.Written),
			zap.Int("failures", len(report.Failures)),
			zap.String("thresholds", report.ThresholdsSource),
			zap.Duration("duration", report.Duration),
		)
		return printJSON(cmd.OutOrStdout(), report)
	},
}

var statsPercentilesCmd = &cobra.Command{
	Use:   "percentiles",
	Short: "Show a state's score distribution, highway breakdown, and buckets",
	Long:  "Computes the region distribution from cached stats. With --out the result is merged into a calibration YAML file.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate(""); err != nil {
			return err
		}

		e, err := initEnv(ctx, false)
		if err != nil {
			return err
		}
		defer e.Close()

		state := strings.ToUpper(statsState)
		rc, err := e.Service.Calibrate(ctx, state)
		if err != nil {
			return err
		}

		if statsOut != "" {
			if err := writeCalibration(statsOut, state, rc); err != nil {
				return err
			}
			zap.L().Info("calibration written",
				zap.String("path", statsOut),
				zap.String("state", state),
				zap.Int("roads", rc.Overall.N),
			)
		}
		return printJSON(cmd.OutOrStdout(), rc)
	},
}

// writeCalibration merges one region into the calibration file at path.
func writeCalibration(path, state string, rc distribution.RegionCalibration) error {
	cal, err := distribution.LoadCalibration(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		cal = &distribution.Calibration{}
	}
	cal.GeneratedAt = time.Now().UTC()
	cal.RadiusMeters = cfg.Scoring.RadiusMeters
	cal.Set(state, rc)
	return distribution.SaveCalibration(path, cal)
}

func init() {
	statsCmd.PersistentFlags().StringVar(&statsState, "state", "", "two-letter state code (required)")
	_ = statsCmd.MarkPersistentFlagRequired("state")
	statsRebuildCmd.Flags().StringVar(&statsCounty, "county", "", "limit the rebuild to one county FIPS code")
	statsPercentilesCmd.Flags().StringVar(&statsOut, "out", "", "write a calibration YAML file")
	statsCmd.AddCommand(statsRebuildCmd, statsPercentilesCmd)
	rootCmd.AddCommand(statsCmd)
}
