package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/road-crawl-cli/internal/monitoring"
)

var statusLookback int

type statusOutput struct {
	Snapshot *monitoring.MetricsSnapshot `json:"snapshot"`
	Alerts   []monitoring.Alert          `json:"alerts"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show crawl health, Places usage, and pending alerts",
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

		lookback := statusLookback
		if lookback <= 0 {
			lookback = cfg.Monitoring.LookbackWindowHours
		}

		collector := monitoring.NewCollector(e.Store, e.Costs, cfg.RateLimit.DailyLimit)
		snap, err := collector.Collect(ctx, lookback)
		if err != nil {
			return err
		}

		alerts := monitoring.NewAlerter(cfg.Monitoring).Evaluate(snap)
		if alerts == nil {
			alerts = []monitoring.Alert{}
		}
		return printJSON(cmd.OutOrStdout(), statusOutput{Snapshot: snap, Alerts: alerts})
	},
}

func init() {
	statusCmd.Flags().IntVar(&statusLookback, "lookback", 0, "lookback window in hours (default from config)")
	rootCmd.AddCommand(statusCmd)
}
