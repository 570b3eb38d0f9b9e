package main

import (
	"github.com/spf13/cobra"
)

var (
	scoreRoadID int64
	planRoadID  int64
	planKeyword string
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score one road segment",
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

		out, err := e.Service.GetRoadScore(ctx, scoreRoadID)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), out)
	},
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Print the crawl plan for one road segment",
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

		out, err := e.Service.GetCrawlPlan(ctx, planRoadID, planKeyword)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), out)
	},
}

func init() {
	scoreCmd.Flags().Int64Var(&scoreRoadID, "road", 0, "OSM way id (required)")
	_ = scoreCmd.MarkFlagRequired("road")
	planCmd.Flags().Int64Var(&planRoadID, "road", 0, "OSM way id (required)")
	planCmd.Flags().StringVar(&planKeyword, "keyword", "", "search keyword, e.g. a business category")
	_ = planCmd.MarkFlagRequired("road")
	rootCmd.AddCommand(scoreCmd, planCmd)
}
