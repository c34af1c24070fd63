package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/keyscope-dev/keyscope-engine/pkg/services"
)

var analyzeThreshold float64

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run the full analysis: schemas, relationships, statistics, ERD",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		app, err := setup(ctx, rootCmd.Version)
		if err != nil {
			return err
		}
		defer app.close()

		relationships := services.NewRelationshipService(app.records, app.cfg.Engine, app.logger)
		if cmd.Flags().Changed("threshold") {
			relationships.SetConfidenceThreshold(analyzeThreshold)
		}
		schemas := services.NewSchemaService(app.records, app.cfg.Engine, app.logger)
		facade := services.NewAnalysisService(schemas, relationships, app.logger)

		report, err := facade.AnalyzeAll(ctx)
		if err != nil {
			return err
		}

		statusColor.Fprintf(os.Stderr,
			"Analyzed %d table(s): %d relationship(s) at threshold %.2f\n",
			report.Statistics.TotalTables,
			report.Statistics.RelationshipsFound,
			relationships.ConfidenceThreshold())
		return writeOutput(report)
	},
}

func init() {
	analyzeCmd.Flags().Float64Var(&analyzeThreshold, "threshold", 0.4, "relationship confidence threshold, clamped to [0,1]")
	rootCmd.AddCommand(analyzeCmd)
}
