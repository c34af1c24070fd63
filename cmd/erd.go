package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/keyscope-dev/keyscope-engine/pkg/services"
)

var erdCmd = &cobra.Command{
	Use:   "erd",
	Short: "Generate the entity-relationship diagram graph",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		app, err := setup(ctx, rootCmd.Version)
		if err != nil {
			return err
		}
		defer app.close()

		svc := services.NewRelationshipService(app.records, app.cfg.Engine, app.logger)
		erd, err := svc.GenerateERD(ctx)
		if err != nil {
			return err
		}

		statusColor.Fprintf(os.Stderr, "%d node(s), %d edge(s)\n",
			erd.Metadata.TableCount, erd.Metadata.RelationshipCount)
		return writeOutput(erd)
	},
}

func init() {
	rootCmd.AddCommand(erdCmd)
}
