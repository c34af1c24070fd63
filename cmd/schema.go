package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/keyscope-dev/keyscope-engine/pkg/services"
)

var schemaCmd = &cobra.Command{
	Use:   "schema <table>",
	Short: "Print the inferred (or defined) schema for a table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		app, err := setup(ctx, rootCmd.Version)
		if err != nil {
			return err
		}
		defer app.close()

		svc := services.NewSchemaService(app.records, app.cfg.Engine, app.logger)
		schema, err := svc.GetSchema(ctx, args[0])
		if err != nil {
			return err
		}
		if schema == nil {
			statusColor.Fprintf(os.Stderr, "Table %q is missing or empty\n", args[0])
			return writeOutput(nil)
		}

		for _, warning := range schema.Warnings {
			errorColor.Fprintf(os.Stderr, "Warning: %s\n", warning)
		}
		return writeOutput(schema)
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)
}
