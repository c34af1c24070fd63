package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/keyscope-dev/keyscope-engine/pkg/jsonutil"
)

var loadTable string

var loadCmd = &cobra.Command{
	Use:   "load <file.json>",
	Short: "Load a JSON document into a table",
	Long: `Reads a JSON file and stores it under the given table name. An array
of objects becomes a multi-record table; any other JSON value is stored
as-is and analyzed as a single-record table.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		app, err := setup(ctx, rootCmd.Version)
		if err != nil {
			return err
		}
		defer app.close()

		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read %s: %w", args[0], err)
		}

		value, err := jsonutil.DecodeValue(data)
		if err != nil {
			return fmt.Errorf("parse %s: %w", args[0], err)
		}

		if err := app.records.PutTable(ctx, loadTable, value); err != nil {
			return err
		}

		info, err := app.records.DescribeTable(ctx, loadTable)
		if err != nil {
			return err
		}
		statusColor.Fprintf(os.Stderr, "Loaded %q: %d record(s), %s\n",
			loadTable, info.RecordCount, formatBytes(info.ByteSize))
		return nil
	},
}

func init() {
	loadCmd.Flags().StringVarP(&loadTable, "table", "t", "", "target table name (required)")
	loadCmd.MarkFlagRequired("table")
	rootCmd.AddCommand(loadCmd)
}
