package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/keyscope-dev/keyscope-engine/pkg/adapters/store"
	"github.com/keyscope-dev/keyscope-engine/pkg/apperrors"
)

// tablesOutput is the list rendering with the store's usage footer.
type tablesOutput struct {
	Tables []store.TableInfo `json:"tables" yaml:"tables"`
	Usage  store.UsageInfo   `json:"usage" yaml:"usage"`
}

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "List stored tables with record counts and sizes",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		app, err := setup(ctx, rootCmd.Version)
		if err != nil {
			return err
		}
		defer app.close()

		names, err := app.records.ListTableNames(ctx)
		if err != nil {
			return err
		}

		out := tablesOutput{Tables: make([]store.TableInfo, 0, len(names))}
		for _, name := range names {
			info, err := app.records.DescribeTable(ctx, name)
			if err != nil {
				// A table deleted between list and describe is not an error.
				if errors.Is(err, apperrors.ErrNotFound) {
					continue
				}
				return err
			}
			out.Tables = append(out.Tables, *info)
		}

		out.Usage, err = app.records.Usage(ctx)
		if err != nil {
			return err
		}

		statusColor.Fprintf(os.Stderr, "%d table(s), %s\n",
			len(out.Tables), formatBytes(out.Usage.UsedBytes))
		return writeOutput(out)
	},
}

func formatBytes(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

func init() {
	rootCmd.AddCommand(tablesCmd)
}
