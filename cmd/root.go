// Package cmd implements the keyscope command-line inspection tool.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/keyscope-dev/keyscope-engine/pkg/adapters/store"
	_ "github.com/keyscope-dev/keyscope-engine/pkg/adapters/store/memory"
	_ "github.com/keyscope-dev/keyscope-engine/pkg/adapters/store/mssql"
	_ "github.com/keyscope-dev/keyscope-engine/pkg/adapters/store/postgres"
	_ "github.com/keyscope-dev/keyscope-engine/pkg/adapters/store/sqlite"
	"github.com/keyscope-dev/keyscope-engine/pkg/config"
	"github.com/keyscope-dev/keyscope-engine/pkg/logging"
)

var (
	flagBackend string
	flagOutput  string

	statusColor = color.New(color.FgGreen)
	errorColor  = color.New(color.FgRed)
)

var rootCmd = &cobra.Command{
	Use:   "keyscope [command]",
	Short: "Schema inference and relationship discovery over a key-value store",
	Long: `Keyscope profiles the tables in a flat key-value store: it infers
per-table schemas from record samples, scores primary- and foreign-key
candidates, discovers cross-table relationships from naming conventions and
value overlap, and renders the result as an ERD graph.`,
	SilenceUsage: true,
}

// Execute runs the command tree. The version string is injected from main.
func Execute(version string) {
	rootCmd.Version = version
	if err := rootCmd.Execute(); err != nil {
		errorColor.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagBackend, "backend", "", "store backend: memory, sqlite, postgres, mssql (overrides config)")
	rootCmd.PersistentFlags().StringVarP(&flagOutput, "output", "o", "json", "output format: json or yaml")
}

// appEnv is the shared setup for every subcommand: .env loading, config,
// logger, and an open store.
type appEnv struct {
	cfg     *config.Config
	logger  *zap.Logger
	records store.RecordStore
}

func (a *appEnv) close() {
	if a.records != nil {
		a.records.Close()
	}
	if a.logger != nil {
		a.logger.Sync()
	}
}

func setup(ctx context.Context, version string) (*appEnv, error) {
	// A missing .env file is fine; explicit environment still applies.
	_ = godotenv.Load()

	cfg, err := config.Load(version)
	if err != nil {
		return nil, err
	}
	if flagBackend != "" {
		cfg.Store.Backend = flagBackend
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}

	records, err := store.Open(ctx, cfg.Store, logger)
	if err != nil {
		logger.Sync()
		return nil, err
	}

	return &appEnv{cfg: cfg, logger: logger, records: records}, nil
}

// writeOutput renders a result on stdout in the selected format. Status
// messages go to stderr so output stays pipeable.
func writeOutput(v any) error {
	switch flagOutput {
	case "yaml":
		data, err := yaml.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		_, err = os.Stdout.Write(data)
		return err
	case "json", "":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	default:
		return fmt.Errorf("unknown output format %q", flagOutput)
	}
}
