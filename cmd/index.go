package main

import (
	"context"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/crosslogic/fieldmap-cli/internal/retrieval"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Load reference catalogs into the retrieval index",
	Long:  "Parses catalog CSV exports, embeds their descriptions and loads them into the vector index.",
}

var indexCustomFieldsCmd = &cobra.Command{
	Use:   "custom-fields",
	Short: "Load the custom field catalog",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runIndexLoad(cmd, "custom fields", func(ctx context.Context, env *indexEnv, f *os.File) (int64, error) {
			entries, err := retrieval.ParseCatalogCSV(f)
			if err != nil {
				return 0, err
			}
			return env.Index.LoadCustomFields(ctx, entries)
		})
	},
}

var indexViewFieldsCmd = &cobra.Command{
	Use:   "view-fields",
	Short: "Load the standard view field catalog",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runIndexLoad(cmd, "view fields", func(ctx context.Context, env *indexEnv, f *os.File) (int64, error) {
			entries, err := retrieval.ParseCatalogCSV(f)
			if err != nil {
				return 0, err
			}
			return env.Index.LoadViewFields(ctx, entries)
		})
	},
}

var indexScenariosCmd = &cobra.Command{
	Use:   "scenarios",
	Short: "Load the scenario catalog",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runIndexLoad(cmd, "scenarios", func(ctx context.Context, env *indexEnv, f *os.File) (int64, error) {
			entries, err := retrieval.ParseScenarioCSV(f)
			if err != nil {
				return 0, err
			}
			return env.Index.LoadScenarios(ctx, entries)
		})
	},
}

var indexViewsCmd = &cobra.Command{
	Use:   "views",
	Short: "Load the view catalog",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runIndexLoad(cmd, "views", func(ctx context.Context, env *indexEnv, f *os.File) (int64, error) {
			entries, err := retrieval.ParseViewCSV(f)
			if err != nil {
				return 0, err
			}
			return env.Index.LoadViews(ctx, entries)
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{indexCustomFieldsCmd, indexViewFieldsCmd, indexScenariosCmd, indexViewsCmd} {
		c.Flags().String("csv", "", "path to the catalog CSV export")
		_ = c.MarkFlagRequired("csv")
		indexCmd.AddCommand(c)
	}
	rootCmd.AddCommand(indexCmd)
}

// runIndexLoad opens the CSV, sets up the index environment and runs load,
// reporting the row count and embedding token spend.
func runIndexLoad(cmd *cobra.Command, what string, load func(context.Context, *indexEnv, *os.File) (int64, error)) error {
	ctx := cmd.Context()
	csvPath, _ := cmd.Flags().GetString("csv")

	env, err := initIndex(ctx)
	if err != nil {
		return err
	}
	defer env.Close()

	f, err := os.Open(csvPath)
	if err != nil {
		return eris.Wrapf(err, "index: open %s", csvPath)
	}
	defer f.Close() //nolint:errcheck

	count, err := load(ctx, env, f)
	if err != nil {
		return err
	}

	total := env.Recorder.Total()
	zap.L().Info("catalog loaded",
		zap.String("catalog", what),
		zap.String("csv", csvPath),
		zap.Int64("rows", count),
		zap.Int64("embedding_tokens", total.EmbeddingTokens),
	)
	return nil
}
