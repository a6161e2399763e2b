package main

import (
	"sync/atomic"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/crosslogic/fieldmap-cli/internal/extract"
)

var (
	batchProvider string
	batchSystem   string
	batchInputDir string
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Resolve every workbook in the input directory",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initResolution(ctx, "batch", batchProvider, batchSystem)
		if err != nil {
			return err
		}
		defer env.Close()

		inputDir := batchInputDir
		if inputDir == "" {
			inputDir = cfg.Extract.InputDir
		}

		paths, err := extract.ListWorkbooks(inputDir)
		if err != nil {
			return err
		}
		if len(paths) == 0 {
			zap.L().Info("no workbooks found", zap.String("dir", inputDir))
			return nil
		}

		zap.L().Info("batch started",
			zap.String("dir", inputDir),
			zap.Int("workbooks", len(paths)),
			zap.Int("concurrency", cfg.Batch.MaxConcurrentFiles))

		var failed atomic.Int64
		var g errgroup.Group
		g.SetLimit(cfg.Batch.MaxConcurrentFiles)

		for _, path := range paths {
			g.Go(func() error {
				// Workbook failures are isolated; the batch continues.
				if _, err := processWorkbook(ctx, env, path); err != nil {
					failed.Add(1)
					zap.L().Error("workbook failed",
						zap.String("workbook", path),
						zap.Error(err))
				}
				return nil
			})
		}
		_ = g.Wait()

		zap.L().Info("batch finished",
			zap.Int("workbooks", len(paths)),
			zap.Int64("failed", failed.Load()))

		if n := failed.Load(); n > 0 {
			return eris.Errorf("batch: %d of %d workbooks failed", n, len(paths))
		}
		return nil
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchProvider, "provider", "", "completion provider override (claude, gemini)")
	batchCmd.Flags().StringVar(&batchSystem, "system", "", "source system key for the resolution profile")
	batchCmd.Flags().StringVar(&batchInputDir, "input", "", "input directory (default from config)")
	rootCmd.AddCommand(batchCmd)
}
