package main

import (
	"context"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/crosslogic/fieldmap-cli/internal/extract"
	"github.com/crosslogic/fieldmap-cli/internal/model"
)

// processWorkbook resolves one workbook end to end: extract, schedule,
// optionally verify, write the processed copy, archive the source and persist
// the run.
func processWorkbook(ctx context.Context, env *resolveEnv, path string) (*model.BatchOutcome, error) {
	unit := filepath.Base(path)
	log := zap.L().With(zap.String("workbook", unit))

	fields, err := env.Extractor.Extract(path)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		log.Warn("no fields extracted, skipping workbook")
		return nil, nil
	}

	run, err := env.Store.CreateRun(ctx, unit)
	if err != nil {
		return nil, err
	}

	usageBefore := env.Recorder.ByProvider()

	outcome, err := env.Scheduler.Run(ctx, unit, fields)
	if err != nil {
		_ = env.Store.FailRun(ctx, run.ID, err.Error())
		return nil, err
	}

	if env.Verifier != nil {
		if err := env.Verifier.Apply(ctx, outcome); err != nil {
			log.Warn("verification pass failed, keeping unverified results", zap.Error(err))
		}
	}

	outPath, err := env.Reporter.Write(path, cfg.Extract.OutputDir, outcome)
	if err != nil {
		_ = env.Store.FailRun(ctx, run.ID, err.Error())
		return nil, err
	}

	if _, err := extract.ArchiveSource(path, cfg.Extract.ArchiveDir); err != nil {
		log.Warn("could not archive source workbook", zap.Error(err))
	}

	runUsage := usageDelta(usageBefore, env.Recorder.ByProvider())
	costUSD := env.Calc.Session(runUsage)
	if err := env.Store.CompleteRun(ctx, run.ID, outcome, runUsage, costUSD); err != nil {
		return nil, eris.Wrap(err, "persist run")
	}

	log.Info("workbook resolved",
		zap.String("run_id", run.ID),
		zap.String("output", outPath),
		zap.Int("total", outcome.Stats.Total),
		zap.Int("matched", outcome.Stats.Matched),
		zap.Int("unmatched", outcome.Stats.Unmatched),
		zap.Int("errored", outcome.Stats.Errored),
		zap.Duration("elapsed", outcome.Elapsed),
		zap.Float64("cost_usd", costUSD))

	return outcome, nil
}
