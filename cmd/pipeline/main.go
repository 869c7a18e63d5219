package main

import (
	"flag"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"fpi/server/config"
	"fpi/server/internal/database"
	"fpi/server/internal/geo"
	"fpi/server/internal/ingest"
	"fpi/server/internal/pipeline"
	"fpi/server/internal/processor"
	"fpi/server/internal/queue"
	"fpi/server/internal/report"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	flag.Parse()
	files := flag.Args()
	if len(files) == 0 {
		logger.Fatal("Usage: pipeline <raw extract> [<raw extract> ...]")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Server.DatabasePath), 0755); err != nil {
		logger.WithError(err).Fatal("Failed to create database directory")
	}
	logger.Infof("Using database at: %s", cfg.Server.DatabasePath)

	gormDB, err := database.NewGormDB(cfg.Server.DatabasePath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open database")
	}

	logger.Info("Running schema migration...")
	if err := database.MigrateSchema(gormDB); err != nil {
		logger.WithError(err).Fatal("Failed to migrate schema")
	}

	predicate, err := buildPredicate(cfg)
	if err != nil {
		logger.WithError(err).Fatal("Invalid pipeline configuration")
	}

	cleaner, err := pipeline.NewCleaner(cfg.Pipeline.DedupKey, cfg.Pipeline.MissingPolicy, logger)
	if err != nil {
		logger.WithError(err).Fatal("Invalid cleaning configuration")
	}

	delimiter := '|'
	if cfg.Pipeline.Delimiter != "" {
		delimiter = []rune(cfg.Pipeline.Delimiter)[0]
	}

	batchQueue := queue.NewBatchQueue(cfg.BatchProcessing.ProcessorCount*2, logger)
	batchProcessor := processor.NewBatchProcessor(gormDB, batchQueue, cfg, logger)
	batchProcessor.Start()

	runner := pipeline.NewRunner(
		ingest.NewReader(delimiter, logger),
		pipeline.NewValidator(logger),
		cleaner,
		batchQueue,
		cfg.BatchProcessing.MaxBatchSize,
		logger,
	)
	reporter := report.NewReporter(logger)

	var summary report.Summary
	var runErr error

	for _, file := range files {
		result, err := runner.RunFile(file, predicate)
		if err != nil {
			logger.WithError(err).WithField("file", file).Error("Pipeline run failed")
			runErr = err
			break
		}

		if _, err := reporter.WriteInvalidRows(file, result.Failures); err != nil {
			logger.WithError(err).WithField("file", file).Error("Failed to export invalid rows")
		}

		summary.Files++
		summary.Ingested += result.Ingested
		summary.Valid += result.Valid
		summary.Rejected += len(result.Failures)
		summary.AfterClean += result.AfterClean
		summary.AfterFilt += result.AfterFilter
		summary.Batches += result.Batches
	}

	batchQueue.Close()
	batchProcessor.Wait()

	summary.Loaded = batchProcessor.Loaded()
	reporter.LogSummary(summary)

	if runErr != nil || batchProcessor.FailedBatches() > 0 {
		logger.Fatal("Pipeline finished with errors")
	}
}

func buildPredicate(cfg *config.Config) (pipeline.Predicate, error) {
	predicate := pipeline.Predicate{SalesOnly: cfg.Pipeline.SalesOnly}

	if cfg.Pipeline.BBox != "" {
		bound, err := geo.ParseBound(cfg.Pipeline.BBox)
		if err != nil {
			return predicate, err
		}
		predicate.Bounds = bound
	}

	return predicate, nil
}
