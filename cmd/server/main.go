package main

import (
	"os"
	"path/filepath"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"fpi/server/config"
	"fpi/server/internal/api"
	"fpi/server/internal/database"
	"fpi/server/internal/ingest"
	"fpi/server/internal/models"
	"fpi/server/internal/pipeline"
	"fpi/server/internal/processor"
	"fpi/server/internal/queue"
	"fpi/server/internal/scheduler"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Server.DatabasePath), 0755); err != nil {
		logger.WithError(err).Fatal("Failed to create database directory")
	}
	logger.Infof("Using database at: %s", cfg.Server.DatabasePath)

	// Initialize database
	db, err := database.NewDatabase(cfg.Server.DatabasePath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize database")
	}
	defer db.Close()

	// Run database migrations
	logger.Info("Running database migrations...")
	if err := db.RunMigrations(); err != nil {
		logger.WithError(err).Fatal("Failed to run database migrations")
	}

	// Seed the configured regions
	if err := config.LoadRegionsConfig(); err != nil {
		logger.WithError(err).Warn("Failed to load regions configuration, using defaults")
	}
	seedRegions(db, logger)

	// Initialize router
	router := gin.Default()
	router.Use(cors.Default())

	handler := api.SetupRoutes(router, db)

	// Train the price model from whatever data is already loaded
	logger.Info("Training initial price model...")
	handler.TrainInitialModel()

	// Optional dataset refresh scheduler
	if cfg.Refresh.Enabled {
		refresh := scheduler.NewScheduler(
			refreshFunc(cfg, logger),
			time.Duration(cfg.Refresh.IntervalHours)*time.Hour,
			logger,
		)
		refresh.Start()
		defer refresh.Stop()
		logger.Infof("Dataset refresh enabled every %dh from %s", cfg.Refresh.IntervalHours, cfg.Refresh.RawDir)
	}

	logger.Infof("Starting server on port %s", cfg.Server.Port)
	if err := router.Run(":" + cfg.Server.Port); err != nil {
		logger.WithError(err).Fatal("Server failed to start")
	}
}

func seedRegions(db *database.Database, logger *logrus.Logger) {
	for _, seed := range config.GetConfiguredRegions() {
		existing, err := db.GetRegionByName(seed.Name)
		if err != nil {
			logger.WithError(err).WithField("region", seed.Name).Error("Failed to check region")
			continue
		}
		if existing != nil {
			continue
		}

		region := models.Region{Name: seed.Name, Departments: seed.Departments}
		if err := db.UpdateRegion(region); err != nil {
			logger.WithError(err).WithField("region", seed.Name).Error("Failed to seed region")
			continue
		}
		logger.WithField("region", seed.Name).Info("Seeded region")
	}
}

// refreshFunc re-runs the pipeline over every raw extract currently in
// the refresh directory. Upserts make re-loading known extracts a no-op.
func refreshFunc(cfg *config.Config, logger *logrus.Logger) scheduler.RunFunc {
	return func() error {
		files, err := filepath.Glob(filepath.Join(cfg.Refresh.RawDir, "raw_*"))
		if err != nil {
			return err
		}
		if len(files) == 0 {
			logger.Info("No raw extracts found, skipping refresh")
			return nil
		}

		gormDB, err := database.NewGormDB(cfg.Server.DatabasePath)
		if err != nil {
			return err
		}
		if err := database.MigrateSchema(gormDB); err != nil {
			return err
		}

		cleaner, err := pipeline.NewCleaner(cfg.Pipeline.DedupKey, cfg.Pipeline.MissingPolicy, logger)
		if err != nil {
			return err
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

		predicate := pipeline.Predicate{SalesOnly: cfg.Pipeline.SalesOnly}
		var runErr error
		for _, file := range files {
			if _, err := runner.RunFile(file, predicate); err != nil {
				logger.WithError(err).WithField("file", file).Error("Refresh run failed")
				runErr = err
				break
			}
		}

		batchQueue.Close()
		batchProcessor.Wait()
		return runErr
	}
}
