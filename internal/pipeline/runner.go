package pipeline

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"fpi/server/internal/ingest"
	"fpi/server/internal/queue"
)

// RunResult counts what happened to one input file on its way through
// the stages, and keeps the rejected rows for export.
type RunResult struct {
	Ingested    int
	Valid       int
	AfterClean  int
	AfterFilter int
	Batches     int
	Failures    []RowFailure
}

// Runner drives one input file through ingest, validation, cleaning and
// filtering, then hands load batches to the queue. Loading itself is the
// batch processor's job.
type Runner struct {
	reader    *ingest.Reader
	validator *Validator
	cleaner   *Cleaner
	queue     *queue.BatchQueue
	batchSize int
	logger    *logrus.Logger
}

func NewRunner(reader *ingest.Reader, validator *Validator, cleaner *Cleaner, q *queue.BatchQueue, batchSize int, logger *logrus.Logger) *Runner {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	return &Runner{
		reader:    reader,
		validator: validator,
		cleaner:   cleaner,
		queue:     q,
		batchSize: batchSize,
		logger:    logger,
	}
}

// RunFile processes a single raw extract.
func (r *Runner) RunFile(path string, predicate Predicate) (RunResult, error) {
	var result RunResult

	r.logger.WithField("file", path).Info("Processing raw extract")

	rows, err := r.reader.ReadFile(path)
	if err != nil {
		return result, err
	}
	result.Ingested = len(rows)

	records, failures := r.validator.Validate(rows)
	result.Valid = len(records)
	result.Failures = failures

	cleaned := r.cleaner.Clean(records)
	result.AfterClean = len(cleaned)

	filtered := Filter(cleaned, predicate)
	result.AfterFilter = len(filtered)

	batches := BuildBatches(filtered, r.batchSize)
	result.Batches = len(batches)

	for _, batch := range batches {
		if err := r.queue.Push(batch); err != nil {
			return result, fmt.Errorf("failed to queue batch: %w", err)
		}
	}

	return result, nil
}
