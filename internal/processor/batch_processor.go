package processor

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"fpi/server/config"
	"fpi/server/internal/database"
	"fpi/server/internal/models"
	"fpi/server/internal/queue"
)

// BatchProcessor drains load batches from the queue and writes them to
// the store. Each batch is one transaction: parents before dependents,
// and a failure rolls the whole batch back.
type BatchProcessor struct {
	db        *gorm.DB
	logger    *logrus.Logger
	config    *config.Config
	queue     *queue.BatchQueue
	waitGroup sync.WaitGroup
	loaded    atomic.Int64
	failed    atomic.Int64
}

// NewBatchProcessor creates a new batch processor instance.
func NewBatchProcessor(db *gorm.DB, queue *queue.BatchQueue, config *config.Config, logger *logrus.Logger) *BatchProcessor {
	return &BatchProcessor{
		db:     db,
		queue:  queue,
		config: config,
		logger: logger,
	}
}

// Start begins processing batches from the queue.
func (p *BatchProcessor) Start() {
	for i := 0; i < p.config.BatchProcessing.ProcessorCount; i++ {
		p.waitGroup.Add(1)
		go p.processLoop()
	}
}

// Wait blocks until the queue is closed and every queued batch has been
// handled.
func (p *BatchProcessor) Wait() {
	p.waitGroup.Wait()
}

// Stop closes the queue and waits for in-flight batches.
func (p *BatchProcessor) Stop() {
	p.queue.Close()
	p.waitGroup.Wait()
}

// Loaded returns the number of transactions written so far.
func (p *BatchProcessor) Loaded() int64 {
	return p.loaded.Load()
}

// FailedBatches returns the number of batches dropped after exhausting
// retries.
func (p *BatchProcessor) FailedBatches() int64 {
	return p.failed.Load()
}

// processLoop handles the continuous processing of batches.
func (p *BatchProcessor) processLoop() {
	defer p.waitGroup.Done()

	for {
		batch, ok := p.queue.Next()
		if !ok {
			return
		}
		if err := p.processBatch(batch); err != nil {
			p.failed.Add(1)
			p.logger.WithError(err).Error("Dropped batch after exhausting retries")
		}
	}
}

// processBatch loads a single batch with transaction and retry logic.
func (p *BatchProcessor) processBatch(batch *models.LoadBatch) error {
	var err error
	for attempt := 0; attempt <= p.config.BatchProcessing.MaxRetries; attempt++ {
		if attempt > 0 {
			p.logger.Infof("Retrying batch load, attempt %d of %d", attempt, p.config.BatchProcessing.MaxRetries)
			time.Sleep(time.Duration(p.config.BatchProcessing.RetryDelay) * time.Second)
		}

		err = p.db.Transaction(func(tx *gorm.DB) error {
			return database.LoadBatch(tx, batch)
		})

		if err == nil {
			p.loaded.Add(int64(batch.Size()))
			p.logger.Infof("Successfully loaded batch of %d transactions", batch.Size())
			return nil
		}

		p.logger.Errorf("Batch load failed: %v", err)
	}

	return fmt.Errorf("failed to load batch after %d attempts: %w", p.config.BatchProcessing.MaxRetries, err)
}
