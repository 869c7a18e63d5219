package queue

import (
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"fpi/server/internal/models"
)

var ErrQueueClosed = errors.New("queue is closed")

// BatchQueue is an in-memory queue of load batches between the pipeline
// and the batch processors.
type BatchQueue struct {
	items  chan *models.LoadBatch
	done   chan struct{}
	closed bool
	mu     sync.RWMutex
	logger *logrus.Logger
}

// NewBatchQueue creates a queue with the specified buffer size.
func NewBatchQueue(bufferSize int, logger *logrus.Logger) *BatchQueue {
	if logger == nil {
		logger = logrus.New()
	}
	return &BatchQueue{
		items:  make(chan *models.LoadBatch, bufferSize),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// Push adds a batch to the queue, blocking while the buffer is full.
func (q *BatchQueue) Push(batch *models.LoadBatch) error {
	q.mu.RLock()
	if q.closed {
		q.mu.RUnlock()
		return ErrQueueClosed
	}
	q.mu.RUnlock()

	select {
	case q.items <- batch:
		q.logger.WithField("batch_size", batch.Size()).Debug("Pushed batch to queue")
		return nil
	case <-q.done:
		return ErrQueueClosed
	}
}

// Next blocks until a batch is available. The second return value is
// false once the queue is closed and drained.
func (q *BatchQueue) Next() (*models.LoadBatch, bool) {
	select {
	case batch := <-q.items:
		return batch, true
	case <-q.done:
		// Closed: hand out whatever is still buffered before reporting
		// exhaustion.
		select {
		case batch := <-q.items:
			return batch, true
		default:
			return nil, false
		}
	}
}

// Close stops the queue and prevents new items from being added.
// Batches already queued are still delivered. The items channel is
// never closed, so a Push racing with Close cannot panic; it either
// delivers or sees the done signal.
func (q *BatchQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}

	q.closed = true
	close(q.done)
	return nil
}

// Len returns the current number of batches in the queue.
func (q *BatchQueue) Len() int {
	return len(q.items)
}

// IsClosed returns whether the queue has been closed.
func (q *BatchQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
