package scheduler

import (
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// RunFunc performs one refresh: scanning for new raw extracts and
// running them through the pipeline.
type RunFunc func() error

// Scheduler re-runs the pipeline on a fixed interval so newly published
// extracts get picked up without operator action. Runs never overlap.
type Scheduler struct {
	run      RunFunc
	interval time.Duration
	logger   *logrus.Logger
	stopChan chan struct{}
	wg       sync.WaitGroup
	jobMutex sync.Mutex // Ensures sequential refresh execution
}

// NewScheduler creates a refresh scheduler.
func NewScheduler(run RunFunc, interval time.Duration, logger *logrus.Logger) *Scheduler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
		logger.SetLevel(logrus.InfoLevel)
	}

	return &Scheduler{
		run:      run,
		interval: interval,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Start begins the scheduled refreshes.
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go s.runScheduler()
}

// Stop halts scheduling and waits for a running refresh to finish.
func (s *Scheduler) Stop() {
	close(s.stopChan)
	s.wg.Wait()
}

func (s *Scheduler) runScheduler() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.executeRefresh()
		}
	}
}

func (s *Scheduler) executeRefresh() {
	s.jobMutex.Lock()
	defer s.jobMutex.Unlock()

	s.logger.Info("Running scheduled dataset refresh")
	if err := s.run(); err != nil {
		s.logger.WithError(err).Error("Scheduled refresh failed")
		return
	}
	s.logger.Info("Scheduled dataset refresh completed")
}
