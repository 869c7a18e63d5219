package scheduler

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	return logger
}

func TestSchedulerRunsOnInterval(t *testing.T) {
	var runs atomic.Int64
	s := NewScheduler(func() error {
		runs.Add(1)
		return nil
	}, 20*time.Millisecond, testLogger())

	s.Start()
	time.Sleep(110 * time.Millisecond)
	s.Stop()

	count := runs.Load()
	assert.GreaterOrEqual(t, count, int64(2))

	// No more runs after Stop
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, count, runs.Load())
}

func TestSchedulerSurvivesFailedRuns(t *testing.T) {
	var runs atomic.Int64
	s := NewScheduler(func() error {
		runs.Add(1)
		return errors.New("no new extracts")
	}, 20*time.Millisecond, testLogger())

	s.Start()
	time.Sleep(70 * time.Millisecond)
	s.Stop()

	assert.GreaterOrEqual(t, runs.Load(), int64(2))
}

func TestSchedulerStopBeforeFirstTick(t *testing.T) {
	var runs atomic.Int64
	s := NewScheduler(func() error {
		runs.Add(1)
		return nil
	}, time.Hour, testLogger())

	s.Start()
	s.Stop()

	assert.Equal(t, int64(0), runs.Load())
}
