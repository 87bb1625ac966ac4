// Package snapshotter periodically flushes a file-backed store to disk,
// so a crash loses at most one schedule interval of changes.
package snapshotter

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/patric-chuzhbe/tinyapp/internal/logger"
)

type saver interface {
	Save() error
}

// Snapshotter runs saver.Save on a cron schedule.
type Snapshotter struct {
	cron  *cron.Cron
	saver saver
}

// New registers the save job. The schedule accepts the standard five-field
// cron syntax as well as descriptors like "@every 1m".
func New(theSaver saver, schedule string) (*Snapshotter, error) {
	result := &Snapshotter{
		cron:  cron.New(),
		saver: theSaver,
	}

	if _, err := result.cron.AddFunc(schedule, result.snapshot); err != nil {
		return nil, fmt.Errorf("in internal/snapshotter/snapshotter.go/New(): error while `result.cron.AddFunc()` calling: %w", err)
	}

	return result, nil
}

func (s *Snapshotter) snapshot() {
	if err := s.saver.Save(); err != nil {
		logger.Log.Errorw("Error saving the snapshot", zap.Error(err))
		return
	}
	logger.Log.Debugw("Snapshot saved")
}

// Start runs the scheduler in its own goroutine.
func (s *Snapshotter) Start() {
	s.cron.Start()
}

// Stop stops the scheduler, waits for a running job and makes one final snapshot.
func (s *Snapshotter) Stop(ctx context.Context) error {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		return ctx.Err()
	}

	return s.saver.Save()
}
