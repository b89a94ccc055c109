package worker

import (
	"context"
	"time"

	"github.com/ds124wfegd/imgenhance/internal/database"
	"github.com/sirupsen/logrus"
)

// JobCleanupWorker drops finished jobs older than the retention period
// together with their stored images and cached snapshots.
type JobCleanupWorker struct {
	jobs      database.JobRepository
	images    database.ImageRepository
	cache     database.JobCache
	retention time.Duration
	interval  time.Duration
	now       func() time.Time
}

// NewJobCleanupWorker builds a worker. cache may be nil.
func NewJobCleanupWorker(jobs database.JobRepository, images database.ImageRepository, cache database.JobCache,
	retention, interval time.Duration) *JobCleanupWorker {
	return &JobCleanupWorker{
		jobs:      jobs,
		images:    images,
		cache:     cache,
		retention: retention,
		interval:  interval,
		now:       time.Now,
	}
}

func (w *JobCleanupWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	logrus.WithField("retention", w.retention).Info("Job cleanup worker started")

	for {
		select {
		case <-ctx.Done():
			logrus.Info("Job cleanup worker stopped")
			return
		case <-ticker.C:
			w.Cleanup(ctx)
		}
	}
}

// Cleanup runs one pass and returns the number of purged jobs.
func (w *JobCleanupWorker) Cleanup(ctx context.Context) int {
	ids, err := w.jobs.PurgeFinished(ctx, w.now().Add(-w.retention))
	if err != nil {
		logrus.WithError(err).Error("Failed to purge finished jobs")
		return 0
	}
	if len(ids) == 0 {
		logrus.Debug("No expired jobs found for cleanup")
		return 0
	}

	failed := 0
	for _, id := range ids {
		// Удаляем файлы задачи
		if err := w.images.Delete(id); err != nil {
			logrus.WithError(err).WithField("job_id", id).Warn("Failed to delete job images")
			failed++
		}
		if w.cache != nil {
			if err := w.cache.DeleteJob(ctx, id); err != nil {
				logrus.WithError(err).WithField("job_id", id).Warn("Failed to drop cached job")
			}
		}
	}

	logrus.WithFields(logrus.Fields{
		"purged":        len(ids),
		"files_failing": failed,
	}).Info("Expired jobs cleanup completed")
	return len(ids)
}
