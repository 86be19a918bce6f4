package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// AuditRetentionJobName is the name of the audit log purge job
const AuditRetentionJobName = "audit_retention"

// AuditPurger deletes audit entries older than a retention window
type AuditPurger interface {
	PurgeOlderThan(ctx context.Context, retention time.Duration) (int64, error)
}

// AuditRetentionJob trims the audit log to the configured retention
type AuditRetentionJob struct {
	purger    AuditPurger
	retention time.Duration
	timeout   time.Duration
	logger    *zap.Logger
}

// NewAuditRetentionJob creates the job. retentionDays below one disables purging.
func NewAuditRetentionJob(purger AuditPurger, retentionDays int, timeout time.Duration, logger *zap.Logger) *AuditRetentionJob {
	return &AuditRetentionJob{
		purger:    purger,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		timeout:   timeout,
		logger:    logger,
	}
}

// Run purges old entries. It is called by the scheduler.
func (j *AuditRetentionJob) Run() {
	if j.retention <= 0 {
		j.logger.Debug("audit retention disabled")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	start := time.Now()
	deleted, err := j.purger.PurgeOlderThan(ctx, j.retention)
	if err != nil {
		j.logger.Error("audit retention job failed",
			zap.Error(err),
			zap.Duration("duration", time.Since(start)))
		return
	}

	j.logger.Info("audit retention job completed",
		zap.Int64("deleted", deleted),
		zap.Duration("retention", j.retention),
		zap.Duration("duration", time.Since(start)))
}

// RegisterAuditRetentionJob registers the purge job with the scheduler
func RegisterAuditRetentionJob(scheduler *Scheduler, purger AuditPurger, retentionDays int, cronExpr string, logger *zap.Logger) error {
	job := NewAuditRetentionJob(purger, retentionDays, 5*time.Minute, logger)
	return scheduler.AddJob(AuditRetentionJobName, cronExpr, job.Run)
}
