package cron

import (
	"context"
	"encoding/json"
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/sahilchouksey/lesson-planner/model"
	"github.com/sahilchouksey/lesson-planner/utils/logger"
)

// IndexResumer restarts deep indexing that was interrupted
type IndexResumer interface {
	ResumeIndexing(ctx context.Context) (int, error)
}

// JobResult is what a job reports back for its execution log
type JobResult struct {
	Message  string
	Metadata map[string]interface{}
}

// CronManager manages all scheduled cron jobs
type CronManager struct {
	cron    *cron.Cron
	db      *gorm.DB
	resumer IndexResumer
	log     *logger.Logger
}

// NewCronManager creates a new cron manager
func NewCronManager(db *gorm.DB, resumer IndexResumer, log *logger.Logger) *CronManager {
	if log == nil {
		log = logger.NewNop()
	}
	// Create cron with seconds precision
	c := cron.New(cron.WithSeconds())

	return &CronManager{
		cron:    c,
		db:      db,
		resumer: resumer,
		log:     log.With("component", "cron"),
	}
}

// Start starts all cron jobs
func (m *CronManager) Start() error {
	m.log.Info("starting cron jobs")

	// Register all jobs
	if err := m.registerJobs(); err != nil {
		return err
	}

	// Start the cron scheduler
	m.cron.Start()

	m.log.Info("cron jobs started", "jobs", len(m.cron.Entries()))
	return nil
}

// Stop stops all cron jobs and waits for running ones to return
func (m *CronManager) Stop() {
	m.log.Info("stopping cron jobs")
	ctx := m.cron.Stop()
	<-ctx.Done()
	m.log.Info("cron jobs stopped")
}

// registerJobs registers all cron jobs with their schedules
func (m *CronManager) registerJobs() error {
	// Every 2 minutes: resume deep indexing interrupted by a restart
	_, err := m.cron.AddFunc("0 */2 * * * *", func() {
		m.runJob(JobResumeDeepIndexing, 10*time.Minute, m.ResumeDeepIndexing)
	})
	if err != nil {
		return err
	}

	// Daily at 2 AM: cleanup old data
	_, err = m.cron.AddFunc("0 0 2 * * *", func() {
		m.runJob(JobCleanupOldData, 10*time.Minute, m.CleanupOldData)
	})
	if err != nil {
		return err
	}

	m.log.Info("all cron jobs registered")
	return nil
}

// runJob executes one job and records its outcome in cron_job_logs
func (m *CronManager) runJob(jobName string, timeout time.Duration, job func(ctx context.Context) (*JobResult, error)) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	log := m.log.With("job", jobName)
	started := time.Now()
	entry := m.logJobStart(jobName, started)

	result, err := job(ctx)
	if err != nil {
		log.Error("cron job failed", "error", err, "duration", time.Since(started).String())
		m.logJobEnd(entry, started, model.CronJobFailed, "", err.Error(), nil)
		return
	}
	if result == nil {
		result = &JobResult{}
	}
	log.Info("cron job completed", "message", result.Message, "duration", time.Since(started).String())
	m.logJobEnd(entry, started, model.CronJobCompleted, result.Message, "", result.Metadata)
}

// logJobStart logs the start of a cron job
func (m *CronManager) logJobStart(jobName string, started time.Time) *model.CronJobLog {
	entry := &model.CronJobLog{
		JobName:   jobName,
		Status:    model.CronJobRunning,
		StartedAt: started,
		Metadata:  datatypes.JSON("{}"),
	}
	if err := m.db.Create(entry).Error; err != nil {
		m.log.Warn("failed to record cron job start", "job", jobName, "error", err)
		return nil
	}
	return entry
}

// logJobEnd records the final status of a run started by logJobStart
func (m *CronManager) logJobEnd(entry *model.CronJobLog, started time.Time, status model.CronJobStatus, message, errMsg string, metadata map[string]interface{}) {
	if entry == nil {
		return
	}
	now := time.Now()
	updates := map[string]interface{}{
		"status":       status,
		"completed_at": now,
		"duration":     now.Sub(started).Milliseconds(),
		"message":      message,
		"error_msg":    errMsg,
	}
	if len(metadata) > 0 {
		if data, err := json.Marshal(metadata); err == nil {
			updates["metadata"] = datatypes.JSON(data)
		}
	}
	if err := m.db.Model(&model.CronJobLog{}).Where("id = ?", entry.ID).Updates(updates).Error; err != nil {
		m.log.Warn("failed to record cron job result", "job", entry.JobName, "error", err)
	}
}
