package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/sahilchouksey/lesson-planner/model"
)

// Job names as stored in cron_job_logs
const (
	JobResumeDeepIndexing = "resume_deep_indexing"
	JobCleanupOldData     = "cleanup_old_data"
)

// Retention windows for CleanupOldData
const (
	CronLogRetention         = 90 * 24 * time.Hour
	DeletedDocumentRetention = 30 * 24 * time.Hour
)

// ResumeDeepIndexing restarts deep indexing for documents left pending or
// in_progress without a running task, typically after a restart
func (m *CronManager) ResumeDeepIndexing(ctx context.Context) (*JobResult, error) {
	if m.resumer == nil {
		return &JobResult{Message: "deep indexing not configured"}, nil
	}

	started, err := m.resumer.ResumeIndexing(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resume deep indexing: %w", err)
	}
	return &JobResult{
		Message:  fmt.Sprintf("Resumed deep indexing for %d documents", started),
		Metadata: map[string]interface{}{"documents_resumed": started},
	}, nil
}

// CleanupOldData prunes old cron logs and purges documents that were
// soft-deleted long enough ago, together with their lessons and stored binaries
func (m *CronManager) CleanupOldData(ctx context.Context) (*JobResult, error) {
	now := time.Now()

	// 1. Clean up old cron job logs
	result := m.db.WithContext(ctx).
		Where("created_at < ? AND status <> ?", now.Add(-CronLogRetention), model.CronJobRunning).
		Delete(&model.CronJobLog{})
	if result.Error != nil {
		return nil, fmt.Errorf("failed to clean cron logs: %w", result.Error)
	}
	cleanedLogs := result.RowsAffected
	m.log.Debug("cleaned old cron logs", "count", cleanedLogs)

	// 2. Purge soft-deleted documents
	var ids []uint
	if err := m.db.WithContext(ctx).Unscoped().Model(&model.Document{}).
		Where("deleted_at IS NOT NULL AND deleted_at < ?", now.Add(-DeletedDocumentRetention)).
		Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to find deleted documents: %w", err)
	}

	if len(ids) > 0 {
		err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("document_id IN ?", ids).Delete(&model.Lesson{}).Error; err != nil {
				return err
			}
			if err := tx.Where("document_id IN ?", ids).Delete(&model.DocumentFile{}).Error; err != nil {
				return err
			}
			return tx.Unscoped().Where("id IN ?", ids).Delete(&model.Document{}).Error
		})
		if err != nil {
			return nil, fmt.Errorf("failed to purge deleted documents: %w", err)
		}
	}
	m.log.Debug("purged deleted documents", "count", len(ids))

	return &JobResult{
		Message: fmt.Sprintf("Cleaned up %d cron logs and %d deleted documents", cleanedLogs, len(ids)),
		Metadata: map[string]interface{}{
			"cron_logs":        cleanedLogs,
			"documents_purged": len(ids),
		},
	}, nil
}
