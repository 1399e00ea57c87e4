package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/sahilchouksey/lesson-planner/model"
	"github.com/sahilchouksey/lesson-planner/utils/logger"
)

// SyncResult reports the effect of one progress sync
type SyncResult struct {
	DocumentID uint               `json:"document_id"`
	LessonID   uint               `json:"lesson_id"`
	Position   int                `json:"position"`
	Pointer    int                `json:"current_lesson_pointer"`
	Advanced   bool               `json:"advanced"`
	Status     model.LessonStatus `json:"lesson_status"`
}

// ProgressSynchronizer records that a teacher has reached a lesson. It is the
// only writer of Document.CurrentLessonPointer.
type ProgressSynchronizer struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProgressSynchronizer(db *gorm.DB, log *logger.Logger) *ProgressSynchronizer {
	if log == nil {
		log = logger.NewNop()
	}
	return &ProgressSynchronizer{db: db, log: log.With("component", "progress_sync")}
}

// Sync raises the document's pointer to the lesson's 1-based position in schedule
// order and moves a pending lesson to planned. The pointer never decreases.
func (p *ProgressSynchronizer) Sync(ctx context.Context, documentID, lessonID uint) (*SyncResult, error) {
	result := &SyncResult{DocumentID: documentID, LessonID: lessonID}

	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := documentExists(ctx, tx, documentID); err != nil {
			return err
		}

		var lessons []model.Lesson
		if err := tx.Select("id", "status").Where("document_id = ?", documentID).
			Order("scheduled_date ASC, id ASC").Find(&lessons).Error; err != nil {
			return fmt.Errorf("failed to load lessons: %w", err)
		}

		var lesson *model.Lesson
		for i := range lessons {
			if lessons[i].ID == lessonID {
				lesson = &lessons[i]
				result.Position = i + 1
				break
			}
		}
		if lesson == nil {
			return ErrLessonNotFound
		}

		res := tx.Exec(
			"UPDATE documents SET current_lesson_pointer = ?, updated_at = ? WHERE id = ? AND current_lesson_pointer < ? AND deleted_at IS NULL",
			result.Position, time.Now(), documentID, result.Position,
		)
		if res.Error != nil {
			return fmt.Errorf("failed to advance lesson pointer: %w", res.Error)
		}
		result.Advanced = res.RowsAffected > 0

		result.Status = lesson.Status
		if lesson.Status == model.LessonStatusPending {
			if err := tx.Model(&model.Lesson{}).
				Where("id = ? AND status = ?", lesson.ID, model.LessonStatusPending).
				Update("status", model.LessonStatusPlanned).Error; err != nil {
				return fmt.Errorf("failed to plan lesson: %w", err)
			}
			result.Status = model.LessonStatusPlanned
		}

		return tx.Model(&model.Document{}).Select("current_lesson_pointer").
			Where("id = ?", documentID).Scan(&result.Pointer).Error
	})
	if err != nil {
		if errors.Is(err, ErrLessonNotFound) || errors.Is(err, ErrDocumentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("progress sync failed: %w", err)
	}

	p.log.Info("progress synced",
		"document_id", documentID,
		"lesson_id", lessonID,
		"position", result.Position,
		"pointer", result.Pointer,
		"advanced", result.Advanced,
	)
	return result, nil
}
