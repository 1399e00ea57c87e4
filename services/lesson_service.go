package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/sahilchouksey/lesson-planner/model"
	"github.com/sahilchouksey/lesson-planner/services/schedule"
	"github.com/sahilchouksey/lesson-planner/utils/logger"
)

const lessonBatchSize = 100

// LessonService owns the persisted schedule of each document
type LessonService struct {
	db  *gorm.DB
	log *logger.Logger
}

// NewLessonService creates a new lesson service
func NewLessonService(db *gorm.DB, log *logger.Logger) *LessonService {
	if log == nil {
		log = logger.NewNop()
	}
	return &LessonService{db: db, log: log.With("component", "lesson_service")}
}

// RegenerateSchedule replaces every lesson of the document with a fresh
// distribution of its chapters over the teaching days in cfg. An empty day
// list leaves the existing schedule untouched.
func (s *LessonService) RegenerateSchedule(ctx context.Context, documentID uint, cfg schedule.Config) ([]model.Lesson, error) {
	if documentID == 0 || cfg.StartDate.IsZero() || cfg.EndDate.IsZero() {
		return nil, ErrScheduleInputMissing
	}
	if span := cfg.SpanDays(); span > schedule.MaxSpanDays {
		return nil, fmt.Errorf("%w: %d days, limit is %d", ErrScheduleRangeTooLong, span, schedule.MaxSpanDays)
	}

	var doc model.Document
	if err := s.db.WithContext(ctx).Select("id", "chapters").First(&doc, documentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %w", ErrScheduleInputMissing, ErrDocumentNotFound)
		}
		return nil, fmt.Errorf("failed to fetch document: %w", err)
	}

	days := schedule.TeachingDays(cfg)
	if len(days) == 0 {
		return nil, ErrEmptySchedule
	}

	chapters, err := doc.GetChapters()
	if err != nil {
		return nil, fmt.Errorf("failed to decode chapters: %w", err)
	}

	lessons := schedule.Distribute(doc.ID, days, chapters, cfg.WeeklyFrequency())

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("document_id = ?", doc.ID).Delete(&model.Lesson{}).Error; err != nil {
			return fmt.Errorf("failed to delete previous lessons: %w", err)
		}
		if err := tx.CreateInBatches(&lessons, lessonBatchSize).Error; err != nil {
			return fmt.Errorf("failed to insert lessons: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("schedule regenerated",
		"document_id", doc.ID,
		"lessons", len(lessons),
		"chapters", len(chapters),
		"first_day", days[0].Format(schedule.DateLayout),
		"last_day", days[len(days)-1].Format(schedule.DateLayout),
	)
	return lessons, nil
}

// ListLessons returns the document's lessons in schedule order
func (s *LessonService) ListLessons(ctx context.Context, documentID uint) ([]model.Lesson, error) {
	if err := documentExists(ctx, s.db, documentID); err != nil {
		return nil, err
	}

	var lessons []model.Lesson
	if err := s.db.WithContext(ctx).Where("document_id = ?", documentID).
		Order("scheduled_date ASC, id ASC").Find(&lessons).Error; err != nil {
		return nil, fmt.Errorf("failed to list lessons: %w", err)
	}
	return lessons, nil
}

// UpdateStatus moves a lesson to a new status. Lessons never return to pending.
func (s *LessonService) UpdateStatus(ctx context.Context, lessonID uint, status model.LessonStatus) (*model.Lesson, error) {
	var lesson model.Lesson
	if err := s.db.WithContext(ctx).First(&lesson, lessonID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLessonNotFound
		}
		return nil, fmt.Errorf("failed to fetch lesson: %w", err)
	}

	if !lesson.Status.CanTransitionTo(status) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidStatusTransition, lesson.Status, status)
	}

	// Guard on the status we validated against so a concurrent change is not overwritten
	res := s.db.WithContext(ctx).Model(&model.Lesson{}).
		Where("id = ? AND status = ?", lesson.ID, lesson.Status).
		Update("status", status)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to update lesson status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: lesson changed concurrently", ErrInvalidStatusTransition)
	}

	s.log.Debug("lesson status updated", "lesson_id", lesson.ID, "from", lesson.Status, "to", status)
	lesson.Status = status
	return &lesson, nil
}

func documentExists(ctx context.Context, db *gorm.DB, documentID uint) error {
	var count int64
	if err := db.WithContext(ctx).Model(&model.Document{}).Where("id = ?", documentID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to fetch document: %w", err)
	}
	if count == 0 {
		return ErrDocumentNotFound
	}
	return nil
}

// ExportCalendar renders the document's schedule as an iCalendar file
func (s *LessonService) ExportCalendar(ctx context.Context, documentID uint, now time.Time) ([]byte, error) {
	var doc model.Document
	if err := s.db.WithContext(ctx).Select("id", "title").First(&doc, documentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to fetch document: %w", err)
	}

	lessons, err := s.ListLessons(ctx, documentID)
	if err != nil {
		return nil, err
	}
	return BuildCalendar(&doc, lessons, now), nil
}
