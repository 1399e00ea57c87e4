package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/sahilchouksey/lesson-planner/model"
	"github.com/sahilchouksey/lesson-planner/services/schedule"
)

// ActiveLessonKind tells whether the selected lesson is scheduled for today or later
type ActiveLessonKind string

const (
	ActiveLessonToday ActiveLessonKind = "today"
	ActiveLessonNext  ActiveLessonKind = "next"
)

// ActiveLesson is the lesson a teacher should work on now
type ActiveLesson struct {
	Kind   ActiveLessonKind `json:"kind"`
	Lesson model.Lesson     `json:"lesson"`
}

// ActiveLessonSelector picks the current lesson from the pending lessons that
// follow the document's progress pointer
type ActiveLessonSelector struct {
	db  *gorm.DB
	loc *time.Location

	// Now is the clock; tests replace it
	Now func() time.Time
}

// NewActiveLessonSelector creates a selector that decides "today" in loc. A nil loc means UTC.
func NewActiveLessonSelector(db *gorm.DB, loc *time.Location) *ActiveLessonSelector {
	if loc == nil {
		loc = time.UTC
	}
	return &ActiveLessonSelector{db: db, loc: loc, Now: time.Now}
}

// Today returns the current calendar date in the selector's time zone
func (s *ActiveLessonSelector) Today() time.Time {
	return schedule.DateOf(s.Now().In(s.loc))
}

// Select returns the pending lesson scheduled for today, else the earliest
// future one, ignoring the first pointer-1 pending lessons. It returns nil when
// nothing is left to teach.
func (s *ActiveLessonSelector) Select(ctx context.Context, documentID uint) (*ActiveLesson, error) {
	var doc model.Document
	if err := s.db.WithContext(ctx).Select("id", "current_lesson_pointer").First(&doc, documentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to fetch document: %w", err)
	}

	var pending []model.Lesson
	if err := s.db.WithContext(ctx).
		Where("document_id = ? AND status = ?", documentID, model.LessonStatusPending).
		Order("scheduled_date ASC, id ASC").Find(&pending).Error; err != nil {
		return nil, fmt.Errorf("failed to load pending lessons: %w", err)
	}

	return pickActiveLesson(pending, doc.CurrentLessonPointer, s.Today()), nil
}

// pickActiveLesson applies the selection rule to date-sorted pending lessons
func pickActiveLesson(pending []model.Lesson, pointer int, today time.Time) *ActiveLesson {
	offset := max(pointer-1, 0)
	if offset >= len(pending) {
		return nil
	}

	for _, lesson := range pending[offset:] {
		day := schedule.DateOf(lesson.ScheduledDate)
		switch {
		case day.Equal(today):
			return &ActiveLesson{Kind: ActiveLessonToday, Lesson: lesson}
		case day.After(today):
			return &ActiveLesson{Kind: ActiveLessonNext, Lesson: lesson}
		}
	}
	return nil
}
