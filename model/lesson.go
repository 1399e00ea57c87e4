package model

import "time"

// LessonStatus represents where a scheduled lesson is in the teaching workflow
type LessonStatus string

const (
	LessonStatusPending   LessonStatus = "pending"
	LessonStatusPlanned   LessonStatus = "planned"
	LessonStatusCompleted LessonStatus = "completed"
	LessonStatusSkipped   LessonStatus = "skipped"
)

// Valid reports whether s is a known status
func (s LessonStatus) Valid() bool {
	switch s {
	case LessonStatusPending, LessonStatusPlanned, LessonStatusCompleted, LessonStatusSkipped:
		return true
	}
	return false
}

// CanTransitionTo reports whether a lesson may move from s to next.
// Lessons never return to pending once picked up.
func (s LessonStatus) CanTransitionTo(next LessonStatus) bool {
	if !next.Valid() || s == next {
		return false
	}
	return next != LessonStatusPending
}

// Lesson is a scheduled teaching session bound to one document and one teaching day
type Lesson struct {
	ID             uint         `gorm:"primaryKey" json:"id"`
	DocumentID     uint         `gorm:"not null;index:idx_lessons_document_date" json:"document_id"`
	ScheduledDate  time.Time    `gorm:"type:date;not null;index:idx_lessons_document_date" json:"scheduled_date"`
	Title          string       `gorm:"type:varchar(255);not null" json:"title"`
	ContentContext string       `gorm:"type:text" json:"content_context"`
	Status         LessonStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	WeekNumber     int          `gorm:"not null;default:1" json:"week_number"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// Snapshot is the full backup payload
type Snapshot struct {
	Documents []Document `json:"documents"`
	Lessons   []Lesson   `json:"lessons"`
}
