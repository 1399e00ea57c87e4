package model

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// IndexingStatus represents the state of the background deep-index walk
type IndexingStatus string

const (
	IndexingStatusPending    IndexingStatus = "pending"
	IndexingStatusInProgress IndexingStatus = "in_progress"
	IndexingStatusCompleted  IndexingStatus = "completed"
	IndexingStatusCancelled  IndexingStatus = "cancelled"
	IndexingStatusFailed     IndexingStatus = "failed"
)

// IsTerminal reports whether no further deep-index work is expected
func (s IndexingStatus) IsTerminal() bool {
	return s == IndexingStatusCompleted || s == IndexingStatusFailed
}

// Column widths, in characters, of the bounded text fields
const (
	MaxTitleLength = 255
	MaxGradeLength = 50
)

// OutlineSource records which analysis tier produced a document's chapters
type OutlineSource string

const (
	OutlineSourceAI       OutlineSource = "ai"
	OutlineSourcePattern  OutlineSource = "pattern"
	OutlineSourceFallback OutlineSource = "fallback"
)

// Document represents one ingested textbook and its recovered structure
type Document struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Title   string `gorm:"type:varchar(255);not null" json:"title"`
	Subject string `gorm:"type:varchar(255)" json:"subject"`
	Grade   string `gorm:"type:varchar(50)" json:"grade,omitempty"`

	// Binary reference
	FileName    string `gorm:"type:varchar(255);not null" json:"file_name"`
	ContentType string `gorm:"type:varchar(100)" json:"content_type"`
	FileSize    int64  `gorm:"default:0" json:"file_size"`
	ContentHash string `gorm:"type:varchar(64);uniqueIndex" json:"content_hash"`
	StorageKey  string `gorm:"type:varchar(500)" json:"storage_key,omitempty"` // Spaces key, empty when stored inline
	PageCount   int    `gorm:"default:0" json:"page_count"`

	// Recovered structure
	FullText         string         `gorm:"type:text" json:"full_text"`
	OutlineSummary   string         `gorm:"type:text" json:"outline_summary"`
	Chapters         datatypes.JSON `json:"chapters"`
	OutlineSource    OutlineSource  `gorm:"type:varchar(20)" json:"outline_source"`
	DetectedLanguage Language       `gorm:"type:varchar(5);default:'en'" json:"detected_language"`

	// CurrentLessonPointer is 1-based into the date-sorted lesson list.
	// Create-only for gorm: the progress synchronizer owns the only UPDATE.
	CurrentLessonPointer int `gorm:"<-:create;not null;default:1" json:"current_lesson_pointer"`

	// Deep-index state
	IndexingStatus      IndexingStatus `gorm:"type:varchar(20);default:'pending';index" json:"indexing_status"`
	IndexedPages        int            `gorm:"default:0" json:"indexed_pages"`
	IndexingError       string         `gorm:"type:text" json:"indexing_error,omitempty"`
	IndexingCompletedAt *time.Time     `json:"indexing_completed_at,omitempty"`

	Lessons []Lesson `gorm:"foreignKey:DocumentID;constraint:OnDelete:CASCADE" json:"-"`
}

// GetChapters decodes the stored chapter list
func (d *Document) GetChapters() ([]Chapter, error) {
	if len(d.Chapters) == 0 {
		return nil, nil
	}
	var chapters []Chapter
	if err := json.Unmarshal(d.Chapters, &chapters); err != nil {
		return nil, err
	}
	return chapters, nil
}

// SetChapters encodes chapters into the JSON column
func (d *Document) SetChapters(chapters []Chapter) error {
	if chapters == nil {
		chapters = []Chapter{}
	}
	data, err := json.Marshal(chapters)
	if err != nil {
		return err
	}
	d.Chapters = datatypes.JSON(data)
	return nil
}

// DocumentFile stores the original binary when no object storage is configured
type DocumentFile struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	DocumentID uint      `gorm:"uniqueIndex;not null" json:"document_id"`
	Data       []byte    `gorm:"not null" json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}
