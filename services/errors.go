package services

import "errors"

// Service errors mapped to HTTP responses by the handlers
var (
	ErrDocumentNotFound        = errors.New("document not found")
	ErrLessonNotFound          = errors.New("lesson not found")
	ErrDuplicateDocument       = errors.New("document already uploaded")
	ErrScheduleInputMissing    = errors.New("document and date range are required to generate a schedule")
	ErrEmptySchedule           = errors.New("no teaching days fall within the requested range")
	ErrScheduleRangeTooLong    = errors.New("schedule date range is too long")
	ErrInvalidStatusTransition = errors.New("invalid lesson status transition")
	ErrInvalidBackup           = errors.New("invalid backup file")
	ErrBlobNotFound            = errors.New("document binary not found")
	ErrTooManyPages            = errors.New("document exceeds the page limit")
)

// DuplicateDocumentError carries the id of the document that already holds the content
type DuplicateDocumentError struct {
	ExistingID uint
}

func (e *DuplicateDocumentError) Error() string {
	return ErrDuplicateDocument.Error()
}

func (e *DuplicateDocumentError) Unwrap() error {
	return ErrDuplicateDocument
}
