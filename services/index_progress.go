package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sahilchouksey/lesson-planner/model"
	"github.com/sahilchouksey/lesson-planner/utils/cache"
)

// TTL configurations for deep-index state in redis
const (
	IndexProgressTTL = 24 * time.Hour
	IndexLockTTL     = 5 * time.Minute
)

const (
	redisKeyIndexProgress = "deep_index:progress:%d"
	redisKeyIndexLock     = "deep_index:lock:%d"
)

// IndexProgressEvent is one deep-index progress update, sent to SSE clients
type IndexProgressEvent struct {
	Type       string               `json:"type"` // "started", "progress", "complete", "cancelled", "error"
	DocumentID uint                 `json:"document_id"`
	Status     model.IndexingStatus `json:"status"`

	IndexedPages int `json:"indexed_pages"`
	TotalPages   int `json:"total_pages"`
	Progress     int `json:"progress"` // 0-100

	Message      string `json:"message,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`

	ElapsedMs int64     `json:"elapsed_ms,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// IndexProgressCallback receives progress events from a running deep-index task
type IndexProgressCallback func(IndexProgressEvent)

// IndexProgressTracker mirrors deep-index progress and ownership into redis so
// other processes can observe it. A nil cache turns every call into a no-op.
type IndexProgressTracker struct {
	cache *cache.RedisCache
}

// NewIndexProgressTracker creates a tracker; redisCache may be nil
func NewIndexProgressTracker(redisCache *cache.RedisCache) *IndexProgressTracker {
	return &IndexProgressTracker{cache: redisCache}
}

// Enabled reports whether a redis backend is attached
func (pt *IndexProgressTracker) Enabled() bool {
	return pt != nil && pt.cache != nil
}

// Publish stores the latest event for the document
func (pt *IndexProgressTracker) Publish(ctx context.Context, event IndexProgressEvent) error {
	if !pt.Enabled() {
		return nil
	}
	key := fmt.Sprintf(redisKeyIndexProgress, event.DocumentID)
	if err := pt.cache.SetJSON(ctx, key, event, IndexProgressTTL); err != nil {
		return fmt.Errorf("failed to publish index progress: %w", err)
	}
	return nil
}

// Get returns the latest published event, or nil when none exists
func (pt *IndexProgressTracker) Get(ctx context.Context, documentID uint) (*IndexProgressEvent, error) {
	if !pt.Enabled() {
		return nil, nil
	}
	var event IndexProgressEvent
	if err := pt.cache.GetJSON(ctx, fmt.Sprintf(redisKeyIndexProgress, documentID), &event); err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &event, nil
}

// AcquireLock takes the cross-process indexing lock for a document.
// Without redis the lock always succeeds; the in-process registry still applies.
func (pt *IndexProgressTracker) AcquireLock(ctx context.Context, documentID uint, owner string) (bool, error) {
	if !pt.Enabled() {
		return true, nil
	}
	return pt.cache.Lock(ctx, fmt.Sprintf(redisKeyIndexLock, documentID), owner, IndexLockTTL)
}

// RefreshLock extends the lock while the owner is still making progress
func (pt *IndexProgressTracker) RefreshLock(ctx context.Context, documentID uint) error {
	if !pt.Enabled() {
		return nil
	}
	return pt.cache.Extend(ctx, fmt.Sprintf(redisKeyIndexLock, documentID), IndexLockTTL)
}

// ReleaseLock drops the lock if it is still held by owner
func (pt *IndexProgressTracker) ReleaseLock(ctx context.Context, documentID uint, owner string) error {
	if !pt.Enabled() {
		return nil
	}
	return pt.cache.Unlock(ctx, fmt.Sprintf(redisKeyIndexLock, documentID), owner)
}

// CalculateIndexProgress converts a page count into a 0-100 percentage
func CalculateIndexProgress(indexedPages, totalPages int) int {
	if totalPages <= 0 {
		return 0
	}
	progress := indexedPages * 100 / totalPages
	if progress > 100 {
		progress = 100
	}
	if progress < 0 {
		progress = 0
	}
	return progress
}

// ProgressFromDocument builds an event from persisted deep-index state
func ProgressFromDocument(doc *model.Document) IndexProgressEvent {
	eventType := "progress"
	switch doc.IndexingStatus {
	case model.IndexingStatusCompleted:
		eventType = "complete"
	case model.IndexingStatusCancelled:
		eventType = "cancelled"
	case model.IndexingStatusFailed:
		eventType = "error"
	}
	return IndexProgressEvent{
		Type:         eventType,
		DocumentID:   doc.ID,
		Status:       doc.IndexingStatus,
		IndexedPages: doc.IndexedPages,
		TotalPages:   doc.PageCount,
		Progress:     CalculateIndexProgress(doc.IndexedPages, doc.PageCount),
		ErrorMessage: doc.IndexingError,
		Timestamp:    time.Now(),
	}
}
