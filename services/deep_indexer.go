package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sahilchouksey/lesson-planner/model"
	"github.com/sahilchouksey/lesson-planner/utils/logger"
)

const (
	// ChunkSize is the number of pages extracted and persisted per step
	ChunkSize = 5
	// YieldInterval is the pause between chunks so indexing never starves the server
	YieldInterval = 200 * time.Millisecond
)

var (
	ErrIndexingLocked    = errors.New("document is being indexed by another process")
	ErrIndexingCancelled = errors.New("deep indexing cancelled")
)

// IndexTask is a handle on one running deep-index walk
type IndexTask struct {
	DocumentID uint

	cancel context.CancelFunc
	done   chan struct{}
	err    error

	mu       sync.RWMutex
	progress IndexProgressEvent
}

// Cancel stops the task after the chunk in flight; already persisted text stays
func (t *IndexTask) Cancel() { t.cancel() }

// Done is closed once the task has stopped
func (t *IndexTask) Done() <-chan struct{} { return t.done }

// Wait blocks until the task stops and returns its terminal error, nil on completion
func (t *IndexTask) Wait() error {
	<-t.done
	return t.err
}

// Progress returns the latest progress event
func (t *IndexTask) Progress() IndexProgressEvent {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.progress
}

func (t *IndexTask) setProgress(event IndexProgressEvent) {
	t.mu.Lock()
	t.progress = event
	t.mu.Unlock()
}

// DeepIndexer walks the remaining pages of a document in the background and
// appends their text to the stored full text, one chunk at a time.
type DeepIndexer struct {
	db      *gorm.DB
	tracker *IndexProgressTracker
	log     *logger.Logger
	owner   string

	ChunkSize     int
	YieldInterval time.Duration
	OnProgress    IndexProgressCallback

	baseCtx    context.Context
	baseCancel context.CancelFunc

	mu    sync.Mutex
	tasks map[uint]*IndexTask
}

// NewDeepIndexer creates an indexer whose tasks live until Shutdown
func NewDeepIndexer(db *gorm.DB, tracker *IndexProgressTracker, log *logger.Logger) *DeepIndexer {
	if log == nil {
		log = logger.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &DeepIndexer{
		db:            db,
		tracker:       tracker,
		log:           log.With("component", "deep_indexer"),
		owner:         uuid.NewString(),
		ChunkSize:     ChunkSize,
		YieldInterval: YieldInterval,
		baseCtx:       ctx,
		baseCancel:    cancel,
		tasks:         make(map[uint]*IndexTask),
	}
}

// Start launches a detached walk of pages [startPage, NumPages]. A task already
// running for the same document is cancelled and awaited first. The source is
// closed when the task stops.
func (d *DeepIndexer) Start(documentID uint, src PageSource, startPage int, lang model.Language) *IndexTask {
	ctx, cancel := context.WithCancel(d.baseCtx)
	task := &IndexTask{
		DocumentID: documentID,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	task.setProgress(IndexProgressEvent{
		Type:         "started",
		DocumentID:   documentID,
		Status:       model.IndexingStatusInProgress,
		IndexedPages: startPage - 1,
		TotalPages:   src.NumPages(),
		Progress:     CalculateIndexProgress(startPage-1, src.NumPages()),
		Timestamp:    time.Now(),
	})

	d.mu.Lock()
	previous := d.tasks[documentID]
	d.tasks[documentID] = task
	d.mu.Unlock()

	if previous != nil {
		previous.Cancel()
	}

	go func() {
		defer close(task.done)
		defer cancel()
		defer d.unregister(task)
		defer func() {
			if err := src.Close(); err != nil {
				d.log.Warn("failed to close page source", "document_id", documentID, "error", err)
			}
		}()

		if previous != nil {
			<-previous.Done()
		}
		task.err = d.run(ctx, task, src, startPage, lang)
	}()

	return task
}

// Cancel signals the running task for a document, if any, and returns it so
// the caller can wait on Done. It does not block.
func (d *DeepIndexer) Cancel(documentID uint) (*IndexTask, bool) {
	d.mu.Lock()
	task, ok := d.tasks[documentID]
	d.mu.Unlock()
	if ok {
		task.Cancel()
	}
	return task, ok
}

// CancelAll stops every running task and waits for them to finish.
// Unlike Shutdown the indexer stays usable.
func (d *DeepIndexer) CancelAll() {
	d.mu.Lock()
	tasks := make([]*IndexTask, 0, len(d.tasks))
	for _, t := range d.tasks {
		tasks = append(tasks, t)
	}
	d.mu.Unlock()

	for _, t := range tasks {
		t.Cancel()
		<-t.Done()
	}
}

// Task returns the running task for a document
func (d *DeepIndexer) Task(documentID uint) (*IndexTask, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	task, ok := d.tasks[documentID]
	return task, ok
}

// Shutdown cancels every task and waits for them to stop or ctx to expire.
// Interrupted documents keep their in_progress status so they are resumed later.
func (d *DeepIndexer) Shutdown(ctx context.Context) error {
	d.baseCancel()

	d.mu.Lock()
	tasks := make([]*IndexTask, 0, len(d.tasks))
	for _, t := range d.tasks {
		tasks = append(tasks, t)
	}
	d.mu.Unlock()

	for _, t := range tasks {
		select {
		case <-t.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (d *DeepIndexer) unregister(task *IndexTask) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.tasks[task.DocumentID] == task {
		delete(d.tasks, task.DocumentID)
	}
}

func (d *DeepIndexer) run(ctx context.Context, task *IndexTask, src PageSource, startPage int, lang model.Language) error {
	id := task.DocumentID
	log := d.log.With("document_id", id)
	started := time.Now()
	total := src.NumPages()
	if startPage < 1 {
		startPage = 1
	}

	locked, err := d.tracker.AcquireLock(ctx, id, d.owner)
	if err != nil {
		// Redis trouble should not stop indexing; the in-process registry still guards us
		log.Warn("failed to acquire indexing lock, continuing", "error", err)
		locked = true
	}
	if !locked {
		log.Info("document is locked by another process, skipping")
		return ErrIndexingLocked
	}
	defer func() {
		if err := d.tracker.ReleaseLock(context.Background(), id, d.owner); err != nil {
			log.Warn("failed to release indexing lock", "error", err)
		}
	}()

	// Persistence must outlive cancellation so the final state is always written
	dbCtx := context.WithoutCancel(ctx)

	if err := d.db.WithContext(dbCtx).Model(&model.Document{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"indexing_status": model.IndexingStatusInProgress,
			"indexing_error":  "",
		}).Error; err != nil {
		return d.fail(dbCtx, task, log, fmt.Errorf("failed to mark indexing started: %w", err))
	}

	log.Info("deep indexing started", "start_page", startPage, "total_pages", total)

	chunkSize := d.ChunkSize
	if chunkSize < 1 {
		chunkSize = ChunkSize
	}

	for first := startPage; first <= total; first += chunkSize {
		if ctx.Err() != nil {
			return d.stop(dbCtx, task, log)
		}

		last := first + chunkSize - 1
		if last > total {
			last = total
		}

		texts := ReadPages(ctx, src, first, last, lang)
		if ctx.Err() != nil {
			// The chunk may be incomplete; it is re-read on resume
			return d.stop(dbCtx, task, log)
		}

		if err := d.appendChunk(dbCtx, id, last, JoinPages(texts)); err != nil {
			return d.fail(dbCtx, task, log, err)
		}

		event := IndexProgressEvent{
			Type:         "progress",
			DocumentID:   id,
			Status:       model.IndexingStatusInProgress,
			IndexedPages: last,
			TotalPages:   total,
			Progress:     CalculateIndexProgress(last, total),
			Message:      fmt.Sprintf("Indexed pages %d-%d", first, last),
			ElapsedMs:    time.Since(started).Milliseconds(),
			Timestamp:    time.Now(),
		}
		d.emit(dbCtx, task, event)

		if err := d.tracker.RefreshLock(dbCtx, id); err != nil {
			log.Warn("failed to refresh indexing lock", "error", err)
		}

		if last < total {
			select {
			case <-ctx.Done():
				return d.stop(dbCtx, task, log)
			case <-time.After(d.YieldInterval):
			}
		}
	}

	now := time.Now()
	if err := d.db.WithContext(dbCtx).Model(&model.Document{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"indexing_status":       model.IndexingStatusCompleted,
			"indexing_completed_at": now,
			"indexed_pages":         total,
		}).Error; err != nil {
		return d.fail(dbCtx, task, log, fmt.Errorf("failed to mark indexing completed: %w", err))
	}

	d.emit(dbCtx, task, IndexProgressEvent{
		Type:         "complete",
		DocumentID:   id,
		Status:       model.IndexingStatusCompleted,
		IndexedPages: total,
		TotalPages:   total,
		Progress:     100,
		Message:      "Deep indexing completed",
		ElapsedMs:    time.Since(started).Milliseconds(),
		Timestamp:    now,
	})
	log.Info("deep indexing completed", "pages", total, "duration", time.Since(started).String())
	return nil
}

// appendChunk appends text to the persisted full text and advances indexed_pages.
// The guard on indexed_pages makes a replayed chunk a no-op.
func (d *DeepIndexer) appendChunk(ctx context.Context, documentID uint, lastPage int, text string) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"indexed_pages": lastPage,
		}
		if text != "" {
			updates["full_text"] = gorm.Expr(
				"CASE WHEN full_text IS NULL OR full_text = '' THEN ? ELSE full_text || ? END",
				text, "\n\n"+text,
			)
		}
		res := tx.Model(&model.Document{}).
			Where("id = ? AND indexed_pages < ?", documentID, lastPage).
			Updates(updates)
		if res.Error != nil {
			return fmt.Errorf("failed to append indexed text: %w", res.Error)
		}
		return nil
	})
}

// stop ends a cancelled walk. Explicit cancellation is persisted; a shutdown leaves
// the document in_progress so the resume job picks it up again.
func (d *DeepIndexer) stop(ctx context.Context, task *IndexTask, log *logger.Logger) error {
	progress := task.Progress()
	if d.baseCtx.Err() != nil {
		log.Info("deep indexing interrupted by shutdown", "indexed_pages", progress.IndexedPages)
		return ErrIndexingCancelled
	}

	if err := d.db.WithContext(ctx).Model(&model.Document{}).
		Where("id = ? AND indexing_status = ?", task.DocumentID, model.IndexingStatusInProgress).
		Update("indexing_status", model.IndexingStatusCancelled).Error; err != nil {
		log.Error("failed to mark indexing cancelled", "error", err)
	}

	progress.Type = "cancelled"
	progress.Status = model.IndexingStatusCancelled
	progress.Message = "Deep indexing cancelled"
	progress.Timestamp = time.Now()
	d.emit(ctx, task, progress)

	log.Info("deep indexing cancelled", "indexed_pages", progress.IndexedPages)
	return ErrIndexingCancelled
}

func (d *DeepIndexer) fail(ctx context.Context, task *IndexTask, log *logger.Logger, cause error) error {
	log.Error("deep indexing failed", "error", cause)

	if err := d.db.WithContext(ctx).Model(&model.Document{}).Where("id = ?", task.DocumentID).
		Updates(map[string]interface{}{
			"indexing_status": model.IndexingStatusFailed,
			"indexing_error":  cause.Error(),
		}).Error; err != nil {
		log.Error("failed to mark indexing failed", "error", err)
	}

	progress := task.Progress()
	progress.Type = "error"
	progress.Status = model.IndexingStatusFailed
	progress.ErrorMessage = cause.Error()
	progress.Timestamp = time.Now()
	d.emit(ctx, task, progress)
	return cause
}

func (d *DeepIndexer) emit(ctx context.Context, task *IndexTask, event IndexProgressEvent) {
	task.setProgress(event)
	if err := d.tracker.Publish(ctx, event); err != nil {
		d.log.Warn("failed to publish index progress", "document_id", event.DocumentID, "error", err)
	}
	if d.OnProgress != nil {
		d.OnProgress(event)
	}
}
