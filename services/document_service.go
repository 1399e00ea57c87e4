package services

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"
	"gorm.io/gorm"

	"github.com/sahilchouksey/lesson-planner/model"
	"github.com/sahilchouksey/lesson-planner/utils/logger"
)

// DocumentService runs the ingestion pipeline and manages stored documents
type DocumentService struct {
	db       *gorm.DB
	opener   DocumentOpener
	analyzer *StructuralAnalyzer
	indexer  *DeepIndexer
	tracker  *IndexProgressTracker
	blobs    BlobStore
	maxPages int
	log      *logger.Logger
}

// DocumentServiceOptions wires the collaborators of the ingestion pipeline
type DocumentServiceOptions struct {
	Opener   DocumentOpener
	Analyzer *StructuralAnalyzer
	Indexer  *DeepIndexer
	Tracker  *IndexProgressTracker
	Blobs    BlobStore
	MaxPages int // 0 disables the limit
	Log      *logger.Logger
}

// NewDocumentService creates a new document service
func NewDocumentService(db *gorm.DB, opts DocumentServiceOptions) *DocumentService {
	log := opts.Log
	if log == nil {
		log = logger.NewNop()
	}
	if opts.Analyzer == nil {
		opts.Analyzer = NewStructuralAnalyzer(nil, log)
	}
	if opts.Blobs == nil {
		opts.Blobs = NewDatabaseBlobStore(db)
	}
	return &DocumentService{
		db:       db,
		opener:   opts.Opener,
		analyzer: opts.Analyzer,
		indexer:  opts.Indexer,
		tracker:  opts.Tracker,
		blobs:    opts.Blobs,
		maxPages: opts.MaxPages,
		log:      log.With("component", "document_service"),
	}
}

// IngestRequest represents one uploaded textbook
type IngestRequest struct {
	Title       string
	Subject     string
	FileName    string
	ContentType string
	Content     []byte
}

// ContentHash returns the hex BLAKE2b-256 digest used for duplicate detection
func ContentHash(content []byte) string {
	sum := blake2b.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// Ingest extracts the leading sample, detects the language, recovers the outline
// and persists the document. The remaining pages are indexed in the background.
func (s *DocumentService) Ingest(ctx context.Context, req IngestRequest) (*model.Document, error) {
	if len(req.Content) == 0 {
		return nil, ErrEmptyDocument
	}

	hash := ContentHash(req.Content)
	if err := s.checkDuplicate(ctx, hash); err != nil {
		return nil, err
	}

	src, err := s.opener.Open(req.Content, req.FileName)
	if err != nil {
		return nil, err
	}
	handedOff := false
	defer func() {
		if !handedOff {
			src.Close()
		}
	}()

	total := src.NumPages()
	if s.maxPages > 0 && total > s.maxPages {
		return nil, fmt.Errorf("%w: %d pages, limit is %d", ErrTooManyPages, total, s.maxPages)
	}

	sampleEnd := min(SamplePages, total)
	pages := ReadPages(ctx, src, 1, sampleEnd, model.LanguageAuto)
	fullSample := JoinPages(pages)
	lang := s.detectLanguage(ctx, src, fullSample)

	outline := s.analyzer.Analyze(ctx, AnalysisInput{
		Sample:   BuildSample(pages),
		Subject:  req.Subject,
		Language: lang,
	})

	doc := &model.Document{
		Title:                documentTitle(req.Title, req.FileName),
		Subject:              truncateRunes(strings.TrimSpace(req.Subject), model.MaxTitleLength),
		Grade:                outline.Grade,
		FileName:             truncateRunes(filepath.Base(req.FileName), model.MaxTitleLength),
		ContentType:          req.ContentType,
		FileSize:             int64(len(req.Content)),
		ContentHash:          hash,
		PageCount:            total,
		FullText:             fullSample,
		OutlineSummary:       outline.Summary,
		OutlineSource:        outline.Source,
		DetectedLanguage:     lang,
		CurrentLessonPointer: 1,
		IndexedPages:         sampleEnd,
		IndexingStatus:       model.IndexingStatusInProgress,
	}
	if sampleEnd >= total {
		now := time.Now()
		doc.IndexingStatus = model.IndexingStatusCompleted
		doc.IndexingCompletedAt = &now
	}
	if err := doc.SetChapters(outline.Chapters); err != nil {
		return nil, fmt.Errorf("failed to encode chapters: %w", err)
	}

	if err := s.db.WithContext(ctx).Create(doc).Error; err != nil {
		return nil, fmt.Errorf("failed to create document: %w", err)
	}

	key, err := s.blobs.Put(ctx, doc, req.Content)
	if err != nil {
		// Without its binary the document could never be resumed or re-analyzed
		if delErr := s.db.Unscoped().Delete(&model.Document{}, doc.ID).Error; delErr != nil {
			s.log.Error("failed to roll back document", "document_id", doc.ID, "error", delErr)
		}
		return nil, fmt.Errorf("failed to store document binary: %w", err)
	}
	if key != "" {
		doc.StorageKey = key
		if err := s.db.WithContext(ctx).Model(doc).Update("storage_key", key).Error; err != nil {
			return nil, fmt.Errorf("failed to record storage key: %w", err)
		}
	}

	s.log.Info("document ingested",
		"document_id", doc.ID,
		"pages", total,
		"language", lang,
		"outline_source", outline.Source,
		"chapters", len(outline.Chapters),
	)

	if doc.IndexingStatus == model.IndexingStatusInProgress && s.indexer != nil {
		s.indexer.Start(doc.ID, src, sampleEnd+1, lang)
		handedOff = true
	}
	return doc, nil
}

// checkDuplicate rejects content that is already stored. A soft-deleted copy is
// purged so the unique hash can be reused.
func (s *DocumentService) checkDuplicate(ctx context.Context, hash string) error {
	var existing model.Document
	err := s.db.WithContext(ctx).Unscoped().Select("id", "deleted_at").
		Where("content_hash = ?", hash).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to check for duplicates: %w", err)
	}
	if !existing.DeletedAt.Valid {
		return &DuplicateDocumentError{ExistingID: existing.ID}
	}
	return s.purge(ctx, existing.ID)
}

func (s *DocumentService) purge(ctx context.Context, documentID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("document_id = ?", documentID).Delete(&model.Lesson{}).Error; err != nil {
			return err
		}
		if err := tx.Where("document_id = ?", documentID).Delete(&model.DocumentFile{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(&model.Document{}, documentID).Error
	})
}

// detectLanguage classifies the sample, probing the first page through OCR when
// the text layer is too thin to judge
func (s *DocumentService) detectLanguage(ctx context.Context, src PageSource, sample string) model.Language {
	if hasDetectableSample(sample) {
		return DetectLanguage(sample)
	}
	if prober, ok := src.(languageProber); ok {
		if probe := prober.ProbeText(ctx); probe != "" {
			s.log.Debug("language detected from OCR probe")
			return DetectLanguage(probe)
		}
	}
	return DetectLanguage(sample)
}

func documentTitle(title, fileName string) string {
	if t := strings.TrimSpace(title); t != "" {
		return truncateRunes(t, model.MaxTitleLength)
	}
	base := filepath.Base(fileName)
	return truncateRunes(strings.TrimSuffix(base, filepath.Ext(base)), model.MaxTitleLength)
}

// GetDocument returns one document with its full text
func (s *DocumentService) GetDocument(ctx context.Context, documentID uint) (*model.Document, error) {
	var doc model.Document
	if err := s.db.WithContext(ctx).First(&doc, documentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to fetch document: %w", err)
	}
	return &doc, nil
}

// ListDocuments returns all documents, newest first, without their full text
func (s *DocumentService) ListDocuments(ctx context.Context) ([]model.Document, error) {
	var docs []model.Document
	if err := s.db.WithContext(ctx).Omit("full_text").Order("created_at DESC, id DESC").Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	return docs, nil
}

// DeleteDocumentWithCleanup stops indexing, removes the schedule, soft-deletes the
// document and deletes its binary
func (s *DocumentService) DeleteDocumentWithCleanup(ctx context.Context, documentID uint) error {
	doc, err := s.GetDocument(ctx, documentID)
	if err != nil {
		return err
	}

	s.stopIndexing(documentID)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("document_id = ?", documentID).Delete(&model.Lesson{}).Error; err != nil {
			return fmt.Errorf("failed to delete lessons: %w", err)
		}
		if err := tx.Delete(doc).Error; err != nil {
			return fmt.Errorf("failed to delete document: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := s.blobs.Delete(ctx, doc); err != nil {
		s.log.Warn("failed to delete document binary", "document_id", documentID, "error", err)
	}
	return nil
}

// stopIndexing cancels the running task for a document and waits for it to stop
func (s *DocumentService) stopIndexing(documentID uint) {
	if s.indexer == nil {
		return
	}
	if task, ok := s.indexer.Cancel(documentID); ok {
		<-task.Done()
	}
}

// Reanalyze re-runs structural analysis on the stored binary. Deep indexing is
// cancelled once the binary has opened and restarted from the persisted page
// afterwards, so a missing binary leaves a running task alone.
func (s *DocumentService) Reanalyze(ctx context.Context, documentID uint) (*model.Document, error) {
	doc, err := s.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}

	src, err := s.openStored(ctx, doc)
	if err != nil {
		return nil, err
	}
	handedOff := false
	defer func() {
		if !handedOff {
			src.Close()
		}
	}()

	s.stopIndexing(documentID)

	// Reload after the indexer stopped so IndexedPages is current
	doc, err = s.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}

	pages := ReadPages(ctx, src, 1, min(SamplePages, src.NumPages()), doc.DetectedLanguage)
	outline := s.analyzer.Analyze(ctx, AnalysisInput{
		Sample:   BuildSample(pages),
		Subject:  doc.Subject,
		Language: doc.DetectedLanguage,
	})

	if err := doc.SetChapters(outline.Chapters); err != nil {
		return nil, fmt.Errorf("failed to encode chapters: %w", err)
	}
	doc.OutlineSummary = outline.Summary
	doc.OutlineSource = outline.Source
	if outline.Grade != "" {
		doc.Grade = outline.Grade
	}
	if err := s.db.WithContext(ctx).Model(doc).
		Select("chapters", "outline_summary", "outline_source", "grade").
		Updates(doc).Error; err != nil {
		return nil, fmt.Errorf("failed to update outline: %w", err)
	}

	s.log.Info("document re-analyzed", "document_id", doc.ID, "outline_source", outline.Source, "chapters", len(outline.Chapters))

	if doc.IndexingStatus != model.IndexingStatusCompleted && doc.IndexedPages < src.NumPages() && s.indexer != nil {
		s.indexer.Start(doc.ID, src, doc.IndexedPages+1, doc.DetectedLanguage)
		handedOff = true
		doc.IndexingStatus = model.IndexingStatusInProgress
	}
	return doc, nil
}

func (s *DocumentService) openStored(ctx context.Context, doc *model.Document) (PageSource, error) {
	content, err := s.blobs.Get(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("failed to load document binary: %w", err)
	}
	return s.opener.Open(content, doc.FileName)
}

// ResumeIndexing restarts deep indexing for documents that were interrupted,
// typically by a restart. It returns the number of tasks started.
func (s *DocumentService) ResumeIndexing(ctx context.Context) (int, error) {
	if s.indexer == nil {
		return 0, nil
	}

	var docs []model.Document
	err := s.db.WithContext(ctx).Omit("full_text").
		Where("indexing_status IN ?", []string{string(model.IndexingStatusPending), string(model.IndexingStatusInProgress)}).
		Find(&docs).Error
	if err != nil {
		return 0, fmt.Errorf("failed to find interrupted documents: %w", err)
	}

	started := 0
	for i := range docs {
		doc := &docs[i]
		if _, running := s.indexer.Task(doc.ID); running {
			continue
		}

		src, err := s.openStored(ctx, doc)
		if err != nil {
			s.log.Error("cannot resume deep indexing", "document_id", doc.ID, "error", err)
			if errors.Is(err, ErrBlobNotFound) {
				s.markIndexingFailed(ctx, doc.ID, err)
			}
			continue
		}

		s.indexer.Start(doc.ID, src, doc.IndexedPages+1, doc.DetectedLanguage)
		started++
		s.log.Info("deep indexing resumed", "document_id", doc.ID, "from_page", doc.IndexedPages+1)
	}
	return started, nil
}

func (s *DocumentService) markIndexingFailed(ctx context.Context, documentID uint, cause error) {
	err := s.db.WithContext(ctx).Model(&model.Document{}).Where("id = ?", documentID).
		Updates(map[string]interface{}{
			"indexing_status": model.IndexingStatusFailed,
			"indexing_error":  cause.Error(),
		}).Error
	if err != nil {
		s.log.Error("failed to mark indexing failed", "document_id", documentID, "error", err)
	}
}

// CancelIndexing stops deep indexing for a document. Documents whose task runs
// in no process are marked cancelled directly.
func (s *DocumentService) CancelIndexing(ctx context.Context, documentID uint) (*IndexProgressEvent, error) {
	doc, err := s.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}

	if s.indexer != nil {
		if task, ok := s.indexer.Cancel(documentID); ok {
			<-task.Done()
			return s.IndexingStatus(ctx, documentID)
		}
	}

	if !doc.IndexingStatus.IsTerminal() {
		if err := s.db.WithContext(ctx).Model(&model.Document{}).Where("id = ?", documentID).
			Update("indexing_status", model.IndexingStatusCancelled).Error; err != nil {
			return nil, fmt.Errorf("failed to cancel indexing: %w", err)
		}
	}
	return s.IndexingStatus(ctx, documentID)
}

// IndexingStatus reports deep-index progress from the running task, the shared
// redis state, or the persisted document, in that order
func (s *DocumentService) IndexingStatus(ctx context.Context, documentID uint) (*IndexProgressEvent, error) {
	if s.indexer != nil {
		if task, ok := s.indexer.Task(documentID); ok {
			progress := task.Progress()
			return &progress, nil
		}
	}

	var doc model.Document
	err := s.db.WithContext(ctx).Omit("full_text").First(&doc, documentID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to fetch document: %w", err)
	}

	if doc.IndexingStatus == model.IndexingStatusInProgress {
		if event, err := s.tracker.Get(ctx, documentID); err != nil {
			s.log.Warn("failed to read shared index progress", "document_id", documentID, "error", err)
		} else if event != nil && event.Status == model.IndexingStatusInProgress {
			return event, nil
		}
	}

	event := ProgressFromDocument(&doc)
	return &event, nil
}
