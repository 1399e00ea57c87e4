package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/sahilchouksey/lesson-planner/model"
	"github.com/sahilchouksey/lesson-planner/utils/logger"
)

const restoreBatchSize = 100

// RestoreResult counts the rows written by a restore
type RestoreResult struct {
	Documents int `json:"documents"`
	Lessons   int `json:"lessons"`
}

// BackupService exports and restores documents and lessons as one JSON snapshot.
// Uploaded binaries are not part of the snapshot.
type BackupService struct {
	db      *gorm.DB
	indexer *DeepIndexer
	log     *logger.Logger
}

// NewBackupService creates a backup service. indexer may be nil; when set,
// running deep-index tasks are stopped before a restore.
func NewBackupService(db *gorm.DB, indexer *DeepIndexer, log *logger.Logger) *BackupService {
	if log == nil {
		log = logger.NewNop()
	}
	return &BackupService{db: db, indexer: indexer, log: log.With("component", "backup_service")}
}

// Snapshot collects every live document and lesson
func (s *BackupService) Snapshot(ctx context.Context) (*model.Snapshot, error) {
	snap := &model.Snapshot{Documents: []model.Document{}, Lessons: []model.Lesson{}}
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&snap.Documents).Error; err != nil {
		return nil, fmt.Errorf("failed to export documents: %w", err)
	}
	live := s.db.WithContext(ctx).Model(&model.Document{}).Select("id")
	if err := s.db.WithContext(ctx).Where("document_id IN (?)", live).
		Order("document_id ASC, scheduled_date ASC, id ASC").
		Find(&snap.Lessons).Error; err != nil {
		return nil, fmt.Errorf("failed to export lessons: %w", err)
	}
	return snap, nil
}

// WriteBackup streams the snapshot as indented JSON
func (s *BackupService) WriteBackup(ctx context.Context, w io.Writer) (*model.Snapshot, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		return nil, fmt.Errorf("failed to encode backup: %w", err)
	}
	s.log.Info("backup written", "documents", len(snap.Documents), "lessons", len(snap.Lessons))
	return snap, nil
}

// DecodeSnapshot parses a backup file. Both top-level keys are required and every
// lesson must belong to a document in the same file.
func DecodeSnapshot(r io.Reader) (*model.Snapshot, error) {
	var top map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&top); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBackup, err)
	}

	rawDocs, ok := top["documents"]
	if !ok {
		return nil, fmt.Errorf("%w: missing documents", ErrInvalidBackup)
	}
	rawLessons, ok := top["lessons"]
	if !ok {
		return nil, fmt.Errorf("%w: missing lessons", ErrInvalidBackup)
	}

	snap := &model.Snapshot{}
	if err := json.Unmarshal(rawDocs, &snap.Documents); err != nil {
		return nil, fmt.Errorf("%w: documents: %v", ErrInvalidBackup, err)
	}
	if err := json.Unmarshal(rawLessons, &snap.Lessons); err != nil {
		return nil, fmt.Errorf("%w: lessons: %v", ErrInvalidBackup, err)
	}

	ids := make(map[uint]struct{}, len(snap.Documents))
	for _, doc := range snap.Documents {
		if doc.ID == 0 {
			return nil, fmt.Errorf("%w: document without id", ErrInvalidBackup)
		}
		if _, dup := ids[doc.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate document id %d", ErrInvalidBackup, doc.ID)
		}
		if utf8.RuneCountInString(doc.Title) > model.MaxTitleLength {
			return nil, fmt.Errorf("%w: document %d title is longer than %d characters", ErrInvalidBackup, doc.ID, model.MaxTitleLength)
		}
		ids[doc.ID] = struct{}{}
	}
	for _, lesson := range snap.Lessons {
		if _, ok := ids[lesson.DocumentID]; !ok {
			return nil, fmt.Errorf("%w: lesson %d references unknown document %d", ErrInvalidBackup, lesson.ID, lesson.DocumentID)
		}
		if utf8.RuneCountInString(lesson.Title) > model.MaxTitleLength {
			return nil, fmt.Errorf("%w: lesson %d title is longer than %d characters", ErrInvalidBackup, lesson.ID, model.MaxTitleLength)
		}
	}
	return snap, nil
}

// Restore replaces all documents and lessons with the snapshot in r. Nothing is
// written when the file is invalid.
func (s *BackupService) Restore(ctx context.Context, r io.Reader) (*RestoreResult, error) {
	snap, err := DecodeSnapshot(r)
	if err != nil {
		return nil, err
	}

	if s.indexer != nil {
		s.indexer.CancelAll()
	}

	ids := make([]uint, 0, len(snap.Documents))
	for _, doc := range snap.Documents {
		ids = append(ids, doc.ID)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		all := tx.Session(&gorm.Session{AllowGlobalUpdate: true})
		if err := all.Delete(&model.Lesson{}).Error; err != nil {
			return fmt.Errorf("failed to clear lessons: %w", err)
		}
		if err := all.Unscoped().Delete(&model.Document{}).Error; err != nil {
			return fmt.Errorf("failed to clear documents: %w", err)
		}
		// Keep stored binaries of restored documents so they can still be re-analyzed
		orphans := all.Model(&model.DocumentFile{})
		if len(ids) > 0 {
			orphans = orphans.Where("document_id NOT IN ?", ids)
		}
		if err := orphans.Delete(&model.DocumentFile{}).Error; err != nil {
			return fmt.Errorf("failed to clear binaries: %w", err)
		}

		if len(snap.Documents) > 0 {
			if err := tx.CreateInBatches(&snap.Documents, restoreBatchSize).Error; err != nil {
				return fmt.Errorf("failed to restore documents: %w", err)
			}
		}
		if len(snap.Lessons) > 0 {
			if err := tx.CreateInBatches(&snap.Lessons, restoreBatchSize).Error; err != nil {
				return fmt.Errorf("failed to restore lessons: %w", err)
			}
		}
		return resetSequences(tx, "documents", "lessons")
	})
	if err != nil {
		return nil, err
	}

	result := &RestoreResult{Documents: len(snap.Documents), Lessons: len(snap.Lessons)}
	s.log.Info("backup restored", "documents", result.Documents, "lessons", result.Lessons)
	return result, nil
}

// resetSequences moves postgres id sequences past the restored ids
func resetSequences(tx *gorm.DB, tables ...string) error {
	if tx.Dialector.Name() != "postgres" {
		return nil
	}
	for _, table := range tables {
		sql := fmt.Sprintf("SELECT setval(pg_get_serial_sequence('%s', 'id'), COALESCE((SELECT MAX(id) FROM %s), 0) + 1, false)", table, table)
		if err := tx.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to reset %s sequence: %w", table, err)
		}
	}
	return nil
}
