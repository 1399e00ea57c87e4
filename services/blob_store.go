package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/sahilchouksey/lesson-planner/model"
	"github.com/sahilchouksey/lesson-planner/services/digitalocean"
)

// BlobStore keeps the original uploaded binary so deep indexing can resume later
type BlobStore interface {
	// Put stores the content and returns the storage key to record on the document
	Put(ctx context.Context, doc *model.Document, content []byte) (string, error)
	Get(ctx context.Context, doc *model.Document) ([]byte, error)
	Delete(ctx context.Context, doc *model.Document) error
}

// SpacesBlobStore stores binaries in DigitalOcean Spaces
type SpacesBlobStore struct {
	client *digitalocean.SpacesClient
}

func NewSpacesBlobStore(client *digitalocean.SpacesClient) *SpacesBlobStore {
	return &SpacesBlobStore{client: client}
}

func (s *SpacesBlobStore) Put(ctx context.Context, doc *model.Document, content []byte) (string, error) {
	key := digitalocean.DocumentKey(doc.ContentHash, doc.FileName)
	if err := s.client.Put(ctx, key, content, doc.ContentType); err != nil {
		return "", err
	}
	return key, nil
}

func (s *SpacesBlobStore) Get(ctx context.Context, doc *model.Document) ([]byte, error) {
	if doc.StorageKey == "" {
		return nil, ErrBlobNotFound
	}
	data, err := s.client.Get(ctx, doc.StorageKey)
	if errors.Is(err, digitalocean.ErrObjectNotFound) {
		return nil, ErrBlobNotFound
	}
	return data, err
}

func (s *SpacesBlobStore) Delete(ctx context.Context, doc *model.Document) error {
	if doc.StorageKey == "" {
		return nil
	}
	return s.client.Delete(ctx, doc.StorageKey)
}

// DatabaseBlobStore stores binaries in the document_files table.
// Put must run after the document row exists.
type DatabaseBlobStore struct {
	db *gorm.DB
}

func NewDatabaseBlobStore(db *gorm.DB) *DatabaseBlobStore {
	return &DatabaseBlobStore{db: db}
}

func (s *DatabaseBlobStore) Put(ctx context.Context, doc *model.Document, content []byte) (string, error) {
	if doc.ID == 0 {
		return "", fmt.Errorf("document must be saved before its binary")
	}
	file := &model.DocumentFile{DocumentID: doc.ID, Data: content}
	if err := s.db.WithContext(ctx).Create(file).Error; err != nil {
		return "", fmt.Errorf("failed to store document binary: %w", err)
	}
	return "", nil
}

func (s *DatabaseBlobStore) Get(ctx context.Context, doc *model.Document) ([]byte, error) {
	var file model.DocumentFile
	if err := s.db.WithContext(ctx).Where("document_id = ?", doc.ID).First(&file).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBlobNotFound
		}
		return nil, err
	}
	return file.Data, nil
}

func (s *DatabaseBlobStore) Delete(ctx context.Context, doc *model.Document) error {
	return s.db.WithContext(ctx).Where("document_id = ?", doc.ID).Delete(&model.DocumentFile{}).Error
}
