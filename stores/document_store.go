package stores

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// GORMDocumentStore implements DocumentStore for SQLite/PostgreSQL via GORM
type GORMDocumentStore struct {
	db *gorm.DB
}

// NewGORMDocumentStore creates a document store from an existing GORM
// database connection
func NewGORMDocumentStore(db *gorm.DB) (*GORMDocumentStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	return &GORMDocumentStore{db: db}, nil
}

// GetDocumentsByConversationID returns all documents linked to a conversation
func (s *GORMDocumentStore) GetDocumentsByConversationID(ctx context.Context, conversationID string) ([]Document, error) {
	var docs []Document
	err := s.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("id ASC").
		Find(&docs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch documents for conversation %s: %w", conversationID, err)
	}
	return docs, nil
}

// GetDocumentByID returns a single document, or nil when it does not exist
func (s *GORMDocumentStore) GetDocumentByID(ctx context.Context, id uint) (*Document, error) {
	var doc Document
	err := s.db.WithContext(ctx).First(&doc, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch document %d: %w", id, err)
	}
	return &doc, nil
}

// GetDocumentChunksByDocumentID returns a document's chunks in ordinal order.
// An empty result is normal while ingestion is still running.
func (s *GORMDocumentStore) GetDocumentChunksByDocumentID(ctx context.Context, documentID uint) ([]DocumentChunk, error) {
	var chunks []DocumentChunk
	err := s.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("ordinal ASC").
		Find(&chunks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch chunks for document %d: %w", documentID, err)
	}
	return chunks, nil
}

// CreateDocument stores a freshly uploaded document. Chunking happens out
// of band in the ingestion worker.
func (s *GORMDocumentStore) CreateDocument(ctx context.Context, doc *Document) error {
	if err := s.db.WithContext(ctx).Create(doc).Error; err != nil {
		return fmt.Errorf("failed to create document %q: %w", doc.Name, err)
	}
	return nil
}

// ListUnchunkedDocuments returns documents whose text has not been split yet
func (s *GORMDocumentStore) ListUnchunkedDocuments(ctx context.Context, limit int) ([]Document, error) {
	var docs []Document
	query := s.db.WithContext(ctx).
		Where("chunked = ? AND raw_text <> ''", false).
		Order("id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("failed to list unchunked documents: %w", err)
	}
	return docs, nil
}

// SaveDocumentChunks persists a batch of chunks in one transaction
func (s *GORMDocumentStore) SaveDocumentChunks(ctx context.Context, chunks []DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Create(&chunks).Error; err != nil {
		return fmt.Errorf("failed to save %d document chunks: %w", len(chunks), err)
	}
	return nil
}

// MarkDocumentChunked flips a document's chunked flag after ingestion
func (s *GORMDocumentStore) MarkDocumentChunked(ctx context.Context, documentID uint) error {
	err := s.db.WithContext(ctx).
		Model(&Document{}).
		Where("id = ?", documentID).
		Update("chunked", true).Error
	if err != nil {
		return fmt.Errorf("failed to mark document %d chunked: %w", documentID, err)
	}
	return nil
}
