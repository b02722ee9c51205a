package stores

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// GORMKnowledgeStore implements KnowledgeStore for SQLite/PostgreSQL via GORM
type GORMKnowledgeStore struct {
	db *gorm.DB
}

// NewGORMKnowledgeStore creates a knowledge store from an existing GORM
// database connection
func NewGORMKnowledgeStore(db *gorm.DB) (*GORMKnowledgeStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	return &GORMKnowledgeStore{db: db}, nil
}

// CreateRepository creates a named knowledge repository
func (s *GORMKnowledgeStore) CreateRepository(ctx context.Context, repo *Repository) error {
	if err := s.db.WithContext(ctx).Create(repo).Error; err != nil {
		return fmt.Errorf("failed to create repository %q: %w", repo.Name, err)
	}
	return nil
}

// AddEntry stores one piece of repository content with its embedding
func (s *GORMKnowledgeStore) AddEntry(ctx context.Context, entry *KnowledgeEntry) error {
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to add knowledge entry to repository %d: %w", entry.RepositoryID, err)
	}
	return nil
}

// GetEntriesByRepositoryIDs returns every entry across the given
// repositories
func (s *GORMKnowledgeStore) GetEntriesByRepositoryIDs(ctx context.Context, repositoryIDs []uint) ([]KnowledgeEntry, error) {
	if len(repositoryIDs) == 0 {
		return nil, nil
	}
	var entries []KnowledgeEntry
	err := s.db.WithContext(ctx).
		Where("repository_id IN ?", repositoryIDs).
		Order("id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch entries for repositories %v: %w", repositoryIDs, err)
	}
	return entries, nil
}

// GetOwnerSub resolves the external identity subject for a numeric user id.
// Returns "" when the user is unknown.
func (s *GORMKnowledgeStore) GetOwnerSub(ctx context.Context, userID uint) (string, error) {
	var user User
	err := s.db.WithContext(ctx).First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to fetch user %d: %w", userID, err)
	}
	return user.ExternalSub, nil
}
