package stores

import (
	"fmt"
	"log"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// SQLiteStore implements MessageStore for SQLite databases
type SQLiteStore struct {
	db   *gorm.DB
	path string
}

// NewSQLiteStore creates a new SQLite store
func NewSQLiteStore(config *StoreConfig) (*SQLiteStore, error) {
	if config.Type != "sqlite" {
		return nil, fmt.Errorf("invalid store type for SQLite store: %s", config.Type)
	}

	store := &SQLiteStore{
		path: config.Connection,
	}

	if err := store.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to SQLite database: %w", err)
	}

	return store, nil
}

// NewSQLiteStoreSimple creates a new SQLite store with just a file path
func NewSQLiteStoreSimple(dbPath string) (*SQLiteStore, error) {
	config := NewStoreConfig("sqlite", dbPath)
	return NewSQLiteStore(config)
}

// Connect establishes a connection to the SQLite database
func (s *SQLiteStore) Connect() error {
	db, err := gorm.Open(sqlite.Open(s.path), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("failed to connect to SQLite database: %w", err)
	}

	s.db = db

	if err := migrateSchema(s.db); err != nil {
		return err
	}

	return nil
}

// DB exposes the underlying connection so the document, execution and
// knowledge substores can share it.
func (s *SQLiteStore) DB() *gorm.DB {
	return s.db
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		sqlDB, err := s.db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return nil
}

// Ping checks if the database connection is alive
func (s *SQLiteStore) Ping() error {
	if s.db == nil {
		return fmt.Errorf("database connection is nil")
	}

	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}

	return sqlDB.Ping()
}

// SaveMessage saves a message to the database, creating the conversation
// record on first write
func (s *SQLiteStore) SaveMessage(sessionID, userID, role, content string) error {
	return saveMessage(s.db, sessionID, userID, role, content)
}

// FetchHistory retrieves messages for a conversation in sequence order.
// limit: maximum number of messages to retrieve (0 = return all messages).
// The returned history is sanitized to ensure valid turn structure for LLM APIs.
func (s *SQLiteStore) FetchHistory(sessionID string, limit int) ([]Message, error) {
	return fetchHistory(s.db, sessionID, limit)
}

// CreateConversation creates a new conversation record
func (s *SQLiteStore) CreateConversation(convoID, userID string) error {
	if s.db == nil {
		return fmt.Errorf("database connection is nil")
	}

	conv := Conversation{
		ConversationID: convoID,
		UserID:         userID,
		MessageCount:   0,
	}

	return s.db.Create(&conv).Error
}

// ListConversationsForUser returns all conversations with details for a specific user
func (s *SQLiteStore) ListConversationsForUser(userID string) ([]ConversationInfo, error) {
	return listConversationsForUser(s.db, userID)
}

// migrateSchema auto-migrates every entity the pipeline reads or writes.
func migrateSchema(db *gorm.DB) error {
	err := db.AutoMigrate(
		&Conversation{}, &Message{},
		&Document{}, &DocumentChunk{},
		&Tool{}, &Execution{}, &ChainTemplate{}, &PromptResult{}, &InputField{},
		&Repository{}, &KnowledgeEntry{}, &User{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate database schema: %w", err)
	}
	return nil
}

// saveMessage is the shared write path for both drivers.
func saveMessage(db *gorm.DB, sessionID, userID, role, content string) error {
	if db == nil {
		return fmt.Errorf("database connection is nil")
	}

	// Ensure conversation record exists (create if first message)
	var convCount int64
	if err := db.Model(&Conversation{}).Where("conversation_id = ?", sessionID).Count(&convCount).Error; err != nil {
		log.Printf("Warning: Error checking for conversation %s: %v", sessionID, err)
	} else if convCount == 0 {
		conv := Conversation{ConversationID: sessionID, UserID: userID}
		if err := db.Create(&conv).Error; err != nil {
			log.Printf("Warning: Failed to create conversation record for %s: %v", sessionID, err)
		}
	}

	var count int64
	if err := db.Model(&Message{}).Where("conversation_id = ?", sessionID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count existing messages: %w", err)
	}

	seq := int(count) + 1

	msg := Message{
		ConversationID: sessionID,
		Sequence:       seq,
		Role:           role,
		Content:        content,
	}

	tx := db.Begin()
	if err := tx.Create(&msg).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to create message record: %w", err)
	}

	if err := tx.Model(&Conversation{}).Where("conversation_id = ?", sessionID).Update("message_count", seq).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to update conversation message count: %w", err)
	}

	return tx.Commit().Error
}

// fetchHistory is the shared read path for both drivers.
func fetchHistory(db *gorm.DB, sessionID string, limit int) ([]Message, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}

	var msgs []Message
	query := db.Where("conversation_id = ?", sessionID).Order("sequence ASC")

	if limit > 0 {
		var count int64
		if err := db.Model(&Message{}).Where("conversation_id = ?", sessionID).Count(&count).Error; err != nil {
			return nil, fmt.Errorf("failed to count messages: %w", err)
		}

		// If more than limit, offset to get only the last N messages.
		// Fetch a few extra so sanitization can find a valid start turn.
		if count > int64(limit) {
			extraBuffer := limit
			if extraBuffer < 10 {
				extraBuffer = 10
			}
			offset := int(count) - limit - extraBuffer
			if offset < 0 {
				offset = 0
			}
			query = query.Offset(offset)
		}
	}

	if err := query.Find(&msgs).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}

	msgs = SanitizeHistory(msgs)

	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
		msgs = SanitizeHistory(msgs)
	}

	return msgs, nil
}

// listConversationsForUser is the shared listing path for both drivers.
// MessageCount is computed on the fly from the messages table.
func listConversationsForUser(db *gorm.DB, userID string) ([]ConversationInfo, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}

	type ConvWithCount struct {
		Conversation
		ComputedMessageCount int `gorm:"column:computed_message_count"`
	}

	var convs []ConvWithCount
	err := db.Model(&Conversation{}).
		Select("conversations.*, (SELECT COUNT(*) FROM messages WHERE messages.conversation_id = conversations.conversation_id) as computed_message_count").
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&convs).Error

	if err != nil {
		return nil, fmt.Errorf("failed to fetch conversations: %w", err)
	}

	result := make([]ConversationInfo, len(convs))
	for i, c := range convs {
		result[i] = ConversationInfo{
			ConversationID: c.ConversationID,
			UserID:         c.UserID,
			Title:          c.Title,
			MessageCount:   c.ComputedMessageCount,
			CreatedAt:      c.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
			UpdatedAt:      c.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
		}
	}

	return result, nil
}
