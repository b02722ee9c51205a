package stores

import (
	"fmt"

	"gorm.io/gorm"
)

// Bundle groups every store backed by one shared database connection.
type Bundle struct {
	Messages   MessageStore
	Documents  DocumentStore
	Executions ExecutionStore
	Knowledge  KnowledgeStore
}

// NewStore creates a new message store based on the configuration
func NewStore(config *StoreConfig) (MessageStore, error) {
	switch config.Type {
	case "sqlite":
		return NewSQLiteStore(config)
	case "postgres":
		return NewPostgresStore(config)
	default:
		return nil, fmt.Errorf("unsupported store type: %s", config.Type)
	}
}

// NewBundle opens the configured database once and wires every store the
// context pipeline needs around the shared connection.
func NewBundle(config *StoreConfig) (*Bundle, error) {
	var (
		messages MessageStore
		db       *gorm.DB
	)

	switch config.Type {
	case "sqlite":
		store, err := NewSQLiteStore(config)
		if err != nil {
			return nil, err
		}
		messages, db = store, store.DB()
	case "postgres":
		store, err := NewPostgresStore(config)
		if err != nil {
			return nil, err
		}
		messages, db = store, store.DB()
	default:
		return nil, fmt.Errorf("unsupported store type: %s", config.Type)
	}

	documents, err := NewGORMDocumentStore(db)
	if err != nil {
		return nil, err
	}
	executions, err := NewGORMExecutionStore(db)
	if err != nil {
		return nil, err
	}
	knowledge, err := NewGORMKnowledgeStore(db)
	if err != nil {
		return nil, err
	}

	return &Bundle{
		Messages:   messages,
		Documents:  documents,
		Executions: executions,
		Knowledge:  knowledge,
	}, nil
}

// NewSQLiteStoreDefault creates a SQLite store with default settings
func NewSQLiteStoreDefault() (MessageStore, error) {
	return NewSQLiteStoreSimple("chat_history.sqlite")
}

// NewPostgresStoreDefault creates a PostgreSQL store with environment-based configuration
// You would typically get these from environment variables
func NewPostgresStoreDefault(host, user, password, dbname string, port int) (MessageStore, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		host, user, password, dbname, port)
	return NewPostgresStoreSimple(dsn)
}
