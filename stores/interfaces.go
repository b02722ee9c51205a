package stores

import (
	"context"

	"gorm.io/gorm"
)

// Message represents a single chat message within a conversation turn.
type Message struct {
	gorm.Model
	ConversationID string `gorm:"index;not null"`
	Sequence       int    `gorm:"not null"`
	Role           string `gorm:"not null"` // "user", "assistant"
	Content        string `gorm:"type:text"`
}

// Conversation holds metadata for a chat conversation
type Conversation struct {
	gorm.Model
	ConversationID string    `gorm:"uniqueIndex;not null"`
	UserID         string    `gorm:"index;not null"`
	Title          string    `gorm:"type:text"`
	MessageCount   int       `gorm:"default:0"`
	Messages       []Message `gorm:"foreignKey:ConversationID;references:ConversationID"`
}

// ConversationInfo holds basic conversation metadata for listing
type ConversationInfo struct {
	ConversationID string
	UserID         string
	Title          string
	MessageCount   int
	CreatedAt      string
	UpdatedAt      string
}

// Document is an uploaded file attached to a user and optionally linked to a
// conversation. RawText holds the extracted text until the ingestion worker
// splits it into chunks; Chunked flips once that has happened.
type Document struct {
	gorm.Model
	Name           string  `gorm:"not null"`
	OwnerID        string  `gorm:"index"`
	ConversationID *string `gorm:"index"`
	RawText        string  `gorm:"type:text"`
	Chunked        bool    `gorm:"default:false;index"`
}

// DocumentChunk is one excerpt of a document produced by the ingestion
// worker. A document transiently having zero chunks is a normal state while
// ingestion is still running, not an error.
type DocumentChunk struct {
	gorm.Model
	DocumentID uint   `gorm:"index;not null"`
	Ordinal    int    `gorm:"not null"`
	Content    string `gorm:"type:text;not null"`
}

// Tool is an assistant tool definition owning executions, chain templates
// and input field declarations.
type Tool struct {
	gorm.Model
	Name        string `gorm:"not null"`
	Description string `gorm:"type:text"`
	OwnerUserID uint   `gorm:"index"`
}

// Execution is one run of a tool, with its raw user input payload stored as
// JSON.
type Execution struct {
	gorm.Model
	ToolID    uint   `gorm:"index;not null"`
	Status    string `gorm:"not null"`
	InputJSON string `gorm:"type:text"`
}

// ChainTemplate is one prompt template in a tool's chain. RepositoryIDsJSON
// optionally holds a JSON array of knowledge repository ids the template
// draws on.
type ChainTemplate struct {
	gorm.Model
	ToolID            uint   `gorm:"index;not null"`
	Sequence          int    `gorm:"not null"`
	Name              string
	Content           string `gorm:"type:text"`
	SystemContext     string `gorm:"type:text"`
	RepositoryIDsJSON string `gorm:"type:text"`
}

// PromptResult is the outcome of rendering and running one chain template
// within an execution.
type PromptResult struct {
	gorm.Model
	ExecutionID     uint   `gorm:"index;not null"`
	ChainTemplateID uint   `gorm:"index"`
	Sequence        int    `gorm:"not null"`
	InputJSON       string `gorm:"type:text"`
	Output          string `gorm:"type:text"`
	Status          string
}

// InputField declares one input a tool accepts, used to label raw input
// values for humans.
type InputField struct {
	gorm.Model
	ToolID   uint   `gorm:"index;not null"`
	Sequence int    `gorm:"not null"`
	Name     string `gorm:"not null"`
	Label    string
	Type     string
}

// Repository is a named knowledge repository scoped to an owner.
type Repository struct {
	gorm.Model
	Name        string `gorm:"not null"`
	OwnerUserID uint   `gorm:"index"`
}

// KnowledgeEntry is one piece of repository content with its embedding
// stored as a JSON float array.
type KnowledgeEntry struct {
	gorm.Model
	RepositoryID  uint   `gorm:"index;not null"`
	Content       string `gorm:"type:text;not null"`
	EmbeddingJSON string `gorm:"type:text"`
}

// User links a numeric account id to the stable external identity subject
// issued by the auth provider.
type User struct {
	gorm.Model
	ExternalSub string `gorm:"uniqueIndex"`
}

// MessageStore interface for abstracting conversation persistence
type MessageStore interface {
	SaveMessage(sessionID, userID, role, content string) error
	FetchHistory(sessionID string, limit int) ([]Message, error)

	CreateConversation(convoID, userID string) error
	ListConversationsForUser(userID string) ([]ConversationInfo, error)

	Connect() error
	Close() error
	Ping() error
}

// DocumentStore abstracts document and chunk reads for the context pipeline
// plus the writes the ingestion worker needs.
type DocumentStore interface {
	GetDocumentsByConversationID(ctx context.Context, conversationID string) ([]Document, error)
	GetDocumentByID(ctx context.Context, id uint) (*Document, error)
	GetDocumentChunksByDocumentID(ctx context.Context, documentID uint) ([]DocumentChunk, error)

	CreateDocument(ctx context.Context, doc *Document) error
	ListUnchunkedDocuments(ctx context.Context, limit int) ([]Document, error)
	SaveDocumentChunks(ctx context.Context, chunks []DocumentChunk) error
	MarkDocumentChunked(ctx context.Context, documentID uint) error
}

// ExecutionDetails is the execution record joined with its owning tool.
type ExecutionDetails struct {
	ExecutionID     uint
	Status          string
	InputJSON       string
	StartedAt       string
	ToolName        string
	ToolDescription string
	OwnerUserID     uint
}

// PromptResultDetail is a prompt result joined with its originating chain
// template.
type PromptResultDetail struct {
	Sequence        int
	Name            string
	TemplateContent string
	SystemContext   string
	InputJSON       string
	Output          string
	Status          string
}

// ExecutionStore abstracts the four reads the execution context loader
// issues per execution id.
type ExecutionStore interface {
	GetExecutionDetails(ctx context.Context, executionID uint) (*ExecutionDetails, error)
	GetPromptResults(ctx context.Context, executionID uint) ([]PromptResultDetail, error)
	GetChainTemplates(ctx context.Context, executionID uint) ([]ChainTemplate, error)
	GetInputFields(ctx context.Context, executionID uint) ([]InputField, error)
}

// KnowledgeStore abstracts knowledge repository reads for the hybrid
// retriever plus minimal writes so repositories can be populated.
type KnowledgeStore interface {
	CreateRepository(ctx context.Context, repo *Repository) error
	AddEntry(ctx context.Context, entry *KnowledgeEntry) error
	GetEntriesByRepositoryIDs(ctx context.Context, repositoryIDs []uint) ([]KnowledgeEntry, error)

	// GetOwnerSub resolves the external identity subject for a numeric user
	// id. Returns "" when the user is unknown.
	GetOwnerSub(ctx context.Context, userID uint) (string, error)
}

// StoreConfig holds configuration for database stores
type StoreConfig struct {
	Type       string            `json:"type"`       // "sqlite", "postgres"
	Connection string            `json:"connection"` // connection string
	Options    map[string]string `json:"options"`    // additional options
}

// NewStoreConfig creates a new store configuration
func NewStoreConfig(storeType, connection string) *StoreConfig {
	return &StoreConfig{
		Type:       storeType,
		Connection: connection,
		Options:    make(map[string]string),
	}
}

// WithOption adds an option to the store configuration
func (c *StoreConfig) WithOption(key, value string) *StoreConfig {
	c.Options[key] = value
	return c
}
