package sessions

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Desarso/promptctx/models"
	"github.com/Desarso/promptctx/stores"
)

// PromptBuilder assembles the system prompt for a request. Implemented by
// the promptctx assembler.
type PromptBuilder interface {
	BuildSystemPrompt(ctx context.Context, req models.Prompt_Request) string
}

// ChatModel is the model-invocation collaborator sessions talk to.
type ChatModel interface {
	Generate(ctx context.Context, systemPrompt string, history []stores.Message, userMessage string) (models.Model_Response, error)
	Generate_Stream(ctx context.Context, systemPrompt string, history []stores.Message, userMessage string) (<-chan models.Model_Response, <-chan error)
}

// AgentError represents errors that can occur during session operations
type AgentError struct {
	Message string
	Fatal   bool
}

func (e *AgentError) Error() string {
	return e.Message
}

// WebSocketWriter handles all WebSocket communication
type WebSocketWriter struct {
	Conn             *websocket.Conn
	Logger           *log.Logger
	StartTime        time.Time
	FirstTokenTime   *time.Time
	FirstTokenLogged bool
	mu               sync.Mutex
}

func (w *WebSocketWriter) WriteResponse(resp interface{}) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	// Track time to first token
	if !w.FirstTokenLogged && w.FirstTokenTime == nil && !w.StartTime.IsZero() {
		now := time.Now()
		w.FirstTokenTime = &now
		timeToFirstToken := now.Sub(w.StartTime)
		w.Logger.Printf("Time to first token: %v", timeToFirstToken)
		w.FirstTokenLogged = true
	}
	return w.Conn.WriteJSON(resp)
}

func (w *WebSocketWriter) WriteError(message string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.Conn.WriteJSON(map[string]string{"error": message})
}

func (w *WebSocketWriter) WriteDone() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.Conn.WriteJSON(map[string]string{"type": "done"})
}

// SSEWriter handles Server-Sent Events writing
type SSEWriter interface {
	WriteSSE(data string) error
	WriteSSEError(err error) error
	Flush()
}

// ChatSession handles HTTP-based chat interactions. Each interaction
// assembles a fresh system prompt from the request's context identifiers
// before invoking the model.
type ChatSession struct {
	ConversationID string
	UserID         string
	Model          ChatModel
	Prompts        PromptBuilder
	Store          stores.MessageStore
	Logger         *log.Logger
	HistoryLimit   int
}

// AgentSession encapsulates WebSocket streaming chat interaction logic
type AgentSession struct {
	SessionID string
	UserID    string
	Model     ChatModel
	Prompts   PromptBuilder
	Writer    *WebSocketWriter
	Store     stores.MessageStore
	Logger    *log.Logger
	History   []stores.Message

	HistoryLimit int
}
