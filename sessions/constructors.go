package sessions

import (
	"fmt"
	"log"
	"os"

	"github.com/gorilla/websocket"

	"github.com/Desarso/promptctx/stores"
)

const defaultHistoryLimit = 40

// NewAgentSession creates a new WebSocket agent session
func NewAgentSession(sessionID, userID string, conn *websocket.Conn, model ChatModel, prompts PromptBuilder, store stores.MessageStore) *AgentSession {
	logger := log.New(os.Stdout, fmt.Sprintf("[WS %s] ", sessionID), log.LstdFlags)
	writer := &WebSocketWriter{
		Conn:   conn,
		Logger: logger,
	}

	return &AgentSession{
		SessionID:    sessionID,
		UserID:       userID,
		Model:        model,
		Prompts:      prompts,
		Writer:       writer,
		Store:        store,
		Logger:       logger,
		HistoryLimit: defaultHistoryLimit,
	}
}

// NewChatSession creates a new HTTP chat session
func NewChatSession(conversationID, userID string, model ChatModel, prompts PromptBuilder, store stores.MessageStore) *ChatSession {
	logger := log.New(os.Stdout, fmt.Sprintf("[HTTP %s] ", conversationID), log.LstdFlags)

	return &ChatSession{
		ConversationID: conversationID,
		UserID:         userID,
		Model:          model,
		Prompts:        prompts,
		Store:          store,
		Logger:         logger,
		HistoryLimit:   defaultHistoryLimit,
	}
}
