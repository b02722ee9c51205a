package sessions

import (
	"context"

	"github.com/Desarso/promptctx/models"
)

// RunInteraction handles one complete streaming chat turn: assemble the
// system prompt, stream the model response to the client, persist both
// sides of the exchange.
func (as *AgentSession) RunInteraction(ctx context.Context, req models.Prompt_Request) error {
	if req.Conversation_ID == "" {
		req.Conversation_ID = as.SessionID
	}
	if req.Session_Owner_ID == "" {
		req.Session_Owner_ID = as.UserID
	}
	if req.Source == "" {
		req.Source = models.Source_Chat
	}

	// Fetch prior history before persisting the current message, so the
	// model sees it once (as the live user turn, not a history entry).
	if err := as.fetchHistory(); err != nil {
		return as.sendError("Failed to fetch history", false)
	}

	if err := as.Store.SaveMessage(as.SessionID, as.UserID, "user", req.User_Message); err != nil {
		as.Logger.Printf("Error saving user message: %v", err)
	}

	systemPrompt := as.Prompts.BuildSystemPrompt(ctx, req)

	resChan, errChan := as.Model.Generate_Stream(ctx, systemPrompt, as.History, req.User_Message)

	accumulated, err := as.processStream(resChan, errChan)
	if err != nil {
		return err
	}

	if accumulated != "" {
		if err := as.Store.SaveMessage(as.SessionID, as.UserID, "assistant", accumulated); err != nil {
			as.Logger.Printf("Error saving assistant message: %v", err)
		}
	}

	return as.Writer.WriteDone()
}

// fetchHistory retrieves the latest conversation history
func (as *AgentSession) fetchHistory() error {
	history, err := as.Store.FetchHistory(as.SessionID, as.HistoryLimit)
	if err != nil {
		as.Logger.Printf("Error fetching history: %v", err)
		return &AgentError{Message: "Failed to fetch history", Fatal: false}
	}
	as.History = history
	return nil
}

// processStream forwards model chunks to the client and accumulates the
// full response text.
func (as *AgentSession) processStream(resChan <-chan models.Model_Response, errChan <-chan error) (string, error) {
	accumulated := ""

	for {
		select {
		case chunk, ok := <-resChan:
			if !ok {
				as.Logger.Printf("Stream finished normally")
				return accumulated, nil
			}
			accumulated += chunk.Text()
			if err := as.Writer.WriteResponse(chunk); err != nil {
				as.Logger.Printf("Error writing stream chunk: %v", err)
				return "", &AgentError{Message: "Error writing stream chunk", Fatal: true}
			}

		case streamErr, ok := <-errChan:
			if ok && streamErr != nil {
				as.Logger.Printf("Stream error: %v", streamErr)
				as.Writer.WriteError("Model stream error: " + streamErr.Error())
				return "", &AgentError{Message: "Model stream error", Fatal: false}
			}
			if !ok {
				errChan = nil
			}
		}

		if resChan == nil && errChan == nil {
			as.Logger.Printf("Both model stream channels closed unexpectedly")
			return accumulated, nil
		}
	}
}

// sendError sends an error message and returns an AgentError
func (as *AgentSession) sendError(message string, fatal bool) error {
	as.Logger.Printf("Error: %s (fatal: %v)", message, fatal)
	as.Writer.WriteError(message)
	return &AgentError{Message: message, Fatal: fatal}
}
