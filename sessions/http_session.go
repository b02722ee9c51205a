package sessions

import (
	"context"
	"fmt"

	"github.com/Desarso/promptctx/models"
)

// RunSingleInteraction handles a complete request-response cycle
func (s *ChatSession) RunSingleInteraction(ctx context.Context, req models.Prompt_Request) (models.Model_Response, error) {
	req = s.normalizeRequest(req)

	// Fetch prior history before persisting the current message, so the
	// model sees it once (as the live user turn, not a history entry).
	history, err := s.Store.FetchHistory(s.ConversationID, s.HistoryLimit)
	if err != nil {
		return models.Model_Response{}, fmt.Errorf("failed to fetch history: %w", err)
	}

	if err := s.Store.SaveMessage(s.ConversationID, s.UserID, "user", req.User_Message); err != nil {
		s.Logger.Printf("Error saving user message: %v", err)
	}

	systemPrompt := s.Prompts.BuildSystemPrompt(ctx, req)

	response, err := s.Model.Generate(ctx, systemPrompt, history, req.User_Message)
	if err != nil {
		return models.Model_Response{}, fmt.Errorf("model error: %w", err)
	}

	if text := response.Text(); text != "" {
		if err := s.Store.SaveMessage(s.ConversationID, s.UserID, "assistant", text); err != nil {
			s.Logger.Printf("Error saving assistant response: %v", err)
		}
	}

	return response, nil
}

// RunStreamInteraction handles streaming interactions
func (s *ChatSession) RunStreamInteraction(ctx context.Context, req models.Prompt_Request) (<-chan models.Model_Response, <-chan error) {
	respChan := make(chan models.Model_Response)
	errChan := make(chan error, 1)

	go func() {
		defer close(respChan)
		defer close(errChan)

		normalized := s.normalizeRequest(req)

		// Fetch prior history before persisting the current message
		history, err := s.Store.FetchHistory(s.ConversationID, s.HistoryLimit)
		if err != nil {
			errChan <- fmt.Errorf("failed to fetch history: %w", err)
			return
		}

		if err := s.Store.SaveMessage(s.ConversationID, s.UserID, "user", normalized.User_Message); err != nil {
			s.Logger.Printf("Error saving user message: %v", err)
		}

		systemPrompt := s.Prompts.BuildSystemPrompt(ctx, normalized)

		modelRespChan, modelErrChan := s.Model.Generate_Stream(ctx, systemPrompt, history, normalized.User_Message)

		accumulated := ""

		// Forward stream responses and accumulate text
		for {
			select {
			case response, ok := <-modelRespChan:
				if !ok {
					// Stream finished, save accumulated response
					s.saveAccumulated(accumulated)
					return
				}
				accumulated += response.Text()
				respChan <- response

			case err, ok := <-modelErrChan:
				if ok && err != nil {
					errChan <- err
					return
				}
				if !ok {
					modelErrChan = nil
				}
			}

			if modelRespChan == nil && modelErrChan == nil {
				s.saveAccumulated(accumulated)
				return
			}
		}
	}()

	return respChan, errChan
}

// WriteStreamToSSE forwards a model stream to an SSE writer
func (s *ChatSession) WriteStreamToSSE(ctx context.Context, req models.Prompt_Request, writer SSEWriter) error {
	respChan, errChan := s.RunStreamInteraction(ctx, req)

	for {
		select {
		case response, ok := <-respChan:
			if !ok {
				writer.Flush()
				return nil
			}
			if text := response.Text(); text != "" {
				if err := writer.WriteSSE(text); err != nil {
					return fmt.Errorf("failed to write SSE chunk: %w", err)
				}
				writer.Flush()
			}

		case err, ok := <-errChan:
			if ok && err != nil {
				writer.WriteSSEError(err)
				return err
			}
			if !ok {
				errChan = nil
			}
		}

		if respChan == nil && errChan == nil {
			return nil
		}
	}
}

// normalizeRequest fills request fields the session already knows.
func (s *ChatSession) normalizeRequest(req models.Prompt_Request) models.Prompt_Request {
	if req.Conversation_ID == "" {
		req.Conversation_ID = s.ConversationID
	}
	if req.Session_Owner_ID == "" {
		req.Session_Owner_ID = s.UserID
	}
	if req.Source == "" {
		req.Source = models.Source_Chat
	}
	return req
}

func (s *ChatSession) saveAccumulated(text string) {
	if text == "" {
		return
	}
	if err := s.Store.SaveMessage(s.ConversationID, s.UserID, "assistant", text); err != nil {
		s.Logger.Printf("Error saving final response: %v", err)
	}
}
