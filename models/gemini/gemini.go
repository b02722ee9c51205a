// Package gemini implements the sessions.ChatModel collaborator on top of
// Google's Gemini API.
package gemini

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"google.golang.org/genai"

	models "github.com/Desarso/promptctx/models"
	"github.com/Desarso/promptctx/stores"
)

const defaultModel = "gemini-2.0-flash"

type Gemini_Model struct {
	Model  string
	client *genai.Client
}

// New creates a Gemini chat model client. Loads .env when present so local
// development can keep GEMINI_API_KEY out of the shell environment.
func New(ctx context.Context, model string) (*Gemini_Model, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
	if model == "" {
		model = defaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: os.Getenv("GEMINI_API_KEY"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Gemini_Model{Model: model, client: client}, nil
}

// Generate runs a single non-streaming completion.
func (g *Gemini_Model) Generate(ctx context.Context, systemPrompt string, history []stores.Message, userMessage string) (models.Model_Response, error) {
	contents := buildContents(history, userMessage)

	result, err := g.client.Models.GenerateContent(ctx, g.Model, contents, buildConfig(systemPrompt))
	if err != nil {
		return models.Model_Response{}, fmt.Errorf("gemini request failed: %w", err)
	}

	return responseFromResult(result), nil
}

// Generate_Stream runs a streaming completion, forwarding each chunk.
func (g *Gemini_Model) Generate_Stream(ctx context.Context, systemPrompt string, history []stores.Message, userMessage string) (<-chan models.Model_Response, <-chan error) {
	respChan := make(chan models.Model_Response)
	errChan := make(chan error, 1)

	go func() {
		defer close(respChan)
		defer close(errChan)

		contents := buildContents(history, userMessage)

		for result, err := range g.client.Models.GenerateContentStream(ctx, g.Model, contents, buildConfig(systemPrompt)) {
			if err != nil {
				errChan <- fmt.Errorf("gemini stream failed: %w", err)
				return
			}
			resp := responseFromResult(result)
			if len(resp.Parts) > 0 {
				respChan <- resp
			}
		}
	}()

	return respChan, errChan
}

// buildContents converts stored history plus the live user turn into the
// Gemini content list.
func buildContents(history []stores.Message, userMessage string) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history)+1)
	for _, msg := range history {
		role := genai.Role(genai.RoleUser)
		if msg.Role == "assistant" {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(msg.Content, role))
	}
	contents = append(contents, genai.NewContentFromText(userMessage, genai.RoleUser))
	return contents
}

func buildConfig(systemPrompt string) *genai.GenerateContentConfig {
	if systemPrompt == "" {
		return nil
	}
	return &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
	}
}

func responseFromResult(result *genai.GenerateContentResponse) models.Model_Response {
	response := models.Model_Response{}
	for _, candidate := range result.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.Text != "" {
				text := part.Text
				response.Parts = append(response.Parts, models.Model_Part{Text: &text})
			}
		}
	}
	return response
}
