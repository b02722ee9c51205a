package contexts

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/Desarso/promptctx/stores"
)

// DocumentContextBuilder resolves which uploaded documents matter for a
// request, fetches their chunks, and formats an excerpt block for the
// system prompt. It never returns an error: any internal failure degrades
// to an empty block with a logged explanation.
type DocumentContextBuilder struct {
	Documents stores.DocumentStore
	Fetcher   *ChunkFetcher
	Logger    *log.Logger
}

// NewDocumentContextBuilder wires a builder over the given document store.
func NewDocumentContextBuilder(documents stores.DocumentStore, logger *log.Logger) *DocumentContextBuilder {
	if logger == nil {
		logger = log.Default()
	}
	return &DocumentContextBuilder{
		Documents: documents,
		Fetcher:   NewChunkFetcher(documents, logger),
		Logger:    logger,
	}
}

// Build returns the document excerpt block for a request, or "" when there
// is nothing to add. conversationID and documentID are each optional; both
// may be set, in which case the explicitly named document is appended to
// the conversation's documents unless already among them.
func (b *DocumentContextBuilder) Build(ctx context.Context, conversationID string, documentID uint, userMessage string) string {
	docs, err := b.resolveDocuments(ctx, conversationID, documentID)
	if err != nil {
		b.Logger.Printf("Error resolving documents (conversation=%s, document=%d): %v", conversationID, documentID, err)
		return ""
	}
	if len(docs) == 0 {
		return ""
	}

	chunks, err := b.Fetcher.FetchChunksWithRetry(ctx, docs)
	if err != nil {
		b.Logger.Printf("Error fetching chunks for %d document(s): %v", len(docs), err)
		return ""
	}

	names := documentNames(docs)

	if len(chunks) == 0 {
		// Ingestion has not produced anything yet. Tell the model so it can
		// explain instead of hallucinating document content.
		return fmt.Sprintf("The document(s) %s are still being processed. Excerpts are not yet available; let the user know the content is still being prepared if they ask about it.", names)
	}

	selected := SelectRelevantChunks(chunks, userMessage)
	if len(selected) == 0 {
		return ""
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "The user has uploaded the following document(s): %s\n", names)
	for i, chunk := range selected {
		fmt.Fprintf(&sb, "\nDocument Excerpt %d:\n%s\n", i+1, chunk.Content)
	}
	sb.WriteString("\nUse this document content to answer the user's questions when it is relevant.")
	return sb.String()
}

// resolveDocuments gathers the conversation's documents and appends the
// explicitly requested one when it is not already present.
func (b *DocumentContextBuilder) resolveDocuments(ctx context.Context, conversationID string, documentID uint) ([]stores.Document, error) {
	var docs []stores.Document

	if conversationID != "" {
		linked, err := b.Documents.GetDocumentsByConversationID(ctx, conversationID)
		if err != nil {
			return nil, err
		}
		docs = linked
	}

	if documentID != 0 {
		present := false
		for _, doc := range docs {
			if doc.ID == documentID {
				present = true
				break
			}
		}
		if !present {
			doc, err := b.Documents.GetDocumentByID(ctx, documentID)
			if err != nil {
				return nil, err
			}
			if doc != nil {
				docs = append(docs, *doc)
			}
		}
	}

	return docs, nil
}

func documentNames(docs []stores.Document) string {
	names := make([]string, len(docs))
	for i, doc := range docs {
		names[i] = doc.Name
	}
	return strings.Join(names, ", ")
}
