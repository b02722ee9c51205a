package contexts

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Desarso/promptctx/stores"
)

func newTestDocumentBuilder(store *fakeDocumentStore) *DocumentContextBuilder {
	builder := NewDocumentContextBuilder(store, quietLogger())
	builder.Fetcher.RetryBase = time.Millisecond
	return builder
}

func documentList(id uint, name string) []stores.Document {
	return []stores.Document{testDocument(id, name)}
}

func TestDocumentContextBuild_NoDocuments(t *testing.T) {
	builder := newTestDocumentBuilder(newFakeDocumentStore())
	result := builder.Build(context.Background(), "convo-1", 0, "hello")
	if result != "" {
		t.Errorf("Expected empty context without documents, got %q", result)
	}
}

func TestDocumentContextBuild_FormatsExcerpts(t *testing.T) {
	store := newFakeDocumentStore()
	store.documentsByConversation["convo-1"] = documentList(7, "notes.txt")
	store.chunksByDocument[7] = chunksWithContent("first part", "second part")
	for i := range store.chunksByDocument[7] {
		store.chunksByDocument[7][i].DocumentID = 7
	}

	builder := newTestDocumentBuilder(store)
	result := builder.Build(context.Background(), "convo-1", 0, "what is in this file")

	if !strings.Contains(result, "The user has uploaded the following document(s): notes.txt") {
		t.Errorf("Expected document name header, got %q", result)
	}
	if !strings.Contains(result, "Document Excerpt 1:\nfirst part") {
		t.Errorf("Expected first excerpt, got %q", result)
	}
	if !strings.Contains(result, "Document Excerpt 2:\nsecond part") {
		t.Errorf("Expected second excerpt, got %q", result)
	}
	if !strings.Contains(result, "Use this document content to answer the user's questions when it is relevant.") {
		t.Errorf("Expected closing instruction, got %q", result)
	}
}

func TestDocumentContextBuild_PlaceholderWhileProcessing(t *testing.T) {
	store := newFakeDocumentStore()
	store.documentsByConversation["convo-1"] = documentList(3, "report.pdf")
	// No chunks: ingestion has not finished.

	builder := newTestDocumentBuilder(store)
	result := builder.Build(context.Background(), "convo-1", 0, "summarize report.pdf")

	if !strings.Contains(result, "report.pdf") {
		t.Errorf("Expected placeholder to name the document, got %q", result)
	}
	if !strings.Contains(result, "still being processed") {
		t.Errorf("Expected placeholder to mention processing, got %q", result)
	}
	if strings.Contains(result, "Document Excerpt") {
		t.Errorf("Expected no excerpts in placeholder, got %q", result)
	}
}

func TestDocumentContextBuild_ExplicitDocumentAppended(t *testing.T) {
	store := newFakeDocumentStore()
	store.documentsByConversation["convo-1"] = documentList(1, "linked.txt")
	extra := testDocument(2, "extra.txt")
	store.documentsByID[2] = &extra
	store.chunksByDocument[1] = chunksWithContent("linked body")
	store.chunksByDocument[2] = chunksWithContent("extra body")

	builder := newTestDocumentBuilder(store)
	result := builder.Build(context.Background(), "convo-1", 2, "what do these files say")

	if !strings.Contains(result, "linked.txt, extra.txt") {
		t.Errorf("Expected both document names, got %q", result)
	}
}

func TestDocumentContextBuild_ExplicitDocumentNotDuplicated(t *testing.T) {
	store := newFakeDocumentStore()
	store.documentsByConversation["convo-1"] = documentList(1, "linked.txt")
	store.chunksByDocument[1] = chunksWithContent("body")

	builder := newTestDocumentBuilder(store)
	result := builder.Build(context.Background(), "convo-1", 1, "tell me about this file")

	if strings.Count(result, "linked.txt") != 1 {
		t.Errorf("Expected document named once, got %q", result)
	}
}

func TestDocumentContextBuild_MissingExplicitDocument(t *testing.T) {
	builder := newTestDocumentBuilder(newFakeDocumentStore())
	result := builder.Build(context.Background(), "", 99, "hello")
	if result != "" {
		t.Errorf("Expected empty context for unknown document, got %q", result)
	}
}

func TestDocumentContextBuild_StoreErrorDegradesToEmpty(t *testing.T) {
	store := newFakeDocumentStore()
	store.documentsErr = errors.New("database offline")

	builder := newTestDocumentBuilder(store)
	result := builder.Build(context.Background(), "convo-1", 5, "hello")
	if result != "" {
		t.Errorf("Expected empty context on store error, got %q", result)
	}
}

func TestDocumentContextBuild_ChunkErrorDegradesToEmpty(t *testing.T) {
	store := newFakeDocumentStore()
	store.documentsByConversation["convo-1"] = documentList(1, "a.txt")
	store.chunksErr = errors.New("database offline")

	builder := newTestDocumentBuilder(store)
	result := builder.Build(context.Background(), "convo-1", 0, "hello")
	if result != "" {
		t.Errorf("Expected empty context on chunk fetch error, got %q", result)
	}
}
