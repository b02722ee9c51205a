package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"math"
	"strings"
	"testing"

	"github.com/Desarso/promptctx/contexts"
	"github.com/Desarso/promptctx/models"
	"github.com/Desarso/promptctx/stores"
)

type fakeKnowledgeStore struct {
	entries []stores.KnowledgeEntry
	err     error
}

func (f *fakeKnowledgeStore) CreateRepository(ctx context.Context, repo *stores.Repository) error {
	return nil
}

func (f *fakeKnowledgeStore) AddEntry(ctx context.Context, entry *stores.KnowledgeEntry) error {
	return nil
}

func (f *fakeKnowledgeStore) GetEntriesByRepositoryIDs(ctx context.Context, repositoryIDs []uint) ([]stores.KnowledgeEntry, error) {
	return f.entries, f.err
}

func (f *fakeKnowledgeStore) GetOwnerSub(ctx context.Context, userID uint) (string, error) {
	return "", nil
}

// fakeEmbedder maps known texts to fixed vectors.
type fakeEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.vectors[text], nil
}

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func entryWithEmbedding(content string, embedding []float32) stores.KnowledgeEntry {
	encoded, _ := json.Marshal(embedding)
	return stores.KnowledgeEntry{Content: content, EmbeddingJSON: string(encoded)}
}

func keywordOptions() contexts.Retrieve_Options {
	return contexts.Retrieve_Options{
		TopK:            10,
		SearchType:      "keyword",
		SimilarityFloor: 0.5,
	}
}

func TestRetrieveForPrompt_NoRepositories(t *testing.T) {
	retriever := NewHybridRetriever(&fakeKnowledgeStore{}, nil, quietLogger())
	chunks, err := retriever.RetrieveForPrompt(context.Background(), "q", nil, "", "", keywordOptions())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("Expected no chunks without repositories, got %d", len(chunks))
	}
}

func TestRetrieveForPrompt_StoreError(t *testing.T) {
	retriever := NewHybridRetriever(&fakeKnowledgeStore{err: errors.New("offline")}, nil, quietLogger())
	_, err := retriever.RetrieveForPrompt(context.Background(), "q", []uint{1}, "", "", keywordOptions())
	if err == nil {
		t.Fatal("Expected store error to propagate")
	}
}

func TestRetrieveForPrompt_KeywordScoring(t *testing.T) {
	store := &fakeKnowledgeStore{entries: []stores.KnowledgeEntry{
		{Content: "refund requests need a receipt and the original invoice"},
		{Content: "office plants need water"},
		{Content: "the refund window is 30 days from the invoice date"},
	}}
	retriever := NewHybridRetriever(store, nil, quietLogger())

	chunks, err := retriever.RetrieveForPrompt(context.Background(), "refund invoice", []uint{1}, "", "", keywordOptions())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("Expected 2 matching entries, got %d", len(chunks))
	}
	for _, chunk := range chunks {
		if !strings.Contains(chunk.Content, "refund") {
			t.Errorf("Expected a refund entry, got %q", chunk.Content)
		}
		if chunk.Similarity != 1.0 {
			t.Errorf("Expected full keyword overlap, got %f", chunk.Similarity)
		}
	}
}

func TestRetrieveForPrompt_SimilarityFloor(t *testing.T) {
	store := &fakeKnowledgeStore{entries: []stores.KnowledgeEntry{
		{Content: "mentions refund only"},
	}}
	retriever := NewHybridRetriever(store, nil, quietLogger())

	// One of three keywords matches: 0.33 is below the 0.5 floor.
	chunks, err := retriever.RetrieveForPrompt(context.Background(), "refund invoice deadline", []uint{1}, "", "", keywordOptions())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("Expected low-scoring entries filtered out, got %d", len(chunks))
	}
}

func TestRetrieveForPrompt_HybridWeighting(t *testing.T) {
	queryVec := []float32{1, 0}
	store := &fakeKnowledgeStore{entries: []stores.KnowledgeEntry{
		// Perfect vector match, no keyword overlap: 0.8*1 + 0.2*0 = 0.8.
		entryWithEmbedding("vector aligned entry", []float32{1, 0}),
		// No vector match, full keyword overlap: 0.8*0 + 0.2*1 = 0.2.
		entryWithEmbedding("refund invoice", []float32{0, 1}),
	}}
	embedder := &fakeEmbedder{vectors: map[string][]float32{"refund invoice": queryVec}}
	retriever := NewHybridRetriever(store, embedder, quietLogger())

	opts := contexts.Retrieve_Options{
		TopK:            10,
		SearchType:      "hybrid",
		VectorWeight:    0.8,
		SimilarityFloor: 0.5,
	}
	chunks, err := retriever.RetrieveForPrompt(context.Background(), "refund invoice", []uint{1}, "", "", opts)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("Expected only the vector-aligned entry above the floor, got %d", len(chunks))
	}
	if chunks[0].Content != "vector aligned entry" {
		t.Errorf("Expected the vector-aligned entry, got %q", chunks[0].Content)
	}
	if math.Abs(chunks[0].Similarity-0.8) > 1e-9 {
		t.Errorf("Expected blended score 0.8, got %f", chunks[0].Similarity)
	}
}

func TestRetrieveForPrompt_OrderedByScoreDescending(t *testing.T) {
	store := &fakeKnowledgeStore{entries: []stores.KnowledgeEntry{
		{Content: "refund"},
		{Content: "refund invoice"},
	}}
	retriever := NewHybridRetriever(store, nil, quietLogger())

	chunks, err := retriever.RetrieveForPrompt(context.Background(), "refund invoice", []uint{1}, "", "", keywordOptions())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("Expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].Content != "refund invoice" {
		t.Errorf("Expected the higher-scoring entry first, got %q", chunks[0].Content)
	}
	if chunks[0].Similarity < chunks[1].Similarity {
		t.Errorf("Expected descending similarity, got %f then %f", chunks[0].Similarity, chunks[1].Similarity)
	}
}

func TestRetrieveForPrompt_TopKCap(t *testing.T) {
	var entries []stores.KnowledgeEntry
	for i := 0; i < 5; i++ {
		entries = append(entries, stores.KnowledgeEntry{Content: "refund policy entry"})
	}
	store := &fakeKnowledgeStore{entries: entries}
	retriever := NewHybridRetriever(store, nil, quietLogger())

	opts := keywordOptions()
	opts.TopK = 3
	chunks, err := retriever.RetrieveForPrompt(context.Background(), "refund policy", []uint{1}, "", "", opts)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(chunks) != 3 {
		t.Errorf("Expected TopK cap of 3, got %d", len(chunks))
	}
}

func TestRetrieveForPrompt_TokenBudget(t *testing.T) {
	long := strings.Repeat("refund policy text ", 30) // ~570 chars, ~142 tokens
	store := &fakeKnowledgeStore{entries: []stores.KnowledgeEntry{
		{Content: long},
		{Content: long},
	}}
	retriever := NewHybridRetriever(store, nil, quietLogger())

	opts := keywordOptions()
	opts.TokenBudget = 200
	chunks, err := retriever.RetrieveForPrompt(context.Background(), "refund policy", []uint{1}, "", "", opts)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	// The first entry always fits; the second would exceed the budget.
	if len(chunks) != 1 {
		t.Errorf("Expected budget to cut off the second entry, got %d chunks", len(chunks))
	}
}

func TestRetrieveForPrompt_EmbedErrorPropagates(t *testing.T) {
	store := &fakeKnowledgeStore{entries: []stores.KnowledgeEntry{{Content: "anything"}}}
	embedder := &fakeEmbedder{err: errors.New("quota exhausted")}
	retriever := NewHybridRetriever(store, embedder, quietLogger())

	opts := keywordOptions()
	opts.SearchType = "hybrid"
	_, err := retriever.RetrieveForPrompt(context.Background(), "q", []uint{1}, "", "", opts)
	if err == nil {
		t.Fatal("Expected embedding error to propagate")
	}
}

func TestCosineSimilarity(t *testing.T) {
	if got := CosineSimilarity([]float32{1, 0}, []float32{1, 0}); math.Abs(got-1) > 1e-9 {
		t.Errorf("Expected 1 for identical vectors, got %f", got)
	}
	if got := CosineSimilarity([]float32{1, 0}, []float32{0, 1}); math.Abs(got) > 1e-9 {
		t.Errorf("Expected 0 for orthogonal vectors, got %f", got)
	}
	if got := CosineSimilarity([]float32{1, 0}, []float32{1, 0, 0}); got != 0 {
		t.Errorf("Expected 0 for mismatched dimensions, got %f", got)
	}
	if got := CosineSimilarity(nil, nil); got != 0 {
		t.Errorf("Expected 0 for empty vectors, got %f", got)
	}
}

func TestFormatKnowledgeContext(t *testing.T) {
	chunks := []models.Knowledge_Chunk{
		{Content: "first fact", Similarity: 0.91},
		{Content: "second fact", Similarity: 0.76},
	}
	result := FormatKnowledgeContext(chunks)
	if !strings.Contains(result, "[1] (similarity 0.91)\nfirst fact") {
		t.Errorf("Expected numbered first chunk, got %q", result)
	}
	if !strings.Contains(result, "[2] (similarity 0.76)\nsecond fact") {
		t.Errorf("Expected similarity on second chunk, got %q", result)
	}
	if !strings.Contains(result, "first fact\n\n[2]") {
		t.Errorf("Expected blank-line separation, got %q", result)
	}
}

func TestFormatKnowledgeContext_Empty(t *testing.T) {
	if result := FormatKnowledgeContext(nil); result != "" {
		t.Errorf("Expected empty string for no chunks, got %q", result)
	}
}
