// Package knowledge implements hybrid (vector + keyword) retrieval over
// gorm-stored knowledge repositories, plus the formatter that turns
// retrieved chunks into prompt text.
package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"sort"
	"strings"

	"github.com/Desarso/promptctx/contexts"
	"github.com/Desarso/promptctx/models"
	"github.com/Desarso/promptctx/stores"
)

// Embedder produces embedding vectors for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// HybridRetriever scores stored knowledge entries with a weighted blend of
// vector similarity and keyword overlap. It implements the pipeline's
// KnowledgeRetriever collaborator interface.
//
// Repository access control happens upstream (the caller only passes
// repository ids the session user or the knowledge owner may read); the
// retriever records the acting identities for diagnosis only.
type HybridRetriever struct {
	Store    stores.KnowledgeStore
	Embedder Embedder
	Logger   *log.Logger
}

// NewHybridRetriever creates a retriever over the given store and embedder.
// A nil embedder disables the vector component and scores on keywords only.
func NewHybridRetriever(store stores.KnowledgeStore, embedder Embedder, logger *log.Logger) *HybridRetriever {
	if logger == nil {
		logger = log.Default()
	}
	return &HybridRetriever{Store: store, Embedder: embedder, Logger: logger}
}

type scoredEntry struct {
	content string
	score   float64
}

// RetrieveForPrompt searches the given repositories for content relevant to
// the query and returns at most opts.TopK chunks within the approximate
// token budget, ordered by blended similarity descending.
func (r *HybridRetriever) RetrieveForPrompt(ctx context.Context, query string, repositoryIDs []uint, userSub, ownerSub string, opts contexts.Retrieve_Options) ([]models.Knowledge_Chunk, error) {
	if len(repositoryIDs) == 0 {
		return nil, nil
	}

	entries, err := r.Store.GetEntriesByRepositoryIDs(ctx, repositoryIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load knowledge entries: %w", err)
	}
	if len(entries) == 0 {
		return nil, nil
	}

	var queryEmbedding []float32
	if opts.SearchType != "keyword" && r.Embedder != nil {
		queryEmbedding, err = r.Embedder.Embed(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("failed to embed query: %w", err)
		}
	}

	keywords := queryKeywords(query)

	scored := make([]scoredEntry, 0, len(entries))
	for _, entry := range entries {
		score := r.scoreEntry(entry, queryEmbedding, keywords, opts)
		if score < opts.SimilarityFloor {
			continue
		}
		scored = append(scored, scoredEntry{content: entry.Content, score: score})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})

	topK := opts.TopK
	if topK <= 0 {
		topK = 10
	}

	var (
		chunks      []models.Knowledge_Chunk
		tokensUsed  int
		tokenBudget = opts.TokenBudget
	)
	for _, entry := range scored {
		if len(chunks) == topK {
			break
		}
		// Budget is approximate: ~4 characters per token.
		entryTokens := len(entry.content) / 4
		if tokenBudget > 0 && tokensUsed+entryTokens > tokenBudget && len(chunks) > 0 {
			break
		}
		tokensUsed += entryTokens
		chunks = append(chunks, models.Knowledge_Chunk{
			Content:    entry.content,
			Similarity: entry.score,
		})
	}

	r.Logger.Printf("Knowledge retrieval: %d/%d entries selected for repositories %v (user=%s, owner=%s)",
		len(chunks), len(entries), repositoryIDs, userSub, ownerSub)
	return chunks, nil
}

// scoreEntry blends vector and keyword similarity per the search options.
func (r *HybridRetriever) scoreEntry(entry stores.KnowledgeEntry, queryEmbedding []float32, keywords []string, opts contexts.Retrieve_Options) float64 {
	keywordScore := keywordOverlap(entry.Content, keywords)

	if len(queryEmbedding) == 0 {
		return keywordScore
	}

	vectorScore := 0.0
	if embedding := decodeEmbedding(entry.EmbeddingJSON); len(embedding) > 0 {
		vectorScore = CosineSimilarity(queryEmbedding, embedding)
	}

	switch opts.SearchType {
	case "vector":
		return vectorScore
	case "keyword":
		return keywordScore
	default:
		weight := opts.VectorWeight
		if weight <= 0 || weight > 1 {
			weight = 0.8
		}
		return weight*vectorScore + (1-weight)*keywordScore
	}
}

// keywordOverlap is the fraction of query keywords contained in the content.
func keywordOverlap(content string, keywords []string) float64 {
	if len(keywords) == 0 {
		return 0
	}
	lower := strings.ToLower(content)
	hits := 0
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			hits++
		}
	}
	return float64(hits) / float64(len(keywords))
}

func queryKeywords(query string) []string {
	var keywords []string
	for _, token := range strings.Fields(strings.ToLower(query)) {
		if len(token) > 2 {
			keywords = append(keywords, token)
		}
	}
	return keywords
}

func decodeEmbedding(raw string) []float32 {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var embedding []float32
	if err := json.Unmarshal([]byte(raw), &embedding); err != nil {
		return nil
	}
	return embedding
}

// CosineSimilarity returns the cosine of the angle between two vectors,
// or 0 when their dimensions differ or either is zero.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
