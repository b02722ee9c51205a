// Package contexts builds the individual context blocks that the system
// prompt assembler concatenates ahead of each chat completion: uploaded
// document excerpts, prior tool-execution audit trails, and retrieved
// knowledge-base content.
//
// Every builder degrades to an empty string on failure. A missing or broken
// context source makes the assistant less informed, never makes the chat
// request fail.
package contexts

import (
	"context"

	"github.com/Desarso/promptctx/models"
)

// Retrieve_Options tunes a single knowledge retrieval call.
type Retrieve_Options struct {
	TopK            int     `json:"top_k"`
	TokenBudget     int     `json:"token_budget"`
	SearchType      string  `json:"search_type"` // "vector", "keyword", "hybrid"
	VectorWeight    float64 `json:"vector_weight"`
	SimilarityFloor float64 `json:"similarity_floor"`
}

// KnowledgeRetriever is the external retrieval collaborator. Implementations
// search the given repositories on behalf of userSub; ownerSub optionally
// names the knowledge owner when it differs from the session user.
type KnowledgeRetriever interface {
	RetrieveForPrompt(ctx context.Context, query string, repositoryIDs []uint, userSub, ownerSub string, opts Retrieve_Options) ([]models.Knowledge_Chunk, error)
}

// KnowledgeFormatter renders retrieved chunks into prompt text.
type KnowledgeFormatter func(chunks []models.Knowledge_Chunk) string

// IdentityResolver looks up the stable external identity subject for a
// numeric user id. Implemented by stores.KnowledgeStore.
type IdentityResolver interface {
	GetOwnerSub(ctx context.Context, userID uint) (string, error)
}
