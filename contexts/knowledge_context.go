package contexts

import (
	"context"
	"log"
)

// Knowledge retrieval tuning. The similarity floor is deliberately low:
// follow-up questions are often loosely worded, and a stricter floor was
// found to suppress relevant matches. Recall over precision here.
var defaultRetrieveOptions = Retrieve_Options{
	TopK:            10,
	TokenBudget:     4000,
	SearchType:      "hybrid",
	VectorWeight:    0.8,
	SimilarityFloor: 0.5,
}

// KnowledgeContextBuilder retrieves knowledge-base content relevant to the
// user's message and formats it for the system prompt. Retrieval failures
// degrade to an empty block.
type KnowledgeContextBuilder struct {
	Retriever KnowledgeRetriever
	Formatter KnowledgeFormatter
	Identity  IdentityResolver
	Logger    *log.Logger
}

// NewKnowledgeContextBuilder wires a builder over the given retriever and
// formatter.
func NewKnowledgeContextBuilder(retriever KnowledgeRetriever, formatter KnowledgeFormatter, identity IdentityResolver, logger *log.Logger) *KnowledgeContextBuilder {
	if logger == nil {
		logger = log.Default()
	}
	return &KnowledgeContextBuilder{
		Retriever: retriever,
		Formatter: formatter,
		Identity:  identity,
		Logger:    logger,
	}
}

// Build returns the knowledge block for a request, or "" when there are no
// repositories to search, nothing was found, or retrieval failed. ownerSub
// optionally names the knowledge owner when the conversation is continued
// by someone other than the execution's original owner.
func (b *KnowledgeContextBuilder) Build(ctx context.Context, userMessage string, repositoryIDs []uint, userSub, ownerSub string) string {
	if len(repositoryIDs) == 0 {
		return ""
	}

	chunks, err := b.Retriever.RetrieveForPrompt(ctx, userMessage, repositoryIDs, userSub, ownerSub, defaultRetrieveOptions)
	if err != nil {
		b.Logger.Printf("Error retrieving knowledge for repositories %v: %v", repositoryIDs, err)
		return ""
	}
	if len(chunks) == 0 {
		return ""
	}

	formatted := b.Formatter(chunks)
	if formatted == "" {
		return ""
	}

	return "Relevant Knowledge:\n\n" + formatted + "\n\nUse this knowledge when it is relevant to the user's question."
}

// ResolveOwnerIdentity looks up the stable external identity subject for a
// numeric owner id, so knowledge-access scoping can tell "is this the
// knowledge owner" apart from the current session user. Returns "" when
// the lookup fails or the user is unknown.
func (b *KnowledgeContextBuilder) ResolveOwnerIdentity(ctx context.Context, ownerUserID uint) string {
	if b.Identity == nil || ownerUserID == 0 {
		return ""
	}
	sub, err := b.Identity.GetOwnerSub(ctx, ownerUserID)
	if err != nil {
		b.Logger.Printf("Error resolving identity for user %d: %v", ownerUserID, err)
		return ""
	}
	return sub
}
