// Package promptctx assembles the system prompt for a chat completion
// request. It selects a base prompt by request source, then conditionally
// appends uploaded-document excerpts, a prior tool execution's audit trail,
// and retrieved knowledge-base content, in that fixed order. A failure in
// any stage costs only that stage's block; the caller always receives at
// least the base prompt.
package promptctx

import (
	"context"
	"log"
	"strings"

	"github.com/Desarso/promptctx/contexts"
	"github.com/Desarso/promptctx/models"
)

// Assembler composes system prompts from the configured context builders.
type Assembler struct {
	documents  *contexts.DocumentContextBuilder
	executions *contexts.ExecutionContextBuilder
	knowledge  *contexts.KnowledgeContextBuilder
	logger     *log.Logger
}

// NewAssembler wires an assembler from a configuration. Builders whose
// collaborators are missing are left out; their stages simply never
// contribute.
func NewAssembler(config *Config) *Assembler {
	if config == nil {
		config = NewConfig()
	}
	logger := config.Logger
	if logger == nil {
		logger = log.Default()
	}

	a := &Assembler{logger: logger}
	if config.Documents != nil {
		a.documents = contexts.NewDocumentContextBuilder(config.Documents, logger)
	}
	if config.Executions != nil {
		a.executions = contexts.NewExecutionContextBuilder(config.Executions, logger)
	}
	if config.Retriever != nil {
		a.knowledge = contexts.NewKnowledgeContextBuilder(config.Retriever, config.Formatter, config.Identity, logger)
	}
	return a
}

// BuildSystemPrompt returns the composed system prompt for a request. It
// never fails: identifier fields decide which stages run, each stage's
// errors are contained within it, and the worst case is the bare base
// prompt.
func (a *Assembler) BuildSystemPrompt(ctx context.Context, req models.Prompt_Request) string {
	basePrompt := a.selectBasePrompt(req.Source)
	blocks := []string{basePrompt}

	if req.Document_ID != 0 || req.Conversation_ID != "" {
		if block := a.runStage("document", req, func() string {
			if a.documents == nil {
				return ""
			}
			return a.documents.Build(ctx, req.Conversation_ID, req.Document_ID, req.User_Message)
		}); block != "" {
			blocks = append(blocks, block)
		}
	}

	if req.Execution_ID != 0 {
		if block := a.runStage("execution", req, func() string {
			if a.executions == nil {
				return ""
			}
			return a.executions.Build(ctx, req.Execution_ID)
		}); block != "" {
			blocks = append(blocks, block)
		}
	}

	// The knowledge stage applies to assistant-execution conversations with
	// captured repository scoping, whether this is the first turn or a
	// later follow-up.
	if req.Source == models.Source_Assistant_Execution &&
		req.Existing_Context != nil && len(req.Existing_Context.Repository_IDs) > 0 {
		if block := a.runStage("knowledge", req, func() string {
			if a.knowledge == nil {
				return ""
			}
			return a.knowledge.Build(ctx, req.User_Message, req.Existing_Context.Repository_IDs,
				req.Session_Owner_ID, req.Existing_Context.Assistant_Owner_Sub)
		}); block != "" {
			blocks = append(blocks, block)
		}
	}

	return strings.Join(blocks, "\n\n")
}

// selectBasePrompt picks the base prompt for a request source.
func (a *Assembler) selectBasePrompt(source string) string {
	if source == models.Source_Assistant_Execution {
		return AssistantExecutionBasePrompt
	}
	return GenericBasePrompt
}

// runStage guards one stage against a panic escaping its builder, so a bug
// in a single stage cannot abort prompt construction or suppress the other
// stages' contributions.
func (a *Assembler) runStage(name string, req models.Prompt_Request, fn func() string) (block string) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Printf("Error: %s stage panicked (conversation=%s, execution=%d): %v", name, req.Conversation_ID, req.Execution_ID, r)
			block = ""
		}
	}()
	return fn()
}
