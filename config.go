package promptctx

import (
	"log"

	"github.com/Desarso/promptctx/contexts"
	"github.com/Desarso/promptctx/knowledge"
	"github.com/Desarso/promptctx/stores"
)

// Config holds the collaborators the prompt assembler is wired with
type Config struct {
	Documents  stores.DocumentStore
	Executions stores.ExecutionStore
	Retriever  contexts.KnowledgeRetriever
	Formatter  contexts.KnowledgeFormatter
	Identity   contexts.IdentityResolver
	Logger     *log.Logger
}

// NewConfig creates a new assembler configuration with default values
func NewConfig() *Config {
	return &Config{
		Formatter: knowledge.FormatKnowledgeContext,
		Logger:    log.Default(),
	}
}

// WithStoreBundle wires every store-backed collaborator from one bundle
func (c *Config) WithStoreBundle(bundle *stores.Bundle) *Config {
	c.Documents = bundle.Documents
	c.Executions = bundle.Executions
	c.Identity = bundle.Knowledge
	return c
}

// WithDocumentStore sets the document store
func (c *Config) WithDocumentStore(documents stores.DocumentStore) *Config {
	c.Documents = documents
	return c
}

// WithExecutionStore sets the execution store
func (c *Config) WithExecutionStore(executions stores.ExecutionStore) *Config {
	c.Executions = executions
	return c
}

// WithRetriever sets the knowledge retrieval collaborator
func (c *Config) WithRetriever(retriever contexts.KnowledgeRetriever) *Config {
	c.Retriever = retriever
	return c
}

// WithFormatter sets the knowledge formatter
func (c *Config) WithFormatter(formatter contexts.KnowledgeFormatter) *Config {
	c.Formatter = formatter
	return c
}

// WithIdentityResolver sets the owner identity resolver
func (c *Config) WithIdentityResolver(identity contexts.IdentityResolver) *Config {
	c.Identity = identity
	return c
}

// WithLogger sets the logger shared by the assembler and its builders
func (c *Config) WithLogger(logger *log.Logger) *Config {
	c.Logger = logger
	return c
}
