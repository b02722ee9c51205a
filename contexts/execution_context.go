package contexts

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Desarso/promptctx/stores"
)

// ExecutionContextData is the full read-only snapshot loaded for one
// execution id: the joined execution record, its ordered prompt results,
// the tool's full chain template list and input field declarations, plus
// the values derived from them. Callers reuse RepositoryIDs and
// SystemContexts for a follow-up knowledge retrieval without re-querying.
type ExecutionContextData struct {
	Details     *stores.ExecutionDetails
	Results     []stores.PromptResultDetail
	Templates   []stores.ChainTemplate
	InputFields []stores.InputField

	// RepositoryIDs is the deduplicated set of knowledge repository ids
	// referenced across the tool's chain templates, in first-seen order.
	RepositoryIDs []uint
	// SystemContexts collects every non-empty chain template system context.
	SystemContexts []string
}

// ExecutionContextBuilder loads a prior tool execution's audit trail and
// formats it into a dense context block. Invalid ids, missing executions
// and load failures all degrade to an empty block.
type ExecutionContextBuilder struct {
	Executions stores.ExecutionStore
	Logger     *log.Logger
}

// NewExecutionContextBuilder wires a builder over the given execution store.
func NewExecutionContextBuilder(executions stores.ExecutionStore, logger *log.Logger) *ExecutionContextBuilder {
	if logger == nil {
		logger = log.Default()
	}
	return &ExecutionContextBuilder{Executions: executions, Logger: logger}
}

// LoadExecutionContextData loads the four execution queries concurrently
// and derives the repository id and system context sets. Returns (nil, nil)
// when the id is invalid or the execution does not exist.
func (b *ExecutionContextBuilder) LoadExecutionContextData(ctx context.Context, executionID int64) (*ExecutionContextData, error) {
	if executionID <= 0 {
		return nil, nil
	}
	id := uint(executionID)

	start := time.Now()
	data := &ExecutionContextData{}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		details, err := b.Executions.GetExecutionDetails(egCtx, id)
		data.Details = details
		return err
	})
	eg.Go(func() error {
		results, err := b.Executions.GetPromptResults(egCtx, id)
		data.Results = results
		return err
	})
	eg.Go(func() error {
		templates, err := b.Executions.GetChainTemplates(egCtx, id)
		data.Templates = templates
		return err
	})
	eg.Go(func() error {
		fields, err := b.Executions.GetInputFields(egCtx, id)
		data.InputFields = fields
		return err
	})
	if err := eg.Wait(); err != nil {
		b.Logger.Printf("Error loading execution context %d after %v: %v", executionID, time.Since(start), err)
		return nil, err
	}

	if data.Details == nil {
		return nil, nil
	}

	seen := make(map[uint]bool)
	for _, tmpl := range data.Templates {
		for _, repoID := range DecodeRepositoryIDs(tmpl.RepositoryIDsJSON) {
			if !seen[repoID] {
				seen[repoID] = true
				data.RepositoryIDs = append(data.RepositoryIDs, repoID)
			}
		}
		if strings.TrimSpace(tmpl.SystemContext) != "" {
			data.SystemContexts = append(data.SystemContexts, tmpl.SystemContext)
		}
	}

	b.Logger.Printf("Loaded execution context %d in %v (%d results, %d templates)", executionID, time.Since(start), len(data.Results), len(data.Templates))
	return data, nil
}

// Build formats the execution context block for a request, or "" when the
// id is invalid, the execution is unknown, or loading failed.
func (b *ExecutionContextBuilder) Build(ctx context.Context, executionID int64) string {
	data, err := b.LoadExecutionContextData(ctx, executionID)
	if err != nil || data == nil {
		return ""
	}
	return FormatExecutionContext(data)
}

// FormatExecutionContext renders a loaded snapshot into prompt text.
func FormatExecutionContext(data *ExecutionContextData) string {
	details := data.Details

	var sb strings.Builder
	sb.WriteString("=== PREVIOUS TOOL EXECUTION ===\n")
	fmt.Fprintf(&sb, "Tool: %s\n", details.ToolName)
	if details.ToolDescription != "" {
		fmt.Fprintf(&sb, "Description: %s\n", details.ToolDescription)
	}
	fmt.Fprintf(&sb, "Execution Status: %s\n", details.Status)

	if inputs := FormatUserInputs(data.InputFields, details.InputJSON); inputs != "" {
		sb.WriteString("\nUser Inputs:\n")
		sb.WriteString(inputs)
	}

	sb.WriteString("\n=== ASSISTANT KNOWLEDGE ===\n")
	sb.WriteString("This assistant continues a conversation about the tool execution above. The tool's prompts encode the following instructions and knowledge.\n")
	for _, sysCtx := range data.SystemContexts {
		fmt.Fprintf(&sb, "\nSystem Context:\n%s\n", sysCtx)
	}
	if len(data.Templates) > 0 {
		sb.WriteString("\nPrompt Templates:\n")
		for _, tmpl := range data.Templates {
			name := tmpl.Name
			if name == "" {
				name = "Prompt"
			}
			fmt.Fprintf(&sb, "%s: %s\n", name, tmpl.Content)
		}
	}

	sb.WriteString("\n=== EXECUTION RESULTS ===\n")
	for i, result := range data.Results {
		name := result.Name
		if name == "" {
			name = "Prompt"
		}
		template := result.TemplateContent
		if template == "" {
			template = "N/A"
		}
		status := result.Status
		if status == "" {
			status = "unknown"
		}
		fmt.Fprintf(&sb, "%d. %s\n", i+1, name)
		fmt.Fprintf(&sb, "   Template: %s\n", template)
		fmt.Fprintf(&sb, "   Input: %s\n", encodeResultInput(result.InputJSON))
		fmt.Fprintf(&sb, "   Output: %s\n", result.Output)
		fmt.Fprintf(&sb, "   Status: %s\n", status)
	}

	sb.WriteString("\nUse ALL of this information when answering the user's questions about this execution. Prefer the actual execution results over general knowledge.")
	return sb.String()
}

// FormatUserInputs labels the execution's raw input values using the tool's
// declared input fields. Only fields present with a non-empty value are
// emitted, one "- label: value" line each, in declared order.
func FormatUserInputs(fields []stores.InputField, inputJSON string) string {
	values := decodeInputPayload(inputJSON)
	if len(values) == 0 {
		return ""
	}

	var sb strings.Builder
	for _, field := range fields {
		value, ok := values[field.Name]
		if !ok {
			continue
		}
		rendered := renderInputValue(value)
		if rendered == "" {
			continue
		}
		label := field.Label
		if label == "" {
			label = field.Name
		}
		fmt.Fprintf(&sb, "- %s: %s\n", label, rendered)
	}
	return sb.String()
}

// ExtractOriginalQuestion pulls the user's original free-text question out
// of a structured execution input payload, for reuse as a retrieval query.
// Common question-carrying keys are tried first; failing those, the first
// non-empty string value wins.
func ExtractOriginalQuestion(inputJSON string) string {
	values := decodeInputPayload(inputJSON)
	if len(values) == 0 {
		return ""
	}

	for _, key := range []string{"question", "query", "user_question", "prompt", "message", "input"} {
		if value, ok := values[key]; ok {
			if s, ok := value.(string); ok && strings.TrimSpace(s) != "" {
				return s
			}
		}
	}

	for _, value := range values {
		if s, ok := value.(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

// DecodeRepositoryIDs normalizes a stored repository id list to numbers.
// The column has historically held several shapes: a JSON array of numbers,
// an array of numeric strings, or the whole array double-encoded as a JSON
// string. All decode to the same id list; anything else decodes to nil.
func DecodeRepositoryIDs(raw string) []uint {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return nil
	}

	// Double-encoded form: "\"[1,2]\""
	var inner string
	if err := json.Unmarshal([]byte(raw), &inner); err == nil {
		raw = inner
	}

	var elements []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &elements); err != nil {
		return nil
	}

	var ids []uint
	for _, element := range elements {
		var n float64
		if err := json.Unmarshal(element, &n); err == nil {
			if n > 0 {
				ids = append(ids, uint(n))
			}
			continue
		}
		var s string
		if err := json.Unmarshal(element, &s); err == nil {
			if parsed, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64); err == nil && parsed > 0 {
				ids = append(ids, uint(parsed))
			}
		}
	}
	return ids
}

// decodeInputPayload accepts both a JSON object and a string-encoded JSON
// object, returning nil for anything else.
func decodeInputPayload(inputJSON string) map[string]interface{} {
	inputJSON = strings.TrimSpace(inputJSON)
	if inputJSON == "" {
		return nil
	}

	var values map[string]interface{}
	if err := json.Unmarshal([]byte(inputJSON), &values); err == nil {
		return values
	}

	// String-encoded object: "\"{...}\""
	var inner string
	if err := json.Unmarshal([]byte(inputJSON), &inner); err == nil {
		if err := json.Unmarshal([]byte(inner), &values); err == nil {
			return values
		}
	}
	return nil
}

// renderInputValue flattens one input value to display text. Empty strings
// and nils render to "" so the field is skipped.
func renderInputValue(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(encoded)
	}
}

// encodeResultInput re-encodes a prompt result's rendered input for display,
// falling back to the raw text when it is not valid JSON.
func encodeResultInput(inputJSON string) string {
	if strings.TrimSpace(inputJSON) == "" {
		return "{}"
	}
	var value interface{}
	if err := json.Unmarshal([]byte(inputJSON), &value); err != nil {
		return inputJSON
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return inputJSON
	}
	return string(encoded)
}
