package contexts

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Desarso/promptctx/stores"
)

type fakeExecutionStore struct {
	details     *stores.ExecutionDetails
	results     []stores.PromptResultDetail
	templates   []stores.ChainTemplate
	inputFields []stores.InputField
	err         error
}

func (f *fakeExecutionStore) GetExecutionDetails(ctx context.Context, executionID uint) (*stores.ExecutionDetails, error) {
	return f.details, f.err
}

func (f *fakeExecutionStore) GetPromptResults(ctx context.Context, executionID uint) ([]stores.PromptResultDetail, error) {
	return f.results, f.err
}

func (f *fakeExecutionStore) GetChainTemplates(ctx context.Context, executionID uint) ([]stores.ChainTemplate, error) {
	return f.templates, f.err
}

func (f *fakeExecutionStore) GetInputFields(ctx context.Context, executionID uint) ([]stores.InputField, error) {
	return f.inputFields, f.err
}

func summarizerStore() *fakeExecutionStore {
	return &fakeExecutionStore{
		details: &stores.ExecutionDetails{
			ExecutionID:     42,
			Status:          "completed",
			InputJSON:       `{"question": "What were the findings?", "audience": "board"}`,
			ToolName:        "Report Summarizer",
			ToolDescription: "Summarizes uploaded reports",
		},
		results: []stores.PromptResultDetail{
			{
				Sequence:        1,
				Name:            "Summarize",
				TemplateContent: "Summarize: {{text}}",
				InputJSON:       `{"text": "annual report"}`,
				Output:          "Revenue grew 12 percent.",
				Status:          "completed",
			},
			{
				Sequence: 2,
				Output:   "Costs were flat.",
			},
		},
		templates: []stores.ChainTemplate{
			{Sequence: 1, Name: "Summarize", Content: "Summarize: {{text}}", SystemContext: "You summarize financial reports.", RepositoryIDsJSON: "[3, 7]"},
			{Sequence: 2, Name: "Refine", Content: "Refine: {{draft}}", RepositoryIDsJSON: `["7", "9"]`},
		},
		inputFields: []stores.InputField{
			{Sequence: 1, Name: "question", Label: "Question"},
			{Sequence: 2, Name: "audience", Label: "Audience"},
			{Sequence: 3, Name: "notes", Label: "Notes"},
		},
	}
}

func TestLoadExecutionContextData_InvalidID(t *testing.T) {
	builder := NewExecutionContextBuilder(summarizerStore(), quietLogger())
	for _, id := range []int64{0, -1} {
		data, err := builder.LoadExecutionContextData(context.Background(), id)
		if err != nil {
			t.Errorf("Expected no error for id %d, got %v", id, err)
		}
		if data != nil {
			t.Errorf("Expected nil data for id %d", id)
		}
	}
}

func TestLoadExecutionContextData_MissingExecution(t *testing.T) {
	builder := NewExecutionContextBuilder(&fakeExecutionStore{}, quietLogger())
	data, err := builder.LoadExecutionContextData(context.Background(), 42)
	if err != nil {
		t.Fatalf("Expected no error for missing execution, got %v", err)
	}
	if data != nil {
		t.Errorf("Expected nil data for missing execution, got %+v", data)
	}
}

func TestLoadExecutionContextData_StoreError(t *testing.T) {
	builder := NewExecutionContextBuilder(&fakeExecutionStore{err: errors.New("query failed")}, quietLogger())
	_, err := builder.LoadExecutionContextData(context.Background(), 42)
	if err == nil {
		t.Fatal("Expected store error to propagate")
	}
}

func TestLoadExecutionContextData_DerivedSets(t *testing.T) {
	builder := NewExecutionContextBuilder(summarizerStore(), quietLogger())
	data, err := builder.LoadExecutionContextData(context.Background(), 42)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if data == nil {
		t.Fatal("Expected data for existing execution")
	}

	// Repository ids deduplicated in first-seen order across templates.
	expected := []uint{3, 7, 9}
	if len(data.RepositoryIDs) != len(expected) {
		t.Fatalf("Expected repository ids %v, got %v", expected, data.RepositoryIDs)
	}
	for i, id := range expected {
		if data.RepositoryIDs[i] != id {
			t.Errorf("Expected repository id %d at position %d, got %d", id, i, data.RepositoryIDs[i])
		}
	}

	if len(data.SystemContexts) != 1 || data.SystemContexts[0] != "You summarize financial reports." {
		t.Errorf("Expected the single non-empty system context, got %v", data.SystemContexts)
	}
}

func TestExecutionContextBuild_FormatsAllSections(t *testing.T) {
	builder := NewExecutionContextBuilder(summarizerStore(), quietLogger())
	result := builder.Build(context.Background(), 42)

	for _, want := range []string{
		"=== PREVIOUS TOOL EXECUTION ===",
		"Tool: Report Summarizer",
		"Description: Summarizes uploaded reports",
		"Execution Status: completed",
		"User Inputs:",
		"- Question: What were the findings?",
		"- Audience: board",
		"=== ASSISTANT KNOWLEDGE ===",
		"System Context:\nYou summarize financial reports.",
		"Prompt Templates:",
		"Summarize: Summarize: {{text}}",
		"Refine: Refine: {{draft}}",
		"=== EXECUTION RESULTS ===",
		"1. Summarize",
		"Output: Revenue grew 12 percent.",
		"Use ALL of this information",
	} {
		if !strings.Contains(result, want) {
			t.Errorf("Expected context to contain %q, got:\n%s", want, result)
		}
	}

	// The second result has no name, template or status.
	for _, want := range []string{"2. Prompt", "Template: N/A", "Status: unknown"} {
		if !strings.Contains(result, want) {
			t.Errorf("Expected fallback %q in results section, got:\n%s", want, result)
		}
	}
}

func TestExecutionContextBuild_SectionOrder(t *testing.T) {
	builder := NewExecutionContextBuilder(summarizerStore(), quietLogger())
	result := builder.Build(context.Background(), 42)

	execution := strings.Index(result, "=== PREVIOUS TOOL EXECUTION ===")
	knowledge := strings.Index(result, "=== ASSISTANT KNOWLEDGE ===")
	results := strings.Index(result, "=== EXECUTION RESULTS ===")
	if !(execution >= 0 && execution < knowledge && knowledge < results) {
		t.Errorf("Expected execution < knowledge < results sections, got indexes %d, %d, %d", execution, knowledge, results)
	}
}

func TestExecutionContextBuild_DegradesToEmpty(t *testing.T) {
	builder := NewExecutionContextBuilder(&fakeExecutionStore{err: errors.New("down")}, quietLogger())
	if result := builder.Build(context.Background(), 42); result != "" {
		t.Errorf("Expected empty context on load failure, got %q", result)
	}
	if result := builder.Build(context.Background(), 0); result != "" {
		t.Errorf("Expected empty context for invalid id, got %q", result)
	}
}

func TestFormatUserInputs(t *testing.T) {
	fields := []stores.InputField{
		{Name: "question", Label: "Question"},
		{Name: "count"},
		{Name: "draft", Label: "Draft"},
		{Name: "missing", Label: "Missing"},
	}
	input := `{"question": "why", "count": 3, "draft": "", "extra": "ignored"}`

	result := FormatUserInputs(fields, input)
	if !strings.Contains(result, "- Question: why") {
		t.Errorf("Expected labeled question, got %q", result)
	}
	// A field without a label falls back to its name.
	if !strings.Contains(result, "- count: 3") {
		t.Errorf("Expected name fallback for count, got %q", result)
	}
	if strings.Contains(result, "Draft") || strings.Contains(result, "Missing") || strings.Contains(result, "extra") {
		t.Errorf("Expected empty, absent and undeclared fields skipped, got %q", result)
	}
}

func TestFormatUserInputs_StringEncodedPayload(t *testing.T) {
	fields := []stores.InputField{{Name: "question", Label: "Question"}}
	input := `"{\"question\": \"double encoded\"}"`

	result := FormatUserInputs(fields, input)
	if !strings.Contains(result, "- Question: double encoded") {
		t.Errorf("Expected double-encoded payload decoded, got %q", result)
	}
}

func TestFormatUserInputs_InvalidPayload(t *testing.T) {
	if result := FormatUserInputs(nil, "not json"); result != "" {
		t.Errorf("Expected empty output for invalid payload, got %q", result)
	}
	if result := FormatUserInputs(nil, ""); result != "" {
		t.Errorf("Expected empty output for empty payload, got %q", result)
	}
}

func TestExtractOriginalQuestion(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"question key", `{"question": "what happened"}`, "what happened"},
		{"query key", `{"query": "find it"}`, "find it"},
		{"preferred key wins", `{"other": "nope", "question": "yes"}`, "yes"},
		{"fallback to any string", `{"topic": "budgets"}`, "budgets"},
		{"empty payload", `{}`, ""},
		{"invalid json", `abc`, ""},
		{"non-string values only", `{"count": 5}`, ""},
	}
	for _, tt := range tests {
		if got := ExtractOriginalQuestion(tt.input); got != tt.expected {
			t.Errorf("%s: expected %q, got %q", tt.name, tt.expected, got)
		}
	}
}

func TestDecodeRepositoryIDs(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []uint
	}{
		{"numeric array", "[1, 2, 3]", []uint{1, 2, 3}},
		{"string array", `["4", "5"]`, []uint{4, 5}},
		{"double encoded", `"[6, 7]"`, []uint{6, 7}},
		{"mixed", `[8, "9"]`, []uint{8, 9}},
		{"empty string", "", nil},
		{"null", "null", nil},
		{"empty array", "[]", nil},
		{"garbage", "not json", nil},
		{"zero and negative dropped", "[0, -1, 2]", []uint{2}},
	}
	for _, tt := range tests {
		got := DecodeRepositoryIDs(tt.input)
		if len(got) != len(tt.expected) {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.expected, got)
			continue
		}
		for i := range got {
			if got[i] != tt.expected[i] {
				t.Errorf("%s: expected %v, got %v", tt.name, tt.expected, got)
				break
			}
		}
	}
}
