package stores

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// GORMExecutionStore implements ExecutionStore for SQLite/PostgreSQL via GORM
type GORMExecutionStore struct {
	db *gorm.DB
}

// NewGORMExecutionStore creates an execution store from an existing GORM
// database connection
func NewGORMExecutionStore(db *gorm.DB) (*GORMExecutionStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	return &GORMExecutionStore{db: db}, nil
}

// GetExecutionDetails returns the execution record joined with its owning
// tool, or nil when the execution does not exist.
func (s *GORMExecutionStore) GetExecutionDetails(ctx context.Context, executionID uint) (*ExecutionDetails, error) {
	var row struct {
		Execution
		ToolName        string `gorm:"column:tool_name"`
		ToolDescription string `gorm:"column:tool_description"`
		OwnerUserID     uint   `gorm:"column:owner_user_id"`
	}

	err := s.db.WithContext(ctx).
		Model(&Execution{}).
		Select("executions.*, tools.name as tool_name, tools.description as tool_description, tools.owner_user_id as owner_user_id").
		Joins("JOIN tools ON tools.id = executions.tool_id").
		Where("executions.id = ?", executionID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch execution %d: %w", executionID, err)
	}

	return &ExecutionDetails{
		ExecutionID:     row.ID,
		Status:          row.Status,
		InputJSON:       row.InputJSON,
		StartedAt:       row.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		ToolName:        row.ToolName,
		ToolDescription: row.ToolDescription,
		OwnerUserID:     row.OwnerUserID,
	}, nil
}

// GetPromptResults returns an execution's prompt results in sequence order,
// each joined with its originating chain template.
func (s *GORMExecutionStore) GetPromptResults(ctx context.Context, executionID uint) ([]PromptResultDetail, error) {
	var rows []struct {
		PromptResult
		TemplateName    string `gorm:"column:template_name"`
		TemplateContent string `gorm:"column:template_content"`
		SystemContext   string `gorm:"column:system_context"`
	}

	err := s.db.WithContext(ctx).
		Model(&PromptResult{}).
		Select("prompt_results.*, chain_templates.name as template_name, chain_templates.content as template_content, chain_templates.system_context as system_context").
		Joins("LEFT JOIN chain_templates ON chain_templates.id = prompt_results.chain_template_id").
		Where("prompt_results.execution_id = ?", executionID).
		Order("prompt_results.sequence ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch prompt results for execution %d: %w", executionID, err)
	}

	results := make([]PromptResultDetail, len(rows))
	for i, r := range rows {
		results[i] = PromptResultDetail{
			Sequence:        r.Sequence,
			Name:            r.TemplateName,
			TemplateContent: r.TemplateContent,
			SystemContext:   r.SystemContext,
			InputJSON:       r.InputJSON,
			Output:          r.Output,
			Status:          r.Status,
		}
	}
	return results, nil
}

// GetChainTemplates returns the full ordered chain template list for the
// tool that owns the given execution.
func (s *GORMExecutionStore) GetChainTemplates(ctx context.Context, executionID uint) ([]ChainTemplate, error) {
	var templates []ChainTemplate
	err := s.db.WithContext(ctx).
		Joins("JOIN executions ON executions.tool_id = chain_templates.tool_id").
		Where("executions.id = ?", executionID).
		Order("chain_templates.sequence ASC").
		Find(&templates).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch chain templates for execution %d: %w", executionID, err)
	}
	return templates, nil
}

// GetInputFields returns the declared input fields for the tool that owns
// the given execution, in declared order.
func (s *GORMExecutionStore) GetInputFields(ctx context.Context, executionID uint) ([]InputField, error) {
	var fields []InputField
	err := s.db.WithContext(ctx).
		Joins("JOIN executions ON executions.tool_id = input_fields.tool_id").
		Where("executions.id = ?", executionID).
		Order("input_fields.sequence ASC").
		Find(&fields).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch input fields for execution %d: %w", executionID, err)
	}
	return fields, nil
}
