package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/reddykarthikeya-123/OnBoardingRite/internal/domain"
	"github.com/reddykarthikeya-123/OnBoardingRite/internal/repo"
)

// --- checklist templates and the task library ---

type TemplateOptions struct {
	ID                    string
	Name                  string
	Description           string
	IsActive              bool
	EligibilityCriteriaID string
}

func (e Engine) CreateTemplate(ctx context.Context, opts TemplateOptions) (domain.ChecklistTemplate, error) {
	if opts.Name == "" {
		return domain.ChecklistTemplate{}, ValidationError{Violations: []string{"name is required"}}
	}
	now := e.nowStr()
	t := domain.ChecklistTemplate{
		ID:          opts.ID,
		Name:        opts.Name,
		Description: opts.Description,
		IsActive:    opts.IsActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if opts.EligibilityCriteriaID != "" {
		id := opts.EligibilityCriteriaID
		t.EligibilityCriteriaID = &id
	}
	if err := e.Repo.InsertTemplate(ctx, t); err != nil {
		return domain.ChecklistTemplate{}, fmt.Errorf("insert template: %w", err)
	}
	return t, nil
}

type TaskGroupOptions struct {
	ID                    string
	TemplateID            string
	Name                  string
	Description           string
	Category              string
	DisplayOrder          int
	EligibilityCriteriaID string
}

func (e Engine) CreateTaskGroup(ctx context.Context, opts TaskGroupOptions) (domain.TaskGroup, error) {
	var violations []string
	if opts.Name == "" {
		violations = append(violations, "name is required")
	}
	if opts.TemplateID == "" {
		violations = append(violations, "templateId is required")
	}
	if len(violations) > 0 {
		return domain.TaskGroup{}, ValidationError{Violations: violations}
	}
	if _, err := e.Repo.GetTemplate(ctx, opts.TemplateID); err != nil {
		return domain.TaskGroup{}, err
	}
	g := domain.TaskGroup{
		ID:           opts.ID,
		TemplateID:   opts.TemplateID,
		Name:         opts.Name,
		Description:  opts.Description,
		Category:     opts.Category,
		DisplayOrder: opts.DisplayOrder,
		CreatedAt:    e.nowStr(),
	}
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	if opts.EligibilityCriteriaID != "" {
		id := opts.EligibilityCriteriaID
		g.EligibilityCriteriaID = &id
	}
	if err := e.Repo.InsertTaskGroup(ctx, g); err != nil {
		return domain.TaskGroup{}, fmt.Errorf("insert task group: %w", err)
	}
	return g, nil
}

type TaskOptions struct {
	ID            string
	TaskGroupID   string
	Name          string
	Description   string
	Type          string
	Category      string
	IsRequired    bool
	DisplayOrder  int
	Configuration any
}

func validTaskType(t string) bool {
	switch t {
	case domain.TaskTypeCustomForm, domain.TaskTypeDocumentUpload, domain.TaskTypeRestAPI, domain.TaskTypeRedirect:
		return true
	}
	return false
}

func (e Engine) CreateTask(ctx context.Context, opts TaskOptions) (domain.Task, error) {
	var violations []string
	if opts.Name == "" {
		violations = append(violations, "name is required")
	}
	if !validTaskType(opts.Type) {
		violations = append(violations, fmt.Sprintf("unknown task type %q", opts.Type))
	}
	if len(violations) > 0 {
		return domain.Task{}, ValidationError{Violations: violations}
	}
	now := e.nowStr()
	t := domain.Task{
		ID:           opts.ID,
		Name:         opts.Name,
		Description:  opts.Description,
		Type:         opts.Type,
		Category:     opts.Category,
		IsRequired:   opts.IsRequired,
		DisplayOrder: opts.DisplayOrder,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if opts.TaskGroupID != "" {
		id := opts.TaskGroupID
		t.TaskGroupID = &id
		if _, err := e.Repo.GetTaskGroup(ctx, id); err != nil {
			return domain.Task{}, err
		}
	}
	if opts.Configuration != nil {
		data, err := json.Marshal(opts.Configuration)
		if err != nil {
			return domain.Task{}, fmt.Errorf("marshal configuration: %w", err)
		}
		s := string(data)
		t.ConfigurationJSON = &s
	}
	if err := e.Repo.InsertTask(ctx, t); err != nil {
		return domain.Task{}, fmt.Errorf("insert task: %w", err)
	}
	return t, nil
}

func (e Engine) UpdateTask(ctx context.Context, opts TaskOptions) (domain.Task, error) {
	t, err := e.Repo.GetTask(ctx, opts.ID)
	if err != nil {
		return domain.Task{}, err
	}
	if opts.Name != "" {
		t.Name = opts.Name
	}
	if opts.Description != "" {
		t.Description = opts.Description
	}
	if opts.Category != "" {
		t.Category = opts.Category
	}
	if opts.Configuration != nil {
		data, err := json.Marshal(opts.Configuration)
		if err != nil {
			return domain.Task{}, fmt.Errorf("marshal configuration: %w", err)
		}
		s := string(data)
		t.ConfigurationJSON = &s
	}
	t.UpdatedAt = e.nowStr()
	if err := e.Repo.UpdateTask(ctx, t); err != nil {
		return domain.Task{}, fmt.Errorf("update task: %w", err)
	}
	return t, nil
}

// DeployTask copies a library task into a template group. The copy keeps a
// source link so later library edits show through EffectiveContent without
// rewriting deployed rows.
func (e Engine) DeployTask(ctx context.Context, libraryTaskID, groupID string, displayOrder int) (domain.Task, error) {
	src, err := e.Repo.GetTask(ctx, libraryTaskID)
	if err != nil {
		return domain.Task{}, err
	}
	if _, err := e.Repo.GetTaskGroup(ctx, groupID); err != nil {
		return domain.Task{}, err
	}
	now := e.nowStr()
	copyID := uuid.NewString()
	sourceID := src.ID
	// deploying a deployed copy chains back to the original library task
	if src.SourceTaskID != nil {
		sourceID = *src.SourceTaskID
	}
	t := domain.Task{
		ID:           copyID,
		TaskGroupID:  &groupID,
		SourceTaskID: &sourceID,
		Name:         src.Name,
		Description:  src.Description,
		Type:         src.Type,
		Category:     src.Category,
		IsRequired:   src.IsRequired,
		DisplayOrder: displayOrder,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if src.ConfigurationJSON != nil {
		cfg := *src.ConfigurationJSON
		t.ConfigurationJSON = &cfg
	}
	if err := e.Repo.InsertTask(ctx, t); err != nil {
		return domain.Task{}, fmt.Errorf("deploy task: %w", err)
	}
	return t, nil
}

// EffectiveContent is the display/behavior content of a task after source
// propagation: name, description and configuration come from the source task
// when one is linked and still exists. Type, category and isRequired are the
// deployed row's own, always.
type EffectiveContent struct {
	Name              string
	Description       string
	ConfigurationJSON *string
}

func (e Engine) EffectiveContent(ctx context.Context, t domain.Task) (EffectiveContent, error) {
	own := EffectiveContent{Name: t.Name, Description: t.Description, ConfigurationJSON: t.ConfigurationJSON}
	if t.SourceTaskID == nil || *t.SourceTaskID == "" {
		return own, nil
	}
	src, err := e.Repo.GetTask(ctx, *t.SourceTaskID)
	if errors.Is(err, repo.ErrNotFound) {
		// source deleted: fall back to the copy's own, possibly stale, fields
		return own, nil
	}
	if err != nil {
		return EffectiveContent{}, err
	}
	return EffectiveContent{Name: src.Name, Description: src.Description, ConfigurationJSON: src.ConfigurationJSON}, nil
}

// effectiveTask returns the task with propagated content applied, for code
// paths that need the full entity (form validation, integrations).
func (e Engine) effectiveTask(ctx context.Context, t domain.Task) (domain.Task, error) {
	ec, err := e.EffectiveContent(ctx, t)
	if err != nil {
		return domain.Task{}, err
	}
	t.Name = ec.Name
	t.Description = ec.Description
	t.ConfigurationJSON = ec.ConfigurationJSON
	return t, nil
}
