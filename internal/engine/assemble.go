package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/reddykarthikeya-123/OnBoardingRite/internal/domain"
)

type MemberOptions struct {
	ID         string
	EmployeeID string
	FirstName  string
	LastName   string
	Email      string
}

func (e Engine) CreateTeamMember(ctx context.Context, opts MemberOptions) (domain.TeamMember, error) {
	var violations []string
	if opts.FirstName == "" {
		violations = append(violations, "firstName is required")
	}
	if opts.LastName == "" {
		violations = append(violations, "lastName is required")
	}
	if opts.Email == "" {
		violations = append(violations, "email is required")
	}
	if len(violations) > 0 {
		return domain.TeamMember{}, ValidationError{Violations: violations}
	}
	m := domain.TeamMember{
		ID:         opts.ID,
		EmployeeID: opts.EmployeeID,
		FirstName:  opts.FirstName,
		LastName:   opts.LastName,
		Email:      opts.Email,
		CreatedAt:  e.nowStr(),
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if err := e.Repo.InsertTeamMember(ctx, m); err != nil {
		return domain.TeamMember{}, fmt.Errorf("insert team member: %w", err)
	}
	return m, nil
}

type ProjectOptions struct {
	ID         string
	Name       string
	TemplateID string
}

func (e Engine) CreateProject(ctx context.Context, opts ProjectOptions) (domain.Project, error) {
	if opts.Name == "" {
		return domain.Project{}, ValidationError{Violations: []string{"name is required"}}
	}
	p := domain.Project{
		ID:        opts.ID,
		Name:      opts.Name,
		Status:    "active",
		CreatedAt: e.nowStr(),
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if opts.TemplateID != "" {
		if _, err := e.Repo.GetTemplate(ctx, opts.TemplateID); err != nil {
			return domain.Project{}, err
		}
		id := opts.TemplateID
		p.TemplateID = &id
	}
	if err := e.Repo.InsertProject(ctx, p); err != nil {
		return domain.Project{}, fmt.Errorf("insert project: %w", err)
	}
	return p, nil
}

type AssignmentOptions struct {
	ID           string
	ProjectID    string
	TeamMemberID string
	Category     string
	Trade        string
	// Attributes feed the eligibility evaluation when filtering the
	// project template's groups and tasks for this candidate.
	Attributes map[string]any
}

// ChecklistItem is one entry of an assembled checklist: the instance plus the
// effective (source-propagated) task content behind it.
type ChecklistItem struct {
	Instance   domain.TaskInstance `json:"instance"`
	TaskID     string              `json:"task_id"`
	GroupID    string              `json:"group_id"`
	GroupName  string              `json:"group_name"`
	Name       string              `json:"name"`
	Type       string              `json:"type"`
	Category   string              `json:"category,omitempty"`
	IsRequired bool                `json:"is_required"`
}

// CreateAssignment binds a team member to a project and instantiates the
// project template's checklist for them: each task group is kept or dropped
// by its eligibility criteria against the candidate's attributes, and one
// NOT_STARTED instance is created per surviving task.
func (e Engine) CreateAssignment(ctx context.Context, opts AssignmentOptions) (domain.ProjectAssignment, error) {
	var violations []string
	if opts.ProjectID == "" {
		violations = append(violations, "projectId is required")
	}
	if opts.TeamMemberID == "" {
		violations = append(violations, "teamMemberId is required")
	}
	if len(violations) > 0 {
		return domain.ProjectAssignment{}, ValidationError{Violations: violations}
	}
	project, err := e.Repo.GetProject(ctx, opts.ProjectID)
	if err != nil {
		return domain.ProjectAssignment{}, err
	}
	if _, err := e.Repo.GetTeamMember(ctx, opts.TeamMemberID); err != nil {
		return domain.ProjectAssignment{}, err
	}

	attrs := map[string]any{}
	for k, v := range opts.Attributes {
		attrs[k] = v
	}
	if opts.Category != "" {
		attrs["job.category"] = opts.Category
	}
	if opts.Trade != "" {
		attrs["job.trade"] = opts.Trade
	}

	var applicable []domain.Task
	if project.TemplateID != nil {
		template, err := e.Repo.GetTemplate(ctx, *project.TemplateID)
		if err != nil {
			return domain.ProjectAssignment{}, err
		}
		ok, err := e.criteriaAllows(ctx, template.EligibilityCriteriaID, attrs)
		if err != nil {
			return domain.ProjectAssignment{}, err
		}
		if ok {
			groups, err := e.Repo.ListTaskGroups(ctx, template.ID)
			if err != nil {
				return domain.ProjectAssignment{}, err
			}
			for _, g := range groups {
				ok, err := e.criteriaAllows(ctx, g.EligibilityCriteriaID, attrs)
				if err != nil {
					return domain.ProjectAssignment{}, err
				}
				if !ok {
					continue
				}
				tasks, err := e.Repo.ListTasks(ctx, g.ID)
				if err != nil {
					return domain.ProjectAssignment{}, err
				}
				applicable = append(applicable, tasks...)
			}
		}
	}

	now := e.nowStr()
	a := domain.ProjectAssignment{
		ID:           opts.ID,
		ProjectID:    opts.ProjectID,
		TeamMemberID: opts.TeamMemberID,
		Status:       "active",
		Category:     opts.Category,
		Trade:        opts.Trade,
		TotalTasks:   len(applicable),
		AssignedAt:   now,
		UpdatedAt:    now,
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.ProjectAssignment{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertAssignmentTx(ctx, tx, a); err != nil {
		return domain.ProjectAssignment{}, fmt.Errorf("insert assignment: %w", err)
	}
	for _, task := range applicable {
		ti := domain.TaskInstance{
			ID:           uuid.NewString(),
			TaskID:       task.ID,
			AssignmentID: a.ID,
			Status:       domain.StatusNotStarted,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := e.Repo.InsertInstanceTx(ctx, tx, ti); err != nil {
			return domain.ProjectAssignment{}, fmt.Errorf("insert instance: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return domain.ProjectAssignment{}, err
	}
	return a, nil
}

// Checklist returns an assignment's instances joined with their effective
// task content, in template order.
func (e Engine) Checklist(ctx context.Context, assignmentID string) ([]ChecklistItem, error) {
	if _, err := e.Repo.GetAssignment(ctx, assignmentID); err != nil {
		return nil, err
	}
	instances, err := e.Repo.ListInstances(ctx, assignmentID, "")
	if err != nil {
		return nil, err
	}
	items := make([]ChecklistItem, 0, len(instances))
	for _, ti := range instances {
		task, err := e.Repo.GetTask(ctx, ti.TaskID)
		if err != nil {
			return nil, err
		}
		content, err := e.EffectiveContent(ctx, task)
		if err != nil {
			return nil, err
		}
		item := ChecklistItem{
			Instance:   ti,
			TaskID:     task.ID,
			Name:       content.Name,
			Type:       task.Type,
			Category:   task.Category,
			IsRequired: task.IsRequired,
		}
		if task.TaskGroupID != nil {
			if g, err := e.Repo.GetTaskGroup(ctx, *task.TaskGroupID); err == nil {
				item.GroupID = g.ID
				item.GroupName = g.Name
			}
		}
		items = append(items, item)
	}
	return items, nil
}

type DocumentOptions struct {
	InstanceID string
	Filename   string
	MimeType   string
	Data       []byte
	UploadedBy string
}

// AttachDocument stores an uploaded file against a DOCUMENT_UPLOAD instance
// and starts the instance if it has not been touched yet.
func (e Engine) AttachDocument(ctx context.Context, opts DocumentOptions) (domain.Document, error) {
	var violations []string
	if opts.Filename == "" {
		violations = append(violations, "filename is required")
	}
	if len(opts.Data) == 0 {
		violations = append(violations, "file data is empty")
	}
	if len(violations) > 0 {
		return domain.Document{}, ValidationError{Violations: violations}
	}
	ti, err := e.Repo.GetInstance(ctx, opts.InstanceID)
	if err != nil {
		return domain.Document{}, err
	}
	task, err := e.Repo.GetTask(ctx, ti.TaskID)
	if err != nil {
		return domain.Document{}, err
	}
	if task.Type != domain.TaskTypeDocumentUpload {
		return domain.Document{}, StateConflictError{Reason: fmt.Sprintf("task %s is %s, not %s", task.ID, task.Type, domain.TaskTypeDocumentUpload)}
	}
	task, err = e.effectiveTask(ctx, task)
	if err != nil {
		return domain.Document{}, err
	}
	cfg, err := task.UploadConfig()
	if err != nil {
		return domain.Document{}, err
	}
	if len(cfg.AllowedMimeTypes) > 0 {
		allowed := false
		for _, m := range cfg.AllowedMimeTypes {
			if m == opts.MimeType {
				allowed = true
				break
			}
		}
		if !allowed {
			return domain.Document{}, ValidationError{Violations: []string{fmt.Sprintf("mime type %q is not accepted for this task", opts.MimeType)}}
		}
	}
	if cfg.MaxFileSizeBytes > 0 && int64(len(opts.Data)) > cfg.MaxFileSizeBytes {
		return domain.Document{}, ValidationError{Violations: []string{fmt.Sprintf("file exceeds the %d byte limit", cfg.MaxFileSizeBytes)}}
	}

	d := domain.Document{
		ID:             uuid.NewString(),
		TaskInstanceID: ti.ID,
		Filename:       opts.Filename,
		MimeType:       opts.MimeType,
		FileSize:       int64(len(opts.Data)),
		Data:           opts.Data,
		UploadedBy:     opts.UploadedBy,
		UploadedAt:     e.nowStr(),
	}
	if err := e.Repo.InsertDocument(ctx, d); err != nil {
		return domain.Document{}, fmt.Errorf("insert document: %w", err)
	}
	if ti.Status == domain.StatusNotStarted {
		if _, err := e.Start(ctx, ti.ID); err != nil {
			return domain.Document{}, err
		}
	}
	return d, nil
}
