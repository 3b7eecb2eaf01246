package server

import (
	"github.com/reddykarthikeya-123/OnBoardingRite/internal/domain"
	"github.com/reddykarthikeya-123/OnBoardingRite/internal/eligibility"
	"github.com/reddykarthikeya-123/OnBoardingRite/internal/engine"
)

// Request payloads

type CriteriaRequest struct {
	Name           string            `json:"name"`
	Description    *string           `json:"description,omitempty"`
	RootGroupLogic string            `json:"root_group_logic" enum:"AND,OR"`
	IsActive       *bool             `json:"is_active,omitempty"`
	Rules          *eligibility.Node `json:"rules,omitempty"`
}

type EvaluateRequest struct {
	Attributes map[string]any `json:"attributes"`
}

type CreateTemplateRequest struct {
	Name                  string  `json:"name"`
	Description           *string `json:"description,omitempty"`
	EligibilityCriteriaID *string `json:"eligibility_criteria_id,omitempty"`
}

type CreateTaskGroupRequest struct {
	Name                  string  `json:"name"`
	Description           *string `json:"description,omitempty"`
	Category              *string `json:"category,omitempty"`
	DisplayOrder          int     `json:"display_order,omitempty"`
	EligibilityCriteriaID *string `json:"eligibility_criteria_id,omitempty"`
}

type CreateTaskRequest struct {
	TaskGroupID   *string `json:"task_group_id,omitempty"`
	Name          string  `json:"name"`
	Description   *string `json:"description,omitempty"`
	Type          string  `json:"type" enum:"CUSTOM_FORM,DOCUMENT_UPLOAD,REST_API,REDIRECT"`
	Category      *string `json:"category,omitempty"`
	IsRequired    bool    `json:"is_required,omitempty"`
	DisplayOrder  int     `json:"display_order,omitempty"`
	Configuration any     `json:"configuration,omitempty"`
}

type UpdateTaskRequest struct {
	Name          *string `json:"name,omitempty"`
	Description   *string `json:"description,omitempty"`
	Category      *string `json:"category,omitempty"`
	Configuration any     `json:"configuration,omitempty"`
}

type DeployTaskRequest struct {
	TaskGroupID  string `json:"task_group_id"`
	DisplayOrder int    `json:"display_order,omitempty"`
}

type CreateMemberRequest struct {
	EmployeeID *string `json:"employee_id,omitempty"`
	FirstName  string  `json:"first_name"`
	LastName   string  `json:"last_name"`
	Email      string  `json:"email"`
}

type CreateProjectRequest struct {
	Name       string  `json:"name"`
	TemplateID *string `json:"template_id,omitempty"`
}

type CreateAssignmentRequest struct {
	ProjectID    string         `json:"project_id"`
	TeamMemberID string         `json:"team_member_id"`
	Category     *string        `json:"category,omitempty"`
	Trade        *string        `json:"trade,omitempty"`
	Attributes   map[string]any `json:"attributes,omitempty"`
}

type SubmitFormRequest struct {
	Data map[string]any `json:"data"`
}

type AttachDocumentRequest struct {
	Filename string `json:"filename"`
	MimeType string `json:"mime_type,omitempty"`
	// Data is the file content, base64-encoded.
	Data []byte `json:"data"`
}

type CompleteUploadRequest struct {
	DocumentIDs []string `json:"document_ids"`
}

type ExecuteRequest struct {
	BodyOverride map[string]any `json:"body_override,omitempty"`
}

type WaiveRequest struct {
	Reason      string  `json:"reason"`
	WaivedUntil *string `json:"waived_until,omitempty" format:"date-time"`
}

type RejectRequest struct {
	Remarks string `json:"remarks"`
}

type OverrideStatusRequest struct {
	Status string         `json:"status" enum:"NOT_STARTED,IN_PROGRESS,COMPLETED,BLOCKED,WAIVED"`
	Result map[string]any `json:"result,omitempty"`
}

// Response payloads

type CriteriaResponse struct {
	domain.EligibilityCriteria
	RuleCount int               `json:"rule_count"`
	Rules     *eligibility.Node `json:"rules,omitempty"`
}

type EvaluateResponse struct {
	Eligible bool `json:"eligible"`
}

type EffectiveContentResponse struct {
	TaskID        string  `json:"task_id"`
	Name          string  `json:"name"`
	Description   string  `json:"description,omitempty"`
	Configuration *string `json:"configuration,omitempty"`
}

type DocumentResponse struct {
	ID             string `json:"id"`
	TaskInstanceID string `json:"task_instance_id"`
	Filename       string `json:"filename"`
	MimeType       string `json:"mime_type"`
	FileSize       int64  `json:"file_size"`
	UploadedAt     string `json:"uploaded_at"`
}

func documentResponse(d domain.Document) DocumentResponse {
	return DocumentResponse{
		ID:             d.ID,
		TaskInstanceID: d.TaskInstanceID,
		Filename:       d.Filename,
		MimeType:       d.MimeType,
		FileSize:       d.FileSize,
		UploadedAt:     d.UploadedAt,
	}
}

func criteriaResponse(c domain.EligibilityCriteria, tree *eligibility.Node) CriteriaResponse {
	resp := CriteriaResponse{EligibilityCriteria: c, Rules: tree}
	if tree != nil {
		resp.RuleCount = eligibility.RuleCount(tree)
	}
	return resp
}

func effectiveContentResponse(taskID string, ec engine.EffectiveContent) EffectiveContentResponse {
	return EffectiveContentResponse{
		TaskID:        taskID,
		Name:          ec.Name,
		Description:   ec.Description,
		Configuration: ec.ConfigurationJSON,
	}
}

func strOrEmpty(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
