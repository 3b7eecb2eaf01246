package domain

// Task types supported by the checklist engine.
const (
	TaskTypeCustomForm     = "CUSTOM_FORM"
	TaskTypeDocumentUpload = "DOCUMENT_UPLOAD"
	TaskTypeRestAPI        = "REST_API"
	TaskTypeRedirect       = "REDIRECT"
)

// Task instance statuses.
const (
	StatusNotStarted = "NOT_STARTED"
	StatusInProgress = "IN_PROGRESS"
	StatusCompleted  = "COMPLETED"
	StatusBlocked    = "BLOCKED"
	StatusWaived     = "WAIVED"
)

// Review statuses. The empty string means the instance has never been
// submitted for review.
const (
	ReviewPending  = "PENDING_REVIEW"
	ReviewApproved = "APPROVED"
	ReviewRejected = "REJECTED"
)

// Eligibility rule row types.
const (
	RuleGroup = "GROUP"
	RuleField = "FIELD_RULE"
	RuleSQL   = "SQL_RULE"
)

// Notification types.
const (
	NotifyTaskApproved = "TASK_APPROVED"
	NotifyTaskRejected = "TASK_REJECTED"
	NotifySystem       = "SYSTEM"
)

type EligibilityCriteria struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Description    string `json:"description,omitempty"`
	IsActive       bool   `json:"is_active"`
	RootGroupLogic string `json:"root_group_logic" enum:"AND,OR"`
	CreatedAt      string `json:"created_at" format:"date-time"`
	UpdatedAt      string `json:"updated_at" format:"date-time"`
}

// EligibilityRule is one row of the flat, self-referential rule table.
// GROUP rows carry GroupLogic; FIELD_RULE rows carry FieldCategory/FieldName/
// Operator/Value; SQL_RULE rows reuse FieldName as display name and Value as
// description, with the predicate in SQLQuery.
type EligibilityRule struct {
	ID            string  `json:"id"`
	CriteriaID    string  `json:"criteria_id"`
	ParentGroupID *string `json:"parent_group_id,omitempty"`
	RuleType      string  `json:"rule_type" enum:"GROUP,FIELD_RULE,SQL_RULE"`
	GroupLogic    string  `json:"group_logic,omitempty" enum:"AND,OR"`
	FieldCategory string  `json:"field_category,omitempty"`
	FieldName     string  `json:"field_name,omitempty"`
	Operator      string  `json:"operator,omitempty"`
	Value         *string `json:"value,omitempty"`
	SQLQuery      *string `json:"sql_query,omitempty"`
	DisplayOrder  int     `json:"display_order"`
	CreatedAt     string  `json:"created_at" format:"date-time"`
}

type ChecklistTemplate struct {
	ID                    string  `json:"id"`
	Name                  string  `json:"name"`
	Description           string  `json:"description,omitempty"`
	IsActive              bool    `json:"is_active"`
	EligibilityCriteriaID *string `json:"eligibility_criteria_id,omitempty"`
	CreatedAt             string  `json:"created_at" format:"date-time"`
	UpdatedAt             string  `json:"updated_at" format:"date-time"`
}

type TaskGroup struct {
	ID                    string  `json:"id"`
	TemplateID            string  `json:"template_id"`
	Name                  string  `json:"name"`
	Description           string  `json:"description,omitempty"`
	Category              string  `json:"category,omitempty"`
	DisplayOrder          int     `json:"display_order"`
	EligibilityCriteriaID *string `json:"eligibility_criteria_id,omitempty"`
	CreatedAt             string  `json:"created_at" format:"date-time"`
}

// Task is a library/template definition of one onboarding step. When
// SourceTaskID is set the task is a deployed copy whose name, description and
// configuration are shadowed by the source library task.
type Task struct {
	ID                string  `json:"id"`
	TaskGroupID       *string `json:"task_group_id,omitempty"`
	SourceTaskID      *string `json:"source_task_id,omitempty"`
	Name              string  `json:"name"`
	Description       string  `json:"description,omitempty"`
	Type              string  `json:"type" enum:"CUSTOM_FORM,DOCUMENT_UPLOAD,REST_API,REDIRECT"`
	Category          string  `json:"category,omitempty"`
	IsRequired        bool    `json:"is_required"`
	DisplayOrder      int     `json:"display_order"`
	ConfigurationJSON *string `json:"configuration_json,omitempty"`
	CreatedAt         string  `json:"created_at" format:"date-time"`
	UpdatedAt         string  `json:"updated_at" format:"date-time"`
}

type TeamMember struct {
	ID         string `json:"id"`
	EmployeeID string `json:"employee_id,omitempty"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Email      string `json:"email"`
	CreatedAt  string `json:"created_at" format:"date-time"`
}

type Project struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Status     string  `json:"status"`
	TemplateID *string `json:"template_id,omitempty"`
	CreatedAt  string  `json:"created_at" format:"date-time"`
}

type ProjectAssignment struct {
	ID                 string  `json:"id"`
	ProjectID          string  `json:"project_id"`
	TeamMemberID       string  `json:"team_member_id"`
	Status             string  `json:"status"`
	Category           string  `json:"category,omitempty"`
	Trade              string  `json:"trade,omitempty"`
	TotalTasks         int     `json:"total_tasks"`
	CompletedTasks     int     `json:"completed_tasks"`
	ProgressPercentage float64 `json:"progress_percentage"`
	AssignedAt         string  `json:"assigned_at" format:"date-time"`
	UpdatedAt          string  `json:"updated_at" format:"date-time"`
}

type TaskInstance struct {
	ID           string  `json:"id"`
	TaskID       string  `json:"task_id"`
	AssignmentID string  `json:"assignment_id"`
	Status       string  `json:"status" enum:"NOT_STARTED,IN_PROGRESS,COMPLETED,BLOCKED,WAIVED"`
	ReviewStatus string  `json:"review_status,omitempty" enum:"PENDING_REVIEW,APPROVED,REJECTED"`
	ResultJSON   *string `json:"result_json,omitempty"`
	StartedAt    *string `json:"started_at,omitempty" format:"date-time"`
	CompletedAt  *string `json:"completed_at,omitempty" format:"date-time"`
	DueDate      *string `json:"due_date,omitempty" format:"date-time"`
	IsWaived     bool    `json:"is_waived"`
	WaivedReason *string `json:"waived_reason,omitempty"`
	WaivedBy     *string `json:"waived_by,omitempty"`
	WaivedAt     *string `json:"waived_at,omitempty" format:"date-time"`
	WaivedUntil  *string `json:"waived_until,omitempty" format:"date-time"`
	AdminRemarks *string `json:"admin_remarks,omitempty"`
	ReviewedBy   *string `json:"reviewed_by,omitempty"`
	ReviewedAt   *string `json:"reviewed_at,omitempty" format:"date-time"`
	CreatedAt    string  `json:"created_at" format:"date-time"`
	UpdatedAt    string  `json:"updated_at" format:"date-time"`
}

type Document struct {
	ID             string `json:"id"`
	TaskInstanceID string `json:"task_instance_id"`
	Filename       string `json:"filename"`
	MimeType       string `json:"mime_type"`
	FileSize       int64  `json:"file_size"`
	Data           []byte `json:"-"`
	UploadedBy     string `json:"uploaded_by,omitempty"`
	UploadedAt     string `json:"uploaded_at" format:"date-time"`
}

type Notification struct {
	ID             int64   `json:"id"`
	TeamMemberID   string  `json:"team_member_id"`
	Type           string  `json:"type" enum:"TASK_APPROVED,TASK_REJECTED,SYSTEM"`
	Title          string  `json:"title"`
	Message        string  `json:"message,omitempty"`
	TaskInstanceID *string `json:"task_instance_id,omitempty"`
	IsRead         bool    `json:"is_read"`
	CreatedAt      string  `json:"created_at" format:"date-time"`
}
