package onbrsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal OnBoardingRite HTTP API client.
type Client struct {
	BaseURL     string
	BearerToken string
	// ActorID is sent as X-Actor-Id when no bearer token is set. Only
	// servers started with the development actor-header option accept it.
	ActorID    string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// TeamMember represents the API team member model (partial).
type TeamMember struct {
	ID         string `json:"id"`
	EmployeeID string `json:"employee_id,omitempty"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Email      string `json:"email"`
}

// Project represents the API project model (partial).
type Project struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	TemplateID *string `json:"template_id,omitempty"`
}

// Assignment represents an onboarding assignment with its progress counters.
type Assignment struct {
	ID                 string  `json:"id"`
	ProjectID          string  `json:"project_id"`
	TeamMemberID       string  `json:"team_member_id"`
	Status             string  `json:"status"`
	TotalTasks         int     `json:"total_tasks"`
	CompletedTasks     int     `json:"completed_tasks"`
	ProgressPercentage float64 `json:"progress_percentage"`
}

// TaskInstance represents the API task instance model (partial).
type TaskInstance struct {
	ID           string  `json:"id"`
	AssignmentID string  `json:"project_assignment_id"`
	TaskID       string  `json:"task_id"`
	Status       string  `json:"status"`
	ReviewStatus string  `json:"review_status"`
	ResultJSON   *string `json:"result_json,omitempty"`
	IsWaived     bool    `json:"is_waived"`
	AdminRemarks *string `json:"admin_remarks,omitempty"`
}

// ChecklistItem is one checklist row: the instance plus its task content.
type ChecklistItem struct {
	Instance   TaskInstance `json:"instance"`
	TaskID     string       `json:"task_id"`
	GroupID    string       `json:"group_id"`
	GroupName  string       `json:"group_name"`
	Name       string       `json:"name"`
	Type       string       `json:"type"`
	Category   string       `json:"category,omitempty"`
	IsRequired bool         `json:"is_required"`
}

// Notification represents an in-app notification.
type Notification struct {
	ID             int64   `json:"id"`
	TeamMemberID   string  `json:"team_member_id"`
	Type           string  `json:"type"`
	Title          string  `json:"title"`
	Message        string  `json:"message,omitempty"`
	TaskInstanceID *string `json:"task_instance_id,omitempty"`
	IsRead         bool    `json:"is_read"`
}

// EvaluationResult is the outcome of an eligibility evaluation.
type EvaluationResult struct {
	Eligible bool `json:"eligible"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// CreateMember creates a team member.
func (c *Client) CreateMember(ctx context.Context, firstName, lastName, email string) (TeamMember, error) {
	body := map[string]any{
		"first_name": firstName,
		"last_name":  lastName,
		"email":      email,
	}
	var resp TeamMember
	err := c.do(ctx, http.MethodPost, "members", body, &resp)
	return resp, err
}

// CreateProject creates a project backed by a checklist template.
func (c *Client) CreateProject(ctx context.Context, name, templateID string) (Project, error) {
	body := map[string]any{"name": name}
	if templateID != "" {
		body["template_id"] = templateID
	}
	var resp Project
	err := c.do(ctx, http.MethodPost, "projects", body, &resp)
	return resp, err
}

// CreateAssignment assigns a member to a project. The attributes feed
// eligibility filtering when the checklist is assembled.
func (c *Client) CreateAssignment(ctx context.Context, projectID, memberID string, attributes map[string]any) (Assignment, error) {
	body := map[string]any{
		"project_id":     projectID,
		"team_member_id": memberID,
	}
	if len(attributes) > 0 {
		body["attributes"] = attributes
	}
	var resp Assignment
	err := c.do(ctx, http.MethodPost, "assignments", body, &resp)
	return resp, err
}

// Assignment fetches an assignment with its progress counters.
func (c *Client) Assignment(ctx context.Context, id string) (Assignment, error) {
	var resp Assignment
	err := c.do(ctx, http.MethodGet, "assignments/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

// Checklist returns the assignment's checklist in display order.
func (c *Client) Checklist(ctx context.Context, assignmentID string) ([]ChecklistItem, error) {
	var resp []ChecklistItem
	endpoint := fmt.Sprintf("assignments/%s/checklist", url.PathEscape(assignmentID))
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// Instance fetches a task instance.
func (c *Client) Instance(ctx context.Context, id string) (TaskInstance, error) {
	var resp TaskInstance
	err := c.do(ctx, http.MethodGet, "instances/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

// StartInstance moves a NOT_STARTED instance to IN_PROGRESS.
func (c *Client) StartInstance(ctx context.Context, id string) (TaskInstance, error) {
	var resp TaskInstance
	err := c.do(ctx, http.MethodPost, c.instancePath(id, "start"), nil, &resp)
	return resp, err
}

// SubmitForm submits form data for a CUSTOM_FORM instance.
func (c *Client) SubmitForm(ctx context.Context, id string, data map[string]any) (TaskInstance, error) {
	var resp TaskInstance
	err := c.do(ctx, http.MethodPost, c.instancePath(id, "submit"), map[string]any{"data": data}, &resp)
	return resp, err
}

// CompleteUpload completes a DOCUMENT_UPLOAD instance for the given documents.
func (c *Client) CompleteUpload(ctx context.Context, id string, documentIDs []string) (TaskInstance, error) {
	var resp TaskInstance
	err := c.do(ctx, http.MethodPost, c.instancePath(id, "complete-upload"), map[string]any{"document_ids": documentIDs}, &resp)
	return resp, err
}

// Waive excuses an instance from the checklist.
func (c *Client) Waive(ctx context.Context, id, reason string) (TaskInstance, error) {
	var resp TaskInstance
	err := c.do(ctx, http.MethodPost, c.instancePath(id, "waive"), map[string]any{"reason": reason}, &resp)
	return resp, err
}

// Approve marks a completed instance as reviewed and approved.
func (c *Client) Approve(ctx context.Context, id string) (TaskInstance, error) {
	var resp TaskInstance
	err := c.do(ctx, http.MethodPost, c.instancePath(id, "approve"), nil, &resp)
	return resp, err
}

// Reject sends a completed instance back for rework with remarks.
func (c *Client) Reject(ctx context.Context, id, remarks string) (TaskInstance, error) {
	var resp TaskInstance
	err := c.do(ctx, http.MethodPost, c.instancePath(id, "reject"), map[string]any{"remarks": remarks}, &resp)
	return resp, err
}

// EvaluateCriteria evaluates an eligibility criteria against attributes.
func (c *Client) EvaluateCriteria(ctx context.Context, criteriaID string, attributes map[string]any) (bool, error) {
	var resp EvaluationResult
	endpoint := fmt.Sprintf("criteria/%s/evaluate", url.PathEscape(criteriaID))
	err := c.do(ctx, http.MethodPost, endpoint, map[string]any{"attributes": attributes}, &resp)
	return resp.Eligible, err
}

// Notifications returns a member's notifications, newest first.
func (c *Client) Notifications(ctx context.Context, memberID string) ([]Notification, error) {
	var resp []Notification
	endpoint := fmt.Sprintf("members/%s/notifications", url.PathEscape(memberID))
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// MarkNotificationRead marks a notification as read.
func (c *Client) MarkNotificationRead(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("notifications/%d/read", id), nil, nil)
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/v1/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.ActorID != "":
		req.Header.Set("X-Actor-Id", c.ActorID)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) instancePath(id, action string) string {
	return fmt.Sprintf("instances/%s/%s", url.PathEscape(id), action)
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
