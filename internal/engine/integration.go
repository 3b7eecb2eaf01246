package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/reddykarthikeya-123/OnBoardingRite/internal/domain"
)

const responseBodyLimit = 1 << 20

var defaultExpectedStatusCodes = []int{200, 201, 204}

// IntegrationOutcome is the structured result of one outbound call. A failed
// call is still a successful operation: the failure lands in the instance's
// result and status, never as an error past this boundary.
type IntegrationOutcome struct {
	Instance   domain.TaskInstance `json:"instance"`
	Success    bool                `json:"success"`
	StatusCode int                 `json:"status_code,omitempty"`
	Error      string              `json:"error,omitempty"`
	Response   any                 `json:"response,omitempty"`
}

func substitutePlaceholders(s string, ti domain.TaskInstance) string {
	s = strings.ReplaceAll(s, "{{taskInstanceId}}", ti.ID)
	s = strings.ReplaceAll(s, "{{assignmentId}}", ti.AssignmentID)
	return s
}

func applyAuth(req *http.Request, auth domain.AuthConfig) {
	switch auth.Type {
	case "BEARER":
		req.Header.Set("Authorization", "Bearer "+auth.Token)
	case "API_KEY":
		name := auth.HeaderName
		if name == "" {
			name = "X-API-Key"
		}
		req.Header.Set(name, auth.APIKey)
	case "BASIC":
		req.SetBasicAuth(auth.Username, auth.Password)
	}
}

func (e Engine) httpClient() *http.Client {
	if e.Client != nil {
		return e.Client
	}
	return http.DefaultClient
}

// markInProgress commits the dispatch-started state in its own transaction so
// no transaction stays open across the outbound call.
func (e Engine) markInProgress(ctx context.Context, ti domain.TaskInstance) (domain.TaskInstance, error) {
	now := e.nowStr()
	oldStatus := ti.Status
	ti.Status = domain.StatusInProgress
	if ti.StartedAt == nil {
		ti.StartedAt = &now
	}
	ti.UpdatedAt = now

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.TaskInstance{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateInstanceTx(ctx, tx, ti); err != nil {
		return domain.TaskInstance{}, fmt.Errorf("update instance: %w", err)
	}
	if err := e.adjustProgressTx(ctx, tx, ti.AssignmentID, oldStatus, ti.Status, now); err != nil {
		return domain.TaskInstance{}, fmt.Errorf("adjust progress: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return domain.TaskInstance{}, err
	}
	return ti, nil
}

// applyOutcome commits the post-call state in a second transaction.
func (e Engine) applyOutcome(ctx context.Context, ti domain.TaskInstance, newStatus string, result map[string]any) (domain.TaskInstance, error) {
	now := e.nowStr()
	oldStatus := ti.Status
	ti.Status = newStatus
	if newStatus == domain.StatusCompleted {
		ti.CompletedAt = &now
	}
	raw, err := marshalResult(result)
	if err != nil {
		return domain.TaskInstance{}, err
	}
	ti.ResultJSON = raw
	ti.UpdatedAt = now

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.TaskInstance{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateInstanceTx(ctx, tx, ti); err != nil {
		return domain.TaskInstance{}, fmt.Errorf("update instance: %w", err)
	}
	if err := e.adjustProgressTx(ctx, tx, ti.AssignmentID, oldStatus, ti.Status, now); err != nil {
		return domain.TaskInstance{}, fmt.Errorf("adjust progress: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return domain.TaskInstance{}, err
	}
	return ti, nil
}

// ExecuteRestAPI performs a REST_API task's configured call. Exactly one
// outbound request is made per invocation; there is no retry. The caller's
// bodyOverride is shallow-merged over the configured body template.
func (e Engine) ExecuteRestAPI(ctx context.Context, instanceID string, bodyOverride map[string]any) (IntegrationOutcome, error) {
	ti, err := e.Repo.GetInstance(ctx, instanceID)
	if err != nil {
		return IntegrationOutcome{}, err
	}
	task, err := e.Repo.GetTask(ctx, ti.TaskID)
	if err != nil {
		return IntegrationOutcome{}, err
	}
	if task.Type != domain.TaskTypeRestAPI {
		return IntegrationOutcome{}, StateConflictError{Reason: fmt.Sprintf("task %s is %s, not %s", task.ID, task.Type, domain.TaskTypeRestAPI)}
	}
	task, err = e.effectiveTask(ctx, task)
	if err != nil {
		return IntegrationOutcome{}, err
	}
	cfg, err := task.RestConfig()
	if err != nil {
		return IntegrationOutcome{}, err
	}
	if cfg.BaseURL == "" && cfg.Endpoint == "" {
		return IntegrationOutcome{}, ValidationError{Violations: []string{"task has no configured URL"}}
	}

	ti, err = e.markInProgress(ctx, ti)
	if err != nil {
		return IntegrationOutcome{}, err
	}

	body := map[string]any{}
	if cfg.RequestBodyTemplate != "" {
		tpl := substitutePlaceholders(cfg.RequestBodyTemplate, ti)
		if err := json.Unmarshal([]byte(tpl), &body); err != nil {
			body = map[string]any{}
		}
	}
	for k, v := range bodyOverride {
		body[k] = v
	}

	method := strings.ToUpper(cfg.Method)
	if method == "" {
		if len(body) > 0 {
			method = http.MethodPost
		} else {
			method = http.MethodGet
		}
	}
	var reqBody io.Reader
	if method != http.MethodGet && len(body) > 0 {
		data, err := json.Marshal(body)
		if err != nil {
			return IntegrationOutcome{}, fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	callCtx, cancel := context.WithTimeout(ctx, e.Config.RestTimeout())
	defer cancel()
	req, err := http.NewRequestWithContext(callCtx, method, substitutePlaceholders(cfg.BaseURL+cfg.Endpoint, ti), reqBody)
	if err != nil {
		return e.blockWith(ctx, ti, 0, fmt.Sprintf("build request: %v", err), nil)
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, h := range cfg.Headers {
		req.Header.Set(h.Key, substitutePlaceholders(h.Value, ti))
	}
	applyAuth(req, cfg.Authentication)

	resp, err := e.httpClient().Do(req)
	if err != nil {
		return e.blockWith(ctx, ti, 0, err.Error(), nil)
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyLimit))
	var parsed any
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		parsed = string(respBody)
	}

	expected := cfg.ExpectedStatusCodes
	if len(expected) == 0 {
		expected = defaultExpectedStatusCodes
	}
	ok := false
	for _, code := range expected {
		if resp.StatusCode == code {
			ok = true
			break
		}
	}
	if !ok {
		return e.blockWith(ctx, ti, resp.StatusCode, fmt.Sprintf("unexpected status %d", resp.StatusCode), parsed)
	}

	ti, err = e.applyOutcome(ctx, ti, domain.StatusCompleted, map[string]any{
		"statusCode": resp.StatusCode,
		"response":   parsed,
	})
	if err != nil {
		return IntegrationOutcome{}, err
	}
	return IntegrationOutcome{Instance: ti, Success: true, StatusCode: resp.StatusCode, Response: parsed}, nil
}

func (e Engine) blockWith(ctx context.Context, ti domain.TaskInstance, statusCode int, callErr string, response any) (IntegrationOutcome, error) {
	result := map[string]any{"error": callErr}
	if statusCode != 0 {
		result["statusCode"] = statusCode
	}
	if response != nil {
		result["response"] = response
	}
	ti, err := e.applyOutcome(ctx, ti, domain.StatusBlocked, result)
	if err != nil {
		return IntegrationOutcome{}, err
	}
	return IntegrationOutcome{Instance: ti, Success: false, StatusCode: statusCode, Error: callErr, Response: response}, nil
}

// RedirectOutcome reports a started redirect or a status poll.
type RedirectOutcome struct {
	Instance    domain.TaskInstance `json:"instance"`
	RedirectURL string              `json:"redirect_url,omitempty"`
	PolledValue string              `json:"polled_value,omitempty"`
	Applied     bool                `json:"applied"`
}

// StartRedirect builds the task's redirect URL with instance placeholders
// substituted, marks the instance IN_PROGRESS and stores the URL.
func (e Engine) StartRedirect(ctx context.Context, instanceID string) (RedirectOutcome, error) {
	ti, err := e.Repo.GetInstance(ctx, instanceID)
	if err != nil {
		return RedirectOutcome{}, err
	}
	task, err := e.Repo.GetTask(ctx, ti.TaskID)
	if err != nil {
		return RedirectOutcome{}, err
	}
	if task.Type != domain.TaskTypeRedirect {
		return RedirectOutcome{}, StateConflictError{Reason: fmt.Sprintf("task %s is %s, not %s", task.ID, task.Type, domain.TaskTypeRedirect)}
	}
	task, err = e.effectiveTask(ctx, task)
	if err != nil {
		return RedirectOutcome{}, err
	}
	cfg, err := task.RedirectConfig()
	if err != nil {
		return RedirectOutcome{}, err
	}
	if cfg.RedirectURL == "" {
		return RedirectOutcome{}, ValidationError{Violations: []string{"task has no configured redirect URL"}}
	}

	target := substitutePlaceholders(cfg.RedirectURL, ti)
	if len(cfg.URLParameters) > 0 {
		q := url.Values{}
		for _, p := range cfg.URLParameters {
			q.Set(p.Key, substitutePlaceholders(p.Value, ti))
		}
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		target = target + sep + q.Encode()
	}

	now := e.nowStr()
	oldStatus := ti.Status
	ti.Status = domain.StatusInProgress
	if ti.StartedAt == nil {
		ti.StartedAt = &now
	}
	result := resultMap(ti.ResultJSON)
	result["redirectUrl"] = target
	raw, err := marshalResult(result)
	if err != nil {
		return RedirectOutcome{}, err
	}
	ti.ResultJSON = raw
	ti.UpdatedAt = now

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return RedirectOutcome{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateInstanceTx(ctx, tx, ti); err != nil {
		return RedirectOutcome{}, fmt.Errorf("update instance: %w", err)
	}
	if err := e.adjustProgressTx(ctx, tx, ti.AssignmentID, oldStatus, ti.Status, now); err != nil {
		return RedirectOutcome{}, fmt.Errorf("adjust progress: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return RedirectOutcome{}, err
	}
	return RedirectOutcome{Instance: ti, RedirectURL: target, Applied: true}, nil
}

// PollRedirectStatus makes one status-tracking call for a REDIRECT task,
// walks the configured dot-path into the response and applies the mapped
// internal status. An unmapped external value changes nothing; the polled
// value is still reported.
func (e Engine) PollRedirectStatus(ctx context.Context, instanceID string) (RedirectOutcome, error) {
	ti, err := e.Repo.GetInstance(ctx, instanceID)
	if err != nil {
		return RedirectOutcome{}, err
	}
	task, err := e.Repo.GetTask(ctx, ti.TaskID)
	if err != nil {
		return RedirectOutcome{}, err
	}
	if task.Type != domain.TaskTypeRedirect {
		return RedirectOutcome{}, StateConflictError{Reason: fmt.Sprintf("task %s is %s, not %s", task.ID, task.Type, domain.TaskTypeRedirect)}
	}
	task, err = e.effectiveTask(ctx, task)
	if err != nil {
		return RedirectOutcome{}, err
	}
	cfg, err := task.RedirectConfig()
	if err != nil {
		return RedirectOutcome{}, err
	}
	tracking := cfg.StatusTracking
	if !tracking.Enabled || tracking.PollingURL == "" {
		return RedirectOutcome{}, StateConflictError{Reason: "status tracking is not enabled for this task"}
	}

	method := strings.ToUpper(tracking.PollingMethod)
	if method == "" {
		method = http.MethodGet
	}
	callCtx, cancel := context.WithTimeout(ctx, e.Config.PollingTimeout())
	defer cancel()
	req, err := http.NewRequestWithContext(callCtx, method, substitutePlaceholders(tracking.PollingURL, ti), nil)
	if err != nil {
		out, err := e.blockWith(ctx, ti, 0, fmt.Sprintf("build poll request: %v", err), nil)
		return RedirectOutcome{Instance: out.Instance}, err
	}
	for _, h := range tracking.PollingHeaders {
		req.Header.Set(h.Key, substitutePlaceholders(h.Value, ti))
	}
	applyAuth(req, tracking.PollingAuth)

	resp, err := e.httpClient().Do(req)
	if err != nil {
		out, blockErr := e.blockWith(ctx, ti, 0, err.Error(), nil)
		return RedirectOutcome{Instance: out.Instance}, blockErr
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyLimit))
	var parsed any
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		out, blockErr := e.blockWith(ctx, ti, resp.StatusCode, "poll response is not JSON", string(respBody))
		return RedirectOutcome{Instance: out.Instance}, blockErr
	}

	polled, ok := walkPath(parsed, tracking.StatusFieldPath)
	if !ok {
		return RedirectOutcome{Instance: ti, Applied: false}, nil
	}
	polledStr := fmt.Sprint(polled)
	mapped := ""
	for _, m := range tracking.StatusMapping {
		if m.ExternalStatus == polledStr {
			mapped = m.TaskStatus
			break
		}
	}
	if mapped == "" || !validStatus(mapped) {
		return RedirectOutcome{Instance: ti, PolledValue: polledStr, Applied: false}, nil
	}

	result := resultMap(ti.ResultJSON)
	result["externalStatus"] = polledStr
	ti, err = e.applyOutcome(ctx, ti, mapped, result)
	if err != nil {
		return RedirectOutcome{}, err
	}
	return RedirectOutcome{Instance: ti, PolledValue: polledStr, Applied: true}, nil
}

// walkPath descends a dot-separated path into decoded JSON.
func walkPath(v any, path string) (any, bool) {
	if path == "" {
		return nil, false
	}
	cur := v
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}
