package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"

	"github.com/reddykarthikeya-123/OnBoardingRite/internal/config"
	"github.com/reddykarthikeya-123/OnBoardingRite/internal/db"
	"github.com/reddykarthikeya-123/OnBoardingRite/internal/engine"
	"github.com/reddykarthikeya-123/OnBoardingRite/internal/migrate"
)

type testServer struct {
	URL    string
	Engine engine.Engine
	client *http.Client
	close  func()
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	workspace := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	e := engine.New(conn, config.Default("tenant-1"))
	handler, err := New(Config{Engine: e, BasePath: "/v1", Auth: AuthConfig{AllowActorHeader: true}})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	ts := &testServer{
		URL:    "http://" + ln.Addr().String(),
		Engine: e,
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	t.Cleanup(ts.close)
	return ts
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Actor-Id", "admin-1")
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	data, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, data
}

func decode(t *testing.T, data []byte, out any) {
	t.Helper()
	if err := json.Unmarshal(data, out); err != nil {
		t.Fatalf("decode %s: %v", string(data), err)
	}
}

func TestHealthSkipsAuth(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/v1/health")
	if err != nil {
		t.Fatalf("get health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health status %d", resp.StatusCode)
	}
}

func TestUnauthenticatedRejected(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/v1/criteria/x")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestCriteriaRoundTripOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	resp, body := doJSON(t, ts.client, http.MethodPost, ts.URL+"/v1/criteria", map[string]any{
		"name":             "west coast electricians",
		"root_group_logic": "AND",
		"rules": map[string]any{
			"id": "root", "type": "GROUP", "logic": "AND",
			"rules": []map[string]any{
				{"type": "FIELD_RULE", "fieldId": "personal.state", "operator": "in", "value": []string{"CA", "OR"}},
				{"type": "FIELD_RULE", "fieldId": "job.trade", "operator": "equals", "value": "electrician"},
			},
		},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create criteria: %d %s", resp.StatusCode, body)
	}
	var created struct {
		ID        string `json:"id"`
		RuleCount int    `json:"rule_count"`
		Rules     struct {
			Logic string `json:"logic"`
			Rules []struct {
				FieldID  string `json:"fieldId"`
				Operator string `json:"operator"`
			} `json:"rules"`
		} `json:"rules"`
	}
	decode(t, body, &created)
	if created.RuleCount != 2 || len(created.Rules.Rules) != 2 {
		t.Fatalf("rule tree not round-tripped: %s", body)
	}
	if created.Rules.Rules[0].Operator != "in" {
		t.Fatalf("sibling order lost: %s", body)
	}

	// evaluation through the API
	resp, body = doJSON(t, ts.client, http.MethodPost, ts.URL+"/v1/criteria/"+created.ID+"/evaluate", map[string]any{
		"attributes": map[string]any{"personal.state": "CA", "job.trade": "electrician"},
	})
	var eval struct {
		Eligible bool `json:"eligible"`
	}
	decode(t, body, &eval)
	if resp.StatusCode != http.StatusOK || !eval.Eligible {
		t.Fatalf("expected eligible: %d %s", resp.StatusCode, body)
	}
	resp, body = doJSON(t, ts.client, http.MethodPost, ts.URL+"/v1/criteria/"+created.ID+"/evaluate", map[string]any{
		"attributes": map[string]any{"personal.state": "TX", "job.trade": "electrician"},
	})
	decode(t, body, &eval)
	if eval.Eligible {
		t.Fatalf("expected not eligible: %s", body)
	}
}

func TestLifecycleOverHTTP(t *testing.T) {
	ts := newTestServer(t)

	var member, template, group, task, project struct {
		ID string `json:"id"`
	}
	_, body := doJSON(t, ts.client, http.MethodPost, ts.URL+"/v1/members", map[string]any{
		"first_name": "Ada", "last_name": "Reyes", "email": "ada@example.com",
	})
	decode(t, body, &member)
	_, body = doJSON(t, ts.client, http.MethodPost, ts.URL+"/v1/templates", map[string]any{"name": "Field Hire"})
	decode(t, body, &template)
	_, body = doJSON(t, ts.client, http.MethodPost, ts.URL+"/v1/templates/"+template.ID+"/groups", map[string]any{"name": "Forms"})
	decode(t, body, &group)
	_, body = doJSON(t, ts.client, http.MethodPost, ts.URL+"/v1/tasks", map[string]any{
		"task_group_id": group.ID,
		"name":          "Intake",
		"type":          "CUSTOM_FORM",
		"is_required":   true,
		"configuration": map[string]any{
			"formFields": []map[string]any{
				{"name": "ssn", "label": "SSN", "required": true},
			},
		},
	})
	decode(t, body, &task)
	_, body = doJSON(t, ts.client, http.MethodPost, ts.URL+"/v1/projects", map[string]any{
		"name": "Plant 7", "template_id": template.ID,
	})
	decode(t, body, &project)
	resp, body := doJSON(t, ts.client, http.MethodPost, ts.URL+"/v1/assignments", map[string]any{
		"project_id": project.ID, "team_member_id": member.ID,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create assignment: %d %s", resp.StatusCode, body)
	}
	var a struct {
		ID         string `json:"id"`
		TotalTasks int    `json:"total_tasks"`
	}
	decode(t, body, &a)
	if a.TotalTasks != 1 {
		t.Fatalf("expected one instance: %s", body)
	}

	_, body = doJSON(t, ts.client, http.MethodGet, ts.URL+"/v1/assignments/"+a.ID+"/checklist", nil)
	var checklist []struct {
		Instance struct {
			ID string `json:"id"`
		} `json:"instance"`
		Name string `json:"name"`
	}
	decode(t, body, &checklist)
	if len(checklist) != 1 || checklist[0].Name != "Intake" {
		t.Fatalf("checklist: %s", body)
	}
	instanceID := checklist[0].Instance.ID

	// every missing field reported, nothing mutated
	resp, body = doJSON(t, ts.client, http.MethodPost, ts.URL+"/v1/instances/"+instanceID+"/submit", map[string]any{
		"data": map[string]any{},
	})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d %s", resp.StatusCode, body)
	}
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Details struct {
				Violations []string `json:"violations"`
			} `json:"details"`
		} `json:"error"`
	}
	decode(t, body, &envelope)
	if envelope.Error.Code != "validation_failed" || len(envelope.Error.Details.Violations) != 1 {
		t.Fatalf("error envelope: %s", body)
	}

	resp, body = doJSON(t, ts.client, http.MethodPost, ts.URL+"/v1/instances/"+instanceID+"/submit", map[string]any{
		"data": map[string]any{"ssn": "123-00-4567"},
	})
	var instance struct {
		Status       string `json:"status"`
		ReviewStatus string `json:"review_status"`
	}
	decode(t, body, &instance)
	if resp.StatusCode != http.StatusOK || instance.Status != "COMPLETED" || instance.ReviewStatus != "PENDING_REVIEW" {
		t.Fatalf("submit: %d %s", resp.StatusCode, body)
	}

	// reject before approve requires remarks
	resp, body = doJSON(t, ts.client, http.MethodPost, ts.URL+"/v1/instances/"+instanceID+"/reject", map[string]any{"remarks": ""})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("empty remarks should 422: %d %s", resp.StatusCode, body)
	}
	resp, body = doJSON(t, ts.client, http.MethodPost, ts.URL+"/v1/instances/"+instanceID+"/reject", map[string]any{"remarks": "typo in SSN"})
	decode(t, body, &instance)
	if resp.StatusCode != http.StatusOK || instance.Status != "IN_PROGRESS" || instance.ReviewStatus != "REJECTED" {
		t.Fatalf("reject: %d %s", resp.StatusCode, body)
	}

	_, body = doJSON(t, ts.client, http.MethodGet, ts.URL+"/v1/members/"+member.ID+"/notifications", nil)
	var notes []struct {
		ID     int64  `json:"id"`
		Type   string `json:"type"`
		IsRead bool   `json:"is_read"`
	}
	decode(t, body, &notes)
	if len(notes) != 1 || notes[0].Type != "TASK_REJECTED" || notes[0].IsRead {
		t.Fatalf("notifications: %s", body)
	}

	resp, body = doJSON(t, ts.client, http.MethodPost, ts.URL+fmt.Sprintf("/v1/notifications/%d/read", notes[0].ID), nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("mark read: %d %s", resp.StatusCode, body)
	}
	_, body = doJSON(t, ts.client, http.MethodGet, ts.URL+"/v1/members/"+member.ID+"/notifications", nil)
	decode(t, body, &notes)
	if len(notes) != 1 || !notes[0].IsRead {
		t.Fatalf("notification still unread: %s", body)
	}

	// approving a non-completed instance conflicts
	resp, body = doJSON(t, ts.client, http.MethodPost, ts.URL+"/v1/instances/"+instanceID+"/approve", nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d %s", resp.StatusCode, body)
	}
}

func TestUnknownInstanceIs404(t *testing.T) {
	ts := newTestServer(t)
	resp, body := doJSON(t, ts.client, http.MethodGet, ts.URL+"/v1/instances/nope", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d %s", resp.StatusCode, body)
	}
}

func TestCriteriaUpdateOverHTTP(t *testing.T) {
	ts := newTestServer(t)

	// editor trees carry no ids; the store assigns them on save
	resp, body := doJSON(t, ts.client, http.MethodPost, ts.URL+"/v1/criteria", map[string]any{
		"name":             "union hires",
		"root_group_logic": "AND",
		"rules": map[string]any{
			"type": "GROUP", "logic": "AND",
			"rules": []map[string]any{
				{"type": "FIELD_RULE", "fieldId": "job.union", "operator": "equals", "value": "yes"},
			},
		},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create criteria without node ids: %d %s", resp.StatusCode, body)
	}
	var created struct {
		ID string `json:"id"`
	}
	decode(t, body, &created)

	resp, body = doJSON(t, ts.client, http.MethodPut, ts.URL+"/v1/criteria/"+created.ID, map[string]any{
		"name":             "union hires west",
		"root_group_logic": "OR",
		"rules": map[string]any{
			"type": "GROUP", "logic": "OR",
			"rules": []map[string]any{
				{"type": "FIELD_RULE", "fieldId": "job.union", "operator": "equals", "value": "yes"},
				{"type": "FIELD_RULE", "fieldId": "personal.state", "operator": "in", "value": []string{"CA", "WA"}},
			},
		},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update criteria: %d %s", resp.StatusCode, body)
	}
	var updated struct {
		ID        string `json:"id"`
		Name      string `json:"name"`
		RuleCount int    `json:"rule_count"`
	}
	decode(t, body, &updated)
	if updated.ID != created.ID || updated.Name != "union hires west" || updated.RuleCount != 2 {
		t.Fatalf("update not applied: %s", body)
	}
}
