package engine_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/reddykarthikeya-123/OnBoardingRite/internal/config"
	"github.com/reddykarthikeya-123/OnBoardingRite/internal/db"
	"github.com/reddykarthikeya-123/OnBoardingRite/internal/domain"
	"github.com/reddykarthikeya-123/OnBoardingRite/internal/eligibility"
	"github.com/reddykarthikeya-123/OnBoardingRite/internal/engine"
	"github.com/reddykarthikeya-123/OnBoardingRite/internal/migrate"
)

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	eng := engine.New(conn, config.Default("tenant-1"))
	eng.Now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }
	return testEnv{Engine: eng, Ctx: context.Background()}
}

type fixture struct {
	Member     domain.TeamMember
	Template   domain.ChecklistTemplate
	Group      domain.TaskGroup
	Task       domain.Task
	Project    domain.Project
	Assignment domain.ProjectAssignment
	Instance   domain.TaskInstance
}

// seedAssignment builds a one-task checklist of the given type and assigns it.
func seedAssignment(t *testing.T, env testEnv, taskType string, taskCfg any) fixture {
	t.Helper()
	var fx fixture
	var err error
	fx.Member, err = env.Engine.CreateTeamMember(env.Ctx, engine.MemberOptions{FirstName: "Ada", LastName: "Reyes", Email: "ada@example.com"})
	if err != nil {
		t.Fatalf("create member: %v", err)
	}
	fx.Template, err = env.Engine.CreateTemplate(env.Ctx, engine.TemplateOptions{Name: "Field Hire", IsActive: true})
	if err != nil {
		t.Fatalf("create template: %v", err)
	}
	fx.Group, err = env.Engine.CreateTaskGroup(env.Ctx, engine.TaskGroupOptions{TemplateID: fx.Template.ID, Name: "Forms"})
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	fx.Task, err = env.Engine.CreateTask(env.Ctx, engine.TaskOptions{
		TaskGroupID:   fx.Group.ID,
		Name:          "Intake",
		Type:          taskType,
		IsRequired:    true,
		Configuration: taskCfg,
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	fx.Project, err = env.Engine.CreateProject(env.Ctx, engine.ProjectOptions{Name: "Plant 7", TemplateID: fx.Template.ID})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	fx.Assignment, err = env.Engine.CreateAssignment(env.Ctx, engine.AssignmentOptions{ProjectID: fx.Project.ID, TeamMemberID: fx.Member.ID})
	if err != nil {
		t.Fatalf("create assignment: %v", err)
	}
	if fx.Assignment.TotalTasks != 1 {
		t.Fatalf("expected 1 task instance, got %d", fx.Assignment.TotalTasks)
	}
	instances, err := env.Engine.Repo.ListInstances(env.Ctx, fx.Assignment.ID, "")
	if err != nil || len(instances) != 1 {
		t.Fatalf("list instances: %v (%d)", err, len(instances))
	}
	fx.Instance = instances[0]
	return fx
}

var formCfg = domain.CustomFormConfig{
	FormFields: []domain.FormField{
		{Name: "ssn", Label: "Social Security Number", Required: true},
		{Name: "dob", Label: "Date of Birth", Required: true},
		{Name: "nickname", Required: false},
	},
}

func TestSubmitFormValidatesAllRequiredFields(t *testing.T) {
	env := newTestEnv(t)
	fx := seedAssignment(t, env, domain.TaskTypeCustomForm, formCfg)

	_, err := env.Engine.SubmitForm(env.Ctx, fx.Instance.ID, map[string]any{"nickname": "Al"})
	var ve engine.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(ve.Violations) != 2 {
		t.Fatalf("expected both missing fields reported, got %v", ve.Violations)
	}
	// a failed validation must not mutate state
	ti, err := env.Engine.Repo.GetInstance(env.Ctx, fx.Instance.ID)
	if err != nil || ti.Status != domain.StatusNotStarted {
		t.Fatalf("instance mutated on validation failure: %v %s", err, ti.Status)
	}
}

func TestSubmitFormCompletes(t *testing.T) {
	env := newTestEnv(t)
	fx := seedAssignment(t, env, domain.TaskTypeCustomForm, formCfg)

	ti, err := env.Engine.SubmitForm(env.Ctx, fx.Instance.ID, map[string]any{"ssn": "123", "dob": "1990-04-01"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if ti.Status != domain.StatusCompleted || ti.ReviewStatus != domain.ReviewPending {
		t.Fatalf("got status %s / review %s", ti.Status, ti.ReviewStatus)
	}
	if ti.CompletedAt == nil || ti.ResultJSON == nil {
		t.Fatalf("completedAt/result not set")
	}
	a, err := env.Engine.Repo.GetAssignment(env.Ctx, fx.Assignment.ID)
	if err != nil || a.CompletedTasks != 1 || a.ProgressPercentage != 100 {
		t.Fatalf("progress not updated: %v %d %v", err, a.CompletedTasks, a.ProgressPercentage)
	}
}

func TestRejectThenResubmit(t *testing.T) {
	env := newTestEnv(t)
	fx := seedAssignment(t, env, domain.TaskTypeCustomForm, formCfg)
	if _, err := env.Engine.SubmitForm(env.Ctx, fx.Instance.ID, map[string]any{"ssn": "123", "dob": "1990-04-01"}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	if _, err := env.Engine.Reject(env.Ctx, fx.Instance.ID, "admin-1", ""); err == nil {
		t.Fatalf("empty remarks should be rejected")
	}

	ti, err := env.Engine.Reject(env.Ctx, fx.Instance.ID, "admin-1", "SSN illegible")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if ti.Status != domain.StatusInProgress || ti.ReviewStatus != domain.ReviewRejected {
		t.Fatalf("got status %s / review %s", ti.Status, ti.ReviewStatus)
	}
	if ti.ResultJSON != nil || ti.CompletedAt != nil {
		t.Fatalf("result/completedAt not cleared")
	}
	a, _ := env.Engine.Repo.GetAssignment(env.Ctx, fx.Assignment.ID)
	if a.CompletedTasks != 0 || a.ProgressPercentage != 0 {
		t.Fatalf("counter not decremented: %d %v", a.CompletedTasks, a.ProgressPercentage)
	}
	notes, err := env.Engine.Repo.ListNotifications(env.Ctx, fx.Member.ID)
	if err != nil || len(notes) != 1 || notes[0].Type != domain.NotifyTaskRejected {
		t.Fatalf("expected one rejection notification, got %v %v", err, notes)
	}
	if !strings.Contains(notes[0].Message, "SSN illegible") {
		t.Fatalf("notification should carry remarks: %q", notes[0].Message)
	}

	// rejecting again must fail: the instance is no longer COMPLETED
	if _, err := env.Engine.Reject(env.Ctx, fx.Instance.ID, "admin-1", "again"); err == nil {
		t.Fatalf("double reject should conflict")
	}

	// resubmission clears the review trail
	ti, err = env.Engine.SubmitForm(env.Ctx, fx.Instance.ID, map[string]any{"ssn": "999", "dob": "1990-04-01"})
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if ti.ReviewStatus != domain.ReviewPending || ti.AdminRemarks != nil {
		t.Fatalf("review trail not reset: %s %v", ti.ReviewStatus, ti.AdminRemarks)
	}
	a, _ = env.Engine.Repo.GetAssignment(env.Ctx, fx.Assignment.ID)
	if a.CompletedTasks != 1 {
		t.Fatalf("counter not restored: %d", a.CompletedTasks)
	}
}

func TestApproveRequiresCompleted(t *testing.T) {
	env := newTestEnv(t)
	fx := seedAssignment(t, env, domain.TaskTypeCustomForm, formCfg)

	_, err := env.Engine.Approve(env.Ctx, fx.Instance.ID, "admin-1")
	var sc engine.StateConflictError
	if !errors.As(err, &sc) {
		t.Fatalf("expected state conflict, got %v", err)
	}

	if _, err := env.Engine.SubmitForm(env.Ctx, fx.Instance.ID, map[string]any{"ssn": "1", "dob": "2"}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	ti, err := env.Engine.Approve(env.Ctx, fx.Instance.ID, "admin-1")
	if err != nil || ti.ReviewStatus != domain.ReviewApproved {
		t.Fatalf("approve: %v %s", err, ti.ReviewStatus)
	}
	notes, _ := env.Engine.Repo.ListNotifications(env.Ctx, fx.Member.ID)
	if len(notes) != 1 || notes[0].Type != domain.NotifyTaskApproved {
		t.Fatalf("expected approval notification, got %v", notes)
	}
}

func TestWaiveFromAnyState(t *testing.T) {
	env := newTestEnv(t)
	fx := seedAssignment(t, env, domain.TaskTypeCustomForm, formCfg)
	if _, err := env.Engine.SubmitForm(env.Ctx, fx.Instance.ID, map[string]any{"ssn": "1", "dob": "2"}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	ti, err := env.Engine.Waive(env.Ctx, engine.WaiveOptions{InstanceID: fx.Instance.ID, Reason: "already on file", WaivedBy: "admin-1"})
	if err != nil {
		t.Fatalf("waive: %v", err)
	}
	if ti.Status != domain.StatusWaived || !ti.IsWaived || ti.WaivedReason == nil {
		t.Fatalf("waive not recorded: %+v", ti)
	}
}

func TestOverrideStatusMergesResult(t *testing.T) {
	env := newTestEnv(t)
	fx := seedAssignment(t, env, domain.TaskTypeCustomForm, formCfg)
	if _, err := env.Engine.SubmitForm(env.Ctx, fx.Instance.ID, map[string]any{"ssn": "1", "dob": "2"}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	ti, err := env.Engine.OverrideStatus(env.Ctx, engine.OverrideOptions{
		InstanceID:  fx.Instance.ID,
		Status:      domain.StatusBlocked,
		ResultPatch: map[string]any{"note": "vendor outage"},
	})
	if err != nil || ti.Status != domain.StatusBlocked {
		t.Fatalf("override: %v %s", err, ti.Status)
	}
	if ti.ResultJSON == nil || !strings.Contains(*ti.ResultJSON, "vendor outage") || !strings.Contains(*ti.ResultJSON, "ssn") {
		t.Fatalf("result patch should merge, not replace: %v", ti.ResultJSON)
	}
	// leaving COMPLETED steps the counter back
	a, _ := env.Engine.Repo.GetAssignment(env.Ctx, fx.Assignment.ID)
	if a.CompletedTasks != 0 {
		t.Fatalf("counter not adjusted on override: %d", a.CompletedTasks)
	}
}

func TestEffectiveContentPropagation(t *testing.T) {
	env := newTestEnv(t)
	lib, err := env.Engine.CreateTask(env.Ctx, engine.TaskOptions{Name: "Safety briefing", Type: domain.TaskTypeCustomForm, Configuration: formCfg})
	if err != nil {
		t.Fatalf("create library task: %v", err)
	}
	tpl, _ := env.Engine.CreateTemplate(env.Ctx, engine.TemplateOptions{Name: "T", IsActive: true})
	grp, _ := env.Engine.CreateTaskGroup(env.Ctx, engine.TaskGroupOptions{TemplateID: tpl.ID, Name: "G"})
	deployed, err := env.Engine.DeployTask(env.Ctx, lib.ID, grp.ID, 0)
	if err != nil {
		t.Fatalf("deploy: %v", err)
	}

	if _, err := env.Engine.UpdateTask(env.Ctx, engine.TaskOptions{ID: lib.ID, Name: "Safety briefing v2"}); err != nil {
		t.Fatalf("update library: %v", err)
	}
	deployedRow, _ := env.Engine.Repo.GetTask(env.Ctx, deployed.ID)
	content, err := env.Engine.EffectiveContent(env.Ctx, deployedRow)
	if err != nil || content.Name != "Safety briefing v2" {
		t.Fatalf("library edit did not propagate: %v %q", err, content.Name)
	}
	if deployedRow.Name != "Safety briefing" {
		t.Fatalf("deployed row must not be rewritten")
	}

	// deleting the source falls back to the copy's own fields
	if err := env.Engine.Repo.DeleteTask(env.Ctx, lib.ID); err != nil {
		t.Fatalf("delete library: %v", err)
	}
	deployedRow, _ = env.Engine.Repo.GetTask(env.Ctx, deployed.ID)
	content, err = env.Engine.EffectiveContent(env.Ctx, deployedRow)
	if err != nil || content.Name != "Safety briefing" {
		t.Fatalf("fallback to own fields failed: %v %q", err, content.Name)
	}
}

func TestAssignmentFiltersByEligibility(t *testing.T) {
	env := newTestEnv(t)
	crit, err := env.Engine.CreateCriteria(env.Ctx, engine.CriteriaOptions{
		Name: "electricians only", RootGroupLogic: "AND", IsActive: true,
		Rules: &eligibility.Node{
			ID: "root", Type: eligibility.NodeGroup, Logic: "AND",
			Rules: []*eligibility.Node{
				{Type: eligibility.NodeFieldRule, FieldID: "job.trade", Operator: "equals", Value: "electrician"},
			},
		},
	})
	if err != nil {
		t.Fatalf("create criteria: %v", err)
	}

	member, _ := env.Engine.CreateTeamMember(env.Ctx, engine.MemberOptions{FirstName: "A", LastName: "B", Email: "a@b.c"})
	tpl, _ := env.Engine.CreateTemplate(env.Ctx, engine.TemplateOptions{Name: "T", IsActive: true})
	gated, _ := env.Engine.CreateTaskGroup(env.Ctx, engine.TaskGroupOptions{TemplateID: tpl.ID, Name: "Trade forms", EligibilityCriteriaID: crit.ID})
	open, _ := env.Engine.CreateTaskGroup(env.Ctx, engine.TaskGroupOptions{TemplateID: tpl.ID, Name: "Everyone"})
	if _, err := env.Engine.CreateTask(env.Ctx, engine.TaskOptions{TaskGroupID: gated.ID, Name: "Electrical cert", Type: domain.TaskTypeDocumentUpload}); err != nil {
		t.Fatalf("create gated task: %v", err)
	}
	if _, err := env.Engine.CreateTask(env.Ctx, engine.TaskOptions{TaskGroupID: open.ID, Name: "W-4", Type: domain.TaskTypeCustomForm, Configuration: formCfg}); err != nil {
		t.Fatalf("create open task: %v", err)
	}
	project, _ := env.Engine.CreateProject(env.Ctx, engine.ProjectOptions{Name: "P", TemplateID: tpl.ID})

	plumber, err := env.Engine.CreateAssignment(env.Ctx, engine.AssignmentOptions{ProjectID: project.ID, TeamMemberID: member.ID, Trade: "plumber"})
	if err != nil || plumber.TotalTasks != 1 {
		t.Fatalf("plumber should get 1 task: %v %d", err, plumber.TotalTasks)
	}
	electrician, err := env.Engine.CreateAssignment(env.Ctx, engine.AssignmentOptions{ProjectID: project.ID, TeamMemberID: member.ID, Trade: "electrician"})
	if err != nil || electrician.TotalTasks != 2 {
		t.Fatalf("electrician should get 2 tasks: %v %d", err, electrician.TotalTasks)
	}
}

func TestRuleTreeRoundTripThroughStore(t *testing.T) {
	env := newTestEnv(t)
	tree := &eligibility.Node{
		ID: "root", Type: eligibility.NodeGroup, Logic: "OR",
		Rules: []*eligibility.Node{
			{Type: eligibility.NodeFieldRule, FieldID: "personal.state", Operator: "in", Value: []any{"CA", "OR"}},
			{
				Type: eligibility.NodeGroup, Logic: "AND",
				Rules: []*eligibility.Node{
					{Type: eligibility.NodeFieldRule, FieldID: "job.union_status", Operator: "equals", Value: "member"},
					{Type: eligibility.NodeSQLRule, Name: "roster check", Description: "live roster", SQLQuery: "SELECT 1"},
				},
			},
		},
	}
	crit, err := env.Engine.CreateCriteria(env.Ctx, engine.CriteriaOptions{Name: "west coast", RootGroupLogic: "OR", IsActive: true, Rules: tree})
	if err != nil {
		t.Fatalf("create criteria: %v", err)
	}
	_, got, err := env.Engine.GetRuleTree(env.Ctx, crit.ID)
	if err != nil {
		t.Fatalf("get tree: %v", err)
	}
	if got.Logic != "OR" || len(got.Rules) != 2 {
		t.Fatalf("root mismatch: %+v", got)
	}
	if got.Rules[0].Operator != "in" {
		t.Fatalf("sibling order lost: %+v", got.Rules[0])
	}
	list, ok := got.Rules[0].Value.([]any)
	if !ok || len(list) != 2 {
		t.Fatalf("list value lost: %#v", got.Rules[0].Value)
	}
	nested := got.Rules[1]
	if nested.Type != eligibility.NodeGroup || len(nested.Rules) != 2 || nested.Rules[1].SQLQuery != "SELECT 1" {
		t.Fatalf("nested group lost: %+v", nested)
	}

	// replacing and re-reading stays stable
	if err := env.Engine.SaveRuleTree(env.Ctx, crit.ID, got); err != nil {
		t.Fatalf("save tree: %v", err)
	}
	_, again, err := env.Engine.GetRuleTree(env.Ctx, crit.ID)
	if err != nil || len(again.Rules) != 2 {
		t.Fatalf("second round trip: %v %+v", err, again)
	}
}

func TestExecuteRestAPI(t *testing.T) {
	env := newTestEnv(t)
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"ticket":"T-77"}`))
	}))
	defer srv.Close()

	cfg := domain.RestAPIConfig{
		BaseURL:             srv.URL,
		Endpoint:            "/enroll",
		Method:              "POST",
		RequestBodyTemplate: `{"instance":"{{taskInstanceId}}"}`,
		Authentication:      domain.AuthConfig{Type: "BEARER", Token: "tok"},
		ExpectedStatusCodes: []int{201},
	}
	fx := seedAssignment(t, env, domain.TaskTypeRestAPI, cfg)

	out, err := env.Engine.ExecuteRestAPI(env.Ctx, fx.Instance.ID, map[string]any{"extra": true})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !out.Success || out.StatusCode != 201 || out.Instance.Status != domain.StatusCompleted {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if gotAuth != "Bearer tok" {
		t.Fatalf("bearer auth not applied: %q", gotAuth)
	}
	if out.Instance.ResultJSON == nil || !strings.Contains(*out.Instance.ResultJSON, "T-77") {
		t.Fatalf("response not captured: %v", out.Instance.ResultJSON)
	}
}

func TestExecuteRestAPIFailureBlocks(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	cfg := domain.RestAPIConfig{BaseURL: srv.URL, Method: "POST", RequestBodyTemplate: `{"a":1}`}
	fx := seedAssignment(t, env, domain.TaskTypeRestAPI, cfg)

	out, err := env.Engine.ExecuteRestAPI(env.Ctx, fx.Instance.ID, nil)
	if err != nil {
		t.Fatalf("a failed call must not surface as an error: %v", err)
	}
	if out.Success || out.Instance.Status != domain.StatusBlocked {
		t.Fatalf("expected BLOCKED, got %+v", out)
	}
	if out.Instance.ResultJSON == nil || !strings.Contains(*out.Instance.ResultJSON, "error") {
		t.Fatalf("error not captured in result: %v", out.Instance.ResultJSON)
	}
}

func TestExecuteRestAPIConnectionErrorBlocks(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listening

	cfg := domain.RestAPIConfig{BaseURL: srv.URL}
	fx := seedAssignment(t, env, domain.TaskTypeRestAPI, cfg)

	out, err := env.Engine.ExecuteRestAPI(env.Ctx, fx.Instance.ID, nil)
	if err != nil {
		t.Fatalf("connection failure must not surface as an error: %v", err)
	}
	if out.Success || out.Instance.Status != domain.StatusBlocked || out.Error == "" {
		t.Fatalf("expected BLOCKED with error detail, got %+v", out)
	}
}

func TestRedirectStartAndPoll(t *testing.T) {
	env := newTestEnv(t)
	external := "pending"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"status":"` + external + `"}}`))
	}))
	defer srv.Close()

	cfg := domain.RedirectConfig{
		RedirectURL:   "https://vendor.example/start",
		URLParameters: []domain.HeaderPair{{Key: "ref", Value: "{{taskInstanceId}}"}},
		StatusTracking: domain.StatusTracking{
			Enabled:         true,
			PollingURL:      srv.URL + "/status",
			StatusFieldPath: "data.status",
			StatusMapping: []domain.StatusMapping{
				{ExternalStatus: "finished", TaskStatus: domain.StatusCompleted},
			},
		},
	}
	fx := seedAssignment(t, env, domain.TaskTypeRedirect, cfg)

	started, err := env.Engine.StartRedirect(env.Ctx, fx.Instance.ID)
	if err != nil {
		t.Fatalf("start redirect: %v", err)
	}
	if started.Instance.Status != domain.StatusInProgress {
		t.Fatalf("expected IN_PROGRESS, got %s", started.Instance.Status)
	}
	if !strings.Contains(started.RedirectURL, "ref="+fx.Instance.ID) {
		t.Fatalf("placeholder not substituted: %q", started.RedirectURL)
	}

	// unmapped external value: observable, but no state change
	polled, err := env.Engine.PollRedirectStatus(env.Ctx, fx.Instance.ID)
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if polled.Applied || polled.PolledValue != "pending" {
		t.Fatalf("unmapped poll should not apply: %+v", polled)
	}
	ti, _ := env.Engine.Repo.GetInstance(env.Ctx, fx.Instance.ID)
	if ti.Status != domain.StatusInProgress {
		t.Fatalf("status must be unchanged, got %s", ti.Status)
	}

	external = "finished"
	polled, err = env.Engine.PollRedirectStatus(env.Ctx, fx.Instance.ID)
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if !polled.Applied || polled.Instance.Status != domain.StatusCompleted || polled.Instance.CompletedAt == nil {
		t.Fatalf("mapped poll should complete: %+v", polled)
	}
	a, _ := env.Engine.Repo.GetAssignment(env.Ctx, fx.Assignment.ID)
	if a.CompletedTasks != 1 {
		t.Fatalf("completion via poll should bump progress: %d", a.CompletedTasks)
	}
}

func TestCompleteUploadRequiresAttachedDocuments(t *testing.T) {
	env := newTestEnv(t)
	fx := seedAssignment(t, env, domain.TaskTypeDocumentUpload, domain.DocumentUploadConfig{AllowedMimeTypes: []string{"application/pdf"}})

	if _, err := env.Engine.CompleteUpload(env.Ctx, fx.Instance.ID, []string{"doc-x"}); err == nil {
		t.Fatalf("unknown document should fail validation")
	}

	doc, err := env.Engine.AttachDocument(env.Ctx, engine.DocumentOptions{
		InstanceID: fx.Instance.ID,
		Filename:   "cert.pdf",
		MimeType:   "application/pdf",
		Data:       []byte("%PDF-1.4"),
		UploadedBy: fx.Member.ID,
	})
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	if _, err := env.Engine.AttachDocument(env.Ctx, engine.DocumentOptions{
		InstanceID: fx.Instance.ID, Filename: "x.exe", MimeType: "application/octet-stream", Data: []byte("MZ"),
	}); err == nil {
		t.Fatalf("disallowed mime type should fail")
	}

	ti, err := env.Engine.CompleteUpload(env.Ctx, fx.Instance.ID, []string{doc.ID})
	if err != nil || ti.Status != domain.StatusCompleted || ti.ReviewStatus != domain.ReviewPending {
		t.Fatalf("complete upload: %v %+v", err, ti)
	}

	// rejection wipes the uploads
	if _, err := env.Engine.Reject(env.Ctx, fx.Instance.ID, "admin-1", "wrong document"); err != nil {
		t.Fatalf("reject: %v", err)
	}
	docs, err := env.Engine.Repo.ListDocuments(env.Ctx, fx.Instance.ID)
	if err != nil || len(docs) != 0 {
		t.Fatalf("documents should be deleted on reject: %v %d", err, len(docs))
	}
}
