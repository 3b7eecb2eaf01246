package engine

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/reddykarthikeya-123/OnBoardingRite/internal/domain"
)

func marshalResult(v any) (*string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	s := string(data)
	return &s, nil
}

func resultMap(raw *string) map[string]any {
	if raw == nil || *raw == "" {
		return map[string]any{}
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(*raw), &m); err != nil || m == nil {
		return map[string]any{}
	}
	return m
}

func validStatus(s string) bool {
	switch s {
	case domain.StatusNotStarted, domain.StatusInProgress, domain.StatusCompleted, domain.StatusBlocked, domain.StatusWaived:
		return true
	}
	return false
}

// adjustProgressTx keeps the assignment's completed-task counter in step with
// an instance moving into or out of COMPLETED. Both updates are single
// statements so two concurrent transitions cannot double-count.
func (e Engine) adjustProgressTx(ctx context.Context, tx *sql.Tx, assignmentID, oldStatus, newStatus, now string) error {
	switch {
	case newStatus == domain.StatusCompleted && oldStatus != domain.StatusCompleted:
		return e.Repo.IncrementCompletedTx(ctx, tx, assignmentID, now)
	case oldStatus == domain.StatusCompleted && newStatus != domain.StatusCompleted:
		return e.Repo.DecrementCompletedTx(ctx, tx, assignmentID, now)
	}
	return nil
}

// Start moves NOT_STARTED to IN_PROGRESS. Re-starting an already-started
// instance is a no-op.
func (e Engine) Start(ctx context.Context, instanceID string) (domain.TaskInstance, error) {
	ti, err := e.Repo.GetInstance(ctx, instanceID)
	if err != nil {
		return domain.TaskInstance{}, err
	}
	if ti.Status != domain.StatusNotStarted {
		return ti, nil
	}
	now := e.nowStr()
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
	if err := tx.Commit(); err != nil {
		return domain.TaskInstance{}, err
	}
	return ti, nil
}

// SubmitForm validates a CUSTOM_FORM payload against the task's field
// descriptors and completes the instance. Every missing required field is
// reported, not just the first.
func (e Engine) SubmitForm(ctx context.Context, instanceID string, payload map[string]any) (domain.TaskInstance, error) {
	ti, err := e.Repo.GetInstance(ctx, instanceID)
	if err != nil {
		return domain.TaskInstance{}, err
	}
	task, err := e.Repo.GetTask(ctx, ti.TaskID)
	if err != nil {
		return domain.TaskInstance{}, err
	}
	if task.Type != domain.TaskTypeCustomForm {
		return domain.TaskInstance{}, StateConflictError{Reason: fmt.Sprintf("task %s is %s, not %s", task.ID, task.Type, domain.TaskTypeCustomForm)}
	}
	task, err = e.effectiveTask(ctx, task)
	if err != nil {
		return domain.TaskInstance{}, err
	}
	cfg, err := task.FormConfig()
	if err != nil {
		return domain.TaskInstance{}, err
	}
	var violations []string
	for _, f := range cfg.FormFields {
		if !f.Required {
			continue
		}
		v, ok := payload[f.Name]
		if !ok || v == nil || v == "" {
			label := f.Label
			if label == "" {
				label = f.Name
			}
			violations = append(violations, fmt.Sprintf("required field %q is missing", label))
		}
	}
	if len(violations) > 0 {
		return domain.TaskInstance{}, ValidationError{Violations: violations}
	}

	result, err := marshalResult(payload)
	if err != nil {
		return domain.TaskInstance{}, err
	}
	return e.complete(ctx, ti, result)
}

// CompleteUpload completes a DOCUMENT_UPLOAD instance once the listed
// documents are on record for it.
func (e Engine) CompleteUpload(ctx context.Context, instanceID string, documentIDs []string) (domain.TaskInstance, error) {
	ti, err := e.Repo.GetInstance(ctx, instanceID)
	if err != nil {
		return domain.TaskInstance{}, err
	}
	task, err := e.Repo.GetTask(ctx, ti.TaskID)
	if err != nil {
		return domain.TaskInstance{}, err
	}
	if task.Type != domain.TaskTypeDocumentUpload {
		return domain.TaskInstance{}, StateConflictError{Reason: fmt.Sprintf("task %s is %s, not %s", task.ID, task.Type, domain.TaskTypeDocumentUpload)}
	}
	if len(documentIDs) == 0 {
		return domain.TaskInstance{}, ValidationError{Violations: []string{"at least one document is required"}}
	}
	missing, err := e.Repo.MissingDocuments(ctx, instanceID, documentIDs)
	if err != nil {
		return domain.TaskInstance{}, err
	}
	if len(missing) > 0 {
		violations := make([]string, len(missing))
		for i, id := range missing {
			violations[i] = fmt.Sprintf("document %s is not attached to this task", id)
		}
		return domain.TaskInstance{}, ValidationError{Violations: violations}
	}
	result, err := marshalResult(map[string]any{"documents": documentIDs})
	if err != nil {
		return domain.TaskInstance{}, err
	}
	return e.complete(ctx, ti, result)
}

// complete applies the shared submit outcome: COMPLETED, fresh review cycle,
// cleared review metadata, progress bumped.
func (e Engine) complete(ctx context.Context, ti domain.TaskInstance, result *string) (domain.TaskInstance, error) {
	now := e.nowStr()
	oldStatus := ti.Status
	ti.Status = domain.StatusCompleted
	ti.ReviewStatus = domain.ReviewPending
	ti.ResultJSON = result
	ti.CompletedAt = &now
	if ti.StartedAt == nil {
		ti.StartedAt = &now
	}
	ti.AdminRemarks = nil
	ti.ReviewedBy = nil
	ti.ReviewedAt = nil
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

type WaiveOptions struct {
	InstanceID  string
	Reason      string
	WaivedBy    string
	WaivedUntil string
}

// Waive forces WAIVED from any prior state.
func (e Engine) Waive(ctx context.Context, opts WaiveOptions) (domain.TaskInstance, error) {
	if opts.Reason == "" {
		return domain.TaskInstance{}, ValidationError{Violations: []string{"waive reason is required"}}
	}
	ti, err := e.Repo.GetInstance(ctx, opts.InstanceID)
	if err != nil {
		return domain.TaskInstance{}, err
	}
	now := e.nowStr()
	oldStatus := ti.Status
	ti.Status = domain.StatusWaived
	ti.IsWaived = true
	ti.WaivedReason = &opts.Reason
	ti.WaivedAt = &now
	if opts.WaivedBy != "" {
		ti.WaivedBy = &opts.WaivedBy
	}
	if opts.WaivedUntil != "" {
		ti.WaivedUntil = &opts.WaivedUntil
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

func (e Engine) reviewable(ctx context.Context, instanceID string) (domain.TaskInstance, error) {
	ti, err := e.Repo.GetInstance(ctx, instanceID)
	if err != nil {
		return domain.TaskInstance{}, err
	}
	if ti.Status != domain.StatusCompleted {
		return domain.TaskInstance{}, StateConflictError{Reason: fmt.Sprintf("instance %s is %s; review requires %s", instanceID, ti.Status, domain.StatusCompleted)}
	}
	return ti, nil
}

// Approve marks a completed instance APPROVED and notifies the team member.
func (e Engine) Approve(ctx context.Context, instanceID, reviewerID string) (domain.TaskInstance, error) {
	ti, err := e.reviewable(ctx, instanceID)
	if err != nil {
		return domain.TaskInstance{}, err
	}
	assignment, err := e.Repo.GetAssignment(ctx, ti.AssignmentID)
	if err != nil {
		return domain.TaskInstance{}, err
	}
	task, err := e.Repo.GetTask(ctx, ti.TaskID)
	if err != nil {
		return domain.TaskInstance{}, err
	}
	content, err := e.EffectiveContent(ctx, task)
	if err != nil {
		return domain.TaskInstance{}, err
	}

	now := e.nowStr()
	ti.ReviewStatus = domain.ReviewApproved
	ti.AdminRemarks = nil
	ti.ReviewedBy = &reviewerID
	ti.ReviewedAt = &now
	ti.UpdatedAt = now

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.TaskInstance{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateInstanceTx(ctx, tx, ti); err != nil {
		return domain.TaskInstance{}, fmt.Errorf("update instance: %w", err)
	}
	msg := fmt.Sprintf("Your submission for %q was approved.", content.Name)
	if err := e.Notify.Append(ctx, tx, assignment.TeamMemberID, domain.NotifyTaskApproved, "Task approved", msg, ti.ID); err != nil {
		return domain.TaskInstance{}, fmt.Errorf("append notification: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return domain.TaskInstance{}, err
	}
	return ti, nil
}

// Reject sends a completed instance back for rework: documents are removed,
// the result is cleared, and the assignment's completed counter steps back.
func (e Engine) Reject(ctx context.Context, instanceID, reviewerID, remarks string) (domain.TaskInstance, error) {
	if remarks == "" {
		return domain.TaskInstance{}, ValidationError{Violations: []string{"rejection remarks are required"}}
	}
	ti, err := e.reviewable(ctx, instanceID)
	if err != nil {
		return domain.TaskInstance{}, err
	}
	assignment, err := e.Repo.GetAssignment(ctx, ti.AssignmentID)
	if err != nil {
		return domain.TaskInstance{}, err
	}
	task, err := e.Repo.GetTask(ctx, ti.TaskID)
	if err != nil {
		return domain.TaskInstance{}, err
	}
	content, err := e.EffectiveContent(ctx, task)
	if err != nil {
		return domain.TaskInstance{}, err
	}

	now := e.nowStr()
	ti.Status = domain.StatusInProgress
	ti.ReviewStatus = domain.ReviewRejected
	ti.ResultJSON = nil
	ti.CompletedAt = nil
	ti.AdminRemarks = &remarks
	ti.ReviewedBy = &reviewerID
	ti.ReviewedAt = &now
	ti.UpdatedAt = now

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.TaskInstance{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.DeleteDocumentsTx(ctx, tx, ti.ID); err != nil {
		return domain.TaskInstance{}, fmt.Errorf("delete documents: %w", err)
	}
	if err := e.Repo.UpdateInstanceTx(ctx, tx, ti); err != nil {
		return domain.TaskInstance{}, fmt.Errorf("update instance: %w", err)
	}
	if err := e.Repo.DecrementCompletedTx(ctx, tx, ti.AssignmentID, now); err != nil {
		return domain.TaskInstance{}, fmt.Errorf("adjust progress: %w", err)
	}
	msg := fmt.Sprintf("Your submission for %q was rejected: %s", content.Name, remarks)
	if err := e.Notify.Append(ctx, tx, assignment.TeamMemberID, domain.NotifyTaskRejected, "Task rejected", msg, ti.ID); err != nil {
		return domain.TaskInstance{}, fmt.Errorf("append notification: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return domain.TaskInstance{}, err
	}
	return ti, nil
}

type OverrideOptions struct {
	InstanceID  string
	Status      string
	ResultPatch map[string]any
}

// OverrideStatus is the administrative escape hatch: set any status directly,
// optionally shallow-merging a partial result into the existing one.
func (e Engine) OverrideStatus(ctx context.Context, opts OverrideOptions) (domain.TaskInstance, error) {
	if !validStatus(opts.Status) {
		return domain.TaskInstance{}, ValidationError{Violations: []string{fmt.Sprintf("unknown status %q", opts.Status)}}
	}
	ti, err := e.Repo.GetInstance(ctx, opts.InstanceID)
	if err != nil {
		return domain.TaskInstance{}, err
	}
	now := e.nowStr()
	oldStatus := ti.Status
	ti.Status = opts.Status
	switch opts.Status {
	case domain.StatusInProgress:
		if ti.StartedAt == nil {
			ti.StartedAt = &now
		}
	case domain.StatusCompleted:
		ti.CompletedAt = &now
		if ti.StartedAt == nil {
			ti.StartedAt = &now
		}
	}
	if len(opts.ResultPatch) > 0 {
		merged := resultMap(ti.ResultJSON)
		for k, v := range opts.ResultPatch {
			merged[k] = v
		}
		result, err := marshalResult(merged)
		if err != nil {
			return domain.TaskInstance{}, err
		}
		ti.ResultJSON = result
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
