package repo

import (
	"context"
	"database/sql"

	"github.com/reddykarthikeya-123/OnBoardingRite/internal/domain"
)

// --- team members and projects ---

func (r Repo) InsertTeamMember(ctx context.Context, m domain.TeamMember) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO team_members(id,employee_id,first_name,last_name,email,created_at) VALUES (?,?,?,?,?,?)`,
		m.ID, nullable(m.EmployeeID), m.FirstName, m.LastName, m.Email, m.CreatedAt)
	return err
}

func (r Repo) GetTeamMember(ctx context.Context, id string) (domain.TeamMember, error) {
	var m domain.TeamMember
	var empID sql.NullString
	err := r.DB.QueryRowContext(ctx, `SELECT id,employee_id,first_name,last_name,email,created_at FROM team_members WHERE id=?`, id).
		Scan(&m.ID, &empID, &m.FirstName, &m.LastName, &m.Email, &m.CreatedAt)
	if err == sql.ErrNoRows {
		return m, ErrNotFound
	}
	if empID.Valid {
		m.EmployeeID = empID.String
	}
	return m, err
}

func (r Repo) InsertProject(ctx context.Context, p domain.Project) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO projects(id,name,status,template_id,created_at) VALUES (?,?,?,?,?)`,
		p.ID, p.Name, p.Status, nullableStringPtr(p.TemplateID), p.CreatedAt)
	return err
}

func (r Repo) GetProject(ctx context.Context, id string) (domain.Project, error) {
	var p domain.Project
	var templateID sql.NullString
	err := r.DB.QueryRowContext(ctx, `SELECT id,name,status,template_id,created_at FROM projects WHERE id=?`, id).
		Scan(&p.ID, &p.Name, &p.Status, &templateID, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	if templateID.Valid {
		p.TemplateID = &templateID.String
	}
	return p, err
}

// --- project assignments ---

func (r Repo) InsertAssignmentTx(ctx context.Context, tx *sql.Tx, a domain.ProjectAssignment) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO project_assignments(id,project_id,team_member_id,status,category,trade,total_tasks,completed_tasks,progress_percentage,assigned_at,updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		a.ID, a.ProjectID, a.TeamMemberID, a.Status, nullable(a.Category), nullable(a.Trade),
		a.TotalTasks, a.CompletedTasks, a.ProgressPercentage, a.AssignedAt, a.UpdatedAt)
	return err
}

func (r Repo) GetAssignment(ctx context.Context, id string) (domain.ProjectAssignment, error) {
	var a domain.ProjectAssignment
	var category, trade sql.NullString
	err := r.DB.QueryRowContext(ctx, `SELECT id,project_id,team_member_id,status,category,trade,total_tasks,completed_tasks,progress_percentage,assigned_at,updated_at
FROM project_assignments WHERE id=?`, id).
		Scan(&a.ID, &a.ProjectID, &a.TeamMemberID, &a.Status, &category, &trade, &a.TotalTasks, &a.CompletedTasks, &a.ProgressPercentage, &a.AssignedAt, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return a, ErrNotFound
	}
	if category.Valid {
		a.Category = category.String
	}
	if trade.Valid {
		a.Trade = trade.String
	}
	return a, err
}

// IncrementCompletedTx bumps the completed-task counter capped at total_tasks
// and recomputes the percentage in the same statement, so concurrent updates
// cannot interleave a stale read-modify-write.
func (r Repo) IncrementCompletedTx(ctx context.Context, tx *sql.Tx, assignmentID, updatedAt string) error {
	_, err := tx.ExecContext(ctx, `UPDATE project_assignments SET
completed_tasks = MIN(completed_tasks + 1, total_tasks),
progress_percentage = CASE WHEN total_tasks > 0 THEN ROUND(MIN(completed_tasks + 1, total_tasks) * 100.0 / total_tasks, 2) ELSE 0 END,
updated_at = ?
WHERE id=?`, updatedAt, assignmentID)
	return err
}

// DecrementCompletedTx floors the counter at zero.
func (r Repo) DecrementCompletedTx(ctx context.Context, tx *sql.Tx, assignmentID, updatedAt string) error {
	_, err := tx.ExecContext(ctx, `UPDATE project_assignments SET
completed_tasks = MAX(completed_tasks - 1, 0),
progress_percentage = CASE WHEN total_tasks > 0 THEN ROUND(MAX(completed_tasks - 1, 0) * 100.0 / total_tasks, 2) ELSE 0 END,
updated_at = ?
WHERE id=?`, updatedAt, assignmentID)
	return err
}

// --- task instances ---

const instanceColumns = `id,task_id,assignment_id,status,review_status,result_json,started_at,completed_at,due_date,is_waived,waived_reason,waived_by,waived_at,waived_until,admin_remarks,reviewed_by,reviewed_at,created_at,updated_at`

func scanInstance(scan func(dest ...any) error) (domain.TaskInstance, error) {
	var ti domain.TaskInstance
	var review, result, started, completed, due, waivedReason, waivedBy, waivedAt, waivedUntil, remarks, reviewedBy, reviewedAt sql.NullString
	err := scan(&ti.ID, &ti.TaskID, &ti.AssignmentID, &ti.Status, &review, &result, &started, &completed, &due,
		&ti.IsWaived, &waivedReason, &waivedBy, &waivedAt, &waivedUntil, &remarks, &reviewedBy, &reviewedAt, &ti.CreatedAt, &ti.UpdatedAt)
	if err == sql.ErrNoRows {
		return ti, ErrNotFound
	}
	if err != nil {
		return ti, err
	}
	if review.Valid {
		ti.ReviewStatus = review.String
	}
	if result.Valid {
		ti.ResultJSON = &result.String
	}
	if started.Valid {
		ti.StartedAt = &started.String
	}
	if completed.Valid {
		ti.CompletedAt = &completed.String
	}
	if due.Valid {
		ti.DueDate = &due.String
	}
	if waivedReason.Valid {
		ti.WaivedReason = &waivedReason.String
	}
	if waivedBy.Valid {
		ti.WaivedBy = &waivedBy.String
	}
	if waivedAt.Valid {
		ti.WaivedAt = &waivedAt.String
	}
	if waivedUntil.Valid {
		ti.WaivedUntil = &waivedUntil.String
	}
	if remarks.Valid {
		ti.AdminRemarks = &remarks.String
	}
	if reviewedBy.Valid {
		ti.ReviewedBy = &reviewedBy.String
	}
	if reviewedAt.Valid {
		ti.ReviewedAt = &reviewedAt.String
	}
	return ti, nil
}

func (r Repo) InsertInstanceTx(ctx context.Context, tx *sql.Tx, ti domain.TaskInstance) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO task_instances(`+instanceColumns+`)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		ti.ID, ti.TaskID, ti.AssignmentID, ti.Status, nullable(ti.ReviewStatus), nullableStringPtr(ti.ResultJSON),
		nullableStringPtr(ti.StartedAt), nullableStringPtr(ti.CompletedAt), nullableStringPtr(ti.DueDate),
		ti.IsWaived, nullableStringPtr(ti.WaivedReason), nullableStringPtr(ti.WaivedBy), nullableStringPtr(ti.WaivedAt),
		nullableStringPtr(ti.WaivedUntil), nullableStringPtr(ti.AdminRemarks), nullableStringPtr(ti.ReviewedBy),
		nullableStringPtr(ti.ReviewedAt), ti.CreatedAt, ti.UpdatedAt)
	return err
}

func (r Repo) UpdateInstanceTx(ctx context.Context, tx *sql.Tx, ti domain.TaskInstance) error {
	_, err := tx.ExecContext(ctx, `UPDATE task_instances SET status=?, review_status=?, result_json=?, started_at=?, completed_at=?, due_date=?, is_waived=?, waived_reason=?, waived_by=?, waived_at=?, waived_until=?, admin_remarks=?, reviewed_by=?, reviewed_at=?, updated_at=? WHERE id=?`,
		ti.Status, nullable(ti.ReviewStatus), nullableStringPtr(ti.ResultJSON),
		nullableStringPtr(ti.StartedAt), nullableStringPtr(ti.CompletedAt), nullableStringPtr(ti.DueDate),
		ti.IsWaived, nullableStringPtr(ti.WaivedReason), nullableStringPtr(ti.WaivedBy), nullableStringPtr(ti.WaivedAt),
		nullableStringPtr(ti.WaivedUntil), nullableStringPtr(ti.AdminRemarks), nullableStringPtr(ti.ReviewedBy),
		nullableStringPtr(ti.ReviewedAt), ti.UpdatedAt, ti.ID)
	return err
}

func (r Repo) GetInstance(ctx context.Context, id string) (domain.TaskInstance, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+instanceColumns+` FROM task_instances WHERE id=?`, id)
	return scanInstance(row.Scan)
}

func (r Repo) ListInstances(ctx context.Context, assignmentID, status string) ([]domain.TaskInstance, error) {
	query := `SELECT ` + instanceColumns + ` FROM task_instances WHERE assignment_id=?`
	args := []any{assignmentID}
	if status != "" {
		query += ` AND status=?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at ASC, id ASC`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.TaskInstance
	for rows.Next() {
		ti, err := scanInstance(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, ti)
	}
	return res, nil
}

// --- documents ---

func (r Repo) InsertDocument(ctx context.Context, d domain.Document) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO documents(id,task_instance_id,filename,mime_type,file_size,data,uploaded_by,uploaded_at) VALUES (?,?,?,?,?,?,?,?)`,
		d.ID, d.TaskInstanceID, d.Filename, d.MimeType, d.FileSize, d.Data, nullable(d.UploadedBy), d.UploadedAt)
	return err
}

func (r Repo) GetDocument(ctx context.Context, id string) (domain.Document, error) {
	var d domain.Document
	var uploadedBy sql.NullString
	err := r.DB.QueryRowContext(ctx, `SELECT id,task_instance_id,filename,mime_type,file_size,data,uploaded_by,uploaded_at FROM documents WHERE id=?`, id).
		Scan(&d.ID, &d.TaskInstanceID, &d.Filename, &d.MimeType, &d.FileSize, &d.Data, &uploadedBy, &d.UploadedAt)
	if err == sql.ErrNoRows {
		return d, ErrNotFound
	}
	if uploadedBy.Valid {
		d.UploadedBy = uploadedBy.String
	}
	return d, err
}

func (r Repo) ListDocuments(ctx context.Context, taskInstanceID string) ([]domain.Document, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,task_instance_id,filename,mime_type,file_size,data,uploaded_by,uploaded_at FROM documents WHERE task_instance_id=? ORDER BY uploaded_at ASC`, taskInstanceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Document
	for rows.Next() {
		var d domain.Document
		var uploadedBy sql.NullString
		if err := rows.Scan(&d.ID, &d.TaskInstanceID, &d.Filename, &d.MimeType, &d.FileSize, &d.Data, &uploadedBy, &d.UploadedAt); err != nil {
			return nil, err
		}
		if uploadedBy.Valid {
			d.UploadedBy = uploadedBy.String
		}
		res = append(res, d)
	}
	return res, nil
}

func (r Repo) DeleteDocumentsTx(ctx context.Context, tx *sql.Tx, taskInstanceID string) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE task_instance_id=?`, taskInstanceID)
	return err
}

// MissingDocuments checks which of the given document ids do not exist or do
// not belong to the task instance.
func (r Repo) MissingDocuments(ctx context.Context, taskInstanceID string, ids []string) ([]string, error) {
	var missing []string
	for _, id := range ids {
		var owner string
		err := r.DB.QueryRowContext(ctx, `SELECT task_instance_id FROM documents WHERE id=?`, id).Scan(&owner)
		if err == sql.ErrNoRows || (err == nil && owner != taskInstanceID) {
			missing = append(missing, id)
			continue
		}
		if err != nil {
			return nil, err
		}
	}
	return missing, nil
}

// --- notifications ---

func (r Repo) ListNotifications(ctx context.Context, teamMemberID string) ([]domain.Notification, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,team_member_id,type,title,message,task_instance_id,is_read,created_at FROM notifications WHERE team_member_id=? ORDER BY id DESC`, teamMemberID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Notification
	for rows.Next() {
		var n domain.Notification
		var msg, instanceID sql.NullString
		if err := rows.Scan(&n.ID, &n.TeamMemberID, &n.Type, &n.Title, &msg, &instanceID, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, err
		}
		if msg.Valid {
			n.Message = msg.String
		}
		if instanceID.Valid {
			n.TaskInstanceID = &instanceID.String
		}
		res = append(res, n)
	}
	return res, nil
}
