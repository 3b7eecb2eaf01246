package repo

import (
	"context"
	"database/sql"

	"github.com/reddykarthikeya-123/OnBoardingRite/internal/domain"
)

const taskColumns = `id,task_group_id,source_task_id,name,description,type,category,is_required,display_order,configuration_json,created_at,updated_at`

func scanTask(scan func(dest ...any) error) (domain.Task, error) {
	var t domain.Task
	var groupID, sourceID, desc, category, cfg sql.NullString
	err := scan(&t.ID, &groupID, &sourceID, &t.Name, &desc, &t.Type, &category, &t.IsRequired, &t.DisplayOrder, &cfg, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return t, ErrNotFound
	}
	if err != nil {
		return t, err
	}
	if groupID.Valid {
		t.TaskGroupID = &groupID.String
	}
	if sourceID.Valid {
		t.SourceTaskID = &sourceID.String
	}
	if desc.Valid {
		t.Description = desc.String
	}
	if category.Valid {
		t.Category = category.String
	}
	if cfg.Valid {
		t.ConfigurationJSON = &cfg.String
	}
	return t, nil
}

func (r Repo) InsertTask(ctx context.Context, t domain.Task) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO tasks(`+taskColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		t.ID, nullableStringPtr(t.TaskGroupID), nullableStringPtr(t.SourceTaskID), t.Name, nullable(t.Description),
		t.Type, nullable(t.Category), t.IsRequired, t.DisplayOrder, nullableStringPtr(t.ConfigurationJSON), t.CreatedAt, t.UpdatedAt)
	return err
}

func (r Repo) UpdateTask(ctx context.Context, t domain.Task) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE tasks SET task_group_id=?, source_task_id=?, name=?, description=?, type=?, category=?, is_required=?, display_order=?, configuration_json=?, updated_at=? WHERE id=?`,
		nullableStringPtr(t.TaskGroupID), nullableStringPtr(t.SourceTaskID), t.Name, nullable(t.Description), t.Type,
		nullable(t.Category), t.IsRequired, t.DisplayOrder, nullableStringPtr(t.ConfigurationJSON), t.UpdatedAt, t.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) GetTask(ctx context.Context, id string) (domain.Task, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id=?`, id)
	return scanTask(row.Scan)
}

func (r Repo) DeleteTask(ctx context.Context, id string) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	// Deployed copies keep their own stale fields once the source is gone.
	if _, err := tx.ExecContext(ctx, `UPDATE tasks SET source_task_id=NULL WHERE source_task_id=?`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

func (r Repo) ListTasks(ctx context.Context, groupID string) ([]domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks`
	var args []any
	if groupID != "" {
		query += ` WHERE task_group_id=?`
		args = append(args, groupID)
	}
	query += ` ORDER BY display_order ASC, created_at ASC`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Task
	for rows.Next() {
		t, err := scanTask(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, nil
}

// ListTemplateTasks returns all tasks of a template ordered by group then task
// display order.
func (r Repo) ListTemplateTasks(ctx context.Context, templateID string) ([]domain.Task, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT t.id,t.task_group_id,t.source_task_id,t.name,t.description,t.type,t.category,t.is_required,t.display_order,t.configuration_json,t.created_at,t.updated_at
FROM tasks t JOIN task_groups g ON g.id=t.task_group_id
WHERE g.template_id=? ORDER BY g.display_order ASC, t.display_order ASC`, templateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Task
	for rows.Next() {
		t, err := scanTask(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, nil
}

// --- templates and groups ---

func (r Repo) InsertTemplate(ctx context.Context, t domain.ChecklistTemplate) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO checklist_templates(id,name,description,is_active,eligibility_criteria_id,created_at,updated_at) VALUES (?,?,?,?,?,?,?)`,
		t.ID, t.Name, nullable(t.Description), t.IsActive, nullableStringPtr(t.EligibilityCriteriaID), t.CreatedAt, t.UpdatedAt)
	return err
}

func (r Repo) GetTemplate(ctx context.Context, id string) (domain.ChecklistTemplate, error) {
	var t domain.ChecklistTemplate
	var desc, criteriaID sql.NullString
	err := r.DB.QueryRowContext(ctx, `SELECT id,name,description,is_active,eligibility_criteria_id,created_at,updated_at FROM checklist_templates WHERE id=?`, id).
		Scan(&t.ID, &t.Name, &desc, &t.IsActive, &criteriaID, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return t, ErrNotFound
	}
	if desc.Valid {
		t.Description = desc.String
	}
	if criteriaID.Valid {
		t.EligibilityCriteriaID = &criteriaID.String
	}
	return t, err
}

func (r Repo) InsertTaskGroup(ctx context.Context, g domain.TaskGroup) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO task_groups(id,template_id,name,description,category,display_order,eligibility_criteria_id,created_at) VALUES (?,?,?,?,?,?,?,?)`,
		g.ID, g.TemplateID, g.Name, nullable(g.Description), nullable(g.Category), g.DisplayOrder, nullableStringPtr(g.EligibilityCriteriaID), g.CreatedAt)
	return err
}

func (r Repo) GetTaskGroup(ctx context.Context, id string) (domain.TaskGroup, error) {
	var g domain.TaskGroup
	var desc, category, criteriaID sql.NullString
	err := r.DB.QueryRowContext(ctx, `SELECT id,template_id,name,description,category,display_order,eligibility_criteria_id,created_at FROM task_groups WHERE id=?`, id).
		Scan(&g.ID, &g.TemplateID, &g.Name, &desc, &category, &g.DisplayOrder, &criteriaID, &g.CreatedAt)
	if err == sql.ErrNoRows {
		return g, ErrNotFound
	}
	if desc.Valid {
		g.Description = desc.String
	}
	if category.Valid {
		g.Category = category.String
	}
	if criteriaID.Valid {
		g.EligibilityCriteriaID = &criteriaID.String
	}
	return g, err
}

func (r Repo) ListTaskGroups(ctx context.Context, templateID string) ([]domain.TaskGroup, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,template_id,name,COALESCE(description,''),COALESCE(category,''),display_order,eligibility_criteria_id,created_at
FROM task_groups WHERE template_id=? ORDER BY display_order ASC`, templateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.TaskGroup
	for rows.Next() {
		var g domain.TaskGroup
		var criteriaID sql.NullString
		if err := rows.Scan(&g.ID, &g.TemplateID, &g.Name, &g.Description, &g.Category, &g.DisplayOrder, &criteriaID, &g.CreatedAt); err != nil {
			return nil, err
		}
		if criteriaID.Valid {
			g.EligibilityCriteriaID = &criteriaID.String
		}
		res = append(res, g)
	}
	return res, nil
}
