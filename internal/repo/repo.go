package repo

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/reddykarthikeya-123/OnBoardingRite/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableStringPtr(v *string) any {
	if v == nil {
		return nil
	}
	if *v == "" {
		return nil
	}
	return *v
}

// --- eligibility criteria ---

func (r Repo) InsertCriteriaTx(ctx context.Context, tx *sql.Tx, c domain.EligibilityCriteria) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO eligibility_criteria(id,name,description,is_active,root_group_logic,created_at,updated_at) VALUES (?,?,?,?,?,?,?)`,
		c.ID, c.Name, nullable(c.Description), c.IsActive, c.RootGroupLogic, c.CreatedAt, c.UpdatedAt)
	return err
}

func (r Repo) UpdateCriteriaTx(ctx context.Context, tx *sql.Tx, c domain.EligibilityCriteria) error {
	res, err := tx.ExecContext(ctx, `UPDATE eligibility_criteria SET name=?, description=?, is_active=?, root_group_logic=?, updated_at=? WHERE id=?`,
		c.Name, nullable(c.Description), c.IsActive, c.RootGroupLogic, c.UpdatedAt, c.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) GetCriteria(ctx context.Context, id string) (domain.EligibilityCriteria, error) {
	var c domain.EligibilityCriteria
	var desc sql.NullString
	err := r.DB.QueryRowContext(ctx, `SELECT id,name,description,is_active,root_group_logic,created_at,updated_at FROM eligibility_criteria WHERE id=?`, id).
		Scan(&c.ID, &c.Name, &desc, &c.IsActive, &c.RootGroupLogic, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return c, ErrNotFound
	}
	if desc.Valid {
		c.Description = desc.String
	}
	return c, err
}

func (r Repo) ListCriteria(ctx context.Context, search string) ([]domain.EligibilityCriteria, error) {
	query := `SELECT id,name,COALESCE(description,''),is_active,root_group_logic,created_at,updated_at FROM eligibility_criteria`
	var args []any
	if search != "" {
		query += ` WHERE name LIKE ? OR description LIKE ?`
		term := "%" + search + "%"
		args = append(args, term, term)
	}
	query += ` ORDER BY created_at DESC, id DESC`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.EligibilityCriteria
	for rows.Next() {
		var c domain.EligibilityCriteria
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.IsActive, &c.RootGroupLogic, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, nil
}

func (r Repo) DeleteCriteria(ctx context.Context, id string) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `DELETE FROM eligibility_rules WHERE criteria_id=?`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM eligibility_criteria WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

// --- eligibility rules (flat rows) ---

func (r Repo) InsertRuleTx(ctx context.Context, tx *sql.Tx, rule domain.EligibilityRule) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO eligibility_rules(id,criteria_id,parent_group_id,rule_type,group_logic,field_category,field_name,operator,value,sql_query,display_order,created_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		rule.ID, rule.CriteriaID, nullableStringPtr(rule.ParentGroupID), rule.RuleType, nullable(rule.GroupLogic),
		nullable(rule.FieldCategory), nullable(rule.FieldName), nullable(rule.Operator),
		nullableStringPtr(rule.Value), nullableStringPtr(rule.SQLQuery), rule.DisplayOrder, rule.CreatedAt)
	return err
}

func (r Repo) DeleteRulesTx(ctx context.Context, tx *sql.Tx, criteriaID string) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM eligibility_rules WHERE criteria_id=?`, criteriaID)
	return err
}

func (r Repo) ListRules(ctx context.Context, criteriaID string) ([]domain.EligibilityRule, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,criteria_id,parent_group_id,rule_type,group_logic,field_category,field_name,operator,value,sql_query,display_order,created_at
FROM eligibility_rules WHERE criteria_id=? ORDER BY display_order ASC, id ASC`, criteriaID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.EligibilityRule
	for rows.Next() {
		var rule domain.EligibilityRule
		var parent, logic, cat, name, op, value, query sql.NullString
		if err := rows.Scan(&rule.ID, &rule.CriteriaID, &parent, &rule.RuleType, &logic, &cat, &name, &op, &value, &query, &rule.DisplayOrder, &rule.CreatedAt); err != nil {
			return nil, err
		}
		if parent.Valid {
			rule.ParentGroupID = &parent.String
		}
		if logic.Valid {
			rule.GroupLogic = logic.String
		}
		if cat.Valid {
			rule.FieldCategory = cat.String
		}
		if name.Valid {
			rule.FieldName = name.String
		}
		if op.Valid {
			rule.Operator = op.String
		}
		if value.Valid {
			rule.Value = &value.String
		}
		if query.Valid {
			rule.SQLQuery = &query.String
		}
		res = append(res, rule)
	}
	return res, nil
}

// RunSQLRule executes a caller-authored SQL_RULE predicate and interprets the
// first column of the first row as a boolean verdict. No rows means false.
func (r Repo) RunSQLRule(ctx context.Context, query string) (bool, error) {
	var v any
	err := r.DB.QueryRowContext(ctx, query).Scan(&v)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	switch val := v.(type) {
	case bool:
		return val, nil
	case int64:
		return val != 0, nil
	case float64:
		return val != 0, nil
	case string:
		return strings.EqualFold(val, "true") || val == "1", nil
	default:
		return v != nil, nil
	}
}
