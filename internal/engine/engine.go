package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/reddykarthikeya-123/OnBoardingRite/internal/config"
	"github.com/reddykarthikeya-123/OnBoardingRite/internal/domain"
	"github.com/reddykarthikeya-123/OnBoardingRite/internal/eligibility"
	"github.com/reddykarthikeya-123/OnBoardingRite/internal/notify"
	"github.com/reddykarthikeya-123/OnBoardingRite/internal/repo"
)

type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Notify notify.Writer
	Config *config.Config
	Client *http.Client
	Now    func() time.Time
}

func New(db *sql.DB, cfg *config.Config) Engine {
	return Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Notify: notify.Writer{DB: db},
		Config: cfg,
		Client: &http.Client{},
		Now:    time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) nowStr() string {
	return e.now().UTC().Format(time.RFC3339)
}

// ValidationError reports every violation found in a request, not just the
// first. The operation that returned it has not mutated any state.
type ValidationError struct {
	Violations []string
}

func (e ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Violations, "; ")
}

// StateConflictError means the operation is not valid for the entity's
// current state.
type StateConflictError struct {
	Reason string
}

func (e StateConflictError) Error() string {
	return e.Reason
}

// --- eligibility criteria ---

type CriteriaOptions struct {
	ID             string
	Name           string
	Description    string
	RootGroupLogic string
	IsActive       bool
	Rules          *eligibility.Node
}

func validateCriteriaOptions(opts CriteriaOptions) error {
	var violations []string
	if opts.Name == "" {
		violations = append(violations, "name is required")
	}
	if opts.RootGroupLogic != "AND" && opts.RootGroupLogic != "OR" {
		violations = append(violations, "rootGroupLogic must be AND or OR")
	}
	if opts.Rules != nil {
		if err := checkTree(opts.Rules); err != nil {
			violations = append(violations, err.Error())
		}
	}
	if len(violations) > 0 {
		return ValidationError{Violations: violations}
	}
	return nil
}

func checkTree(n *eligibility.Node) error {
	switch n.Type {
	case eligibility.NodeGroup:
		if n.Logic != "AND" && n.Logic != "OR" {
			return fmt.Errorf("group logic must be AND or OR")
		}
		for _, child := range n.Rules {
			if err := checkTree(child); err != nil {
				return err
			}
		}
	case eligibility.NodeFieldRule:
		if n.FieldID == "" || n.Operator == "" {
			return fmt.Errorf("field rule needs fieldId and operator")
		}
	case eligibility.NodeSQLRule:
		if n.SQLQuery == "" {
			return fmt.Errorf("sql rule needs sqlQuery")
		}
	default:
		return fmt.Errorf("unknown rule type %q", n.Type)
	}
	return nil
}

func (e Engine) CreateCriteria(ctx context.Context, opts CriteriaOptions) (domain.EligibilityCriteria, error) {
	if err := validateCriteriaOptions(opts); err != nil {
		return domain.EligibilityCriteria{}, err
	}
	now := e.nowStr()
	c := domain.EligibilityCriteria{
		ID:             opts.ID,
		Name:           opts.Name,
		Description:    opts.Description,
		IsActive:       opts.IsActive,
		RootGroupLogic: opts.RootGroupLogic,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.EligibilityCriteria{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.InsertCriteriaTx(ctx, tx, c); err != nil {
		return domain.EligibilityCriteria{}, fmt.Errorf("insert criteria: %w", err)
	}
	if opts.Rules != nil {
		if err := e.insertRulesTx(ctx, tx, c.ID, opts.Rules, now); err != nil {
			return domain.EligibilityCriteria{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return domain.EligibilityCriteria{}, err
	}
	return c, nil
}

// UpdateCriteria rewrites the criteria header and, when a tree is supplied,
// replaces the entire rule forest in the same transaction. A half-written
// tree is never visible.
func (e Engine) UpdateCriteria(ctx context.Context, opts CriteriaOptions) (domain.EligibilityCriteria, error) {
	if err := validateCriteriaOptions(opts); err != nil {
		return domain.EligibilityCriteria{}, err
	}
	existing, err := e.Repo.GetCriteria(ctx, opts.ID)
	if err != nil {
		return domain.EligibilityCriteria{}, err
	}
	now := e.nowStr()
	c := existing
	c.Name = opts.Name
	c.Description = opts.Description
	c.IsActive = opts.IsActive
	c.RootGroupLogic = opts.RootGroupLogic
	c.UpdatedAt = now

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.EligibilityCriteria{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.UpdateCriteriaTx(ctx, tx, c); err != nil {
		return domain.EligibilityCriteria{}, fmt.Errorf("update criteria: %w", err)
	}
	if opts.Rules != nil {
		if err := e.Repo.DeleteRulesTx(ctx, tx, c.ID); err != nil {
			return domain.EligibilityCriteria{}, fmt.Errorf("delete rules: %w", err)
		}
		if err := e.insertRulesTx(ctx, tx, c.ID, opts.Rules, now); err != nil {
			return domain.EligibilityCriteria{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return domain.EligibilityCriteria{}, err
	}
	return c, nil
}

func (e Engine) insertRulesTx(ctx context.Context, tx *sql.Tx, criteriaID string, root *eligibility.Node, now string) error {
	rows := eligibility.Flatten(criteriaID, root, 0, uuid.NewString, now)
	for _, row := range rows {
		if err := e.Repo.InsertRuleTx(ctx, tx, row); err != nil {
			return fmt.Errorf("insert rule: %w", err)
		}
	}
	return nil
}

// GetRuleTree loads a criteria and reassembles its nested rule tree.
func (e Engine) GetRuleTree(ctx context.Context, criteriaID string) (domain.EligibilityCriteria, *eligibility.Node, error) {
	c, err := e.Repo.GetCriteria(ctx, criteriaID)
	if err != nil {
		return domain.EligibilityCriteria{}, nil, err
	}
	rows, err := e.Repo.ListRules(ctx, criteriaID)
	if err != nil {
		return domain.EligibilityCriteria{}, nil, err
	}
	return c, eligibility.BuildTree(c.RootGroupLogic, rows), nil
}

// SaveRuleTree replaces a criteria's rule forest with the given tree.
func (e Engine) SaveRuleTree(ctx context.Context, criteriaID string, root *eligibility.Node) error {
	if root != nil {
		if err := checkTree(root); err != nil {
			return ValidationError{Violations: []string{err.Error()}}
		}
	}
	c, err := e.Repo.GetCriteria(ctx, criteriaID)
	if err != nil {
		return err
	}
	now := e.nowStr()
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := e.Repo.DeleteRulesTx(ctx, tx, criteriaID); err != nil {
		return fmt.Errorf("delete rules: %w", err)
	}
	if root != nil {
		if err := e.insertRulesTx(ctx, tx, criteriaID, root, now); err != nil {
			return err
		}
	}
	c.UpdatedAt = now
	if err := e.Repo.UpdateCriteriaTx(ctx, tx, c); err != nil {
		return fmt.Errorf("touch criteria: %w", err)
	}
	return tx.Commit()
}

// EvaluateCriteria answers whether the candidate attributes satisfy a stored
// criteria. SQL rules run through the repository.
func (e Engine) EvaluateCriteria(ctx context.Context, criteriaID string, attrs map[string]any) (bool, error) {
	_, tree, err := e.GetRuleTree(ctx, criteriaID)
	if err != nil {
		return false, err
	}
	return eligibility.Evaluate(ctx, tree, attrs, e.Repo), nil
}

// criteriaAllows is EvaluateCriteria for an optional criteria reference:
// no criteria, an inactive one, or a dangling id all allow.
func (e Engine) criteriaAllows(ctx context.Context, criteriaID *string, attrs map[string]any) (bool, error) {
	if criteriaID == nil || *criteriaID == "" {
		return true, nil
	}
	c, err := e.Repo.GetCriteria(ctx, *criteriaID)
	if errors.Is(err, repo.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	if !c.IsActive {
		return true, nil
	}
	rows, err := e.Repo.ListRules(ctx, c.ID)
	if err != nil {
		return false, err
	}
	return eligibility.Evaluate(ctx, eligibility.BuildTree(c.RootGroupLogic, rows), attrs, e.Repo), nil
}
