package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"github.com/reddykarthikeya-123/OnBoardingRite/internal/domain"
	"github.com/reddykarthikeya-123/OnBoardingRite/internal/eligibility"
	"github.com/reddykarthikeya-123/OnBoardingRite/internal/engine"
	"github.com/reddykarthikeya-123/OnBoardingRite/internal/repo"
)

// Config for the HTTP API handler.
type Config struct {
	Engine   engine.Engine
	BasePath string
	Auth     AuthConfig
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"validation_failed"`
	Message string         `json:"message" example:"validation failed: required field \"SSN\" is missing"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

// apiError models the error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	var ve engine.ValidationError
	if errors.As(err, &ve) {
		return newAPIError(http.StatusUnprocessableEntity, "validation_failed", err.Error(), map[string]any{"violations": ve.Violations})
	}
	var sc engine.StateConflictError
	if errors.As(err, &sc) {
		return newAPIError(http.StatusConflict, "state_conflict", err.Error(), nil)
	}
	if errors.Is(err, repo.ErrNotFound) {
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	}
	msg := err.Error()
	lowered := strings.ToLower(msg)
	if strings.Contains(lowered, "invalid") || strings.Contains(lowered, "missing") || strings.Contains(lowered, "required") {
		return newAPIError(http.StatusBadRequest, "bad_request", msg, nil)
	}
	return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": msg})
}

// New returns an HTTP handler exposing the OnBoardingRite API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v1"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.DefaultArrayNullable = false
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}

	router := chi.NewRouter()
	router.Use(newAuthMiddleware(basePath, cfg.Auth))
	hcfg := huma.DefaultConfig("OnBoardingRite API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerHealth(group)
	registerCriteria(group, cfg.Engine)
	registerTemplates(group, cfg.Engine)
	registerTasks(group, cfg.Engine)
	registerMembers(group, cfg.Engine)
	registerProjects(group, cfg.Engine)
	registerAssignments(group, cfg.Engine)
	registerInstances(group, cfg.Engine)
	registerDocuments(group, cfg.Engine)
	registerNotifications(group, cfg.Engine)

	return router, nil
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

type criteriaPath struct {
	CriteriaID string `path:"criteria_id"`
}

func registerCriteria(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-criteria",
		Method:        http.MethodPost,
		Path:          "/criteria",
		Summary:       "Create eligibility criteria",
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *struct {
		Body CriteriaRequest `json:"body"`
	}) (*struct {
		Body CriteriaResponse `json:"body"`
	}, error) {
		active := true
		if input.Body.IsActive != nil {
			active = *input.Body.IsActive
		}
		c, err := e.CreateCriteria(ctx, engine.CriteriaOptions{
			Name:           input.Body.Name,
			Description:    strOrEmpty(input.Body.Description),
			RootGroupLogic: input.Body.RootGroupLogic,
			IsActive:       active,
			Rules:          input.Body.Rules,
		})
		if err != nil {
			return nil, handleError(err)
		}
		_, tree, err := e.GetRuleTree(ctx, c.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body CriteriaResponse `json:"body"`
		}{Body: criteriaResponse(c, tree)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-criteria",
		Method:      http.MethodGet,
		Path:        "/criteria/{criteria_id}",
		Summary:     "Get criteria with its rule tree",
	}, func(ctx context.Context, input *criteriaPath) (*struct {
		Body CriteriaResponse `json:"body"`
	}, error) {
		c, tree, err := e.GetRuleTree(ctx, input.CriteriaID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body CriteriaResponse `json:"body"`
		}{Body: criteriaResponse(c, tree)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-criteria",
		Method:      http.MethodPut,
		Path:        "/criteria/{criteria_id}",
		Summary:     "Update criteria, replacing its rule tree when one is supplied",
	}, func(ctx context.Context, input *struct {
		CriteriaID string          `path:"criteria_id"`
		Body       CriteriaRequest `json:"body"`
	}) (*struct {
		Body CriteriaResponse `json:"body"`
	}, error) {
		active := true
		if input.Body.IsActive != nil {
			active = *input.Body.IsActive
		}
		c, err := e.UpdateCriteria(ctx, engine.CriteriaOptions{
			ID:             input.CriteriaID,
			Name:           input.Body.Name,
			Description:    strOrEmpty(input.Body.Description),
			RootGroupLogic: input.Body.RootGroupLogic,
			IsActive:       active,
			Rules:          input.Body.Rules,
		})
		if err != nil {
			return nil, handleError(err)
		}
		_, tree, err := e.GetRuleTree(ctx, c.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body CriteriaResponse `json:"body"`
		}{Body: criteriaResponse(c, tree)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-criteria",
		Method:        http.MethodDelete,
		Path:          "/criteria/{criteria_id}",
		Summary:       "Delete criteria and its rules",
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, input *criteriaPath) (*struct{}, error) {
		if err := e.Repo.DeleteCriteria(ctx, input.CriteriaID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "save-rule-tree",
		Method:      http.MethodPut,
		Path:        "/criteria/{criteria_id}/rules",
		Summary:     "Replace the criteria's rule tree",
	}, func(ctx context.Context, input *struct {
		CriteriaID string           `path:"criteria_id"`
		Body       eligibility.Node `json:"body"`
	}) (*struct {
		Body CriteriaResponse `json:"body"`
	}, error) {
		if err := e.SaveRuleTree(ctx, input.CriteriaID, &input.Body); err != nil {
			return nil, handleError(err)
		}
		c, tree, err := e.GetRuleTree(ctx, input.CriteriaID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body CriteriaResponse `json:"body"`
		}{Body: criteriaResponse(c, tree)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "evaluate-criteria",
		Method:      http.MethodPost,
		Path:        "/criteria/{criteria_id}/evaluate",
		Summary:     "Evaluate criteria against candidate attributes",
	}, func(ctx context.Context, input *struct {
		CriteriaID string          `path:"criteria_id"`
		Body       EvaluateRequest `json:"body"`
	}) (*struct {
		Body EvaluateResponse `json:"body"`
	}, error) {
		ok, err := e.EvaluateCriteria(ctx, input.CriteriaID, input.Body.Attributes)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body EvaluateResponse `json:"body"`
		}{Body: EvaluateResponse{Eligible: ok}}, nil
	})
}

func registerTemplates(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-template",
		Method:        http.MethodPost,
		Path:          "/templates",
		Summary:       "Create checklist template",
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *struct {
		Body CreateTemplateRequest `json:"body"`
	}) (*struct {
		Body domain.ChecklistTemplate `json:"body"`
	}, error) {
		t, err := e.CreateTemplate(ctx, engine.TemplateOptions{
			Name:                  input.Body.Name,
			Description:           strOrEmpty(input.Body.Description),
			IsActive:              true,
			EligibilityCriteriaID: strOrEmpty(input.Body.EligibilityCriteriaID),
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.ChecklistTemplate `json:"body"`
		}{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-task-group",
		Method:        http.MethodPost,
		Path:          "/templates/{template_id}/groups",
		Summary:       "Add a task group to a template",
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *struct {
		TemplateID string                 `path:"template_id"`
		Body       CreateTaskGroupRequest `json:"body"`
	}) (*struct {
		Body domain.TaskGroup `json:"body"`
	}, error) {
		g, err := e.CreateTaskGroup(ctx, engine.TaskGroupOptions{
			TemplateID:            input.TemplateID,
			Name:                  input.Body.Name,
			Description:           strOrEmpty(input.Body.Description),
			Category:              strOrEmpty(input.Body.Category),
			DisplayOrder:          input.Body.DisplayOrder,
			EligibilityCriteriaID: strOrEmpty(input.Body.EligibilityCriteriaID),
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.TaskGroup `json:"body"`
		}{Body: g}, nil
	})
}

type taskPath struct {
	TaskID string `path:"task_id"`
}

func registerTasks(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-task",
		Method:        http.MethodPost,
		Path:          "/tasks",
		Summary:       "Create a library or group task",
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *struct {
		Body CreateTaskRequest `json:"body"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		t, err := e.CreateTask(ctx, engine.TaskOptions{
			TaskGroupID:   strOrEmpty(input.Body.TaskGroupID),
			Name:          input.Body.Name,
			Description:   strOrEmpty(input.Body.Description),
			Type:          input.Body.Type,
			Category:      strOrEmpty(input.Body.Category),
			IsRequired:    input.Body.IsRequired,
			DisplayOrder:  input.Body.DisplayOrder,
			Configuration: input.Body.Configuration,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-task",
		Method:      http.MethodGet,
		Path:        "/tasks/{task_id}",
		Summary:     "Task as stored",
	}, func(ctx context.Context, input *taskPath) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		t, err := e.Repo.GetTask(ctx, input.TaskID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-task",
		Method:        http.MethodDelete,
		Path:          "/tasks/{task_id}",
		Summary:       "Delete a task, detaching its deployed copies",
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, input *taskPath) (*struct{}, error) {
		if err := e.Repo.DeleteTask(ctx, input.TaskID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-task",
		Method:      http.MethodPatch,
		Path:        "/tasks/{task_id}",
		Summary:     "Update task content",
	}, func(ctx context.Context, input *struct {
		TaskID string            `path:"task_id"`
		Body   UpdateTaskRequest `json:"body"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		t, err := e.UpdateTask(ctx, engine.TaskOptions{
			ID:            input.TaskID,
			Name:          strOrEmpty(input.Body.Name),
			Description:   strOrEmpty(input.Body.Description),
			Category:      strOrEmpty(input.Body.Category),
			Configuration: input.Body.Configuration,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "deploy-task",
		Method:        http.MethodPost,
		Path:          "/tasks/{task_id}/deploy",
		Summary:       "Deploy a library task into a template group",
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *struct {
		TaskID string            `path:"task_id"`
		Body   DeployTaskRequest `json:"body"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		t, err := e.DeployTask(ctx, input.TaskID, input.Body.TaskGroupID, input.Body.DisplayOrder)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "effective-task-content",
		Method:      http.MethodGet,
		Path:        "/tasks/{task_id}/effective",
		Summary:     "Task content after source propagation",
	}, func(ctx context.Context, input *taskPath) (*struct {
		Body EffectiveContentResponse `json:"body"`
	}, error) {
		t, err := e.Repo.GetTask(ctx, input.TaskID)
		if err != nil {
			return nil, handleError(err)
		}
		ec, err := e.EffectiveContent(ctx, t)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body EffectiveContentResponse `json:"body"`
		}{Body: effectiveContentResponse(t.ID, ec)}, nil
	})
}

func registerMembers(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-member",
		Method:        http.MethodPost,
		Path:          "/members",
		Summary:       "Create team member",
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *struct {
		Body CreateMemberRequest `json:"body"`
	}) (*struct {
		Body domain.TeamMember `json:"body"`
	}, error) {
		m, err := e.CreateTeamMember(ctx, engine.MemberOptions{
			EmployeeID: strOrEmpty(input.Body.EmployeeID),
			FirstName:  input.Body.FirstName,
			LastName:   input.Body.LastName,
			Email:      input.Body.Email,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.TeamMember `json:"body"`
		}{Body: m}, nil
	})
}

func registerProjects(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-project",
		Method:        http.MethodPost,
		Path:          "/projects",
		Summary:       "Create project",
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *struct {
		Body CreateProjectRequest `json:"body"`
	}) (*struct {
		Body domain.Project `json:"body"`
	}, error) {
		p, err := e.CreateProject(ctx, engine.ProjectOptions{
			Name:       input.Body.Name,
			TemplateID: strOrEmpty(input.Body.TemplateID),
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Project `json:"body"`
		}{Body: p}, nil
	})
}

type assignmentPath struct {
	AssignmentID string `path:"assignment_id"`
}

func registerAssignments(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-assignment",
		Method:        http.MethodPost,
		Path:          "/assignments",
		Summary:       "Assign a member to a project and build their checklist",
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *struct {
		Body CreateAssignmentRequest `json:"body"`
	}) (*struct {
		Body domain.ProjectAssignment `json:"body"`
	}, error) {
		a, err := e.CreateAssignment(ctx, engine.AssignmentOptions{
			ProjectID:    input.Body.ProjectID,
			TeamMemberID: input.Body.TeamMemberID,
			Category:     strOrEmpty(input.Body.Category),
			Trade:        strOrEmpty(input.Body.Trade),
			Attributes:   input.Body.Attributes,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.ProjectAssignment `json:"body"`
		}{Body: a}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-assignment",
		Method:      http.MethodGet,
		Path:        "/assignments/{assignment_id}",
		Summary:     "Assignment with progress",
	}, func(ctx context.Context, input *assignmentPath) (*struct {
		Body domain.ProjectAssignment `json:"body"`
	}, error) {
		a, err := e.Repo.GetAssignment(ctx, input.AssignmentID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.ProjectAssignment `json:"body"`
		}{Body: a}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "assignment-checklist",
		Method:      http.MethodGet,
		Path:        "/assignments/{assignment_id}/checklist",
		Summary:     "Checklist instances with effective task content",
	}, func(ctx context.Context, input *assignmentPath) (*struct {
		Body []engine.ChecklistItem `json:"body"`
	}, error) {
		items, err := e.Checklist(ctx, input.AssignmentID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []engine.ChecklistItem `json:"body"`
		}{Body: items}, nil
	})
}

type instancePath struct {
	InstanceID string `path:"instance_id"`
}

type instanceBody struct {
	Body domain.TaskInstance `json:"body"`
}

func registerInstances(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "get-instance",
		Method:      http.MethodGet,
		Path:        "/instances/{instance_id}",
		Summary:     "Task instance",
	}, func(ctx context.Context, input *instancePath) (*instanceBody, error) {
		ti, err := e.Repo.GetInstance(ctx, input.InstanceID)
		if err != nil {
			return nil, handleError(err)
		}
		return &instanceBody{Body: ti}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "start-instance",
		Method:      http.MethodPost,
		Path:        "/instances/{instance_id}/start",
		Summary:     "Start a task instance",
	}, func(ctx context.Context, input *instancePath) (*instanceBody, error) {
		ti, err := e.Start(ctx, input.InstanceID)
		if err != nil {
			return nil, handleError(err)
		}
		return &instanceBody{Body: ti}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "submit-form",
		Method:      http.MethodPost,
		Path:        "/instances/{instance_id}/submit",
		Summary:     "Submit a custom form",
	}, func(ctx context.Context, input *struct {
		InstanceID string            `path:"instance_id"`
		Body       SubmitFormRequest `json:"body"`
	}) (*instanceBody, error) {
		ti, err := e.SubmitForm(ctx, input.InstanceID, input.Body.Data)
		if err != nil {
			return nil, handleError(err)
		}
		return &instanceBody{Body: ti}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "complete-upload",
		Method:      http.MethodPost,
		Path:        "/instances/{instance_id}/complete-upload",
		Summary:     "Complete a document-upload task",
	}, func(ctx context.Context, input *struct {
		InstanceID string                `path:"instance_id"`
		Body       CompleteUploadRequest `json:"body"`
	}) (*instanceBody, error) {
		ti, err := e.CompleteUpload(ctx, input.InstanceID, input.Body.DocumentIDs)
		if err != nil {
			return nil, handleError(err)
		}
		return &instanceBody{Body: ti}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "execute-rest-api",
		Method:      http.MethodPost,
		Path:        "/instances/{instance_id}/execute",
		Summary:     "Execute a REST_API task's configured call",
	}, func(ctx context.Context, input *struct {
		InstanceID string         `path:"instance_id"`
		Body       ExecuteRequest `json:"body"`
	}) (*struct {
		Body engine.IntegrationOutcome `json:"body"`
	}, error) {
		out, err := e.ExecuteRestAPI(ctx, input.InstanceID, input.Body.BodyOverride)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body engine.IntegrationOutcome `json:"body"`
		}{Body: out}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "start-redirect",
		Method:      http.MethodPost,
		Path:        "/instances/{instance_id}/redirect",
		Summary:     "Build the redirect URL and start the instance",
	}, func(ctx context.Context, input *instancePath) (*struct {
		Body engine.RedirectOutcome `json:"body"`
	}, error) {
		out, err := e.StartRedirect(ctx, input.InstanceID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body engine.RedirectOutcome `json:"body"`
		}{Body: out}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "poll-redirect-status",
		Method:      http.MethodPost,
		Path:        "/instances/{instance_id}/poll",
		Summary:     "Poll the external status of a redirect task",
	}, func(ctx context.Context, input *instancePath) (*struct {
		Body engine.RedirectOutcome `json:"body"`
	}, error) {
		out, err := e.PollRedirectStatus(ctx, input.InstanceID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body engine.RedirectOutcome `json:"body"`
		}{Body: out}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "waive-instance",
		Method:      http.MethodPost,
		Path:        "/instances/{instance_id}/waive",
		Summary:     "Waive a task instance",
	}, func(ctx context.Context, input *struct {
		InstanceID string       `path:"instance_id"`
		Body       WaiveRequest `json:"body"`
	}) (*instanceBody, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		ti, err := e.Waive(ctx, engine.WaiveOptions{
			InstanceID:  input.InstanceID,
			Reason:      input.Body.Reason,
			WaivedBy:    actorID,
			WaivedUntil: strOrEmpty(input.Body.WaivedUntil),
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &instanceBody{Body: ti}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "approve-instance",
		Method:      http.MethodPost,
		Path:        "/instances/{instance_id}/approve",
		Summary:     "Approve a completed task instance",
	}, func(ctx context.Context, input *instancePath) (*instanceBody, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		ti, err := e.Approve(ctx, input.InstanceID, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &instanceBody{Body: ti}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "reject-instance",
		Method:      http.MethodPost,
		Path:        "/instances/{instance_id}/reject",
		Summary:     "Reject a completed task instance for rework",
	}, func(ctx context.Context, input *struct {
		InstanceID string        `path:"instance_id"`
		Body       RejectRequest `json:"body"`
	}) (*instanceBody, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		ti, err := e.Reject(ctx, input.InstanceID, actorID, input.Body.Remarks)
		if err != nil {
			return nil, handleError(err)
		}
		return &instanceBody{Body: ti}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "override-instance-status",
		Method:      http.MethodPut,
		Path:        "/instances/{instance_id}/status",
		Summary:     "Administrative status override",
	}, func(ctx context.Context, input *struct {
		InstanceID string                `path:"instance_id"`
		Body       OverrideStatusRequest `json:"body"`
	}) (*instanceBody, error) {
		ti, err := e.OverrideStatus(ctx, engine.OverrideOptions{
			InstanceID:  input.InstanceID,
			Status:      input.Body.Status,
			ResultPatch: input.Body.Result,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &instanceBody{Body: ti}, nil
	})
}

func registerDocuments(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "attach-document",
		Method:        http.MethodPost,
		Path:          "/instances/{instance_id}/documents",
		Summary:       "Upload a document for a task instance",
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *struct {
		InstanceID string                `path:"instance_id"`
		Body       AttachDocumentRequest `json:"body"`
	}) (*struct {
		Body DocumentResponse `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		d, err := e.AttachDocument(ctx, engine.DocumentOptions{
			InstanceID: input.InstanceID,
			Filename:   input.Body.Filename,
			MimeType:   input.Body.MimeType,
			Data:       input.Body.Data,
			UploadedBy: actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body DocumentResponse `json:"body"`
		}{Body: documentResponse(d)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "download-document",
		Method:      http.MethodGet,
		Path:        "/documents/{document_id}",
		Summary:     "Download a document",
	}, func(ctx context.Context, input *struct {
		DocumentID string `path:"document_id"`
	}) (*huma.StreamResponse, error) {
		d, err := e.Repo.GetDocument(ctx, input.DocumentID)
		if err != nil {
			return nil, handleError(err)
		}
		return &huma.StreamResponse{Body: func(hctx huma.Context) {
			hctx.SetHeader("Content-Type", d.MimeType)
			hctx.SetHeader("Content-Disposition", `attachment; filename="`+d.Filename+`"`)
			hctx.BodyWriter().Write(d.Data)
		}}, nil
	})
}

func registerNotifications(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "member-notifications",
		Method:      http.MethodGet,
		Path:        "/members/{member_id}/notifications",
		Summary:     "Notifications for a team member, newest first",
	}, func(ctx context.Context, input *struct {
		MemberID string `path:"member_id"`
	}) (*struct {
		Body []domain.Notification `json:"body"`
	}, error) {
		if _, err := e.Repo.GetTeamMember(ctx, input.MemberID); err != nil {
			return nil, handleError(err)
		}
		items, err := e.Repo.ListNotifications(ctx, input.MemberID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Notification `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "mark-notification-read",
		Method:        http.MethodPost,
		Path:          "/notifications/{notification_id}/read",
		Summary:       "Mark a notification as read",
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, input *struct {
		NotificationID int64 `path:"notification_id"`
	}) (*struct{}, error) {
		if err := e.Notify.MarkRead(ctx, input.NotificationID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}
