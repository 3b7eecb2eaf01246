package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/reddykarthikeya-123/OnBoardingRite/internal/config"
	"github.com/reddykarthikeya-123/OnBoardingRite/internal/db"
	"github.com/reddykarthikeya-123/OnBoardingRite/internal/eligibility"
	"github.com/reddykarthikeya-123/OnBoardingRite/internal/engine"
	"github.com/reddykarthikeya-123/OnBoardingRite/internal/migrate"
	"github.com/reddykarthikeya-123/OnBoardingRite/internal/repo"
	"github.com/reddykarthikeya-123/OnBoardingRite/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "onbr",
	Short: "OnBoardingRite CLI",
	Long: `OnBoardingRite manages onboarding checklists for employees and candidates.
Clients define checklist templates of task groups; team members are assigned
to projects and work through the generated task instances (forms, document
uploads, external API calls, redirects). Eligibility criteria - nested AND/OR
rule trees - decide which checklist items apply to a given hire, and admins
review, reject, or waive submissions.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			fmt.Println("error: not found")
		} else {
			fmt.Println("error:", err)
		}
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("ONBR")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("actor-id", "local-admin", "actor identifier")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("actor-id", rootCmd.PersistentFlags().Lookup("actor-id"))
}

func registerCommands() {
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(criteriaCmd())
	rootCmd.AddCommand(taskCmd())
	rootCmd.AddCommand(memberCmd())
	rootCmd.AddCommand(projectCmd())
	rootCmd.AddCommand(assignmentCmd())
	rootCmd.AddCommand(instanceCmd())
	rootCmd.AddCommand(notificationsCmd())
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	var allowActorHeader bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				authCfg := server.AuthConfig{
					JWTSecret:        os.Getenv("ONBR_JWT_SECRET"),
					AllowActorHeader: allowActorHeader,
				}
				if authCfg.JWTSecret == "" && e.Config != nil {
					authCfg.JWTSecret = e.Config.Auth.JWTSecret
				}
				if authCfg.JWTSecret == "" && !allowActorHeader {
					return fmt.Errorf("ONBR_JWT_SECRET is required for bearer auth (or pass --allow-actor-header for development)")
				}
				if addr == "" && e.Config != nil {
					addr = e.Config.Server.Addr
				}
				handler, err := server.New(server.Config{Engine: e, BasePath: basePath, Auth: authCfg})
				if err != nil {
					return err
				}
				srv := &http.Server{Addr: addr, Handler: handler}
				go func() {
					<-ctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					srv.Shutdown(shutdownCtx)
				}()
				fmt.Printf("Serving OnBoardingRite API on http://%s%s (OpenAPI at %s/openapi.json)\n", addr, basePath, basePath)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v1", "API base path")
	cmd.Flags().BoolVar(&allowActorHeader, "allow-actor-header", false, "accept unauthenticated X-Actor-Id (development only)")
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := db.Open(db.Config{Workspace: viper.GetString("workspace")})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			fmt.Println("migrations applied")
			return nil
		},
	}
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "config", Short: "Service configuration"}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return printJSONOrTable(cfg)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "init <tenant-id>",
		Short: "Write a default onboardingrite.yml",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault(args[0])), 0o644); err != nil {
				return err
			}
			fmt.Println("wrote", path)
			return nil
		},
	})
	return cmd
}

func criteriaCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "criteria", Short: "Eligibility criteria"}
	cmd.AddCommand(criteriaListCmd(), criteriaShowCmd(), criteriaImportCmd(), criteriaExportCmd(), criteriaEvalCmd())
	return cmd
}

func criteriaListCmd() *cobra.Command {
	var search string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List eligibility criteria",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.Repo.ListCriteria(ctx, search)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Logic", "Active", "Rules"})
				for _, c := range items {
					rows, err := e.Repo.ListRules(ctx, c.ID)
					if err != nil {
						return err
					}
					count := eligibility.RuleCount(eligibility.BuildTree(c.RootGroupLogic, rows))
					tw.AppendRow(table.Row{c.ID, c.Name, c.RootGroupLogic, c.IsActive, count})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&search, "search", "", "filter by name")
	return cmd
}

func criteriaShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <criteria-id>",
		Short: "Show a criteria with its rule tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				c, tree, err := e.GetRuleTree(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(map[string]any{"criteria": c, "rules": tree})
			})
		},
	}
}

// criteriaImportFile is the JSON shape accepted by criteria import/export.
type criteriaImportFile struct {
	Name           string            `json:"name"`
	Description    string            `json:"description,omitempty"`
	RootGroupLogic string            `json:"root_group_logic"`
	IsActive       bool              `json:"is_active"`
	Rules          *eligibility.Node `json:"rules,omitempty"`
}

func criteriaImportCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Create a criteria from a JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			var in criteriaImportFile
			if err := json.Unmarshal(data, &in); err != nil {
				return fmt.Errorf("invalid criteria file: %w", err)
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				c, err := e.CreateCriteria(ctx, engine.CriteriaOptions{
					Name:           in.Name,
					Description:    in.Description,
					RootGroupLogic: in.RootGroupLogic,
					IsActive:       in.IsActive,
					Rules:          in.Rules,
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "criteria JSON file")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func criteriaExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <criteria-id>",
		Short: "Export a criteria as import-ready JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				c, tree, err := e.GetRuleTree(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(criteriaImportFile{
					Name:           c.Name,
					Description:    c.Description,
					RootGroupLogic: c.RootGroupLogic,
					IsActive:       c.IsActive,
					Rules:          tree,
				})
			})
		},
	}
}

func criteriaEvalCmd() *cobra.Command {
	var attrsJSON string
	cmd := &cobra.Command{
		Use:   "eval <criteria-id>",
		Short: "Evaluate a criteria against candidate attributes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			attrs := map[string]any{}
			if attrsJSON != "" {
				if err := json.Unmarshal([]byte(attrsJSON), &attrs); err != nil {
					return fmt.Errorf("invalid attributes JSON: %w", err)
				}
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				ok, err := e.EvaluateCriteria(ctx, args[0], attrs)
				if err != nil {
					return err
				}
				return printJSONOrTable(map[string]any{"eligible": ok})
			})
		},
	}
	cmd.Flags().StringVar(&attrsJSON, "attributes", "{}", "candidate attributes as JSON")
	return cmd
}

func taskCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "task", Short: "Task library"}
	cmd.AddCommand(taskShowCmd(), taskListCmd())
	return cmd
}

func taskShowCmd() *cobra.Command {
	var effective bool
	cmd := &cobra.Command{
		Use:   "show <task-id>",
		Short: "Show a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.Repo.GetTask(ctx, args[0])
				if err != nil {
					return err
				}
				if !effective {
					return printJSONOrTable(t)
				}
				ec, err := e.EffectiveContent(ctx, t)
				if err != nil {
					return err
				}
				return printJSONOrTable(map[string]any{"task": t, "effective": ec})
			})
		},
	}
	cmd.Flags().BoolVar(&effective, "effective", false, "resolve content through the source-task link")
	return cmd
}

func taskListCmd() *cobra.Command {
	var templateID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a template's tasks in display order",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				tasks, err := e.Repo.ListTemplateTasks(ctx, templateID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(tasks)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Type", "Required", "Source"})
				for _, t := range tasks {
					source := ""
					if t.SourceTaskID != nil {
						source = *t.SourceTaskID
					}
					tw.AppendRow(table.Row{t.ID, t.Name, t.Type, t.IsRequired, source})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&templateID, "template", "", "template id")
	_ = cmd.MarkFlagRequired("template")
	return cmd
}

func memberCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "member", Short: "Team members"}
	var employeeID, first, last, email string
	add := &cobra.Command{
		Use:   "add",
		Short: "Create a team member",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				m, err := e.CreateTeamMember(ctx, engine.MemberOptions{
					EmployeeID: employeeID,
					FirstName:  first,
					LastName:   last,
					Email:      email,
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(m)
			})
		},
	}
	add.Flags().StringVar(&employeeID, "employee-id", "", "external employee id")
	add.Flags().StringVar(&first, "first-name", "", "first name")
	add.Flags().StringVar(&last, "last-name", "", "last name")
	add.Flags().StringVar(&email, "email", "", "email address")
	_ = add.MarkFlagRequired("first-name")
	_ = add.MarkFlagRequired("last-name")
	_ = add.MarkFlagRequired("email")
	cmd.AddCommand(add)
	return cmd
}

func projectCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "project", Short: "Projects"}
	var name, templateID string
	add := &cobra.Command{
		Use:   "add",
		Short: "Create a project backed by a checklist template",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				p, err := e.CreateProject(ctx, engine.ProjectOptions{Name: name, TemplateID: templateID})
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	add.Flags().StringVar(&name, "name", "", "project name")
	add.Flags().StringVar(&templateID, "template", "", "checklist template id")
	_ = add.MarkFlagRequired("name")
	_ = add.MarkFlagRequired("template")
	cmd.AddCommand(add)
	return cmd
}

func assignmentCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "assignment", Short: "Project assignments"}
	cmd.AddCommand(assignmentCreateCmd(), assignmentShowCmd(), assignmentChecklistCmd())
	return cmd
}

func assignmentCreateCmd() *cobra.Command {
	var projectID, memberID, category, trade, attrsJSON string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Assign a member to a project and build their checklist",
		RunE: func(cmd *cobra.Command, args []string) error {
			attrs := map[string]any{}
			if attrsJSON != "" {
				if err := json.Unmarshal([]byte(attrsJSON), &attrs); err != nil {
					return fmt.Errorf("invalid attributes JSON: %w", err)
				}
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				a, err := e.CreateAssignment(ctx, engine.AssignmentOptions{
					ProjectID:    projectID,
					TeamMemberID: memberID,
					Category:     category,
					Trade:        trade,
					Attributes:   attrs,
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(a)
			})
		},
	}
	cmd.Flags().StringVar(&projectID, "project", "", "project id")
	cmd.Flags().StringVar(&memberID, "member", "", "team member id")
	cmd.Flags().StringVar(&category, "category", "", "job category")
	cmd.Flags().StringVar(&trade, "trade", "", "trade classification")
	cmd.Flags().StringVar(&attrsJSON, "attributes", "", "extra candidate attributes as JSON")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("member")
	return cmd
}

func assignmentShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <assignment-id>",
		Short: "Show assignment progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				a, err := e.Repo.GetAssignment(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(a)
			})
		},
	}
}

func assignmentChecklistCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "checklist <assignment-id>",
		Short: "Show the assignment's checklist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.Checklist(ctx, args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Instance", "Group", "Task", "Type", "Status", "Review"})
				for _, item := range items {
					tw.AppendRow(table.Row{item.Instance.ID, item.GroupName, item.Name, item.Type, item.Instance.Status, item.Instance.ReviewStatus})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func instanceCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "instance", Short: "Task instances"}
	cmd.AddCommand(instanceShowCmd(), instanceWaiveCmd(), instanceApproveCmd(), instanceRejectCmd(), instanceSetStatusCmd())
	return cmd
}

func instanceShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <instance-id>",
		Short: "Show a task instance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				ti, err := e.Repo.GetInstance(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(ti)
			})
		},
	}
}

func instanceWaiveCmd() *cobra.Command {
	var reason, until string
	cmd := &cobra.Command{
		Use:   "waive <instance-id>",
		Short: "Waive a task instance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				ti, err := e.Waive(ctx, engine.WaiveOptions{
					InstanceID:  args[0],
					Reason:      reason,
					WaivedBy:    viper.GetString("actor-id"),
					WaivedUntil: until,
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(ti)
			})
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "waive reason")
	cmd.Flags().StringVar(&until, "until", "", "waive expiry (RFC 3339)")
	_ = cmd.MarkFlagRequired("reason")
	return cmd
}

func instanceApproveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "approve <instance-id>",
		Short: "Approve a completed task instance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				ti, err := e.Approve(ctx, args[0], viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(ti)
			})
		},
	}
}

func instanceRejectCmd() *cobra.Command {
	var remarks string
	cmd := &cobra.Command{
		Use:   "reject <instance-id>",
		Short: "Reject a completed task instance for rework",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				ti, err := e.Reject(ctx, args[0], viper.GetString("actor-id"), remarks)
				if err != nil {
					return err
				}
				return printJSONOrTable(ti)
			})
		},
	}
	cmd.Flags().StringVar(&remarks, "remarks", "", "rejection remarks")
	_ = cmd.MarkFlagRequired("remarks")
	return cmd
}

func instanceSetStatusCmd() *cobra.Command {
	var status, resultJSON string
	cmd := &cobra.Command{
		Use:   "set-status <instance-id>",
		Short: "Administrative status override",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch map[string]any
			if resultJSON != "" {
				if err := json.Unmarshal([]byte(resultJSON), &patch); err != nil {
					return fmt.Errorf("invalid result JSON: %w", err)
				}
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				ti, err := e.OverrideStatus(ctx, engine.OverrideOptions{
					InstanceID:  args[0],
					Status:      status,
					ResultPatch: patch,
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(ti)
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "target status")
	cmd.Flags().StringVar(&resultJSON, "result", "", "partial result patch as JSON")
	_ = cmd.MarkFlagRequired("status")
	return cmd
}

func notificationsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "notifications <member-id>",
		Short: "List a member's notifications, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.Repo.ListNotifications(ctx, args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Type", "Title", "Message", "Read"})
				for _, n := range items {
					tw.AppendRow(table.Row{n.ID, n.Type, n.Title, n.Message, n.IsRead})
				}
				tw.Render()
				return nil
			})
		},
	}
}

// --- helpers ---

func loadConfig() (*config.Config, error) {
	workspace := viper.GetString("workspace")
	cfg, err := config.LoadOptional(workspace)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = config.Default("local")
	}
	return cfg, nil
}

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	e := engine.New(conn, cfg)
	return fn(ctx, e)
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
