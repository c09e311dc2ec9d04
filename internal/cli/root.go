package cli

import (
	"fmt"
	"os"
	"strings"

	"pagemgr-cli/internal/engine"
	"pagemgr-cli/internal/format"
	"pagemgr-cli/internal/logging"
	"pagemgr-cli/internal/model"
	"pagemgr-cli/internal/store"
	"pagemgr-cli/internal/tui"
	"pagemgr-cli/internal/workbench"

	"github.com/spf13/cobra"
)

type App struct {
	Dir        string
	Workspace  string
	PrettyJSON bool
	Format     string
	LogLevel   string
	LogFormat  string

	cfg *store.GlobalConfig
}

// pdfEngine is what the commands need from the PDF engine: the workbench collaborator plus
// setup-file import/export.
type pdfEngine interface {
	workbench.Engine
	LoadSetup(path string) (model.Setup, error)
	SaveSetup(rec model.Setup, path string) error
}

// newEngine is swapped out in tests.
var newEngine = func() pdfEngine { return engine.New() }

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "pagemgr",
		Short:        "Compose new PDF files from pages of existing ones (CLI + TUI)",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Start the interactive composer
  pagemgr

  # Add inputs: one output document per file
  pagemgr inputs add scan.pdf invoice.pdf

  # Move page 3 of "scan" to the front, then generate
  pagemgr pages set scan:3 --position 1
  pagemgr setup output-dir ./out
  pagemgr generate
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand => interactive TUI.
			if cmd.HasSubCommands() && len(args) == 0 {
				return runTUI(cmd, app)
			}
			return cmd.Help()
		},
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := store.LoadConfig()
		if err != nil {
			return writeErr(cmd, err)
		}
		app.cfg = cfg
		if err := logging.Init(logging.Config{
			Level:  logging.ResolveLevel(app.LogLevel, cfg.LogLevel),
			Format: app.LogFormat,
			Output: cmd.ErrOrStderr(),
		}); err != nil {
			return writeErr(cmd, err)
		}
		return nil
	}

	cmd.PersistentFlags().StringVar(&app.Dir, "dir", envOr("PAGEMGR_DIR", ""), "Path to workspace dir (advanced: overrides workspace resolution)")
	cmd.PersistentFlags().StringVar(&app.Workspace, "workspace", envOr("PAGEMGR_WORKSPACE", ""), "Workspace name (default: 'default')")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON output")
	cmd.PersistentFlags().StringVar(&app.Format, "format", envOr("PAGEMGR_FORMAT", "json"), "Output format (json|yaml)")
	cmd.PersistentFlags().StringVar(&app.LogLevel, "log-level", "", "Log level (trace|debug|info|warn|error); default $PAGEMGR_LOG_LEVEL, then the global config, then warn")
	cmd.PersistentFlags().StringVar(&app.LogFormat, "log-format", envOr("PAGEMGR_LOG_FORMAT", "console"), "Log format (console|json)")

	cmd.AddCommand(newInitCmd(app))
	cmd.AddCommand(newWorkspaceCmd(app))
	cmd.AddCommand(newInputsCmd(app))
	cmd.AddCommand(newSetupCmd(app))
	cmd.AddCommand(newOutputsCmd(app))
	cmd.AddCommand(newPagesCmd(app))
	cmd.AddCommand(newGenerateCmd(app))
	cmd.AddCommand(newEventsCmd(app))
	cmd.AddCommand(newDocsCmd(app))

	return cmd
}

func runTUI(cmd *cobra.Command, app *App) error {
	wb, s, err := loadWorkbench(cmd, app)
	if err != nil {
		return writeErr(cmd, err)
	}
	var prefs *store.TUIConfig
	if app.cfg != nil {
		prefs = app.cfg.TUI
	}
	return tui.Run(wb, s, tui.Options{Workspace: app.Workspace, Prefs: prefs})
}

// resolveDir applies the workspace precedence:
// 1) --dir
// 2) --workspace
// 3) config currentWorkspace
// 4) the implicit "default" workspace
func resolveDir(app *App) (string, error) {
	if app.Dir != "" {
		return app.Dir, nil
	}
	name := app.Workspace
	if name == "" {
		if app.cfg != nil && app.cfg.CurrentWorkspace != "" {
			name = app.cfg.CurrentWorkspace
		} else {
			name = "default"
		}
	}
	dir, err := store.WorkspaceDir(name)
	if err != nil {
		return "", err
	}
	app.Workspace = name
	app.Dir = dir
	return dir, nil
}

func loadWorkbench(cmd *cobra.Command, app *App) (*workbench.Workbench, store.Store, error) {
	dir, err := resolveDir(app)
	if err != nil {
		return nil, store.Store{}, err
	}
	s := store.Store{Dir: dir}
	st, err := s.Load()
	if err != nil {
		return nil, s, err
	}
	cfg := app.cfg
	if cfg == nil {
		cfg = &store.GlobalConfig{}
	}
	if st.OutputDir == "" {
		st.OutputDir = cfg.DefaultOutputDir
	}
	policy, err := store.NormalizeMergePolicy(cfg.MergePolicy)
	if err != nil {
		return nil, s, err
	}
	wb, err := workbench.Open(newEngine(), st,
		workbench.WithMergePolicy(policy),
		workbench.WithConfirmer(promptConfirmer(cmd)),
	)
	if err != nil {
		return nil, s, err
	}
	return wb, s, nil
}

// saveWorkbench persists the workspace and records the change in the event log.
func saveWorkbench(s store.Store, wb *workbench.Workbench, typ, entityID string, payload any) error {
	if err := s.Save(wb.State()); err != nil {
		return err
	}
	if err := s.AppendEvent(typ, entityID, payload); err != nil {
		logging.Warn().Add(logging.Err(err)).Add(logging.Str("event", typ)).Msg("event log append failed")
	}
	return nil
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	return format.Write(cmd.OutOrStdout(), v, app.Format, app.PrettyJSON)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}

// commit runs save and, when it succeeds, prints out inside the data envelope.
func commit(cmd *cobra.Command, app *App, out any, save func() error) error {
	if err := save(); err != nil {
		return writeErr(cmd, err)
	}
	return writeOut(cmd, app, map[string]any{"data": out})
}
