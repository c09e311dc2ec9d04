package cli

import (
	"path/filepath"

	"pagemgr-cli/internal/store"

	"github.com/spf13/cobra"
)

func newInitCmd(app *App) *cobra.Command {
	var outputDir string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize workspace storage",
		RunE: func(cmd *cobra.Command, args []string) error {
			wb, s, err := loadWorkbench(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			if outputDir != "" {
				abs, err := filepath.Abs(outputDir)
				if err != nil {
					return writeErr(cmd, err)
				}
				wb.Model().SetOutputDir(abs)
			}
			if err := saveWorkbench(s, wb, "workspace.init", app.Workspace, map[string]any{"outputDir": wb.Model().OutputDir()}); err != nil {
				return writeErr(cmd, err)
			}

			// First init of a named workspace makes it current.
			if app.Workspace != "" && app.cfg != nil && app.cfg.CurrentWorkspace == "" {
				app.cfg.CurrentWorkspace = app.Workspace
				_ = store.SaveConfig(app.cfg)
			}

			return writeOut(cmd, app, map[string]any{
				"data": map[string]any{
					"dir":        app.Dir,
					"workspace":  app.Workspace,
					"sqlitePath": filepath.Join(app.Dir, "state.sqlite"),
					"outputDir":  wb.Model().OutputDir(),
				},
			})
		},
	}
	cmd.Flags().StringVar(&outputDir, "output-dir", "", "Directory generated files are written to")
	return cmd
}
