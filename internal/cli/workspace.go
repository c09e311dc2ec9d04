package cli

import (
	"errors"

	"pagemgr-cli/internal/store"

	"github.com/spf13/cobra"
)

func newWorkspaceCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workspace",
		Short: "Workspace management",
	}
	cmd.AddCommand(newWorkspaceListCmd(app))
	cmd.AddCommand(newWorkspaceUseCmd(app))
	cmd.AddCommand(newWorkspaceCurrentCmd(app))
	cmd.AddCommand(newWorkspaceConfigCmd(app))
	return cmd
}

func newWorkspaceListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List workspaces",
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := store.ListWorkspaces()
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": names})
		},
	}
}

func newWorkspaceUseCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "use <name>",
		Short: "Set the current workspace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := store.NormalizeWorkspaceName(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			app.cfg.CurrentWorkspace = name
			if err := store.SaveConfig(app.cfg); err != nil {
				return writeErr(cmd, err)
			}
			dir, err := store.WorkspaceDir(name)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]any{"workspace": name, "dir": dir}})
		},
	}
}

func newWorkspaceCurrentCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "current",
		Short: "Show the resolved workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := resolveDir(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]any{"workspace": app.Workspace, "dir": dir}})
		},
	}
}

func newWorkspaceConfigCmd(app *App) *cobra.Command {
	var policy, outputDir, logLevel string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change global settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := app.cfg
			changed := false
			if cmd.Flags().Changed("merge-policy") {
				p, err := store.NormalizeMergePolicy(policy)
				if err != nil {
					return writeErr(cmd, err)
				}
				cfg.MergePolicy = p
				changed = true
			}
			if cmd.Flags().Changed("default-output-dir") {
				cfg.DefaultOutputDir = outputDir
				changed = true
			}
			if cmd.Flags().Changed("default-log-level") {
				if logLevel == "" {
					return writeErr(cmd, errors.New("--default-log-level is empty"))
				}
				cfg.LogLevel = logLevel
				changed = true
			}
			if changed {
				if err := store.SaveConfig(cfg); err != nil {
					return writeErr(cmd, err)
				}
			}
			return writeOut(cmd, app, map[string]any{"data": cfg})
		},
	}
	cmd.Flags().StringVar(&policy, "merge-policy", "", "Name collisions when adding inputs (overwrite|rename)")
	cmd.Flags().StringVar(&outputDir, "default-output-dir", "", "Output directory for new workspaces")
	cmd.Flags().StringVar(&logLevel, "default-log-level", "", "Default log level")
	return cmd
}
