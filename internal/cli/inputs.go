package cli

import (
	"errors"

	"pagemgr-cli/internal/store"

	"github.com/spf13/cobra"
)

func newInputsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inputs",
		Short: "Manage the input PDF files",
	}
	cmd.AddCommand(newInputsAddCmd(app))
	cmd.AddCommand(newInputsListCmd(app))
	cmd.AddCommand(newInputsRemoveCmd(app))
	return cmd
}

func newInputsAddCmd(app *App) *cobra.Command {
	var policy string

	cmd := &cobra.Command{
		Use:   "add <pdf>...",
		Short: "Add input files; each becomes an output document holding all of its pages",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if policy != "" {
				if app.cfg == nil {
					app.cfg = &store.GlobalConfig{}
				}
				p, err := store.NormalizeMergePolicy(policy)
				if err != nil {
					return writeErr(cmd, err)
				}
				cfg := *app.cfg
				cfg.MergePolicy = p
				app.cfg = &cfg
			}
			wb, s, err := loadWorkbench(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			res, err := wb.AddDocuments(cmd.Context(), args)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := saveWorkbench(s, wb, "inputs.add", "", map[string]any{"files": wb.Inputs(), "added": res.Added}); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": res})
		},
	}
	cmd.Flags().StringVar(&policy, "policy", "", "Name collision policy (overwrite|rename); defaults to the global config")
	return cmd
}

func newInputsListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List input files in the order they were added",
		RunE: func(cmd *cobra.Command, args []string) error {
			wb, _, err := loadWorkbench(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": wb.Inputs()})
		},
	}
}

func newInputsRemoveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <pdf>...",
		Short: "Withdraw input files; their pages are dropped from every document",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wb, s, err := loadWorkbench(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			if len(wb.Inputs()) == 0 {
				return writeErr(cmd, errors.New("no inputs; add some with `pagemgr inputs add`"))
			}
			dropped, err := wb.RemoveInputs(args)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := saveWorkbench(s, wb, "inputs.remove", "", map[string]any{"files": args, "droppedPages": dropped}); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{
				"data": map[string]any{"inputs": wb.Inputs(), "droppedPages": dropped},
			})
		},
	}
}
