package cli

import (
	"errors"

	"pagemgr-cli/internal/compose"
	"pagemgr-cli/internal/engine"

	"github.com/spf13/cobra"
)

type outputRow struct {
	Index int    `json:"index" yaml:"index"`
	Name  string `json:"name" yaml:"name"`
	Pages int    `json:"pages" yaml:"pages"`
	Path  string `json:"path,omitempty" yaml:"path,omitempty"`
}

func outputRows(m *compose.Model) []outputRow {
	rows := []outputRow{}
	for i, h := range m.Documents() {
		d, err := m.Document(h)
		if err != nil {
			continue
		}
		row := outputRow{Index: i + 1, Name: d.Name, Pages: d.PageCount}
		if m.OutputDir() != "" {
			row.Path = engine.OutputPath(m.OutputDir(), d.Name)
		}
		rows = append(rows, row)
	}
	return rows
}

func newOutputsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "outputs",
		Short: "Manage output documents",
	}
	cmd.AddCommand(newOutputsListCmd(app))
	cmd.AddCommand(newOutputsCreateCmd(app))
	cmd.AddCommand(newOutputsRenameCmd(app))
	cmd.AddCommand(newOutputsRemoveCmd(app))
	return cmd
}

func newOutputsListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List output documents in generation order",
		RunE: func(cmd *cobra.Command, args []string) error {
			wb, _, err := loadWorkbench(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			m := wb.Model()
			return writeOut(cmd, app, map[string]any{
				"data": outputRows(m),
				"meta": map[string]any{"unassigned": len(m.Pages(m.Unassigned()))},
			})
		},
	}
}

func newOutputsCreateCmd(app *App) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an empty output document",
		RunE: func(cmd *cobra.Command, args []string) error {
			wb, s, err := loadWorkbench(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			m := wb.Model()
			h, err := m.AddDocument(name)
			if err != nil {
				return writeErr(cmd, err)
			}
			d, _ := m.Document(h)
			return commit(cmd, app, outputRow{Index: len(m.Documents()), Name: d.Name}, func() error {
				return saveWorkbench(s, wb, "outputs.create", d.Name, nil)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Document name (required)")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newOutputsRenameCmd(app *App) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "rename <doc>",
		Short: "Rename an output document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wb, s, err := loadWorkbench(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			m := wb.Model()
			h, err := resolveDocument(m, args[0], false)
			if err != nil {
				return writeErr(cmd, err)
			}
			before, _ := m.Document(h)
			if err := m.RenameDocument(h, name); err != nil {
				return writeErr(cmd, err)
			}
			after, _ := m.Document(h)
			return commit(cmd, app, map[string]any{"from": before.Name, "to": after.Name}, func() error {
				return saveWorkbench(s, wb, "outputs.rename", after.Name, map[string]any{"from": before.Name})
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "New name (required)")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newOutputsRemoveCmd(app *App) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "remove <doc>...",
		Short: "Remove output documents; their pages move to Unassigned",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wb, s, err := loadWorkbench(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			m := wb.Model()
			targets := make([]compose.Handle, 0, len(args))
			for _, ref := range args {
				h, err := resolveDocument(m, ref, true)
				if err != nil {
					return writeErr(cmd, err)
				}
				targets = append(targets, h)
			}
			res, err := m.Remove(targets, false, yes)
			if errors.Is(err, compose.ErrCancelled) {
				return writeErr(cmd, errors.New("cancelled; nothing removed"))
			}
			if err != nil {
				return writeErr(cmd, err)
			}
			out := map[string]any{"removed": res.RemovedDocuments, "unassignedPages": res.Unassigned}
			if len(res.Skipped) > 0 {
				out["skipped"] = len(res.Skipped)
			}
			return commit(cmd, app, out, func() error {
				return saveWorkbench(s, wb, "outputs.remove", "", out)
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}
