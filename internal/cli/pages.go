package cli

import (
	"errors"
	"fmt"

	"pagemgr-cli/internal/compose"
	"pagemgr-cli/internal/model"

	"github.com/spf13/cobra"
)

func newPagesCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pages",
		Short: "List, reorder, move and remove pages",
		Long: `Pages are addressed as <document>:<position> (1-based) or unassigned:<index>.
A document may also be given as #N, its place in 'pagemgr outputs list'.`,
	}
	cmd.AddCommand(newPagesListCmd(app))
	cmd.AddCommand(newPagesSetCmd(app))
	cmd.AddCommand(newPagesStepCmd(app, "up", "Swap a page with the one before it", (*compose.Model).MoveUp))
	cmd.AddCommand(newPagesStepCmd(app, "down", "Swap a page with the one after it", (*compose.Model).MoveDown))
	cmd.AddCommand(newPagesMoveCmd(app))
	cmd.AddCommand(newPagesRemoveCmd(app))
	cmd.AddCommand(newPagesSelectCmd(app))
	return cmd
}

// documentView returns the snapshot view of doc, which may be the Unassigned bucket.
func documentView(m *compose.Model, doc compose.Handle) model.DocumentView {
	snap := m.Snapshot()
	if doc == m.Unassigned() {
		return snap.Unassigned
	}
	for i, h := range m.Documents() {
		if h == doc {
			return snap.Documents[i]
		}
	}
	return model.DocumentView{}
}

func newPagesListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list [doc]",
		Short: "List pages of one document, or the whole output model",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wb, _, err := loadWorkbench(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			m := wb.Model()
			if len(args) == 0 {
				return writeOut(cmd, app, map[string]any{"data": m.Snapshot()})
			}
			doc, err := resolveDocument(m, args[0], true)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": documentView(m, doc)})
		},
	}
}

// mutatePage resolves the page ref, applies fn and saves. The output is the page's new ref plus
// the view of the document that now owns it.
func mutatePage(cmd *cobra.Command, app *App, ref, event string, fn func(m *compose.Model, page compose.Handle) error) error {
	wb, s, err := loadWorkbench(cmd, app)
	if err != nil {
		return writeErr(cmd, err)
	}
	m := wb.Model()
	page, err := resolvePage(m, ref)
	if err != nil {
		return writeErr(cmd, err)
	}
	if err := fn(m, page); err != nil {
		return writeErr(cmd, err)
	}
	info, _ := m.Page(page)
	out := map[string]any{"page": pageRef(m, page), "document": documentView(m, info.Owner)}
	return commit(cmd, app, out, func() error {
		return saveWorkbench(s, wb, event, pageRef(m, page), map[string]any{"from": ref, "source": info.Source})
	})
}

func newPagesSetCmd(app *App) *cobra.Command {
	var position int

	cmd := &cobra.Command{
		Use:   "set <page>",
		Short: "Move a page to a new position within its document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutatePage(cmd, app, args[0], "pages.set", func(m *compose.Model, page compose.Handle) error {
				return m.SetPageNumber(page, position)
			})
		},
	}
	cmd.Flags().IntVar(&position, "position", 0, "New 1-based position (required)")
	_ = cmd.MarkFlagRequired("position")
	return cmd
}

func newPagesStepCmd(app *App, use, short string, step func(*compose.Model, compose.Handle) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <page>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutatePage(cmd, app, args[0], "pages."+use, step)
		},
	}
}

func newPagesMoveCmd(app *App) *cobra.Command {
	var to string

	cmd := &cobra.Command{
		Use:   "move <page>",
		Short: "Move a page to the end of another document (or to unassigned)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutatePage(cmd, app, args[0], "pages.move", func(m *compose.Model, page compose.Handle) error {
				target, err := resolveDocument(m, to, true)
				if err != nil {
					return err
				}
				info, err := m.Page(page)
				if err != nil {
					return err
				}
				return m.MovePage(page, info.Owner, target)
			})
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "Target document name, #N, or unassigned (required)")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func newPagesRemoveCmd(app *App) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "remove <page>...",
		Short: "Park pages in Unassigned",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wb, s, err := loadWorkbench(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			m := wb.Model()
			// Resolve every ref before anything moves; positions shift afterwards.
			pages, err := resolvePages(m, args)
			if err != nil {
				return writeErr(cmd, err)
			}
			for i, h := range pages {
				if info, _ := m.Page(h); info.Owner == m.Unassigned() {
					return writeErr(cmd, fmt.Errorf("%s is already in Unassigned; pages leave it only when their input is withdrawn with `pagemgr inputs remove`", args[i]))
				}
			}
			res, err := m.Remove(pages, false, yes)
			if errors.Is(err, compose.ErrCancelled) {
				return writeErr(cmd, errors.New("cancelled; nothing removed"))
			}
			if err != nil {
				return writeErr(cmd, err)
			}
			out := map[string]any{"unassigned": res.Unassigned}
			return commit(cmd, app, out, func() error {
				return saveWorkbench(s, wb, "pages.remove", "", map[string]any{"pages": args})
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func newPagesSelectCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "select <page>",
		Short: "Activate a page and print the selection notification",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wb, s, err := loadWorkbench(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			m := wb.Model()
			page, err := resolvePage(m, args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			var selected model.PageSelected
			unsubscribe := m.OnPageSelected(func(ev model.PageSelected) { selected = ev })
			defer unsubscribe()
			if err := m.SelectPage(page); err != nil {
				return writeErr(cmd, err)
			}
			if err := s.AppendEvent("pages.select", args[0], selected); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": selected})
		},
	}
}
