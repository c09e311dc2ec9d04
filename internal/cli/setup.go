package cli

import (
	"path/filepath"

	"pagemgr-cli/internal/model"

	"github.com/spf13/cobra"
)

func newSetupCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Show, import, export or replace the setup record",
	}
	cmd.AddCommand(newSetupShowCmd(app))
	cmd.AddCommand(newSetupExportCmd(app))
	cmd.AddCommand(newSetupImportCmd(app))
	cmd.AddCommand(newSetupMergeCmd(app))
	cmd.AddCommand(newSetupSplitCmd(app))
	cmd.AddCommand(newSetupClearCmd(app))
	cmd.AddCommand(newSetupOutputDirCmd(app))
	return cmd
}

func newSetupShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the setup record (non-empty documents only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			wb, _, err := loadWorkbench(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": wb.Model().SerializeSetup()})
		},
	}
}

func newSetupExportCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "export <file>",
		Short: "Write the setup record to a .json or .yaml file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wb, s, err := loadWorkbench(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			path, err := filepath.Abs(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			rec := wb.Model().SerializeSetup()
			if err := newEngine().SaveSetup(rec, path); err != nil {
				return writeErr(cmd, err)
			}
			if err := s.AppendEvent("setup.export", path, map[string]any{"documents": len(rec.Documents)}); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]any{"path": path, "documents": len(rec.Documents)}})
		},
	}
}

func newSetupImportCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the output model with a setup record file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wb, s, err := loadWorkbench(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			rec, err := newEngine().LoadSetup(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := wb.Model().LoadSetup(rec); err != nil {
				return writeErr(cmd, err)
			}
			return commit(cmd, app, wb.Model().SerializeSetup(), func() error {
				return saveWorkbench(s, wb, "setup.import", args[0], map[string]any{"documents": len(rec.Documents)})
			})
		},
	}
}

func newSetupMergeCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "merge",
		Short: "Replace the setup with one document holding every page of every input",
		RunE: func(cmd *cobra.Command, args []string) error {
			wb, s, err := loadWorkbench(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := wb.Merge(cmd.Context()); err != nil {
				return writeErr(cmd, err)
			}
			return commit(cmd, app, wb.Model().SerializeSetup(), func() error {
				return saveWorkbench(s, wb, "setup.merge", "", map[string]any{"inputs": len(wb.Inputs())})
			})
		},
	}
}

func newSetupSplitCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "split",
		Short: "Replace the setup with one document per input",
		RunE: func(cmd *cobra.Command, args []string) error {
			wb, s, err := loadWorkbench(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := wb.Split(cmd.Context()); err != nil {
				return writeErr(cmd, err)
			}
			return commit(cmd, app, wb.Model().SerializeSetup(), func() error {
				return saveWorkbench(s, wb, "setup.split", "", map[string]any{"inputs": len(wb.Inputs())})
			})
		},
	}
}

func newSetupClearCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Drop every output document and the Unassigned bucket (inputs are kept)",
		RunE: func(cmd *cobra.Command, args []string) error {
			wb, s, err := loadWorkbench(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			m := wb.Model()
			if err := m.LoadSetup(model.Setup{OutputDir: m.OutputDir()}); err != nil {
				return writeErr(cmd, err)
			}
			return commit(cmd, app, m.SerializeSetup(), func() error {
				return saveWorkbench(s, wb, "setup.clear", "", nil)
			})
		},
	}
}

func newSetupOutputDirCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "output-dir [dir]",
		Short: "Show or set the directory generated files are written to",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wb, s, err := loadWorkbench(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			m := wb.Model()
			if len(args) == 1 {
				abs, err := filepath.Abs(args[0])
				if err != nil {
					return writeErr(cmd, err)
				}
				m.SetOutputDir(abs)
				if err := saveWorkbench(s, wb, "setup.output_dir", abs, nil); err != nil {
					return writeErr(cmd, err)
				}
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]any{"outputDir": m.OutputDir()}})
		},
	}
}
