package cli

import (
	"errors"
	"fmt"

	"pagemgr-cli/internal/compose"
	"pagemgr-cli/internal/workbench"

	"github.com/spf13/cobra"
)

func newGenerateCmd(app *App) *cobra.Command {
	var yes, dryRun bool

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write one PDF per non-empty output document",
		RunE: func(cmd *cobra.Command, args []string) error {
			wb, s, err := loadWorkbench(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			if dryRun {
				return writeOut(cmd, app, map[string]any{"data": wb.OutputPaths(), "meta": map[string]any{"dryRun": true}})
			}
			paths, err := wb.Generate(cmd.Context(), yes)
			switch {
			case errors.Is(err, compose.ErrCancelled):
				return writeErr(cmd, errors.New("cancelled; no files written"))
			case errors.Is(err, workbench.ErrNoOutputDir):
				return writeErr(cmd, fmt.Errorf("%w; set one with `pagemgr setup output-dir <dir>`", err))
			case err != nil:
				return writeErr(cmd, err)
			}
			if err := s.AppendEvent("generate", wb.Model().OutputDir(), map[string]any{"files": paths}); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": paths})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Overwrite existing output files without asking")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Only list the files that would be written")
	return cmd
}
