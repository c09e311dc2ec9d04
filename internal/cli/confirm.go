package cli

import (
	"bufio"
	"fmt"
	"strings"

	"pagemgr-cli/internal/compose"

	"github.com/spf13/cobra"
)

// promptConfirmer asks on stderr and reads the answer from stdin. Anything but y/yes declines,
// including EOF, so scripts must pass --yes to skip the prompt.
func promptConfirmer(cmd *cobra.Command) compose.Confirmer {
	return compose.ConfirmFunc(func(prompt string) bool {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s [y/N] ", prompt)
		line, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true
		default:
			return false
		}
	})
}
