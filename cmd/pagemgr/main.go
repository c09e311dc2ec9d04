package main

import (
	"os"
	"strings"

	"pagemgr-cli/internal/cli"
)

func isPDFPath(s string) bool {
	s = strings.TrimSpace(s)
	return len(s) > len(".pdf") && strings.EqualFold(s[len(s)-len(".pdf"):], ".pdf")
}

// rewriteDirectInputArgs makes `pagemgr a.pdf b.pdf` work like `pagemgr inputs add a.pdf b.pdf`.
//
// Cobra treats the first non-flag token as a subcommand, so argv is rewritten before parsing.
// Persistent flags may come first, so the first positional token is searched for.
func rewriteDirectInputArgs(argv []string) []string {
	if len(argv) < 2 {
		return argv
	}

	valueFlags := map[string]bool{
		"--dir":        true,
		"--workspace":  true,
		"--format":     true,
		"--log-level":  true,
		"--log-format": true,
	}

	insert := func(i int) []string {
		out := make([]string, 0, len(argv)+2)
		out = append(out, argv[:i]...)
		out = append(out, "inputs", "add")
		out = append(out, argv[i:]...)
		return out
	}

	for i := 1; i < len(argv); i++ {
		a := strings.TrimSpace(argv[i])
		if a == "" {
			continue
		}
		if a == "--" {
			if i+1 < len(argv) && isPDFPath(argv[i+1]) {
				return insert(i + 1)
			}
			return argv
		}
		if strings.HasPrefix(a, "-") {
			if !strings.Contains(a, "=") && valueFlags[a] {
				i++
			}
			continue
		}
		if isPDFPath(a) {
			return insert(i)
		}
		return argv
	}
	return argv
}

func main() {
	os.Args = rewriteDirectInputArgs(os.Args)

	cmd := cli.NewRootCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
