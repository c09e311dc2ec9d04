package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Merge policies for re-importing an input whose document name already exists.
const (
	MergePolicyOverwrite = "overwrite"
	MergePolicyRename    = "rename"
)

type GlobalConfig struct {
	CurrentWorkspace string `json:"currentWorkspace,omitempty" yaml:"currentWorkspace,omitempty"`

	// DefaultOutputDir seeds output_dir for workspaces that have none yet.
	DefaultOutputDir string `json:"defaultOutputDir,omitempty" yaml:"defaultOutputDir,omitempty"`

	// MergePolicy decides what happens when an added input produces a document name that
	// already exists ("overwrite" or "rename"). Empty means overwrite.
	MergePolicy string `json:"mergePolicy,omitempty" yaml:"mergePolicy,omitempty"`

	// LogLevel is the default log level (trace|debug|info|warn|error).
	LogLevel string `json:"logLevel,omitempty" yaml:"logLevel,omitempty"`

	// TUI holds optional user preferences for the interactive TUI.
	TUI *TUIConfig `json:"tui,omitempty" yaml:"tui,omitempty"`
}

type TUIConfig struct {
	// Glyphs selects the glyph set ("unicode" or "ascii").
	Glyphs string `json:"glyphs,omitempty" yaml:"glyphs,omitempty"`
	// Accent overrides the accent color (any lipgloss color string).
	Accent *AdaptiveColor `json:"accent,omitempty" yaml:"accent,omitempty"`
}

type AdaptiveColor struct {
	Light string `json:"light,omitempty" yaml:"light,omitempty"`
	Dark  string `json:"dark,omitempty" yaml:"dark,omitempty"`
}

func ConfigDir() (string, error) {
	// Test/advanced override (keeps unit tests from touching ~/.pagemgr).
	if v := strings.TrimSpace(os.Getenv("PAGEMGR_CONFIG_DIR")); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".pagemgr"), nil
}

func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

func LoadConfig() (*GlobalConfig, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &GlobalConfig{}, nil
		}
		return nil, err
	}
	var cfg GlobalConfig
	if err := json.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}

func SaveConfig(cfg *GlobalConfig) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return atomicWriteFile(dir, "config.json.*.tmp", path, b, 0o600)
}

// NormalizeMergePolicy maps user input to a known policy; empty means overwrite.
func NormalizeMergePolicy(s string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", MergePolicyOverwrite:
		return MergePolicyOverwrite, nil
	case MergePolicyRename:
		return MergePolicyRename, nil
	default:
		return "", fmt.Errorf("invalid merge policy: %q (expected overwrite|rename)", s)
	}
}

func NormalizeWorkspaceName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("workspace name is empty")
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", fmt.Errorf("invalid workspace name: %q", name)
	}
	return name, nil
}

func WorkspaceDir(name string) (string, error) {
	name, err := NormalizeWorkspaceName(name)
	if err != nil {
		return "", err
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "workspaces", name), nil
}

func ListWorkspaces() ([]string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return nil, err
	}
	out := []string{}
	ents, err := os.ReadDir(filepath.Join(dir, "workspaces"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return out, nil
		}
		return nil, err
	}
	for _, e := range ents {
		if e.IsDir() {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}
