package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"pagemgr-cli/internal/model"
)

const (
	SetupFormatJSON = "json"
	SetupFormatYAML = "yaml"
)

// SetupFormatForPath picks the codec from the file extension; anything but .yaml/.yml is JSON.
func SetupFormatForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return SetupFormatYAML
	default:
		return SetupFormatJSON
	}
}

func EncodeSetup(rec model.Setup, format string) ([]byte, error) {
	switch format {
	case SetupFormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(rec); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case SetupFormatJSON, "":
		b, err := json.Marshal(rec)
		if err != nil {
			return nil, err
		}
		var out bytes.Buffer
		if err := json.Indent(&out, b, "", "  "); err != nil {
			return nil, err
		}
		out.WriteByte('\n')
		return out.Bytes(), nil
	default:
		return nil, fmt.Errorf("unknown setup format: %q", format)
	}
}

func DecodeSetup(b []byte, format string) (model.Setup, error) {
	var rec model.Setup
	switch format {
	case SetupFormatYAML:
		if err := yaml.Unmarshal(b, &rec); err != nil {
			return model.Setup{}, err
		}
	case SetupFormatJSON, "":
		if err := json.Unmarshal(b, &rec); err != nil {
			return model.Setup{}, err
		}
	default:
		return model.Setup{}, fmt.Errorf("unknown setup format: %q", format)
	}
	return rec, nil
}

func ReadSetupFile(path string) (model.Setup, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return model.Setup{}, err
	}
	rec, err := DecodeSetup(b, SetupFormatForPath(path))
	if err != nil {
		return model.Setup{}, fmt.Errorf("%s: %w", path, err)
	}
	return rec, nil
}

// WriteSetupFile writes rec atomically. An existing file is kept as <path>.bak.
func WriteSetupFile(path string, rec model.Setup) error {
	b, err := EncodeSetup(rec, SetupFormatForPath(path))
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if st, err := os.Stat(path); err == nil && st.Mode().IsRegular() {
		_ = CopyFile(path, path+".bak")
	}
	return atomicWriteFile(dir, filepath.Base(path)+".*.tmp", path, b, 0o644)
}
